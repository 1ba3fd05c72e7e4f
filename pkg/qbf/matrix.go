package qbf

import (
	"fmt"
	"strings"

	"github.com/go-air/gini/inter"
	"github.com/go-air/gini/z"
)

// Matrix is a clause set under a quantifier prefix, along with the
// occurrence index of its literals.
type Matrix[P Prefix] struct {
	Prefix      P
	Clauses     []Clause
	Occurrences Occurrences
	// Conflict is set once the matrix contains an empty clause.
	Conflict bool
	// OrigClauseNum counts every clause handed to AddClause, including
	// dropped tautologies.
	OrigClauseNum int
}

func NewMatrix[P Prefix](prefix P) *Matrix[P] {
	return &Matrix[P]{
		Prefix:      prefix,
		Occurrences: make(Occurrences),
	}
}

// AddClause imports the variables of lits into the prefix and appends
// the clause. Free variables end up in the outermost scope. Repeated
// literals are dropped; a clause holding a literal and its negation is
// always satisfied, so it is counted but not stored, and NoClause is
// returned for it.
func (m *Matrix[P]) AddClause(lits ...z.Lit) (ClauseID, error) {
	for _, lit := range lits {
		if lit.Var() == VarNull {
			return NoClause, fmt.Errorf("clause %d: %w", m.OrigClauseNum, ErrNullVariable)
		}
	}
	for _, lit := range lits {
		if err := m.Prefix.Import(lit.Var()); err != nil {
			return NoClause, err
		}
	}
	m.OrigClauseNum++

	clause, tautology := normalize(lits)
	if tautology {
		return NoClause, nil
	}

	id := ClauseID(len(m.Clauses))
	m.Clauses = append(m.Clauses, clause)
	for _, lit := range clause {
		m.Occurrences.Add(lit, id)
	}
	if len(clause) == 0 {
		m.Conflict = true
	}
	return id, nil
}

// normalize copies lits without repeated literals and reports whether
// they contain a complementary pair.
func normalize(lits []z.Lit) (Clause, bool) {
	seen := make(map[z.Lit]struct{}, len(lits))
	clause := make(Clause, 0, len(lits))
	for _, lit := range lits {
		if _, ok := seen[lit.Not()]; ok {
			return nil, true
		}
		if _, ok := seen[lit]; ok {
			continue
		}
		seen[lit] = struct{}{}
		clause = append(clause, lit)
	}
	return clause, false
}

// ReduceUniversal applies universal reduction to a single clause and
// keeps the occurrence index in sync.
func (m *Matrix[P]) ReduceUniversal(id ClauseID) error {
	removed, err := m.Prefix.ReduceUniversal(&m.Clauses[id])
	if err != nil {
		return err
	}
	for _, lit := range removed {
		if err := m.Occurrences.Remove(lit, id); err != nil {
			return err
		}
	}
	if len(m.Clauses[id]) == 0 {
		m.Conflict = true
	}
	return nil
}

// ReduceUniversalAll applies universal reduction to every clause.
func (m *Matrix[P]) ReduceUniversalAll() error {
	for i := range m.Clauses {
		if err := m.ReduceUniversal(ClauseID(i)); err != nil {
			return err
		}
	}
	return nil
}

// AddTo teaches every clause to a SAT solver, ignoring quantification.
func (m *Matrix[P]) AddTo(g inter.Adder) {
	for _, clause := range m.Clauses {
		for _, lit := range clause {
			g.Add(lit)
		}
		g.Add(z.LitNull)
	}
}

// Dimacs renders the matrix in QDIMACS.
func (m *Matrix[P]) Dimacs() string {
	var b strings.Builder
	fmt.Fprintf(&b, "p cnf %d %d\n", m.Prefix.Variables().NumVariables(), len(m.Clauses))
	b.WriteString(m.Prefix.Dimacs())
	for _, clause := range m.Clauses {
		b.WriteString(clause.Dimacs())
		b.WriteString("\n")
	}
	return b.String()
}
