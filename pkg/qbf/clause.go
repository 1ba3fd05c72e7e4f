package qbf

import (
	"fmt"
	"strings"

	"github.com/go-air/gini/z"
)

// ClauseID is the position of a clause within a Matrix.
type ClauseID int

// NoClause is returned for clauses that were not stored.
const NoClause ClauseID = -1

// Clause is a disjunction of literals. Literals may be rewritten in
// place but keep their relative order.
type Clause []z.Lit

// ReduceUniversal drops every universal literal that is bound deeper
// than the innermost existential literal of the clause, returning the
// removed literals. Unbound literals neither support nor get removed.
// Tautologies are left untouched: reducing them is unsound.
func (c *Clause) ReduceUniversal(vars *VariableTable) []z.Lit {
	if c.Tautology() {
		return nil
	}
	innermost := Unbound
	for _, m := range *c {
		info := vars.Get(m.Var())
		if info.IsExistential() && info.Scope > innermost {
			innermost = info.Scope
		}
	}

	var removed []z.Lit
	kept := (*c)[:0]
	for _, m := range *c {
		info := vars.Get(m.Var())
		if info.IsBound() && info.IsUniversal && info.Scope > innermost {
			removed = append(removed, m)
			continue
		}
		kept = append(kept, m)
	}
	*c = kept
	return removed
}

// Tautology reports whether c holds some literal and its negation.
func (c Clause) Tautology() bool {
	seen := make(map[z.Lit]struct{}, len(c))
	for _, m := range c {
		if _, ok := seen[m.Not()]; ok {
			return true
		}
		seen[m] = struct{}{}
	}
	return false
}

// Dimacs renders the clause as a zero terminated line.
func (c Clause) Dimacs() string {
	var b strings.Builder
	for _, m := range c {
		fmt.Fprintf(&b, "%d ", m.Dimacs())
	}
	b.WriteString("0")
	return b.String()
}

// Occurrences maps a literal to the clauses it occurs in. A clause
// containing the same literal twice is listed twice.
type Occurrences map[z.Lit][]ClauseID

// Add records that clause id contains m.
func (o Occurrences) Add(m z.Lit, id ClauseID) {
	o[m] = append(o[m], id)
}

// Remove drops one entry of clause id from the occurrences of m. A
// missing entry means the index no longer matches the clauses.
func (o Occurrences) Remove(m z.Lit, id ClauseID) error {
	ids, ok := o[m]
	if !ok {
		return fmt.Errorf("%w: no occurrences of literal %d", ErrInconsistentOccurrences, m.Dimacs())
	}
	for i, other := range ids {
		if other == id {
			ids = append(ids[:i], ids[i+1:]...)
			if len(ids) == 0 {
				delete(o, m)
			} else {
				o[m] = ids
			}
			return nil
		}
	}
	return fmt.Errorf("%w: literal %d does not occur in clause %d", ErrInconsistentOccurrences, m.Dimacs(), id)
}

// Lookup returns the clauses containing m, or nil.
func (o Occurrences) Lookup(m z.Lit) []ClauseID {
	return o[m]
}
