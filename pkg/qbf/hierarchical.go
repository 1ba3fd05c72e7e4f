package qbf

import (
	"strings"

	"github.com/go-air/gini/z"
)

// Prefix is the quantifier prefix of a Matrix.
type Prefix interface {
	Variables() *VariableTable
	// Import quantifies v if it is still free.
	Import(v z.Var) error
	// ReduceUniversal applies universal reduction to c according to the
	// binding order of the prefix and returns the removed literals.
	ReduceUniversal(c *Clause) ([]z.Lit, error)
	Dimacs() string
}

var _ Prefix = &HierarchicalPrefix{}

// HierarchicalPrefix is a prenex prefix: a linear sequence of
// alternating scopes where Scopes[i].ID == i.
type HierarchicalPrefix struct {
	variables *VariableTable
	Scopes    []*Scope
}

// NewHierarchicalPrefix returns a prefix with a single empty
// existential scope 0.
func NewHierarchicalPrefix(numVariables int) *HierarchicalPrefix {
	return &HierarchicalPrefix{
		variables: NewVariableTable(numVariables),
		Scopes:    []*Scope{NewScope(0)},
	}
}

func (p *HierarchicalPrefix) Variables() *VariableTable {
	return p.variables
}

// Import binds a free variable to the outermost existential scope.
func (p *HierarchicalPrefix) Import(v z.Var) error {
	if p.variables.Get(v).IsBound() {
		return nil
	}
	return p.AddVariable(v, 0)
}

func (p *HierarchicalPrefix) ReduceUniversal(c *Clause) ([]z.Lit, error) {
	return c.ReduceUniversal(p.variables), nil
}

// NewScope returns the id of a scope of the given quantifier. The last
// scope is reused if it matches, otherwise a new innermost scope is
// appended.
func (p *HierarchicalPrefix) NewScope(q Quantifier) ScopeID {
	last := p.LastScope()
	if QuantifierOf(int(last)) == q {
		return last
	}
	p.Scopes = append(p.Scopes, NewScope(last+1))
	return p.LastScope()
}

// LastScope returns the id of the innermost scope.
func (p *HierarchicalPrefix) LastScope() ScopeID {
	return ScopeID(len(p.Scopes) - 1)
}

// AddVariable binds v to an existing scope.
func (p *HierarchicalPrefix) AddVariable(v z.Var, id ScopeID) error {
	if v == VarNull {
		return &BindingError{Variable: v, Scope: id, Err: ErrNullVariable}
	}
	if id < 0 {
		return &BindingError{Variable: v, Scope: id, Err: ErrNegativeScope}
	}
	if p.variables.Get(v).IsBound() {
		return &BindingError{Variable: v, Scope: id, Err: ErrAlreadyBound}
	}
	if id > p.LastScope() {
		return &BindingError{Variable: v, Scope: id, Err: ErrUnknownScope}
	}
	p.variables.bind(v, id)
	scope := p.Scopes[id]
	scope.Variables = append(scope.Variables, v)
	return nil
}

// Dimacs renders one quantifier line per scope, outermost first. An
// empty scope 0 is left out; any other empty scope keeps its line so
// the quantifiers still alternate.
func (p *HierarchicalPrefix) Dimacs() string {
	var b strings.Builder
	for _, scope := range p.Scopes {
		if scope.ID == 0 && len(scope.Variables) == 0 {
			continue
		}
		b.WriteString(scope.Dimacs())
		b.WriteString("\n")
	}
	return b.String()
}
