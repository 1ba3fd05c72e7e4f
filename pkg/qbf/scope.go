package qbf

import (
	"fmt"
	"strings"

	"github.com/go-air/gini/z"
)

type Quantifier int

const (
	Existential Quantifier = iota
	Universal
)

// QuantifierOf maps even numbers to Existential and odd numbers to
// Universal.
func QuantifierOf(parity int) Quantifier {
	if parity%2 == 0 {
		return Existential
	}
	return Universal
}

// QuantifierOfScope returns the quantifier of the scope with the given
// id.
func QuantifierOfScope(id ScopeID) (Quantifier, error) {
	if id < 0 {
		return Existential, fmt.Errorf("%w: %d", ErrNegativeScope, id)
	}
	return QuantifierOf(int(id)), nil
}

// Swap returns the opposite quantifier.
func (q Quantifier) Swap() Quantifier {
	if q == Existential {
		return Universal
	}
	return Existential
}

func (q Quantifier) String() string {
	if q == Existential {
		return "e"
	}
	return "a"
}

// Scope is a quantifier block.
type Scope struct {
	ID        ScopeID
	Variables []z.Var
}

func NewScope(id ScopeID) *Scope {
	return &Scope{ID: id}
}

func (s *Scope) Quantifier() Quantifier {
	return QuantifierOf(int(s.ID))
}

func (s *Scope) Contains(v z.Var) bool {
	for _, w := range s.Variables {
		if w == v {
			return true
		}
	}
	return false
}

// Dimacs renders the scope as a QDIMACS quantifier line.
func (s *Scope) Dimacs() string {
	var b strings.Builder
	b.WriteString(s.Quantifier().String())
	b.WriteString(" ")
	for _, v := range s.Variables {
		fmt.Fprintf(&b, "%d ", v)
	}
	b.WriteString("0")
	return b.String()
}
