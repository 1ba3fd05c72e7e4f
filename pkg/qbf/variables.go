package qbf

import (
	"github.com/go-air/gini/z"
)

// ScopeID identifies a quantifier block. Even ids are existential,
// odd ids are universal.
type ScopeID int

// Unbound is the scope of a variable that has not been quantified yet.
const Unbound ScopeID = -1

// VarNull is the zero variable. It terminates clauses in gini and is
// never quantified.
const VarNull z.Var = 0

// VariableInfo holds the per-variable metadata of a prefix.
type VariableInfo struct {
	Scope       ScopeID
	IsUniversal bool
	// CopyOf is the variable this one was cloned from while splitting a
	// universal scope, or the variable itself.
	CopyOf z.Var
}

func (i VariableInfo) IsBound() bool {
	return i.Scope >= 0
}

// IsExistential reports whether a bound variable is existentially
// quantified. Unbound variables are neither.
func (i VariableInfo) IsExistential() bool {
	return i.IsBound() && !i.IsUniversal
}

// VariableTable is an append-only store of VariableInfo indexed by
// variable. Index 0 is never used since VarNull is not a variable.
type VariableTable struct {
	infos []VariableInfo
}

// NewVariableTable returns a table with room for numVariables
// variables. Variables are registered with Import.
func NewVariableTable(numVariables int) *VariableTable {
	return &VariableTable{
		infos: make([]VariableInfo, 1, numVariables+1),
	}
}

// Import registers v, and every variable below it, if unseen.
func (t *VariableTable) Import(v z.Var) {
	for z.Var(len(t.infos)) <= v {
		w := z.Var(len(t.infos))
		t.infos = append(t.infos, VariableInfo{Scope: Unbound, CopyOf: w})
	}
}

// Get returns the metadata of v. A variable that was never imported
// reads as unbound.
func (t *VariableTable) Get(v z.Var) VariableInfo {
	if v == VarNull || int(v) >= len(t.infos) {
		return VariableInfo{Scope: Unbound, CopyOf: v}
	}
	return t.infos[v]
}

// GetMut returns a pointer to the metadata of v, importing v first.
func (t *VariableTable) GetMut(v z.Var) *VariableInfo {
	t.Import(v)
	return &t.infos[v]
}

// Copy allocates a fresh universal variable bound to scope that
// records orig as its origin.
func (t *VariableTable) Copy(orig z.Var, scope ScopeID) z.Var {
	t.infos = append(t.infos, VariableInfo{
		Scope:       scope,
		IsUniversal: true,
		CopyOf:      orig,
	})
	return z.Var(len(t.infos) - 1)
}

// NumVariables returns the highest variable registered so far.
func (t *VariableTable) NumVariables() int {
	return len(t.infos) - 1
}

// bind sets the scope of v and derives its quantifier from the scope
// parity. It does not check whether v was bound before.
func (t *VariableTable) bind(v z.Var, scope ScopeID) {
	info := t.GetMut(v)
	info.Scope = scope
	info.IsUniversal = scope%2 == 1
}

// Rebind moves an already bound variable to another scope of the
// same quantifier type.
func (t *VariableTable) Rebind(v z.Var, scope ScopeID) error {
	info := t.GetMut(v)
	if !info.IsBound() {
		return &BindingError{Variable: v, Scope: scope, Err: ErrNotBound}
	}
	if info.IsUniversal != (scope%2 == 1) {
		return &BindingError{Variable: v, Scope: scope, Err: ErrInconsistentScope}
	}
	info.Scope = scope
	return nil
}
