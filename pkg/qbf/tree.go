package qbf

import (
	"fmt"

	"github.com/go-air/gini/z"
)

// NodeID addresses a ScopeNode within its TreePrefix.
type NodeID int

// ScopeNode is a quantifier block together with the blocks nested
// directly inside it.
type ScopeNode struct {
	Scope *Scope
	Next  []NodeID
}

var _ Prefix = &TreePrefix{}

// TreePrefix is a forest of scopes. The depth of a node equals the id
// of its scope, so roots are existential blocks with id 0.
//
// Nodes live in an arena owned by the prefix; nodes dropped while the
// tree is built stay allocated but are unreachable from the roots.
type TreePrefix struct {
	variables *VariableTable
	nodes     []ScopeNode
	roots     []NodeID
}

// NewTreePrefix returns an empty forest over a new variable table.
func NewTreePrefix(numVariables int) *TreePrefix {
	return NewTreePrefixOver(NewVariableTable(numVariables))
}

// NewTreePrefixOver returns an empty forest that takes ownership of
// variables.
func NewTreePrefixOver(variables *VariableTable) *TreePrefix {
	return &TreePrefix{variables: variables}
}

func (p *TreePrefix) Variables() *VariableTable {
	return p.variables
}

// Import is not defined on a tree. Linearize with ToHierarchical first.
func (p *TreePrefix) Import(v z.Var) error {
	return fmt.Errorf("import of variable %d: %w", v, ErrNotSupported)
}

// ReduceUniversal is not defined on a tree. Linearize with
// ToHierarchical first.
func (p *TreePrefix) ReduceUniversal(_ *Clause) ([]z.Lit, error) {
	return nil, fmt.Errorf("universal reduction: %w", ErrNotSupported)
}

// NewNode adds a node holding scope with the given children.
func (p *TreePrefix) NewNode(scope *Scope, next ...NodeID) NodeID {
	p.nodes = append(p.nodes, ScopeNode{Scope: scope, Next: next})
	return NodeID(len(p.nodes) - 1)
}

// Node returns the node addressed by id. The pointer is valid until
// the next call to NewNode.
func (p *TreePrefix) Node(id NodeID) *ScopeNode {
	return &p.nodes[id]
}

func (p *TreePrefix) Roots() []NodeID {
	return p.roots
}

func (p *TreePrefix) SetRoots(roots []NodeID) {
	p.roots = roots
}

// Walk visits every node reachable from the roots in pre-order along
// with its depth.
func (p *TreePrefix) Walk(fn func(id NodeID, depth int)) {
	for _, root := range p.roots {
		p.walk(root, 0, fn)
	}
}

func (p *TreePrefix) walk(id NodeID, depth int, fn func(NodeID, int)) {
	fn(id, depth)
	for _, next := range p.nodes[id].Next {
		p.walk(next, depth+1, fn)
	}
}

// ToHierarchical linearizes the forest. A node at depth d lands in
// scope d; scopes are created the first time a depth is reached.
func (p *TreePrefix) ToHierarchical() (*HierarchicalPrefix, error) {
	prefix := NewHierarchicalPrefix(p.variables.NumVariables())
	prefix.variables.Import(z.Var(p.variables.NumVariables()))
	var err error
	p.Walk(func(id NodeID, depth int) {
		if err != nil {
			return
		}
		for ScopeID(depth) > prefix.LastScope() {
			prefix.NewScope(QuantifierOf(int(prefix.LastScope()) + 1))
		}
		for _, v := range p.nodes[id].Scope.Variables {
			if err = prefix.AddVariable(v, ScopeID(depth)); err != nil {
				return
			}
			prefix.variables.GetMut(v).CopyOf = p.variables.Get(v).CopyOf
		}
	})
	if err != nil {
		return nil, err
	}
	return prefix, nil
}

// Dimacs renders the linearized prefix.
func (p *TreePrefix) Dimacs() string {
	prefix, err := p.ToHierarchical()
	if err != nil {
		return fmt.Sprintf("c %s\n", err)
	}
	return prefix.Dimacs()
}
