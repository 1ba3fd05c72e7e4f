// Package miniscope turns a prenex QBF prefix into a tree of
// quantifier blocks so that independent parts of the matrix get
// independent quantifiers.
//
// Scopes are consumed from the innermost to the outermost. At an
// existential scope, existential variables that share a clause at or
// below that scope are merged into one partition and every partition
// becomes a node. At a universal scope with several nodes below it,
// the universal variables are copied once per node and the clauses of
// each node are renamed to use its private copies.
package miniscope

import (
	"errors"
	"fmt"

	"github.com/go-air/gini/z"
	"github.com/go-logr/logr"

	"github.com/go-qbf/miniscope/pkg/qbf"
)

var (
	// ErrNoBranches is returned when a universal scope is split
	// without any scope nested below it.
	ErrNoBranches = errors.New("universal scope has no nested scopes")
	// ErrOrphanedBranch is returned when a nested scope belongs to no
	// partition of the enclosing existential scope.
	ErrOrphanedBranch = errors.New("nested scope belongs to no partition")
	// ErrNoPrefix is returned for a matrix without a prefix, or with
	// one that was never built by NewHierarchicalPrefix.
	ErrNoPrefix = errors.New("matrix has no quantifier prefix")
)

// branch is a node of the forest under construction along with the
// partition representative that produced it.
type branch struct {
	node  qbf.NodeID
	group z.Var
}

type transform struct {
	variables   *qbf.VariableTable
	clauses     []qbf.Clause
	occurrences qbf.Occurrences
	partitions  partitions
	tree        *qbf.TreePrefix
	collapse    bool
	log         logr.Logger
}

// Unprenex miniscopes m. It takes ownership of the prefix, clauses and
// occurrence index of m and clears them; the returned matrix shares
// nothing with m. Any error indicates a violated invariant of the
// input and leaves both matrices unusable.
func Unprenex(m *qbf.Matrix[*qbf.HierarchicalPrefix], options ...Option) (*qbf.Matrix[*qbf.TreePrefix], error) {
	c := config{}
	for _, option := range append(options, defaults...) {
		if err := option(&c); err != nil {
			return nil, err
		}
	}

	if m == nil || m.Prefix == nil || m.Prefix.Variables() == nil || len(m.Prefix.Scopes) == 0 {
		return nil, ErrNoPrefix
	}

	if err := m.ReduceUniversalAll(); err != nil {
		return nil, fmt.Errorf("universal reduction: %w", err)
	}

	prefix := m.Prefix
	t := &transform{
		variables:   prefix.Variables(),
		clauses:     m.Clauses,
		occurrences: m.Occurrences,
		partitions:  newPartitions(prefix.Variables().NumVariables()),
		tree:        qbf.NewTreePrefixOver(prefix.Variables()),
		collapse:    c.collapseEmptyScopes,
		log:         c.log,
	}
	m.Prefix, m.Clauses, m.Occurrences = nil, nil, nil

	roots, err := t.run(prefix.Scopes)
	if err != nil {
		return nil, err
	}
	t.tree.SetRoots(roots)

	return &qbf.Matrix[*qbf.TreePrefix]{
		Prefix:        t.tree,
		Clauses:       t.clauses,
		Occurrences:   t.occurrences,
		Conflict:      m.Conflict,
		OrigClauseNum: m.OrigClauseNum,
	}, nil
}

func (t *transform) run(scopes []*qbf.Scope) ([]qbf.NodeID, error) {
	var (
		prev []branch
		err  error
	)
	quantifier := scopes[len(scopes)-1].Quantifier()
	for i := len(scopes) - 1; i >= 0; i-- {
		scope := scopes[i]
		switch quantifier {
		case qbf.Existential:
			t.unionConnectingSets(scope)
			prev, err = t.partitionScopes(scope, prev)
		case qbf.Universal:
			if len(prev) == 0 {
				// Nothing existential is nested below, so universal
				// reduction removed every occurrence of these variables.
				t.log.Info("dropping vacuous universal scope", "scope", scope.ID, "variables", len(scope.Variables))
				break
			}
			prev, err = t.splitUniversal(scope, prev)
		}
		if err != nil {
			return nil, fmt.Errorf("scope %d: %w", scope.ID, err)
		}
		quantifier = quantifier.Swap()
	}

	roots := make([]qbf.NodeID, len(prev))
	for i, b := range prev {
		roots[i] = b.node
	}
	return roots, nil
}

// relevant reports whether v is an existential variable bound at or
// below scope.
func (t *transform) relevant(v z.Var, scope qbf.ScopeID) bool {
	info := t.variables.Get(v)
	return info.IsExistential() && info.Scope >= scope && t.partitions.covers(v)
}

// unionConnectingSets merges the partitions of all relevant variables
// that share a clause.
func (t *transform) unionConnectingSets(scope *qbf.Scope) {
	for _, clause := range t.clauses {
		connection := qbf.VarNull
		for _, m := range clause {
			v := m.Var()
			if !t.relevant(v, scope.ID) {
				continue
			}
			if connection == qbf.VarNull {
				connection = v
				continue
			}
			connection = t.partitions.union(connection, v)
		}
	}
	t.partitions.compact()
}

// partitionScopes creates one node per partition of the relevant
// variables, holding the variables of scope that fall into it, and
// moves each node of next under the partition it belongs to.
func (t *transform) partitionScopes(scope *qbf.Scope, next []branch) ([]branch, error) {
	members := make(map[z.Var]struct{}, len(scope.Variables))
	for _, v := range scope.Variables {
		members[v] = struct{}{}
	}

	var result []branch
	groups := make(map[z.Var]qbf.NodeID)
	remaining := next

	for i := 1; i < len(t.partitions); i++ {
		v := z.Var(i)
		if !t.relevant(v, scope.ID) {
			continue
		}
		_, member := members[v]

		partition := t.partitions.find(v)
		t.log.V(1).Info("variable in partition", "variable", v, "partition", partition)

		if partition != v {
			// representatives are the smallest member, so their node
			// already exists
			id, ok := groups[partition]
			if !ok {
				return nil, fmt.Errorf("%w: representative %d of variable %d", ErrOrphanedBranch, partition, v)
			}
			if member {
				node := t.tree.Node(id)
				node.Scope.Variables = append(node.Scope.Variables, v)
			}
			continue
		}

		s := qbf.NewScope(scope.ID)
		if member {
			s.Variables = append(s.Variables, v)
		}
		id := t.tree.NewNode(s)

		var err error
		remaining, err = t.adopt(id, partition, remaining)
		if err != nil {
			return nil, err
		}
		groups[partition] = id
		result = append(result, branch{node: id, group: partition})
	}

	if len(remaining) != 0 {
		return nil, fmt.Errorf("%w: %d nested scopes left at scope %d", ErrOrphanedBranch, len(remaining), scope.ID)
	}

	t.log.Info("detected partitions", "count", len(result), "scope", scope.ID)
	return result, nil
}

// adopt moves every branch of next that belongs to partition under
// node and returns the branches left over.
func (t *transform) adopt(node qbf.NodeID, partition z.Var, next []branch) ([]branch, error) {
	remaining := next[:0:0]
	for _, b := range next {
		if t.partitions.find(b.group) != partition {
			remaining = append(remaining, b)
			continue
		}
		child := t.tree.Node(b.node)
		if !t.collapse || len(child.Scope.Variables) != 0 {
			parent := t.tree.Node(node)
			parent.Next = append(parent.Next, b.node)
			continue
		}
		if err := t.hoist(node, b.node); err != nil {
			return nil, err
		}
	}
	return remaining, nil
}

// hoist removes the empty universal scope empty, which must have a
// single existential child, and merges that child into node.
func (t *transform) hoist(node, empty qbf.NodeID) error {
	next := t.tree.Node(empty).Next
	if len(next) != 1 {
		return fmt.Errorf("empty universal scope with %d nested scopes", len(next))
	}
	existential := t.tree.Node(next[0])
	parent := t.tree.Node(node)
	id := parent.Scope.ID

	for _, v := range existential.Scope.Variables {
		parent.Scope.Variables = append(parent.Scope.Variables, v)
		if err := t.variables.Rebind(v, id); err != nil {
			return err
		}
	}
	for _, child := range existential.Next {
		parent.Next = append(parent.Next, child)
		if err := t.restamp(child, id+1); err != nil {
			return err
		}
	}
	return t.verifyDepth(node, id)
}

// restamp rebinds the variables of the subtree rooted at node so that
// each scope id equals its depth below a scope with id-1.
func (t *transform) restamp(node qbf.NodeID, id qbf.ScopeID) error {
	n := t.tree.Node(node)
	n.Scope.ID = id
	for _, v := range n.Scope.Variables {
		if err := t.variables.Rebind(v, id); err != nil {
			return err
		}
	}
	for _, child := range n.Next {
		if err := t.restamp(child, id+1); err != nil {
			return err
		}
	}
	return nil
}

// verifyDepth checks that every variable of the subtree rooted at node
// is recorded in the scope matching its depth.
func (t *transform) verifyDepth(node qbf.NodeID, id qbf.ScopeID) error {
	n := t.tree.Node(node)
	if n.Scope.ID != id {
		return fmt.Errorf("%w: node of scope %d at depth %d", qbf.ErrInconsistentScope, n.Scope.ID, id)
	}
	for _, v := range n.Scope.Variables {
		info := t.variables.Get(v)
		if info.Scope != id || info.IsUniversal != (id%2 == 1) {
			return fmt.Errorf("%w: variable %d recorded in scope %d, placed in scope %d", qbf.ErrInconsistentScope, v, info.Scope, id)
		}
	}
	for _, child := range n.Next {
		if err := t.verifyDepth(child, id+1); err != nil {
			return err
		}
	}
	return nil
}
