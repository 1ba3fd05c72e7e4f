package miniscope

import (
	"fmt"

	"github.com/go-air/gini/z"

	"github.com/go-qbf/miniscope/pkg/qbf"
)

// splitUniversal places a copy of scope above every branch of next.
// With a single branch the scope is kept as is. Otherwise every branch
// gets fresh copies of the universal variables its clauses mention,
// and those clauses are renamed to use them.
func (t *transform) splitUniversal(scope *qbf.Scope, next []branch) ([]branch, error) {
	if len(next) == 0 {
		return nil, ErrNoBranches
	}

	if len(next) == 1 {
		s := qbf.NewScope(scope.ID)
		s.Variables = append(s.Variables, scope.Variables...)
		node := t.tree.NewNode(s, next[0].node)
		return []branch{{node: node, group: next[0].group}}, nil
	}

	members := make(map[z.Var]struct{}, len(scope.Variables))
	for _, v := range scope.Variables {
		members[v] = struct{}{}
	}

	result := make([]branch, 0, len(next))
	for _, b := range next {
		s := qbf.NewScope(scope.ID)
		renaming := make(map[z.Var]z.Var)

		for i, clause := range t.clauses {
			if !t.belongsTo(clause, scope.ID, b.group) {
				continue
			}
			id := qbf.ClauseID(i)
			for j, m := range clause {
				v := m.Var()
				if _, ok := members[v]; !ok {
					continue
				}
				w, ok := renaming[v]
				if !ok {
					w = t.variables.Copy(v, scope.ID)
					renaming[v] = w
					s.Variables = append(s.Variables, w)
					t.log.V(1).Info("renamed universal", "variable", v, "copy", w, "group", b.group)
				}

				renamed := w.Pos()
				if !m.IsPos() {
					renamed = w.Neg()
				}
				if err := t.occurrences.Remove(m, id); err != nil {
					return nil, fmt.Errorf("renaming %d to %d: %w", v, w, err)
				}
				clause[j] = renamed
				t.occurrences.Add(renamed, id)
			}
		}

		// s may be empty here; the enclosing existential scope
		// collapses it if asked to.
		node := t.tree.NewNode(s, b.node)
		result = append(result, branch{node: node, group: b.group})
	}
	return result, nil
}

// belongsTo reports whether clause mentions a relevant existential
// variable of the given group.
func (t *transform) belongsTo(clause qbf.Clause, scope qbf.ScopeID, group z.Var) bool {
	group = t.partitions.find(group)
	for _, m := range clause {
		v := m.Var()
		if t.relevant(v, scope) && t.partitions.find(v) == group {
			return true
		}
	}
	return false
}
