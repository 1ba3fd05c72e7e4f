package miniscope

import (
	"errors"
	"sort"
	"testing"

	"github.com/go-air/gini/z"
	"github.com/go-logr/logr/testr"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-qbf/miniscope/pkg/qbf"
)

// build returns a matrix whose i-th scope binds scopes[i].
func build(t *testing.T, scopes [][]int, clauses ...[]int) *qbf.Matrix[*qbf.HierarchicalPrefix] {
	t.Helper()
	numVariables := 0
	for _, vars := range scopes {
		for _, v := range vars {
			if v > numVariables {
				numVariables = v
			}
		}
	}

	p := qbf.NewHierarchicalPrefix(numVariables)
	for i, vars := range scopes {
		id := p.NewScope(qbf.QuantifierOf(i))
		require.Equal(t, qbf.ScopeID(i), id)
		for _, v := range vars {
			require.NoError(t, p.AddVariable(z.Var(v), id))
		}
	}

	m := qbf.NewMatrix(p)
	for _, c := range clauses {
		_, err := m.AddClause(lits(c...)...)
		require.NoError(t, err)
	}
	return m
}

func lits(ds ...int) qbf.Clause {
	c := qbf.Clause{}
	for _, d := range ds {
		c = append(c, z.Dimacs2Lit(d))
	}
	return c
}

// requireConsistent checks that every literal is bound in the
// linearized prefix and that the occurrence index lists exactly the
// clauses containing each literal.
func requireConsistent(t *testing.T, m *qbf.Matrix[*qbf.TreePrefix]) *qbf.HierarchicalPrefix {
	t.Helper()
	p, err := m.Prefix.ToHierarchical()
	require.NoError(t, err)

	expected := make(map[z.Lit][]qbf.ClauseID)
	for i, c := range m.Clauses {
		for _, lit := range c {
			require.True(t, p.Variables().Get(lit.Var()).IsBound(), "variable %d of clause %d is unbound", lit.Var(), i)
			expected[lit] = append(expected[lit], qbf.ClauseID(i))
		}
	}

	actual := make(map[z.Lit][]qbf.ClauseID)
	for lit, ids := range m.Occurrences {
		if len(ids) == 0 {
			continue
		}
		sorted := append([]qbf.ClauseID(nil), ids...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		actual[lit] = sorted
	}
	require.Equal(t, expected, actual)
	return p
}

func TestUnprenexIndependentBranches(t *testing.T) {
	m := build(t, [][]int{{1, 2}, {3}, {4, 5}}, []int{1, 3, 4}, []int{2, 3, 5})

	result, err := Unprenex(m)
	require.NoError(t, err)
	assert.Nil(t, m.Prefix)
	assert.Nil(t, m.Clauses)
	assert.Nil(t, m.Occurrences)

	tree := result.Prefix
	require.Len(t, tree.Roots(), 2)
	var copies []z.Var
	for i, root := range tree.Roots() {
		node := tree.Node(root)
		assert.Equal(t, qbf.ScopeID(0), node.Scope.ID)
		assert.Equal(t, []z.Var{z.Var(1 + i)}, node.Scope.Variables)
		require.Len(t, node.Next, 1)

		universal := tree.Node(node.Next[0])
		assert.Equal(t, qbf.ScopeID(1), universal.Scope.ID)
		require.Len(t, universal.Scope.Variables, 1)
		w := universal.Scope.Variables[0]
		assert.Equal(t, z.Var(3), tree.Variables().Get(w).CopyOf)
		assert.True(t, tree.Variables().Get(w).IsUniversal)
		copies = append(copies, w)
		require.Len(t, universal.Next, 1)

		existential := tree.Node(universal.Next[0])
		assert.Equal(t, []z.Var{z.Var(4 + i)}, existential.Scope.Variables)
		assert.Empty(t, existential.Next)
	}
	assert.NotEqual(t, copies[0], copies[1])
	assert.Equal(t, 7, tree.Variables().NumVariables())

	assert.Equal(t, []qbf.Clause{lits(1, 6, 4), lits(2, 7, 5)}, result.Clauses)
	assert.Empty(t, result.Occurrences.Lookup(z.Dimacs2Lit(3)))
	assert.Equal(t, "e 1 2 0\na 6 7 0\ne 4 5 0\n", tree.Dimacs())

	p := requireConsistent(t, result)
	assert.Equal(t, 7, p.Variables().NumVariables())
}

func TestUnprenexSingleBranch(t *testing.T) {
	m := build(t, [][]int{{1}, {2}, {3}}, []int{1, -2, 3})

	result, err := Unprenex(m)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Prefix.Variables().NumVariables())
	assert.Equal(t, []qbf.Clause{lits(1, -2, 3)}, result.Clauses)
	assert.Equal(t, "e 1 0\na 2 0\ne 3 0\n", result.Prefix.Dimacs())
	requireConsistent(t, result)
}

func TestUnprenexCollapse(t *testing.T) {
	type tc struct {
		Name     string
		Scopes   [][]int
		Clauses  [][]int
		Collapse bool
		Expected string
		Scope    map[z.Var]qbf.ScopeID
	}

	for _, tt := range []tc{
		{
			Name:     "empty universal kept",
			Scopes:   [][]int{{1, 2}, {3}, {4, 5}},
			Clauses:  [][]int{{1, 3, 4}, {2, 5}},
			Expected: "e 1 2 0\na 6 0\ne 4 5 0\n",
			Scope:    map[z.Var]qbf.ScopeID{5: 2},
		},
		{
			Name:     "empty universal collapsed",
			Scopes:   [][]int{{1, 2}, {3}, {4, 5}},
			Clauses:  [][]int{{1, 3, 4}, {2, 5}},
			Collapse: true,
			Expected: "e 1 2 5 0\na 6 0\ne 4 0\n",
			Scope:    map[z.Var]qbf.ScopeID{5: 0},
		},
		{
			Name:     "nested scopes kept",
			Scopes:   [][]int{{1, 2}, {3}, {4, 5}, {6}, {7}},
			Clauses:  [][]int{{1, 3, 4}, {2, 5, 6, 7}},
			Expected: "e 1 2 0\na 8 0\ne 4 5 0\na 6 0\ne 7 0\n",
			Scope:    map[z.Var]qbf.ScopeID{5: 2, 6: 3, 7: 4},
		},
		{
			Name:     "nested scopes restamped",
			Scopes:   [][]int{{1, 2}, {3}, {4, 5}, {6}, {7}},
			Clauses:  [][]int{{1, 3, 4}, {2, 5, 6, 7}},
			Collapse: true,
			Expected: "e 1 2 5 0\na 8 6 0\ne 4 7 0\n",
			Scope:    map[z.Var]qbf.ScopeID{5: 0, 6: 1, 7: 2},
		},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			result, err := Unprenex(build(t, tt.Scopes, tt.Clauses...), WithCollapseEmptyScopes(tt.Collapse))
			require.NoError(t, err)
			assert.Equal(t, tt.Expected, result.Prefix.Dimacs())
			for v, scope := range tt.Scope {
				assert.Equal(t, scope, result.Prefix.Variables().Get(v).Scope, "variable %d", v)
			}

			p := requireConsistent(t, result)
			for v, scope := range tt.Scope {
				assert.Equal(t, scope, p.Variables().Get(v).Scope, "linearized variable %d", v)
			}

			if tt.Collapse {
				result.Prefix.Walk(func(id qbf.NodeID, depth int) {
					node := result.Prefix.Node(id)
					assert.Equal(t, qbf.ScopeID(depth), node.Scope.ID)
					if node.Scope.Quantifier() == qbf.Universal {
						assert.NotEmpty(t, node.Scope.Variables)
					}
				})
			}
		})
	}
}

func TestUnprenexVacuousUniversal(t *testing.T) {
	m := build(t, [][]int{{1}, {2}}, []int{1, 2}, []int{-1, -2})

	result, err := Unprenex(m)
	require.NoError(t, err)

	assert.Equal(t, []qbf.Clause{lits(1), lits(-1)}, result.Clauses)
	assert.Equal(t, "e 1 0\n", result.Prefix.Dimacs())
	assert.False(t, result.Conflict)
	requireConsistent(t, result)
}

func TestUnprenexConflict(t *testing.T) {
	m := build(t, [][]int{{1}, {2}, {3}}, []int{2}, []int{1, 2, 3})

	result, err := Unprenex(m)
	require.NoError(t, err)
	assert.True(t, result.Conflict)
	assert.Equal(t, 2, result.OrigClauseNum)
	requireConsistent(t, result)
}

func TestUnprenexInconsistentOccurrences(t *testing.T) {
	m := build(t, [][]int{{1, 2}, {3}, {4, 5}}, []int{1, 3, 4}, []int{2, 3, 5})
	delete(m.Occurrences, z.Dimacs2Lit(3))

	_, err := Unprenex(m)
	assert.True(t, errors.Is(err, qbf.ErrInconsistentOccurrences), "got %v", err)
}

func TestUnprenexTautology(t *testing.T) {
	m := build(t, [][]int{{1}, {2}}, []int{1}, []int{2, -2})
	require.Equal(t, 2, m.OrigClauseNum)

	result, err := Unprenex(m)
	require.NoError(t, err)
	assert.False(t, result.Conflict)
	assert.Equal(t, []qbf.Clause{lits(1)}, result.Clauses)
	assert.Equal(t, "p cnf 2 1\ne 1 0\n1 0\n", result.Dimacs())

	p := requireConsistent(t, result)
	assert.True(t, evaluate(p, result.Clauses))
}

func TestUnprenexEmptyUniversalLevel(t *testing.T) {
	scopes := [][]int{{1, 2}, {3}, {4, 5}}
	clauses := [][]int{{1, 4}, {2, 5}}

	result, err := Unprenex(build(t, scopes, clauses...))
	require.NoError(t, err)
	assert.Equal(t, "e 1 2 0\na 0\ne 4 5 0\n", result.Prefix.Dimacs())
	requireConsistent(t, result)

	result, err = Unprenex(build(t, scopes, clauses...), WithCollapseEmptyScopes(true))
	require.NoError(t, err)
	p := requireConsistent(t, result)
	require.Len(t, p.Scopes, 1)
	assert.ElementsMatch(t, []z.Var{1, 2, 4, 5}, p.Scopes[0].Variables)
}

func TestUnprenexWithoutPrefix(t *testing.T) {
	for name, m := range map[string]*qbf.Matrix[*qbf.HierarchicalPrefix]{
		"nil matrix":  nil,
		"nil prefix":  {},
		"zero prefix": {Prefix: &qbf.HierarchicalPrefix{}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Unprenex(m)
			assert.True(t, errors.Is(err, ErrNoPrefix), "got %v", err)
		})
	}
}

func TestSplitUniversalWithoutBranches(t *testing.T) {
	m := build(t, [][]int{{1}, {2}})
	tr := &transform{
		variables:  m.Prefix.Variables(),
		partitions: newPartitions(2),
		tree:       qbf.NewTreePrefixOver(m.Prefix.Variables()),
	}
	_, err := tr.splitUniversal(m.Prefix.Scopes[1], nil)
	assert.True(t, errors.Is(err, ErrNoBranches))
}

func TestSplitUniversalSingleBranchAllocatesNothing(t *testing.T) {
	m := build(t, [][]int{{}, {1, 2}, {3, 4}}, []int{1, 3}, []int{2, 4}, []int{3, 4})
	tr := &transform{
		variables:   m.Prefix.Variables(),
		clauses:     m.Clauses,
		occurrences: m.Occurrences,
		partitions:  newPartitions(4),
		tree:        qbf.NewTreePrefixOver(m.Prefix.Variables()),
		log:         testr.New(t),
	}
	tr.unionConnectingSets(m.Prefix.Scopes[2])
	next, err := tr.partitionScopes(m.Prefix.Scopes[2], nil)
	require.NoError(t, err)
	require.Len(t, next, 1)

	split, err := tr.splitUniversal(m.Prefix.Scopes[1], next)
	require.NoError(t, err)
	require.Len(t, split, 1)
	assert.Equal(t, 4, tr.variables.NumVariables())
	assert.Equal(t, []z.Var{1, 2}, tr.tree.Node(split[0].node).Scope.Variables)
	assert.Equal(t, []qbf.Clause{lits(1, 3), lits(2, 4), lits(3, 4)}, tr.clauses)
}

func TestPartitionSoundness(t *testing.T) {
	m := build(t, [][]int{{1, 2}, {3}, {4, 5, 6, 7}},
		[]int{1, 3, 4}, []int{-4, 6}, []int{2, -3, 5}, []int{7})
	tr := &transform{
		variables:  m.Prefix.Variables(),
		clauses:    m.Clauses,
		partitions: newPartitions(7),
		tree:       qbf.NewTreePrefixOver(m.Prefix.Variables()),
		log:        testr.New(t),
	}
	tr.unionConnectingSets(m.Prefix.Scopes[2])

	for _, c := range m.Clauses {
		var reps []z.Var
		for _, lit := range c {
			if tr.relevant(lit.Var(), 2) {
				reps = append(reps, tr.partitions[lit.Var()])
			}
		}
		for _, r := range reps {
			assert.Equal(t, reps[0], r)
		}
	}
	assert.Equal(t, z.Var(4), tr.partitions[6])
	assert.NotEqual(t, tr.partitions[4], tr.partitions[5])
	assert.Equal(t, z.Var(7), tr.partitions[7])

	next, err := tr.partitionScopes(m.Prefix.Scopes[2], nil)
	require.NoError(t, err)
	require.Len(t, next, 3)
	assert.Equal(t, []z.Var{4, 6}, tr.tree.Node(next[0].node).Scope.Variables)
	assert.Equal(t, []z.Var{5}, tr.tree.Node(next[1].node).Scope.Variables)
	assert.Equal(t, []z.Var{7}, tr.tree.Node(next[2].node).Scope.Variables)
}

func TestUnprenexGolden(t *testing.T) {
	type tc struct {
		Name     string
		Scopes   [][]int
		Clauses  [][]int
		Collapse bool
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, tt := range []tc{
		{
			Name:    "independent_branches",
			Scopes:  [][]int{{1, 2}, {3}, {4, 5}},
			Clauses: [][]int{{1, 3, 4}, {2, 3, 5}},
		},
		{
			Name:     "collapse_nested",
			Scopes:   [][]int{{1, 2}, {3}, {4, 5}, {6}, {7}},
			Clauses:  [][]int{{1, 3, 4}, {2, 5, 6, 7}},
			Collapse: true,
		},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			result, err := Unprenex(build(t, tt.Scopes, tt.Clauses...), WithCollapseEmptyScopes(tt.Collapse))
			require.NoError(t, err)
			g.Assert(t, tt.Name, []byte(result.Dimacs()))
		})
	}
}
