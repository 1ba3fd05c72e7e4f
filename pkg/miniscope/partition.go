package miniscope

import (
	"github.com/go-air/gini/z"
)

// partitions is a union-find over the variables that existed when the
// transform started. The representative of a set is its smallest
// variable.
type partitions []z.Var

func newPartitions(numVariables int) partitions {
	p := make(partitions, numVariables+1)
	for i := range p {
		p[i] = z.Var(i)
	}
	return p
}

// covers reports whether v has a slot. Copies made while splitting
// universal scopes do not.
func (p partitions) covers(v z.Var) bool {
	return int(v) < len(p)
}

func (p partitions) find(v z.Var) z.Var {
	root := v
	for p[root] != root {
		root = p[root]
	}
	for p[v] != root {
		next := p[v]
		p[v] = root
		v = next
	}
	return root
}

func (p partitions) union(a, b z.Var) z.Var {
	ra, rb := p.find(a), p.find(b)
	if ra == rb {
		return ra
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	p[rb] = ra
	return ra
}

// compact points every slot directly at its representative.
func (p partitions) compact() {
	for i := 1; i < len(p); i++ {
		p.find(z.Var(i))
	}
}
