// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package solver

import (
	"github.com/dalzilio/mtrudd/sparse"
)

// The functions in this file implement the qualitative analysis of
// reachability (graph based precomputation). They work on the graph of the
// matrix only and compute, for an until formula with goal states yes and
// excluded states no, the set of states where the probability is 0 or 1
// for all (A) or for some (E) schedulers.

// graph caches the predecessor lists of a matrix.
type graph struct {
	m    *sparse.Matrix
	pred *sparse.Predecessors
	yes  []bool
	no   []bool
}

func newgraph(m *sparse.Matrix, yes, no []bool) *graph {
	return &graph{m: m, pred: m.Transpose(), yes: yes, no: no}
}

// inner returns true for states that are neither goal nor excluded states.
func (g *graph) inner(s int) bool {
	return !g.yes[s] && (g.no == nil || !g.no[s])
}

// backward returns the set of states that can reach a state in from along
// a path of inner states. When choice is not nil, a predecessor (s, c) is
// only followed if choice(s, c) is true.
func (g *graph) backward(from []bool, choice func(s, c int) bool) []bool {
	n := g.m.NumStates()
	res := make([]bool, n)
	queue := make([]int, 0, n)
	for s := 0; s < n; s++ {
		if from[s] {
			res[s] = true
			queue = append(queue, s)
		}
	}
	for len(queue) > 0 {
		t := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		preds, choices := g.pred.Of(t)
		for k, s := range preds {
			if res[s] || !g.inner(s) {
				continue
			}
			if choice != nil && !choice(s, choices[k]) {
				continue
			}
			res[s] = true
			queue = append(queue, s)
		}
	}
	return res
}

func not(a []bool) []bool {
	res := make([]bool, len(a))
	for k, v := range a {
		res[k] = !v
	}
	return res
}

// prob0a returns the states that cannot reach yes, that is with probability
// 0 under every scheduler.
func (g *graph) prob0a() []bool {
	return not(g.backward(g.yes, nil))
}

// prob0e returns the states with probability 0 for some scheduler, together
// with a scheduler that avoids yes from these states.
func (g *graph) prob0e() ([]bool, []int) {
	m := g.m
	n := m.NumStates()
	// reach is the set of states that reach yes with positive probability
	// under every scheduler; a state is added when all its choices have a
	// successor in reach.
	reach := make([]bool, n)
	hit := make([]bool, m.NumChoices())
	hits := make([]int, n)
	queue := make([]int, 0, n)
	for s := 0; s < n; s++ {
		if g.yes[s] {
			reach[s] = true
			queue = append(queue, s)
		}
	}
	for len(queue) > 0 {
		t := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		preds, choices := g.pred.Of(t)
		for k, s := range preds {
			c := choices[k]
			if reach[s] || hit[c] {
				continue
			}
			hit[c] = true
			hits[s]++
			lo, hi := m.Choices(s)
			if g.inner(s) && hits[s] == hi-lo {
				reach[s] = true
				queue = append(queue, s)
			}
		}
	}
	sched := make([]int, n)
	for s := 0; s < n; s++ {
		sched[s] = -1
		lo, hi := m.Choices(s)
		for c := lo; c < hi; c++ {
			if !hit[c] {
				sched[s] = c
				break
			}
		}
		if sched[s] == -1 && hi > lo {
			sched[s] = lo
		}
	}
	return not(reach), sched
}

// prob1a returns the states that reach yes with probability 1 under every
// scheduler: the states that cannot reach, along inner states, a state where
// some scheduler avoids yes.
func (g *graph) prob1a(prob0e []bool) []bool {
	return not(g.backward(prob0e, nil))
}

// prob1e returns the states that reach yes with probability 1 for some
// scheduler, computed with the classical nested fixed point.
func (g *graph) prob1e(prob0a []bool) []bool {
	m := g.m
	u := not(prob0a)
	for {
		inside := func(s, c int) bool {
			succ, _ := m.Successors(c)
			for _, t := range succ {
				if !u[t] {
					return false
				}
			}
			return u[s]
		}
		r := g.backward(g.yes, inside)
		changed := false
		for s := range u {
			if u[s] && !r[s] {
				u[s] = false
				changed = true
			}
		}
		if !changed {
			return u
		}
	}
}

// Prob0A returns the states where the probability of reaching a state in yes,
// without going through a state in no, is 0 for every scheduler. The set no
// can be nil.
func Prob0A(m *sparse.Matrix, yes, no []bool) []bool {
	return newgraph(m, yes, no).prob0a()
}

// Prob0E returns the states where the probability of reaching yes is 0 for
// some scheduler, and a scheduler (a choice index per state, -1 for states
// without choices) that achieves it.
func Prob0E(m *sparse.Matrix, yes, no []bool) ([]bool, []int) {
	return newgraph(m, yes, no).prob0e()
}

// Prob1A returns the states where the probability of reaching yes is 1 for
// every scheduler.
func Prob1A(m *sparse.Matrix, yes, no []bool) []bool {
	g := newgraph(m, yes, no)
	p0e, _ := g.prob0e()
	return g.prob1a(p0e)
}

// Prob1E returns the states where the probability of reaching yes is 1 for
// some scheduler.
func Prob1E(m *sparse.Matrix, yes, no []bool) []bool {
	g := newgraph(m, yes, no)
	return g.prob1e(g.prob0a())
}
