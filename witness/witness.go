// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

// Package witness extracts, from the result of an interval iteration, the
// part of a model where the lower and upper bounds disagree. The result is a
// small explicit graph, restricted to the choices selected by the two
// schedulers, that can be used to rank counterexamples or to find where an
// abstraction should be refined.
package witness

import (
	"math"

	"github.com/dalzilio/mtrudd"
	"github.com/dalzilio/mtrudd/solver"
	"github.com/dalzilio/mtrudd/sparse"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Kind is the type of a vertex.
type Kind int

const (
	// KindState is a state of the model.
	KindState Kind = iota
	// KindChoiceSet is an action group of a state, that is the set of
	// choices of the state with the same action.
	KindChoiceSet
	// KindDistribution is a choice, that is a probability distribution over
	// successor states.
	KindDistribution
)

func (k Kind) String() string {
	switch k {
	case KindChoiceSet:
		return "choice-set"
	case KindDistribution:
		return "distribution"
	}
	return "state"
}

// Vertex is a vertex of a witness graph. State is the state of the vertex,
// or the state owning the choice set or the distribution. Group and Choice
// are the indices of the group and of the choice in the matrix (or -1).
// Deviation is the difference between the upper and lower bound of the
// state. A state vertex is a Boundary vertex when it was not expanded
// because its deviation is below the threshold. InLower and InUpper tell if a
// choice set or a distribution is selected by the lower or upper scheduler.
type Vertex struct {
	ID        int64
	Kind      Kind
	State     int
	Group     int
	Choice    int
	Action    int
	Lower     float64
	Upper     float64
	Deviation float64
	Boundary  bool
	InLower   bool
	InUpper   bool
}

// Edge is a transition of the graph. Prob is 1 except for the edges from a
// distribution to a state.
type Edge struct {
	From, To int64
	Prob     float64
}

// Graph is a witness graph. Edges go from a state to its choice sets, from a
// choice set to its distributions, and from a distribution to its successor
// states.
type Graph struct {
	vertices []Vertex
	edges    []Edge
	states   map[int]int64
	groups   map[int]int64
	choices  map[int]int64
	g        *simple.WeightedDirectedGraph
}

func newgraph() *Graph {
	return &Graph{
		states:  make(map[int]int64),
		groups:  make(map[int]int64),
		choices: make(map[int]int64),
		g:       simple.NewWeightedDirectedGraph(0, math.Inf(1)),
	}
}

func (w *Graph) add(v Vertex) int64 {
	v.ID = int64(len(w.vertices))
	w.vertices = append(w.vertices, v)
	w.g.AddNode(simple.Node(v.ID))
	return v.ID
}

// link adds an edge weighted with -log(p), so that shortest paths are the
// most probable ones.
func (w *Graph) link(from, to int64, p float64) {
	w.edges = append(w.edges, Edge{From: from, To: to, Prob: p})
	w.g.SetWeightedEdge(w.g.NewWeightedEdge(simple.Node(from), simple.Node(to), -math.Log(p)))
}

// Extract builds the witness graph of bounds b for the matrix m, starting
// from the states in init. A state is expanded when the gap between its
// bounds is greater than eps; only the choices selected by the lower or the
// upper scheduler are followed.
func Extract(m *sparse.Matrix, b *solver.Bounds, init []int, eps float64) (*Graph, error) {
	if m == nil || b == nil {
		return nil, errors.Wrap(mtrudd.ErrInvalidArgument, "nil matrix or bounds")
	}
	n := m.NumStates()
	if len(b.Lower) != n || len(b.Upper) != n || len(b.LowerScheduler) != n || len(b.UpperScheduler) != n {
		return nil, errors.Wrapf(mtrudd.ErrInvalidArgument, "bounds do not match a matrix with %d states", n)
	}
	w := newgraph()
	var queue []int
	visit := func(s int) int64 {
		if id, ok := w.states[s]; ok {
			return id
		}
		dev := b.Gap(s)
		id := w.add(Vertex{
			Kind:      KindState,
			State:     s,
			Group:     -1,
			Choice:    -1,
			Lower:     b.Lower[s],
			Upper:     b.Upper[s],
			Deviation: dev,
			Boundary:  !(dev > eps),
		})
		w.states[s] = id
		queue = append(queue, s)
		return id
	}
	for _, s := range init {
		if s < 0 || s >= n {
			return nil, errors.Wrapf(mtrudd.ErrInvalidArgument, "initial state %d out of range", s)
		}
		visit(s)
	}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		sv := w.states[s]
		if w.vertices[sv].Boundary {
			continue
		}
		lc, uc := b.LowerScheduler[s], b.UpperScheduler[s]
		glo, ghi := m.Groups(s)
		for g := glo; g < ghi; g++ {
			lo, hi := m.GroupChoices(g)
			for c := lo; c < hi; c++ {
				if c != lc && c != uc {
					continue
				}
				gv, ok := w.groups[g]
				if !ok {
					gv = w.add(Vertex{
						Kind:      KindChoiceSet,
						State:     s,
						Group:     g,
						Choice:    -1,
						Action:    m.Action[c],
						Lower:     b.Lower[s],
						Upper:     b.Upper[s],
						Deviation: b.Gap(s),
					})
					w.groups[g] = gv
					w.link(sv, gv, 1)
				}
				dv := w.add(Vertex{
					Kind:      KindDistribution,
					State:     s,
					Group:     g,
					Choice:    c,
					Action:    m.Action[c],
					Lower:     b.Lower[s],
					Upper:     b.Upper[s],
					Deviation: b.Gap(s),
					InLower:   c == lc,
					InUpper:   c == uc,
				})
				w.choices[c] = dv
				w.vertices[gv].InLower = w.vertices[gv].InLower || c == lc
				w.vertices[gv].InUpper = w.vertices[gv].InUpper || c == uc
				w.link(gv, dv, 1)
				succ, prob := m.Successors(c)
				for k, t := range succ {
					w.link(dv, visit(t), prob[k])
				}
			}
		}
	}
	return w, nil
}

// Len returns the number of vertices.
func (w *Graph) Len() int {
	return len(w.vertices)
}

// Vertex returns the vertex with identifier id.
func (w *Graph) Vertex(id int64) Vertex {
	return w.vertices[id]
}

// Vertices returns all the vertices, ordered by identifier.
func (w *Graph) Vertices() []Vertex {
	return w.vertices
}

// Edges returns all the edges, in the order they were added.
func (w *Graph) Edges() []Edge {
	return w.edges
}

// StateVertex returns the vertex of state s, if s is in the graph.
func (w *Graph) StateVertex(s int) (int64, bool) {
	id, ok := w.states[s]
	return id, ok
}

// ChoiceVertex returns the vertex of choice c, if c is in the graph.
func (w *Graph) ChoiceVertex(c int) (int64, bool) {
	id, ok := w.choices[c]
	return id, ok
}

// Boundary returns the states of the graph that were not expanded.
func (w *Graph) Boundary() []int {
	var res []int
	for _, v := range w.vertices {
		if v.Kind == KindState && v.Boundary {
			res = append(res, v.State)
		}
	}
	return res
}

// MostProbablePath returns the most probable path between vertices from and
// to, together with its probability. The result is nil, with probability 0,
// when there are no such path.
func (w *Graph) MostProbablePath(from, to int64) ([]int64, float64) {
	if from < 0 || to < 0 || from >= int64(len(w.vertices)) || to >= int64(len(w.vertices)) {
		return nil, 0
	}
	nodes, weight := path.DijkstraFrom(simple.Node(from), w.g).To(to)
	if len(nodes) == 0 {
		return nil, 0
	}
	return ids(nodes), math.Exp(-weight)
}

// Cycles returns the strongly connected components of the graph with more
// than one vertex. Each component is a set of vertices that are on a common
// cycle; callers that need an acyclic graph must remove at least one edge in
// each of them.
func (w *Graph) Cycles() [][]int64 {
	var res [][]int64
	for _, scc := range topo.TarjanSCC(w.g) {
		if len(scc) > 1 {
			res = append(res, ids(scc))
		}
	}
	return res
}

func ids(nodes []graph.Node) []int64 {
	res := make([]int64, len(nodes))
	for k, n := range nodes {
		res[k] = n.ID()
	}
	return res
}
