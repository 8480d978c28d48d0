// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package odd

import (
	"math"

	"github.com/dalzilio/mtrudd"
	"github.com/pkg/errors"
)

// Node is a node of an ODD. LowCount (resp. HighCount) is the number of
// states in the set below the false (resp. true) branch. The children of the
// nodes at the last level are nil, in which case the counts are 0 or 1.
type Node struct {
	Low, High           *Node
	LowCount, HighCount int64
}

// Total returns the number of states below n.
func (n *Node) Total() int64 {
	if n == nil {
		return 0
	}
	return n.LowCount + n.HighCount
}

// ODD is an Offset-labeled Decision Diagram. It gives a dense numbering, from
// 0 to Size()-1, of the states in a set of valuations over a list of
// variables. States are numbered in lexicographic order of their valuations,
// with the first variable of the list as most significant bit.
//
// An ODD is frozen: it must be rebuilt when the set of states changes.
type ODD struct {
	m     *mtrudd.Manager
	reach mtrudd.Node
	vars  []int
	root  *Node
	size  int64
}

type key struct {
	e     mtrudd.Edge
	depth int
}

type builder struct {
	m     *mtrudd.Manager
	vars  []int
	cache map[key]*Node
	leaf  [2]*Node
}

// Build returns the ODD of the set of states reach over the variables in
// vars, that must be given in increasing order. The diagram reach can be a
// BDD or an ADD, in which case every valuation with a non-zero value is a
// state. It must not depend on variables outside of vars.
func Build(m *mtrudd.Manager, reach mtrudd.Node, vars []int) (*ODD, error) {
	if m == nil {
		return nil, errors.Wrap(mtrudd.ErrInvalidArgument, "nil manager")
	}
	if err := checkvars(m, vars); err != nil {
		return nil, err
	}
	e := m.Edge(reach)
	if m.Errored() {
		return nil, errors.Wrap(m.Err(), "wrong diagram in call to Build")
	}
	b := &builder{m: m, vars: vars, cache: make(map[key]*Node)}
	root, total, err := b.build(e, 0)
	if err != nil {
		return nil, err
	}
	if len(vars) == 0 {
		// a single state, if reach is not empty
		root = &Node{HighCount: total}
	}
	return &ODD{
		m:     m,
		reach: reach,
		vars:  append([]int(nil), vars...),
		root:  root,
		size:  root.Total(),
	}, nil
}

func checkvars(m *mtrudd.Manager, vars []int) error {
	for k, v := range vars {
		if v < 0 || v >= m.Varnum() {
			return errors.Wrapf(mtrudd.ErrInvalidArgument, "variable %d out of range", v)
		}
		if k > 0 && vars[k-1] >= v {
			return errors.Wrapf(mtrudd.ErrInvalidArgument, "variables must be in increasing order (found %d after %d)", v, vars[k-1])
		}
	}
	return nil
}

// build returns the ODD node for the cofactor e at the given depth, together
// with the number of states below it. At depth len(vars), we only compute the
// count.
func (b *builder) build(e mtrudd.Edge, depth int) (*Node, int64, error) {
	if depth == len(b.vars) {
		if !b.m.EdgeIsLeaf(e) {
			return nil, 0, errors.Wrapf(mtrudd.ErrInvalidArgument, "diagram depends on variable %d, not in the ODD", b.m.EdgeLevel(e))
		}
		if b.m.EdgeIsZero(e) {
			return nil, 0, nil
		}
		return nil, 1, nil
	}
	if lvl := b.m.EdgeLevel(e); lvl < b.vars[depth] {
		return nil, 0, errors.Wrapf(mtrudd.ErrInvalidArgument, "diagram depends on variable %d, not in the ODD", lvl)
	}
	if res, ok := b.cache[key{e, depth}]; ok {
		return res, res.Total(), nil
	}
	low, high := b.m.EdgeCofactors(e, b.vars[depth])
	res := &Node{}
	var err error
	if res.Low, res.LowCount, err = b.build(low, depth+1); err != nil {
		return nil, 0, err
	}
	if res.High, res.HighCount, err = b.build(high, depth+1); err != nil {
		return nil, 0, err
	}
	if res.LowCount > math.MaxInt64-res.HighCount {
		return nil, 0, errors.Wrap(mtrudd.ErrInvalidArgument, "too many states for an ODD")
	}
	b.cache[key{e, depth}] = res
	return res, res.Total(), nil
}

// Size returns the number of states.
func (o *ODD) Size() int {
	return int(o.size)
}

// Vars returns the variables of the ODD, in increasing order.
func (o *ODD) Vars() []int {
	return o.vars
}

// Root returns the root node of the ODD.
func (o *ODD) Root() *Node {
	return o.root
}

// Manager returns the manager of the diagram used to build the ODD.
func (o *ODD) Manager() *mtrudd.Manager {
	return o.m
}

// States returns the set of states of the ODD as a diagram.
func (o *ODD) States() mtrudd.Node {
	return o.reach
}

// IndexOf returns the index of a valuation, where valuation[k] is the value
// of the variable Vars()[k]. We return false if the valuation is not a state.
func (o *ODD) IndexOf(valuation []bool) (int, bool) {
	if len(valuation) != len(o.vars) {
		return 0, false
	}
	if len(o.vars) == 0 {
		return 0, o.size == 1
	}
	var idx int64
	n := o.root
	for _, v := range valuation {
		if v {
			if n.HighCount == 0 {
				return 0, false
			}
			idx += n.LowCount
			n = n.High
			continue
		}
		if n.LowCount == 0 {
			return 0, false
		}
		n = n.Low
	}
	return int(idx), true
}

// ValuationOf returns the valuation of the state with index i. This is the
// inverse of IndexOf.
func (o *ODD) ValuationOf(i int) ([]bool, error) {
	if i < 0 || int64(i) >= o.size {
		return nil, errors.Wrapf(mtrudd.ErrInvalidArgument, "index %d out of range [0, %d)", i, o.size)
	}
	res := make([]bool, len(o.vars))
	idx := int64(i)
	n := o.root
	for k := range res {
		if idx >= n.LowCount {
			res[k] = true
			idx -= n.LowCount
			n = n.High
			continue
		}
		n = n.Low
	}
	return res, nil
}

// Assignment returns a valuation of all the variables of the manager for
// the state with index i, suitable for Manager.Eval. Variables outside of
// the ODD are false.
func (o *ODD) Assignment(i int) ([]bool, error) {
	v, err := o.ValuationOf(i)
	if err != nil {
		return nil, err
	}
	res := make([]bool, o.m.Varnum())
	for k, x := range o.vars {
		res[x] = v[k]
	}
	return res, nil
}
