// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package odd

import (
	"github.com/dalzilio/mtrudd"
	"github.com/pkg/errors"
)

// ToVector returns the explicit vector of the values of n on the states of
// the ODD. The diagram n can be a BDD, read as a 0/1 vector, or an ADD; it
// must not depend on variables outside of the ODD.
func (o *ODD) ToVector(n mtrudd.Node) ([]float64, error) {
	e := o.m.Edge(n)
	if o.m.Errored() {
		return nil, errors.Wrap(o.m.Err(), "wrong diagram in call to ToVector")
	}
	res := make([]float64, o.size)
	if len(o.vars) == 0 {
		if o.size == 1 {
			if !o.m.EdgeIsLeaf(e) {
				return nil, errors.Wrap(mtrudd.ErrInvalidArgument, "diagram depends on variables not in the ODD")
			}
			res[0] = o.m.EdgeValue(e)
		}
		return res, nil
	}
	if err := o.tovector(e, o.root, 0, 0, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (o *ODD) tovector(e mtrudd.Edge, n *Node, depth int, offset int64, res []float64) error {
	if lvl := o.m.EdgeLevel(e); lvl < o.vars[depth] {
		return errors.Wrapf(mtrudd.ErrInvalidArgument, "diagram depends on variable %d, not in the ODD", lvl)
	}
	low, high := o.m.EdgeCofactors(e, o.vars[depth])
	if depth == len(o.vars)-1 {
		for _, c := range []struct {
			e     mtrudd.Edge
			count int64
			off   int64
		}{{low, n.LowCount, offset}, {high, n.HighCount, offset + n.LowCount}} {
			if c.count == 0 {
				continue
			}
			if !o.m.EdgeIsLeaf(c.e) {
				return errors.Wrapf(mtrudd.ErrInvalidArgument, "diagram depends on variable %d, not in the ODD", o.m.EdgeLevel(c.e))
			}
			res[c.off] = o.m.EdgeValue(c.e)
		}
		return nil
	}
	if n.LowCount > 0 {
		if err := o.tovector(low, n.Low, depth+1, offset, res); err != nil {
			return err
		}
	}
	if n.HighCount > 0 {
		return o.tovector(high, n.High, depth+1, offset+n.LowCount, res)
	}
	return nil
}

// FromVector returns the ADD over the variables of the ODD with value vec[i]
// on the state of index i, and 0 on valuations that are not states.
func (o *ODD) FromVector(vec []float64) (mtrudd.Node, error) {
	if int64(len(vec)) != o.size {
		return nil, errors.Wrapf(mtrudd.ErrInvalidArgument, "vector of size %d in call to FromVector (expected %d)", len(vec), o.size)
	}
	zero := o.m.Zero()
	return o.fromleaves(func(i int64) mtrudd.Node {
		if vec[i] == 0 {
			return zero
		}
		return o.m.Constant(vec[i])
	}, zero)
}

// Filter returns the BDD of the states s such that pred(vec[s]) is true.
func (o *ODD) Filter(vec []float64, pred func(float64) bool) (mtrudd.Node, error) {
	if int64(len(vec)) != o.size {
		return nil, errors.Wrapf(mtrudd.ErrInvalidArgument, "vector of size %d in call to Filter (expected %d)", len(vec), o.size)
	}
	yes, no := o.m.True(), o.m.False()
	return o.fromleaves(func(i int64) mtrudd.Node {
		if pred(vec[i]) {
			return yes
		}
		return no
	}, no)
}

// BDDOf returns the BDD of the set of states with the given indices.
func (o *ODD) BDDOf(indices []int) (mtrudd.Node, error) {
	mark := make([]bool, o.size)
	for _, i := range indices {
		if i < 0 || int64(i) >= o.size {
			return nil, errors.Wrapf(mtrudd.ErrInvalidArgument, "index %d out of range [0, %d)", i, o.size)
		}
		mark[i] = true
	}
	yes, no := o.m.True(), o.m.False()
	return o.fromleaves(func(i int64) mtrudd.Node {
		if mark[i] {
			return yes
		}
		return no
	}, no)
}

// Mask returns the BDD of the states s such that mask[s] is true.
func (o *ODD) Mask(mask []bool) (mtrudd.Node, error) {
	if int64(len(mask)) != o.size {
		return nil, errors.Wrapf(mtrudd.ErrInvalidArgument, "mask of size %d (expected %d)", len(mask), o.size)
	}
	yes, no := o.m.True(), o.m.False()
	return o.fromleaves(func(i int64) mtrudd.Node {
		if mask[i] {
			return yes
		}
		return no
	}, no)
}

// fromleaves builds the diagram with leaf(i) on the state of index i and
// background on other valuations.
func (o *ODD) fromleaves(leaf func(int64) mtrudd.Node, background mtrudd.Node) (mtrudd.Node, error) {
	var res mtrudd.Node
	if len(o.vars) == 0 {
		res = background
		if o.size == 1 {
			res = leaf(0)
		}
	} else {
		res = o.fromrec(o.root, 0, 0, leaf, background)
	}
	if o.m.Errored() {
		return nil, o.m.Err()
	}
	return res, nil
}

func (o *ODD) fromrec(n *Node, depth int, offset int64, leaf func(int64) mtrudd.Node, background mtrudd.Node) mtrudd.Node {
	low, high := background, background
	if depth == len(o.vars)-1 {
		if n.LowCount > 0 {
			low = leaf(offset)
		}
		if n.HighCount > 0 {
			high = leaf(offset + n.LowCount)
		}
	} else {
		if n.LowCount > 0 {
			low = o.fromrec(n.Low, depth+1, offset, leaf, background)
		}
		if n.HighCount > 0 {
			high = o.fromrec(n.High, depth+1, offset+n.LowCount, leaf, background)
		}
	}
	if low == high {
		return low
	}
	return o.m.MakeNode(o.vars[depth], low, high)
}
