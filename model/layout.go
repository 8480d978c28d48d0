// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package model

import (
	"github.com/dalzilio/mtrudd"
	"github.com/pkg/errors"
)

// Layout is the allocation of the variables of a model in a Manager. States
// are unsigned integers encoded on Bits() bits, with the most significant bit
// first. The nondeterministic variables, used to number the choices of a
// state, come first in the order; then present and next state variables are
// interleaved.
type Layout struct {
	m       *mtrudd.Manager
	nondet  []int
	present []int
	next    []int
}

// NewLayout allocates nondet nondeterministic variables and bits pairs of
// present and next state variables after the variables already declared in
// m.
func NewLayout(m *mtrudd.Manager, bits, nondet int) (*Layout, error) {
	if m == nil || bits < 1 || nondet < 0 || bits > 62 || nondet > 30 {
		return nil, errors.Wrapf(mtrudd.ErrInvalidArgument, "layout with %d state bits and %d nondeterministic bits", bits, nondet)
	}
	base := m.Varnum()
	if err := m.ExtVarnum(nondet + 2*bits); err != nil {
		return nil, errors.Wrap(err, "cannot allocate the variables of the layout")
	}
	l := &Layout{m: m}
	for k := 0; k < nondet; k++ {
		l.nondet = append(l.nondet, base+k)
	}
	for k := 0; k < bits; k++ {
		l.present = append(l.present, base+nondet+2*k)
		l.next = append(l.next, base+nondet+2*k+1)
	}
	return l, nil
}

// Manager returns the manager of l.
func (l *Layout) Manager() *mtrudd.Manager { return l.m }

// Nondet returns the nondeterministic variables.
func (l *Layout) Nondet() []int { return l.nondet }

// Present returns the present state variables.
func (l *Layout) Present() []int { return l.present }

// Next returns the next state variables.
func (l *Layout) Next() []int { return l.next }

// Bits returns the number of bits of a state.
func (l *Layout) Bits() int { return len(l.present) }

// Slots returns the number of choices that can be encoded with the
// nondeterministic variables.
func (l *Layout) Slots() int { return 1 << len(l.nondet) }

func (l *Layout) encode(vars []int, v int) mtrudd.Node {
	res := l.m.True()
	for k, x := range vars {
		if (v>>(len(vars)-1-k))&1 == 1 {
			res = l.m.And(res, l.m.Ithvar(x))
		} else {
			res = l.m.And(res, l.m.NIthvar(x))
		}
	}
	return res
}

// State returns the BDD, over the present variables, of state s.
func (l *Layout) State(s int) mtrudd.Node {
	if s < 0 || s >= 1<<len(l.present) {
		return nil
	}
	return l.encode(l.present, s)
}

// NextState returns the BDD, over the next variables, of state s.
func (l *Layout) NextState(s int) mtrudd.Node {
	if s < 0 || s >= 1<<len(l.next) {
		return nil
	}
	return l.encode(l.next, s)
}

// Slot returns the BDD, over the nondeterministic variables, of choice k.
func (l *Layout) Slot(k int) mtrudd.Node {
	if k < 0 || k >= l.Slots() {
		return nil
	}
	return l.encode(l.nondet, k)
}

// States returns the set of states in list.
func (l *Layout) States(list ...int) mtrudd.Node {
	res := l.m.False()
	for _, s := range list {
		res = l.m.Or(res, l.State(s))
	}
	return res
}

// Same returns the relation where the next state is equal to the present
// state.
func (l *Layout) Same() mtrudd.Node {
	res := l.m.True()
	for k := range l.present {
		res = l.m.And(res, l.m.Equiv(l.m.Ithvar(l.present[k]), l.m.Ithvar(l.next[k])))
	}
	return res
}

// Valuation returns the values of the present variables for state s, the
// inverse of Decode.
func (l *Layout) Valuation(s int) []bool {
	res := make([]bool, len(l.present))
	for k := range res {
		res[k] = (s>>(len(res)-1-k))&1 == 1
	}
	return res
}

// Decode returns the state with the given valuation of the present
// variables, where valuation[k] is the value of Present()[k].
func (l *Layout) Decode(valuation []bool) (int, error) {
	if len(valuation) != len(l.present) {
		return 0, errors.Wrapf(mtrudd.ErrInvalidArgument, "valuation of size %d for %d state bits", len(valuation), len(l.present))
	}
	s := 0
	for _, b := range valuation {
		s <<= 1
		if b {
			s |= 1
		}
	}
	return s, nil
}

// Image returns the relation used for image computations with transitions
// trans, a Boolean diagram over the present and next variables.
func (l *Layout) Image(trans mtrudd.Node) mtrudd.Relation {
	return mtrudd.Relation{Trans: trans, Present: l.present, Next: l.next}
}
