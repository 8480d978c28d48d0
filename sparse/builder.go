// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package sparse

import (
	"math"
	"sort"

	"github.com/dalzilio/mtrudd"
	"github.com/dalzilio/mtrudd/odd"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Relation is the symbolic description of a transition matrix. Trans is an
// ADD over the variables in Nondet, Rows and Cols giving the probability (or
// rate) of moving from a row state to a column state for each valuation of
// the nondeterministic variables. Each valuation of Nondet with a non-zero
// cofactor at state s defines a choice of s.
//
// Actions and Rewards are optional ADDs over Nondet and Rows that give the
// action identifier (an integer) and the reward of each choice. When Actions
// is nil, each choice is in its own group.
//
// Variables in Nondet must come first in the order, and row and column
// variables must be interleaved: Rows[l] and Cols[l] are both before
// Rows[l+1] and Cols[l+1].
type Relation struct {
	Trans   mtrudd.Node
	Actions mtrudd.Node
	Rewards mtrudd.Node
	Rows    []int
	Cols    []int
	Nondet  []int
}

func checklayout(r Relation, o *odd.ODD) error {
	m := o.Manager()
	if len(r.Rows) != len(r.Cols) {
		return errors.Wrapf(mtrudd.ErrInvalidArgument, "%d row variables and %d column variables", len(r.Rows), len(r.Cols))
	}
	ovars := o.Vars()
	if len(ovars) != len(r.Rows) {
		return errors.Wrap(mtrudd.ErrInvalidArgument, "the ODD is not over the row variables")
	}
	for k, v := range ovars {
		if r.Rows[k] != v {
			return errors.Wrap(mtrudd.ErrInvalidArgument, "the ODD is not over the row variables")
		}
	}
	seen := make(map[int]bool)
	for _, l := range [][]int{r.Nondet, r.Rows, r.Cols} {
		for _, v := range l {
			if v < 0 || v >= m.Varnum() {
				return errors.Wrapf(mtrudd.ErrInvalidArgument, "variable %d out of range", v)
			}
			if seen[v] {
				return errors.Wrapf(mtrudd.ErrInvalidArgument, "variable %d used twice", v)
			}
			seen[v] = true
		}
	}
	for k := 1; k < len(r.Nondet); k++ {
		if r.Nondet[k] <= r.Nondet[k-1] {
			return errors.Wrap(mtrudd.ErrInvalidArgument, "nondeterministic variables must be in increasing order")
		}
	}
	if len(r.Nondet) > 0 && len(r.Rows) > 0 {
		if last := r.Nondet[len(r.Nondet)-1]; last > r.Rows[0] || last > r.Cols[0] {
			return errors.Wrap(mtrudd.ErrInvalidArgument, "nondeterministic variables must come before state variables")
		}
	}
	for l := 1; l < len(r.Rows); l++ {
		if max(r.Rows[l-1], r.Cols[l-1]) > min(r.Rows[l], r.Cols[l]) {
			return errors.Wrapf(mtrudd.ErrInvalidArgument, "row and column variables are not interleaved at position %d", l)
		}
	}
	return nil
}

// ************************************************************

// choice is the record of a choice during the construction of a matrix.
type choice struct {
	state   int
	slot    int
	action  int
	reward  float64
	count   int
	entries []Entry
	index   int
	next    int
}

// assembler implements the count, prefix-sum and fill construction of a
// Matrix.
type assembler struct {
	states  [][]*choice
	index   map[[2]int]*choice
	rewards bool
	mat     *Matrix
}

func newassembler(n int) *assembler {
	return &assembler{
		states: make([][]*choice, n),
		index:  make(map[[2]int]*choice),
	}
}

func (b *assembler) add(s, slot int) *choice {
	rec := &choice{state: s, slot: slot, action: slot}
	b.states[s] = append(b.states[s], rec)
	b.index[[2]int{s, slot}] = rec
	return rec
}

func (b *assembler) get(s, slot int) *choice {
	return b.index[[2]int{s, slot}]
}

// layout sorts the choices of each state by action and computes the index
// arrays of the matrix from the counts of the first pass.
func (b *assembler) layout() {
	n := len(b.states)
	m := &Matrix{
		StateStart: make([]int, n+1),
		StateGroup: make([]int, n+1),
		GroupStart: []int{},
	}
	nc := 0
	for s, recs := range b.states {
		sort.SliceStable(recs, func(i, j int) bool {
			if recs[i].action != recs[j].action {
				return recs[i].action < recs[j].action
			}
			return recs[i].slot < recs[j].slot
		})
		for k, rec := range recs {
			rec.index = nc + k
			if k == 0 || rec.action != recs[k-1].action {
				m.GroupStart = append(m.GroupStart, rec.index)
			}
		}
		nc += len(recs)
		m.StateStart[s+1] = nc
		m.StateGroup[s+1] = len(m.GroupStart)
	}
	m.GroupStart = append(m.GroupStart, nc)
	m.ChoiceStart = make([]int, nc+1)
	m.Action = make([]int, nc)
	m.Slot = make([]int, nc)
	if b.rewards {
		m.Reward = make([]float64, nc)
	}
	for _, recs := range b.states {
		for _, rec := range recs {
			m.ChoiceStart[rec.index+1] = m.ChoiceStart[rec.index] + rec.count
			rec.next = m.ChoiceStart[rec.index]
			m.Action[rec.index] = rec.action
			m.Slot[rec.index] = rec.slot
			if b.rewards {
				m.Reward[rec.index] = rec.reward
			}
		}
	}
	nnz := m.ChoiceStart[nc]
	m.Successor = make([]int, nnz)
	m.Prob = make([]float64, nnz)
	b.mat = m
}

func (b *assembler) fill(rec *choice, t int, p float64) error {
	if rec.next >= b.mat.ChoiceStart[rec.index+1] {
		return errors.Wrapf(ErrDataInvariant, "more successors than counted for choice %d of state %d", rec.slot, rec.state)
	}
	b.mat.Successor[rec.next] = t
	b.mat.Prob[rec.next] = p
	rec.next++
	return nil
}

// check verifies that the second pass filled every slot of the matrix.
func (b *assembler) check() error {
	for _, recs := range b.states {
		for _, rec := range recs {
			if rec.next != b.mat.ChoiceStart[rec.index+1] {
				return errors.Wrapf(ErrDataInvariant, "fewer successors than counted for choice %d of state %d", rec.slot, rec.state)
			}
		}
	}
	return nil
}

// ************************************************************

type walker struct {
	m      *mtrudd.Manager
	rows   []int
	cols   []int
	nondet []int
}

// cofactors of the three diagrams of a relation; a and r are only used when
// the corresponding diagram is present.
type triple struct {
	t, a, r mtrudd.Edge
}

// enumerate calls f on the cofactors of e for every valuation of the
// nondeterministic variables where the transition diagram is not zero. The
// slot of a valuation is its value as a binary number, with the first
// variable as most significant bit.
func (w *walker) enumerate(e triple, depth, slot int, f func(int, triple) error) error {
	if w.m.EdgeIsZero(e.t) {
		return nil
	}
	if depth == len(w.nondet) {
		return f(slot, e)
	}
	v := w.nondet[depth]
	if lvl := w.m.EdgeLevel(e.t); lvl < v {
		return errors.Wrapf(mtrudd.ErrInvalidArgument, "transition diagram depends on variable %d", lvl)
	}
	var sub [2]triple
	sub[0].t, sub[1].t = w.m.EdgeCofactors(e.t, v)
	sub[0].a, sub[1].a = w.m.EdgeCofactors(e.a, v)
	sub[0].r, sub[1].r = w.m.EdgeCofactors(e.r, v)
	if err := w.enumerate(sub[0], depth+1, slot<<1, f); err != nil {
		return err
	}
	return w.enumerate(sub[1], depth+1, slot<<1|1, f)
}

func child(n *odd.Node, bit int, off int64) (*odd.Node, int64, int64) {
	if n == nil {
		return nil, 0, 0
	}
	if bit == 0 {
		return n.Low, n.LowCount, off
	}
	return n.High, n.HighCount, off + n.LowCount
}

// walk visits the non-zero entries of the matrix e, a diagram over the row
// and column variables, in lock-step with the ODD. Rows that are not states
// are skipped; an entry in a column that is not a state is an error. For a
// given row, columns are visited in increasing order.
func (w *walker) walk(e mtrudd.Edge, rn, cn *odd.Node, depth int, row, col int64, colok bool, visit func(row, col int, v float64) error) error {
	if w.m.EdgeIsZero(e) {
		return nil
	}
	if depth == len(w.rows) {
		if !w.m.EdgeIsLeaf(e) {
			return errors.Wrapf(mtrudd.ErrInvalidArgument, "transition diagram depends on variable %d", w.m.EdgeLevel(e))
		}
		if !colok {
			return errors.Wrapf(ErrDataInvariant, "transition from state %d to a state that is not reachable", row)
		}
		return visit(int(row), int(col), w.m.EdgeValue(e))
	}
	r, c := w.rows[depth], w.cols[depth]
	if lvl := w.m.EdgeLevel(e); lvl < min(r, c) {
		return errors.Wrapf(mtrudd.ErrInvalidArgument, "transition diagram depends on variable %d", lvl)
	}
	// sub[rb][cb] is the cofactor for row bit rb and column bit cb
	var sub [2][2]mtrudd.Edge
	if r < c {
		e0, e1 := w.m.EdgeCofactors(e, r)
		sub[0][0], sub[0][1] = w.m.EdgeCofactors(e0, c)
		sub[1][0], sub[1][1] = w.m.EdgeCofactors(e1, c)
	} else {
		e0, e1 := w.m.EdgeCofactors(e, c)
		sub[0][0], sub[1][0] = w.m.EdgeCofactors(e0, r)
		sub[0][1], sub[1][1] = w.m.EdgeCofactors(e1, r)
	}
	for rb := 0; rb < 2; rb++ {
		rchild, rcount, roff := child(rn, rb, row)
		if rcount == 0 {
			continue
		}
		for cb := 0; cb < 2; cb++ {
			cchild, ccount, coff := child(cn, cb, col)
			if err := w.walk(sub[rb][cb], rchild, cchild, depth+1, roff, coff, colok && ccount > 0, visit); err != nil {
				return err
			}
		}
	}
	return nil
}

// rowwalk visits the values of e, a diagram over the row variables, on
// every state of the ODD.
func (w *walker) rowwalk(e mtrudd.Edge, rn *odd.Node, depth int, row int64, visit func(row int, v float64) error) error {
	if depth == len(w.rows) {
		if !w.m.EdgeIsLeaf(e) {
			return errors.Wrapf(mtrudd.ErrInvalidArgument, "diagram over states depends on variable %d", w.m.EdgeLevel(e))
		}
		return visit(int(row), w.m.EdgeValue(e))
	}
	r := w.rows[depth]
	if lvl := w.m.EdgeLevel(e); lvl < r {
		return errors.Wrapf(mtrudd.ErrInvalidArgument, "diagram over states depends on variable %d", lvl)
	}
	e0, e1 := w.m.EdgeCofactors(e, r)
	for bit, sub := range []mtrudd.Edge{e0, e1} {
		rchild, rcount, roff := child(rn, bit, row)
		if rcount == 0 {
			continue
		}
		if err := w.rowwalk(sub, rchild, depth+1, roff, visit); err != nil {
			return err
		}
	}
	return nil
}

// Build returns the sparse matrix of the relation r restricted to the states
// of the ODD o, which must be built over the row variables of r. States are
// numbered as in o. Transitions from valuations that are not states are
// ignored, while a transition from a state to a valuation outside of o is an
// error.
func Build(r Relation, o *odd.ODD, options ...Option) (*Matrix, error) {
	opts := DefaultOptions()
	for _, f := range options {
		f(&opts)
	}
	if o == nil {
		return nil, errors.Wrap(mtrudd.ErrInvalidArgument, "nil ODD")
	}
	if err := checklayout(r, o); err != nil {
		return nil, err
	}
	m := o.Manager()
	e := triple{t: m.Edge(r.Trans), a: m.Edge(m.Zero()), r: m.Edge(m.Zero())}
	hasActions, hasRewards := r.Actions != nil, r.Rewards != nil
	if hasActions {
		e.a = m.Edge(r.Actions)
	}
	if hasRewards {
		e.r = m.Edge(r.Rewards)
	}
	if m.Errored() {
		return nil, errors.Wrap(m.Err(), "wrong diagram in relation")
	}
	w := &walker{m: m, rows: r.Rows, cols: r.Cols, nondet: r.Nondet}
	n := o.Size()
	b := newassembler(n)
	if n == 0 {
		b.layout()
		return b.mat, nil
	}
	root := o.Root()
	if len(r.Rows) == 0 {
		// a single state, the ODD root is a leaf
		root = nil
	}

	// first pass: count choices and successors
	err := w.enumerate(e, 0, 0, func(slot int, e triple) error {
		err := w.walk(e.t, root, root, 0, 0, 0, true, func(row, col int, v float64) error {
			rec := b.get(row, slot)
			if rec == nil {
				rec = b.add(row, slot)
			}
			rec.count++
			return nil
		})
		if err != nil {
			return err
		}
		if hasActions {
			err = w.rowwalk(e.a, root, 0, 0, func(row int, v float64) error {
				if rec := b.get(row, slot); rec != nil {
					if v != math.Trunc(v) {
						return errors.Wrapf(mtrudd.ErrInvalidArgument, "action %g is not an integer", v)
					}
					rec.action = int(v)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		if hasRewards {
			return w.rowwalk(e.r, root, 0, 0, func(row int, v float64) error {
				if rec := b.get(row, slot); rec != nil {
					rec.reward = v
					if v != 0 {
						b.rewards = true
					}
				}
				return nil
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	b.layout()

	// second pass: fill successors and probabilities
	err = w.enumerate(e, 0, 0, func(slot int, e triple) error {
		return w.walk(e.t, root, root, 0, 0, 0, true, func(row, col int, v float64) error {
			rec := b.get(row, slot)
			if rec == nil {
				return errors.Wrapf(ErrDataInvariant, "choice %d of state %d not found in first pass", slot, row)
			}
			return b.fill(rec, col, v)
		})
	})
	if err != nil {
		return nil, err
	}
	if err := b.check(); err != nil {
		return nil, err
	}
	b.mat.Rates = opts.Rates
	if err := b.mat.validate(opts.Tolerance); err != nil {
		return nil, err
	}
	opts.Logger.WithFields(logrus.Fields{
		"states":      n,
		"choices":     b.mat.NumChoices(),
		"groups":      len(b.mat.GroupStart) - 1,
		"transitions": b.mat.NumTransitions(),
	}).Debug("sparse matrix built")
	return b.mat, nil
}
