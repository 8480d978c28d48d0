// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package mtrudd

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// arith computes the numeric operation op on left and right, reading Boolean
// operands as 0/1 diagrams.
func (b *Manager) arith(left, right Edge, op Operator) Node {
	b.initref()
	b.pushref(left)
	b.pushref(right)
	b.misccache.id = cacheid_TOADD
	l := b.pushref(b.toadd(left))
	r := b.pushref(b.toadd(right))
	if l == nilEdge || r == nilEdge {
		b.initref()
		return nil
	}
	b.applycache.op = op
	res := b.numapply(l, r)
	b.initref()
	return b.retnode(res)
}

// identity returns the neutral element of op, or NaN if there is none.
func (b *Manager) identity(op Operator) float64 {
	switch op {
	case OPplus:
		return 0
	case OPtimes:
		return 1
	case OPmin:
		return math.Inf(1)
	case OPmax:
		return math.Inf(-1)
	}
	if op >= opcustom {
		return b.leafops[op-opcustom].identity
	}
	return math.NaN()
}

// numapply is the recursive part of Apply for numeric operators. Both operands
// are numeric diagrams, or one of the constants True/One, so they never carry
// complemented edges.
func (b *Manager) numapply(left, right Edge) Edge {
	if left == nilEdge || right == nilEdge {
		if _DEBUG {
			b.log.Panicf("panic in numapply(%d,%d,%s)", left, right, b.applycache.op)
		}
		return nilEdge
	}
	op := b.applycache.op
	switch op {
	case OPplus:
		switch {
		case left == b.zero:
			return right
		case right == b.zero:
			return left
		}
	case OPminus:
		switch {
		case right == b.zero:
			return left
		case left == right:
			return b.zero
		}
	case OPtimes:
		switch {
		case left == b.zero, right == b.zero:
			return b.zero
		case left == trueEdge:
			return right
		case right == trueEdge:
			return left
		}
	case OPdivide:
		switch {
		case left == b.zero:
			return b.zero
		case right == trueEdge:
			return left
		}
	case OPmin, OPmax:
		if left == right {
			return left
		}
	case OPeq, OPgeq:
		if left == right {
			return trueEdge
		}
	case OPneq, OPgreater:
		if left == right {
			return b.zero
		}
	default:
		if id := b.identity(op); !math.IsNaN(id) {
			if b.isleaf(left) && b.value(left) == id {
				return right
			}
			if b.commutative(op) && b.isleaf(right) && b.value(right) == id {
				return left
			}
		}
	}
	if b.isleaf(left) && b.isleaf(right) {
		v := b.leafop(op, b.value(left), b.value(right))
		if math.IsNaN(v) {
			b.seterror(ErrInvalidArgument, "operator %s returns NaN on (%g, %g)", op, b.value(left), b.value(right))
			return nilEdge
		}
		return b.makeleaf(v)
	}
	if left > right && b.commutative(op) {
		left, right = right, left
	}
	if res := b.matchapply(left, right); res != nilEdge {
		return res
	}
	level := min(b.level(left), b.level(right))
	l0, l1 := b.cofactors(left, level)
	r0, r1 := b.cofactors(right, level)
	low := b.pushref(b.numapply(l0, r0))
	high := b.pushref(b.numapply(l1, r1))
	if low == nilEdge || high == nilEdge {
		b.popref(2)
		return nilEdge
	}
	res := b.makenode(level, low, high)
	b.popref(2)
	return b.setapply(left, right, res)
}

// ************************************************************

// ToADD returns the numeric diagram (with leaves 0 and 1) equivalent to the
// Boolean diagram n. It returns n unchanged if it is already numeric.
func (b *Manager) ToADD(n Node) Node {
	if err := b.checkptr(n); err != nil {
		return b.seterror(err, "wrong operand in call to ToADD")
	}
	b.initref()
	b.pushref(n.e)
	b.misccache.id = cacheid_TOADD
	res := b.toadd(n.e)
	b.popref(1)
	return b.retnode(res)
}

func (b *Manager) toadd(e Edge) Edge {
	switch {
	case e == nilEdge:
		return nilEdge
	case e == trueEdge, b.isnumeric(e):
		return e
	case e == falseEdge:
		return b.zero
	}
	if res := b.matchmisc(e); res != nilEdge {
		return res
	}
	low := b.pushref(b.toadd(b.low(e)))
	high := b.pushref(b.toadd(b.high(e)))
	if low == nilEdge || high == nilEdge {
		b.popref(2)
		return nilEdge
	}
	res := b.makenode(b.level(e), low, high)
	b.popref(2)
	return b.setmisc(e, res)
}

// Threshold returns the Boolean diagram of the assignments where n has a value
// greater or equal to t. Boolean diagrams are read as 0/1 diagrams.
func (b *Manager) Threshold(n Node, t float64) Node {
	return b.convert(n, "Threshold", func(v float64) bool { return v >= t })
}

// StrictThreshold returns the Boolean diagram of the assignments where n has a
// value strictly greater than t.
func (b *Manager) StrictThreshold(n Node, t float64) Node {
	return b.convert(n, "StrictThreshold", func(v float64) bool { return v > t })
}

// NonZero returns the Boolean diagram of the assignments where n is not zero,
// that is the support of a numeric function.
func (b *Manager) NonZero(n Node) Node {
	return b.convert(n, "NonZero", func(v float64) bool { return v != 0 })
}

func (b *Manager) convert(n Node, name string, pred func(float64) bool) Node {
	if err := b.checkptr(n); err != nil {
		return b.seterror(err, "wrong operand in call to %s", name)
	}
	// each conversion gets a fresh cache id since the predicate is not part of
	// the cache key
	b.thresholdid++
	if b.thresholdid >= math.MaxInt32 {
		b.thresholdid = 0
		b.misccache.cachereset()
	}
	b.misccache.id = cacheid_THRESHOLD + b.thresholdid
	b.initref()
	b.pushref(n.e)
	res := b.threshold(n.e, pred)
	b.popref(1)
	return b.retnode(res)
}

func (b *Manager) threshold(e Edge, pred func(float64) bool) Edge {
	if b.isleaf(e) {
		if pred(b.value(e)) {
			return trueEdge
		}
		return falseEdge
	}
	if res := b.matchmisc(e); res != nilEdge {
		return res
	}
	low := b.pushref(b.threshold(b.low(e), pred))
	high := b.pushref(b.threshold(b.high(e), pred))
	if low == nilEdge || high == nilEdge {
		b.popref(2)
		return nilEdge
	}
	res := b.makenode(b.level(e), low, high)
	b.popref(2)
	return b.setmisc(e, res)
}

// ************************************************************

// abstract computes the abstraction of n over the variables of cube varset,
// combining cofactors with the commutative numeric operator op.
func (b *Manager) abstract(n, varset Edge, op Operator) Node {
	b.initref()
	b.pushref(n)
	b.pushref(varset)
	b.misccache.id = cacheid_TOADD
	f := b.pushref(b.toadd(n))
	if f == nilEdge {
		b.initref()
		return nil
	}
	b.applycache.op = op
	// the cube is part of the cache key, so the id only records the operator;
	// negative ids never clash with the ones used by AppEx
	b.appexcache.id = -(int(op) + 1)
	res := b.abstractrec(f, varset)
	b.initref()
	return b.retnode(res)
}

func (b *Manager) abstractrec(f, cube Edge) Edge {
	if f == nilEdge {
		return nilEdge
	}
	if cube == trueEdge {
		return f
	}
	if res := b.matchappex(f, cube); res != nilEdge {
		return res
	}
	flevel, clevel := b.level(f), b.level(cube)
	var res Edge
	switch {
	case flevel > clevel:
		// f does not depend on the variable at level clevel
		r := b.pushref(b.abstractrec(f, b.high(cube)))
		if r == nilEdge {
			b.popref(1)
			return nilEdge
		}
		res = b.numapply(r, r)
		b.popref(1)
	case flevel < clevel:
		low := b.pushref(b.abstractrec(b.low(f), cube))
		high := b.pushref(b.abstractrec(b.high(f), cube))
		if low == nilEdge || high == nilEdge {
			b.popref(2)
			return nilEdge
		}
		res = b.makenode(flevel, low, high)
		b.popref(2)
	default:
		low := b.pushref(b.abstractrec(b.low(f), b.high(cube)))
		high := b.pushref(b.abstractrec(b.high(f), b.high(cube)))
		if low == nilEdge || high == nilEdge {
			b.popref(2)
			return nilEdge
		}
		res = b.numapply(low, high)
		b.popref(2)
	}
	return b.setappex(f, cube, res)
}

// ************************************************************

// MakeNode returns the diagram with root variable level and branches low
// (when the variable is false) and high. The level must be smaller than the
// level of both branches. If one branch is numeric, the result is numeric and a
// Boolean branch is read as a 0/1 diagram.
func (b *Manager) MakeNode(level int, low, high Node) Node {
	if err := b.checkptr(low); err != nil {
		return b.seterror(err, "wrong low branch in call to MakeNode")
	}
	if err := b.checkptr(high); err != nil {
		return b.seterror(err, "wrong high branch in call to MakeNode")
	}
	lvl := int32(level)
	if level < 0 || lvl >= b.varnum || lvl >= b.level(low.e) || lvl >= b.level(high.e) {
		return b.seterror(ErrInvalidArgument, "level %d out of order in call to MakeNode", level)
	}
	b.initref()
	l, h := b.pushref(low.e), b.pushref(high.e)
	if b.isnumeric(l) != b.isnumeric(h) {
		b.misccache.id = cacheid_TOADD
		l = b.pushref(b.toadd(l))
		h = b.pushref(b.toadd(h))
		if l == nilEdge || h == nilEdge {
			b.initref()
			return nil
		}
	}
	res := b.makenode(lvl, l, h)
	b.initref()
	return b.retnode(res)
}

// Eval returns the value of n for the given assignment of variables, where
// valuation[i] is the value of variable i. Boolean diagrams evaluate to 0 or
// 1.
func (b *Manager) Eval(n Node, valuation []bool) (float64, error) {
	if err := b.checkptr(n); err != nil {
		return 0, errors.Wrap(err, "wrong operand in call to Eval")
	}
	if len(valuation) < int(b.varnum) {
		return 0, errors.Wrapf(ErrInvalidArgument, "valuation of size %d in call to Eval (expected %d)", len(valuation), b.varnum)
	}
	e := n.e
	for !b.isleaf(e) {
		if valuation[b.level(e)] {
			e = b.high(e)
		} else {
			e = b.low(e)
		}
	}
	return b.value(e), nil
}

// Support returns the cube of all the variables that occur in n.
func (b *Manager) Support(n Node) Node {
	if err := b.checkptr(n); err != nil {
		return b.seterror(err, "wrong operand in call to Support")
	}
	seen := make(map[int32]bool)
	levels := make(map[int]bool)
	var walk func(int32)
	walk = func(k int32) {
		if seen[k] || b.nodes[k].level&_LEVELMASK == _LEAFLEVEL {
			return
		}
		seen[k] = true
		levels[int(b.nodes[k].level&_LEVELMASK)] = true
		walk(b.nodes[k].low.index())
		walk(b.nodes[k].high.index())
	}
	walk(n.e.index())
	res := make([]int, 0, len(levels))
	for l := range levels {
		res = append(res, l)
	}
	sort.Ints(res)
	return b.Makeset(res)
}

// Nodecount returns the number of nodes reachable from n, including leaves.
func (b *Manager) Nodecount(n Node) int {
	if err := b.checkptr(n); err != nil {
		b.seterror(err, "wrong operand in call to Nodecount")
		return 0
	}
	count := b.markcount(n.e.index())
	b.unmarkall()
	return count
}

// Leaves returns the sorted list of values found in the leaves of n. A
// Boolean diagram has leaves 0 and 1, or only one of them for a constant.
func (b *Manager) Leaves(n Node) []float64 {
	if err := b.checkptr(n); err != nil {
		b.seterror(err, "wrong operand in call to Leaves")
		return nil
	}
	values := make(map[float64]bool)
	seen := make(map[Edge]bool)
	var walk func(Edge)
	walk = func(e Edge) {
		if seen[e] {
			return
		}
		seen[e] = true
		if b.isleaf(e) {
			values[b.value(e)] = true
			return
		}
		walk(b.low(e))
		walk(b.high(e))
	}
	walk(n.e)
	res := make([]float64, 0, len(values))
	for v := range values {
		res = append(res, v)
	}
	sort.Float64s(res)
	return res
}
