// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package mtrudd

import (
	"math/big"
	"sort"

	"github.com/pkg/errors"
)

// Scanset returns the set of variables (levels) found when following the high
// branch of node n. This is the dual of function Makeset. The result may be nil
// if there is an error. The result follows the level order.
func (b *Manager) Scanset(n Node) []int {
	if err := b.checkptr(n); err != nil {
		b.seterror(err, "wrong operand in call to Scanset")
		return nil
	}
	res := []int{}
	for i := n.e; !b.isleaf(i); i = b.high(i) {
		res = append(res, int(b.level(i)))
	}
	return res
}

// Makeset returns a node corresponding to the conjunction (the cube) of all the
// variable in varset, in their positive form. It is such that
// scanset(Makeset(a)) == a, up to the order of variables. It returns nil and
// sets the error condition in b if one of the variables is outside the scope of
// the Manager (see documentation for function Ithvar).
func (b *Manager) Makeset(varset []int) Node {
	levels := make([]int, len(varset))
	copy(levels, varset)
	sort.Sort(sort.Reverse(sort.IntSlice(levels)))
	b.initref()
	res := trueEdge
	for k, v := range levels {
		if v < 0 || int32(v) >= b.varnum {
			return b.seterror(ErrInvalidArgument, "unknown variable (%d) in call to Makeset", v)
		}
		if k > 0 && levels[k-1] == v {
			continue
		}
		b.initref()
		b.pushref(res)
		res = b.makenode(int32(v), falseEdge, res)
		if res == nilEdge {
			return nil
		}
	}
	b.initref()
	return b.retnode(res)
}

// Not returns the negation of the expression corresponding to node n. This is
// a constant time operation, since we only flip the complement bit of the
// edge. We raise ErrInvalidArgument if n is a numeric diagram.
func (b *Manager) Not(n Node) Node {
	if err := b.checkptr(n); err != nil {
		return b.seterror(err, "wrong operand in call to Not")
	}
	if b.isnumeric(n.e) {
		return b.seterror(ErrInvalidArgument, "numeric diagram in call to Not")
	}
	return b.retnode(n.e ^ 1)
}

// Apply performs all of the basic operations with two operands, such as AND,
// OR etc. Left and right are the operand and op is the requested operation.
// Boolean operators are listed below; they can only be used on Boolean
// diagrams. Arithmetic operators (OPplus, OPtimes, ...) and user defined
// operators return a numeric diagram.
//
//	Identifier    Description            Truth table
//
//	OPand         logical and            [0,0,0,1]
//	OPxor         logical xor            [0,1,1,0]
//	OPor          logical or             [0,1,1,1]
//	OPnand        logical not-and        [1,1,1,0]
//	OPnor         logical not-or         [1,0,0,0]
//	OPimp         implication            [1,1,0,1]
//	OPbiimp       equivalence            [1,0,0,1]
//	OPdiff        set difference         [0,0,1,0]
//	OPless        less than              [0,1,0,0]
//	OPinvimp      reverse implication    [1,0,1,1]
func (b *Manager) Apply(left Node, right Node, op Operator) Node {
	if err := b.checkptr(left); err != nil {
		return b.seterror(err, "wrong operand in call to Apply %s(left, ...)", op)
	}
	if err := b.checkptr(right); err != nil {
		return b.seterror(err, "wrong operand in call to Apply %s(..., right)", op)
	}
	if !b.validop(op) {
		return b.seterror(ErrInvalidArgument, "unknown operator (%d) in call to Apply", int(op))
	}
	if !op.boolean() {
		return b.arith(left.e, right.e, op)
	}
	if b.isnumeric(left.e) || b.isnumeric(right.e) {
		return b.seterror(ErrInvalidArgument, "numeric diagram in call to Boolean operator %s", op)
	}
	b.applycache.op = op
	b.initref()
	b.pushref(left.e)
	b.pushref(right.e)
	res := b.apply(left.e, right.e)
	b.popref(2)
	return b.retnode(res)
}

func bool2edge(v int) Edge {
	if v == 1 {
		return trueEdge
	}
	return falseEdge
}

func edge2bool(e Edge) int {
	if e == trueEdge {
		return 1
	}
	return 0
}

// apply is the recursive part of Apply for Boolean operators. Operands are
// Boolean diagrams, so the only leaves are trueEdge and falseEdge.
func (b *Manager) apply(left Edge, right Edge) Edge {
	switch b.applycache.op {
	case OPand:
		switch {
		case left == right:
			return left
		case left == right^1, left == falseEdge, right == falseEdge:
			return falseEdge
		case left == trueEdge:
			return right
		case right == trueEdge:
			return left
		}
	case OPor:
		switch {
		case left == right:
			return left
		case left == right^1, left == trueEdge, right == trueEdge:
			return trueEdge
		case left == falseEdge:
			return right
		case right == falseEdge:
			return left
		}
	case OPxor:
		switch {
		case left == right:
			return falseEdge
		case left == right^1:
			return trueEdge
		case left == falseEdge:
			return right
		case right == falseEdge:
			return left
		case left == trueEdge:
			return right ^ 1
		case right == trueEdge:
			return left ^ 1
		}
	case OPnand:
		switch {
		case left == falseEdge, right == falseEdge, left == right^1:
			return trueEdge
		case left == right:
			return left ^ 1
		case left == trueEdge:
			return right ^ 1
		case right == trueEdge:
			return left ^ 1
		}
	case OPnor:
		switch {
		case left == trueEdge, right == trueEdge, left == right^1:
			return falseEdge
		case left == right:
			return left ^ 1
		case left == falseEdge:
			return right ^ 1
		case right == falseEdge:
			return left ^ 1
		}
	case OPimp:
		switch {
		case left == falseEdge, right == trueEdge, left == right:
			return trueEdge
		case left == trueEdge:
			return right
		case left == right^1, right == falseEdge:
			return left ^ 1
		}
	case OPbiimp:
		switch {
		case left == right:
			return trueEdge
		case left == right^1:
			return falseEdge
		case left == trueEdge:
			return right
		case right == trueEdge:
			return left
		case left == falseEdge:
			return right ^ 1
		case right == falseEdge:
			return left ^ 1
		}
	case OPdiff:
		switch {
		case left == right, right == trueEdge, left == falseEdge:
			return falseEdge
		case left == right^1, right == falseEdge:
			return left
		case left == trueEdge:
			return right ^ 1
		}
	case OPless:
		switch {
		case left == right, left == trueEdge, right == falseEdge:
			return falseEdge
		case left == right^1, left == falseEdge:
			return right
		case right == trueEdge:
			return left ^ 1
		}
	case OPinvimp:
		switch {
		case right == falseEdge, left == trueEdge, left == right:
			return trueEdge
		case right == trueEdge, left == right^1:
			return left
		case left == falseEdge:
			return right ^ 1
		}
	default:
		b.seterror(ErrInvalidArgument, "unauthorized operation (%s) in apply", b.applycache.op)
		return nilEdge
	}

	// we check for errors
	if left == nilEdge || right == nilEdge {
		if _DEBUG {
			b.log.Panicf("panic in apply(%d,%d,%s)", left, right, b.applycache.op)
		}
		return nilEdge
	}

	// we deal with the other cases where the two operands are constants
	if b.isleaf(left) && b.isleaf(right) {
		return bool2edge(opres[b.applycache.op][edge2bool(left)][edge2bool(right)])
	}
	if left > right && b.commutative(b.applycache.op) {
		left, right = right, left
	}
	if res := b.matchapply(left, right); res != nilEdge {
		return res
	}
	level := min(b.level(left), b.level(right))
	l0, l1 := b.cofactors(left, level)
	r0, r1 := b.cofactors(right, level)
	low := b.pushref(b.apply(l0, r0))
	high := b.pushref(b.apply(l1, r1))
	if low == nilEdge || high == nilEdge {
		b.popref(2)
		return nilEdge
	}
	res := b.makenode(level, low, high)
	b.popref(2)
	return b.setapply(left, right, res)
}

// Ite, short for if-then-else operator, computes the diagram for the
// expression [(f /\ g) \/ (not f /\ h)] more efficiently than doing the three
// operations separately. The condition f must be a Boolean diagram. When g or
// h is numeric, the result is a numeric diagram where Boolean branches are
// read as 0/1 diagrams.
func (b *Manager) Ite(f, g, h Node) Node {
	if err := b.checkptr(f); err != nil {
		return b.seterror(err, "wrong operand in call to Ite (f)")
	}
	if err := b.checkptr(g); err != nil {
		return b.seterror(err, "wrong operand in call to Ite (g)")
	}
	if err := b.checkptr(h); err != nil {
		return b.seterror(err, "wrong operand in call to Ite (h)")
	}
	if b.isnumeric(f.e) {
		return b.seterror(ErrInvalidArgument, "numeric condition in call to Ite")
	}
	b.initref()
	b.pushref(f.e)
	ge, he := g.e, h.e
	if b.isnumeric(ge) || b.isnumeric(he) {
		b.misccache.id = cacheid_TOADD
		ge = b.pushref(b.toadd(ge))
		he = b.pushref(b.toadd(he))
	} else {
		b.pushref(ge)
		b.pushref(he)
	}
	if ge == nilEdge || he == nilEdge {
		b.initref()
		return nil
	}
	res := b.ite(f.e, ge, he)
	b.initref()
	return b.retnode(res)
}

// min3 returns the smallest value between p, q and r. This is used in function
// ite to compute the smallest level.
func min3(p, q, r int32) int32 {
	if p <= q {
		if p <= r { // p <= q && p <= r
			return p
		}
		return r // r < p <= q
	}
	if q <= r { // q < p && q <= r
		return q
	}
	return r // r < q < p
}

// ite is the recursive part of Ite. Operands g and h are either both Boolean
// or both numeric.
func (b *Manager) ite(f, g, h Edge) Edge {
	switch {
	case f == trueEdge:
		return g
	case f == falseEdge:
		return h
	case g == h:
		return g
	case (g == trueEdge) && (h == falseEdge):
		return f
	case (g == falseEdge) && (h == trueEdge):
		return f ^ 1
	case g == h^1:
		// g and h are Boolean and complementary
		oldop := b.applycache.op
		b.applycache.op = OPbiimp
		res := b.apply(f, g)
		b.applycache.op = oldop
		return res
	}
	// we check for possible errors
	if f == nilEdge || g == nilEdge || h == nilEdge {
		if _DEBUG {
			b.log.Panicf("panic in ite(%d,%d,%d)", f, g, h)
		}
		return nilEdge
	}
	if res := b.matchite(f, g, h); res != nilEdge {
		return res
	}
	level := min3(b.level(f), b.level(g), b.level(h))
	f0, f1 := b.cofactors(f, level)
	g0, g1 := b.cofactors(g, level)
	h0, h1 := b.cofactors(h, level)
	low := b.pushref(b.ite(f0, g0, h0))
	high := b.pushref(b.ite(f1, g1, h1))
	if low == nilEdge || high == nilEdge {
		b.popref(2)
		return nilEdge
	}
	res := b.makenode(level, low, high)
	b.popref(2)
	return b.setite(f, g, h, res)
}

// Exist returns the existential quantification of n for the variables in
// varset, where varset is a node built with a method such as Makeset. We return
// nil and set the error flag in b if there is an error.
func (b *Manager) Exist(n, varset Node) Node {
	return b.Quantify(n, varset, OPor)
}

// Forall returns the universal quantification of n for the variables in
// varset, where varset is a node built with a method such as Makeset.
func (b *Manager) Forall(n, varset Node) Node {
	return b.Quantify(n, varset, OPand)
}

// Unique returns the unique quantification of n for the variables in varset,
// that is the assignments where exactly one of the cofactors holds.
func (b *Manager) Unique(n, varset Node) Node {
	return b.Quantify(n, varset, OPxor)
}

// Quantify abstracts the variables in varset from n, combining the two
// cofactors of each abstracted variable with operator op. With OPor, OPand or
// OPxor this is the existential, universal or unique quantification of a
// Boolean diagram. With a commutative numeric operator, such as OPplus, OPmax or
// OPmin, this is the sum (resp. max, min) abstraction of a numeric diagram;
// in this case a variable of varset that does not occur in n still counts, so
// that summing a constant c over k variables gives c * 2^k.
//
// Like with other operations, varset must be a cube built with Makeset; this
// is not checked.
func (b *Manager) Quantify(n, varset Node, op Operator) Node {
	if err := b.checkptr(n); err != nil {
		return b.seterror(err, "wrong node in call to Quantify")
	}
	if err := b.checkptr(varset); err != nil {
		return b.seterror(err, "wrong varset in call to Quantify")
	}
	if b.isnumeric(varset.e) || varset.e.complemented() && varset.e != falseEdge {
		return b.seterror(ErrInvalidArgument, "varset in call to Quantify is not a cube")
	}
	switch {
	case op == OPor || op == OPand || op == OPxor:
		if b.isnumeric(n.e) {
			return b.seterror(ErrInvalidArgument, "numeric diagram in call to Quantify(%s)", op)
		}
		if err := b.quantset2cache(varset.e); err != nil {
			return nil
		}
		if varset.e == trueEdge { // we have an empty set
			return n
		}
		id := cacheid_EXIST
		switch op {
		case OPand:
			id = cacheid_FORALL
		case OPxor:
			id = cacheid_UNIQUE
		}
		b.quantcache.id = (int(varset.e) << 3) | id
		b.applycache.op = op
		b.initref()
		b.pushref(n.e)
		b.pushref(varset.e)
		res := b.quant(n.e, varset.e)
		b.popref(2)
		return b.retnode(res)
	case b.validop(op) && !op.boolean() && b.commutative(op):
		return b.abstract(n.e, varset.e, op)
	}
	return b.seterror(ErrInvalidArgument, "operator %s not supported in call to Quantify", op)
}

func (b *Manager) quant(n, varset Edge) Edge {
	if b.isleaf(n) || (b.level(n) > b.quantlast) {
		return n
	}
	if res := b.matchquant(n); res != nilEdge {
		return res
	}
	low := b.pushref(b.quant(b.low(n), varset))
	high := b.pushref(b.quant(b.high(n), varset))
	if low == nilEdge || high == nilEdge {
		b.popref(2)
		return nilEdge
	}
	var res Edge
	if b.quantset[b.level(n)] == b.quantsetID {
		res = b.apply(low, high)
	} else {
		res = b.makenode(b.level(n), low, high)
	}
	b.popref(2)
	return b.setquant(n, res)
}

// AppEx applies the binary operator *op* on the two operands left and right
// then performs an existential quantification over the variables in varset.
// This is done in a bottom up manner such that both the apply and
// quantification is done on the lower nodes before stepping up to the higher
// nodes. This makes AppEx much more efficient than an apply operation followed
// by a quantification. Note that, when *op* is a conjunction, this operation
// returns the relational product of two diagrams.
func (b *Manager) AppEx(left Node, right Node, op Operator, varset Node) Node {
	if op != OPand && op != OPxor && op != OPor && op != OPnand {
		return b.seterror(ErrInvalidArgument, "operator %s not supported in call to AppEx", op)
	}
	if err := b.checkptr(varset); err != nil {
		return b.seterror(err, "wrong varset in call to AppEx")
	}
	if varset.e == trueEdge { // we have an empty set
		return b.Apply(left, right, op)
	}
	if err := b.checkptr(left); err != nil {
		return b.seterror(err, "wrong operand in call to AppEx %s(left)", op)
	}
	if err := b.checkptr(right); err != nil {
		return b.seterror(err, "wrong operand in call to AppEx %s(right)", op)
	}
	if b.isnumeric(left.e) || b.isnumeric(right.e) || b.isnumeric(varset.e) {
		return b.seterror(ErrInvalidArgument, "numeric diagram in call to AppEx")
	}
	if err := b.quantset2cache(varset.e); err != nil {
		return nil
	}

	b.applycache.op = OPor
	b.appexcache.op = op
	b.appexcache.id = (int(varset.e) << 2) | int(op)
	b.quantcache.id = (b.appexcache.id << 3) | cacheid_APPEX
	b.initref()
	b.pushref(left.e)
	b.pushref(right.e)
	b.pushref(varset.e)
	res := b.appquant(left.e, right.e, varset.e)
	b.popref(3)
	return b.retnode(res)
}

func (b *Manager) appquant(left, right, varset Edge) Edge {
	switch b.appexcache.op {
	case OPand:
		switch {
		case left == falseEdge, right == falseEdge, left == right^1:
			return falseEdge
		case left == right:
			return b.quant(left, varset)
		case left == trueEdge:
			return b.quant(right, varset)
		case right == trueEdge:
			return b.quant(left, varset)
		}
	case OPor:
		switch {
		case left == trueEdge, right == trueEdge, left == right^1:
			return trueEdge
		case left == right:
			return b.quant(left, varset)
		case left == falseEdge:
			return b.quant(right, varset)
		case right == falseEdge:
			return b.quant(left, varset)
		}
	case OPxor:
		switch {
		case left == right:
			return falseEdge
		case left == falseEdge:
			return b.quant(right, varset)
		case right == falseEdge:
			return b.quant(left, varset)
		}
	case OPnand:
		if left == falseEdge || right == falseEdge {
			return trueEdge
		}
	default:
		b.seterror(ErrInvalidArgument, "unauthorized operation (%s) in AppEx", b.appexcache.op)
		return nilEdge
	}

	// we check for errors
	if left == nilEdge || right == nilEdge {
		return nilEdge
	}

	// we deal with the other cases when the two operands are constants
	if b.isleaf(left) && b.isleaf(right) {
		return bool2edge(opres[b.appexcache.op][edge2bool(left)][edge2bool(right)])
	}

	// and the case where we have no more variables to quantify
	if (b.level(left) > b.quantlast) && (b.level(right) > b.quantlast) {
		oldop := b.applycache.op
		b.applycache.op = b.appexcache.op
		res := b.apply(left, right)
		b.applycache.op = oldop
		return res
	}

	// next we check if the operation is already in our cache
	if res := b.matchappex(left, right); res != nilEdge {
		return res
	}
	level := min(b.level(left), b.level(right))
	l0, l1 := b.cofactors(left, level)
	r0, r1 := b.cofactors(right, level)
	low := b.pushref(b.appquant(l0, r0, varset))
	high := b.pushref(b.appquant(l1, r1, varset))
	if low == nilEdge || high == nilEdge {
		b.popref(2)
		return nilEdge
	}
	var res Edge
	if b.quantset[level] == b.quantsetID {
		res = b.apply(low, high)
	} else {
		res = b.makenode(level, low, high)
	}
	b.popref(2)
	return b.setappex(left, right, res)
}

// Satcount computes the number of satisfying variable assignments for the
// function denoted by n. For a numeric diagram, we count the assignments with
// a non-zero value. We return a result using arbitrary-precision arithmetic to
// avoid possible overflows. The result is zero (and we set the error flag of b)
// if there is an error.
func (b *Manager) Satcount(n Node) *big.Int {
	res := big.NewInt(0)
	if err := b.checkptr(n); err != nil {
		b.seterror(err, "wrong operand in call to Satcount")
		return res
	}
	// We compute 2^level with a bit shift 1 << level
	res.SetBit(res, int(b.satlevel(n.e)), 1)
	satc := make(map[Edge]*big.Int)
	return res.Mul(res, b.satcount(n.e, satc))
}

// satlevel returns the level of e, where leaves are at level varnum.
func (b *Manager) satlevel(e Edge) int32 {
	if b.isleaf(e) {
		return b.varnum
	}
	return b.level(e)
}

// satcount returns the number of satisfying assignments of e over the
// variables between the level of e and varnum.
func (b *Manager) satcount(e Edge, satc map[Edge]*big.Int) *big.Int {
	if b.isleaf(e) {
		if b.value(e) != 0 {
			return big.NewInt(1)
		}
		return big.NewInt(0)
	}
	// we use satc to memoize the value of satcount for each nodes
	res, ok := satc[e]
	if ok {
		return res
	}
	level := b.level(e)
	if e.complemented() {
		res = big.NewInt(0)
		res.SetBit(res, int(b.varnum-level), 1)
		res.Sub(res, b.satcount(e^1, satc))
		satc[e] = res
		return res
	}
	low := b.low(e)
	high := b.high(e)
	res = big.NewInt(0)
	two := big.NewInt(0)
	two.SetBit(two, int(b.satlevel(low)-level-1), 1)
	res.Add(res, two.Mul(two, b.satcount(low, satc)))
	two = big.NewInt(0)
	two.SetBit(two, int(b.satlevel(high)-level-1), 1)
	res.Add(res, two.Mul(two, b.satcount(high, satc)))
	satc[e] = res
	return res
}

// Allsat Iterates through all legal variable assignments for n and calls the
// function f on each of them. We pass an int slice of length varnum to f where
// each entry is either  0 if the variable is false, 1 if it is true, and -1 if
// it is a don't care. For numeric diagrams, we iterate through the assignments
// with a non-zero value. We stop and return an error if f returns an error at
// some point.
//
// The following is an example of a callback handler that counts the number of
// possible assignments (such that we do not count don't care twice):
//
//	acc := new(int)
//	b.Allsat(n, func(varset []int) error {
//		*acc++
//		return nil
//	})
func (b *Manager) Allsat(n Node, f func([]int) error) error {
	if err := b.checkptr(n); err != nil {
		return errors.Wrap(err, "wrong node in call to Allsat")
	}
	prof := make([]int, b.varnum)
	for k := range prof {
		prof[k] = -1
	}
	// the function does not create new nodes, so we do not need to take care of
	// possible resizing
	return b.allsat(n.e, prof, f)
}

func (b *Manager) allsat(n Edge, prof []int, f func([]int) error) error {
	if b.isleaf(n) {
		if b.value(n) != 0 {
			return f(prof)
		}
		return nil
	}
	level := b.level(n)
	for k, child := range [2]Edge{b.low(n), b.high(n)} {
		if b.isleaf(child) && b.value(child) == 0 {
			continue
		}
		prof[level] = k
		for v := b.satlevel(child) - 1; v > level; v-- {
			prof[v] = -1
		}
		if err := b.allsat(child, prof, f); err != nil {
			return err
		}
	}
	return nil
}

// Allnodes applies function f over all the nodes accessible from the nodes in
// the sequence n..., or all the active nodes if n is absent. The parameters to
// function f are the index, level, and the edges to the low and high
// successors of each node, where the lowest bit of an edge is set when the
// edge is complemented. Leaves have level Varnum and both of their successors
// equal to their own edge. The constant one is the leaf with index 0.
//
// The order in which nodes are visited is not specified. The behavior is very
// similar to the one of Allsat. In particular, we stop the computation and
// return an error if f returns an error at some point.
func (b *Manager) Allnodes(f func(id, level, low, high int) error, n ...Node) error {
	for _, v := range n {
		if err := b.checkptr(v); err != nil {
			return errors.Wrap(err, "wrong node in call to Allnodes")
		}
	}
	// the function does not create new nodes, so we do not need to take care of
	// possible resizing.
	if len(n) == 0 {
		return b.allnodes(f, func(k int) bool { return b.nodes[k].low != nilEdge })
	}
	for _, v := range n {
		b.markrec(v.e.index())
	}
	return b.allnodes(f, func(k int) bool {
		if b.nodes[k].low == nilEdge || !b.ismarked(int32(k)) {
			return false
		}
		b.unmarknode(int32(k))
		return true
	})
}

func (b *Manager) allnodes(f func(id, level, low, high int) error, keep func(int) bool) error {
	var err error
	for k := range b.nodes {
		if !keep(k) || err != nil {
			continue
		}
		if b.nodes[k].level&_LEVELMASK == _LEAFLEVEL {
			err = f(k, int(b.varnum), k<<1, k<<1)
			continue
		}
		err = f(k, int(b.nodes[k].level&_LEVELMASK), int(b.nodes[k].low), int(b.nodes[k].high))
	}
	return err
}
