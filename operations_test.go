// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package mtrudd

import (
	"fmt"
	"math"
	"math/big"
	"math/rand"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//********************************************************************************************

func TestMinus(t *testing.T) {
	var minusTests = []struct {
		p, q, r  int32
		expected int32
	}{
		{3, 2, 3, 2},
		{4, 4, 4, 4},
		{2, 3, 3, 2},
		{3, 2, 2, 2},
		{3, 3, 2, 2},
		{1, 2, 3, 1},
	}
	for _, tt := range minusTests {
		actual := min3(tt.p, tt.q, tt.r)
		if actual != tt.expected {
			t.Errorf("minus3(%d, %d, %d): expected %d, actual %d", tt.p, tt.q, tt.r, tt.expected, actual)
		}
	}
}

//********************************************************************************************

func TestIte_1(t *testing.T) {
	bdd, err := New(4, Nodesize(5000), Cachesize(50))
	require.NoError(t, err)
	n1 := bdd.Makeset([]int{0, 2, 3})
	n2 := bdd.Makeset([]int{0, 3})
	actual := bdd.Equiv(bdd.Ite(n1, n2, bdd.Not(n2)), bdd.Or(bdd.And(n1, n2), bdd.And(bdd.Not(n1), bdd.Not(n2))))
	assert.Equal(t, bdd.True(), actual, "ite(f,g,h) <=> (f or g) and (-f or h)")
	assert.False(t, bdd.Errored())
}

func TestIteNumeric(t *testing.T) {
	bdd, _ := New(2)
	f := bdd.Ithvar(0)
	res := bdd.Ite(f, bdd.Constant(0.25), bdd.Ithvar(1))
	require.NotNil(t, res)
	assert.True(t, bdd.IsNumeric(res))
	for _, tt := range []struct {
		x, y     bool
		expected float64
	}{
		{true, false, 0.25},
		{true, true, 0.25},
		{false, true, 1},
		{false, false, 0},
	} {
		v, err := bdd.Eval(res, []bool{tt.x, tt.y})
		require.NoError(t, err)
		assert.Equal(t, tt.expected, v, "ite(x0, 0.25, x1) on (%v, %v)", tt.x, tt.y)
	}
	assert.Nil(t, bdd.Ite(bdd.Constant(2), f, f), "numeric condition")
	assert.True(t, errors.Is(bdd.Err(), ErrInvalidArgument))
}

//********************************************************************************************

// TestOperations implements the same tests than the bddtest program in the
// Buddy distribution. It uses function Allsat for checking that all assignments
// are detected.
func TestOperations(t *testing.T) {
	bdd, _ := New(4, Nodesize(1000), Cachesize(1000))
	varnum := 4

	test1_check := func(x Node) {
		allsatBDD := x
		allsatSumBDD := bdd.False()
		// Calculate whole set of asignments and remove all assignments
		// from original set
		err := bdd.Allsat(x, func(varset []int) error {
			x := bdd.True()
			for k, v := range varset {
				switch v {
				case 0:
					x = bdd.And(x, bdd.NIthvar(k))
				case 1:
					x = bdd.And(x, bdd.Ithvar(k))
				}
			}
			// Sum up all assignments
			allsatSumBDD = bdd.Or(allsatSumBDD, x)
			// Remove assignment from initial set
			allsatBDD = bdd.Apply(allsatBDD, x, OPdiff)
			return nil
		})
		require.NoError(t, err)
		// Now the summed set should be equal to the original set and the
		// subtracted set should be empty
		assert.True(t, bdd.Equal(allsatSumBDD, x), "AllSat sum is not the initial BDD")
		assert.True(t, bdd.Equal(allsatBDD, bdd.False()), "AllSat is not False")
	}

	a := bdd.Ithvar(0)
	b := bdd.Ithvar(1)
	c := bdd.Ithvar(2)
	d := bdd.Ithvar(3)
	na := bdd.NIthvar(0)
	nb := bdd.NIthvar(1)
	nc := bdd.NIthvar(2)
	nd := bdd.NIthvar(3)

	test1_check(bdd.True())
	test1_check(bdd.False())
	// a & b | !a & !b
	test1_check(bdd.Or(bdd.And(a, b), bdd.And(na, nb)))
	// a & b | c & d
	test1_check(bdd.Or(bdd.And(a, b), bdd.And(c, d)))
	// a & !b | a & !d | a & b & !c
	test1_check(bdd.Or(bdd.And(a, nb), bdd.And(a, nd), bdd.And(a, b, nc)))

	for i := 0; i < varnum; i++ {
		test1_check(bdd.Ithvar(i))
		test1_check(bdd.NIthvar(i))
	}

	r := rand.New(rand.NewSource(42))
	set := bdd.True()
	for i := 0; i < 50; i++ {
		v := r.Intn(varnum)
		if r.Intn(2) == 0 {
			set = bdd.Or(set, bdd.Ithvar(v))
		} else {
			set = bdd.And(set, bdd.NIthvar(v))
		}
		test1_check(set)
	}
	assert.False(t, bdd.Errored(), bdd.Error())
}

// TestTruthTables checks every Boolean operator against its truth table on
// the four assignments of two variables.
func TestTruthTables(t *testing.T) {
	bdd, _ := New(2)
	x, y := bdd.Ithvar(0), bdd.Ithvar(1)
	for op := OPand; op <= OPinvimp; op++ {
		res := bdd.Apply(x, y, op)
		require.NotNil(t, res, "operator %s", op)
		for vx := 0; vx < 2; vx++ {
			for vy := 0; vy < 2; vy++ {
				v, err := bdd.Eval(res, []bool{vx == 1, vy == 1})
				require.NoError(t, err)
				assert.Equal(t, float64(opres[op][vx][vy]), v, "%s(%d, %d)", op, vx, vy)
			}
		}
		// the same operator with complemented operands
		nres := bdd.Apply(bdd.Not(x), y, op)
		v, _ := bdd.Eval(nres, []bool{false, true})
		assert.Equal(t, float64(opres[op][1][1]), v, "%s(~0, 1)", op)
	}
}

func TestComplementEdges(t *testing.T) {
	bdd, _ := New(3)
	x, y := bdd.Ithvar(0), bdd.Ithvar(1)
	f := bdd.Or(x, y)
	assert.Equal(t, f, bdd.Not(bdd.Not(f)))
	assert.Equal(t, bdd.False(), bdd.And(f, bdd.Not(f)))
	assert.Equal(t, bdd.True(), bdd.Or(f, bdd.Not(f)))
	// De Morgan: both sides must give the same Node
	assert.Equal(t, bdd.Not(bdd.And(x, y)), bdd.Or(bdd.Not(x), bdd.Not(y)))
	assert.Equal(t, bdd.NIthvar(2), bdd.Not(bdd.Ithvar(2)))
	// negation does not create nodes
	assert.Equal(t, bdd.Nodecount(f), bdd.Nodecount(bdd.Not(f)))
	assert.Nil(t, bdd.Not(bdd.Constant(3)))
	assert.True(t, errors.Is(bdd.Err(), ErrInvalidArgument))
}

func TestSatcount(t *testing.T) {
	bdd, _ := New(5)
	x, y := bdd.Ithvar(0), bdd.Ithvar(3)
	assert.Equal(t, big.NewInt(32), bdd.Satcount(bdd.True()))
	assert.Equal(t, big.NewInt(0), bdd.Satcount(bdd.False()))
	assert.Equal(t, big.NewInt(16), bdd.Satcount(x))
	assert.Equal(t, big.NewInt(24), bdd.Satcount(bdd.Or(x, y)))
	assert.Equal(t, big.NewInt(8), bdd.Satcount(bdd.Not(bdd.Or(x, y))))
	// numeric diagrams count non-zero assignments
	n := bdd.Times(bdd.Constant(0.5), bdd.Or(x, y))
	assert.Equal(t, big.NewInt(24), bdd.Satcount(n))
}

//********************************************************************************************

func TestQuantification(t *testing.T) {
	bdd, _ := New(4)
	a, b, c := bdd.Ithvar(0), bdd.Ithvar(1), bdd.Ithvar(2)
	f := bdd.Or(bdd.And(a, b), bdd.And(bdd.Not(a), c))
	set := bdd.Makeset([]int{0})
	assert.Equal(t, bdd.Or(b, c), bdd.Exist(f, set))
	assert.Equal(t, bdd.And(b, c), bdd.Forall(f, set))
	assert.Equal(t, bdd.Apply(b, c, OPxor), bdd.Unique(f, set))
	assert.Equal(t, []int{0}, bdd.Scanset(set))
	assert.Equal(t, []int{0, 1, 2}, bdd.Scanset(bdd.Support(f)))
	// quantifying over an empty set is the identity
	assert.Equal(t, f, bdd.Exist(f, bdd.True()))
	// AppEx computes the same result than an apply followed by Exist
	g := bdd.Or(bdd.Not(b), c)
	vars := bdd.Makeset([]int{1, 2})
	for _, op := range []Operator{OPand, OPor, OPxor, OPnand} {
		expected := bdd.Exist(bdd.Apply(f, g, op), vars)
		assert.Equal(t, expected, bdd.AppEx(f, g, op, vars), "AppEx with %s", op)
	}
	assert.Nil(t, bdd.AppEx(f, g, OPimp, vars))
	assert.True(t, bdd.Errored())
}

func TestAbstraction(t *testing.T) {
	bdd, _ := New(4)
	x0, x1 := bdd.Ithvar(0), bdd.Ithvar(1)
	// f = 0.2 on x0, 0.5 on ~x0 & x1, 0 otherwise
	f := bdd.Plus(bdd.Times(bdd.Constant(0.2), x0), bdd.Times(bdd.Constant(0.5), bdd.And(bdd.Not(x0), x1)))
	set := bdd.Makeset([]int{0, 1})
	sum, _ := bdd.Value(bdd.SumAbstract(f, set))
	assert.InDelta(t, 0.9, sum, 1e-12)
	vmax, _ := bdd.Value(bdd.MaxAbstract(f, set))
	assert.Equal(t, 0.5, vmax)
	vmin, _ := bdd.Value(bdd.MinAbstract(f, set))
	assert.Equal(t, 0.0, vmin)
	// a variable that does not occur still counts in a sum
	c := bdd.SumAbstract(bdd.Constant(1.5), bdd.Makeset([]int{1, 2, 3}))
	v, ok := bdd.Value(c)
	require.True(t, ok)
	assert.Equal(t, 12.0, v)
	// partial abstraction keeps the other variables
	p := bdd.SumAbstract(f, bdd.Makeset([]int{1}))
	v0, _ := bdd.Eval(p, []bool{false, false, false, false})
	v1, _ := bdd.Eval(p, []bool{true, false, false, false})
	assert.InDelta(t, 0.5, v0, 1e-12)
	assert.InDelta(t, 0.4, v1, 1e-12)
}

//********************************************************************************************

func TestNumericApply(t *testing.T) {
	bdd, _ := New(2)
	x := bdd.Ithvar(0)
	f := bdd.Ite(x, bdd.Constant(3), bdd.Constant(1))
	g := bdd.Ite(bdd.Ithvar(1), bdd.Constant(2), bdd.Zero())
	tests := []struct {
		op       Operator
		expected [4]float64 // (x0, x1) = 00, 01, 10, 11
	}{
		{OPplus, [4]float64{1, 3, 3, 5}},
		{OPminus, [4]float64{1, -1, 3, 1}},
		{OPtimes, [4]float64{0, 2, 0, 6}},
		{OPdivide, [4]float64{math.Inf(1), 0.5, math.Inf(1), 1.5}},
		{OPmin, [4]float64{0, 1, 0, 2}},
		{OPmax, [4]float64{1, 2, 3, 3}},
		{OPeq, [4]float64{0, 0, 0, 0}},
		{OPneq, [4]float64{1, 1, 1, 1}},
		{OPgreater, [4]float64{1, 0, 1, 1}},
		{OPgeq, [4]float64{1, 0, 1, 1}},
	}
	for _, tt := range tests {
		res := bdd.Apply(f, g, tt.op)
		require.NotNil(t, res, "operator %s: %s", tt.op, bdd.Error())
		for k := 0; k < 4; k++ {
			v, _ := bdd.Eval(res, []bool{k&2 != 0, k&1 != 0})
			assert.Equal(t, tt.expected[k], v, "%s on assignment %02b", tt.op, k)
		}
	}
	// 0/x is always 0
	v, _ := bdd.Value(bdd.Apply(bdd.Zero(), bdd.Zero(), OPdivide))
	assert.Equal(t, 0.0, v)
	// leaves are unique, and -0 is 0
	assert.Equal(t, bdd.Constant(0.5), bdd.Apply(bdd.Constant(0.25), bdd.Constant(0.25), OPplus))
	assert.Equal(t, bdd.Zero(), bdd.Constant(math.Copysign(0, -1)))
	assert.Equal(t, bdd.One(), bdd.True())
	assert.NotEqual(t, bdd.Zero(), bdd.False())
	assert.Equal(t, []float64{1, 3}, bdd.Leaves(f))
}

func TestLeafOperator(t *testing.T) {
	bdd, err := New(2, LeafOperator("hypot", math.Hypot, 0, true))
	require.NoError(t, err)
	op, ok := bdd.Operator("hypot")
	require.True(t, ok)
	_, ok = bdd.Operator("unknown")
	assert.False(t, ok)
	res := bdd.Apply(bdd.Ite(bdd.Ithvar(0), bdd.Constant(3), bdd.Zero()), bdd.Constant(4), op)
	v, _ := bdd.Eval(res, []bool{true, false})
	assert.Equal(t, 5.0, v)
	v, _ = bdd.Eval(res, []bool{false, false})
	assert.Equal(t, 4.0, v)
	assert.Nil(t, bdd.Apply(bdd.One(), bdd.One(), opcustom+5))
	assert.True(t, errors.Is(bdd.Err(), ErrInvalidArgument))
}

func TestConversions(t *testing.T) {
	bdd, _ := New(2)
	x0, x1 := bdd.Ithvar(0), bdd.Ithvar(1)
	f := bdd.Plus(bdd.Times(bdd.Constant(0.25), x0), bdd.Times(bdd.Constant(0.5), x1))
	assert.Equal(t, bdd.And(x0, x1), bdd.Threshold(f, 0.75))
	assert.Equal(t, x1, bdd.Threshold(f, 0.4))
	assert.Equal(t, bdd.Or(x0, x1), bdd.StrictThreshold(f, 0))
	assert.Equal(t, bdd.Or(x0, x1), bdd.NonZero(f))
	add := bdd.ToADD(bdd.Or(x0, x1))
	assert.True(t, bdd.IsNumeric(add))
	assert.Equal(t, bdd.Or(x0, x1), bdd.NonZero(add))
	assert.Equal(t, add, bdd.ToADD(add))
	// Boolean operators reject numeric operands
	assert.Nil(t, bdd.And(add, x0))
	assert.True(t, errors.Is(bdd.Err(), ErrInvalidArgument))
	bdd.ResetError()
	assert.Nil(t, bdd.Constant(math.NaN()))
	assert.True(t, errors.Is(bdd.Err(), ErrInvalidArgument))
	bdd.ResetError()
}

func TestZeroAndFalse(t *testing.T) {
	bdd, _ := New(1)
	assert.NotEqual(t, bdd.False(), bdd.Zero())
	assert.Equal(t, bdd.True(), bdd.One())
	assert.Equal(t, bdd.Zero(), bdd.Constant(0))
	assert.Equal(t, bdd.Zero(), bdd.Constant(math.Copysign(0, -1)))
	assert.Equal(t, bdd.Zero(), bdd.ToADD(bdd.False()))
	assert.Equal(t, bdd.False(), bdd.NonZero(bdd.Zero()))
	assert.Equal(t, bdd.False(), bdd.Threshold(bdd.Zero(), 0.5))
	assert.Equal(t, bdd.True(), bdd.Threshold(bdd.Zero(), 0))
	assert.True(t, bdd.IsNumeric(bdd.Zero()))
	assert.False(t, bdd.IsNumeric(bdd.False()))
	assert.Equal(t, bdd.Zero(), bdd.Times(bdd.Zero(), bdd.Constant(3)))
}

func TestMakeNode(t *testing.T) {
	bdd, _ := New(3)
	n := bdd.MakeNode(1, bdd.Constant(0.5), bdd.Constant(2))
	require.NotNil(t, n)
	assert.Equal(t, 1, bdd.Label(n))
	assert.Equal(t, bdd.Constant(0.5), bdd.Low(n))
	assert.Equal(t, bdd.Constant(2), bdd.High(n))
	// equal branches give the branch itself
	assert.Equal(t, bdd.Ithvar(2), bdd.MakeNode(0, bdd.Ithvar(2), bdd.Ithvar(2)))
	assert.Equal(t, bdd.Ithvar(1), bdd.MakeNode(1, bdd.False(), bdd.True()))
	assert.Nil(t, bdd.MakeNode(2, bdd.False(), bdd.Ithvar(1)))
	assert.True(t, bdd.Errored())
}

//********************************************************************************************

func TestReplace(t *testing.T) {
	bdd, _ := New(4)
	a, b, c, d := bdd.Ithvar(0), bdd.Ithvar(1), bdd.Ithvar(2), bdd.Ithvar(3)
	f := bdd.Or(bdd.And(a, bdd.Not(b)), c)
	r, err := bdd.NewReplacer([]int{0, 1, 2}, []int{1, 0, 3})
	require.NoError(t, err)
	assert.Equal(t, bdd.Or(bdd.And(b, bdd.Not(a)), d), bdd.Replace(f, r))
	// swapping twice gives back the initial diagram
	g := bdd.Permute(bdd.Permute(f, []int{0, 1}, []int{1, 0}), []int{0, 1}, []int{1, 0})
	assert.Equal(t, f, g)
	// numeric diagrams
	n := bdd.Ite(a, bdd.Constant(0.7), bdd.Constant(0.1))
	m := bdd.Permute(n, []int{0}, []int{3})
	assert.Equal(t, bdd.Ite(d, bdd.Constant(0.7), bdd.Constant(0.1)), m)

	_, err = bdd.NewReplacer([]int{0, 0}, []int{1, 2})
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	_, err = bdd.NewReplacer([]int{0}, []int{1, 2})
	assert.Error(t, err)
	_, err = bdd.NewReplacer([]int{5}, []int{1})
	assert.Error(t, err)
}

func TestImage(t *testing.T) {
	// a counter modulo 4 on two bits, with present variables 0, 2 and next
	// variables 1, 3
	bdd, _ := New(4)
	p0, n0, p1, n1 := bdd.Ithvar(0), bdd.Ithvar(1), bdd.Ithvar(2), bdd.Ithvar(3)
	trans := bdd.And(bdd.Equiv(n0, bdd.Not(p0)), bdd.Equiv(n1, bdd.Apply(p1, p0, OPxor)))
	rel := Relation{Trans: trans, Present: []int{0, 2}, Next: []int{1, 3}}
	zero := bdd.And(bdd.Not(p0), bdd.Not(p1))
	one := bdd.And(p0, bdd.Not(p1))
	three := bdd.And(p0, p1)
	assert.Equal(t, one, bdd.Post(zero, rel))
	assert.Equal(t, three, bdd.Pre(zero, rel))
	reach := bdd.Reachable(zero, rel)
	assert.Equal(t, big.NewInt(16), bdd.Satcount(reach))
	assert.Equal(t, reach, bdd.BackwardReachable(one, rel))
}

//********************************************************************************************

func TestErrors(t *testing.T) {
	_, err := New(-1)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	bdd, _ := New(2)
	assert.Nil(t, bdd.Ithvar(2))
	assert.True(t, errors.Is(bdd.Err(), ErrInvalidArgument))
	bdd.ResetError()
	assert.Nil(t, bdd.Apply(nil, bdd.True(), OPand))
	bdd.ResetError()
	other, _ := New(2)
	assert.Nil(t, bdd.And(other.Ithvar(0), bdd.Ithvar(0)))
	assert.Contains(t, bdd.Error(), "does not belong")
	bdd.ResetError()
	assert.Error(t, bdd.SetVarnum(1))
	bdd.ResetError()
	assert.NoError(t, bdd.ExtVarnum(2))
	assert.Equal(t, 4, bdd.Varnum())
	assert.NotNil(t, bdd.Ithvar(3))
}

func TestOutOfMemory(t *testing.T) {
	bdd, _ := New(8, Nodesize(20), Maxnodesize(100))
	// a numeric diagram with 256 distinct leaves
	res := bdd.Zero()
	for i := 0; i < 8 && res != nil; i++ {
		res = bdd.Plus(res, bdd.Times(bdd.Constant(math.Ldexp(1, i)), bdd.Ithvar(i)))
	}
	assert.Nil(t, res)
	assert.True(t, errors.Is(bdd.Err(), ErrOutOfMemory), bdd.Error())
}

func TestGarbageCollection(t *testing.T) {
	bdd, _ := New(10, Nodesize(50))
	keep := bdd.Or(bdd.Ithvar(0), bdd.Ithvar(9))
	for i := 0; i < 200; i++ {
		_ = bdd.Apply(bdd.Ithvar(i%10), bdd.Ithvar((i+3)%10), OPxor)
	}
	assert.Eventually(t, func() bool {
		runtime.GC()
		bdd.GC()
		return bdd.Statistics().Reclaimed > 0
	}, 2*time.Second, 10*time.Millisecond)
	// nodes still referenced survive collections
	assert.Equal(t, big.NewInt(768), bdd.Satcount(keep))
	assert.Equal(t, keep, bdd.Or(bdd.Ithvar(9), bdd.Ithvar(0)))
	assert.Contains(t, bdd.Stats(), "Varnum:     10")
}

func TestAllnodes(t *testing.T) {
	bdd, _ := New(3)
	f := bdd.Or(bdd.Ithvar(0), bdd.Ithvar(2))
	count := 0
	err := bdd.Allnodes(func(id, level, low, high int) error {
		count++
		return nil
	}, f)
	require.NoError(t, err)
	assert.Equal(t, bdd.Nodecount(f), count)
	err = bdd.Allnodes(func(id, level, low, high int) error {
		return fmt.Errorf("stop")
	})
	assert.EqualError(t, err, "stop")
}

func TestPrinters(t *testing.T) {
	bdd, _ := New(2)
	f := bdd.Times(bdd.ToADD(bdd.Ithvar(0)), bdd.Constant(3))
	var sb strings.Builder
	require.NoError(t, bdd.PrintDot(&sb, f))
	assert.True(t, strings.HasPrefix(sb.String(), "digraph G {"))
	assert.Contains(t, sb.String(), `label="3"`)

	sb.Reset()
	require.NoError(t, bdd.Print(&sb, bdd.Not(bdd.Ithvar(1))))
	assert.Contains(t, sb.String(), "node: ~")
	assert.Equal(t, "True", bdd.Sprint(bdd.True()))
	assert.Equal(t, "3", bdd.Sprint(bdd.Constant(3)))
	assert.Contains(t, bdd.Stats(), "Varnum:     2")
	assert.Error(t, bdd.PrintDot(&sb, nil))
}
