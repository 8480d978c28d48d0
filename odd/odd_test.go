// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package odd

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/dalzilio/mtrudd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fivestates returns the set {000, 011, 101, 110, 111} over variables x0, x1
// and x2, with x0 as most significant bit.
func fivestates(t *testing.T) (*mtrudd.Manager, mtrudd.Node) {
	bdd, err := mtrudd.New(4)
	require.NoError(t, err)
	x0, x1, x2 := bdd.Ithvar(0), bdd.Ithvar(1), bdd.Ithvar(2)
	reach := bdd.Or(
		bdd.And(bdd.Not(x0), bdd.Not(x1), bdd.Not(x2)),
		bdd.And(bdd.Not(x0), x1, x2),
		bdd.And(x0, bdd.Not(x1), x2),
		bdd.And(x0, x1))
	require.False(t, bdd.Errored(), bdd.Error())
	return bdd, reach
}

func TestIndexOf(t *testing.T) {
	bdd, reach := fivestates(t)
	o, err := Build(bdd, reach, []int{0, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, 5, o.Size())

	tests := []struct {
		valuation []bool
		index     int
		ok        bool
	}{
		{[]bool{false, false, false}, 0, true},
		{[]bool{false, true, true}, 1, true},
		{[]bool{true, false, true}, 2, true},
		{[]bool{true, true, false}, 3, true},
		{[]bool{true, true, true}, 4, true},
		{[]bool{false, false, true}, 0, false},
		{[]bool{true, false, false}, 0, false},
		{[]bool{true, true}, 0, false},
	}
	for _, tt := range tests {
		idx, ok := o.IndexOf(tt.valuation)
		assert.Equal(t, tt.ok, ok, "IndexOf(%v)", tt.valuation)
		if tt.ok {
			assert.Equal(t, tt.index, idx, "IndexOf(%v)", tt.valuation)
		}
	}
	_, err = o.ValuationOf(5)
	assert.True(t, errors.Is(err, mtrudd.ErrInvalidArgument))
	a, err := o.Assignment(2)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true, false}, a)
}

func TestRoundTrip(t *testing.T) {
	const nvars = 7
	bdd, err := mtrudd.New(nvars)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(17))
	vars := []int{0, 1, 2, 3, 4, 5, 6}
	for round := 0; round < 20; round++ {
		reach := bdd.False()
		for k := 0; k < 30; k++ {
			cube := bdd.True()
			for _, v := range vars {
				switch rng.Intn(3) {
				case 0:
					cube = bdd.And(cube, bdd.Ithvar(v))
				case 1:
					cube = bdd.And(cube, bdd.NIthvar(v))
				}
			}
			reach = bdd.Or(reach, cube)
		}
		o, err := Build(bdd, reach, vars)
		require.NoError(t, err)
		assert.Equal(t, bdd.Satcount(reach).Int64(), int64(o.Size()))
		for i := 0; i < o.Size(); i++ {
			v, err := o.ValuationOf(i)
			require.NoError(t, err)
			j, ok := o.IndexOf(v)
			require.True(t, ok)
			assert.Equal(t, i, j)
			a, err := o.Assignment(i)
			require.NoError(t, err)
			val, err := bdd.Eval(reach, a)
			require.NoError(t, err)
			assert.Equal(t, 1.0, val, "state %d is not in the set", i)
		}
		// indices follow the lexicographic order of valuations
		prev := -1
		for k := 0; k < 1<<nvars; k++ {
			v := make([]bool, nvars)
			for b := range v {
				v[b] = k&(1<<(nvars-1-b)) != 0
			}
			if idx, ok := o.IndexOf(v); ok {
				assert.Equal(t, prev+1, idx)
				prev = idx
			}
		}
		assert.Equal(t, o.Size()-1, prev)
	}
}

func TestSharing(t *testing.T) {
	bdd, err := mtrudd.New(20)
	require.NoError(t, err)
	vars := make([]int, 20)
	for k := range vars {
		vars[k] = k
	}
	o, err := Build(bdd, bdd.True(), vars)
	require.NoError(t, err)
	assert.Equal(t, 1<<20, o.Size())
	seen := make(map[*Node]bool)
	var count func(n *Node)
	count = func(n *Node) {
		if n == nil || seen[n] {
			return
		}
		seen[n] = true
		count(n.Low)
		count(n.High)
	}
	count(o.Root())
	assert.Equal(t, 20, len(seen))
}

func TestVectors(t *testing.T) {
	bdd, reach := fivestates(t)
	o, err := Build(bdd, reach, []int{0, 1, 2})
	require.NoError(t, err)
	x0, x1, x2 := bdd.Ithvar(0), bdd.Ithvar(1), bdd.Ithvar(2)

	// f = x0 + 2*x2
	f := bdd.Plus(bdd.ToADD(x0), bdd.Times(bdd.Constant(2), bdd.ToADD(x2)))
	vec, err := o.ToVector(f)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 2, 3, 1, 3}, vec)

	g, err := o.FromVector(vec)
	require.NoError(t, err)
	assert.Equal(t, bdd.Times(f, bdd.ToADD(reach)), g)
	back, err := o.ToVector(g)
	require.NoError(t, err)
	assert.Equal(t, vec, back)

	states, err := o.ToVector(reach)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1, 1, 1}, states)

	big, err := o.Filter(vec, func(v float64) bool { return v > 2 })
	require.NoError(t, err)
	assert.Equal(t, bdd.And(x0, x2), big)

	ends, err := o.BDDOf([]int{0, 4})
	require.NoError(t, err)
	assert.Equal(t, bdd.Or(bdd.And(bdd.Not(x0), bdd.Not(x1), bdd.Not(x2)), bdd.And(x0, x1, x2)), ends)

	all, err := o.Mask([]bool{true, true, true, true, true})
	require.NoError(t, err)
	assert.Equal(t, reach, all)

	none, err := o.BDDOf(nil)
	require.NoError(t, err)
	assert.Equal(t, bdd.False(), none)
}

func TestErrors(t *testing.T) {
	bdd, reach := fivestates(t)
	_, err := Build(bdd, reach, []int{0, 2, 1})
	assert.True(t, errors.Is(err, mtrudd.ErrInvalidArgument), "variables out of order")
	_, err = Build(bdd, reach, []int{0, 1, 7})
	assert.True(t, errors.Is(err, mtrudd.ErrInvalidArgument), "variable out of range")
	_, err = Build(bdd, reach, []int{0, 1})
	assert.True(t, errors.Is(err, mtrudd.ErrInvalidArgument), "missing variable")

	o, err := Build(bdd, reach, []int{0, 1, 2})
	require.NoError(t, err)
	_, err = o.ToVector(bdd.And(reach, bdd.Ithvar(3)))
	assert.True(t, errors.Is(err, mtrudd.ErrInvalidArgument), "vector over a variable not in the ODD")
	_, err = o.FromVector([]float64{1, 2})
	assert.True(t, errors.Is(err, mtrudd.ErrInvalidArgument))
	_, err = o.BDDOf([]int{5})
	assert.True(t, errors.Is(err, mtrudd.ErrInvalidArgument))
}

func TestEmptyVars(t *testing.T) {
	bdd, err := mtrudd.New(2)
	require.NoError(t, err)
	o, err := Build(bdd, bdd.True(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, o.Size())
	idx, ok := o.IndexOf([]bool{})
	assert.True(t, ok)
	assert.Equal(t, 0, idx)
	vec, err := o.ToVector(bdd.Constant(0.5))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5}, vec)

	o, err = Build(bdd, bdd.False(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, o.Size())
}
