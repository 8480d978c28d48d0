// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package solver

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/dalzilio/mtrudd/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func explicit(t *testing.T, rows [][]sparse.Choice, options ...sparse.Option) *sparse.Matrix {
	m, err := sparse.FromExplicit(rows, options...)
	require.NoError(t, err)
	return m
}

func to(entries ...sparse.Entry) sparse.Choice {
	return sparse.Choice{Entries: entries}
}

func loop(s int) []sparse.Choice {
	return []sparse.Choice{to(sparse.Entry{State: s, Prob: 1})}
}

// chain is the two states DTMC where state 0 moves to state 1 with
// probability 1/2 and stays in place otherwise.
func chain(t *testing.T) *sparse.Matrix {
	return explicit(t, [][]sparse.Choice{
		{to(sparse.Entry{State: 0, Prob: 0.5}, sparse.Entry{State: 1, Prob: 0.5})},
		loop(1),
	})
}

// choice is the MDP where state 0 can move to state 1 (choice 0) or stay in
// place (choice 1).
func choice(t *testing.T) *sparse.Matrix {
	return explicit(t, [][]sparse.Choice{
		{to(sparse.Entry{State: 1, Prob: 1}), to(sparse.Entry{State: 0, Prob: 1})},
		loop(1),
	})
}

func TestDTMCReachability(t *testing.T) {
	m := chain(t)
	yes := []bool{false, true}
	for _, pre := range []bool{true, false} {
		for _, method := range []Method{Jacobi, GaussSeidel} {
			res, err := Until(context.Background(), m, yes, nil, Maximize(), WithPrecompute(pre), WithMethod(method))
			require.NoError(t, err)
			assert.Equal(t, Converged, res.Status)
			assert.InDelta(t, 1.0, res.Values[0], 1e-5)
			assert.Equal(t, 1.0, res.Values[1])
			assert.Greater(t, res.Iterations, 0)
			if pre {
				assert.Equal(t, 1.0, res.Values[0])
			}
		}
	}
	b, err := Interval(context.Background(), m, yes, nil, Maximize(), WithPrecompute(false))
	require.NoError(t, err)
	assert.True(t, b.Exact)
	assert.Equal(t, Converged, b.Status)
	assert.LessOrEqual(t, b.Gap(0), 1e-6)
}

func TestSchedulerSelection(t *testing.T) {
	m := choice(t)
	yes := []bool{false, true}
	ctx := context.Background()

	res, err := Until(ctx, m, yes, nil, Maximize())
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Values[0])
	assert.Equal(t, 0, res.Scheduler[0])

	res, err = Until(ctx, m, yes, nil, Minimize())
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Values[0])
	assert.Equal(t, 1, res.Scheduler[0])

	// without precomputation, the value 0 of the self loop is not a proof
	res, err = Until(ctx, m, yes, nil, Minimize(), WithPrecompute(false))
	require.NoError(t, err)
	assert.Equal(t, AtBound, res.Status)
	assert.False(t, res.Exact)
	assert.Equal(t, 0.0, res.Values[0])
	assert.Equal(t, 1, res.Scheduler[0])
	assert.Equal(t, "fixed point at bound", res.Status.String())

	res, err = Until(ctx, m, yes, nil, Minimize())
	require.NoError(t, err)
	assert.Equal(t, Converged, res.Status)
	assert.True(t, res.Exact)

	res, err = Until(ctx, m, yes, nil, Maximize(), WithPrecompute(false))
	require.NoError(t, err)
	assert.Equal(t, Converged, res.Status)
	assert.False(t, res.Exact)
	assert.Equal(t, 1.0, res.Values[0])

	// without precomputation, the bounds get stuck in the end component
	b, err := Interval(ctx, m, yes, nil, Minimize(), WithPrecompute(false))
	require.NoError(t, err)
	assert.Equal(t, Diverged, b.Status)
	assert.False(t, b.Exact)
	assert.False(t, b.Agree)
	assert.Equal(t, 0.0, b.Lower[0])
	assert.Equal(t, 1.0, b.Upper[0])
	assert.Equal(t, []bool{true, false}, b.Divergent(1e-6))

	b, err = Interval(ctx, m, yes, nil, Minimize())
	require.NoError(t, err)
	assert.Equal(t, Converged, b.Status)
	assert.True(t, b.Exact)
	assert.True(t, b.Agree)
	assert.Equal(t, 0.0, b.Upper[0])
	assert.Equal(t, 1, b.LowerScheduler[0])

	b, err = Interval(ctx, m, yes, nil, Maximize())
	require.NoError(t, err)
	assert.True(t, b.Exact)
	assert.Equal(t, 1.0, b.Lower[0])
	assert.Equal(t, 0, b.UpperScheduler[0])
}

// game returns a model where state 0 has two actions: action 0 with a choice
// to state 1 (yes) and a choice to state 2 (no), and action 1 with a single
// choice going to both with probability 1/2.
func game(t *testing.T) *sparse.Matrix {
	return explicit(t, [][]sparse.Choice{
		{
			{Action: 0, Entries: []sparse.Entry{{State: 1, Prob: 1}}},
			{Action: 0, Entries: []sparse.Entry{{State: 2, Prob: 1}}},
			{Action: 1, Entries: []sparse.Entry{{State: 1, Prob: 0.5}, {State: 2, Prob: 0.5}}},
		},
		loop(1),
		loop(2),
	})
}

func TestObjectives(t *testing.T) {
	m := game(t)
	yes := []bool{false, true, false}
	no := []bool{false, false, true}
	tests := []struct {
		obj   Objective
		value float64
		sched int
	}{
		{Maximize(), 1, 0},
		{Minimize(), 0, 1},
		{Objective{Outer: Max, Inner: Min}, 0.5, 2},
		{Objective{Outer: Min, Inner: Max}, 0.5, 2},
	}
	for _, tt := range tests {
		t.Run(tt.obj.String(), func(t *testing.T) {
			res, err := Until(context.Background(), m, yes, no, tt.obj)
			require.NoError(t, err)
			assert.Equal(t, tt.value, res.Values[0])
			assert.Equal(t, tt.sched, res.Scheduler[0])
		})
	}
	assert.Equal(t, "max/min", Objective{Outer: Max, Inner: Min}.String())
	assert.True(t, Minimize().Flat())
}

func TestQualitative(t *testing.T) {
	m := game(t)
	yes := []bool{false, true, false}
	no := []bool{false, false, true}
	assert.Equal(t, []bool{false, false, true}, Prob0A(m, yes, no))
	p0e, sched := Prob0E(m, yes, no)
	assert.Equal(t, []bool{true, false, true}, p0e)
	assert.Equal(t, 1, sched[0])
	assert.Equal(t, []bool{false, true, false}, Prob1A(m, yes, no))
	assert.Equal(t, []bool{true, true, false}, Prob1E(m, yes, no))

	m = choice(t)
	yes = []bool{false, true}
	assert.Equal(t, []bool{false, false}, Prob0A(m, yes, nil))
	p0e, _ = Prob0E(m, yes, nil)
	assert.Equal(t, []bool{true, false}, p0e)
	assert.Equal(t, []bool{false, true}, Prob1A(m, yes, nil))
	assert.Equal(t, []bool{true, true}, Prob1E(m, yes, nil))
}

func TestBoundedUntil(t *testing.T) {
	m := chain(t)
	yes := []bool{false, true}
	for k, want := range []float64{0, 0.5, 0.75, 0.875} {
		res, err := BoundedUntil(context.Background(), m, yes, nil, Maximize(), k)
		require.NoError(t, err)
		assert.Equal(t, want, res.Values[0])
		assert.Equal(t, k, res.Iterations)
	}
	m = choice(t)
	res, err := BoundedUntil(context.Background(), m, yes, nil, Minimize(), 5)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Values[0])
	// stable values do not stop the sweeps
	assert.Equal(t, 5, res.Iterations)
	assert.True(t, res.Exact)
	assert.Equal(t, 1, res.Scheduler[0])
	_, err = BoundedUntil(context.Background(), m, yes, nil, Minimize(), -1)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestReward(t *testing.T) {
	m := explicit(t, [][]sparse.Choice{
		{{Reward: 1, Entries: []sparse.Entry{{State: 0, Prob: 0.5}, {State: 1, Prob: 0.5}}}},
		loop(1),
	})
	target := []bool{false, true}
	res, err := Reward(context.Background(), m, target, Maximize())
	require.NoError(t, err)
	assert.InDelta(t, 2.0, res.Values[0], 1e-4)
	assert.Equal(t, 0.0, res.Values[1])

	m = explicit(t, [][]sparse.Choice{
		{
			{Reward: 1, Entries: []sparse.Entry{{State: 1, Prob: 1}}},
			{Reward: 3, Entries: []sparse.Entry{{State: 1, Prob: 1}}},
		},
		loop(1),
	})
	res, err = Reward(context.Background(), m, target, Minimize())
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Values[0])
	assert.Equal(t, 0, res.Scheduler[0])
	res, err = Reward(context.Background(), m, target, Maximize())
	require.NoError(t, err)
	assert.Equal(t, 3.0, res.Values[0])
	assert.Equal(t, 1, res.Scheduler[0])

	// a maximizing scheduler can stay forever in state 0
	m = choice(t)
	res, err = Reward(context.Background(), m, target, Maximize())
	require.NoError(t, err)
	assert.True(t, math.IsInf(res.Values[0], 1))
}

func TestConvergenceFailure(t *testing.T) {
	m := chain(t)
	yes := []bool{false, true}
	res, err := Until(context.Background(), m, yes, nil, Maximize(), WithPrecompute(false), WithMaxIterations(3))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConvergence))
	assert.Equal(t, MaxIterationsExceeded, res.Status)
	assert.Equal(t, 3, res.Iterations)
	assert.Equal(t, 0.875, res.Values[0])

	b, err := Interval(context.Background(), m, yes, nil, Maximize(), WithPrecompute(false), WithMaxIterations(2))
	assert.True(t, errors.Is(err, ErrConvergence))
	assert.Equal(t, MaxIterationsExceeded, b.Status)
	assert.Equal(t, 0.75, b.Lower[0])
	assert.Equal(t, 1.0, b.Upper[0])
}

func TestCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := Until(ctx, chain(t), []bool{false, true}, nil, Maximize(), WithPrecompute(false))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, res.Iterations)
}

func TestArguments(t *testing.T) {
	m := chain(t)
	ctx := context.Background()
	_, err := Until(ctx, m, []bool{true}, nil, Maximize())
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	_, err = Until(ctx, m, nil, nil, Maximize())
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	_, err = Until(ctx, m, []bool{false, true}, nil, Maximize(), WithCriterion(Absolute, 0))
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	_, err = Interval(ctx, nil, []bool{false, true}, nil, Maximize())
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

// random returns an MDP with n states where state n-1 is the goal and state
// n-2 is a sink.
func random(t *testing.T, r *rand.Rand, n int) (*sparse.Matrix, []bool, []bool) {
	rows := make([][]sparse.Choice, n)
	for s := 0; s < n-2; s++ {
		for c := 0; c < 1+r.Intn(3); c++ {
			var ch sparse.Choice
			k := 1 + r.Intn(3)
			for i := 0; i < k; i++ {
				ch.Entries = append(ch.Entries, sparse.Entry{State: r.Intn(n), Prob: 1 / float64(k)})
			}
			rows[s] = append(rows[s], ch)
		}
	}
	rows[n-2] = loop(n - 2)
	rows[n-1] = loop(n - 1)
	yes := make([]bool, n)
	no := make([]bool, n)
	yes[n-1] = true
	no[n-2] = true
	return explicit(t, rows), yes, no
}

func TestRandomModels(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		m, yes, no := random(t, r, 20)
		for _, obj := range []Objective{Minimize(), Maximize()} {
			jacobi, err := Until(ctx, m, yes, no, obj, WithCriterion(Absolute, 1e-10))
			require.NoError(t, err)
			gs, err := Until(ctx, m, yes, no, obj, WithCriterion(Absolute, 1e-10), WithMethod(GaussSeidel))
			require.NoError(t, err)
			b, err := Interval(ctx, m, yes, no, obj, WithCriterion(Absolute, 1e-8))
			if err != nil {
				// upper bounds may not converge in end components
				require.True(t, errors.Is(err, ErrConvergence))
				require.Equal(t, Max, obj.Outer)
			}
			for s := range yes {
				assert.InDelta(t, jacobi.Values[s], gs.Values[s], 1e-6)
				assert.LessOrEqual(t, b.Lower[s], b.Upper[s])
				assert.GreaterOrEqual(t, jacobi.Values[s], b.Lower[s]-1e-6)
				assert.LessOrEqual(t, jacobi.Values[s], b.Upper[s]+1e-6)
			}
			if obj == Minimize() {
				assert.True(t, b.Exact)
			}
			if b.Exact {
				for s := range yes {
					assert.LessOrEqual(t, b.Gap(s), 1e-8)
				}
			}
		}
	}
}

func TestMonotonicity(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	m, yes, no := random(t, r, 30)
	ctx := context.Background()
	var prev []float64
	for k := 1; k < 30; k++ {
		res, _ := Until(ctx, m, yes, no, Maximize(), WithPrecompute(false), WithMaxIterations(k), WithCriterion(Absolute, 1e-12))
		if prev != nil {
			for s := range prev {
				assert.GreaterOrEqual(t, res.Values[s], prev[s])
			}
		}
		prev = res.Values
	}
}

type recorder []Run

func (r *recorder) Observe(run Run) {
	*r = append(*r, run)
}

func TestObserver(t *testing.T) {
	var runs recorder
	_, err := Until(context.Background(), chain(t), []bool{false, true}, nil, Maximize(), WithObserver(&runs))
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "until", runs[0].Name)
	assert.Equal(t, Converged, runs[0].Status)
	assert.Equal(t, "converged", runs[0].Status.String())
}

func TestCriterion(t *testing.T) {
	tests := []struct {
		c    Criterion
		x, y float64
		want bool
	}{
		{Absolute, 1, 1 + 1e-7, true},
		{Absolute, 1000.0001, 1000, false},
		{Relative, 1000.0001, 1000, true},
		{Relative, 1e-7, 0, true},
		{Relative, 1e-5, 0, false},
		{Exponent, 1 + 1e-7, 1, true},
		{Exponent, 3, 1, false},
		{Exponent, 5e-324, 0, true},
		{Exponent, 1e-310, 2e-310, true},
		{Absolute, math.Inf(1), math.Inf(1), true},
		{Relative, math.Inf(1), 1, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.c.close(tt.x, tt.y, 1e-6), "%s(%g, %g)", tt.c, tt.x, tt.y)
	}
}
