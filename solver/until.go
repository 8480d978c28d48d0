// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package solver

import (
	"context"
	"math"

	"github.com/dalzilio/mtrudd/sparse"
	"github.com/pkg/errors"
)

// qualitative returns the sets of states with probability 1 and 0 for an
// until formula, extended with the result of the graph based precomputation
// when it is enabled. It also initializes the scheduler of these states.
func qualitative(m *sparse.Matrix, yes, no []bool, obj Objective, opts Options) ([]bool, []bool, []int) {
	n := m.NumStates()
	yes1 := append([]bool(nil), yes...)
	no0 := make([]bool, n)
	if no != nil {
		copy(no0, no)
	}
	sched := newscheduler(n)
	var avoid []int
	if opts.Precompute {
		g := newgraph(m, yes, no)
		p0a := g.prob0a()
		p0e, sch := g.prob0e()
		p1a := g.prob1a(p0e)
		for s := 0; s < n; s++ {
			if p0a[s] {
				no0[s] = true
			}
			if p1a[s] {
				yes1[s] = true
			}
		}
		// Prob0E states have value 0 only when every choice is minimized
		if obj == Minimize() {
			avoid = sch
			for s := 0; s < n; s++ {
				if p0e[s] {
					no0[s] = true
				}
			}
		}
	}
	for s := 0; s < n; s++ {
		if !yes1[s] && !no0[s] {
			continue
		}
		if lo, hi := m.Choices(s); lo < hi {
			sched[s] = lo
		}
		if avoid != nil && no0[s] {
			sched[s] = avoid[s]
		}
	}
	return yes1, no0, sched
}

func initial(yes, no []bool) ([]float64, []bool, error) {
	v, err := newvector(len(yes))
	if err != nil {
		return nil, nil, err
	}
	pinned := make([]bool, len(yes))
	for s := range yes {
		if yes[s] {
			v[s] = 1
		}
		pinned[s] = yes[s] || no[s]
	}
	return v, pinned, nil
}

// Until computes, for each state, the optimal probability of reaching a
// state in yes without going through a state in no (the set no can be nil).
// Values are computed by value iteration from below, starting from 0. When
// the computation does not converge within the maximal number of
// iterations, Until returns the last values together with an error
// wrapping ErrConvergence. Without precomputation, the result is never
// Exact, and its status is AtBound when a state with choices ends with the
// value 0 it started from.
func Until(ctx context.Context, m *sparse.Matrix, yes, no []bool, obj Objective, options ...Option) (*Result, error) {
	opts, err := makeoptions(options)
	if err != nil {
		return nil, err
	}
	if err := checksizes(m, yes, no); err != nil {
		return nil, err
	}
	if yes == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "nil set of goal states")
	}
	ctx, e := newengine(ctx, "until", m, obj, opts)
	yes1, no0, sched := qualitative(m, yes, no, obj, opts)
	v, pinned, err := initial(yes1, no0)
	if err != nil {
		e.finish(Initializing, 0, err)
		return nil, err
	}
	res, err := e.iterate(ctx, v, pinned, sched)
	if err == nil && !opts.Precompute {
		res.Exact = false
		if atbound(m, res.Values, pinned) {
			res.Status = AtBound
			e.log.WithField("iterations", res.Iterations).Warn("value iteration stopped at its initial bound")
		}
	}
	e.finish(res.Status, res.Iterations, err)
	return res, err
}

// atbound returns true if a state with choices, not pinned, has value 0.
func atbound(m *sparse.Matrix, v []float64, pinned []bool) bool {
	for s := range v {
		if lo, hi := m.Choices(s); !pinned[s] && lo < hi && v[s] == 0 {
			return true
		}
	}
	return false
}

// BoundedUntil computes the optimal probability of reaching yes within k
// steps without going through no. It always performs k Jacobi sweeps. The
// scheduler is the one used for the first step; in general, an optimal
// scheduler for bounded reachability depends on the number of remaining
// steps.
func BoundedUntil(ctx context.Context, m *sparse.Matrix, yes, no []bool, obj Objective, k int, options ...Option) (*Result, error) {
	opts, err := makeoptions(options)
	if err != nil {
		return nil, err
	}
	if err := checksizes(m, yes, no); err != nil {
		return nil, err
	}
	if yes == nil || k < 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "wrong arguments in bounded until (bound %d)", k)
	}
	opts.Method = Jacobi
	ctx, e := newengine(ctx, "bounded-until", m, obj, opts)
	n := m.NumStates()
	no0 := make([]bool, n)
	if no != nil {
		copy(no0, no)
	}
	src, pinned, err := initial(yes, no0)
	if err != nil {
		e.finish(Initializing, 0, err)
		return nil, err
	}
	dst, err := newvector(n)
	if err != nil {
		e.finish(Initializing, 0, err)
		return nil, err
	}
	copy(dst, src)
	res := &Result{Scheduler: newscheduler(n), Status: Iterating}
	for step := 0; step < k; step++ {
		if err := ctx.Err(); err != nil {
			res.Values = src
			err = errors.Wrapf(err, "bounded until interrupted after %d steps", step)
			e.finish(res.Status, res.Iterations, err)
			return res, err
		}
		res.Iterations++
		for s := 0; s < n; s++ {
			if pinned[s] {
				dst[s] = src[s]
				continue
			}
			dst[s], res.Scheduler[s] = e.update(s, src, -1)
		}
		src, dst = dst, src
	}
	res.Values = src
	res.Status = Converged
	res.Exact = true
	e.finish(res.Status, res.Iterations, nil)
	return res, nil
}

// Reward computes the optimal expected reward accumulated before reaching a
// state in target, where the reward of a choice is collected each time it is
// taken. The value is +Inf for the states where the target is not reached
// with probability 1 (under every scheduler when maximizing, under the best
// scheduler when minimizing).
func Reward(ctx context.Context, m *sparse.Matrix, target []bool, obj Objective, options ...Option) (*Result, error) {
	opts, err := makeoptions(options)
	if err != nil {
		return nil, err
	}
	if err := checksizes(m, target); err != nil {
		return nil, err
	}
	if target == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "nil set of target states")
	}
	ctx, e := newengine(ctx, "reward", m, obj, opts)
	e.rewards = true
	e.deadlock = math.Inf(1)
	n := m.NumStates()
	g := newgraph(m, target, nil)
	var sure []bool
	if obj.Outer == Max {
		p0e, _ := g.prob0e()
		sure = g.prob1a(p0e)
	} else {
		sure = g.prob1e(g.prob0a())
	}
	v, err := newvector(n)
	if err != nil {
		e.finish(Initializing, 0, err)
		return nil, err
	}
	pinned := make([]bool, n)
	sched := newscheduler(n)
	for s := 0; s < n; s++ {
		if target[s] {
			pinned[s] = true
			continue
		}
		if !sure[s] {
			v[s] = math.Inf(1)
			pinned[s] = true
			if lo, hi := m.Choices(s); lo < hi {
				sched[s] = lo
			}
		}
	}
	res, err := e.iterate(ctx, v, pinned, sched)
	e.finish(res.Status, res.Iterations, err)
	return res, err
}
