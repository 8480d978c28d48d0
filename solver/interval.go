// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package solver

import (
	"context"
	"math"

	"github.com/dalzilio/mtrudd/sparse"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Bounds is the result of an interval iteration. Lower and Upper are
// computed with their own scheduler. The bounds are Exact when the gap
// between them is less than epsilon for every state, in which case Status is
// Converged. Status is Diverged when both iterations reached a fixed point
// with a larger gap; this happens, for instance, on end components when the
// precomputation is disabled. Agree is true when both schedulers choose the
// same choice in every state that is not a goal or excluded state. Agree does
// not imply Exact: on end components both schedulers can pick the same
// choices while the bounds stay at 0 and 1.
type Bounds struct {
	Lower          []float64
	Upper          []float64
	LowerScheduler []int
	UpperScheduler []int
	Status         Status
	Iterations     int
	Exact          bool
	Agree          bool
}

// Gap returns the difference between the upper and lower bound of state s.
func (b *Bounds) Gap(s int) float64 {
	return b.Upper[s] - b.Lower[s]
}

// Divergent returns the set of states where the gap is greater than eps or
// where the two schedulers do not agree.
func (b *Bounds) Divergent(eps float64) []bool {
	res := make([]bool, len(b.Lower))
	for s := range res {
		res[s] = b.Gap(s) > eps || b.LowerScheduler[s] != b.UpperScheduler[s]
	}
	return res
}

// Interval computes, at the same time, a lower bound (starting from 0) and an
// upper bound (starting from 1) on the optimal probability of reaching yes
// without going through no. At every iteration the lower bound is less than
// the upper bound. The iteration stops when the gap is less than epsilon in
// every state, when a sweep leaves both bounds unchanged, or after the
// maximal number of iterations (with an error wrapping ErrConvergence).
func Interval(ctx context.Context, m *sparse.Matrix, yes, no []bool, obj Objective, options ...Option) (*Bounds, error) {
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
	ctx, e := newengine(ctx, "interval", m, obj, opts)
	n := m.NumStates()
	yes1, no0, sched := qualitative(m, yes, no, obj, opts)
	lower, pinned, err := initial(yes1, no0)
	if err != nil {
		e.finish(Initializing, 0, err)
		return nil, err
	}
	buffers := make([][]float64, 0, 3)
	for k := 0; k < 3; k++ {
		v, err := newvector(n)
		if err != nil {
			e.finish(Initializing, 0, err)
			return nil, err
		}
		buffers = append(buffers, v)
	}
	upper := buffers[0]
	for s := range upper {
		if !no0[s] {
			upper[s] = 1
		}
	}
	res := &Bounds{
		LowerScheduler: sched,
		UpperScheduler: append([]int(nil), sched...),
		Status:         Iterating,
	}
	lsrc, usrc := lower, upper
	ldst, udst := lower, upper
	if opts.Method == Jacobi {
		ldst, udst = buffers[1], buffers[2]
		copy(ldst, lsrc)
		copy(udst, usrc)
	}
	for {
		if err := ctx.Err(); err != nil {
			res.Lower, res.Upper = lsrc, usrc
			err = errors.Wrapf(err, "interval interrupted after %d iterations", res.Iterations)
			e.finish(res.Status, res.Iterations, err)
			return res, err
		}
		if res.Iterations >= opts.MaxIterations {
			res.Lower, res.Upper = lsrc, usrc
			res.Status = MaxIterationsExceeded
			res.Agree = agree(res, pinned)
			e.log.WithField("iterations", res.Iterations).Warn("interval iteration did not converge")
			err := errors.Wrapf(ErrConvergence, "interval after %d iterations", res.Iterations)
			e.finish(res.Status, res.Iterations, err)
			return res, err
		}
		_, ldiff := e.sweep(lsrc, ldst, res.LowerScheduler, pinned)
		_, udiff := e.sweep(usrc, udst, res.UpperScheduler, pinned)
		res.Iterations++
		lsrc, ldst = ldst, lsrc
		usrc, udst = udst, usrc
		gap := 0.0
		for s := range usrc {
			// rounding errors can make the bounds cross
			if usrc[s] < lsrc[s] {
				usrc[s] = lsrc[s]
			}
			gap = math.Max(gap, usrc[s]-lsrc[s])
		}
		if opts.LogEvery > 0 && res.Iterations%opts.LogEvery == 0 {
			e.log.WithFields(logrus.Fields{"iteration": res.Iterations, "gap": gap}).Debug("interval iteration")
		}
		if gap <= opts.Epsilon || (ldiff == 0 && udiff == 0) {
			res.Lower, res.Upper = lsrc, usrc
			res.Exact = gap <= opts.Epsilon
			res.Agree = agree(res, pinned)
			res.Status = Converged
			if !res.Exact {
				res.Status = Diverged
			}
			e.log.WithFields(logrus.Fields{"iterations": res.Iterations, "gap": gap}).Debug("interval iteration ", res.Status)
			e.finish(res.Status, res.Iterations, nil)
			return res, nil
		}
	}
}

func agree(b *Bounds, pinned []bool) bool {
	for s := range pinned {
		if !pinned[s] && b.LowerScheduler[s] != b.UpperScheduler[s] {
			return false
		}
	}
	return true
}
