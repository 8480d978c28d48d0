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

// uniform checks that every choice of a continuous time MDP has the same
// exit rate, except for states without choices.
func uniform(m *sparse.Matrix) error {
	if m.IsDeterministic() {
		return nil
	}
	rate := -1.0
	for c := 0; c < m.NumChoices(); c++ {
		e := m.ExitRate(c)
		if rate < 0 {
			rate = e
			continue
		}
		if math.Abs(e-rate) > sparse.DefaultTolerance*math.Max(1, rate) {
			return errors.Wrapf(ErrInvalidArgument, "continuous time MDP is not uniform (exit rates %g and %g)", rate, e)
		}
	}
	return nil
}

// TimeBoundedUntil computes the probability of reaching yes within time t,
// without going through no, in a continuous time Markov chain or in a
// uniform continuous time MDP. The matrix m must contain rates (see
// sparse.Rates). The chain is uniformized with its maximal exit rate q and
// the result is a sum of step bounded probabilities weighted by the Poisson
// distribution of parameter q.t, truncated with the Fox-Glynn algorithm
// (see Options.Accuracy). For an MDP, the scheduler is the one used for the
// first jump.
func TimeBoundedUntil(ctx context.Context, m *sparse.Matrix, yes, no []bool, t float64, obj Objective, options ...Option) (*Result, error) {
	opts, err := makeoptions(options)
	if err != nil {
		return nil, err
	}
	if err := checksizes(m, yes, no); err != nil {
		return nil, err
	}
	if yes == nil || !m.Rates {
		return nil, errors.Wrap(ErrInvalidArgument, "time bounded until needs goal states and a rate matrix")
	}
	if !(t >= 0) || math.IsInf(t, 0) {
		return nil, errors.Wrapf(ErrInvalidArgument, "time bound %g", t)
	}
	if err := uniform(m); err != nil {
		return nil, err
	}
	n := m.NumStates()
	no0 := make([]bool, n)
	if no != nil {
		copy(no0, no)
	}
	q := m.MaxExitRate()
	res := &Result{Scheduler: newscheduler(n), Status: Converged, Exact: true}
	if q == 0 || t == 0 {
		if res.Values, err = newvector(n); err != nil {
			return nil, err
		}
		for s := range yes {
			if yes[s] {
				res.Values[s] = 1
			}
		}
		return res, nil
	}
	u, err := m.Uniformize(q)
	if err != nil {
		return nil, err
	}
	fg, err := FoxGlynn(q*t, opts.Accuracy)
	if err != nil {
		return nil, err
	}
	opts.Method = Jacobi
	ctx, e := newengine(ctx, "time-bounded-until", u, obj, opts)
	e.log.WithFields(logrus.Fields{"rate": q, "left": fg.Left, "right": fg.Right}).Debug("uniformization")
	// psi[i] is the probability of at least i jumps
	psi := make([]float64, fg.Right+2)
	for i := fg.Right; i >= 0; i-- {
		psi[i] = psi[i+1] + fg.Poisson(i)
	}
	x, err := newvector(n)
	if err != nil {
		e.finish(Initializing, 0, err)
		return nil, err
	}
	cur, err := newvector(n)
	if err != nil {
		e.finish(Initializing, 0, err)
		return nil, err
	}
	next, err := newvector(n)
	if err != nil {
		e.finish(Initializing, 0, err)
		return nil, err
	}
	res.Status = Iterating
	for i := fg.Right; i >= 1; i-- {
		if err := ctx.Err(); err != nil {
			res.Values = next
			err = errors.Wrapf(err, "time bounded until interrupted at jump %d", i)
			e.finish(res.Status, res.Iterations, err)
			return res, err
		}
		for s := range x {
			switch {
			case yes[s]:
				x[s] = psi[i]
			case no0[s]:
				x[s] = 0
			default:
				x[s] = next[s]
			}
		}
		for s := range cur {
			cur[s], res.Scheduler[s] = e.update(s, x, -1)
		}
		cur, next = next, cur
		res.Iterations++
	}
	for s := range next {
		switch {
		case yes[s]:
			next[s] = 1
		case no0[s]:
			next[s] = 0
		}
	}
	res.Values = next
	res.Status = Converged
	res.Exact = true
	e.finish(res.Status, res.Iterations, nil)
	return res, nil
}
