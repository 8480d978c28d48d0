// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package solver

import (
	"context"
	"math"
	"time"

	"github.com/dalzilio/mtrudd"
	"github.com/dalzilio/mtrudd/sparse"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/dalzilio/mtrudd/solver")

// Result is the outcome of a value iteration. Scheduler gives, for each
// state, the index of the chosen choice in the matrix, or -1 for states
// without choices. Values are still meaningful when Status is
// MaxIterationsExceeded, but they may be far from the fixed point. Exact is
// set when the values are within the requested precision of the optimal
// values, which Until only claims after the qualitative precomputation.
type Result struct {
	Values     []float64
	Scheduler  []int
	Status     Status
	Iterations int
	Exact      bool
}

// engine holds what is needed to apply the Bellman operator on a matrix.
type engine struct {
	name     string
	m        *sparse.Matrix
	obj      Objective
	opts     Options
	rewards  bool    // add the reward of choices
	deadlock float64 // value of states without choices
	log      logrus.FieldLogger
	start    time.Time
	span     trace.Span
}

func newengine(ctx context.Context, name string, m *sparse.Matrix, obj Objective, opts Options) (context.Context, *engine) {
	ctx, span := tracer.Start(ctx, "solver."+name, trace.WithAttributes(
		attribute.Int("states", m.NumStates()),
		attribute.Int("choices", m.NumChoices()),
		attribute.Int("transitions", m.NumTransitions()),
		attribute.String("method", opts.Method.String()),
		attribute.String("objective", obj.String()),
	))
	return ctx, &engine{
		name:  name,
		m:     m,
		obj:   obj,
		opts:  opts,
		start: time.Now(),
		span:  span,
		log: opts.Logger.WithFields(logrus.Fields{
			"computation": name,
			"method":      opts.Method.String(),
			"objective":   obj.String(),
		}),
	}
}

// finish reports the end of an iteration to the observer and closes the
// trace span.
func (e *engine) finish(status Status, iterations int, err error) {
	e.span.SetAttributes(
		attribute.String("status", status.String()),
		attribute.Int("iterations", iterations),
	)
	if err != nil {
		e.span.RecordError(err)
		e.span.SetStatus(codes.Error, err.Error())
	}
	e.span.End()
	if e.opts.Observer != nil {
		e.opts.Observer.Observe(Run{
			Name:       e.name,
			Method:     e.opts.Method,
			Status:     status,
			Iterations: iterations,
			Duration:   time.Since(e.start),
		})
	}
}

// q returns the value of choice c for the vector v.
func (e *engine) q(c int, v []float64) float64 {
	res := 0.0
	if e.rewards {
		res = e.m.ChoiceReward(c)
	}
	for k := e.m.ChoiceStart[c]; k < e.m.ChoiceStart[c+1]; k++ {
		res += e.m.Prob[k] * v[e.m.Successor[k]]
	}
	return res
}

// update returns the new value of state s for the vector v and the chosen
// choice. Values are combined with obj.Inner inside groups and with
// obj.Outer between groups. The current choice cur is kept unless the best
// choice is better by more than the scheduler tolerance.
func (e *engine) update(s int, v []float64, cur int) (float64, int) {
	glo, ghi := e.m.Groups(s)
	if glo == ghi {
		return e.deadlock, -1
	}
	best, bestc := 0.0, -1
	qcur, gcur := math.NaN(), math.NaN()
	for g := glo; g < ghi; g++ {
		lo, hi := e.m.GroupChoices(g)
		gv, gc := 0.0, -1
		for c := lo; c < hi; c++ {
			x := e.q(c, v)
			if c == cur {
				qcur = x
			}
			if gc == -1 || e.obj.Inner.better(x, gv) {
				gv, gc = x, c
			}
		}
		if cur >= lo && cur < hi {
			gcur = gv
		}
		if bestc == -1 || e.obj.Outer.better(gv, best) {
			best, bestc = gv, gc
		}
	}
	tol := e.opts.SchedulerTolerance
	if cur >= 0 && equal(gcur, best, tol) && equal(qcur, gcur, tol) {
		return best, cur
	}
	return best, bestc
}

// sweep applies the Bellman operator once, reading values from src and
// writing them in dst (src == dst for Gauss-Seidel). States in pinned keep
// their value. It returns true when every value is close to its previous
// value, and the maximal difference.
func (e *engine) sweep(src, dst []float64, sched []int, pinned []bool) (bool, float64) {
	done := true
	diff := 0.0
	for s := range src {
		prev := src[s]
		if pinned[s] {
			dst[s] = prev
			continue
		}
		x, c := e.update(s, src, sched[s])
		sched[s] = c
		if !e.opts.Criterion.close(x, prev, e.opts.Epsilon) {
			done = false
		}
		if d := math.Abs(x - prev); d > diff && !math.IsNaN(d) {
			diff = d
		}
		dst[s] = x
	}
	return done, diff
}

// iterate runs the value iteration from the initial vector init until
// convergence. The vector init is used as a buffer.
func (e *engine) iterate(ctx context.Context, init []float64, pinned []bool, sched []int) (*Result, error) {
	res := &Result{Values: init, Scheduler: sched, Status: Initializing}
	src, dst := init, init
	if e.opts.Method == Jacobi {
		var err error
		if dst, err = newvector(len(init)); err != nil {
			return res, err
		}
		copy(dst, src)
	}
	res.Status = Iterating
	for {
		if err := ctx.Err(); err != nil {
			res.Values = src
			return res, errors.Wrapf(err, "%s interrupted after %d iterations", e.name, res.Iterations)
		}
		if res.Iterations >= e.opts.MaxIterations {
			res.Values = src
			res.Status = MaxIterationsExceeded
			e.log.WithField("iterations", res.Iterations).Warn("value iteration did not converge")
			return res, errors.Wrapf(ErrConvergence, "%s after %d iterations", e.name, res.Iterations)
		}
		done, diff := e.sweep(src, dst, sched, pinned)
		res.Iterations++
		src, dst = dst, src
		if e.opts.LogEvery > 0 && res.Iterations%e.opts.LogEvery == 0 {
			e.log.WithFields(logrus.Fields{"iteration": res.Iterations, "diff": diff}).Debug("value iteration")
		}
		if done {
			res.Values = src
			res.Status = Converged
			res.Exact = true
			e.log.WithField("iterations", res.Iterations).Debug("value iteration converged")
			return res, nil
		}
	}
}

// newvector allocates a vector of size n, turning runtime allocation panics
// into ErrOutOfMemory.
func newvector(n int) (v []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, errors.Wrapf(mtrudd.ErrOutOfMemory, "allocation of a vector of size %d: %v", n, r)
		}
	}()
	return make([]float64, n), nil
}

func newscheduler(n int) []int {
	res := make([]int, n)
	for s := range res {
		res[s] = -1
	}
	return res
}

func checksizes(m *sparse.Matrix, sets ...[]bool) error {
	if m == nil {
		return errors.Wrap(ErrInvalidArgument, "nil matrix")
	}
	for _, set := range sets {
		if set != nil && len(set) != m.NumStates() {
			return errors.Wrapf(ErrInvalidArgument, "set of size %d for a matrix with %d states", len(set), m.NumStates())
		}
	}
	return nil
}
