// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package check

import (
	"context"
	"math"

	"github.com/dalzilio/mtrudd"
	"github.com/dalzilio/mtrudd/model"
	"github.com/dalzilio/mtrudd/odd"
	"github.com/dalzilio/mtrudd/solver"
	"github.com/dalzilio/mtrudd/sparse"
	"github.com/dalzilio/mtrudd/witness"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/dalzilio/mtrudd/check")

// BoundKind is the kind of bound of a reachability query.
type BoundKind int

const (
	Unbounded   BoundKind = iota // eventually
	StepBounded                  // within Steps transitions
	TimeBounded                  // within Time units, for CTMC only
)

func (k BoundKind) String() string {
	switch k {
	case StepBounded:
		return "step-bounded"
	case TimeBounded:
		return "time-bounded"
	}
	return "unbounded"
}

// Bound is the bound of a reachability query.
type Bound struct {
	Kind  BoundKind
	Steps int
	Time  float64
}

// Query is a reachability (or reward) query on a model: the probability of
// reaching a state in Target without going through a state in Avoid (which
// can be nil), optimized according to Objective. Target and Avoid are
// Boolean diagrams over the present variables of the model. When Interval is
// set, unbounded queries compute both lower and upper bounds; when Witness is
// also set, a witness graph is extracted if the bounds do not meet.
type Query struct {
	Model     *model.Model
	Target    mtrudd.Node
	Avoid     mtrudd.Node
	Objective solver.Objective
	Bound     Bound
	Interval  bool
	Witness   bool
}

// Result is the result of a query. Vectors are indexed by state indices, see
// Index and State. For exact computations, Lower and Upper are the same
// vector.
//
// Exact is set only when the bounds meet within the solver precision, and,
// for unbounded queries without interval iteration, only when the
// qualitative precomputation ran. Agree is set when the lower and upper
// schedulers pick the same choices. Agreement alone does not make a result
// Exact: on end components both schedulers can agree while the bounds stay
// apart.
type Result struct {
	RunID          string
	ODD            *odd.ODD
	Matrix         *sparse.Matrix
	Initial        []int
	Lower          []float64
	Upper          []float64
	LowerScheduler []int
	UpperScheduler []int
	Status         solver.Status
	Iterations     int
	Exact          bool // bounds meet
	Agree          bool // schedulers agree, see Exact
	Witness        *witness.Graph
	layout         *model.Layout
}

// Index returns the index of state s of the model in the result vectors, or
// false if s is not reachable.
func (r *Result) Index(s int) (int, bool) {
	if s < 0 || s >= 1<<r.layout.Bits() {
		return 0, false
	}
	return r.ODD.IndexOf(r.layout.Valuation(s))
}

// State returns the state of the model with index i.
func (r *Result) State(i int) (int, error) {
	v, err := r.ODD.ValuationOf(i)
	if err != nil {
		return 0, err
	}
	return r.layout.Decode(v)
}

// Value returns the lower and upper bounds for state s of the model.
func (r *Result) Value(s int) (float64, float64, bool) {
	i, ok := r.Index(s)
	if !ok {
		return 0, 0, false
	}
	return r.Lower[i], r.Upper[i], true
}

// session holds the explicit structures shared by the steps of a query.
type session struct {
	opts   Options
	log    logrus.FieldLogger
	span   trace.Span
	res    *Result
	target []bool
	avoid  []bool
}

func start(ctx context.Context, name string, q Query, options []Option) (context.Context, *session, error) {
	opts := DefaultOptions()
	for _, f := range options {
		f(&opts)
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	ctx, span := tracer.Start(ctx, "check."+name, trace.WithAttributes(
		attribute.String("run.id", opts.RunID),
		attribute.String("objective", q.Objective.String()),
		attribute.String("bound", q.Bound.Kind.String()),
	))
	s := &session{
		opts: opts,
		span: span,
		log:  opts.Logger.WithFields(logrus.Fields{"run": opts.RunID, "query": name}),
		res:  &Result{RunID: opts.RunID},
	}
	if q.Model == nil || q.Target == nil {
		return ctx, s, errors.Wrap(mtrudd.ErrInvalidArgument, "query without model or target")
	}
	mod := q.Model
	s.res.layout = mod.Layout
	bdd := mod.Layout.Manager()
	reach, err := mod.Reachable()
	if err != nil {
		return ctx, s, err
	}
	o, err := odd.Build(bdd, reach, mod.Layout.Present())
	if err != nil {
		return ctx, s, errors.Wrap(err, "building the ODD")
	}
	s.res.ODD = o
	var sopts []sparse.Option
	if mod.Kind == model.CTMC {
		sopts = append(sopts, sparse.Rates())
	}
	sopts = append(sopts, sparse.WithLogger(s.log))
	m, err := sparse.Build(mod.Relation, o, sopts...)
	if err != nil {
		return ctx, s, errors.Wrap(err, "building the sparse matrix")
	}
	s.res.Matrix = m
	span.AddEvent("matrix built", trace.WithAttributes(
		attribute.Int("states", m.NumStates()),
		attribute.Int("choices", m.NumChoices()),
		attribute.Int("transitions", m.NumTransitions()),
	))
	if s.res.Initial, err = indices(o, mod.Initial); err != nil {
		return ctx, s, errors.Wrap(err, "initial states")
	}
	if s.target, err = mask(o, q.Target); err != nil {
		return ctx, s, errors.Wrap(err, "target states")
	}
	if q.Avoid != nil {
		if s.avoid, err = mask(o, q.Avoid); err != nil {
			return ctx, s, errors.Wrap(err, "avoided states")
		}
	}
	s.log.WithFields(logrus.Fields{
		"states":      m.NumStates(),
		"choices":     m.NumChoices(),
		"transitions": m.NumTransitions(),
	}).Debug("explicit model")
	return ctx, s, nil
}

// end closes the span of the session. Convergence errors are soft: they are
// logged and returned together with the result.
func (s *session) end(err error) (*Result, error) {
	defer s.span.End()
	s.span.SetAttributes(
		attribute.String("status", s.res.Status.String()),
		attribute.Int("iterations", s.res.Iterations),
		attribute.Bool("exact", s.res.Exact),
	)
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, solver.ErrConvergence) {
			s.log.WithError(err).Warn("result may be inaccurate")
			return s.res, err
		}
		s.log.WithError(err).Error("query failed")
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"status":     s.res.Status,
		"iterations": s.res.Iterations,
		"exact":      s.res.Exact,
	}).Info("query done")
	return s.res, nil
}

func (s *session) exact(r *solver.Result) {
	s.res.Lower, s.res.Upper = r.Values, r.Values
	s.res.LowerScheduler, s.res.UpperScheduler = r.Scheduler, r.Scheduler
	s.res.Status, s.res.Iterations = r.Status, r.Iterations
	s.res.Exact = r.Exact
	s.res.Agree = true
}

// ComputeReachability computes the probability of reaching the target states
// of query q, for every reachable state of the model. An error wrapping
// solver.ErrConvergence comes with a usable result.
func ComputeReachability(ctx context.Context, q Query, options ...Option) (*Result, error) {
	ctx, s, err := start(ctx, "reachability", q, options)
	if err != nil {
		return s.end(err)
	}
	m := s.res.Matrix
	sopts := s.opts.Solver
	switch q.Bound.Kind {
	case Unbounded:
		if q.Model.Kind == model.CTMC {
			// the embedded jump chain has the same reachability probabilities
			if m, err = m.Uniformize(math.Max(1, m.MaxExitRate())); err != nil {
				return s.end(err)
			}
		}
		if !q.Interval {
			r, err := solver.Until(ctx, m, s.target, s.avoid, q.Objective, sopts...)
			if r != nil {
				s.exact(r)
			}
			return s.end(err)
		}
		b, err := solver.Interval(ctx, m, s.target, s.avoid, q.Objective, sopts...)
		if b == nil {
			return s.end(err)
		}
		s.res.Lower, s.res.Upper = b.Lower, b.Upper
		s.res.LowerScheduler, s.res.UpperScheduler = b.LowerScheduler, b.UpperScheduler
		s.res.Status, s.res.Iterations, s.res.Exact, s.res.Agree = b.Status, b.Iterations, b.Exact, b.Agree
		if q.Witness && !b.Exact {
			w, werr := witness.Extract(m, b, s.res.Initial, s.opts.Threshold)
			if werr != nil {
				return s.end(werr)
			}
			s.res.Witness = w
			s.span.AddEvent("witness", trace.WithAttributes(attribute.Int("vertices", w.Len())))
		}
		return s.end(err)
	case StepBounded:
		if q.Model.Kind == model.CTMC {
			return s.end(errors.Wrap(mtrudd.ErrInvalidArgument, "step bounded query on a continuous time model"))
		}
		r, err := solver.BoundedUntil(ctx, m, s.target, s.avoid, q.Objective, q.Bound.Steps, sopts...)
		if r != nil {
			s.exact(r)
		}
		return s.end(err)
	case TimeBounded:
		if q.Model.Kind != model.CTMC {
			return s.end(errors.Wrapf(mtrudd.ErrInvalidArgument, "time bounded query on a %s", q.Model.Kind))
		}
		r, err := solver.TimeBoundedUntil(ctx, m, s.target, s.avoid, q.Bound.Time, q.Objective, sopts...)
		if r != nil {
			s.exact(r)
		}
		return s.end(err)
	}
	return s.end(errors.Wrapf(mtrudd.ErrInvalidArgument, "unknown bound %d", q.Bound.Kind))
}

// ComputeReward computes the expected reward accumulated before reaching the
// target states of q. Only unbounded queries on discrete time models are
// supported, and the Avoid and Interval fields are ignored.
func ComputeReward(ctx context.Context, q Query, options ...Option) (*Result, error) {
	ctx, s, err := start(ctx, "reward", q, options)
	if err != nil {
		return s.end(err)
	}
	if q.Bound.Kind != Unbounded || q.Model.Kind == model.CTMC {
		return s.end(errors.Wrap(mtrudd.ErrInvalidArgument, "reward queries must be unbounded and in discrete time"))
	}
	r, err := solver.Reward(ctx, s.res.Matrix, s.target, q.Objective, s.opts.Solver...)
	if r != nil {
		s.exact(r)
	}
	return s.end(err)
}

// mask returns the set of states of n as a slice of Booleans.
func mask(o *odd.ODD, n mtrudd.Node) ([]bool, error) {
	vec, err := o.ToVector(n)
	if err != nil {
		return nil, err
	}
	res := make([]bool, len(vec))
	for k, v := range vec {
		res[k] = v != 0
	}
	return res, nil
}

func indices(o *odd.ODD, n mtrudd.Node) ([]int, error) {
	set, err := mask(o, n)
	if err != nil {
		return nil, err
	}
	var res []int
	for k, b := range set {
		if b {
			res = append(res, k)
		}
	}
	return res, nil
}
