// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package solver

import (
	"time"

	"github.com/dalzilio/mtrudd"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	// ErrConvergence is returned, together with the last computed values,
	// when an iteration reaches the maximal number of iterations before
	// meeting the convergence criterion. It is a soft failure: the caller
	// decides whether the values are usable.
	ErrConvergence = errors.New("solver: maximal number of iterations reached")

	// ErrInvalidArgument is returned for inconsistent inputs (vectors of the
	// wrong size, negative bounds, ...). It is the same error as in package
	// mtrudd.
	ErrInvalidArgument = mtrudd.ErrInvalidArgument
)

// Status is the state of a value iteration. An iteration starts in state
// Initializing, moves to Iterating, and stops in one of the three final
// states.
type Status int

const (
	Initializing Status = iota
	Iterating
	Converged
	MaxIterationsExceeded
	// Diverged is only used by Interval, when both bounds reached a fixed
	// point but do not meet.
	Diverged
	// AtBound is used by Until, without precomputation, when the iteration
	// reached a fixed point where some states kept their initial value 0.
	// Such a 0 is a lower bound, not a proof that the target is unreachable.
	AtBound
)

var statusnames = [...]string{"initializing", "iterating", "converged", "max iterations exceeded", "diverged", "fixed point at bound"}

func (s Status) String() string {
	if int(s) < len(statusnames) {
		return statusnames[s]
	}
	return "unknown"
}

// Method is the update scheme of a value iteration.
type Method int

const (
	// Jacobi computes the values of a sweep using only the values of the
	// previous sweep. It needs two vectors.
	Jacobi Method = iota
	// GaussSeidel updates values in place, in increasing order of states, so
	// that a state sees the new values of the states with a lower index.
	GaussSeidel
)

func (m Method) String() string {
	if m == GaussSeidel {
		return "gauss-seidel"
	}
	return "jacobi"
}

// Criterion is the test used to decide if two successive values are close
// enough.
type Criterion int

const (
	// Absolute checks that |new - old| <= epsilon.
	Absolute Criterion = iota
	// Relative checks that |new - old| <= epsilon * |old|, and falls back to
	// Absolute when old is 0.
	Relative
	// Exponent compares the mantissas of the two values scaled to the
	// exponent of the new value, and falls back to Absolute for zero and
	// subnormal values.
	Exponent
)

func (c Criterion) String() string {
	switch c {
	case Relative:
		return "relative"
	case Exponent:
		return "exponent"
	}
	return "absolute"
}

// Direction is the optimization direction used to combine the values of
// choices.
type Direction int

const (
	Min Direction = iota
	Max
)

func (d Direction) String() string {
	if d == Max {
		return "max"
	}
	return "min"
}

// better returns true if x is strictly better than y for d.
func (d Direction) better(x, y float64) bool {
	if d == Max {
		return x > y
	}
	return x < y
}

// Objective defines how the values of the choices of a state are combined.
// Inner combines the choices inside an action group, and Outer combines the
// values of the groups.
type Objective struct {
	Outer, Inner Direction
}

// Minimize is the objective of a minimizing scheduler.
func Minimize() Objective {
	return Objective{Outer: Min, Inner: Min}
}

// Maximize is the objective of a maximizing scheduler.
func Maximize() Objective {
	return Objective{Outer: Max, Inner: Max}
}

// Flat returns true when both directions are the same.
func (o Objective) Flat() bool {
	return o.Outer == o.Inner
}

func (o Objective) String() string {
	if o.Flat() {
		return o.Outer.String()
	}
	return o.Outer.String() + "/" + o.Inner.String()
}

// Run describes a finished value iteration, see Observer.
type Run struct {
	Name       string
	Method     Method
	Status     Status
	Iterations int
	Duration   time.Duration
}

// Observer receives a report at the end of every value iteration. Package
// metrics provides an implementation with Prometheus collectors.
type Observer interface {
	Observe(r Run)
}

// Options configures the value iteration engines. Precompute enables the
// graph based algorithms (Prob0/Prob1) that find the states with probability
// 0 or 1 before iterating. A scheduler only switches to a new choice when it
// is better than the current one by more than SchedulerTolerance. Accuracy
// is the error bound of the Fox-Glynn weights used for time-bounded
// properties.
type Options struct {
	Method             Method             // Jacobi (default) or GaussSeidel
	Criterion          Criterion          // Relative by default
	Epsilon            float64            // threshold of the convergence test
	MaxIterations      int                // maximal number of sweeps
	Precompute         bool               // enabled by default
	SchedulerTolerance float64
	Accuracy           float64            // 1e-6 by default
	LogEvery           int                // log progress every LogEvery sweeps (0 to disable)
	Logger             logrus.FieldLogger // the standard logger by default
	Observer           Observer           // called at the end of each iteration
}

// Option is a functional option for the solver.
type Option func(*Options)

// DefaultOptions returns the default options of the solver.
func DefaultOptions() Options {
	return Options{
		Method:             Jacobi,
		Criterion:          Relative,
		Epsilon:            1e-6,
		MaxIterations:      10000,
		Precompute:         true,
		SchedulerTolerance: 1e-12,
		Accuracy:           1e-6,
		LogEvery:           0,
		Logger:             logrus.StandardLogger(),
	}
}

// WithMethod sets the update scheme.
func WithMethod(m Method) Option {
	return func(o *Options) {
		o.Method = m
	}
}

// WithCriterion sets the convergence criterion and its threshold.
func WithCriterion(c Criterion, epsilon float64) Option {
	return func(o *Options) {
		o.Criterion = c
		o.Epsilon = epsilon
	}
}

// WithMaxIterations sets the maximal number of sweeps.
func WithMaxIterations(n int) Option {
	return func(o *Options) {
		o.MaxIterations = n
	}
}

// WithPrecompute enables or disables the qualitative precomputation.
func WithPrecompute(b bool) Option {
	return func(o *Options) {
		o.Precompute = b
	}
}

// WithAccuracy sets the error bound of the Poisson weights computed for
// time-bounded properties.
func WithAccuracy(acc float64) Option {
	return func(o *Options) {
		o.Accuracy = acc
	}
}

// WithLogger sets the logger and the frequency of progress messages.
func WithLogger(log logrus.FieldLogger, every int) Option {
	return func(o *Options) {
		o.Logger = log
		o.LogEvery = every
	}
}

// WithObserver sets a hook called at the end of each iteration.
func WithObserver(obs Observer) Option {
	return func(o *Options) {
		o.Observer = obs
	}
}

func makeoptions(options []Option) (Options, error) {
	opts := DefaultOptions()
	for _, f := range options {
		f(&opts)
	}
	if !(opts.Epsilon > 0) {
		return opts, errors.Wrapf(ErrInvalidArgument, "epsilon must be positive (got %g)", opts.Epsilon)
	}
	if opts.MaxIterations < 1 {
		return opts, errors.Wrapf(ErrInvalidArgument, "maximal number of iterations must be positive (got %d)", opts.MaxIterations)
	}
	if !(opts.Accuracy > 0 && opts.Accuracy < 1) {
		return opts, errors.Wrapf(ErrInvalidArgument, "accuracy must be in (0, 1) (got %g)", opts.Accuracy)
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return opts, nil
}
