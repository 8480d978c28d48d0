// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package check

import (
	"github.com/dalzilio/mtrudd/solver"
	"github.com/sirupsen/logrus"
)

// Options configures the computation of a query.
//
// Solver    – options passed to the value iteration engine.
// Threshold – states whose bounds differ by more than Threshold are
// expanded in witness graphs (1e-6 by default).
// Logger    – logrus logger, the standard logger by default.
// RunID     – identifier attached to logs, traces and results; a random
// UUID is used when empty.
type Options struct {
	Solver    []solver.Option
	Threshold float64
	Logger    logrus.FieldLogger
	RunID     string
}

// Option is a functional option for queries.
type Option func(*Options)

// DefaultOptions returns the default options of queries.
func DefaultOptions() Options {
	return Options{
		Threshold: 1e-6,
		Logger:    logrus.StandardLogger(),
	}
}

// WithSolver adds options for the value iteration engine.
func WithSolver(options ...solver.Option) Option {
	return func(o *Options) {
		o.Solver = append(o.Solver, options...)
	}
}

// WithThreshold sets the threshold used to build witness graphs.
func WithThreshold(eps float64) Option {
	return func(o *Options) {
		o.Threshold = eps
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *Options) {
		o.Logger = log
	}
}

// WithRunID sets the identifier of the run.
func WithRunID(id string) Option {
	return func(o *Options) {
		o.RunID = id
	}
}
