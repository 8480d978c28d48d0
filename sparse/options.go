// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package sparse

import "github.com/sirupsen/logrus"

// Options configures the construction of a Matrix.
//
// Tolerance – slack allowed when checking that choices sum to at most one.
// Rates     – entries are rates of a continuous time model, not checked.
// Logger    – where to report statistics about the matrix (at Debug level).
type Options struct {
	Tolerance float64
	Rates     bool
	Logger    logrus.FieldLogger
}

// Option is a functional option for Build and FromExplicit.
type Option func(*Options)

// DefaultOptions returns the options used when none are given: tolerance
// DefaultTolerance, probabilities, and the standard logrus logger.
func DefaultOptions() Options {
	return Options{
		Tolerance: DefaultTolerance,
		Logger:    logrus.StandardLogger(),
	}
}

// WithTolerance sets the tolerance of the stochasticity check.
func WithTolerance(eps float64) Option {
	return func(o *Options) {
		o.Tolerance = eps
	}
}

// Rates declares that entries are rates.
func Rates() Option {
	return func(o *Options) {
		o.Rates = true
	}
}

// WithLogger sets the logger used by the builder.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *Options) {
		o.Logger = log
	}
}
