// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package sparse

import "github.com/pkg/errors"

var (
	// ErrDataInvariant is returned when the arrays of a matrix are not
	// consistent, or when the two passes of the builder disagree. It signals
	// either a malformed transition relation or a bug.
	ErrDataInvariant = errors.New("sparse: data invariant violation")

	// ErrSuperstochastic is returned when the probabilities of a choice sum
	// to more than one. It can be tested with errors.Is against both
	// ErrSuperstochastic and ErrDataInvariant.
	ErrSuperstochastic = errors.Wrap(ErrDataInvariant, "superstochastic choice")
)
