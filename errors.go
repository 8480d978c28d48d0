// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package mtrudd

import (
	"github.com/pkg/errors"
)

var (
	// ErrOutOfMemory is raised when the node table cannot be resized, either
	// because we reached the limit set with Maxnodesize or because the runtime
	// refused the allocation.
	ErrOutOfMemory = errors.New("mtrudd: unable to free memory or resize the node table")

	// ErrInvalidArgument is raised when an operation is called with arguments
	// outside of its domain: an unknown variable, nil or stale nodes,
	// mismatched variable lists, a NaN leaf, a Boolean operator applied to a
	// numeric diagram, ...
	ErrInvalidArgument = errors.New("mtrudd: invalid argument")
)

// Error returns the error status of the manager. We return an empty string
// if there are no errors.
func (b *Manager) Error() string {
	if b.error == nil {
		return ""
	}
	return b.error.Error()
}

// Errored returns true if there was an error during a computation.
func (b *Manager) Errored() bool {
	return b.error != nil
}

// Err returns the error status of the manager, or nil. The result can be
// tested against ErrOutOfMemory and ErrInvalidArgument with errors.Is.
func (b *Manager) Err() error {
	return b.error
}

// ResetError clears the error status. Nodes returned before the reset stay
// valid, but results computed after the first error were nil.
func (b *Manager) ResetError() {
	b.error = nil
}

// seterror records an error of the given kind and returns a nil Node so that
// it can be used in return statements. When an error is already set, we keep
// its kind and only append the new message.
func (b *Manager) seterror(kind error, format string, a ...interface{}) Node {
	if b.error != nil {
		b.error = errors.Wrapf(b.error, format, a...)
		return nil
	}
	b.error = errors.Wrapf(kind, format, a...)
	b.log.WithError(b.error).Debug("diagram operation failed")
	return nil
}
