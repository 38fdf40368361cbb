// Package errs holds the error taxonomy shared by the simulation packages.
// Wrap with fmt.Errorf("%w: ...") and test with errors.Is.
package errs

import "errors"

var (
	// ErrConfiguration marks invalid construction input: bad grid dimensions,
	// duplicate resource bindings, double setup.
	ErrConfiguration = errors.New("configuration error")

	// ErrOutOfBounds marks a tile coordinate outside the grid extents.
	ErrOutOfBounds = errors.New("out of bounds")

	// ErrConsistency marks broken bookkeeping, e.g. a residential building in
	// both or neither of the vacant/occupied indices.
	ErrConsistency = errors.New("consistency error")
)
