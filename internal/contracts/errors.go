package contracts

import "errors"

// Sentinel errors shared across calculators, stores and the batch
// engine. Callers branch with errors.Is.
var (
	// ErrInsufficientHistory: not enough NAV observations for the
	// calculation that was asked for. The affected item stays unset;
	// it never fails the fund as a whole.
	ErrInsufficientHistory = errors.New("insufficient nav history")

	// ErrNotFound: requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNonFinite: a calculation produced NaN or Inf. Nothing
	// non-finite is ever persisted.
	ErrNonFinite = errors.New("non-finite value")
)
