package collections

import "errors"

// Sentinel errors returned by the fixed-capacity collections. None of these
// are ever panics: saturation and lookup misses are ordinary, expected
// outcomes for a caller working against a bounded, no-heap structure.
var (
	ErrMalformedInterval = errors.New("collections: malformed interval")
	ErrListFull          = errors.New("collections: list full")
	ErrMapFull           = errors.New("collections: map full")
	ErrStackFull         = errors.New("collections: stack full")
	ErrStackEmpty        = errors.New("collections: stack empty")
	ErrNotFound          = errors.New("collections: key not found")
	ErrDuplicateKey      = errors.New("collections: duplicate key")
)
