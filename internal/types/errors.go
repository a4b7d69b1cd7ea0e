package types

import (
	errors "gopkg.in/src-d/go-errors.v1"
)

// The engine classifies every failure into one of a closed set of kinds.
// Callers branch on the kind with Is; messages carry the specifics.
var (
	// ErrNameResolution is returned when a table, column, or index name
	// cannot be resolved against the catalog or a schema.
	ErrNameResolution = errors.NewKind("name resolution: %s")

	// ErrAmbiguousColumn is returned when an unqualified column reference
	// matches more than one column of a joined schema.
	ErrAmbiguousColumn = errors.NewKind("ambiguous column reference %q")

	// ErrTypeMismatch is returned for operations on incompatible value types.
	ErrTypeMismatch = errors.NewKind("type mismatch: %s %s %s")

	// ErrArithmetic is returned for division or modulo by zero.
	ErrArithmetic = errors.NewKind("arithmetic error: %s")

	// ErrConflict is surfaced unchanged from the transaction layer when a
	// write-set collision is detected.
	ErrConflict = errors.NewKind("transaction conflict: %s")

	// ErrNotFound is returned when an index entry or heap position that was
	// assumed to exist holds no row.
	ErrNotFound = errors.NewKind("not found: %s")

	// ErrInvalidQuery is returned for statements the planner cannot accept,
	// such as an empty FROM list.
	ErrInvalidQuery = errors.NewKind("invalid query: %s")

	// ErrInternal flags invariant violations in operator and expression code
	// paths. Seeing one is a bug.
	ErrInternal = errors.NewKind("internal error: %s")
)
