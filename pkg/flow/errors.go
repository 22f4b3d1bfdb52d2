package flow

import "errors"

var (
	// ErrInvalidFlow covers structural errors: bad substitutions and
	// From/To/Skip patterns that match nothing.
	ErrInvalidFlow = errors.New("invalid flow")

	// ErrGatingSchema is returned when a gating table references a variable
	// that is not declared or not a boolean.
	ErrGatingSchema = errors.New("invalid gating config vars")

	// ErrInvalidPattern is returned for malformed step id patterns.
	ErrInvalidPattern = errors.New("invalid step id pattern")
)
