package elemental

import "errors"

var (
	// ErrInvalidInput marks telemetry, weight, or score values outside their
	// documented domains that cannot be coerced.
	ErrInvalidInput = errors.New("elemental: invalid input")

	// ErrEmptyState marks a snapshot request for an entity, subject, or
	// archetype with zero recorded history.
	ErrEmptyState = errors.New("elemental: no recorded history")

	// ErrConfiguration marks invalid construction parameters, e.g. a zero or
	// negative window size or duration.
	ErrConfiguration = errors.New("elemental: invalid configuration")
)
