package models

import "errors"

// Pipeline error taxonomy. Handlers match these with errors.Is and convert
// them into user-facing prompts; nothing escapes to the transport as a raw
// failure.
var (
	// ErrNotFood: the classifier or oracle affirmatively decided the input
	// is not food. User-visible as a suggestion to rephrase.
	ErrNotFood = errors.New("input is not food")

	// ErrNeedsClarification: food-adjacent but too vague to analyze.
	ErrNeedsClarification = errors.New("input needs clarification")

	// ErrMalformedOutput: oracle text could not be parsed into the expected
	// shape. Retried once with a stricter re-prompt.
	ErrMalformedOutput = errors.New("malformed oracle output")

	// ErrValidation: parsed output violates an invariant. Never retried.
	ErrValidation = errors.New("analysis failed validation")

	// ErrInvalidSelection: the user picked a stale or out-of-range portion
	// index. The session is left unchanged.
	ErrInvalidSelection = errors.New("portion selection out of range")
)

// ValidationError carries the specific invariant an oracle answer violated.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "analysis failed validation: " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
