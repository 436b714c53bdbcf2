package console

import "errors"

var (
	ErrNotFound             = errors.New("order not found")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrInvalidInput         = errors.New("invalid input")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrCommandInProgress    = errors.New("command in progress")
	ErrStopped              = errors.New("console stopped")
)

// InputError carries the inline message shown next to the offending field.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}
