package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrNotConfigured = errors.New("backend client not configured")

// TransportError means the command channel could not be reached or answered
// with a server failure. It is retryable.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: backend unreachable: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: backend unreachable: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RejectedError means the backend answered {success:false}. Backend state
// did not change.
type RejectedError struct {
	Op      string
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s: rejected: %s", e.Op, e.Message)
}

// Reason is the operator facing text of a failed call.
func Reason(err error) string {
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return rejected.Message
	}
	var transport *TransportError
	if errors.As(err, &transport) {
		return "A szerver nem érhető el"
	}
	if err == nil {
		return ""
	}
	return "Ismeretlen hiba"
}

func IsTransport(err error) bool {
	var transport *TransportError
	return errors.As(err, &transport)
}

func IsRejected(err error) bool {
	var rejected *RejectedError
	return errors.As(err, &rejected)
}

func rejectedMessage(status int, msg string) string {
	if msg != "" {
		return msg
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "a kérés elutasítva"
}
