package workflow

import (
	"errors"
	"fmt"

	"github.com/holon-run/prgen/pkg/github"
	"github.com/holon-run/prgen/pkg/llm"
)

// ErrBusy is returned when a transition is requested while another stage is in flight.
// The session state is left untouched.
var ErrBusy = errors.New("another operation is in progress")

// ErrSuperseded is returned when the session was reset or re-selected while
// the operation was in flight. Its result was discarded.
var ErrSuperseded = errors.New("session changed while the operation was in flight")

// UpstreamError is a failure reported by, or while reaching, an external service
type UpstreamError struct {
	Scope      Scope
	StatusCode int // 0 for transport failures
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed (status %d): %s", e.Scope, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Scope, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// PreconditionError is returned when a transition is invoked without its required prior state
type PreconditionError struct {
	Scope  Scope
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Scope, e.Reason)
}

// upstream classifies err as an UpstreamError for scope, keeping the host
// status and message when available.
func upstream(scope Scope, err error) *UpstreamError {
	ue := &UpstreamError{Scope: scope, Message: err.Error(), Err: err}

	var apiErr *github.APIError
	var statusErr *llm.StatusError
	switch {
	case errors.As(err, &apiErr):
		ue.StatusCode = apiErr.StatusCode
		if apiErr.Message != "" {
			ue.Message = apiErr.Message
		}
	case errors.As(err, &statusErr):
		ue.StatusCode = statusErr.StatusCode
		if statusErr.Body != "" {
			ue.Message = statusErr.Body
		}
	}
	return ue
}

func preconditionf(scope Scope, format string, args ...any) *PreconditionError {
	return &PreconditionError{Scope: scope, Reason: fmt.Sprintf(format, args...)}
}
