package webhook

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingSignature is returned when no signature header was sent
	ErrMissingSignature = errors.New("missing signature")
	// ErrInvalidSignature is returned when the signature does not match the body
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrMissingHeaders is returned when the event or delivery header is absent
	ErrMissingHeaders = errors.New("missing webhook headers")
	// ErrMalformedPayload is returned when a verified body cannot be decoded
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrHandlerPanic marks a failure recovered from a panicking handler
	ErrHandlerPanic = errors.New("handler panic")
)

// IssueError attaches the issue a handler was working on to its failure
type IssueError struct {
	Repository string
	Issue      int
	Err        error
}

func (e *IssueError) Error() string {
	return fmt.Sprintf("%s#%d: %v", e.Repository, e.Issue, e.Err)
}

func (e *IssueError) Unwrap() error {
	return e.Err
}
