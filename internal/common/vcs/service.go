// Package vcs provides interfaces and implementations for version control system interactions
package vcs

import (
	"context"
	"errors"
)

// Error kinds that IssueTracker implementations wrap their failures in, so
// callers can decide on retries without knowing the provider's error types.
var (
	// ErrRateLimited means the provider refused the request before applying it
	ErrRateLimited = errors.New("rate limited")
	// ErrTransient means the request may or may not have been applied
	ErrTransient = errors.New("transient failure")
	// ErrNotFound means the issue or repository does not exist
	ErrNotFound = errors.New("not found")
)

// IssueTracker is the set of issue mutations the agent performs. An instance
// is scoped to one installation's credentials.
type IssueTracker interface {
	// AddLabels adds labels to an issue. Labels already present are a no-op.
	AddLabels(ctx context.Context, owner, repo string, number int, labels []string) error
	// CreateComment posts a comment on an issue
	CreateComment(ctx context.Context, owner, repo string, number int, body string) error
	// CloseIssue sets the issue state to closed
	CloseIssue(ctx context.Context, owner, repo string, number int) error
	// GetIssueState returns "open" or "closed"
	GetIssueState(ctx context.Context, owner, repo string, number int) (string, error)
}

// ClientProvider hands out installation-scoped trackers
type ClientProvider interface {
	ForInstallation(ctx context.Context, installationID int64) (IssueTracker, error)
}

// IsRetryable reports whether err is a rate-limit or transient failure
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransient)
}
