// Package vcstest provides an in-memory IssueTracker for tests
package vcstest

import (
	"context"
	"fmt"
	"sync"

	"github.com/hellausefulsoftware/cleaner/internal/common/vcs"
)

// Call is one recorded tracker call
type Call struct {
	Op     string
	Owner  string
	Repo   string
	Number int
	Labels []string
	Body   string
}

// Tracker records calls and keeps per-issue state in memory
type Tracker struct {
	mu     sync.Mutex
	calls  []Call
	closed map[string]bool
	labels map[string][]string
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{
		closed: make(map[string]bool),
		labels: make(map[string][]string),
	}
}

func issueKey(owner, repo string, number int) string {
	return fmt.Sprintf("%s/%s#%d", owner, repo, number)
}

func (t *Tracker) record(c Call) {
	t.calls = append(t.calls, c)
}

// AddLabels implements vcs.IssueTracker; present labels are not duplicated
func (t *Tracker) AddLabels(_ context.Context, owner, repo string, number int, labels []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record(Call{Op: "add_labels", Owner: owner, Repo: repo, Number: number, Labels: append([]string(nil), labels...)})

	key := issueKey(owner, repo, number)
	for _, l := range labels {
		present := false
		for _, existing := range t.labels[key] {
			if existing == l {
				present = true
				break
			}
		}
		if !present {
			t.labels[key] = append(t.labels[key], l)
		}
	}
	return nil
}

// CreateComment implements vcs.IssueTracker
func (t *Tracker) CreateComment(_ context.Context, owner, repo string, number int, body string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record(Call{Op: "create_comment", Owner: owner, Repo: repo, Number: number, Body: body})
	return nil
}

// CloseIssue implements vcs.IssueTracker
func (t *Tracker) CloseIssue(_ context.Context, owner, repo string, number int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record(Call{Op: "close_issue", Owner: owner, Repo: repo, Number: number})
	t.closed[issueKey(owner, repo, number)] = true
	return nil
}

// GetIssueState implements vcs.IssueTracker
func (t *Tracker) GetIssueState(_ context.Context, owner, repo string, number int) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record(Call{Op: "get_issue_state", Owner: owner, Repo: repo, Number: number})
	if t.closed[issueKey(owner, repo, number)] {
		return "closed", nil
	}
	return "open", nil
}

// Calls returns a copy of the recorded calls
func (t *Tracker) Calls() []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Call(nil), t.calls...)
}

// Ops returns the recorded operation names in call order
func (t *Tracker) Ops() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ops := make([]string, len(t.calls))
	for i, c := range t.calls {
		ops[i] = c.Op
	}
	return ops
}

// Labels returns the labels added to one issue
func (t *Tracker) Labels(owner, repo string, number int) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.labels[issueKey(owner, repo, number)]...)
}

// Provider hands the same Tracker to every installation and records which
// installations were requested
type Provider struct {
	Tracker *Tracker

	mu            sync.Mutex
	installations []int64
}

// NewProvider creates a provider around a fresh Tracker
func NewProvider() *Provider {
	return &Provider{Tracker: NewTracker()}
}

// ForInstallation implements vcs.ClientProvider
func (p *Provider) ForInstallation(_ context.Context, installationID int64) (vcs.IssueTracker, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.installations = append(p.installations, installationID)
	return p.Tracker, nil
}

// Installations returns the requested installation IDs in order
func (p *Provider) Installations() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int64(nil), p.installations...)
}
