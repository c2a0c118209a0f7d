package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/hellausefulsoftware/cleaner/internal/common/vcs"
)

// IssueState is the open/closed state of an issue
type IssueState string

const (
	StateOpen   IssueState = "open"
	StateClosed IssueState = "closed"
)

// UnknownLogin is the author login used when a payload carries no user
const UnknownLogin = "unknown"

// Author identifies the user who opened an issue
type Author struct {
	Login string `json:"login"`
	ID    int64  `json:"id"`
}

// Issue is the provider-agnostic view of an issue or pull request.
// Values are built once by the mapper and passed around by value; the label
// set is only reachable through copies.
type Issue struct {
	ID                int64      `json:"id"`
	Number            int        `json:"number"`
	Title             string     `json:"title"`
	Body              string     `json:"body"`
	State             IssueState `json:"state"`
	Author            Author     `json:"author"`
	AuthorAssociation string     `json:"author_association,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	IsPullRequest     bool       `json:"is_pull_request"`

	labels []string
}

// WithLabels returns a copy of the issue carrying the given label set.
// Empty names and duplicates are dropped, first occurrence wins.
func (i Issue) WithLabels(labels ...string) Issue {
	i.labels = normalizeLabels(labels)
	return i
}

// Labels returns a copy of the issue's labels
func (i Issue) Labels() []string {
	out := make([]string, len(i.labels))
	copy(out, i.labels)
	return out
}

// HasLabel reports whether the issue carries the label, ignoring case
// as GitHub does for label names.
func (i Issue) HasLabel(name string) bool {
	for _, l := range i.labels {
		if strings.EqualFold(l, name) {
			return true
		}
	}
	return false
}

// MarshalJSON includes the label set
func (i Issue) MarshalJSON() ([]byte, error) {
	type plain Issue
	return json.Marshal(struct {
		plain
		Labels []string `json:"labels"`
	}{plain(i), i.Labels()})
}

// IsClosed reports whether the issue is closed
func (i Issue) IsClosed() bool {
	return i.State == StateClosed
}

func normalizeLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		key := strings.ToLower(l)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l)
	}
	return out
}

// Repository identifies the repository an issue belongs to
type Repository struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

// FullName returns owner/repo
func (r Repository) FullName() string {
	return r.Owner + "/" + r.Repo
}

// Triggers name the webhook action that produced an IssueContext
const (
	TriggerOpened   = "opened"
	TriggerReopened = "reopened"
	TriggerEdited   = "edited"
)

// IssueContext is everything a feature or the executor needs to act on one
// event. It is built per delivery and dropped once execution completes.
type IssueContext struct {
	Issue          Issue            `json:"issue"`
	Repository     Repository       `json:"repository"`
	InstallationID int64            `json:"installation_id"`
	Trigger        string           `json:"trigger,omitempty"`
	Client         vcs.IssueTracker `json:"-"`
}
