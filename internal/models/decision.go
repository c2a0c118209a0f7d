package models

import (
	"fmt"
	"strings"
)

// Action names the kind of a Decision
type Action string

const (
	ActionIgnore  Action = "ignore"
	ActionClose   Action = "close"
	ActionComment Action = "comment"
	ActionLabel   Action = "label"
)

// Decision is the single action a feature chooses for an issue. Only the
// field matching Action is meaningful; build values with the constructors.
type Decision struct {
	Action  Action   `json:"action"`
	Reason  string   `json:"reason,omitempty"`
	Comment string   `json:"comment,omitempty"`
	Labels  []string `json:"labels,omitempty"`
}

// Ignore returns the no-op decision
func Ignore() Decision {
	return Decision{Action: ActionIgnore}
}

// Close returns a close decision with a human-readable reason
func Close(reason string) Decision {
	return Decision{Action: ActionClose, Reason: reason}
}

// Comment returns a decision to post text on the issue.
// Blank text degrades to Ignore.
func Comment(text string) Decision {
	if strings.TrimSpace(text) == "" {
		return Ignore()
	}
	return Decision{Action: ActionComment, Comment: text}
}

// Label returns a decision to add labels. An empty set degrades to Ignore.
func Label(labels ...string) Decision {
	labels = normalizeLabels(labels)
	if len(labels) == 0 {
		return Ignore()
	}
	return Decision{Action: ActionLabel, Labels: labels}
}

// IsIgnore reports whether the decision has no side effect
func (d Decision) IsIgnore() bool {
	return d.Action == "" || d.Action == ActionIgnore
}

func (d Decision) String() string {
	switch d.Action {
	case ActionClose:
		return fmt.Sprintf("close(%s)", d.Reason)
	case ActionComment:
		return fmt.Sprintf("comment(%d chars)", len(d.Comment))
	case ActionLabel:
		return fmt.Sprintf("label(%s)", strings.Join(d.Labels, ","))
	default:
		return string(ActionIgnore)
	}
}
