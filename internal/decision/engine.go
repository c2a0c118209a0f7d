// Package decision classifies issues. Each Feature produces one independent
// Decision; the Engine only sequences features and threads the labels
// decided so far into later ones.
package decision

import (
	"github.com/hellausefulsoftware/cleaner/internal/models"
)

// Feature is one pluggable rule. Decide must be pure: no I/O and no state
// carried across calls. Ambiguous input yields models.Ignore().
type Feature interface {
	Name() string
	Decide(ctx models.IssueContext, prior []string) models.Decision
}

// Outcome pairs a decision with the feature that produced it
type Outcome struct {
	Feature  string          `json:"feature"`
	Decision models.Decision `json:"decision"`
}

// Engine runs a fixed, ordered list of features
type Engine struct {
	features []Feature
}

// NewEngine composes features in evaluation order
func NewEngine(features ...Feature) *Engine {
	return &Engine{features: append([]Feature(nil), features...)}
}

// Features returns the feature names in evaluation order
func (e *Engine) Features() []string {
	names := make([]string, len(e.features))
	for i, f := range e.features {
		names[i] = f.Name()
	}
	return names
}

// Run evaluates every feature in order and never stops early. prior holds
// the labels decided by earlier features in this run; each feature gets its
// own copy.
func (e *Engine) Run(ctx models.IssueContext) []Outcome {
	outcomes := make([]Outcome, 0, len(e.features))
	var prior []string

	for _, f := range e.features {
		d := f.Decide(ctx, append([]string(nil), prior...))
		if d.Action == models.ActionLabel {
			prior = append(prior, d.Labels...)
		}
		outcomes = append(outcomes, Outcome{Feature: f.Name(), Decision: d})
	}
	return outcomes
}

// Actionable reports whether any outcome has a side effect
func Actionable(outcomes []Outcome) bool {
	for _, o := range outcomes {
		if !o.Decision.IsIgnore() {
			return true
		}
	}
	return false
}
