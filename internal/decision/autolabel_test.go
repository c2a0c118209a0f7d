package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hellausefulsoftware/cleaner/internal/models"
)

func newTestAutoLabel(t *testing.T) *AutoLabel {
	t.Helper()
	a, err := NewAutoLabel(DefaultRules().AutoLabel)
	require.NoError(t, err)
	return a
}

func TestAutoLabelMatches(t *testing.T) {
	tests := []struct {
		name  string
		issue models.Issue
		prior []string
		want  models.Decision
	}{
		{
			name:  "table order",
			issue: openIssue("Typo in README", "The app crashes after following it."),
			want:  models.Label("bug", "documentation"),
		},
		{
			name:  "whole words only",
			issue: openIssue("Debugging tips", "Some notes on errorless flows"),
			want:  models.Ignore(),
		},
		{
			name:  "case insensitive multi word",
			issue: openIssue("How   do I configure the port?", ""),
			want:  models.Label("question"),
		},
		{
			name:  "existing label skipped",
			issue: openIssue("Crash in docs build", "").WithLabels("Bug"),
			want:  models.Label("documentation"),
		},
		{
			name:  "prior label skipped",
			issue: openIssue("Crash in docs build", ""),
			prior: []string{"documentation"},
			want:  models.Label("bug"),
		},
		{
			name:  "everything already present",
			issue: openIssue("Crash in docs build", "").WithLabels("bug", "documentation"),
			want:  models.Ignore(),
		},
	}

	a := newTestAutoLabel(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Decide(models.IssueContext{Issue: tt.issue}, tt.prior)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAutoLabelClosedAndPullRequests(t *testing.T) {
	a := newTestAutoLabel(t)

	closed := openIssue("Crash on start", "")
	closed.State = models.StateClosed
	assert.Equal(t, models.Ignore(), a.Decide(models.IssueContext{Issue: closed}, nil))

	pr := openIssue("Fix crash on start", "")
	pr.IsPullRequest = true
	assert.Equal(t, models.Label("bug"), a.Decide(models.IssueContext{Issue: pr}, nil))
}

func TestAutoLabelSymbolKeywords(t *testing.T) {
	a, err := NewAutoLabel(AutoLabelRules{Keywords: []KeywordRule{{Label: "cpp", Keywords: []string{"c++"}}}})
	require.NoError(t, err)

	assert.Equal(t, models.Label("cpp"), a.Decide(models.IssueContext{Issue: openIssue("Bindings for C++", "")}, nil))
	assert.Equal(t, models.Ignore(), a.Decide(models.IssueContext{Issue: openIssue("Bindings for C", "")}, nil))
}

func TestAutoLabelIdempotentAgainstAppliedLabels(t *testing.T) {
	a := newTestAutoLabel(t)
	issue := openIssue("Crash in docs build", "")

	first := a.Decide(models.IssueContext{Issue: issue}, nil)
	require.Equal(t, models.ActionLabel, first.Action)

	applied := issue.WithLabels(append(issue.Labels(), first.Labels...)...)
	assert.Equal(t, models.Ignore(), a.Decide(models.IssueContext{Issue: applied}, nil))
}

func TestNewAutoLabelRejectsEmptyRule(t *testing.T) {
	_, err := NewAutoLabel(AutoLabelRules{Keywords: []KeywordRule{{Label: "bug", Keywords: []string{" "}}}})
	assert.Error(t, err)
}
