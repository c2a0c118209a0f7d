package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hellausefulsoftware/cleaner/internal/decision"
	"github.com/hellausefulsoftware/cleaner/internal/models"
)

// RenderReport formats the decisions for one issue
func RenderReport(t *Theme, ic models.IssueContext, outcomes []decision.Outcome) string {
	issue := ic.Issue

	var header strings.Builder
	header.WriteString(t.Title.Render(fmt.Sprintf("%s#%d", ic.Repository.FullName(), issue.Number)))
	header.WriteString(" ")
	header.WriteString(issue.Title)

	meta := []string{
		field(t, "state", string(issue.State)),
		field(t, "author", issue.Author.Login),
	}
	if labels := issue.Labels(); len(labels) > 0 {
		meta = append(meta, field(t, "labels", strings.Join(labels, ", ")))
	}
	if issue.IsPullRequest {
		meta = append(meta, field(t, "kind", "pull request"))
	}

	rows := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, t.Feature.Render(o.Feature)+RenderDecision(t, o.Decision))
	}
	if len(rows) == 0 {
		rows = append(rows, t.Faint.Render("no features enabled"))
	}

	return t.Box.Render(lipgloss.JoinVertical(lipgloss.Left,
		header.String(),
		strings.Join(meta, "\n"),
		"",
		strings.Join(rows, "\n"),
	))
}

// RenderDecision formats one decision in its action's style
func RenderDecision(t *Theme, d models.Decision) string {
	switch d.Action {
	case models.ActionClose:
		return t.Close.Render("close") + " " + d.Reason
	case models.ActionComment:
		return t.Comment.Render("comment") + " " + truncate(d.Comment, 60)
	case models.ActionLabel:
		return t.Tag.Render("label") + " " + strings.Join(d.Labels, ", ")
	default:
		return t.Ignore.Render("ignore")
	}
}

func field(t *Theme, name, value string) string {
	return t.Label.Render(name) + value
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
