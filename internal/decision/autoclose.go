package decision

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hellausefulsoftware/cleaner/internal/models"
)

// Close reasons, one per auto-close criterion
const (
	ReasonSpamTemplate = "spam-template"
	ReasonEmptyBody    = "empty-body"
	ReasonStale        = "stale"
)

var htmlComment = regexp.MustCompile(`(?s)<!--.*?-->`)

// AutoClose closes low-effort issues. Criteria are checked in a fixed order
// and the first match names the close reason.
type AutoClose struct {
	templates     map[string]struct{}
	templateLines map[string]struct{}
	patterns      []*regexp.Regexp
	minTitle      int
	staleAfter    time.Duration
	now           func() time.Time
}

// NewAutoClose compiles the spam patterns. now supplies the clock used for
// staleness; pass a fixed function in tests.
func NewAutoClose(rules AutoCloseRules, now func() time.Time) (*AutoClose, error) {
	if now == nil {
		now = time.Now
	}
	a := &AutoClose{
		templates:     make(map[string]struct{}, len(rules.SpamTemplates)),
		templateLines: make(map[string]struct{}, len(rules.TemplateLines)),
		minTitle:      rules.MinTitleLength,
		staleAfter:    rules.StaleAfter,
		now:           now,
	}
	for _, t := range rules.SpamTemplates {
		if n := normalizeText(t); n != "" {
			a.templates[n] = struct{}{}
		}
	}
	for _, l := range rules.TemplateLines {
		if n := normalizeText(l); n != "" {
			a.templateLines[n] = struct{}{}
		}
	}
	for _, p := range rules.SpamPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid spam pattern %q: %w", p, err)
		}
		a.patterns = append(a.patterns, re)
	}
	return a, nil
}

// Name implements Feature
func (a *AutoClose) Name() string { return FeatureAutoClose }

// Decide implements Feature. Closed issues and pull requests are ignored.
func (a *AutoClose) Decide(ctx models.IssueContext, _ []string) models.Decision {
	reason, ok := a.Classify(ctx.Issue)
	if !ok {
		return models.Ignore()
	}
	return models.Close(reason)
}

// Classify returns the first matching close criterion for issue
func (a *AutoClose) Classify(issue models.Issue) (string, bool) {
	if issue.IsClosed() || issue.IsPullRequest {
		return "", false
	}

	body := strings.TrimSpace(issue.Body)
	switch {
	case body != "" && a.isSpam(body):
		return ReasonSpamTemplate, true
	case body == "" && len([]rune(strings.TrimSpace(issue.Title))) < a.minTitle:
		return ReasonEmptyBody, true
	case a.staleAfter > 0 && a.now().Sub(issue.UpdatedAt) > a.staleAfter:
		return ReasonStale, true
	}
	return "", false
}

func (a *AutoClose) isSpam(body string) bool {
	if _, ok := a.templates[normalizeText(body)]; ok {
		return true
	}
	for _, re := range a.patterns {
		if re.MatchString(body) {
			return true
		}
	}
	return len(a.templateLines) > 0 && a.onlyTemplate(body)
}

// onlyTemplate reports whether nothing is left of body once HTML comments
// and unchanged template lines are removed
func (a *AutoClose) onlyTemplate(body string) bool {
	stripped := htmlComment.ReplaceAllString(body, "")
	for _, line := range strings.Split(stripped, "\n") {
		n := normalizeText(line)
		if n == "" {
			continue
		}
		if _, ok := a.templateLines[n]; !ok {
			return false
		}
	}
	return true
}

// normalizeText trims, case-folds and collapses runs of whitespace
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
