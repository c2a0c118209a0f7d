package decision

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hellausefulsoftware/cleaner/internal/models"
)

type labelRule struct {
	label   string
	pattern *regexp.Regexp
}

// AutoLabel adds labels for keywords found in the title or body. Keywords
// match whole words, ignoring case.
type AutoLabel struct {
	rules []labelRule
}

// NewAutoLabel compiles the keyword table, keeping its order
func NewAutoLabel(rules AutoLabelRules) (*AutoLabel, error) {
	a := &AutoLabel{}
	for _, kr := range rules.Keywords {
		label := strings.TrimSpace(kr.Label)
		if label == "" {
			return nil, fmt.Errorf("keyword rule without label")
		}
		re, err := keywordPattern(kr.Keywords)
		if err != nil {
			return nil, fmt.Errorf("label %q: %w", label, err)
		}
		a.rules = append(a.rules, labelRule{label: label, pattern: re})
	}
	return a, nil
}

// keywordPattern matches any keyword bounded by non-word runes or the ends
// of the text. \b is not used so keywords like "c++" still match.
func keywordPattern(keywords []string) (*regexp.Regexp, error) {
	alts := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.Join(strings.Fields(k), " ")
		if k == "" {
			continue
		}
		alts = append(alts, strings.ReplaceAll(regexp.QuoteMeta(k), " ", `\s+`))
	}
	if len(alts) == 0 {
		return nil, fmt.Errorf("no keywords")
	}
	return regexp.Compile(`(?i)(?:^|[^\p{L}\p{N}_])(?:` + strings.Join(alts, "|") + `)(?:$|[^\p{L}\p{N}_])`)
}

// Name implements Feature
func (a *AutoLabel) Name() string { return FeatureAutoLabel }

// Decide implements Feature. Labels already on the issue or decided by an
// earlier feature are left out; closed issues are ignored.
func (a *AutoLabel) Decide(ctx models.IssueContext, prior []string) models.Decision {
	issue := ctx.Issue
	if issue.IsClosed() {
		return models.Ignore()
	}

	text := issue.Title + "\n" + issue.Body
	var labels []string
	for _, r := range a.rules {
		if issue.HasLabel(r.label) || containsFold(prior, r.label) {
			continue
		}
		if r.pattern.MatchString(text) {
			labels = append(labels, r.label)
		}
	}
	return models.Label(labels...)
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
