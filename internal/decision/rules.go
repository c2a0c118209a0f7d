package decision

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Feature names, also the keys accepted in per-repository overrides
const (
	FeatureAutoClose = "auto-close"
	FeatureAutoLabel = "auto-label"
	FeatureWelcome   = "welcome-comment"
)

// Rules parameterises the built-in features for one deployment
type Rules struct {
	AutoClose AutoCloseRules `yaml:"auto_close"`
	AutoLabel AutoLabelRules `yaml:"auto_label"`
	Welcome   WelcomeRules   `yaml:"welcome"`

	// Repositories maps "owner/repo" to feature toggles for that repository
	Repositories map[string]RepositoryRules `yaml:"repositories"`
}

// AutoCloseRules configures the auto-close criteria
type AutoCloseRules struct {
	Enabled bool `yaml:"enabled"`
	// SpamTemplates are whole bodies that are closed on sight, compared
	// after case folding and whitespace collapsing
	SpamTemplates []string `yaml:"spam_templates"`
	// SpamPatterns are regular expressions matched against the raw body
	SpamPatterns []string `yaml:"spam_patterns"`
	// TemplateLines are the lines of the repository's issue template; a body
	// made only of these lines was submitted without filling the template in
	TemplateLines  []string      `yaml:"template_lines"`
	MinTitleLength int           `yaml:"min_title_length"`
	StaleAfter     time.Duration `yaml:"stale_after"`
	// Messages overrides the closing comment per reason
	Messages map[string]string `yaml:"messages"`
}

// KeywordRule maps any of its keywords to one label
type KeywordRule struct {
	Label    string   `yaml:"label"`
	Keywords []string `yaml:"keywords"`
}

// AutoLabelRules configures keyword labelling. Rule order is label order.
type AutoLabelRules struct {
	Enabled  bool          `yaml:"enabled"`
	Keywords []KeywordRule `yaml:"keywords"`
}

// WelcomeRules configures the first-time contributor comment. {author} in
// Message is replaced with the author's login.
type WelcomeRules struct {
	Enabled bool   `yaml:"enabled"`
	Message string `yaml:"message"`
}

// RepositoryRules toggles features for one repository. Features not listed
// keep the deployment-wide setting.
type RepositoryRules struct {
	Features map[string]bool `yaml:"features"`
}

// DefaultRules returns the rule set used when no rules file is configured
func DefaultRules() Rules {
	return Rules{
		AutoClose: AutoCloseRules{
			Enabled: true,
			SpamTemplates: []string{
				"test", "testing", "test issue", "asdf", "asdfasdf", "qwerty",
				"hello", "hi", "hello world", "spam", ".", "...", "-",
			},
			SpamPatterns: []string{
				`(?i)\b(buy|cheap|discount)\b.{0,40}\b(viagra|cialis|followers|likes)\b`,
				`(?i)\b(casino|betting|slot machines?)\b.{0,80}https?://`,
				`(?i)\b(forex|crypto)\s+(signals|investment|trading bot)\b`,
			},
			TemplateLines: []string{
				"**Describe the bug**",
				"A clear and concise description of what the bug is.",
				"**To Reproduce**",
				"Steps to reproduce the behavior:",
				"1. Go to '...'",
				"2. Click on '....'",
				"3. Scroll down to '....'",
				"4. See error",
				"**Expected behavior**",
				"A clear and concise description of what you expected to happen.",
				"**Screenshots**",
				"If applicable, add screenshots to help explain your problem.",
				"**Additional context**",
				"Add any other context about the problem here.",
			},
			MinTitleLength: 10,
			StaleAfter:     180 * 24 * time.Hour,
		},
		AutoLabel: AutoLabelRules{
			Enabled: true,
			Keywords: []KeywordRule{
				{Label: "bug", Keywords: []string{"bug", "crash", "crashes", "error", "exception", "broken", "panic", "regression"}},
				{Label: "enhancement", Keywords: []string{"feature", "feature request", "enhancement", "proposal", "suggestion"}},
				{Label: "documentation", Keywords: []string{"docs", "documentation", "readme", "typo"}},
				{Label: "question", Keywords: []string{"question", "how do i", "how to"}},
				{Label: "performance", Keywords: []string{"slow", "performance", "latency", "memory leak"}},
			},
		},
		Welcome: WelcomeRules{
			Enabled: false,
			Message: "Thanks for opening your first issue here, @{author}! A maintainer will take a look soon.",
		},
	}
}

// LoadRules reads a YAML (or JSON) rules file on top of DefaultRules.
// Sections present in the file replace the defaults; unknown keys are rejected.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()

	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("failed to read rules file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&rules); err != nil && !errors.Is(err, io.EOF) {
		return Rules{}, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}

	if err := rules.Validate(); err != nil {
		return Rules{}, fmt.Errorf("invalid rules file %s: %w", path, err)
	}
	return rules, nil
}

// Validate checks thresholds, keyword rules and repository overrides.
// Spam patterns are compiled by NewAutoClose.
func (r Rules) Validate() error {
	var errs []error

	if r.AutoClose.MinTitleLength < 0 {
		errs = append(errs, fmt.Errorf("auto_close.min_title_length must not be negative"))
	}
	if r.AutoClose.StaleAfter < 0 {
		errs = append(errs, fmt.Errorf("auto_close.stale_after must not be negative"))
	}
	for i, kr := range r.AutoLabel.Keywords {
		if strings.TrimSpace(kr.Label) == "" {
			errs = append(errs, fmt.Errorf("auto_label.keywords[%d]: label is required", i))
		}
		if len(kr.Keywords) == 0 {
			errs = append(errs, fmt.Errorf("auto_label.keywords[%d]: at least one keyword is required", i))
		}
	}
	if r.Welcome.Enabled && strings.TrimSpace(r.Welcome.Message) == "" {
		errs = append(errs, fmt.Errorf("welcome.message is required when welcome is enabled"))
	}
	for repo, rr := range r.Repositories {
		if !strings.Contains(repo, "/") {
			errs = append(errs, fmt.Errorf("repositories: %q is not owner/repo", repo))
		}
		for name := range rr.Features {
			switch name {
			case FeatureAutoClose, FeatureAutoLabel, FeatureWelcome:
			default:
				errs = append(errs, fmt.Errorf("repositories[%s]: unknown feature %q", repo, name))
			}
		}
	}

	return errors.Join(errs...)
}
