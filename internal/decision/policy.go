package decision

import (
	"strings"
	"time"

	"github.com/hellausefulsoftware/cleaner/internal/models"
)

// Policy selects the engine for a repository. Engines are composed once, at
// construction, in the order auto-close, auto-label, welcome-comment.
type Policy struct {
	defaultEngine *Engine
	repos         map[string]*Engine
}

// NewPolicy builds the deployment engine and one engine per repository
// override
func NewPolicy(rules Rules, now func() time.Time) (*Policy, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	closer, err := NewAutoClose(rules.AutoClose, now)
	if err != nil {
		return nil, err
	}
	labeler, err := NewAutoLabel(rules.AutoLabel)
	if err != nil {
		return nil, err
	}

	base := map[string]bool{
		FeatureAutoClose: rules.AutoClose.Enabled,
		FeatureAutoLabel: rules.AutoLabel.Enabled,
		FeatureWelcome:   rules.Welcome.Enabled,
	}
	compose := func(enabled map[string]bool) *Engine {
		var features []Feature
		if enabled[FeatureAutoClose] {
			features = append(features, closer)
		}
		if enabled[FeatureAutoLabel] {
			features = append(features, labeler)
		}
		if enabled[FeatureWelcome] {
			var c Classifier
			if enabled[FeatureAutoClose] {
				c = closer
			}
			features = append(features, NewWelcomeComment(rules.Welcome, c))
		}
		return NewEngine(features...)
	}

	p := &Policy{
		defaultEngine: compose(base),
		repos:         make(map[string]*Engine, len(rules.Repositories)),
	}
	for repo, rr := range rules.Repositories {
		enabled := make(map[string]bool, len(base))
		for k, v := range base {
			enabled[k] = v
		}
		for k, v := range rr.Features {
			enabled[k] = v
		}
		p.repos[strings.ToLower(repo)] = compose(enabled)
	}
	return p, nil
}

// EngineFor returns the engine configured for repo. GitHub repository names
// are case-insensitive, so is the lookup.
func (p *Policy) EngineFor(repo models.Repository) *Engine {
	if e, ok := p.repos[strings.ToLower(repo.FullName())]; ok {
		return e
	}
	return p.defaultEngine
}
