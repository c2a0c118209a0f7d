package decision

import (
	"strings"

	"github.com/hellausefulsoftware/cleaner/internal/models"
)

// Classifier reports whether an issue would be closed and why
type Classifier interface {
	Classify(issue models.Issue) (string, bool)
}

var firstTimeAssociations = []string{"FIRST_TIME_CONTRIBUTOR", "FIRST_TIMER"}

// WelcomeComment thanks first-time contributors once, when they open an
// issue. It stays silent for issues the closer would close.
type WelcomeComment struct {
	message string
	closer  Classifier
}

// NewWelcomeComment creates the feature. closer may be nil.
func NewWelcomeComment(rules WelcomeRules, closer Classifier) *WelcomeComment {
	return &WelcomeComment{message: rules.Message, closer: closer}
}

// Name implements Feature
func (w *WelcomeComment) Name() string { return FeatureWelcome }

// Decide implements Feature
func (w *WelcomeComment) Decide(ctx models.IssueContext, _ []string) models.Decision {
	issue := ctx.Issue
	if issue.IsClosed() || issue.IsPullRequest {
		return models.Ignore()
	}
	if ctx.Trigger != "" && ctx.Trigger != models.TriggerOpened {
		return models.Ignore()
	}
	if !containsFold(firstTimeAssociations, issue.AuthorAssociation) {
		return models.Ignore()
	}
	if w.closer != nil {
		if _, closing := w.closer.Classify(issue); closing {
			return models.Ignore()
		}
	}
	return models.Comment(strings.ReplaceAll(w.message, "{author}", issue.Author.Login))
}
