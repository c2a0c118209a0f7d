// Package executor applies decisions to GitHub issues
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cenkalti/backoff/v5"
	"github.com/hellausefulsoftware/cleaner/internal/decision"
	"github.com/hellausefulsoftware/cleaner/internal/logging"
	"github.com/hellausefulsoftware/cleaner/internal/models"
)

// ExecutionFailure reports the decisions that could not be applied to one
// issue. Err joins the individual failures.
type ExecutionFailure struct {
	Repository string
	Issue      int
	Decisions  []string
	Err        error
}

func (f *ExecutionFailure) Error() string {
	return fmt.Sprintf("failed to apply %s to %s#%d: %v",
		strings.Join(f.Decisions, ", "), f.Repository, f.Issue, f.Err)
}

func (f *ExecutionFailure) Unwrap() error {
	return f.Err
}

// Executor performs the API calls for a set of decisions
type Executor struct {
	dryRun        bool
	maxTries      uint
	newBackOff    func() backoff.BackOff
	closeMessages map[string]string
}

// Option configures an Executor
type Option func(*Executor)

// WithDryRun logs decisions instead of applying them
func WithDryRun(dryRun bool) Option {
	return func(e *Executor) { e.dryRun = dryRun }
}

// WithBackOff sets the backoff used between attempts of one call
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(e *Executor) { e.newBackOff = newBackOff }
}

// WithCloseMessages sets the closing comment per close reason. Reasons
// without a message get a generic comment.
func WithCloseMessages(messages map[string]string) Option {
	return func(e *Executor) { e.closeMessages = messages }
}

// WithMaxTries bounds the attempts per call, first attempt included
func WithMaxTries(n uint) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxTries = n
		}
	}
}

// New creates an Executor
func New(opts ...Option) *Executor {
	e := &Executor{
		maxTries:   defaultMaxTries,
		newBackOff: defaultBackOff,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DryRun reports whether the executor only logs
func (e *Executor) DryRun() bool {
	return e.dryRun
}

// Apply performs every non-ignore decision. Labels go first, then comments,
// then closes, so a closed issue still gets its labels and the closing
// comment precedes the state change. A failing decision does not stop the
// others; all failures are returned as one *ExecutionFailure.
func (e *Executor) Apply(ctx context.Context, ic models.IssueContext, outcomes []decision.Outcome) error {
	log := logging.WithFields(map[string]any{
		"repo":  ic.Repository.FullName(),
		"issue": ic.Issue.Number,
	})

	ordered := sequence(outcomes)
	if len(ordered) == 0 {
		return nil
	}

	if e.dryRun {
		for _, o := range ordered {
			log.Info("Dry run: skipping decision", "feature", o.Feature, "decision", o.Decision.String())
		}
		return nil
	}

	if ic.Client == nil {
		return &ExecutionFailure{
			Repository: ic.Repository.FullName(),
			Issue:      ic.Issue.Number,
			Decisions:  describe(ordered),
			Err:        errors.New("no GitHub client for installation"),
		}
	}

	var (
		errs   []error
		failed []string
	)
	for _, o := range ordered {
		if err := e.apply(ctx, ic, o.Decision); err != nil {
			log.Error("Failed to apply decision", "feature", o.Feature, "decision", o.Decision.String(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", o.Feature, err))
			failed = append(failed, o.Decision.String())
			continue
		}
		log.Info("Applied decision", "feature", o.Feature, "decision", o.Decision.String())
	}

	if len(errs) > 0 {
		return &ExecutionFailure{
			Repository: ic.Repository.FullName(),
			Issue:      ic.Issue.Number,
			Decisions:  failed,
			Err:        errors.Join(errs...),
		}
	}
	return nil
}

func (e *Executor) apply(ctx context.Context, ic models.IssueContext, d models.Decision) error {
	switch d.Action {
	case models.ActionLabel:
		return e.addLabels(ctx, ic, d.Labels)
	case models.ActionComment:
		return e.comment(ctx, ic, d.Comment)
	case models.ActionClose:
		return e.close(ctx, ic, d)
	default:
		return nil
	}
}

func (e *Executor) addLabels(ctx context.Context, ic models.IssueContext, labels []string) error {
	owner, repo, number := ic.Repository.Owner, ic.Repository.Repo, ic.Issue.Number
	return e.retry(ctx, "add_labels", onTransient, func(int) error {
		return ic.Client.AddLabels(ctx, owner, repo, number, labels)
	})
}

func (e *Executor) comment(ctx context.Context, ic models.IssueContext, body string) error {
	owner, repo, number := ic.Repository.Owner, ic.Repository.Repo, ic.Issue.Number
	return e.retry(ctx, "create_comment", onRateLimit, func(int) error {
		return ic.Client.CreateComment(ctx, owner, repo, number, body)
	})
}

// close posts the reason and closes the issue. The close is attempted even
// when the comment fails. A retry first re-reads the issue and stops if a
// previous attempt already closed it.
func (e *Executor) close(ctx context.Context, ic models.IssueContext, d models.Decision) error {
	owner, repo, number := ic.Repository.Owner, ic.Repository.Repo, ic.Issue.Number

	commentErr := e.comment(ctx, ic, e.closeComment(d.Reason))
	if commentErr != nil {
		commentErr = fmt.Errorf("closing comment: %w", commentErr)
	}

	closeErr := e.retry(ctx, "close_issue", onTransient, func(attempt int) error {
		if attempt > 1 {
			state, err := ic.Client.GetIssueState(ctx, owner, repo, number)
			if err != nil {
				return err
			}
			if state == string(models.StateClosed) {
				logging.Debug("Issue already closed by earlier attempt", "repo", ic.Repository.FullName(), "issue", number)
				return nil
			}
		}
		return ic.Client.CloseIssue(ctx, owner, repo, number)
	})

	return errors.Join(commentErr, closeErr)
}

func (e *Executor) closeComment(reason string) string {
	if msg := e.closeMessages[reason]; strings.TrimSpace(msg) != "" {
		return msg
	}
	return fmt.Sprintf("This issue was closed automatically (reason: %s). "+
		"If this was a mistake, please reopen it with more detail.", reason)
}

var phase = map[models.Action]int{
	models.ActionLabel:   0,
	models.ActionComment: 1,
	models.ActionClose:   2,
}

// sequence drops ignore decisions and orders the rest by phase, keeping
// feature order within a phase
func sequence(outcomes []decision.Outcome) []decision.Outcome {
	var buckets [3][]decision.Outcome
	for _, o := range outcomes {
		if o.Decision.IsIgnore() {
			continue
		}
		p, ok := phase[o.Decision.Action]
		if !ok {
			continue
		}
		buckets[p] = append(buckets[p], o)
	}
	out := make([]decision.Outcome, 0, len(outcomes))
	for _, b := range buckets {
		out = append(out, b...)
	}
	return out
}

func describe(outcomes []decision.Outcome) []string {
	out := make([]string, len(outcomes))
	for i, o := range outcomes {
		out[i] = o.Decision.String()
	}
	return out
}
