package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/hellausefulsoftware/cleaner/internal/common/vcs"
	"github.com/hellausefulsoftware/cleaner/internal/decision"
	"github.com/hellausefulsoftware/cleaner/internal/executor"
	gh "github.com/hellausefulsoftware/cleaner/internal/github"
	"github.com/hellausefulsoftware/cleaner/internal/logging"
	"github.com/hellausefulsoftware/cleaner/internal/models"
)

// IssueActions are the issues webhook actions that drive automation
var IssueActions = []string{models.TriggerOpened, models.TriggerReopened, models.TriggerEdited}

// IssueHandler maps an issues webhook, runs the repository's engine and
// applies the resulting decisions
type IssueHandler struct {
	provider vcs.ClientProvider
	policy   *decision.Policy
	executor *executor.Executor
	now      func() time.Time

	// OnOutcomes, when set, receives the decisions of each handled issue
	OnOutcomes func(models.IssueContext, []decision.Outcome)
}

// NewIssueHandler creates the handler. provider may be nil in dry-run mode.
func NewIssueHandler(provider vcs.ClientProvider, policy *decision.Policy, exec *executor.Executor) *IssueHandler {
	return &IssueHandler{
		provider: provider,
		policy:   policy,
		executor: exec,
		now:      time.Now,
	}
}

// Register routes every issue action in IssueActions to h
func (h *IssueHandler) Register(r *Router) {
	for _, action := range IssueActions {
		r.Handle("issues."+action, h)
	}
}

// Handle implements Handler. Failures after the issue is known, panics
// included, are returned as *IssueError.
func (h *IssueHandler) Handle(ctx context.Context, ev Event) (err error) {
	var payload gh.IssuesEventPayload
	if err := json.Unmarshal(ev.Body, &payload); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if payload.Issue == nil || payload.Repository == nil {
		return fmt.Errorf("%w: issues event without issue or repository", ErrMalformedPayload)
	}

	repo := gh.ToRepository(payload.Repository)
	log := logging.WithFields(map[string]any{
		"delivery": ev.DeliveryID,
		"repo":     repo.FullName(),
		"issue":    payload.Issue.Number,
	})

	defer func() {
		if p := recover(); p != nil {
			log.Error("Issue handler panicked", "panic", p, "stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, p)
		}
		if err != nil && !errors.Is(err, ErrSkipped) {
			err = &IssueError{Repository: repo.FullName(), Issue: payload.Issue.Number, Err: err}
		}
	}()

	if payload.Installation == nil || payload.Installation.ID == 0 {
		log.Warn("Issue event without installation context")
		return ErrSkipped
	}

	log.Info("Issue event", "action", payload.Action)

	ic := models.IssueContext{
		Issue:          gh.ToIssue(*payload.Issue, h.now()),
		Repository:     repo,
		InstallationID: payload.Installation.ID,
		Trigger:        payload.Action,
	}

	outcomes := h.policy.EngineFor(repo).Run(ic)
	if h.OnOutcomes != nil {
		h.OnOutcomes(ic, outcomes)
	}
	if !decision.Actionable(outcomes) {
		log.Debug("No action for issue")
		return nil
	}

	if !h.executor.DryRun() {
		if h.provider == nil {
			return fmt.Errorf("no GitHub client provider configured")
		}
		client, err := h.provider.ForInstallation(ctx, ic.InstallationID)
		if err != nil {
			return fmt.Errorf("failed to get client for installation %d: %w", ic.InstallationID, err)
		}
		ic.Client = client
	}

	if err := h.executor.Apply(ctx, ic, outcomes); err != nil {
		return err
	}
	return nil
}
