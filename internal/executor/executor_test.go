package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hellausefulsoftware/cleaner/internal/common/vcs"
	"github.com/hellausefulsoftware/cleaner/internal/decision"
	"github.com/hellausefulsoftware/cleaner/internal/models"
)

// fakeTracker records calls and fails them according to per-operation scripts
type fakeTracker struct {
	mu     sync.Mutex
	calls  []string
	labels []string
	state  string
	// errors returned by successive calls of one operation; nil entries succeed
	script map[string][]error
	// closeApplies marks failed close calls that still changed the state
	closeApplies bool
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{state: "open", script: map[string][]error{}}
}

func (f *fakeTracker) next(op string) error {
	f.calls = append(f.calls, op)
	errs := f.script[op]
	if len(errs) == 0 {
		return nil
	}
	f.script[op] = errs[1:]
	return errs[0]
}

func (f *fakeTracker) AddLabels(_ context.Context, _, _ string, _ int, labels []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.next("labels"); err != nil {
		return err
	}
	f.labels = models.Issue{}.WithLabels(append(f.labels, labels...)...).Labels()
	return nil
}

func (f *fakeTracker) CreateComment(context.Context, string, string, int, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.next("comment")
}

func (f *fakeTracker) CloseIssue(context.Context, string, string, int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := f.next("close")
	if err == nil || f.closeApplies {
		f.state = "closed"
	}
	return err
}

func (f *fakeTracker) GetIssueState(context.Context, string, string, int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.next("state"); err != nil {
		return "", err
	}
	return f.state, nil
}

func (f *fakeTracker) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func testExecutor(opts ...Option) *Executor {
	opts = append([]Option{WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} })}, opts...)
	return New(opts...)
}

func testContext(client vcs.IssueTracker) models.IssueContext {
	return models.IssueContext{
		Issue:      models.Issue{Number: 42, State: models.StateOpen},
		Repository: models.Repository{Owner: "octo", Repo: "hello"},
		Client:     client,
	}
}

func transient(msg string) error {
	return fmt.Errorf("%w: %s", vcs.ErrTransient, msg)
}

func TestApplyOrdersLabelsCommentsThenClose(t *testing.T) {
	tracker := newFakeTracker()
	outcomes := []decision.Outcome{
		{Feature: decision.FeatureAutoClose, Decision: models.Close(decision.ReasonSpamTemplate)},
		{Feature: decision.FeatureAutoLabel, Decision: models.Label("bug")},
		{Feature: decision.FeatureWelcome, Decision: models.Comment("hi")},
		{Feature: "noop", Decision: models.Ignore()},
	}

	require.NoError(t, testExecutor().Apply(context.Background(), testContext(tracker), outcomes))

	assert.Equal(t, []string{"labels", "comment", "comment", "close"}, tracker.Calls())
	assert.Equal(t, []string{"bug"}, tracker.labels)
	assert.Equal(t, "closed", tracker.state)
}

func TestApplyIgnoreMakesNoCalls(t *testing.T) {
	tracker := newFakeTracker()
	err := testExecutor().Apply(context.Background(), testContext(tracker), []decision.Outcome{
		{Feature: "a", Decision: models.Ignore()},
	})

	require.NoError(t, err)
	assert.Empty(t, tracker.Calls())
}

func TestApplyLabelsTwiceIsIdempotent(t *testing.T) {
	tracker := newFakeTracker()
	outcomes := []decision.Outcome{{Feature: "l", Decision: models.Label("bug", "docs")}}
	ex := testExecutor()

	require.NoError(t, ex.Apply(context.Background(), testContext(tracker), outcomes))
	require.NoError(t, ex.Apply(context.Background(), testContext(tracker), outcomes))

	assert.Equal(t, []string{"bug", "docs"}, tracker.labels)
}

func TestLabelsRetryTransientErrors(t *testing.T) {
	tracker := newFakeTracker()
	tracker.script["labels"] = []error{transient("502"), fmt.Errorf("%w: slow down", vcs.ErrRateLimited)}

	err := testExecutor().Apply(context.Background(), testContext(tracker), []decision.Outcome{
		{Feature: "l", Decision: models.Label("bug")},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"labels", "labels", "labels"}, tracker.Calls())
}

func TestLabelsGiveUpAfterMaxTries(t *testing.T) {
	tracker := newFakeTracker()
	tracker.script["labels"] = []error{transient("1"), transient("2"), transient("3")}

	err := testExecutor(WithMaxTries(2)).Apply(context.Background(), testContext(tracker), []decision.Outcome{
		{Feature: "l", Decision: models.Label("bug")},
	})

	var failure *ExecutionFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "octo/hello", failure.Repository)
	assert.Equal(t, 42, failure.Issue)
	assert.Equal(t, []string{"label(bug)"}, failure.Decisions)
	assert.ErrorIs(t, err, vcs.ErrTransient)
	assert.Len(t, tracker.Calls(), 2)
}

func TestCommentRetriesOnlyRateLimits(t *testing.T) {
	tracker := newFakeTracker()
	tracker.script["comment"] = []error{fmt.Errorf("%w: secondary", vcs.ErrRateLimited), transient("timeout")}

	err := testExecutor().Apply(context.Background(), testContext(tracker), []decision.Outcome{
		{Feature: "c", Decision: models.Comment("hello")},
	})

	assert.ErrorIs(t, err, vcs.ErrTransient)
	assert.Equal(t, []string{"comment", "comment"}, tracker.Calls(), "ambiguous comment failures are not retried")
}

func TestCloseRetryChecksState(t *testing.T) {
	tracker := newFakeTracker()
	tracker.closeApplies = true
	tracker.script["close"] = []error{transient("connection reset")}

	err := testExecutor().Apply(context.Background(), testContext(tracker), []decision.Outcome{
		{Feature: "c", Decision: models.Close(decision.ReasonStale)},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"comment", "close", "state"}, tracker.Calls(), "no second close once the issue is closed")
}

func TestCloseRetriesWhenStillOpen(t *testing.T) {
	tracker := newFakeTracker()
	tracker.script["close"] = []error{transient("502")}

	err := testExecutor().Apply(context.Background(), testContext(tracker), []decision.Outcome{
		{Feature: "c", Decision: models.Close(decision.ReasonStale)},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"comment", "close", "state", "close"}, tracker.Calls())
	assert.Equal(t, "closed", tracker.state)
}

func TestCloseAttemptedWhenCommentFails(t *testing.T) {
	tracker := newFakeTracker()
	tracker.script["comment"] = []error{errors.New("validation failed")}

	err := testExecutor().Apply(context.Background(), testContext(tracker), []decision.Outcome{
		{Feature: "c", Decision: models.Close(decision.ReasonEmptyBody)},
		{Feature: "l", Decision: models.Label("bug")},
	})

	var failure *ExecutionFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, []string{"close(empty-body)"}, failure.Decisions)
	assert.Equal(t, "closed", tracker.state)
	assert.Equal(t, []string{"bug"}, tracker.labels, "other decisions still run")
}

func TestNonRetryableErrorStopsImmediately(t *testing.T) {
	tracker := newFakeTracker()
	tracker.script["close"] = []error{fmt.Errorf("%w: gone", vcs.ErrNotFound)}

	err := testExecutor().Apply(context.Background(), testContext(tracker), []decision.Outcome{
		{Feature: "c", Decision: models.Close(decision.ReasonStale)},
	})

	assert.ErrorIs(t, err, vcs.ErrNotFound)
	assert.Equal(t, []string{"comment", "close"}, tracker.Calls())
}

func TestDryRunMakesNoCalls(t *testing.T) {
	tracker := newFakeTracker()
	ex := testExecutor(WithDryRun(true))

	err := ex.Apply(context.Background(), testContext(tracker), []decision.Outcome{
		{Feature: "c", Decision: models.Close(decision.ReasonStale)},
		{Feature: "l", Decision: models.Label("bug")},
	})

	require.NoError(t, err)
	assert.True(t, ex.DryRun())
	assert.Empty(t, tracker.Calls())
}

func TestApplyWithoutClient(t *testing.T) {
	err := testExecutor().Apply(context.Background(), testContext(nil), []decision.Outcome{
		{Feature: "l", Decision: models.Label("bug")},
	})

	var failure *ExecutionFailure
	require.ErrorAs(t, err, &failure)
	assert.Contains(t, failure.Error(), "octo/hello#42")
}

func TestCloseCommentText(t *testing.T) {
	assert.Contains(t, New().closeComment(decision.ReasonStale), "reason: stale")

	e := New(WithCloseMessages(map[string]string{
		decision.ReasonStale:     "Closing as stale.",
		decision.ReasonEmptyBody: "  ",
	}))
	assert.Equal(t, "Closing as stale.", e.closeComment(decision.ReasonStale))
	assert.Contains(t, e.closeComment(decision.ReasonEmptyBody), "reason: empty-body")
	assert.Contains(t, e.closeComment(decision.ReasonSpamTemplate), "reason: spam-template")
}
