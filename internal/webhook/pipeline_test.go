package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hellausefulsoftware/cleaner/internal/common/vcs"
	"github.com/hellausefulsoftware/cleaner/internal/common/vcs/vcstest"
	"github.com/hellausefulsoftware/cleaner/internal/decision"
	"github.com/hellausefulsoftware/cleaner/internal/delivery"
	"github.com/hellausefulsoftware/cleaner/internal/executor"
	"github.com/hellausefulsoftware/cleaner/internal/logging"
	"github.com/hellausefulsoftware/cleaner/internal/models"
)

var testSecret = []byte("webhook-secret")

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func issuesPayload(t *testing.T, action, title, body string, installation int64) []byte {
	t.Helper()
	p := map[string]any{
		"action": action,
		"issue": map[string]any{
			"id":         1001,
			"number":     7,
			"title":      title,
			"body":       body,
			"state":      "open",
			"user":       map[string]any{"login": "octocat", "id": 1},
			"labels":     []any{},
			"created_at": "2024-05-01T11:00:00Z",
			"updated_at": "2024-05-01T11:00:00Z",
		},
		"repository": map[string]any{
			"name":      "hello",
			"full_name": "octo/hello",
			"owner":     map[string]any{"login": "octo"},
		},
	}
	if installation > 0 {
		p["installation"] = map[string]any{"id": installation}
	}
	data, err := json.Marshal(p)
	require.NoError(t, err)
	return data
}

type testPipeline struct {
	pipeline *Pipeline
	provider *vcstest.Provider
	outcomes [][]decision.Outcome
}

func newTestPipeline(t *testing.T, opts ...executor.Option) *testPipeline {
	t.Helper()
	policy, err := decision.NewPolicy(decision.DefaultRules(), func() time.Time { return testNow })
	require.NoError(t, err)

	tp := &testPipeline{provider: vcstest.NewProvider()}
	opts = append([]executor.Option{executor.WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} })}, opts...)

	handler := NewIssueHandler(tp.provider, policy, executor.New(opts...))
	handler.now = func() time.Time { return testNow }
	handler.OnOutcomes = func(_ models.IssueContext, o []decision.Outcome) {
		tp.outcomes = append(tp.outcomes, o)
	}

	router := NewRouter()
	handler.Register(router)

	dedup := delivery.NewDeduplicator(delivery.NewMemoryStore(), time.Hour)
	tp.pipeline = NewPipeline(testSecret, dedup, router)
	return tp
}

func signedEvent(name, id string, body []byte) Event {
	return Event{Name: name, DeliveryID: id, Signature: Sign(body, testSecret), Body: body}
}

func TestPipelineClosesSpam(t *testing.T) {
	tp := newTestPipeline(t)
	body := issuesPayload(t, "opened", "Broken build on main", "asdf", 99)

	res := tp.pipeline.Process(context.Background(), signedEvent("issues", "d-1", body))

	require.Equal(t, Processed, res.Kind, "error: %v", res.Err)
	assert.Equal(t, "issues.opened", res.Route)
	require.Len(t, tp.outcomes, 1)
	assert.Equal(t, models.Close(decision.ReasonSpamTemplate), tp.outcomes[0][0].Decision)
	assert.Equal(t, []string{"add_labels", "create_comment", "close_issue"}, tp.provider.Tracker.Ops())
	assert.Equal(t, []int64{99}, tp.provider.Installations())
}

func TestPipelineDuplicateDelivery(t *testing.T) {
	tp := newTestPipeline(t)
	ev := signedEvent("issues", "d-1", issuesPayload(t, "opened", "Broken build on main", "asdf", 99))

	first := tp.pipeline.Process(context.Background(), ev)
	calls := len(tp.provider.Tracker.Calls())
	second := tp.pipeline.Process(context.Background(), ev)

	assert.Equal(t, Processed, first.Kind)
	assert.Equal(t, Duplicate, second.Kind)
	assert.Len(t, tp.provider.Tracker.Calls(), calls)
}

func TestPipelineRejectsBadInput(t *testing.T) {
	tp := newTestPipeline(t)
	body := issuesPayload(t, "opened", "Broken build on main", "asdf", 99)

	tampered := signedEvent("issues", "d-1", body)
	tampered.Body = issuesPayload(t, "opened", "Broken build on main", "legit", 99)

	unsigned := signedEvent("issues", "d-2", body)
	unsigned.Signature = ""

	noDelivery := signedEvent("issues", "", body)

	for name, ev := range map[string]Event{
		"tampered":    tampered,
		"unsigned":    unsigned,
		"no delivery": noDelivery,
	} {
		t.Run(name, func(t *testing.T) {
			res := tp.pipeline.Process(context.Background(), ev)
			assert.Equal(t, Rejected, res.Kind)
		})
	}
	assert.Empty(t, tp.provider.Tracker.Calls())
	assert.Empty(t, tp.outcomes)
}

func TestPipelineUnknownEvent(t *testing.T) {
	tp := newTestPipeline(t)
	res := tp.pipeline.Process(context.Background(), signedEvent("ping", "d-1", []byte(`{"zen":"hi","hook_id":1}`)))

	assert.Equal(t, Ignored, res.Kind)
	assert.Empty(t, tp.outcomes)
	assert.Empty(t, tp.provider.Installations())
}

func TestPipelineMissingInstallation(t *testing.T) {
	tp := newTestPipeline(t)
	body := issuesPayload(t, "opened", "Broken build on main", "asdf", 0)

	res := tp.pipeline.Process(context.Background(), signedEvent("issues", "d-1", body))

	assert.Equal(t, Ignored, res.Kind)
	assert.Empty(t, tp.outcomes)
	assert.Empty(t, tp.provider.Tracker.Calls())
}

func TestPipelineMalformedIssue(t *testing.T) {
	tp := newTestPipeline(t)
	body := []byte(`{"action":"opened","issue":null}`)

	res := tp.pipeline.Process(context.Background(), signedEvent("issues", "d-1", body))
	assert.Equal(t, Malformed, res.Kind)
}

func TestPipelineToleratesWrongTypedIssueFields(t *testing.T) {
	tp := newTestPipeline(t)
	body := []byte(`{
		"action": "opened",
		"issue": {"number": 7, "title": "Crash when saving large files", "body": 42, "state": "open", "user": "ghost", "labels": "triage"},
		"repository": {"name": "hello", "owner": {"login": "octo"}},
		"installation": {"id": 99}
	}`)

	res := tp.pipeline.Process(context.Background(), signedEvent("issues", "d-1", body))

	require.Equal(t, Processed, res.Kind, "error: %v", res.Err)
	assert.Equal(t, []string{"add_labels"}, tp.provider.Tracker.Ops())
	assert.Equal(t, []string{"bug"}, tp.provider.Tracker.Labels("octo", "hello", 7))
}

func TestPipelineLabelsRegularIssue(t *testing.T) {
	tp := newTestPipeline(t)
	body := issuesPayload(t, "edited", "Crash when saving large files", "Saving a 2GB file crashes the app.", 99)

	res := tp.pipeline.Process(context.Background(), signedEvent("issues", "d-1", body))

	require.Equal(t, Processed, res.Kind)
	assert.Equal(t, []string{"add_labels"}, tp.provider.Tracker.Ops())
	assert.Equal(t, []string{"bug"}, tp.provider.Tracker.Labels("octo", "hello", 7))
}

func TestPipelineDryRun(t *testing.T) {
	tp := newTestPipeline(t, executor.WithDryRun(true))
	body := issuesPayload(t, "opened", "Broken build on main", "asdf", 99)

	res := tp.pipeline.Process(context.Background(), signedEvent("issues", "d-1", body))

	assert.Equal(t, Processed, res.Kind)
	require.Len(t, tp.outcomes, 1)
	assert.Empty(t, tp.provider.Installations())
	assert.Empty(t, tp.provider.Tracker.Calls())
}

type providerFunc func(ctx context.Context, installationID int64) (vcs.IssueTracker, error)

func (f providerFunc) ForInstallation(ctx context.Context, installationID int64) (vcs.IssueTracker, error) {
	return f(ctx, installationID)
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logging.Initialize(&logging.Config{Level: logging.LogLevelDebug, Output: &buf})
	t.Cleanup(func() { logging.Initialize(nil) })
	return &buf
}

func errorLines(logs string) []string {
	var lines []string
	for _, line := range strings.Split(logs, "\n") {
		if strings.Contains(line, "level=ERROR") {
			lines = append(lines, line)
		}
	}
	return lines
}

func TestPipelineFailuresLogIssue(t *testing.T) {
	tests := []struct {
		name     string
		provider providerFunc
	}{
		{
			name: "provider error",
			provider: func(context.Context, int64) (vcs.IssueTracker, error) {
				return nil, errors.New("token exchange failed")
			},
		},
		{
			name: "provider panic",
			provider: func(context.Context, int64) (vcs.IssueTracker, error) {
				panic("provider exploded")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := captureLogs(t)

			policy, err := decision.NewPolicy(decision.DefaultRules(), func() time.Time { return testNow })
			require.NoError(t, err)
			handler := NewIssueHandler(tt.provider, policy, executor.New())
			handler.now = func() time.Time { return testNow }
			router := NewRouter()
			handler.Register(router)
			pipeline := NewPipeline(testSecret, delivery.NewDeduplicator(delivery.NewMemoryStore(), time.Hour), router)

			body := issuesPayload(t, "opened", "Broken build on main", "asdf", 5)
			res := pipeline.Process(context.Background(), signedEvent("issues", "d1", body))

			assert.Equal(t, Failed, res.Kind)
			var issueErr *IssueError
			require.ErrorAs(t, res.Err, &issueErr)
			assert.Equal(t, "octo/hello", issueErr.Repository)
			assert.Equal(t, 7, issueErr.Issue)

			lines := errorLines(logs.String())
			require.NotEmpty(t, lines)
			for _, line := range lines {
				assert.Contains(t, line, "repo=octo/hello")
				assert.Contains(t, line, "issue=7")
			}
		})
	}
}
