package webhook

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouterDispatch(t *testing.T) {
	var called []string
	record := func(name string, err error) Handler {
		return HandlerFunc(func(context.Context, Event) error {
			called = append(called, name)
			return err
		})
	}

	r := NewRouter()
	r.Handle("issues.opened", record("opened", nil))
	r.Handle("issues.edited", record("edited", errors.New("boom")))
	r.Handle("issues.closed", record("closed", ErrSkipped))
	r.Handle("label", record("label", nil))
	r.Handle("issues.deleted", HandlerFunc(func(context.Context, Event) error { panic("bad handler") }))

	tests := []struct {
		name      string
		event     string
		body      string
		wantKind  ResultKind
		wantRoute string
	}{
		{"exact route", "issues", `{"action":"opened"}`, Processed, "issues.opened"},
		{"event fallback", "label", `{"action":"created"}`, Processed, "label"},
		{"handler error", "issues", `{"action":"edited"}`, Failed, "issues.edited"},
		{"handler skip", "issues", `{"action":"closed"}`, Ignored, "issues.closed"},
		{"handler panic", "issues", `{"action":"deleted"}`, Failed, "issues.deleted"},
		{"unknown action", "issues", `{"action":"pinned"}`, Ignored, "issues.pinned"},
		{"ping", "ping", `{"zen":"Keep it logically awesome."}`, Ignored, "ping"},
		{"bad json", "issues", `{"action":`, Malformed, "issues"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Dispatch(context.Background(), Event{Name: tt.event, DeliveryID: "d", Body: []byte(tt.body)})
			assert.Equal(t, tt.wantKind, res.Kind)
			assert.Equal(t, tt.wantRoute, res.Route)
		})
	}

	assert.Equal(t, []string{"opened", "label", "edited", "closed"}, called)
}

func TestMalformedFromHandler(t *testing.T) {
	r := NewRouter()
	r.Handle("issues", HandlerFunc(func(context.Context, Event) error {
		return ErrMalformedPayload
	}))

	res := r.Dispatch(context.Background(), Event{Name: "issues", Body: []byte(`{}`)})
	assert.Equal(t, Malformed, res.Kind)
	assert.False(t, res.Kind.Acknowledged())
}

func TestResultKindString(t *testing.T) {
	assert.Equal(t, "processed", Processed.String())
	assert.Equal(t, "duplicate", Duplicate.String())
	assert.Equal(t, "ResultKind(42)", ResultKind(42).String())
	assert.True(t, Failed.Acknowledged())
	assert.False(t, Rejected.Acknowledged())
}
