package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/hellausefulsoftware/cleaner/internal/logging"
)

// ErrSkipped is returned by handlers that accept an event but have nothing to do
var ErrSkipped = errors.New("event skipped")

// Handler processes one routed event
type Handler interface {
	Handle(ctx context.Context, ev Event) error
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, ev Event) error

// Handle calls f
func (f HandlerFunc) Handle(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Router dispatches events by "<event>.<action>", falling back to "<event>".
// Events without a route are acknowledged and dropped.
type Router struct {
	routes map[string]Handler
}

// NewRouter creates an empty router
func NewRouter() *Router {
	return &Router{routes: make(map[string]Handler)}
}

// Handle registers h for key
func (r *Router) Handle(key string, h Handler) {
	r.routes[key] = h
}

type envelope struct {
	Action string `json:"action"`
}

// Dispatch routes a verified, admitted event. Handler errors and panics are
// logged and turned into a Failed result; only undecodable bodies surface as
// Malformed.
func (r *Router) Dispatch(ctx context.Context, ev Event) (res Result) {
	var env envelope
	if err := json.Unmarshal(ev.Body, &env); err != nil {
		return Result{Kind: Malformed, Route: ev.Name, Err: fmt.Errorf("%w: %w", ErrMalformedPayload, err)}
	}

	key, h := r.lookup(ev.Name, env.Action)
	if h == nil {
		logging.Debug("No handler for event", "event", ev.Name, "action", env.Action, "delivery", ev.DeliveryID)
		return Result{Kind: Ignored, Route: key}
	}

	log := logging.WithFields(map[string]any{
		"delivery": ev.DeliveryID,
		"route":    key,
	})

	defer func() {
		if p := recover(); p != nil {
			log.Error("Handler panicked", "panic", p, "stack", string(debug.Stack()))
			res = Result{Kind: Failed, Route: key, Err: fmt.Errorf("%w: %v", ErrHandlerPanic, p)}
		}
	}()

	err := h.Handle(ctx, ev)
	var issueErr *IssueError
	if errors.As(err, &issueErr) {
		log = log.With("repo", issueErr.Repository, "issue", issueErr.Issue)
	}

	switch {
	case err == nil:
		return Result{Kind: Processed, Route: key}
	case errors.Is(err, ErrSkipped):
		return Result{Kind: Ignored, Route: key, Err: err}
	case errors.Is(err, ErrMalformedPayload):
		log.Warn("Malformed payload", "error", err)
		return Result{Kind: Malformed, Route: key, Err: err}
	default:
		log.Error("Failed to handle event", "error", err)
		return Result{Kind: Failed, Route: key, Err: err}
	}
}

func (r *Router) lookup(event, action string) (string, Handler) {
	if action != "" {
		key := event + "." + action
		if h, ok := r.routes[key]; ok {
			return key, h
		}
	}
	if h, ok := r.routes[event]; ok {
		return event, h
	}
	if action != "" {
		return event + "." + action, nil
	}
	return event, nil
}
