package webhook

import (
	"context"
	"time"

	"github.com/hellausefulsoftware/cleaner/internal/delivery"
	"github.com/hellausefulsoftware/cleaner/internal/logging"
)

// Pipeline verifies, deduplicates and routes deliveries
type Pipeline struct {
	secret []byte
	dedup  *delivery.Deduplicator
	router *Router
	now    func() time.Time
}

// NewPipeline creates a pipeline for one webhook secret
func NewPipeline(secret []byte, dedup *delivery.Deduplicator, router *Router) *Pipeline {
	return &Pipeline{
		secret: secret,
		dedup:  dedup,
		router: router,
		now:    time.Now,
	}
}

// Process runs one delivery end to end. The signature is checked against
// the raw body before anything is decoded.
func (p *Pipeline) Process(ctx context.Context, ev Event) Result {
	if err := ev.Validate(); err != nil {
		return Result{Kind: Rejected, Route: ev.Name, Err: err}
	}
	if err := VerifySignature(ev.Body, ev.Signature, p.secret); err != nil {
		logging.Warn("Rejected webhook signature", "delivery", ev.DeliveryID, "event", ev.Name)
		return Result{Kind: Rejected, Route: ev.Name, Err: err}
	}

	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = p.now()
	}
	admission, err := p.dedup.Admit(ctx, delivery.Record{
		DeliveryID: ev.DeliveryID,
		EventType:  ev.Name,
		ReceivedAt: ev.ReceivedAt,
	})
	if err != nil {
		logging.Warn("Delivery store unavailable, processing anyway", "delivery", ev.DeliveryID, "error", err)
	}
	if admission == delivery.Duplicate {
		return Result{Kind: Duplicate, Route: ev.Name}
	}

	return p.router.Dispatch(ctx, ev)
}
