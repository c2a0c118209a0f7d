// Package delivery tracks webhook delivery identifiers so that provider
// redeliveries are processed at most once.
package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/hellausefulsoftware/cleaner/internal/logging"
)

// DefaultRetention is how long a delivery ID is remembered
const DefaultRetention = 24 * time.Hour

// Record describes one delivery attempt
type Record struct {
	DeliveryID string
	EventType  string
	ReceivedAt time.Time
}

// Admission is the outcome of admitting a delivery
type Admission int

const (
	// FirstSeen means the delivery should be processed
	FirstSeen Admission = iota
	// Duplicate means the delivery ID was already admitted within the retention window
	Duplicate
)

func (a Admission) String() string {
	if a == Duplicate {
		return "duplicate"
	}
	return "first-seen"
}

// Store persists admitted delivery IDs. Insert must be atomic: of several
// concurrent calls with one ID exactly one returns true.
type Store interface {
	Insert(ctx context.Context, rec Record, ttl time.Duration) (inserted bool, err error)
}

// Deduplicator admits deliveries against a Store
type Deduplicator struct {
	store     Store
	retention time.Duration
	now       func() time.Time
}

// NewDeduplicator creates a deduplicator. A non-positive retention uses DefaultRetention.
func NewDeduplicator(store Store, retention time.Duration) *Deduplicator {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Deduplicator{
		store:     store,
		retention: retention,
		now:       time.Now,
	}
}

// Admit records the delivery and reports whether it was seen before.
// A store failure is returned together with FirstSeen so the caller can
// process the event rather than drop it.
func (d *Deduplicator) Admit(ctx context.Context, rec Record) (Admission, error) {
	if rec.DeliveryID == "" {
		return FirstSeen, fmt.Errorf("delivery id is required")
	}
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = d.now()
	}

	inserted, err := d.store.Insert(ctx, rec, d.retention)
	if err != nil {
		return FirstSeen, fmt.Errorf("failed to record delivery %s: %w", rec.DeliveryID, err)
	}
	if !inserted {
		logging.Debug("Duplicate delivery", "delivery", rec.DeliveryID, "event", rec.EventType)
		return Duplicate, nil
	}
	return FirstSeen, nil
}
