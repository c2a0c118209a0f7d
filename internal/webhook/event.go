package webhook

import (
	"fmt"
	"time"
)

// Header names GitHub sets on every delivery
const (
	HeaderEvent     = "X-GitHub-Event"
	HeaderDelivery  = "X-GitHub-Delivery"
	HeaderSignature = "X-Hub-Signature-256"
)

// Event is one inbound delivery as received, before verification
type Event struct {
	Name       string
	DeliveryID string
	Signature  string
	Body       []byte
	ReceivedAt time.Time
}

// Validate checks that the routing headers are present
func (e Event) Validate() error {
	if e.Name == "" || e.DeliveryID == "" {
		return ErrMissingHeaders
	}
	if e.Signature == "" {
		return fmt.Errorf("%w: %w", ErrMissingHeaders, ErrMissingSignature)
	}
	return nil
}

// ResultKind classifies how a delivery was handled
type ResultKind int

const (
	// Processed means a handler ran to completion
	Processed ResultKind = iota
	// Ignored means no handler is registered for the event, or the handler skipped it
	Ignored
	// Duplicate means the delivery ID was already seen
	Duplicate
	// Failed means the handler failed; the failure is logged and acknowledged
	Failed
	// Malformed means the verified body could not be decoded
	Malformed
	// Rejected means headers or signature were missing or invalid
	Rejected
)

func (k ResultKind) String() string {
	switch k {
	case Processed:
		return "processed"
	case Ignored:
		return "ignored"
	case Duplicate:
		return "duplicate"
	case Failed:
		return "failed"
	case Malformed:
		return "malformed"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("ResultKind(%d)", int(k))
	}
}

// Acknowledged reports whether the provider should see a success response
func (k ResultKind) Acknowledged() bool {
	return k != Malformed && k != Rejected
}

// Result is the outcome of one delivery
type Result struct {
	Kind ResultKind
	// Route is the routing key, e.g. "issues.opened"
	Route string
	Err   error
}
