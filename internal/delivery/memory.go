package delivery

import (
	"context"
	"sync"
	"time"
)

const defaultSweepInterval = 10 * time.Minute

// MemoryStore keeps delivery IDs in process memory. Expired entries are
// swept lazily during inserts, at most once per sweep interval.
type MemoryStore struct {
	mu            sync.Mutex
	entries       map[string]memoryEntry
	lastSweep     time.Time
	sweepInterval time.Duration
	now           func() time.Time
}

type memoryEntry struct {
	rec    Record
	expiry time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:       make(map[string]memoryEntry),
		sweepInterval: defaultSweepInterval,
		now:           time.Now,
	}
}

// Insert adds the delivery ID unless a live entry already exists
func (s *MemoryStore) Insert(_ context.Context, rec Record, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= s.sweepInterval {
		s.sweepLocked(now)
	}

	if e, ok := s.entries[rec.DeliveryID]; ok && now.Before(e.expiry) {
		return false, nil
	}
	s.entries[rec.DeliveryID] = memoryEntry{rec: rec, expiry: now.Add(ttl)}
	return true, nil
}

// Get returns the record admitted under deliveryID while it is retained
func (s *MemoryStore) Get(deliveryID string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[deliveryID]
	if !ok || !s.now().Before(e.expiry) {
		return Record{}, false
	}
	return e.rec, true
}

// Len returns the number of tracked deliveries, including expired ones not yet swept
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) sweepLocked(now time.Time) {
	for id, e := range s.entries {
		if !now.Before(e.expiry) {
			delete(s.entries, id)
		}
	}
	s.lastSweep = now
}
