// Package history stores completed polls with their final tallies.
// Entries are append-only and immutable; the poll engine appends exactly
// one record per poll on its first active-to-inactive transition.
package history

import (
	"context"
	"sync"

	"pollboard/pkg/types"
)

// Store is the append/read contract between the poll engine and whatever
// keeps poll history. List returns records in creation order.
type Store interface {
	Append(ctx context.Context, record *types.PollRecord) error
	List(ctx context.Context) ([]*types.PollRecord, error)
}

// MemoryStore keeps history in process memory, matching the reference
// behavior. Suitable for tests and single-process deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*types.PollRecord
}

// NewMemoryStore creates an empty in-memory history store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append adds a record. The stored copy is detached from the caller's
// poll and tally so later mutations cannot reach history.
func (s *MemoryStore) Append(_ context.Context, record *types.PollRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, &types.PollRecord{
		Poll:    record.Poll.Clone(),
		Results: record.Results.Clone(),
	})
	return nil
}

// List returns all records in creation order.
func (s *MemoryStore) List(_ context.Context) ([]*types.PollRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*types.PollRecord, len(s.records))
	copy(records, s.records)
	return records, nil
}

// HealthCheck reports store availability; a memory store is always
// available.
func (s *MemoryStore) HealthCheck(_ context.Context) error {
	return nil
}
