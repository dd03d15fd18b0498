package memory

import (
	"context"
	"sync"

	"github.com/aretw0/tether/pkg/domain"
)

// Journal implements ports.Journal in memory.
// Safe for concurrent use.
type Journal struct {
	data  map[string][]domain.ActionRecord
	limit int
	mu    sync.RWMutex
}

// Option configures a Journal.
type Option func(*Journal)

// WithLimit keeps only the newest n records per store (0 means unbounded).
func WithLimit(n int) Option {
	return func(j *Journal) {
		j.limit = n
	}
}

// NewJournal creates a new in-memory journal.
func NewJournal(opts ...Option) *Journal {
	j := &Journal{
		data: make(map[string][]domain.ActionRecord),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Append records the dispatch under rec.StoreID.
func (j *Journal) Append(ctx context.Context, rec domain.ActionRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	records := append(j.data[rec.StoreID], rec)
	if j.limit > 0 && len(records) > j.limit {
		records = append([]domain.ActionRecord(nil), records[len(records)-j.limit:]...)
	}
	j.data[rec.StoreID] = records
	return nil
}

// List returns the records of a store, oldest first.
func (j *Journal) List(ctx context.Context, storeID string) ([]domain.ActionRecord, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	// Copy on read so callers can't reorder the journal
	records := j.data[storeID]
	ret := make([]domain.ActionRecord, len(records))
	copy(ret, records)
	return ret, nil
}

// Stores returns the IDs of every store with at least one record.
func (j *Journal) Stores() []string {
	j.mu.RLock()
	defer j.mu.RUnlock()

	ids := make([]string, 0, len(j.data))
	for id := range j.data {
		ids = append(ids, id)
	}
	return ids
}
