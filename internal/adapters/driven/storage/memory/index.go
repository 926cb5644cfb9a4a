package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/ragingest/internal/core/domain"
	"github.com/custodia-labs/ragingest/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.EmbeddingIndex = (*Index)(nil)

// Index is an in-memory implementation of driven.EmbeddingIndex.
type Index struct {
	mu      sync.RWMutex
	run     *driven.IndexedRun
	records []domain.EmbeddingRecord
	closed  bool
}

// NewIndex creates an empty in-memory index.
func NewIndex() *Index {
	return &Index{}
}

// Replace swaps the indexed records for those of store.
func (i *Index) Replace(_ context.Context, run driven.IndexedRun, store *domain.EmbeddingStore) error {
	if store == nil {
		return domain.ErrInvalidInput
	}

	records := make([]domain.EmbeddingRecord, len(store.Records))
	for n, r := range store.Records {
		vec := make([]float32, len(r.Vector))
		copy(vec, r.Vector)
		records[n] = domain.EmbeddingRecord{Name: r.Name, Text: r.Text, Vector: vec}
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.run = &run
	i.records = records
	return nil
}

// Records returns the indexed records in archive order.
func (i *Index) Records(_ context.Context) ([]domain.EmbeddingRecord, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]domain.EmbeddingRecord, len(i.records))
	copy(out, i.records)
	return out, nil
}

// LatestRun returns the run the index holds.
func (i *Index) LatestRun(_ context.Context) (*driven.IndexedRun, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.run == nil {
		return nil, domain.ErrNotFound
	}
	run := *i.run
	return &run, nil
}

// Close marks the index closed.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.closed = true
	return nil
}

// Closed reports whether Close was called.
func (i *Index) Closed() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.closed
}
