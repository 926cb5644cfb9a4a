package driven

import (
	"context"

	"github.com/custodia-labs/ragingest/internal/core/domain"
)

// EmbeddingIndex mirrors an archive into queryable storage.
type EmbeddingIndex interface {
	// Replace swaps the indexed records for those of store in one transaction.
	Replace(ctx context.Context, run IndexedRun, store *domain.EmbeddingStore) error

	// Records returns the indexed records in archive order.
	Records(ctx context.Context) ([]domain.EmbeddingRecord, error)

	// LatestRun returns the run the index currently holds.
	// Returns domain.ErrNotFound when the index is empty.
	LatestRun(ctx context.Context) (*IndexedRun, error)

	// Close releases the underlying storage.
	Close() error
}

// IndexedRun describes the run whose records an EmbeddingIndex holds.
type IndexedRun struct {
	ID          string
	Model       string
	Dimensions  int
	ArchivePath string
}
