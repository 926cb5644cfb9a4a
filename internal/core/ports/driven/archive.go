package driven

import (
	"context"

	"github.com/custodia-labs/ragingest/internal/core/domain"
)

// ArchiveWriter persists an EmbeddingStore as one archive file.
// Write must be atomic: on error no file is left at path other than
// whatever existed there before.
type ArchiveWriter interface {
	Write(ctx context.Context, path string, store *domain.EmbeddingStore) error
}

// ArchiveReader loads an archive written by an ArchiveWriter.
type ArchiveReader interface {
	Read(path string) (*domain.EmbeddingStore, error)
}
