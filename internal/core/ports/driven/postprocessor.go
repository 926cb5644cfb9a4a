package driven

import (
	"context"

	"github.com/custodia-labs/ragingest/internal/core/domain"
)

// PostProcessor turns extracted text into chunks.
type PostProcessor interface {
	// Name returns the processor identifier.
	Name() string

	// Process splits the text into chunks numbered from zero.
	// Empty text yields no chunks and no error.
	Process(ctx context.Context, text *domain.ExtractedText) ([]domain.Chunk, error)
}
