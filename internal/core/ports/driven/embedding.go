package driven

import (
	"context"

	"github.com/custodia-labs/ragingest/internal/core/domain"
)

// EmbeddingService generates vector embeddings from text.
// A loaded service is the model handle of one Embedder run; it is shared
// read-only by all embedding workers and closed when the run ends.
//
// Implementations include:
//   - Ollama (all-minilm, nomic-embed-text)
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - In-process feature hashing
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	// The result has one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1536, 3072).
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// EmbeddingLoader creates and validates the embedding service for a run.
// A load failure is fatal for the Embedder run.
type EmbeddingLoader interface {
	Load(ctx context.Context, settings domain.EmbedSettings) (EmbeddingService, error)
}
