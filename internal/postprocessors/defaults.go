package postprocessors

import (
	"fmt"

	"github.com/custodia-labs/ragingest/internal/core/domain"
	"github.com/custodia-labs/ragingest/internal/core/ports/driven"
	"github.com/custodia-labs/ragingest/internal/postprocessors/chunker"
)

// DefaultProcessor is the processor the chunk stage uses.
const DefaultProcessor = "chunker"

// RegisterDefaults registers all built-in processors with the registry.
func RegisterDefaults(r *Registry) {
	r.Register(DefaultProcessor, buildChunker)
}

// NewDefaultRegistry returns a registry holding the built-in processors.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}

// buildChunker creates the word-wrap chunker for cfg.Width.
func buildChunker(cfg domain.ChunkSettings) (driven.PostProcessor, error) {
	if cfg.Width <= 0 {
		return nil, fmt.Errorf("%w: chunk width must be positive, got %d", domain.ErrInvalidInput, cfg.Width)
	}
	return chunker.New(chunker.WithWidth(cfg.Width)), nil
}
