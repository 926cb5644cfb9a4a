package driving

import (
	"context"

	"github.com/custodia-labs/ragingest/internal/core/domain"
)

// Extractor turns a directory of PDFs into one text file per PDF.
type Extractor interface {
	// Extract runs OCR over every PDF of the configured input directory.
	// Per-document failures are reported in the summary; only failures that
	// prevent the stage from running at all are returned as errors.
	Extract(ctx context.Context) (*domain.StageSummary, error)
}

// Chunker splits extracted text files into bounded chunk files.
type Chunker interface {
	// Chunk wraps every text file of the configured input directory.
	// Per-file failures are reported in the summary.
	Chunk(ctx context.Context) (*domain.StageSummary, error)
}

// Embedder embeds chunk files and persists them as one archive.
type Embedder interface {
	// Embed vectorises every chunk file and writes the archive.
	// Any failure is fatal for the run and leaves no partial archive.
	Embed(ctx context.Context) (*domain.StageSummary, error)
}

// Pipeline runs the stages in order.
type Pipeline interface {
	// Run executes extract, chunk and embed sequentially.
	// The returned summary includes every stage that ran, even on error.
	Run(ctx context.Context) (*domain.RunSummary, error)

	// RunStage executes a single stage wrapped in a run summary.
	RunStage(ctx context.Context, stage domain.Stage) (*domain.RunSummary, error)
}
