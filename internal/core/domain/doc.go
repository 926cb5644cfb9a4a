// Package domain defines the core entities of the ingestion pipeline.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - SourceDocument: A PDF handed to the Extractor
//   - ExtractedText: The OCR output of one document
//   - Chunk: A bounded, word-aligned segment of extracted text
//   - EmbeddingRecord / EmbeddingStore: Vectors with their provenance
//   - UnitResult / StageSummary / RunSummary: Per-unit outcomes of a run
//   - AppSettings: The explicit configuration passed into every stage
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
