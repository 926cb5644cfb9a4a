// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the pipeline to function:
//
//   - PageRenderer: Rasterises PDF pages (poppler)
//   - OCREngine: Recognises text in page images (Tesseract)
//   - EmbeddingLoader: Loads the embedding model for one Embedder run
//   - EmbeddingService: Generates vector embeddings
//   - ArchiveWriter: Persists the aligned embedding arrays atomically
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the pipeline degrades gracefully:
//
//   - EmbeddingIndex: SQLite mirror of the archive.
//   - MetricsRecorder: Per-unit counters and timings.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
