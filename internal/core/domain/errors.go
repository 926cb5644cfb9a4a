package domain

import "errors"

// Domain errors represent pipeline failures.
// These are distinct from infrastructure errors, which adapters wrap with them.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown embedding provider.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrInputNotFound indicates a stage input directory does not exist.
	ErrInputNotFound = errors.New("input directory not found")

	// Extraction Errors.

	// ErrRendererNotFound indicates the page rasteriser binary is not installed.
	ErrRendererNotFound = errors.New("pdf renderer not found")

	// ErrRenderFailed indicates a PDF page could not be rasterised.
	ErrRenderFailed = errors.New("page render failed")

	// ErrOCRFailed indicates text recognition failed for a page image.
	ErrOCRFailed = errors.New("ocr failed")

	// Embedding Errors.

	// ErrEmbeddingUnavailable indicates the embedding model could not be loaded.
	// The Embedder run is aborted without writing an archive.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrMisalignedArchive indicates the vectors, names and texts of a run
	// would not line up one-to-one.
	ErrMisalignedArchive = errors.New("misaligned embedding archive")

	// ErrArchiveWrite indicates the archive could not be written.
	// Any previous archive at the same path is left untouched.
	ErrArchiveWrite = errors.New("archive write failed")

	// ErrRunInProgress indicates a pipeline run is already executing.
	ErrRunInProgress = errors.New("run in progress")
)
