package domain

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// chunkMarker separates the document stem from the chunk index in chunk file names.
const chunkMarker = "_chunk"

// SourceDocument is a PDF awaiting text extraction.
// It is never modified by the pipeline.
type SourceDocument struct {
	// Name is the stable identifier derived from the file stem.
	Name string

	// Path is the location of the PDF on disk.
	Path string
}

// NewSourceDocument builds a SourceDocument from a file path.
func NewSourceDocument(path string) SourceDocument {
	return SourceDocument{
		Name: Stem(path),
		Path: path,
	}
}

// ExtractedText is the newline-joined OCR output of a document's pages.
type ExtractedText struct {
	// Document is the name of the SourceDocument the text came from.
	Document string

	// Pages is the number of pages that were recognised.
	Pages int

	// Text holds the page texts joined with "\n" in page order.
	Text string
}

// Chunk is a bounded segment of a document's extracted text.
type Chunk struct {
	// Document is the name of the parent document.
	Document string

	// Index is the zero-based sequence index within the document.
	Index int

	// Text is the chunk content.
	Text string
}

// Name returns the provenance name of the chunk, e.g. "intro_chunk0.txt".
func (c Chunk) Name() string {
	return ChunkFileName(c.Document, c.Index)
}

// ChunkFileName returns the file name for chunk index of document.
func ChunkFileName(document string, index int) string {
	return document + chunkMarker + strconv.Itoa(index) + ".txt"
}

// ParseChunkName splits a chunk file name into its document stem and index.
// It returns ErrInvalidInput when the name does not follow the chunk naming scheme.
func ParseChunkName(name string) (string, int, error) {
	stem := strings.TrimSuffix(filepath.Base(name), ".txt")
	pos := strings.LastIndex(stem, chunkMarker)
	if pos < 0 {
		return "", 0, fmt.Errorf("%w: %q is not a chunk name", ErrInvalidInput, name)
	}

	index, err := strconv.Atoi(stem[pos+len(chunkMarker):])
	if err != nil || index < 0 {
		return "", 0, fmt.Errorf("%w: %q has no chunk index", ErrInvalidInput, name)
	}

	return stem[:pos], index, nil
}

// Stem returns the file name without directory and final extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// HasSuffixFold reports whether name ends in suffix, ignoring case.
// Input listings and the directory watcher both match files this way.
func HasSuffixFold(name, suffix string) bool {
	return len(name) >= len(suffix) && strings.EqualFold(name[len(name)-len(suffix):], suffix)
}

// EmbeddingRecord pairs a chunk with its vector.
type EmbeddingRecord struct {
	// Name is the provenance name (the chunk file name).
	Name string

	// Text is the chunk text that was embedded.
	Text string

	// Vector is the embedding produced by the model.
	Vector []float32
}

// EmbeddingStore is the full set of records produced by one Embedder run.
// It is persisted as three index-aligned arrays: vectors, names and texts.
type EmbeddingStore struct {
	// Model is the name of the model that produced the vectors.
	Model string

	// Dimensions is the length of every vector in the store.
	Dimensions int

	// Records holds the records in lexicographic order of their names.
	Records []EmbeddingRecord
}

// Len returns the number of records.
func (s *EmbeddingStore) Len() int {
	return len(s.Records)
}

// Vectors returns the vectors in record order.
func (s *EmbeddingStore) Vectors() [][]float32 {
	out := make([][]float32, len(s.Records))
	for i, r := range s.Records {
		out[i] = r.Vector
	}
	return out
}

// Names returns the provenance names in record order.
func (s *EmbeddingStore) Names() []string {
	out := make([]string, len(s.Records))
	for i, r := range s.Records {
		out[i] = r.Name
	}
	return out
}

// Texts returns the chunk texts in record order.
func (s *EmbeddingStore) Texts() []string {
	out := make([]string, len(s.Records))
	for i, r := range s.Records {
		out[i] = r.Text
	}
	return out
}

// Validate checks that every record carries a vector of the store's dimensionality.
func (s *EmbeddingStore) Validate() error {
	if s.Dimensions <= 0 && len(s.Records) > 0 {
		return fmt.Errorf("%w: dimensions must be positive", ErrMisalignedArchive)
	}
	for i, r := range s.Records {
		if r.Name == "" {
			return fmt.Errorf("%w: record %d has no name", ErrMisalignedArchive, i)
		}
		if len(r.Vector) != s.Dimensions {
			return fmt.Errorf("%w: record %d (%s) has %d dimensions, expected %d",
				ErrMisalignedArchive, i, r.Name, len(r.Vector), s.Dimensions)
		}
	}
	return nil
}
