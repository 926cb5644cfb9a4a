// Package npz reads and writes embedding archives in the NumPy .npz format.
//
// An archive holds three index-aligned arrays:
//
//	embeddings.npy  <f4 (N, D)  one vector per chunk
//	metadata.npy    <U  (N,)    chunk file names
//	texts.npy       <U  (N,)    chunk texts
//
// The layout matches numpy.savez, or numpy.savez_compressed when
// compression is enabled, so numpy.load opens it without pickle.
package npz

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/custodia-labs/ragingest/internal/core/domain"
	"github.com/custodia-labs/ragingest/internal/core/ports/driven"
)

// Array entry names inside the archive.
const (
	EmbeddingsEntry = "embeddings.npy"
	MetadataEntry   = "metadata.npy"
	TextsEntry      = "texts.npy"
)

// entryTime is the modification time stamped on every entry, so identical
// stores always produce identical bytes.
var entryTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Ensure Writer and Reader implement the interfaces.
var (
	_ driven.ArchiveWriter = (*Writer)(nil)
	_ driven.ArchiveReader = (*Reader)(nil)
)

// Writer writes embedding stores as .npz archives.
type Writer struct {
	compress bool
}

// Option configures a Writer.
type Option func(*Writer)

// WithCompression deflates the archive entries.
func WithCompression(compress bool) Option {
	return func(w *Writer) {
		w.compress = compress
	}
}

// NewWriter creates a new archive writer.
func NewWriter(opts ...Option) *Writer {
	w := &Writer{}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write stores the archive at path. The archive is assembled in a temporary
// file next to path and renamed into place, so a failed write leaves any
// previous archive untouched.
func (w *Writer) Write(ctx context.Context, path string, store *domain.EmbeddingStore) error {
	if store == nil {
		return fmt.Errorf("%w: store is required", domain.ErrInvalidInput)
	}
	if err := store.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: create %s: %w", domain.ErrArchiveWrite, dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temporary file: %w", domain.ErrArchiveWrite, err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err := w.encode(tmp, store); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrArchiveWrite, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync: %w", domain.ErrArchiveWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close: %w", domain.ErrArchiveWrite, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("%w: chmod: %w", domain.ErrArchiveWrite, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: rename into place: %w", domain.ErrArchiveWrite, err)
	}
	committed = true
	return nil
}

// encode writes the three arrays as zip entries.
func (w *Writer) encode(out io.Writer, store *domain.EmbeddingStore) error {
	zw := zip.NewWriter(out)

	entries := []struct {
		name  string
		write func(io.Writer) error
	}{
		{EmbeddingsEntry, func(ew io.Writer) error {
			return writeFloat32Matrix(ew, store.Vectors(), store.Dimensions)
		}},
		{MetadataEntry, func(ew io.Writer) error {
			return writeUnicodeArray(ew, store.Names())
		}},
		{TextsEntry, func(ew io.Writer) error {
			return writeUnicodeArray(ew, store.Texts())
		}},
	}

	for _, e := range entries {
		method := zip.Store
		if w.compress {
			method = zip.Deflate
		}
		ew, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.name,
			Method:   method,
			Modified: entryTime,
		})
		if err != nil {
			return fmt.Errorf("create %s: %w", e.name, err)
		}
		if err := e.write(ew); err != nil {
			return fmt.Errorf("write %s: %w", e.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}
	return nil
}

// Reader loads .npz embedding archives.
type Reader struct{}

// NewReader creates a new archive reader.
func NewReader() *Reader {
	return &Reader{}
}

// Read loads the archive at path. The model name is not part of the archive
// and is left empty.
func (r *Reader) Read(path string) (*domain.EmbeddingStore, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	arrays := make(map[string]*npyArray, 3)
	for _, f := range zr.File {
		switch f.Name {
		case EmbeddingsEntry, MetadataEntry, TextsEntry:
		default:
			continue
		}
		arr, err := readEntry(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, f.Name, err)
		}
		arrays[f.Name] = arr
	}
	for _, name := range []string{EmbeddingsEntry, MetadataEntry, TextsEntry} {
		if arrays[name] == nil {
			return nil, fmt.Errorf("%w: archive has no %s", domain.ErrInvalidInput, name)
		}
	}

	vectors, dims, err := arrays[EmbeddingsEntry].float32Rows()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, EmbeddingsEntry, err)
	}
	names, err := arrays[MetadataEntry].unicodeValues()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, MetadataEntry, err)
	}
	texts, err := arrays[TextsEntry].unicodeValues()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, TextsEntry, err)
	}
	if len(names) != len(vectors) || len(texts) != len(vectors) {
		return nil, fmt.Errorf("%w: %d vectors, %d names, %d texts",
			domain.ErrMisalignedArchive, len(vectors), len(names), len(texts))
	}

	store := &domain.EmbeddingStore{
		Dimensions: dims,
		Records:    make([]domain.EmbeddingRecord, len(vectors)),
	}
	for i := range vectors {
		store.Records[i] = domain.EmbeddingRecord{Name: names[i], Text: texts[i], Vector: vectors[i]}
	}
	return store, nil
}

func readEntry(f *zip.File) (*npyArray, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return parseNPY(raw)
}
