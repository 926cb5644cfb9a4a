package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragingest/internal/core/domain"
	"github.com/custodia-labs/ragingest/internal/core/ports/driven"
)

var errInjected = errors.New("injected failure")

// --- Renderer ---

// mockRenderer renders page p of file f as the bytes "f#p".
type mockRenderer struct {
	pages      map[string]int // by file name; default 1
	countErr   map[string]bool
	renderFail map[string]int // file name -> failing page

	mu       sync.Mutex
	rendered []string
	dpis     []int
}

func (m *mockRenderer) PageCount(_ context.Context, path string) (int, error) {
	name := filepath.Base(path)
	if m.countErr[name] {
		return 0, errInjected
	}
	if n, ok := m.pages[name]; ok {
		return n, nil
	}
	return 1, nil
}

func (m *mockRenderer) RenderPage(_ context.Context, path string, page, dpi int) ([]byte, error) {
	name := filepath.Base(path)
	if p, ok := m.renderFail[name]; ok && p == page {
		return nil, errInjected
	}
	image := fmt.Sprintf("%s#%d", name, page)

	m.mu.Lock()
	m.rendered = append(m.rendered, image)
	m.dpis = append(m.dpis, dpi)
	m.mu.Unlock()
	return []byte(image), nil
}

// --- OCR ---

// mockOCR recognises an image as "text of <image>" unless texts overrides it.
type mockOCR struct {
	texts  map[string]string
	failOn map[string]bool

	mu        sync.Mutex
	languages [][]string
}

func (m *mockOCR) Recognise(_ context.Context, image []byte, languages []string) (string, error) {
	m.mu.Lock()
	m.languages = append(m.languages, languages)
	m.mu.Unlock()

	key := string(image)
	if m.failOn[key] {
		return "", errInjected
	}
	if text, ok := m.texts[key]; ok {
		return text, nil
	}
	return "text of " + key, nil
}

func (m *mockOCR) Close() error { return nil }

// --- Embedding ---

// mockModel maps a text to a vector derived from its length and first byte.
type mockModel struct {
	dims      int
	batchErr  error
	failText  string
	dropOne   bool
	dimsFor   map[string]int
	closed    bool
	mu        sync.Mutex
	batches   int
	maxInBulk int
}

func (m *mockModel) vector(text string) []float32 {
	dims := m.dims
	if d, ok := m.dimsFor[text]; ok {
		dims = d
	}
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = float32(len(text) + i)
	}
	if len(text) > 0 && dims > 0 {
		vec[0] = float32(text[0])
	}
	return vec
}

func (m *mockModel) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (m *mockModel) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batches++
	m.maxInBulk = max(m.maxInBulk, len(texts))
	m.mu.Unlock()

	if m.batchErr != nil {
		return nil, m.batchErr
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		if m.failText != "" && text == m.failText {
			return nil, errInjected
		}
		out = append(out, m.vector(text))
	}
	if m.dropOne && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (m *mockModel) Dimensions() int   { return m.dims }
func (m *mockModel) ModelName() string { return "mock-model" }
func (m *mockModel) Ping(_ context.Context) error {
	return nil
}

func (m *mockModel) Close() error {
	m.closed = true
	return nil
}

type mockLoader struct {
	model *mockModel
	err   error
	calls int
	got   domain.EmbedSettings
}

func (l *mockLoader) Load(_ context.Context, cfg domain.EmbedSettings) (driven.EmbeddingService, error) {
	l.calls++
	l.got = cfg
	if l.err != nil {
		return nil, l.err
	}
	return l.model, nil
}

// --- Archive ---

type mockArchive struct {
	err    error
	writes int
	path   string
	store  *domain.EmbeddingStore
}

func (a *mockArchive) Write(_ context.Context, path string, store *domain.EmbeddingStore) error {
	a.writes++
	if a.err != nil {
		return a.err
	}
	a.path = path
	a.store = store
	return nil
}

// --- Index ---

type failingIndex struct{}

func (failingIndex) Replace(context.Context, driven.IndexedRun, *domain.EmbeddingStore) error {
	return errInjected
}
func (failingIndex) Records(context.Context) ([]domain.EmbeddingRecord, error) { return nil, nil }
func (failingIndex) LatestRun(context.Context) (*driven.IndexedRun, error) {
	return nil, domain.ErrNotFound
}
func (failingIndex) Close() error { return nil }

// --- Metrics ---

type mockMetrics struct {
	mu       sync.Mutex
	units    map[domain.Stage][2]int // [ok, failed]
	records  int
	dims     int
	flushes  int
	flushErr error
}

func (m *mockMetrics) ObserveUnit(stage domain.Stage, ok bool, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.units == nil {
		m.units = make(map[domain.Stage][2]int)
	}
	c := m.units[stage]
	if ok {
		c[0]++
	} else {
		c[1]++
	}
	m.units[stage] = c
}

func (m *mockMetrics) ObserveArchive(records, dimensions int) {
	m.records = records
	m.dims = dimensions
}

func (m *mockMetrics) Flush() error {
	m.flushes++
	return m.flushErr
}

// --- Helpers ---

// testSettings returns default settings rooted in a temp directory.
func testSettings(t *testing.T) *domain.AppSettings {
	t.Helper()
	root := t.TempDir()
	s := domain.DefaultAppSettings()
	s.Extract.InputDir = filepath.Join(root, "pdfs")
	s.Extract.OutputDir = filepath.Join(root, "texts")
	s.Chunk.InputDir = filepath.Join(root, "texts")
	s.Chunk.OutputDir = filepath.Join(root, "chunks")
	s.Embed.InputDir = filepath.Join(root, "chunks")
	s.Embed.OutputPath = filepath.Join(root, "embeddings", "embeddings.npz")
	return &s
}

// writeFiles creates dir and writes each name/content pair into it.
func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func inputs(results []domain.UnitResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Input
	}
	return out
}

func words(n int, word string) string {
	return strings.TrimSpace(strings.Repeat(word+" ", n))
}
