package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/ragingest/internal/core/domain"
	"github.com/custodia-labs/ragingest/internal/core/ports/driven"
	"github.com/custodia-labs/ragingest/internal/core/ports/driving"
	"github.com/custodia-labs/ragingest/internal/logger"
)

// Ensure EmbedderService implements the interface.
var _ driving.Embedder = (*EmbedderService)(nil)

// EmbedderService vectorises chunk files and writes them as one archive.
// Unlike the other stages every failure is fatal: a record missing from the
// archive would shift the alignment of every record after it.
type EmbedderService struct {
	settings *domain.AppSettings
	loader   driven.EmbeddingLoader
	archive  driven.ArchiveWriter
	index    driven.EmbeddingIndex
	metrics  driven.MetricsRecorder
}

// NewEmbedderService creates a new embedder service.
// index and metrics may be nil.
func NewEmbedderService(
	settings *domain.AppSettings,
	loader driven.EmbeddingLoader,
	archive driven.ArchiveWriter,
	index driven.EmbeddingIndex,
	metrics driven.MetricsRecorder,
) *EmbedderService {
	return &EmbedderService{
		settings: settings,
		loader:   loader,
		archive:  archive,
		index:    index,
		metrics:  metricsOrNop(metrics),
	}
}

// chunkInput is one chunk file read for embedding.
type chunkInput struct {
	name string
	text string
}

// batch is a half-open range of chunk positions embedded together.
type batch struct {
	start, end int
}

// Embed embeds every chunk file of the configured input directory in name
// order and writes the archive. An empty input directory writes nothing.
func (s *EmbedderService) Embed(ctx context.Context) (*domain.StageSummary, error) {
	cfg := s.settings.Embed
	logger.Section("Embed")

	summary := &domain.StageSummary{Stage: domain.StageEmbed, Started: time.Now()}
	defer func() { summary.Finished = time.Now() }()

	paths, err := listInputs(cfg.InputDir, ".txt")
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		logger.Info("No chunk files in %s, nothing to embed", cfg.InputDir)
		return summary, nil
	}

	inputs, err := readChunks(paths)
	if err != nil {
		return summary, err
	}

	model, err := s.loader.Load(ctx, cfg)
	if err != nil {
		if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
		}
		return summary, fmt.Errorf("load model: %w", err)
	}
	defer model.Close()

	logger.Info("Embedding %d chunks with %s (batch size %d)", len(inputs), model.ModelName(), cfg.BatchSize)

	vectors, results, err := s.embedAll(ctx, model, inputs, cfg.BatchSize)
	summary.Results = results
	if err != nil {
		return summary, fmt.Errorf("embed chunks: %w", err)
	}

	store := &domain.EmbeddingStore{
		Model:      model.ModelName(),
		Dimensions: len(vectors[0]),
		Records:    make([]domain.EmbeddingRecord, len(inputs)),
	}
	for i, in := range inputs {
		store.Records[i] = domain.EmbeddingRecord{Name: in.name, Text: in.text, Vector: vectors[i]}
	}
	if err := store.Validate(); err != nil {
		return summary, err
	}

	if err := s.archive.Write(ctx, cfg.OutputPath, store); err != nil {
		return summary, err
	}
	summary.Archive = cfg.OutputPath
	summary.Records = store.Len()
	s.metrics.ObserveArchive(store.Len(), store.Dimensions)
	logger.Info("Wrote %d records (%d dimensions) to %s", store.Len(), store.Dimensions, cfg.OutputPath)

	if s.index != nil {
		run := driven.IndexedRun{
			ID:          runIDFrom(ctx),
			Model:       store.Model,
			Dimensions:  store.Dimensions,
			ArchivePath: cfg.OutputPath,
		}
		if err := s.index.Replace(ctx, run, store); err != nil {
			return summary, fmt.Errorf("update index: %w", err)
		}
		logger.Debug("Index updated for run %s", run.ID)
	}

	return summary, nil
}

// embedAll embeds the inputs in batches. Vectors are placed by input
// position, so the result order never depends on which batch finishes first.
func (s *EmbedderService) embedAll(
	ctx context.Context,
	model driven.EmbeddingService,
	inputs []chunkInput,
	batchSize int,
) ([][]float32, []domain.UnitResult, error) {
	batches := splitBatches(len(inputs), batchSize)
	vectors := make([][]float32, len(inputs))
	results := make([]domain.UnitResult, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.settings.Concurrency, 1))

	for bi, b := range batches {
		g.Go(func() error {
			start := time.Now()
			texts := make([]string, 0, b.end-b.start)
			for _, in := range inputs[b.start:b.end] {
				texts = append(texts, in.text)
			}

			out, err := model.EmbedBatch(gctx, texts)
			if err == nil {
				err = checkBatch(out, len(texts))
			}
			if err == nil {
				copy(vectors[b.start:b.end], out)
			}

			results[bi] = domain.UnitResult{
				Stage:    domain.StageEmbed,
				Input:    batchName(inputs, b),
				Err:      err,
				Duration: time.Since(start),
			}
			s.metrics.ObserveUnit(domain.StageEmbed, err == nil, results[bi].Duration)
			if err != nil {
				logFailure(results[bi])
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, compactResults(results), err
	}

	dims := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dims {
			return nil, results, fmt.Errorf("%w: %s has %d dimensions, expected %d",
				domain.ErrMisalignedArchive, inputs[i].name, len(v), dims)
		}
	}
	return vectors, results, nil
}

// checkBatch verifies a provider returned one non-empty vector per text.
func checkBatch(vectors [][]float32, want int) error {
	if len(vectors) != want {
		return fmt.Errorf("%w: got %d vectors for %d chunks", domain.ErrMisalignedArchive, len(vectors), want)
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("%w: empty vector at batch position %d", domain.ErrMisalignedArchive, i)
		}
	}
	return nil
}

// readChunks loads every chunk file. Any read failure is fatal.
func readChunks(paths []string) ([]chunkInput, error) {
	inputs := make([]chunkInput, len(paths))
	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read chunk %s: %w", filepath.Base(path), err)
		}
		inputs[i] = chunkInput{name: filepath.Base(path), text: string(data)}
	}
	return inputs, nil
}

// splitBatches covers [0, n) with consecutive ranges of at most size.
func splitBatches(n, size int) []batch {
	size = max(size, 1)
	batches := make([]batch, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		batches = append(batches, batch{start: start, end: min(start+size, n)})
	}
	return batches
}

func batchName(inputs []chunkInput, b batch) string {
	if b.end-b.start == 1 {
		return inputs[b.start].name
	}
	return inputs[b.start].name + ".." + inputs[b.end-1].name
}

// compactResults drops the results of batches that never started.
func compactResults(results []domain.UnitResult) []domain.UnitResult {
	out := results[:0:0]
	for _, r := range results {
		if r.Input != "" {
			out = append(out, r)
		}
	}
	return out
}

type runIDKey struct{}

// withRunID attaches the pipeline run ID to ctx.
func withRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// runIDFrom returns the run ID attached to ctx, or a fresh one.
func runIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}
