package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/custodia-labs/ragingest/internal/core/domain"
	"github.com/custodia-labs/ragingest/internal/core/ports/driven"
	"github.com/custodia-labs/ragingest/internal/core/ports/driving"
	"github.com/custodia-labs/ragingest/internal/logger"
)

// Ensure ChunkerService implements the interface.
var _ driving.Chunker = (*ChunkerService)(nil)

// ChunkerService splits every extracted text file into numbered chunk files.
type ChunkerService struct {
	settings  *domain.AppSettings
	processor driven.PostProcessor
	metrics   driven.MetricsRecorder
}

// NewChunkerService creates a new chunker service.
// metrics may be nil.
func NewChunkerService(
	settings *domain.AppSettings,
	processor driven.PostProcessor,
	metrics driven.MetricsRecorder,
) *ChunkerService {
	return &ChunkerService{
		settings:  settings,
		processor: processor,
		metrics:   metricsOrNop(metrics),
	}
}

// Chunk processes every text file in the configured input directory. Text
// files are recognised by the extract suffix.
// A file that cannot be read or written is logged and skipped.
func (s *ChunkerService) Chunk(ctx context.Context) (*domain.StageSummary, error) {
	cfg := s.settings.Chunk
	logger.Section("Chunk")

	inputs, err := listInputs(cfg.InputDir, s.settings.Extract.Suffix)
	if err != nil {
		return nil, err
	}
	if err := ensureDir(cfg.OutputDir); err != nil {
		return nil, err
	}

	logger.Info("Chunking %d files from %s with %s", len(inputs), cfg.InputDir, s.processor.Name())

	summary := &domain.StageSummary{Stage: domain.StageChunk, Started: time.Now()}
	summary.Results = runUnits(ctx, s.settings.Concurrency, len(inputs), func(ctx context.Context, i int) domain.UnitResult {
		return s.chunkFile(ctx, cfg, inputs[i])
	})
	summary.Finished = time.Now()

	logSummary(summary)
	return summary, nil
}

// chunkFile writes the chunks of one text file.
func (s *ChunkerService) chunkFile(ctx context.Context, cfg domain.ChunkSettings, path string) domain.UnitResult {
	start := time.Now()
	result := domain.UnitResult{
		Stage: domain.StageChunk,
		Input: filepath.Base(path),
	}

	artifacts, err := s.writeChunks(ctx, cfg, path)
	result.Artifacts = artifacts
	result.Err = err
	result.Duration = time.Since(start)

	s.metrics.ObserveUnit(domain.StageChunk, result.OK(), result.Duration)
	if err != nil {
		logFailure(result)
	} else {
		logger.Debug("Chunked %s into %d chunks", result.Input, len(artifacts))
	}
	return result
}

func (s *ChunkerService) writeChunks(ctx context.Context, cfg domain.ChunkSettings, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}

	chunks, err := s.processor.Process(ctx, &domain.ExtractedText{
		Document: domain.Stem(path),
		Text:     string(data),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.processor.Name(), err)
	}

	artifacts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		out := filepath.Join(cfg.OutputDir, chunk.Name())
		if err := os.WriteFile(out, []byte(chunk.Text), 0o644); err != nil {
			return artifacts, fmt.Errorf("write chunk %d: %w", chunk.Index, err)
		}
		artifacts = append(artifacts, out)
	}
	return artifacts, nil
}
