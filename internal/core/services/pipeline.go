package services

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragingest/internal/core/domain"
	"github.com/custodia-labs/ragingest/internal/core/ports/driven"
	"github.com/custodia-labs/ragingest/internal/core/ports/driving"
	"github.com/custodia-labs/ragingest/internal/logger"
)

// Ensure PipelineService implements the interface.
var _ driving.Pipeline = (*PipelineService)(nil)

// PipelineService runs the stages in order, each stage starting only after
// the previous one has finished writing its artifacts.
type PipelineService struct {
	settings  *domain.AppSettings
	extractor driving.Extractor
	chunker   driving.Chunker
	embedder  driving.Embedder
	metrics   driven.MetricsRecorder
	running   atomic.Bool
}

// NewPipelineService creates a new pipeline service over the settings the
// stages share. metrics may be nil.
func NewPipelineService(
	settings *domain.AppSettings,
	extractor driving.Extractor,
	chunker driving.Chunker,
	embedder driving.Embedder,
	metrics driven.MetricsRecorder,
) *PipelineService {
	return &PipelineService{
		settings:  settings,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		metrics:   metricsOrNop(metrics),
	}
}

// Run executes extract, chunk and embed. Each stage reads the directory the
// previous stage wrote, whatever its own input directory is set to.
// A fatal stage error stops the run; the summary holds the stages that ran.
func (p *PipelineService) Run(ctx context.Context) (*domain.RunSummary, error) {
	return p.run(ctx, domain.StageExtract, domain.StageChunk, domain.StageEmbed)
}

// RunStage executes a single stage.
func (p *PipelineService) RunStage(ctx context.Context, stage domain.Stage) (*domain.RunSummary, error) {
	if !stage.IsValid() {
		return nil, fmt.Errorf("%w: unknown stage %q", domain.ErrInvalidInput, stage)
	}
	return p.run(ctx, stage)
}

func (p *PipelineService) run(ctx context.Context, stages ...domain.Stage) (*domain.RunSummary, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, domain.ErrRunInProgress
	}
	defer p.running.Store(false)

	summary := &domain.RunSummary{RunID: uuid.NewString()}
	ctx = withRunID(ctx, summary.RunID)
	logger.Debug("Run %s: %v", summary.RunID, stages)

	if len(stages) > 1 && p.settings.LinkStages() {
		logger.Debug("Chunk input set to %s, embed input set to %s",
			p.settings.Chunk.InputDir, p.settings.Embed.InputDir)
	}

	defer func() {
		if err := p.metrics.Flush(); err != nil {
			logger.Warn("write metrics: %v", err)
		}
	}()

	for _, stage := range stages {
		stageSummary, err := p.runStage(ctx, stage)
		if stageSummary != nil {
			summary.Stages = append(summary.Stages, *stageSummary)
		}
		if err != nil {
			logger.Error("%s stage aborted: %v", stage, err)
			return summary, fmt.Errorf("%s: %w", stage, err)
		}
	}

	return summary, nil
}

func (p *PipelineService) runStage(ctx context.Context, stage domain.Stage) (*domain.StageSummary, error) {
	switch stage {
	case domain.StageExtract:
		return p.extractor.Extract(ctx)
	case domain.StageChunk:
		return p.chunker.Chunk(ctx)
	case domain.StageEmbed:
		return p.embedder.Embed(ctx)
	default:
		return nil, fmt.Errorf("%w: unknown stage %q", domain.ErrInvalidInput, stage)
	}
}
