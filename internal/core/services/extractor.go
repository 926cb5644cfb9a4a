package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/ragingest/internal/core/domain"
	"github.com/custodia-labs/ragingest/internal/core/ports/driven"
	"github.com/custodia-labs/ragingest/internal/core/ports/driving"
	"github.com/custodia-labs/ragingest/internal/logger"
)

// Ensure ExtractorService implements the interface.
var _ driving.Extractor = (*ExtractorService)(nil)

// ExtractorService OCRs every PDF of a directory into one text file per PDF.
type ExtractorService struct {
	settings *domain.AppSettings
	renderer driven.PageRenderer
	ocr      driven.OCREngine
	metrics  driven.MetricsRecorder
}

// NewExtractorService creates a new extractor service.
// metrics may be nil.
func NewExtractorService(
	settings *domain.AppSettings,
	renderer driven.PageRenderer,
	ocr driven.OCREngine,
	metrics driven.MetricsRecorder,
) *ExtractorService {
	return &ExtractorService{
		settings: settings,
		renderer: renderer,
		ocr:      ocr,
		metrics:  metricsOrNop(metrics),
	}
}

// availabilityChecker is implemented by renderers that depend on an
// external tool.
type availabilityChecker interface {
	CheckAvailable() error
}

// Extract processes every PDF in the configured input directory.
// A document that fails to render or OCR is logged and skipped. A missing
// renderer fails the stage before any document is processed.
func (s *ExtractorService) Extract(ctx context.Context) (*domain.StageSummary, error) {
	cfg := s.settings.Extract
	logger.Section("Extract")

	inputs, err := listInputs(cfg.InputDir, ".pdf")
	if err != nil {
		return nil, err
	}
	if checker, ok := s.renderer.(availabilityChecker); ok && len(inputs) > 0 {
		if err := checker.CheckAvailable(); err != nil {
			return nil, err
		}
	}
	if err := ensureDir(cfg.OutputDir); err != nil {
		return nil, err
	}

	logger.Info("Extracting %d documents from %s at %d dpi (lang %s)",
		len(inputs), cfg.InputDir, cfg.DPI, cfg.Language)

	summary := &domain.StageSummary{Stage: domain.StageExtract, Started: time.Now()}
	summary.Results = runUnits(ctx, s.settings.Concurrency, len(inputs), func(ctx context.Context, i int) domain.UnitResult {
		return s.extractDocument(ctx, cfg, domain.NewSourceDocument(inputs[i]))
	})
	summary.Finished = time.Now()

	logSummary(summary)
	return summary, nil
}

// extractDocument produces the text artifact of one document.
func (s *ExtractorService) extractDocument(ctx context.Context, cfg domain.ExtractSettings, doc domain.SourceDocument) domain.UnitResult {
	start := time.Now()
	result := domain.UnitResult{
		Stage: domain.StageExtract,
		Input: filepath.Base(doc.Path),
	}

	logger.Debug("Processing: %s", doc.Path)

	text, err := s.recognise(ctx, cfg, doc)
	if err == nil {
		out := filepath.Join(cfg.OutputDir, doc.Name+cfg.Suffix)
		if werr := os.WriteFile(out, []byte(text.Text), 0o644); werr != nil {
			err = fmt.Errorf("write %s: %w", out, werr)
		} else {
			result.Artifacts = []string{out}
			logger.Debug("OCR'd %s -> %s (%d pages)", result.Input, filepath.Base(out), text.Pages)
		}
	}

	result.Err = err
	result.Duration = time.Since(start)
	s.metrics.ObserveUnit(domain.StageExtract, result.OK(), result.Duration)
	if err != nil {
		logFailure(result)
	}
	return result
}

// recognise renders and OCRs every page of doc, joining page texts in page order.
func (s *ExtractorService) recognise(ctx context.Context, cfg domain.ExtractSettings, doc domain.SourceDocument) (*domain.ExtractedText, error) {
	pages, err := s.renderer.PageCount(ctx, doc.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: count pages: %w", domain.ErrRenderFailed, err)
	}

	languages := cfg.Languages()
	texts := make([]string, 0, pages)
	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		image, err := s.renderer.RenderPage(ctx, doc.Path, page, cfg.DPI)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %w", domain.ErrRenderFailed, page, err)
		}

		text, err := s.ocr.Recognise(ctx, image, languages)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %w", domain.ErrOCRFailed, page, err)
		}
		texts = append(texts, text)
	}

	return &domain.ExtractedText{
		Document: doc.Name,
		Pages:    pages,
		Text:     strings.Join(texts, "\n"),
	}, nil
}
