// Command ragingest OCRs PDFs, chunks the text and embeds the chunks into
// a NumPy archive for retrieval-augmented generation.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/ragingest/internal/adapters/driven/ai"
	"github.com/custodia-labs/ragingest/internal/adapters/driven/archive/npz"
	"github.com/custodia-labs/ragingest/internal/adapters/driven/config/file"
	prommetrics "github.com/custodia-labs/ragingest/internal/adapters/driven/metrics/prometheus"
	"github.com/custodia-labs/ragingest/internal/adapters/driven/ocr/tesseract"
	"github.com/custodia-labs/ragingest/internal/adapters/driven/render/poppler"
	"github.com/custodia-labs/ragingest/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ragingest/internal/adapters/driving/cli"
	"github.com/custodia-labs/ragingest/internal/core/domain"
	"github.com/custodia-labs/ragingest/internal/core/ports/driven"
	"github.com/custodia-labs/ragingest/internal/core/ports/driving"
	"github.com/custodia-labs/ragingest/internal/core/services"
	"github.com/custodia-labs/ragingest/internal/logger"
	"github.com/custodia-labs/ragingest/internal/postprocessors"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env file is normal.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	cli.SetDependencies(cli.Dependencies{
		OpenSettings:  openSettings,
		ApplyEnv:      applyEnv,
		BuildPipeline: buildPipeline,
		Archives:      npz.NewReader(),
		OpenIndex:     openIndex,
		Checks:        setupChecks(),
	})

	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func openSettings(configDir string) (driving.SettingsService, error) {
	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, err
	}
	return services.NewSettingsService(store), nil
}

func applyEnv(settings *domain.AppSettings) error {
	return services.ApplyEnv(settings, os.LookupEnv)
}

// buildPipeline wires the adapters of one run.
func buildPipeline(settings *domain.AppSettings) (driving.Pipeline, func(), error) {
	metrics := prommetrics.NewRecorder(settings.MetricsFile)

	renderer := poppler.New(poppler.WithBinDir(settings.Extract.PopplerPath))
	ocr := tesseract.New(settings.Concurrency)

	processor, err := postprocessors.NewDefaultRegistry().Build(postprocessors.DefaultProcessor, settings.Chunk)
	if err != nil {
		ocr.Close()
		return nil, nil, err
	}

	var index driven.EmbeddingIndex
	if settings.Embed.IndexPath != "" {
		store, err := sqlite.NewStore(settings.Embed.IndexPath)
		if err != nil {
			ocr.Close()
			return nil, nil, fmt.Errorf("open index: %w", err)
		}
		index = store
		logger.Debug("Mirroring archive into %s", store.Path())
	}

	extractor := services.NewExtractorService(settings, renderer, ocr, metrics)
	chunker := services.NewChunkerService(settings, processor, metrics)
	embedder := services.NewEmbedderService(
		settings,
		ai.NewLoader(),
		npz.NewWriter(npz.WithCompression(settings.Embed.Compress)),
		index,
		metrics,
	)

	cleanup := func() {
		if err := ocr.Close(); err != nil {
			logger.Warn("close OCR engine: %v", err)
		}
		if index != nil {
			if err := index.Close(); err != nil {
				logger.Warn("close index: %v", err)
			}
		}
	}

	return services.NewPipelineService(settings, extractor, chunker, embedder, metrics), cleanup, nil
}

// openIndex opens an index file written by embed. Unlike sqlite.NewStore it
// never creates one.
func openIndex(path string) (driven.EmbeddingIndex, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInputNotFound, err)
	}
	return sqlite.NewStore(path)
}

// setupChecks lists the checks run by "config check".
func setupChecks() []cli.Check {
	return []cli.Check{
		{
			Name: "pdf renderer",
			Run: func(_ context.Context, settings *domain.AppSettings) error {
				err := poppler.New(poppler.WithBinDir(settings.Extract.PopplerPath)).CheckAvailable()
				if err != nil {
					return fmt.Errorf("%w (install: %s)", err, poppler.InstallInstructions(runtime.GOOS))
				}
				return nil
			},
		},
		{
			Name: "embedding provider",
			Run: func(ctx context.Context, settings *domain.AppSettings) error {
				return ai.ValidateEmbeddingConfig(ctx, settings.Embed)
			},
		},
	}
}
