// Package cli implements the ragingest command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragingest/internal/core/domain"
	"github.com/custodia-labs/ragingest/internal/core/ports/driven"
	"github.com/custodia-labs/ragingest/internal/core/ports/driving"
	"github.com/custodia-labs/ragingest/internal/logger"
)

// annotationNoSettings marks commands that run without opening the config.
const annotationNoSettings = "ragingest/no-settings"

var version = "dev"

// PipelineBuilder wires a pipeline for settings. The returned cleanup
// releases the adapters the pipeline holds.
type PipelineBuilder func(settings *domain.AppSettings) (driving.Pipeline, func(), error)

// Check is one named setup check run by "config check".
type Check struct {
	Name string
	Run  func(ctx context.Context, settings *domain.AppSettings) error
}

// Dependencies are the services the commands run against.
type Dependencies struct {
	// OpenSettings opens the settings of a config directory.
	// An empty directory selects the default location.
	OpenSettings func(configDir string) (driving.SettingsService, error)

	// ApplyEnv overlays environment overrides on loaded settings.
	ApplyEnv func(settings *domain.AppSettings) error

	// BuildPipeline wires the stages for a run.
	BuildPipeline PipelineBuilder

	// Archives reads embedding archives for inspect.
	Archives driven.ArchiveReader

	// OpenIndex opens an existing SQLite embedding index for inspect.
	OpenIndex func(path string) (driven.EmbeddingIndex, error)

	// Checks are run by "config check".
	Checks []Check
}

var (
	deps            Dependencies
	settingsService driving.SettingsService

	configDir   string
	verbose     bool
	concurrency int
)

var rootCmd = &cobra.Command{
	Use:   "ragingest",
	Short: "Turn scanned PDFs into an embedding archive",
	Long: `ragingest prepares documents for retrieval-augmented generation.

It OCRs a directory of PDFs into text files, splits the text into bounded
chunks and embeds every chunk into a NumPy .npz archive of vectors, chunk
names and chunk texts.`,
	SilenceUsage:      true,
	PersistentPreRunE: openSettings,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default ~/.ragingest)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug and info logs")
	rootCmd.PersistentFlags().IntVar(&concurrency, "concurrency", 0, "units processed at once (default from config)")
}

// SetDependencies supplies the services used by the commands.
func SetDependencies(d Dependencies) {
	deps = d
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the command line with ctx. Command output goes to stdout,
// logs to stderr.
func Execute(ctx context.Context) error {
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

func openSettings(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if cmd.Annotations[annotationNoSettings] == "true" {
		return nil
	}
	if deps.OpenSettings == nil {
		return errors.New("settings service not configured")
	}

	svc, err := deps.OpenSettings(configDir)
	if err != nil {
		return fmt.Errorf("open settings: %w", err)
	}
	settingsService = svc
	return nil
}

// loadSettings builds the effective settings of a command: stored values,
// then environment, then flags.
func loadSettings(cmd *cobra.Command, target ioTarget) (*domain.AppSettings, error) {
	if settingsService == nil {
		return nil, errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	if deps.ApplyEnv != nil {
		if err := deps.ApplyEnv(settings); err != nil {
			return nil, err
		}
	}
	applyFlags(cmd, settings, target)

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	logger.SetVerbose(verbose || settings.Debug)
	return settings, nil
}

// buildPipeline wires a pipeline, returning a cleanup that is safe to defer.
func buildPipeline(settings *domain.AppSettings) (driving.Pipeline, func(), error) {
	if deps.BuildPipeline == nil {
		return nil, func() {}, errors.New("pipeline not configured")
	}
	pipeline, cleanup, err := deps.BuildPipeline(settings)
	if err != nil {
		return nil, func() {}, err
	}
	if cleanup == nil {
		cleanup = func() {}
	}
	return pipeline, cleanup, nil
}
