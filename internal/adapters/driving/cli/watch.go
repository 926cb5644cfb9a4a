package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragingest/internal/connectors/filesystem"
	"github.com/custodia-labs/ragingest/internal/core/ports/driving"
	"github.com/custodia-labs/ragingest/internal/logger"
)

var (
	watchDebounce    time.Duration
	watchSkipInitial bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the pipeline when PDFs change",
	Long: `Runs the pipeline, then watches the PDF input directory and runs it again
whenever PDFs are added, changed or removed. Changes arriving within
--debounce of each other trigger a single run.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	addIOFlags(watchCmd, "directory of PDFs", "archive file to write")
	addExtractFlags(watchCmd)
	addChunkFlags(watchCmd)
	addEmbedFlags(watchCmd)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 2*time.Second, "quiet period before a run")
	watchCmd.Flags().BoolVar(&watchSkipInitial, "skip-initial", false, "wait for a change before the first run")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(cmd, runTarget)
	if err != nil {
		return err
	}

	pipeline, cleanup, err := buildPipeline(settings)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	watcher := filesystem.New(settings.Extract.InputDir, ".pdf")
	changes, err := watcher.Watch(ctx)
	if err != nil {
		return err
	}
	defer watcher.Close()

	if !watchSkipInitial {
		runWatched(ctx, cmd, pipeline)
	}
	cmd.Printf("Watching %s for PDF changes\n", settings.Extract.InputDir)

	for batch := range filesystem.Debounce(ctx, changes, max(watchDebounce, time.Millisecond)) {
		logger.Info("%d changes in %s, running pipeline", len(batch), settings.Extract.InputDir)
		for _, c := range batch {
			logger.Debug("%s %s", c.Type, c.Path)
		}
		runWatched(ctx, cmd, pipeline)
	}
	return nil
}

// runWatched runs the pipeline once. Errors are logged so the watch continues.
func runWatched(ctx context.Context, cmd *cobra.Command, pipeline driving.Pipeline) {
	summary, err := pipeline.Run(ctx)
	if summary != nil {
		printRunSummary(cmd.OutOrStdout(), summary)
	}
	if err != nil && ctx.Err() == nil {
		logger.Error("run failed: %v", err)
	}
}
