package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragingest/internal/core/domain"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "OCR every PDF into a text file",
	Long: `Renders each page of every PDF in the input directory, recognises its
text with Tesseract and writes one text file per PDF to the output directory.

A PDF that cannot be rendered or recognised is reported and skipped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runPipeline(cmd, extractTarget, domain.StageExtract)
	},
}

var chunkCmd = &cobra.Command{
	Use:   "chunk",
	Short: "Split extracted text into chunk files",
	Long: `Wraps every text file of the input directory into chunks of at most
--width characters, breaking only between words, and writes each chunk as
<document>_chunk<index>.txt.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runPipeline(cmd, chunkTarget, domain.StageChunk)
	},
}

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Embed chunk files into an archive",
	Long: `Embeds every chunk file of the input directory and writes the vectors,
chunk names and chunk texts as one .npz archive.

Any failure aborts the run without touching a previous archive.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runPipeline(cmd, embedTarget, domain.StageEmbed)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run extract, chunk and embed in order",
	Long: `Runs the three stages one after another. Each stage reads the directory
the previous stage wrote, as configured.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runPipeline(cmd, runTarget, "")
	},
}

func init() {
	addIOFlags(extractCmd, "directory of PDFs", "directory for text files")
	addExtractFlags(extractCmd)

	addIOFlags(chunkCmd, "directory of text files", "directory for chunk files")
	addChunkFlags(chunkCmd)

	addIOFlags(embedCmd, "directory of chunk files", "archive file to write")
	addEmbedFlags(embedCmd)

	addIOFlags(runCmd, "directory of PDFs", "archive file to write")
	addExtractFlags(runCmd)
	addChunkFlags(runCmd)
	addEmbedFlags(runCmd)

	rootCmd.AddCommand(extractCmd, chunkCmd, embedCmd, runCmd)
}

// runPipeline runs one stage, or every stage when stage is empty, and
// prints the summary. Unit failures are reported, not returned.
func runPipeline(cmd *cobra.Command, target ioTarget, stage domain.Stage) error {
	settings, err := loadSettings(cmd, target)
	if err != nil {
		return err
	}

	pipeline, cleanup, err := buildPipeline(settings)
	if err != nil {
		return err
	}
	defer cleanup()

	var summary *domain.RunSummary
	if stage == "" {
		summary, err = pipeline.Run(cmd.Context())
	} else {
		summary, err = pipeline.RunStage(cmd.Context(), stage)
	}
	if summary != nil {
		printRunSummary(cmd.OutOrStdout(), summary)
	}
	return err
}
