package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragingest/internal/core/domain"
)

// stageFlags holds the per-stage overrides. Commands share the values but
// only fields whose flag was set on the running command are applied.
type stageFlags struct {
	input       string
	output      string
	dpi         int
	language    string
	popplerPath string
	width       int
	provider    string
	model       string
	batchSize   int
	index       string
}

var opts stageFlags

// ioTarget returns the settings fields that --input and --output set.
type ioTarget func(settings *domain.AppSettings) (input, output *string)

func extractTarget(s *domain.AppSettings) (*string, *string) {
	return &s.Extract.InputDir, &s.Extract.OutputDir
}

func chunkTarget(s *domain.AppSettings) (*string, *string) {
	return &s.Chunk.InputDir, &s.Chunk.OutputDir
}

func embedTarget(s *domain.AppSettings) (*string, *string) {
	return &s.Embed.InputDir, &s.Embed.OutputPath
}

// runTarget maps --input to the PDF directory and --output to the archive.
func runTarget(s *domain.AppSettings) (*string, *string) {
	return &s.Extract.InputDir, &s.Embed.OutputPath
}

func addIOFlags(cmd *cobra.Command, inputUsage, outputUsage string) {
	cmd.Flags().StringVar(&opts.input, "input", "", inputUsage)
	cmd.Flags().StringVar(&opts.output, "output", "", outputUsage)
}

func addExtractFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&opts.dpi, "dpi", domain.DefaultDPI, "page render resolution")
	cmd.Flags().StringVar(&opts.language, "lang", domain.DefaultLanguage, "OCR languages, e.g. eng+fra")
	cmd.Flags().StringVar(&opts.popplerPath, "poppler-path", "", "directory holding pdftoppm")
}

func addChunkFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&opts.width, "width", domain.DefaultChunkWidth, "maximum chunk length in characters")
}

func addEmbedFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&opts.provider, "provider", "", "embedding provider (ollama, openai, hash)")
	cmd.Flags().StringVar(&opts.model, "model", "", "embedding model")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", domain.DefaultBatchSize, "chunks per embedding request")
	cmd.Flags().StringVar(&opts.index, "index", "", "SQLite file mirroring the archive")
}

// applyFlags overlays the flags set on cmd onto settings.
func applyFlags(cmd *cobra.Command, settings *domain.AppSettings, target ioTarget) {
	f := cmd.Flags()

	if f.Changed("concurrency") {
		settings.Concurrency = concurrency
	}
	if target != nil {
		input, output := target(settings)
		if f.Changed("input") {
			*input = opts.input
		}
		if f.Changed("output") {
			*output = opts.output
		}
	}

	if f.Changed("dpi") {
		settings.Extract.DPI = opts.dpi
	}
	if f.Changed("lang") {
		settings.Extract.Language = opts.language
	}
	if f.Changed("poppler-path") {
		settings.Extract.PopplerPath = opts.popplerPath
	}

	if f.Changed("width") {
		settings.Chunk.Width = opts.width
	}

	if f.Changed("provider") {
		settings.Embed.Provider = domain.EmbeddingProvider(opts.provider)
		settings.Embed.Model = domain.DefaultEmbeddingModels()[settings.Embed.Provider]
	}
	if f.Changed("model") {
		settings.Embed.Model = opts.model
	}
	if f.Changed("batch-size") {
		settings.Embed.BatchSize = opts.batchSize
	}
	if f.Changed("index") {
		settings.Embed.IndexPath = opts.index
	}
}
