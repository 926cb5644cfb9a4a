package domain

import (
	"fmt"
	"strings"
)

const unknownDescription = "Unknown"

// EmbeddingProvider identifies the service that turns chunk text into vectors.
type EmbeddingProvider string

// Available embedding providers.
const (
	// EmbeddingProviderOllama is a local Ollama instance.
	EmbeddingProviderOllama EmbeddingProvider = "ollama"

	// EmbeddingProviderOpenAI is the OpenAI API or a compatible endpoint.
	EmbeddingProviderOpenAI EmbeddingProvider = "openai"

	// EmbeddingProviderHash is the in-process feature hashing model.
	// It needs no network and is deterministic, which suits offline runs and tests.
	EmbeddingProviderHash EmbeddingProvider = "hash"
)

// IsValid returns true if the provider is recognised.
func (p EmbeddingProvider) IsValid() bool {
	switch p {
	case EmbeddingProviderOllama, EmbeddingProviderOpenAI, EmbeddingProviderHash:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p EmbeddingProvider) RequiresAPIKey() bool {
	return p == EmbeddingProviderOpenAI
}

// IsRemote returns true if the provider is reached over HTTP.
func (p EmbeddingProvider) IsRemote() bool {
	return p == EmbeddingProviderOllama || p == EmbeddingProviderOpenAI
}

// String returns the string representation.
func (p EmbeddingProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p EmbeddingProvider) Description() string {
	switch p {
	case EmbeddingProviderOllama:
		return "Ollama (local)"
	case EmbeddingProviderOpenAI:
		return "OpenAI (cloud)"
	case EmbeddingProviderHash:
		return "Feature hashing (in-process)"
	default:
		return unknownDescription
	}
}

// ExtractSettings configures the Extractor.
type ExtractSettings struct {
	// InputDir holds the source PDFs.
	InputDir string

	// OutputDir receives one text file per PDF.
	OutputDir string

	// DPI is the page render resolution.
	DPI int

	// Language is the OCR language setting, e.g. "eng" or "eng+fra".
	Language string

	// Suffix is the extension given to text outputs.
	Suffix string

	// PopplerPath is the directory holding the poppler binaries.
	// Empty means they are looked up on PATH.
	PopplerPath string
}

// Languages splits the language setting into individual language codes.
func (s ExtractSettings) Languages() []string {
	var langs []string
	for _, l := range strings.Split(s.Language, "+") {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	return langs
}

// ChunkSettings configures the Chunker.
type ChunkSettings struct {
	// InputDir holds the extracted text files.
	InputDir string

	// OutputDir receives the chunk files.
	OutputDir string

	// Width is the maximum chunk length in characters.
	Width int
}

// EmbedSettings configures the Embedder.
type EmbedSettings struct {
	// InputDir holds the chunk files.
	InputDir string

	// OutputPath is the archive file written by the run.
	OutputPath string

	// Provider selects the embedding service.
	Provider EmbeddingProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint for remote providers.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions overrides the vector size where the provider allows it.
	Dimensions int

	// BatchSize is the number of chunks sent per embedding request.
	BatchSize int

	// RequestsPerSecond limits calls to remote providers. Zero disables limiting.
	RequestsPerSecond float64

	// Compress stores archive entries deflated instead of uncompressed.
	Compress bool

	// IndexPath is an optional SQLite file mirroring the archive.
	IndexPath string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbedSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// AppSettings is the configuration of a whole process.
// It is built once at startup and passed by reference into every stage.
type AppSettings struct {
	// Debug enables verbose logging.
	Debug bool

	// Concurrency bounds the number of units processed at once. 1 is sequential.
	Concurrency int

	// MetricsFile is where Prometheus metrics are written after a run. Optional.
	MetricsFile string

	Extract ExtractSettings
	Chunk   ChunkSettings
	Embed   EmbedSettings
}

// Default values for AppSettings.
const (
	DefaultDPI         = 300
	DefaultLanguage    = "eng"
	DefaultSuffix      = ".txt"
	DefaultChunkWidth  = 500
	DefaultBatchSize   = 16
	DefaultConcurrency = 1
)

// DefaultAppSettings returns settings with sensible defaults.
// Directory defaults follow the rag/ layout used by the ingestion scripts.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Concurrency: DefaultConcurrency,
		Extract: ExtractSettings{
			InputDir:  "rag/raw_texts/pdfs",
			OutputDir: "rag/raw_texts/texts",
			DPI:       DefaultDPI,
			Language:  DefaultLanguage,
			Suffix:    DefaultSuffix,
		},
		Chunk: ChunkSettings{
			InputDir:  "rag/raw_texts/texts",
			OutputDir: "rag/raw_texts/chunks",
			Width:     DefaultChunkWidth,
		},
		Embed: EmbedSettings{
			InputDir:   "rag/raw_texts/chunks",
			OutputPath: "rag/embeddings/embeddings.npz",
			Provider:   EmbeddingProviderOllama,
			Model:      DefaultEmbeddingModels()[EmbeddingProviderOllama],
			BatchSize:  DefaultBatchSize,
		},
	}
}

// LinkStages points each stage at the output of the stage before it, so a
// full run chunks what it extracted and embeds what it chunked.
// It reports whether any input directory changed.
func (s *AppSettings) LinkStages() bool {
	changed := s.Chunk.InputDir != s.Extract.OutputDir || s.Embed.InputDir != s.Chunk.OutputDir
	s.Chunk.InputDir = s.Extract.OutputDir
	s.Embed.InputDir = s.Chunk.OutputDir
	return changed
}

// Validate checks the settings for values no stage can run with.
func (s *AppSettings) Validate() error {
	var problems []string

	if s.Concurrency < 1 {
		problems = append(problems, "concurrency must be at least 1")
	}
	if s.Extract.DPI <= 0 {
		problems = append(problems, "extract.dpi must be positive")
	}
	if len(s.Extract.Languages()) == 0 {
		problems = append(problems, "extract.language must name at least one language")
	}
	if s.Extract.Suffix == "" {
		problems = append(problems, "extract.suffix must not be empty")
	}
	if s.Chunk.Width <= 0 {
		problems = append(problems, "chunk.width must be positive")
	}
	if !s.Embed.Provider.IsValid() {
		problems = append(problems, fmt.Sprintf("embedding.provider %q is not supported", s.Embed.Provider))
	}
	if s.Embed.BatchSize <= 0 {
		problems = append(problems, "embedding.batch_size must be positive")
	}
	if s.Embed.RequestsPerSecond < 0 {
		problems = append(problems, "embedding.requests_per_second must not be negative")
	}
	if s.Embed.OutputPath == "" {
		problems = append(problems, "embedding.output must not be empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}

// AllEmbeddingProviders returns every supported embedding provider.
func AllEmbeddingProviders() []EmbeddingProvider {
	return []EmbeddingProvider{
		EmbeddingProviderOllama,
		EmbeddingProviderOpenAI,
		EmbeddingProviderHash,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[EmbeddingProvider]string {
	return map[EmbeddingProvider]string{
		EmbeddingProviderOllama: "all-minilm",
		EmbeddingProviderOpenAI: "text-embedding-3-small",
		EmbeddingProviderHash:   "feature-hash",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"all-minilm":        384,
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// In-process
		"feature-hash": 384,
	}
}
