// Package ai provides the factory that turns embedding settings into a
// ready-to-use embedding service.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	hashembed "github.com/custodia-labs/ragingest/internal/adapters/driven/embedding/hash"
	ollamaembed "github.com/custodia-labs/ragingest/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/ragingest/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/ragingest/internal/adapters/driven/embedding/retry"
	"github.com/custodia-labs/ragingest/internal/core/domain"
	"github.com/custodia-labs/ragingest/internal/core/ports/driven"
)

// Ensure Loader implements the interface.
var _ driven.EmbeddingLoader = (*Loader)(nil)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Loader creates the embedding service for a run and checks that it answers.
type Loader struct {
	pingTimeout time.Duration
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPingTimeout overrides the connectivity check timeout.
func WithPingTimeout(d time.Duration) LoaderOption {
	return func(l *Loader) {
		if d > 0 {
			l.pingTimeout = d
		}
	}
}

// NewLoader creates a new Loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{pingTimeout: pingTimeout}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load creates the service described by settings and pings it.
// Every failure wraps domain.ErrEmbeddingUnavailable.
func (l *Loader) Load(ctx context.Context, settings domain.EmbedSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, l.pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// checkText is embedded by ValidateEmbeddingConfig.
const checkText = "ragingest configuration check"

// ValidateEmbeddingConfig loads the service described by settings, embeds
// a short text and checks the vector has the dimensions the service reports.
// It backs the 'config check' command.
func ValidateEmbeddingConfig(ctx context.Context, settings domain.EmbedSettings) error {
	return validateWith(ctx, NewLoader(), settings)
}

func validateWith(ctx context.Context, loader driven.EmbeddingLoader, settings domain.EmbedSettings) (err error) {
	svc, err := loader.Load(ctx, settings)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, svc.Close())
	}()

	vector, err := svc.Embed(ctx, checkText)
	if err != nil {
		return fmt.Errorf("%w: embed check text: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if want := svc.Dimensions(); want > 0 && len(vector) != want {
		return fmt.Errorf("%w: %s returned %d dimensions, expected %d",
			domain.ErrEmbeddingUnavailable, svc.ModelName(), len(vector), want)
	}
	return nil
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
func CreateEmbeddingService(settings domain.EmbedSettings) (driven.EmbeddingService, error) {
	if !settings.Provider.IsValid() {
		return nil, fmt.Errorf("%w: unsupported embedding provider %q", domain.ErrUnsupportedType, settings.Provider)
	}
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("%s requires an API key (set embedding.api_key or OPENAI_API_KEY)", settings.Provider)
	}

	switch settings.Provider {
	case domain.EmbeddingProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.EmbeddingProviderOpenAI:
		return createOpenAIEmbedding(settings)

	case domain.EmbeddingProviderHash:
		return createHashEmbedding(settings), nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// dimensionsFor returns the configured override or the known size of model.
func dimensionsFor(settings domain.EmbedSettings) int {
	if settings.Dimensions > 0 {
		return settings.Dimensions
	}
	return domain.EmbeddingDimensions()[settings.Model]
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings domain.EmbedSettings) driven.EmbeddingService {
	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensionsFor(settings),
		Retry:      retry.NewPolicy(settings.RequestsPerSecond),
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings domain.EmbedSettings) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: settings.Dimensions,
		Retry:      retry.NewPolicy(settings.RequestsPerSecond),
	})
}

// createHashEmbedding creates the in-process hashing embedder.
func createHashEmbedding(settings domain.EmbedSettings) driven.EmbeddingService {
	return hashembed.NewEmbeddingService(hashembed.Config{
		Model:      settings.Model,
		Dimensions: dimensionsFor(settings),
	})
}
