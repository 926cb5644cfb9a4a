package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/ragingest/internal/core/domain"
	"github.com/custodia-labs/ragingest/internal/core/ports/driven"
	"github.com/custodia-labs/ragingest/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyDebug           = "general.debug"
	keyConcurrency     = "general.concurrency"
	keyMetricsFile     = "general.metrics_file"
	keyExtractInput    = "extract.input_dir"
	keyExtractOutput   = "extract.output_dir"
	keyExtractDPI      = "extract.dpi"
	keyExtractLanguage = "extract.language"
	keyExtractSuffix   = "extract.suffix"
	keyExtractPoppler  = "extract.poppler_path"
	keyChunkInput      = "chunk.input_dir"
	keyChunkOutput     = "chunk.output_dir"
	keyChunkWidth      = "chunk.width"
	keyEmbedInput      = "embedding.input_dir"
	keyEmbedOutput     = "embedding.output"
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedDimensions = "embedding.dimensions"
	keyEmbedBatchSize  = "embedding.batch_size"
	keyEmbedRPS        = "embedding.requests_per_second"
	keyEmbedCompress   = "embedding.compress"
	keyEmbedIndexPath  = "embedding.index_path"
	envDebug           = "DEBUG_MODE"
	envRagingestDebug  = "RAGINGEST_DEBUG"
	envConcurrency     = "RAGINGEST_CONCURRENCY"
	envOpenAIKey       = "OPENAI_API_KEY"
	envOllamaHost      = "OLLAMA_HOST"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindBool
)

// setting binds a config key to a field of AppSettings.
type setting struct {
	key  string
	kind valueKind
	get  func(*domain.AppSettings) any
	set  func(*domain.AppSettings, any)
}

func stringSetting(key string, field func(*domain.AppSettings) *string) setting {
	return setting{
		key:  key,
		kind: kindString,
		get:  func(s *domain.AppSettings) any { return *field(s) },
		set:  func(s *domain.AppSettings, v any) { *field(s) = v.(string) },
	}
}

func intSetting(key string, field func(*domain.AppSettings) *int) setting {
	return setting{
		key:  key,
		kind: kindInt,
		get:  func(s *domain.AppSettings) any { return *field(s) },
		set:  func(s *domain.AppSettings, v any) { *field(s) = v.(int) },
	}
}

func floatSetting(key string, field func(*domain.AppSettings) *float64) setting {
	return setting{
		key:  key,
		kind: kindFloat,
		get:  func(s *domain.AppSettings) any { return *field(s) },
		set:  func(s *domain.AppSettings, v any) { *field(s) = v.(float64) },
	}
}

func boolSetting(key string, field func(*domain.AppSettings) *bool) setting {
	return setting{
		key:  key,
		kind: kindBool,
		get:  func(s *domain.AppSettings) any { return *field(s) },
		set:  func(s *domain.AppSettings, v any) { *field(s) = v.(bool) },
	}
}

// settingTable lists every persisted key in display order.
var settingTable = []setting{
	boolSetting(keyDebug, func(s *domain.AppSettings) *bool { return &s.Debug }),
	intSetting(keyConcurrency, func(s *domain.AppSettings) *int { return &s.Concurrency }),
	stringSetting(keyMetricsFile, func(s *domain.AppSettings) *string { return &s.MetricsFile }),
	stringSetting(keyExtractInput, func(s *domain.AppSettings) *string { return &s.Extract.InputDir }),
	stringSetting(keyExtractOutput, func(s *domain.AppSettings) *string { return &s.Extract.OutputDir }),
	intSetting(keyExtractDPI, func(s *domain.AppSettings) *int { return &s.Extract.DPI }),
	stringSetting(keyExtractLanguage, func(s *domain.AppSettings) *string { return &s.Extract.Language }),
	stringSetting(keyExtractSuffix, func(s *domain.AppSettings) *string { return &s.Extract.Suffix }),
	stringSetting(keyExtractPoppler, func(s *domain.AppSettings) *string { return &s.Extract.PopplerPath }),
	stringSetting(keyChunkInput, func(s *domain.AppSettings) *string { return &s.Chunk.InputDir }),
	stringSetting(keyChunkOutput, func(s *domain.AppSettings) *string { return &s.Chunk.OutputDir }),
	intSetting(keyChunkWidth, func(s *domain.AppSettings) *int { return &s.Chunk.Width }),
	stringSetting(keyEmbedInput, func(s *domain.AppSettings) *string { return &s.Embed.InputDir }),
	stringSetting(keyEmbedOutput, func(s *domain.AppSettings) *string { return &s.Embed.OutputPath }),
	{
		key:  keyEmbedProvider,
		kind: kindString,
		get:  func(s *domain.AppSettings) any { return s.Embed.Provider.String() },
		set:  func(s *domain.AppSettings, v any) { s.Embed.Provider = domain.EmbeddingProvider(v.(string)) },
	},
	stringSetting(keyEmbedModel, func(s *domain.AppSettings) *string { return &s.Embed.Model }),
	stringSetting(keyEmbedBaseURL, func(s *domain.AppSettings) *string { return &s.Embed.BaseURL }),
	stringSetting(keyEmbedAPIKey, func(s *domain.AppSettings) *string { return &s.Embed.APIKey }),
	intSetting(keyEmbedDimensions, func(s *domain.AppSettings) *int { return &s.Embed.Dimensions }),
	intSetting(keyEmbedBatchSize, func(s *domain.AppSettings) *int { return &s.Embed.BatchSize }),
	floatSetting(keyEmbedRPS, func(s *domain.AppSettings) *float64 { return &s.Embed.RequestsPerSecond }),
	boolSetting(keyEmbedCompress, func(s *domain.AppSettings) *bool { return &s.Embed.Compress }),
	stringSetting(keyEmbedIndexPath, func(s *domain.AppSettings) *string { return &s.Embed.IndexPath }),
}

func lookupSetting(key string) (setting, bool) {
	for _, st := range settingTable {
		if st.key == key {
			return st, true
		}
	}
	return setting{}, false
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings: defaults overlaid with
// every stored value. An unknown provider falls back to the default, and
// when no model is stored the provider's default model is used.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	result := domain.DefaultAppSettings()

	for _, st := range settingTable {
		if _, exists := s.configStore.Get(st.key); !exists {
			continue
		}
		st.set(&result, s.stored(st))
	}

	if !result.Embed.Provider.IsValid() {
		result.Embed.Provider = domain.DefaultAppSettings().Embed.Provider
	}
	if _, exists := s.configStore.Get(keyEmbedModel); !exists || result.Embed.Model == "" {
		result.Embed.Model = domain.DefaultEmbeddingModels()[result.Embed.Provider]
	}

	return &result, nil
}

// stored reads a key through the typed getter for its kind.
func (s *SettingsService) stored(st setting) any {
	switch st.kind {
	case kindInt:
		return s.configStore.GetInt(st.key)
	case kindFloat:
		return s.configStore.GetFloat(st.key)
	case kindBool:
		return s.configStore.GetBool(st.key)
	default:
		return s.configStore.GetString(st.key)
	}
}

// Save persists application settings. An empty API key is not written
// so that one supplied through the environment is never blanked out.
func (s *SettingsService) Save(appSettings *domain.AppSettings) error {
	if appSettings == nil {
		return domain.ErrInvalidInput
	}
	for _, st := range settingTable {
		val := st.get(appSettings)
		if st.key == keyEmbedAPIKey && val == "" {
			continue
		}
		if err := s.configStore.Set(st.key, val); err != nil {
			return fmt.Errorf("save %s: %w", st.key, err)
		}
	}
	return nil
}

// Set parses value according to the type of key, checks that the
// resulting settings are still valid and stores it.
func (s *SettingsService) Set(key, value string) error {
	st, ok := lookupSetting(key)
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	parsed, err := parseValue(st.kind, value)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}

	current, err := s.Get()
	if err != nil {
		return err
	}
	st.set(current, parsed)
	if err := current.Validate(); err != nil {
		return err
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Keys returns the supported setting keys in display order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, len(settingTable))
	for i, st := range settingTable {
		keys[i] = st.key
	}
	return keys
}

// Value returns the display value of key in appSettings.
// API keys are masked.
func (s *SettingsService) Value(appSettings *domain.AppSettings, key string) (string, bool) {
	st, ok := lookupSetting(key)
	if !ok {
		return "", false
	}
	val := st.get(appSettings)
	if key == keyEmbedAPIKey {
		if str, _ := val.(string); str != "" {
			return "********", true
		}
		return "", true
	}
	return fmt.Sprint(val), true
}

// Validate checks the stored settings.
func (s *SettingsService) Validate() error {
	current, err := s.Get()
	if err != nil {
		return err
	}
	return current.Validate()
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Path returns the location of the config store.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

func parseValue(kind valueKind, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch kind {
	case kindInt:
		return strconv.Atoi(value)
	case kindFloat:
		return strconv.ParseFloat(value, 64)
	case kindBool:
		return strconv.ParseBool(value)
	default:
		return value, nil
	}
}

// ApplyEnv overlays environment overrides on appSettings. lookup has the
// signature of os.LookupEnv so tests can pass a map-backed function.
func ApplyEnv(appSettings *domain.AppSettings, lookup func(string) (string, bool)) error {
	for _, name := range []string{envDebug, envRagingestDebug} {
		if v, ok := lookup(name); ok && v != "" {
			debug, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, name, err)
			}
			appSettings.Debug = appSettings.Debug || debug
		}
	}

	if v, ok := lookup(envConcurrency); ok && v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, envConcurrency, err)
		}
		appSettings.Concurrency = n
	}

	if appSettings.Embed.APIKey == "" {
		if v, ok := lookup(envOpenAIKey); ok {
			appSettings.Embed.APIKey = v
		}
	}

	if appSettings.Embed.Provider == domain.EmbeddingProviderOllama && appSettings.Embed.BaseURL == "" {
		if v, ok := lookup(envOllamaHost); ok && v != "" {
			appSettings.Embed.BaseURL = normaliseOllamaHost(v)
		}
	}

	return nil
}

// normaliseOllamaHost accepts OLLAMA_HOST in the forms the Ollama CLI
// does: a bare host:port or a full URL.
func normaliseOllamaHost(host string) string {
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return strings.TrimRight(host, "/")
	}
	return "http://" + strings.TrimRight(host, "/")
}
