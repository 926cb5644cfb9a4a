package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragingest/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragingest/internal/core/domain"
)

func TestSettingsService_Get_Defaults(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore())

	settings, err := svc.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAppSettings(), *settings)
	assert.Equal(t, domain.DefaultAppSettings(), svc.GetDefaults())
}

func TestSettingsService_Get_StoredValues(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{
		"general.debug":                 true,
		"general.concurrency":           int64(4),
		"extract.input_dir":             "scans",
		"extract.dpi":                   int64(200),
		"extract.language":              "eng+deu",
		"chunk.width":                   int64(250),
		"embedding.provider":            "openai",
		"embedding.requests_per_second": 2.5,
		"embedding.compress":            true,
	})
	svc := NewSettingsService(store)

	settings, err := svc.Get()

	require.NoError(t, err)
	assert.True(t, settings.Debug)
	assert.Equal(t, 4, settings.Concurrency)
	assert.Equal(t, "scans", settings.Extract.InputDir)
	assert.Equal(t, 200, settings.Extract.DPI)
	assert.Equal(t, "eng+deu", settings.Extract.Language)
	assert.Equal(t, domain.DefaultSuffix, settings.Extract.Suffix)
	assert.Equal(t, 250, settings.Chunk.Width)
	assert.Equal(t, domain.EmbeddingProviderOpenAI, settings.Embed.Provider)
	assert.Equal(t, "text-embedding-3-small", settings.Embed.Model)
	assert.Equal(t, 2.5, settings.Embed.RequestsPerSecond)
	assert.True(t, settings.Embed.Compress)
}

func TestSettingsService_Get_InvalidProviderFallsBack(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore(map[string]any{"embedding.provider": "nope"}))

	settings, err := svc.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.EmbeddingProviderOllama, settings.Embed.Provider)
	assert.Equal(t, "all-minilm", settings.Embed.Model)
}

func TestSettingsService_SaveAndGet(t *testing.T) {
	store := memory.NewConfigStore()
	svc := NewSettingsService(store)

	settings := domain.DefaultAppSettings()
	settings.Concurrency = 3
	settings.Chunk.Width = 120
	settings.Embed.Provider = domain.EmbeddingProviderHash
	settings.Embed.Model = "feature-hash"
	settings.Embed.IndexPath = "index.db"

	require.NoError(t, svc.Save(&settings))

	got, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, settings, *got)

	_, hasKey := store.Get("embedding.api_key")
	assert.False(t, hasKey, "empty API key must not be stored")
}

func TestSettingsService_Save_Nil(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore())

	assert.ErrorIs(t, svc.Save(nil), domain.ErrInvalidInput)
}

func TestSettingsService_Set(t *testing.T) {
	tests := []struct {
		key   string
		value string
		check func(t *testing.T, s *domain.AppSettings)
	}{
		{"general.debug", "true", func(t *testing.T, s *domain.AppSettings) { assert.True(t, s.Debug) }},
		{"general.concurrency", "8", func(t *testing.T, s *domain.AppSettings) { assert.Equal(t, 8, s.Concurrency) }},
		{"extract.dpi", " 150 ", func(t *testing.T, s *domain.AppSettings) { assert.Equal(t, 150, s.Extract.DPI) }},
		{"chunk.output_dir", "out", func(t *testing.T, s *domain.AppSettings) { assert.Equal(t, "out", s.Chunk.OutputDir) }},
		{"embedding.requests_per_second", "0.5", func(t *testing.T, s *domain.AppSettings) {
			assert.Equal(t, 0.5, s.Embed.RequestsPerSecond)
		}},
		{"embedding.provider", "hash", func(t *testing.T, s *domain.AppSettings) {
			assert.Equal(t, domain.EmbeddingProviderHash, s.Embed.Provider)
			assert.Equal(t, "feature-hash", s.Embed.Model)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			svc := NewSettingsService(memory.NewConfigStore())

			require.NoError(t, svc.Set(tt.key, tt.value))

			settings, err := svc.Get()
			require.NoError(t, err)
			tt.check(t, settings)
		})
	}
}

func TestSettingsService_Set_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown key", "chunk.overlap", "10"},
		{"not an int", "chunk.width", "wide"},
		{"not a bool", "general.debug", "maybe"},
		{"not a float", "embedding.requests_per_second", "fast"},
		{"zero width", "chunk.width", "0"},
		{"bad provider", "embedding.provider", "cohere"},
		{"zero concurrency", "general.concurrency", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewConfigStore()
			svc := NewSettingsService(store)

			err := svc.Set(tt.key, tt.value)

			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			_, stored := store.Get(tt.key)
			assert.False(t, stored)
		})
	}
}

func TestSettingsService_Validate(t *testing.T) {
	assert.NoError(t, NewSettingsService(memory.NewConfigStore()).Validate())

	bad := NewSettingsService(memory.NewConfigStore(map[string]any{"extract.dpi": -1}))
	assert.ErrorIs(t, bad.Validate(), domain.ErrInvalidInput)
}

func TestSettingsService_KeysAndPath(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore())

	keys := svc.Keys()
	assert.Equal(t, "general.debug", keys[0])
	assert.Contains(t, keys, "embedding.index_path")
	assert.Len(t, keys, len(settingTable))
	assert.Equal(t, ":memory:", svc.Path())
}

func TestSettingsService_Value(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore())
	settings := domain.DefaultAppSettings()
	settings.Embed.APIKey = "sk-secret"

	v, ok := svc.Value(&settings, "chunk.width")
	assert.True(t, ok)
	assert.Equal(t, "500", v)

	v, ok = svc.Value(&settings, "embedding.api_key")
	assert.True(t, ok)
	assert.Equal(t, "********", v)

	_, ok = svc.Value(&settings, "missing")
	assert.False(t, ok)
}

func TestApplyEnv(t *testing.T) {
	env := func(vars map[string]string) func(string) (string, bool) {
		return func(key string) (string, bool) {
			v, ok := vars[key]
			return v, ok
		}
	}

	t.Run("debug and concurrency", func(t *testing.T) {
		settings := domain.DefaultAppSettings()
		err := ApplyEnv(&settings, env(map[string]string{"DEBUG_MODE": "true", "RAGINGEST_CONCURRENCY": "6"}))
		require.NoError(t, err)
		assert.True(t, settings.Debug)
		assert.Equal(t, 6, settings.Concurrency)
	})

	t.Run("debug false keeps config value", func(t *testing.T) {
		settings := domain.DefaultAppSettings()
		settings.Debug = true
		require.NoError(t, ApplyEnv(&settings, env(map[string]string{"RAGINGEST_DEBUG": "false"})))
		assert.True(t, settings.Debug)
	})

	t.Run("api key only when unset", func(t *testing.T) {
		settings := domain.DefaultAppSettings()
		require.NoError(t, ApplyEnv(&settings, env(map[string]string{"OPENAI_API_KEY": "sk-env"})))
		assert.Equal(t, "sk-env", settings.Embed.APIKey)

		settings.Embed.APIKey = "sk-config"
		require.NoError(t, ApplyEnv(&settings, env(map[string]string{"OPENAI_API_KEY": "sk-env"})))
		assert.Equal(t, "sk-config", settings.Embed.APIKey)
	})

	t.Run("ollama host", func(t *testing.T) {
		settings := domain.DefaultAppSettings()
		require.NoError(t, ApplyEnv(&settings, env(map[string]string{"OLLAMA_HOST": "gpu-box:11434"})))
		assert.Equal(t, "http://gpu-box:11434", settings.Embed.BaseURL)

		settings = domain.DefaultAppSettings()
		settings.Embed.Provider = domain.EmbeddingProviderOpenAI
		require.NoError(t, ApplyEnv(&settings, env(map[string]string{"OLLAMA_HOST": "gpu-box:11434"})))
		assert.Empty(t, settings.Embed.BaseURL)
	})

	t.Run("invalid values", func(t *testing.T) {
		settings := domain.DefaultAppSettings()
		assert.ErrorIs(t, ApplyEnv(&settings, env(map[string]string{"DEBUG_MODE": "yes please"})), domain.ErrInvalidInput)
		assert.ErrorIs(t, ApplyEnv(&settings, env(map[string]string{"RAGINGEST_CONCURRENCY": "many"})), domain.ErrInvalidInput)
	})
}

func TestNormaliseOllamaHost(t *testing.T) {
	assert.Equal(t, "http://localhost:11434", normaliseOllamaHost("localhost:11434"))
	assert.Equal(t, "https://ollama.example", normaliseOllamaHost("https://ollama.example/"))
}
