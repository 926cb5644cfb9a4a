package driving

import "github.com/custodia-labs/ragingest/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get builds settings from defaults overlaid with stored values.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// Set parses and stores a single value by its dotted key.
	Set(key, value string) error

	// Keys returns the supported setting keys in display order.
	Keys() []string

	// Value returns the display value of key in settings.
	// Secrets are masked. ok is false for unknown keys.
	Value(settings *domain.AppSettings, key string) (value string, ok bool)

	// Validate checks the stored settings.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// Path returns where settings are persisted.
	Path() string
}
