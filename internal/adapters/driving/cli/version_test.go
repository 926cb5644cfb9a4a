package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragingest/internal/core/ports/driving"
)

func TestVersionCmd(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    string
	}{
		{name: "release", version: "1.4.0", want: "ragingest version 1.4.0\n"},
		{name: "development build", version: "dev", want: "ragingest version dev\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct := setupCLITest(t)
			original := version
			SetVersion(tt.version)
			t.Cleanup(func() { version = original })

			require.NoError(t, ct.execute("version"))

			assert.Equal(t, tt.want, ct.out.String())
		})
	}
}

// version runs without opening settings, even when they cannot be opened.
func TestVersionCmd_SkipsSettings(t *testing.T) {
	ct := setupCLITest(t)
	opened := 0
	deps.OpenSettings = func(string) (driving.SettingsService, error) {
		opened++
		return nil, errInjected
	}

	require.NoError(t, ct.execute("version", "--config", "/unreadable"))
	assert.Contains(t, ct.out.String(), "ragingest version")
	assert.Zero(t, opened)

	err := ct.execute("chunk")
	assert.ErrorIs(t, err, errInjected)
	assert.ErrorContains(t, err, "open settings")
	assert.Equal(t, 1, opened)
}
