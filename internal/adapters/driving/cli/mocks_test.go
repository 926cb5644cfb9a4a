package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/ragingest/internal/core/domain"
	"github.com/custodia-labs/ragingest/internal/core/ports/driving"
)

// mockSettingsService implements driving.SettingsService for testing.
type mockSettingsService struct {
	settings domain.AppSettings
	getErr   error
	setErr   error
	set      map[string]string
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{
		settings: domain.DefaultAppSettings(),
		set:      make(map[string]string),
	}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.set[key] = value
	return nil
}

func (m *mockSettingsService) Keys() []string {
	return []string{"chunk.width", "embedding.api_key"}
}

func (m *mockSettingsService) Value(settings *domain.AppSettings, key string) (string, bool) {
	switch key {
	case "chunk.width":
		return fmt.Sprint(settings.Chunk.Width), true
	case "embedding.api_key":
		return "", true
	default:
		return "", false
	}
}

func (m *mockSettingsService) Validate() error {
	return nil
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) Path() string {
	return "/home/test/.ragingest/config.toml"
}

// mockPipeline implements driving.Pipeline for testing.
type mockPipeline struct {
	summary *domain.RunSummary
	err     error
	runs    int
	stages  []domain.Stage
}

func (m *mockPipeline) Run(_ context.Context) (*domain.RunSummary, error) {
	m.runs++
	return m.summary, m.err
}

func (m *mockPipeline) RunStage(_ context.Context, stage domain.Stage) (*domain.RunSummary, error) {
	m.stages = append(m.stages, stage)
	return m.summary, m.err
}

// mockArchiveReader implements driven.ArchiveReader for testing.
type mockArchiveReader struct {
	store *domain.EmbeddingStore
	err   error
	paths []string
}

func (m *mockArchiveReader) Read(path string) (*domain.EmbeddingStore, error) {
	m.paths = append(m.paths, path)
	return m.store, m.err
}

// cliTest captures what the commands were wired with.
type cliTest struct {
	out      *bytes.Buffer
	settings *mockSettingsService
	pipeline *mockPipeline
	built    *domain.AppSettings
	cleaned  bool
}

// setupCLITest installs mocks, resets every flag and returns the capture.
func setupCLITest(t *testing.T) *cliTest {
	t.Helper()

	ct := &cliTest{
		out:      new(bytes.Buffer),
		settings: newMockSettingsService(),
		pipeline: &mockPipeline{summary: &domain.RunSummary{RunID: "run-1"}},
	}

	oldDeps, oldService := deps, settingsService
	deps = Dependencies{
		OpenSettings: func(string) (driving.SettingsService, error) {
			return ct.settings, nil
		},
		BuildPipeline: func(settings *domain.AppSettings) (driving.Pipeline, func(), error) {
			ct.built = settings
			return ct.pipeline, func() { ct.cleaned = true }, nil
		},
	}
	resetFlags(rootCmd)

	rootCmd.SetOut(ct.out)
	rootCmd.SetErr(ct.out)
	t.Cleanup(func() {
		deps, settingsService = oldDeps, oldService
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	})
	return ct
}

// execute runs the root command with args.
func (ct *cliTest) execute(args ...string) error {
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

// resetFlags restores every flag of cmd and its children to its default.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}

var errInjected = errors.New("injected failure")
