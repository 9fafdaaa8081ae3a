package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultIgnore, cfg.Watch.Ignore)
	assert.Equal(t, DefaultExtensions, cfg.Watch.Extensions)
	assert.Equal(t, 500, cfg.Watch.DebounceMS)
	assert.Equal(t, DebounceGlobal, cfg.Watch.DebounceMode)
	assert.Equal(t, OverlapAllow, cfg.Watch.Overlap)
	assert.Equal(t, DefaultModel, cfg.Model.ID)
	assert.Equal(t, "replicate", cfg.Model.Provider)
}

func TestLoadFromOverlaysTOML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	raw := `
[watch]
extensions = [".go"]
debounce_mode = "per-path"

[model]
provider = "anthropic"
id = "claude-sonnet-4-5"
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, []string{".go"}, cfg.Watch.Extensions)
	assert.Equal(t, DebouncePerPath, cfg.Watch.DebounceMode)
	assert.Equal(t, "anthropic", cfg.Model.Provider)
	assert.Equal(t, "claude-sonnet-4-5", cfg.Model.ID)
	// untouched keys keep defaults
	assert.Equal(t, DefaultIgnore, cfg.Watch.Ignore)
	assert.Equal(t, DefaultSystemPrompt, cfg.Model.SystemPrompt)
}

func TestLoadFromRejectsMalformedTOML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[watch\n"), 0o600))

	_, err := LoadFrom(path)
	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
}

func TestApplyProjectFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	raw := "watch:\n  ignore: [vendor]\nfeedback:\n  redact_secrets: true\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, ProjectFileName), []byte(raw), 0o600))

	cfg := Default()
	require.NoError(t, cfg.ApplyProjectFile(root))
	assert.Equal(t, []string{"vendor"}, cfg.Watch.Ignore)
	assert.True(t, cfg.Feedback.RedactSecrets)
	assert.Equal(t, DefaultExtensions, cfg.Watch.Extensions)
}

func TestApplyProjectFileMissingIsNoop(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.ApplyProjectFile(t.TempDir()))
	assert.Equal(t, DefaultIgnore, cfg.Watch.Ignore)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "a.go")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	tests := []struct {
		name    string
		mutate  func(c *Config)
		field   string
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing directory", mutate: func(c *Config) { c.Watch.Directory = "" }, field: "directory", wantErr: true},
		{name: "directory is a file", mutate: func(c *Config) { c.Watch.Directory = file }, field: "directory", wantErr: true},
		{name: "no extensions", mutate: func(c *Config) { c.Watch.Extensions = []string{" "} }, field: "extensions", wantErr: true},
		{name: "bad debounce mode", mutate: func(c *Config) { c.Watch.DebounceMode = "sometimes" }, field: "debounce mode", wantErr: true},
		{name: "bad overlap", mutate: func(c *Config) { c.Watch.Overlap = "maybe" }, field: "overlap policy", wantErr: true},
		{name: "empty model", mutate: func(c *Config) { c.Model.ID = "" }, field: "model", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Watch.Directory = dir
			tt.mutate(cfg)
			err := cfg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var cfgErr *Error
			require.True(t, errors.As(err, &cfgErr), "expected *config.Error, got %v", err)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestResolveDurationsAndRoot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := Default()
	cfg.Watch.Directory = dir
	cfg.Watch.Ignore = []string{" node_modules ", "", "dist"}
	cfg.Watch.PollIntervalMS = 0

	w, err := cfg.Resolve()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(w.Root))
	assert.Equal(t, []string{"node_modules", "dist"}, w.IgnorePatterns)
	assert.Equal(t, 500*time.Millisecond, w.Debounce)
	assert.Equal(t, 2*time.Second, w.StabilityThreshold)
	assert.Equal(t, DefaultPollInterval, w.PollInterval)
}

func TestSplitList(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{".js", ".go"}, SplitList(".js, ,.go,"))
	assert.Empty(t, SplitList(""))
}

func TestGetConfigPathUsesHome(t *testing.T) {
	orig := userHomeDir
	defer func() { userHomeDir = orig }()
	userHomeDir = func() (string, error) { return "/home/hog", nil }

	assert.Equal(t, filepath.Join("/home/hog", ".config", "hedgehog", "config.toml"), GetConfigPath())
}

func TestViewModelQuitsOnQ(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Watch.Directory = "/proj"
	m := NewViewModel(cfg, "/tmp/config.toml")

	view := m.View()
	assert.Contains(t, view, "/proj")
	assert.Contains(t, view, DefaultModel)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
