package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type DebounceMode string

const (
	// DebounceGlobal keeps a single pending dispatch for the whole tree: an
	// event for b.go cancels a pending dispatch for a.go.
	DebounceGlobal DebounceMode = "global"
	// DebouncePerPath keeps one pending dispatch per file.
	DebouncePerPath DebounceMode = "per-path"
)

type OverlapPolicy string

const (
	// OverlapAllow starts a dispatch as soon as its timer fires, even if an
	// earlier model call is still streaming.
	OverlapAllow OverlapPolicy = "allow"
	// OverlapSerialize holds a fired dispatch until the in-flight one ends.
	OverlapSerialize OverlapPolicy = "serialize"
)

const (
	DefaultProvider     = "replicate"
	DefaultModel        = "anthropic/claude-3.7-sonnet"
	DefaultSystemPrompt = "You are an expert senior polyglot software developer, architect and engineer providing feedback suggestions etc."

	DefaultDebounce           = 500 * time.Millisecond
	DefaultStabilityThreshold = 2000 * time.Millisecond
	DefaultPollInterval       = 100 * time.Millisecond

	ProjectFileName = ".hedgehog.yaml"
)

var (
	DefaultIgnore     = []string{"node_modules", "dist", ".git", "build", ".next"}
	DefaultExtensions = []string{".js", ".jsx", ".ts", ".tsx", ".py", ".html", ".css", ".go", ".rs", ".java", ".c", ".cpp", ".php", ".rb"}
)

var userHomeDir = os.UserHomeDir

type Config struct {
	Watch struct {
		Directory            string        `toml:"directory" yaml:"directory"`
		Ignore               []string      `toml:"ignore" yaml:"ignore"`
		Extensions           []string      `toml:"extensions" yaml:"extensions"`
		DebounceMS           int           `toml:"debounce_ms" yaml:"debounce_ms"`
		DebounceMode         DebounceMode  `toml:"debounce_mode" yaml:"debounce_mode"`
		Overlap              OverlapPolicy `toml:"overlap" yaml:"overlap"`
		StabilityThresholdMS int           `toml:"stability_threshold_ms" yaml:"stability_threshold_ms"`
		PollIntervalMS       int           `toml:"poll_interval_ms" yaml:"poll_interval_ms"`
		ReportExisting       bool          `toml:"report_existing" yaml:"report_existing"`
	} `toml:"watch" yaml:"watch"`
	Model struct {
		Provider     string `toml:"provider" yaml:"provider"`
		ID           string `toml:"id" yaml:"id"`
		SystemPrompt string `toml:"system_prompt" yaml:"system_prompt"`
		BaseURL      string `toml:"base_url" yaml:"base_url"`
	} `toml:"model" yaml:"model"`
	Feedback struct {
		RedactSecrets bool `toml:"redact_secrets" yaml:"redact_secrets"`
	} `toml:"feedback" yaml:"feedback"`
	Verbose bool `toml:"verbose" yaml:"verbose"`
}

// Watch is the resolved, immutable configuration shared by the watch source,
// the coordinator and the feedback pipeline.
type Watch struct {
	Root               string
	IgnorePatterns     []string
	Extensions         []string
	Debounce           time.Duration
	DebounceMode       DebounceMode
	Overlap            OverlapPolicy
	StabilityThreshold time.Duration
	PollInterval       time.Duration
	ReportExisting     bool
	Provider           string
	Model              string
	SystemPrompt       string
	BaseURL            string
	RedactSecrets      bool
}

// Error is a configuration problem detected before watching starts.
type Error struct {
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func GetConfigPath() string {
	home, _ := userHomeDir()
	return filepath.Join(home, ".config", "hedgehog", "config.toml")
}

func Default() *Config {
	var cfg Config
	cfg.Watch.Ignore = append([]string(nil), DefaultIgnore...)
	cfg.Watch.Extensions = append([]string(nil), DefaultExtensions...)
	cfg.Watch.DebounceMS = int(DefaultDebounce / time.Millisecond)
	cfg.Watch.DebounceMode = DebounceGlobal
	cfg.Watch.Overlap = OverlapAllow
	cfg.Watch.StabilityThresholdMS = int(DefaultStabilityThreshold / time.Millisecond)
	cfg.Watch.PollIntervalMS = int(DefaultPollInterval / time.Millisecond)
	cfg.Model.Provider = DefaultProvider
	cfg.Model.ID = DefaultModel
	cfg.Model.SystemPrompt = DefaultSystemPrompt
	return &cfg
}

func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return cfg, &Error{Field: "config file " + path, Err: err}
	}
	return cfg, nil
}

// ApplyProjectFile overlays <root>/.hedgehog.yaml on top of cfg. Keys absent
// from the file keep their current values.
func (c *Config) ApplyProjectFile(root string) error {
	path := filepath.Join(root, ProjectFileName)
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &Error{Field: "project file", Err: err}
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return &Error{Field: "project file " + path, Err: err}
	}
	return nil
}

func (c *Config) Save() error {
	path := GetConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(c)
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Watch.Directory) == "" {
		return &Error{Field: "directory", Err: errors.New("a directory to watch is required")}
	}
	info, err := os.Stat(c.Watch.Directory)
	if err != nil {
		return &Error{Field: "directory", Err: err}
	}
	if !info.IsDir() {
		return &Error{Field: "directory", Err: fmt.Errorf("%s is not a directory", c.Watch.Directory)}
	}
	if len(cleanList(c.Watch.Extensions)) == 0 {
		return &Error{Field: "extensions", Err: errors.New("at least one extension is required")}
	}
	switch c.Watch.DebounceMode {
	case DebounceGlobal, DebouncePerPath:
	default:
		return &Error{Field: "debounce mode", Err: fmt.Errorf("unknown mode %q (want %q or %q)", c.Watch.DebounceMode, DebounceGlobal, DebouncePerPath)}
	}
	switch c.Watch.Overlap {
	case OverlapAllow, OverlapSerialize:
	default:
		return &Error{Field: "overlap policy", Err: fmt.Errorf("unknown policy %q (want %q or %q)", c.Watch.Overlap, OverlapAllow, OverlapSerialize)}
	}
	if c.Watch.DebounceMS < 0 || c.Watch.StabilityThresholdMS < 0 || c.Watch.PollIntervalMS < 0 {
		return &Error{Field: "timing", Err: errors.New("durations must not be negative")}
	}
	if strings.TrimSpace(c.Model.ID) == "" {
		return &Error{Field: "model", Err: errors.New("model identifier is empty")}
	}
	return nil
}

// Resolve validates c and resolves it into a Watch.
func (c *Config) Resolve() (Watch, error) {
	if err := c.Validate(); err != nil {
		return Watch{}, err
	}
	root, err := filepath.Abs(c.Watch.Directory)
	if err != nil {
		return Watch{}, &Error{Field: "directory", Err: err}
	}
	poll := time.Duration(c.Watch.PollIntervalMS) * time.Millisecond
	if poll == 0 {
		poll = DefaultPollInterval
	}
	return Watch{
		Root:               root,
		IgnorePatterns:     cleanList(c.Watch.Ignore),
		Extensions:         cleanList(c.Watch.Extensions),
		Debounce:           time.Duration(c.Watch.DebounceMS) * time.Millisecond,
		DebounceMode:       c.Watch.DebounceMode,
		Overlap:            c.Watch.Overlap,
		StabilityThreshold: time.Duration(c.Watch.StabilityThresholdMS) * time.Millisecond,
		PollInterval:       poll,
		ReportExisting:     c.Watch.ReportExisting,
		Provider:           strings.TrimSpace(c.Model.Provider),
		Model:              strings.TrimSpace(c.Model.ID),
		SystemPrompt:       c.Model.SystemPrompt,
		BaseURL:            strings.TrimSpace(c.Model.BaseURL),
		RedactSecrets:      c.Feedback.RedactSecrets,
	}, nil
}

// SplitList parses a comma-separated flag value.
func SplitList(raw string) []string {
	return cleanList(strings.Split(raw, ","))
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
