package cli

import (
	"context"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/yubzen/hedgehog/internal/config"
	"github.com/yubzen/hedgehog/internal/coordinator"
	"github.com/yubzen/hedgehog/internal/feedback"
	"github.com/yubzen/hedgehog/internal/logging"
	"github.com/yubzen/hedgehog/internal/output"
	"github.com/yubzen/hedgehog/internal/watch"
)

// WatchFlags are the root command's flags. A flag only overrides the config
// files when it was set on the command line.
type WatchFlags struct {
	Directory      string
	Token          string
	Ignore         string
	Extensions     string
	Model          string
	System         string
	Provider       string
	DebounceMode   string
	Overlap        string
	ReportExisting bool
	Verbose        bool
}

func (f *WatchFlags) Register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.Directory, "directory", "d", "", "Directory to watch for changes")
	fl.StringVarP(&f.Token, "token", "t", "", "API token for the model provider")
	fl.StringVarP(&f.Ignore, "ignore", "i", strings.Join(config.DefaultIgnore, ","), "Comma-separated patterns to ignore")
	fl.StringVarP(&f.Extensions, "extensions", "e", strings.Join(config.DefaultExtensions, ","), "Comma-separated file extensions to watch")
	fl.StringVarP(&f.Model, "model", "m", config.DefaultModel, "Model ID (e.g. \"anthropic/claude-3.7-sonnet\")")
	fl.StringVarP(&f.System, "system", "s", config.DefaultSystemPrompt, "Custom system prompt")
	fl.StringVar(&f.Provider, "provider", config.DefaultProvider, "Model provider: replicate, anthropic, openai, openrouter or google")
	fl.StringVar(&f.DebounceMode, "debounce-mode", string(config.DebounceGlobal), "Debounce scope: global or per-path")
	fl.StringVar(&f.Overlap, "overlap", string(config.OverlapAllow), "Concurrent feedback: allow or serialize")
	fl.BoolVar(&f.ReportExisting, "initial", false, "Also review files that exist when watching starts")
	fl.BoolVarP(&f.Verbose, "verbose", "v", false, "Enable verbose logging")
}

// Resolve layers defaults, the user config file, the project file and the
// flags that were set, in that order.
func (f *WatchFlags) Resolve(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	changed := cmd.Flags().Changed
	if changed("directory") {
		cfg.Watch.Directory = f.Directory
	}
	if dir := strings.TrimSpace(cfg.Watch.Directory); dir != "" {
		if err := cfg.ApplyProjectFile(dir); err != nil {
			return nil, err
		}
	}
	f.apply(cfg, changed)
	return cfg, nil
}

func (f *WatchFlags) apply(cfg *config.Config, changed func(string) bool) {
	if changed("directory") {
		cfg.Watch.Directory = f.Directory
	}
	if changed("ignore") {
		cfg.Watch.Ignore = config.SplitList(f.Ignore)
	}
	if changed("extensions") {
		cfg.Watch.Extensions = config.SplitList(f.Extensions)
	}
	if changed("model") {
		cfg.Model.ID = f.Model
	}
	if changed("system") {
		cfg.Model.SystemPrompt = f.System
	}
	if changed("provider") {
		cfg.Model.Provider = f.Provider
	}
	if changed("debounce-mode") {
		cfg.Watch.DebounceMode = config.DebounceMode(f.DebounceMode)
	}
	if changed("overlap") {
		cfg.Watch.Overlap = config.OverlapPolicy(f.Overlap)
	}
	if changed("initial") {
		cfg.Watch.ReportExisting = f.ReportExisting
	}
	if changed("verbose") {
		cfg.Verbose = f.Verbose
	}
}

// RunOptions carries what RunWatch needs besides the configuration.
type RunOptions struct {
	Token  string
	Stdout io.Writer
	Stderr io.Writer
}

// RunWatch validates cfg, connects the provider and watches until ctx is
// cancelled. Setup problems are returned as *config.Error; a root that cannot
// be subscribed to is returned as *watch.Error.
func RunWatch(ctx context.Context, cfg *config.Config, opts RunOptions) error {
	w, err := cfg.Resolve()
	if err != nil {
		return err
	}
	filter, err := watch.NewFilter(w.Extensions, w.IgnorePatterns)
	if err != nil {
		return &config.Error{Field: "ignore", Err: err}
	}
	spec, err := resolveProvider(w.Provider)
	if err != nil {
		return &config.Error{Field: "provider", Err: err}
	}
	provider, err := spec.build(cfg, opts.Token)
	if err != nil {
		return &config.Error{Field: "provider", Err: err}
	}
	if err := provider.Ping(ctx); err != nil {
		return &config.Error{Field: "credentials", Err: err}
	}

	console := output.NewConsole(opts.Stdout)
	logger := logging.New(opts.Stderr, cfg.Verbose)

	console.Banner()
	console.Detail("Watching directory", w.Root)
	console.Detail("Ignoring", strings.Join(w.IgnorePatterns, ", "))
	console.Detail("Watching file types", strings.Join(w.Extensions, ", "))
	console.Detail("Using model", w.Model+" ("+provider.Name()+")")

	source, err := watch.NewSource(watch.Options{
		Root:               w.Root,
		Ignore:             filter.Ignored,
		StabilityThreshold: w.StabilityThreshold,
		PollInterval:       w.PollInterval,
		ReportExisting:     w.ReportExisting,
	})
	if err != nil {
		return &config.Error{Field: "directory", Err: err}
	}
	coord, err := coordinator.New(coordinator.Options{
		Filter:     filter,
		Dispatcher: feedback.New(w, provider, console, logger),
		Reporter:   console,
		Window:     w.Debounce,
		Mode:       w.DebounceMode,
		Overlap:    w.Overlap,
		Logger:     logger,

		AcceptInitial: w.ReportExisting,
		OnReady: func() {
			console.Success("AI-Hedgehog is ready! Save a file to get feedback.")
		},
	})
	if err != nil {
		return err
	}

	console.Info("Performing initial scan...")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return source.Run(gctx) })
	g.Go(func() error { return coord.Run(gctx, source.Events()) })
	err = g.Wait()
	coord.Wait()
	if err != nil {
		console.Error("Watcher stopped", err)
		return err
	}
	console.Status("AI-Hedgehog stopped.")
	return nil
}
