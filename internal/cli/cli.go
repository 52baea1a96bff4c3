package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/engrave/pkg/buildinfo"
	"github.com/matzehuels/engrave/pkg/cache"
	"github.com/matzehuels/engrave/pkg/config"
	"github.com/matzehuels/engrave/pkg/fonts"
	"github.com/matzehuels/engrave/pkg/observability"
	"github.com/matzehuels/engrave/pkg/pipeline"
	"github.com/matzehuels/engrave/pkg/storage"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "engrave"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// ui carries status lines to the command's output streams.
	ui *console

	// Config is loaded before any command runs. Flags override it.
	Config     config.Config
	configPath string
}

// New creates a CLI with a default logger and the built-in configuration.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		ui:     newConsole(os.Stdout, os.Stderr),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "engrave",
		Short: "Engrave lays out and renders music notation",
		Long: `Engrave turns text notation or MIDI files into engraved staves: notes,
chords, rests, clefs and key signatures laid out on a single staff that wraps
into rows, rendered as SVG, PNG, PDF or JSON.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c.ui = newConsole(cmd.OutOrStdout(), cmd.ErrOrStderr())
			c.installHooks()
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: ./engrave.toml or ~/.config/engrave/config.toml)")

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.visualizeCommand())
	root.AddCommand(c.importCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.scoresCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the config file named by --config, or the first one
// found by [config.Find].
func (c *CLI) loadConfig() error {
	path := c.configPath
	if path == "" {
		path = config.Find()
	}
	if path == "" {
		return nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	c.Config = cfg
	c.Logger.Debug("loaded config", "path", path)
	return nil
}

// installHooks routes pipeline, cache and HTTP events to the logger when
// debug logging is on.
func (c *CLI) installHooks() {
	if c.Logger.GetLevel() > log.DebugLevel {
		observability.Reset()
		return
	}
	h := observability.NewLogHooks(c.Logger)
	observability.SetPipelineHooks(h)
	observability.SetCacheHooks(h)
	observability.SetHTTPHooks(h)
}

// =============================================================================
// Backends
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cc, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cc, nil, c.Logger), nil
}

// newCache opens the configured cache backend.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	cfg := c.Config.Cache
	ttl, err := cfg.Lifetime()
	if err != nil {
		return nil, err
	}

	var cc cache.Cache
	switch {
	case noCache || cfg.Backend == config.BackendNone:
		return cache.NewNullCache(), nil
	case cfg.Backend == config.BackendRedis:
		cc, err = cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.Prefix,
		})
	default:
		dir := cfg.Dir
		if dir == "" {
			if dir, err = cacheDir(); err != nil {
				c.Logger.Warn("no cache directory, caching disabled", "error", err)
				return cache.NewNullCache(), nil
			}
		}
		cc, err = cache.NewFileCache(dir)
	}
	if err != nil {
		return nil, err
	}
	return cache.WithTTL(cc, ttl), nil
}

// newStore opens the configured document store.
func (c *CLI) newStore(ctx context.Context) (storage.Store, error) {
	cfg := c.Config.Store
	switch cfg.Backend {
	case config.BackendMongo:
		return storage.NewMongoStore(ctx, storage.MongoOptions{
			URI:        cfg.MongoURI,
			Database:   cfg.Database,
			Collection: cfg.Collection,
		})
	case config.BackendMemory:
		return storage.NewMemoryStore(), nil
	default:
		dir := cfg.Dir
		if dir == "" {
			d, err := dataDir()
			if err != nil {
				return nil, fmt.Errorf("get data dir: %w", err)
			}
			dir = filepath.Join(d, "scores")
		}
		return storage.NewFileStore(dir)
	}
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/engrave/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// dataDir returns the data directory using XDG standard (~/.local/share/engrave/).
func dataDir() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// layoutFlags are the flags shared by commands that lay out a score.
type layoutFlags struct {
	policy  string
	font    string
	width   float64
	spacing float64
	noCache bool
	track   int
	grid    string
	clef    string
	key     string
	srcFmt  string
}

func (f *layoutFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.policy, "policy", "", "invalid event policy: skip (default), placeholder, fail")
	cmd.Flags().StringVar(&f.font, "font", "", "SMuFL font file (.otf/.ttf) for metrics and outlines")
	cmd.Flags().Float64Var(&f.width, "width", 0, "staff width in pixels")
	cmd.Flags().Float64Var(&f.spacing, "row-spacing", 0, "vertical distance between rows")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
	cmd.Flags().StringVar(&f.srcFmt, "from", "", "source format: text, midi (default: detect)")
	cmd.Flags().IntVar(&f.track, "track", 0, "MIDI track number from 1 (default: first with notes)")
	cmd.Flags().StringVar(&f.grid, "grid", "", "MIDI quantization grid, e.g. 16 or eighth")
	cmd.Flags().StringVar(&f.clef, "clef", "", "MIDI clef: treble, bass, alto (default: by range)")
	cmd.Flags().StringVar(&f.key, "key", "", "MIDI key signature, e.g. 2# or 3b")
}

// options builds pipeline options from the config, then the flags.
func (c *CLI) options(f *layoutFlags) (pipeline.Options, error) {
	cfg := c.Config
	opts := pipeline.Options{
		SourceFormat: f.srcFmt,
		Track:        f.track,
		Grid:         f.grid,
		Clef:         f.clef,
		Key:          f.key,
		Renderer:     cfg.Renderer,
		Policy:       cfg.Layout.Policy,
		Formats:      cfg.Render.Formats,
		Outlines:     cfg.Render.Outlines,
		Background:   cfg.Render.Background,
		Scale:        cfg.Render.Scale,
		Logger:       c.Logger,
	}
	if f.policy != "" {
		opts.Policy = f.policy
	}
	if f.width > 0 {
		opts.Renderer.StaffWidth = f.width
	}
	if f.spacing > 0 {
		opts.Renderer.RowSpacing = f.spacing
	}

	fontPath := cfg.Layout.Font
	if f.font != "" {
		fontPath = f.font
	}
	if fontPath != "" {
		font, err := fonts.Load(fontPath)
		if err != nil {
			return opts, fmt.Errorf("load font: %w", err)
		}
		opts.Font = font
		c.Logger.Debug("loaded font", "family", font.Family(), "format", font.Format())
	}
	return opts, nil
}

// readSource loads a score file into opts.
func readSource(path string, opts *pipeline.Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	opts.Source = data
	opts.Filename = filepath.Base(path)
	return nil
}

// parseFormats parses a comma-separated format string into a slice.
// An empty string keeps the configured formats.
func parseFormats(s string, fallback []string) []string {
	if s == "" {
		if len(fallback) == 0 {
			return []string{pipeline.FormatSVG}
		}
		return fallback
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
