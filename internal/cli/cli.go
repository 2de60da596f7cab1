// Package cli implements the taskgraph command-line interface.
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

	"github.com/matzehuels/taskgraph/pkg/buildinfo"
	"github.com/matzehuels/taskgraph/pkg/cache"
	"github.com/matzehuels/taskgraph/pkg/config"
	"github.com/matzehuels/taskgraph/pkg/pipeline"
	"github.com/matzehuels/taskgraph/pkg/rules"
	"github.com/matzehuels/taskgraph/pkg/store"
	"github.com/matzehuels/taskgraph/pkg/store/mongo"
	"github.com/matzehuels/taskgraph/pkg/store/sqlite"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "taskgraph"

	// configEnv names the environment variable consulted when --config is
	// not given.
	configEnv = "TASKGRAPH_CONFIG"
)

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

	configPath string
	cfg        config.Config
}

// New creates a new CLI instance with a default logger and the default
// configuration.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		cfg:    config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// Config returns the active configuration.
func (c *CLI) Config() config.Config { return c.cfg }

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "taskgraph",
		Short: "Taskgraph validates and visualizes task dependency graphs",
		Long: `Taskgraph keeps task dependency graphs acyclic and within policy limits.

It validates proposed dependencies, assigns execution levels, finds the
critical path, audits stored projects and renders them as DOT or SVG.
Projects are read from graph JSON files or from the configured store.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.loadConfig(); err != nil {
				return err
			}
			c.registerHooks()
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (.toml or .yaml; default $"+configEnv+")")

	root.AddCommand(c.validateCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.criticalCommand())
	root.AddCommand(c.statsCommand())
	root.AddCommand(c.scanCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.importCommand())
	root.AddCommand(c.editCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the config file named by --config or $TASKGRAPH_CONFIG.
// The file's log level applies unless verbose logging is already on.
func (c *CLI) loadConfig() error {
	path := c.configPath
	if path == "" {
		path = os.Getenv(configEnv)
	}
	if path == "" {
		return nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	c.cfg = cfg
	if c.Logger.GetLevel() != log.DebugLevel {
		if level, err := log.ParseLevel(cfg.Log.Level); err == nil {
			c.Logger.SetLevel(level)
		}
	}
	c.Logger.Debug("loaded config", "path", path, "store", cfg.Store.Driver, "cache", cfg.Cache.Backend)
	return nil
}

// =============================================================================
// Factories
// =============================================================================

// newEngine creates a rule engine for the configured policy.
func (c *CLI) newEngine() *rules.Engine {
	return rules.New(c.cfg.Policy)
}

// newRunner creates a pipeline runner backed by the configured cache.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cc := c.cfg.Cache
	if noCache {
		cc.Backend = config.CacheNone
	}
	ch, err := newCache(ctx, cc)
	if err != nil {
		return nil, err
	}
	var keyer cache.Keyer
	if cc.Prefix != "" {
		keyer = cache.NewScopedKeyer(cache.NewDefaultKeyer(), cc.Prefix)
	}
	r := pipeline.NewRunner(ch, keyer, c.Logger)
	r.ViewTTL = cc.TTL
	return r, nil
}

// newCache opens the cache backend. A file cache whose directory cannot
// be resolved degrades to no caching.
func newCache(ctx context.Context, cc config.CacheConfig) (cache.Cache, error) {
	switch cc.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, cc.URL)
	default:
		dir := cc.Dir
		if dir == "" {
			var err error
			if dir, err = cacheDir(); err != nil {
				return cache.NewNullCache(), nil
			}
		}
		return cache.NewFileCache(dir)
	}
}

// openStore opens the configured persistence backend.
func (c *CLI) openStore(ctx context.Context) (store.Store, error) {
	sc := c.cfg.Store
	c.Logger.Debug("opening store", "driver", sc.Driver)
	switch sc.Driver {
	case config.DriverSQLite:
		return sqlite.Open(ctx, sc.DSN)
	case config.DriverMongo:
		return mongo.Open(ctx, sc.DSN, sc.Database)
	default:
		return store.NewMemory(), nil
	}
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/taskgraph/).
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

// outputBase derives the default output path prefix for an input: the
// graph file without its extension, or the project ID.
func outputBase(input, projectID string) string {
	if strings.HasSuffix(input, viewSuffix) {
		return strings.TrimSuffix(input, viewSuffix)
	}
	if input != "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	return projectID
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// exitError reports a failed check whose details were already printed.
type exitError struct{ msg string }

func (e exitError) Error() string { return e.msg }

func failed(format string, args ...any) error {
	return exitError{msg: fmt.Sprintf(format, args...)}
}
