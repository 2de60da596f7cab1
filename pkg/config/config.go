// Package config loads taskgraph configuration from TOML or YAML files.
//
// The format is chosen by file extension (.toml, .yaml, .yml). Missing
// fields take defaults, so an empty file is a valid configuration:
//
//	[policy]
//	max_dependency_depth = 10
//	max_dependencies_per_task = 20
//	allow_cross_project = false
//	require_same_owner = false
//
//	[layout]
//	row_spacing = 120
//
//	[store]
//	driver = "sqlite"
//	dsn = "taskgraph.db"
//
//	[cache]
//	backend = "redis"
//	url = "redis://localhost:6379/0"
//
//	[server]
//	addr = ":8080"
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/taskgraph/pkg/errors"
	"github.com/matzehuels/taskgraph/pkg/layout"
	"github.com/matzehuels/taskgraph/pkg/rules"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Cache backends.
const (
	CacheNone  = "none"
	CacheFile  = "file"
	CacheRedis = "redis"
)

// Config is the complete application configuration.
type Config struct {
	Policy rules.Policy   `toml:"policy" yaml:"policy"`
	Layout layout.Options `toml:"layout" yaml:"layout"`
	Store  StoreConfig    `toml:"store" yaml:"store"`
	Cache  CacheConfig    `toml:"cache" yaml:"cache"`
	Server ServerConfig   `toml:"server" yaml:"server"`
	Log    LogConfig      `toml:"log" yaml:"log"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver   string `toml:"driver" yaml:"driver"`     // memory, sqlite or mongo
	DSN      string `toml:"dsn" yaml:"dsn"`           // sqlite file or mongodb:// URI
	Database string `toml:"database" yaml:"database"` // mongo database name
}

// CacheConfig selects the view cache backend.
type CacheConfig struct {
	Backend string        `toml:"backend" yaml:"backend"` // none, file or redis
	Dir     string        `toml:"dir" yaml:"dir"`         // file backend; empty means the user cache dir
	URL     string        `toml:"url" yaml:"url"`         // redis backend
	Prefix  string        `toml:"prefix" yaml:"prefix"`   // key namespace
	TTL     time.Duration `toml:"ttl" yaml:"ttl"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `toml:"addr" yaml:"addr"`
	ReadTimeout     time.Duration `toml:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level" yaml:"level"` // debug, info, warn, error
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var c Config
	c.SetDefaults()
	return c
}

// SetDefaults fills every zero field with its default.
func (c *Config) SetDefaults() {
	c.Policy = c.Policy.WithDefaults()
	c.Layout = c.Layout.WithDefaults()

	if c.Store.Driver == "" {
		c.Store.Driver = DriverMemory
	}
	if c.Store.Driver == DriverMongo && c.Store.Database == "" {
		c.Store.Database = "taskgraph"
	}

	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheFile
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = 24 * time.Hour
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 5 * time.Second
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate reports the first invalid setting as an INVALID_CONFIG error.
func (c *Config) Validate() error {
	if err := c.Policy.Validate(); err != nil {
		return err
	}
	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite, DriverMongo:
		if c.Store.DSN == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "store driver %q requires a dsn", c.Store.Driver)
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown store driver %q", c.Store.Driver)
	}
	switch c.Cache.Backend {
	case CacheNone, CacheFile:
	case CacheRedis:
		if c.Cache.URL == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "redis cache requires a url")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown log level %q", c.Log.Level)
	}
	return nil
}

// Load reads, defaults and validates the configuration file at path.
func Load(path string) (Config, error) {
	var c Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.DecodeFile(path, &c); err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", path)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", path)
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
		}
	default:
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "unsupported config format %q (want .toml, .yaml or .yml)", ext)
	}

	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
