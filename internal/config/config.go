// Package config provides configuration for the missionlens service and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	mlerrors "github.com/missionlens/missionlens/internal/errors"
)

// EnvPrefix prefixes every environment variable read by LoadFromEnv.
const EnvPrefix = "MISSIONLENS_"

// Config holds the configuration for loading the dataset and serving it.
type Config struct {
	// DataPath is the missions source: .csv, .csv.sz or a SQLite database
	DataPath string `json:"data_path" yaml:"data_path"`

	// SQLiteTable is the table read from SQLite sources
	SQLiteTable string `json:"sqlite_table" yaml:"sqlite_table"`

	// MaxRowErrors caps the row errors kept in the load report
	MaxRowErrors int `json:"max_row_errors" yaml:"max_row_errors"`

	// HTTP configuration
	HTTP HTTPConfig `json:"http" yaml:"http"`

	// Explore request defaults and limits
	Explore ExploreConfig `json:"explore" yaml:"explore"`

	// Stats configuration
	Stats StatsConfig `json:"stats" yaml:"stats"`

	// Log configuration
	Log LogConfig `json:"log" yaml:"log"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	// Addr is the listen address
	Addr string `json:"addr" yaml:"addr"`

	// ReadTimeout is the HTTP read timeout
	ReadTimeout time.Duration `json:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the HTTP write timeout
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout is the HTTP idle timeout
	IdleTimeout time.Duration `json:"idle_timeout" yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// ExploreConfig holds defaults applied to explore requests.
type ExploreConfig struct {
	// DefaultTopN is used by ranking aggregates that do not set top_n
	DefaultTopN int `json:"default_top_n" yaml:"default_top_n"`

	// MaxRows caps the rows returned by one request, 0 for no cap
	MaxRows int `json:"max_rows" yaml:"max_rows"`
}

// StatsConfig holds filter usage tracking configuration.
type StatsConfig struct {
	// Window is how long an unused filter column stays in the stats
	Window time.Duration `json:"window" yaml:"window"`

	// PruneInterval is the interval between prunes
	PruneInterval time.Duration `json:"prune_interval" yaml:"prune_interval"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `json:"level" yaml:"level"`

	// Development switches to the human-readable console encoder
	Development bool `json:"development" yaml:"development"`
}

// DefaultConfig returns the default configuration for local use.
func DefaultConfig() *Config {
	return &Config{
		DataPath:     "./data/missions.csv",
		SQLiteTable:  "missions",
		MaxRowErrors: 100,
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Explore: ExploreConfig{
			DefaultTopN: 10,
			MaxRows:     1000,
		},
		Stats: StatsConfig{
			Window:        time.Hour,
			PruneInterval: 5 * time.Minute,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataPath == "" {
		return mlerrors.NewConfigError("data_path is required", nil)
	}
	if c.SQLiteTable == "" {
		return mlerrors.NewConfigError("sqlite_table is required", nil)
	}
	if c.MaxRowErrors < 0 {
		return mlerrors.NewConfigError(fmt.Sprintf("max_row_errors must be >= 0, got %d", c.MaxRowErrors), nil)
	}
	if c.HTTP.Addr == "" {
		return mlerrors.NewConfigError("http.addr is required", nil)
	}
	if c.HTTP.ReadTimeout < 0 || c.HTTP.WriteTimeout < 0 || c.HTTP.IdleTimeout < 0 || c.HTTP.ShutdownTimeout < 0 {
		return mlerrors.NewConfigError("http timeouts must not be negative", nil)
	}
	if c.Explore.DefaultTopN < 0 {
		return mlerrors.NewConfigError(fmt.Sprintf("explore.default_top_n must be >= 0, got %d", c.Explore.DefaultTopN), nil)
	}
	if c.Explore.MaxRows < 0 {
		return mlerrors.NewConfigError(fmt.Sprintf("explore.max_rows must be >= 0, got %d", c.Explore.MaxRows), nil)
	}
	if c.Stats.Window < 0 || c.Stats.PruneInterval < 0 {
		return mlerrors.NewConfigError("stats durations must not be negative", nil)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return mlerrors.NewConfigError(fmt.Sprintf("invalid log.level %q", c.Log.Level), err)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file on top of the
// defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, mlerrors.NewConfigError("failed to read config file", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, mlerrors.NewConfigError("failed to parse YAML config", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, mlerrors.NewConfigError("failed to parse JSON config", err)
		}
	default:
		return nil, mlerrors.NewConfigError(fmt.Sprintf("unsupported config file format: %s", ext), nil)
	}

	return cfg, nil
}

// LoadFromEnv overrides cfg with MISSIONLENS_* environment variables.
// Malformed numbers and durations are reported rather than ignored.
func LoadFromEnv(cfg *Config) error {
	env := envReader{}

	env.str("DATA_PATH", &cfg.DataPath)
	env.str("SQLITE_TABLE", &cfg.SQLiteTable)
	env.int("MAX_ROW_ERRORS", &cfg.MaxRowErrors)

	// HTTP configuration
	env.str("HTTP_ADDR", &cfg.HTTP.Addr)
	env.duration("HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout)
	env.duration("HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout)
	env.duration("HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout)
	env.duration("HTTP_SHUTDOWN_TIMEOUT", &cfg.HTTP.ShutdownTimeout)

	// Explore configuration
	env.int("EXPLORE_DEFAULT_TOP_N", &cfg.Explore.DefaultTopN)
	env.int("EXPLORE_MAX_ROWS", &cfg.Explore.MaxRows)

	// Stats configuration
	env.duration("STATS_WINDOW", &cfg.Stats.Window)
	env.duration("STATS_PRUNE_INTERVAL", &cfg.Stats.PruneInterval)

	// Log configuration
	env.str("LOG_LEVEL", &cfg.Log.Level)
	env.bool("LOG_DEVELOPMENT", &cfg.Log.Development)

	return env.err
}

// envReader records the first malformed variable it meets.
type envReader struct {
	err error
}

func (e *envReader) lookup(name string) (string, bool) {
	v := os.Getenv(EnvPrefix + name)
	return v, v != ""
}

func (e *envReader) fail(name, value string, cause error) {
	if e.err == nil {
		e.err = mlerrors.NewConfigError(fmt.Sprintf("invalid %s%s=%q", EnvPrefix, name, value), cause)
	}
}

func (e *envReader) str(name string, dst *string) {
	if v, ok := e.lookup(name); ok {
		*dst = v
	}
}

func (e *envReader) int(name string, dst *int) {
	if v, ok := e.lookup(name); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(name, v, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) duration(name string, dst *time.Duration) {
	if v, ok := e.lookup(name); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.fail(name, v, err)
			return
		}
		*dst = d
	}
}

func (e *envReader) bool(name string, dst *bool) {
	if v, ok := e.lookup(name); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(name, v, err)
			return
		}
		*dst = b
	}
}

// Load builds the effective configuration: defaults, then the file at path
// when path is non-empty, then the environment. The result is validated.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	if err := LoadFromEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
