// Package config loads the process configuration from a YAML file and
// STDM_* environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/gltn/stdm/pkg/record"
)

// EnvPrefix prefixes every environment override: database.dsn is read from
// STDM_DATABASE_DSN.
const EnvPrefix = "STDM"

// Config is the process configuration.
type Config struct {
	Server   ServerConfig          `mapstructure:"server" yaml:"server"`
	Database record.DatabaseConfig `mapstructure:"database" yaml:"database"`
	Forms    FormsConfig           `mapstructure:"forms" yaml:"forms"`
	Log      LogConfig             `mapstructure:"log" yaml:"log"`
	Audit    AuditConfig           `mapstructure:"audit" yaml:"audit"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	AllowedOrigins  []string      `mapstructure:"allowedOrigins" yaml:"allowedOrigins"`
	ReadTimeout     time.Duration `mapstructure:"readTimeout" yaml:"readTimeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout" yaml:"shutdownTimeout"`
	// CacheTTL is how long form definition responses are cached. Zero
	// disables the cache.
	CacheTTL  time.Duration `mapstructure:"cacheTTL" yaml:"cacheTTL"`
	CacheSize int           `mapstructure:"cacheSize" yaml:"cacheSize"`
}

type FormsConfig struct {
	// Path is the form definition file, YAML or HCL.
	Path string `mapstructure:"path" yaml:"path"`
	// SchemaOverrides optionally names a schema override file.
	SchemaOverrides string `mapstructure:"schemaOverrides" yaml:"schemaOverrides"`
}

type AuditConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// RetentionDays is how long submission events are kept. Zero keeps them
	// forever.
	RetentionDays int `mapstructure:"retentionDays" yaml:"retentionDays"`
}

type LogConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			AllowedOrigins:  []string{"*"},
			ReadTimeout:     15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CacheTTL:        time.Minute,
			CacheSize:       128,
		},
		Database: record.DatabaseConfig{
			Driver:   record.DriverSQLite,
			DSN:      "stdm.db",
			LogLevel: "warn",
		},
		Forms: FormsConfig{
			Path: "forms.yaml",
		},
		Log: LogConfig{
			Level: "info",
		},
		Audit: AuditConfig{
			Enabled:       true,
			RetentionDays: 90,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.allowedOrigins", d.Server.AllowedOrigins)
	v.SetDefault("server.readTimeout", d.Server.ReadTimeout)
	v.SetDefault("server.shutdownTimeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.cacheTTL", d.Server.CacheTTL)
	v.SetDefault("server.cacheSize", d.Server.CacheSize)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.logLevel", d.Database.LogLevel)
	v.SetDefault("forms.path", d.Forms.Path)
	v.SetDefault("forms.schemaOverrides", d.Forms.SchemaOverrides)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)
	v.SetDefault("audit.enabled", d.Audit.Enabled)
	v.SetDefault("audit.retentionDays", d.Audit.RetentionDays)
}

// Load reads the configuration file at path, then applies environment
// overrides. An empty path reads only defaults and the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is empty"))
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("server.shutdownTimeout is negative"))
	}
	if c.Server.CacheTTL < 0 {
		errs = append(errs, errors.New("server.cacheTTL is negative"))
	}
	if c.Server.CacheTTL > 0 && c.Server.CacheSize < 1 {
		errs = append(errs, errors.New("server.cacheSize must be positive when caching"))
	}
	if c.Audit.RetentionDays < 0 {
		errs = append(errs, errors.New("audit.retentionDays is negative"))
	}
	switch strings.ToLower(c.Database.Driver) {
	case record.DriverSQLite, record.DriverMySQL, record.DriverPostgres, "postgresql":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}
	if c.Forms.Path == "" {
		errs = append(errs, errors.New("forms.path is empty"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Watch reloads the configuration whenever the file at path is written or
// replaced and passes the result to onChange. Files that fail to load are
// logged and skipped. Watching stops when ctx is done.
func Watch(ctx context.Context, path string, logger *slog.Logger, onChange func(*Config)) error {
	if logger == nil {
		logger = slog.Default()
	}
	return WatchFile(ctx, path, logger, func(abs string) {
		cfg, err := Load(abs)
		if err != nil {
			logger.Warn("config reload failed", "path", abs, "error", err)
			return
		}
		logger.Info("config reloaded", "path", abs)
		onChange(cfg)
	})
}

// WatchFile calls onChange with the absolute path of the file whenever it is
// written or replaced, until ctx is done.
func WatchFile(ctx context.Context, path string, logger *slog.Logger, onChange func(abs string)) error {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	// Watch the directory: editors and config mounts replace the file.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", path, err)
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				onChange(abs)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("file watch error", "path", abs, "error", err)
			}
		}
	}()
	return nil
}

// Follower keeps a single file watch and moves it when the watched path
// changes. Events from a path that is no longer followed are dropped.
type Follower struct {
	ctx      context.Context
	logger   *slog.Logger
	onChange func(abs string)

	mu     sync.Mutex
	path   string
	cancel context.CancelFunc
}

// NewFollower creates a Follower calling onChange until ctx is done.
func NewFollower(ctx context.Context, logger *slog.Logger, onChange func(abs string)) *Follower {
	if logger == nil {
		logger = slog.Default()
	}
	return &Follower{ctx: ctx, logger: logger, onChange: onChange}
}

// Follow stops watching the current file and starts watching path. Following
// the current path again is a no-op.
func (f *Follower) Follow(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("follow %s: %w", path, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if abs == f.path && f.cancel != nil {
		return nil
	}
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.path = abs

	ctx, cancel := context.WithCancel(f.ctx)
	if err := WatchFile(ctx, abs, f.logger, f.deliver); err != nil {
		cancel()
		return err
	}
	f.cancel = cancel
	return nil
}

// Path returns the absolute path being followed.
func (f *Follower) Path() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.path
}

func (f *Follower) deliver(abs string) {
	if abs != f.Path() {
		return
	}
	f.onChange(abs)
}
