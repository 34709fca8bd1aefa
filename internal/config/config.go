// Package config loads wizflow settings from flags, WIZFLOW_* environment
// variables and an optional YAML file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/petrijr/wizflow/pkg/api"
)

// EnvPrefix is prepended to every environment variable, e.g.
// WIZFLOW_STORE_DRIVER for store.driver.
const EnvPrefix = "WIZFLOW"

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMongo    = "mongo"
)

// Config is the full runtime configuration.
type Config struct {
	Store struct {
		Driver string `mapstructure:"driver"`
		// DSN is a file name or URI for sqlite, a connection string for
		// postgres, a redis:// URL or a mongodb:// URI.
		DSN      string `mapstructure:"dsn"`
		Database string `mapstructure:"database"` // mongo only
	} `mapstructure:"store"`

	HTTP struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"http"`

	Worker struct {
		Enabled     bool          `mapstructure:"enabled"`
		Concurrency int           `mapstructure:"concurrency"`
		MaxAttempts int           `mapstructure:"max_attempts"`
		Backoff     time.Duration `mapstructure:"backoff"`
	} `mapstructure:"worker"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"` // text or json
	} `mapstructure:"log"`

	// Users seeds the in-memory platform used by the standalone server.
	Users []User `mapstructure:"users"`
}

// User is a platform user as written in the config file.
type User struct {
	ID         string   `mapstructure:"id"`
	Username   string   `mapstructure:"username"`
	Name       string   `mapstructure:"name"`
	Email      string   `mapstructure:"email"`
	TrustLevel int      `mapstructure:"trust_level"`
	Admin      bool     `mapstructure:"admin"`
	Groups     []string `mapstructure:"groups"`
}

// Actor converts u.
func (u User) Actor() api.Actor {
	return api.Actor{
		ID:         u.ID,
		Username:   u.Username,
		Name:       u.Name,
		Email:      u.Email,
		TrustLevel: u.TrustLevel,
		Admin:      u.Admin,
		Groups:     append([]string(nil), u.Groups...),
	}
}

// Actors converts every configured user.
func (c *Config) Actors() []api.Actor {
	out := make([]api.Actor, 0, len(c.Users))
	for _, u := range c.Users {
		out = append(out, u.Actor())
	}
	return out
}

// flagKeys maps persistent flag names to config keys.
var flagKeys = map[string]string{
	"store":    "store.driver",
	"dsn":      "store.dsn",
	"database": "store.database",
	"addr":     "http.addr",
	"worker":   "worker.enabled",
	"workers":  "worker.concurrency",
	"log":      "log.level",
}

// RegisterFlags adds the flags Load understands to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (default ./wizflow.yaml if present)")
	fs.String("store", DriverMemory, "store driver: memory, sqlite, postgres, redis or mongo")
	fs.String("dsn", "", "store connection string")
	fs.String("database", "wizflow", "mongo database name")
	fs.String("addr", ":8080", "HTTP listen address")
	fs.Bool("worker", false, "run a worker for deferred submissions")
	fs.Int("workers", 1, "number of worker goroutines")
	fs.String("log", "info", "log level: debug, info, warn or error")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", DriverMemory)
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.database", "wizflow")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("worker.enabled", false)
	v.SetDefault("worker.concurrency", 1)
	v.SetDefault("worker.max_attempts", 3)
	v.SetDefault("worker.backoff", 100*time.Millisecond)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load builds a Config. fs may be nil; when it carries a non-empty
// --config flag that file must exist, otherwise wizflow.yaml in the working
// directory is read if present.
func Load(fs *pflag.FlagSet) (*Config, error) {
	return LoadFrom(afero.NewOsFs(), fs)
}

// LoadFrom is Load reading the config file from fsys.
func LoadFrom(fsys afero.Fs, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetFs(fsys)
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var file string
	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
		if f := fs.Lookup("config"); f != nil {
			file = f.Value.String()
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	} else {
		v.SetConfigName("wizflow")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks driver settings.
func (c *Config) Validate() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case DriverMemory, "":
		c.Store.Driver = DriverMemory
	case DriverSQLite, DriverPostgres, DriverRedis, DriverMongo:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the %s driver", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Worker.Concurrency <= 0 {
		c.Worker.Concurrency = 1
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json", "":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// NewLogger returns the slog.Logger described by the log section.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
