// Package config loads planner configuration.
//
// Values are layered, lowest precedence first: built-in defaults, an optional
// config file (YAML or TOML), a .env file in the working directory, PLANNER_*
// environment variables, and finally any bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. PLANNER_DATA_DIR.
const EnvPrefix = "PLANNER"

// Config is the resolved application configuration.
type Config struct {
	// DataDir holds the SQLite database, the mirror directory and logs.
	DataDir string `mapstructure:"data_dir"`

	Store    StoreConfig    `mapstructure:"store"`
	Remote   RemoteConfig   `mapstructure:"remote"`
	Autosave AutosaveConfig `mapstructure:"autosave"`
	AI       AIConfig       `mapstructure:"ai"`
	Mirror   MirrorConfig   `mapstructure:"mirror"`
	Log      LogConfig      `mapstructure:"log"`
}

// StoreConfig selects the document store backend.
type StoreConfig struct {
	// DSN is a SQLite file path or a postgres:// URL.
	// Empty means <data_dir>/planner.db.
	DSN string `mapstructure:"dsn"`

	// WatchExternal enables picking up writes made by other processes.
	WatchExternal bool `mapstructure:"watch_external"`
}

// RemoteConfig configures the document-store server and client.
type RemoteConfig struct {
	// URL of a planner server. When set, the client talks to it instead of
	// opening a local store.
	URL string `mapstructure:"url"`

	// Port is the listening port for `planner serve`.
	Port int `mapstructure:"port"`

	// Timeout bounds each HTTP request made by the client.
	Timeout time.Duration `mapstructure:"timeout"`
}

// AutosaveConfig configures the draft autosaver.
type AutosaveConfig struct {
	Delay time.Duration `mapstructure:"delay"`
}

// AIConfig configures the text-completion service.
type AIConfig struct {
	// Provider is "anthropic", "openai" (any OpenAI-compatible endpoint such
	// as Groq) or "none".
	Provider string        `mapstructure:"provider"`
	Model    string        `mapstructure:"model"`
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"` // empty selects the provider default
	Timeout  time.Duration `mapstructure:"timeout"`
}

// MirrorConfig configures the local mirror store.
type MirrorConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes"`
}

// LogConfig configures logging.
type LogConfig struct {
	Debug bool   `mapstructure:"debug"`
	File  string `mapstructure:"file"`
}

// DBPath returns the SQLite path used when Store.DSN is empty.
func (c *Config) DBPath() string {
	if c.Store.DSN != "" {
		return c.Store.DSN
	}
	return filepath.Join(c.DataDir, "planner.db")
}

// MirrorDir returns the directory backing the local mirror store.
func (c *Config) MirrorDir() string {
	return filepath.Join(c.DataDir, "mirror")
}

// LogFile returns the log file path.
func (c *Config) LogFile() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(c.DataDir, "logs", "planner.log")
}

// Validate checks the resolved values.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data_dir is required")
	}
	if c.Autosave.Delay <= 0 {
		return fmt.Errorf("autosave.delay must be positive (got %s)", c.Autosave.Delay)
	}
	if c.Remote.Port < 0 || c.Remote.Port > 65535 {
		return fmt.Errorf("remote.port must be between 0 and 65535 (got %d)", c.Remote.Port)
	}
	switch c.AI.Provider {
	case "anthropic", "openai", "none":
	default:
		return fmt.Errorf("ai.provider must be anthropic, openai or none (got %q)", c.AI.Provider)
	}
	if c.Mirror.MaxBytes <= 0 {
		return fmt.Errorf("mirror.max_bytes must be positive (got %d)", c.Mirror.MaxBytes)
	}
	return nil
}

// DefaultDataDir returns the per-user data directory.
func DefaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "planner")
	}
	return ".planner"
}

// SetDefaults registers built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.watch_external", true)
	v.SetDefault("remote.url", "")
	v.SetDefault("remote.port", 8080)
	v.SetDefault("remote.timeout", 10*time.Second)
	v.SetDefault("autosave.delay", time.Second)
	v.SetDefault("ai.provider", "none")
	v.SetDefault("ai.model", "")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.timeout", 30*time.Second)
	v.SetDefault("mirror.max_bytes", int64(5<<20))
	v.SetDefault("log.debug", false)
	v.SetDefault("log.file", "")
}

// Load resolves configuration. configFile may be empty, in which case
// planner.yaml / planner.toml are looked up in the data directory and the
// working directory. flags may be nil.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("planner")
		v.AddConfigPath(".")
		v.AddConfigPath(v.GetString("data_dir"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"data-dir":    "data_dir",
	"debug":       "log.debug",
	"remote":      "remote.url",
	"port":        "remote.port",
	"dsn":         "store.dsn",
	"ai-provider": "ai.provider",
	"ai-model":    "ai.model",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}
