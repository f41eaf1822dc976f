package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "CRASHGATE"

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	DB        DBConfig        `mapstructure:"db"`
	Log       LogConfig       `mapstructure:"log"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuthConfig describes the bootstrap operator and token signing.
type AuthConfig struct {
	Username   string        `mapstructure:"username"`
	Password   string        `mapstructure:"password"`
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

// TelemetryConfig configures the capture pipeline and the remote client.
type TelemetryConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	DSN             string        `mapstructure:"dsn"`
	Timeout         time.Duration `mapstructure:"timeout"`
	Compress        bool          `mapstructure:"compress"`
	MaxBreadcrumbs  int           `mapstructure:"max_breadcrumbs"`
	BreadcrumbLevel string        `mapstructure:"breadcrumb_level"`

	SuppressNoise      bool          `mapstructure:"suppress_noise"`
	DebounceWindow     time.Duration `mapstructure:"debounce_window"`
	MaxDebounceEntries int           `mapstructure:"max_debounce_entries"`

	Release     string `mapstructure:"release"`
	Environment string `mapstructure:"environment"`
	Branch      string `mapstructure:"branch"`
	Version     string `mapstructure:"version"`
	Culture     string `mapstructure:"culture"`

	OSNameEnv         string `mapstructure:"os_name_env"`
	OSVersionEnv      string `mapstructure:"os_version_env"`
	RuntimeVersionEnv string `mapstructure:"runtime_version_env"`

	DeniedStorageCodes []string `mapstructure:"denied_storage_codes"`
	DeniedTypes        []string `mapstructure:"denied_types"`
	DeniedMessages     []string `mapstructure:"denied_messages"`
}

var (
	ErrMissingSigningKey = errors.New("auth.signing_key must be set")
	ErrInvalidWindow     = errors.New("telemetry.debounce_window must be positive")
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("db.path", "crashgate.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("auth.username", "admin")
	v.SetDefault("auth.password", "")
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", time.Hour)

	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.dsn", "")
	v.SetDefault("telemetry.timeout", 10*time.Second)
	v.SetDefault("telemetry.compress", true)
	v.SetDefault("telemetry.max_breadcrumbs", 100)
	v.SetDefault("telemetry.breadcrumb_level", "info")
	v.SetDefault("telemetry.suppress_noise", true)
	v.SetDefault("telemetry.debounce_window", 60*time.Second)
	v.SetDefault("telemetry.max_debounce_entries", 10000)
	v.SetDefault("telemetry.release", "")
	v.SetDefault("telemetry.environment", "production")
	v.SetDefault("telemetry.branch", "")
	v.SetDefault("telemetry.version", "")
	v.SetDefault("telemetry.culture", "")
	v.SetDefault("telemetry.os_name_env", "OS_NAME")
	v.SetDefault("telemetry.os_version_env", "OS_VERSION")
	v.SetDefault("telemetry.runtime_version_env", "RUNTIME_VERSION")
	v.SetDefault("telemetry.denied_storage_codes", []string{
		"Busy", "Locked", "Perm", "ReadOnly", "IoErr", "Corrupt", "Full", "CantOpen", "Auth",
	})
	v.SetDefault("telemetry.denied_types", []string{"UnauthorizedAccessException", "CorruptDatabaseException"})
	v.SetDefault("telemetry.denied_messages", []string{
		"Lucene.Net.Store", "Jackett.Common.IndexerException", "is misconfigured (",
	})
}

// NewFlagSet declares the command-line flags Load understands.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "path to config file (default configs/config.yml)")
	fs.String("port", "", "HTTP listen port")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	return fs
}

// Load parses args and merges defaults, the config file, CRASHGATE_* env vars and flags,
// in increasing order of precedence.
func Load(args []string) (*Config, error) {
	fs := NewFlagSet("crashgate")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	path, _ := fs.GetString("config")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs") // configs/config.yml
		v.SetConfigName("config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlag("server.port", fs.Lookup("port")); err != nil {
		return nil, fmt.Errorf("bind port flag: %w", err)
	}
	if err := v.BindPFlag("log.level", fs.Lookup("log-level")); err != nil {
		return nil, fmt.Errorf("bind log-level flag: %w", err)
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

// Validate checks the settings the application cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.SigningKey) == "" {
		return ErrMissingSigningKey
	}
	if c.Telemetry.DebounceWindow <= 0 {
		return ErrInvalidWindow
	}
	return nil
}
