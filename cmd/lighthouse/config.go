package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Build    BuildConfig    `mapstructure:"build"`
	Database DatabaseConfig `mapstructure:"database"`
	Docker   DockerConfig   `mapstructure:"docker"`
	Volumes  VolumesConfig  `mapstructure:"volumes"`
	Proxy    ProxyConfig    `mapstructure:"proxy"`
	Log      LogConfig      `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
}

// BuildConfig holds image naming configuration.
type BuildConfig struct {
	// Org is the organization images are tagged under (org/basename).
	Org string `mapstructure:"org"`
	// Descriptor is the deployment descriptor file name in a source tree.
	Descriptor string `mapstructure:"descriptor"`
}

// DatabaseConfig holds registry database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// DockerConfig holds Docker client configuration.
type DockerConfig struct {
	Host         string        `mapstructure:"host"`
	Timeout      time.Duration `mapstructure:"timeout"`
	BuildTimeout time.Duration `mapstructure:"build_timeout"` // 0 means no limit
	StopTimeout  time.Duration `mapstructure:"stop_timeout"`
}

// VolumesConfig holds host volume allocation configuration.
type VolumesConfig struct {
	Root string `mapstructure:"root"`
}

// ProxyConfig holds reverse proxy publishing configuration.
type ProxyConfig struct {
	// Output is the default proxy config path. Empty disables publishing
	// unless a command asks for it.
	Output        string        `mapstructure:"output"`
	ReloadCommand string        `mapstructure:"reload_command"`
	ReloadTimeout time.Duration `mapstructure:"reload_timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds HTTP API configuration.
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("build.org", "lighthouse")
	v.SetDefault("build.descriptor", "deploy.yaml")
	v.SetDefault("database.path", "./data/lighthouse.db")
	v.SetDefault("docker.host", "")
	v.SetDefault("docker.timeout", "30s")
	v.SetDefault("docker.build_timeout", "0s")
	v.SetDefault("docker.stop_timeout", "10s")
	v.SetDefault("volumes.root", "./data/volumes")
	v.SetDefault("proxy.output", "")
	v.SetDefault("proxy.reload_command", "nginx -s reload")
	v.SetDefault("proxy.reload_timeout", "30s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("server.address", "127.0.0.1:3000")
	v.SetDefault("server.shutdown_timeout", "30s")

	// An explicitly named file must exist and parse.
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("LIGHTHOUSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Build.Org) == "" {
		errs = append(errs, errors.New("build.org is required"))
	}
	if c.Build.Descriptor == "" {
		errs = append(errs, errors.New("build.descriptor is required"))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Docker.Timeout <= 0 {
		errs = append(errs, errors.New("docker.timeout must be positive"))
	}
	if c.Docker.BuildTimeout < 0 {
		errs = append(errs, errors.New("docker.build_timeout must not be negative"))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log format %q", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format. Logs go
// to stderr so command output on stdout stays clean.
func SetupLogger(cfg LogConfig, debug bool) *slog.Logger {
	level, _ := parseLevel(cfg.Level)
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q", level)
	}
}
