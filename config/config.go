// Package config loads the server configuration with koanf, layered as
// struct defaults, then an optional YAML file, then environment
// variables (EXAMWATCH_ prefix). Precedence: env > file > defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// envPrefix namespaces the environment overrides,
// e.g. EXAMWATCH_TIMEOUT=20s, EXAMWATCH_LISTEN_PORT=9000.
const envPrefix = "EXAMWATCH_"

// DefaultConfigPaths lists where a config file is searched, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/examwatch/config.yaml",
}

// Config holds every tunable of the exam monitor.
type Config struct {
	// ProbeInterval is the monitor tick period. It must not exceed half
	// the liveness timeout, or a single missed tick can produce a false
	// offline transition.
	ProbeInterval time.Duration `koanf:"probe_interval" validate:"required,min=1s"`

	// Timeout is the liveness window: a client with no heartbeat for
	// longer than this is offline.
	Timeout time.Duration `koanf:"timeout" validate:"required,min=1s"`

	// MinOffline filters offline intervals shorter than this out of the
	// report; normal network jitter should not show up as an absence.
	MinOffline time.Duration `koanf:"min_offline" validate:"required"`

	// ExamDuration bounds the report window. The final timeline segment
	// of every student runs to first record + ExamDuration.
	ExamDuration time.Duration `koanf:"exam_duration" validate:"required"`

	ListenAddress string `koanf:"listen_address" validate:"required"`
	ListenPort    int    `koanf:"listen_port" validate:"gte=1,lte=65535"`

	// LogFile is the transition log path. Truncated on startup: exam
	// runs are independent and keep no cross-run history.
	LogFile string `koanf:"log_file" validate:"required"`

	LogLevel  string `koanf:"log_level" validate:"oneof=trace debug info warn error"`
	LogFormat string `koanf:"log_format" validate:"oneof=console json"`
}

// Default returns the built-in defaults, matching the timings the exam
// monitor has been run with.
func Default() *Config {
	return &Config{
		ProbeInterval: 5 * time.Second,
		Timeout:       12 * time.Second,
		MinOffline:    30 * time.Second,
		ExamDuration:  4 * time.Hour,
		ListenAddress: "0.0.0.0",
		ListenPort:    8000,
		LogFile:       "student_log.txt",
		LogLevel:      "info",
		LogFormat:     "console",
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// the environment, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks field constraints and the cross-field invariants the
// struct tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.ProbeInterval > c.Timeout/2 {
		return fmt.Errorf("probe_interval (%v) must be at most half of timeout (%v)",
			c.ProbeInterval, c.Timeout)
	}
	if c.MinOffline <= 0 {
		return fmt.Errorf("min_offline must be positive, got %v", c.MinOffline)
	}
	if c.ExamDuration <= 0 {
		return fmt.Errorf("exam_duration must be positive, got %v", c.ExamDuration)
	}

	return nil
}

// ListenAddr is the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ListenAddress, c.ListenPort)
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}
