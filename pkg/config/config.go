// Package config loads the pihole-api configuration the way the teacher
// loads its own: spf13/viper against a config file plus environment
// variable overrides, struct-tag validation with
// go-playground/validator/v10, and a typed Config tree mapped with
// mapstructure tags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// Config is the root pihole-api configuration tree.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (PIHOLE_API_*)
//  2. Configuration file (TOML)
//  3. Default values (lowest priority)
//
// Environment variables override only keys that the configuration file
// sets; when no configuration file is found, Load returns the defaults
// without consulting the environment.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging" toml:"logging" yaml:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" toml:"telemetry" yaml:"telemetry"`
	Server    ServerConfig    `mapstructure:"server" toml:"server" yaml:"server"`
	Metrics   MetricsConfig   `mapstructure:"metrics" toml:"metrics" yaml:"metrics"`
	Shm       ShmConfig       `mapstructure:"shm" toml:"shm" yaml:"shm"`
	Socket    SocketConfig    `mapstructure:"socket" toml:"socket" yaml:"socket"`
	Auth      AuthConfig      `mapstructure:"auth" toml:"auth" yaml:"auth"`
	Paths     PathsConfig     `mapstructure:"paths" toml:"paths" yaml:"paths"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level" toml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" toml:"format" validate:"required,oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" toml:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing and Pyroscope
// continuous profiling.
type TelemetryConfig struct {
	Enabled    bool            `mapstructure:"enabled" toml:"enabled" yaml:"enabled"`
	Endpoint   string          `mapstructure:"endpoint" toml:"endpoint" yaml:"endpoint"`
	Insecure   bool            `mapstructure:"insecure" toml:"insecure" yaml:"insecure"`
	SampleRate float64         `mapstructure:"sample_rate" toml:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`
	Profiling  ProfilingConfig `mapstructure:"profiling" toml:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled      bool     `mapstructure:"enabled" toml:"enabled" yaml:"enabled"`
	Endpoint     string   `mapstructure:"endpoint" toml:"endpoint" yaml:"endpoint"`
	ProfileTypes []string `mapstructure:"profile_types" toml:"profile_types" yaml:"profile_types"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Address         string        `mapstructure:"address" toml:"address" validate:"required" yaml:"address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" toml:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" toml:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" toml:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" toml:"idle_timeout" yaml:"idle_timeout"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" toml:"enabled" yaml:"enabled"`
	Address string `mapstructure:"address" toml:"address" yaml:"address"`
}

// ShmConfig locates and validates the FTL shared-memory segments.
type ShmConfig struct {
	// Dir is the directory mapped segments live under, normally /dev/shm.
	Dir string `mapstructure:"dir" toml:"dir" validate:"required" yaml:"dir"`

	// Prefix is the segment name prefix (e.g. "FTL-").
	Prefix string `mapstructure:"prefix" toml:"prefix" validate:"required" yaml:"prefix"`

	// ExpectedVersion is the shared-memory layout version this build
	// understands; a mismatched header aborts Open with a version error.
	ExpectedVersion int `mapstructure:"expected_version" toml:"expected_version" validate:"required,gt=0" yaml:"expected_version"`
}

// SocketConfig configures the FTL control-socket client.
type SocketConfig struct {
	Path        string        `mapstructure:"path" toml:"path" validate:"required" yaml:"path"`
	DialTimeout time.Duration `mapstructure:"dial_timeout" toml:"dial_timeout" validate:"required,gt=0" yaml:"dial_timeout"`
	ReadTimeout time.Duration `mapstructure:"read_timeout" toml:"read_timeout" validate:"required,gt=0" yaml:"read_timeout"`
	MaxAttempts uint          `mapstructure:"max_attempts" toml:"max_attempts" validate:"required,gt=0" yaml:"max_attempts"`
}

// AuthConfig configures bearer-token authentication for mutating routes.
type AuthConfig struct {
	// Key is the bearer token compared against X-Pi-hole-Authenticate.
	// Left empty, the key is instead read from KeyFile at startup.
	Key string `mapstructure:"key" toml:"key" yaml:"key"`

	// KeyFile is an alternative to Key: a file containing the bearer
	// token, read once at startup (e.g. a Kubernetes secret mount).
	KeyFile string `mapstructure:"key_file" toml:"key_file" yaml:"key_file"`
}

// PathsConfig locates the ancillary files the HTTP layer reads directly,
// outside of shared memory and the control socket.
type PathsConfig struct {
	// SetupVars is setupVars.conf, read for the API exclusion lists. The
	// admin password hash it may carry is not read; the bearer key comes
	// from the auth section.
	SetupVars string `mapstructure:"setup_vars" toml:"setup_vars" validate:"required" yaml:"setup_vars"`

	// ListsDir holds the allow/deny/wildcard flat files.
	ListsDir string `mapstructure:"lists_dir" toml:"lists_dir" validate:"required" yaml:"lists_dir"`

	// DnsmasqConfig is consulted by the degraded blocking-status
	// fallback when the control socket is unreachable.
	DnsmasqConfig string `mapstructure:"dnsmasq_config" toml:"dnsmasq_config" validate:"required" yaml:"dnsmasq_config"`
}

var validate = validator.New()

// Load loads configuration from file, environment, and defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := GetDefaultConfig()
	if !found {
		if err := Validate(cfg); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
		return cfg, nil
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// MustLoad loads configuration with helpful error messages when no
// configuration file can be found.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  pihole-api init\n\n"+
				"Or specify a custom config file:\n"+
				"  pihole-api <command> --config /path/to/config.toml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  pihole-api init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// Validate runs struct-tag validation over cfg.
func Validate(cfg *Config) error {
	return validate.Struct(cfg)
}

// SaveConfig saves the configuration to path in TOML format.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("PIHOLE_API")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("toml")
	}
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// getConfigDir returns the configuration directory path.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "pihole-api")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "pihole-api")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.toml")
}

// DefaultConfigExists reports whether a config file exists at the default
// location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for the
// init command).
func GetConfigDir() string {
	return getConfigDir()
}
