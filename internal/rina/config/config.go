// Package config loads and validates the ipcpd daemon's static
// configuration: DIF identity, underlay bind address, address pool
// range, enrolment parameters, and the ambient logging/telemetry/
// metrics/persistence/admin-API settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for one ipcpd instance.
//
// Precedence, highest to lowest:
//  1. Environment variables (IPCPD_*)
//  2. Configuration file (YAML)
//  3. Default values
type Config struct {
	IPCP        IPCPConfig        `mapstructure:"ipcp" yaml:"ipcp"`
	AddressPool AddressPoolConfig `mapstructure:"address_pool" yaml:"address_pool"`
	Enrolment   EnrolmentConfig   `mapstructure:"enrolment" yaml:"enrolment"`
	Shim        ShimConfig        `mapstructure:"shim" yaml:"shim"`

	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry" yaml:"telemetry"`
	Metrics     MetricsConfig     `mapstructure:"metrics" yaml:"metrics"`
	AdminAPI    AdminAPIConfig    `mapstructure:"admin_api" yaml:"admin_api"`
	Persistence PersistenceConfig `mapstructure:"persistence" yaml:"persistence"`
	Snapshot    SnapshotConfig    `mapstructure:"snapshot" yaml:"snapshot"`

	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
}

// IPCPConfig identifies this IPC Process and the DIF it joins.
type IPCPConfig struct {
	Name        string `mapstructure:"name" validate:"required" yaml:"name"`
	DIFName     string `mapstructure:"dif_name" validate:"required" yaml:"dif_name"`
	Bootstrap   bool   `mapstructure:"bootstrap" yaml:"bootstrap"`
	LocalAddr   uint64 `mapstructure:"local_addr" yaml:"local_addr,omitempty"`
	BootstrapTo string `mapstructure:"bootstrap_to" yaml:"bootstrap_to,omitempty"`
}

// AddressPoolConfig bounds the range the bootstrap IPCP allocates
// member addresses from. Ignored on non-bootstrap IPCPs.
type AddressPoolConfig struct {
	Start uint64 `mapstructure:"start" yaml:"start"`
	End   uint64 `mapstructure:"end" validate:"omitempty,gtefield=Start" yaml:"end"`
}

// EnrolmentConfig bounds retry and liveness behaviour for the member-side
// phase machine and the member-side connection monitor.
type EnrolmentConfig struct {
	TimeoutSecs           int `mapstructure:"timeout_secs" yaml:"timeout_secs"`
	MaxRetries            int `mapstructure:"max_retries" yaml:"max_retries"`
	InitialBackoffMs      int `mapstructure:"initial_backoff_ms" yaml:"initial_backoff_ms"`
	HeartbeatIntervalSecs int `mapstructure:"heartbeat_interval_secs" yaml:"heartbeat_interval_secs"`
	ConnectionTimeoutSecs int `mapstructure:"connection_timeout_secs" yaml:"connection_timeout_secs"`
	RibSyncIntervalSecs   int `mapstructure:"rib_sync_interval_secs" yaml:"rib_sync_interval_secs"`
}

// ShimConfig configures the UDP underlay.
type ShimConfig struct {
	ListenAddr string `mapstructure:"listen_addr" validate:"required" yaml:"listen_addr"`
}

// LoggingConfig controls logging behaviour.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry tracing and Pyroscope profiling.
type TelemetryConfig struct {
	Enabled    bool            `mapstructure:"enabled" yaml:"enabled"`
	Endpoint   string          `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure   bool            `mapstructure:"insecure" yaml:"insecure"`
	SampleRate float64         `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`
	Profiling  ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled  bool     `mapstructure:"enabled" yaml:"enabled"`
	Endpoint string   `mapstructure:"endpoint" yaml:"endpoint"`
	// ProfileTypes selects which Pyroscope profile types to collect.
	// Valid values: cpu, alloc_objects, alloc_space, inuse_objects,
	// inuse_space, goroutines, mutex_count, mutex_duration, block_count,
	// block_duration.
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig configures the Prometheus metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// AdminAPIConfig configures the read-only introspection HTTP server.
type AdminAPIConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	Port    int           `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// PersistenceConfig configures the durable address/route store. Off by
// default: an IPCP re-enrols from scratch on restart unless enabled.
type PersistenceConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Dialect string `mapstructure:"dialect" validate:"omitempty,oneof=sqlite postgres" yaml:"dialect"`
	DSN     string `mapstructure:"dsn" yaml:"dsn"`
}

// SnapshotConfig selects the RIB snapshot sink/source used for
// PersistSnapshot/LoadSnapshot.
type SnapshotConfig struct {
	Backend string `mapstructure:"backend" validate:"omitempty,oneof=file badger s3 postgres" yaml:"backend"`
	Path    string `mapstructure:"path" yaml:"path,omitempty"`
	Bucket  string `mapstructure:"bucket" yaml:"bucket,omitempty"`
	Key     string `mapstructure:"key" yaml:"key,omitempty"`
	DSN     string `mapstructure:"dsn" yaml:"dsn,omitempty"`
}

// Load loads configuration from file, environment and defaults, applying
// defaults and validating the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		cfg := GetDefaultConfig()
		if err := Validate(cfg); err != nil {
			return nil, fmt.Errorf("config: validation failed: %w", err)
		}
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return &cfg, nil
}

// SaveConfig writes cfg to path in YAML form.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write file: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("IPCPD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(getConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: read config file: %w", err)
	}
	return true, nil
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// Validate runs struct-tag validation over cfg.
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}

func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ipcpd")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "ipcpd")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the
// default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}
