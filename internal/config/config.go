// Package config loads the application configuration from a YAML file
// layered with environment variable overrides, per SPEC_FULL.md §2 item 13.
// Grounded on the teacher's internal/config package: viper.SetDefault for
// every field, AutomaticEnv with a "." -> "_" key replacer, Unmarshal into a
// mapstructure-tagged struct, then struct validation — here via
// go-playground/validator tags instead of the teacher's hand-rolled
// Validate(), since the rest of the pack (ipiton-alert-history-service
// itself, in its proxy handler) already reaches for that library.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ConfigSourceKind selects which ConfigurationLoader backs the
// ConfigurationUpdateManager (spec.md §4.3).
type ConfigSourceKind string

const (
	SourceYAML     ConfigSourceKind = "yaml"
	SourcePostgres ConfigSourceKind = "postgres"
)

// GlobalConfig holds the top-level process settings from spec.md §4.1/§6.
type GlobalConfig struct {
	ConfigurationsPath               string           `mapstructure:"configurations_path"`
	ConnectorsPath                   string           `mapstructure:"connectors_path" validate:"required"`
	RunOnce                          bool             `mapstructure:"run_once"`
	UpdateConfigurationIntervalMillis int64           `mapstructure:"update_configuration_interval_millis" validate:"required,gt=0"`
	HTTPListenAddr                   string           `mapstructure:"http_listen_addr" validate:"required"`
	ConfigSourceKind                 ConfigSourceKind `mapstructure:"config_source_kind" validate:"required,oneof=yaml postgres"`
}

// HazelcastConfig controls the Cluster binding (spec.md §6). The field names
// intentionally keep the teacher corpus's "hazelcast" vocabulary for the
// clustering knob even though the binding is Redis- or Kubernetes-backed
// (SPEC_FULL.md §4.12): Backend selects which.
type HazelcastConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Backend string `mapstructure:"backend" validate:"omitempty,oneof=redis k8s"`
	Config  string `mapstructure:"config"`
}

// PostgresConfig controls the Postgres-backed ConfigurationLoader
// (SPEC_FULL.md §4.11).
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxConnections  int32         `mapstructure:"max_connections"`
	MinConnections  int32         `mapstructure:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
}

// LogConfig controls pkg/logger construction (SPEC_FULL.md §2 item 14).
type LogConfig struct {
	Level      string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"omitempty,oneof=json text"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// AppConnectorsConfig sets the per-client outbound rate limit and the
// per-cache background sweep interval of AppConnectors entries
// (SPEC_FULL.md §2 items 19-20).
type AppConnectorsConfig struct {
	RateLimitPerSecond  float64 `mapstructure:"rate_limit_per_second"`
	SweepIntervalMillis int64   `mapstructure:"sweep_interval_millis"`
}

// AppConfig is the root configuration document.
type AppConfig struct {
	Global        GlobalConfig        `mapstructure:"global"`
	Hazelcast     HazelcastConfig     `mapstructure:"hazelcast"`
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Log           LogConfig           `mapstructure:"log"`
	AppConnectors AppConnectorsConfig `mapstructure:"app_connectors"`
}

// Load reads configPath (if non-empty) layered with environment variable
// overrides (PYPLYN_GLOBAL_HTTP_LISTEN_ADDR etc., "." replaced with "_"),
// applies defaults, and validates the result.
func Load(configPath string) (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("pyplyn")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
			}
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func validate(cfg *AppConfig) error {
	val := validator.New()
	if err := val.Struct(cfg); err != nil {
		return err
	}
	if cfg.Hazelcast.Enabled && cfg.Hazelcast.Backend == "" {
		return fmt.Errorf("hazelcast.backend is required when hazelcast.enabled is true")
	}
	if cfg.Global.ConfigSourceKind == SourcePostgres && cfg.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required when global.config_source_kind is postgres")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("global.configurations_path", "./configurations")
	v.SetDefault("global.connectors_path", "./connectors.json")
	v.SetDefault("global.run_once", false)
	v.SetDefault("global.update_configuration_interval_millis", 60000)
	v.SetDefault("global.http_listen_addr", ":8080")
	v.SetDefault("global.config_source_kind", "yaml")

	v.SetDefault("hazelcast.enabled", false)
	v.SetDefault("hazelcast.backend", "")

	v.SetDefault("postgres.max_connections", 10)
	v.SetDefault("postgres.min_connections", 1)
	v.SetDefault("postgres.max_conn_lifetime", "1h")
	v.SetDefault("postgres.connect_timeout", "10s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", true)

	v.SetDefault("app_connectors.rate_limit_per_second", 10.0)
	v.SetDefault("app_connectors.sweep_interval_millis", 30000)
}
