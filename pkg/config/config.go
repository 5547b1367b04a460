// Package config loads the rbmap tool configuration from a YAML file and
// RBMAP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidKeys        = errors.New("stress keys must be positive")
	ErrInvalidWorkers     = errors.New("stress workers must be positive")
	ErrInvalidCheckEvery  = errors.New("stress check_every must not be negative")
	ErrInvalidKeySpace    = errors.New("stress key_space must be at least 1")
	ErrInvalidSizes       = errors.New("bench sizes must be positive")
	ErrInvalidRounds      = errors.New("bench rounds must be positive")
	ErrInvalidHibernation = errors.New("arena hibernation_threshold must not be negative")
	ErrInvalidLogLevel    = errors.New("unknown log level")
	ErrInvalidSampleRatio = errors.New("telemetry sample_ratio must be within [0, 1]")
)

// envPrefix prefixes every environment override, e.g. RBMAP_STRESS_KEYS.
const envPrefix = "RBMAP"

// Config holds all configuration for the rbmap tool.
type Config struct {
	Stress    StressConfig    `mapstructure:"stress"`
	Bench     BenchConfig     `mapstructure:"bench"`
	Arena     ArenaConfig     `mapstructure:"arena"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// StressConfig drives the randomized insert/remove workload.
type StressConfig struct {
	Keys       int   `mapstructure:"keys"`
	Seed       int64 `mapstructure:"seed"`
	Workers    int   `mapstructure:"workers"`
	CheckEvery int   `mapstructure:"check_every"`

	// KeySpace multiplies Keys to get the range random keys are drawn from.
	KeySpace int `mapstructure:"key_space"`
}

// BenchConfig drives the timing workload.
type BenchConfig struct {
	Sizes  []int `mapstructure:"sizes"`
	Rounds int   `mapstructure:"rounds"`
}

// ArenaConfig tunes the node arenas.
type ArenaConfig struct {
	HibernationThreshold int `mapstructure:"hibernation_threshold"`

	// Hibernate compresses and restores the arenas between the insert and
	// remove phases of a stress run.
	Hibernate bool `mapstructure:"hibernate"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// SlogLevel parses Level.
func (lc LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(lc.Level))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, lc.Level)
	}

	return level, nil
}

// TelemetryConfig holds OpenTelemetry and Prometheus settings.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	MetricsAddr  string  `mapstructure:"metrics_addr"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	Environment  string  `mapstructure:"environment"`
}

// LoadConfig loads configuration from configPath, or from .rbmap.yaml in the
// working or home directory when configPath is empty, then applies
// environment overrides. A missing default file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(".rbmap")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("$HOME")
	}

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := Validate(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("stress.keys", DefaultStressKeys)
	viperCfg.SetDefault("stress.seed", DefaultStressSeed)
	viperCfg.SetDefault("stress.workers", DefaultStressWorkers)
	viperCfg.SetDefault("stress.check_every", DefaultStressCheckEvery)
	viperCfg.SetDefault("stress.key_space", DefaultStressKeySpace)

	viperCfg.SetDefault("bench.sizes", DefaultBenchSizes())
	viperCfg.SetDefault("bench.rounds", DefaultBenchRounds)

	viperCfg.SetDefault("arena.hibernation_threshold", DefaultHibernationThreshold)
	viperCfg.SetDefault("arena.hibernate", false)

	viperCfg.SetDefault("log.level", DefaultLogLevel)
	viperCfg.SetDefault("log.json", false)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.metrics_addr", "")
	viperCfg.SetDefault("telemetry.sample_ratio", 0.0)
	viperCfg.SetDefault("telemetry.environment", "")
}

// Validate checks the configuration, also after command-line overrides.
func Validate(config *Config) error {
	switch {
	case config.Stress.Keys <= 0:
		return ErrInvalidKeys
	case config.Stress.Workers <= 0:
		return ErrInvalidWorkers
	case config.Stress.CheckEvery < 0:
		return ErrInvalidCheckEvery
	case config.Stress.KeySpace < 1:
		return ErrInvalidKeySpace
	case config.Bench.Rounds <= 0:
		return ErrInvalidRounds
	case config.Arena.HibernationThreshold < 0:
		return ErrInvalidHibernation
	case config.Telemetry.SampleRatio < 0 || config.Telemetry.SampleRatio > 1:
		return ErrInvalidSampleRatio
	}

	if len(config.Bench.Sizes) == 0 {
		return ErrInvalidSizes
	}

	for _, size := range config.Bench.Sizes {
		if size <= 0 {
			return fmt.Errorf("%w: %d", ErrInvalidSizes, size)
		}
	}

	_, err := config.Log.SlogLevel()

	return err
}
