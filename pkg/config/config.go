// Package config loads hourglass settings. Sources are layered: defaults,
// an optional YAML file, HOURGLASS_ environment variables (a .env file may
// provide them) and finally command line flags that were set explicitly.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/hourglass/pkg/framework"
)

// Sentinel validation errors.
var (
	ErrInvalidWorkers   = errors.New("mining workers must not be negative")
	ErrInvalidBatchSize = errors.New("mining batch size must be positive")
	ErrInvalidFormat    = errors.New("unknown output format")
	ErrInvalidLogLevel  = errors.New("unknown log level")
	ErrInvalidLogFormat = errors.New("unknown log format")
)

const (
	configName = "hourglass"
	configType = "yaml"
	envPrefix  = "HOURGLASS"

	// DotEnvFile is the dotenv file read from the working directory.
	DotEnvFile = ".env"
)

// Config holds all hourglass settings.
type Config struct {
	Mining    MiningConfig    `mapstructure:"mining"`
	Identity  IdentityConfig  `mapstructure:"identity"`
	Output    OutputConfig    `mapstructure:"output"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// MiningConfig controls the tree diff workers.
type MiningConfig struct {
	Workers         int    `mapstructure:"workers"`
	LineStats       bool   `mapstructure:"line_stats"`
	FileStats       bool   `mapstructure:"file_stats"`
	ObjectCacheSize string `mapstructure:"object_cache_size"`
	BatchSize       int    `mapstructure:"batch_size"`
}

// IdentityConfig controls author resolution.
type IdentityConfig struct {
	RulesPath  string `mapstructure:"rules_path"`
	OmitUnify  bool   `mapstructure:"omit_unify"`
	IgnoreBots bool   `mapstructure:"ignore_bots"`
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	Format  string `mapstructure:"format"`
	ShowPII bool   `mapstructure:"show_pii"`
	Color   bool   `mapstructure:"color"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig controls OpenTelemetry export.
type TelemetryConfig struct {
	// OTLPEndpoint is the OTLP gRPC collector address. Empty disables export.
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
	// MetricsAddr serves a Prometheus scrape endpoint while a run is in progress.
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// FlagBinding ties a config key to a command line flag. The flag only
// overrides other sources when it was set explicitly.
type FlagBinding struct {
	Key  string
	Flag *pflag.Flag
}

// LoadDotEnv exports the variables of a dotenv file that are not already set
// in the environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return fmt.Errorf("load %s: %w", path, err)
}

// LoadConfig loads configuration from defaults, the config file, env vars and
// flags. If configPath is empty, hourglass.yaml is searched in the working
// directory, ./config and $HOME/.config/hourglass; a missing file is fine.
func LoadConfig(configPath string, flags ...FlagBinding) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(filepath.Join(home, ".config", configName))
		}
	}

	for _, binding := range flags {
		if binding.Flag == nil {
			continue
		}

		bindErr := viperCfg.BindPFlag(binding.Key, binding.Flag)
		if bindErr != nil {
			return nil, fmt.Errorf("bind flag %s: %w", binding.Flag.Name, bindErr)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("mining.workers", DefaultMiningWorkers)
	viperCfg.SetDefault("mining.line_stats", DefaultMiningLineStats)
	viperCfg.SetDefault("mining.file_stats", DefaultMiningFileStats)
	viperCfg.SetDefault("mining.object_cache_size", DefaultMiningObjectCacheSize)
	viperCfg.SetDefault("mining.batch_size", DefaultMiningBatchSize)

	viperCfg.SetDefault("identity.rules_path", DefaultIdentityRulesPath)
	viperCfg.SetDefault("identity.omit_unify", DefaultIdentityOmitUnify)
	viperCfg.SetDefault("identity.ignore_bots", DefaultIdentityIgnoreBots)

	viperCfg.SetDefault("output.format", DefaultOutputFormat)
	viperCfg.SetDefault("output.show_pii", DefaultOutputShowPII)
	viperCfg.SetDefault("output.color", DefaultOutputColor)

	viperCfg.SetDefault("logging.level", DefaultLoggingLevel)
	viperCfg.SetDefault("logging.format", DefaultLoggingFormat)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.metrics_addr", "")
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Mining.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Mining.Workers)
	}

	if c.Mining.BatchSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBatchSize, c.Mining.BatchSize)
	}

	_, err := framework.ParseSize(c.Mining.ObjectCacheSize)
	if err != nil {
		return fmt.Errorf("mining.object_cache_size: %w", err)
	}

	if !slices.Contains([]string{FormatText, FormatJSON, FormatYAML}, c.Output.Format) {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Output.Format)
	}

	_, err = c.Logging.SlogLevel()
	if err != nil {
		return err
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Logging.Format)
	}

	return nil
}

// Framework converts the mining settings to a worker pool configuration.
func (m MiningConfig) Framework() (framework.Config, error) {
	cacheSize, err := framework.ParseSize(m.ObjectCacheSize)
	if err != nil {
		return framework.Config{}, err
	}

	return framework.Config{
		Workers:         m.Workers,
		LineStats:       m.LineStats,
		ObjectCacheSize: cacheSize,
		BatchSize:       m.BatchSize,
	}, nil
}

// SlogLevel parses the configured level name.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(l.Level))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, l.Level)
	}

	return level, nil
}

// JSON reports whether logs are emitted as JSON.
func (l LoggingConfig) JSON() bool {
	return l.Format == "json"
}
