package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/hourglass/pkg/config"
	"github.com/Sumatoshi-tech/hourglass/pkg/framework"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "hourglass.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultMiningWorkers, cfg.Mining.Workers)
	assert.Equal(t, config.DefaultMiningObjectCacheSize, cfg.Mining.ObjectCacheSize)
	assert.Equal(t, config.DefaultMiningBatchSize, cfg.Mining.BatchSize)
	assert.False(t, cfg.Mining.LineStats)
	assert.Equal(t, config.FormatText, cfg.Output.Format)
	assert.True(t, cfg.Output.Color)
	assert.Equal(t, config.DefaultLoggingLevel, cfg.Logging.Level)
	assert.Empty(t, cfg.Telemetry.OTLPEndpoint)
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
mining:
  workers: 4
  line_stats: true
  object_cache_size: 64MiB
identity:
  rules_path: rules.yaml
  ignore_bots: true
output:
  format: json
  show_pii: true
telemetry:
  otlp_endpoint: localhost:4317
  metrics_addr: ":9090"
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Mining.Workers)
	assert.True(t, cfg.Mining.LineStats)
	assert.Equal(t, "rules.yaml", cfg.Identity.RulesPath)
	assert.True(t, cfg.Identity.IgnoreBots)
	assert.Equal(t, config.FormatJSON, cfg.Output.Format)
	assert.True(t, cfg.Output.ShowPII)
	assert.Equal(t, "localhost:4317", cfg.Telemetry.OTLPEndpoint)
	assert.Equal(t, ":9090", cfg.Telemetry.MetricsAddr)

	mining, err := cfg.Mining.Framework()
	require.NoError(t, err)
	assert.Equal(t, framework.Config{
		Workers:         4,
		LineStats:       true,
		ObjectCacheSize: 64 * humanize.MiByte,
		BatchSize:       config.DefaultMiningBatchSize,
	}, mining)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("HOURGLASS_MINING_WORKERS", "3")
	t.Setenv("HOURGLASS_IDENTITY_OMIT_UNIFY", "true")
	t.Setenv("HOURGLASS_OUTPUT_FORMAT", "yaml")

	cfg, err := config.LoadConfig(writeConfig(t, "mining:\n  workers: 9\n"))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Mining.Workers)
	assert.True(t, cfg.Identity.OmitUnify)
	assert.Equal(t, config.FormatYAML, cfg.Output.Format)
}

func TestLoadConfigFlagsOverrideWhenChanged(t *testing.T) {
	t.Parallel()

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("workers", 1, "")
	flags.String("format", "text", "")

	require.NoError(t, flags.Parse([]string{"--workers", "6"}))

	cfg, err := config.LoadConfig(writeConfig(t, "output:\n  format: json\n"),
		config.FlagBinding{Key: "mining.workers", Flag: flags.Lookup("workers")},
		config.FlagBinding{Key: "output.format", Flag: flags.Lookup("format")},
	)
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Mining.Workers)
	assert.Equal(t, config.FormatJSON, cfg.Output.Format, "unchanged flags keep the file value")
}

func TestLoadConfigValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{name: "negative workers", content: "mining:\n  workers: -1\n", wantErr: config.ErrInvalidWorkers},
		{name: "zero batch", content: "mining:\n  batch_size: 0\n", wantErr: config.ErrInvalidBatchSize},
		{name: "bad size", content: "mining:\n  object_cache_size: lots\n", wantErr: framework.ErrInvalidSizeFormat},
		{name: "bad format", content: "output:\n  format: xml\n", wantErr: config.ErrInvalidFormat},
		{name: "bad level", content: "logging:\n  level: loud\n", wantErr: config.ErrInvalidLogLevel},
		{name: "bad log format", content: "logging:\n  format: logfmt\n", wantErr: config.ErrInvalidLogFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadConfig(writeConfig(t, tt.content))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadConfigMalformedFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "mining: [\n"))
	require.Error(t, err)
}

func TestLoggingConfig(t *testing.T) {
	t.Parallel()

	level, err := config.LoggingConfig{Level: "debug"}.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	assert.True(t, config.LoggingConfig{Format: "json"}.JSON())
	assert.False(t, config.LoggingConfig{Format: "text"}.JSON())
}

func TestLoadDotEnv(t *testing.T) {
	const key = "HOURGLASS_IDENTITY_RULES_PATH"

	t.Cleanup(func() { _ = os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), config.DotEnvFile)
	require.NoError(t, os.WriteFile(path, []byte(key+"=from-dotenv.yaml\n"), 0o600))

	require.NoError(t, config.LoadDotEnv(path))

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv.yaml", cfg.Identity.RulesPath)
}

func TestLoadDotEnvMissing(t *testing.T) {
	t.Parallel()

	require.NoError(t, config.LoadDotEnv(filepath.Join(t.TempDir(), config.DotEnvFile)))
}
