package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rbmap/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "rbmap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig_EmptyFile_UsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultStressKeys, cfg.Stress.Keys)
	assert.Equal(t, int64(config.DefaultStressSeed), cfg.Stress.Seed)
	assert.Equal(t, config.DefaultStressWorkers, cfg.Stress.Workers)
	assert.Equal(t, config.DefaultStressCheckEvery, cfg.Stress.CheckEvery)
	assert.Equal(t, config.DefaultStressKeySpace, cfg.Stress.KeySpace)
	assert.Equal(t, config.DefaultBenchSizes(), cfg.Bench.Sizes)
	assert.Equal(t, config.DefaultBenchRounds, cfg.Bench.Rounds)
	assert.Equal(t, config.DefaultLogLevel, cfg.Log.Level)
	assert.False(t, cfg.Arena.Hibernate)
	assert.Empty(t, cfg.Telemetry.OTLPEndpoint)
}

func TestLoadConfig_ValidFile_Unmarshals(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, `
stress:
  keys: 500
  seed: 99
  workers: 2
  check_every: 0
bench:
  sizes: [10, 20]
  rounds: 1
arena:
  hibernation_threshold: 64
  hibernate: true
log:
  level: debug
  json: true
telemetry:
  metrics_addr: ":9464"
  sample_ratio: 0.5
`))
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Stress.Keys)
	assert.Equal(t, int64(99), cfg.Stress.Seed)
	assert.Equal(t, 2, cfg.Stress.Workers)
	assert.Equal(t, 0, cfg.Stress.CheckEvery)
	assert.Equal(t, []int{10, 20}, cfg.Bench.Sizes)
	assert.Equal(t, 1, cfg.Bench.Rounds)
	assert.Equal(t, 64, cfg.Arena.HibernationThreshold)
	assert.True(t, cfg.Arena.Hibernate)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, ":9464", cfg.Telemetry.MetricsAddr)
	assert.InDelta(t, 0.5, cfg.Telemetry.SampleRatio, 1e-9)

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("RBMAP_STRESS_KEYS", "1234")
	t.Setenv("RBMAP_LOG_LEVEL", "warn")

	cfg, err := config.LoadConfig(writeConfig(t, "stress:\n  keys: 5\n"))
	require.NoError(t, err)

	assert.Equal(t, 1234, cfg.Stress.Keys)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadConfig_MalformedYAML_ReturnsError(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "stress: [unclosed"))
	require.Error(t, err)
}

func TestLoadConfig_MissingExplicitFile_ReturnsError(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    error
	}{
		{name: "keys", content: "stress:\n  keys: 0\n", want: config.ErrInvalidKeys},
		{name: "workers", content: "stress:\n  workers: -1\n", want: config.ErrInvalidWorkers},
		{name: "check_every", content: "stress:\n  check_every: -5\n", want: config.ErrInvalidCheckEvery},
		{name: "key_space", content: "stress:\n  key_space: 0\n", want: config.ErrInvalidKeySpace},
		{name: "sizes", content: "bench:\n  sizes: [10, 0]\n", want: config.ErrInvalidSizes},
		{name: "rounds", content: "bench:\n  rounds: 0\n", want: config.ErrInvalidRounds},
		{name: "hibernation", content: "arena:\n  hibernation_threshold: -1\n", want: config.ErrInvalidHibernation},
		{name: "log level", content: "log:\n  level: loud\n", want: config.ErrInvalidLogLevel},
		{name: "sample ratio", content: "telemetry:\n  sample_ratio: 2\n", want: config.ErrInvalidSampleRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadConfig(writeConfig(t, tt.content))
			require.ErrorIs(t, err, tt.want)
		})
	}
}
