package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/actsched/core/utility"
)

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "config.yaml", `solver:
  backend: bnb
  max_sessions: 2
  time_limit_seconds: 1.5
  gap_tolerance: 0.01
batch:
  workers: 4
  progress_interval_seconds: 10
model:
  penalty_shape: piecewise_linear
  piecewise:
    breakpoints: [0, 30]
    slopes: [1, 2]
  selection_threshold: 0.6
metrics:
  prometheus_port: "9100"
  sinks:
    - type: "nop"
store:
  backend: sqlite
mqtt:
  enabled: true
  broker: "tcp://localhost:1883"
  client_id: "cli"
  topic_prefix: "plans"
  qos: 1
log:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "bnb", cfg.Solver.Backend)
	assert.Equal(t, 2, cfg.Solver.MaxSessions)
	assert.Equal(t, 1500*time.Millisecond, cfg.Solver.TimeLimit())
	assert.Equal(t, 0.01, cfg.Solver.Options().GapTolerance)
	assert.Equal(t, 2, cfg.Solver.BackendConfig().Conf["max_sessions"])
	assert.Equal(t, 4, cfg.Batch.Workers)
	assert.Equal(t, 10*time.Second, cfg.Batch.ProgressInterval())

	uc, err := cfg.Model.UtilityConfig()
	require.NoError(t, err)
	assert.Equal(t, utility.ShapePiecewiseLinear, uc.Shape)
	assert.Equal(t, []float64{0, 30}, uc.Breakpoints)
	assert.Equal(t, 0.6, cfg.Model.ExtractOptions().SelectionThreshold)
	assert.Equal(t, 5.0, cfg.Model.FormulateConfig().MinActivityDuration)

	require.Len(t, cfg.Metrics.Sinks, 1)
	assert.Equal(t, "nop", cfg.Metrics.Sinks[0].Type)
	assert.Equal(t, "9100", cfg.Metrics.PrometheusPort)

	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, "schedules.db", cfg.Store.Path)
	assert.Equal(t, "sqlite", cfg.Store.ModuleConfig().Type)

	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "plans", cfg.MQTT.TopicPrefix)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadJSONDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.json", `{"batch": {"workers": 1}}`))
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Batch.Workers)
	assert.Equal(t, "bnb", cfg.Solver.Backend)
	assert.Equal(t, 30*time.Second, cfg.Solver.TimeLimit())
	assert.Equal(t, "linear", cfg.Model.PenaltyShape)
	assert.Equal(t, "none", cfg.Store.Backend)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, "actsched/schedules", cfg.MQTT.TopicPrefix)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "config.yaml", "batch:\n  workers: 2\n")
	t.Setenv("K_BATCH__WORKERS", "8")
	t.Setenv("K_SOLVER__TIME_LIMIT_SECONDS", "5")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Batch.Workers)
	assert.Equal(t, 5*time.Second, cfg.Solver.TimeLimit())
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
		want string
	}{
		{"format", "config.toml", "", "unsupported config format"},
		{"workers", "c.yaml", "batch:\n  workers: -1\n", "batch: workers"},
		{"gap", "c.yaml", "solver:\n  gap_tolerance: 2\n", "solver: gap_tolerance"},
		{"shape", "c.yaml", "model:\n  penalty_shape: cubic\n", "model: unknown penalty shape"},
		{"convexity", "c.yaml", "model:\n  penalty_shape: piecewise_linear\n  piecewise:\n    breakpoints: [0, 10]\n    slopes: [2, 1]\n", "convex"},
		{"store", "c.yaml", "store:\n  backend: redis\n", "store: unknown backend"},
		{"mqtt", "c.yaml", "mqtt:\n  enabled: true\n", "mqtt: mqtt: broker is required"},
		{"level", "c.yaml", "log:\n  level: trace\n", "log: unknown level"},
		{"sentry", "c.yaml", "sentry:\n  traces_sample_rate: 3\n", "sentry: traces_sample_rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.GreaterOrEqual(t, cfg.Batch.Workers, 1)
	assert.Equal(t, "bnb", cfg.Solver.Backend)
}
