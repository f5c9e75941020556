package metrics_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/actsched/core/factory"
	metrics "github.com/kilianp07/actsched/core/metrics"
	_ "github.com/kilianp07/actsched/infra/metrics"
)

func TestSinkTypes(t *testing.T) {
	assert.Equal(t, []string{"influx", "nop", "prometheus"}, metrics.SinkTypes())
}

func TestNewMetricsSink(t *testing.T) {
	s, err := metrics.NewMetricsSink(nil)
	require.NoError(t, err)
	assert.IsType(t, metrics.NopSink{}, s)

	s, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}})
	require.NoError(t, err)
	assert.IsType(t, metrics.NopSink{}, s)

	s, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "nop"}})
	require.NoError(t, err)
	multi, ok := s.(*metrics.MultiSink)
	require.True(t, ok, "got %T", s)
	assert.Len(t, multi.Sinks, 2)

	_, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "statsd"}})
	assert.ErrorContains(t, err, "metrics sink 1")
}

func TestConfigDecode(t *testing.T) {
	var fromYAML metrics.Config
	require.NoError(t, yaml.Unmarshal([]byte("sinks:\n  - type: nop\n  - type: nop\nprometheus_port: \"9100\"\n"), &fromYAML))
	s, err := metrics.NewMetricsSink(fromYAML.Sinks)
	require.NoError(t, err)
	assert.IsType(t, &metrics.MultiSink{}, s)

	var fromJSON metrics.Config
	require.NoError(t, json.Unmarshal([]byte(`{"sinks":[{"type":"missing"}],"prometheus_port":"9100"}`), &fromJSON))
	assert.Equal(t, "9100", fromJSON.PrometheusPort)
	_, err = metrics.NewMetricsSink(fromJSON.Sinks)
	assert.Error(t, err)
}
