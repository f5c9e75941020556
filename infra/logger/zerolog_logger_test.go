package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corelogger "github.com/kilianp07/actsched/core/logger"
)

func TestZerologLoggerMethods(t *testing.T) {
	assert.NoError(t, os.Setenv("APP_ENV", "dev"))
	defer func() { assert.NoError(t, os.Unsetenv("APP_ENV")) }()
	l := NewZerologLogger("test")
	if l == nil {
		t.Fatalf("nil logger")
	}
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
}

func TestStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "batch")
	corelogger.Errorw(l, "solver_error", map[string]any{"person": "p1", "reason": "numerical"})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "batch", line["component"])
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "solver_error", line["message"])
	assert.Equal(t, "p1", line["person"])
}

func TestSetLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)
	require.NoError(t, SetLevel("warn"))
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "x")
	l.Infof("hidden")
	l.Warnf("shown")
	assert.False(t, strings.Contains(buf.String(), "hidden"))
	assert.True(t, strings.Contains(buf.String(), "shown"))

	assert.NoError(t, SetLevel(""))
	assert.Error(t, SetLevel("loud"))
}

func TestNopFallback(t *testing.T) {
	l := corelogger.OrNop(nil)
	corelogger.Warnw(l, "infeasible", map[string]any{"person": "p"})
	corelogger.Errorw(NopLogger{}, "solver_error", nil)
}
