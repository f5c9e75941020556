package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremon "github.com/kilianp07/actsched/core/monitoring"
)

type captureTransport struct {
	events []*sentry.Event
}

func (c *captureTransport) Flush(time.Duration) bool              { return true }
func (c *captureTransport) FlushWithContext(context.Context) bool { return true }
func (c *captureTransport) Configure(sentry.ClientOptions)        {}
func (c *captureTransport) SendEvent(e *sentry.Event)             { c.events = append(c.events, e) }
func (c *captureTransport) Close()                                {}

func TestNewSentryMonitorEmptyDSN(t *testing.T) {
	m, err := NewSentryMonitor(SentryConfig{})
	require.NoError(t, err)
	_, ok := m.(coremon.NopMonitor)
	assert.True(t, ok)
}

func TestSentryMonitorTags(t *testing.T) {
	tr := &captureTransport{}
	client, err := sentry.NewClient(sentry.ClientOptions{Dsn: "https://key@o0.ingest.sentry.io/1", Transport: tr})
	require.NoError(t, err)
	m := &sentryMonitor{hub: sentry.NewHub(client, sentry.NewScope())}

	m.CaptureException(nil, nil)
	m.CaptureException(errors.New("solver failed"), map[string]string{"person_id": "p1", "reason": "SOLVER_ERROR"})
	m.Flush(time.Second)

	require.Len(t, tr.events, 1)
	ev := tr.events[0]
	assert.Equal(t, "p1", ev.Tags["person_id"])
	assert.Equal(t, "SOLVER_ERROR", ev.Tags["reason"])
	assert.Equal(t, "batch", ev.Tags["component"])
}

func TestSentryConfigValidate(t *testing.T) {
	assert.NoError(t, SentryConfig{TracesSampleRate: 0.5}.Validate())
	assert.Error(t, SentryConfig{TracesSampleRate: 2}.Validate())
}
