package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalMonitor(t *testing.T) {
	rec := &Recorder{}
	Init(rec)
	t.Cleanup(func() { Init(nil) })

	CaptureException(nil, nil)
	CaptureException(errors.New("boom"), map[string]string{"person": "p1"})
	Flush(time.Millisecond)

	events := rec.Captured()
	require.Len(t, events, 1)
	assert.EqualError(t, events[0].Err, "boom")
	assert.Equal(t, "p1", events[0].Tags["person"])
}

func TestInitNilRestoresNop(t *testing.T) {
	Init(&Recorder{})
	Init(nil)
	_, ok := Current().(NopMonitor)
	assert.True(t, ok)
}
