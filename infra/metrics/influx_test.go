package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/actsched/core/metrics"
	"github.com/kilianp07/actsched/core/model"
)

type lineServer struct {
	mu     sync.Mutex
	bodies []string
	srv    *httptest.Server
}

func newLineServer(t *testing.T) *lineServer {
	ls := &lineServer{}
	ls.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		ls.mu.Lock()
		ls.bodies = append(ls.bodies, strings.TrimSpace(string(data)))
		ls.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(ls.srv.Close)
	return ls
}

func (ls *lineServer) Bodies() []string {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return append([]string(nil), ls.bodies...)
}

func TestInfluxSink_RecordJobResult(t *testing.T) {
	ls := newLineServer(t)
	sink := NewInfluxSink(InfluxConfig{URL: ls.srv.URL, Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()

	now := time.Now()
	res := coremetrics.JobResult{
		RunID:      "run-1",
		PersonID:   "p1",
		Succeeded:  false,
		Reason:     model.ReasonInfeasible,
		Nodes:      12,
		Utility:    0,
		Elapsed:    1500 * time.Microsecond,
		Time:       now,
		Activities: 0,
	}
	require.NoError(t, sink.RecordJobResult(res))

	p := write.NewPointWithMeasurement("schedule_job").
		AddTag("run_id", "run-1").
		AddTag("person_id", "p1").
		AddTag("succeeded", "false").
		AddTag("reason", model.ReasonInfeasible.String()).
		AddTag("component", "batch").
		AddField("optimal", false).
		AddField("activities", 0).
		AddField("utility", 0.0).
		AddField("gap", 0.0).
		AddField("nodes", 12).
		AddField("elapsed_ms", 1.5).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	bodies := ls.Bodies()
	require.Len(t, bodies, 1)
	assert.Equal(t, expected, bodies[0])
}

func TestInfluxSink_RecordBatch(t *testing.T) {
	ls := newLineServer(t)
	sink := NewInfluxSink(InfluxConfig{URL: ls.srv.URL + "/api/v2/write", Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()

	now := time.Now()
	require.NoError(t, sink.RecordBatch(coremetrics.BatchSummary{
		RunID: "run-1", Total: 3, Succeeded: 2, Failed: 1, Workers: 2,
		Elapsed: 2 * time.Millisecond, Time: now,
	}))
	bodies := ls.Bodies()
	require.Len(t, bodies, 1)
	assert.True(t, strings.HasPrefix(bodies[0], "schedule_batch,"), bodies[0])
	assert.Contains(t, bodies[0], "run_id=run-1")
	assert.Contains(t, bodies[0], "succeeded=2i")
	assert.Contains(t, bodies[0], "failed=1i")
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "tok", Org: "org", Bucket: "bucket"})
	_, isInflux := sink.(*InfluxSink)
	assert.False(t, isInflux, "expected NopSink on failing health check")
	assert.True(t, called, "health endpoint not called")
}

func TestRound3(t *testing.T) {
	assert.Equal(t, 1.235, round3(1.23456))
	assert.Equal(t, -0.5, round3(-0.5))
}
