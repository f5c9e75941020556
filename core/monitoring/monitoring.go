// Package monitoring reports job errors to an external error tracker.
package monitoring

import (
	"sync"
	"time"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Flush(time.Duration)                       {}

var (
	mu      sync.RWMutex
	current Monitor = NopMonitor{}
)

// Init sets the global monitor implementation. A nil monitor restores the
// no-op one.
func Init(m Monitor) {
	mu.Lock()
	defer mu.Unlock()
	if m == nil {
		m = NopMonitor{}
	}
	current = m
}

// Current returns the global monitor.
func Current() Monitor {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// CaptureException records the error with optional tags.
func CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	Current().CaptureException(err, tags)
}

// Flush flushes buffered events.
func Flush(d time.Duration) { Current().Flush(d) }

// Recorder is a Monitor that keeps captured errors in memory.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
}

// Event is one captured error.
type Event struct {
	Err  error
	Tags map[string]string
}

func (r *Recorder) CaptureException(err error, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, Event{Err: err, Tags: tags})
}

func (r *Recorder) Flush(time.Duration) {}

// Captured returns a copy of the recorded events.
func (r *Recorder) Captured() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.Events...)
}
