package store

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/actsched/core/batch"
	"github.com/kilianp07/actsched/core/factory"
	"github.com/kilianp07/actsched/core/model"
)

// Record captures the terminal state of one person's job in a batch run.
type Record struct {
	Timestamp time.Time                `json:"timestamp"`
	RunID     string                   `json:"run_id"`
	PersonID  string                   `json:"person_id"`
	State     string                   `json:"state"`
	Reason    model.FailureReason      `json:"reason"`
	Error     string                   `json:"error,omitempty"`
	ElapsedMS float64                  `json:"elapsed_ms"`
	Schedule  *model.GeneratedSchedule `json:"schedule,omitempty"`
}

// Succeeded reports whether the record holds a schedule.
func (r Record) Succeeded() bool { return r.Schedule != nil }

// Query defines filters for retrieving records. Zero fields match everything.
type Query struct {
	Start      time.Time
	End        time.Time
	RunID      string
	PersonID   string
	FailedOnly bool
}

func (q Query) match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.RunID != "" && r.RunID != q.RunID {
		return false
	}
	if q.PersonID != "" && r.PersonID != q.PersonID {
		return false
	}
	return !q.FailedOnly || !r.Succeeded()
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// Records converts a batch result into one record per person, ordered by
// person id.
func Records(res *batch.Result, at time.Time) []Record {
	out := make([]Record, 0, len(res.Jobs))
	for _, id := range res.PersonIDs() {
		j := res.Jobs[id]
		rec := Record{
			Timestamp: at,
			RunID:     res.RunID,
			PersonID:  id,
			State:     j.State.String(),
			Reason:    j.Reason,
			ElapsedMS: float64(j.Elapsed.Microseconds()) / 1000,
			Schedule:  j.Schedule,
		}
		if j.Err != nil {
			rec.Error = j.Err.Error()
		}
		out = append(out, rec)
	}
	return out
}

// AppendResult stores every job of a batch result.
func AppendResult(ctx context.Context, s Store, res *batch.Result, at time.Time) error {
	for _, rec := range Records(res, at) {
		if err := s.Append(ctx, rec); err != nil {
			return fmt.Errorf("append %s: %w", rec.PersonID, err)
		}
	}
	return nil
}

// FileConfig configures the file backed stores.
type FileConfig struct {
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

var registry = factory.NewRegistry[Store]()

// Register adds a store factory identified by name.
func Register(name string, f factory.Factory[Store]) error {
	return registry.Register(name, f)
}

// Types lists the registered store types.
func Types() []string { return registry.Names() }

// New creates the store described by cfg. An empty type yields a NopStore.
func New(cfg factory.ModuleConfig) (Store, error) {
	if cfg.Type == "" {
		return NopStore{}, nil
	}
	return registry.Create(cfg)
}

func init() {
	_ = Register("none", func(map[string]any) (Store, error) { return NopStore{}, nil })
	_ = Register("jsonl", func(conf map[string]any) (Store, error) {
		var c FileConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.MaxSizeMB > 0 {
			return NewRotatingJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
		}
		return NewJSONLStore(c.Path)
	})
	_ = Register("sqlite", func(conf map[string]any) (Store, error) {
		var c FileConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewSQLiteStore(c.Path)
	})
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error          { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }
