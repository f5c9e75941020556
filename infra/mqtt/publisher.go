package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kilianp07/actsched/core/batch"
	"github.com/kilianp07/actsched/core/model"
)

// Message is the JSON payload of a published schedule.
type Message struct {
	RunID     string                   `json:"run_id"`
	Timestamp int64                    `json:"timestamp"`
	Schedule  *model.GeneratedSchedule `json:"schedule"`
}

// Publisher publishes generated schedules.
type Publisher interface {
	PublishSchedule(ctx context.Context, runID string, s *model.GeneratedSchedule) error
	Disconnect()
}

// PublishResult publishes every successful schedule of a batch in person
// order. Failures do not stop the remaining publications and are joined.
func PublishResult(ctx context.Context, p Publisher, res *batch.Result) error {
	var errs []error
	for _, id := range res.PersonIDs() {
		j := res.Jobs[id]
		if j.Schedule == nil {
			continue
		}
		if err := p.PublishSchedule(ctx, res.RunID, j.Schedule); err != nil {
			if ctx.Err() != nil {
				return errors.Join(append(errs, err)...)
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MockPublisher is a simple publisher used in tests.
type MockPublisher struct {
	Messages map[string]Message
	FailIDs  map[string]bool
	mu       sync.Mutex
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		Messages: make(map[string]Message),
		FailIDs:  make(map[string]bool),
	}
}

// PublishSchedule records the message or returns an error if configured to fail.
func (m *MockPublisher) PublishSchedule(_ context.Context, runID string, s *model.GeneratedSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailIDs[s.PersonID] {
		return fmt.Errorf("publish failed")
	}
	m.Messages[s.PersonID] = Message{RunID: runID, Schedule: s}
	return nil
}

// Disconnect implements Publisher.
func (m *MockPublisher) Disconnect() {}

// Published returns the number of recorded messages.
func (m *MockPublisher) Published() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Messages)
}
