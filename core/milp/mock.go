package milp

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MockBackend is a deterministic Backend for tests. Solve returns Result
// (or Err) after Delay. When IgnoreContext is set the delay is not
// interrupted by cancellation, which simulates a backend that does not
// honour its time limit.
type MockBackend struct {
	Result        Result
	Err           error
	Delay         time.Duration
	IgnoreContext bool
	AcquireErr    error
	// Respond, when set, computes the result from the problem.
	Respond func(p *Problem) (Result, error)

	acquired atomic.Int32
	released atomic.Int32
	solves   atomic.Int32
	mu       sync.Mutex
	problems []*Problem
}

// Name implements Backend.
func (m *MockBackend) Name() string { return "mock" }

// Acquire implements Backend.
func (m *MockBackend) Acquire(ctx context.Context) (Session, error) {
	if m.AcquireErr != nil {
		return nil, m.AcquireErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.acquired.Add(1)
	return &mockSession{backend: m}, nil
}

// Acquired returns the number of sessions handed out.
func (m *MockBackend) Acquired() int { return int(m.acquired.Load()) }

// Released returns the number of sessions closed.
func (m *MockBackend) Released() int { return int(m.released.Load()) }

// Solves returns the number of Solve calls.
func (m *MockBackend) Solves() int { return int(m.solves.Load()) }

// Problems returns the problems passed to Solve.
func (m *MockBackend) Problems() []*Problem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Problem(nil), m.problems...)
}

type mockSession struct {
	backend *MockBackend
	once    sync.Once
}

func (s *mockSession) Solve(ctx context.Context, p *Problem, _ Options) (Result, error) {
	m := s.backend
	m.solves.Add(1)
	m.mu.Lock()
	m.problems = append(m.problems, p)
	m.mu.Unlock()
	if m.Delay > 0 {
		if m.IgnoreContext {
			time.Sleep(m.Delay)
		} else {
			select {
			case <-time.After(m.Delay):
			case <-ctx.Done():
				return Result{Status: StatusNoSolution}, nil
			}
		}
	}
	if m.Respond != nil {
		return m.Respond(p)
	}
	return m.Result, m.Err
}

func (s *mockSession) Close() error {
	s.once.Do(func() { s.backend.released.Add(1) })
	return nil
}
