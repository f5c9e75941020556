package travel

import (
	"fmt"
	"sort"
)

type key struct {
	origin, destination, mode string
}

// Matrix is an in-memory travel time table. It is filled with Set and becomes
// read-only once Freeze is called; only a frozen matrix may be shared between
// concurrent solves.
type Matrix struct {
	times     map[key]float64
	locations map[string]struct{}
	maxTime   float64
	frozen    bool
}

// NewMatrix returns an empty matrix.
func NewMatrix() *Matrix {
	return &Matrix{times: make(map[key]float64), locations: make(map[string]struct{})}
}

// Set records the travel time from origin to destination with mode.
func (m *Matrix) Set(origin, destination, mode string, minutes float64) error {
	if m.frozen {
		return fmt.Errorf("travel matrix is frozen")
	}
	if origin == "" || destination == "" || mode == "" {
		return fmt.Errorf("travel entry needs origin, destination and mode")
	}
	if minutes < 0 {
		return fmt.Errorf("negative travel time %s->%s (%s)", origin, destination, mode)
	}
	m.times[key{origin, destination, mode}] = minutes
	m.locations[origin] = struct{}{}
	m.locations[destination] = struct{}{}
	if minutes > m.maxTime {
		m.maxTime = minutes
	}
	return nil
}

// Freeze makes the matrix read-only.
func (m *Matrix) Freeze() { m.frozen = true }

// Frozen reports whether Freeze was called.
func (m *Matrix) Frozen() bool { return m.frozen }

// TravelTime implements Provider. Staying at the same location costs nothing
// unless an explicit entry says otherwise.
func (m *Matrix) TravelTime(origin, destination, mode string) (float64, bool) {
	if t, ok := m.times[key{origin, destination, mode}]; ok {
		return t, true
	}
	if origin == destination {
		if _, ok := m.locations[origin]; ok {
			return 0, true
		}
	}
	return 0, false
}

// HasLocation implements Provider.
func (m *Matrix) HasLocation(location string) bool {
	_, ok := m.locations[location]
	return ok
}

// Locations returns all known locations in lexical order.
func (m *Matrix) Locations() []string {
	out := make([]string, 0, len(m.locations))
	for l := range m.locations {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Max returns the largest travel time stored in the matrix.
func (m *Matrix) Max() float64 { return m.maxTime }

// Len returns the number of stored entries.
func (m *Matrix) Len() int { return len(m.times) }
