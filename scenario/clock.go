package scenario

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Clock is a time of day in minutes since midnight. It decodes from a
// number of minutes or from an "HH:MM" string; "24:00" is the end of the day.
type Clock float64

// ParseClock converts "HH:MM" or a plain number of minutes.
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	if h, m, ok := strings.Cut(s, ":"); ok {
		hours, err := strconv.Atoi(h)
		if err != nil {
			return 0, fmt.Errorf("invalid clock %q", s)
		}
		minutes, err := strconv.Atoi(m)
		if err != nil || minutes < 0 || minutes > 59 || hours < 0 || hours > 24 || (hours == 24 && minutes != 0) {
			return 0, fmt.Errorf("invalid clock %q", s)
		}
		return Clock(hours*60 + minutes), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	return Clock(v), nil
}

// String formats the clock as HH:MM, rounding to the minute.
func (c Clock) String() string {
	m := int(float64(c) + 0.5)
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Clock) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: clock must be a scalar", n.Line)
	}
	v, err := ParseClock(n.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*c = v
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Clock) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := ParseClock(s)
		if err != nil {
			return err
		}
		*c = v
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("clock must be a number or an HH:MM string")
	}
	*c = Clock(f)
	return nil
}
