package scenarios

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/actsched/core/model"
	"github.com/kilianp07/actsched/scenario"
)

// Expected is the outcome asserted for one person.
type Expected struct {
	// Status is "succeeded" or a failure reason such as INFEASIBLE.
	Status string `yaml:"status"`
	// Options maps activity ids to the expected "location/mode".
	Options map[string]string `yaml:"options,omitempty"`
	// Skipped lists activities absent from the schedule.
	Skipped []string `yaml:"skipped,omitempty"`
	// Utility is checked to within 1e-6 when set.
	Utility *float64 `yaml:"utility,omitempty"`
	// Starts maps activity ids to their expected start clock.
	Starts map[string]scenario.Clock `yaml:"starts,omitempty"`
}

// Case is a scenario file with expectations per person.
type Case struct {
	scenario.File `yaml:",inline"`
	PenaltyShape  string              `yaml:"penalty_shape,omitempty"`
	Workers       int                 `yaml:"workers,omitempty"`
	Expected      map[string]Expected `yaml:"expected"`
}

func Load(path string) (*Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Case
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, err
	}
	if len(c.Expected) == 0 {
		return nil, fmt.Errorf("%s: no expectations", path)
	}
	return &c, nil
}

// parseStatus maps an expected status onto a failure reason; succeeded is
// ReasonNone.
func parseStatus(s string) (model.FailureReason, error) {
	if s == "succeeded" || s == "" {
		return model.ReasonNone, nil
	}
	var r model.FailureReason
	if err := r.UnmarshalText([]byte(s)); err != nil {
		return 0, err
	}
	return r, nil
}
