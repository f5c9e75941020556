// Package scenario loads batch inputs (persons, scoring groups and the
// travel matrix) from YAML or JSON files.
package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/actsched/core/model"
	"github.com/kilianp07/actsched/core/travel"
)

type OptionDef struct {
	Location string  `yaml:"location" json:"location"`
	Mode     string  `yaml:"mode" json:"mode"`
	Utility  float64 `yaml:"utility" json:"utility"`
}

func (o OptionDef) ToModel() model.ActivityOption {
	return model.ActivityOption{Location: o.Location, Mode: o.Mode, Utility: o.Utility}
}

type ActivityDef struct {
	ID                string      `yaml:"id" json:"id"`
	Type              string      `yaml:"type" json:"type"`
	PreferredStart    Clock       `yaml:"preferred_start" json:"preferred_start"`
	PreferredDuration float64     `yaml:"preferred_duration" json:"preferred_duration"`
	MinDuration       float64     `yaml:"min_duration" json:"min_duration"`
	MaxDuration       float64     `yaml:"max_duration" json:"max_duration"`
	ScoringGroup      string      `yaml:"scoring_group" json:"scoring_group"`
	Skippable         bool        `yaml:"skippable" json:"skippable"`
	Options           []OptionDef `yaml:"options" json:"options"`
}

func (a ActivityDef) ToModel() model.Activity {
	typ := a.Type
	if typ == "" {
		typ = a.ID
	}
	act := model.Activity{
		ID:                a.ID,
		Type:              typ,
		PreferredStart:    float64(a.PreferredStart),
		PreferredDuration: a.PreferredDuration,
		MinDuration:       a.MinDuration,
		MaxDuration:       a.MaxDuration,
		ScoringGroup:      a.ScoringGroup,
		Skippable:         a.Skippable,
	}
	for _, o := range a.Options {
		act.Options = append(act.Options, o.ToModel())
	}
	return act
}

type PersonDef struct {
	ID         string        `yaml:"id" json:"id"`
	Home       string        `yaml:"home" json:"home"`
	DayStart   Clock         `yaml:"day_start" json:"day_start"`
	DayEnd     Clock         `yaml:"day_end" json:"day_end"`
	TimeBudget float64       `yaml:"time_budget" json:"time_budget"`
	Activities []ActivityDef `yaml:"activities" json:"activities"`
}

// ToModel converts the definition. An unset day end means midnight.
func (p PersonDef) ToModel() model.PersonInstance {
	end := float64(p.DayEnd)
	if end == 0 {
		end = model.MinutesPerDay
	}
	person := model.PersonInstance{
		ID:         p.ID,
		Home:       p.Home,
		DayStart:   float64(p.DayStart),
		DayEnd:     end,
		TimeBudget: p.TimeBudget,
	}
	for _, a := range p.Activities {
		person.Activities = append(person.Activities, a.ToModel())
	}
	return person
}

type GroupDef struct {
	Name          string             `yaml:"name" json:"name"`
	Constant      float64            `yaml:"constant" json:"constant"`
	PenaltyEarly  float64            `yaml:"penalty_early" json:"penalty_early"`
	PenaltyLate   float64            `yaml:"penalty_late" json:"penalty_late"`
	PenaltyShort  float64            `yaml:"penalty_short" json:"penalty_short"`
	PenaltyLong   float64            `yaml:"penalty_long" json:"penalty_long"`
	TravelPenalty float64            `yaml:"travel_penalty" json:"travel_penalty"`
	ModeConstants map[string]float64 `yaml:"mode_constants" json:"mode_constants"`
	FeasibleStart Clock              `yaml:"feasible_start" json:"feasible_start"`
	FeasibleEnd   Clock              `yaml:"feasible_end" json:"feasible_end"`
}

func (g GroupDef) ToModel() model.ScoringGroupParameters {
	return model.ScoringGroupParameters{
		Name:          g.Name,
		Constant:      g.Constant,
		PenaltyEarly:  g.PenaltyEarly,
		PenaltyLate:   g.PenaltyLate,
		PenaltyShort:  g.PenaltyShort,
		PenaltyLong:   g.PenaltyLong,
		TravelPenalty: g.TravelPenalty,
		ModeConstants: g.ModeConstants,
		FeasibleStart: float64(g.FeasibleStart),
		FeasibleEnd:   float64(g.FeasibleEnd),
	}
}

type TravelDef struct {
	From    string  `yaml:"from" json:"from"`
	To      string  `yaml:"to" json:"to"`
	Mode    string  `yaml:"mode" json:"mode"`
	Minutes float64 `yaml:"minutes" json:"minutes"`
}

// File is the on-disk layout of a scenario.
type File struct {
	Name          string      `yaml:"name" json:"name"`
	Description   string      `yaml:"description,omitempty" json:"description,omitempty"`
	ScoringGroups []GroupDef  `yaml:"scoring_groups" json:"scoring_groups"`
	Symmetric     bool        `yaml:"symmetric_travel" json:"symmetric_travel"`
	Travel        []TravelDef `yaml:"travel" json:"travel"`
	Persons       []PersonDef `yaml:"persons" json:"persons"`
}

// Scenario holds the in-memory inputs of one batch. Matrix is frozen.
type Scenario struct {
	Name        string
	Description string
	Persons     []model.PersonInstance
	Groups      model.ScoringGroups
	Matrix      *travel.Matrix
}

// ToModel converts the file into batch inputs. Structural problems of the
// shared data (duplicate groups, bad travel entries) are errors here; person
// level problems are left to the formulator so they fail only that person.
func (f File) ToModel() (*Scenario, error) {
	sc := &Scenario{
		Name:        f.Name,
		Description: f.Description,
		Groups:      make(model.ScoringGroups, len(f.ScoringGroups)),
		Matrix:      travel.NewMatrix(),
	}
	for i, g := range f.ScoringGroups {
		if g.Name == "" {
			return nil, fmt.Errorf("scoring group %d: name is required", i)
		}
		if _, dup := sc.Groups[g.Name]; dup {
			return nil, fmt.Errorf("duplicate scoring group %q", g.Name)
		}
		sc.Groups[g.Name] = g.ToModel()
	}
	for i, t := range f.Travel {
		if err := sc.Matrix.Set(t.From, t.To, t.Mode, t.Minutes); err != nil {
			return nil, fmt.Errorf("travel entry %d: %w", i, err)
		}
	}
	if f.Symmetric {
		// explicit reverse legs win over mirrored ones
		for i, t := range f.Travel {
			if containsLeg(f.Travel, t.To, t.From, t.Mode) {
				continue
			}
			if err := sc.Matrix.Set(t.To, t.From, t.Mode, t.Minutes); err != nil {
				return nil, fmt.Errorf("travel entry %d: %w", i, err)
			}
		}
	}
	sc.Matrix.Freeze()
	for _, p := range f.Persons {
		sc.Persons = append(sc.Persons, p.ToModel())
	}
	return sc, nil
}

func containsLeg(legs []TravelDef, from, to, mode string) bool {
	for _, l := range legs {
		if l.From == from && l.To == to && l.Mode == mode {
			return true
		}
	}
	return false
}

// Load reads a scenario file. Files ending in .json are decoded as JSON,
// everything else as YAML.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Decode(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f.ToModel()
}

// Decode parses raw scenario data. Unknown fields are rejected.
func Decode(data []byte, ext string) (*File, error) {
	var f File
	if strings.EqualFold(ext, ".json") {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, err
		}
		return &f, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}
	return &f, nil
}
