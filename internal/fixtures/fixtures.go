// Package fixtures builds small, hand-checked scheduling inputs shared by
// the package tests.
package fixtures

import (
	"fmt"

	"github.com/kilianp07/actsched/core/model"
	"github.com/kilianp07/actsched/core/travel"
)

// Group names used by the fixtures.
const (
	GroupWork    = "work"
	GroupLeisure = "leisure"
	GroupErrand  = "errand"
)

// Groups returns the scoring groups referenced by the fixtures.
func Groups() model.ScoringGroups {
	return model.ScoringGroups{
		GroupWork: {
			Name:          GroupWork,
			Constant:      50,
			FeasibleStart: 480,
			FeasibleEnd:   1020,
		},
		GroupLeisure: {
			Name:          GroupLeisure,
			PenaltyEarly:  0.1,
			PenaltyLate:   0.1,
			PenaltyShort:  0.05,
			PenaltyLong:   0.05,
			TravelPenalty: 0.05,
		},
		GroupErrand: {
			Name:          GroupErrand,
			Constant:      5,
			FeasibleStart: 600,
			FeasibleEnd:   720,
		},
	}
}

// Matrix returns a frozen symmetric car travel matrix between home, office,
// park, cinema, cafe, bank and post.
func Matrix() *travel.Matrix {
	m := travel.NewMatrix()
	set := func(a, b string, minutes float64) {
		for _, pair := range [][2]string{{a, b}, {b, a}} {
			if err := m.Set(pair[0], pair[1], "car", minutes); err != nil {
				panic(fmt.Sprintf("fixture matrix: %v", err))
			}
		}
	}
	set("home", "office", 20)
	set("home", "park", 15)
	set("home", "cinema", 25)
	set("home", "cafe", 10)
	set("office", "park", 30)
	set("office", "cinema", 90)
	set("office", "cafe", 10)
	set("park", "cinema", 60)
	set("park", "cafe", 20)
	set("cinema", "cafe", 70)
	set("home", "bank", 5)
	set("home", "post", 5)
	set("bank", "post", 5)
	m.Freeze()
	return m
}

// Work is a fixed 08:00-17:00 activity at the office.
func Work() model.Activity {
	return model.Activity{
		ID:                "work",
		Type:              "work",
		PreferredStart:    480,
		PreferredDuration: 540,
		MinDuration:       540,
		ScoringGroup:      GroupWork,
		Options:           []model.ActivityOption{{Location: "office", Mode: "car"}},
	}
}

// Leisure prefers 18:00 for two hours. From the office the park is worth
// 10 at 30 minutes, the cinema 12 at 90 minutes and the cafe 8 at 10
// minutes, which makes the park the best choice after work.
func Leisure() model.Activity {
	return model.Activity{
		ID:                "leisure",
		Type:              "leisure",
		PreferredStart:    1080,
		PreferredDuration: 120,
		ScoringGroup:      GroupLeisure,
		Skippable:         true,
		Options: []model.ActivityOption{
			{Location: "park", Mode: "car", Utility: 10},
			{Location: "cinema", Mode: "car", Utility: 12},
			{Location: "cafe", Mode: "car", Utility: 8},
		},
	}
}

// WorkLeisure is a person without a home location doing Work then Leisure.
func WorkLeisure(id string) model.PersonInstance {
	return model.PersonInstance{
		ID:         id,
		DayStart:   0,
		DayEnd:     model.MinutesPerDay,
		TimeBudget: model.MinutesPerDay,
		Activities: []model.Activity{Work(), Leisure()},
	}
}

// Errand is a mandatory two hour activity that must fit in 10:00-12:00.
func Errand(id, location string) model.Activity {
	return model.Activity{
		ID:                id,
		Type:              "errand",
		PreferredStart:    600,
		PreferredDuration: 120,
		MinDuration:       120,
		ScoringGroup:      GroupErrand,
		Options:           []model.ActivityOption{{Location: location, Mode: "car"}},
	}
}

// OverlappingErrands is a person with two mandatory errands competing for
// the same window; no schedule exists.
func OverlappingErrands(id string) model.PersonInstance {
	return model.PersonInstance{
		ID:         id,
		Home:       "home",
		DayStart:   0,
		DayEnd:     model.MinutesPerDay,
		Activities: []model.Activity{Errand("bank", "bank"), Errand("post", "post")},
	}
}

// SingleErrand is a person leaving home for one errand.
func SingleErrand(id string) model.PersonInstance {
	return model.PersonInstance{
		ID:         id,
		Home:       "home",
		DayStart:   0,
		DayEnd:     model.MinutesPerDay,
		Activities: []model.Activity{Errand("bank", "bank")},
	}
}

// Empty is a person without activities.
func Empty(id string) model.PersonInstance {
	return model.PersonInstance{ID: id, DayStart: 0, DayEnd: model.MinutesPerDay}
}

// Malformed references an unknown scoring group.
func Malformed(id string) model.PersonInstance {
	p := WorkLeisure(id)
	p.Activities[1].ScoringGroup = "unknown"
	return p
}
