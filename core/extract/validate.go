package extract

import (
	"fmt"
	"math"

	"github.com/kilianp07/actsched/core/model"
	"github.com/kilianp07/actsched/core/travel"
)

// Validate checks s against every schedule invariant of person: activities
// and options belong to the person, at most one entry per activity, every
// mandatory activity present, entries inside their time windows and
// duration bounds, no overlap once travel is added, travel times matching
// the provider and the total duration within the time budget. It returns
// nil or an *ExtractionError listing every violation.
//
//gocyclo:ignore
func Validate(person model.PersonInstance, s *model.GeneratedSchedule, provider travel.Provider, groups model.ScoringGroups, opts Options) error {
	opts = opts.WithDefaults()
	tol := opts.TimeTolerance
	var bad []string
	fail := func(format string, args ...any) { bad = append(bad, fmt.Sprintf(format, args...)) }

	if s.PersonID != person.ID {
		fail("schedule belongs to person %q", s.PersonID)
	}
	seen := make(map[string]bool, len(s.Activities))
	for i, sa := range s.Activities {
		a, ok := person.Activity(sa.ActivityID)
		if !ok {
			fail("activity %s is not in the activity set", sa.ActivityID)
			continue
		}
		if seen[a.ID] {
			fail("activity %s scheduled more than once", a.ID)
		}
		seen[a.ID] = true
		if !hasOption(a, sa.Option) {
			fail("activity %s: option %s is not one of its options", a.ID, sa.Option)
		}
		ws, we := person.DayStart, person.DayEnd
		if p, ok := groups.Get(a.ScoringGroup); ok && p.HasWindow() {
			ws, we = math.Max(ws, p.FeasibleStart), math.Min(we, p.FeasibleEnd)
		}
		if sa.Start < ws-tol || sa.End() > we+tol {
			fail("activity %s: [%.2f, %.2f] outside window [%.2f, %.2f]", a.ID, sa.Start, sa.End(), ws, we)
		}
		minDur := math.Max(a.MinDuration, opts.MinActivityDuration)
		if sa.Duration < minDur-tol {
			fail("activity %s: duration %.2f below minimum %.2f", a.ID, sa.Duration, minDur)
		}
		if a.MaxDuration > 0 && sa.Duration > a.MaxDuration+tol {
			fail("activity %s: duration %.2f above maximum %.2f", a.ID, sa.Duration, a.MaxDuration)
		}

		prevEnd, prevLoc := person.DayStart, person.Home
		if i > 0 {
			prev := s.Activities[i-1]
			prevEnd, prevLoc = prev.End(), prev.Option.Location
		}
		want := 0.0
		if prevLoc != "" {
			t, ok := provider.TravelTime(prevLoc, sa.Option.Location, sa.Option.Mode)
			if !ok {
				fail("activity %s: no travel time from %q", a.ID, prevLoc)
			}
			want = t
		}
		if math.Abs(sa.TravelTime-want) > tol {
			fail("activity %s: travel time %.2f, expected %.2f", a.ID, sa.TravelTime, want)
		}
		if sa.Start < prevEnd+want-tol {
			fail("activity %s starts at %.2f before %.2f (previous end plus travel)", a.ID, sa.Start, prevEnd+want)
		}
	}
	if n := len(s.Activities); n > 0 && person.Home != "" {
		last := s.Activities[n-1]
		t, ok := provider.TravelTime(last.Option.Location, person.Home, last.Option.Mode)
		switch {
		case !ok:
			fail("no travel time from %q home", last.Option.Location)
		case math.Abs(s.ReturnTravel-t) > tol:
			fail("return travel %.2f, expected %.2f", s.ReturnTravel, t)
		case last.End()+t > person.DayEnd+tol:
			fail("return home at %.2f after day end %.2f", last.End()+t, person.DayEnd)
		}
	}
	for _, a := range person.Activities {
		if a.Mandatory() && !seen[a.ID] {
			fail("mandatory activity %s missing", a.ID)
		}
	}
	if budget := person.TimeBudget; budget > 0 && s.TotalDuration() > budget+tol {
		fail("total duration %.2f exceeds time budget %.2f", s.TotalDuration(), budget)
	}
	if len(bad) > 0 {
		return &ExtractionError{PersonID: person.ID, Violations: bad}
	}
	return nil
}

func hasOption(a model.Activity, o model.ActivityOption) bool {
	for _, c := range a.Options {
		if c == o {
			return true
		}
	}
	return false
}
