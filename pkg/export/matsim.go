package export

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/kilianp07/actsched/core/batch"
	"github.com/kilianp07/actsched/core/model"
)

// HomeActivity is the activity type of the home stays that open and close a
// plan.
const HomeActivity = "home"

const matsimDoctype = `<!DOCTYPE population SYSTEM "http://www.matsim.org/files/dtd/population_v6.dtd">`

type matsimPopulation struct {
	XMLName xml.Name       `xml:"population"`
	Persons []matsimPerson `xml:"person"`
}

type matsimPerson struct {
	ID   string     `xml:"id,attr"`
	Plan matsimPlan `xml:"plan"`
}

type matsimPlan struct {
	Selected string          `xml:"selected,attr"`
	Elements []matsimElement `xml:",any"`
}

// matsimElement is either an activity or a leg; XMLName picks which.
type matsimElement struct {
	XMLName  xml.Name
	Type     string `xml:"type,attr,omitempty"`
	Facility string `xml:"facility,attr,omitempty"`
	Start    string `xml:"start_time,attr,omitempty"`
	End      string `xml:"end_time,attr,omitempty"`
	Mode     string `xml:"mode,attr,omitempty"`
	TravTime string `xml:"trav_time,attr,omitempty"`
}

// WriteMATSimPlans writes the generated schedules of res as a MATSim
// population file. homes maps person ids to their home location; persons
// with a home get a home stay before the first and after the last trip.
// Failed persons are not written.
func WriteMATSimPlans(w io.Writer, res *batch.Result, homes map[string]string) error {
	pop := matsimPopulation{}
	for _, id := range res.PersonIDs() {
		j := res.Jobs[id]
		if j.Schedule == nil {
			continue
		}
		pop.Persons = append(pop.Persons, matsimPerson{
			ID:   id,
			Plan: matsimPlan{Selected: "yes", Elements: planElements(j.Schedule, homes[id])},
		})
	}
	if _, err := io.WriteString(w, xml.Header+matsimDoctype+"\n"); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(pop); err != nil {
		return fmt.Errorf("encode plans: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func planElements(s *model.GeneratedSchedule, home string) []matsimElement {
	acts := append([]model.ScheduledActivity(nil), s.Activities...)
	sort.SliceStable(acts, func(i, j int) bool { return acts[i].Start < acts[j].Start })

	var out []matsimElement
	if home != "" {
		first := matsimElement{XMLName: xml.Name{Local: "activity"}, Type: HomeActivity, Facility: home}
		if len(acts) > 0 {
			first.End = matsimTime(acts[0].Start - acts[0].TravelTime)
		}
		out = append(out, first)
	}
	for i, a := range acts {
		if home != "" || i > 0 {
			out = append(out, leg(a.Option.Mode, a.TravelTime))
		}
		out = append(out, matsimElement{
			XMLName:  xml.Name{Local: "activity"},
			Type:     a.Type,
			Facility: a.Option.Location,
			Start:    matsimTime(a.Start),
			End:      matsimTime(a.End()),
		})
	}
	if home != "" && len(acts) > 0 {
		last := acts[len(acts)-1]
		out = append(out,
			leg(last.Option.Mode, s.ReturnTravel),
			matsimElement{
				XMLName:  xml.Name{Local: "activity"},
				Type:     HomeActivity,
				Facility: home,
				Start:    matsimTime(last.End() + s.ReturnTravel),
			})
	}
	return out
}

func leg(mode string, minutes float64) matsimElement {
	return matsimElement{XMLName: xml.Name{Local: "leg"}, Mode: mode, TravTime: matsimTime(minutes)}
}

// matsimTime formats minutes after midnight as HH:MM:SS. Hours go past 23
// for times after midnight, as MATSim expects.
func matsimTime(minutes float64) string {
	sec := int(math.Round(minutes * 60))
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, sec/60%60, sec%60)
}
