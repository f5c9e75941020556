// Package export writes batch results as JSON documents, CSV tables or
// MATSim population plans.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/kilianp07/actsched/core/batch"
	"github.com/kilianp07/actsched/core/model"
)

// Document is the JSON form of a batch result.
type Document struct {
	RunID  string                         `json:"run_id"`
	Rows   []batch.Row                    `json:"rows"`
	Failed map[string]model.FailureReason `json:"failed"`
}

// WriteJSON writes the scheduled rows and failure reasons of res to w.
func WriteJSON(w io.Writer, res *batch.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Document{RunID: res.RunID, Rows: res.Rows(), Failed: res.Failed()})
}

// CSVHeader is the first record written by WriteCSV.
var CSVHeader = []string{"person_id", "activity_id", "type", "location", "mode", "start", "duration", "travel_time", "status"}

// WriteCSV writes one record per scheduled activity, followed by one record
// per failed person carrying its failure reason in the status column.
func WriteCSV(w io.Writer, res *batch.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range res.Rows() {
		rec := []string{
			r.PersonID,
			r.ActivityID,
			r.Type,
			r.Location,
			r.Mode,
			formatMinutes(r.Start),
			formatMinutes(r.Duration),
			formatMinutes(r.TravelTime),
			model.ReasonNone.String(),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	for _, id := range res.PersonIDs() {
		j := res.Jobs[id]
		if j.Schedule != nil {
			continue
		}
		if err := cw.Write([]string{id, "", "", "", "", "", "", "", j.Reason.String()}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatMinutes(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
