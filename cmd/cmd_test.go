package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgPath, scenarioPath, outputFormat, holdMetrics = "", "", "table", false
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, "validate", "-s", filepath.Join("testdata", "commute.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, `scenario "commute": 2 persons ok`)

	out, err = execute(t, "validate", "-s", filepath.Join("testdata", "malformed.yaml"))
	assert.ErrorContains(t, err, "1 of 2 persons")
	assert.Contains(t, out, "broken:")
	assert.NotContains(t, out, "ok:")
}

func TestRunCommand_JSON(t *testing.T) {
	out, err := execute(t, "run", "-s", filepath.Join("testdata", "commute.yaml"), "-o", "json")
	require.NoError(t, err)

	var doc struct {
		RunID string `json:"run_id"`
		Rows  []struct {
			PersonID string  `json:"person_id"`
			Location string  `json:"location"`
			Start    float64 `json:"start"`
		} `json:"rows"`
		Failed map[string]string `json:"failed"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.NotEmpty(t, doc.RunID)
	require.Len(t, doc.Rows, 2)
	assert.Equal(t, "office", doc.Rows[0].Location)
	assert.Equal(t, "park", doc.Rows[1].Location)
	assert.Contains(t, doc.Failed, "errands")
}

func TestRunCommand_Table(t *testing.T) {
	out, err := execute(t, "run", "-s", filepath.Join("testdata", "commute.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "PERSON")
	assert.Contains(t, out, "18:00")
	assert.Contains(t, out, "1 of 2 schedules generated")
}

func TestRunCommand_CSV(t *testing.T) {
	out, err := execute(t, "run", "-s", filepath.Join("testdata", "commute.yaml"), "-o", "csv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "person_id,activity_id"))
	assert.Contains(t, lines[2], ",leisure,park,car,")
	assert.True(t, strings.HasSuffix(lines[3], ",INFEASIBLE"))
}

func TestRunCommand_MATSim(t *testing.T) {
	out, err := execute(t, "run", "-s", filepath.Join("testdata", "commute.yaml"), "-o", "matsim")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, `<person id="worker">`)
	assert.Contains(t, out, `facility="park" start_time="18:00:00" end_time="20:00:00"`)
	assert.Contains(t, out, `<leg mode="car" trav_time="00:30:00"></leg>`)
	assert.NotContains(t, out, "errands")
}

func TestRunCommand_Errors(t *testing.T) {
	_, err := execute(t, "run")
	assert.ErrorContains(t, err, "scenario file is required")

	_, err = execute(t, "run", "-s", "x.yaml", "-o", "xml")
	assert.ErrorContains(t, err, "unknown output format")

	_, err = execute(t, "run", "-c", "missing.yaml", "-s", filepath.Join("testdata", "commute.yaml"))
	assert.ErrorContains(t, err, "load config")
}
