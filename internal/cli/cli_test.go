package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-sa-api/internal/models"
	"github.com/noah-isme/timetable-sa-api/internal/timetable"
	"github.com/noah-isme/timetable-sa-api/pkg/dataset"
)

func writeDataset(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		dataset.ModulesFile:     "id,name,instructor_id\nm1,Algorithms,i1\nm2,Algorithms,i1\nm3,Databases,i2\n",
		dataset.TimeslotsFile:   "id,day,time\nt1,Sunday,09:00\nt2,Monday,11:00\nt3,Tuesday,13:00\n",
		dataset.ClassroomsFile:  "id,name,capacity\nr1,Hall A,30\nr2,Lab 2,10\n",
		dataset.InstructorsFile: "id,name\ni1,Dr. Amal\ni2,Dr. Noor\n",
		dataset.StudentsFile:    "id,name,course_id,specialty\ns1,Sara,m1,CS\ns2,Omar,m3,IS\n",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunExportCost(t *testing.T) {
	data := writeDataset(t)
	resultPath := filepath.Join(t.TempDir(), "out", "result.json")

	_, err := execute(t, "run", "--data", data, "--variant", "Hybrid", "--iterations", "200", "--seed", "9", "-o", resultPath)
	require.NoError(t, err)

	raw, err := os.ReadFile(resultPath)
	require.NoError(t, err)
	var saved struct {
		Run struct {
			Status models.SearchRunStatus `json:"status"`
			Seed   int64                  `json:"seed"`
		} `json:"run"`
		Request struct {
			Courses []models.Course `json:"courses"`
		} `json:"request"`
		Result struct {
			Variant  models.SearchVariant `json:"variant"`
			Cost     float64              `json:"cost"`
			Solution models.Schedule      `json:"solution"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &saved))
	assert.Equal(t, models.SearchRunStatusCompleted, saved.Run.Status)
	assert.Equal(t, int64(9), saved.Run.Seed)
	assert.Len(t, saved.Request.Courses, 3)
	assert.Equal(t, models.SearchVariantHybrid, saved.Result.Variant)
	require.Len(t, saved.Result.Solution, 3)

	csvOut, err := execute(t, "export", "--result", resultPath, "--view", "timetable")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(csvOut), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Course,Day,Time,Room,Instructor,Specialties", lines[0])

	exportDir := t.TempDir()
	_, err = execute(t, "export", "--result", resultPath, "--format", "pdf", "--out-dir", exportDir)
	require.NoError(t, err)
	entries, err := os.ReadDir(exportDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "student_schedule_hybrid_"))
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".pdf"))

	costOut, err := execute(t, "cost", "--result", resultPath, "--json")
	require.NoError(t, err)
	var breakdown timetable.CostBreakdown
	require.NoError(t, json.Unmarshal([]byte(costOut), &breakdown))
	assert.InDelta(t, saved.Result.Cost, breakdown.Total, 1e-9)

	table, err := execute(t, "cost", "--result", resultPath, "--data", data)
	require.NoError(t, err)
	assert.Contains(t, table, "room collisions")
	assert.Contains(t, table, "total")
}

func TestRunBothPicksWinner(t *testing.T) {
	data := writeDataset(t)
	resultPath := filepath.Join(t.TempDir(), "compare.json")

	_, err := execute(t, "run", "--data", data, "--variant", "both", "--iterations", "100", "--seed", "3", "-o", resultPath)
	require.NoError(t, err)

	file, err := readResultFile(resultPath)
	require.NoError(t, err)
	require.NotNil(t, file.Traditional)
	require.NotNil(t, file.Hybrid)
	assert.Nil(t, file.RunRecord)

	winner, err := file.pick("")
	require.NoError(t, err)
	assert.Equal(t, file.Winner, winner.Result.Variant)
	assert.InDelta(t, file.Traditional.Result.Cost-file.Hybrid.Result.Cost, file.CostDelta, 1e-9)

	trad, err := file.pick("traditional")
	require.NoError(t, err)
	assert.Equal(t, models.SearchVariantTraditional, trad.Result.Variant)

	_, err = file.pick("greedy")
	assert.Error(t, err)
}

func TestRunRejectsBadFlags(t *testing.T) {
	_, err := execute(t, "run")
	assert.ErrorContains(t, err, "--data is required")

	_, err = execute(t, "run", "--data", t.TempDir(), "--variant", "greedy")
	assert.ErrorContains(t, err, "--variant")

	_, err = execute(t, "run", "--data", t.TempDir())
	assert.ErrorContains(t, err, dataset.ModulesFile)

	_, err = execute(t, "run", "--data", writeDataset(t), "--cooling-rate", "1.5")
	assert.ErrorContains(t, err, "invalid search request")

	_, err = execute(t, "export", "--result", "a.json", "--out", "x", "--out-dir", "y")
	assert.ErrorContains(t, err, "mutually exclusive")

	_, err = execute(t, "run", "--data", writeDataset(t), "--comma", ";;")
	assert.ErrorContains(t, err, "--comma")
}
