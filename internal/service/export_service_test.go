package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-sa-api/internal/dto"
	"github.com/noah-isme/timetable-sa-api/internal/models"
	appErrors "github.com/noah-isme/timetable-sa-api/pkg/errors"
	"github.com/noah-isme/timetable-sa-api/pkg/signing"
)

type recordStub struct {
	records map[string]*RunRecord
}

func (r recordStub) Record(_ context.Context, id string) (*RunRecord, error) {
	record, ok := r.records[id]
	if !ok {
		return nil, errRunNotFound
	}
	if record.Result == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "run is RUNNING")
	}
	return record, nil
}

func exportRecord() *RunRecord {
	req := dto.SearchRequest{
		Courses: []models.Course{
			{ID: "c1", Name: "Algorithms", InstructorID: "i1"},
			{ID: "c2", Name: "Databases", InstructorID: "i9"},
			{ID: "c3", Name: "", InstructorID: "i2"},
		},
		Timeslots: []models.Timeslot{
			{ID: "t1", Day: "Monday", Time: "09:00"},
			{ID: "t2", Day: "Sunday", Time: "11:00"},
		},
		Rooms:       []models.Room{{ID: "r1", Name: "Hall A", Capacity: 30}, {ID: "r2", Capacity: 10}},
		Instructors: []models.Instructor{{ID: "i1", Name: "Dr. Salem"}, {ID: "i2", Name: "Dr. Noor"}},
		Students: []models.Student{
			{ID: "s1", Name: "Aya", CourseID: "c1", Specialty: "CS"},
			{ID: "s2", Name: "Omar", CourseID: "c1", Specialty: "IS"},
			{ID: "s2", Name: "Omar", CourseID: "c2", Specialty: "IS"},
			{ID: "s3", Name: "Lina", CourseID: "c3"},
			{ID: "s4", Name: "Ghost", CourseID: "c404", Specialty: "CS"},
		},
	}
	result := &dto.SearchResponse{
		RunID:   "run-1",
		Variant: models.SearchVariantHybrid,
		Cost:    12,
		Solution: models.Schedule{
			{Course: "c1", Timeslot: "t1", Room: "r1", InstructorID: "i1"},
			{Course: "c2", Timeslot: "t2", Room: "r2", InstructorID: "i9"},
			{Course: "c3", Timeslot: "t1", Room: "r2", InstructorID: "i2"},
		},
	}
	return &RunRecord{
		Run:     models.SearchRun{ID: "run-1", Status: models.SearchRunStatusCompleted},
		Request: &req,
		Result:  result,
	}
}

func newExportFixture() *ExportService {
	runs := recordStub{records: map[string]*RunRecord{
		"run-1":   exportRecord(),
		"pending": {Run: models.SearchRun{ID: "pending", Status: models.SearchRunStatusRunning}},
	}}
	svc := NewExportService(runs, signing.NewSigner("secret", time.Hour), ExportConfig{APIPrefix: "/api/"}, nil, nil, nil)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC) }
	return svc
}

func TestStudentScheduleDataset(t *testing.T) {
	record := exportRecord()
	dataset := StudentScheduleDataset(*record.Request, record.Result)

	want := []map[string]string{
		{"Student ID": "s1", "Student Name": "Aya", "Specialty": "CS", "Module": "Algorithms", "Exam Day": "Monday", "Time": "09:00", "Classroom": "Hall A", "Instructor": "Dr. Salem"},
		{"Student ID": "s2", "Student Name": "Omar", "Specialty": "IS", "Module": "Algorithms", "Exam Day": "Monday", "Time": "09:00", "Classroom": "Hall A", "Instructor": "Dr. Salem"},
		{"Student ID": "s2", "Student Name": "Omar", "Specialty": "IS", "Module": "Databases", "Exam Day": "Sunday", "Time": "11:00", "Classroom": "r2", "Instructor": "Unknown"},
		{"Student ID": "s3", "Student Name": "Lina", "Specialty": "N/A", "Module": "Unknown", "Exam Day": "Monday", "Time": "09:00", "Classroom": "r2", "Instructor": "Dr. Noor"},
	}
	if diff := cmp.Diff(want, dataset.Rows); diff != "" {
		t.Fatalf("student rows mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "hybrid search, cost 12.00", dataset.Subtitle)
}

func TestTimetableDatasetOrdersAndFilters(t *testing.T) {
	record := exportRecord()

	all := TimetableDataset(*record.Request, record.Result, "all")
	require.Len(t, all.Rows, 3)
	assert.Equal(t, "Databases", all.Rows[0]["Course"])
	assert.Equal(t, "Sunday", all.Rows[0]["Day"])
	assert.Equal(t, "CS, IS", all.Rows[1]["Specialties"])
	assert.Equal(t, "Exam Timetable", all.Title)

	cs := TimetableDataset(*record.Request, record.Result, "CS")
	require.Len(t, cs.Rows, 1)
	assert.Equal(t, "Algorithms", cs.Rows[0]["Course"])
	assert.Equal(t, "Exam Timetable: CS", cs.Title)

	none := TimetableDataset(*record.Request, record.Result, "C")
	assert.Empty(t, none.Rows)
}

func TestTimetableDatasetOrdersByHour(t *testing.T) {
	record := exportRecord()
	req := *record.Request
	req.Timeslots = []models.Timeslot{
		{ID: "t1", Day: "Monday", Time: "10:00"},
		{ID: "t2", Day: "Monday", Time: "9:00"},
		{ID: "t3", Day: "Monday", Time: "TBA"},
	}
	result := *record.Result
	result.Solution = models.Schedule{
		{Course: "c1", Timeslot: "t3", Room: "r1", InstructorID: "i1"},
		{Course: "c2", Timeslot: "t1", Room: "r2", InstructorID: "i9"},
		{Course: "c3", Timeslot: "t2", Room: "r2", InstructorID: "i2"},
	}

	dataset := TimetableDataset(req, &result, "")
	require.Len(t, dataset.Rows, 3)
	times := []string{dataset.Rows[0]["Time"], dataset.Rows[1]["Time"], dataset.Rows[2]["Time"]}
	assert.Equal(t, []string{"9:00", "10:00", "TBA"}, times)
}

func TestSanitizeFilenameKeepsRunesWhole(t *testing.T) {
	specialty := strings.Repeat("é", 60)
	name := sanitizeFilename(specialty)
	assert.True(t, utf8.ValidString(name))
	assert.LessOrEqual(t, len(name), maxFilenameLength)
	assert.Equal(t, strings.Repeat("é", 50), name)

	mixed := "x" + strings.Repeat("日本", 40)
	name = sanitizeFilename(mixed)
	assert.True(t, utf8.ValidString(name))
	assert.True(t, strings.HasPrefix(mixed, name))
	assert.Len(t, name, 1+33*3)

	assert.Equal(t, "Data_Science", sanitizeFilename("Data Science"))
	assert.Equal(t, "na", sanitizeFilename(""))
}

func TestExportServiceRender(t *testing.T) {
	svc := newExportFixture()

	file, err := svc.Render(context.Background(), "run-1", dto.ExportQuery{})
	require.NoError(t, err)
	assert.Equal(t, "student_schedule_hybrid_20250601_103000.csv", file.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Body), "Student ID,Student Name,Specialty"))

	file, err = svc.Render(context.Background(), "run-1", dto.ExportQuery{Format: "pdf", View: "timetable", Specialty: "Data Science"})
	require.NoError(t, err)
	assert.Equal(t, "specialty_timetable_Data_Science_hybrid_20250601_103000.pdf", file.Filename)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Body), "%PDF"))

	_, err = svc.Render(context.Background(), "run-1", dto.ExportQuery{Format: "xlsx"})
	assert.True(t, errors.Is(err, appErrors.ErrMalformedInput))
	_, err = svc.Render(context.Background(), "run-1", dto.ExportQuery{View: "grid"})
	assert.True(t, errors.Is(err, appErrors.ErrMalformedInput))
	_, err = svc.Render(context.Background(), "missing", dto.ExportQuery{})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	_, err = svc.Render(context.Background(), "pending", dto.ExportQuery{})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}

func TestExportServiceSignedLinks(t *testing.T) {
	svc := newExportFixture()

	link, err := svc.Link(context.Background(), "run-1", dto.ExportQuery{Format: "csv", View: "timetable", Specialty: "IS"})
	require.NoError(t, err)
	assert.Equal(t, "/api/exports/"+link.Token, link.URL)

	file, err := svc.Resolve(context.Background(), link.Token)
	require.NoError(t, err)
	assert.Equal(t, "specialty_timetable_IS_hybrid_20250601_103000.csv", file.Filename)

	_, err = svc.Resolve(context.Background(), "not-a-token")
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	_, err = svc.Link(context.Background(), "pending", dto.ExportQuery{})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	offline := NewExportService(nil, nil, ExportConfig{}, nil, nil, nil)
	_, err = offline.Link(context.Background(), "run-1", dto.ExportQuery{})
	assert.True(t, errors.Is(err, appErrors.ErrUnavailable))
	_, err = offline.RenderRecord(exportRecord(), dto.ExportQuery{View: "timetable"})
	assert.NoError(t, err)
}
