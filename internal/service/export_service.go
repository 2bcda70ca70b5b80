package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-sa-api/internal/dto"
	"github.com/noah-isme/timetable-sa-api/internal/models"
	"github.com/noah-isme/timetable-sa-api/internal/timetable"
	appErrors "github.com/noah-isme/timetable-sa-api/pkg/errors"
	"github.com/noah-isme/timetable-sa-api/pkg/export"
	"github.com/noah-isme/timetable-sa-api/pkg/signing"
)

// Export views.
const (
	ExportViewStudent   = "student"
	ExportViewTimetable = "timetable"
)

const (
	unknownLabel      = "Unknown"
	noSpecialtyLabel  = "N/A"
	allSpecialties    = "all"
	exportTimeLayout  = "20060102_150405"
	maxFilenameLength = 100
)

var (
	studentScheduleHeaders = []string{"Student ID", "Student Name", "Specialty", "Module", "Exam Day", "Time", "Classroom", "Instructor"}
	timetableHeaders       = []string{"Course", "Day", "Time", "Room", "Instructor", "Specialties"}
	weekdayOrder           = map[string]int{"Sunday": 0, "Monday": 1, "Tuesday": 2, "Wednesday": 3, "Thursday": 4, "Friday": 5, "Saturday": 6}
)

type runRecordReader interface {
	Record(ctx context.Context, id string) (*RunRecord, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders retained runs as student schedules or timetables.
type ExportService struct {
	runs   runRecordReader
	csv    csvRenderer
	pdf    pdfRenderer
	signer *signing.Signer
	logger *zap.Logger
	cfg    ExportConfig
	now    func() time.Time
}

// NewExportService constructs an ExportService. runs and signer may be nil
// for offline rendering through RenderRecord.
func NewExportService(runs runRecordReader, signer *signing.Signer, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{runs: runs, csv: csv, pdf: pdf, signer: signer, logger: logger, cfg: cfg, now: time.Now}
}

// Render exports a completed run.
func (s *ExportService) Render(ctx context.Context, runID string, query dto.ExportQuery) (*ExportFile, error) {
	record, err := s.record(ctx, runID)
	if err != nil {
		return nil, err
	}
	return s.RenderRecord(record, query)
}

// RenderRecord exports an already loaded run.
func (s *ExportService) RenderRecord(record *RunRecord, query dto.ExportQuery) (*ExportFile, error) {
	format, view, err := normalizeExportQuery(query)
	if err != nil {
		return nil, err
	}
	if record == nil || record.Request == nil || record.Result == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "run has no result to export")
	}

	var (
		dataset  export.Dataset
		filename string
	)
	variant := string(record.Result.Variant)
	stamp := s.now().UTC().Format(exportTimeLayout)
	switch view {
	case ExportViewStudent:
		dataset = StudentScheduleDataset(*record.Request, record.Result)
		filename = fmt.Sprintf("student_schedule_%s_%s.%s", variant, stamp, format)
	default:
		specialty := strings.TrimSpace(query.Specialty)
		dataset = TimetableDataset(*record.Request, record.Result, specialty)
		if specialty == "" {
			specialty = allSpecialties
		}
		filename = fmt.Sprintf("specialty_timetable_%s_%s_%s.%s", sanitizeFilename(specialty), variant, stamp, format)
	}

	var body []byte
	if format == export.FormatPDF {
		body, err = s.pdf.Render(dataset)
	} else {
		body, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to render export")
	}
	s.logger.Debug("export rendered",
		zap.String("run_id", record.Run.ID),
		zap.String("view", view),
		zap.String("format", string(format)),
		zap.Int("rows", len(dataset.Rows)),
	)
	return &ExportFile{Filename: filename, ContentType: format.ContentType(), Body: body}, nil
}

// Link issues a signed download URL for a completed run.
func (s *ExportService) Link(ctx context.Context, runID string, query dto.ExportQuery) (*dto.ExportLinkResponse, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "export links are disabled")
	}
	format, view, err := normalizeExportQuery(query)
	if err != nil {
		return nil, err
	}
	if _, err := s.record(ctx, runID); err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(signing.ExportLink{
		RunID:     runID,
		Format:    string(format),
		View:      view,
		Specialty: strings.TrimSpace(query.Specialty),
	})
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to sign export link")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	return &dto.ExportLinkResponse{
		URL:       fmt.Sprintf("%s/exports/%s", prefix, token),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Resolve renders the export a signed token points at.
func (s *ExportService) Resolve(ctx context.Context, token string) (*ExportFile, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "export links are disabled")
	}
	link, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrUnauthorized, err, "invalid or expired export link")
	}
	return s.Render(ctx, link.RunID, dto.ExportQuery{Format: link.Format, View: link.View, Specialty: link.Specialty})
}

func (s *ExportService) record(ctx context.Context, runID string) (*RunRecord, error) {
	if s.runs == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "run store is not configured")
	}
	record, err := s.runs.Record(ctx, runID)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to load run")
	}
	return record, nil
}

func normalizeExportQuery(query dto.ExportQuery) (export.Format, string, error) {
	format, err := export.ParseFormat(query.Format)
	if err != nil {
		return "", "", appErrors.WrapAs(appErrors.ErrMalformedInput, err, err.Error())
	}
	view := strings.ToLower(strings.TrimSpace(query.View))
	switch view {
	case "":
		view = ExportViewStudent
	case ExportViewStudent, ExportViewTimetable:
	default:
		return "", "", appErrors.Clone(appErrors.ErrMalformedInput, fmt.Sprintf("unsupported export view %q", query.View))
	}
	return format, view, nil
}

// exportIndex resolves names for an exported solution.
type exportIndex struct {
	courses     map[models.ID]models.Course
	timeslots   map[models.ID]models.Timeslot
	rooms       map[models.ID]models.Room
	instructors map[models.ID]models.Instructor
	placement   map[models.ID]models.ScheduleEntry
}

func newExportIndex(req dto.SearchRequest, solution models.Schedule) exportIndex {
	idx := exportIndex{
		courses:     make(map[models.ID]models.Course, len(req.Courses)),
		timeslots:   make(map[models.ID]models.Timeslot, len(req.Timeslots)),
		rooms:       make(map[models.ID]models.Room, len(req.Rooms)),
		instructors: make(map[models.ID]models.Instructor, len(req.Instructors)),
		placement:   make(map[models.ID]models.ScheduleEntry, len(solution)),
	}
	for _, c := range req.Courses {
		idx.courses[c.ID] = c
	}
	for _, ts := range req.Timeslots {
		idx.timeslots[ts.ID] = ts
	}
	for _, r := range req.Rooms {
		idx.rooms[r.ID] = r
	}
	for _, i := range req.Instructors {
		idx.instructors[i.ID] = i
	}
	for _, entry := range solution {
		idx.placement[entry.Course] = entry
	}
	return idx
}

func (idx exportIndex) courseName(id models.ID) string {
	if c, ok := idx.courses[id]; ok && c.Name != "" {
		return c.Name
	}
	return unknownLabel
}

func (idx exportIndex) instructorName(id models.ID) string {
	if i, ok := idx.instructors[id]; ok && i.Name != "" {
		return i.Name
	}
	return unknownLabel
}

func (idx exportIndex) roomName(id models.ID) string {
	if r, ok := idx.rooms[id]; ok && r.Name != "" {
		return r.Name
	}
	return id.String()
}

func (idx exportIndex) slot(id models.ID) (string, string) {
	ts, ok := idx.timeslots[id]
	if !ok {
		return unknownLabel, ""
	}
	return ts.Day, ts.Time
}

// StudentScheduleDataset lists, per enrollment row, where and when the
// student sits the exam. Rows for unscheduled courses are skipped.
func StudentScheduleDataset(req dto.SearchRequest, result *dto.SearchResponse) export.Dataset {
	idx := newExportIndex(req, result.Solution)
	rows := make([]map[string]string, 0, len(req.Students))
	for _, student := range req.Students {
		entry, ok := idx.placement[student.CourseID]
		if !ok {
			continue
		}
		specialty := student.Specialty
		if specialty == "" {
			specialty = noSpecialtyLabel
		}
		day, clock := idx.slot(entry.Timeslot)
		rows = append(rows, map[string]string{
			"Student ID":   student.ID.String(),
			"Student Name": student.Name,
			"Specialty":    specialty,
			"Module":       idx.courseName(entry.Course),
			"Exam Day":     day,
			"Time":         clock,
			"Classroom":    idx.roomName(entry.Room),
			"Instructor":   idx.instructorName(entry.InstructorID),
		})
	}
	return export.Dataset{
		Title:    "Student Exam Schedule",
		Subtitle: exportSubtitle(result),
		Headers:  studentScheduleHeaders,
		Rows:     rows,
	}
}

// TimetableDataset lists the placed courses ordered by day and time. A
// non-empty specialty other than "all" keeps only courses with at least one
// enrolled student of that specialty.
func TimetableDataset(req dto.SearchRequest, result *dto.SearchResponse, specialty string) export.Dataset {
	idx := newExportIndex(req, result.Solution)
	specialties := make(map[models.ID][]string)
	seen := make(map[models.ID]map[string]struct{})
	for _, student := range req.Students {
		if student.Specialty == "" {
			continue
		}
		if seen[student.CourseID] == nil {
			seen[student.CourseID] = make(map[string]struct{})
		}
		if _, dup := seen[student.CourseID][student.Specialty]; dup {
			continue
		}
		seen[student.CourseID][student.Specialty] = struct{}{}
		specialties[student.CourseID] = append(specialties[student.CourseID], student.Specialty)
	}

	filter := !strings.EqualFold(specialty, allSpecialties) && specialty != ""
	entries := make([]models.ScheduleEntry, 0, len(result.Solution))
	for _, entry := range result.Solution {
		if filter {
			if _, ok := seen[entry.Course][specialty]; !ok {
				continue
			}
		}
		entries = append(entries, entry)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		di, ti := idx.slot(entries[i].Timeslot)
		dj, tj := idx.slot(entries[j].Timeslot)
		if a, b := dayRank(di), dayRank(dj); a != b {
			return a < b
		}
		return timeBefore(ti, tj)
	})

	rows := make([]map[string]string, 0, len(entries))
	for _, entry := range entries {
		day, clock := idx.slot(entry.Timeslot)
		rows = append(rows, map[string]string{
			"Course":      idx.courseName(entry.Course),
			"Day":         day,
			"Time":        clock,
			"Room":        idx.roomName(entry.Room),
			"Instructor":  idx.instructorName(entry.InstructorID),
			"Specialties": strings.Join(specialties[entry.Course], ", "),
		})
	}

	title := "Exam Timetable"
	if filter {
		title = fmt.Sprintf("Exam Timetable: %s", specialty)
	}
	return export.Dataset{
		Title:    title,
		Subtitle: exportSubtitle(result),
		Headers:  timetableHeaders,
		Rows:     rows,
	}
}

func exportSubtitle(result *dto.SearchResponse) string {
	return fmt.Sprintf("%s search, cost %.2f", result.Variant, result.Cost)
}

func dayRank(day string) int {
	if rank, ok := weekdayOrder[day]; ok {
		return rank
	}
	return len(weekdayOrder)
}

// timeBefore orders "HH[:MM]" labels by hour. Unparseable labels sort after
// parseable ones and compare as strings among themselves.
func timeBefore(a, b string) bool {
	ha, okA := timetable.ParseHour(a)
	hb, okB := timetable.ParseHour(b)
	switch {
	case okA && okB && ha != hb:
		return ha < hb
	case okA != okB:
		return okA
	}
	return a < b
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > maxFilenameLength {
		cut := maxFilenameLength
		for cut > 0 && !utf8.RuneStart(result[cut]) {
			cut--
		}
		return result[:cut]
	}
	return result
}
