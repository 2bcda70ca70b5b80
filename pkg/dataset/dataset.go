// Package dataset reads the five CSV tables that describe an exam session:
// Modules, Timeslots, Classrooms, Instructors and Students.
package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"go.uber.org/multierr"

	"github.com/noah-isme/timetable-sa-api/internal/models"
)

// File names expected inside a dataset directory.
const (
	ModulesFile     = "Modules.csv"
	TimeslotsFile   = "Timeslots.csv"
	ClassroomsFile  = "Classrooms.csv"
	InstructorsFile = "Instructors.csv"
	StudentsFile    = "Students.csv"
)

// Dataset is one exam session problem.
type Dataset struct {
	Courses     []models.Course     `json:"courses"`
	Timeslots   []models.Timeslot   `json:"timeslots"`
	Rooms       []models.Room       `json:"rooms"`
	Instructors []models.Instructor `json:"instructors"`
	Students    []models.Student    `json:"students"`
}

// Loader decodes CSV tables with a configurable delimiter.
type Loader struct {
	Comma rune
}

// NewLoader returns a comma-separated loader.
func NewLoader() *Loader {
	return &Loader{Comma: ','}
}

// LoadDir reads every table from dir. Instructors.csv and Students.csv are
// optional; the other three are required. All problems are reported together.
func (l *Loader) LoadDir(dir string) (*Dataset, error) {
	ds := &Dataset{}
	var errs error
	errs = multierr.Append(errs, l.loadFile(filepath.Join(dir, ModulesFile), &ds.Courses, true))
	errs = multierr.Append(errs, l.loadFile(filepath.Join(dir, TimeslotsFile), &ds.Timeslots, true))
	errs = multierr.Append(errs, l.loadFile(filepath.Join(dir, ClassroomsFile), &ds.Rooms, true))
	errs = multierr.Append(errs, l.loadFile(filepath.Join(dir, InstructorsFile), &ds.Instructors, false))
	errs = multierr.Append(errs, l.loadFile(filepath.Join(dir, StudentsFile), &ds.Students, false))
	if errs != nil {
		return nil, errs
	}
	return ds, nil
}

// Courses decodes Modules.csv content.
func (l *Loader) Courses(r io.Reader) ([]models.Course, error) {
	var out []models.Course
	return out, l.decode(r, &out)
}

// Timeslots decodes Timeslots.csv content.
func (l *Loader) Timeslots(r io.Reader) ([]models.Timeslot, error) {
	var out []models.Timeslot
	return out, l.decode(r, &out)
}

// Rooms decodes Classrooms.csv content.
func (l *Loader) Rooms(r io.Reader) ([]models.Room, error) {
	var out []models.Room
	return out, l.decode(r, &out)
}

// Instructors decodes Instructors.csv content.
func (l *Loader) Instructors(r io.Reader) ([]models.Instructor, error) {
	var out []models.Instructor
	return out, l.decode(r, &out)
}

// Students decodes Students.csv content.
func (l *Loader) Students(r io.Reader) ([]models.Student, error) {
	var out []models.Student
	return out, l.decode(r, &out)
}

func (l *Loader) loadFile(path string, out interface{}, required bool) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	if err := l.decode(f, out); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (l *Loader) decode(r io.Reader, out interface{}) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.Comma = l.comma()
	reader.TrimLeadingSpace = true
	return gocsv.UnmarshalCSV(reader, out)
}

func (l *Loader) comma() rune {
	if l == nil || l.Comma == 0 {
		return ','
	}
	return l.Comma
}
