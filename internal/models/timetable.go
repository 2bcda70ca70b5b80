package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ID is an identifier accepted from JSON as either a string or a number.
// CSV-sourced clients send every field as a string while hand-written payloads
// tend to use numbers; both normalise to the same string form.
type ID string

// UnmarshalJSON accepts `"12"`, `12` and `null`.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("identifier must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// UnmarshalCSV trims surrounding whitespace from a CSV cell.
func (id *ID) UnmarshalCSV(raw string) error {
	*id = ID(strings.TrimSpace(raw))
	return nil
}

// String returns the raw identifier.
func (id ID) String() string { return string(id) }

// Capacity is a seat count accepted from JSON as a number or numeric string.
type Capacity int

// UnmarshalJSON accepts `30`, `"30"` and `30.0`.
func (c *Capacity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = 0
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	return c.UnmarshalCSV(raw)
}

// UnmarshalCSV parses a decimal seat count; an empty cell is zero.
func (c *Capacity) UnmarshalCSV(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		*c = 0
		return nil
	}
	if v, err := strconv.Atoi(raw); err == nil {
		*c = Capacity(v)
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("capacity %q is not numeric", raw)
	}
	*c = Capacity(int(f))
	return nil
}

// Course is a schedulable unit. Courses sharing a Name are sections of the
// same module and are meant to sit in one timeslot with one instructor.
type Course struct {
	ID           ID     `json:"id" csv:"id" validate:"required"`
	Name         string `json:"name" csv:"name"`
	InstructorID ID     `json:"instructor_id" csv:"instructor_id"`
}

// Timeslot is a day/time pair. Time is hour-prefixed, e.g. "16:00".
type Timeslot struct {
	ID   ID     `json:"id" csv:"id" validate:"required"`
	Day  string `json:"day" csv:"day"`
	Time string `json:"time" csv:"time"`
}

// Room is an exam room with a seat capacity.
type Room struct {
	ID       ID       `json:"id" csv:"id" validate:"required"`
	Name     string   `json:"name,omitempty" csv:"name"`
	Capacity Capacity `json:"capacity" csv:"capacity"`
}

// Instructor is carried through to exports only.
type Instructor struct {
	ID   ID     `json:"id" csv:"id"`
	Name string `json:"name,omitempty" csv:"name"`
}

// Student is one enrollment row. A student enrolled in several courses
// appears once per course with the same ID.
type Student struct {
	ID        ID     `json:"id" csv:"id"`
	Name      string `json:"name,omitempty" csv:"name"`
	CourseID  ID     `json:"course_id" csv:"course_id"`
	Specialty string `json:"specialty,omitempty" csv:"specialty"`
}

// ScheduleEntry places one course.
type ScheduleEntry struct {
	Course       ID `json:"course"`
	Timeslot     ID `json:"timeslot"`
	Room         ID `json:"room"`
	InstructorID ID `json:"instructor_id"`
}

// Schedule holds one entry per course, index-aligned with the course list.
type Schedule []ScheduleEntry

// Clone returns an independent copy.
func (s Schedule) Clone() Schedule {
	if s == nil {
		return nil
	}
	out := make(Schedule, len(s))
	copy(out, s)
	return out
}

// HistoryPoint is one sample of the annealing trace.
type HistoryPoint struct {
	Iteration int     `json:"iteration"`
	Cost      float64 `json:"cost"`
	Temp      float64 `json:"temp"`
	Best      float64 `json:"best"`
}
