package timetable

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/timetable-sa-api/internal/models"
)

// Preferences name the slots the soft constraints push away from.
type Preferences struct {
	LowPreferenceDay string
	LateHourPrefixes []string
}

// DefaultPreferences discourages Friday and the 16:00/17:00 bands.
func DefaultPreferences() Preferences {
	return Preferences{
		LowPreferenceDay: "Friday",
		LateHourPrefixes: []string{"16:", "17:"},
	}
}

// Undesirable reports whether ts falls on the low-preference day or in a late band.
func (p Preferences) Undesirable(ts models.Timeslot) bool {
	if p.LowPreferenceDay != "" && ts.Day == p.LowPreferenceDay {
		return true
	}
	for _, prefix := range p.LateHourPrefixes {
		if prefix != "" && strings.Contains(ts.Time, prefix) {
			return true
		}
	}
	return false
}

// noSection marks a course without a section group (unknown or unnamed).
const noSection = -1

type slotInfo struct {
	timeslot models.Timeslot
	hour     float64
	hourOK   bool
}

// Catalog is the immutable lookup table for one search invocation.
type Catalog struct {
	prefs     Preferences
	courses   map[models.ID]models.Course
	timeslots map[models.ID]slotInfo
	rooms     map[models.ID]models.Room
	section   map[models.ID]int
	sections  []string
	enrolled  map[models.ID][]models.ID
}

// NewCatalog indexes the input collections. Courses, timeslots and rooms
// must have unique ids; students may repeat (one row per enrollment).
func NewCatalog(courses []models.Course, timeslots []models.Timeslot, rooms []models.Room, students []models.Student, prefs Preferences) (*Catalog, error) {
	c := &Catalog{
		prefs:     prefs,
		courses:   make(map[models.ID]models.Course, len(courses)),
		timeslots: make(map[models.ID]slotInfo, len(timeslots)),
		rooms:     make(map[models.ID]models.Room, len(rooms)),
		section:   make(map[models.ID]int, len(courses)),
		enrolled:  make(map[models.ID][]models.ID),
	}

	sectionByName := make(map[string]int)
	for _, course := range courses {
		if _, dup := c.courses[course.ID]; dup {
			return nil, fmt.Errorf("%w: course %q", ErrDuplicateIdentifier, course.ID)
		}
		c.courses[course.ID] = course
		if course.Name == "" {
			c.section[course.ID] = noSection
			continue
		}
		group, ok := sectionByName[course.Name]
		if !ok {
			group = len(c.sections)
			sectionByName[course.Name] = group
			c.sections = append(c.sections, course.Name)
		}
		c.section[course.ID] = group
	}

	for _, ts := range timeslots {
		if _, dup := c.timeslots[ts.ID]; dup {
			return nil, fmt.Errorf("%w: timeslot %q", ErrDuplicateIdentifier, ts.ID)
		}
		hour, ok := ParseHour(ts.Time)
		c.timeslots[ts.ID] = slotInfo{timeslot: ts, hour: hour, hourOK: ok}
	}

	for _, room := range rooms {
		if _, dup := c.rooms[room.ID]; dup {
			return nil, fmt.Errorf("%w: room %q", ErrDuplicateIdentifier, room.ID)
		}
		c.rooms[room.ID] = room
	}

	for _, student := range students {
		c.enrolled[student.CourseID] = append(c.enrolled[student.CourseID], student.ID)
	}

	return c, nil
}

// Preferences returns the soft-constraint preferences the catalog was built with.
func (c *Catalog) Preferences() Preferences { return c.prefs }

// Course looks up a course by id.
func (c *Catalog) Course(id models.ID) (models.Course, bool) {
	course, ok := c.courses[id]
	return course, ok
}

// Timeslot looks up a timeslot by id.
func (c *Catalog) Timeslot(id models.ID) (models.Timeslot, bool) {
	info, ok := c.timeslots[id]
	return info.timeslot, ok
}

// Room looks up a room by id.
func (c *Catalog) Room(id models.ID) (models.Room, bool) {
	room, ok := c.rooms[id]
	return room, ok
}

// Section returns the section group of a course and whether it has one.
func (c *Catalog) Section(courseID models.ID) (int, bool) {
	group, ok := c.section[courseID]
	if !ok || group == noSection {
		return noSection, false
	}
	return group, true
}

// SectionName returns the display name shared by a section group.
func (c *Catalog) SectionName(group int) string {
	if group < 0 || group >= len(c.sections) {
		return ""
	}
	return c.sections[group]
}

// Enrolled returns the student ids enrolled in a course.
func (c *Catalog) Enrolled(courseID models.ID) []models.ID {
	return c.enrolled[courseID]
}

func (c *Catalog) hour(id models.ID) (float64, bool) {
	info, ok := c.timeslots[id]
	if !ok {
		return 0, false
	}
	return info.hour, info.hourOK
}

// ParseHour reads "HH" or "HH:MM" into fractional hours.
func ParseHour(label string) (float64, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return 0, false
	}
	hourPart, minutePart, hasMinutes := strings.Cut(label, ":")
	hour, err := strconv.Atoi(strings.TrimSpace(hourPart))
	if err != nil {
		return 0, false
	}
	value := float64(hour)
	if hasMinutes {
		digits := minutePart
		if len(digits) > 2 {
			digits = digits[:2]
		}
		if minutes, err := strconv.Atoi(digits); err == nil && minutes >= 0 && minutes < 60 {
			value += float64(minutes) / 60
		}
	}
	return value, true
}
