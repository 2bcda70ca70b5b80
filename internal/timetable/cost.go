package timetable

import (
	"math"
	"sort"

	"github.com/noah-isme/timetable-sa-api/internal/models"
)

// Penalty weights.
const (
	RoomCollisionPenalty      = 900
	InstructorClashPenalty    = 900
	TimeslotClashPenalty      = 900
	CapacityPenalty           = 800
	SectionSpreadPenalty      = 900
	UndesirableSlotPenalty    = 200
	StudentOverloadPenalty    = 300
	StudentAdjacencyPenalty   = 50
	maxStudentEntriesPerDay   = 2
	firstUnknownInstructorKey = -2
)

// CostBreakdown itemises the penalty terms of a schedule.
type CostBreakdown struct {
	RoomCollisions     float64 `json:"roomCollisions"`
	InstructorClashes  float64 `json:"instructorClashes"`
	TimeslotClashes    float64 `json:"timeslotClashes"`
	CapacityOverflows  float64 `json:"capacityOverflows"`
	SectionTimeslots   float64 `json:"sectionTimeslots"`
	SectionInstructors float64 `json:"sectionInstructors"`
	UndesirableSlots   float64 `json:"undesirableSlots"`
	StudentOverload    float64 `json:"studentOverload"`
	StudentAdjacency   float64 `json:"studentAdjacency"`
	Hard               float64 `json:"hard"`
	Soft               float64 `json:"soft"`
	Total              float64 `json:"total"`
}

// Evaluator scores schedules against one catalog. It holds no mutable state
// and may be shared between goroutines.
type Evaluator struct {
	catalog *Catalog
}

// NewEvaluator binds an evaluator to a catalog.
func NewEvaluator(catalog *Catalog) *Evaluator {
	return &Evaluator{catalog: catalog}
}

// Cost returns hard plus soft penalty.
func (e *Evaluator) Cost(schedule models.Schedule) float64 {
	return e.Breakdown(schedule).Total
}

type roomSlotKey struct {
	timeslot models.ID
	room     models.ID
}

type instructorSlotKey struct {
	timeslot   models.ID
	instructor models.ID
}

type studentSlot struct {
	day    string
	time   string
	hour   float64
	hourOK bool
}

type sectionUsage struct {
	members     int
	timeslots   map[models.ID]struct{}
	instructors map[models.ID]struct{}
}

// Breakdown evaluates every term independently. Entries referencing unknown
// courses, rooms or timeslots only contribute the terms that can still be
// computed for them.
func (e *Evaluator) Breakdown(schedule models.Schedule) CostBreakdown {
	var b CostBreakdown
	cat := e.catalog

	roomSlots := make(map[roomSlotKey]struct{}, len(schedule))
	instructorSlots := make(map[instructorSlotKey]map[int]struct{}, len(schedule))
	timeslotSections := make(map[models.ID]map[int]struct{})
	sections := make(map[int]*sectionUsage)
	students := make(map[models.ID][]studentSlot)

	for _, entry := range schedule {
		group, grouped := cat.Section(entry.Course)

		rk := roomSlotKey{timeslot: entry.Timeslot, room: entry.Room}
		if _, taken := roomSlots[rk]; taken {
			b.RoomCollisions += RoomCollisionPenalty
		}
		roomSlots[rk] = struct{}{}

		// The same instructor may hold several sections of one module at once.
		ik := instructorSlotKey{timeslot: entry.Timeslot, instructor: entry.InstructorID}
		if seen, ok := instructorSlots[ik]; ok {
			if _, same := seen[group]; !same {
				b.InstructorClashes += InstructorClashPenalty
				seen[group] = struct{}{}
			}
		} else {
			first := group
			if !grouped {
				first = firstUnknownInstructorKey
			}
			instructorSlots[ik] = map[int]struct{}{first: {}}
		}

		ts, tsKnown := cat.Timeslot(entry.Timeslot)
		if tsKnown {
			if cat.prefs.Undesirable(ts) {
				b.UndesirableSlots += UndesirableSlotPenalty
			}
			if grouped {
				names, ok := timeslotSections[entry.Timeslot]
				if !ok {
					timeslotSections[entry.Timeslot] = map[int]struct{}{group: {}}
				} else if _, same := names[group]; !same {
					b.TimeslotClashes += TimeslotClashPenalty
					names[group] = struct{}{}
				}
			}
		}

		enrolled := cat.Enrolled(entry.Course)
		if tsKnown {
			hour, hourOK := cat.hour(entry.Timeslot)
			slot := studentSlot{day: ts.Day, time: ts.Time, hour: hour, hourOK: hourOK}
			for _, studentID := range enrolled {
				students[studentID] = append(students[studentID], slot)
			}
		}

		if grouped {
			usage := sections[group]
			if usage == nil {
				usage = &sectionUsage{
					timeslots:   make(map[models.ID]struct{}),
					instructors: make(map[models.ID]struct{}),
				}
				sections[group] = usage
			}
			usage.members++
			usage.timeslots[entry.Timeslot] = struct{}{}
			usage.instructors[entry.InstructorID] = struct{}{}
		}

		if room, ok := cat.Room(entry.Room); ok && len(enrolled) > int(room.Capacity) {
			b.CapacityOverflows += CapacityPenalty
		}
	}

	for _, usage := range sections {
		if usage.members < 2 {
			continue
		}
		if n := len(usage.timeslots); n > 1 {
			b.SectionTimeslots += SectionSpreadPenalty * float64(n-1)
		}
		if n := len(usage.instructors); n > 1 {
			b.SectionInstructors += SectionSpreadPenalty * float64(n-1)
		}
	}

	for _, slots := range students {
		b.StudentOverload += studentOverload(slots)
		b.StudentAdjacency += studentAdjacency(slots)
	}

	b.Hard = b.RoomCollisions + b.InstructorClashes + b.TimeslotClashes + b.CapacityOverflows + b.SectionTimeslots + b.SectionInstructors
	b.Soft = b.UndesirableSlots + b.StudentOverload + b.StudentAdjacency
	b.Total = b.Hard + b.Soft
	return b
}

func studentOverload(slots []studentSlot) float64 {
	var penalty float64
	perDay := make(map[string]int, len(slots))
	for _, s := range slots {
		perDay[s.day]++
		if perDay[s.day] > maxStudentEntriesPerDay {
			penalty += StudentOverloadPenalty
		}
	}
	return penalty
}

func studentAdjacency(slots []studentSlot) float64 {
	if len(slots) < 2 {
		return 0
	}
	sorted := make([]studentSlot, len(slots))
	copy(sorted, slots)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].day == sorted[j].day {
			return sorted[i].time < sorted[j].time
		}
		return sorted[i].day < sorted[j].day
	})

	var penalty float64
	for i := 1; i < len(sorted); i++ {
		prev, curr := sorted[i-1], sorted[i]
		if prev.day != curr.day || !prev.hourOK || !curr.hourOK {
			continue
		}
		gap := math.Abs(curr.hour - prev.hour)
		if gap > 0 && gap < 1 {
			penalty += StudentAdjacencyPenalty
		}
	}
	return penalty
}
