package timetable

import (
	"github.com/noah-isme/timetable-sa-api/internal/models"
)

// PreferredTimeslots drops the timeslots the soft constraints penalise. When
// every timeslot is undesirable the full list is returned so callers always
// have somewhere to place a course.
func PreferredTimeslots(timeslots []models.Timeslot, prefs Preferences) []models.Timeslot {
	valid := make([]models.Timeslot, 0, len(timeslots))
	for _, ts := range timeslots {
		if !prefs.Undesirable(ts) {
			valid = append(valid, ts)
		}
	}
	if len(valid) == 0 {
		return timeslots
	}
	return valid
}

type seedKey struct {
	timeslot   models.ID
	room       models.ID
	instructor models.ID
}

// FeasibleSeed builds a greedy starting schedule. Each course takes the first
// (timeslot, room) pair whose (timeslot, room, instructor) triple is still
// unused; once those run out it falls back to the first preferred timeslot
// and the first room, leaving the resulting conflicts to the search.
func FeasibleSeed(courses []models.Course, timeslots []models.Timeslot, rooms []models.Room, prefs Preferences) (models.Schedule, error) {
	if len(timeslots) == 0 || len(rooms) == 0 {
		return nil, ErrNoCandidateSlots
	}

	valid := PreferredTimeslots(timeslots, prefs)
	used := make(map[seedKey]struct{}, len(courses))
	schedule := make(models.Schedule, 0, len(courses))

	for _, course := range courses {
		entry := models.ScheduleEntry{
			Course:       course.ID,
			Timeslot:     valid[0].ID,
			Room:         rooms[0].ID,
			InstructorID: course.InstructorID,
		}
	search:
		for _, ts := range valid {
			for _, room := range rooms {
				key := seedKey{timeslot: ts.ID, room: room.ID, instructor: course.InstructorID}
				if _, taken := used[key]; taken {
					continue
				}
				used[key] = struct{}{}
				entry.Timeslot = ts.ID
				entry.Room = room.ID
				break search
			}
		}
		schedule = append(schedule, entry)
	}
	return schedule, nil
}
