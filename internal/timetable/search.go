package timetable

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/noah-isme/timetable-sa-api/internal/models"
)

// Input is the structured problem handed to a search. A zero Preferences
// disables the undesirable-slot term and lets the seed use every timeslot.
type Input struct {
	Courses     []models.Course
	Timeslots   []models.Timeslot
	Rooms       []models.Room
	Instructors []models.Instructor
	Students    []models.Student
	Preferences Preferences
}

// RunTraditional anneals from a random timetable with the even move mix.
func RunTraditional(ctx context.Context, in Input, params Params, rng *rand.Rand) (*Result, error) {
	return Search(ctx, models.SearchVariantTraditional, in, params, rng)
}

// RunHybrid anneals from the greedy feasible seed with the swap-heavy move mix.
func RunHybrid(ctx context.Context, in Input, params Params, rng *rand.Rand) (*Result, error) {
	return Search(ctx, models.SearchVariantHybrid, in, params, rng)
}

// Search runs one annealing variant end to end.
func Search(ctx context.Context, variant models.SearchVariant, in Input, params Params, rng *rand.Rand) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: random source is nil", ErrMalformedInput)
	}
	if len(in.Timeslots) == 0 {
		return nil, fmt.Errorf("%w: no timeslots", ErrEmptyDomain)
	}
	if len(in.Rooms) == 0 {
		return nil, fmt.Errorf("%w: no rooms", ErrEmptyDomain)
	}
	catalog, err := NewCatalog(in.Courses, in.Timeslots, in.Rooms, in.Students, in.Preferences)
	if err != nil {
		return nil, err
	}

	var (
		initial models.Schedule
		policy  NeighborPolicy
	)
	switch variant {
	case models.SearchVariantTraditional:
		initial = RandomSchedule(in.Courses, in.Timeslots, in.Rooms, rng)
		policy = TraditionalPolicy(in.Timeslots)
	case models.SearchVariantHybrid:
		initial, err = FeasibleSeed(in.Courses, in.Timeslots, in.Rooms, in.Preferences)
		if err != nil {
			return nil, err
		}
		policy = HybridPolicy(in.Timeslots, in.Preferences)
	default:
		return nil, fmt.Errorf("%w: unknown variant %q", ErrMalformedInput, variant)
	}

	annealer, err := NewAnnealer(params, NewEvaluator(catalog), NewNeighbor(catalog, policy, in.Timeslots, in.Rooms), rng)
	if err != nil {
		return nil, err
	}
	return annealer.Run(ctx, initial)
}

// RandomSchedule places every course in a uniformly random timeslot and room.
func RandomSchedule(courses []models.Course, timeslots []models.Timeslot, rooms []models.Room, rng *rand.Rand) models.Schedule {
	schedule := make(models.Schedule, len(courses))
	for i, course := range courses {
		schedule[i] = models.ScheduleEntry{
			Course:       course.ID,
			Timeslot:     timeslots[rng.Intn(len(timeslots))].ID,
			Room:         rooms[rng.Intn(len(rooms))].ID,
			InstructorID: course.InstructorID,
		}
	}
	return schedule
}
