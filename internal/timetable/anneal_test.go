package timetable

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-sa-api/internal/models"
)

var defaultParams = Params{MaxIterations: 250, InitialTemp: 100, CoolingRate: 0.95}

func TestSearchProperties(t *testing.T) {
	for _, variant := range []models.SearchVariant{models.SearchVariantTraditional, models.SearchVariantHybrid} {
		t.Run(string(variant), func(t *testing.T) {
			in := fixtureInput()
			result, err := Search(context.Background(), variant, in, defaultParams, rand.New(rand.NewSource(42)))
			require.NoError(t, err)

			require.Len(t, result.Solution, len(in.Courses))
			seen := make(map[models.ID]int)
			for i, entry := range result.Solution {
				assert.Equal(t, in.Courses[i].ID, entry.Course)
				seen[entry.Course]++
			}
			for _, course := range in.Courses {
				assert.Equal(t, 1, seen[course.ID])
			}

			require.NotEmpty(t, result.History)
			first := result.History[0]
			assert.Equal(t, 0, first.Iteration)
			assert.Equal(t, defaultParams.InitialTemp, first.Temp)
			assert.Equal(t, result.Stats.InitialCost, first.Cost)

			// iteration-0 seed sample plus i = 0, 10, ..., 240
			assert.Len(t, result.History, 1+25)
			assert.Equal(t, 240, result.History[len(result.History)-1].Iteration)
			for i := 1; i < len(result.History); i++ {
				assert.LessOrEqual(t, result.History[i].Best, result.History[i-1].Best)
				assert.Equal(t, (i-1)*HistoryInterval, result.History[i].Iteration)
			}

			evaluator := NewEvaluator(mustCatalog(in))
			assert.Equal(t, evaluator.Cost(result.Solution), result.Cost)
			assert.Equal(t, result.Cost, result.Breakdown.Total)
			assert.LessOrEqual(t, result.Cost, result.Stats.InitialCost)
			assert.Equal(t, defaultParams.MaxIterations, result.Stats.Iterations)
			assert.InDelta(t, defaultParams.InitialTemp*math.Pow(defaultParams.CoolingRate, float64(defaultParams.MaxIterations)), result.Stats.FinalTemp, 1e-9)
		})
	}
}

func TestSearchIsReproducibleForASeed(t *testing.T) {
	in := fixtureInput()
	a, err := RunHybrid(context.Background(), in, defaultParams, rand.New(rand.NewSource(99)))
	require.NoError(t, err)
	b, err := RunHybrid(context.Background(), in, defaultParams, rand.New(rand.NewSource(99)))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSearchHistoryWhenIterationsNotMultipleOfTen(t *testing.T) {
	params := Params{MaxIterations: 11, InitialTemp: 10, CoolingRate: 0.9}
	result, err := RunTraditional(context.Background(), fixtureInput(), params, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Len(t, result.History, 3)
	assert.Equal(t, []int{0, 0, 10}, []int{result.History[0].Iteration, result.History[1].Iteration, result.History[2].Iteration})
}

func TestSearchHybridStartsFromSeed(t *testing.T) {
	in := fixtureInput()
	seed, err := FeasibleSeed(in.Courses, in.Timeslots, in.Rooms, in.Preferences)
	require.NoError(t, err)
	seedCost := NewEvaluator(mustCatalog(in)).Cost(seed)

	result, err := RunHybrid(context.Background(), in, defaultParams, rand.New(rand.NewSource(8)))
	require.NoError(t, err)
	assert.Equal(t, seedCost, result.Stats.InitialCost)
	assert.LessOrEqual(t, result.Cost, seedCost)
}

func TestSearchClampsAcceptanceAtLowTemperature(t *testing.T) {
	params := Params{MaxIterations: 300, InitialTemp: 100, CoolingRate: 0.5}
	result, err := RunTraditional(context.Background(), fixtureInput(), params, rand.New(rand.NewSource(21)))
	require.NoError(t, err)
	assert.Greater(t, result.Stats.ClampedAcceptances, 0)
	assert.False(t, math.IsNaN(result.Cost))
}

func TestSearchRejectsEmptyDomains(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	noRooms := fixtureInput()
	noRooms.Rooms = nil
	_, err := RunTraditional(context.Background(), noRooms, defaultParams, rng)
	assert.True(t, errors.Is(err, ErrEmptyDomain))

	noSlots := fixtureInput()
	noSlots.Timeslots = []models.Timeslot{}
	_, err = RunHybrid(context.Background(), noSlots, defaultParams, rng)
	assert.True(t, errors.Is(err, ErrEmptyDomain))
}

func TestSearchRejectsBadParams(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	cases := map[string]Params{
		"iterations": {MaxIterations: 0, InitialTemp: 1, CoolingRate: 0.9},
		"temp":       {MaxIterations: 1, InitialTemp: 0, CoolingRate: 0.9},
		"nan temp":   {MaxIterations: 1, InitialTemp: math.NaN(), CoolingRate: 0.9},
		"cooling":    {MaxIterations: 1, InitialTemp: 1, CoolingRate: 1},
	}
	for name, params := range cases {
		_, err := RunTraditional(context.Background(), fixtureInput(), params, rng)
		assert.True(t, errors.Is(err, ErrMalformedInput), name)
	}

	_, err := Search(context.Background(), models.SearchVariant("quantum"), fixtureInput(), defaultParams, rng)
	assert.True(t, errors.Is(err, ErrMalformedInput))

	_, err = RunTraditional(context.Background(), fixtureInput(), defaultParams, nil)
	assert.True(t, errors.Is(err, ErrMalformedInput))
}

func TestSearchRejectsDuplicateCourses(t *testing.T) {
	in := fixtureInput()
	in.Courses = append(in.Courses, in.Courses[0])
	_, err := RunTraditional(context.Background(), in, defaultParams, rand.New(rand.NewSource(1)))
	assert.True(t, errors.Is(err, ErrDuplicateIdentifier))
}

func TestSearchCancelledContextReturnsNoResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := RunTraditional(ctx, fixtureInput(), defaultParams, rand.New(rand.NewSource(1)))
	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearchWithoutCourses(t *testing.T) {
	in := fixtureInput()
	in.Courses = nil
	result, err := RunHybrid(context.Background(), in, Params{MaxIterations: 5, InitialTemp: 1, CoolingRate: 0.5}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Empty(t, result.Solution)
	assert.Zero(t, result.Cost)
}

func TestAcceptanceProbability(t *testing.T) {
	p, clamped := acceptanceProbability(-5, 10)
	assert.Equal(t, 1.0, p)
	assert.False(t, clamped)

	p, clamped = acceptanceProbability(0, 0)
	assert.Equal(t, 1.0, p)
	assert.False(t, clamped)

	p, clamped = acceptanceProbability(10, 10)
	assert.InDelta(t, math.Exp(-1), p, 1e-12)
	assert.False(t, clamped)

	p, clamped = acceptanceProbability(10, 0)
	assert.Zero(t, p)
	assert.True(t, clamped)

	p, clamped = acceptanceProbability(10, MinTemperature/10)
	assert.Zero(t, p)
	assert.True(t, clamped)
}

func TestSearchZeroPreferencesDisablesSlotPenalty(t *testing.T) {
	in := Input{
		Courses:   []models.Course{{ID: "c1", InstructorID: "i1"}},
		Timeslots: []models.Timeslot{{ID: "t1", Day: "Friday", Time: "16:00"}},
		Rooms:     []models.Room{{ID: "r1", Capacity: 10}},
	}
	params := Params{MaxIterations: 5, InitialTemp: 1, CoolingRate: 0.5}

	result, err := RunHybrid(context.Background(), in, params, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Zero(t, result.Breakdown.UndesirableSlots)
	assert.Zero(t, result.Cost)

	in.Preferences = DefaultPreferences()
	result, err = RunHybrid(context.Background(), in, params, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Positive(t, result.Breakdown.UndesirableSlots)
}
