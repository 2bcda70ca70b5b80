package timetable

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/noah-isme/timetable-sa-api/internal/models"
)

const (
	// MinTemperature is the floor below which worsening moves are never accepted.
	MinTemperature = 1e-12
	// HistoryInterval is the sampling stride of the history trace.
	HistoryInterval = 10
)

// Params tunes one annealing run.
type Params struct {
	MaxIterations int
	InitialTemp   float64
	CoolingRate   float64
}

// Validate checks that the parameters describe a runnable schedule.
func (p Params) Validate() error {
	if p.MaxIterations <= 0 {
		return fmt.Errorf("%w: maxIterations must be positive", ErrMalformedInput)
	}
	if !(p.InitialTemp > 0) || math.IsInf(p.InitialTemp, 0) {
		return fmt.Errorf("%w: initialTemp must be a positive number", ErrMalformedInput)
	}
	if !(p.CoolingRate > 0 && p.CoolingRate < 1) {
		return fmt.Errorf("%w: coolingRate must be in (0, 1)", ErrMalformedInput)
	}
	return nil
}

// Stats summarises what happened during a run.
type Stats struct {
	Iterations         int     `json:"iterations"`
	Accepted           int     `json:"accepted"`
	Improvements       int     `json:"improvements"`
	ClampedAcceptances int     `json:"clampedAcceptances"`
	InitialCost        float64 `json:"initialCost"`
	FinalTemp          float64 `json:"finalTemp"`
}

// Result is the outcome of a completed run.
type Result struct {
	Solution  models.Schedule       `json:"solution"`
	Cost      float64               `json:"cost"`
	History   []models.HistoryPoint `json:"history"`
	Breakdown CostBreakdown         `json:"breakdown"`
	Stats     Stats                 `json:"stats"`
}

// Annealer drives the propose/evaluate/accept/cool loop. It owns current,
// best and temperature for the duration of Run and is not safe for
// concurrent use.
type Annealer struct {
	params    Params
	evaluator *Evaluator
	neighbor  *Neighbor
	rng       *rand.Rand
}

// NewAnnealer wires the driver.
func NewAnnealer(params Params, evaluator *Evaluator, neighbor *Neighbor, rng *rand.Rand) (*Annealer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: random source is nil", ErrMalformedInput)
	}
	return &Annealer{params: params, evaluator: evaluator, neighbor: neighbor, rng: rng}, nil
}

// Run anneals from initial for exactly MaxIterations steps. A cancelled
// context aborts the run and no partial result is returned.
func (a *Annealer) Run(ctx context.Context, initial models.Schedule) (*Result, error) {
	current := initial.Clone()
	currentCost := a.evaluator.Cost(current)
	best := current.Clone()
	bestCost := currentCost
	temperature := a.params.InitialTemp

	stats := Stats{InitialCost: currentCost}
	history := make([]models.HistoryPoint, 0, a.params.MaxIterations/HistoryInterval+2)
	history = append(history, models.HistoryPoint{Iteration: 0, Cost: currentCost, Temp: temperature, Best: bestCost})

	for i := 0; i < a.params.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		candidate := a.neighbor.Propose(current, a.rng)
		candidateCost := a.evaluator.Cost(candidate)
		delta := candidateCost - currentCost

		accept := delta < 0
		if !accept {
			p, clamped := acceptanceProbability(delta, temperature)
			if clamped {
				stats.ClampedAcceptances++
			}
			accept = p > 0 && a.rng.Float64() < p
		}

		if accept {
			current = candidate
			currentCost = candidateCost
			stats.Accepted++
			if currentCost < bestCost {
				best = current.Clone()
				bestCost = currentCost
				stats.Improvements++
			}
		}

		temperature *= a.params.CoolingRate

		if i%HistoryInterval == 0 {
			history = append(history, models.HistoryPoint{Iteration: i, Cost: currentCost, Temp: temperature, Best: bestCost})
		}
	}

	stats.Iterations = a.params.MaxIterations
	stats.FinalTemp = temperature

	return &Result{
		Solution:  best,
		Cost:      bestCost,
		History:   history,
		Breakdown: a.evaluator.Breakdown(best),
		Stats:     stats,
	}, nil
}

// acceptanceProbability is the Metropolis criterion for a non-improving move.
// Equal-cost moves are always accepted. Once the temperature has decayed
// below MinTemperature, or the exponent is not finite, worsening moves get
// probability 0 and clamped reports true.
func acceptanceProbability(delta, temperature float64) (p float64, clamped bool) {
	if delta <= 0 {
		return 1, false
	}
	if temperature < MinTemperature {
		return 0, true
	}
	exponent := -delta / temperature
	if math.IsNaN(exponent) || math.IsInf(exponent, 0) {
		return 0, true
	}
	return math.Exp(exponent), false
}
