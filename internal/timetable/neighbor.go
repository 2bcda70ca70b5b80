package timetable

import (
	"math/rand"

	"github.com/noah-isme/timetable-sa-api/internal/models"
)

// NeighborPolicy configures the move mix of a search variant.
type NeighborPolicy struct {
	// SwapProbability is the chance of a swap move; otherwise one entry is reassigned.
	SwapProbability float64
	// SwapRooms also exchanges the rooms of the two swapped entries.
	SwapRooms bool
	// Pool holds the timeslots a reassigned entry may move to.
	Pool []models.Timeslot
}

// TraditionalPolicy mixes swaps and reassignments evenly over every timeslot.
func TraditionalPolicy(timeslots []models.Timeslot) NeighborPolicy {
	return NeighborPolicy{SwapProbability: 0.5, Pool: timeslots}
}

// HybridPolicy favours swaps that carry rooms along and reassigns only into
// preferred timeslots.
func HybridPolicy(timeslots []models.Timeslot, prefs Preferences) NeighborPolicy {
	return NeighborPolicy{SwapProbability: 0.7, SwapRooms: true, Pool: PreferredTimeslots(timeslots, prefs)}
}

// Neighbor proposes perturbed copies of a schedule.
type Neighbor struct {
	catalog   *Catalog
	policy    NeighborPolicy
	timeslots []models.Timeslot
	rooms     []models.Room
}

// NewNeighbor builds a generator. timeslots backs the reassign move when the
// policy pool is empty.
func NewNeighbor(catalog *Catalog, policy NeighborPolicy, timeslots []models.Timeslot, rooms []models.Room) *Neighbor {
	if len(policy.Pool) == 0 {
		policy.Pool = timeslots
	}
	return &Neighbor{catalog: catalog, policy: policy, timeslots: timeslots, rooms: rooms}
}

// Propose returns a mutated clone of current; current is never modified.
func (n *Neighbor) Propose(current models.Schedule, rng *rand.Rand) models.Schedule {
	next := current.Clone()
	if len(next) == 0 {
		return next
	}
	if rng.Float64() < n.policy.SwapProbability {
		n.swap(next, rng)
	} else {
		n.reassign(next, rng)
	}
	return next
}

func (n *Neighbor) swap(s models.Schedule, rng *rand.Rand) {
	i := rng.Intn(len(s))
	j := rng.Intn(len(s))
	tsI, tsJ := s[i].Timeslot, s[j].Timeslot
	s[i].Timeslot, s[j].Timeslot = tsJ, tsI
	if n.policy.SwapRooms {
		s[i].Room, s[j].Room = s[j].Room, s[i].Room
	}
	n.propagate(s, s[i].Course, tsJ)
	n.propagate(s, s[j].Course, tsI)
}

func (n *Neighbor) reassign(s models.Schedule, rng *rand.Rand) {
	i := rng.Intn(len(s))
	if len(n.policy.Pool) > 0 {
		s[i].Timeslot = n.policy.Pool[rng.Intn(len(n.policy.Pool))].ID
	}
	if len(n.rooms) > 0 {
		s[i].Room = n.rooms[rng.Intn(len(n.rooms))].ID
	}
	n.propagate(s, s[i].Course, s[i].Timeslot)
}

// propagate moves every section of courseID's module to timeslot.
func (n *Neighbor) propagate(s models.Schedule, courseID, timeslot models.ID) {
	group, ok := n.catalog.Section(courseID)
	if !ok {
		return
	}
	for k := range s {
		if g, grouped := n.catalog.Section(s[k].Course); grouped && g == group {
			s[k].Timeslot = timeslot
		}
	}
}
