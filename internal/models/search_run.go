package models

import "time"

// SearchVariant names an annealing configuration.
type SearchVariant string

const (
	// SearchVariantTraditional starts from a random timetable.
	SearchVariantTraditional SearchVariant = "traditional"
	// SearchVariantHybrid starts from the greedy feasible seed.
	SearchVariantHybrid SearchVariant = "hybrid"
)

// Valid reports whether v is a known variant.
func (v SearchVariant) Valid() bool {
	return v == SearchVariantTraditional || v == SearchVariantHybrid
}

// SearchRunStatus tracks the lifecycle of a run.
type SearchRunStatus string

const (
	SearchRunStatusQueued    SearchRunStatus = "QUEUED"
	SearchRunStatusRunning   SearchRunStatus = "RUNNING"
	SearchRunStatusCompleted SearchRunStatus = "COMPLETED"
	SearchRunStatusFailed    SearchRunStatus = "FAILED"
)

// Terminal reports whether a run has finished, successfully or not.
func (s SearchRunStatus) Terminal() bool {
	return s == SearchRunStatusCompleted || s == SearchRunStatusFailed
}

// SearchRun is the audit record for one search invocation. It carries
// parameters and outcome figures only, never the timetable itself.
type SearchRun struct {
	ID            string          `db:"id" json:"id"`
	Variant       SearchVariant   `db:"variant" json:"variant"`
	Status        SearchRunStatus `db:"status" json:"status"`
	Seed          int64           `db:"seed" json:"seed"`
	MaxIterations int             `db:"max_iterations" json:"max_iterations"`
	InitialTemp   float64         `db:"initial_temp" json:"initial_temp"`
	CoolingRate   float64         `db:"cooling_rate" json:"cooling_rate"`
	CourseCount   int             `db:"course_count" json:"course_count"`
	InitialCost   *float64        `db:"initial_cost" json:"initial_cost,omitempty"`
	BestCost      *float64        `db:"best_cost" json:"best_cost,omitempty"`
	DurationMs    *int64          `db:"duration_ms" json:"duration_ms,omitempty"`
	ErrorMessage  *string         `db:"error_message" json:"error_message,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	CompletedAt   *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// SearchRunFilter narrows audit listings.
type SearchRunFilter struct {
	Variant  SearchVariant
	Status   SearchRunStatus
	Page     int
	PageSize int
}
