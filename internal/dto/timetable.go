package dto

import (
	"time"

	"github.com/noah-isme/timetable-sa-api/internal/models"
	"github.com/noah-isme/timetable-sa-api/internal/timetable"
)

// SearchParams tunes one annealing run.
type SearchParams struct {
	MaxIterations int     `json:"maxIterations" validate:"required,min=1"`
	InitialTemp   float64 `json:"initialTemp" validate:"required,gt=0"`
	CoolingRate   float64 `json:"coolingRate" validate:"required,gt=0,lt=1"`
	Seed          *int64  `json:"seed,omitempty"`
}

// SearchRequest is the problem posted to either search endpoint. Every
// collection must be present; an empty timeslot or room list is rejected
// later as an empty domain.
type SearchRequest struct {
	Courses     []models.Course     `json:"courses" validate:"required,dive"`
	Timeslots   []models.Timeslot   `json:"timeslots" validate:"required,dive"`
	Rooms       []models.Room       `json:"rooms" validate:"required,dive"`
	Instructors []models.Instructor `json:"instructors" validate:"required"`
	Students    []models.Student    `json:"students" validate:"required"`
	Params      *SearchParams       `json:"params" validate:"required"`
}

// SearchResponse is a finished run.
type SearchResponse struct {
	RunID      string                  `json:"runId"`
	Variant    models.SearchVariant    `json:"variant"`
	Seed       int64                   `json:"seed"`
	Solution   models.Schedule         `json:"solution"`
	Cost       float64                 `json:"cost"`
	History    []models.HistoryPoint   `json:"history"`
	Breakdown  timetable.CostBreakdown `json:"breakdown"`
	Stats      timetable.Stats         `json:"stats"`
	DurationMs int64                   `json:"durationMs"`
}

// CompareResponse holds both variants run on the same problem and seed.
type CompareResponse struct {
	Traditional *SearchResponse      `json:"traditional"`
	Hybrid      *SearchResponse      `json:"hybrid"`
	Winner      models.SearchVariant `json:"winner"`
	CostDelta   float64              `json:"costDelta"`
}

// JobResponse acknowledges an asynchronous search.
type JobResponse struct {
	RunID     string                 `json:"runId"`
	Variant   models.SearchVariant   `json:"variant"`
	Status    models.SearchRunStatus `json:"status"`
	StatusURL string                 `json:"statusUrl"`
}

// RunView is a retained run with its result once finished.
type RunView struct {
	Run    models.SearchRun `json:"run"`
	Result *SearchResponse  `json:"result,omitempty"`
}

// RunListQuery filters the run audit log.
type RunListQuery struct {
	Variant  string `form:"variant" validate:"omitempty,oneof=traditional hybrid"`
	Status   string `form:"status" validate:"omitempty,oneof=QUEUED RUNNING COMPLETED FAILED"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"page_size" validate:"omitempty,min=1,max=100"`
}

// ExportQuery selects what to render for a run.
type ExportQuery struct {
	Format    string `form:"format" json:"format" validate:"omitempty,oneof=csv pdf"`
	View      string `form:"view" json:"view" validate:"omitempty,oneof=student timetable"`
	Specialty string `form:"specialty" json:"specialty"`
}

// ExportLinkResponse is a signed download URL.
type ExportLinkResponse struct {
	URL       string    `json:"url"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
