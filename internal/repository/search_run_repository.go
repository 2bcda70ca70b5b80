package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-sa-api/internal/models"
	appErrors "github.com/noah-isme/timetable-sa-api/pkg/errors"
)

const searchRunColumns = `id, variant, status, seed, max_iterations, initial_temp, cooling_rate, course_count, initial_cost, best_cost, duration_ms, error_message, created_at, completed_at`

const searchRunSchema = `CREATE TABLE IF NOT EXISTS search_runs (
	id TEXT PRIMARY KEY,
	variant TEXT NOT NULL,
	status TEXT NOT NULL,
	seed BIGINT NOT NULL,
	max_iterations INTEGER NOT NULL,
	initial_temp DOUBLE PRECISION NOT NULL,
	cooling_rate DOUBLE PRECISION NOT NULL,
	course_count INTEGER NOT NULL,
	initial_cost DOUBLE PRECISION,
	best_cost DOUBLE PRECISION,
	duration_ms BIGINT,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ
)`

// Observer receives query timings.
type Observer interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// SearchRunRepository persists search run metadata. Timetables are never
// written here.
type SearchRunRepository struct {
	db       *sqlx.DB
	observer Observer
}

// NewSearchRunRepository constructs the repository. observer may be nil.
func NewSearchRunRepository(db *sqlx.DB, observer Observer) *SearchRunRepository {
	return &SearchRunRepository{db: db, observer: observer}
}

// EnsureSchema creates the audit table when absent.
func (r *SearchRunRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, searchRunSchema); err != nil {
		return fmt.Errorf("ensure search_runs schema: %w", err)
	}
	return nil
}

// Create inserts a run row, filling id, status and created_at when unset.
func (r *SearchRunRepository) Create(ctx context.Context, run *models.SearchRun) error {
	defer r.observe("search_runs.create", time.Now())
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = models.SearchRunStatusQueued
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO search_runs (` + searchRunColumns + `)
VALUES (:id, :variant, :status, :seed, :max_iterations, :initial_temp, :cooling_rate, :course_count, :initial_cost, :best_cost, :duration_ms, :error_message, :created_at, :completed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("create search run: %w", err)
	}
	return nil
}

// Complete records the outcome of a run.
func (r *SearchRunRepository) Complete(ctx context.Context, run *models.SearchRun) error {
	defer r.observe("search_runs.complete", time.Now())
	const query = `UPDATE search_runs SET status = $1, initial_cost = $2, best_cost = $3, duration_ms = $4, error_message = $5, completed_at = $6 WHERE id = $7`
	res, err := r.db.ExecContext(ctx, query, run.Status, run.InitialCost, run.BestCost, run.DurationMs, run.ErrorMessage, run.CompletedAt, run.ID)
	if err != nil {
		return fmt.Errorf("complete search run: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "search run not found")
	}
	return nil
}

// FindByID returns a run row by its identifier.
func (r *SearchRunRepository) FindByID(ctx context.Context, id string) (*models.SearchRun, error) {
	defer r.observe("search_runs.find", time.Now())
	const query = `SELECT ` + searchRunColumns + ` FROM search_runs WHERE id = $1`
	var run models.SearchRun
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "search run not found")
		}
		return nil, fmt.Errorf("find search run: %w", err)
	}
	return &run, nil
}

// List returns a page of runs, newest first, with the total match count.
func (r *SearchRunRepository) List(ctx context.Context, filter models.SearchRunFilter) ([]models.SearchRun, int, error) {
	defer r.observe("search_runs.list", time.Now())
	page, size := normalizePage(filter.Page, filter.PageSize)

	conditions := make([]string, 0, 2)
	args := make([]interface{}, 0, 4)
	if filter.Variant != "" {
		args = append(args, filter.Variant)
		conditions = append(conditions, fmt.Sprintf("variant = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM search_runs"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count search runs: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM search_runs%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d", searchRunColumns, where, len(args)+1, len(args)+2)
	args = append(args, size, (page-1)*size)
	runs := make([]models.SearchRun, 0, size)
	if err := r.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list search runs: %w", err)
	}
	return runs, total, nil
}

func (r *SearchRunRepository) observe(label string, start time.Time) {
	if r.observer != nil {
		r.observer.ObserveDBQuery(label, time.Since(start))
	}
}

func normalizePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size
}
