package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-sa-api/internal/dto"
	"github.com/noah-isme/timetable-sa-api/internal/models"
	"github.com/noah-isme/timetable-sa-api/internal/timetable"
	appErrors "github.com/noah-isme/timetable-sa-api/pkg/errors"
	"github.com/noah-isme/timetable-sa-api/pkg/jobs"
)

const (
	searchOutcomeCompleted   = "completed"
	searchOutcomeFailed      = "failed"
	searchOutcomeInterrupted = "interrupted"
)

// RunAuditRepository persists run metadata.
type RunAuditRepository interface {
	Create(ctx context.Context, run *models.SearchRun) error
	Complete(ctx context.Context, run *models.SearchRun) error
	FindByID(ctx context.Context, id string) (*models.SearchRun, error)
	List(ctx context.Context, filter models.SearchRunFilter) ([]models.SearchRun, int, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// TimetableConfig bounds what a single request may ask for.
type TimetableConfig struct {
	MaxIterations int
	Timeout       time.Duration
	Preferences   timetable.Preferences
}

// TimetableService validates search requests, runs the engine and retains
// the outcome.
type TimetableService struct {
	store     RunStore
	audit     RunAuditRepository
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       TimetableConfig
	queue     jobEnqueuer
	now       func() time.Time
	seed      func() int64
}

// NewTimetableService wires the search orchestration. audit may be nil when
// the run log is disabled.
func NewTimetableService(store RunStore, audit RunAuditRepository, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg TimetableConfig) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		store:     store,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
		seed:      func() int64 { return time.Now().UnixNano() },
	}
}

// SetQueue attaches the worker pool used by Submit.
func (s *TimetableService) SetQueue(queue jobEnqueuer) {
	s.queue = queue
}

// Run executes one search synchronously.
func (s *TimetableService) Run(ctx context.Context, variant models.SearchVariant, req dto.SearchRequest) (*dto.SearchResponse, error) {
	if err := s.check(variant, req); err != nil {
		return nil, err
	}
	run := s.newRun(variant, req, s.resolveSeed(req.Params), models.SearchRunStatusRunning)
	s.recordStart(ctx, run)
	return s.execute(ctx, run, req)
}

// Compare runs both variants concurrently with the same seed.
func (s *TimetableService) Compare(ctx context.Context, req dto.SearchRequest) (*dto.CompareResponse, error) {
	if err := s.check(models.SearchVariantTraditional, req); err != nil {
		return nil, err
	}
	seed := s.resolveSeed(req.Params)
	variants := []models.SearchVariant{models.SearchVariantTraditional, models.SearchVariantHybrid}
	results := make([]*dto.SearchResponse, len(variants))
	errs := make([]error, len(variants))

	var wg sync.WaitGroup
	for i, variant := range variants {
		wg.Add(1)
		go func(i int, variant models.SearchVariant) {
			defer wg.Done()
			run := s.newRun(variant, req, seed, models.SearchRunStatusRunning)
			s.recordStart(ctx, run)
			results[i], errs[i] = s.execute(ctx, run, req)
		}(i, variant)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	traditional, hybrid := results[0], results[1]
	winner := models.SearchVariantHybrid
	if traditional.Cost < hybrid.Cost {
		winner = models.SearchVariantTraditional
	}
	return &dto.CompareResponse{
		Traditional: traditional,
		Hybrid:      hybrid,
		Winner:      winner,
		CostDelta:   traditional.Cost - hybrid.Cost,
	}, nil
}

type searchJob struct {
	Run     models.SearchRun
	Request dto.SearchRequest
}

// Submit queues a search and returns immediately.
func (s *TimetableService) Submit(ctx context.Context, variant models.SearchVariant, req dto.SearchRequest) (*dto.JobResponse, error) {
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "asynchronous searches are disabled")
	}
	if err := s.check(variant, req); err != nil {
		return nil, err
	}
	run := s.newRun(variant, req, s.resolveSeed(req.Params), models.SearchRunStatusQueued)
	s.recordStart(ctx, run)
	if err := s.store.Save(ctx, &RunRecord{Run: *run}); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrUnavailable, err, "failed to retain queued run")
	}

	job := jobs.Job{ID: run.ID, Type: string(variant), Payload: searchJob{Run: *run, Request: req}}
	if err := s.queue.Enqueue(job); err != nil {
		message := "search queue is unavailable"
		if errors.Is(err, jobs.ErrQueueFull) {
			message = "search queue is full"
		}
		appErr := appErrors.WrapAs(appErrors.ErrUnavailable, err, message)
		s.finish(ctx, run, nil, req, 0, appErr)
		return nil, appErr
	}
	return &dto.JobResponse{RunID: run.ID, Variant: variant, Status: run.Status}, nil
}

// ProcessJob is the worker pool handler for queued searches.
func (s *TimetableService) ProcessJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(searchJob)
	if !ok {
		return fmt.Errorf("unexpected payload %T for job %s", job.Payload, job.ID)
	}
	s.metrics.JobStarted()
	defer s.metrics.JobFinished()

	run := payload.Run
	run.Status = models.SearchRunStatusRunning
	if err := s.store.Save(ctx, &RunRecord{Run: run}); err != nil {
		s.logger.Warn("failed to mark run running", zap.String("run_id", run.ID), zap.Error(err))
	}
	_, err := s.execute(ctx, &run, payload.Request)
	return err
}

// AbandonJob is the worker pool failure hook. Runs that never reached a
// terminal state, such as jobs still buffered at shutdown, are marked FAILED.
func (s *TimetableService) AbandonJob(job jobs.Job, err error) {
	payload, ok := job.Payload.(searchJob)
	if !ok {
		return
	}
	ctx := context.Background()
	if record, getErr := s.store.Get(ctx, job.ID); getErr == nil && record.Run.Status.Terminal() {
		return
	}

	runErr := mapSearchError(err)
	if errors.Is(err, jobs.ErrQueueStopped) {
		runErr = appErrors.WrapAs(appErrors.ErrSearchInterrupted, err, "search queue stopped before the run started")
	}
	run := payload.Run
	s.finish(ctx, &run, nil, payload.Request, 0, runErr)
}

// Get returns a retained run. Once the result has expired the audit row is
// returned alone when the audit log is enabled.
func (s *TimetableService) Get(ctx context.Context, id string) (*dto.RunView, error) {
	record, err := s.store.Get(ctx, id)
	if err == nil {
		return &dto.RunView{Run: record.Run, Result: record.Result}, nil
	}
	if !errors.Is(err, appErrors.ErrNotFound) || s.audit == nil {
		return nil, err
	}
	run, auditErr := s.audit.FindByID(ctx, id)
	if auditErr != nil {
		if errors.Is(auditErr, appErrors.ErrNotFound) {
			return nil, err
		}
		return nil, appErrors.WrapAs(appErrors.ErrInternal, auditErr, "failed to load run")
	}
	return &dto.RunView{Run: *run}, nil
}

// Record returns a completed run with the request it was solved for.
func (s *TimetableService) Record(ctx context.Context, id string) (*RunRecord, error) {
	record, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Run.Status != models.SearchRunStatusCompleted || record.Result == nil || record.Request == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("run is %s", record.Run.Status))
	}
	return record, nil
}

// List pages through the audit log.
func (s *TimetableService) List(ctx context.Context, query dto.RunListQuery) ([]models.SearchRun, *models.Pagination, error) {
	if s.audit == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnavailable, "run audit log is disabled")
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.WrapAs(appErrors.ErrMalformedInput, err, "invalid run filter")
	}
	filter := models.SearchRunFilter{
		Variant:  models.SearchVariant(query.Variant),
		Status:   models.SearchRunStatus(query.Status),
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	runs, total, err := s.audit.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to list runs")
	}
	page, size := filter.Page, filter.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	return runs, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *TimetableService) check(variant models.SearchVariant, req dto.SearchRequest) error {
	if !variant.Valid() {
		return appErrors.Clone(appErrors.ErrMalformedInput, fmt.Sprintf("unknown variant %q", variant))
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.WrapAs(appErrors.ErrMalformedInput, err, "invalid search request")
	}
	if s.cfg.MaxIterations > 0 && req.Params.MaxIterations > s.cfg.MaxIterations {
		return appErrors.Clone(appErrors.ErrMalformedInput, fmt.Sprintf("maxIterations may not exceed %d", s.cfg.MaxIterations))
	}
	return nil
}

func (s *TimetableService) resolveSeed(params *dto.SearchParams) int64 {
	if params != nil && params.Seed != nil {
		return *params.Seed
	}
	return s.seed()
}

func (s *TimetableService) newRun(variant models.SearchVariant, req dto.SearchRequest, seed int64, status models.SearchRunStatus) *models.SearchRun {
	return &models.SearchRun{
		ID:            uuid.NewString(),
		Variant:       variant,
		Status:        status,
		Seed:          seed,
		MaxIterations: req.Params.MaxIterations,
		InitialTemp:   req.Params.InitialTemp,
		CoolingRate:   req.Params.CoolingRate,
		CourseCount:   len(req.Courses),
		CreatedAt:     s.now().UTC(),
	}
}

func (s *TimetableService) recordStart(ctx context.Context, run *models.SearchRun) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Create(ctx, run); err != nil {
		s.logger.Warn("failed to record run start", zap.String("run_id", run.ID), zap.Error(err))
	}
}

func (s *TimetableService) execute(ctx context.Context, run *models.SearchRun, req dto.SearchRequest) (*dto.SearchResponse, error) {
	searchCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	input := timetable.Input{
		Courses:     req.Courses,
		Timeslots:   req.Timeslots,
		Rooms:       req.Rooms,
		Instructors: req.Instructors,
		Students:    req.Students,
		Preferences: s.cfg.Preferences,
	}
	params := timetable.Params{
		MaxIterations: req.Params.MaxIterations,
		InitialTemp:   req.Params.InitialTemp,
		CoolingRate:   req.Params.CoolingRate,
	}

	start := time.Now()
	result, err := timetable.Search(searchCtx, run.Variant, input, params, rand.New(rand.NewSource(run.Seed)))
	duration := time.Since(start)
	if err != nil {
		appErr := mapSearchError(err)
		s.finish(ctx, run, nil, req, duration, appErr)
		return nil, appErr
	}

	resp := &dto.SearchResponse{
		RunID:      run.ID,
		Variant:    run.Variant,
		Seed:       run.Seed,
		Solution:   result.Solution,
		Cost:       result.Cost,
		History:    result.History,
		Breakdown:  result.Breakdown,
		Stats:      result.Stats,
		DurationMs: duration.Milliseconds(),
	}
	if result.Stats.ClampedAcceptances > 0 {
		s.logger.Warn("temperature underflow refused worsening moves",
			zap.String("run_id", run.ID),
			zap.Int("clamped", result.Stats.ClampedAcceptances),
			zap.Float64("final_temp", result.Stats.FinalTemp),
		)
	}
	s.finish(ctx, run, resp, req, duration, nil)
	s.logger.Info("search completed",
		zap.String("run_id", run.ID),
		zap.String("variant", string(run.Variant)),
		zap.Int64("seed", run.Seed),
		zap.Float64("initial_cost", result.Stats.InitialCost),
		zap.Float64("cost", result.Cost),
		zap.Duration("duration", duration),
	)
	return resp, nil
}

// finish records the outcome in the store, the audit log and metrics.
func (s *TimetableService) finish(ctx context.Context, run *models.SearchRun, resp *dto.SearchResponse, req dto.SearchRequest, duration time.Duration, runErr *appErrors.Error) {
	ctx = context.WithoutCancel(ctx)
	completedAt := s.now().UTC()
	durationMs := duration.Milliseconds()
	run.CompletedAt = &completedAt
	run.DurationMs = &durationMs

	record := &RunRecord{Run: *run}
	outcome := searchOutcomeCompleted
	bestCost, clamped := 0.0, 0
	if runErr != nil {
		run.Status = models.SearchRunStatusFailed
		message := runErr.Error()
		run.ErrorMessage = &message
		outcome = searchOutcomeFailed
		if errors.Is(runErr, appErrors.ErrSearchInterrupted) {
			outcome = searchOutcomeInterrupted
		}
		s.logger.Warn("search failed",
			zap.String("run_id", run.ID),
			zap.String("variant", string(run.Variant)),
			zap.String("code", runErr.Code),
			zap.Error(runErr),
		)
	} else {
		run.Status = models.SearchRunStatusCompleted
		initial, best := resp.Stats.InitialCost, resp.Cost
		run.InitialCost = &initial
		run.BestCost = &best
		bestCost, clamped = best, resp.Stats.ClampedAcceptances
		request := req
		record.Request = &request
		record.Result = resp
	}
	record.Run = *run

	if err := s.store.Save(ctx, record); err != nil {
		s.logger.Warn("failed to retain run", zap.String("run_id", run.ID), zap.Error(err))
	}
	if s.audit != nil {
		if err := s.audit.Complete(ctx, run); err != nil {
			s.logger.Warn("failed to record run outcome", zap.String("run_id", run.ID), zap.Error(err))
		}
	}
	s.metrics.ObserveSearch(run.Variant, outcome, duration, bestCost, clamped)
}

// mapSearchError translates engine and context errors into API errors.
func mapSearchError(err error) *appErrors.Error {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return appErrors.WrapAs(appErrors.ErrSearchInterrupted, err, "")
	case errors.Is(err, timetable.ErrEmptyDomain):
		return appErrors.WrapAs(appErrors.ErrEmptyDomain, err, err.Error())
	case errors.Is(err, timetable.ErrDuplicateIdentifier):
		return appErrors.WrapAs(appErrors.ErrDuplicateIdentifier, err, err.Error())
	case errors.Is(err, timetable.ErrMalformedInput):
		return appErrors.WrapAs(appErrors.ErrMalformedInput, err, err.Error())
	default:
		return appErrors.WrapAs(appErrors.ErrInternal, err, "")
	}
}
