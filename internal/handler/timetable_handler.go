package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-sa-api/internal/dto"
	"github.com/noah-isme/timetable-sa-api/internal/models"
	"github.com/noah-isme/timetable-sa-api/internal/service"
	appErrors "github.com/noah-isme/timetable-sa-api/pkg/errors"
	"github.com/noah-isme/timetable-sa-api/pkg/logger"
	"github.com/noah-isme/timetable-sa-api/pkg/response"
)

const maxSearchBodyBytes = 32 << 20

type timetableSearcher interface {
	Run(ctx context.Context, variant models.SearchVariant, req dto.SearchRequest) (*dto.SearchResponse, error)
	Compare(ctx context.Context, req dto.SearchRequest) (*dto.CompareResponse, error)
	Submit(ctx context.Context, variant models.SearchVariant, req dto.SearchRequest) (*dto.JobResponse, error)
	Get(ctx context.Context, id string) (*dto.RunView, error)
	List(ctx context.Context, query dto.RunListQuery) ([]models.SearchRun, *models.Pagination, error)
}

// TimetableHandler exposes the annealing search endpoints.
type TimetableHandler struct {
	service   timetableSearcher
	logger    *zap.Logger
	apiPrefix string
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService, log *zap.Logger, apiPrefix string) *TimetableHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &TimetableHandler{service: svc, logger: log, apiPrefix: strings.TrimRight(apiPrefix, "/")}
}

// Traditional godoc
// @Summary Run traditional simulated annealing
// @Description Anneals from a random timetable.
// @Tags Search
// @Accept json
// @Produce json
// @Param payload body dto.SearchRequest true "Search problem"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /traditional_sa [post]
func (h *TimetableHandler) Traditional(c *gin.Context) {
	h.search(c, models.SearchVariantTraditional)
}

// Hybrid godoc
// @Summary Run hybrid simulated annealing
// @Description Anneals from the greedy feasible seed with a swap-heavy move mix.
// @Tags Search
// @Accept json
// @Produce json
// @Param payload body dto.SearchRequest true "Search problem"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /hybrid_sa [post]
func (h *TimetableHandler) Hybrid(c *gin.Context) {
	h.search(c, models.SearchVariantHybrid)
}

func (h *TimetableHandler) search(c *gin.Context, variant models.SearchVariant) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	resp, err := h.service.Run(c.Request.Context(), variant, req)
	if err != nil {
		h.fail(c, "search failed", err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Compare godoc
// @Summary Run both variants on the same problem
// @Tags Search
// @Accept json
// @Produce json
// @Param payload body dto.SearchRequest true "Search problem"
// @Success 200 {object} response.Envelope
// @Router /compare [post]
func (h *TimetableHandler) Compare(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	resp, err := h.service.Compare(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "compare failed", err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Submit godoc
// @Summary Queue an asynchronous search
// @Tags Jobs
// @Accept json
// @Produce json
// @Param variant path string true "traditional or hybrid"
// @Param payload body dto.SearchRequest true "Search problem"
// @Success 202 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /jobs/{variant} [post]
func (h *TimetableHandler) Submit(c *gin.Context) {
	variant := models.SearchVariant(strings.ToLower(c.Param("variant")))
	if !variant.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrMalformedInput, "variant must be traditional or hybrid"))
		return
	}
	req, ok := h.bind(c)
	if !ok {
		return
	}
	ack, err := h.service.Submit(c.Request.Context(), variant, req)
	if err != nil {
		h.fail(c, "submit failed", err)
		return
	}
	ack.StatusURL = h.apiPrefix + "/runs/" + ack.RunID
	c.Header("Location", ack.StatusURL)
	response.Accepted(c, ack)
}

// GetRun godoc
// @Summary Fetch a retained run
// @Tags Runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /runs/{id} [get]
func (h *TimetableHandler) GetRun(c *gin.Context) {
	view, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// ListRuns godoc
// @Summary List audited runs
// @Tags Runs
// @Produce json
// @Param variant query string false "traditional or hybrid"
// @Param status query string false "QUEUED, RUNNING, COMPLETED or FAILED"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /runs [get]
func (h *TimetableHandler) ListRuns(c *gin.Context) {
	var query dto.RunListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.WrapAs(appErrors.ErrMalformedInput, err, "invalid query parameters"))
		return
	}
	runs, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, runs, pagination)
}

func (h *TimetableHandler) bind(c *gin.Context) (dto.SearchRequest, bool) {
	var req dto.SearchRequest
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSearchBodyBytes)
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(appErrors.ErrMalformedInput, err, "invalid search payload"))
		return req, false
	}
	return req, true
}

func (h *TimetableHandler) fail(c *gin.Context, msg string, err error) {
	appErr := appErrors.FromError(err)
	if appErr.Status >= http.StatusInternalServerError {
		logger.FromContext(h.logger, c).Error(msg, zap.String("code", appErr.Code), zap.Error(err))
	}
	_ = c.Error(err)
	response.Error(c, appErr)
}
