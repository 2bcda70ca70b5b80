package handler

import (
	"context"
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-sa-api/internal/dto"
	"github.com/noah-isme/timetable-sa-api/internal/service"
	appErrors "github.com/noah-isme/timetable-sa-api/pkg/errors"
	"github.com/noah-isme/timetable-sa-api/pkg/response"
)

type runExporter interface {
	Render(ctx context.Context, runID string, query dto.ExportQuery) (*service.ExportFile, error)
	Link(ctx context.Context, runID string, query dto.ExportQuery) (*dto.ExportLinkResponse, error)
	Resolve(ctx context.Context, token string) (*service.ExportFile, error)
}

// ExportHandler serves rendered timetables.
type ExportHandler struct {
	service runExporter
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Export godoc
// @Summary Download a run as CSV or PDF
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Run ID"
// @Param format query string false "csv or pdf"
// @Param view query string false "student or timetable"
// @Param specialty query string false "Timetable specialty filter, all for every course"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /runs/{id}/export [get]
func (h *ExportHandler) Export(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.WrapAs(appErrors.ErrMalformedInput, err, "invalid export query"))
		return
	}
	file, err := h.service.Render(c.Request.Context(), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.ContentType, file.Filename, file.Body)
}

// Link godoc
// @Summary Issue a signed export link
// @Tags Exports
// @Accept json
// @Produce json
// @Param id path string true "Run ID"
// @Param payload body dto.ExportQuery false "Export options"
// @Success 201 {object} response.Envelope
// @Router /runs/{id}/export-link [post]
func (h *ExportHandler) Link(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindJSON(&query); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.WrapAs(appErrors.ErrMalformedInput, err, "invalid export options"))
		return
	}
	link, err := h.service.Link(c.Request.Context(), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, link)
}

// Download godoc
// @Summary Download through a signed export link
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, err := h.service.Resolve(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.ContentType, file.Filename, file.Body)
}
