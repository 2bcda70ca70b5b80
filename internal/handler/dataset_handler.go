package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"

	"github.com/noah-isme/timetable-sa-api/internal/models"
	"github.com/noah-isme/timetable-sa-api/pkg/dataset"
	appErrors "github.com/noah-isme/timetable-sa-api/pkg/errors"
	"github.com/noah-isme/timetable-sa-api/pkg/response"
)

const maxDatasetUploadBytes = 32 << 20

// DatasetHandler converts uploaded CSV tables into a search problem.
type DatasetHandler struct {
	loader *dataset.Loader
}

// NewDatasetHandler constructs the handler.
func NewDatasetHandler(loader *dataset.Loader) *DatasetHandler {
	if loader == nil {
		loader = dataset.NewLoader()
	}
	return &DatasetHandler{loader: loader}
}

// Parse godoc
// @Summary Parse CSV tables into a search problem
// @Description Form fields modules, timeslots and classrooms are required; instructors and students are optional.
// @Tags Datasets
// @Accept multipart/form-data
// @Produce json
// @Param modules formData file true "Modules.csv"
// @Param timeslots formData file true "Timeslots.csv"
// @Param classrooms formData file true "Classrooms.csv"
// @Param instructors formData file false "Instructors.csv"
// @Param students formData file false "Students.csv"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /datasets [post]
func (h *DatasetHandler) Parse(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxDatasetUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, appErrors.WrapAs(appErrors.ErrMalformedInput, err, "expected a multipart form"))
		return
	}

	var out dataset.Dataset
	var errs error
	errs = multierr.Append(errs, readPart(form, "modules", true, func(r io.Reader) (err error) {
		out.Courses, err = h.loader.Courses(r)
		return err
	}))
	errs = multierr.Append(errs, readPart(form, "timeslots", true, func(r io.Reader) (err error) {
		out.Timeslots, err = h.loader.Timeslots(r)
		return err
	}))
	errs = multierr.Append(errs, readPart(form, "classrooms", true, func(r io.Reader) (err error) {
		out.Rooms, err = h.loader.Rooms(r)
		return err
	}))
	errs = multierr.Append(errs, readPart(form, "instructors", false, func(r io.Reader) (err error) {
		out.Instructors, err = h.loader.Instructors(r)
		return err
	}))
	errs = multierr.Append(errs, readPart(form, "students", false, func(r io.Reader) (err error) {
		out.Students, err = h.loader.Students(r)
		return err
	}))
	if errs != nil {
		response.Error(c, appErrors.WrapAs(appErrors.ErrMalformedInput, errs, errs.Error()))
		return
	}
	if out.Instructors == nil {
		out.Instructors = []models.Instructor{}
	}
	if out.Students == nil {
		out.Students = []models.Student{}
	}
	response.JSON(c, http.StatusOK, out, nil)
}

func readPart(form *multipart.Form, field string, required bool, decode func(io.Reader) error) error {
	files := form.File[field]
	if len(files) == 0 {
		if required {
			return fmt.Errorf("%s: file is required", field)
		}
		return nil
	}
	f, err := files[0].Open()
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	defer f.Close()
	if err := decode(f); err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	return nil
}
