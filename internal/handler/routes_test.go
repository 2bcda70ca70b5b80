package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-sa-api/internal/service"
	"github.com/noah-isme/timetable-sa-api/pkg/dataset"
	"github.com/noah-isme/timetable-sa-api/pkg/signing"
)

const problemPayload = `{
	"courses": [
		{"id": "1", "name": "Algorithms", "instructor_id": "10"},
		{"id": "2", "name": "Algorithms", "instructor_id": "10"},
		{"id": "3", "name": "Databases", "instructor_id": "11"}
	],
	"timeslots": [
		{"id": 1, "day": "Sunday", "time": "09:00"},
		{"id": 2, "day": "Monday", "time": "11:00"}
	],
	"rooms": [{"id": "R1", "name": "Hall A", "capacity": "20"}, {"id": "R2", "capacity": 5}],
	"instructors": [{"id": 10, "name": "Dr. Salem"}, {"id": 11, "name": "Dr. Noor"}],
	"students": [
		{"id": "s1", "name": "Aya", "course_id": "1", "specialty": "CS"},
		{"id": "s2", "name": "Omar", "course_id": "3", "specialty": "IS"}
	],
	"params": {"maxIterations": 300, "initialTemp": 100, "coolingRate": 0.95, "seed": 21}
}`

func buildAPIRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	store := service.NewRunStore(nil, time.Hour)
	timetableSvc := service.NewTimetableService(store, nil, metrics, nil, zap.NewNop(), service.TimetableConfig{MaxIterations: 10000})
	exportSvc := service.NewExportService(timetableSvc, signing.NewSigner("test-secret", time.Minute), service.ExportConfig{APIPrefix: "/api"}, zap.NewNop(), nil, nil)

	router := gin.New()
	Register(router.Group("/api"), Handlers{
		Timetable: NewTimetableHandler(timetableSvc, zap.NewNop(), "/api"),
		Export:    NewExportHandler(exportSvc),
		Dataset:   NewDatasetHandler(dataset.NewLoader()),
		Metrics:   NewMetricsHandler(metrics),
	})
	return router
}

func TestAPIRoutesEndToEnd(t *testing.T) {
	router := buildAPIRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","message":"Timetable search service is running"}`, w.Body.String())

	w = postJSON(router, "/api/hybrid_sa", problemPayload)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var search struct {
		Data struct {
			RunID    string `json:"runId"`
			Seed     int64  `json:"seed"`
			Solution []struct {
				Course string `json:"course"`
			} `json:"solution"`
			History []json.RawMessage `json:"history"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &search))
	runID := search.Data.RunID
	require.NotEmpty(t, runID)
	assert.Equal(t, int64(21), search.Data.Seed)
	require.Len(t, search.Data.Solution, 3)
	assert.Equal(t, "1", search.Data.Solution[0].Course)
	assert.Len(t, search.Data.History, 31)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/runs/"+runID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"COMPLETED"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/runs/"+runID+"/export?view=timetable&specialty=IS", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "specialty_timetable_IS_hybrid_")
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Course,Day,Time,Room,Instructor,Specialties", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Databases,"))

	w = postJSON(router, "/api/runs/"+runID+"/export-link", `{"format":"pdf","view":"student"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var link struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &link))
	require.True(t, strings.HasPrefix(link.Data.URL, "/api/exports/"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, link.Data.URL, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/exports/forged", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPIRoutesErrorMapping(t *testing.T) {
	router := buildAPIRouter(t)

	noRooms := strings.Replace(problemPayload, `"rooms": [{"id": "R1", "name": "Hall A", "capacity": "20"}, {"id": "R2", "capacity": 5}]`, `"rooms": []`, 1)
	w := postJSON(router, "/api/traditional_sa", noRooms)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"EMPTY_DOMAIN"`)

	noParams := strings.Replace(problemPayload, `"params": {"maxIterations": 300, "initialTemp": 100, "coolingRate": 0.95, "seed": 21}`, `"params": null`, 1)
	w = postJSON(router, "/api/traditional_sa", noParams)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	dupes := strings.Replace(problemPayload, `{"id": 2, "day": "Monday"`, `{"id": 1, "day": "Monday"`, 1)
	w = postJSON(router, "/api/traditional_sa", dupes)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"DUPLICATE_IDENTIFIER"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = postJSON(router, "/api/jobs/hybrid", problemPayload)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAPIRoutesDatasetUpload(t *testing.T) {
	router := buildAPIRouter(t)

	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	files := map[string]string{
		"modules":    "id,name,instructor_id\n1,Algorithms,10\n",
		"timeslots":  "id,day,time\nt1,Sunday,09:00\n",
		"classrooms": "id,name,capacity\nR1,Hall A,30\n",
	}
	for field, content := range files {
		part, err := form.CreateFormFile(field, field+".csv")
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/datasets", body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"capacity":30`)
	assert.Contains(t, w.Body.String(), `"students":[]`)

	incomplete := &bytes.Buffer{}
	form = multipart.NewWriter(incomplete)
	part, err := form.CreateFormFile("modules", "Modules.csv")
	require.NoError(t, err)
	_, _ = part.Write([]byte("id,name\n1,A\n"))
	require.NoError(t, form.Close())
	req = httptest.NewRequest(http.MethodPost, "/api/datasets", incomplete)
	req.Header.Set("Content-Type", form.FormDataContentType())
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "timeslots: file is required")
}
