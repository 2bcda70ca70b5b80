package handler

import "github.com/gin-gonic/gin"

// Handlers groups everything mounted under the API prefix.
type Handlers struct {
	Timetable *TimetableHandler
	Export    *ExportHandler
	Dataset   *DatasetHandler
	Metrics   *MetricsHandler
}

// Register mounts the API routes on api.
func Register(api gin.IRouter, h Handlers) {
	api.GET("/health", h.Metrics.Health)

	api.POST("/traditional_sa", h.Timetable.Traditional)
	api.POST("/hybrid_sa", h.Timetable.Hybrid)
	api.POST("/compare", h.Timetable.Compare)
	api.POST("/jobs/:variant", h.Timetable.Submit)
	api.GET("/runs", h.Timetable.ListRuns)
	api.GET("/runs/:id", h.Timetable.GetRun)

	if h.Export != nil {
		api.GET("/runs/:id/export", h.Export.Export)
		api.POST("/runs/:id/export-link", h.Export.Link)
		api.GET("/exports/:token", h.Export.Download)
	}
	if h.Dataset != nil {
		api.POST("/datasets", h.Dataset.Parse)
	}
}
