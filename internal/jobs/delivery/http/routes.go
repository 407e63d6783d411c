package http

import (
	"github.com/amankumarsingh77/media-muxer/internal/jobs"
	"github.com/amankumarsingh77/media-muxer/internal/middleware"
	"github.com/labstack/echo/v4"
)

func MapJobsRoutes(jobsGroup *echo.Group, h jobs.Handler, mw *middleware.MiddlewareManager) {
	jobsGroup.Use(mw.RequestLoggerMiddleware)
	jobsGroup.POST("", h.Submit())
	jobsGroup.GET("", h.List())
	jobsGroup.GET("/:job_id", h.Status())
	jobsGroup.DELETE("/:job_id", h.Cancel())
	jobsGroup.GET("/:job_id/artifact", h.Artifact())
}
