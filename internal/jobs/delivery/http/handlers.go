package http

import (
	"net/http"

	"github.com/amankumarsingh77/media-muxer/internal/jobs"
	"github.com/amankumarsingh77/media-muxer/internal/models"
	"github.com/amankumarsingh77/media-muxer/pkg/httpErrors"
	"github.com/amankumarsingh77/media-muxer/pkg/logger"
	"github.com/amankumarsingh77/media-muxer/pkg/utils"
	"github.com/labstack/echo/v4"
)

type jobsHandler struct {
	jobsUC jobs.UseCase
	logger logger.Logger
}

func NewJobsHandler(jobsUC jobs.UseCase, log logger.Logger) jobs.Handler {
	return &jobsHandler{
		jobsUC: jobsUC,
		logger: log,
	}
}

func (h *jobsHandler) Submit() echo.HandlerFunc {
	return func(c echo.Context) error {
		input := &models.MuxRequest{}
		if err := c.Bind(input); err != nil {
			h.logger.Warnf("Submit - Bind error: %v, RequestID: %s", err, utils.GetRequestID(c))
			return c.JSON(http.StatusBadRequest, httpErrors.NewBadRequest("invalid request payload"))
		}
		job, created, err := h.jobsUC.Submit(c.Request().Context(), input)
		if err != nil {
			return h.errorResponse(c, err)
		}
		status := http.StatusAccepted
		if !created {
			status = http.StatusOK
		}
		return c.JSON(status, models.SubmitResponse{ID: job.ID, State: job.State})
	}
}

func (h *jobsHandler) Status() echo.HandlerFunc {
	return func(c echo.Context) error {
		jobID, err := utils.GetJobID(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, httpErrors.NewBadRequest(err.Error()))
		}
		job, err := h.jobsUC.GetJob(c.Request().Context(), jobID)
		if err != nil {
			return h.errorResponse(c, err)
		}
		return c.JSON(http.StatusOK, job.Status())
	}
}

func (h *jobsHandler) Cancel() echo.HandlerFunc {
	return func(c echo.Context) error {
		jobID, err := utils.GetJobID(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, httpErrors.NewBadRequest(err.Error()))
		}
		job, err := h.jobsUC.CancelJob(c.Request().Context(), jobID)
		if err != nil {
			return h.errorResponse(c, err)
		}
		return c.JSON(http.StatusOK, models.SubmitResponse{ID: job.ID, State: job.State})
	}
}

func (h *jobsHandler) List() echo.HandlerFunc {
	return func(c echo.Context) error {
		pagination, err := utils.GetPaginationFromCtx(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, httpErrors.NewBadRequest(err.Error()))
		}
		list, err := h.jobsUC.ListJobs(c.Request().Context(), pagination)
		if err != nil {
			return h.errorResponse(c, err)
		}
		return c.JSON(http.StatusOK, list)
	}
}

func (h *jobsHandler) Artifact() echo.HandlerFunc {
	return func(c echo.Context) error {
		jobID, err := utils.GetJobID(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, httpErrors.NewBadRequest(err.Error()))
		}
		loc, err := h.jobsUC.GetArtifact(c.Request().Context(), jobID)
		if err != nil {
			return h.errorResponse(c, err)
		}
		if loc.URL != "" {
			return c.Redirect(http.StatusTemporaryRedirect, loc.URL)
		}
		if loc.ContentType != "" {
			c.Response().Header().Set(echo.HeaderContentType, loc.ContentType)
		}
		return c.File(loc.Path)
	}
}

func (h *jobsHandler) errorResponse(c echo.Context, err error) error {
	status, body := httpErrors.ParseErrors(err)
	if status >= http.StatusInternalServerError {
		h.logger.Errorf("%s %s - error: %v, RequestID: %s", c.Request().Method, c.Path(), err, utils.GetRequestID(c))
	}
	return c.JSON(status, body)
}
