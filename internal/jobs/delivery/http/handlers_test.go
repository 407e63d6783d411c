package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/amankumarsingh77/media-muxer/internal/config"
	"github.com/amankumarsingh77/media-muxer/internal/jobs"
	"github.com/amankumarsingh77/media-muxer/internal/jobs/repository"
	"github.com/amankumarsingh77/media-muxer/internal/jobs/usecase"
	"github.com/amankumarsingh77/media-muxer/internal/middleware"
	"github.com/amankumarsingh77/media-muxer/internal/models"
	"github.com/amankumarsingh77/media-muxer/internal/muxer"
	"github.com/amankumarsingh77/media-muxer/pkg/httpErrors"
	"github.com/amankumarsingh77/media-muxer/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProcess struct {
	gate     chan struct{}
	exitCode int
}

func (p *stubProcess) Run(ctx context.Context, spec muxer.Spec) (*muxer.Result, error) {
	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return &muxer.Result{ExitCode: -1, OutputPath: spec.OutputPath}, nil
		}
	}
	if p.exitCode != 0 {
		return &muxer.Result{ExitCode: p.exitCode, OutputPath: spec.OutputPath, Stderr: "Invalid data found"}, nil
	}
	if err := os.WriteFile(spec.OutputPath, []byte("muxed"), 0o644); err != nil {
		return nil, err
	}
	return &muxer.Result{ExitCode: 0, OutputPath: spec.OutputPath}, nil
}

type testServer struct {
	e    *echo.Echo
	repo jobs.Repository
}

func newTestServer(t *testing.T, p muxer.Process) *testServer {
	t.Helper()
	cfg := &config.Config{
		Muxer:   config.MuxerConfig{WorkDir: t.TempDir(), MaxConcurrent: 2},
		Storage: config.StorageConfig{Backend: config.StorageLocal, OutputDir: t.TempDir()},
		Jobs:    config.JobsConfig{Retention: time.Minute},
	}
	log := logger.NewNopLogger()
	repo := repository.NewJobRepo()
	uc := usecase.NewJobsUseCase(cfg, repo, muxer.NewRunner(cfg, p, log), repository.NewLocalStore(cfg.Storage.OutputDir), nil, log)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = uc.Shutdown(ctx)
	})

	e := echo.New()
	mw := middleware.NewMiddlewareManager(cfg, nil, log)
	MapJobsRoutes(e.Group("/jobs"), NewJobsHandler(uc, log), mw)
	return &testServer{e: e, repo: repo}
}

func (s *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) waitForState(t *testing.T, id string, state models.JobState) {
	t.Helper()
	require.Eventually(t, func() bool {
		job, err := s.repo.GetByID(context.Background(), id)
		return err == nil && job.State == state
	}, 3*time.Second, 5*time.Millisecond)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestSubmitAndPoll(t *testing.T) {
	p := &stubProcess{gate: make(chan struct{})}
	s := newTestServer(t, p)

	rec := s.do(http.MethodPost, "/jobs", `{"inputs":["a.mp4","a.aac"],"format":"mp4"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	submitted := decode[models.SubmitResponse](t, rec)
	assert.NotEmpty(t, submitted.ID)
	assert.Equal(t, models.JobStatePending, submitted.State)

	s.waitForState(t, submitted.ID, models.JobStateRunning)
	rec = s.do(http.MethodGet, "/jobs/"+submitted.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.JobStateRunning, decode[models.JobStatus](t, rec).State)

	close(p.gate)
	s.waitForState(t, submitted.ID, models.JobStateSucceeded)

	rec = s.do(http.MethodGet, "/jobs/"+submitted.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[models.JobStatus](t, rec)
	assert.Equal(t, models.JobStateSucceeded, status.State)
	assert.Equal(t, submitted.ID+".mp4", status.Output)
	assert.Nil(t, status.Error)

	rec = s.do(http.MethodGet, "/jobs/"+submitted.ID+"/artifact", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "muxed", rec.Body.String())
	assert.Equal(t, "video/mp4", rec.Header().Get(echo.HeaderContentType))
}

func TestSubmitReusesIdenticalJob(t *testing.T) {
	p := &stubProcess{gate: make(chan struct{})}
	s := newTestServer(t, p)
	defer close(p.gate)

	body := `{"inputs":["a.mp4","a.aac"],"format":"mp4"}`
	first := s.do(http.MethodPost, "/jobs", body)
	require.Equal(t, http.StatusAccepted, first.Code)
	second := s.do(http.MethodPost, "/jobs", body)
	require.Equal(t, http.StatusOK, second.Code)

	assert.Equal(t, decode[models.SubmitResponse](t, first).ID, decode[models.SubmitResponse](t, second).ID)
}

func TestSubmitValidation(t *testing.T) {
	s := newTestServer(t, &stubProcess{})

	cases := map[string]string{
		"empty inputs":   `{"inputs":[],"format":"mp4"}`,
		"missing inputs": `{"format":"mp4"}`,
		"blank input":    `{"inputs":[" "],"format":"mp4"}`,
		"bad format":     `{"inputs":["a.mp4"],"format":"avi"}`,
		"malformed":      `{"inputs":`,
		"wrong type":     `{"inputs":"a.mp4","format":"mp4"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/jobs", body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			errBody := decode[httpErrors.ErrorBody](t, rec)
			require.NotNil(t, errBody.Error)
			assert.Equal(t, models.KindInvalidInput, errBody.Error.Kind)
			assert.NotEmpty(t, errBody.Error.Message)
		})
	}

	count, err := s.repo.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStatusNotFound(t *testing.T) {
	s := newTestServer(t, &stubProcess{})

	rec := s.do(http.MethodGet, "/jobs/does-not-exist", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, models.KindNotFound, decode[httpErrors.ErrorBody](t, rec).Error.Kind)
}

func TestCancel(t *testing.T) {
	p := &stubProcess{gate: make(chan struct{})}
	s := newTestServer(t, p)

	rec := s.do(http.MethodPost, "/jobs", `{"inputs":["a.mp4"],"format":"mkv"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	id := decode[models.SubmitResponse](t, rec).ID
	s.waitForState(t, id, models.JobStateRunning)

	rec = s.do(http.MethodDelete, "/jobs/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[models.SubmitResponse](t, rec)
	assert.Equal(t, models.JobStateFailed, resp.State)

	rec = s.do(http.MethodGet, "/jobs/"+id, "")
	status := decode[models.JobStatus](t, rec)
	require.NotNil(t, status.Error)
	assert.Equal(t, models.KindCancelled, status.Error.Kind)

	rec = s.do(http.MethodDelete, "/jobs/"+id, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodGet, "/jobs/"+id+"/artifact", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestFailedJobReportsProcessFailure(t *testing.T) {
	s := newTestServer(t, &stubProcess{exitCode: 1})

	rec := s.do(http.MethodPost, "/jobs", `{"inputs":["a.mp4"],"format":"ts"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	id := decode[models.SubmitResponse](t, rec).ID
	s.waitForState(t, id, models.JobStateFailed)

	rec = s.do(http.MethodGet, "/jobs/"+id, "")
	status := decode[models.JobStatus](t, rec)
	assert.Equal(t, models.JobStateFailed, status.State)
	assert.Empty(t, status.Output)
	require.NotNil(t, status.Error)
	assert.Equal(t, models.KindProcessFailure, status.Error.Kind)
	require.NotNil(t, status.Error.ExitCode)
	assert.Equal(t, 1, *status.Error.ExitCode)
}

func TestList(t *testing.T) {
	p := &stubProcess{gate: make(chan struct{})}
	s := newTestServer(t, p)
	defer close(p.gate)

	for _, in := range []string{"a.mp4", "b.mp4", "c.mp4"} {
		rec := s.do(http.MethodPost, "/jobs", `{"inputs":["`+in+`"],"format":"mp4"}`)
		require.Equal(t, http.StatusAccepted, rec.Code)
	}

	rec := s.do(http.MethodGet, "/jobs?page=1&size=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[models.JobList](t, rec)
	assert.Equal(t, 3, list.TotalCount)
	assert.Len(t, list.Jobs, 2)
	assert.True(t, list.HasMore)

	rec = s.do(http.MethodGet, "/jobs?size=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/jobs?page=922337203685477582&size=10", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/jobs", `{"inputs":["d.mp4"],"format":"mp4"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}
