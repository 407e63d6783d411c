package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/amankumarsingh77/media-muxer/internal/config"
	"github.com/amankumarsingh77/media-muxer/internal/jobs"
	"github.com/amankumarsingh77/media-muxer/internal/models"
	"github.com/amankumarsingh77/media-muxer/pkg/logger"
	"github.com/amankumarsingh77/media-muxer/pkg/utils"
	"github.com/google/uuid"
)

const publishTimeout = 2 * time.Second

// execution is the handle on a dispatched job's goroutine.
type execution struct {
	cancel context.CancelCauseFunc
	done   chan struct{}
}

type jobsUC struct {
	cfg    *config.Config
	repo   jobs.Repository
	runner jobs.Runner
	store  jobs.ArtifactStore
	events jobs.EventPublisher
	logger logger.Logger

	baseCtx    context.Context
	baseCancel context.CancelCauseFunc

	mu     sync.Mutex
	execs  map[string]*execution
	closed bool
	wg     sync.WaitGroup
}

// NewJobsUseCase builds the job tracker. events may be nil.
func NewJobsUseCase(
	cfg *config.Config,
	repo jobs.Repository,
	runner jobs.Runner,
	store jobs.ArtifactStore,
	events jobs.EventPublisher,
	log logger.Logger,
) jobs.UseCase {
	baseCtx, baseCancel := context.WithCancelCause(context.Background())
	return &jobsUC{
		cfg:        cfg,
		repo:       repo,
		runner:     runner,
		store:      store,
		events:     events,
		logger:     log,
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
		execs:      make(map[string]*execution),
	}
}

// Submit validates req, creates (or reuses) the job and dispatches it when new.
func (u *jobsUC) Submit(ctx context.Context, req *models.MuxRequest) (*models.Job, bool, error) {
	if req == nil {
		return nil, false, models.NewJobError(models.KindInvalidInput, "request body is required")
	}
	if u.isClosed() {
		return nil, false, models.NewJobError(models.KindInvalidState, "service is shutting down")
	}
	req.Format, _ = models.ParseFormat(string(req.Format))
	if err := utils.ValidateStruct(ctx, req); err != nil {
		u.logger.Warnf("Submit - ValidateStruct error: %v", err)
		return nil, false, models.NewJobError(models.KindInvalidInput, "invalid request: %v", err)
	}

	job, created, err := u.CreateJob(ctx, req.Inputs, req.Format)
	if err != nil {
		return nil, false, err
	}
	if !created {
		u.logger.Infof("Submit - reusing job %s (%s)", job.ID, job.State)
		return job, false, nil
	}

	dispatched, err := u.RunJob(ctx, job.ID)
	if err != nil {
		u.logger.Errorf("Submit - RunJob error: %v", err)
		// A job that was never dispatched must not be handed to later
		// identical submissions.
		u.fail(job.ID, models.NewJobError(models.KindCancelled, "job not dispatched: %v", err))
		return nil, false, err
	}
	return dispatched, true, nil
}

func (u *jobsUC) CreateJob(ctx context.Context, inputs []string, format models.Format) (*models.Job, bool, error) {
	if len(inputs) == 0 {
		return nil, false, models.NewJobError(models.KindInvalidInput, "at least one input is required")
	}
	if !format.Valid() {
		return nil, false, models.NewJobError(models.KindInvalidInput,
			"unsupported format %q, expected one of %v", format, models.SupportedFormats())
	}
	refs := make([]string, len(inputs))
	for i, in := range inputs {
		ref := strings.TrimSpace(in)
		if ref == "" {
			return nil, false, models.NewJobError(models.KindInvalidInput, "input %d is empty", i)
		}
		if _, err := u.resolveInput(ref); err != nil {
			return nil, false, err
		}
		refs[i] = ref
	}

	job, created, err := u.repo.CreateOrGet(ctx, models.NewJob(uuid.New().String(), refs, format, time.Now().UTC()))
	if err != nil {
		u.logger.Errorf("CreateJob - CreateOrGet error: %v", err)
		return nil, false, err
	}
	if created {
		u.logger.Infof("CreateJob - job %s created: %d inputs -> %s", job.ID, len(job.Inputs), job.Format)
		u.publish(job)
	}
	return job, created, nil
}

// GetJob returns a snapshot. Reading a terminal job starts its retention clock.
func (u *jobsUC) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	job, err := u.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.IsTerminal() && job.RetrievedAt == nil {
		u.markRetrieved(ctx, jobID)
	}
	return job, nil
}

// RunJob hands a Pending job to a background execution. The job stays
// Pending until the runner admits it.
func (u *jobsUC) RunJob(ctx context.Context, jobID string) (*models.Job, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return nil, models.NewJobError(models.KindInvalidState, "service is shutting down")
	}
	job, err := u.repo.Update(ctx, jobID, func(j *models.Job) error {
		if j.State != models.JobStatePending || j.Dispatched {
			return models.NewJobError(models.KindInvalidState, "job %s is %s and cannot be run", j.ID, j.State)
		}
		j.Dispatched = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	execCtx, cancel := context.WithCancelCause(u.baseCtx)
	exec := &execution{cancel: cancel, done: make(chan struct{})}
	u.execs[jobID] = exec
	u.wg.Add(1)
	go u.execute(execCtx, exec, job)

	return job, nil
}

func (u *jobsUC) execute(ctx context.Context, exec *execution, job *models.Job) {
	defer func() {
		u.mu.Lock()
		delete(u.execs, job.ID)
		u.mu.Unlock()
		exec.cancel(nil)
		close(exec.done)
		u.wg.Done()
	}()

	release, err := u.runner.Admit(ctx)
	if err != nil {
		u.fail(job.ID, toJobError(err))
		return
	}
	defer release()

	started, err := u.repo.Update(context.Background(), job.ID, func(j *models.Job) error {
		return j.Start(time.Now().UTC())
	})
	if err != nil {
		// Cancelled while waiting for a slot.
		u.logger.Infof("execute - job %s not started: %v", job.ID, err)
		return
	}
	u.publish(started)

	inputs := make([]string, len(job.Inputs))
	for i, ref := range job.Inputs {
		resolved, jobErr := u.resolveInput(ref)
		if jobErr != nil {
			u.fail(job.ID, jobErr)
			return
		}
		inputs[i] = resolved
	}

	path, jobErr := u.runner.Run(ctx, job.ID, inputs, job.Format, u.progress(job.ID))
	if jobErr != nil {
		u.fail(job.ID, jobErr)
		return
	}

	ref, err := u.store.Put(ctx, fmt.Sprintf("%s.%s", job.ID, job.Format.Extension()), path, job.Format.ContentType())
	if err != nil {
		_ = os.Remove(path)
		if cause := context.Cause(ctx); cause != nil {
			u.fail(job.ID, toJobError(cause))
			return
		}
		u.logger.Errorf("execute - store.Put error: %v", err)
		u.fail(job.ID, models.NewJobError(models.KindStorageFailure, "store artifact: %v", err))
		return
	}

	// The cause is read under the repository lock so a cancel accepted while
	// Running can never be followed by Succeeded.
	var cancelled *models.JobError
	done, err := u.repo.Update(context.Background(), job.ID, func(j *models.Job) error {
		if cause := context.Cause(ctx); cause != nil {
			cancelled = toJobError(cause)
			return j.Fail(cancelled, time.Now().UTC())
		}
		return j.Succeed(ref, time.Now().UTC())
	})
	if err != nil {
		u.logger.Errorf("execute - Succeed error: %v", err)
		u.deleteArtifact(ref)
		return
	}
	if cancelled != nil {
		u.logger.Warnf("job %s failed after storing: %v", job.ID, cancelled)
		u.deleteArtifact(ref)
		u.publish(done)
		return
	}
	u.logger.Infof("execute - job %s succeeded: %s", job.ID, ref)
	u.publish(done)
}

// CancelJob fails a Pending job in place, or terminates a Running job's
// process and waits for it to settle.
func (u *jobsUC) CancelJob(ctx context.Context, jobID string) (*models.Job, error) {
	cancelErr := models.NewJobError(models.KindCancelled, "job cancelled")

	u.mu.Lock()
	exec := u.execs[jobID]
	u.mu.Unlock()

	running := false
	job, err := u.repo.Update(ctx, jobID, func(j *models.Job) error {
		switch {
		case j.IsTerminal():
			return models.NewJobError(models.KindInvalidState, "job %s is already %s", j.ID, j.State)
		case j.State == models.JobStateRunning:
			running = true
			if exec != nil {
				exec.cancel(cancelErr)
			}
			return nil
		default:
			return j.Fail(cancelErr, time.Now().UTC())
		}
	})
	if err != nil {
		return nil, err
	}
	if exec != nil {
		exec.cancel(cancelErr)
	}

	if !running {
		u.logger.Infof("CancelJob - pending job %s cancelled", jobID)
		u.publish(job)
		return job, nil
	}

	u.logger.Infof("CancelJob - terminating running job %s", jobID)
	if exec != nil {
		select {
		case <-exec.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return u.repo.GetByID(ctx, jobID)
}

func (u *jobsUC) ListJobs(ctx context.Context, pq *utils.Pagination) (*models.JobList, error) {
	if pq == nil {
		pq = &utils.Pagination{}
	}
	pq.Normalize()
	return u.repo.List(ctx, pq)
}

// GetArtifact locates the output of a Succeeded job.
func (u *jobsUC) GetArtifact(ctx context.Context, jobID string) (*models.ArtifactLocation, error) {
	job, err := u.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.State != models.JobStateSucceeded {
		return nil, models.NewJobError(models.KindInvalidState, "job %s is %s, no artifact available", job.ID, job.State)
	}
	loc, err := u.store.Locate(ctx, job.Output)
	if err != nil {
		u.logger.Errorf("GetArtifact - Locate error: %v", err)
		var jobErr *models.JobError
		if errors.As(err, &jobErr) {
			return nil, jobErr
		}
		return nil, models.NewJobError(models.KindStorageFailure, "locate artifact: %v", err)
	}
	if job.RetrievedAt == nil {
		u.markRetrieved(ctx, jobID)
	}
	return loc, nil
}

func (u *jobsUC) EvictRetrieved(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-u.cfg.Jobs.Retention)
	evicted, err := u.repo.EvictRetrieved(ctx, cutoff)
	if err != nil {
		u.logger.Errorf("EvictRetrieved - repo error: %v", err)
		return 0, err
	}
	if len(evicted) > 0 {
		u.logger.Infof("EvictRetrieved - evicted %d jobs", len(evicted))
	}
	return len(evicted), nil
}

// StartJanitor evicts retrieved jobs every jobs.evictInterval until ctx is
// done or the tracker shuts down.
func (u *jobsUC) StartJanitor(ctx context.Context) {
	interval := u.cfg.Jobs.EvictInterval
	if interval <= 0 {
		return
	}
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-u.baseCtx.Done():
				return
			case <-ticker.C:
				if _, err := u.EvictRetrieved(ctx); err != nil {
					u.logger.Warnf("janitor - EvictRetrieved error: %v", err)
				}
			}
		}
	}()
}

// Shutdown refuses new work, cancels every execution and waits for them.
func (u *jobsUC) Shutdown(ctx context.Context) error {
	u.mu.Lock()
	u.closed = true
	u.mu.Unlock()

	u.baseCancel(models.NewJobError(models.KindCancelled, "service shutting down"))

	done := make(chan struct{})
	go func() {
		u.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown: executions still running: %w", ctx.Err())
	}
}

func (u *jobsUC) isClosed() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.closed
}

func (u *jobsUC) resolveInput(ref string) (string, *models.JobError) {
	if utils.IsURL(ref) {
		if err := utils.CheckURLPrefix(ref, u.cfg.Muxer.AllowedURLPrefixes); err != nil {
			return "", models.NewJobError(models.KindInvalidInput, "%v", err)
		}
	}
	resolved, err := utils.ResolveInput(u.cfg.Muxer.InputDir, ref)
	if err != nil {
		return "", models.NewJobError(models.KindInvalidInput, "%v", err)
	}
	return resolved, nil
}

func (u *jobsUC) progress(jobID string) func(time.Duration) {
	return func(processed time.Duration) {
		_, _ = u.repo.Update(context.Background(), jobID, func(j *models.Job) error {
			if j.State != models.JobStateRunning {
				return models.ErrInvalidState
			}
			j.Progress = processed.Seconds()
			return nil
		})
	}
}

func (u *jobsUC) fail(jobID string, jobErr *models.JobError) {
	job, err := u.repo.Update(context.Background(), jobID, func(j *models.Job) error {
		return j.Fail(jobErr, time.Now().UTC())
	})
	if err != nil {
		// Already terminal, e.g. cancelled while queued.
		u.logger.Debugf("fail - job %s: %v", jobID, err)
		return
	}
	u.logger.Warnf("job %s failed: %v", jobID, jobErr)
	u.publish(job)
}

func (u *jobsUC) deleteArtifact(ref string) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := u.store.Delete(ctx, ref); err != nil {
		u.logger.Warnf("deleteArtifact - %s: %v", ref, err)
	}
}

func (u *jobsUC) markRetrieved(ctx context.Context, jobID string) {
	_, err := u.repo.Update(ctx, jobID, func(j *models.Job) error {
		if j.RetrievedAt == nil {
			now := time.Now().UTC()
			j.RetrievedAt = &now
		}
		return nil
	})
	if err != nil {
		u.logger.Warnf("markRetrieved - job %s: %v", jobID, err)
	}
}

func (u *jobsUC) publish(job *models.Job) {
	if u.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := u.events.PublishState(ctx, job); err != nil {
		u.logger.Warnf("publish - job %s state %s: %v", job.ID, job.State, err)
	}
}

func toJobError(err error) *models.JobError {
	var jobErr *models.JobError
	if errors.As(err, &jobErr) && jobErr.Message != "" {
		return jobErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.NewJobError(models.KindTimeout, "job timed out")
	}
	return models.NewJobError(models.KindCancelled, "job cancelled")
}
