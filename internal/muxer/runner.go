package muxer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/amankumarsingh77/media-muxer/internal/config"
	"github.com/amankumarsingh77/media-muxer/internal/models"
	"github.com/amankumarsingh77/media-muxer/pkg/logger"
	"github.com/amankumarsingh77/media-muxer/pkg/utils"
	"golang.org/x/sync/semaphore"
)

// Runner supervises muxer invocations: admission, timeout, exit
// interpretation and cleanup of partial outputs.
type Runner struct {
	process        Process
	logger         logger.Logger
	workDir        string
	timeout        time.Duration
	maxDuration    time.Duration
	maxOutputBytes int64
	maxCPUUsage    float64
	cpuInterval    time.Duration
	cpuCheck       func(ctx context.Context, maxUsage float64) (bool, float64)

	sem    *semaphore.Weighted
	mu     sync.Mutex
	active map[string]struct{}
}

func NewRunner(cfg *config.Config, process Process, log logger.Logger) *Runner {
	limit := cfg.Muxer.MaxConcurrent
	if limit < 1 {
		limit = 1
	}
	interval := cfg.Muxer.CPUCheckInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Runner{
		process:        process,
		logger:         log,
		workDir:        cfg.Muxer.WorkDir,
		timeout:        cfg.Muxer.Timeout,
		maxDuration:    cfg.Muxer.MaxDuration,
		maxOutputBytes: cfg.Muxer.MaxOutputBytes,
		maxCPUUsage:    cfg.Muxer.MaxCPUUsage,
		cpuInterval:    interval,
		cpuCheck:       utils.CheckCPUUsage,
		sem:            semaphore.NewWeighted(int64(limit)),
		active:         make(map[string]struct{}),
	}
}

// Admit blocks until a muxer slot is free (and, when configured, host CPU
// usage is under the limit). The returned release func is idempotent.
func (r *Runner) Admit(ctx context.Context) (func(), error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, context.Cause(ctx)
	}
	if r.maxCPUUsage > 0 {
		for {
			ok, usage := r.cpuCheck(ctx, r.maxCPUUsage)
			if ok {
				break
			}
			r.logger.Infof("CPU usage %.2f%% too high, waiting...", usage)
			select {
			case <-ctx.Done():
				r.sem.Release(1)
				return nil, context.Cause(ctx)
			case <-time.After(r.cpuInterval):
			}
		}
	}
	var once sync.Once
	return func() {
		once.Do(func() { r.sem.Release(1) })
	}, nil
}

// Run executes one muxer process for jobID and returns the local path of the
// produced artifact. Cancelling ctx terminates the process; the cause set on
// ctx (models.ErrCancelled style errors) becomes the job error.
func (r *Runner) Run(ctx context.Context, jobID string, inputs []string, format models.Format, progress func(time.Duration)) (string, *models.JobError) {
	if !r.claim(jobID) {
		return "", models.NewJobError(models.KindInvalidState, "job %s already has a running muxer", jobID)
	}
	defer r.unclaim(jobID)

	if err := os.MkdirAll(r.workDir, 0o755); err != nil {
		return "", models.NewJobError(models.KindProcessFailure, "prepare work dir: %v", err)
	}
	outputPath := filepath.Join(r.workDir, fmt.Sprintf("%s.%s", jobID, format.Extension()))
	if err := os.Remove(outputPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", models.NewJobError(models.KindProcessFailure, "clear stale output: %v", err)
	}

	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if r.timeout > 0 {
		runCtx, cancel = context.WithTimeoutCause(ctx, r.timeout,
			models.NewJobError(models.KindTimeout, "muxer exceeded the %s limit", r.timeout))
	}
	defer cancel()

	start := time.Now()
	res, err := r.process.Run(runCtx, Spec{
		Inputs:      inputs,
		Format:      format,
		OutputPath:  outputPath,
		MaxDuration: r.maxDuration,
		Progress:    progress,
	})
	if res != nil && res.OutputPath != "" {
		outputPath = res.OutputPath
	}

	if jobErr := r.interpret(runCtx, outputPath, res, err); jobErr != nil {
		if rmErr := os.Remove(outputPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			r.logger.Warnf("Run - remove partial output %s: %v", outputPath, rmErr)
		}
		r.logger.Warnf("Run - job %s failed after %s: %v", jobID, time.Since(start), jobErr)
		return "", jobErr
	}
	r.logger.Infof("Run - job %s muxed in %s", jobID, time.Since(start))
	return outputPath, nil
}

func (r *Runner) interpret(runCtx context.Context, outputPath string, res *Result, runErr error) *models.JobError {
	if cause := context.Cause(runCtx); cause != nil {
		jobErr := causeToJobError(cause)
		if res != nil {
			jobErr = jobErr.WithExitCode(res.ExitCode)
		}
		return jobErr
	}
	if runErr != nil {
		return models.NewJobError(models.KindProcessFailure, "launch muxer: %v", runErr).WithExitCode(-1)
	}
	if res.ExitCode != 0 {
		msg := res.Stderr
		if msg == "" {
			msg = fmt.Sprintf("muxer exited with code %d", res.ExitCode)
		}
		return models.NewJobError(models.KindProcessFailure, "%s", msg).WithExitCode(res.ExitCode)
	}
	info, err := os.Stat(outputPath)
	if err != nil || info.IsDir() || info.Size() == 0 {
		return models.NewJobError(models.KindProcessFailure, "muxer produced no output artifact").WithExitCode(0)
	}
	if r.maxOutputBytes > 0 && info.Size() > r.maxOutputBytes {
		return models.NewJobError(models.KindProcessFailure, "output exceeds size limit: %dB > %dB", info.Size(), r.maxOutputBytes).WithExitCode(0)
	}
	return nil
}

func causeToJobError(cause error) *models.JobError {
	var jobErr *models.JobError
	if errors.As(cause, &jobErr) && jobErr.Message != "" {
		return jobErr
	}
	switch {
	case errors.Is(cause, models.ErrTimeout), errors.Is(cause, context.DeadlineExceeded):
		return models.NewJobError(models.KindTimeout, "muxer timed out")
	default:
		return models.NewJobError(models.KindCancelled, "job cancelled")
	}
}

func (r *Runner) claim(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[jobID]; ok {
		return false
	}
	r.active[jobID] = struct{}{}
	return true
}

func (r *Runner) unclaim(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, jobID)
}

// Active returns the number of muxer processes currently running.
func (r *Runner) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}
