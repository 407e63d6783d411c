package models

import (
	"time"
)

type JobState string

const (
	JobStatePending   JobState = "Pending"
	JobStateRunning   JobState = "Running"
	JobStateSucceeded JobState = "Succeeded"
	JobStateFailed    JobState = "Failed"
)

func (s JobState) IsTerminal() bool {
	return s == JobStateSucceeded || s == JobStateFailed
}

type Job struct {
	ID          string     `json:"id"`
	Inputs      []string   `json:"inputs"`
	Format      Format     `json:"format"`
	State       JobState   `json:"state"`
	Output      string     `json:"output,omitempty"`
	Error       *JobError  `json:"error,omitempty"`
	Progress    float64    `json:"progress_seconds"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Dispatched  bool       `json:"-"`
	RetrievedAt *time.Time `json:"-"`
}

func NewJob(id string, inputs []string, format Format, now time.Time) *Job {
	in := make([]string, len(inputs))
	copy(in, inputs)
	return &Job{
		ID:        id,
		Inputs:    in,
		Format:    format,
		State:     JobStatePending,
		CreatedAt: now,
	}
}

func (j *Job) IsTerminal() bool {
	return j.State.IsTerminal()
}

// Start moves a Pending job to Running.
func (j *Job) Start(now time.Time) error {
	if j.State != JobStatePending {
		return NewJobError(KindInvalidState, "job %s is %s, cannot start", j.ID, j.State)
	}
	j.State = JobStateRunning
	j.StartedAt = &now
	return nil
}

// Succeed records the artifact reference of a Running job.
func (j *Job) Succeed(output string, now time.Time) error {
	if j.State != JobStateRunning {
		return NewJobError(KindInvalidState, "job %s is %s, cannot succeed", j.ID, j.State)
	}
	if output == "" {
		return NewJobError(KindInvalidState, "job %s cannot succeed without an output", j.ID)
	}
	j.State = JobStateSucceeded
	j.Output = output
	j.Error = nil
	j.FinishedAt = &now
	return nil
}

// Fail terminates a Pending or Running job with a non-empty error detail.
func (j *Job) Fail(jobErr *JobError, now time.Time) error {
	if j.IsTerminal() {
		return NewJobError(KindInvalidState, "job %s is already %s", j.ID, j.State)
	}
	if jobErr == nil || jobErr.Kind == "" {
		jobErr = NewJobError(KindProcessFailure, "unknown failure")
	}
	if jobErr.Message == "" {
		jobErr = &JobError{Kind: jobErr.Kind, Message: string(jobErr.Kind), ExitCode: jobErr.ExitCode}
	}
	j.State = JobStateFailed
	j.Output = ""
	j.Error = jobErr.clone()
	j.FinishedAt = &now
	return nil
}

func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	out := *j
	out.Inputs = make([]string, len(j.Inputs))
	copy(out.Inputs, j.Inputs)
	out.Error = j.Error.clone()
	out.StartedAt = cloneTime(j.StartedAt)
	out.FinishedAt = cloneTime(j.FinishedAt)
	out.RetrievedAt = cloneTime(j.RetrievedAt)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// MuxRequest is the submit payload.
type MuxRequest struct {
	Inputs []string `json:"inputs" validate:"required,min=1,dive,required"`
	Format Format   `json:"format" validate:"required,muxformat"`
}

type SubmitResponse struct {
	ID    string   `json:"id"`
	State JobState `json:"state"`
}

type JobStatus struct {
	ID         string     `json:"id"`
	Inputs     []string   `json:"inputs"`
	State      JobState   `json:"state"`
	Format     Format     `json:"format"`
	Output     string     `json:"output,omitempty"`
	Error      *JobError  `json:"error,omitempty"`
	Progress   float64    `json:"progress_seconds"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func (j *Job) Status() *JobStatus {
	inputs := make([]string, len(j.Inputs))
	copy(inputs, j.Inputs)
	return &JobStatus{
		ID:         j.ID,
		Inputs:     inputs,
		State:      j.State,
		Format:     j.Format,
		Output:     j.Output,
		Error:      j.Error.clone(),
		Progress:   j.Progress,
		CreatedAt:  j.CreatedAt,
		StartedAt:  cloneTime(j.StartedAt),
		FinishedAt: cloneTime(j.FinishedAt),
	}
}

type JobList struct {
	Jobs       []*JobStatus `json:"jobs"`
	TotalCount int          `json:"total_count"`
	TotalPages int          `json:"total_pages"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	HasMore    bool         `json:"has_more"`
}

// ArtifactLocation says where a produced artifact can be fetched from:
// a local file path or a (presigned) URL.
type ArtifactLocation struct {
	Path        string
	URL         string
	ContentType string
}
