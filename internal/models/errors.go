package models

import "fmt"

type ErrorKind string

const (
	KindInvalidInput   ErrorKind = "InvalidInput"
	KindNotFound       ErrorKind = "NotFound"
	KindInvalidState   ErrorKind = "InvalidState"
	KindProcessFailure ErrorKind = "ProcessFailure"
	KindTimeout        ErrorKind = "Timeout"
	KindCancelled      ErrorKind = "Cancelled"
	KindStorageFailure ErrorKind = "StorageFailure"
)

// JobError is both the failure detail recorded on a Failed job and the
// error value returned by tracker operations.
type JobError struct {
	Kind     ErrorKind `json:"kind"`
	Message  string    `json:"message"`
	ExitCode *int      `json:"exit_code,omitempty"`
}

// Sentinels for errors.Is; they match any JobError of the same kind.
var (
	ErrInvalidInput = &JobError{Kind: KindInvalidInput}
	ErrNotFound     = &JobError{Kind: KindNotFound}
	ErrInvalidState = &JobError{Kind: KindInvalidState}
	ErrTimeout      = &JobError{Kind: KindTimeout}
	ErrCancelled    = &JobError{Kind: KindCancelled}
)

func NewJobError(kind ErrorKind, format string, args ...interface{}) *JobError {
	return &JobError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithExitCode returns a copy carrying the subprocess exit code.
func (e *JobError) WithExitCode(code int) *JobError {
	out := *e
	out.ExitCode = &code
	return &out
}

func (e *JobError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	if e.ExitCode != nil {
		return fmt.Sprintf("%s: %s (exit code %d)", e.Kind, e.Message, *e.ExitCode)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *JobError) Is(target error) bool {
	t, ok := target.(*JobError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func (e *JobError) clone() *JobError {
	if e == nil {
		return nil
	}
	out := *e
	if e.ExitCode != nil {
		code := *e.ExitCode
		out.ExitCode = &code
	}
	return &out
}
