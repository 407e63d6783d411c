package muxer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"
)

const (
	defaultKillGrace   = 5 * time.Second
	defaultStderrLimit = 4096
)

// FFmpeg runs the ffmpeg binary with stream copy muxing.
type FFmpeg struct {
	path        string
	killGrace   time.Duration
	stderrLimit int
}

func NewFFmpeg(path string, killGrace time.Duration, stderrLimit int) *FFmpeg {
	if killGrace <= 0 {
		killGrace = defaultKillGrace
	}
	if stderrLimit <= 0 {
		stderrLimit = defaultStderrLimit
	}
	return &FFmpeg{
		path:        path,
		killGrace:   killGrace,
		stderrLimit: stderrLimit,
	}
}

func (f *FFmpeg) Args(spec Spec) []string {
	args := []string{"-hide_banner", "-nostdin", "-y"}
	for _, in := range spec.Inputs {
		args = append(args, "-i", in)
	}
	for i := range spec.Inputs {
		args = append(args, "-map", strconv.Itoa(i))
	}
	args = append(args, "-c", "copy")
	if spec.MaxDuration > 0 {
		args = append(args, "-t", strconv.FormatFloat(spec.MaxDuration.Seconds(), 'f', -1, 64))
	}
	args = append(args, "-f", spec.Format.MuxerName())
	if spec.Format.FastStart() {
		args = append(args, "-movflags", "+faststart")
	}
	args = append(args,
		"-progress", "pipe:1",
		"-nostats",
		spec.OutputPath,
	)
	return args
}

func (f *FFmpeg) Run(ctx context.Context, spec Spec) (*Result, error) {
	cmd := exec.CommandContext(ctx, f.path, f.Args(spec)...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = f.killGrace

	stderr := newTailBuffer(f.stderrLimit)
	cmd.Stdout = &progressWriter{report: spec.Progress}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start: %w", err)
	}

	err := cmd.Wait()
	res := &Result{
		ExitCode:   0,
		OutputPath: spec.OutputPath,
		Stderr:     stderr.String(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(err, &exitErr):
			res.ExitCode = exitErr.ExitCode()
		case cmd.ProcessState != nil:
			// ErrWaitDelay and friends: the process is gone, report its status.
			res.ExitCode = cmd.ProcessState.ExitCode()
			if res.ExitCode == 0 {
				res.ExitCode = -1
			}
		default:
			return nil, fmt.Errorf("ffmpeg wait: %w", err)
		}
	}
	return res, nil
}

// progressWriter parses `-progress pipe:1` key=value lines.
type progressWriter struct {
	report  func(time.Duration)
	pending []byte
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.pending = append(p.pending, b...)
	for {
		idx := bytes.IndexByte(p.pending, '\n')
		if idx < 0 {
			break
		}
		p.handleLine(string(p.pending[:idx]))
		p.pending = p.pending[idx+1:]
	}
	return len(b), nil
}

func (p *progressWriter) handleLine(line string) {
	if p.report == nil {
		return
	}
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return
	}
	switch key {
	// out_time_ms is in microseconds despite its name.
	case "out_time_us", "out_time_ms":
		us, err := strconv.ParseInt(value, 10, 64)
		if err != nil || us < 0 {
			return
		}
		p.report(time.Duration(us) * time.Microsecond)
	}
}

// tailBuffer keeps only the last limit bytes written to it.
type tailBuffer struct {
	mu        sync.Mutex
	limit     int
	buf       []byte
	truncated bool
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (t *tailBuffer) Write(b []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, b...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = t.buf[over:]
		t.truncated = true
	}
	return len(b), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := strings.TrimSpace(string(t.buf))
	if t.truncated {
		return "..." + s
	}
	return s
}
