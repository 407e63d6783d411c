package muxer

import (
	"context"
	"time"

	"github.com/amankumarsingh77/media-muxer/internal/models"
)

// Spec is one muxing invocation: ordered inputs into a single container.
type Spec struct {
	Inputs      []string
	Format      models.Format
	OutputPath  string
	MaxDuration time.Duration
	// Progress receives processed media time; may be nil.
	Progress func(processed time.Duration)
}

// Result is everything the runner interprets about a finished process.
type Result struct {
	ExitCode   int
	OutputPath string
	Stderr     string
}

// Process launches the external muxer. Run returns an error only when the
// process could not be started; a non-zero exit is reported in Result.
type Process interface {
	Run(ctx context.Context, spec Spec) (*Result, error)
}
