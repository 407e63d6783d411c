package jobs

import (
	"context"
	"time"

	"github.com/amankumarsingh77/media-muxer/internal/models"
)

// Runner is the process runner as seen by the tracker; *muxer.Runner implements it.
type Runner interface {
	Admit(ctx context.Context) (func(), error)
	Run(ctx context.Context, jobID string, inputs []string, format models.Format, progress func(time.Duration)) (string, *models.JobError)
}
