package jobs

import (
	"context"

	"github.com/amankumarsingh77/media-muxer/internal/models"
	"github.com/amankumarsingh77/media-muxer/pkg/utils"
)

type UseCase interface {
	Submit(ctx context.Context, req *models.MuxRequest) (*models.Job, bool, error)
	CreateJob(ctx context.Context, inputs []string, format models.Format) (*models.Job, bool, error)
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	RunJob(ctx context.Context, jobID string) (*models.Job, error)
	CancelJob(ctx context.Context, jobID string) (*models.Job, error)
	ListJobs(ctx context.Context, pq *utils.Pagination) (*models.JobList, error)
	GetArtifact(ctx context.Context, jobID string) (*models.ArtifactLocation, error)
	EvictRetrieved(ctx context.Context) (int, error)
	StartJanitor(ctx context.Context)
	Shutdown(ctx context.Context) error
}
