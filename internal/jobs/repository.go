package jobs

import (
	"context"
	"time"

	"github.com/amankumarsingh77/media-muxer/internal/models"
	"github.com/amankumarsingh77/media-muxer/pkg/utils"
)

// Repository is the owned job registry. Every read returns a copy and every
// mutation goes through Update, which runs fn on a copy under the lock.
type Repository interface {
	CreateOrGet(ctx context.Context, job *models.Job) (*models.Job, bool, error)
	GetByID(ctx context.Context, jobID string) (*models.Job, error)
	Update(ctx context.Context, jobID string, fn func(job *models.Job) error) (*models.Job, error)
	List(ctx context.Context, pq *utils.Pagination) (*models.JobList, error)
	Count(ctx context.Context) (int, error)
	EvictRetrieved(ctx context.Context, before time.Time) ([]string, error)
}
