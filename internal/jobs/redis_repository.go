package jobs

import (
	"context"

	"github.com/amankumarsingh77/media-muxer/internal/models"
)

// EventPublisher mirrors job state changes to an external channel.
type EventPublisher interface {
	PublishState(ctx context.Context, job *models.Job) error
}
