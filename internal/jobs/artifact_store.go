package jobs

import (
	"context"

	"github.com/amankumarsingh77/media-muxer/internal/models"
)

// ArtifactStore persists muxer outputs behind an opaque reference.
type ArtifactStore interface {
	// Put takes ownership of localPath and returns the reference recorded on the job.
	Put(ctx context.Context, key, localPath, contentType string) (string, error)
	Locate(ctx context.Context, ref string) (*models.ArtifactLocation, error)
	// Delete removes a stored artifact. Missing artifacts are not an error.
	Delete(ctx context.Context, ref string) error
}
