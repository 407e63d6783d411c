package repository

import (
	"context"
	"net/url"
	"os"
	"time"

	"github.com/amankumarsingh77/media-muxer/internal/jobs"
	"github.com/amankumarsingh77/media-muxer/internal/models"
	"github.com/minio/minio-go/v7"
	"github.com/pkg/errors"
)

type minioRepository struct {
	client *minio.Client
	bucket string
	prefix string
	expiry time.Duration
}

func NewMinioRepository(client *minio.Client, bucket, prefix string, expiry time.Duration) jobs.ArtifactStore {
	return &minioRepository{
		client: client,
		bucket: bucket,
		prefix: prefix,
		expiry: expiry,
	}
}

func (m *minioRepository) Put(ctx context.Context, key, localPath, contentType string) (string, error) {
	objectKey := m.prefix + key
	if _, err := m.client.FPutObject(ctx, m.bucket, objectKey, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return "", errors.Wrap(err, "minioRepository.Put.FPutObject")
	}
	_ = os.Remove(localPath)
	return objectKey, nil
}

func (m *minioRepository) Delete(ctx context.Context, ref string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, ref, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, "minioRepository.Delete.RemoveObject")
	}
	return nil
}

func (m *minioRepository) Locate(ctx context.Context, ref string) (*models.ArtifactLocation, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucket, ref, m.expiry, url.Values{})
	if err != nil {
		return nil, errors.Wrap(err, "minioRepository.Locate.PresignedGetObject")
	}
	return &models.ArtifactLocation{
		URL:         u.String(),
		ContentType: contentTypeForKey(ref),
	}, nil
}
