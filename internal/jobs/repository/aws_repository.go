package repository

import (
	"context"
	"os"
	"time"

	"github.com/amankumarsingh77/media-muxer/internal/jobs"
	"github.com/amankumarsingh77/media-muxer/internal/models"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
)

type awsRepository struct {
	client        *s3.Client
	preSignClient *s3.PresignClient
	bucket        string
	prefix        string
	expiry        time.Duration
}

func NewAwsRepository(awsClient *s3.Client, preSignClient *s3.PresignClient, bucket, prefix string, expiry time.Duration) jobs.ArtifactStore {
	return &awsRepository{
		client:        awsClient,
		preSignClient: preSignClient,
		bucket:        bucket,
		prefix:        prefix,
		expiry:        expiry,
	}
}

func (a *awsRepository) Put(ctx context.Context, key, localPath, contentType string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", errors.Wrap(err, "awsRepository.Put.Open")
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return "", errors.Wrap(err, "awsRepository.Put.Stat")
	}
	objectKey := a.prefix + key
	size := stat.Size()
	if _, err = a.client.PutObject(
		ctx,
		&s3.PutObjectInput{
			Bucket:        &a.bucket,
			Key:           &objectKey,
			ContentType:   &contentType,
			ContentLength: &size,
			Body:          file,
		},
	); err != nil {
		return "", errors.Wrap(err, "failed to upload artifact")
	}
	file.Close()
	_ = os.Remove(localPath)
	return objectKey, nil
}

func (a *awsRepository) Delete(ctx context.Context, ref string) error {
	if _, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &a.bucket,
		Key:    &ref,
	}); err != nil {
		return errors.Wrap(err, "failed to delete artifact")
	}
	return nil
}

func (a *awsRepository) Locate(ctx context.Context, ref string) (*models.ArtifactLocation, error) {
	req, err := a.preSignClient.PresignGetObject(
		ctx,
		&s3.GetObjectInput{
			Bucket: &a.bucket,
			Key:    &ref,
		},
		s3.WithPresignExpires(a.expiry),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to presign get object")
	}
	return &models.ArtifactLocation{
		URL:         req.URL,
		ContentType: contentTypeForKey(ref),
	}, nil
}
