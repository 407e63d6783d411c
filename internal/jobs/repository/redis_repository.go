package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amankumarsingh77/media-muxer/internal/jobs"
	"github.com/amankumarsingh77/media-muxer/internal/models"
	"github.com/go-redis/redis/v8"
)

type jobRedisRepo struct {
	redisClient *redis.Client
	keyPrefix   string
	channel     string
	ttl         time.Duration
}

func NewJobRedisRepo(redisClient *redis.Client, keyPrefix, channel string, ttl time.Duration) jobs.EventPublisher {
	return &jobRedisRepo{
		redisClient: redisClient,
		keyPrefix:   keyPrefix,
		channel:     channel,
		ttl:         ttl,
	}
}

type stateNotification struct {
	JobID     string          `json:"job_id"`
	State     models.JobState `json:"state"`
	Output    string          `json:"output,omitempty"`
	ErrorKind string          `json:"error_kind,omitempty"`
	Timestamp string          `json:"timestamp"`
}

// PublishState snapshots the job into a hash with TTL and announces the
// transition on the event channel, in one pipeline.
func (r *jobRedisRepo) PublishState(ctx context.Context, job *models.Job) error {
	jobData, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	note := stateNotification{
		JobID:     job.ID,
		State:     job.State,
		Output:    job.Output,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	fields := map[string]interface{}{
		"id":       job.ID,
		"state":    string(job.State),
		"format":   string(job.Format),
		"output":   job.Output,
		"job_data": string(jobData),
	}
	if job.Error != nil {
		note.ErrorKind = string(job.Error.Kind)
		fields["error_kind"] = string(job.Error.Kind)
		fields["error_message"] = job.Error.Message
	}
	noteJSON, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	key := r.keyPrefix + job.ID
	pipe := r.redisClient.Pipeline()
	pipe.HSet(ctx, key, fields)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	pipe.Publish(ctx, r.channel, noteJSON)
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish job state: %w", err)
	}
	return nil
}
