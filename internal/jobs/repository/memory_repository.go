package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/amankumarsingh77/media-muxer/internal/jobs"
	"github.com/amankumarsingh77/media-muxer/internal/models"
	"github.com/amankumarsingh77/media-muxer/pkg/utils"
)

type jobRepo struct {
	mu    sync.RWMutex
	jobs  map[string]*models.Job
	byKey map[string]string
}

func NewJobRepo() jobs.Repository {
	return &jobRepo{
		jobs:  make(map[string]*models.Job),
		byKey: make(map[string]string),
	}
}

// DedupKey addresses a request by its ordered inputs and target format.
func DedupKey(inputs []string, format models.Format) string {
	h := sha256.New()
	h.Write([]byte(format))
	for _, in := range inputs {
		h.Write([]byte{0})
		h.Write([]byte(in))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CreateOrGet stores job unless a non-Failed job with the same inputs and
// format exists, in which case that job is returned and created is false.
func (r *jobRepo) CreateOrGet(ctx context.Context, job *models.Job) (*models.Job, bool, error) {
	key := DedupKey(job.Inputs, job.Format)

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byKey[key]; ok {
		if existing, ok := r.jobs[id]; ok && existing.State != models.JobStateFailed {
			return existing.Clone(), false, nil
		}
		delete(r.byKey, key)
	}
	if _, ok := r.jobs[job.ID]; ok {
		return nil, false, models.NewJobError(models.KindInvalidState, "job %s already exists", job.ID)
	}
	stored := job.Clone()
	r.jobs[stored.ID] = stored
	r.byKey[key] = stored.ID
	return stored.Clone(), true, nil
}

func (r *jobRepo) GetByID(ctx context.Context, jobID string) (*models.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return nil, models.NewJobError(models.KindNotFound, "job %s not found", jobID)
	}
	return job.Clone(), nil
}

func (r *jobRepo) Update(ctx context.Context, jobID string, fn func(job *models.Job) error) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.jobs[jobID]
	if !ok {
		return nil, models.NewJobError(models.KindNotFound, "job %s not found", jobID)
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		return current.Clone(), err
	}
	next.ID = current.ID
	next.Inputs = current.Clone().Inputs
	next.Format = current.Format
	r.jobs[jobID] = next
	if next.State == models.JobStateFailed {
		key := DedupKey(next.Inputs, next.Format)
		if r.byKey[key] == jobID {
			delete(r.byKey, key)
		}
	}
	return next.Clone(), nil
}

func (r *jobRepo) List(ctx context.Context, pq *utils.Pagination) (*models.JobList, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*models.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		all = append(all, job)
	}
	sort.Slice(all, func(i, k int) bool {
		if all[i].CreatedAt.Equal(all[k].CreatedAt) {
			return all[i].ID < all[k].ID
		}
		return all[i].CreatedAt.Before(all[k].CreatedAt)
	})
	start, end := pq.Bounds(len(all))
	page := make([]*models.JobStatus, 0, end-start)
	for _, job := range all[start:end] {
		page = append(page, job.Status())
	}
	total := len(all)

	return &models.JobList{
		Jobs:       page,
		TotalCount: total,
		TotalPages: utils.GetTotalPages(total, pq.GetSize()),
		Page:       pq.GetPage(),
		PageSize:   pq.GetSize(),
		HasMore:    utils.GetHasMore(pq.GetPage(), total, pq.GetSize()),
	}, nil
}

func (r *jobRepo) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs), nil
}

// EvictRetrieved drops terminal jobs whose result was read before the cutoff.
func (r *jobRepo) EvictRetrieved(ctx context.Context, before time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []string
	for id, job := range r.jobs {
		if !job.IsTerminal() || job.RetrievedAt == nil || !job.RetrievedAt.Before(before) {
			continue
		}
		key := DedupKey(job.Inputs, job.Format)
		if r.byKey[key] == id {
			delete(r.byKey, key)
		}
		delete(r.jobs, id)
		evicted = append(evicted, id)
	}
	sort.Strings(evicted)
	return evicted, nil
}
