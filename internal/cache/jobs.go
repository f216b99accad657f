package cache

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/kiranshivaraju/jobtracker/pkg/models"
)

// JobStore is the offline slot holding the last full job collection. Save
// overwrites; there is no merge and no versioning.
type JobStore struct {
	cache Cache
	key   string
}

// NewJobStore binds a JobStore to the jobs key of namespace.
func NewJobStore(c Cache, namespace string) *JobStore {
	return &JobStore{cache: c, key: JobsKey(namespace)}
}

// Save replaces the stored collection with jobs.
func (s *JobStore) Save(ctx context.Context, jobs []models.Job) error {
	if jobs == nil {
		jobs = []models.Job{}
	}
	b, err := json.Marshal(jobs)
	if err != nil {
		return fmt.Errorf("encode jobs: %w", err)
	}
	if err := s.cache.Set(ctx, s.key, b, 0); err != nil {
		return fmt.Errorf("save jobs: %w", err)
	}
	return nil
}

// Load returns the last saved collection, or an empty slice if nothing was saved.
func (s *JobStore) Load(ctx context.Context) ([]models.Job, error) {
	b, found, err := s.cache.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	if !found {
		return []models.Job{}, nil
	}
	var jobs []models.Job
	if err := json.Unmarshal(b, &jobs); err != nil {
		return nil, fmt.Errorf("decode jobs: %w", err)
	}
	if jobs == nil {
		jobs = []models.Job{}
	}
	return jobs, nil
}
