package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sofintel/sof-extractor/constants"
	"github.com/sofintel/sof-extractor/internal/common"
	"github.com/sofintel/sof-extractor/internal/entity"
)

// MemoryStore is a process-local JobStore for tests and development.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*entity.Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[uuid.UUID]*entity.Job)}
}

func (s *MemoryStore) Create(_ context.Context, job *entity.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := cloneJob(job)
	s.jobs[job.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*entity.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := cloneJob(job)
	return &cp, nil
}

func (s *MemoryStore) ListByOwner(_ context.Context, owner string) ([]entity.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []entity.Job
	for _, job := range s.jobs {
		if job.Owner == owner {
			out = append(out, cloneJob(job))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) CompareAndSwapStatus(_ context.Context, id uuid.UUID, from, to constants.JobStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return false, common.ErrNotFound
	}
	if job.Status != from {
		return false, nil
	}
	job.Status = to
	job.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *MemoryStore) SetCompleted(_ context.Context, id uuid.UUID, events []entity.Event, warning *entity.ValidationWarning) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return common.ErrNotFound
	}
	if job.Status != constants.JobStatusProcessing {
		return common.ErrInvalidState
	}
	job.Status = constants.JobStatusCompleted
	job.Events = events
	job.ValidationWarning = warning
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) SetFailed(_ context.Context, id uuid.UUID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return common.ErrNotFound
	}
	if job.Status != constants.JobStatusProcessing {
		return common.ErrInvalidState
	}
	job.Status = constants.JobStatusFailed
	job.Error = message
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func cloneJob(job *entity.Job) entity.Job {
	cp := *job
	if job.Events != nil {
		cp.Events = append([]entity.Event(nil), job.Events...)
	}
	if job.ValidationWarning != nil {
		w := *job.ValidationWarning
		cp.ValidationWarning = &w
	}
	return cp
}
