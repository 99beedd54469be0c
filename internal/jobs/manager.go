package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/sofintel/sof-extractor/constants"
	"github.com/sofintel/sof-extractor/internal/common"
	"github.com/sofintel/sof-extractor/internal/entity"
)

// Processor runs the document pipeline for one payload and returns either
// events, a validation warning, or an error.
type Processor interface {
	Process(ctx context.Context, data []byte, filename string) ([]entity.Event, *entity.ValidationWarning, error)
}

// ManagerConfig bounds submissions and worker scheduling.
type ManagerConfig struct {
	MaxUploadBytes int64
	SpoolDir       string
	Workers        int
	QueueSize      int
	JobTimeout     time.Duration
}

// Manager owns the job state machine: it creates jobs, schedules asynchronous
// pipeline execution, and serves owner-scoped status queries. It is the only
// writer of job state.
type Manager struct {
	store  JobStore
	proc   Processor
	cfg    ManagerConfig
	queue  *workQueue
	logger *slog.Logger
}

func NewManager(store JobStore, proc Processor, cfg ManagerConfig, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if cfg.SpoolDir == "" {
		cfg.SpoolDir = filepath.Join(os.TempDir(), "sof-spool")
	}
	if err := os.MkdirAll(cfg.SpoolDir, 0o750); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}

	m := &Manager{store: store, proc: proc, cfg: cfg, logger: logger}
	m.queue = newWorkQueue(m.runJob, logger,
		WithWorkers(cfg.Workers),
		WithQueueSize(cfg.QueueSize),
		WithJobTimeout(cfg.JobTimeout),
	)
	return m, nil
}

// Submit validates the upload, persists a queued job, schedules asynchronous
// execution, and returns immediately.
func (m *Manager) Submit(ctx context.Context, data []byte, filename, contentType, owner string) (uuid.UUID, error) {
	if owner == "" {
		return uuid.Nil, common.ErrUnauthorized
	}
	if int64(len(data)) > m.cfg.MaxUploadBytes {
		return uuid.Nil, fmt.Errorf("%w: file exceeds %d bytes", common.ErrInvalidInput, m.cfg.MaxUploadBytes)
	}
	if len(data) == 0 {
		return uuid.Nil, fmt.Errorf("%w: empty file", common.ErrInvalidInput)
	}
	ext := constants.NormalizeExt(filepath.Ext(filename))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		return uuid.Nil, fmt.Errorf("%w: %q", common.ErrUnsupportedFormat, ext)
	}

	now := time.Now().UTC()
	job := &entity.Job{
		ID:          uuid.New(),
		Owner:       owner,
		Filename:    filename,
		ContentType: contentType,
		Status:      constants.JobStatusQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := os.WriteFile(m.spoolPath(job.ID, filename), data, 0o600); err != nil {
		return uuid.Nil, fmt.Errorf("spool payload: %w", err)
	}
	if err := m.store.Create(ctx, job); err != nil {
		return uuid.Nil, fmt.Errorf("persist job: %w", err)
	}

	m.logger.Info("job.submitted",
		"job_id", job.ID,
		"owner", owner,
		"filename", filename,
		"bytes", len(data),
	)
	m.queue.enqueue(job.ID)
	return job.ID, nil
}

// Get returns the job for its owner. Unknown IDs and foreign jobs are both
// ErrNotFound so existence is never revealed across owners.
func (m *Manager) Get(ctx context.Context, id uuid.UUID, owner string) (*entity.Job, error) {
	job, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Owner != owner {
		return nil, common.ErrNotFound
	}
	return job, nil
}

// ListByOwner returns the owner's jobs, most recent first.
func (m *Manager) ListByOwner(ctx context.Context, owner string) ([]entity.Job, error) {
	return m.store.ListByOwner(ctx, owner)
}

// Shutdown drains the worker pool.
func (m *Manager) Shutdown(ctx context.Context) {
	m.queue.shutdown(ctx)
}

// runJob is the worker entry point. The CAS on queued->processing guarantees
// at most one worker executes a job; the loser exits without side effects.
func (m *Manager) runJob(ctx context.Context, id uuid.UUID) {
	claimed, err := m.store.CompareAndSwapStatus(ctx, id, constants.JobStatusQueued, constants.JobStatusProcessing)
	if err != nil {
		m.logger.Error("job.claim.error", "job_id", id, "error", err)
		return
	}
	if !claimed {
		m.logger.Debug("job.claim.lost", "job_id", id)
		return
	}

	job, err := m.store.Get(ctx, id)
	if err != nil {
		m.logger.Error("job.load.error", "job_id", id, "error", err)
		return
	}

	// the payload is only needed for this run; drop it once the job is terminal
	spool := m.spoolPath(id, job.Filename)
	defer func() {
		if err := os.Remove(spool); err != nil && !os.IsNotExist(err) {
			m.logger.Warn("job.spool.remove", "job_id", id, "error", err)
		}
	}()

	data, err := os.ReadFile(spool)
	if err != nil {
		m.fail(ctx, id, "uploaded document is no longer available")
		return
	}

	start := time.Now()
	events, warning, err := m.proc.Process(ctx, data, job.Filename)
	switch {
	case err != nil:
		msg := "document processing failed"
		if errors.Is(err, common.ErrExtractionService) {
			msg = "extraction service unavailable"
		} else if errors.Is(err, common.ErrUnsupportedFormat) {
			msg = "unsupported document format"
		}
		m.logger.Error("job.pipeline.failed", "job_id", id, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		m.fail(ctx, id, msg)

	case warning != nil:
		// soft failure: completed, no events, warning attached
		if err := m.store.SetCompleted(ctx, id, nil, warning); err != nil {
			m.logger.Error("job.complete.error", "job_id", id, "error", err)
			return
		}
		m.logger.Info("job.completed_with_warning", "job_id", id,
			"elapsed_ms", time.Since(start).Milliseconds())

	default:
		if events == nil {
			events = []entity.Event{}
		}
		if err := m.store.SetCompleted(ctx, id, events, nil); err != nil {
			m.logger.Error("job.complete.error", "job_id", id, "error", err)
			return
		}
		m.logger.Info("job.completed", "job_id", id, "events", len(events),
			"elapsed_ms", time.Since(start).Milliseconds())
	}
}

func (m *Manager) fail(ctx context.Context, id uuid.UUID, message string) {
	if err := m.store.SetFailed(ctx, id, message); err != nil {
		m.logger.Error("job.fail-mark.error", "job_id", id, "error", err)
	}
}

func (m *Manager) spoolPath(id uuid.UUID, filename string) string {
	ext := constants.NormalizeExt(filepath.Ext(filename))
	return filepath.Join(m.cfg.SpoolDir, id.String()+"."+ext)
}
