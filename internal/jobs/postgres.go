package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sofintel/sof-extractor/constants"
	"github.com/sofintel/sof-extractor/internal/common"
	"github.com/sofintel/sof-extractor/internal/entity"
)

// PostgresStore is the pgx-backed JobStore for multi-instance deployments.
// Same table shape and CAS semantics as the SQLite store.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func OpenPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "sof-extractor"

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	s := &PostgresStore{pool: pool, log: logger}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Info("job store ready", "driver", "postgres")
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	q := `
	CREATE TABLE IF NOT EXISTS jobs (
		id UUID PRIMARY KEY,
		owner TEXT NOT NULL,
		filename TEXT NOT NULL,
		content_type TEXT,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		events JSONB,
		error TEXT,
		validation_warning JSONB
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_owner_created ON jobs(owner, created_at);
	`
	_, err := s.pool.Exec(ctx, q)
	return err
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, job *entity.Job) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs(id,owner,filename,content_type,status,created_at,updated_at)
		 VALUES($1,$2,$3,$4,$5,$6,$7)`,
		job.ID, job.Owner, job.Filename, job.ContentType, string(job.Status),
		job.CreatedAt.UTC(), job.UpdatedAt.UTC())
	if err != nil {
		s.log.Error("job create failed", "job_id", job.ID, "err", err)
		return err
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id,owner,filename,content_type,status,created_at,updated_at,events,error,validation_warning
		 FROM jobs WHERE id = $1`, id)
	return scanPgJob(row)
}

func (s *PostgresStore) ListByOwner(ctx context.Context, owner string) ([]entity.Job, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id,owner,filename,content_type,status,created_at,updated_at,events,error,validation_warning
		 FROM jobs WHERE owner = $1 ORDER BY created_at DESC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.Job
	for rows.Next() {
		job, err := scanPgJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *job)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CompareAndSwapStatus(ctx context.Context, id uuid.UUID, from, to constants.JobStatus) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		string(to), time.Now().UTC(), id, string(from))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) SetCompleted(ctx context.Context, id uuid.UUID, events []entity.Event, warning *entity.ValidationWarning) error {
	var eventsJSON, warningJSON []byte
	var err error
	if events != nil {
		if eventsJSON, err = json.Marshal(events); err != nil {
			return fmt.Errorf("encode events: %w", err)
		}
	}
	if warning != nil {
		if warningJSON, err = json.Marshal(warning); err != nil {
			return fmt.Errorf("encode validation warning: %w", err)
		}
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, events = $2, validation_warning = $3, updated_at = $4
		 WHERE id = $5 AND status = $6`,
		string(constants.JobStatusCompleted), eventsJSON, warningJSON, time.Now().UTC(),
		id, string(constants.JobStatusProcessing))
	if err != nil {
		s.log.Error("job complete failed", "job_id", id, "err", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) SetFailed(ctx context.Context, id uuid.UUID, message string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, error = $2, updated_at = $3 WHERE id = $4 AND status = $5`,
		string(constants.JobStatusFailed), message, time.Now().UTC(),
		id, string(constants.JobStatusProcessing))
	if err != nil {
		s.log.Error("job fail-mark failed", "job_id", id, "err", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrInvalidState
	}
	return nil
}

func scanPgJob(row pgx.Row) (*entity.Job, error) {
	var (
		job         entity.Job
		contentType *string
		status      string
		eventsJSON  []byte
		errMsg      *string
		warnJSON    []byte
	)
	err := row.Scan(&job.ID, &job.Owner, &job.Filename, &contentType, &status,
		&job.CreatedAt, &job.UpdatedAt, &eventsJSON, &errMsg, &warnJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	if contentType != nil {
		job.ContentType = *contentType
	}
	job.Status = constants.JobStatus(status)
	if errMsg != nil {
		job.Error = *errMsg
	}
	if len(eventsJSON) > 0 {
		if err := json.Unmarshal(eventsJSON, &job.Events); err != nil {
			return nil, fmt.Errorf("decode events: %w", err)
		}
	}
	if len(warnJSON) > 0 {
		var w entity.ValidationWarning
		if err := json.Unmarshal(warnJSON, &w); err != nil {
			return nil, fmt.Errorf("decode validation warning: %w", err)
		}
		job.ValidationWarning = &w
	}
	return &job, nil
}
