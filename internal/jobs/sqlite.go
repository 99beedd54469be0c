package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/sofintel/sof-extractor/constants"
	"github.com/sofintel/sof-extractor/internal/common"
	"github.com/sofintel/sof-extractor/internal/entity"
)

// SQLiteStore is the default durable JobStore. The queued->processing edge is
// an UPDATE guarded by the expected current status, which SQLite serializes,
// so two workers can never both claim one job.
type SQLiteStore struct {
	db  *sql.DB
	log *slog.Logger
}

func OpenSQLite(dsn string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite", dsn+sep+"_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	s := &SQLiteStore{db: db, log: logger}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Info("job store ready", "driver", "sqlite", "dsn", dsn)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	q := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		filename TEXT NOT NULL,
		content_type TEXT,
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		events TEXT,
		error TEXT,
		validation_warning TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_owner_created ON jobs(owner, created_at);
	`
	_, err := s.db.Exec(q)
	return err
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Create(ctx context.Context, job *entity.Job) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs(id,owner,filename,content_type,status,created_at,updated_at) VALUES(?,?,?,?,?,?,?)`,
		job.ID.String(), job.Owner, job.Filename, job.ContentType, string(job.Status),
		job.CreatedAt.UTC(), job.UpdatedAt.UTC())
	if err != nil {
		s.log.Error("job create failed", "job_id", job.ID, "err", err)
		return err
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,owner,filename,content_type,status,created_at,updated_at,events,error,validation_warning
		 FROM jobs WHERE id = ?`, id.String())
	return scanJob(row)
}

func (s *SQLiteStore) ListByOwner(ctx context.Context, owner string) ([]entity.Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,owner,filename,content_type,status,created_at,updated_at,events,error,validation_warning
		 FROM jobs WHERE owner = ? ORDER BY created_at DESC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *job)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CompareAndSwapStatus(ctx context.Context, id uuid.UUID, from, to constants.JobStatus) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), time.Now().UTC(), id.String(), string(from))
	if err != nil {
		return false, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return aff == 1, nil
}

func (s *SQLiteStore) SetCompleted(ctx context.Context, id uuid.UUID, events []entity.Event, warning *entity.ValidationWarning) error {
	eventsJSON, warningJSON, err := encodeResult(events, warning)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, events = ?, validation_warning = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(constants.JobStatusCompleted), eventsJSON, warningJSON, time.Now().UTC(),
		id.String(), string(constants.JobStatusProcessing))
	if err != nil {
		s.log.Error("job complete failed", "job_id", id, "err", err)
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return common.ErrInvalidState
	}
	return nil
}

func (s *SQLiteStore) SetFailed(ctx context.Context, id uuid.UUID, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, error = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(constants.JobStatusFailed), message, time.Now().UTC(),
		id.String(), string(constants.JobStatusProcessing))
	if err != nil {
		s.log.Error("job fail-mark failed", "job_id", id, "err", err)
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return common.ErrInvalidState
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*entity.Job, error) {
	var (
		job         entity.Job
		idStr       string
		contentType sql.NullString
		status      string
		eventsJSON  sql.NullString
		errMsg      sql.NullString
		warnJSON    sql.NullString
	)
	err := row.Scan(&idStr, &job.Owner, &job.Filename, &contentType, &status,
		&job.CreatedAt, &job.UpdatedAt, &eventsJSON, &errMsg, &warnJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	job.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt job id %q: %w", idStr, err)
	}
	job.ContentType = contentType.String
	job.Status = constants.JobStatus(status)
	job.Error = errMsg.String
	if eventsJSON.Valid && eventsJSON.String != "" {
		if err := json.Unmarshal([]byte(eventsJSON.String), &job.Events); err != nil {
			return nil, fmt.Errorf("decode events: %w", err)
		}
	}
	if warnJSON.Valid && warnJSON.String != "" {
		var w entity.ValidationWarning
		if err := json.Unmarshal([]byte(warnJSON.String), &w); err != nil {
			return nil, fmt.Errorf("decode validation warning: %w", err)
		}
		job.ValidationWarning = &w
	}
	return &job, nil
}

func encodeResult(events []entity.Event, warning *entity.ValidationWarning) (eventsJSON, warningJSON sql.NullString, err error) {
	if events != nil {
		b, mErr := json.Marshal(events)
		if mErr != nil {
			return eventsJSON, warningJSON, fmt.Errorf("encode events: %w", mErr)
		}
		eventsJSON = sql.NullString{String: string(b), Valid: true}
	}
	if warning != nil {
		b, mErr := json.Marshal(warning)
		if mErr != nil {
			return eventsJSON, warningJSON, fmt.Errorf("encode validation warning: %w", mErr)
		}
		warningJSON = sql.NullString{String: string(b), Valid: true}
	}
	return eventsJSON, warningJSON, nil
}
