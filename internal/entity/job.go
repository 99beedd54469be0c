package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/sofintel/sof-extractor/constants"
)

// Job represents one submitted document and its extraction lifecycle.
// Status moves forward only: queued -> processing -> completed | failed.
type Job struct {
	ID          uuid.UUID           `json:"job_id"`
	Owner       string              `json:"owner"`
	Filename    string              `json:"filename"`
	ContentType string              `json:"content_type"`
	Status      constants.JobStatus `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`

	// Events is populated only on completed jobs.
	Events []Event `json:"events,omitempty"`
	// Error is populated only on failed jobs.
	Error string `json:"error,omitempty"`
	// ValidationWarning is set when the document did not look like a
	// Statement of Facts; the job is still completed, with no events.
	ValidationWarning *ValidationWarning `json:"validation_warning,omitempty"`
}

// ValidationWarning explains why a document failed the plausibility gate.
type ValidationWarning struct {
	Description string `json:"description"`
	Suggestion  string `json:"suggestion"`
}

// Summary is the listing shape returned by job-history queries.
type Summary struct {
	ID        uuid.UUID           `json:"job_id"`
	Filename  string              `json:"filename"`
	Status    constants.JobStatus `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
}

// Summarize projects a job into its listing shape.
func (j *Job) Summarize() Summary {
	return Summary{ID: j.ID, Filename: j.Filename, Status: j.Status, CreatedAt: j.CreatedAt}
}
