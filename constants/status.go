package constants

// JobStatus is the canonical status for stored extraction jobs.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusQueued     JobStatus = "queued"     // accepted, waiting for a worker
	JobStatusProcessing JobStatus = "processing" // a worker owns the job
	JobStatusCompleted  JobStatus = "completed"  // terminal; events or a validation warning present
	JobStatusFailed     JobStatus = "failed"     // terminal failure
)

// Terminal reports whether no further transition is allowed from s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}
