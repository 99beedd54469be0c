package jobs

import (
	"context"

	"github.com/google/uuid"

	"github.com/sofintel/sof-extractor/constants"
	"github.com/sofintel/sof-extractor/internal/entity"
)

// JobStore is the durable store behind the job state machine. All mutations
// go through the manager; status moves forward only, and the queued ->
// processing edge is a compare-and-swap so at most one worker ever owns a job.
type JobStore interface {
	Create(ctx context.Context, job *entity.Job) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	// ListByOwner returns the owner's jobs ordered by creation time, most
	// recent first.
	ListByOwner(ctx context.Context, owner string) ([]entity.Job, error)
	// CompareAndSwapStatus transitions from->to atomically. Returns false
	// without side effects when the job is not in "from".
	CompareAndSwapStatus(ctx context.Context, id uuid.UUID, from, to constants.JobStatus) (bool, error)
	// SetCompleted finalizes a processing job with events or a validation
	// warning (never both).
	SetCompleted(ctx context.Context, id uuid.UUID, events []entity.Event, warning *entity.ValidationWarning) error
	// SetFailed finalizes a processing job with a short failure reason.
	SetFailed(ctx context.Context, id uuid.UUID, message string) error
	Close() error
}
