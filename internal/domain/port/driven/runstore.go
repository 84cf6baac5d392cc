package driven

import (
	"context"

	"github.com/ericfisherdev/cirelay/internal/domain/model"
)

// RunStore defines the driven port for the run-history audit trail. All
// methods are best effort from the caller's perspective: failures are logged
// and never abort dispatch or monitoring.
type RunStore interface {
	// RecordDispatch inserts a new record for a just-dispatched run and
	// returns its database ID.
	RecordDispatch(ctx context.Context, rec model.RunRecord) (int64, error)

	// UpdateRun updates the run identity and observed state of a record.
	// A zero runID leaves the stored run identity unchanged.
	UpdateRun(ctx context.Context, id int64, runID int64, status, conclusion string) error

	// ListRecent returns the most recent records, newest first.
	ListRecent(ctx context.Context, limit int) ([]model.RunRecord, error)
}
