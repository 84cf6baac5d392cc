package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/cirelay/internal/domain/model"
	"github.com/ericfisherdev/cirelay/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RunStore = (*RunRepo)(nil)

// RunRepo is the SQLite implementation of the RunStore port interface. It is
// the bridge's audit trail: one row per dispatched run, updated as monitoring
// observes state changes. Nothing on the dispatch path reads it back.
type RunRepo struct {
	db *DB
}

// NewRunRepo creates a new RunRepo backed by the given DB.
func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// RecordDispatch inserts a new run record and returns its database ID.
func (r *RunRepo) RecordDispatch(ctx context.Context, rec model.RunRecord) (int64, error) {
	const query = `
		INSERT INTO workflow_runs (owner, repo, module, workflow_file, branch, head_sha, run_id, status, conclusion, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := r.db.Writer.ExecContext(ctx, query,
		rec.Owner, rec.Repo, rec.Module, rec.WorkflowFile, rec.Branch, rec.HeadSHA,
		rec.RunID, rec.Status, rec.Conclusion,
		rec.CreatedAt.UTC(), rec.UpdatedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run record for %s/%s: %w", rec.Owner, rec.Repo, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id for run record: %w", err)
	}
	return id, nil
}

// UpdateRun updates the run identity and observed state of a record. A zero
// runID keeps the stored identity, so a monitoring update cannot erase the
// id discovery already resolved.
func (r *RunRepo) UpdateRun(ctx context.Context, id int64, runID int64, status, conclusion string) error {
	const query = `
		UPDATE workflow_runs
		SET run_id = CASE WHEN ? != 0 THEN ? ELSE run_id END,
		    status = ?,
		    conclusion = ?,
		    updated_at = ?
		WHERE id = ?
	`

	res, err := r.db.Writer.ExecContext(ctx, query, runID, runID, status, conclusion, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update run record %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for run record %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("run record %d not found", id)
	}
	return nil
}

// ListRecent returns the most recent run records, newest first.
func (r *RunRepo) ListRecent(ctx context.Context, limit int) ([]model.RunRecord, error) {
	const query = `
		SELECT id, owner, repo, module, workflow_file, branch, head_sha, run_id, status, conclusion, created_at, updated_at
		FROM workflow_runs
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent run records: %w", err)
	}
	defer rows.Close()

	records := []model.RunRecord{}
	for rows.Next() {
		var rec model.RunRecord
		if err := rows.Scan(
			&rec.ID, &rec.Owner, &rec.Repo, &rec.Module, &rec.WorkflowFile,
			&rec.Branch, &rec.HeadSHA, &rec.RunID, &rec.Status, &rec.Conclusion,
			&rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run records: %w", err)
	}
	return records, nil
}
