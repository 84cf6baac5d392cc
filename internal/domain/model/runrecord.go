package model

import "time"

// RunRecord is the audit-trail row for one dispatched workflow run. It is
// write-behind diagnostics only: the trigger pipeline never reads it back, and
// a failed write does not affect dispatch or monitoring.
type RunRecord struct {
	ID           int64 // Database primary key.
	Owner        string
	Repo         string
	Module       string
	WorkflowFile string
	Branch       string
	HeadSHA      string
	RunID        int64  // Zero until discovery resolves the run identity.
	Status       string // Last observed run status.
	Conclusion   string // Empty until the run completes.
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
