package model

import "time"

// Run status values as reported by the GitHub Actions API.
const (
	RunStatusQueued     = "queued"
	RunStatusInProgress = "in_progress"
	RunStatusCompleted  = "completed"
)

// Run/job conclusion values. Only ConclusionSuccess maps to a successful
// commit status; every other non-empty conclusion is reported as a failure.
const (
	ConclusionSuccess   = "success"
	ConclusionFailure   = "failure"
	ConclusionCancelled = "cancelled"
	ConclusionTimedOut  = "timed_out"
	ConclusionSkipped   = "skipped"
)

// WorkflowRun is one execution instance of a workflow definition. The run ID
// is assigned by GitHub after dispatch and discovered by listing runs; before
// discovery no WorkflowRun exists locally.
type WorkflowRun struct {
	ID           int64
	WorkflowName string // Display name from the workflow definition.
	Branch       string // Head branch the run executes on.
	Status       string // queued, in_progress, completed.
	Conclusion   string // Empty until Status is completed.
	HTMLURL      string
	CreatedAt    time.Time
}

// WorkflowJob is one unit of work within a WorkflowRun, reporting its own
// status and conclusion.
type WorkflowJob struct {
	ID          int64
	RunID       int64
	Name        string
	Status      string
	Conclusion  string
	DetailsURL  string
	StartedAt   time.Time
	CompletedAt time.Time
}

// Completed reports whether the job has reached a terminal state.
func (j WorkflowJob) Completed() bool {
	return j.Status == RunStatusCompleted
}
