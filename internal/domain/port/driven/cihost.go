package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/cirelay/internal/domain/model"
)

// CIHost defines the driven port for the CI host's REST surface (GitHub).
// Read methods resolve PR refs and observe run/job state; write methods
// trigger workflow runs and post commit statuses.
type CIHost interface {
	// FetchPullRequestRef returns the head branch and commit for the pull
	// request behind the given issue number. A plain issue or an unknown
	// number surfaces as an error from the underlying API.
	FetchPullRequestRef(ctx context.Context, owner, repo string, number int) (*model.PullRequestRef, error)

	// DispatchWorkflow triggers a workflow_dispatch event for the workflow
	// file on the given ref. The call is fire-and-forget: the resulting run's
	// identity is not returned and must be discovered via ListWorkflowRuns.
	DispatchWorkflow(ctx context.Context, owner, repo, workflowFile, ref string, inputs map[string]any) error

	// ListWorkflowRuns returns workflow_dispatch runs of the workflow file on
	// the given branch created at or after since, newest first.
	ListWorkflowRuns(ctx context.Context, owner, repo, workflowFile, branch string, since time.Time) ([]model.WorkflowRun, error)

	// FetchWorkflowRun returns the current state of a single run.
	FetchWorkflowRun(ctx context.Context, owner, repo string, runID int64) (*model.WorkflowRun, error)

	// ListWorkflowJobs returns all jobs of a run.
	ListWorkflowJobs(ctx context.Context, owner, repo string, runID int64) ([]model.WorkflowJob, error)

	// CreateCommitStatus posts a commit status. GitHub overwrites any prior
	// status with the same context on the same commit.
	CreateCommitStatus(ctx context.Context, owner, repo string, status model.CommitStatus) error
}
