// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/cirelay/internal/domain/model"
	"github.com/ericfisherdev/cirelay/internal/domain/port/driven"
)

// dispatchClockSkew widens the discovery window to tolerate clock drift
// between this process and the CI host's run timestamps.
const dispatchClockSkew = time.Minute

// DispatchService triggers workflow runs and resolves their identity. The
// dispatch call itself is fire-and-forget; the run id has to be recovered
// afterwards by listing runs for the same workflow and branch.
type DispatchService struct {
	host     driven.CIHost
	interval time.Duration
	timeout  time.Duration
}

// NewDispatchService creates a DispatchService polling at interval and giving
// up on discovery after timeout.
func NewDispatchService(host driven.CIHost, interval, timeout time.Duration) *DispatchService {
	return &DispatchService{
		host:     host,
		interval: interval,
		timeout:  timeout,
	}
}

// Dispatch triggers the workflow on ref, forwarding the module name as a
// workflow input so the all-modules workflow can scope itself.
func (s *DispatchService) Dispatch(ctx context.Context, owner, repo, workflowFile, ref, module string) error {
	inputs := map[string]any{"module": module}
	if err := s.host.DispatchWorkflow(ctx, owner, repo, workflowFile, ref, inputs); err != nil {
		return fmt.Errorf("%w: %s on %s/%s@%s: %v", ErrDispatch, workflowFile, owner, repo, ref, err)
	}

	slog.Info("workflow dispatched",
		"owner", owner,
		"repo", repo,
		"workflow", workflowFile,
		"ref", ref,
		"module", module,
	)
	return nil
}

// ResolveRun discovers the run produced by a dispatch issued at dispatchedAt.
// It polls the run listing for the same workflow and branch, restricted to
// runs created at or after the dispatch time (minus clock skew), and adopts
// the newest one.
//
// Known weak point: if two dispatches for the same workflow and branch are in
// flight at once, nothing distinguishes which listed run belongs to which
// dispatch, and both callers may adopt the same run. The creation-time filter
// narrows the window but cannot close it.
func (s *DispatchService) ResolveRun(ctx context.Context, owner, repo, workflowFile, branch string, dispatchedAt time.Time) (*model.WorkflowRun, error) {
	since := dispatchedAt.Add(-dispatchClockSkew)

	run, err := pollUntil(ctx, s.interval, s.timeout, func(ctx context.Context) (*model.WorkflowRun, bool, error) {
		runs, err := s.host.ListWorkflowRuns(ctx, owner, repo, workflowFile, branch, since)
		if err != nil {
			slog.Warn("run discovery query failed",
				"owner", owner,
				"repo", repo,
				"workflow", workflowFile,
				"branch", branch,
				"error", err,
			)
			return nil, false, err
		}
		if len(runs) == 0 {
			return nil, false, nil
		}

		// Listing is newest first; the newest run in the window is ours.
		adopted := runs[0]
		return &adopted, true, nil
	})
	if err != nil {
		if errors.Is(err, errPollDeadline) {
			return nil, fmt.Errorf("%w: %s on %s/%s branch %s after %s", ErrDispatchTimeout, workflowFile, owner, repo, branch, s.timeout)
		}
		return nil, err
	}

	slog.Info("dispatched run resolved",
		"owner", owner,
		"repo", repo,
		"workflow", workflowFile,
		"branch", branch,
		"run_id", run.ID,
		"status", run.Status,
	)
	return run, nil
}
