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

// MonitorService polls a discovered run's jobs until every job completes,
// mirroring each observed transition as a commit status on the PR head commit.
// One status context per job ("<workflow> / <job>"), so parallel jobs show as
// separate lines on the PR.
type MonitorService struct {
	host     driven.CIHost
	runStore driven.RunStore
	interval time.Duration
	timeout  time.Duration
}

// NewMonitorService creates a MonitorService polling at interval and giving
// up after timeout.
func NewMonitorService(host driven.CIHost, runStore driven.RunStore, interval, timeout time.Duration) *MonitorService {
	return &MonitorService{
		host:     host,
		runStore: runStore,
		interval: interval,
		timeout:  timeout,
	}
}

// Watch drives the status mirror for one run until all jobs are terminal.
// recordID is the run-history row to keep updated (zero to skip). Status
// write failures never abort the loop: by the time Watch runs, the webhook
// response has long been sent, so best-effort reporting is all there is.
func (s *MonitorService) Watch(ctx context.Context, owner, repo string, run *model.WorkflowRun, sha string, recordID int64) error {
	reported := make(map[string]model.CommitState)

	jobs, err := pollUntil(ctx, s.interval, s.timeout, func(ctx context.Context) ([]model.WorkflowJob, bool, error) {
		jobs, err := s.host.ListWorkflowJobs(ctx, owner, repo, run.ID)
		if err != nil {
			slog.Warn("job listing failed",
				"owner", owner,
				"repo", repo,
				"run_id", run.ID,
				"error", err,
			)
			return nil, false, err
		}

		for _, job := range jobs {
			s.reportJob(ctx, owner, repo, run.WorkflowName, job, sha, reported)
		}

		if len(jobs) == 0 {
			return nil, false, nil
		}
		for _, job := range jobs {
			if !job.Completed() {
				return nil, false, nil
			}
		}
		return jobs, true, nil
	})
	if err != nil {
		if errors.Is(err, errPollDeadline) {
			err = fmt.Errorf("%w: run %d after %s", ErrRunTimeout, run.ID, s.timeout)
		}
		s.report(ctx, owner, repo, model.CommitStatus{
			SHA:         sha,
			State:       model.CommitStateFailure,
			Description: "CI monitoring gave up before completion",
			Context:     run.WorkflowName,
			TargetURL:   run.HTMLURL,
		})
		s.closeRecord(ctx, owner, repo, run, recordID)
		return err
	}

	conclusion := runConclusion(jobs)
	s.recordState(ctx, recordID, run.ID, model.RunStatusCompleted, conclusion)

	slog.Info("run completed",
		"owner", owner,
		"repo", repo,
		"run_id", run.ID,
		"jobs", len(jobs),
		"conclusion", conclusion,
	)
	return nil
}

// reportJob posts the job's current state if it changed since the last post.
// A context that already reported a terminal state is never regressed to
// pending: out-of-order observation must not reopen a finished status line.
func (s *MonitorService) reportJob(ctx context.Context, owner, repo, workflowName string, job model.WorkflowJob, sha string, reported map[string]model.CommitState) {
	statusContext := workflowName + " / " + job.Name
	state := model.StatusState(job.Status, job.Conclusion)

	prev, seen := reported[statusContext]
	if seen && prev == state {
		return
	}
	if seen && prev.Terminal() && !state.Terminal() {
		return
	}

	s.report(ctx, owner, repo, model.CommitStatus{
		SHA:         sha,
		State:       state,
		Description: describeJob(state, job.Conclusion),
		Context:     statusContext,
		TargetURL:   job.DetailsURL,
	})
	reported[statusContext] = state
}

// report posts a commit status, logging and swallowing any failure.
func (s *MonitorService) report(ctx context.Context, owner, repo string, status model.CommitStatus) {
	if err := s.host.CreateCommitStatus(ctx, owner, repo, status); err != nil {
		slog.Error("commit status write failed",
			"owner", owner,
			"repo", repo,
			"sha", status.SHA,
			"context", status.Context,
			"state", status.State,
			"error", err,
		)
		return
	}

	slog.Debug("commit status posted",
		"owner", owner,
		"repo", repo,
		"sha", status.SHA,
		"context", status.Context,
		"state", status.State,
	)
}

// closeRecord finalizes the run-history row after monitoring gave up. A last
// run fetch captures the state the CI host actually reached; when that too is
// unavailable the row is closed as a failure so it never lingers in-progress.
func (s *MonitorService) closeRecord(ctx context.Context, owner, repo string, run *model.WorkflowRun, recordID int64) {
	status, conclusion := model.RunStatusCompleted, model.ConclusionFailure

	current, err := s.host.FetchWorkflowRun(ctx, owner, repo, run.ID)
	if err != nil {
		slog.Warn("final run fetch failed", "owner", owner, "repo", repo, "run_id", run.ID, "error", err)
	} else if current != nil {
		slog.Info("run state at give-up",
			"owner", owner,
			"repo", repo,
			"run_id", run.ID,
			"status", current.Status,
			"conclusion", current.Conclusion,
		)
		if current.Status == model.RunStatusCompleted && current.Conclusion != "" {
			conclusion = current.Conclusion
		}
	}

	s.recordState(ctx, recordID, run.ID, status, conclusion)
}

// recordState updates the run-history row, best effort.
func (s *MonitorService) recordState(ctx context.Context, recordID, runID int64, status, conclusion string) {
	if recordID == 0 {
		return
	}
	if err := s.runStore.UpdateRun(ctx, recordID, runID, status, conclusion); err != nil {
		slog.Error("run history update failed", "record_id", recordID, "run_id", runID, "error", err)
	}
}

// runConclusion derives the aggregate conclusion from completed jobs: success
// only when every job succeeded or was skipped.
func runConclusion(jobs []model.WorkflowJob) string {
	for _, job := range jobs {
		if job.Conclusion != model.ConclusionSuccess && job.Conclusion != model.ConclusionSkipped {
			return model.ConclusionFailure
		}
	}
	return model.ConclusionSuccess
}

// describeJob renders the human-readable status description shown in the PR UI.
func describeJob(state model.CommitState, conclusion string) string {
	switch state {
	case model.CommitStateSuccess:
		return "CI passed"
	case model.CommitStateFailure:
		if conclusion == model.ConclusionFailure {
			return "CI failed"
		}
		return fmt.Sprintf("CI failed (%s)", conclusion)
	default:
		return "CI in progress"
	}
}
