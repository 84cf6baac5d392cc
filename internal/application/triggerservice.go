package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/cirelay/internal/config"
	"github.com/ericfisherdev/cirelay/internal/domain/model"
	"github.com/ericfisherdev/cirelay/internal/domain/port/driven"
)

// Outcome describes how a comment event was handled. Triggered is false for
// benign no-ops (non-command comments, comments on plain issues); Message is
// the human-readable body returned to the webhook caller.
type Outcome struct {
	Triggered bool
	Message   string
	Module    string
	Workflow  string
}

// TriggerService runs the whole-invocation pipeline: command parsing, PR
// resolution, synchronous dispatch, then detached run discovery and
// monitoring. The webhook caller expects an acknowledgment within seconds
// while discovery and polling can take many minutes, so HandleComment returns
// as soon as the dispatch call succeeds and hands the rest to a background
// goroutine. The service tracks those goroutines and Wait drains them on
// shutdown; keeping the process alive until Wait returns is the hosting
// contract that makes the early acknowledgment safe.
type TriggerService struct {
	host        driven.CIHost
	runStore    driven.RunStore
	dispatchSvc *DispatchService
	monitorSvc  *MonitorService
	modules     config.ModuleWorkflows
	background  time.Duration // Upper bound for one detached discovery+monitor phase.

	wg sync.WaitGroup
}

// NewTriggerService wires the trigger pipeline.
func NewTriggerService(
	host driven.CIHost,
	runStore driven.RunStore,
	dispatchSvc *DispatchService,
	monitorSvc *MonitorService,
	modules config.ModuleWorkflows,
	dispatchTimeout, runTimeout time.Duration,
) *TriggerService {
	return &TriggerService{
		host:        host,
		runStore:    runStore,
		dispatchSvc: dispatchSvc,
		monitorSvc:  monitorSvc,
		modules:     modules,
		background:  dispatchTimeout + runTimeout + time.Minute,
	}
}

// HandleComment processes one issue_comment delivery. Signature verification
// has already happened at the HTTP boundary; everything here assumes an
// authenticated caller. Errors are the sentinel kinds from errors.go so the
// adapter can map them to response codes.
func (s *TriggerService) HandleComment(ctx context.Context, ev model.CommentEvent) (Outcome, error) {
	if !ev.IsPullRequest {
		return Outcome{Message: "comment is not on a pull request, ignoring"}, nil
	}

	cmd, ok := ParseCommand(ev.CommentBody)
	if !ok {
		return Outcome{Message: "no CI command in comment, ignoring"}, nil
	}

	workflowFile, ok := s.modules.Resolve(cmd.Module)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %q (configured: %v)", ErrUnknownModule, cmd.Module, s.modules.Names())
	}

	ref, err := s.host.FetchPullRequestRef(ctx, ev.Owner, ev.Repo, ev.IssueNumber)
	if err != nil {
		slog.Error("pull request resolution failed",
			"owner", ev.Owner,
			"repo", ev.Repo,
			"issue", ev.IssueNumber,
			"error", err,
		)
		return Outcome{}, fmt.Errorf("%w: %s/%s#%d", ErrPullRequestLookup, ev.Owner, ev.Repo, ev.IssueNumber)
	}

	dispatchedAt := time.Now()
	if err := s.dispatchSvc.Dispatch(ctx, ev.Owner, ev.Repo, workflowFile, ref.HeadRef, cmd.Module); err != nil {
		return Outcome{}, err
	}

	recordID := s.recordDispatch(ctx, ev, cmd.Module, workflowFile, *ref, dispatchedAt)

	s.wg.Add(1)
	go s.followRun(ev.Owner, ev.Repo, workflowFile, cmd.Module, *ref, dispatchedAt, recordID)

	return Outcome{
		Triggered: true,
		Message:   fmt.Sprintf("dispatched %s for module %q on %s", workflowFile, cmd.Module, ref.HeadRef),
		Module:    cmd.Module,
		Workflow:  workflowFile,
	}, nil
}

// Wait blocks until all detached discovery/monitor goroutines finish. Called
// by the composition root during graceful shutdown.
func (s *TriggerService) Wait() {
	s.wg.Wait()
}

// followRun is the detached phase: discover the run identity, then mirror its
// jobs to commit statuses until terminal. It runs on a fresh context because
// the originating HTTP request's context died when the response was written.
func (s *TriggerService) followRun(owner, repo, workflowFile, module string, ref model.PullRequestRef, dispatchedAt time.Time, recordID int64) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.background)
	defer cancel()

	run, err := s.dispatchSvc.ResolveRun(ctx, owner, repo, workflowFile, ref.HeadRef, dispatchedAt)
	if err != nil {
		slog.Error("run discovery failed",
			"owner", owner,
			"repo", repo,
			"workflow", workflowFile,
			"branch", ref.HeadRef,
			"error", err,
		)
		s.reportDiscoveryFailure(ctx, owner, repo, module, ref.HeadSHA)
		s.closeRecord(ctx, recordID)
		return
	}

	if recordID != 0 {
		if err := s.runStore.UpdateRun(ctx, recordID, run.ID, run.Status, run.Conclusion); err != nil {
			slog.Error("run history update failed", "record_id", recordID, "run_id", run.ID, "error", err)
		}
	}

	if err := s.monitorSvc.Watch(ctx, owner, repo, run, ref.HeadSHA, recordID); err != nil {
		slog.Error("run monitoring ended with error",
			"owner", owner,
			"repo", repo,
			"run_id", run.ID,
			"error", err,
		)
	}
}

// recordDispatch writes the audit row for a dispatch, best effort. Returns
// zero when the write fails, which disables later updates for this run.
func (s *TriggerService) recordDispatch(ctx context.Context, ev model.CommentEvent, module, workflowFile string, ref model.PullRequestRef, dispatchedAt time.Time) int64 {
	id, err := s.runStore.RecordDispatch(ctx, model.RunRecord{
		Owner:        ev.Owner,
		Repo:         ev.Repo,
		Module:       module,
		WorkflowFile: workflowFile,
		Branch:       ref.HeadRef,
		HeadSHA:      ref.HeadSHA,
		Status:       model.RunStatusQueued,
		CreatedAt:    dispatchedAt,
		UpdatedAt:    dispatchedAt,
	})
	if err != nil {
		slog.Error("run history insert failed",
			"owner", ev.Owner,
			"repo", ev.Repo,
			"workflow", workflowFile,
			"error", err,
		)
		return 0
	}
	return id
}

// reportDiscoveryFailure posts a failure status when the dispatched run was
// never found; without a run there are no job contexts, so a module-level
// context stands in.
func (s *TriggerService) reportDiscoveryFailure(ctx context.Context, owner, repo, module, sha string) {
	status := model.CommitStatus{
		SHA:         sha,
		State:       model.CommitStateFailure,
		Description: "could not locate the dispatched workflow run",
		Context:     "ci / " + module,
	}
	if err := s.host.CreateCommitStatus(ctx, owner, repo, status); err != nil {
		slog.Error("commit status write failed", "owner", owner, "repo", repo, "sha", sha, "error", err)
	}
}

// closeRecord marks an audit row failed after discovery gave up.
func (s *TriggerService) closeRecord(ctx context.Context, recordID int64) {
	if recordID == 0 {
		return
	}
	if err := s.runStore.UpdateRun(ctx, recordID, 0, model.RunStatusCompleted, model.ConclusionFailure); err != nil {
		slog.Error("run history update failed", "record_id", recordID, "error", err)
	}
}
