package application_test

import (
	"context"
	"sync"
	"time"

	"github.com/ericfisherdev/cirelay/internal/domain/model"
)

// --- Mock CIHost ---

type dispatchCall struct {
	Owner, Repo, WorkflowFile, Ref string
	Inputs                         map[string]any
}

// mockCIHost is a scripted CIHost. Successive ListWorkflowRuns and
// ListWorkflowJobs calls pop from their queues, repeating the final entry
// once drained, which lets tests script a run's progression tick by tick.
// All state is mutex-guarded because the trigger service observes the host
// from a background goroutine.
type mockCIHost struct {
	mu sync.Mutex

	ref    *model.PullRequestRef
	refErr error

	dispatchErr error
	dispatched  []dispatchCall

	runPages [][]model.WorkflowRun
	runsErr  error

	jobPages [][]model.WorkflowJob
	jobsErr  error

	run         *model.WorkflowRun
	fetchRunErr error

	statuses  []model.CommitStatus
	statusErr error
}

func (m *mockCIHost) FetchPullRequestRef(_ context.Context, _, _ string, _ int) (*model.PullRequestRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ref, m.refErr
}

func (m *mockCIHost) DispatchWorkflow(_ context.Context, owner, repo, workflowFile, ref string, inputs map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dispatchErr != nil {
		return m.dispatchErr
	}
	m.dispatched = append(m.dispatched, dispatchCall{Owner: owner, Repo: repo, WorkflowFile: workflowFile, Ref: ref, Inputs: inputs})
	return nil
}

func (m *mockCIHost) ListWorkflowRuns(_ context.Context, _, _, _, _ string, _ time.Time) ([]model.WorkflowRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runsErr != nil {
		return nil, m.runsErr
	}
	if len(m.runPages) == 0 {
		return nil, nil
	}
	page := m.runPages[0]
	if len(m.runPages) > 1 {
		m.runPages = m.runPages[1:]
	}
	return page, nil
}

func (m *mockCIHost) FetchWorkflowRun(_ context.Context, _, _ string, _ int64) (*model.WorkflowRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchRunErr != nil {
		return nil, m.fetchRunErr
	}
	return m.run, nil
}

func (m *mockCIHost) ListWorkflowJobs(_ context.Context, _, _ string, _ int64) ([]model.WorkflowJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.jobsErr != nil {
		return nil, m.jobsErr
	}
	if len(m.jobPages) == 0 {
		return nil, nil
	}
	page := m.jobPages[0]
	if len(m.jobPages) > 1 {
		m.jobPages = m.jobPages[1:]
	}
	return page, nil
}

func (m *mockCIHost) CreateCommitStatus(_ context.Context, _, _ string, status model.CommitStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statusErr != nil {
		return m.statusErr
	}
	m.statuses = append(m.statuses, status)
	return nil
}

func (m *mockCIHost) postedStatuses() []model.CommitStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.CommitStatus(nil), m.statuses...)
}

func (m *mockCIHost) dispatchedCalls() []dispatchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]dispatchCall(nil), m.dispatched...)
}

// --- Mock RunStore ---

type runUpdate struct {
	ID         int64
	RunID      int64
	Status     string
	Conclusion string
}

type mockRunStore struct {
	mu sync.Mutex

	insertErr error
	nextID    int64
	records   []model.RunRecord
	updates   []runUpdate
}

func (m *mockRunStore) RecordDispatch(_ context.Context, rec model.RunRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	m.nextID++
	rec.ID = m.nextID
	m.records = append(m.records, rec)
	return rec.ID, nil
}

func (m *mockRunStore) UpdateRun(_ context.Context, id, runID int64, status, conclusion string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, runUpdate{ID: id, RunID: runID, Status: status, Conclusion: conclusion})
	return nil
}

func (m *mockRunStore) ListRecent(_ context.Context, _ int) ([]model.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.RunRecord(nil), m.records...), nil
}

func (m *mockRunStore) allUpdates() []runUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]runUpdate(nil), m.updates...)
}
