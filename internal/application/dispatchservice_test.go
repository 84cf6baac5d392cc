package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/ericfisherdev/cirelay/internal/application"
	"github.com/ericfisherdev/cirelay/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatch_ForwardsModuleInput(t *testing.T) {
	host := &mockCIHost{}
	svc := application.NewDispatchService(host, time.Millisecond, time.Second)

	err := svc.Dispatch(context.Background(), "octocat", "hello", "backend-ci.yml", "feature-x", "backend")

	require.NoError(t, err)
	calls := host.dispatchedCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "backend-ci.yml", calls[0].WorkflowFile)
	assert.Equal(t, "feature-x", calls[0].Ref)
	assert.Equal(t, map[string]any{"module": "backend"}, calls[0].Inputs)
}

func TestDispatch_WrapsHostError(t *testing.T) {
	host := &mockCIHost{dispatchErr: assert.AnError}
	svc := application.NewDispatchService(host, time.Millisecond, time.Second)

	err := svc.Dispatch(context.Background(), "octocat", "hello", "backend-ci.yml", "feature-x", "backend")

	assert.ErrorIs(t, err, application.ErrDispatch)
}

func TestResolveRun_AdoptsNewestRun(t *testing.T) {
	host := &mockCIHost{
		runPages: [][]model.WorkflowRun{
			{}, // First tick: run not visible yet.
			{
				{ID: 901, WorkflowName: "Backend CI", Status: model.RunStatusInProgress},
				{ID: 900, WorkflowName: "Backend CI", Status: model.RunStatusCompleted},
			},
		},
	}
	svc := application.NewDispatchService(host, time.Millisecond, time.Second)

	run, err := svc.ResolveRun(context.Background(), "octocat", "hello", "backend-ci.yml", "feature-x", time.Now())

	require.NoError(t, err)
	assert.Equal(t, int64(901), run.ID, "listing is newest first; the head entry is adopted")
}

func TestResolveRun_TimesOut(t *testing.T) {
	host := &mockCIHost{} // Listing stays empty forever.
	svc := application.NewDispatchService(host, time.Millisecond, 15*time.Millisecond)

	_, err := svc.ResolveRun(context.Background(), "octocat", "hello", "backend-ci.yml", "feature-x", time.Now())

	assert.ErrorIs(t, err, application.ErrDispatchTimeout)
}

func TestResolveRun_TransientListingErrors(t *testing.T) {
	host := &mockCIHost{
		runPages: [][]model.WorkflowRun{
			{{ID: 55, WorkflowName: "CI", Status: model.RunStatusQueued}},
		},
	}
	// First call errors, then the scripted page is served.
	host.runsErr = assert.AnError
	svc := application.NewDispatchService(host, 5*time.Millisecond, time.Second)

	done := make(chan struct{})
	go func() {
		time.Sleep(2 * time.Millisecond)
		host.mu.Lock()
		host.runsErr = nil
		host.mu.Unlock()
		close(done)
	}()

	run, err := svc.ResolveRun(context.Background(), "octocat", "hello", "ci.yml", "main", time.Now())
	<-done

	require.NoError(t, err)
	assert.Equal(t, int64(55), run.ID)
}
