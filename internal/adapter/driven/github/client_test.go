package github_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ghadapter "github.com/ericfisherdev/cirelay/internal/adapter/driven/github"
	"github.com/ericfisherdev/cirelay/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient creates a Client backed by the given httptest handler.
func newTestClient(t *testing.T, handler http.Handler) (*ghadapter.Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := ghadapter.NewClientWithHTTPClient(server.Client(), server.URL+"/")
	require.NoError(t, err)

	return client, server
}

func TestFetchPullRequestRef(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/octocat/hello/pulls/42", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"number": 42,
			"head": {"ref": "feature-x", "sha": "abc123def456"}
		}`)
	})

	client, _ := newTestClient(t, handler)
	ref, err := client.FetchPullRequestRef(context.Background(), "octocat", "hello", 42)

	require.NoError(t, err)
	assert.Equal(t, "feature-x", ref.HeadRef)
	assert.Equal(t, "abc123def456", ref.HeadSHA)
}

func TestFetchPullRequestRef_NotFound(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	})

	client, _ := newTestClient(t, handler)
	_, err := client.FetchPullRequestRef(context.Background(), "octocat", "hello", 99)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "octocat/hello#99")
}

func TestDispatchWorkflow(t *testing.T) {
	var gotBody map[string]any

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/octocat/hello/actions/workflows/backend-ci.yml/dispatches", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusNoContent)
	})

	client, _ := newTestClient(t, handler)
	err := client.DispatchWorkflow(context.Background(), "octocat", "hello", "backend-ci.yml", "feature-x",
		map[string]any{"module": "backend"})

	require.NoError(t, err)
	assert.Equal(t, "feature-x", gotBody["ref"])
	assert.Equal(t, map[string]any{"module": "backend"}, gotBody["inputs"])
}

func TestDispatchWorkflow_APIError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message": "Workflow does not have 'workflow_dispatch' trigger"}`)
	})

	client, _ := newTestClient(t, handler)
	err := client.DispatchWorkflow(context.Background(), "octocat", "hello", "backend-ci.yml", "feature-x", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend-ci.yml")
}

func TestListWorkflowRuns(t *testing.T) {
	since := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/octocat/hello/actions/workflows/backend-ci.yml/runs", r.URL.Path)
		assert.Equal(t, "feature-x", r.URL.Query().Get("branch"))
		assert.Equal(t, "workflow_dispatch", r.URL.Query().Get("event"))
		assert.Equal(t, ">=2026-08-01T12:00:00Z", r.URL.Query().Get("created"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"total_count": 2,
			"workflow_runs": [
				{
					"id": 902,
					"name": "Backend CI",
					"head_branch": "feature-x",
					"status": "queued",
					"html_url": "https://github.com/octocat/hello/actions/runs/902",
					"created_at": "2026-08-01T12:00:10Z"
				},
				{
					"id": 901,
					"name": "Backend CI",
					"head_branch": "feature-x",
					"status": "completed",
					"conclusion": "success",
					"html_url": "https://github.com/octocat/hello/actions/runs/901",
					"created_at": "2026-08-01T11:00:00Z"
				}
			]
		}`)
	})

	client, _ := newTestClient(t, handler)
	runs, err := client.ListWorkflowRuns(context.Background(), "octocat", "hello", "backend-ci.yml", "feature-x", since)

	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, int64(902), runs[0].ID)
	assert.Equal(t, "Backend CI", runs[0].WorkflowName)
	assert.Equal(t, "feature-x", runs[0].Branch)
	assert.Equal(t, model.RunStatusQueued, runs[0].Status)
	assert.Empty(t, runs[0].Conclusion)
	assert.Equal(t, "https://github.com/octocat/hello/actions/runs/902", runs[0].HTMLURL)
	assert.Equal(t, time.Date(2026, 8, 1, 12, 0, 10, 0, time.UTC), runs[0].CreatedAt)

	assert.Equal(t, int64(901), runs[1].ID)
	assert.Equal(t, model.RunStatusCompleted, runs[1].Status)
	assert.Equal(t, model.ConclusionSuccess, runs[1].Conclusion)
}

func TestListWorkflowRuns_Pagination(t *testing.T) {
	var server *httptest.Server

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `{"total_count": 2, "workflow_runs": [{"id": 2, "name": "CI"}]}`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/repos/octocat/hello/actions/workflows/ci.yml/runs?page=2>; rel="next"`, server.URL))
		fmt.Fprint(w, `{"total_count": 2, "workflow_runs": [{"id": 1, "name": "CI"}]}`)
	})

	client, srv := newTestClient(t, handler)
	server = srv

	runs, err := client.ListWorkflowRuns(context.Background(), "octocat", "hello", "ci.yml", "main", time.Now())

	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, int64(1), runs[0].ID)
	assert.Equal(t, int64(2), runs[1].ID)
}

func TestFetchWorkflowRun(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/octocat/hello/actions/runs/901", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": 901,
			"name": "Backend CI",
			"head_branch": "feature-x",
			"status": "in_progress",
			"html_url": "https://github.com/octocat/hello/actions/runs/901"
		}`)
	})

	client, _ := newTestClient(t, handler)
	run, err := client.FetchWorkflowRun(context.Background(), "octocat", "hello", 901)

	require.NoError(t, err)
	assert.Equal(t, int64(901), run.ID)
	assert.Equal(t, model.RunStatusInProgress, run.Status)
}

func TestListWorkflowJobs(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/octocat/hello/actions/runs/901/jobs", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"total_count": 2,
			"jobs": [
				{
					"id": 11,
					"run_id": 901,
					"name": "build",
					"status": "completed",
					"conclusion": "success",
					"html_url": "https://github.com/octocat/hello/actions/runs/901/job/11",
					"started_at": "2026-08-01T12:01:00Z",
					"completed_at": "2026-08-01T12:05:00Z"
				},
				{
					"id": 12,
					"run_id": 901,
					"name": "test",
					"status": "in_progress",
					"html_url": "https://github.com/octocat/hello/actions/runs/901/job/12"
				}
			]
		}`)
	})

	client, _ := newTestClient(t, handler)
	jobs, err := client.ListWorkflowJobs(context.Background(), "octocat", "hello", 901)

	require.NoError(t, err)
	require.Len(t, jobs, 2)

	assert.Equal(t, int64(11), jobs[0].ID)
	assert.Equal(t, int64(901), jobs[0].RunID)
	assert.Equal(t, "build", jobs[0].Name)
	assert.Equal(t, model.ConclusionSuccess, jobs[0].Conclusion)
	assert.True(t, jobs[0].Completed())
	assert.Equal(t, time.Date(2026, 8, 1, 12, 1, 0, 0, time.UTC), jobs[0].StartedAt)
	assert.Equal(t, time.Date(2026, 8, 1, 12, 5, 0, 0, time.UTC), jobs[0].CompletedAt)

	assert.Equal(t, "test", jobs[1].Name)
	assert.False(t, jobs[1].Completed())
	assert.True(t, jobs[1].CompletedAt.IsZero())
}

func TestCreateCommitStatus(t *testing.T) {
	var gotBody map[string]any

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/octocat/hello/statuses/abc123", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": 1}`)
	})

	client, _ := newTestClient(t, handler)
	err := client.CreateCommitStatus(context.Background(), "octocat", "hello", model.CommitStatus{
		SHA:         "abc123",
		State:       model.CommitStateSuccess,
		Description: "CI passed",
		Context:     "Backend CI / build",
		TargetURL:   "https://github.com/octocat/hello/actions/runs/901",
	})

	require.NoError(t, err)
	assert.Equal(t, "success", gotBody["state"])
	assert.Equal(t, "CI passed", gotBody["description"])
	assert.Equal(t, "Backend CI / build", gotBody["context"])
	assert.Equal(t, "https://github.com/octocat/hello/actions/runs/901", gotBody["target_url"])
}

func TestCreateCommitStatus_OmitsEmptyTargetURL(t *testing.T) {
	var gotBody map[string]any

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": 1}`)
	})

	client, _ := newTestClient(t, handler)
	err := client.CreateCommitStatus(context.Background(), "octocat", "hello", model.CommitStatus{
		SHA:     "abc123",
		State:   model.CommitStatePending,
		Context: "ci / backend",
	})

	require.NoError(t, err)
	assert.NotContains(t, gotBody, "target_url")
}
