// Package github implements the CIHost port using the go-github library.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/cirelay/internal/domain/model"
	"github.com/ericfisherdev/cirelay/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CIHost = (*Client)(nil)

// Client implements the driven.CIHost port using the go-github library.
type Client struct {
	gh *gh.Client
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching -- polling the same
//     run/job listings every few seconds hits the 304 path constantly)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
func NewClient(token string) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	return &Client{gh: client}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{gh: client}, nil
}

// FetchPullRequestRef returns the head branch and commit of a pull request.
// The webhook carries an issue number; the Pulls API rejects numbers that
// belong to plain issues, so a non-PR number surfaces here as an API error.
func (c *Client) FetchPullRequestRef(ctx context.Context, owner, repo string, number int) (*model.PullRequestRef, error) {
	pr, resp, err := c.gh.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, fmt.Errorf("fetching pull request %s/%s#%d: %w", owner, repo, number, err)
	}

	logRateLimit(resp, owner+"/"+repo+"/pull", 0, 1)

	return &model.PullRequestRef{
		HeadRef: pr.GetHead().GetRef(),
		HeadSHA: pr.GetHead().GetSHA(),
	}, nil
}

// DispatchWorkflow triggers a workflow_dispatch event for the workflow file
// on the given ref. The response carries no run identity.
func (c *Client) DispatchWorkflow(ctx context.Context, owner, repo, workflowFile, ref string, inputs map[string]any) error {
	event := gh.CreateWorkflowDispatchEventRequest{
		Ref:    ref,
		Inputs: inputs,
	}

	resp, err := c.gh.Actions.CreateWorkflowDispatchEventByFileName(ctx, owner, repo, workflowFile, event)
	if err != nil {
		return fmt.Errorf("dispatching workflow %s on %s/%s@%s: %w", workflowFile, owner, repo, ref, err)
	}

	logRateLimit(resp, owner+"/"+repo+"/dispatch", 0, 1)
	return nil
}

// ListWorkflowRuns returns workflow_dispatch runs of the workflow file on the
// given branch created at or after since, newest first (the API's default
// ordering). It handles pagination automatically.
func (c *Client) ListWorkflowRuns(ctx context.Context, owner, repo, workflowFile, branch string, since time.Time) ([]model.WorkflowRun, error) {
	opts := &gh.ListWorkflowRunsOptions{
		Branch:      branch,
		Event:       "workflow_dispatch",
		Created:     ">=" + since.UTC().Format(time.RFC3339),
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var allRuns []model.WorkflowRun

	for {
		runs, resp, err := c.gh.Actions.ListWorkflowRunsByFileName(ctx, owner, repo, workflowFile, opts)
		if err != nil {
			return nil, fmt.Errorf("listing runs of %s on %s/%s branch %s (page %d): %w", workflowFile, owner, repo, branch, opts.Page, err)
		}

		logRateLimit(resp, owner+"/"+repo+"/runs", opts.Page, len(runs.WorkflowRuns))

		for _, run := range runs.WorkflowRuns {
			allRuns = append(allRuns, mapWorkflowRun(run))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allRuns, nil
}

// FetchWorkflowRun returns the current state of a single run.
func (c *Client) FetchWorkflowRun(ctx context.Context, owner, repo string, runID int64) (*model.WorkflowRun, error) {
	run, resp, err := c.gh.Actions.GetWorkflowRunByID(ctx, owner, repo, runID)
	if err != nil {
		return nil, fmt.Errorf("fetching workflow run %d on %s/%s: %w", runID, owner, repo, err)
	}

	logRateLimit(resp, owner+"/"+repo+"/run", 0, 1)

	mapped := mapWorkflowRun(run)
	return &mapped, nil
}

// ListWorkflowJobs returns all jobs of a run. It handles pagination
// automatically and maps go-github types to domain model types.
func (c *Client) ListWorkflowJobs(ctx context.Context, owner, repo string, runID int64) ([]model.WorkflowJob, error) {
	opts := &gh.ListWorkflowJobsOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var allJobs []model.WorkflowJob

	for {
		jobs, resp, err := c.gh.Actions.ListWorkflowJobs(ctx, owner, repo, runID, opts)
		if err != nil {
			return nil, fmt.Errorf("listing jobs of run %d on %s/%s (page %d): %w", runID, owner, repo, opts.Page, err)
		}

		logRateLimit(resp, owner+"/"+repo+"/jobs", opts.Page, len(jobs.Jobs))

		for _, job := range jobs.Jobs {
			allJobs = append(allJobs, mapWorkflowJob(job))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allJobs, nil
}

// CreateCommitStatus posts a commit status on the given SHA. GitHub keys
// statuses by context, so a repeated post with the same context overwrites
// the prior entry.
func (c *Client) CreateCommitStatus(ctx context.Context, owner, repo string, status model.CommitStatus) error {
	repoStatus := &gh.RepoStatus{
		State:       gh.Ptr(string(status.State)),
		Description: gh.Ptr(status.Description),
		Context:     gh.Ptr(status.Context),
	}
	if status.TargetURL != "" {
		repoStatus.TargetURL = gh.Ptr(status.TargetURL)
	}

	_, resp, err := c.gh.Repositories.CreateStatus(ctx, owner, repo, status.SHA, *repoStatus)
	if err != nil {
		return fmt.Errorf("creating commit status %q on %s/%s@%s: %w", status.Context, owner, repo, status.SHA, err)
	}

	logRateLimit(resp, owner+"/"+repo+"/status", 0, 1)
	return nil
}

// mapWorkflowRun converts a go-github WorkflowRun to a domain model WorkflowRun.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
func mapWorkflowRun(run *gh.WorkflowRun) model.WorkflowRun {
	return model.WorkflowRun{
		ID:           run.GetID(),
		WorkflowName: run.GetName(),
		Branch:       run.GetHeadBranch(),
		Status:       run.GetStatus(),
		Conclusion:   run.GetConclusion(),
		HTMLURL:      run.GetHTMLURL(),
		CreatedAt:    run.GetCreatedAt().Time,
	}
}

// mapWorkflowJob converts a go-github WorkflowJob to a domain model WorkflowJob.
func mapWorkflowJob(job *gh.WorkflowJob) model.WorkflowJob {
	var startedAt, completedAt time.Time
	if job.StartedAt != nil {
		startedAt = job.GetStartedAt().Time
	}
	if job.CompletedAt != nil {
		completedAt = job.GetCompletedAt().Time
	}

	return model.WorkflowJob{
		ID:          job.GetID(),
		RunID:       job.GetRunID(),
		Name:        job.GetName(),
		Status:      job.GetStatus(),
		Conclusion:  job.GetConclusion(),
		DetailsURL:  job.GetHTMLURL(),
		StartedAt:   startedAt,
		CompletedAt: completedAt,
	}
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}
