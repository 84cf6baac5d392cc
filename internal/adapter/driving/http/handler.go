// Package httphandler is the HTTP driving adapter: the GitHub webhook
// endpoint plus a small JSON API for run history and liveness.
package httphandler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/cirelay/internal/application"
	"github.com/ericfisherdev/cirelay/internal/domain/model"
	"github.com/ericfisherdev/cirelay/internal/domain/port/driven"
)

// maxWebhookBody caps the raw body read for signature verification. GitHub
// webhook payloads are well under this.
const maxWebhookBody = 1 << 20

// Handler is the HTTP driving adapter.
type Handler struct {
	trigger       *application.TriggerService
	runStore      driven.RunStore
	webhookSecret string
	logger        *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(trigger *application.TriggerService, runStore driven.RunStore, webhookSecret string, logger *slog.Logger) *Handler {
	return &Handler{
		trigger:       trigger,
		runStore:      runStore,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware. Method patterns give non-POST webhook
// deliveries a 405 without handler code.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /webhook/github", h.Webhook)
	mux.HandleFunc("GET /api/v1/runs", h.ListRuns)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// webhookPayload is the subset of the issue_comment event body the bridge
// reads. The pull_request field on the issue is present only when the comment
// sits on a pull request.
type webhookPayload struct {
	Action string `json:"action"`
	Issue  struct {
		Number      int              `json:"number"`
		PullRequest *json.RawMessage `json:"pull_request"`
	} `json:"issue"`
	Comment struct {
		Body string `json:"body"`
	} `json:"comment"`
	Repository struct {
		Name  string `json:"name"`
		Owner struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"repository"`
}

// Webhook handles one GitHub webhook delivery. The raw body is read before
// any parsing because the signature covers the exact bytes on the wire.
//
// Response convention: 401 for a missing or invalid signature, 200 for benign
// no-ops (other event types, non-created actions, comments that are not CI
// commands, comments on plain issues), 400 for a command that names an
// unknown module or whose pull request cannot be resolved, 202 once the
// dispatch call succeeded, 500 when the dispatch call itself failed.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	if !application.VerifySignature(body, r.Header.Get("X-Hub-Signature-256"), h.webhookSecret) {
		h.logger.Warn("webhook signature rejected", "remote", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	if event := r.Header.Get("X-GitHub-Event"); event != "issue_comment" {
		writeMessage(w, http.StatusOK, "event "+event+" is not handled, ignoring")
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "malformed payload")
		return
	}

	if payload.Action != "created" {
		writeMessage(w, http.StatusOK, "action "+payload.Action+" is not handled, ignoring")
		return
	}

	ev := model.CommentEvent{
		Owner:         payload.Repository.Owner.Login,
		Repo:          payload.Repository.Name,
		IssueNumber:   payload.Issue.Number,
		CommentBody:   payload.Comment.Body,
		IsPullRequest: payload.Issue.PullRequest != nil,
	}

	outcome, err := h.trigger.HandleComment(r.Context(), ev)
	switch {
	case errors.Is(err, application.ErrUnknownModule):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, application.ErrPullRequestLookup):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		h.logger.Error("trigger failed", "owner", ev.Owner, "repo", ev.Repo, "issue", ev.IssueNumber, "error", err)
		writeError(w, http.StatusInternalServerError, "workflow dispatch failed")
	case outcome.Triggered:
		writeMessage(w, http.StatusAccepted, outcome.Message)
	default:
		writeMessage(w, http.StatusOK, outcome.Message)
	}
}

// ListRuns returns the most recent run-history records.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	records, err := h.runStore.ListRecent(r.Context(), 50)
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]RunResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, toRunResponse(rec))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Health returns liveness status for the container healthcheck.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}
