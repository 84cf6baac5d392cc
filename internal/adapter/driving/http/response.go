package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/cirelay/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeMessage writes a JSON message response, used for webhook acknowledgments.
func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// messageResponse is the standard acknowledgment body for webhook deliveries.
type messageResponse struct {
	Message string `json:"message"`
}

// RunResponse is the JSON representation of a run-history record.
type RunResponse struct {
	ID           int64  `json:"id"`
	Owner        string `json:"owner"`
	Repo         string `json:"repo"`
	Module       string `json:"module"`
	WorkflowFile string `json:"workflow_file"`
	Branch       string `json:"branch"`
	HeadSHA      string `json:"head_sha"`
	RunID        int64  `json:"run_id"`
	Status       string `json:"status"`
	Conclusion   string `json:"conclusion"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toRunResponse converts a domain RunRecord to its JSON response representation.
func toRunResponse(rec model.RunRecord) RunResponse {
	return RunResponse{
		ID:           rec.ID,
		Owner:        rec.Owner,
		Repo:         rec.Repo,
		Module:       rec.Module,
		WorkflowFile: rec.WorkflowFile,
		Branch:       rec.Branch,
		HeadSHA:      rec.HeadSHA,
		RunID:        rec.RunID,
		Status:       rec.Status,
		Conclusion:   rec.Conclusion,
		CreatedAt:    rec.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    rec.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
