package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mkalstad/teamsrelay/internal/domain/model"
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

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is the JSON representation of a chat message.
type MessageResponse struct {
	ID              string `json:"id"`
	Sender          string `json:"sender"`
	Body            string `json:"body"`
	BodyContentType string `json:"body_content_type"`
	CreatedAt       string `json:"created_at"`
}

// DriverEventResponse is the JSON representation of a driver history entry.
type DriverEventResponse struct {
	Driver     string `json:"driver"`
	RecordedAt string `json:"recorded_at"`
}

// AppendDriverRequest is the JSON body for the append driver-history endpoint.
type AppendDriverRequest struct {
	Driver string `json:"driver"`
}

// DocumentResponse is the JSON representation of an archival document.
type DocumentResponse struct {
	Name       string `json:"name"`
	SizeBytes  int64  `json:"size_bytes"`
	PageCount  int    `json:"page_count"`
	ModifiedAt string `json:"modified_at"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status      string `json:"status"`
	Subscribers int    `json:"subscribers"`
	Time        string `json:"time"`
}

// toMessageResponse converts a domain Message to its JSON representation.
func toMessageResponse(msg model.Message) MessageResponse {
	return MessageResponse{
		ID:              msg.ID,
		Sender:          msg.Sender,
		Body:            msg.Body,
		BodyContentType: msg.BodyContentType,
		CreatedAt:       msg.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// toDriverEventResponse converts a domain DriverEvent to its JSON representation.
func toDriverEventResponse(ev model.DriverEvent) DriverEventResponse {
	return DriverEventResponse{
		Driver:     ev.Driver,
		RecordedAt: ev.RecordedAt.UTC().Format(time.RFC3339),
	}
}

// toDocumentResponse converts a domain Document to its JSON representation.
func toDocumentResponse(doc model.Document) DocumentResponse {
	return DocumentResponse{
		Name:       doc.Name,
		SizeBytes:  doc.SizeBytes,
		PageCount:  doc.PageCount,
		ModifiedAt: doc.ModifiedAt.UTC().Format(time.RFC3339),
	}
}
