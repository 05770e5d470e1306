// Package httphandler is the HTTP driving adapter serving the REST API and
// the resource proxy.
package httphandler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mkalstad/teamsrelay/internal/application"
	"github.com/mkalstad/teamsrelay/internal/domain/model"
	"github.com/mkalstad/teamsrelay/internal/domain/port/driven"
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	proxySvc *application.ProxyService
	docSvc   *application.DocService
	history  driven.HistoryStore
	hub      *application.Broadcaster
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	proxySvc *application.ProxyService,
	docSvc *application.DocService,
	history driven.HistoryStore,
	hub *application.Broadcaster,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		proxySvc: proxySvc,
		docSvc:   docSvc,
		history:  history,
		hub:      hub,
		logger:   logger,
	}
}

// NewServeMux creates an http.Handler with all API routes registered and
// wrapped with CORS, logging, and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	RegisterAPIRoutes(mux, h)
	return ApplyMiddleware(mux, logger)
}

// RegisterAPIRoutes registers the REST routes on mux without middleware, so
// the composition root can share one mux with the WebSocket adapter.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/v1/resources/{token}", h.StreamResource)
	mux.HandleFunc("GET /api/v1/driver-history", h.ListDriverHistory)
	mux.HandleFunc("POST /api/v1/driver-history", h.AppendDriverHistory)
	mux.HandleFunc("GET /api/v1/messages", h.ListArchivedMessages)
	mux.HandleFunc("GET /api/v1/documents", h.ListDocuments)
	mux.HandleFunc("GET /api/v1/documents/{name}", h.StreamDocument)
	mux.HandleFunc("GET /api/v1/health", h.Health)
}

// StreamResource resolves a proxy token and streams the protected upstream
// media to the caller with the upstream content type.
func (h *Handler) StreamResource(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	body, contentType, err := h.proxySvc.Open(r.Context(), token)
	if err != nil {
		var statusErr *driven.StatusError
		switch {
		case errors.Is(err, driven.ErrResourceNotFound):
			writeError(w, http.StatusNotFound, "unknown resource token")
		case errors.As(err, &statusErr):
			writeError(w, statusErr.Code, "upstream resource fetch failed")
		case errors.Is(err, driven.ErrAuthFailed):
			h.logger.Error("resource proxy auth failed", "error", err)
			writeError(w, http.StatusBadGateway, "upstream authentication failed")
		default:
			h.logger.Error("resource proxy failed", "token", token, "error", err)
			writeError(w, http.StatusBadGateway, "upstream resource fetch failed")
		}
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", contentType)
	if _, err := io.Copy(w, body); err != nil {
		// Headers are already sent; all we can do is log.
		h.logger.Error("resource stream interrupted", "token", token, "error", err)
	}
}

// ListDriverHistory returns all recorded driver events. A failing store read
// degrades to an empty list so the board stays usable.
func (h *Handler) ListDriverHistory(w http.ResponseWriter, r *http.Request) {
	events, err := h.history.ListDriverEvents(r.Context())
	if err != nil {
		h.logger.Error("failed to list driver history", "error", err)
		writeJSON(w, http.StatusOK, []DriverEventResponse{})
		return
	}

	resp := make([]DriverEventResponse, 0, len(events))
	for _, ev := range events {
		resp = append(resp, toDriverEventResponse(ev))
	}

	writeJSON(w, http.StatusOK, resp)
}

// AppendDriverHistory records one driver event and archives the snapshot
// that was on the board at that moment. Write failures surface as errors;
// history appends never fail silently.
func (h *Handler) AppendDriverHistory(w http.ResponseWriter, r *http.Request) {
	var req AppendDriverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	driver := strings.TrimSpace(req.Driver)
	if driver == "" {
		writeError(w, http.StatusBadRequest, "driver is required")
		return
	}

	event := model.DriverEvent{
		Driver:     driver,
		RecordedAt: time.Now().UTC(),
	}
	if err := h.history.AppendDriverEvent(r.Context(), event); err != nil {
		h.logger.Error("failed to append driver event", "driver", driver, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	// The driver event above is already committed; the archive is a
	// separate append, and its failure must say which half went through.
	if err := h.history.ArchiveMessages(r.Context(), h.hub.Current()); err != nil {
		h.logger.Error("failed to archive snapshot", "driver", driver, "error", err)
		writeError(w, http.StatusInternalServerError, "driver event recorded, snapshot archive failed")
		return
	}

	writeJSON(w, http.StatusCreated, toDriverEventResponse(event))
}

// ListArchivedMessages returns the broadcast audit log. A failing store read
// degrades to an empty list.
func (h *Handler) ListArchivedMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.history.ListArchivedMessages(r.Context())
	if err != nil {
		h.logger.Error("failed to list archived messages", "error", err)
		writeJSON(w, http.StatusOK, []MessageResponse{})
		return
	}

	resp := make([]MessageResponse, 0, len(messages))
	for _, msg := range messages {
		resp = append(resp, toMessageResponse(msg))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListDocuments returns metadata for the archival PDFs.
func (h *Handler) ListDocuments(w http.ResponseWriter, _ *http.Request) {
	docs, err := h.docSvc.List()
	if err != nil {
		h.logger.Error("failed to list documents", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, toDocumentResponse(doc))
	}

	writeJSON(w, http.StatusOK, resp)
}

// StreamDocument streams one archival PDF inline.
func (h *Handler) StreamDocument(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	f, err := h.docSvc.Open(name)
	if err != nil {
		if errors.Is(err, driven.ErrResourceNotFound) {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		h.logger.Error("failed to open document", "name", name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+name+`"`)
	if _, err := io.Copy(w, f); err != nil {
		h.logger.Error("document stream interrupted", "name", name, "error", err)
	}
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:      "ok",
		Subscribers: h.hub.Len(),
		Time:        time.Now().UTC().Format(time.RFC3339),
	})
}
