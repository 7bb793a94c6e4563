package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bytecraft/aira/internal/agent"
	"github.com/bytecraft/aira/internal/chat"
	"github.com/bytecraft/aira/internal/history"
	"github.com/bytecraft/aira/internal/toolsource"
)

// maxRequestBody bounds the chat request payload.
const maxRequestBody = 1 << 20 // 1MB

// ChatRequest is the inbound payload for POST /api/v1/chat.
type ChatRequest struct {
	UserID string `json:"userId"`
	Query  string `json:"query"`
}

// ChatResponse is the success payload.
type ChatResponse struct {
	FinalReply string `json:"finalReply"`
}

// chatHandler serves the conversational endpoint.
type chatHandler struct {
	service *chat.Service
	logger  *slog.Logger
}

// send handles POST /api/v1/chat.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	reply, err := h.service.Handle(r.Context(), req.UserID, req.Query)
	if err != nil {
		h.writeHandleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{FinalReply: reply})
}

// writeHandleError maps orchestration errors onto HTTP statuses.
// Internal causes are logged, never sent to the client.
func (h *chatHandler) writeHandleError(w http.ResponseWriter, r *http.Request, err error) {
	requestID, _ := requestIDFromContext(r.Context())
	h.logger.Error("chat request failed", "error", err, "request_id", requestID)

	switch {
	case errors.Is(err, chat.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", "userId and query are required")
	case errors.Is(err, history.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "service temporarily unavailable")
	case errors.Is(err, toolsource.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "tool_source_unavailable", "service temporarily unavailable")
	case errors.Is(err, agent.ErrBackend):
		writeError(w, http.StatusBadGateway, "reasoning_backend_error", "could not generate a reply")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
