// Package stream delivers live session progress over SSE and WebSocket.
package stream

import (
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/medlens/reflection/backend/internal/service/pipeline"
	"github.com/medlens/reflection/backend/pkg/utils"
)

// Handler serves the event stream endpoints.
type Handler struct {
	svc *pipeline.Service
}

// New creates a stream handler.
func New(svc *pipeline.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the streaming endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/reflection/{sessionID}/stream", h.handleSSE)
	r.Get("/reflection/{sessionID}/ws", h.handleWebSocket)
}

// handleSSE streams progress events as Server-Sent Events. By default only
// events appended after the subscription are delivered; ?replay=true replays
// the full history first. The stream ends after the terminal event.
func (h *Handler) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	replay, _ := strconv.ParseBool(r.URL.Query().Get("replay"))

	events, err := h.svc.Subscribe(r.Context(), sessionID, replay)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	utils.SetupSSEHeaders(w)
	log.Printf("[stream] sse subscriber attached session=%s replay=%v", sessionID, replay)

	for ev := range events {
		utils.SendSSEChunk(w, flusher, ev)
	}

	log.Printf("[stream] sse subscriber detached session=%s", sessionID)
}
