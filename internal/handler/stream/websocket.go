package stream

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleWebSocket streams progress events over a WebSocket connection as an
// alternative to SSE. The connection closes after the terminal event.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	replay, _ := strconv.ParseBool(r.URL.Query().Get("replay"))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, err := h.svc.Subscribe(ctx, sessionID, replay)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[stream] websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[stream] websocket subscriber attached session=%s replay=%v", sessionID, replay)

	// Drain reads so client-initiated close is noticed promptly.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("[stream] websocket read error: %v", err)
				}
				return
			}
		}
	}()

	for ev := range events {
		if err := conn.WriteJSON(ev); err != nil {
			log.Printf("[stream] websocket write failed session=%s: %v", sessionID, err)
			return
		}
	}

	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"))
	log.Printf("[stream] websocket subscriber detached session=%s", sessionID)
}
