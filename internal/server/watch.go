package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The watch endpoint is same-origin in deployment; cross-origin access
	// is mediated by the fronting proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWatch handles GET /api/v1/watch/{id}: it upgrades to a websocket
// and forwards the job's generation events until the run ends or the client
// disconnects. Events are drained from the job's stream probe, so only one
// watcher per job receives the full stream.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Missing job ID", http.StatusBadRequest)
		return
	}

	s.jobsMu.RLock()
	state, exists := s.jobs[id]
	s.jobsMu.RUnlock()
	if !exists {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Websocket upgrade failed", map[string]interface{}{
			"job_id": id,
			"error":  err.Error(),
		})
		return
	}
	defer conn.Close()

	s.logger.Debug("Watcher attached", map[string]interface{}{
		"job_id": id,
	})

	for event := range state.Stream.Events() {
		if err := conn.WriteJSON(event); err != nil {
			s.logger.Debug("Watcher disconnected", map[string]interface{}{
				"job_id": id,
				"error":  err.Error(),
			})
			return
		}
	}

	// Stream closed: the run is over, whether it completed or was cancelled.
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run ended"))
}
