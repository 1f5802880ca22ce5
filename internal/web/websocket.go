package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	trackID := r.URL.Query().Get("track_id")
	if trackID == "" {
		http.Error(w, "track_id is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates := s.hub.Subscribe(trackID)
	defer s.hub.Unsubscribe(trackID, updates)

	// Send the current state first
	if snap, err := s.hub.Get(trackID); err == nil {
		if err := s.writeSnapshot(conn, snap); err != nil {
			return
		}
	}

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return

		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := s.writeSnapshot(conn, snap); err != nil {
				s.logger.Error("Failed to write WebSocket message: %v", err)
				return
			}
			if snap.State == StateRemoved {
				return
			}

		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeSnapshot(conn *websocket.Conn, snap *TrackSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}
