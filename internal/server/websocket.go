package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 10 * time.Second

// Clients reach the server over a 0600 unix socket, so any origin is
// acceptable.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleWebSocket streams the same updates as /api/stream as JSON messages.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subscribe(w, r)
	if !ok {
		return
	}
	defer sub.close()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	s.logger.Debug("WebSocket client connected")

	// The read side only exists to notice the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pending := sub.initial()
	for {
		for _, u := range pending {
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
			if err := conn.WriteJSON(u); err != nil {
				return
			}
		}
		pending = pending[:0]

		select {
		case <-gone:
			s.logger.Debug("WebSocket client disconnected")
			return
		case u, ok := <-sub.ch:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if sub.wants(u) {
				pending = append(pending, u)
			}
		}
	}
}
