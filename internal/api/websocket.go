package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"mcxdesk/internal/stream"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512
)

// handleWebSocket streams hub events to the client. The optional
// instrument query parameter narrows snapshot and export events to one
// instrument; notifications and alerts always arrive.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	topic := r.URL.Query().Get("instrument")
	events := s.hub.SubscribeWithID(topic, r.RemoteAddr)
	s.logger.Debug().Str("remote", r.RemoteAddr).Str("topic", topic).Msg("WebSocket client connected")

	go s.wsWritePump(conn, events)
	go s.wsReadPump(conn, topic, events)
}

// wsReadPump drains client frames so pongs and close frames are processed.
func (s *Server) wsReadPump(conn *websocket.Conn, topic string, events <-chan stream.Event) {
	defer func() {
		s.hub.Unsubscribe(topic, events)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug().Err(err).Msg("WebSocket read error")
			}
			return
		}
	}
}

// wsWritePump writes hub events as JSON text frames and keeps the
// connection alive with pings.
func (s *Server) wsWritePump(conn *websocket.Conn, events <-chan stream.Event) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case e, ok := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
