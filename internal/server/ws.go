package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/finagent-pro/finagent/internal/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The API has no browser origin of its own; dashboards connect
		// from wherever they are served.
		return true
	},
}

// wsConn serializes writes to a websocket connection. The ping loop and the
// token stream write concurrently, and gorilla allows one writer at a time.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
	log  *logging.Logger
}

func (c *wsConn) writeJSON(msg StreamMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(msg); err != nil {
		c.log.Debug("websocket write failed: %v", err)
	}
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// handleAnalyzeWS handles GET /ws/analyze. The client sends one JSON frame
// {"query": "..."} and receives "token" frames as the analysis streams,
// ending with a "complete" frame (or a single "error" frame).
func (s *Server) handleAnalyzeWS(w http.ResponseWriter, r *http.Request) {
	if s.agent == nil {
		s.writeError(w, http.StatusServiceUnavailable, "agent not initialized")
		return
	}

	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed: %v", err)
		return
	}
	defer raw.Close()

	conn := &wsConn{conn: raw, log: s.log}

	raw.SetReadLimit(maxMessageSize)
	raw.SetReadDeadline(time.Now().Add(pongWait))
	raw.SetPongHandler(func(string) error {
		raw.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	var req AnalyzeRequest
	if err := raw.ReadJSON(&req); err != nil {
		conn.writeJSON(StreamMessage{Type: "error", Message: "invalid request frame"})
		return
	}

	// Keep the connection alive through long LLM calls.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.ping(); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	result, err := s.agent.AnalyzeStream(r.Context(), req.Query, func(token string) {
		conn.writeJSON(StreamMessage{Type: "token", Content: token})
	})
	if err != nil {
		conn.writeJSON(StreamMessage{Type: "error", Message: err.Error()})
		return
	}

	s.saveHistory(r, result)

	conn.writeJSON(StreamMessage{
		Type:     "complete",
		Response: result.Response,
		Model:    result.Model,
	})
}
