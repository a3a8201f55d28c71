// Package server exposes the FinAgent REST and websocket API.
package server

import (
	"time"

	"github.com/finagent-pro/finagent/internal/history"
	"github.com/finagent-pro/finagent/internal/news"
)

// ═══════════════════════════════════════════════════════════════════════════════
// API REQUEST TYPES
// ═══════════════════════════════════════════════════════════════════════════════

// AnalyzeRequest is the body of POST /api/analyze.
type AnalyzeRequest struct {
	Query string `json:"query"`
}

// ═══════════════════════════════════════════════════════════════════════════════
// API RESPONSE TYPES
// ═══════════════════════════════════════════════════════════════════════════════

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status     string `json:"status"`
	AgentReady bool   `json:"agent_ready"`
}

// AnalyzeResponse is returned by POST /api/analyze.
type AnalyzeResponse struct {
	Query    string `json:"query"`
	Response string `json:"response"`
}

// NewsResponse is returned by GET /api/news.
type NewsResponse struct {
	Region       news.Region `json:"region"`
	Items        []news.Item `json:"items"`
	TotalResults int         `json:"total_results"`
}

// HistoryResponse is returned by GET /api/history.
type HistoryResponse struct {
	Items        []*history.Record `json:"items"`
	TotalResults int               `json:"total_results"`
}

// APIError is the JSON error envelope.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ═══════════════════════════════════════════════════════════════════════════════
// WEBSOCKET MESSAGE TYPES
// ═══════════════════════════════════════════════════════════════════════════════

// StreamMessage is one frame on the /ws/analyze socket.
type StreamMessage struct {
	Type     string `json:"type"` // "token", "complete" or "error"
	Content  string `json:"content,omitempty"`
	Response string `json:"response,omitempty"`
	Model    string `json:"model,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Websocket timing, matching the usual gorilla pump settings.
const (
	// writeWait is the timeout for writing a frame.
	writeWait = 10 * time.Second

	// pongWait is the timeout for pong responses.
	pongWait = 60 * time.Second

	// pingPeriod is how often to send ping frames.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds incoming frames; queries are small.
	maxMessageSize = 4096
)
