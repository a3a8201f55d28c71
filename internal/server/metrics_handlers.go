package server

import (
	"net/http"
	"time"

	"github.com/finagent-pro/finagent/internal/llm"
)

// LLMMetricsResponse carries a point-in-time snapshot of LLM call metrics,
// aggregated across providers plus a per-provider breakdown.
type LLMMetricsResponse struct {
	Timestamp string                 `json:"timestamp"`
	Summary   map[string]interface{} `json:"summary"`
	Providers map[string]interface{} `json:"providers"`
}

func (s *Server) handleLLMMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	s.writeJSON(w, http.StatusOK, LLMMetricsResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Summary:   llm.GetMetricsSummary(),
		Providers: llm.GetAllMetrics(),
	})
}

func (s *Server) handleMetricsReset(w http.ResponseWriter, r *http.Request) {
	llm.ResetAllMetrics()
	s.log.Info("LLM metrics reset via API")
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "all LLM metrics have been reset",
	})
}
