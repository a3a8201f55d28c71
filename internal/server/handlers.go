package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/finagent-pro/finagent/internal/agent"
	"github.com/finagent-pro/finagent/internal/history"
	"github.com/finagent-pro/finagent/internal/logging"
	"github.com/finagent-pro/finagent/internal/market"
	"github.com/finagent-pro/finagent/internal/news"
)

// parseLimit parses an optional positive limit parameter. Empty means "use
// the service default" and returns 0.
func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return n, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, APIError{
		Code:    status,
		Message: message,
	})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:     "ok",
		AgentReady: s.agent != nil,
	})
}

// handleAnalyze handles POST /api/analyze.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if s.agent == nil {
		s.writeError(w, http.StatusServiceUnavailable, "agent not initialized, server may still be starting up")
		return
	}

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.agent.Analyze(r.Context(), req.Query)
	switch {
	case errors.Is(err, agent.ErrEmptyQuery), errors.Is(err, agent.ErrQueryTooLong):
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.writeError(w, http.StatusBadGateway, "analysis failed: "+err.Error())
		return
	}

	s.saveHistory(r, result)

	s.writeJSON(w, http.StatusOK, AnalyzeResponse{
		Query:    result.Query,
		Response: result.Response,
	})
}

// saveHistory records a completed analysis in the background. The write
// survives client disconnects.
func (s *Server) saveHistory(r *http.Request, result *agent.Analysis) {
	if s.history == nil {
		return
	}

	ctx, cancel := logging.DetachContextWithTimeout(r.Context(), 10*time.Second)
	go func() {
		defer cancel()
		err := s.history.SaveAnalysis(ctx, &history.Record{
			Query:        result.Query,
			Response:     result.Response,
			Model:        result.Model,
			InputTokens:  result.InputTokens,
			OutputTokens: result.OutputTokens,
			DurationMS:   result.Duration.Milliseconds(),
		})
		if err != nil {
			s.log.Warn("failed to save analysis history: %v", err)
		}
	}()
}

// handleNews handles GET /api/news.
func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	if s.news == nil {
		s.writeError(w, http.StatusServiceUnavailable, "news service not configured")
		return
	}

	region, err := news.ParseRegion(r.URL.Query().Get("region"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	items := s.news.MarketNews(r.Context(), region, r.URL.Query().Get("ticker"), limit)

	s.writeJSON(w, http.StatusOK, NewsResponse{
		Region:       region,
		Items:        items,
		TotalResults: len(items),
	})
}

// handleDashboard handles GET /api/dashboard.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if s.dashboard == nil {
		s.writeError(w, http.StatusServiceUnavailable, "market data service not configured")
		return
	}

	ticker := r.URL.Query().Get("ticker")
	if ticker == "" {
		ticker = "AAPL"
	}

	snap, err := s.dashboard.Snapshot(r.Context(), ticker)
	switch {
	case errors.Is(err, market.ErrSymbolNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		s.log.Error("dashboard error: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load dashboard data")
		return
	}

	s.writeJSON(w, http.StatusOK, snap)
}

// handleHistory handles GET /api/history.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, http.StatusServiceUnavailable, "history not enabled")
		return
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	records, err := s.history.ListRecent(r.Context(), limit)
	if err != nil {
		s.log.Error("history query failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if records == nil {
		records = []*history.Record{}
	}

	s.writeJSON(w, http.StatusOK, HistoryResponse{
		Items:        records,
		TotalResults: len(records),
	})
}
