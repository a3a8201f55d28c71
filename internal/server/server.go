package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/finagent-pro/finagent/internal/agent"
	"github.com/finagent-pro/finagent/internal/config"
	"github.com/finagent-pro/finagent/internal/history"
	"github.com/finagent-pro/finagent/internal/logging"
	"github.com/finagent-pro/finagent/internal/market"
	"github.com/finagent-pro/finagent/internal/news"
)

// Analyzer runs financial queries. Implemented by agent.FinanceAgent.
type Analyzer interface {
	Analyze(ctx context.Context, query string) (*agent.Analysis, error)
	AnalyzeStream(ctx context.Context, query string, onToken func(token string)) (*agent.Analysis, error)
}

// DashboardService builds the market dashboard. Implemented by
// market.Dashboard.
type DashboardService interface {
	Snapshot(ctx context.Context, ticker string) (*market.Snapshot, error)
}

// NewsService fetches normalized market news. Implemented by news.Service.
type NewsService interface {
	MarketNews(ctx context.Context, region news.Region, ticker string, limit int) []news.Item
}

// HistoryStore persists completed analyses. Implemented by history.Store.
// Nil disables history.
type HistoryStore interface {
	SaveAnalysis(ctx context.Context, rec *history.Record) error
	ListRecent(ctx context.Context, limit int) ([]*history.Record, error)
}

// Server is the FinAgent HTTP server.
type Server struct {
	cfg       *config.Config
	agent     Analyzer
	news      NewsService
	dashboard DashboardService
	history   HistoryStore
	log       *logging.Logger

	server    *http.Server
	startedAt time.Time
}

// New assembles the server from its services. news, dashboard and history
// may be nil; their endpoints then report unavailable.
func New(cfg *config.Config, analyzer Analyzer, newsSvc NewsService, dashboard DashboardService, historyStore HistoryStore) *Server {
	return &Server{
		cfg:       cfg,
		agent:     analyzer,
		news:      newsSvc,
		dashboard: dashboard,
		history:   historyStore,
		log:       logging.Global().WithComponent("server"),
	}
}

// Start begins serving. It returns once the listener is up, with any
// startup error.
func (s *Server) Start(ctx context.Context) error {
	addr := s.cfg.Server.Addr()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.createRouter(),
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.log.Info("starting server at http://%s", addr)
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait briefly for startup errors such as a busy port.
	select {
	case err := <-serverErr:
		return fmt.Errorf("server start failed: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	s.startedAt = time.Now()
	s.log.Info("server ready at http://%s", addr)
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	s.log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.Server.ShutdownTimeoutSec)*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("graceful shutdown failed: %v", err)
		s.server.Close()
	}

	s.log.Info("server stopped")
	return nil
}

// createRouter registers all routes and wraps them in the middleware chain.
func (s *Server) createRouter() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/news", s.handleNews)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /ws/analyze", s.handleAnalyzeWS)
	mux.HandleFunc("GET /api/metrics/llm", s.handleLLMMetrics)
	mux.HandleFunc("POST /api/metrics/llm/reset", s.handleMetricsReset)

	return s.middleware(mux)
}
