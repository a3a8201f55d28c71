package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finagent-pro/finagent/internal/agent"
	"github.com/finagent-pro/finagent/internal/config"
	"github.com/finagent-pro/finagent/internal/history"
	"github.com/finagent-pro/finagent/internal/market"
	"github.com/finagent-pro/finagent/internal/news"
)

type stubAnalyzer struct {
	result *agent.Analysis
	err    error
}

func (s *stubAnalyzer) Analyze(ctx context.Context, query string) (*agent.Analysis, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, agent.ErrEmptyQuery
	}
	if len(query) > agent.MaxQueryLength {
		return nil, agent.ErrQueryTooLong
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubAnalyzer) AnalyzeStream(ctx context.Context, query string, onToken func(token string)) (*agent.Analysis, error) {
	result, err := s.Analyze(ctx, query)
	if err != nil {
		return nil, err
	}
	for _, word := range strings.SplitAfter(result.Response, " ") {
		onToken(word)
	}
	return result, nil
}

type stubDashboard struct {
	snap *market.Snapshot
	err  error
}

func (s *stubDashboard) Snapshot(ctx context.Context, ticker string) (*market.Snapshot, error) {
	return s.snap, s.err
}

type stubNews struct {
	lastRegion news.Region
	lastLimit  int
	items      []news.Item
}

func (s *stubNews) MarketNews(ctx context.Context, region news.Region, ticker string, limit int) []news.Item {
	s.lastRegion = region
	s.lastLimit = limit
	return s.items
}

type memHistory struct {
	records []*history.Record
	saved   chan *history.Record
}

func newMemHistory() *memHistory {
	return &memHistory{saved: make(chan *history.Record, 8)}
}

func (m *memHistory) SaveAnalysis(ctx context.Context, rec *history.Record) error {
	m.records = append(m.records, rec)
	m.saved <- rec
	return nil
}

func (m *memHistory) ListRecent(ctx context.Context, limit int) ([]*history.Record, error) {
	return m.records, nil
}

func testServer(t *testing.T, analyzer Analyzer, newsSvc NewsService, dash DashboardService, hist HistoryStore) *httptest.Server {
	t.Helper()
	srv := New(config.Default(), analyzer, newsSvc, dash, hist)
	ts := httptest.NewServer(srv.createRouter())
	t.Cleanup(ts.Close)
	return ts
}

func decodeBody(t *testing.T, resp *http.Response, into interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
}

func TestHandleHealth(t *testing.T) {
	ts := testServer(t, &stubAnalyzer{}, nil, nil, nil)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var health HealthResponse
	decodeBody(t, resp, &health)
	assert.Equal(t, "ok", health.Status)
	assert.True(t, health.AgentReady)
}

func TestHandleHealthNoAgent(t *testing.T) {
	ts := testServer(t, nil, nil, nil, nil)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)

	var health HealthResponse
	decodeBody(t, resp, &health)
	assert.False(t, health.AgentReady)
}

func TestHandleAnalyze(t *testing.T) {
	analyzer := &stubAnalyzer{result: &agent.Analysis{
		Query:    "Analyze AAPL",
		Response: "# AAPL\nStrong.",
		Model:    "claude-3-5-sonnet-20241022",
		Duration: 2 * time.Second,
	}}
	hist := newMemHistory()
	ts := testServer(t, analyzer, nil, nil, hist)

	resp, err := http.Post(ts.URL+"/api/analyze", "application/json",
		bytes.NewBufferString(`{"query": "Analyze AAPL"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body AnalyzeResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, "Analyze AAPL", body.Query)
	assert.Equal(t, "# AAPL\nStrong.", body.Response)

	// The analysis is recorded in the background.
	select {
	case rec := <-hist.saved:
		assert.Equal(t, "Analyze AAPL", rec.Query)
		assert.Equal(t, int64(2000), rec.DurationMS)
	case <-time.After(2 * time.Second):
		t.Fatal("analysis was not saved to history")
	}
}

func TestHandleAnalyzeBadRequests(t *testing.T) {
	ts := testServer(t, &stubAnalyzer{}, nil, nil, nil)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"query": `},
		{"empty query", `{"query": "  "}`},
		{"too long", fmt.Sprintf(`{"query": %q}`, strings.Repeat("x", 1001))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/api/analyze", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestHandleAnalyzeUpstreamFailure(t *testing.T) {
	ts := testServer(t, &stubAnalyzer{err: errors.New("overloaded")}, nil, nil, nil)

	resp, err := http.Post(ts.URL+"/api/analyze", "application/json",
		strings.NewReader(`{"query": "Analyze AAPL"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestHandleAnalyzeNoAgent(t *testing.T) {
	ts := testServer(t, nil, nil, nil, nil)

	resp, err := http.Post(ts.URL+"/api/analyze", "application/json",
		strings.NewReader(`{"query": "Analyze AAPL"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHandleNews(t *testing.T) {
	stub := &stubNews{items: []news.Item{{Title: "Fed holds rates"}}}
	ts := testServer(t, nil, stub, nil, nil)

	resp, err := http.Get(ts.URL + "/api/news?region=us&limit=5")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body NewsResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, news.RegionUS, body.Region)
	assert.Equal(t, 1, body.TotalResults)
	assert.Equal(t, news.RegionUS, stub.lastRegion)
	assert.Equal(t, 5, stub.lastLimit)
}

func TestHandleNewsUnknownRegion(t *testing.T) {
	ts := testServer(t, nil, &stubNews{}, nil, nil)

	resp, err := http.Get(ts.URL + "/api/news?region=mars")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleNewsBadLimit(t *testing.T) {
	ts := testServer(t, nil, &stubNews{}, nil, nil)

	for _, limit := range []string{"abc", "-1", "0"} {
		resp, err := http.Get(ts.URL + "/api/news?limit=" + limit)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "limit %q", limit)
	}
}

func TestHandleDashboard(t *testing.T) {
	snap := &market.Snapshot{
		Indices: map[string]float64{"S&P 500": 0.4},
		Stock:   market.StockDetails{Ticker: "AAPL", Price: 185.2},
		Risk:    market.RiskAnalysis{Score: 2, Level: "low", Reasons: []string{}},
	}
	ts := testServer(t, nil, nil, &stubDashboard{snap: snap}, nil)

	resp, err := http.Get(ts.URL + "/api/dashboard?ticker=AAPL")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body market.Snapshot
	decodeBody(t, resp, &body)
	assert.Equal(t, "AAPL", body.Stock.Ticker)
	assert.Equal(t, "low", body.Risk.Level)
}

func TestHandleDashboardUnknownTicker(t *testing.T) {
	dash := &stubDashboard{err: fmt.Errorf("NOPE: %w", market.ErrSymbolNotFound)}
	ts := testServer(t, nil, nil, dash, nil)

	resp, err := http.Get(ts.URL + "/api/dashboard?ticker=NOPE")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var apiErr APIError
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&apiErr))
	assert.Contains(t, apiErr.Message, "NOPE")
}

func TestHandleDashboardUpstreamFailure(t *testing.T) {
	ts := testServer(t, nil, nil, &stubDashboard{err: errors.New("timeout")}, nil)

	resp, err := http.Get(ts.URL + "/api/dashboard")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestHandleHistory(t *testing.T) {
	hist := newMemHistory()
	hist.records = []*history.Record{{ID: "1", Query: "Analyze AAPL"}}
	ts := testServer(t, nil, nil, nil, hist)

	resp, err := http.Get(ts.URL + "/api/history")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body HistoryResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, 1, body.TotalResults)
	assert.Equal(t, "Analyze AAPL", body.Items[0].Query)
}

func TestHandleHistoryDisabled(t *testing.T) {
	ts := testServer(t, nil, nil, nil, nil)

	resp, err := http.Get(ts.URL + "/api/history")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := testServer(t, nil, nil, nil, nil)

	resp, err := http.Get(ts.URL + "/api/metrics/llm")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body LLMMetricsResponse
	decodeBody(t, resp, &body)
	assert.NotEmpty(t, body.Timestamp)
	assert.Contains(t, body.Summary, "total_calls")
}

func TestMethodNotAllowed(t *testing.T) {
	ts := testServer(t, &stubAnalyzer{}, nil, nil, nil)

	resp, err := http.Get(ts.URL + "/api/analyze")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
