package llm

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/finagent-pro/finagent/internal/logging"
)

// CostRates maps provider names to their token costs (USD per million
// tokens). Input and output are priced separately.
type ProviderCostRates struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

var CostRates = map[string]ProviderCostRates{
	"anthropic": {3.00, 15.00}, // Claude 3.5 Sonnet
}

// GetCostRate returns the cost rate for a provider. Unknown providers are
// assumed to cost moderate cloud pricing.
func GetCostRate(provider string) ProviderCostRates {
	if rate, ok := CostRates[provider]; ok {
		return rate
	}
	return ProviderCostRates{1.0, 2.0}
}

// MetricsProvider wraps an LLM provider with timing and metrics collection.
// It feeds the /api/metrics/llm endpoint.
type MetricsProvider struct {
	provider Provider
	name     string
	log      *logging.Logger

	// Atomic counters
	totalCalls        int64
	totalErrors       int64
	totalTokens       int64
	totalInputTokens  int64
	totalOutputTokens int64

	// Protected by mutex
	mu               sync.RWMutex
	totalLatency     time.Duration
	minLatency       time.Duration
	maxLatency       time.Duration
	latencyBuckets   []int64 // Histogram: <100ms, <500ms, <1s, <2s, <5s, 5s+
	modelStats       map[string]*ModelMetrics
	estimatedCostUSD float64
}

// ModelMetrics tracks per-model performance.
type ModelMetrics struct {
	Calls         int64
	TotalLatency  time.Duration
	Errors        int64
	InputTokens   int64
	OutputTokens  int64
	EstimatedCost float64
}

// NewMetricsProvider wraps a provider with metrics collection and registers
// it in the global registry.
func NewMetricsProvider(provider Provider) *MetricsProvider {
	m := &MetricsProvider{
		provider:       provider,
		name:           provider.Name(),
		log:            logging.Global().WithComponent("llm-metrics"),
		minLatency:     time.Hour, // Replaced on first call
		latencyBuckets: make([]int64, 6),
		modelStats:     make(map[string]*ModelMetrics),
	}
	globalRegistry.Register(m)
	return m
}

// Chat implements Provider with metrics collection.
func (m *MetricsProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()
	resp, err := m.provider.Chat(ctx, req)
	m.record(req.Model, resp, err, time.Since(start))
	return resp, err
}

// ChatStream implements StreamingProvider with metrics collection when the
// wrapped provider supports streaming.
func (m *MetricsProvider) ChatStream(ctx context.Context, req *ChatRequest, onToken func(token string)) (*ChatResponse, error) {
	sp, ok := m.provider.(StreamingProvider)
	if !ok {
		return nil, fmt.Errorf("provider %s does not support streaming", m.name)
	}

	start := time.Now()
	resp, err := sp.ChatStream(ctx, req, onToken)
	m.record(req.Model, resp, err, time.Since(start))
	return resp, err
}

func (m *MetricsProvider) record(model string, resp *ChatResponse, err error, latency time.Duration) {
	atomic.AddInt64(&m.totalCalls, 1)
	if err != nil {
		atomic.AddInt64(&m.totalErrors, 1)
	}

	m.mu.Lock()
	m.totalLatency += latency
	if latency < m.minLatency {
		m.minLatency = latency
	}
	if latency > m.maxLatency {
		m.maxLatency = latency
	}

	switch {
	case latency < 100*time.Millisecond:
		m.latencyBuckets[0]++
	case latency < 500*time.Millisecond:
		m.latencyBuckets[1]++
	case latency < 1*time.Second:
		m.latencyBuckets[2]++
	case latency < 2*time.Second:
		m.latencyBuckets[3]++
	case latency < 5*time.Second:
		m.latencyBuckets[4]++
	default:
		m.latencyBuckets[5]++
	}

	stats, ok := m.modelStats[model]
	if !ok {
		stats = &ModelMetrics{}
		m.modelStats[model] = stats
	}
	stats.Calls++
	stats.TotalLatency += latency
	if err != nil {
		stats.Errors++
	}
	m.mu.Unlock()

	var callCost float64
	if resp != nil && resp.TokensUsed > 0 {
		atomic.AddInt64(&m.totalTokens, int64(resp.TokensUsed))
		atomic.AddInt64(&m.totalInputTokens, int64(resp.PromptTokens))
		atomic.AddInt64(&m.totalOutputTokens, int64(resp.CompletionTokens))

		rates := GetCostRate(m.name)
		callCost = float64(resp.PromptTokens)/1_000_000.0*rates.InputPerMillion +
			float64(resp.CompletionTokens)/1_000_000.0*rates.OutputPerMillion

		m.mu.Lock()
		m.estimatedCostUSD += callCost
		stats.InputTokens += int64(resp.PromptTokens)
		stats.OutputTokens += int64(resp.CompletionTokens)
		stats.EstimatedCost += callCost
		m.mu.Unlock()
	}

	if err != nil {
		m.log.Warn("%s/%s failed after %v: %v", m.name, model, latency, err)
	} else if resp != nil {
		m.log.Info("%s/%s completed in %v (%d tokens, $%.6f)", m.name, model, latency, resp.TokensUsed, callCost)
	}
}

// Name implements Provider.
func (m *MetricsProvider) Name() string {
	return m.name
}

// Available implements Provider.
func (m *MetricsProvider) Available() bool {
	return m.provider.Available()
}

// Unwrap returns the underlying provider.
func (m *MetricsProvider) Unwrap() Provider {
	return m.provider
}

// GetMetrics returns current metrics as a JSON-ready map.
func (m *MetricsProvider) GetMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	calls := atomic.LoadInt64(&m.totalCalls)
	errors := atomic.LoadInt64(&m.totalErrors)

	avgLatency := time.Duration(0)
	if calls > 0 {
		avgLatency = m.totalLatency / time.Duration(calls)
	}

	errorRate := float64(0)
	if calls > 0 {
		errorRate = float64(errors) / float64(calls)
	}

	modelBreakdown := make(map[string]interface{})
	for model, stats := range m.modelStats {
		avgModelLatency := time.Duration(0)
		if stats.Calls > 0 {
			avgModelLatency = stats.TotalLatency / time.Duration(stats.Calls)
		}
		modelBreakdown[model] = map[string]interface{}{
			"calls":          stats.Calls,
			"errors":         stats.Errors,
			"avg_latency_ms": avgModelLatency.Milliseconds(),
			"input_tokens":   stats.InputTokens,
			"output_tokens":  stats.OutputTokens,
			"cost_usd":       stats.EstimatedCost,
		}
	}

	return map[string]interface{}{
		"provider":       m.name,
		"total_calls":    calls,
		"total_errors":   errors,
		"error_rate":     errorRate,
		"total_tokens":   atomic.LoadInt64(&m.totalTokens),
		"input_tokens":   atomic.LoadInt64(&m.totalInputTokens),
		"output_tokens":  atomic.LoadInt64(&m.totalOutputTokens),
		"estimated_cost": m.estimatedCostUSD,
		"avg_latency_ms": avgLatency.Milliseconds(),
		"min_latency_ms": m.minLatency.Milliseconds(),
		"max_latency_ms": m.maxLatency.Milliseconds(),
		"latency_histogram": map[string]int64{
			"<100ms": m.latencyBuckets[0],
			"<500ms": m.latencyBuckets[1],
			"<1s":    m.latencyBuckets[2],
			"<2s":    m.latencyBuckets[3],
			"<5s":    m.latencyBuckets[4],
			"5s+":    m.latencyBuckets[5],
		},
		"models": modelBreakdown,
	}
}

// Reset clears all metrics.
func (m *MetricsProvider) Reset() {
	atomic.StoreInt64(&m.totalCalls, 0)
	atomic.StoreInt64(&m.totalErrors, 0)
	atomic.StoreInt64(&m.totalTokens, 0)
	atomic.StoreInt64(&m.totalInputTokens, 0)
	atomic.StoreInt64(&m.totalOutputTokens, 0)

	m.mu.Lock()
	m.totalLatency = 0
	m.minLatency = time.Hour
	m.maxLatency = 0
	m.latencyBuckets = make([]int64, 6)
	m.modelStats = make(map[string]*ModelMetrics)
	m.estimatedCostUSD = 0
	m.mu.Unlock()
}
