// Package agent implements the finance analyst agent on top of the LLM
// provider layer.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/finagent-pro/finagent/internal/llm"
	"github.com/finagent-pro/finagent/internal/logging"
	"github.com/finagent-pro/finagent/internal/prompts"
)

// MaxQueryLength caps user queries before they reach the LLM.
const MaxQueryLength = 1000

var (
	// ErrEmptyQuery is returned when the query is empty after trimming.
	ErrEmptyQuery = errors.New("query must not be empty")

	// ErrQueryTooLong is returned when the query exceeds MaxQueryLength.
	ErrQueryTooLong = fmt.Errorf("query exceeds %d characters", MaxQueryLength)
)

// Analysis is the result of a single analyst run.
type Analysis struct {
	Query        string        `json:"query"`
	Response     string        `json:"response"`
	Model        string        `json:"model"`
	InputTokens  int           `json:"input_tokens"`
	OutputTokens int           `json:"output_tokens"`
	Duration     time.Duration `json:"-"`
}

// FinanceAgent answers queries about stocks, sectors and markets using the
// configured LLM provider and the analyst system prompt.
type FinanceAgent struct {
	provider    llm.Provider
	model       string
	temperature float64
	log         *logging.Logger

	// now is swappable for tests; the timestamp prefix makes responses
	// date-aware.
	now func() time.Time
}

// New creates a FinanceAgent using the given provider, model id and
// temperature.
func New(provider llm.Provider, model string, temperature float64) *FinanceAgent {
	return &FinanceAgent{
		provider:    provider,
		model:       model,
		temperature: temperature,
		log:         logging.Global().WithComponent("agent"),
		now:         time.Now,
	}
}

// Analyze runs a financial query through the LLM and returns the full
// analysis.
func (a *FinanceAgent) Analyze(ctx context.Context, query string) (*Analysis, error) {
	req, err := a.buildRequest(query)
	if err != nil {
		return nil, err
	}

	a.log.Info("starting analysis: %s", truncate(req.Messages[0].Content, 80))

	start := time.Now()
	resp, err := a.provider.Chat(ctx, req)
	if err != nil {
		a.log.Error("analysis failed: %v", err)
		return nil, fmt.Errorf("analyze: %w", err)
	}

	return a.result(query, resp, time.Since(start)), nil
}

// AnalyzeStream is like Analyze but delivers response tokens through onToken
// as they arrive. The returned Analysis carries the complete response.
func (a *FinanceAgent) AnalyzeStream(ctx context.Context, query string, onToken func(token string)) (*Analysis, error) {
	sp, ok := a.provider.(llm.StreamingProvider)
	if !ok {
		return a.Analyze(ctx, query)
	}

	req, err := a.buildRequest(query)
	if err != nil {
		return nil, err
	}

	a.log.Info("starting streaming analysis: %s", truncate(req.Messages[0].Content, 80))

	start := time.Now()
	resp, err := sp.ChatStream(ctx, req, onToken)
	if err != nil {
		a.log.Error("streaming analysis failed: %v", err)
		return nil, fmt.Errorf("analyze stream: %w", err)
	}

	return a.result(query, resp, time.Since(start)), nil
}

func (a *FinanceAgent) buildRequest(query string) (*llm.ChatRequest, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return nil, ErrQueryTooLong
	}

	return &llm.ChatRequest{
		Model:        a.model,
		Temperature:  a.temperature,
		SystemPrompt: prompts.FinanceAnalyst(),
		Messages: []llm.Message{
			{Role: "user", Content: prompts.WithTimestamp(query, a.now())},
		},
	}, nil
}

func (a *FinanceAgent) result(query string, resp *llm.ChatResponse, elapsed time.Duration) *Analysis {
	model := resp.Model
	if model == "" {
		model = a.model
	}
	return &Analysis{
		Query:        strings.TrimSpace(query),
		Response:     resp.Content,
		Model:        model,
		InputTokens:  resp.PromptTokens,
		OutputTokens: resp.CompletionTokens,
		Duration:     elapsed,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
