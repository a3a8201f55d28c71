// Package market fetches quote history and builds the dashboard view.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrSymbolNotFound is returned when the quote source has no data for a
// symbol.
var ErrSymbolNotFound = errors.New("symbol not found")

// Bar is a single daily OHLCV bar.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// QuoteSource provides daily price history for a symbol. rng is a chart
// range such as "5d" or "6mo".
type QuoteSource interface {
	History(ctx context.Context, symbol, rng string) ([]Bar, error)
}

// YahooClient fetches daily bars from the Yahoo Finance chart API.
type YahooClient struct {
	endpoint string
	client   *http.Client
}

// NewYahooClient creates a client for the public chart API. An empty
// endpoint selects the default host.
func NewYahooClient(endpoint string, timeout time.Duration) *YahooClient {
	if endpoint == "" {
		endpoint = "https://query1.finance.yahoo.com"
	}
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &YahooClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// History implements QuoteSource against /v8/finance/chart/{symbol}.
func (c *YahooClient) History(ctx context.Context, symbol, rng string) ([]Bar, error) {
	query := url.Values{}
	query.Set("range", rng)
	query.Set("interval", "1d")

	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.endpoint, url.PathEscape(symbol), query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	// The chart API rejects requests without a browser-like agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; finagent/1.0)")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", symbol, ErrSymbolNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("chart API error (status %d): %s", resp.StatusCode, string(body))
	}

	var chart chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("%s: %s: %w", symbol, chart.Chart.Error.Description, ErrSymbolNotFound)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrSymbolNotFound)
	}

	return chart.Chart.Result[0].bars(), nil
}

// Yahoo chart API types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []float64 `json:"open"`
			High   []float64 `json:"high"`
			Low    []float64 `json:"low"`
			Close  []float64 `json:"close"`
			Volume []int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// bars flattens the column-oriented chart payload into Bar values, skipping
// slots where the close is missing (holidays, halted sessions).
func (r chartResult) bars() []Bar {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	quote := r.Indicators.Quote[0]

	out := make([]Bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == 0 {
			continue
		}
		bar := Bar{
			Time:  time.Unix(ts, 0).UTC(),
			Close: quote.Close[i],
		}
		if i < len(quote.Open) {
			bar.Open = quote.Open[i]
		}
		if i < len(quote.High) {
			bar.High = quote.High[i]
		}
		if i < len(quote.Low) {
			bar.Low = quote.Low[i]
		}
		if i < len(quote.Volume) {
			bar.Volume = quote.Volume[i]
		}
		out = append(out, bar)
	}
	return out
}
