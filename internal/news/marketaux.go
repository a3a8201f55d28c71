package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// MarketauxClient fetches financial news from api.marketaux.com. It serves
// the US and GLOBAL regions.
type MarketauxClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewMarketauxClient creates a MarketAux client. An empty endpoint selects
// the public API host.
func NewMarketauxClient(endpoint, apiKey string, timeout time.Duration) *MarketauxClient {
	if endpoint == "" {
		endpoint = "https://api.marketaux.com"
	}
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &MarketauxClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

// Name implements Provider.
func (c *MarketauxClient) Name() string { return "marketaux" }

// Available implements Provider.
func (c *MarketauxClient) Available() bool { return c.apiKey != "" }

// Fetch implements Provider.
func (c *MarketauxClient) Fetch(ctx context.Context, req FetchRequest) ([]Item, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("marketaux token not configured")
	}

	query := url.Values{}
	query.Set("api_token", c.apiKey)
	query.Set("language", "en")
	query.Set("limit", fmt.Sprint(req.Limit))
	if req.Region == RegionUS {
		query.Set("countries", "us")
	}
	if req.Ticker != "" {
		query.Set("symbols", req.Ticker)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/v1/news/all?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("marketaux error (status %d): %s", resp.StatusCode, string(body))
	}

	var payload marketauxResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	items := make([]Item, 0, len(payload.Data))
	for _, article := range payload.Data {
		published, err := time.Parse(time.RFC3339, article.PublishedAt)
		if err != nil {
			continue
		}
		source := article.Source
		if source == "" {
			source = "MarketAux"
		}

		item := Item{
			Title:         article.Title,
			Description:   article.Description,
			URL:           article.URL,
			Source:        source,
			PublishedDate: published,
		}
		for _, entity := range article.Entities {
			if entity.Symbol != "" {
				item.Tickers = append(item.Tickers, entity.Symbol)
			}
		}
		item.Sentiment = sentimentLabel(article.Entities)
		items = append(items, item)
	}
	return items, nil
}

// sentimentLabel buckets the average entity sentiment score.
func sentimentLabel(entities []marketauxEntity) string {
	if len(entities) == 0 {
		return ""
	}
	var sum float64
	for _, e := range entities {
		sum += e.SentimentScore
	}
	avg := sum / float64(len(entities))
	switch {
	case avg > 0.1:
		return "positive"
	case avg < -0.1:
		return "negative"
	default:
		return "neutral"
	}
}

// MarketAux response types
type marketauxResponse struct {
	Meta struct {
		Found    int `json:"found"`
		Returned int `json:"returned"`
	} `json:"meta"`
	Data []struct {
		Title       string            `json:"title"`
		Description string            `json:"description"`
		URL         string            `json:"url"`
		Source      string            `json:"source"`
		PublishedAt string            `json:"published_at"`
		Entities    []marketauxEntity `json:"entities"`
	} `json:"data"`
}

type marketauxEntity struct {
	Symbol         string  `json:"symbol"`
	SentimentScore float64 `json:"sentiment_score"`
}
