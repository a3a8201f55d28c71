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

// NewsAPIClient fetches headlines from newsapi.org. It serves the INDIA
// region: top business headlines by default, or an everything search when a
// ticker is given.
type NewsAPIClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewNewsAPIClient creates a NewsAPI client. An empty endpoint selects the
// public API host.
func NewNewsAPIClient(endpoint, apiKey string, timeout time.Duration) *NewsAPIClient {
	if endpoint == "" {
		endpoint = "https://newsapi.org"
	}
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &NewsAPIClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

// Name implements Provider.
func (c *NewsAPIClient) Name() string { return "newsapi" }

// Available implements Provider.
func (c *NewsAPIClient) Available() bool { return c.apiKey != "" }

// Fetch implements Provider.
func (c *NewsAPIClient) Fetch(ctx context.Context, req FetchRequest) ([]Item, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("newsapi key not configured")
	}

	path := "/v2/top-headlines"
	query := url.Values{}
	query.Set("apiKey", c.apiKey)
	query.Set("pageSize", fmt.Sprint(req.Limit))

	if req.Ticker != "" {
		path = "/v2/everything"
		query.Set("q", fmt.Sprintf("%s AND (stock OR market OR finance)", req.Ticker))
		query.Set("sortBy", "publishedAt")
		query.Set("language", "en")
	} else {
		query.Set("category", "business")
		query.Set("country", "in")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path+"?"+query.Encode(), nil)
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
		return nil, fmt.Errorf("newsapi error (status %d): %s", resp.StatusCode, string(body))
	}

	var payload newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	items := make([]Item, 0, len(payload.Articles))
	for _, article := range payload.Articles {
		// Redacted articles keep their slot in the feed but carry no
		// usable content.
		if article.Title == "[Removed]" {
			continue
		}
		// A missing or unparsable date leaves the item in the feed with a
		// zero timestamp.
		published, _ := time.Parse(time.RFC3339, article.PublishedAt)
		source := article.Source.Name
		if source == "" {
			source = "NewsAPI"
		}
		items = append(items, Item{
			Title:         article.Title,
			Description:   article.Description,
			URL:           article.URL,
			Source:        source,
			PublishedDate: published,
		})
	}
	return items, nil
}

// NewsAPI response types
type newsAPIResponse struct {
	Status       string `json:"status"`
	TotalResults int    `json:"totalResults"`
	Articles     []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}
