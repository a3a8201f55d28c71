package news

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarketauxFetchUS(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/news/all", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "test-token", q.Get("api_token"))
		assert.Equal(t, "us", q.Get("countries"))
		assert.Equal(t, "AAPL", q.Get("symbols"))
		assert.Equal(t, "en", q.Get("language"))

		fmt.Fprint(w, `{"meta":{"found":2,"returned":2},"data":[
			{"title":"Apple beats estimates","description":"Strong quarter","url":"https://example.com/a","source":"reuters.com","published_at":"2025-03-14T10:00:00.000000Z",
			 "entities":[{"symbol":"AAPL","sentiment_score":0.6}]},
			{"title":"Mixed market day","description":"","url":"https://example.com/b","source":"","published_at":"2025-03-14T09:00:00.000000Z",
			 "entities":[{"symbol":"AAPL","sentiment_score":0.05},{"symbol":"MSFT","sentiment_score":-0.05}]}
		]}`)
	}))
	defer server.Close()

	client := NewMarketauxClient(server.URL, "test-token", 5*time.Second)
	items, err := client.Fetch(context.Background(), FetchRequest{Region: RegionUS, Ticker: "AAPL", Limit: 10})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Apple beats estimates", items[0].Title)
	assert.Equal(t, "reuters.com", items[0].Source)
	assert.Equal(t, []string{"AAPL"}, items[0].Tickers)
	assert.Equal(t, "positive", items[0].Sentiment)
	assert.Equal(t, time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC), items[0].PublishedDate)

	assert.Equal(t, "MarketAux", items[1].Source)
	assert.Equal(t, []string{"AAPL", "MSFT"}, items[1].Tickers)
	assert.Equal(t, "neutral", items[1].Sentiment)
}

func TestMarketauxGlobalOmitsCountries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("countries"))
		assert.False(t, r.URL.Query().Has("symbols"))
		fmt.Fprint(w, `{"meta":{"found":0,"returned":0},"data":[]}`)
	}))
	defer server.Close()

	client := NewMarketauxClient(server.URL, "test-token", 5*time.Second)
	items, err := client.Fetch(context.Background(), FetchRequest{Region: RegionGlobal, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMarketauxSkipsMissingPublishDate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"meta":{"found":1,"returned":1},"data":[
			{"title":"No date","url":"https://example.com","source":"x","published_at":""}
		]}`)
	}))
	defer server.Close()

	client := NewMarketauxClient(server.URL, "test-token", 5*time.Second)
	items, err := client.Fetch(context.Background(), FetchRequest{Region: RegionGlobal, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMarketauxFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		fmt.Fprint(w, `{"error":{"code":"usage_limit_reached"}}`)
	}))
	defer server.Close()

	client := NewMarketauxClient(server.URL, "test-token", 5*time.Second)
	_, err := client.Fetch(context.Background(), FetchRequest{Region: RegionUS, Limit: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 402")
}

func TestSentimentLabel(t *testing.T) {
	assert.Equal(t, "", sentimentLabel(nil))
	assert.Equal(t, "positive", sentimentLabel([]marketauxEntity{{SentimentScore: 0.5}}))
	assert.Equal(t, "negative", sentimentLabel([]marketauxEntity{{SentimentScore: -0.5}}))
	assert.Equal(t, "neutral", sentimentLabel([]marketauxEntity{{SentimentScore: 0.05}}))
}
