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

func TestNewsAPIFetchHeadlines(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/top-headlines", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("apiKey"))
		assert.Equal(t, "business", q.Get("category"))
		assert.Equal(t, "in", q.Get("country"))
		assert.Equal(t, "10", q.Get("pageSize"))

		fmt.Fprint(w, `{"status":"ok","totalResults":3,"articles":[
			{"source":{"name":"Economic Times"},"title":"Sensex rallies","description":"Markets up","url":"https://example.com/1","publishedAt":"2025-03-14T09:00:00Z"},
			{"source":{"name":null},"title":"[Removed]","description":null,"url":"https://removed.com","publishedAt":"2025-03-14T08:00:00Z"},
			{"source":{},"title":"RBI holds rates","description":"No change","url":"https://example.com/2","publishedAt":"2025-03-14T07:30:00Z"}
		]}`)
	}))
	defer server.Close()

	client := NewNewsAPIClient(server.URL, "test-key", 5*time.Second)
	items, err := client.Fetch(context.Background(), FetchRequest{Region: RegionIndia, Limit: 10})
	require.NoError(t, err)

	// The [Removed] placeholder is dropped.
	require.Len(t, items, 2)
	assert.Equal(t, "Sensex rallies", items[0].Title)
	assert.Equal(t, "Economic Times", items[0].Source)
	assert.Equal(t, time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC), items[0].PublishedDate)

	// A missing source name falls back to the provider name.
	assert.Equal(t, "NewsAPI", items[1].Source)
}

func TestNewsAPIFetchKeepsUndatedArticles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"ok","totalResults":2,"articles":[
			{"source":{"name":"Mint"},"title":"Nifty outlook","description":"Flat open","url":"https://example.com/3","publishedAt":null},
			{"source":{"name":"Mint"},"title":"Rupee steadies","description":"FX calm","url":"https://example.com/4","publishedAt":"not-a-date"}
		]}`)
	}))
	defer server.Close()

	client := NewNewsAPIClient(server.URL, "test-key", 5*time.Second)
	items, err := client.Fetch(context.Background(), FetchRequest{Region: RegionIndia, Limit: 10})
	require.NoError(t, err)

	// Articles without a usable date stay in the feed with a zero timestamp.
	require.Len(t, items, 2)
	assert.True(t, items[0].PublishedDate.IsZero())
	assert.True(t, items[1].PublishedDate.IsZero())
}

func TestNewsAPIFetchWithTicker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/everything", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "RELIANCE.NS AND (stock OR market OR finance)", q.Get("q"))
		assert.Equal(t, "publishedAt", q.Get("sortBy"))
		assert.Equal(t, "en", q.Get("language"))

		fmt.Fprint(w, `{"status":"ok","totalResults":0,"articles":[]}`)
	}))
	defer server.Close()

	client := NewNewsAPIClient(server.URL, "test-key", 5*time.Second)
	items, err := client.Fetch(context.Background(), FetchRequest{Region: RegionIndia, Ticker: "RELIANCE.NS", Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestNewsAPIFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"status":"error","code":"apiKeyInvalid"}`)
	}))
	defer server.Close()

	client := NewNewsAPIClient(server.URL, "bad-key", 5*time.Second)
	_, err := client.Fetch(context.Background(), FetchRequest{Region: RegionIndia, Limit: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestNewsAPIUnconfigured(t *testing.T) {
	client := NewNewsAPIClient("", "", 0)
	assert.False(t, client.Available())

	_, err := client.Fetch(context.Background(), FetchRequest{Region: RegionIndia, Limit: 10})
	assert.Error(t, err)
}
