package news

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finagent-pro/finagent/internal/config"
)

type stubNewsProvider struct {
	name    string
	lastReq FetchRequest
	items   []Item
	err     error
	called  bool
}

func (s *stubNewsProvider) Fetch(ctx context.Context, req FetchRequest) ([]Item, error) {
	s.called = true
	s.lastReq = req
	return s.items, s.err
}

func (s *stubNewsProvider) Name() string    { return s.name }
func (s *stubNewsProvider) Available() bool { return true }

func testNewsConfig() config.NewsConfig {
	return config.NewsConfig{DefaultLimit: 10, MaxLimit: 50}
}

func TestMarketNewsRoutesIndiaToNewsAPI(t *testing.T) {
	newsapi := &stubNewsProvider{name: "newsapi", items: []Item{{Title: "Sensex up"}}}
	marketaux := &stubNewsProvider{name: "marketaux"}
	s := NewService(newsapi, marketaux, testNewsConfig())

	items := s.MarketNews(context.Background(), RegionIndia, "", 5)

	require.Len(t, items, 1)
	assert.True(t, newsapi.called)
	assert.False(t, marketaux.called)
	assert.Equal(t, 5, newsapi.lastReq.Limit)
}

func TestMarketNewsRoutesUSAndGlobalToMarketaux(t *testing.T) {
	for _, region := range []Region{RegionUS, RegionGlobal} {
		newsapi := &stubNewsProvider{name: "newsapi"}
		marketaux := &stubNewsProvider{name: "marketaux", items: []Item{{Title: "Fed watch"}}}
		s := NewService(newsapi, marketaux, testNewsConfig())

		items := s.MarketNews(context.Background(), region, "AAPL", 0)

		require.Len(t, items, 1, "region %s", region)
		assert.False(t, newsapi.called)
		assert.Equal(t, region, marketaux.lastReq.Region)
		assert.Equal(t, "AAPL", marketaux.lastReq.Ticker)
		// Zero limit selects the configured default.
		assert.Equal(t, 10, marketaux.lastReq.Limit)
	}
}

func TestMarketNewsClampsLimit(t *testing.T) {
	marketaux := &stubNewsProvider{name: "marketaux"}
	s := NewService(nil, marketaux, testNewsConfig())

	s.MarketNews(context.Background(), RegionUS, "", 500)
	assert.Equal(t, 50, marketaux.lastReq.Limit)
}

func TestMarketNewsProviderErrorYieldsEmptyList(t *testing.T) {
	marketaux := &stubNewsProvider{name: "marketaux", err: errors.New("usage limit reached")}
	s := NewService(nil, marketaux, testNewsConfig())

	items := s.MarketNews(context.Background(), RegionUS, "", 10)
	require.NotNil(t, items)
	assert.Empty(t, items)
}

func TestMarketNewsUnconfiguredProvider(t *testing.T) {
	s := NewService(nil, NewMarketauxClient("", "", time.Second), testNewsConfig())

	items := s.MarketNews(context.Background(), RegionUS, "", 10)
	require.NotNil(t, items)
	assert.Empty(t, items)
}

func TestParseRegion(t *testing.T) {
	tests := []struct {
		in      string
		want    Region
		wantErr bool
	}{
		{"US", RegionUS, false},
		{"us", RegionUS, false},
		{"India", RegionIndia, false},
		{"GLOBAL", RegionGlobal, false},
		{"", RegionGlobal, false},
		{"  global ", RegionGlobal, false},
		{"mars", "", true},
	}
	for _, tt := range tests {
		got, err := ParseRegion(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}
