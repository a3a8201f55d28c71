package news

import (
	"context"

	"github.com/finagent-pro/finagent/internal/config"
	"github.com/finagent-pro/finagent/internal/logging"
)

// Service routes news requests to the right provider by region. Provider
// failures degrade to an empty list so the news feed never takes the API
// down.
type Service struct {
	newsapi   Provider
	marketaux Provider
	cfg       config.NewsConfig
	log       *logging.Logger
}

// NewService wires the region routing. Either provider may be unconfigured;
// requests routed to it return no items.
func NewService(newsapi, marketaux Provider, cfg config.NewsConfig) *Service {
	return &Service{
		newsapi:   newsapi,
		marketaux: marketaux,
		cfg:       cfg,
		log:       logging.Global().WithComponent("news"),
	}
}

// MarketNews fetches up to limit items for a region, optionally filtered by
// ticker. INDIA routes to NewsAPI, US and GLOBAL to MarketAux. A limit of
// zero selects the configured default.
func (s *Service) MarketNews(ctx context.Context, region Region, ticker string, limit int) []Item {
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if s.cfg.MaxLimit > 0 && limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}

	provider := s.marketaux
	if region == RegionIndia {
		provider = s.newsapi
	}

	if provider == nil || !provider.Available() {
		s.log.Warn("news provider for region %s not configured", region)
		return []Item{}
	}

	items, err := provider.Fetch(ctx, FetchRequest{Region: region, Ticker: ticker, Limit: limit})
	if err != nil {
		s.log.Error("error fetching from %s: %v", provider.Name(), err)
		return []Item{}
	}
	if items == nil {
		items = []Item{}
	}
	return items
}
