// Package news fetches market headlines from external providers and
// normalizes them into a single item shape.
package news

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Region filters market news by geography.
type Region string

const (
	RegionUS     Region = "US"
	RegionIndia  Region = "INDIA"
	RegionGlobal Region = "GLOBAL"
)

// ParseRegion validates a region string, case-insensitively.
func ParseRegion(s string) (Region, error) {
	switch Region(strings.ToUpper(strings.TrimSpace(s))) {
	case RegionUS:
		return RegionUS, nil
	case RegionIndia:
		return RegionIndia, nil
	case RegionGlobal, "":
		return RegionGlobal, nil
	default:
		return "", fmt.Errorf("unknown region %q (want US, INDIA or GLOBAL)", s)
	}
}

// Item is a single normalized news article.
type Item struct {
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	URL           string    `json:"url"`
	Source        string    `json:"source"`
	PublishedDate time.Time `json:"published_date"`
	Tickers       []string  `json:"tickers,omitempty"`
	Sentiment     string    `json:"sentiment,omitempty"`
}

// FetchRequest carries the provider-level query.
type FetchRequest struct {
	Region Region
	Ticker string
	Limit  int
}

// Provider fetches news items from an upstream API.
type Provider interface {
	Fetch(ctx context.Context, req FetchRequest) ([]Item, error)
	Name() string
	Available() bool
}
