package market

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/finagent-pro/finagent/internal/config"
	"github.com/finagent-pro/finagent/internal/logging"
)

const rsiPeriod = 14

// TrendingTicker is one entry in the gainers/losers lists.
type TrendingTicker struct {
	Ticker        string  `json:"ticker"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"change_percent"`
}

// StockDetails describes the latest session for the looked-up ticker.
type StockDetails struct {
	Ticker        string  `json:"ticker"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Open          float64 `json:"open"`
	PreviousClose float64 `json:"previous_close"`
	DayHigh       float64 `json:"day_high"`
	DayLow        float64 `json:"day_low"`
	Volume        int64   `json:"volume"`
}

// RiskAnalysis scores a ticker from its technicals. Each triggered signal
// adds two points.
type RiskAnalysis struct {
	Score      int      `json:"score"`
	Level      string   `json:"level"`
	Reasons    []string `json:"reasons"`
	RSI        float64  `json:"rsi"`
	Volatility float64  `json:"volatility"`
	Beta       float64  `json:"beta"`
}

// Snapshot is the full dashboard payload for one ticker.
type Snapshot struct {
	Indices     map[string]float64 `json:"indices"`
	Gainers     []TrendingTicker   `json:"gainers"`
	Losers      []TrendingTicker   `json:"losers"`
	Stock       StockDetails       `json:"stock_lookup"`
	Risk        RiskAnalysis       `json:"risk_score"`
	VolumeAlert bool               `json:"volume_alert"`
}

// Dashboard aggregates index performance, trending movers and per-ticker
// risk analysis from a quote source.
type Dashboard struct {
	source QuoteSource
	cfg    config.MarketConfig
	log    *logging.Logger
}

// NewDashboard creates a dashboard service over the given quote source.
func NewDashboard(source QuoteSource, cfg config.MarketConfig) *Dashboard {
	return &Dashboard{
		source: source,
		cfg:    cfg,
		log:    logging.Global().WithComponent("market"),
	}
}

// Snapshot builds the dashboard for a ticker. Index or trending symbols that
// fail to fetch are logged and skipped; an unknown lookup ticker returns
// ErrSymbolNotFound.
func (d *Dashboard) Snapshot(ctx context.Context, ticker string) (*Snapshot, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("ticker: %w", ErrSymbolNotFound)
	}

	snap := &Snapshot{
		Indices: d.indexChanges(ctx),
	}

	trending := d.trending(ctx)
	snap.Gainers, snap.Losers = rank(trending)

	if err := d.lookup(ctx, ticker, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// indexChanges returns last-close vs previous-close percent change for each
// configured index.
func (d *Dashboard) indexChanges(ctx context.Context) map[string]float64 {
	out := make(map[string]float64, len(d.cfg.Indices))
	for name, symbol := range d.cfg.Indices {
		bars, err := d.source.History(ctx, symbol, "5d")
		if err != nil {
			d.log.Warn("failed to fetch index %s (%s): %v", name, symbol, err)
			continue
		}
		if len(bars) < 2 {
			continue
		}
		prev := bars[len(bars)-2].Close
		last := bars[len(bars)-1].Close
		out[name] = round2((last - prev) / prev * 100)
	}
	return out
}

func (d *Dashboard) trending(ctx context.Context) []TrendingTicker {
	out := make([]TrendingTicker, 0, len(d.cfg.Trending))
	for _, symbol := range d.cfg.Trending {
		bars, err := d.source.History(ctx, symbol, "5d")
		if err != nil {
			d.log.Warn("failed to fetch trending ticker %s: %v", symbol, err)
			continue
		}
		if len(bars) < 2 {
			continue
		}
		prev := bars[len(bars)-2].Close
		last := bars[len(bars)-1].Close
		out = append(out, TrendingTicker{
			Ticker:        symbol,
			Price:         round2(last),
			ChangePercent: round2((last - prev) / prev * 100),
		})
	}
	return out
}

// rank returns the top three gainers and losers by percent change.
func rank(trending []TrendingTicker) (gainers, losers []TrendingTicker) {
	gainers = make([]TrendingTicker, len(trending))
	copy(gainers, trending)
	sort.SliceStable(gainers, func(i, j int) bool {
		return gainers[i].ChangePercent > gainers[j].ChangePercent
	})

	losers = make([]TrendingTicker, len(trending))
	copy(losers, trending)
	sort.SliceStable(losers, func(i, j int) bool {
		return losers[i].ChangePercent < losers[j].ChangePercent
	})

	if len(gainers) > 3 {
		gainers = gainers[:3]
	}
	if len(losers) > 3 {
		losers = losers[:3]
	}
	return gainers, losers
}

func (d *Dashboard) lookup(ctx context.Context, ticker string, snap *Snapshot) error {
	bars, err := d.source.History(ctx, ticker, "6mo")
	if err != nil {
		return err
	}
	if len(bars) < 2 {
		return fmt.Errorf("%s: %w", ticker, ErrSymbolNotFound)
	}

	latest := bars[len(bars)-1]
	prev := bars[len(bars)-2]

	change := latest.Close - prev.Close
	snap.Stock = StockDetails{
		Ticker:        ticker,
		Price:         round2(latest.Close),
		Change:        round2(change),
		ChangePercent: round2(change / prev.Close * 100),
		Open:          round2(latest.Open),
		PreviousClose: round2(prev.Close),
		DayHigh:       round2(latest.High),
		DayLow:        round2(latest.Low),
		Volume:        latest.Volume,
	}

	closes := make([]float64, len(bars))
	var totalVolume int64
	for i, b := range bars {
		closes[i] = b.Close
		totalVolume += b.Volume
	}

	benchCloses := d.benchmarkCloses(ctx)
	snap.Risk = assessRisk(closes, benchCloses)

	avgVolume := float64(totalVolume) / float64(len(bars))
	snap.VolumeAlert = float64(latest.Volume) > 1.5*avgVolume
	return nil
}

func (d *Dashboard) benchmarkCloses(ctx context.Context) []float64 {
	bars, err := d.source.History(ctx, d.cfg.Benchmark, "6mo")
	if err != nil {
		d.log.Warn("failed to fetch benchmark %s: %v", d.cfg.Benchmark, err)
		return nil
	}
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

// assessRisk scores the ticker from RSI, beta and volatility signals.
func assessRisk(closes, benchCloses []float64) RiskAnalysis {
	rsi := RSI(closes, rsiPeriod)
	volatility := Volatility(closes)
	beta := Beta(closes, benchCloses)

	score := 0
	reasons := []string{}

	switch {
	case rsi > 70:
		score += 2
		reasons = append(reasons, "RSI indicates overbought (>70)")
	case rsi < 30:
		score += 2
		reasons = append(reasons, "RSI indicates oversold (<30)")
	}

	if beta > 1.5 {
		score += 2
		reasons = append(reasons, "High beta (>1.5), volatile vs market")
	}

	if volatility > 3 {
		score += 2
		reasons = append(reasons, "High daily volatility (>3%)")
	}

	level := "low"
	if score > 4 {
		level = "high"
	} else if score > 2 {
		level = "moderate"
	}

	return RiskAnalysis{
		Score:      score,
		Level:      level,
		Reasons:    reasons,
		RSI:        round2(rsi),
		Volatility: round2(volatility),
		Beta:       round2(beta),
	}
}
