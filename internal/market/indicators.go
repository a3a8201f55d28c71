package market

import "math"

// RSI computes the Relative Strength Index over the last period deltas of a
// close series using simple averages. Returns 50 when the series is too
// short to compute.
func RSI(closes []float64, period int) float64 {
	if len(closes) < period+1 {
		return 50
	}

	var gain, loss float64
	for i := len(closes) - period; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gain += delta
		} else {
			loss -= delta
		}
	}
	gain /= float64(period)
	loss /= float64(period)

	if loss == 0 {
		return 100
	}
	rs := gain / loss
	return 100 - 100/(1+rs)
}

// Volatility returns the sample standard deviation of daily percent returns,
// expressed in percent. Returns 0 when fewer than three closes are given.
func Volatility(closes []float64) float64 {
	returns := dailyReturns(closes)
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)

	return math.Sqrt(variance) * 100
}

// Beta measures a stock's sensitivity to benchmark moves as the covariance
// of their daily returns over the benchmark's variance. Returns 1.0 when
// there is not enough overlapping history.
func Beta(stockCloses, benchCloses []float64) float64 {
	stock := dailyReturns(stockCloses)
	bench := dailyReturns(benchCloses)

	n := len(stock)
	if len(bench) < n {
		n = len(bench)
	}
	if n < 2 {
		return 1.0
	}
	// Align on the most recent n returns.
	stock = stock[len(stock)-n:]
	bench = bench[len(bench)-n:]

	var meanStock, meanBench float64
	for i := 0; i < n; i++ {
		meanStock += stock[i]
		meanBench += bench[i]
	}
	meanStock /= float64(n)
	meanBench /= float64(n)

	var cov, varBench float64
	for i := 0; i < n; i++ {
		cov += (stock[i] - meanStock) * (bench[i] - meanBench)
		varBench += (bench[i] - meanBench) * (bench[i] - meanBench)
	}

	if varBench == 0 {
		return 1.0
	}
	return cov / varBench
}

func dailyReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, (closes[i]-closes[i-1])/closes[i-1])
	}
	return returns
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
