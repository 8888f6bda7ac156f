// Package indicators derives trend statistics from ticker price history
// for the asset detail charts.
package indicators

import (
	"fmt"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/shopspring/decimal"

	"github.com/mercuryex/walletcore/internal/domain"
)

// Trend summarizes a pair's recent price action: the smoothed price level
// and the momentum reading at the latest sample.
type Trend struct {
	EMA decimal.Decimal
	RSI decimal.Decimal
}

// Trendline calculates the Exponential Moving Average over the price
// history for the given period.
func Trendline(history []domain.TickerPoint, period int) ([]decimal.Decimal, error) {
	if len(history) < period {
		return nil, fmt.Errorf("not enough price samples: need %d, got %d", period, len(history))
	}

	prices := historyToFloat64(history)

	ema := trend.NewEmaWithPeriod[float64](period)
	inputChan := helper.SliceToChan(prices)
	outputChan := ema.Compute(inputChan)
	emaFloat := helper.ChanToSlice(outputChan)

	return float64ToDecimals(emaFloat), nil
}

// Strength calculates the Relative Strength Index over the price history
// for the given period.
func Strength(history []domain.TickerPoint, period int) ([]decimal.Decimal, error) {
	if len(history) < period+1 {
		return nil, fmt.Errorf("not enough price samples for RSI: need %d, got %d", period+1, len(history))
	}

	prices := historyToFloat64(history)

	rsi := momentum.NewRsiWithPeriod[float64](period)
	inputChan := helper.SliceToChan(prices)
	outputChan := rsi.Compute(inputChan)
	rsiFloat := helper.ChanToSlice(outputChan)

	return float64ToDecimals(rsiFloat), nil
}

// Latest computes the most recent Trend reading from the price history.
func Latest(history []domain.TickerPoint, period int) (Trend, error) {
	emaSeries, err := Trendline(history, period)
	if err != nil {
		return Trend{}, err
	}
	rsiSeries, err := Strength(history, period)
	if err != nil {
		return Trend{}, err
	}
	if len(emaSeries) == 0 || len(rsiSeries) == 0 {
		return Trend{}, fmt.Errorf("indicator warmup consumed all %d samples", len(history))
	}
	return Trend{
		EMA: emaSeries[len(emaSeries)-1],
		RSI: rsiSeries[len(rsiSeries)-1],
	}, nil
}

// historyToFloat64 extracts prices as []float64.
func historyToFloat64(history []domain.TickerPoint) []float64 {
	result := make([]float64, len(history))
	for i, p := range history {
		result[i], _ = p.Price.Float64()
	}
	return result
}

// float64ToDecimals converts a slice of float64 to []decimal.Decimal.
func float64ToDecimals(floats []float64) []decimal.Decimal {
	result := make([]decimal.Decimal, len(floats))
	for i, f := range floats {
		result[i] = decimal.NewFromFloat(f)
	}
	return result
}
