package services

import (
	"context"
	"fmt"
	"time"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/cinar/indicator/v2/volatility"
	"github.com/cinar/indicator/v2/volume"
	"github.com/sirupsen/logrus"

	"github.com/trademantra/swingtrader-go/internal/models"
)

// IndicatorReading is one indicator's latest value and vote for the market
// overview.
type IndicatorReading struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Signal string  `json:"signal"` // "buy", "sell", "hold"
}

// MarketOverview is the dashboard-facing snapshot of a symbol's daily
// technicals. It is informational; the signal builder runs its own math.
type MarketOverview struct {
	Symbol        string             `json:"symbol"`
	LastClose     float64            `json:"last_close"`
	Indicators    []IndicatorReading `json:"indicators"`
	OverallSignal string             `json:"overall_signal"`
	Confidence    float64            `json:"confidence"`
	CalculatedAt  time.Time          `json:"calculated_at"`
}

// MarketAnalysisService computes the overview with the indicator library's
// streaming primitives over the full daily series. Only the final value of
// each stream is reported.
type MarketAnalysisService struct {
	candles CandleSource
	logger  *logrus.Logger
}

func NewMarketAnalysisService(candles CandleSource, logger *logrus.Logger) *MarketAnalysisService {
	return &MarketAnalysisService{candles: candles, logger: logger}
}

func (s *MarketAnalysisService) AnalyzeSymbol(ctx context.Context, symbol string) (*MarketOverview, error) {
	series, err := s.candles.LoadSeries(ctx, symbol, models.IntervalDay, 300)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily series for %s: %w", symbol, err)
	}
	if series == nil || series.Len() < 60 {
		return nil, fmt.Errorf("insufficient history for %s", symbol)
	}

	n := series.Len()
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	volumes := make([]float64, n)
	for i, c := range series.Candles {
		closes[i], highs[i], lows[i], volumes[i] = c.Close, c.High, c.Low, c.Volume
	}
	lastClose := closes[n-1]

	overview := &MarketOverview{
		Symbol:       symbol,
		LastClose:    lastClose,
		CalculatedAt: time.Now(),
	}

	if v, ok := lastOf(helper.ChanToSlice(trend.NewSmaWithPeriod[float64](20).Compute(helper.SliceToChan(closes)))); ok {
		overview.Indicators = append(overview.Indicators, IndicatorReading{
			Name: "sma_20", Value: v, Signal: voteAbove(lastClose, v),
		})
	}
	if v, ok := lastOf(helper.ChanToSlice(trend.NewSmaWithPeriod[float64](50).Compute(helper.SliceToChan(closes)))); ok {
		overview.Indicators = append(overview.Indicators, IndicatorReading{
			Name: "sma_50", Value: v, Signal: voteAbove(lastClose, v),
		})
	}
	if v, ok := lastOf(helper.ChanToSlice(trend.NewEmaWithPeriod[float64](20).Compute(helper.SliceToChan(closes)))); ok {
		overview.Indicators = append(overview.Indicators, IndicatorReading{
			Name: "ema_20", Value: v, Signal: voteAbove(lastClose, v),
		})
	}

	if v, ok := lastOf(helper.ChanToSlice(momentum.NewRsiWithPeriod[float64](14).Compute(helper.SliceToChan(closes)))); ok {
		sig := "hold"
		if v < 30 {
			sig = "buy"
		} else if v > 70 {
			sig = "sell"
		}
		overview.Indicators = append(overview.Indicators, IndicatorReading{Name: "rsi_14", Value: v, Signal: sig})
	}

	macdLine, signalLine := trend.NewMacdWithPeriod[float64](12, 26, 9).Compute(helper.SliceToChan(closes))
	// Both channels feed from one duplicated stream with a small buffer, so
	// they must be drained concurrently or the producer stalls.
	signalDone := make(chan []float64, 1)
	go func() { signalDone <- helper.ChanToSlice(signalLine) }()
	macdVals := helper.ChanToSlice(macdLine)
	signalVals := <-signalDone
	if m, ok1 := lastOf(macdVals); ok1 {
		if sg, ok2 := lastOf(signalVals); ok2 {
			sig := "hold"
			if m > sg {
				sig = "buy"
			} else if m < sg {
				sig = "sell"
			}
			overview.Indicators = append(overview.Indicators, IndicatorReading{Name: "macd", Value: m - sg, Signal: sig})
		}
	}

	atrVals := helper.ChanToSlice(volatility.NewAtr[float64]().Compute(
		helper.SliceToChan(highs), helper.SliceToChan(lows), helper.SliceToChan(closes)))
	if v, ok := lastOf(atrVals); ok {
		overview.Indicators = append(overview.Indicators, IndicatorReading{Name: "atr", Value: v, Signal: "hold"})
	}

	obvVals := helper.ChanToSlice(volume.NewObv[float64]().Compute(
		helper.SliceToChan(closes), helper.SliceToChan(volumes)))
	if len(obvVals) >= 2 {
		last, prev := obvVals[len(obvVals)-1], obvVals[len(obvVals)-2]
		sig := "hold"
		if last > prev {
			sig = "buy"
		} else if last < prev {
			sig = "sell"
		}
		overview.Indicators = append(overview.Indicators, IndicatorReading{Name: "obv", Value: last, Signal: sig})
	}

	overview.OverallSignal, overview.Confidence = s.aggregate(overview.Indicators)
	s.logger.WithFields(logrus.Fields{
		"symbol":     symbol,
		"signal":     overview.OverallSignal,
		"confidence": overview.Confidence,
	}).Debug("Market overview computed")
	return overview, nil
}

// aggregate counts votes; confidence is the share of the winning side among
// directional votes.
func (s *MarketAnalysisService) aggregate(readings []IndicatorReading) (string, float64) {
	buy, sell := 0, 0
	for _, r := range readings {
		switch r.Signal {
		case "buy":
			buy++
		case "sell":
			sell++
		}
	}
	total := buy + sell
	if total == 0 {
		return "hold", 0
	}
	switch {
	case buy > sell:
		return "buy", 100 * float64(buy) / float64(total)
	case sell > buy:
		return "sell", 100 * float64(sell) / float64(total)
	default:
		return "hold", 50
	}
}

func lastOf(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	return values[len(values)-1], true
}

func voteAbove(price, level float64) string {
	if price > level {
		return "buy"
	}
	if price < level {
		return "sell"
	}
	return "hold"
}
