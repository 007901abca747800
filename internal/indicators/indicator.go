// Package indicators implements the technical indicator engine used by the
// signal builder. Every indicator is a read-only view over a candle series:
// Compute(index) uses candles [0..index] only, and "no result at this index"
// is an ordinary outcome, not an error.
package indicators

import (
	"fmt"

	"github.com/trademantra/swingtrader-go/internal/config"
	"github.com/trademantra/swingtrader-go/internal/models"
)

// Kind is the closed set of supported indicators. Configuring any other
// name fails at construction time instead of producing a silently skipped
// nil indicator.
type Kind string

const (
	KindRSI           Kind = "rsi"
	KindMACD          Kind = "macd"
	KindADX           Kind = "adx"
	KindSupertrend    Kind = "supertrend"
	KindTrendDuration Kind = "trend_duration"
)

// Indicator is the contract shared by all indicators.
type Indicator interface {
	Name() string
	MinRequiredCandles() int
	Ready(index int) bool
	Compute(index int) (*models.IndicatorResult, bool)
}

// New constructs the indicator of the given kind over the series. Expensive
// whole-series work (the Supertrend pass) happens here, once, so per-index
// lookups are cheap slices into precomputed arrays.
func New(kind Kind, series *models.CandleSeries, cfg config.StrategyConfig) (Indicator, error) {
	switch kind {
	case KindRSI:
		return NewRSI(series, 14), nil
	case KindMACD:
		return NewMACD(series, 12, 26, 9), nil
	case KindADX:
		return NewADX(series, 14), nil
	case KindSupertrend:
		return NewSupertrend(series, SupertrendConfig{
			ATRPeriod:      cfg.ATRPeriod,
			BaseMultiplier: cfg.SupertrendBaseMult,
			TrainingPeriod: cfg.SupertrendTraining,
		}), nil
	case KindTrendDuration:
		return NewTrendDuration(series, TrendDurationConfig{
			TrendLenThreshold: cfg.TrendLenThreshold,
			RunHistoryCap:     cfg.RunHistoryCap,
		}), nil
	default:
		return nil, fmt.Errorf("unknown indicator kind %q", kind)
	}
}

// AllKinds lists the supported indicator kinds in evaluation order.
func AllKinds() []Kind {
	return []Kind{KindRSI, KindMACD, KindADX, KindSupertrend, KindTrendDuration}
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
