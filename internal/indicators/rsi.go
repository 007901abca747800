package indicators

import (
	"github.com/trademantra/swingtrader-go/internal/models"
)

// RSI is the Wilder relative strength index. Readings inside the neutral
// 40-60 band are not actionable and yield no result.
type RSI struct {
	series *models.CandleSeries
	period int
}

func NewRSI(series *models.CandleSeries, period int) *RSI {
	if period <= 0 {
		period = 14
	}
	return &RSI{series: series, period: period}
}

func (r *RSI) Name() string { return "rsi" }

func (r *RSI) MinRequiredCandles() int { return r.period + 1 }

func (r *RSI) Ready(index int) bool { return index >= r.MinRequiredCandles() }

func (r *RSI) Compute(index int) (*models.IndicatorResult, bool) {
	if !r.Ready(index) {
		return nil, false
	}
	value, ok := r.series.RSI(r.period, index)
	if !ok {
		return nil, false
	}
	// Neutral band: nothing to act on.
	if value > 40 && value < 60 {
		return nil, false
	}
	result := &models.IndicatorResult{Value: value}
	if value <= 40 {
		result.Direction = models.BiasBullish
		result.Confidence = clampConfidence((50 - value) * 2.5)
	} else {
		result.Direction = models.BiasBearish
		result.Confidence = clampConfidence((value - 50) * 2.5)
	}
	return result, true
}
