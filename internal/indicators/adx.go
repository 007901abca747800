package indicators

import (
	"github.com/trademantra/swingtrader-go/internal/models"
)

// ADX measures trend strength; direction comes from the DI lines. Readings
// below 20 mean no meaningful trend and yield no result.
type ADX struct {
	series *models.CandleSeries
	period int
}

func NewADX(series *models.CandleSeries, period int) *ADX {
	if period <= 0 {
		period = 14
	}
	return &ADX{series: series, period: period}
}

func (a *ADX) Name() string { return "adx" }

func (a *ADX) MinRequiredCandles() int { return 2*a.period + 1 }

func (a *ADX) Ready(index int) bool { return index >= a.MinRequiredCandles() }

func (a *ADX) Compute(index int) (*models.IndicatorResult, bool) {
	if !a.Ready(index) {
		return nil, false
	}
	adx, plusDI, minusDI, ok := a.series.ADX(a.period, index)
	if !ok {
		return nil, false
	}
	if adx < 20 {
		return nil, false
	}
	direction := models.BiasNeutral
	if plusDI > minusDI {
		direction = models.BiasBullish
	} else if minusDI > plusDI {
		direction = models.BiasBearish
	}
	// Strength tiers follow the conventional 20/25/40 bands.
	confidence := 50.0
	switch {
	case adx > 40:
		confidence = 90
	case adx > 25:
		confidence = 70
	}
	return &models.IndicatorResult{
		Value: adx,
		Lines: map[string]float64{
			"plus_di":  plusDI,
			"minus_di": minusDI,
		},
		Direction:  direction,
		Confidence: confidence,
	}, true
}
