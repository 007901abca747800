package indicators

import (
	"math"

	"github.com/trademantra/swingtrader-go/internal/models"
)

// MACD reads trend direction from the MACD line versus its signal line.
type MACD struct {
	series       *models.CandleSeries
	fast         int
	slow         int
	signalPeriod int
}

func NewMACD(series *models.CandleSeries, fast, slow, signalPeriod int) *MACD {
	if fast <= 0 || slow <= fast || signalPeriod <= 0 {
		fast, slow, signalPeriod = 12, 26, 9
	}
	return &MACD{series: series, fast: fast, slow: slow, signalPeriod: signalPeriod}
}

func (m *MACD) Name() string { return "macd" }

func (m *MACD) MinRequiredCandles() int { return m.slow + m.signalPeriod }

func (m *MACD) Ready(index int) bool { return index >= m.MinRequiredCandles() }

func (m *MACD) Compute(index int) (*models.IndicatorResult, bool) {
	if !m.Ready(index) {
		return nil, false
	}
	macd, signal, histogram, ok := m.series.MACD(m.fast, m.slow, m.signalPeriod, index)
	if !ok {
		return nil, false
	}
	close := m.series.Candles[index].Close
	if close <= 0 {
		return nil, false
	}
	direction := models.BiasBearish
	if macd > signal {
		direction = models.BiasBullish
	}
	// Histogram size relative to price drives confidence; a hair above the
	// signal line is not the same conviction as a wide separation.
	relHist := math.Abs(histogram) / close
	confidence := clampConfidence(relHist * 5000)
	return &models.IndicatorResult{
		Value: macd,
		Lines: map[string]float64{
			"signal":    signal,
			"histogram": histogram,
		},
		Direction:  direction,
		Confidence: confidence,
	}, true
}
