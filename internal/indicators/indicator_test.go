package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trademantra/swingtrader-go/internal/config"
	"github.com/trademantra/swingtrader-go/internal/models"
)

func testSeries(t *testing.T, candles []models.Candle) *models.CandleSeries {
	t.Helper()
	series, err := models.NewCandleSeries("TEST", models.IntervalDay, candles)
	require.NoError(t, err)
	return series
}

func trendingCandles(n int, start, step float64) []models.Candle {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, n)
	price := start
	for i := 0; i < n; i++ {
		out[i] = models.Candle{
			Timestamp: base.AddDate(0, 0, i),
			Open:      price - step/2,
			High:      price + step,
			Low:       price - step,
			Close:     price,
			Volume:    5000,
		}
		price += step
	}
	return out
}

// acceleratingCandles builds a ramp whose daily step keeps growing. A
// constant-slope ramp makes the MACD and signal lines converge on each
// other; separating them takes curvature.
func acceleratingCandles(n int, start float64) []models.Candle {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, n)
	price := start
	for i := 0; i < n; i++ {
		step := 0.5 + 0.05*float64(i)
		out[i] = models.Candle{
			Timestamp: base.AddDate(0, 0, i),
			Open:      price - step/2,
			High:      price + step,
			Low:       price - step,
			Close:     price,
			Volume:    5000,
		}
		price += step
	}
	return out
}

func TestNew_KnownKinds(t *testing.T) {
	series := testSeries(t, trendingCandles(120, 100, 1))
	cfg := config.StrategyConfig{ATRPeriod: 10, SupertrendBaseMult: 2.5, SupertrendTraining: 50}

	for _, kind := range AllKinds() {
		ind, err := New(kind, series, cfg)
		require.NoError(t, err, "kind %s", kind)
		assert.NotEmpty(t, ind.Name())
		assert.Greater(t, ind.MinRequiredCandles(), 0)
	}
}

func TestNew_UnknownKindFailsConstruction(t *testing.T) {
	series := testSeries(t, trendingCandles(60, 100, 1))
	_, err := New(Kind("bollinger"), series, config.StrategyConfig{})
	assert.Error(t, err)
}

func TestRSI_NeutralBandIsAbsent(t *testing.T) {
	// Alternating up/down closes keep RSI near 50.
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, 40)
	for i := range candles {
		price := 100.0
		if i%2 == 0 {
			price = 101
		}
		candles[i] = models.Candle{
			Timestamp: base.AddDate(0, 0, i),
			Open:      price, High: price + 1, Low: price - 1, Close: price, Volume: 1000,
		}
	}
	rsi := NewRSI(testSeries(t, candles), 14)

	_, ok := rsi.Compute(39)
	assert.False(t, ok, "neutral RSI must yield no result")
}

func TestRSI_StrongTrendReadsDirectional(t *testing.T) {
	rsi := NewRSI(testSeries(t, trendingCandles(40, 100, 2)), 14)

	res, ok := rsi.Compute(39)
	require.True(t, ok)
	assert.Equal(t, models.BiasBearish, res.Direction) // overbought after a straight run
	assert.Greater(t, res.Value, 60.0)
	assert.GreaterOrEqual(t, res.Confidence, 0.0)
	assert.LessOrEqual(t, res.Confidence, 100.0)
}

func TestMACD_ReadyThreshold(t *testing.T) {
	series := testSeries(t, acceleratingCandles(60, 100))
	macd := NewMACD(series, 12, 26, 9)

	assert.False(t, macd.Ready(20))
	assert.True(t, macd.Ready(40))

	res, ok := macd.Compute(59)
	require.True(t, ok)
	assert.Equal(t, models.BiasBullish, res.Direction)
	assert.Greater(t, res.Value, res.Lines["signal"])
}

func TestADX_WeakTrendIsAbsent(t *testing.T) {
	// Flat closes produce no directional movement at all.
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, 60)
	for i := range candles {
		candles[i] = models.Candle{
			Timestamp: base.AddDate(0, 0, i),
			Open:      100, High: 100.5, Low: 99.5, Close: 100, Volume: 1000,
		}
	}
	adx := NewADX(testSeries(t, candles), 14)

	_, ok := adx.Compute(59)
	assert.False(t, ok)
}
