package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trademantra/swingtrader-go/internal/models"
)

func TestTrendDuration_NotReadyBeforeWarmup(t *testing.T) {
	td := NewTrendDuration(testSeries(t, trendingCandles(60, 100, 1)), TrendDurationConfig{HMAPeriod: 16})

	_, ok := td.Compute(td.MinRequiredCandles() - 1)
	assert.False(t, ok)
}

func TestTrendDuration_SteadyUptrendRunGrows(t *testing.T) {
	td := NewTrendDuration(testSeries(t, trendingCandles(80, 100, 1)), TrendDurationConfig{
		HMAPeriod:         16,
		TrendLenThreshold: 5,
	})

	early, ok := td.Compute(40)
	require.True(t, ok)
	late, ok := td.Compute(79)
	require.True(t, ok)

	assert.Equal(t, models.BiasBullish, early.Direction)
	assert.Equal(t, models.BiasBullish, late.Direction)
	assert.Greater(t, late.Value, early.Value, "the run keeps extending while the trend holds")
}

func TestTrendDuration_ReversalFlipsDirection(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, 100)
	price := 100.0
	for i := range candles {
		step := 1.5
		if i >= 50 {
			step = -1.5
		}
		candles[i] = models.Candle{
			Timestamp: base.AddDate(0, 0, i),
			Open:      price, High: price + 1, Low: price - 1, Close: price, Volume: 1000,
		}
		price += step
	}
	td := NewTrendDuration(testSeries(t, candles), TrendDurationConfig{HMAPeriod: 16})

	res, ok := td.Compute(99)
	require.True(t, ok)
	assert.Equal(t, models.BiasBearish, res.Direction)
	assert.GreaterOrEqual(t, res.Value, 1.0)
	assert.Contains(t, res.Lines, "expected_remaining")
	assert.Contains(t, res.Lines, "historical_avg_run")
	assert.GreaterOrEqual(t, res.Confidence, 0.0)
	assert.LessOrEqual(t, res.Confidence, 100.0)
}

func TestAppendBounded_EvictsOldest(t *testing.T) {
	var runs []int
	for i := 1; i <= 25; i++ {
		runs = appendBounded(runs, i, 20)
	}
	assert.Len(t, runs, 20)
	assert.Equal(t, 6, runs[0])
	assert.Equal(t, 25, runs[19])
}
