package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trademantra/swingtrader-go/internal/models"
)

func supertrendSeries(t *testing.T, n int) *models.CandleSeries {
	t.Helper()
	// Alternate quiet and wide bars so the volatility factors spread across
	// regimes instead of collapsing into one cluster.
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, n)
	price := 500.0
	for i := 0; i < n; i++ {
		spread := 2.0
		if i%7 == 0 {
			spread = 9.0
		}
		candles[i] = models.Candle{
			Timestamp: base.AddDate(0, 0, i),
			Open:      price,
			High:      price + spread,
			Low:       price - spread,
			Close:     price + spread/3,
			Volume:    10000,
		}
		price += 1.5
	}
	series, err := models.NewCandleSeries("HDFCBANK", models.IntervalDay, candles)
	require.NoError(t, err)
	return series
}

func TestSupertrend_BaseMultiplierBeforeTraining(t *testing.T) {
	st := NewSupertrend(supertrendSeries(t, 200), SupertrendConfig{
		ATRPeriod:      10,
		BaseMultiplier: 2.5,
		TrainingPeriod: 50,
	})

	for i := 0; i < 50; i++ {
		assert.Equal(t, 2.5, st.AdaptiveMultiplier(i), "index %d is inside the training window", i)
	}
}

func TestSupertrend_BaseMultiplierOutOfRange(t *testing.T) {
	st := NewSupertrend(supertrendSeries(t, 100), SupertrendConfig{BaseMultiplier: 3.0})

	assert.Equal(t, 3.0, st.AdaptiveMultiplier(-1))
	assert.Equal(t, 3.0, st.AdaptiveMultiplier(100))
	assert.Equal(t, 3.0, st.AdaptiveMultiplier(100000))
}

func TestSupertrend_AdaptiveMultiplierBounded(t *testing.T) {
	base := 2.5
	st := NewSupertrend(supertrendSeries(t, 300), SupertrendConfig{
		ATRPeriod:      10,
		BaseMultiplier: base,
		TrainingPeriod: 50,
	})

	for i := 60; i < 300; i++ {
		m := st.AdaptiveMultiplier(i)
		assert.GreaterOrEqual(t, m, base*0.75, "index %d", i)
		assert.LessOrEqual(t, m, base*1.25, "index %d", i)
	}
}

func TestSupertrend_RegimeUnknownBeforeTraining(t *testing.T) {
	st := NewSupertrend(supertrendSeries(t, 200), SupertrendConfig{TrainingPeriod: 50})

	assert.Equal(t, RegimeUnknown, st.VolatilityRegime(10))
	assert.Equal(t, RegimeUnknown, st.VolatilityRegime(-5))

	regime := st.VolatilityRegime(150)
	assert.Contains(t, []VolatilityRegime{RegimeLow, RegimeMedium, RegimeHigh}, regime)
}

func TestSupertrend_ShortSeriesNeverTrains(t *testing.T) {
	st := NewSupertrend(supertrendSeries(t, 30), SupertrendConfig{
		BaseMultiplier: 2.0,
		TrainingPeriod: 50,
	})

	for i := 0; i < 30; i++ {
		assert.Equal(t, 2.0, st.AdaptiveMultiplier(i))
	}
	assert.Equal(t, RegimeUnknown, st.VolatilityRegime(29))
}

func TestSupertrend_SkipsInvalidBars(t *testing.T) {
	series := supertrendSeries(t, 120)
	// Corrupt a bar the way a broken feed row arrives: zeroed prices.
	series.Candles[60].High = 0
	series.Candles[60].Low = 0
	series.Candles[60].Close = 0

	st := NewSupertrend(series, SupertrendConfig{ATRPeriod: 10, BaseMultiplier: 2.5, TrainingPeriod: 50})

	_, ok := st.Compute(60)
	assert.False(t, ok, "invalid bar yields no result")

	res, ok := st.Compute(61)
	require.True(t, ok, "the pass continues past the bad bar")
	assert.False(t, math.IsNaN(res.Value))
}

func TestSupertrend_UptrendReadsBullish(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, 80)
	price := 100.0
	for i := range candles {
		candles[i] = models.Candle{
			Timestamp: base.AddDate(0, 0, i),
			Open:      price, High: price + 2, Low: price - 1, Close: price + 1.5, Volume: 1000,
		}
		price += 2
	}
	series, err := models.NewCandleSeries("X", models.IntervalDay, candles)
	require.NoError(t, err)

	st := NewSupertrend(series, SupertrendConfig{ATRPeriod: 10, BaseMultiplier: 2.5})
	res, ok := st.Compute(79)
	require.True(t, ok)
	assert.Equal(t, models.BiasBullish, res.Direction)
	assert.Less(t, res.Value, candles[79].Close, "bullish line sits below price")
}
