package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trademantra/swingtrader-go/internal/models"
)

type mapCandleSource struct {
	series map[models.Interval]*models.CandleSeries
}

func (m *mapCandleSource) LoadSeries(ctx context.Context, symbol string, interval models.Interval, limit int) (*models.CandleSeries, error) {
	s, ok := m.series[interval]
	if !ok {
		return nil, fmt.Errorf("no %s data for %s", interval, symbol)
	}
	return s, nil
}

func TestAnalyze_FullyAlignedUptrend(t *testing.T) {
	src := &mapCandleSource{series: map[models.Interval]*models.CandleSeries{
		models.Interval15Min: trendSeries(t, models.Interval15Min, 150, 100, 0.2),
		models.Interval1Hour: trendSeries(t, models.Interval1Hour, 150, 100, 0.5),
		models.IntervalDay:   trendSeries(t, models.IntervalDay, 150, 100, 2),
		models.IntervalWeek:  trendSeries(t, models.IntervalWeek, 150, 100, 5),
	}}
	svc := NewMultiTimeframeService(src, strategyCfg(), testLogger())

	analysis, err := svc.Analyze(context.Background(), "INFY")
	require.NoError(t, err)

	assert.Len(t, analysis.Timeframes, 4)
	assert.True(t, analysis.TrendAligned)
	assert.Equal(t, models.BiasBullish, analysis.AlignedDirection)
	assert.True(t, analysis.MomentumAligned, "RSI sits above 50 on every timeframe")
	assert.Greater(t, analysis.Score, 75.0)

	assert.NotEmpty(t, analysis.SupportLevels)
	assert.NotEmpty(t, analysis.ResistanceLevels)
	require.NotEmpty(t, analysis.EntryRecommendations)

	var sawBreakout bool
	for _, rec := range analysis.EntryRecommendations {
		assert.LessOrEqual(t, rec.ZoneLow, rec.ZoneHigh)
		if rec.Type == models.EntryBreakout {
			sawBreakout = true
		}
	}
	assert.True(t, sawBreakout, "an aligned trend proposes a breakout zone")
}

func TestAnalyze_OpposingTimeframeBreaksAlignment(t *testing.T) {
	src := &mapCandleSource{series: map[models.Interval]*models.CandleSeries{
		models.IntervalDay:  trendSeries(t, models.IntervalDay, 150, 100, 2),
		models.IntervalWeek: trendSeries(t, models.IntervalWeek, 150, 800, -2),
	}}
	svc := NewMultiTimeframeService(src, strategyCfg(), testLogger())

	analysis, err := svc.Analyze(context.Background(), "INFY")
	require.NoError(t, err)

	assert.False(t, analysis.TrendAligned, "one opposing timeframe is enough to break alignment")
	assert.Equal(t, models.BiasNeutral, analysis.AlignedDirection)
	assert.False(t, analysis.MomentumAligned)
	assert.Empty(t, analysis.EntryRecommendations)
}

func TestAnalyze_MissingTimeframesDegradeGracefully(t *testing.T) {
	src := &mapCandleSource{series: map[models.Interval]*models.CandleSeries{
		models.IntervalDay: trendSeries(t, models.IntervalDay, 150, 100, 2),
	}}
	svc := NewMultiTimeframeService(src, strategyCfg(), testLogger())

	analysis, err := svc.Analyze(context.Background(), "INFY")
	require.NoError(t, err)

	assert.Len(t, analysis.Timeframes, 1)
	assert.True(t, analysis.TrendAligned, "a single bullish timeframe has nothing opposing it")
	assert.Greater(t, analysis.Score, 0.0)
	assert.Less(t, analysis.Score, 100.0, "breadth weighting penalizes the missing timeframes")
}

func TestAnalyze_NoDataAtAllFails(t *testing.T) {
	svc := NewMultiTimeframeService(&mapCandleSource{series: map[models.Interval]*models.CandleSeries{}}, strategyCfg(), testLogger())

	_, err := svc.Analyze(context.Background(), "INFY")
	assert.Error(t, err)
}

func TestNearestLevels(t *testing.T) {
	analysis := &models.MultiTimeframeAnalysis{
		SupportLevels:    []float64{90, 95, 110},
		ResistanceLevels: []float64{105, 120, 98},
	}

	support, ok := analysis.NearestSupportBelow(100)
	require.True(t, ok)
	assert.Equal(t, 95.0, support)

	resistance, ok := analysis.NearestResistanceAbove(100)
	require.True(t, ok)
	assert.Equal(t, 105.0, resistance)

	_, ok = analysis.NearestSupportBelow(80)
	assert.False(t, ok)
}
