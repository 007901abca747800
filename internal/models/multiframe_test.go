package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntrySetupType_DistinctFromLedgerEntryType(t *testing.T) {
	// Setup kinds and ledger entry sides are separate vocabularies; each
	// keeps its own type so one cannot be assigned where the other belongs.
	rec := EntryRecommendation{Type: EntryPullback, Timeframe: Interval15Min}
	entry := LedgerEntry{Type: EntryDebit, Reason: ReasonReserve}

	assert.Equal(t, EntrySetupType("pullback"), rec.Type)
	assert.Equal(t, EntryType("debit"), entry.Type)

	payload, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"type":"pullback"`)
}

func TestMultiTimeframeAnalysis_TrendCounts(t *testing.T) {
	analysis := &MultiTimeframeAnalysis{
		Timeframes: []TimeframeTrend{
			{Timeframe: Interval15Min, Trend: BiasBullish},
			{Timeframe: Interval1Hour, Trend: BiasBullish},
			{Timeframe: IntervalDay, Trend: BiasBearish},
			{Timeframe: IntervalWeek, Trend: BiasNeutral},
		},
	}

	assert.Equal(t, 2, analysis.BullishCount())
	assert.Equal(t, 1, analysis.BearishCount())
}

func TestMultiTimeframeAnalysis_NearestLevels(t *testing.T) {
	analysis := &MultiTimeframeAnalysis{
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
