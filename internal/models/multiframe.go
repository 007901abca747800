package models

// EntrySetupType classifies a recommended entry setup.
type EntrySetupType string

const (
	EntryPullback EntrySetupType = "pullback"
	EntryBreakout EntrySetupType = "breakout"
)

// EntryRecommendation is a candidate entry zone proposed by the
// multi-timeframe analyzer. Confirmed means an intraday timeframe agrees
// with the setup.
type EntryRecommendation struct {
	Type      EntrySetupType `json:"type"`
	Timeframe Interval       `json:"timeframe"`
	ZoneLow   float64        `json:"zone_low"`
	ZoneHigh  float64        `json:"zone_high"`
	Confirmed bool           `json:"confirmed"`
}

// TimeframeTrend is one analyzed timeframe's directional reading.
type TimeframeTrend struct {
	Timeframe Interval  `json:"timeframe"`
	Trend     TrendBias `json:"trend"`
	Momentum  TrendBias `json:"momentum"`
}

// MultiTimeframeAnalysis is the optional enrichment consumed by the signal
// builder. Absence degrades gracefully to same-timeframe logic.
type MultiTimeframeAnalysis struct {
	Symbol               string                `json:"symbol"`
	Timeframes           []TimeframeTrend      `json:"timeframes"`
	TrendAligned         bool                  `json:"trend_aligned"`
	AlignedDirection     TrendBias             `json:"aligned_direction"`
	MomentumAligned      bool                  `json:"momentum_aligned"`
	SupportLevels        []float64             `json:"support_levels"`
	ResistanceLevels     []float64             `json:"resistance_levels"`
	EntryRecommendations []EntryRecommendation `json:"entry_recommendations"`
	Score                float64               `json:"score"`
}

// BullishCount returns how many analyzed timeframes read bullish.
func (m *MultiTimeframeAnalysis) BullishCount() int {
	n := 0
	for _, tf := range m.Timeframes {
		if tf.Trend == BiasBullish {
			n++
		}
	}
	return n
}

// BearishCount returns how many analyzed timeframes read bearish.
func (m *MultiTimeframeAnalysis) BearishCount() int {
	n := 0
	for _, tf := range m.Timeframes {
		if tf.Trend == BiasBearish {
			n++
		}
	}
	return n
}

// NearestSupportBelow returns the highest support level strictly below the
// given price, if any.
func (m *MultiTimeframeAnalysis) NearestSupportBelow(price float64) (float64, bool) {
	best, found := 0.0, false
	for _, s := range m.SupportLevels {
		if s < price && (!found || s > best) {
			best, found = s, true
		}
	}
	return best, found
}

// NearestResistanceAbove returns the lowest resistance level strictly above
// the given price, if any.
func (m *MultiTimeframeAnalysis) NearestResistanceAbove(price float64) (float64, bool) {
	best, found := 0.0, false
	for _, r := range m.ResistanceLevels {
		if r > price && (!found || r < best) {
			best, found = r, true
		}
	}
	return best, found
}
