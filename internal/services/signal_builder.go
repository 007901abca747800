package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/trademantra/swingtrader-go/internal/config"
	"github.com/trademantra/swingtrader-go/internal/indicators"
	"github.com/trademantra/swingtrader-go/internal/models"
)

const (
	signalSeriesLimit = 300
	swingLookback     = 20
)

// SignalBuilder fuses daily indicator state with the optional
// multi-timeframe enrichment into at most one trade signal. A nil signal
// with a nil error means "no actionable setup"; short history, disagreeing
// indicators and a failed risk-reward filter all land there. No partial
// signal is ever returned.
type SignalBuilder struct {
	candles  CandleSource
	analyzer TimeframeAnalyzer
	cfg      config.StrategyConfig
	logger   *logrus.Logger
}

func NewSignalBuilder(candles CandleSource, analyzer TimeframeAnalyzer, cfg config.StrategyConfig, logger *logrus.Logger) *SignalBuilder {
	return &SignalBuilder{candles: candles, analyzer: analyzer, cfg: cfg, logger: logger}
}

// Generate loads the instrument's daily series plus the optional
// multi-timeframe view and builds a signal. An analyzer failure degrades to
// same-timeframe logic, it never aborts generation.
func (b *SignalBuilder) Generate(ctx context.Context, symbol string) (*models.Signal, error) {
	daily, err := b.candles.LoadSeries(ctx, symbol, models.IntervalDay, signalSeriesLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily series for %s: %w", symbol, err)
	}

	var analysis *models.MultiTimeframeAnalysis
	if b.analyzer != nil {
		analysis, err = b.analyzer.Analyze(ctx, symbol)
		if err != nil {
			b.logger.WithError(err).WithField("symbol", symbol).Debug("Multi-timeframe analysis unavailable")
			analysis = nil
		}
	}
	return b.Build(daily, analysis, 1)
}

// Build runs the signal algorithm over an already-loaded daily series.
// lotSize > 1 rounds the computed quantity down to a lot multiple.
func (b *SignalBuilder) Build(daily *models.CandleSeries, analysis *models.MultiTimeframeAnalysis, lotSize int64) (*models.Signal, error) {
	if daily == nil || daily.Len() < b.minCandles() {
		return nil, nil
	}
	last := daily.Len() - 1

	st := indicators.NewSupertrend(daily, indicators.SupertrendConfig{
		ATRPeriod:      b.cfg.ATRPeriod,
		BaseMultiplier: b.cfg.SupertrendBaseMult,
		TrainingPeriod: b.cfg.SupertrendTraining,
	})

	direction, ok := b.direction(daily, st, analysis, last)
	if !ok {
		return nil, nil
	}

	atr := b.atrOrFallback(daily, last)
	entry := b.entryPrice(daily, analysis, direction, atr, last)
	if entry <= 0 {
		return nil, nil
	}

	stop := b.stopLoss(daily, analysis, direction, entry, atr, last)
	risk := math.Abs(entry - stop)
	if risk <= 0 {
		return nil, nil
	}

	target, ok := b.takeProfit(analysis, direction, entry, risk, atr)
	if !ok {
		return nil, nil
	}
	reward := math.Abs(target - entry)
	rr := reward / risk
	if rr < b.cfg.MinRiskReward {
		return nil, nil
	}

	qty := b.positionSize(risk, lotSize)
	if qty <= 0 {
		return nil, nil
	}

	sig := &models.Signal{
		ID:                  uuid.NewString(),
		Symbol:              daily.Symbol,
		Direction:           direction,
		EntryPrice:          entry,
		StopLoss:            stop,
		TakeProfit:          target,
		Quantity:            qty,
		RiskReward:          rr,
		Confidence:          b.confidence(daily, st, analysis, direction, last),
		HoldingDaysEstimate: b.holdingDays(entry, atr),
		Status:              models.SignalStatusGenerated,
		Metadata: map[string]interface{}{
			"atr":               atr,
			"volatility_regime": string(st.VolatilityRegime(last)),
		},
		CreatedAt: time.Now(),
	}
	if err := sig.Validate(); err != nil {
		b.logger.WithError(err).WithField("symbol", daily.Symbol).Warn("Discarding signal failing invariants")
		return nil, nil
	}

	b.logger.WithFields(logrus.Fields{
		"symbol":      sig.Symbol,
		"direction":   sig.Direction,
		"entry":       sig.EntryPrice,
		"stop":        sig.StopLoss,
		"target":      sig.TakeProfit,
		"risk_reward": sig.RiskReward,
		"confidence":  sig.Confidence,
	}).Info("Signal generated")
	return sig, nil
}

func (b *SignalBuilder) minCandles() int {
	if b.cfg.MinCandles > 0 {
		return b.cfg.MinCandles
	}
	return 50
}

// direction prefers aligned multi-timeframe trend; otherwise requires the
// daily Supertrend and the EMA20/EMA50 cross to agree.
func (b *SignalBuilder) direction(daily *models.CandleSeries, st *indicators.Supertrend, analysis *models.MultiTimeframeAnalysis, last int) (models.Direction, bool) {
	if analysis != nil && analysis.TrendAligned {
		if analysis.BullishCount() > analysis.BearishCount() {
			return models.DirectionLong, true
		}
		if analysis.BearishCount() > analysis.BullishCount() {
			return models.DirectionShort, true
		}
	}

	res, ok := st.Compute(last)
	if !ok {
		return "", false
	}
	ema20, ok20 := daily.EMA(20, last)
	ema50, ok50 := daily.EMA(50, last)
	if !ok20 || !ok50 {
		return "", false
	}
	if res.Direction == models.BiasBullish && ema20 > ema50 {
		return models.DirectionLong, true
	}
	if res.Direction == models.BiasBearish && ema20 < ema50 {
		return models.DirectionShort, true
	}
	return "", false
}

func (b *SignalBuilder) atrOrFallback(daily *models.CandleSeries, last int) float64 {
	if atr, ok := daily.ATR(b.cfg.ATRPeriod, last); ok && atr > 0 {
		return atr
	}
	// Documented fallback when ATR is unavailable: 2% of the latest close.
	return daily.LastClose() * 0.02
}

// entryPrice prefers a confirmed intraday entry recommendation, 15-minute
// first, then 1-hour. Pullback zones enter at the conservative edge, other
// setups at the zone midpoint. Without a usable recommendation the entry is
// the breakout level beyond the 20-bar extreme.
func (b *SignalBuilder) entryPrice(daily *models.CandleSeries, analysis *models.MultiTimeframeAnalysis, direction models.Direction, atr float64, last int) float64 {
	if analysis != nil && len(analysis.EntryRecommendations) > 0 {
		if rec, ok := preferredRecommendation(analysis.EntryRecommendations); ok {
			if rec.Type == models.EntryPullback {
				if direction == models.DirectionLong {
					return rec.ZoneLow
				}
				return rec.ZoneHigh
			}
			return (rec.ZoneLow + rec.ZoneHigh) / 2
		}
	}

	close := daily.LastClose()
	if direction == models.DirectionLong {
		high, ok := daily.HighestHigh(swingLookback, last)
		if !ok {
			high = close
		}
		return math.Max(high, close) + 0.1*atr
	}
	low, ok := daily.LowestLow(swingLookback, last)
	if !ok {
		low = close
	}
	return math.Min(low, close) - 0.1*atr
}

func preferredRecommendation(recs []models.EntryRecommendation) (models.EntryRecommendation, bool) {
	for _, interval := range []models.Interval{models.Interval15Min, models.Interval1Hour} {
		for _, rec := range recs {
			if rec.Confirmed && rec.Timeframe == interval {
				return rec, true
			}
		}
	}
	for _, rec := range recs {
		if rec.Confirmed {
			return rec, true
		}
	}
	return models.EntryRecommendation{}, false
}

// stopLoss picks the long stop as the minimum of the candidates (mirror max
// for short): 20-bar swing extreme, 2xATR from entry, the configured
// percentage band, and a nearby support/resistance level offset by 2%.
func (b *SignalBuilder) stopLoss(daily *models.CandleSeries, analysis *models.MultiTimeframeAnalysis, direction models.Direction, entry, atr float64, last int) float64 {
	if direction == models.DirectionLong {
		candidates := []float64{entry - 2*atr, entry * (1 - b.cfg.StopLossPct)}
		if low, ok := daily.LowestLow(swingLookback, last); ok && low < entry {
			candidates = append(candidates, low)
		}
		if analysis != nil {
			if support, ok := analysis.NearestSupportBelow(entry); ok {
				candidates = append(candidates, support*0.98)
			}
		}
		stop := candidates[0]
		for _, c := range candidates[1:] {
			if c < stop {
				stop = c
			}
		}
		return stop
	}

	candidates := []float64{entry + 2*atr, entry * (1 + b.cfg.StopLossPct)}
	if high, ok := daily.HighestHigh(swingLookback, last); ok && high > entry {
		candidates = append(candidates, high)
	}
	if analysis != nil {
		if resistance, ok := analysis.NearestResistanceAbove(entry); ok {
			candidates = append(candidates, resistance*1.02)
		}
	}
	stop := candidates[0]
	for _, c := range candidates[1:] {
		if c > stop {
			stop = c
		}
	}
	return stop
}

// takeProfit assembles the target candidates and keeps only those clearing
// the minimum risk-reward, then takes the nearest. No surviving candidate
// means no signal.
func (b *SignalBuilder) takeProfit(analysis *models.MultiTimeframeAnalysis, direction models.Direction, entry, risk, atr float64) (float64, bool) {
	minReward := risk * b.cfg.MinRiskReward

	if direction == models.DirectionLong {
		candidates := []float64{
			entry + risk*b.cfg.MinRiskReward*1.5,
			entry * (1 + b.cfg.ProfitTargetPct),
			entry + 3*atr,
		}
		if analysis != nil {
			if resistance, ok := analysis.NearestResistanceAbove(entry); ok {
				candidates = append(candidates, resistance)
			}
		}
		best, found := 0.0, false
		for _, c := range candidates {
			if c-entry < minReward {
				continue
			}
			if !found || c < best {
				best, found = c, true
			}
		}
		return best, found
	}

	candidates := []float64{
		entry - risk*b.cfg.MinRiskReward*1.5,
		entry * (1 - b.cfg.ProfitTargetPct),
		entry - 3*atr,
	}
	if analysis != nil {
		if support, ok := analysis.NearestSupportBelow(entry); ok {
			candidates = append(candidates, support)
		}
	}
	best, found := 0.0, false
	for _, c := range candidates {
		if c <= 0 || entry-c < minReward {
			continue
		}
		if !found || c > best {
			best, found = c, true
		}
	}
	return best, found
}

// positionSize risks a fixed fraction of the account per trade, rounded down
// to the lot size and floored at one lot.
func (b *SignalBuilder) positionSize(riskPerShare float64, lotSize int64) int64 {
	if riskPerShare <= 0 {
		return 0
	}
	riskAmount := b.cfg.AccountSize * b.cfg.RiskPerTradePct
	qty := int64(math.Floor(riskAmount / riskPerShare))
	if lotSize > 1 {
		qty = (qty / lotSize) * lotSize
		if qty < lotSize {
			qty = lotSize
		}
	}
	if qty < 1 {
		qty = 1
	}
	return qty
}

// confidence weights same-timeframe agreement up to 60 points and the
// multi-timeframe view up to 40.
func (b *SignalBuilder) confidence(daily *models.CandleSeries, st *indicators.Supertrend, analysis *models.MultiTimeframeAnalysis, direction models.Direction, last int) float64 {
	score := 0.0
	wantBias := models.BiasBullish
	if direction == models.DirectionShort {
		wantBias = models.BiasBearish
	}

	if ema20, ok20 := daily.EMA(20, last); ok20 {
		if ema50, ok50 := daily.EMA(50, last); ok50 {
			if (direction == models.DirectionLong && ema20 > ema50) ||
				(direction == models.DirectionShort && ema20 < ema50) {
				score += 20
			}
		}
	}
	if res, ok := st.Compute(last); ok && res.Direction == wantBias {
		score += 20
	}
	if adx, _, _, ok := daily.ADX(14, last); ok {
		switch {
		case adx >= 40:
			score += 20
		case adx >= 25:
			score += 15
		case adx >= 20:
			score += 10
		}
	}

	if analysis != nil {
		if analysis.TrendAligned && analysis.AlignedDirection == wantBias {
			score += 20
		}
		if analysis.MomentumAligned {
			score += 10
		}
		score += math.Min(10, analysis.Score/10)
	}

	if score > 100 {
		score = 100
	}
	return score
}

// holdingDays estimates the swing duration from daily volatility: the
// percentage distance to target divided by 1.5x the daily ATR percentage,
// clamped to 5-20 trading days.
func (b *SignalBuilder) holdingDays(entry, atr float64) int {
	if entry <= 0 || atr <= 0 {
		return 20
	}
	atrPct := atr / entry
	days := int(math.Ceil(b.cfg.ProfitTargetPct / (atrPct * 1.5)))
	if days < 5 {
		days = 5
	}
	if days > 20 {
		days = 20
	}
	return days
}
