package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/trademantra/swingtrader-go/internal/config"
	"github.com/trademantra/swingtrader-go/internal/indicators"
	"github.com/trademantra/swingtrader-go/internal/models"
)

// candles loaded per timeframe for the multi-timeframe pass
const mtfSeriesLimit = 200

var analyzedTimeframes = []models.Interval{
	models.Interval15Min,
	models.Interval1Hour,
	models.IntervalDay,
	models.IntervalWeek,
}

// MultiTimeframeService reads the same instrument across intraday, daily and
// weekly series and fuses the per-timeframe readings into one enrichment
// structure. Missing timeframes degrade the analysis, never fail it; the
// service only errors when no timeframe could be analyzed at all.
type MultiTimeframeService struct {
	candles CandleSource
	cfg     config.StrategyConfig
	logger  *logrus.Logger
}

func NewMultiTimeframeService(candles CandleSource, cfg config.StrategyConfig, logger *logrus.Logger) *MultiTimeframeService {
	return &MultiTimeframeService{candles: candles, cfg: cfg, logger: logger}
}

func (s *MultiTimeframeService) Analyze(ctx context.Context, symbol string) (*models.MultiTimeframeAnalysis, error) {
	analysis := &models.MultiTimeframeAnalysis{Symbol: symbol}
	var daily *models.CandleSeries

	for _, interval := range analyzedTimeframes {
		series, err := s.candles.LoadSeries(ctx, symbol, interval, mtfSeriesLimit)
		if err != nil || series == nil || series.Len() == 0 {
			s.logger.WithFields(logrus.Fields{
				"symbol":   symbol,
				"interval": interval,
			}).Debug("Timeframe unavailable, skipping")
			continue
		}
		trend, momentum := s.readTimeframe(series)
		analysis.Timeframes = append(analysis.Timeframes, models.TimeframeTrend{
			Timeframe: interval,
			Trend:     trend,
			Momentum:  momentum,
		})
		if interval == models.IntervalDay {
			daily = series
		}
	}
	if len(analysis.Timeframes) == 0 {
		return nil, fmt.Errorf("no timeframe data available for %s", symbol)
	}

	bulls, bears := analysis.BullishCount(), analysis.BearishCount()
	switch {
	case bulls > bears && bears == 0:
		analysis.TrendAligned = true
		analysis.AlignedDirection = models.BiasBullish
	case bears > bulls && bulls == 0:
		analysis.TrendAligned = true
		analysis.AlignedDirection = models.BiasBearish
	default:
		analysis.AlignedDirection = models.BiasNeutral
	}
	analysis.MomentumAligned = s.momentumAligned(analysis)

	if daily != nil {
		s.addLevels(analysis, daily)
		s.addEntryRecommendations(ctx, symbol, analysis, daily)
	}
	analysis.Score = s.score(analysis)

	return analysis, nil
}

// readTimeframe derives one timeframe's trend and momentum bias. Trend
// prefers the Supertrend state and falls back to the EMA20/EMA50 cross;
// momentum comes from RSI relative to the 50 line.
func (s *MultiTimeframeService) readTimeframe(series *models.CandleSeries) (models.TrendBias, models.TrendBias) {
	last := series.Len() - 1
	trend := models.BiasNeutral

	st := indicators.NewSupertrend(series, indicators.SupertrendConfig{
		ATRPeriod:      s.cfg.ATRPeriod,
		BaseMultiplier: s.cfg.SupertrendBaseMult,
		TrainingPeriod: s.cfg.SupertrendTraining,
	})
	if res, ok := st.Compute(last); ok {
		trend = res.Direction
	} else if ema20, ok20 := series.EMA(20, last); ok20 {
		if ema50, ok50 := series.EMA(50, last); ok50 {
			if ema20 > ema50 {
				trend = models.BiasBullish
			} else if ema20 < ema50 {
				trend = models.BiasBearish
			}
		}
	}

	momentum := models.BiasNeutral
	if rsi, ok := series.RSI(14, last); ok {
		if rsi > 50 {
			momentum = models.BiasBullish
		} else if rsi < 50 {
			momentum = models.BiasBearish
		}
	}
	return trend, momentum
}

func (s *MultiTimeframeService) momentumAligned(analysis *models.MultiTimeframeAnalysis) bool {
	if analysis.AlignedDirection == models.BiasNeutral {
		return false
	}
	for _, tf := range analysis.Timeframes {
		if tf.Momentum != analysis.AlignedDirection {
			return false
		}
	}
	return true
}

// addLevels extracts support and resistance from daily swing extremes over
// two lookback horizons.
func (s *MultiTimeframeService) addLevels(analysis *models.MultiTimeframeAnalysis, daily *models.CandleSeries) {
	last := daily.Len() - 1
	for _, lookback := range []int{20, 50} {
		if low, ok := daily.LowestLow(lookback, last); ok {
			analysis.SupportLevels = append(analysis.SupportLevels, low)
		}
		if high, ok := daily.HighestHigh(lookback, last); ok {
			analysis.ResistanceLevels = append(analysis.ResistanceLevels, high)
		}
	}
}

// addEntryRecommendations proposes pullback zones around the daily EMA20 and
// a breakout zone above the recent swing high. A zone is confirmed when an
// intraday timeframe reads in the aligned direction.
func (s *MultiTimeframeService) addEntryRecommendations(ctx context.Context, symbol string, analysis *models.MultiTimeframeAnalysis, daily *models.CandleSeries) {
	if analysis.AlignedDirection == models.BiasNeutral {
		return
	}
	last := daily.Len() - 1
	close := daily.LastClose()
	ema20, okEMA := daily.EMA(20, last)
	atr, okATR := daily.ATR(s.cfg.ATRPeriod, last)
	if !okATR {
		atr = close * 0.02
	}

	confirmedBy := func(interval models.Interval) bool {
		for _, tf := range analysis.Timeframes {
			if tf.Timeframe == interval && tf.Trend == analysis.AlignedDirection {
				return true
			}
		}
		return false
	}

	if okEMA {
		rec := models.EntryRecommendation{
			Type:      models.EntryPullback,
			Timeframe: models.Interval15Min,
			Confirmed: confirmedBy(models.Interval15Min),
		}
		if analysis.AlignedDirection == models.BiasBullish {
			rec.ZoneLow, rec.ZoneHigh = ema20, ema20+0.5*atr
		} else {
			rec.ZoneLow, rec.ZoneHigh = ema20-0.5*atr, ema20
		}
		if !rec.Confirmed {
			rec.Timeframe = models.Interval1Hour
			rec.Confirmed = confirmedBy(models.Interval1Hour)
		}
		analysis.EntryRecommendations = append(analysis.EntryRecommendations, rec)
	}

	if high, ok := daily.HighestHigh(20, last); ok && analysis.AlignedDirection == models.BiasBullish {
		analysis.EntryRecommendations = append(analysis.EntryRecommendations, models.EntryRecommendation{
			Type:      models.EntryBreakout,
			Timeframe: models.IntervalDay,
			ZoneLow:   high,
			ZoneHigh:  high + 0.5*atr,
			Confirmed: confirmedBy(models.Interval1Hour),
		})
	} else if low, ok := daily.LowestLow(20, last); ok && analysis.AlignedDirection == models.BiasBearish {
		analysis.EntryRecommendations = append(analysis.EntryRecommendations, models.EntryRecommendation{
			Type:      models.EntryBreakout,
			Timeframe: models.IntervalDay,
			ZoneLow:   low - 0.5*atr,
			ZoneHigh:  low,
			Confirmed: confirmedBy(models.Interval1Hour),
		})
	}
}

// score is the composite 0-100 reading: trend alignment carries half the
// weight, momentum a quarter, and breadth of analyzed timeframes the rest.
func (s *MultiTimeframeService) score(analysis *models.MultiTimeframeAnalysis) float64 {
	score := 0.0
	total := len(analysis.Timeframes)
	if total == 0 {
		return 0
	}
	dominant := analysis.BullishCount()
	if analysis.BearishCount() > dominant {
		dominant = analysis.BearishCount()
	}
	score += 50 * float64(dominant) / float64(total)
	if analysis.MomentumAligned {
		score += 25
	}
	score += 25 * float64(total) / float64(len(analyzedTimeframes))
	if score > 100 {
		score = 100
	}
	return score
}
