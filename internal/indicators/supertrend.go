package indicators

import (
	"math"
	"sort"

	"github.com/trademantra/swingtrader-go/internal/models"
)

// VolatilityRegime classifies the adaptive multiplier at an index.
type VolatilityRegime string

const (
	RegimeLow     VolatilityRegime = "low"
	RegimeMedium  VolatilityRegime = "medium"
	RegimeHigh    VolatilityRegime = "high"
	RegimeUnknown VolatilityRegime = "unknown"
)

// SupertrendConfig holds the tuning knobs of the adaptive Supertrend.
type SupertrendConfig struct {
	ATRPeriod int
	// BaseMultiplier is the center of the adaptive range, typically 2.0-3.0.
	BaseMultiplier float64
	// TrainingPeriod is the number of candles observed before the
	// volatility clustering starts adapting the multiplier.
	TrainingPeriod int
	// VolatilityWindow is the trailing true-range window the per-bar
	// volatility factor is derived from.
	VolatilityWindow int
	// Clusters is the number of volatility regimes, normally 3.
	Clusters int
}

func (c SupertrendConfig) withDefaults() SupertrendConfig {
	if c.ATRPeriod <= 0 {
		c.ATRPeriod = 10
	}
	if c.BaseMultiplier <= 0 {
		c.BaseMultiplier = 2.5
	}
	if c.TrainingPeriod <= 0 {
		c.TrainingPeriod = 50
	}
	if c.VolatilityWindow <= 0 {
		c.VolatilityWindow = 20
	}
	if c.Clusters <= 0 {
		c.Clusters = 3
	}
	return c
}

// Supertrend is the classic volatility-band trend indicator with one twist:
// the band multiplier is not fixed. After a training window the indicator
// clusters historical per-bar volatility factors into regimes and scales the
// base multiplier by the centroid of the bar's assigned regime. The entire
// series is computed once at construction; per-index lookups slice the
// precomputed arrays.
type Supertrend struct {
	series *models.CandleSeries
	cfg    SupertrendConfig

	valid      []bool
	tr         []float64
	atr        []float64
	volFactor  []float64
	multiplier []float64
	line       []float64
	trendUp    []bool
	trainedAt  int // first index with an adaptive multiplier, -1 if never trained
}

func NewSupertrend(series *models.CandleSeries, cfg SupertrendConfig) *Supertrend {
	st := &Supertrend{series: series, cfg: cfg.withDefaults(), trainedAt: -1}
	st.computeAll()
	return st
}

func (st *Supertrend) Name() string { return "supertrend" }

func (st *Supertrend) MinRequiredCandles() int { return st.cfg.ATRPeriod + 1 }

func (st *Supertrend) Ready(index int) bool { return index >= st.MinRequiredCandles() }

// AdaptiveMultiplier returns the per-bar multiplier. For any index before
// training completes, or outside the computed range, it falls back to the
// base multiplier.
func (st *Supertrend) AdaptiveMultiplier(index int) float64 {
	if index < 0 || index >= len(st.multiplier) {
		return st.cfg.BaseMultiplier
	}
	if st.trainedAt < 0 || index < st.trainedAt {
		return st.cfg.BaseMultiplier
	}
	return st.multiplier[index]
}

// VolatilityRegime classifies the multiplier at index relative to the base
// multiplier using fixed thresholds.
func (st *Supertrend) VolatilityRegime(index int) VolatilityRegime {
	if index < 0 || index >= len(st.multiplier) || st.trainedAt < 0 || index < st.trainedAt {
		return RegimeUnknown
	}
	ratio := st.multiplier[index] / st.cfg.BaseMultiplier
	switch {
	case ratio < 0.95:
		return RegimeLow
	case ratio > 1.05:
		return RegimeHigh
	default:
		return RegimeMedium
	}
}

func (st *Supertrend) Compute(index int) (*models.IndicatorResult, bool) {
	if !st.Ready(index) || index >= len(st.line) {
		return nil, false
	}
	if !st.valid[index] {
		return nil, false
	}
	direction := models.BiasBearish
	if st.trendUp[index] {
		direction = models.BiasBullish
	}
	close := st.series.Candles[index].Close
	confidence := 50.0
	if st.atr[index] > 0 {
		// Distance from the band in ATR units, capped so a runaway move
		// does not read as certainty.
		confidence = clampConfidence(25 * math.Abs(close-st.line[index]) / st.atr[index])
		if confidence < 10 {
			confidence = 10
		}
	}
	return &models.IndicatorResult{
		Value: st.line[index],
		Lines: map[string]float64{
			"atr":        st.atr[index],
			"multiplier": st.multiplier[index],
		},
		Direction:  direction,
		Confidence: confidence,
	}, true
}

// computeAll runs the single whole-series pass: true range, Wilder ATR,
// per-bar volatility factors, the online regime clustering, and the band
// recursion. Bars with missing high/low/close are skipped: the pass carries
// the previous band state forward and marks the index absent.
func (st *Supertrend) computeAll() {
	n := st.series.Len()
	st.valid = make([]bool, n)
	st.tr = make([]float64, n)
	st.atr = make([]float64, n)
	st.volFactor = make([]float64, n)
	st.multiplier = make([]float64, n)
	st.line = make([]float64, n)
	st.trendUp = make([]bool, n)
	if n == 0 {
		return
	}

	// True range with skip-bar handling: the previous *valid* close feeds
	// the gap terms, and the very first bar has no previous close at all.
	prevClose := math.NaN()
	for i := 0; i < n; i++ {
		c := st.series.Candles[i]
		if !c.Valid() {
			st.tr[i] = math.NaN()
			continue
		}
		st.valid[i] = true
		if math.IsNaN(prevClose) {
			st.tr[i] = c.High - c.Low
		} else {
			tr := c.High - c.Low
			tr = math.Max(tr, math.Abs(c.High-prevClose))
			tr = math.Max(tr, math.Abs(c.Low-prevClose))
			st.tr[i] = tr
		}
		prevClose = c.Close
	}

	st.computeATR()
	st.computeVolatilityFactors()
	st.computeAdaptiveMultipliers()
	st.computeBands()
}

func (st *Supertrend) computeATR() {
	period := st.cfg.ATRPeriod
	seen := 0
	sum := 0.0
	atr := math.NaN()
	for i := 0; i < len(st.tr); i++ {
		if !st.valid[i] {
			st.atr[i] = atr // carry forward for skipped bars
			continue
		}
		if seen < period {
			sum += st.tr[i]
			seen++
			if seen == period {
				atr = sum / float64(period)
			}
			st.atr[i] = atr
			continue
		}
		atr = (atr*float64(period-1) + st.tr[i]) / float64(period)
		st.atr[i] = atr
	}
}

// computeVolatilityFactors derives a per-bar factor from the relative
// dispersion of recent true ranges. A window with zero mean or zero spread
// is neutral: factor 1.0, no warping.
func (st *Supertrend) computeVolatilityFactors() {
	window := st.cfg.VolatilityWindow
	recent := make([]float64, 0, window)
	for i := 0; i < len(st.tr); i++ {
		st.volFactor[i] = 1.0
		if !st.valid[i] {
			continue
		}
		if len(recent) == window {
			mean := 0.0
			for _, v := range recent {
				mean += v
			}
			mean /= float64(len(recent))
			variance := 0.0
			for _, v := range recent {
				d := v - mean
				variance += d * d
			}
			stddev := math.Sqrt(variance / float64(len(recent)))
			if mean > 0 && stddev > 0 {
				factor := 1.0 + (st.tr[i]-mean)/mean
				st.volFactor[i] = math.Max(0.5, math.Min(2.0, factor))
			}
		}
		recent = append(recent, st.tr[i])
		if len(recent) > window {
			recent = recent[1:]
		}
	}
}

// computeAdaptiveMultipliers runs a lightweight online clustering over the
// volatility factors. Centroids are seeded from the training window's
// min/median/max and updated with running means as bars arrive; each bar's
// multiplier is the base multiplier scaled by its assigned centroid,
// bounded to ±25% of base.
func (st *Supertrend) computeAdaptiveMultipliers() {
	base := st.cfg.BaseMultiplier
	training := st.cfg.TrainingPeriod
	for i := range st.multiplier {
		st.multiplier[i] = base
	}

	var trainingFactors []float64
	for i := 0; i < len(st.volFactor) && len(trainingFactors) < training; i++ {
		if st.valid[i] {
			trainingFactors = append(trainingFactors, st.volFactor[i])
		}
	}
	if len(trainingFactors) < training {
		return // never enough history to train
	}

	sorted := append([]float64(nil), trainingFactors...)
	sort.Float64s(sorted)
	k := st.cfg.Clusters
	centroids := make([]float64, k)
	counts := make([]int, k)
	for c := 0; c < k; c++ {
		// Quantile seeds spread the centroids across the observed range.
		pos := 0
		if k > 1 {
			pos = int(float64(len(sorted)-1) * float64(c) / float64(k-1))
		}
		centroids[c] = sorted[pos]
		counts[c] = 1
	}

	seen := 0
	for i := 0; i < len(st.volFactor); i++ {
		if !st.valid[i] {
			continue
		}
		seen++
		if seen <= training {
			continue
		}
		if st.trainedAt < 0 {
			st.trainedAt = i
		}
		factor := st.volFactor[i]
		best := 0
		for c := 1; c < k; c++ {
			if math.Abs(factor-centroids[c]) < math.Abs(factor-centroids[best]) {
				best = c
			}
		}
		counts[best]++
		centroids[best] += (factor - centroids[best]) / float64(counts[best])

		m := base * centroids[best]
		st.multiplier[i] = math.Max(base*0.75, math.Min(base*1.25, m))
	}
}

func (st *Supertrend) computeBands() {
	var (
		finalUpper, finalLower float64
		haveBands              bool
		up                     = true
		prevClose              float64
	)
	for i := 0; i < len(st.line); i++ {
		if !st.valid[i] || math.IsNaN(st.atr[i]) {
			// Carry the previous state forward; the index itself is absent.
			if haveBands {
				st.line[i] = st.lineFor(up, finalUpper, finalLower)
				st.trendUp[i] = up
			}
			continue
		}
		c := st.series.Candles[i]
		mid := (c.High + c.Low) / 2
		m := st.multiplier[i]
		basicUpper := mid + m*st.atr[i]
		basicLower := mid - m*st.atr[i]

		if !haveBands {
			finalUpper, finalLower = basicUpper, basicLower
			haveBands = true
		} else {
			if basicUpper < finalUpper || prevClose > finalUpper {
				finalUpper = basicUpper
			}
			if basicLower > finalLower || prevClose < finalLower {
				finalLower = basicLower
			}
		}

		if up && c.Close < finalLower {
			up = false
		} else if !up && c.Close > finalUpper {
			up = true
		}

		st.trendUp[i] = up
		st.line[i] = st.lineFor(up, finalUpper, finalLower)
		prevClose = c.Close
	}
}

func (st *Supertrend) lineFor(up bool, upper, lower float64) float64 {
	if up {
		return lower
	}
	return upper
}
