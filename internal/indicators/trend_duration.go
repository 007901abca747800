package indicators

import (
	"math"

	"github.com/trademantra/swingtrader-go/internal/models"
)

// TrendDurationConfig tunes the Hull-MA run-length estimator.
type TrendDurationConfig struct {
	HMAPeriod int
	// TrendLenThreshold is the run length at which a trend counts as
	// established.
	TrendLenThreshold int
	// RunHistoryCap bounds the per-direction history of past run lengths;
	// the oldest run is evicted first.
	RunHistoryCap int
}

func (c TrendDurationConfig) withDefaults() TrendDurationConfig {
	if c.HMAPeriod <= 1 {
		c.HMAPeriod = 16
	}
	if c.TrendLenThreshold <= 0 {
		c.TrendLenThreshold = 5
	}
	if c.RunHistoryCap <= 0 {
		c.RunHistoryCap = 20
	}
	return c
}

// TrendDuration tracks how long the Hull moving average has been moving in
// one direction and, from a bounded history of past run lengths, estimates
// how much of the current trend probably remains.
type TrendDuration struct {
	series *models.CandleSeries
	cfg    TrendDurationConfig
}

func NewTrendDuration(series *models.CandleSeries, cfg TrendDurationConfig) *TrendDuration {
	return &TrendDuration{series: series, cfg: cfg.withDefaults()}
}

func (td *TrendDuration) Name() string { return "trend_duration" }

func (td *TrendDuration) MinRequiredCandles() int {
	sqrtLen := int(math.Round(math.Sqrt(float64(td.cfg.HMAPeriod))))
	return td.cfg.HMAPeriod + sqrtLen + 1
}

func (td *TrendDuration) Ready(index int) bool { return index >= td.MinRequiredCandles() }

func (td *TrendDuration) Compute(index int) (*models.IndicatorResult, bool) {
	if !td.Ready(index) || index >= td.series.Len() {
		return nil, false
	}

	// Walk the prefix, tracking the current run and evicting history past
	// the cap. The walk only ever reads candles [0..index].
	start := td.MinRequiredCandles()
	var (
		runDir    models.TrendBias
		runLen    int
		upRuns    []int
		downRuns  []int
		prevHMA   float64
		havePrev  bool
		latestHMA float64
	)
	for i := start - 1; i <= index; i++ {
		hma, ok := td.series.HMA(td.cfg.HMAPeriod, i)
		if !ok {
			return nil, false
		}
		latestHMA = hma
		if !havePrev {
			prevHMA, havePrev = hma, true
			continue
		}
		dir := models.BiasNeutral
		if hma > prevHMA {
			dir = models.BiasBullish
		} else if hma < prevHMA {
			dir = models.BiasBearish
		}
		prevHMA = hma

		if dir == runDir {
			runLen++
			continue
		}
		// Direction change: the finished run goes into its history bucket.
		if runLen > 0 {
			switch runDir {
			case models.BiasBullish:
				upRuns = appendBounded(upRuns, runLen, td.cfg.RunHistoryCap)
			case models.BiasBearish:
				downRuns = appendBounded(downRuns, runLen, td.cfg.RunHistoryCap)
			}
		}
		runDir = dir
		runLen = 1
	}

	if runDir == models.BiasNeutral || runLen == 0 {
		return nil, false
	}

	history := upRuns
	if runDir == models.BiasBearish {
		history = downRuns
	}
	avgRun := 0.0
	for _, r := range history {
		avgRun += float64(r)
	}
	if len(history) > 0 {
		avgRun /= float64(len(history))
	}
	remaining := 0.0
	if avgRun > float64(runLen) {
		remaining = avgRun - float64(runLen)
	}

	// Confidence blends how established the run is, how close it sits to
	// the historical average, and how much history backs the estimate.
	established := math.Min(1, float64(runLen)/float64(td.cfg.TrendLenThreshold)) * 40
	closeness := 0.0
	if avgRun > 0 {
		closeness = (1 - math.Min(1, math.Abs(float64(runLen)-avgRun)/avgRun)) * 30
	}
	sample := math.Min(1, float64(len(history))/10) * 30
	confidence := clampConfidence(established + closeness + sample)

	return &models.IndicatorResult{
		Value: float64(runLen),
		Lines: map[string]float64{
			"hma":                latestHMA,
			"expected_remaining": math.Round(remaining),
			"historical_avg_run": avgRun,
		},
		Direction:  runDir,
		Confidence: confidence,
	}, true
}

func appendBounded(runs []int, run, limit int) []int {
	runs = append(runs, run)
	if len(runs) > limit {
		runs = runs[1:]
	}
	return runs
}
