package models

import (
	"fmt"
	"math"
	"time"
)

// Interval identifies a candle timeframe.
type Interval string

const (
	Interval15Min Interval = "15m"
	Interval1Hour Interval = "1h"
	IntervalDay   Interval = "day"
	IntervalWeek  Interval = "week"
)

// Candle is a single immutable OHLCV bar.
type Candle struct {
	Timestamp time.Time `json:"timestamp" db:"ts"`
	Open      float64   `json:"open" db:"open"`
	High      float64   `json:"high" db:"high"`
	Low       float64   `json:"low" db:"low"`
	Close     float64   `json:"close" db:"close"`
	Volume    float64   `json:"volume" db:"volume"`
}

// Valid reports whether the bar carries usable high/low/close values.
// Feeds occasionally deliver rows with missing fields; such bars are
// skipped by indicator passes rather than failing the whole series.
func (c Candle) Valid() bool {
	return c.High > 0 && c.Low > 0 && c.Close > 0 && c.High >= c.Low
}

// CandleSeries is an ordered OHLCV sequence for one instrument and
// timeframe. Timestamps are strictly increasing; derived values are always
// computed over a prefix of the series up to a given index so that no
// indicator ever sees a future candle.
type CandleSeries struct {
	Symbol   string   `json:"symbol"`
	Interval Interval `json:"interval"`
	Candles  []Candle `json:"candles"`
}

// NewCandleSeries validates ordering and returns the series. Duplicate
// timestamps are collapsed last-write-wins, matching ingestion semantics.
func NewCandleSeries(symbol string, interval Interval, candles []Candle) (*CandleSeries, error) {
	out := make([]Candle, 0, len(candles))
	for i, c := range candles {
		if i > 0 {
			prev := out[len(out)-1]
			if c.Timestamp.Equal(prev.Timestamp) {
				out[len(out)-1] = c
				continue
			}
			if c.Timestamp.Before(prev.Timestamp) {
				return nil, fmt.Errorf("candle series %s/%s not chronological at index %d", symbol, interval, i)
			}
		}
		out = append(out, c)
	}
	return &CandleSeries{Symbol: symbol, Interval: interval, Candles: out}, nil
}

// Len returns the number of candles.
func (s *CandleSeries) Len() int { return len(s.Candles) }

// LastClose returns the most recent close, or 0 for an empty series.
func (s *CandleSeries) LastClose() float64 {
	if len(s.Candles) == 0 {
		return 0
	}
	return s.Candles[len(s.Candles)-1].Close
}

func (s *CandleSeries) inRange(index int) bool {
	return index >= 0 && index < len(s.Candles)
}

// SMA returns the simple moving average of closes ending at index.
func (s *CandleSeries) SMA(period, index int) (float64, bool) {
	if period <= 0 || !s.inRange(index) || index+1 < period {
		return 0, false
	}
	sum := 0.0
	for i := index - period + 1; i <= index; i++ {
		sum += s.Candles[i].Close
	}
	return sum / float64(period), true
}

// EMA returns the exponential moving average of closes at index, seeded
// with the SMA of the first period closes. Only candles [0..index] are read.
func (s *CandleSeries) EMA(period, index int) (float64, bool) {
	if period <= 0 || !s.inRange(index) || index+1 < period {
		return 0, false
	}
	seed := 0.0
	for i := 0; i < period; i++ {
		seed += s.Candles[i].Close
	}
	ema := seed / float64(period)
	k := 2.0 / float64(period+1)
	for i := period; i <= index; i++ {
		ema += k * (s.Candles[i].Close - ema)
	}
	return ema, true
}

// WMA returns the linearly weighted moving average of closes at index.
func (s *CandleSeries) WMA(period, index int) (float64, bool) {
	if period <= 0 || !s.inRange(index) || index+1 < period {
		return 0, false
	}
	var num, den float64
	for i := 0; i < period; i++ {
		w := float64(period - i)
		num += w * s.Candles[index-i].Close
		den += w
	}
	return num / den, true
}

// HMA returns the Hull moving average at index: WMA(2*WMA(n/2) - WMA(n))
// over sqrt(n) of the intermediate values.
func (s *CandleSeries) HMA(period, index int) (float64, bool) {
	half := period / 2
	sqrtLen := int(math.Round(math.Sqrt(float64(period))))
	if period <= 1 || half < 1 || sqrtLen < 1 {
		return 0, false
	}
	if !s.inRange(index) || index+1 < period+sqrtLen-1 {
		return 0, false
	}
	// Raw HMA inputs for the last sqrtLen bars, oldest first.
	raw := make([]float64, sqrtLen)
	for i := 0; i < sqrtLen; i++ {
		idx := index - (sqrtLen - 1 - i)
		wHalf, ok1 := s.WMA(half, idx)
		wFull, ok2 := s.WMA(period, idx)
		if !ok1 || !ok2 {
			return 0, false
		}
		raw[i] = 2*wHalf - wFull
	}
	var num, den float64
	for i := 0; i < sqrtLen; i++ {
		w := float64(i + 1)
		num += w * raw[i]
		den += w
	}
	return num / den, true
}

// RSI returns the Wilder-smoothed relative strength index at index.
func (s *CandleSeries) RSI(period, index int) (float64, bool) {
	if period <= 0 || !s.inRange(index) || index < period {
		return 0, false
	}
	var gain, loss float64
	for i := 1; i <= period; i++ {
		change := s.Candles[i].Close - s.Candles[i-1].Close
		if change > 0 {
			gain += change
		} else {
			loss -= change
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	for i := period + 1; i <= index; i++ {
		change := s.Candles[i].Close - s.Candles[i-1].Close
		g, l := 0.0, 0.0
		if change > 0 {
			g = change
		} else {
			l = -change
		}
		avgGain = (avgGain*float64(period-1) + g) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + l) / float64(period)
	}
	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

// TrueRange returns the true range at index. The first bar has no previous
// close, so its true range is simply high-low.
func (s *CandleSeries) TrueRange(index int) (float64, bool) {
	if !s.inRange(index) || !s.Candles[index].Valid() {
		return 0, false
	}
	c := s.Candles[index]
	if index == 0 {
		return c.High - c.Low, true
	}
	prevClose := s.Candles[index-1].Close
	tr := c.High - c.Low
	tr = math.Max(tr, math.Abs(c.High-prevClose))
	tr = math.Max(tr, math.Abs(c.Low-prevClose))
	return tr, true
}

// ATR returns the Wilder-smoothed average true range at index.
func (s *CandleSeries) ATR(period, index int) (float64, bool) {
	if period <= 0 || !s.inRange(index) || index+1 < period {
		return 0, false
	}
	sum := 0.0
	for i := 0; i < period; i++ {
		tr, ok := s.TrueRange(i)
		if !ok {
			continue
		}
		sum += tr
	}
	atr := sum / float64(period)
	for i := period; i <= index; i++ {
		tr, ok := s.TrueRange(i)
		if !ok {
			continue
		}
		atr = (atr*float64(period-1) + tr) / float64(period)
	}
	return atr, true
}

// ADX returns the average directional index at index along with the +DI
// and -DI components.
func (s *CandleSeries) ADX(period, index int) (adx, plusDI, minusDI float64, ok bool) {
	if period <= 0 || !s.inRange(index) || index < 2*period {
		return 0, 0, 0, false
	}
	var smTR, smPlusDM, smMinusDM float64
	dxValues := make([]float64, 0, index)
	for i := 1; i <= index; i++ {
		cur, prev := s.Candles[i], s.Candles[i-1]
		upMove := cur.High - prev.High
		downMove := prev.Low - cur.Low
		plusDM, minusDM := 0.0, 0.0
		if upMove > downMove && upMove > 0 {
			plusDM = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM = downMove
		}
		tr, _ := s.TrueRange(i)

		if i <= period {
			smTR += tr
			smPlusDM += plusDM
			smMinusDM += minusDM
			if i < period {
				continue
			}
		} else {
			smTR = smTR - smTR/float64(period) + tr
			smPlusDM = smPlusDM - smPlusDM/float64(period) + plusDM
			smMinusDM = smMinusDM - smMinusDM/float64(period) + minusDM
		}

		if smTR == 0 {
			dxValues = append(dxValues, 0)
			continue
		}
		pdi := 100 * smPlusDM / smTR
		mdi := 100 * smMinusDM / smTR
		plusDI, minusDI = pdi, mdi
		diSum := pdi + mdi
		if diSum == 0 {
			dxValues = append(dxValues, 0)
			continue
		}
		dxValues = append(dxValues, 100*math.Abs(pdi-mdi)/diSum)
	}
	if len(dxValues) < period {
		return 0, 0, 0, false
	}
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += dxValues[i]
	}
	adx = sum / float64(period)
	for i := period; i < len(dxValues); i++ {
		adx = (adx*float64(period-1) + dxValues[i]) / float64(period)
	}
	return adx, plusDI, minusDI, true
}

// MACD returns the MACD line, signal line, and histogram at index.
func (s *CandleSeries) MACD(fast, slow, signalPeriod, index int) (macd, signal, histogram float64, ok bool) {
	if fast <= 0 || slow <= fast || signalPeriod <= 0 {
		return 0, 0, 0, false
	}
	if !s.inRange(index) || index+1 < slow+signalPeriod-1 {
		return 0, 0, 0, false
	}
	macdLine := make([]float64, 0, index-slow+2)
	for i := slow - 1; i <= index; i++ {
		f, ok1 := s.EMA(fast, i)
		sl, ok2 := s.EMA(slow, i)
		if !ok1 || !ok2 {
			return 0, 0, 0, false
		}
		macdLine = append(macdLine, f-sl)
	}
	seed := 0.0
	for i := 0; i < signalPeriod; i++ {
		seed += macdLine[i]
	}
	signal = seed / float64(signalPeriod)
	k := 2.0 / float64(signalPeriod+1)
	for i := signalPeriod; i < len(macdLine); i++ {
		signal += k * (macdLine[i] - signal)
	}
	macd = macdLine[len(macdLine)-1]
	return macd, signal, macd - signal, true
}

// HighestHigh returns the highest high over the lookback bars ending at index.
func (s *CandleSeries) HighestHigh(lookback, index int) (float64, bool) {
	if lookback <= 0 || !s.inRange(index) {
		return 0, false
	}
	start := index - lookback + 1
	if start < 0 {
		start = 0
	}
	high := s.Candles[start].High
	for i := start + 1; i <= index; i++ {
		if s.Candles[i].High > high {
			high = s.Candles[i].High
		}
	}
	return high, true
}

// LowestLow returns the lowest low over the lookback bars ending at index.
func (s *CandleSeries) LowestLow(lookback, index int) (float64, bool) {
	if lookback <= 0 || !s.inRange(index) {
		return 0, false
	}
	start := index - lookback + 1
	if start < 0 {
		start = 0
	}
	low := s.Candles[start].Low
	for i := start + 1; i <= index; i++ {
		if s.Candles[i].Low < low {
			low = s.Candles[i].Low
		}
	}
	return low, true
}
