package models

import (
	"fmt"
	"time"
)

// Direction is the side of a trade.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// TrendBias is an indicator's directional reading.
type TrendBias string

const (
	BiasBullish TrendBias = "bullish"
	BiasBearish TrendBias = "bearish"
	BiasNeutral TrendBias = "neutral"
)

// IndicatorResult is the outcome of one indicator at one index. Absence of
// a result (e.g. RSI inside its neutral band) is expressed by the indicator
// returning no result at all, never by a zero-valued struct.
type IndicatorResult struct {
	Value      float64            `json:"value"`
	Lines      map[string]float64 `json:"lines,omitempty"`
	Direction  TrendBias          `json:"direction"`
	Confidence float64            `json:"confidence"`
}

// SignalStatus tracks a signal through the execution state machine.
type SignalStatus string

const (
	SignalStatusGenerated       SignalStatus = "generated"
	SignalStatusPendingApproval SignalStatus = "pending_approval"
	SignalStatusPlaced          SignalStatus = "placed"
	SignalStatusRejected        SignalStatus = "rejected"
)

// Signal is a complete trade plan produced by the signal builder. A signal
// is only ever constructed whole: if the risk-reward filter fails, no
// signal exists.
type Signal struct {
	ID                  string                 `json:"id" db:"id"`
	Symbol              string                 `json:"symbol" db:"symbol"`
	Direction           Direction              `json:"direction" db:"direction"`
	EntryPrice          float64                `json:"entry_price" db:"entry_price"`
	StopLoss            float64                `json:"stop_loss" db:"stop_loss"`
	TakeProfit          float64                `json:"take_profit" db:"take_profit"`
	Quantity            int64                  `json:"quantity" db:"quantity"`
	RiskReward          float64                `json:"risk_reward" db:"risk_reward"`
	Confidence          float64                `json:"confidence" db:"confidence"`
	HoldingDaysEstimate int                    `json:"holding_days_estimate" db:"holding_days"`
	Status              SignalStatus           `json:"status" db:"status"`
	Metadata            map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt           time.Time              `json:"created_at" db:"created_at"`
}

// Notional returns entry price times quantity.
func (s *Signal) Notional() float64 {
	return s.EntryPrice * float64(s.Quantity)
}

// Validate checks the structural invariants of a signal: all price fields
// present, positive quantity, and stop/target on the correct side of entry.
func (s *Signal) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("signal missing symbol")
	}
	if s.Direction != DirectionLong && s.Direction != DirectionShort {
		return fmt.Errorf("signal has invalid direction %q", s.Direction)
	}
	if s.EntryPrice <= 0 || s.StopLoss <= 0 || s.TakeProfit <= 0 {
		return fmt.Errorf("signal has non-positive price levels")
	}
	if s.Quantity <= 0 {
		return fmt.Errorf("signal has non-positive quantity")
	}
	switch s.Direction {
	case DirectionLong:
		if !(s.StopLoss < s.EntryPrice && s.EntryPrice < s.TakeProfit) {
			return fmt.Errorf("long signal requires stop < entry < target, got %.2f/%.2f/%.2f",
				s.StopLoss, s.EntryPrice, s.TakeProfit)
		}
	case DirectionShort:
		if !(s.TakeProfit < s.EntryPrice && s.EntryPrice < s.StopLoss) {
			return fmt.Errorf("short signal requires target < entry < stop, got %.2f/%.2f/%.2f",
				s.TakeProfit, s.EntryPrice, s.StopLoss)
		}
	}
	return nil
}
