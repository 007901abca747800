package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType is the side of a ledger entry.
type EntryType string

const (
	EntryCredit EntryType = "credit"
	EntryDebit  EntryType = "debit"
)

// EntryReason is the auditable cause of a capital change. Every capital
// movement carries exactly one reason; capital is never mutated without an
// entry.
type EntryReason string

const (
	ReasonDeposit EntryReason = "deposit"
	ReasonReserve EntryReason = "reserve"
	ReasonRelease EntryReason = "release"
	ReasonProfit  EntryReason = "profit"
	ReasonLoss    EntryReason = "loss"
)

// LedgerEntry is one append-only credit or debit against a portfolio.
type LedgerEntry struct {
	ID          string          `json:"id" db:"id"`
	PortfolioID string          `json:"portfolio_id" db:"portfolio_id"`
	Type        EntryType       `json:"type" db:"entry_type"`
	Reason      EntryReason     `json:"reason" db:"reason"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	PositionID  string          `json:"position_id,omitempty" db:"position_id"`
	Note        string          `json:"note,omitempty" db:"note"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// Signed returns the entry amount with credit positive and debit negative.
func (e LedgerEntry) Signed() decimal.Decimal {
	if e.Type == EntryDebit {
		return e.Amount.Neg()
	}
	return e.Amount
}

// IsTerminalPnL reports whether the entry is a realized profit/loss entry.
// A position writes at most one of these across its whole lifecycle.
func (e LedgerEntry) IsTerminalPnL() bool {
	return e.Reason == ReasonProfit || e.Reason == ReasonLoss
}

// PositionStatus is the lifecycle state of a paper position.
type PositionStatus string

const (
	PositionOpen   PositionStatus = "open"
	PositionClosed PositionStatus = "closed"
)

// ExitReason records why a paper position was closed.
type ExitReason string

const (
	ExitStopLoss   ExitReason = "stop_loss"
	ExitTakeProfit ExitReason = "take_profit"
	ExitTimeLimit  ExitReason = "time_limit"
	ExitManual     ExitReason = "manual"
)

// PaperPosition is a simulated position tracked against the virtual ledger.
// It transitions open -> closed exactly once.
type PaperPosition struct {
	ID           string          `json:"id" db:"id"`
	PortfolioID  string          `json:"portfolio_id" db:"portfolio_id"`
	Symbol       string          `json:"symbol" db:"symbol"`
	Direction    Direction       `json:"direction" db:"direction"`
	EntryPrice   decimal.Decimal `json:"entry_price" db:"entry_price"`
	Quantity     int64           `json:"quantity" db:"quantity"`
	StopLoss     decimal.Decimal `json:"stop_loss" db:"stop_loss"`
	TakeProfit   decimal.Decimal `json:"take_profit" db:"take_profit"`
	CurrentPrice decimal.Decimal `json:"current_price" db:"current_price"`
	Status       PositionStatus  `json:"status" db:"status"`
	ExitReason   ExitReason      `json:"exit_reason,omitempty" db:"exit_reason"`
	ExitPrice    decimal.Decimal `json:"exit_price" db:"exit_price"`
	PnL          decimal.Decimal `json:"pnl" db:"pnl"`
	OpenedAt     time.Time       `json:"opened_at" db:"opened_at"`
	ClosedAt     time.Time       `json:"closed_at,omitempty" db:"closed_at"`
}

// Notional returns entry price times quantity.
func (p *PaperPosition) Notional() decimal.Decimal {
	return p.EntryPrice.Mul(decimal.NewFromInt(p.Quantity))
}

// UnrealizedPnL marks the position against the given price. Long profit is
// (price-entry)*qty; short profit is (entry-price)*qty.
func (p *PaperPosition) UnrealizedPnL(price decimal.Decimal) decimal.Decimal {
	qty := decimal.NewFromInt(p.Quantity)
	if p.Direction == DirectionShort {
		return p.EntryPrice.Sub(price).Mul(qty)
	}
	return price.Sub(p.EntryPrice).Mul(qty)
}

// Portfolio is the identity of a simulated account. Its capital is derived
// from the ledger, never stored independently.
type Portfolio struct {
	ID             string          `json:"id" db:"id"`
	Name           string          `json:"name" db:"name"`
	InitialCapital decimal.Decimal `json:"initial_capital" db:"initial_capital"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// PortfolioState is a derived snapshot of a portfolio's accounting.
type PortfolioState struct {
	PortfolioID    string          `json:"portfolio_id"`
	Capital        decimal.Decimal `json:"capital"`
	Reserved       decimal.Decimal `json:"reserved"`
	Available      decimal.Decimal `json:"available"`
	Equity         decimal.Decimal `json:"equity"`
	PeakEquity     decimal.Decimal `json:"peak_equity"`
	Drawdown       decimal.Decimal `json:"drawdown"`
	OpenPositions  int             `json:"open_positions"`
	RealizedPnLDay decimal.Decimal `json:"realized_pnl_day"`
	UnrealizedPnL  decimal.Decimal `json:"unrealized_pnl"`
	LastReconciled time.Time       `json:"last_reconciled,omitempty"`
}
