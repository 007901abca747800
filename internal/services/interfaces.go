package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trademantra/swingtrader-go/internal/models"
)

// CandleSource loads chronological candle history for an instrument. The
// engine never fetches prices itself; ingestion happens upstream.
type CandleSource interface {
	LoadSeries(ctx context.Context, symbol string, interval models.Interval, limit int) (*models.CandleSeries, error)
}

// QuoteSource provides the latest available close for reconciliation and
// exit evaluation.
type QuoteSource interface {
	LatestClose(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// TimeframeAnalyzer produces the optional multi-timeframe enrichment. A nil
// analyzer or an error degrades the signal builder to same-timeframe logic.
type TimeframeAnalyzer interface {
	Analyze(ctx context.Context, symbol string) (*models.MultiTimeframeAnalysis, error)
}

// BalanceProvider reports live-account funds and outstanding order value.
type BalanceProvider interface {
	AvailableBalance(ctx context.Context) (float64, error)
	OpenOrdersNotional(ctx context.Context) (float64, error)
}

// OrderRequest is the live order handed to the broker adapter after the
// risk gate admits a signal.
type OrderRequest struct {
	Symbol    string           `json:"symbol"`
	Direction models.Direction `json:"direction"`
	Quantity  int64            `json:"quantity"`
	OrderType string           `json:"order_type"`
	ClientID  string           `json:"client_id"`
}

// OrderResult is the broker adapter's answer.
type OrderResult struct {
	Success bool   `json:"success"`
	OrderID string `json:"order_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OrderPlacer places live orders. Called only after the risk gate admits.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
}

// TradeAdvisor is the optional LLM reviewer. Its bounded output can add
// friction (block_auto forces manual review) but never approves or rejects
// a trade on its own.
type TradeAdvisor interface {
	Review(ctx context.Context, signal *models.Signal) models.Advisory
}

// Notifier delivers fire-and-forget alerts. Implementations must swallow
// delivery failures; a dead notification channel never fails an admission
// or an execution.
type Notifier interface {
	NotifySignal(ctx context.Context, sig *models.Signal)
	NotifyPendingApproval(ctx context.Context, sig *models.Signal)
	NotifyLargeOrder(ctx context.Context, sig *models.Signal)
	NotifyExit(ctx context.Context, pos *models.PaperPosition)
}

// LedgerStore persists append-only ledger entries.
type LedgerStore interface {
	AppendEntry(ctx context.Context, entry models.LedgerEntry) error
	Entries(ctx context.Context, portfolioID string) ([]models.LedgerEntry, error)
	EntriesSince(ctx context.Context, portfolioID string, since time.Time) ([]models.LedgerEntry, error)
}

// PositionStore persists paper positions.
type PositionStore interface {
	SavePosition(ctx context.Context, pos *models.PaperPosition) error
	UpdatePosition(ctx context.Context, pos *models.PaperPosition) error
	GetPosition(ctx context.Context, id string) (*models.PaperPosition, error)
	OpenPositions(ctx context.Context, portfolioID string) ([]*models.PaperPosition, error)
	OpenPositionsBySymbol(ctx context.Context, symbol string) ([]*models.PaperPosition, error)
}

// PendingSignalStore persists signals awaiting manual approval. Signals
// failing the approval quota are parked here, not discarded.
type PendingSignalStore interface {
	SavePending(ctx context.Context, sig *models.Signal) error
	GetPending(ctx context.Context, id string) (*models.Signal, error)
	ListPending(ctx context.Context) ([]*models.Signal, error)
	MarkStatus(ctx context.Context, id string, status models.SignalStatus) error
}
