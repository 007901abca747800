package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/trademantra/swingtrader-go/internal/models"
)

// Ledger is the append-only accounting primitive. Capital is always the
// running sum of entries over an initial deposit; it is never mutated
// independently, so every capital change has an auditable cause.
type Ledger struct {
	store  LedgerStore
	logger *logrus.Logger
}

func NewLedger(store LedgerStore, logger *logrus.Logger) *Ledger {
	return &Ledger{store: store, logger: logger}
}

// Credit appends a credit entry. Amounts are non-negative by construction.
func (l *Ledger) Credit(ctx context.Context, portfolioID string, reason models.EntryReason, amount decimal.Decimal, positionID, note string) (*models.LedgerEntry, error) {
	return l.append(ctx, portfolioID, models.EntryCredit, reason, amount, positionID, note)
}

// Debit appends a debit entry.
func (l *Ledger) Debit(ctx context.Context, portfolioID string, reason models.EntryReason, amount decimal.Decimal, positionID, note string) (*models.LedgerEntry, error) {
	return l.append(ctx, portfolioID, models.EntryDebit, reason, amount, positionID, note)
}

func (l *Ledger) append(ctx context.Context, portfolioID string, entryType models.EntryType, reason models.EntryReason, amount decimal.Decimal, positionID, note string) (*models.LedgerEntry, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("ledger entry amount must be non-negative, got %s", amount)
	}
	entry := models.LedgerEntry{
		ID:          uuid.NewString(),
		PortfolioID: portfolioID,
		Type:        entryType,
		Reason:      reason,
		Amount:      amount,
		PositionID:  positionID,
		Note:        note,
		CreatedAt:   time.Now(),
	}
	if err := l.store.AppendEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}
	l.logger.WithFields(logrus.Fields{
		"portfolio_id": portfolioID,
		"type":         entryType,
		"reason":       reason,
		"amount":       amount.String(),
		"position_id":  positionID,
	}).Debug("Ledger entry appended")
	return &entry, nil
}

// Capital derives the portfolio's capital: initial deposit plus the signed
// sum of all entries.
func (l *Ledger) Capital(ctx context.Context, portfolio *models.Portfolio) (decimal.Decimal, error) {
	entries, err := l.store.Entries(ctx, portfolio.ID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load ledger entries: %w", err)
	}
	capital := portfolio.InitialCapital
	for _, e := range entries {
		capital = capital.Add(e.Signed())
	}
	return capital, nil
}

// RealizedPnLSince sums terminal profit/loss entries since the given time.
// Reservation and release entries are excluded: an open trade is exposure,
// not a loss.
func (l *Ledger) RealizedPnLSince(ctx context.Context, portfolioID string, since time.Time) (decimal.Decimal, error) {
	entries, err := l.store.EntriesSince(ctx, portfolioID, since)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load ledger entries: %w", err)
	}
	net := decimal.Zero
	for _, e := range entries {
		if e.IsTerminalPnL() {
			net = net.Add(e.Signed())
		}
	}
	return net, nil
}

// TerminalEntryCount returns how many profit/loss entries reference the
// position. A correctly closed position has exactly one at most.
func (l *Ledger) TerminalEntryCount(ctx context.Context, portfolioID, positionID string) (int, error) {
	entries, err := l.store.Entries(ctx, portfolioID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if e.PositionID == positionID && e.IsTerminalPnL() {
			n++
		}
	}
	return n, nil
}
