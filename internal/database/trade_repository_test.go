package database

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trademantra/swingtrader-go/internal/models"
)

func newMockRepo(t *testing.T) (*TradeRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewTradeRepository(mock), mock
}

func TestAppendEntry_InsertsRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	entry := models.LedgerEntry{
		ID:          "e1",
		PortfolioID: "p1",
		Type:        models.EntryDebit,
		Reason:      models.ReasonReserve,
		Amount:      decimal.NewFromInt(1000),
		PositionID:  "pos-1",
		Note:        "open INFY",
		CreatedAt:   time.Now(),
	}

	mock.ExpectExec("INSERT INTO ledger_entries").
		WithArgs(entry.ID, entry.PortfolioID, "debit", "reserve",
			entry.Amount, "pos-1", entry.Note, entry.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.AppendEntry(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntries_ScansRows(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	rows := pgxmock.NewRows([]string{"id", "portfolio_id", "entry_type", "reason", "amount", "position_id", "note", "created_at"}).
		AddRow("e1", "p1", "debit", "reserve", decimal.NewFromInt(1000), "pos-1", "open INFY", now).
		AddRow("e2", "p1", "credit", "release", decimal.NewFromInt(1000), "pos-1", "close INFY", now)
	mock.ExpectQuery("FROM ledger_entries").WithArgs("p1").WillReturnRows(rows)

	entries, err := repo.Entries(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.EntryDebit, entries[0].Type)
	assert.Equal(t, models.ReasonRelease, entries[1].Reason)
	assert.True(t, entries[0].Amount.Equal(decimal.NewFromInt(1000)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePosition_MissingRowFails(t *testing.T) {
	repo, mock := newMockRepo(t)
	pos := &models.PaperPosition{
		ID:           "pos-1",
		CurrentPrice: decimal.NewFromInt(101),
		Status:       models.PositionOpen,
	}

	mock.ExpectExec("UPDATE paper_positions").
		WithArgs(pos.ID, pos.CurrentPrice, "open", pgxmock.AnyArg(), pos.ExitPrice, pos.PnL, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdatePosition(context.Background(), pos)
	assert.ErrorContains(t, err, "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenPositions_ScansRows(t *testing.T) {
	repo, mock := newMockRepo(t)
	opened := time.Now().Add(-24 * time.Hour)

	rows := pgxmock.NewRows([]string{
		"id", "portfolio_id", "symbol", "direction", "entry_price", "quantity",
		"stop_loss", "take_profit", "current_price", "status", "exit_reason",
		"exit_price", "pnl", "opened_at", "closed_at",
	}).AddRow("pos-1", "p1", "INFY", "long", decimal.NewFromInt(100), int64(10),
		decimal.NewFromInt(95), decimal.NewFromInt(110), decimal.NewFromInt(101), "open", "",
		decimal.Zero, decimal.Zero, opened, nil)
	mock.ExpectQuery("FROM paper_positions").WithArgs("p1").WillReturnRows(rows)

	positions, err := repo.OpenPositions(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, models.DirectionLong, positions[0].Direction)
	assert.Equal(t, models.PositionOpen, positions[0].Status)
	assert.True(t, positions[0].ClosedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSavePending_MarshalsMetadata(t *testing.T) {
	repo, mock := newMockRepo(t)
	sig := &models.Signal{
		ID:         "sig-1",
		Symbol:     "INFY",
		Direction:  models.DirectionLong,
		EntryPrice: 100,
		StopLoss:   95,
		TakeProfit: 110,
		Quantity:   10,
		Status:     models.SignalStatusPendingApproval,
		Metadata:   map[string]interface{}{"atr": 4.0},
		CreatedAt:  time.Now(),
	}

	mock.ExpectExec("INSERT INTO pending_signals").
		WithArgs(sig.ID, sig.Symbol, "long", sig.EntryPrice, sig.StopLoss, sig.TakeProfit,
			sig.Quantity, sig.RiskReward, sig.Confidence, sig.HoldingDaysEstimate,
			"pending_approval", []byte(`{"atr":4}`), sig.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.SavePending(context.Background(), sig))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPending_UnmarshalsMetadata(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	rows := pgxmock.NewRows([]string{
		"id", "symbol", "direction", "entry_price", "stop_loss", "take_profit", "quantity",
		"risk_reward", "confidence", "holding_days", "status", "metadata", "created_at",
	}).AddRow("sig-1", "INFY", "long", 100.0, 95.0, 110.0, int64(10),
		2.0, 70.0, 8, "pending_approval", []byte(`{"atr":4}`), now)
	mock.ExpectQuery("FROM pending_signals").WithArgs("sig-1").WillReturnRows(rows)

	sig, err := repo.GetPending(context.Background(), "sig-1")
	require.NoError(t, err)
	assert.Equal(t, models.SignalStatusPendingApproval, sig.Status)
	assert.Equal(t, 4.0, sig.Metadata["atr"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkStatus_MissingSignalFails(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE pending_signals").
		WithArgs("missing", "placed").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.MarkStatus(context.Background(), "missing", models.SignalStatusPlaced)
	assert.ErrorContains(t, err, "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}
