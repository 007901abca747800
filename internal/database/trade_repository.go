package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/trademantra/swingtrader-go/internal/models"
)

// TradeRepository persists the trading entities: append-only ledger
// entries, paper positions, and pending signals. It implements the service
// layer's LedgerStore, PositionStore and PendingSignalStore interfaces.
type TradeRepository struct {
	pool Pool
}

func NewTradeRepository(pool Pool) *TradeRepository {
	return &TradeRepository{pool: pool}
}

// AppendEntry inserts a ledger entry. There is no update path; the table is
// append-only.
func (r *TradeRepository) AppendEntry(ctx context.Context, entry models.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (id, portfolio_id, entry_type, reason, amount, position_id, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
	`
	_, err := r.pool.Exec(ctx, query,
		entry.ID, entry.PortfolioID, string(entry.Type), string(entry.Reason),
		entry.Amount, nullable(entry.PositionID), entry.Note, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

func (r *TradeRepository) Entries(ctx context.Context, portfolioID string) ([]models.LedgerEntry, error) {
	query := `
		SELECT id, portfolio_id, entry_type, reason, amount, COALESCE(position_id::text, ''), COALESCE(note, ''), created_at
		FROM ledger_entries
		WHERE portfolio_id = $1
		ORDER BY created_at ASC
	`
	return r.scanEntries(ctx, query, portfolioID)
}

func (r *TradeRepository) EntriesSince(ctx context.Context, portfolioID string, since time.Time) ([]models.LedgerEntry, error) {
	query := `
		SELECT id, portfolio_id, entry_type, reason, amount, COALESCE(position_id::text, ''), COALESCE(note, ''), created_at
		FROM ledger_entries
		WHERE portfolio_id = $1 AND created_at >= $2
		ORDER BY created_at ASC
	`
	return r.scanEntries(ctx, query, portfolioID, since)
}

func (r *TradeRepository) scanEntries(ctx context.Context, query string, args ...interface{}) ([]models.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		var entryType, reason string
		if err := rows.Scan(&e.ID, &e.PortfolioID, &entryType, &reason, &e.Amount, &e.PositionID, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		e.Type = models.EntryType(entryType)
		e.Reason = models.EntryReason(reason)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger entry iteration failed: %w", err)
	}
	return entries, nil
}

func (r *TradeRepository) SavePosition(ctx context.Context, pos *models.PaperPosition) error {
	query := `
		INSERT INTO paper_positions
			(id, portfolio_id, symbol, direction, entry_price, quantity, stop_loss, take_profit,
			 current_price, status, exit_reason, exit_price, pnl, opened_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), $12, $13, $14, $15)
	`
	_, err := r.pool.Exec(ctx, query,
		pos.ID, pos.PortfolioID, pos.Symbol, string(pos.Direction),
		pos.EntryPrice, pos.Quantity, pos.StopLoss, pos.TakeProfit,
		pos.CurrentPrice, string(pos.Status), string(pos.ExitReason),
		pos.ExitPrice, pos.PnL, pos.OpenedAt, nullableTime(pos.ClosedAt))
	if err != nil {
		return fmt.Errorf("failed to save position: %w", err)
	}
	return nil
}

func (r *TradeRepository) UpdatePosition(ctx context.Context, pos *models.PaperPosition) error {
	query := `
		UPDATE paper_positions
		SET current_price = $2, status = $3, exit_reason = NULLIF($4, ''),
			exit_price = $5, pnl = $6, closed_at = $7
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		pos.ID, pos.CurrentPrice, string(pos.Status), string(pos.ExitReason),
		pos.ExitPrice, pos.PnL, nullableTime(pos.ClosedAt))
	if err != nil {
		return fmt.Errorf("failed to update position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("position %s not found", pos.ID)
	}
	return nil
}

func (r *TradeRepository) GetPosition(ctx context.Context, id string) (*models.PaperPosition, error) {
	query := positionSelect + ` WHERE id = $1`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query position: %w", err)
	}
	defer rows.Close()
	positions, err := scanPositions(rows)
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 {
		return nil, fmt.Errorf("position %s not found", id)
	}
	return positions[0], nil
}

func (r *TradeRepository) OpenPositions(ctx context.Context, portfolioID string) ([]*models.PaperPosition, error) {
	query := positionSelect + ` WHERE portfolio_id = $1 AND status = 'open' ORDER BY opened_at ASC`
	rows, err := r.pool.Query(ctx, query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query open positions: %w", err)
	}
	defer rows.Close()
	return scanPositions(rows)
}

func (r *TradeRepository) OpenPositionsBySymbol(ctx context.Context, symbol string) ([]*models.PaperPosition, error) {
	query := positionSelect + ` WHERE symbol = $1 AND status = 'open' ORDER BY opened_at ASC`
	rows, err := r.pool.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query open positions by symbol: %w", err)
	}
	defer rows.Close()
	return scanPositions(rows)
}

const positionSelect = `
	SELECT id, portfolio_id, symbol, direction, entry_price, quantity, stop_loss, take_profit,
		current_price, status, COALESCE(exit_reason, ''), exit_price, pnl, opened_at, closed_at
	FROM paper_positions
`

func scanPositions(rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}) ([]*models.PaperPosition, error) {
	var positions []*models.PaperPosition
	for rows.Next() {
		var p models.PaperPosition
		var direction, status, exitReason string
		var closedAt sql.NullTime
		if err := rows.Scan(&p.ID, &p.PortfolioID, &p.Symbol, &direction, &p.EntryPrice, &p.Quantity,
			&p.StopLoss, &p.TakeProfit, &p.CurrentPrice, &status, &exitReason,
			&p.ExitPrice, &p.PnL, &p.OpenedAt, &closedAt); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		p.Direction = models.Direction(direction)
		p.Status = models.PositionStatus(status)
		p.ExitReason = models.ExitReason(exitReason)
		if closedAt.Valid {
			p.ClosedAt = closedAt.Time
		}
		positions = append(positions, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("position iteration failed: %w", err)
	}
	return positions, nil
}

func (r *TradeRepository) SavePending(ctx context.Context, sig *models.Signal) error {
	metadata, err := json.Marshal(sig.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal signal metadata: %w", err)
	}
	query := `
		INSERT INTO pending_signals
			(id, symbol, direction, entry_price, stop_loss, take_profit, quantity,
			 risk_reward, confidence, holding_days, status, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status
	`
	_, err = r.pool.Exec(ctx, query,
		sig.ID, sig.Symbol, string(sig.Direction), sig.EntryPrice, sig.StopLoss, sig.TakeProfit,
		sig.Quantity, sig.RiskReward, sig.Confidence, sig.HoldingDaysEstimate,
		string(sig.Status), metadata, sig.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save pending signal: %w", err)
	}
	return nil
}

func (r *TradeRepository) GetPending(ctx context.Context, id string) (*models.Signal, error) {
	query := pendingSelect + ` WHERE id = $1`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending signal: %w", err)
	}
	defer rows.Close()
	signals, err := scanSignals(rows)
	if err != nil {
		return nil, err
	}
	if len(signals) == 0 {
		return nil, fmt.Errorf("pending signal %s not found", id)
	}
	return signals[0], nil
}

func (r *TradeRepository) ListPending(ctx context.Context) ([]*models.Signal, error) {
	query := pendingSelect + ` WHERE status = 'pending_approval' ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending signals: %w", err)
	}
	defer rows.Close()
	return scanSignals(rows)
}

func (r *TradeRepository) MarkStatus(ctx context.Context, id string, status models.SignalStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE pending_signals SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to update signal status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pending signal %s not found", id)
	}
	return nil
}

const pendingSelect = `
	SELECT id, symbol, direction, entry_price, stop_loss, take_profit, quantity,
		risk_reward, confidence, holding_days, status, metadata, created_at
	FROM pending_signals
`

func scanSignals(rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}) ([]*models.Signal, error) {
	var signals []*models.Signal
	for rows.Next() {
		var s models.Signal
		var direction, status string
		var metadata []byte
		if err := rows.Scan(&s.ID, &s.Symbol, &direction, &s.EntryPrice, &s.StopLoss, &s.TakeProfit,
			&s.Quantity, &s.RiskReward, &s.Confidence, &s.HoldingDaysEstimate,
			&status, &metadata, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pending signal: %w", err)
		}
		s.Direction = models.Direction(direction)
		s.Status = models.SignalStatus(status)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &s.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal signal metadata: %w", err)
			}
		}
		signals = append(signals, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pending signal iteration failed: %w", err)
	}
	return signals, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
