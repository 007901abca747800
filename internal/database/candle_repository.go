package database

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/trademantra/swingtrader-go/internal/models"
)

// CandleRepository reads OHLCV history. Ingestion upserts with
// last-write-wins on duplicate timestamps, so the series invariant of
// strictly increasing timestamps holds by construction.
type CandleRepository struct {
	pool Pool
}

func NewCandleRepository(pool Pool) *CandleRepository {
	return &CandleRepository{pool: pool}
}

// LoadSeries returns the most recent limit candles in chronological order.
func (r *CandleRepository) LoadSeries(ctx context.Context, symbol string, interval models.Interval, limit int) (*models.CandleSeries, error) {
	query := `
		SELECT ts, open, high, low, close, volume
		FROM (
			SELECT ts, open, high, low, close, volume
			FROM candles
			WHERE symbol = $1 AND interval = $2
			ORDER BY ts DESC
			LIMIT $3
		) recent
		ORDER BY ts ASC
	`
	rows, err := r.pool.Query(ctx, query, symbol, string(interval), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query candles for %s/%s: %w", symbol, interval, err)
	}
	defer rows.Close()

	var candles []models.Candle
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan candle row: %w", err)
		}
		candles = append(candles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("candle row iteration failed: %w", err)
	}

	return models.NewCandleSeries(symbol, interval, candles)
}

// UpsertCandle stores one bar, last write winning on timestamp collisions.
func (r *CandleRepository) UpsertCandle(ctx context.Context, symbol string, interval models.Interval, c models.Candle) error {
	query := `
		INSERT INTO candles (symbol, interval, ts, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, interval, ts)
		DO UPDATE SET open = EXCLUDED.open, high = EXCLUDED.high,
			low = EXCLUDED.low, close = EXCLUDED.close, volume = EXCLUDED.volume
	`
	_, err := r.pool.Exec(ctx, query, symbol, string(interval), c.Timestamp, c.Open, c.High, c.Low, c.Close, c.Volume)
	if err != nil {
		return fmt.Errorf("failed to upsert candle for %s/%s: %w", symbol, interval, err)
	}
	return nil
}

// LatestClose returns the most recent daily close for a symbol.
func (r *CandleRepository) LatestClose(ctx context.Context, symbol string) (decimal.Decimal, error) {
	query := `
		SELECT close FROM candles
		WHERE symbol = $1 AND interval = $2
		ORDER BY ts DESC
		LIMIT 1
	`
	var close float64
	if err := r.pool.QueryRow(ctx, query, symbol, string(models.IntervalDay)).Scan(&close); err != nil {
		return decimal.Zero, fmt.Errorf("failed to fetch latest close for %s: %w", symbol, err)
	}
	return decimal.NewFromFloat(close), nil
}
