package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/trademantra/swingtrader-go/internal/models"
)

const (
	quoteTTL  = 30 * time.Second
	seriesTTL = 5 * time.Minute
)

// quoteBackend is the source of truth a cache miss falls through to.
type quoteBackend interface {
	LatestClose(ctx context.Context, symbol string) (decimal.Decimal, error)
}

type seriesBackend interface {
	LoadSeries(ctx context.Context, symbol string, interval models.Interval, limit int) (*models.CandleSeries, error)
}

// MarketCache fronts the candle repository with short-lived Redis entries.
// The reconciliation loop polls quotes far more often than they change; the
// cache absorbs that. A Redis failure degrades to the backend, it never
// fails a read.
type MarketCache struct {
	client *redis.Client
	quotes quoteBackend
	series seriesBackend
	logger *logrus.Logger
}

func NewMarketCache(client *redis.Client, quotes quoteBackend, series seriesBackend, logger *logrus.Logger) *MarketCache {
	return &MarketCache{client: client, quotes: quotes, series: series, logger: logger}
}

func (c *MarketCache) LatestClose(ctx context.Context, symbol string) (decimal.Decimal, error) {
	key := fmt.Sprintf("quote:%s", symbol)
	if cached, err := c.client.Get(ctx, key).Result(); err == nil {
		if price, derr := decimal.NewFromString(cached); derr == nil {
			return price, nil
		}
	} else if err != redis.Nil {
		c.logger.WithError(err).Debug("Quote cache read failed, falling through")
	}

	price, err := c.quotes.LatestClose(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	if err := c.client.Set(ctx, key, price.String(), quoteTTL).Err(); err != nil {
		c.logger.WithError(err).Debug("Quote cache write failed")
	}
	return price, nil
}

func (c *MarketCache) LoadSeries(ctx context.Context, symbol string, interval models.Interval, limit int) (*models.CandleSeries, error) {
	key := fmt.Sprintf("series:%s:%s:%d", symbol, interval, limit)
	if cached, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var series models.CandleSeries
		if jerr := json.Unmarshal(cached, &series); jerr == nil {
			return &series, nil
		}
	} else if err != redis.Nil {
		c.logger.WithError(err).Debug("Series cache read failed, falling through")
	}

	series, err := c.series.LoadSeries(ctx, symbol, interval, limit)
	if err != nil {
		return nil, err
	}
	if payload, jerr := json.Marshal(series); jerr == nil {
		if serr := c.client.Set(ctx, key, payload, seriesTTL).Err(); serr != nil {
			c.logger.WithError(serr).Debug("Series cache write failed")
		}
	}
	return series, nil
}

// Invalidate drops the cached series for a symbol after fresh candles land.
func (c *MarketCache) Invalidate(ctx context.Context, symbol string) error {
	iter := c.client.Scan(ctx, 0, fmt.Sprintf("series:%s:*", symbol), 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan series keys: %w", err)
	}
	keys = append(keys, fmt.Sprintf("quote:%s", symbol))
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cache for %s: %w", symbol, err)
	}
	return nil
}
