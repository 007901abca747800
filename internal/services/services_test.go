package services

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/trademantra/swingtrader-go/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type stubQuotes struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
	err    error
}

func newStubQuotes() *stubQuotes {
	return &stubQuotes{prices: make(map[string]decimal.Decimal)}
}

func (q *stubQuotes) set(symbol string, price decimal.Decimal) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.prices[symbol] = price
}

func (q *stubQuotes) LatestClose(ctx context.Context, symbol string) (decimal.Decimal, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return decimal.Zero, q.err
	}
	price, ok := q.prices[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("no quote for %s", symbol)
	}
	return price, nil
}

// recordingNotifier counts deliveries per channel.
type recordingNotifier struct {
	mu      sync.Mutex
	signals []string
	pending []string
	large   []string
	exits   []string
}

func (n *recordingNotifier) NotifySignal(ctx context.Context, sig *models.Signal) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.signals = append(n.signals, sig.Symbol)
}

func (n *recordingNotifier) NotifyPendingApproval(ctx context.Context, sig *models.Signal) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending = append(n.pending, sig.Symbol)
}

func (n *recordingNotifier) NotifyLargeOrder(ctx context.Context, sig *models.Signal) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.large = append(n.large, sig.Symbol)
}

func (n *recordingNotifier) NotifyExit(ctx context.Context, pos *models.PaperPosition) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.exits = append(n.exits, pos.Symbol)
}

type stubBalance struct {
	available    float64
	openNotional float64
	availableErr error
	openErr      error
}

func (b *stubBalance) AvailableBalance(ctx context.Context) (float64, error) {
	return b.available, b.availableErr
}

func (b *stubBalance) OpenOrdersNotional(ctx context.Context) (float64, error) {
	return b.openNotional, b.openErr
}

type stubPlacer struct {
	mu     sync.Mutex
	result *OrderResult
	err    error
	calls  int
}

func (p *stubPlacer) PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.result, p.err
}

type advisorFunc func(ctx context.Context, sig *models.Signal) models.Advisory

func (f advisorFunc) Review(ctx context.Context, sig *models.Signal) models.Advisory {
	return f(ctx, sig)
}

// failingPositionStore fails every save; the rest delegates to MemoryStore.
type failingPositionStore struct {
	*MemoryStore
	saveErr error
}

func (f *failingPositionStore) SavePosition(ctx context.Context, pos *models.PaperPosition) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.MemoryStore.SavePosition(ctx, pos)
}
