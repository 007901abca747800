package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/trademantra/swingtrader-go/internal/config"
	"github.com/trademantra/swingtrader-go/internal/models"
)

// portfolioBook is the in-memory accounting sidecar of one portfolio: the
// running reservation counter and the peak equity watermark. Both are
// recoverable from the ledger and the position store; the book is a cache
// guarded by its own lock so portfolios never contend with each other.
type portfolioBook struct {
	mu         sync.Mutex
	portfolio  *models.Portfolio
	reserved   decimal.Decimal
	peakEquity decimal.Decimal
}

// PaperSimulator owns the virtual portfolio lifecycle: admission, position
// opening with capital reservation, exit evaluation on price ticks, and
// exactly-once close accounting against the append-only ledger.
type PaperSimulator struct {
	cfg       config.PaperConfig
	ledger    *Ledger
	positions PositionStore
	quotes    QuoteSource
	risk      *PaperRiskManager
	notifier  Notifier
	logger    *logrus.Logger

	mu    sync.RWMutex
	books map[string]*portfolioBook

	now func() time.Time
}

func NewPaperSimulator(cfg config.PaperConfig, ledger *Ledger, positions PositionStore, quotes QuoteSource, notifier Notifier, logger *logrus.Logger) *PaperSimulator {
	return &PaperSimulator{
		cfg:       cfg,
		ledger:    ledger,
		positions: positions,
		quotes:    quotes,
		risk:      NewPaperRiskManager(cfg, logger),
		notifier:  notifier,
		logger:    logger,
		books:     make(map[string]*portfolioBook),
		now:       time.Now,
	}
}

// CreatePortfolio registers a new simulated portfolio funded with the
// configured starting capital.
func (s *PaperSimulator) CreatePortfolio(ctx context.Context, name string) (*models.Portfolio, error) {
	initial := decimal.NewFromFloat(s.cfg.StartingCapital)
	p := &models.Portfolio{
		ID:             uuid.NewString(),
		Name:           name,
		InitialCapital: initial,
		CreatedAt:      s.now(),
	}
	s.mu.Lock()
	s.books[p.ID] = &portfolioBook{portfolio: p, peakEquity: initial}
	s.mu.Unlock()
	s.logger.WithFields(logrus.Fields{
		"portfolio_id": p.ID,
		"name":         name,
		"capital":      initial.StringFixed(2),
	}).Info("Paper portfolio created")
	return p, nil
}

// Portfolio returns the registered portfolio by ID.
func (s *PaperSimulator) Portfolio(portfolioID string) (*models.Portfolio, error) {
	book, err := s.book(portfolioID)
	if err != nil {
		return nil, err
	}
	return book.portfolio, nil
}

// Deposit credits additional funds into the portfolio.
func (s *PaperSimulator) Deposit(ctx context.Context, portfolioID string, amount decimal.Decimal, note string) error {
	book, err := s.book(portfolioID)
	if err != nil {
		return err
	}
	book.mu.Lock()
	defer book.mu.Unlock()
	_, err = s.ledger.Credit(ctx, portfolioID, models.ReasonDeposit, amount, "", note)
	return err
}

// OpenFromSignal runs paper admission and, if admitted, opens a position and
// reserves its notional. Admission and reservation happen under the book
// lock so two concurrent signals cannot both spend the same funds.
func (s *PaperSimulator) OpenFromSignal(ctx context.Context, portfolioID string, sig *models.Signal) (*models.PaperPosition, *models.RiskDecision, error) {
	if err := sig.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid signal: %w", err)
	}
	book, err := s.book(portfolioID)
	if err != nil {
		return nil, nil, err
	}

	book.mu.Lock()
	defer book.mu.Unlock()

	state, err := s.stateLocked(ctx, book)
	if err != nil {
		return nil, nil, err
	}

	decision := s.risk.Admit(sig, state)
	if !decision.Allowed {
		s.logger.WithFields(logrus.Fields{
			"portfolio_id": portfolioID,
			"symbol":       sig.Symbol,
			"reasons":      decision.FailureReasons(),
		}).Info("Paper admission rejected signal")
		return nil, decision, nil
	}

	entry := decimal.NewFromFloat(sig.EntryPrice)
	pos := &models.PaperPosition{
		ID:           uuid.NewString(),
		PortfolioID:  portfolioID,
		Symbol:       sig.Symbol,
		Direction:    sig.Direction,
		EntryPrice:   entry,
		Quantity:     sig.Quantity,
		StopLoss:     decimal.NewFromFloat(sig.StopLoss),
		TakeProfit:   decimal.NewFromFloat(sig.TakeProfit),
		CurrentPrice: entry,
		Status:       models.PositionOpen,
		OpenedAt:     s.now(),
	}
	notional := pos.Notional()

	if _, err := s.ledger.Debit(ctx, portfolioID, models.ReasonReserve, notional, pos.ID, "open "+sig.Symbol); err != nil {
		return nil, nil, err
	}
	if err := s.positions.SavePosition(ctx, pos); err != nil {
		// Undo the reservation so the rejected open leaves no residue.
		if _, rerr := s.ledger.Credit(ctx, portfolioID, models.ReasonRelease, notional, pos.ID, "rollback "+sig.Symbol); rerr != nil {
			s.logger.WithError(rerr).Error("Failed to roll back reservation after position save failure")
		}
		return nil, nil, fmt.Errorf("failed to save position: %w", err)
	}
	book.reserved = book.reserved.Add(notional)

	s.logger.WithFields(logrus.Fields{
		"portfolio_id": portfolioID,
		"position_id":  pos.ID,
		"symbol":       pos.Symbol,
		"direction":    pos.Direction,
		"quantity":     pos.Quantity,
		"notional":     notional.StringFixed(2),
	}).Info("Paper position opened")

	return pos, decision, nil
}

// OnTick marks every open position in the symbol to the given price and
// closes any whose exit condition fires. Stop-loss is evaluated before
// take-profit, time exit last.
func (s *PaperSimulator) OnTick(ctx context.Context, symbol string, price decimal.Decimal) error {
	open, err := s.positions.OpenPositionsBySymbol(ctx, symbol)
	if err != nil {
		return fmt.Errorf("failed to load open positions: %w", err)
	}
	now := s.now()
	for _, pos := range open {
		book, err := s.book(pos.PortfolioID)
		if err != nil {
			s.logger.WithError(err).WithField("position_id", pos.ID).Warn("Tick for position with unregistered portfolio")
			continue
		}
		book.mu.Lock()
		pos.CurrentPrice = price
		reason, exit := s.exitReason(pos, price, now)
		if exit {
			err = s.closeLocked(ctx, book, pos, price, reason)
		} else {
			err = s.positions.UpdatePosition(ctx, pos)
		}
		book.mu.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}

// exitReason applies the exit priority order: protective stop first, then
// profit target, then the holding-period limit.
func (s *PaperSimulator) exitReason(pos *models.PaperPosition, price decimal.Decimal, now time.Time) (models.ExitReason, bool) {
	if pos.Direction == models.DirectionLong {
		if price.LessThanOrEqual(pos.StopLoss) {
			return models.ExitStopLoss, true
		}
		if price.GreaterThanOrEqual(pos.TakeProfit) {
			return models.ExitTakeProfit, true
		}
	} else {
		if price.GreaterThanOrEqual(pos.StopLoss) {
			return models.ExitStopLoss, true
		}
		if price.LessThanOrEqual(pos.TakeProfit) {
			return models.ExitTakeProfit, true
		}
	}
	if s.cfg.MaxHoldingDays > 0 {
		limit := time.Duration(s.cfg.MaxHoldingDays) * 24 * time.Hour
		if now.Sub(pos.OpenedAt) >= limit {
			return models.ExitTimeLimit, true
		}
	}
	return "", false
}

// ClosePosition closes a position manually at the latest available quote.
func (s *PaperSimulator) ClosePosition(ctx context.Context, positionID string) (*models.PaperPosition, error) {
	pos, err := s.positions.GetPosition(ctx, positionID)
	if err != nil {
		return nil, err
	}
	price, err := s.quotes.LatestClose(ctx, pos.Symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote for %s: %w", pos.Symbol, err)
	}
	book, err := s.book(pos.PortfolioID)
	if err != nil {
		return nil, err
	}
	book.mu.Lock()
	defer book.mu.Unlock()
	if err := s.closeLocked(ctx, book, pos, price, models.ExitManual); err != nil {
		return nil, err
	}
	return pos, nil
}

// closeLocked performs the exactly-once close accounting: release the
// reserved notional, then write at most one terminal profit/loss entry. A
// breakeven exit writes no terminal entry at all, leaving the ledger a pure
// round trip. Caller holds the book lock.
func (s *PaperSimulator) closeLocked(ctx context.Context, book *portfolioBook, pos *models.PaperPosition, price decimal.Decimal, reason models.ExitReason) error {
	if pos.Status != models.PositionOpen {
		return fmt.Errorf("position %s already closed", pos.ID)
	}
	notional := pos.Notional()
	pnl := pos.UnrealizedPnL(price)

	if _, err := s.ledger.Credit(ctx, pos.PortfolioID, models.ReasonRelease, notional, pos.ID, "close "+pos.Symbol); err != nil {
		return err
	}
	switch {
	case pnl.IsPositive():
		if _, err := s.ledger.Credit(ctx, pos.PortfolioID, models.ReasonProfit, pnl, pos.ID, string(reason)); err != nil {
			return err
		}
	case pnl.IsNegative():
		if _, err := s.ledger.Debit(ctx, pos.PortfolioID, models.ReasonLoss, pnl.Neg(), pos.ID, string(reason)); err != nil {
			return err
		}
	}

	pos.Status = models.PositionClosed
	pos.ExitReason = reason
	pos.ExitPrice = price
	pos.CurrentPrice = price
	pos.PnL = pnl
	pos.ClosedAt = s.now()
	if err := s.positions.UpdatePosition(ctx, pos); err != nil {
		return fmt.Errorf("failed to persist closed position: %w", err)
	}
	book.reserved = book.reserved.Sub(notional)

	s.logger.WithFields(logrus.Fields{
		"portfolio_id": pos.PortfolioID,
		"position_id":  pos.ID,
		"symbol":       pos.Symbol,
		"exit_reason":  reason,
		"exit_price":   price.StringFixed(2),
		"pnl":          pnl.StringFixed(2),
	}).Info("Paper position closed")

	if s.notifier != nil {
		s.notifier.NotifyExit(ctx, pos)
	}
	return nil
}

// State derives the portfolio snapshot from the ledger and the open
// positions.
func (s *PaperSimulator) State(ctx context.Context, portfolioID string) (*models.PortfolioState, error) {
	book, err := s.book(portfolioID)
	if err != nil {
		return nil, err
	}
	book.mu.Lock()
	defer book.mu.Unlock()
	return s.stateLocked(ctx, book)
}

func (s *PaperSimulator) stateLocked(ctx context.Context, book *portfolioBook) (*models.PortfolioState, error) {
	cash, err := s.ledger.Capital(ctx, book.portfolio)
	if err != nil {
		return nil, err
	}
	open, err := s.positions.OpenPositions(ctx, book.portfolio.ID)
	if err != nil {
		return nil, err
	}
	unrealized := decimal.Zero
	for _, pos := range open {
		unrealized = unrealized.Add(pos.UnrealizedPnL(pos.CurrentPrice))
	}

	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	realizedToday, err := s.ledger.RealizedPnLSince(ctx, book.portfolio.ID, dayStart)
	if err != nil {
		return nil, err
	}

	capital := cash.Add(book.reserved)
	equity := capital.Add(unrealized)
	if equity.GreaterThan(book.peakEquity) {
		book.peakEquity = equity
	}
	drawdown := decimal.Zero
	if book.peakEquity.IsPositive() {
		drawdown = book.peakEquity.Sub(equity).Div(book.peakEquity)
	}

	return &models.PortfolioState{
		PortfolioID:    book.portfolio.ID,
		Capital:        capital,
		Reserved:       book.reserved,
		Available:      cash,
		Equity:         equity,
		PeakEquity:     book.peakEquity,
		Drawdown:       drawdown,
		OpenPositions:  len(open),
		RealizedPnLDay: realizedToday,
		UnrealizedPnL:  unrealized,
	}, nil
}

// Reconcile refreshes every open position against the latest quote and
// cross-checks the reservation counter against the sum of open notionals.
// A mismatch is logged, never silently repaired.
func (s *PaperSimulator) Reconcile(ctx context.Context, portfolioID string) (*models.PortfolioState, error) {
	book, err := s.book(portfolioID)
	if err != nil {
		return nil, err
	}
	book.mu.Lock()
	defer book.mu.Unlock()

	open, err := s.positions.OpenPositions(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	expectedReserved := decimal.Zero
	for _, pos := range open {
		price, qerr := s.quotes.LatestClose(ctx, pos.Symbol)
		if qerr != nil {
			s.logger.WithError(qerr).WithField("symbol", pos.Symbol).Warn("Reconcile could not fetch quote, keeping last mark")
		} else {
			pos.CurrentPrice = price
			if uerr := s.positions.UpdatePosition(ctx, pos); uerr != nil {
				return nil, uerr
			}
		}
		expectedReserved = expectedReserved.Add(pos.Notional())
	}
	if !expectedReserved.Equal(book.reserved) {
		s.logger.WithFields(logrus.Fields{
			"portfolio_id":      portfolioID,
			"reserved_counter":  book.reserved.StringFixed(2),
			"open_notional_sum": expectedReserved.StringFixed(2),
		}).Warn("Reservation counter drifted from open position notionals")
	}

	state, err := s.stateLocked(ctx, book)
	if err != nil {
		return nil, err
	}
	state.LastReconciled = s.now()
	return state, nil
}

func (s *PaperSimulator) book(portfolioID string) (*portfolioBook, error) {
	s.mu.RLock()
	book, ok := s.books[portfolioID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("portfolio %s not registered", portfolioID)
	}
	return book, nil
}
