package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/trademantra/swingtrader-go/internal/config"
	"github.com/trademantra/swingtrader-go/internal/models"
)

// orderEvent is one live order outcome inside the breaker's trailing window.
type orderEvent struct {
	at     time.Time
	failed bool
}

// OrderCircuitBreaker tracks live order outcomes over a trailing window and
// trips when the failure ratio breaches the threshold. With zero orders in
// the window it always passes; there is nothing to divide by and nothing to
// protect against.
type OrderCircuitBreaker struct {
	mu        sync.Mutex
	window    time.Duration
	threshold float64
	events    []orderEvent
	now       func() time.Time
}

func NewOrderCircuitBreaker(window time.Duration, threshold float64) *OrderCircuitBreaker {
	if window <= 0 {
		window = time.Hour
	}
	if threshold <= 0 {
		threshold = 0.5
	}
	return &OrderCircuitBreaker{window: window, threshold: threshold, now: time.Now}
}

func (cb *OrderCircuitBreaker) RecordSuccess() { cb.record(false) }
func (cb *OrderCircuitBreaker) RecordFailure() { cb.record(true) }

func (cb *OrderCircuitBreaker) record(failed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.events = append(cb.events, orderEvent{at: cb.now(), failed: failed})
	cb.pruneLocked()
}

// Allow snapshots the window under the lock so one admission sees one
// consistent failure rate.
func (cb *OrderCircuitBreaker) Allow() (bool, float64) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.pruneLocked()
	total := len(cb.events)
	if total == 0 {
		return true, 0
	}
	failed := 0
	for _, e := range cb.events {
		if e.failed {
			failed++
		}
	}
	rate := float64(failed) / float64(total)
	return rate <= cb.threshold, rate
}

func (cb *OrderCircuitBreaker) pruneLocked() {
	cutoff := cb.now().Add(-cb.window)
	i := 0
	for i < len(cb.events) && cb.events[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		cb.events = append([]orderEvent(nil), cb.events[i:]...)
	}
}

// GateOutcome is the result of running the live admission chain.
type GateOutcome struct {
	Decision         *models.RiskDecision
	State            models.ExecutionState
	RequiresApproval bool
}

// RiskGate runs the live admission checks in their fixed order. The first
// failure terminates the chain; the approval quota is not a failure but a
// detour into the pending-approval state.
type RiskGate struct {
	cfg     config.RiskConfig
	capital float64
	balance BalanceProvider
	breaker *OrderCircuitBreaker

	mu       sync.Mutex
	executed int
}

func NewRiskGate(cfg config.RiskConfig, capital float64, balance BalanceProvider) *RiskGate {
	window := time.Hour
	if cfg.CircuitBreakerWindow != "" {
		if d, err := time.ParseDuration(cfg.CircuitBreakerWindow); err == nil {
			window = d
		}
	}
	return &RiskGate{
		cfg:     cfg,
		capital: capital,
		balance: balance,
		breaker: NewOrderCircuitBreaker(window, cfg.CircuitBreakerThreshold),
	}
}

// Breaker exposes the circuit breaker so the execution path can record
// order outcomes.
func (g *RiskGate) Breaker() *OrderCircuitBreaker { return g.breaker }

// RecordExecution counts one executed live trade toward the approval quota.
func (g *RiskGate) RecordExecution() {
	g.mu.Lock()
	g.executed++
	g.mu.Unlock()
}

// ExecutedTrades returns the lifetime executed live trade count.
func (g *RiskGate) ExecutedTrades() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.executed
}

// Evaluate runs checks 2-6 of the admission chain (shape validation is the
// router's first state). skipApproval is set when an operator has already
// approved the signal explicitly.
func (g *RiskGate) Evaluate(ctx context.Context, sig *models.Signal, logger *logrus.Logger, skipApproval bool) (*GateOutcome, error) {
	if g.balance == nil {
		return nil, fmt.Errorf("live execution requires a balance provider")
	}
	decision := &models.RiskDecision{Allowed: true}
	outcome := &GateOutcome{Decision: decision}
	notional := sig.Notional()

	available, err := g.balance.AvailableBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch account balance: %w", err)
	}
	if available < notional {
		decision.Fail("balance", fmt.Sprintf("order notional %.2f exceeds available balance %.2f", notional, available))
		outcome.State = models.StateRejected
		return outcome, nil
	}
	decision.Pass("balance")

	maxPosition := g.capital * g.cfg.MaxPositionPct
	if notional > maxPosition {
		decision.Fail("position_size", fmt.Sprintf("order notional %.2f exceeds max position size %.2f", notional, maxPosition))
		outcome.State = models.StateRejected
		return outcome, nil
	}
	decision.Pass("position_size")

	openNotional, err := g.balance.OpenOrdersNotional(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch open order notional: %w", err)
	}
	maxExposure := g.capital * g.cfg.MaxTotalExposurePct
	if openNotional+notional > maxExposure {
		decision.Fail("total_exposure", fmt.Sprintf("open notional %.2f plus order %.2f exceeds exposure limit %.2f",
			openNotional, notional, maxExposure))
		outcome.State = models.StateRejected
		return outcome, nil
	}
	decision.Pass("total_exposure")
	outcome.State = models.StateRiskChecked

	allowed, rate := g.breaker.Allow()
	if !allowed {
		decision.Fail("circuit_breaker", fmt.Sprintf("live order failure rate %.0f%% over trailing window", rate*100))
		outcome.State = models.StateRejected
		return outcome, nil
	}
	decision.Pass("circuit_breaker")
	outcome.State = models.StateCircuitChecked

	if !skipApproval && !g.cfg.AutoTradingEnabled && g.ExecutedTrades() < g.cfg.ManualApprovalCount {
		decision.Pass("approval_quota")
		outcome.RequiresApproval = true
		outcome.State = models.StatePendingApproval
		logger.WithFields(logrus.Fields{
			"symbol":   sig.Symbol,
			"executed": g.ExecutedTrades(),
			"quota":    g.cfg.ManualApprovalCount,
		}).Info("Signal parked for manual approval")
		return outcome, nil
	}
	decision.Pass("approval_quota")
	outcome.State = models.StateApprovalChecked
	return outcome, nil
}
