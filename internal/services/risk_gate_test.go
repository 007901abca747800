package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trademantra/swingtrader-go/internal/config"
	"github.com/trademantra/swingtrader-go/internal/models"
)

func gateCfg() config.RiskConfig {
	return config.RiskConfig{
		MaxPositionPct:          0.10,
		MaxTotalExposurePct:     0.50,
		ManualApprovalCount:     2,
		AutoTradingEnabled:      false,
		CircuitBreakerThreshold: 0.5,
		CircuitBreakerWindow:    "1h",
	}
}

func gateSignal() *models.Signal {
	return &models.Signal{
		ID:         "sig-1",
		Symbol:     "INFY",
		Direction:  models.DirectionLong,
		EntryPrice: 100,
		StopLoss:   95,
		TakeProfit: 110,
		Quantity:   10,
	}
}

func TestCircuitBreaker_ZeroOrdersAlwaysPass(t *testing.T) {
	cb := NewOrderCircuitBreaker(time.Hour, 0.5)

	allowed, rate := cb.Allow()
	assert.True(t, allowed)
	assert.Zero(t, rate)
}

func TestCircuitBreaker_TripsAboveThreshold(t *testing.T) {
	cb := NewOrderCircuitBreaker(time.Hour, 0.5)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()

	allowed, rate := cb.Allow()
	assert.False(t, allowed)
	assert.InDelta(t, 2.0/3.0, rate, 1e-9)
}

func TestCircuitBreaker_ThresholdIsInclusive(t *testing.T) {
	cb := NewOrderCircuitBreaker(time.Hour, 0.5)

	cb.RecordFailure()
	cb.RecordSuccess()

	allowed, rate := cb.Allow()
	assert.True(t, allowed, "a rate exactly at the threshold still passes")
	assert.InDelta(t, 0.5, rate, 1e-9)
}

func TestCircuitBreaker_EventsAgeOutOfWindow(t *testing.T) {
	clock := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	cb := NewOrderCircuitBreaker(time.Hour, 0.5)
	cb.now = func() time.Time { return clock }

	cb.RecordFailure()
	cb.RecordFailure()
	allowed, _ := cb.Allow()
	assert.False(t, allowed)

	clock = clock.Add(2 * time.Hour)
	allowed, rate := cb.Allow()
	assert.True(t, allowed, "failures outside the trailing window no longer count")
	assert.Zero(t, rate)
}

func TestEvaluate_ParksFirstTradesForApproval(t *testing.T) {
	g := NewRiskGate(gateCfg(), 100000, &stubBalance{available: 100000})

	outcome, err := g.Evaluate(context.Background(), gateSignal(), testLogger(), false)
	require.NoError(t, err)

	assert.True(t, outcome.Decision.Allowed)
	assert.True(t, outcome.RequiresApproval)
	assert.Equal(t, models.StatePendingApproval, outcome.State)
}

func TestEvaluate_ApprovalQuotaFillsWithExecutions(t *testing.T) {
	g := NewRiskGate(gateCfg(), 100000, &stubBalance{available: 100000})

	g.RecordExecution()
	g.RecordExecution()

	outcome, err := g.Evaluate(context.Background(), gateSignal(), testLogger(), false)
	require.NoError(t, err)
	assert.False(t, outcome.RequiresApproval)
	assert.Equal(t, models.StateApprovalChecked, outcome.State)
}

func TestEvaluate_ExplicitApprovalSkipsQuota(t *testing.T) {
	g := NewRiskGate(gateCfg(), 100000, &stubBalance{available: 100000})

	outcome, err := g.Evaluate(context.Background(), gateSignal(), testLogger(), true)
	require.NoError(t, err)
	assert.False(t, outcome.RequiresApproval)
	assert.Equal(t, models.StateApprovalChecked, outcome.State)
}

func TestEvaluate_AutoTradingBypassesQuota(t *testing.T) {
	cfg := gateCfg()
	cfg.AutoTradingEnabled = true
	g := NewRiskGate(cfg, 100000, &stubBalance{available: 100000})

	outcome, err := g.Evaluate(context.Background(), gateSignal(), testLogger(), false)
	require.NoError(t, err)
	assert.False(t, outcome.RequiresApproval)
	assert.Equal(t, models.StateApprovalChecked, outcome.State)
}

func TestEvaluate_InsufficientBalanceShortCircuits(t *testing.T) {
	g := NewRiskGate(gateCfg(), 100000, &stubBalance{available: 500})

	outcome, err := g.Evaluate(context.Background(), gateSignal(), testLogger(), false)
	require.NoError(t, err)

	assert.False(t, outcome.Decision.Allowed)
	assert.Equal(t, models.StateRejected, outcome.State)
	require.Len(t, outcome.Decision.Checks, 1, "nothing runs after the first failure")
	assert.Equal(t, "balance", outcome.Decision.Checks[0].Name)
}

func TestEvaluate_PositionSizeLimit(t *testing.T) {
	g := NewRiskGate(gateCfg(), 100000, &stubBalance{available: 100000})
	sig := gateSignal()
	sig.Quantity = 200 // notional 20000 against the 10000 cap

	outcome, err := g.Evaluate(context.Background(), sig, testLogger(), false)
	require.NoError(t, err)

	assert.False(t, outcome.Decision.Allowed)
	last := outcome.Decision.Checks[len(outcome.Decision.Checks)-1]
	assert.Equal(t, "position_size", last.Name)
}

func TestEvaluate_ExposureIncludesOpenOrders(t *testing.T) {
	g := NewRiskGate(gateCfg(), 100000, &stubBalance{available: 100000, openNotional: 49500})

	outcome, err := g.Evaluate(context.Background(), gateSignal(), testLogger(), false)
	require.NoError(t, err)

	assert.False(t, outcome.Decision.Allowed)
	last := outcome.Decision.Checks[len(outcome.Decision.Checks)-1]
	assert.Equal(t, "total_exposure", last.Name)
}

func TestEvaluate_TrippedBreakerRejects(t *testing.T) {
	g := NewRiskGate(gateCfg(), 100000, &stubBalance{available: 100000})
	g.Breaker().RecordFailure()
	g.Breaker().RecordFailure()
	g.Breaker().RecordSuccess()

	outcome, err := g.Evaluate(context.Background(), gateSignal(), testLogger(), true)
	require.NoError(t, err)

	assert.False(t, outcome.Decision.Allowed)
	assert.Equal(t, models.StateRejected, outcome.State)
	last := outcome.Decision.Checks[len(outcome.Decision.Checks)-1]
	assert.Equal(t, "circuit_breaker", last.Name)
}

func TestEvaluate_BalanceProviderErrorIsAnError(t *testing.T) {
	g := NewRiskGate(gateCfg(), 100000, &stubBalance{availableErr: errors.New("broker down")})

	outcome, err := g.Evaluate(context.Background(), gateSignal(), testLogger(), false)
	assert.Error(t, err, "a dead balance feed is an operational failure, not a risk rejection")
	assert.Nil(t, outcome)
}

func TestEvaluate_MissingBalanceProviderIsAnError(t *testing.T) {
	g := NewRiskGate(gateCfg(), 100000, nil)

	outcome, err := g.Evaluate(context.Background(), gateSignal(), testLogger(), false)
	assert.Error(t, err)
	assert.Nil(t, outcome)
}
