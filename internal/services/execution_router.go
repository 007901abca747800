package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/trademantra/swingtrader-go/internal/config"
	"github.com/trademantra/swingtrader-go/internal/models"
)

// ExecutionResult is the terminal outcome of routing one signal.
type ExecutionResult struct {
	State    models.ExecutionState `json:"state"`
	Decision *models.RiskDecision  `json:"decision,omitempty"`
	Order    *OrderResult          `json:"order,omitempty"`
	Position *models.PaperPosition `json:"position,omitempty"`
	Advisory *models.Advisory      `json:"advisory,omitempty"`
}

// ExecutionRouter walks an admitted signal through the execution state
// machine and dispatches it to either the live order path or the paper
// simulator. Paper mode keeps shape validation but hands admission to the
// simulator's own risk manager.
type ExecutionRouter struct {
	gate        *RiskGate
	placer      OrderPlacer
	simulator   *PaperSimulator
	pending     PendingSignalStore
	notifier    Notifier
	advisor     TradeAdvisor
	cfg         config.RiskConfig
	capital     float64
	paperMode   bool
	portfolioID string
	logger      *logrus.Logger
}

func NewExecutionRouter(gate *RiskGate, placer OrderPlacer, simulator *PaperSimulator, pending PendingSignalStore, notifier Notifier, advisor TradeAdvisor, cfg config.RiskConfig, capital float64, logger *logrus.Logger) *ExecutionRouter {
	return &ExecutionRouter{
		gate:      gate,
		placer:    placer,
		simulator: simulator,
		pending:   pending,
		notifier:  notifier,
		advisor:   advisor,
		cfg:       cfg,
		capital:   capital,
		logger:    logger,
	}
}

// EnablePaperMode routes all admitted signals into the given paper
// portfolio instead of the live order path.
func (r *ExecutionRouter) EnablePaperMode(portfolioID string) {
	r.paperMode = true
	r.portfolioID = portfolioID
}

// Execute runs the state machine for one signal. Checks short-circuit on
// the first failure; the returned decision carries every check that ran.
func (r *ExecutionRouter) Execute(ctx context.Context, sig *models.Signal) (*ExecutionResult, error) {
	if err := sig.Validate(); err != nil {
		decision := &models.RiskDecision{}
		decision.Fail("shape", err.Error())
		sig.Status = models.SignalStatusRejected
		r.logger.WithError(err).WithField("symbol", sig.Symbol).Warn("Signal failed shape validation")
		return &ExecutionResult{State: models.StateRejected, Decision: decision}, nil
	}

	r.notifyLargeOrder(ctx, sig)

	if r.paperMode {
		return r.executePaper(ctx, sig)
	}
	return r.executeLive(ctx, sig, false)
}

func (r *ExecutionRouter) executePaper(ctx context.Context, sig *models.Signal) (*ExecutionResult, error) {
	pos, decision, err := r.simulator.OpenFromSignal(ctx, r.portfolioID, sig)
	if err != nil {
		return nil, fmt.Errorf("paper execution failed: %w", err)
	}
	if pos == nil {
		sig.Status = models.SignalStatusRejected
		return &ExecutionResult{State: models.StateRejected, Decision: decision}, nil
	}
	sig.Status = models.SignalStatusPlaced
	if r.notifier != nil {
		r.notifier.NotifySignal(ctx, sig)
	}
	return &ExecutionResult{State: models.StatePlaced, Decision: decision, Position: pos}, nil
}

func (r *ExecutionRouter) executeLive(ctx context.Context, sig *models.Signal, approved bool) (*ExecutionResult, error) {
	var advisory models.Advisory
	if r.advisor != nil {
		advisory = r.advisor.Review(ctx, sig)
		r.applyAdvisory(sig, advisory)
	}

	outcome, err := r.gate.Evaluate(ctx, sig, r.logger, approved)
	if err != nil {
		return nil, err
	}
	result := &ExecutionResult{State: outcome.State, Decision: outcome.Decision}
	if r.advisor != nil {
		result.Advisory = &advisory
	}

	if !outcome.Decision.Allowed {
		sig.Status = models.SignalStatusRejected
		r.logger.WithFields(logrus.Fields{
			"symbol":  sig.Symbol,
			"reasons": outcome.Decision.FailureReasons(),
		}).Warn("Signal rejected by risk gate")
		return result, nil
	}

	// block_auto can only ever add friction: an otherwise-admitted signal
	// detours into manual review.
	if outcome.RequiresApproval || (!approved && advisory.Level == models.AdvisoryBlockAuto) {
		result.State = models.StatePendingApproval
		return result, r.parkForApproval(ctx, sig)
	}

	return r.placeLive(ctx, sig, result)
}

func (r *ExecutionRouter) placeLive(ctx context.Context, sig *models.Signal, result *ExecutionResult) (*ExecutionResult, error) {
	if r.placer == nil {
		return result, fmt.Errorf("live execution requires an order placer")
	}
	order, err := r.placer.PlaceOrder(ctx, OrderRequest{
		Symbol:    sig.Symbol,
		Direction: sig.Direction,
		Quantity:  sig.Quantity,
		OrderType: "LIMIT",
		ClientID:  sig.ID,
	})
	if err != nil || !order.Success {
		r.gate.Breaker().RecordFailure()
		sig.Status = models.SignalStatusRejected
		result.State = models.StateRejected
		result.Order = order
		if err != nil {
			r.logger.WithError(err).WithField("symbol", sig.Symbol).Error("Order placement failed")
			return result, fmt.Errorf("order placement failed: %w", err)
		}
		r.logger.WithFields(logrus.Fields{
			"symbol": sig.Symbol,
			"error":  order.Error,
		}).Error("Broker rejected order")
		return result, nil
	}

	r.gate.Breaker().RecordSuccess()
	r.gate.RecordExecution()
	sig.Status = models.SignalStatusPlaced
	result.State = models.StatePlaced
	result.Order = order
	if r.notifier != nil {
		r.notifier.NotifySignal(ctx, sig)
	}
	r.logger.WithFields(logrus.Fields{
		"symbol":   sig.Symbol,
		"order_id": order.OrderID,
		"quantity": sig.Quantity,
	}).Info("Live order placed")
	return result, nil
}

func (r *ExecutionRouter) parkForApproval(ctx context.Context, sig *models.Signal) error {
	sig.Status = models.SignalStatusPendingApproval
	if err := r.pending.SavePending(ctx, sig); err != nil {
		return fmt.Errorf("failed to persist pending signal: %w", err)
	}
	if r.notifier != nil {
		r.notifier.NotifyPendingApproval(ctx, sig)
	}
	return nil
}

// Approve executes a previously parked signal after explicit operator
// action. The risk checks rerun against current state; only the approval
// quota is waived.
func (r *ExecutionRouter) Approve(ctx context.Context, signalID string) (*ExecutionResult, error) {
	sig, err := r.pending.GetPending(ctx, signalID)
	if err != nil {
		return nil, err
	}
	if sig.Status != models.SignalStatusPendingApproval {
		return nil, fmt.Errorf("signal %s is not pending approval", signalID)
	}

	var result *ExecutionResult
	if r.paperMode {
		result, err = r.executePaper(ctx, sig)
	} else {
		result, err = r.executeLive(ctx, sig, true)
	}
	if err != nil {
		return result, err
	}
	if merr := r.pending.MarkStatus(ctx, signalID, sig.Status); merr != nil {
		r.logger.WithError(merr).WithField("signal_id", signalID).Error("Failed to update pending signal status")
	}
	return result, nil
}

// notifyLargeOrder fires the oversized-order alert. It is a side effect,
// never a gate.
func (r *ExecutionRouter) notifyLargeOrder(ctx context.Context, sig *models.Signal) {
	if r.notifier == nil || r.cfg.LargeOrderPct <= 0 || r.capital <= 0 {
		return
	}
	if sig.Notional() > r.capital*r.cfg.LargeOrderPct {
		r.notifier.NotifyLargeOrder(ctx, sig)
	}
}

func (r *ExecutionRouter) applyAdvisory(sig *models.Signal, advisory models.Advisory) {
	if advisory.Level == models.AdvisoryUnavailable {
		return
	}
	sig.Confidence += float64(advisory.ConfidenceAdjustment)
	if sig.Confidence < 0 {
		sig.Confidence = 0
	}
	if sig.Confidence > 100 {
		sig.Confidence = 100
	}
	if sig.Metadata == nil {
		sig.Metadata = map[string]interface{}{}
	}
	sig.Metadata["advisory_level"] = string(advisory.Level)
	if advisory.Notes != "" {
		sig.Metadata["advisory_notes"] = advisory.Notes
	}
}
