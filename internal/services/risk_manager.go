package services

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/trademantra/swingtrader-go/internal/config"
	"github.com/trademantra/swingtrader-go/internal/models"
)

// PaperRiskManager runs the admission checks for the simulated portfolio.
// Checks run in a fixed order and short-circuit on the first failure, so a
// rejected decision records every passing check up to exactly one failure.
type PaperRiskManager struct {
	cfg    config.PaperConfig
	logger *logrus.Logger
}

func NewPaperRiskManager(cfg config.PaperConfig, logger *logrus.Logger) *PaperRiskManager {
	return &PaperRiskManager{cfg: cfg, logger: logger}
}

// Admit evaluates a signal against the portfolio's derived state. It never
// mutates anything; reservation happens in the simulator under its lock.
func (rm *PaperRiskManager) Admit(sig *models.Signal, state *models.PortfolioState) *models.RiskDecision {
	decision := &models.RiskDecision{Allowed: true}
	notional := decimal.NewFromFloat(sig.Notional())

	if state.Available.LessThan(notional) {
		decision.Fail("available_funds", fmt.Sprintf("order notional %s exceeds available funds %s",
			notional.StringFixed(2), state.Available.StringFixed(2)))
		return decision
	}
	decision.Pass("available_funds")

	maxPosition := state.Capital.Mul(decimal.NewFromFloat(rm.cfg.MaxPositionPct))
	if notional.GreaterThan(maxPosition) {
		decision.Fail("position_size", fmt.Sprintf("order notional %s exceeds per-position limit %s",
			notional.StringFixed(2), maxPosition.StringFixed(2)))
		return decision
	}
	decision.Pass("position_size")

	maxExposure := state.Capital.Mul(decimal.NewFromFloat(rm.cfg.MaxExposurePct))
	if state.Reserved.Add(notional).GreaterThan(maxExposure) {
		decision.Fail("total_exposure", fmt.Sprintf("reserved %s plus order %s exceeds exposure limit %s",
			state.Reserved.StringFixed(2), notional.StringFixed(2), maxExposure.StringFixed(2)))
		return decision
	}
	decision.Pass("total_exposure")

	if rm.cfg.MaxOpenPositions > 0 && state.OpenPositions >= rm.cfg.MaxOpenPositions {
		decision.Fail("open_positions", fmt.Sprintf("open position count %d at limit %d",
			state.OpenPositions, rm.cfg.MaxOpenPositions))
		return decision
	}
	decision.Pass("open_positions")

	// Only terminal profit/loss entries count toward the daily cap; an open
	// trade is exposure, not a loss.
	dailyCap := state.Capital.Mul(decimal.NewFromFloat(rm.cfg.DailyLossPct))
	if state.RealizedPnLDay.IsNegative() && state.RealizedPnLDay.Neg().GreaterThanOrEqual(dailyCap) {
		decision.Fail("daily_loss", fmt.Sprintf("realized loss today %s has reached the daily cap %s",
			state.RealizedPnLDay.Neg().StringFixed(2), dailyCap.StringFixed(2)))
		return decision
	}
	decision.Pass("daily_loss")

	maxDrawdown := decimal.NewFromFloat(rm.cfg.MaxDrawdownPct)
	if maxDrawdown.IsPositive() && state.Drawdown.GreaterThanOrEqual(maxDrawdown) {
		decision.Fail("drawdown", fmt.Sprintf("portfolio drawdown %s has reached the limit %s",
			state.Drawdown.StringFixed(4), maxDrawdown.StringFixed(4)))
		return decision
	}
	decision.Pass("drawdown")

	rm.logger.WithFields(logrus.Fields{
		"symbol":   sig.Symbol,
		"notional": notional.StringFixed(2),
		"allowed":  decision.Allowed,
	}).Debug("Paper admission evaluated")

	return decision
}
