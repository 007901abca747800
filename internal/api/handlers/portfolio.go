package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/trademantra/swingtrader-go/internal/models"
	"github.com/trademantra/swingtrader-go/internal/services"
)

// PortfolioHandler serves the paper portfolio's derived state, positions
// and ledger.
type PortfolioHandler struct {
	simulator *services.PaperSimulator
	ledger    services.LedgerStore
	positions services.PositionStore
	logger    *logrus.Logger
}

func NewPortfolioHandler(simulator *services.PaperSimulator, ledger services.LedgerStore, positions services.PositionStore, logger *logrus.Logger) *PortfolioHandler {
	return &PortfolioHandler{simulator: simulator, ledger: ledger, positions: positions, logger: logger}
}

// GetState returns the derived accounting snapshot.
// GET /api/v1/portfolio/:id
func (h *PortfolioHandler) GetState(c *gin.Context) {
	id := c.Param("id")
	state, err := h.simulator.State(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, state)
}

// GetPositions returns the portfolio's open positions.
// GET /api/v1/portfolio/:id/positions
func (h *PortfolioHandler) GetPositions(c *gin.Context) {
	id := c.Param("id")
	positions, err := h.positions.OpenPositions(c.Request.Context(), id)
	if err != nil {
		h.logger.WithError(err).WithField("portfolio_id", id).Error("Failed to load positions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load positions"})
		return
	}
	if positions == nil {
		positions = []*models.PaperPosition{}
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions})
}

// GetLedger returns the portfolio's full ledger in append order.
// GET /api/v1/portfolio/:id/ledger
func (h *PortfolioHandler) GetLedger(c *gin.Context) {
	id := c.Param("id")
	entries, err := h.ledger.Entries(c.Request.Context(), id)
	if err != nil {
		h.logger.WithError(err).WithField("portfolio_id", id).Error("Failed to load ledger")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load ledger"})
		return
	}
	if entries == nil {
		entries = []models.LedgerEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// Reconcile refreshes marks and returns the reconciled snapshot.
// POST /api/v1/portfolio/:id/reconcile
func (h *PortfolioHandler) Reconcile(c *gin.Context) {
	id := c.Param("id")
	state, err := h.simulator.Reconcile(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, state)
}
