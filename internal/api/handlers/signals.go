package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/trademantra/swingtrader-go/internal/models"
	"github.com/trademantra/swingtrader-go/internal/services"
)

// SignalHandler exposes signal generation, the pending-approval queue, and
// the approval action.
type SignalHandler struct {
	builder *services.SignalBuilder
	router  *services.ExecutionRouter
	pending services.PendingSignalStore
	logger  *logrus.Logger
}

func NewSignalHandler(builder *services.SignalBuilder, router *services.ExecutionRouter, pending services.PendingSignalStore, logger *logrus.Logger) *SignalHandler {
	return &SignalHandler{builder: builder, router: router, pending: pending, logger: logger}
}

type generateRequest struct {
	Symbol  string `json:"symbol" binding:"required"`
	Execute bool   `json:"execute"`
}

// Generate builds a signal for the symbol and optionally routes it through
// the execution pipeline.
// POST /api/v1/signals/generate
func (h *SignalHandler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sig, err := h.builder.Generate(c.Request.Context(), req.Symbol)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", req.Symbol).Error("Signal generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "signal generation failed"})
		return
	}
	if sig == nil {
		c.JSON(http.StatusOK, gin.H{"signal": nil, "message": "no actionable setup"})
		return
	}
	if !req.Execute {
		c.JSON(http.StatusOK, gin.H{"signal": sig})
		return
	}

	result, err := h.router.Execute(c.Request.Context(), sig)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", req.Symbol).Error("Signal execution failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "execution failed", "signal": sig})
		return
	}
	c.JSON(http.StatusOK, gin.H{"signal": sig, "execution": result})
}

// ListPending returns signals parked for manual approval.
// GET /api/v1/signals/pending
func (h *SignalHandler) ListPending(c *gin.Context) {
	signals, err := h.pending.ListPending(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list pending signals")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list pending signals"})
		return
	}
	if signals == nil {
		signals = []*models.Signal{}
	}
	c.JSON(http.StatusOK, gin.H{"pending": signals})
}

// Approve executes a parked signal after explicit operator action.
// POST /api/v1/signals/:id/approve
func (h *SignalHandler) Approve(c *gin.Context) {
	id := c.Param("id")
	result, err := h.router.Approve(c.Request.Context(), id)
	if err != nil {
		h.logger.WithError(err).WithField("signal_id", id).Warn("Approval failed")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"execution": result})
}
