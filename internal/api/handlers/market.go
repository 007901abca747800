package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/trademantra/swingtrader-go/internal/models"
	"github.com/trademantra/swingtrader-go/internal/services"
)

// MarketHandler serves candle history and the indicator overview.
type MarketHandler struct {
	candles  services.CandleSource
	analysis *services.MarketAnalysisService
	logger   *logrus.Logger
}

func NewMarketHandler(candles services.CandleSource, analysis *services.MarketAnalysisService, logger *logrus.Logger) *MarketHandler {
	return &MarketHandler{candles: candles, analysis: analysis, logger: logger}
}

// GetCandles returns recent candles for a symbol.
// GET /api/v1/candles/:symbol?interval=day&limit=100
func (h *MarketHandler) GetCandles(c *gin.Context) {
	symbol := c.Param("symbol")
	interval := models.Interval(c.DefaultQuery("interval", string(models.IntervalDay)))
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 || limit > 1000 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 1000"})
		return
	}

	series, err := h.candles.LoadSeries(c.Request.Context(), symbol, interval, limit)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to load candles")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load candles"})
		return
	}
	c.JSON(http.StatusOK, series)
}

// GetAnalysis returns the cinar-backed indicator snapshot for a symbol.
// GET /api/v1/analysis/:symbol
func (h *MarketHandler) GetAnalysis(c *gin.Context) {
	symbol := c.Param("symbol")
	overview, err := h.analysis.AnalyzeSymbol(c.Request.Context(), symbol)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Warn("Market analysis failed")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, overview)
}
