package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/trademantra/swingtrader-go/internal/database"
)

type HealthResponse struct {
	Status    string        `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Version   string        `json:"version"`
	Services  HealthStatus  `json:"services"`
	Runtime   RuntimeHealth `json:"runtime"`
}

type HealthStatus struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

type RuntimeHealth struct {
	MemoryUsedPct float64 `json:"memory_used_pct"`
	CPUUsedPct    float64 `json:"cpu_used_pct"`
}

type HealthHandler struct {
	db    *database.PostgresDB
	redis *database.RedisClient
}

func NewHealthHandler(db *database.PostgresDB, redis *database.RedisClient) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

func (h *HealthHandler) Check(c *gin.Context) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   "1.0.0",
		Services:  HealthStatus{Database: "ok", Redis: "ok"},
	}

	if h.db != nil {
		if err := h.db.HealthCheck(c.Request.Context()); err != nil {
			response.Services.Database = "error"
			response.Status = "degraded"
		}
	} else {
		response.Services.Database = "disabled"
	}
	if h.redis != nil {
		if err := h.redis.HealthCheck(c.Request.Context()); err != nil {
			response.Services.Redis = "error"
			response.Status = "degraded"
		}
	} else {
		response.Services.Redis = "disabled"
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		response.Runtime.MemoryUsedPct = vm.UsedPercent
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		response.Runtime.CPUUsedPct = percents[0]
	}

	statusCode := http.StatusOK
	if response.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, response)
}
