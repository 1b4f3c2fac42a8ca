package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	networkID string
	started   time.Time
}

func NewHealthHandler(networkID string) *HealthHandler {
	return &HealthHandler{
		networkID: networkID,
		started:   time.Now(),
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"uptime": time.Since(h.started).String(),
	})
}

func (h *HealthHandler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":    "vision-runtime",
		"network_id": h.networkID,
		"started_at": h.started.Format(time.RFC3339),
	})
}
