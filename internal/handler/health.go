package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zabbix-incident/backend/internal/model"
)

// Health godoc
// @Summary Service liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} model.SuccessResponse
// @Router /health [get]
func Health(c *gin.Context) {
	now := time.Now().UTC()
	c.JSON(http.StatusOK, model.SuccessResponse{
		Status:  http.StatusOK,
		Message: "Service is healthy",
		Data: model.HealthData{
			Status:    "UP",
			Service:   "zabbix-incident-backend",
			Timestamp: now.Format(time.RFC3339),
		},
		Timestamp: now,
	})
}
