package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendance-engine/internal/service"
	appErrors "github.com/noah-isme/attendance-engine/pkg/errors"
	"github.com/noah-isme/attendance-engine/pkg/response"
)

// EngineMetricsHandler serves the instrumentation snapshot consumed by
// dashboard widgets.
type EngineMetricsHandler struct {
	metrics *service.MetricsService
}

// NewEngineMetricsHandler constructs the handler.
func NewEngineMetricsHandler(metrics *service.MetricsService) *EngineMetricsHandler {
	return &EngineMetricsHandler{metrics: metrics}
}

// Snapshot godoc
// @Summary Engine instrumentation snapshot
// @Tags Metrics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /engine/metrics [get]
func (h *EngineMetricsHandler) Snapshot(c *gin.Context) {
	if h.metrics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	response.JSON(c, http.StatusOK, h.metrics.Snapshot())
}
