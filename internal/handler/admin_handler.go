package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/attendance-engine/pkg/errors"
	"github.com/noah-isme/attendance-engine/pkg/response"
)

type divisionInvalidator interface {
	InvalidateDivision(ctx context.Context, divisionID string) error
}

// AdminHandler exposes the operational surface: cache maintenance actions
// triggered by the academic system or by operators.
type AdminHandler struct {
	aggregates divisionInvalidator
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(aggregates divisionInvalidator) *AdminHandler {
	return &AdminHandler{aggregates: aggregates}
}

// InvalidateDivision godoc
// @Summary Drop every cached rollup for one division
// @Tags Admin
// @Produce json
// @Param divisionId query string true "Division ID"
// @Success 200 {object} response.Envelope
// @Router /engine/cache/invalidate [post]
func (h *AdminHandler) InvalidateDivision(c *gin.Context) {
	if h.aggregates == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	divisionID := strings.TrimSpace(c.Query("divisionId"))
	if divisionID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "divisionId is required"))
		return
	}
	if err := h.aggregates.InvalidateDivision(c.Request.Context(), divisionID); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"division_id": divisionID, "invalidated": true})
}
