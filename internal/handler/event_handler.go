package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendance-engine/internal/models"
	"github.com/noah-isme/attendance-engine/internal/service"
	appErrors "github.com/noah-isme/attendance-engine/pkg/errors"
	"github.com/noah-isme/attendance-engine/pkg/response"
)

type eventService interface {
	Append(ctx context.Context, req service.AppendEventRequest) (*models.AppendResult, error)
	Invalidate(ctx context.Context, eventID string) (*models.AttendanceEvent, error)
	EventsFor(ctx context.Context, personID string, date time.Time) ([]models.AttendanceEvent, error)
}

// EventHandler wires the ingestion service to HTTP endpoints.
type EventHandler struct {
	service  eventService
	location *time.Location
}

// NewEventHandler constructs the handler. Date query parameters are
// interpreted in the given attendance timezone so they name the same calendar
// day the services reconcile.
func NewEventHandler(service eventService, location *time.Location) *EventHandler {
	if location == nil {
		location = time.UTC
	}
	return &EventHandler{service: service, location: location}
}

// Append godoc
// @Summary Append an attendance event
// @Tags Events
// @Accept json
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /events [post]
func (h *EventHandler) Append(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var req service.AppendEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid JSON payload"))
		return
	}
	result, err := h.service.Append(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := map[string]interface{}{"duplicate": result.Duplicate}
	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	response.JSON(c, status, result.Event, meta)
}

// Invalidate godoc
// @Summary Invalidate an erroneous event
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/invalidate [post]
func (h *EventHandler) Invalidate(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	eventID := strings.TrimSpace(c.Param("id"))
	if eventID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "event id required"))
		return
	}
	event, err := h.service.Invalidate(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event)
}

// List godoc
// @Summary Audit view of one person's event log for a date
// @Tags Events
// @Produce json
// @Param personId query string true "Person ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /events [get]
func (h *EventHandler) List(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	personID := strings.TrimSpace(c.Query("personId"))
	if personID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "personId is required"))
		return
	}
	date, err := parseDateParam(c.Query("date"), time.Time{}, h.location)
	if err != nil {
		response.Error(c, err)
		return
	}
	if date.IsZero() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date is required"))
		return
	}
	events, err := h.service.EventsFor(c.Request.Context(), personID, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events)
}

// parseDateParam materializes a YYYY-MM-DD parameter as midnight in the
// attendance timezone. Parsing in UTC instead would shift every date query to
// the previous calendar day for zones west of UTC.
func parseDateParam(raw string, fallback time.Time, location *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	if location == nil {
		location = time.UTC
	}
	parsed, err := time.ParseInLocation("2006-01-02", raw, location)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	return parsed, nil
}
