package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendance-engine/internal/middleware"
	"github.com/noah-isme/attendance-engine/internal/models"
	appErrors "github.com/noah-isme/attendance-engine/pkg/errors"
	"github.com/noah-isme/attendance-engine/pkg/response"
)

type queryService interface {
	StatusOf(ctx context.Context, personID string, date time.Time) (*models.DailyStatus, error)
	StatusRange(ctx context.Context, personID string, from, to time.Time) ([]models.DailyStatus, error)
	DivisionSummary(ctx context.Context, divisionID string, date time.Time) (*models.DivisionDayAggregate, bool, error)
	WeeklyTrend(ctx context.Context, divisionID string, from, to time.Time) (*models.RangeTrend, error)
	CurrentlyPresent(ctx context.Context, divisionID string) ([]string, error)
	EnrollmentHistory(ctx context.Context, personID string) ([]models.EnrollmentRecord, error)
}

// AttendanceHandler exposes the read-only query surface.
type AttendanceHandler struct {
	service  queryService
	now      func() time.Time
	location *time.Location
}

// NewAttendanceHandler constructs the handler. Date query parameters are
// interpreted in the given attendance timezone.
func NewAttendanceHandler(service queryService, location *time.Location) *AttendanceHandler {
	if location == nil {
		location = time.UTC
	}
	return &AttendanceHandler{service: service, now: time.Now, location: location}
}

// Status godoc
// @Summary Attendance status for one person and date
// @Tags Attendance
// @Produce json
// @Param personId query string true "Person ID"
// @Param date query string false "Date (YYYY-MM-DD). Defaults to today"
// @Success 200 {object} response.Envelope
// @Router /attendance/status [get]
func (h *AttendanceHandler) Status(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	personID := strings.TrimSpace(c.Query("personId"))
	if personID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "personId is required"))
		return
	}
	date, err := parseDateParam(c.Query("date"), h.now().In(h.location), h.location)
	if err != nil {
		response.Error(c, err)
		return
	}
	status, err := h.service.StatusOf(c.Request.Context(), personID, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status)
}

// History godoc
// @Summary Per-day statuses for one person across a date range
// @Tags Attendance
// @Produce json
// @Param personId query string true "Person ID"
// @Param dateFrom query string true "Range start (YYYY-MM-DD)"
// @Param dateTo query string true "Range end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/history [get]
func (h *AttendanceHandler) History(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	personID := strings.TrimSpace(c.Query("personId"))
	if personID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "personId is required"))
		return
	}
	from, to, err := parseRangeParams(c, h.location)
	if err != nil {
		response.Error(c, err)
		return
	}
	statuses, err := h.service.StatusRange(c.Request.Context(), personID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, statuses)
}

// Summary godoc
// @Summary Division rollup for one date
// @Tags Attendance
// @Produce json
// @Param divisionId query string true "Division ID"
// @Param date query string false "Date (YYYY-MM-DD). Defaults to today"
// @Success 200 {object} response.Envelope
// @Router /attendance/summary [get]
func (h *AttendanceHandler) Summary(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	divisionID := strings.TrimSpace(c.Query("divisionId"))
	if divisionID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "divisionId is required"))
		return
	}
	date, err := parseDateParam(c.Query("date"), h.now().In(h.location), h.location)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	aggregate, cacheHit, err := h.service.DivisionSummary(c.Request.Context(), divisionID, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, aggregate, meta)
}

// Trend godoc
// @Summary Attendance trend across a date range
// @Tags Attendance
// @Produce json
// @Param divisionId query string true "Division ID"
// @Param dateFrom query string true "Range start (YYYY-MM-DD)"
// @Param dateTo query string true "Range end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/trend [get]
func (h *AttendanceHandler) Trend(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	divisionID := strings.TrimSpace(c.Query("divisionId"))
	if divisionID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "divisionId is required"))
		return
	}
	from, to, err := parseRangeParams(c, h.location)
	if err != nil {
		response.Error(c, err)
		return
	}
	trend, err := h.service.WeeklyTrend(c.Request.Context(), divisionID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, trend)
}

// Present godoc
// @Summary Persons currently on premises for a division
// @Tags Attendance
// @Produce json
// @Param divisionId query string true "Division ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/present [get]
func (h *AttendanceHandler) Present(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	divisionID := strings.TrimSpace(c.Query("divisionId"))
	if divisionID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "divisionId is required"))
		return
	}
	personIDs, err := h.service.CurrentlyPresent(c.Request.Context(), divisionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"person_ids": personIDs, "count": len(personIDs)})
}

// Enrollments godoc
// @Summary Audit view of one person's enrollment history
// @Tags Attendance
// @Produce json
// @Param personId query string true "Person ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *AttendanceHandler) Enrollments(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	personID := strings.TrimSpace(c.Query("personId"))
	if personID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "personId is required"))
		return
	}
	records, err := h.service.EnrollmentHistory(c.Request.Context(), personID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records)
}

func parseRangeParams(c *gin.Context, location *time.Location) (time.Time, time.Time, error) {
	from, err := parseDateParam(c.Query("dateFrom"), time.Time{}, location)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseDateParam(c.Query("dateTo"), time.Time{}, location)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if from.IsZero() || to.IsZero() {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "dateFrom and dateTo are required")
	}
	return from, to, nil
}
