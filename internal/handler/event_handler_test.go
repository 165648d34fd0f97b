package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-engine/internal/models"
	"github.com/noah-isme/attendance-engine/internal/service"
	appErrors "github.com/noah-isme/attendance-engine/pkg/errors"
)

type eventServiceMock struct {
	appendResult  *models.AppendResult
	appendErr     error
	invalidated   *models.AttendanceEvent
	invalidateErr error
	events        []models.AttendanceEvent
	listErr       error

	lastInvalidatedID string
	lastListDate      time.Time
}

func (m *eventServiceMock) Append(ctx context.Context, req service.AppendEventRequest) (*models.AppendResult, error) {
	return m.appendResult, m.appendErr
}

func (m *eventServiceMock) Invalidate(ctx context.Context, eventID string) (*models.AttendanceEvent, error) {
	m.lastInvalidatedID = eventID
	return m.invalidated, m.invalidateErr
}

func (m *eventServiceMock) EventsFor(ctx context.Context, personID string, date time.Time) ([]models.AttendanceEvent, error) {
	m.lastListDate = date
	return m.events, m.listErr
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func appendPayload() []byte {
	payload, _ := json.Marshal(service.AppendEventRequest{
		PersonID:  "p1",
		DeviceID:  "gate-a",
		Timestamp: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
		Kind:      "entry",
		Source:    "device",
	})
	return payload
}

func TestEventHandlerAppendCreated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &eventServiceMock{
		appendResult: &models.AppendResult{Event: &models.AttendanceEvent{ID: "evt-1"}, Duplicate: false},
	}
	h := NewEventHandler(mockSvc, time.UTC)

	c, w := newGinContext(http.MethodPost, "/events", appendPayload())
	h.Append(c)

	require.Equal(t, http.StatusCreated, w.Code)
	var envelope struct {
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, false, envelope.Meta["duplicate"])
}

func TestEventHandlerAppendDuplicate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &eventServiceMock{
		appendResult: &models.AppendResult{Event: &models.AttendanceEvent{ID: "evt-1"}, Duplicate: true},
	}
	h := NewEventHandler(mockSvc, time.UTC)

	c, w := newGinContext(http.MethodPost, "/events", appendPayload())
	h.Append(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope.Meta["duplicate"])
}

func TestEventHandlerAppendBadJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewEventHandler(&eventServiceMock{}, time.UTC)

	c, w := newGinContext(http.MethodPost, "/events", []byte("{not json"))
	h.Append(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventHandlerAppendServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &eventServiceMock{appendErr: appErrors.Clone(appErrors.ErrValidation, "event timestamp is in the future")}
	h := NewEventHandler(mockSvc, time.UTC)

	c, w := newGinContext(http.MethodPost, "/events", appendPayload())
	h.Append(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventHandlerInvalidate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &eventServiceMock{invalidated: &models.AttendanceEvent{ID: "evt-1", Invalidated: true}}
	h := NewEventHandler(mockSvc, time.UTC)

	c, w := newGinContext(http.MethodPost, "/events/evt-1/invalidate", nil)
	c.Params = gin.Params{{Key: "id", Value: "evt-1"}}
	h.Invalidate(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "evt-1", mockSvc.lastInvalidatedID)
}

func TestEventHandlerInvalidateNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &eventServiceMock{invalidateErr: appErrors.Clone(appErrors.ErrNotFound, "event not found")}
	h := NewEventHandler(mockSvc, time.UTC)

	c, w := newGinContext(http.MethodPost, "/events/missing/invalidate", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	h.Invalidate(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestEventHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &eventServiceMock{events: []models.AttendanceEvent{{ID: "evt-1"}, {ID: "evt-2", Invalidated: true}}}
	h := NewEventHandler(mockSvc, time.UTC)

	c, w := newGinContext(http.MethodGet, "/events?personId=p1&date=2026-03-02", nil)
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestEventHandlerListParsesDateInConfiguredZone(t *testing.T) {
	gin.SetMode(gin.TestMode)
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	mockSvc := &eventServiceMock{events: []models.AttendanceEvent{{ID: "evt-1"}}}
	h := NewEventHandler(mockSvc, newYork)

	c, w := newGinContext(http.MethodGet, "/events?personId=p1&date=2026-03-02", nil)
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	want := time.Date(2026, 3, 2, 0, 0, 0, 0, newYork)
	assert.True(t, mockSvc.lastListDate.Equal(want), "got %v, want %v", mockSvc.lastListDate, want)
}

func TestEventHandlerListValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewEventHandler(&eventServiceMock{}, time.UTC)

	c, w := newGinContext(http.MethodGet, "/events?date=2026-03-02", nil)
	h.List(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newGinContext(http.MethodGet, "/events?personId=p1", nil)
	h.List(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newGinContext(http.MethodGet, "/events?personId=p1&date=03-02-2026", nil)
	h.List(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
