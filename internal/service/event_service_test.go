package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-engine/internal/models"
	appErrors "github.com/noah-isme/attendance-engine/pkg/errors"
)

type stubEventStore struct {
	events []models.AttendanceEvent
}

func (m *stubEventStore) Insert(ctx context.Context, event *models.AttendanceEvent) (*models.AttendanceEvent, error) {
	stored := *event
	if stored.ID == "" {
		stored.ID = fmt.Sprintf("evt-%d", len(m.events)+1)
	}
	stored.RecordedAt = time.Now().UTC()
	m.events = append(m.events, stored)
	return &stored, nil
}

func (m *stubEventStore) Invalidate(ctx context.Context, eventID string) (*models.AttendanceEvent, error) {
	for i := range m.events {
		if m.events[i].ID == eventID {
			m.events[i].Invalidated = true
			stored := m.events[i]
			return &stored, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
}

func (m *stubEventStore) ListBetween(ctx context.Context, personID string, from, to time.Time) ([]models.AttendanceEvent, error) {
	var out []models.AttendanceEvent
	for _, e := range m.events {
		if e.PersonID != personID {
			continue
		}
		if e.Timestamp.Before(from) || !e.Timestamp.Before(to) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

type invalidationCall struct {
	personID   string
	date       time.Time
	divisionID string
}

type recordingInvalidator struct {
	calls []invalidationCall
}

func (m *recordingInvalidator) Invalidate(ctx context.Context, personID string, date time.Time, divisionID string) {
	m.calls = append(m.calls, invalidationCall{personID: personID, date: date, divisionID: divisionID})
}

func eventFixture(store *stubEventStore, invalidator *recordingInvalidator) *EventService {
	svc := NewEventService(store, &mockEnrollmentIndex{division: "div-1", enrolled: true}, invalidator, validator.New(), nil, zap.NewNop(), EventServiceConfig{
		DedupWindow: 60 * time.Second,
		Location:    time.UTC,
	})
	svc.now = func() time.Time { return testDay.Add(12 * time.Hour) }
	return svc
}

func validAppendRequest(ts time.Time) AppendEventRequest {
	return AppendEventRequest{
		PersonID:  "p1",
		DeviceID:  "gate-a",
		Timestamp: ts,
		Kind:      "entry",
		Verified:  true,
		Source:    "device",
	}
}

func TestEventServiceAppendCollapsesDuplicates(t *testing.T) {
	store := &stubEventStore{}
	svc := eventFixture(store, &recordingInvalidator{})
	ctx := context.Background()

	first, err := svc.Append(ctx, validAppendRequest(testDay.Add(8*time.Hour)))
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	second, err := svc.Append(ctx, validAppendRequest(testDay.Add(8*time.Hour+30*time.Second)))
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Event.ID, second.Event.ID)
	assert.Len(t, store.events, 1)

	third, err := svc.Append(ctx, validAppendRequest(testDay.Add(8*time.Hour+90*time.Second)))
	require.NoError(t, err)
	assert.False(t, third.Duplicate)
	assert.Len(t, store.events, 2)
}

func TestEventServiceAppendDistinguishesKindAndDevice(t *testing.T) {
	store := &stubEventStore{}
	svc := eventFixture(store, &recordingInvalidator{})
	ctx := context.Background()

	_, err := svc.Append(ctx, validAppendRequest(testDay.Add(8*time.Hour)))
	require.NoError(t, err)

	exit := validAppendRequest(testDay.Add(8*time.Hour + 10*time.Second))
	exit.Kind = "exit"
	res, err := svc.Append(ctx, exit)
	require.NoError(t, err)
	assert.False(t, res.Duplicate)

	otherGate := validAppendRequest(testDay.Add(8*time.Hour + 20*time.Second))
	otherGate.DeviceID = "gate-b"
	res, err = svc.Append(ctx, otherGate)
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Len(t, store.events, 3)
}

func TestEventServiceAppendSignalsInvalidation(t *testing.T) {
	store := &stubEventStore{}
	invalidator := &recordingInvalidator{}
	svc := eventFixture(store, invalidator)

	var warmed []string
	svc.SetWarmFunc(func(personID string, date time.Time) {
		warmed = append(warmed, personID)
	})

	_, err := svc.Append(context.Background(), validAppendRequest(testDay.Add(8*time.Hour)))
	require.NoError(t, err)

	require.Len(t, invalidator.calls, 1)
	assert.Equal(t, "p1", invalidator.calls[0].personID)
	assert.Equal(t, "div-1", invalidator.calls[0].divisionID)
	assert.Equal(t, testDay, invalidator.calls[0].date)
	assert.Equal(t, []string{"p1"}, warmed)

	// Collapsed duplicates must not touch derived state.
	_, err = svc.Append(context.Background(), validAppendRequest(testDay.Add(8*time.Hour+5*time.Second)))
	require.NoError(t, err)
	assert.Len(t, invalidator.calls, 1)
	assert.Len(t, warmed, 1)
}

func TestEventServiceAppendValidation(t *testing.T) {
	svc := eventFixture(&stubEventStore{}, &recordingInvalidator{})
	ctx := context.Background()

	cases := map[string]AppendEventRequest{
		"missing person": func() AppendEventRequest {
			r := validAppendRequest(testDay.Add(8 * time.Hour))
			r.PersonID = ""
			return r
		}(),
		"unknown kind": func() AppendEventRequest {
			r := validAppendRequest(testDay.Add(8 * time.Hour))
			r.Kind = "teleport"
			return r
		}(),
		"override without status": func() AppendEventRequest {
			r := validAppendRequest(testDay.Add(8 * time.Hour))
			r.Kind = "override"
			r.Source = "manual"
			return r
		}(),
		"override from device": func() AppendEventRequest {
			r := validAppendRequest(testDay.Add(8 * time.Hour))
			r.Kind = "override"
			status := "excused"
			r.Status = &status
			return r
		}(),
		"future timestamp": validAppendRequest(testDay.Add(13 * time.Hour)),
	}

	for name, req := range cases {
		_, err := svc.Append(ctx, req)
		require.Error(t, err, name)
		var appErr *appErrors.Error
		require.True(t, errors.As(err, &appErr), name)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code, name)
	}
}

func TestEventServiceAppendOverride(t *testing.T) {
	store := &stubEventStore{}
	svc := eventFixture(store, &recordingInvalidator{})

	status := "excused"
	req := validAppendRequest(testDay.Add(9 * time.Hour))
	req.Kind = "override"
	req.Source = "manual"
	req.DeviceID = "admin-console"
	req.Status = &status

	res, err := svc.Append(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	require.NotNil(t, res.Event.OverrideStatus)
	assert.Equal(t, models.DayStatusExcused, *res.Event.OverrideStatus)
	assert.Equal(t, models.EventSourceManual, res.Event.Source)
}

func TestEventServiceInvalidate(t *testing.T) {
	store := &stubEventStore{}
	invalidator := &recordingInvalidator{}
	svc := eventFixture(store, invalidator)
	ctx := context.Background()

	res, err := svc.Append(ctx, validAppendRequest(testDay.Add(8*time.Hour)))
	require.NoError(t, err)

	event, err := svc.Invalidate(ctx, res.Event.ID)
	require.NoError(t, err)
	assert.True(t, event.Invalidated)
	assert.True(t, store.events[0].Invalidated)
	assert.Len(t, invalidator.calls, 2)

	_, err = svc.Invalidate(ctx, "missing")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestEventServiceEventsForIncludesInvalidated(t *testing.T) {
	store := &stubEventStore{}
	svc := eventFixture(store, &recordingInvalidator{})
	ctx := context.Background()

	res, err := svc.Append(ctx, validAppendRequest(testDay.Add(8*time.Hour)))
	require.NoError(t, err)
	_, err = svc.Invalidate(ctx, res.Event.ID)
	require.NoError(t, err)

	events, err := svc.EventsFor(ctx, "p1", testDay)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].Invalidated)
}
