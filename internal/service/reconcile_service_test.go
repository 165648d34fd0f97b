package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-engine/internal/models"
)

type mockEventLog struct {
	events []models.AttendanceEvent
}

func (m *mockEventLog) ListBetween(ctx context.Context, personID string, from, to time.Time) ([]models.AttendanceEvent, error) {
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

type mockEnrollmentIndex struct {
	division string
	enrolled bool
}

func (m *mockEnrollmentIndex) DivisionOf(ctx context.Context, personID string, date time.Time) (string, bool, error) {
	return m.division, m.enrolled, nil
}

func reconcileFixture(events []models.AttendanceEvent) *ReconcileService {
	return NewReconcileService(
		&mockEventLog{events: events},
		&mockEnrollmentIndex{division: "div-1", enrolled: true},
		nil, zap.NewNop(),
		ReconcileServiceConfig{LateCutoff: 8*time.Hour + 30*time.Minute, Location: time.UTC},
	)
}

func scanAt(personID, deviceID string, kind models.EventKind, ts time.Time, verified bool) models.AttendanceEvent {
	return models.AttendanceEvent{
		ID:        personID + "-" + ts.Format("150405"),
		PersonID:  personID,
		DeviceID:  deviceID,
		Timestamp: ts,
		Kind:      kind,
		Verified:  verified,
		Source:    models.EventSourceDevice,
	}
}

var testDay = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func TestReconcileOnTimeWithExit(t *testing.T) {
	svc := reconcileFixture([]models.AttendanceEvent{
		scanAt("p1", "gate-a", models.EventKindEntry, testDay.Add(8*time.Hour), true),
		scanAt("p1", "gate-a", models.EventKindExit, testDay.Add(17*time.Hour), true),
	})

	status, err := svc.Reconcile(context.Background(), "p1", testDay)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, models.DayStatusPresent, status.Status)
	require.NotNil(t, status.FirstEntry)
	require.NotNil(t, status.LastExit)
	assert.Equal(t, testDay.Add(8*time.Hour), *status.FirstEntry)
	assert.Equal(t, testDay.Add(17*time.Hour), *status.LastExit)
	require.NotNil(t, status.DurationMinutes)
	assert.Equal(t, 540, *status.DurationMinutes)
	assert.True(t, status.Verified)
	require.NotNil(t, status.DivisionID)
	assert.Equal(t, "div-1", *status.DivisionID)
}

func TestReconcileLateCutoffBoundary(t *testing.T) {
	atCutoff := reconcileFixture([]models.AttendanceEvent{
		scanAt("p1", "gate-a", models.EventKindEntry, testDay.Add(8*time.Hour+30*time.Minute), true),
		scanAt("p1", "gate-a", models.EventKindExit, testDay.Add(15*time.Hour), true),
	})
	status, err := atCutoff.Reconcile(context.Background(), "p1", testDay)
	require.NoError(t, err)
	assert.Equal(t, models.DayStatusPresent, status.Status)

	pastCutoff := reconcileFixture([]models.AttendanceEvent{
		scanAt("p1", "gate-a", models.EventKindEntry, testDay.Add(8*time.Hour+30*time.Minute+time.Second), true),
		scanAt("p1", "gate-a", models.EventKindExit, testDay.Add(15*time.Hour), true),
	})
	status, err = pastCutoff.Reconcile(context.Background(), "p1", testDay)
	require.NoError(t, err)
	assert.Equal(t, models.DayStatusLate, status.Status)
}

func TestReconcileHonorsConfiguredTimezone(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	localDay := time.Date(2026, 3, 2, 0, 0, 0, 0, newYork)

	svc := NewReconcileService(
		&mockEventLog{events: []models.AttendanceEvent{
			scanAt("p1", "gate-a", models.EventKindEntry, localDay.Add(8*time.Hour), true),
			scanAt("p1", "gate-a", models.EventKindExit, localDay.Add(15*time.Hour), true),
		}},
		&mockEnrollmentIndex{division: "div-1", enrolled: true},
		nil, zap.NewNop(),
		ReconcileServiceConfig{LateCutoff: 8*time.Hour + 30*time.Minute, Location: newYork},
	)

	status, err := svc.Reconcile(context.Background(), "p1", localDay)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, models.DayStatusPresent, status.Status)
	assert.True(t, status.Date.Equal(localDay), "got %v, want %v", status.Date, localDay)
	assert.Equal(t, 2, status.Date.In(newYork).Day())
}

func TestReconcileFirstInLastOut(t *testing.T) {
	svc := reconcileFixture([]models.AttendanceEvent{
		scanAt("p1", "gate-a", models.EventKindEntry, testDay.Add(7*time.Hour+45*time.Minute), true),
		scanAt("p1", "gate-b", models.EventKindExit, testDay.Add(12*time.Hour), true),
		scanAt("p1", "gate-b", models.EventKindEntry, testDay.Add(13*time.Hour), true),
		scanAt("p1", "gate-a", models.EventKindExit, testDay.Add(16*time.Hour+30*time.Minute), true),
	})

	status, err := svc.Reconcile(context.Background(), "p1", testDay)
	require.NoError(t, err)
	assert.Equal(t, models.DayStatusPresent, status.Status)
	assert.Equal(t, testDay.Add(7*time.Hour+45*time.Minute), *status.FirstEntry)
	assert.Equal(t, testDay.Add(16*time.Hour+30*time.Minute), *status.LastExit)
	assert.Equal(t, 525, *status.DurationMinutes)
}

func TestReconcileIncompleteWithoutExit(t *testing.T) {
	svc := reconcileFixture([]models.AttendanceEvent{
		scanAt("p1", "gate-a", models.EventKindEntry, testDay.Add(8*time.Hour), true),
	})

	status, err := svc.Reconcile(context.Background(), "p1", testDay)
	require.NoError(t, err)
	assert.Equal(t, models.DayStatusIncomplete, status.Status)
	require.NotNil(t, status.FirstEntry)
	assert.Nil(t, status.LastExit)
	assert.Nil(t, status.DurationMinutes)
}

func TestReconcileExitOnlyIsIncomplete(t *testing.T) {
	svc := reconcileFixture([]models.AttendanceEvent{
		scanAt("p1", "gate-a", models.EventKindExit, testDay.Add(14*time.Hour), true),
	})

	status, err := svc.Reconcile(context.Background(), "p1", testDay)
	require.NoError(t, err)
	assert.Equal(t, models.DayStatusIncomplete, status.Status)
	assert.Nil(t, status.FirstEntry)
	require.NotNil(t, status.LastExit)
	assert.Equal(t, testDay.Add(14*time.Hour), *status.LastExit)
}

func TestReconcileAbsentWhenEnrolledWithoutEvents(t *testing.T) {
	svc := reconcileFixture(nil)

	status, err := svc.Reconcile(context.Background(), "p1", testDay)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, models.DayStatusAbsent, status.Status)
}

func TestReconcileNoStatusWithoutEnrollmentOrEvents(t *testing.T) {
	svc := NewReconcileService(
		&mockEventLog{},
		&mockEnrollmentIndex{enrolled: false},
		nil, zap.NewNop(),
		ReconcileServiceConfig{},
	)

	status, err := svc.Reconcile(context.Background(), "p1", testDay)
	require.NoError(t, err)
	assert.Nil(t, status)
}

func TestReconcileOverrideWins(t *testing.T) {
	excused := models.DayStatusExcused
	override := models.AttendanceEvent{
		ID:             "ov-1",
		PersonID:       "p1",
		DeviceID:       "admin-console",
		Timestamp:      testDay.Add(9 * time.Hour),
		Kind:           models.EventKindOverride,
		Verified:       true,
		Source:         models.EventSourceManual,
		OverrideStatus: &excused,
	}
	svc := reconcileFixture([]models.AttendanceEvent{
		scanAt("p1", "gate-a", models.EventKindEntry, testDay.Add(10*time.Hour), true),
		override,
	})

	status, err := svc.Reconcile(context.Background(), "p1", testDay)
	require.NoError(t, err)
	assert.Equal(t, models.DayStatusExcused, status.Status)
	assert.True(t, status.Overridden)
	assert.Nil(t, status.FirstEntry)
}

func TestReconcileSkipsInvalidatedEvents(t *testing.T) {
	ghost := scanAt("p1", "gate-a", models.EventKindEntry, testDay.Add(8*time.Hour), true)
	ghost.Invalidated = true
	svc := reconcileFixture([]models.AttendanceEvent{ghost})

	status, err := svc.Reconcile(context.Background(), "p1", testDay)
	require.NoError(t, err)
	assert.Equal(t, models.DayStatusAbsent, status.Status)
}

func TestReconcileVerifiedPropagation(t *testing.T) {
	svc := reconcileFixture([]models.AttendanceEvent{
		scanAt("p1", "gate-a", models.EventKindEntry, testDay.Add(8*time.Hour), false),
		scanAt("p1", "gate-a", models.EventKindExit, testDay.Add(16*time.Hour), true),
	})

	status, err := svc.Reconcile(context.Background(), "p1", testDay)
	require.NoError(t, err)
	assert.False(t, status.Verified)
}

func TestReconcileIsDeterministic(t *testing.T) {
	svc := reconcileFixture([]models.AttendanceEvent{
		scanAt("p1", "gate-a", models.EventKindEntry, testDay.Add(9*time.Hour), true),
		scanAt("p1", "gate-a", models.EventKindExit, testDay.Add(15*time.Hour), true),
	})

	first, err := svc.Reconcile(context.Background(), "p1", testDay)
	require.NoError(t, err)
	second, err := svc.Reconcile(context.Background(), "p1", testDay)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
