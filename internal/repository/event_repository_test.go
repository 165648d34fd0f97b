package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-engine/internal/models"
	appErrors "github.com/noah-isme/attendance-engine/pkg/errors"
)

func newEventMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func eventRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "person_id", "device_id", "timestamp", "kind", "verified", "source", "override_status", "invalidated", "recorded_at"})
}

func TestEventRepositoryInsert(t *testing.T) {
	db, mock, cleanup := newEventMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	ts := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO attendance_events").
		WithArgs(sqlmock.AnyArg(), "p1", "gate-a", ts, models.EventKindEntry, true, models.EventSourceDevice, nil, false, sqlmock.AnyArg()).
		WillReturnRows(eventRows().AddRow("evt-1", "p1", "gate-a", ts, "entry", true, "device", nil, false, time.Now()))

	stored, err := repo.Insert(context.Background(), &models.AttendanceEvent{
		PersonID:  "p1",
		DeviceID:  "gate-a",
		Timestamp: ts,
		Kind:      models.EventKindEntry,
		Verified:  true,
		Source:    models.EventSourceDevice,
	})
	require.NoError(t, err)
	assert.Equal(t, "evt-1", stored.ID)
	assert.Equal(t, models.EventKindEntry, stored.Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryListBetween(t *testing.T) {
	db, mock, cleanup := newEventMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	mock.ExpectQuery("SELECT id, person_id, device_id, timestamp, kind, verified, source, override_status, invalidated, recorded_at FROM attendance_events").
		WithArgs("p1", from, to).
		WillReturnRows(eventRows().
			AddRow("evt-1", "p1", "gate-a", from.Add(8*time.Hour), "entry", true, "device", nil, false, time.Now()).
			AddRow("evt-2", "p1", "gate-a", from.Add(16*time.Hour), "exit", true, "device", nil, true, time.Now()))

	events, err := repo.ListBetween(context.Background(), "p1", from, to)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, models.EventKindEntry, events[0].Kind)
	assert.True(t, events[1].Invalidated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryInvalidate(t *testing.T) {
	db, mock, cleanup := newEventMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	ts := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery("UPDATE attendance_events SET invalidated = TRUE").
		WithArgs("evt-1").
		WillReturnRows(eventRows().AddRow("evt-1", "p1", "gate-a", ts, "entry", true, "device", nil, true, time.Now()))

	event, err := repo.Invalidate(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.True(t, event.Invalidated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryInvalidateNotFound(t *testing.T) {
	db, mock, cleanup := newEventMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery("UPDATE attendance_events SET invalidated = TRUE").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Invalidate(context.Background(), "missing")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
