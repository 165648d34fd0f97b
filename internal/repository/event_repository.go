package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/attendance-engine/internal/models"
	appErrors "github.com/noah-isme/attendance-engine/pkg/errors"
)

const eventColumns = `id, person_id, device_id, timestamp, kind, verified, source, override_status, invalidated, recorded_at`

// EventRepository persists attendance events as an append-only log. Rows are
// never deleted; corrections flip the invalidated flag.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs the repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Insert appends a new event. De-duplication is decided by the caller, which
// serializes appends per person.
func (r *EventRepository) Insert(ctx context.Context, event *models.AttendanceEvent) (*models.AttendanceEvent, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.RecordedAt.IsZero() {
		event.RecordedAt = time.Now().UTC()
	}
	query := fmt.Sprintf(`INSERT INTO attendance_events (%s)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING %s`, eventColumns, eventColumns)
	var stored models.AttendanceEvent
	if err := r.db.GetContext(ctx, &stored, query,
		event.ID, event.PersonID, event.DeviceID, event.Timestamp.UTC(), event.Kind,
		event.Verified, event.Source, event.OverrideStatus, event.Invalidated, event.RecordedAt); err != nil {
		return nil, fmt.Errorf("insert attendance event: %w", err)
	}
	return &stored, nil
}

// ListBetween returns all events for a person within [from, to), including
// invalidated ones, ordered by timestamp with entries before exits on ties.
func (r *EventRepository) ListBetween(ctx context.Context, personID string, from, to time.Time) ([]models.AttendanceEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_events
WHERE person_id = $1 AND timestamp >= $2 AND timestamp < $3
ORDER BY timestamp ASC, CASE kind WHEN 'entry' THEN 0 WHEN 'exit' THEN 1 ELSE 2 END ASC`, eventColumns)
	var rows []models.AttendanceEvent
	if err := r.db.SelectContext(ctx, &rows, query, personID, from.UTC(), to.UTC()); err != nil {
		return nil, fmt.Errorf("list attendance events: %w", err)
	}
	return rows, nil
}

// Invalidate excludes an event from reconciliation while keeping it for audit.
func (r *EventRepository) Invalidate(ctx context.Context, eventID string) (*models.AttendanceEvent, error) {
	query := fmt.Sprintf(`UPDATE attendance_events SET invalidated = TRUE
WHERE id = $1
RETURNING %s`, eventColumns)
	var stored models.AttendanceEvent
	if err := r.db.GetContext(ctx, &stored, query, eventID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, fmt.Errorf("invalidate attendance event: %w", err)
	}
	return &stored, nil
}
