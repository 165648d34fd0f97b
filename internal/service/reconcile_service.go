package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/attendance-engine/internal/models"
	appErrors "github.com/noah-isme/attendance-engine/pkg/errors"
)

type eventLog interface {
	ListBetween(ctx context.Context, personID string, from, to time.Time) ([]models.AttendanceEvent, error)
}

type enrollmentIndex interface {
	DivisionOf(ctx context.Context, personID string, date time.Time) (string, bool, error)
}

// ReconcileServiceConfig holds the derivation policy.
type ReconcileServiceConfig struct {
	// LateCutoff is the wall-clock offset from local midnight after which a
	// first entry counts as late. Entries at exactly the cutoff are present.
	LateCutoff time.Duration
	Location   *time.Location
}

// ReconcileService derives one person's one-day attendance status from their
// raw event log. Reconcile is a pure function of the store and enrollment
// snapshot; it never mutates anything, so recomputing is always safe.
type ReconcileService struct {
	events     eventLog
	enrollment enrollmentIndex
	metrics    *MetricsService
	logger     *zap.Logger
	cfg        ReconcileServiceConfig
}

// NewReconcileService constructs the reconciler with sane policy defaults.
func NewReconcileService(events eventLog, enrollment enrollmentIndex, metrics *MetricsService, logger *zap.Logger, cfg ReconcileServiceConfig) *ReconcileService {
	if cfg.LateCutoff <= 0 {
		cfg.LateCutoff = 8*time.Hour + 30*time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconcileService{events: events, enrollment: enrollment, metrics: metrics, logger: logger, cfg: cfg}
}

// Location exposes the configured attendance timezone.
func (s *ReconcileService) Location() *time.Location {
	return s.cfg.Location
}

// DayBounds returns the [start, end) window of the calendar day containing t
// in the configured timezone.
func (s *ReconcileService) DayBounds(t time.Time) (time.Time, time.Time) {
	local := t.In(s.cfg.Location)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.cfg.Location)
	return start, start.AddDate(0, 0, 1)
}

// Reconcile derives the attendance status for one person on one calendar day.
// It returns (nil, nil) when the person has no events and no enrollment on
// that date: such a person contributes no status at all.
func (s *ReconcileService) Reconcile(ctx context.Context, personID string, date time.Time) (*models.DailyStatus, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveReconcile(time.Since(start))
		}
	}()

	dayStart, dayEnd := s.DayBounds(date)

	all, err := s.events.ListBetween(ctx, personID, dayStart, dayEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load events")
	}
	events := make([]models.AttendanceEvent, 0, len(all))
	for _, e := range all {
		if !e.Invalidated {
			events = append(events, e)
		}
	}

	divisionID, enrolled, err := s.enrollment.DivisionOf(ctx, personID, dayStart)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve enrollment")
	}

	status := &models.DailyStatus{
		PersonID: personID,
		Date:     dayStart,
		Verified: true,
	}
	if enrolled {
		status.DivisionID = &divisionID
	}

	if len(events) == 0 {
		if !enrolled {
			return nil, nil
		}
		status.Status = models.DayStatusAbsent
		return status, nil
	}

	// The latest manual status-only correction wins over any derivation.
	if override := latestOverride(events); override != nil {
		status.Status = *override.OverrideStatus
		status.Verified = override.Verified
		status.Overridden = true
		return status, nil
	}

	firstEntry, lastExit := firstInLastOut(events)

	if firstEntry == nil {
		// Exit scans with no matching entry: the day is incomplete data,
		// surfaced as such rather than guessed at.
		status.Status = models.DayStatusIncomplete
		if lastExit != nil {
			t := lastExit.Timestamp
			status.LastExit = &t
			status.Verified = lastExit.Verified
		}
		return status, nil
	}

	entryTime := firstEntry.Timestamp
	status.FirstEntry = &entryTime
	status.Verified = firstEntry.Verified

	if sinceMidnight(entryTime.In(s.cfg.Location)) > s.cfg.LateCutoff {
		status.Status = models.DayStatusLate
	} else {
		status.Status = models.DayStatusPresent
	}

	if lastExit == nil {
		status.Status = models.DayStatusIncomplete
		return status, nil
	}

	exitTime := lastExit.Timestamp
	status.LastExit = &exitTime
	status.Verified = firstEntry.Verified && lastExit.Verified
	minutes := int(exitTime.Sub(entryTime) / time.Minute)
	status.DurationMinutes = &minutes

	return status, nil
}

// latestOverride returns the last manual status-only correction, or nil.
func latestOverride(events []models.AttendanceEvent) *models.AttendanceEvent {
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		if e.Kind == models.EventKindOverride && e.OverrideStatus != nil {
			return &events[i]
		}
	}
	return nil
}

// firstInLastOut picks the first entry event and the last exit event at or
// after it. Scans between the pair stay in the log for audit only.
func firstInLastOut(events []models.AttendanceEvent) (firstEntry, lastExit *models.AttendanceEvent) {
	for i := range events {
		if events[i].Kind == models.EventKindEntry {
			firstEntry = &events[i]
			break
		}
	}
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		if e.Kind != models.EventKindExit {
			continue
		}
		if firstEntry != nil && e.Timestamp.Before(firstEntry.Timestamp) {
			continue
		}
		lastExit = &events[i]
		break
	}
	return firstEntry, lastExit
}

func sinceMidnight(local time.Time) time.Duration {
	return time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second +
		time.Duration(local.Nanosecond())
}
