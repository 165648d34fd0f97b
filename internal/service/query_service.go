package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/attendance-engine/internal/models"
	appErrors "github.com/noah-isme/attendance-engine/pkg/errors"
)

type aggregateProvider interface {
	DayAggregate(ctx context.Context, divisionID string, date time.Time) (*models.DivisionDayAggregate, bool, error)
	RangeTrend(ctx context.Context, divisionID string, from, to time.Time) (*models.RangeTrend, error)
}

type enrollmentLedger interface {
	RecordsFor(ctx context.Context, personID string) ([]models.EnrollmentRecord, error)
}

// QueryService is the read-only public surface of the engine. All operations
// are side-effect-free from the caller's perspective; they may populate
// caches but never mutate input data.
type QueryService struct {
	reconciler dayReconciler
	roster     rosterIndex
	ledger     enrollmentLedger
	aggregates aggregateProvider
	logger     *zap.Logger
	now        func() time.Time
	location   *time.Location
}

// NewQueryService constructs the query service.
func NewQueryService(reconciler dayReconciler, roster rosterIndex, ledger enrollmentLedger, aggregates aggregateProvider, logger *zap.Logger, location *time.Location) *QueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	return &QueryService{
		reconciler: reconciler,
		roster:     roster,
		ledger:     ledger,
		aggregates: aggregates,
		logger:     logger,
		now:        time.Now,
		location:   location,
	}
}

// StatusOf returns the reconciled status for one person and date. Point
// lookups bypass the aggregate cache: they are cheap and always fresh.
func (s *QueryService) StatusOf(ctx context.Context, personID string, date time.Time) (*models.DailyStatus, error) {
	if personID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "person id required")
	}
	status, err := s.reconciler.Reconcile(ctx, personID, date)
	if err != nil {
		return nil, err
	}
	if status == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no attendance status: person has no events and no enrollment on this date")
	}
	return status, nil
}

// StatusRange returns the per-day statuses for one person across [from, to].
// Days without any status (not enrolled, no events) are omitted.
func (s *QueryService) StatusRange(ctx context.Context, personID string, from, to time.Time) ([]models.DailyStatus, error) {
	if personID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "person id required")
	}
	start := s.dayStart(from)
	end := s.dayStart(to)
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date range is inverted")
	}
	statuses := make([]models.DailyStatus, 0)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		status, err := s.reconciler.Reconcile(ctx, personID, day)
		if err != nil {
			return nil, err
		}
		if status != nil {
			statuses = append(statuses, *status)
		}
	}
	return statuses, nil
}

// DivisionSummary returns the division-day rollup. The boolean reports cache
// utilisation for response metadata.
func (s *QueryService) DivisionSummary(ctx context.Context, divisionID string, date time.Time) (*models.DivisionDayAggregate, bool, error) {
	return s.aggregates.DayAggregate(ctx, divisionID, date)
}

// WeeklyTrend returns the ordered aggregates across a date range, used for
// weekly and monthly charts.
func (s *QueryService) WeeklyTrend(ctx context.Context, divisionID string, from, to time.Time) (*models.RangeTrend, error) {
	return s.aggregates.RangeTrend(ctx, divisionID, from, to)
}

// CurrentlyPresent returns the persons in a division who are on premises
// right now: today's status is present, late or incomplete and no exit has
// been recorded yet. Computed from today's reconciliations, not from counts.
func (s *QueryService) CurrentlyPresent(ctx context.Context, divisionID string) ([]string, error) {
	if divisionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "division id required")
	}
	today := s.dayStart(s.now())
	personIDs, err := s.roster.EnrolledOn(ctx, divisionID, today)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	present := make([]string, 0, len(personIDs))
	for _, personID := range personIDs {
		status, err := s.reconciler.Reconcile(ctx, personID, today)
		if err != nil {
			return nil, err
		}
		if status == nil || status.LastExit != nil {
			continue
		}
		switch status.Status {
		case models.DayStatusPresent, models.DayStatusLate, models.DayStatusIncomplete:
			present = append(present, personID)
		}
	}
	sort.Strings(present)
	return present, nil
}

// EnrollmentHistory returns the raw enrollment rows covering one person,
// newest first. It backs the audit view that explains how a division was
// resolved for a given date.
func (s *QueryService) EnrollmentHistory(ctx context.Context, personID string) ([]models.EnrollmentRecord, error) {
	if personID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "person id required")
	}
	records, err := s.ledger.RecordsFor(ctx, personID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment records")
	}
	return records, nil
}

func (s *QueryService) dayStart(t time.Time) time.Time {
	local := t.In(s.location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location)
}
