package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/attendance-engine/internal/models"
	appErrors "github.com/noah-isme/attendance-engine/pkg/errors"
)

type dayReconciler interface {
	Reconcile(ctx context.Context, personID string, date time.Time) (*models.DailyStatus, error)
}

type rosterIndex interface {
	EnrolledOn(ctx context.Context, divisionID string, date time.Time) ([]string, error)
}

// AggregationServiceConfig tunes the division-day rollup cache.
type AggregationServiceConfig struct {
	CacheTTL time.Duration
	// TodayTTL keeps today's entry fresh for live views even without an
	// explicit invalidation.
	TodayTTL     time.Duration
	MaxTrendDays int
	Location     *time.Location
}

// AggregationService materializes division-day rollups and keeps them
// coherent with the event store. An entry is either cached-and-correct or
// absent-and-recomputed; invalidation is synchronous with append, so a stale
// value can never be served.
type AggregationService struct {
	reconciler dayReconciler
	roster     rosterIndex
	cache      *CacheService
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time
	cfg        AggregationServiceConfig
}

// NewAggregationService constructs the aggregation service.
func NewAggregationService(reconciler dayReconciler, roster rosterIndex, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg AggregationServiceConfig) *AggregationService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.TodayTTL <= 0 {
		cfg.TodayTTL = 60 * time.Second
	}
	if cfg.MaxTrendDays <= 0 {
		cfg.MaxTrendDays = 92
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AggregationService{
		reconciler: reconciler,
		roster:     roster,
		cache:      cache,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
		cfg:        cfg,
	}
}

// DayAggregate returns the rollup for one division and date. The boolean
// reports whether the value came from cache.
func (s *AggregationService) DayAggregate(ctx context.Context, divisionID string, date time.Time) (*models.DivisionDayAggregate, bool, error) {
	if divisionID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "division id required")
	}
	day := s.dayStart(date)
	key := aggregateCacheKey(divisionID, day)

	if s.cache != nil {
		var cached models.DivisionDayAggregate
		if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
			return nil, false, err
		} else if hit {
			return &cached, true, nil
		}
	}

	aggregate, err := s.rebuild(ctx, divisionID, day)
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		ttl := s.cfg.CacheTTL
		if s.isToday(day) {
			ttl = s.cfg.TodayTTL
		}
		if err := s.cache.Set(ctx, key, aggregate, ttl); err != nil {
			s.logger.Warn("aggregate cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return aggregate, false, nil
}

// RangeTrend assembles the per-day aggregates across [from, to]. It is never
// cached itself: partial invalidation would otherwise leave stale windows.
func (s *AggregationService) RangeTrend(ctx context.Context, divisionID string, from, to time.Time) (*models.RangeTrend, error) {
	if divisionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "division id required")
	}
	start := s.dayStart(from)
	end := s.dayStart(to)
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date range is inverted")
	}
	days := int(end.Sub(start).Hours()/24) + 1
	if days > s.cfg.MaxTrendDays {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("date range exceeds %d days", s.cfg.MaxTrendDays))
	}

	trend := &models.RangeTrend{
		DivisionID: divisionID,
		DateFrom:   start,
		DateTo:     end,
		Days:       make([]models.DivisionDayAggregate, 0, days),
	}
	var percentageSum int
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		aggregate, _, err := s.DayAggregate(ctx, divisionID, day)
		if err != nil {
			return nil, err
		}
		trend.Days = append(trend.Days, *aggregate)
		percentageSum += aggregate.AttendancePercentage
	}
	if len(trend.Days) > 0 {
		trend.AveragePercentage = int(math.Round(float64(percentageSum) / float64(len(trend.Days))))
	}
	return trend, nil
}

// Invalidate drops the single affected division-day entry. The next read
// recomputes it, which bounds correction cost to one division-day.
func (s *AggregationService) Invalidate(ctx context.Context, personID string, date time.Time, divisionID string) {
	if divisionID == "" {
		return
	}
	day := s.dayStart(date)
	key := aggregateCacheKey(divisionID, day)
	if s.cache != nil {
		if err := s.cache.Delete(ctx, key); err != nil {
			s.logger.Warn("aggregate invalidation failed",
				zap.String("key", key), zap.String("person_id", personID), zap.Error(err))
		}
	}
}

// InvalidateDivision drops every cached day for one division. Used when the
// academic system reports an enrollment change whose effective range is not
// known, which can stale any cached day for that division.
func (s *AggregationService) InvalidateDivision(ctx context.Context, divisionID string) error {
	if divisionID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "division id required")
	}
	if s.cache == nil {
		return nil
	}
	pattern := fmt.Sprintf("agg:%s:*", divisionID)
	if err := s.cache.Invalidate(ctx, pattern); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to invalidate division cache")
	}
	s.logger.Info("division cache invalidated", zap.String("division_id", divisionID))
	return nil
}

func (s *AggregationService) rebuild(ctx context.Context, divisionID string, day time.Time) (*models.DivisionDayAggregate, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveAggregateRebuild(time.Since(start))
		}
	}()

	personIDs, err := s.roster.EnrolledOn(ctx, divisionID, day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	aggregate := &models.DivisionDayAggregate{
		DivisionID:    divisionID,
		Date:          day,
		TotalEnrolled: len(personIDs),
	}
	for _, personID := range personIDs {
		status, err := s.reconciler.Reconcile(ctx, personID, day)
		if err != nil {
			return nil, err
		}
		if status == nil {
			// Enrolled persons always reconcile to a status; guard anyway so a
			// racing enrollment change cannot skew the fold.
			aggregate.Absent++
			continue
		}
		switch status.Status {
		case models.DayStatusPresent:
			aggregate.Present++
		case models.DayStatusLate:
			aggregate.Late++
		case models.DayStatusIncomplete:
			aggregate.Incomplete++
		case models.DayStatusExcused:
			aggregate.Excused++
		default:
			aggregate.Absent++
		}
	}
	if aggregate.TotalEnrolled > 0 {
		attended := aggregate.Present + aggregate.Late
		aggregate.AttendancePercentage = int(math.Round(float64(attended) / float64(aggregate.TotalEnrolled) * 100))
	}
	return aggregate, nil
}

func (s *AggregationService) dayStart(t time.Time) time.Time {
	local := t.In(s.cfg.Location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.cfg.Location)
}

func (s *AggregationService) isToday(day time.Time) bool {
	return s.dayStart(s.now()).Equal(day)
}

func aggregateCacheKey(divisionID string, day time.Time) string {
	return fmt.Sprintf("agg:%s:%s", divisionID, day.Format("2006-01-02"))
}
