package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-engine/internal/models"
	appErrors "github.com/noah-isme/attendance-engine/pkg/errors"
)

type eventStore interface {
	Insert(ctx context.Context, event *models.AttendanceEvent) (*models.AttendanceEvent, error)
	Invalidate(ctx context.Context, eventID string) (*models.AttendanceEvent, error)
	ListBetween(ctx context.Context, personID string, from, to time.Time) ([]models.AttendanceEvent, error)
}

type aggregateInvalidator interface {
	Invalidate(ctx context.Context, personID string, date time.Time, divisionID string)
}

// EventServiceConfig tunes ingestion behaviour.
type EventServiceConfig struct {
	// DedupWindow collapses repeated scans from the same person and device.
	DedupWindow time.Duration
	// MaxClockSkew bounds how far into the future a device timestamp may run.
	MaxClockSkew time.Duration
	// MaxEventAge bounds how far into the past a timestamp may lie.
	MaxEventAge time.Duration
	Location    *time.Location
}

// EventService is the ingestion boundary of the engine: it validates incoming
// events, applies the de-duplication rule, appends to the store and emits the
// invalidation signal that keeps aggregates coherent. Appends are serialized
// per person; different persons proceed in parallel.
type EventService struct {
	store      eventStore
	enrollment enrollmentIndex
	aggregates aggregateInvalidator
	validator  *validator.Validate
	metrics    *MetricsService
	logger     *zap.Logger
	locks      *keyedMutex
	warm       func(personID string, date time.Time)
	now        func() time.Time
	cfg        EventServiceConfig
}

// NewEventService constructs the ingestion service.
func NewEventService(store eventStore, enrollment enrollmentIndex, aggregates aggregateInvalidator, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, cfg EventServiceConfig) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = 60 * time.Second
	}
	if cfg.MaxClockSkew <= 0 {
		cfg.MaxClockSkew = 5 * time.Minute
	}
	if cfg.MaxEventAge <= 0 {
		cfg.MaxEventAge = 365 * 24 * time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	svc := &EventService{
		store:      store,
		enrollment: enrollment,
		aggregates: aggregates,
		validator:  validate,
		metrics:    metrics,
		logger:     logger,
		locks:      newKeyedMutex(),
		now:        time.Now,
		cfg:        cfg,
	}
	svc.validator.RegisterValidation("event_kind", func(fl validator.FieldLevel) bool {
		return models.EventKind(strings.ToLower(fl.Field().String())).Valid()
	})
	svc.validator.RegisterValidation("event_source", func(fl validator.FieldLevel) bool {
		return models.EventSource(strings.ToLower(fl.Field().String())).Valid()
	})
	svc.validator.RegisterValidation("day_status", func(fl validator.FieldLevel) bool {
		return models.DayStatus(strings.ToLower(fl.Field().String())).Valid()
	})
	return svc
}

// SetWarmFunc installs the callback used to warm caches after an append.
func (s *EventService) SetWarmFunc(warm func(personID string, date time.Time)) {
	s.warm = warm
}

// AppendEventRequest describes an incoming entry/exit scan or manual entry.
type AppendEventRequest struct {
	PersonID  string    `json:"person_id" validate:"required"`
	DeviceID  string    `json:"device_id" validate:"required"`
	Timestamp time.Time `json:"timestamp" validate:"required"`
	Kind      string    `json:"kind" validate:"required,event_kind"`
	Verified  bool      `json:"verified"`
	Source    string    `json:"source" validate:"required,event_source"`
	Status    *string   `json:"status" validate:"omitempty,day_status"`
}

// Append records a logical event, collapsing duplicates within the dedup
// window. The first matching event wins; a collapsed append reports
// Duplicate=true and leaves all derived state untouched.
func (s *EventService) Append(ctx context.Context, req AppendEventRequest) (*models.AppendResult, error) {
	if err := s.validator.Struct(req); err != nil {
		s.metrics.RecordEventRejected()
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}

	kind := models.EventKind(strings.ToLower(req.Kind))
	source := models.EventSource(strings.ToLower(req.Source))
	if kind == models.EventKindOverride {
		if source != models.EventSourceManual {
			s.metrics.RecordEventRejected()
			return nil, appErrors.Clone(appErrors.ErrValidation, "override events must have source manual")
		}
		if req.Status == nil {
			s.metrics.RecordEventRejected()
			return nil, appErrors.Clone(appErrors.ErrValidation, "override events require a status")
		}
	}

	ts := req.Timestamp.UTC()
	now := s.now().UTC()
	if ts.After(now.Add(s.cfg.MaxClockSkew)) {
		s.metrics.RecordEventRejected()
		return nil, appErrors.Clone(appErrors.ErrValidation, "event timestamp is in the future")
	}
	if ts.Before(now.Add(-s.cfg.MaxEventAge)) {
		s.metrics.RecordEventRejected()
		return nil, appErrors.Clone(appErrors.ErrValidation, "event timestamp is implausibly old")
	}

	s.locks.Lock(req.PersonID)
	defer s.locks.Unlock(req.PersonID)

	existing, err := s.findDuplicate(ctx, req.PersonID, req.DeviceID, kind, ts)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check duplicates")
	}
	if existing != nil {
		s.metrics.RecordEventDuplicate()
		return &models.AppendResult{Event: existing, Duplicate: true}, nil
	}

	event := &models.AttendanceEvent{
		PersonID:  req.PersonID,
		DeviceID:  req.DeviceID,
		Timestamp: ts,
		Kind:      kind,
		Verified:  req.Verified,
		Source:    source,
	}
	if req.Status != nil {
		status := models.DayStatus(strings.ToLower(*req.Status))
		event.OverrideStatus = &status
	}

	stored, err := s.store.Insert(ctx, event)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to append event")
	}
	s.metrics.RecordEventIngested(source)

	s.signalInvalidation(ctx, stored.PersonID, stored.Timestamp)

	return &models.AppendResult{Event: stored, Duplicate: false}, nil
}

// Invalidate excludes an event from reconciliation while keeping it for
// audit, then drops the affected division-day aggregate.
func (s *EventService) Invalidate(ctx context.Context, eventID string) (*models.AttendanceEvent, error) {
	if eventID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "event id required")
	}
	event, err := s.store.Invalidate(ctx, eventID)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordEventInvalidated()

	s.locks.Lock(event.PersonID)
	defer s.locks.Unlock(event.PersonID)
	s.signalInvalidation(ctx, event.PersonID, event.Timestamp)

	return event, nil
}

// EventsFor returns the full ordered event log for one person and one
// calendar date, invalidated events included. This is the audit view the
// correction UI works from.
func (s *EventService) EventsFor(ctx context.Context, personID string, date time.Time) ([]models.AttendanceEvent, error) {
	if personID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "person id required")
	}
	from, to := s.dayBounds(date)
	events, err := s.store.ListBetween(ctx, personID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	return events, nil
}

func (s *EventService) findDuplicate(ctx context.Context, personID, deviceID string, kind models.EventKind, ts time.Time) (*models.AttendanceEvent, error) {
	candidates, err := s.store.ListBetween(ctx, personID, ts.Add(-s.cfg.DedupWindow), ts.Add(s.cfg.DedupWindow).Add(time.Nanosecond))
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		c := candidates[i]
		if c.Invalidated {
			continue
		}
		if c.DeviceID == deviceID && c.Kind == kind {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

// signalInvalidation drops the cached aggregate for the affected division-day
// and schedules a cache warm-up. Must run while holding the person lock.
func (s *EventService) signalInvalidation(ctx context.Context, personID string, ts time.Time) {
	day, _ := s.dayBounds(ts)
	divisionID, enrolled, err := s.enrollment.DivisionOf(ctx, personID, day)
	if err != nil {
		s.logger.Warn("division resolution failed during invalidation",
			zap.String("person_id", personID), zap.Error(err))
		return
	}
	if !enrolled {
		return
	}
	if s.aggregates != nil {
		s.aggregates.Invalidate(ctx, personID, day, divisionID)
	}
	if s.warm != nil {
		s.warm(personID, day)
	}
}

func (s *EventService) dayBounds(t time.Time) (time.Time, time.Time) {
	local := t.In(s.cfg.Location)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.cfg.Location)
	return start, start.AddDate(0, 0, 1)
}
