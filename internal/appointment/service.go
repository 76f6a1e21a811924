package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/hackgods/appointment-booking/internal/apperr"
	"github.com/hackgods/appointment-booking/internal/catalog"
	"github.com/hackgods/appointment-booking/internal/config"
	"github.com/hackgods/appointment-booking/internal/db"
	"github.com/hackgods/appointment-booking/internal/metrics"
	redisclient "github.com/hackgods/appointment-booking/internal/redis"
	"github.com/hackgods/appointment-booking/internal/schedule"
	"github.com/hackgods/appointment-booking/internal/settings"
	"github.com/hackgods/appointment-booking/internal/validation"
	"github.com/hackgods/appointment-booking/pkg/logging"
)

// RecentLimit caps GetAll.
const RecentLimit = 50

var tracer = otel.Tracer("agenda.internal.appointment")

var (
	ErrSlotBlocked           = apperr.Conflict("slot_blocked", "slot unavailable: blocked")
	ErrSlotTaken             = apperr.Conflict("slot_conflict", "slot unavailable: overlaps or is less than 15 minutes from another appointment")
	ErrSlotBeingBooked       = apperr.Conflict("slot_busy", "slot is currently being booked, please retry")
	ErrEmailMismatch         = apperr.Unauthorized("email_mismatch", "email does not match the appointment")
	ErrAlreadyCancelled      = apperr.BadRequest("already_cancelled", "appointment already cancelled")
	ErrCannotCancelCompleted = apperr.BadRequest("cannot_cancel_completed", "cannot cancel a completed appointment")
	ErrOutsideBusinessHours  = apperr.BadRequest("outside_business_hours", "slot is outside business hours")
	ErrInsufficientNotice    = apperr.BadRequest("insufficient_notice", "slot starts too soon")
	ErrBeyondAdvanceWindow   = apperr.BadRequest("beyond_advance_window", "slot is too far ahead")
)

// ServiceLookup resolves bookable services.
type ServiceLookup interface {
	// GetByID returns an active service or catalog.ErrServiceNotFound.
	GetByID(ctx context.Context, id int64) (*catalog.Service, error)
	// GetActive returns an active service or catalog.ErrServiceUnavailable.
	GetActive(ctx context.Context, id int64) (*catalog.Service, error)
}

type Service struct {
	repo     Repository
	services ServiceLookup
	hours    settings.Provider
	locker   redisclient.Locker
	policy   TransitionPolicy
	metrics  *metrics.SchedulingMetrics
	logger   *logging.Logger
	loc      *time.Location
	now      func() time.Time

	enforceWindow bool
}

type Option func(*Service)

func WithMetrics(m *metrics.SchedulingMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithPolicy(p TransitionPolicy) Option {
	return func(s *Service) { s.policy = p }
}

// WithClock replaces time.Now, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(
	repo Repository,
	services ServiceLookup,
	hours settings.Provider,
	locker redisclient.Locker,
	cfg config.Config,
	logger *logging.Logger,
	opts ...Option,
) *Service {
	if locker == nil {
		locker = redisclient.NoopLocker{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	s := &Service{
		repo:          repo,
		services:      services,
		hours:         hours,
		locker:        locker,
		policy:        PolicyFor(cfg.StrictStatusTransitions),
		logger:        logger,
		loc:           loc,
		now:           time.Now,
		enforceWindow: cfg.EnforceBookingWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location is the business timezone bookings are expressed in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// GetAvailableSlots returns the hourly candidates on the requested day that do not contain an
// active booking start and do not overlap a blocked period.
func (s *Service) GetAvailableSlots(ctx context.Context, q SlotsQuery) ([]schedule.Slot, error) {
	ctx, span := tracer.Start(ctx, "appointment.GetAvailableSlots")
	defer span.End()
	span.SetAttributes(attribute.String("agenda.date", q.Date), attribute.Int64("agenda.service_id", q.ServiceID))

	slots, err := s.availableSlots(ctx, q)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveSlotQuery("error", 0)
		return nil, err
	}
	s.metrics.ObserveSlotQuery("ok", len(slots))
	return slots, nil
}

func (s *Service) availableSlots(ctx context.Context, q SlotsQuery) ([]schedule.Slot, error) {
	if err := validation.Struct(q); err != nil {
		return nil, err
	}
	day, err := schedule.ParseDate(q.Date, s.loc)
	if err != nil {
		return nil, apperr.Validation("date", "must be a date (YYYY-MM-DD) or an ISO timestamp")
	}

	svc, err := s.services.GetByID(ctx, q.ServiceID)
	if err != nil {
		return nil, err
	}
	bh, err := s.hours.BusinessHours(ctx)
	if err != nil {
		return nil, fmt.Errorf("load business hours: %w", err)
	}

	empty := []schedule.Slot{}
	if !bh.IsBusinessDay(day) {
		return empty, nil
	}

	now := s.now().In(s.loc)
	var notBefore time.Time
	if s.enforceWindow {
		if day.After(schedule.StartOfDay(now).AddDate(0, 0, bh.AdvanceDays)) {
			return empty, nil
		}
		notBefore = now.Add(time.Duration(bh.MinNoticeHours) * time.Hour)
	}

	window := schedule.DayWindow(day, bh.StartHour, bh.EndHour)
	horizon := window.End.Add(svc.Length())

	bookings, err := s.repo.ActiveBookings(ctx, window.Start, horizon)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}
	blocks, err := s.repo.BlockedBetween(ctx, window.Start, horizon)
	if err != nil {
		return nil, fmt.Errorf("load blocked slots: %w", err)
	}

	booked := make([]time.Time, 0, len(bookings))
	for _, b := range bookings {
		booked = append(booked, b.ScheduledAt)
	}

	slots := schedule.AvailableSlots(schedule.SlotQuery{
		Window:    window,
		Duration:  svc.Length(),
		Step:      schedule.DefaultStep,
		Booked:    booked,
		Blocked:   blockedIntervals(blocks),
		NotBefore: notBefore,
	})
	if slots == nil {
		return empty, nil
	}
	return slots, nil
}

// CreateAppointment books a pending appointment. The blocked and buffer checks and the insert
// run under the day's Redis lock and inside one serializable transaction, so two requests for
// overlapping times cannot both pass.
func (s *Service) CreateAppointment(ctx context.Context, in CreateInput) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointment.CreateAppointment")
	defer span.End()
	span.SetAttributes(attribute.Int64("agenda.service_id", in.ServiceID), attribute.String("agenda.scheduled_at", in.ScheduledAt))

	started := s.now()
	created, err := s.createAppointment(ctx, in)
	s.metrics.ObserveBooking(bookingOutcome(err), s.now().Sub(started).Seconds())
	if err != nil {
		span.RecordError(err)
		if apperr.KindOf(err) == "" {
			s.logger.Error("create appointment failed", "service_id", in.ServiceID, "scheduled_at", in.ScheduledAt, "error", err)
		}
		return nil, err
	}

	span.SetAttributes(attribute.Int64("agenda.appointment_id", created.ID))
	s.logger.Info("appointment created",
		"appointment_id", created.ID,
		"service_id", created.ServiceID,
		"scheduled_at", schedule.FormatAPI(created.ScheduledAt),
	)
	return created, nil
}

func (s *Service) createAppointment(ctx context.Context, in CreateInput) (*Appointment, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	scheduledAt, err := schedule.ParseAPI(in.ScheduledAt, s.loc)
	if err != nil {
		return nil, apperr.Validation("scheduledAt", "must match YYYY-MM-DDTHH:mm")
	}

	svc, err := s.services.GetActive(ctx, in.ServiceID)
	if err != nil {
		return nil, err
	}
	duration := svc.Length()

	if s.enforceWindow {
		if err := s.checkBookingWindow(ctx, scheduledAt, duration); err != nil {
			return nil, err
		}
	}

	var created *Appointment
	book := func(lockCtx context.Context) error {
		return s.repo.WithBookingTx(lockCtx, scheduledAt, func(tx Repository) error {
			end := scheduledAt.Add(duration)

			blocks, err := tx.BlockedBetween(lockCtx, scheduledAt, end)
			if err != nil {
				return fmt.Errorf("check blocked slots: %w", err)
			}
			if schedule.BlockedConflict(scheduledAt, duration, blockedIntervals(blocks)) {
				return ErrSlotBlocked
			}

			// An existing appointment can reach into the buffer window from up to the longest
			// service duration before it.
			w := schedule.BufferWindow(scheduledAt, duration, schedule.Buffer)
			from := w.Start.Add(-catalog.MaxDurationMinutes * time.Minute)
			bookings, err := tx.ActiveBookings(lockCtx, from, w.End)
			if err != nil {
				return fmt.Errorf("check existing appointments: %w", err)
			}
			if schedule.BufferedConflict(scheduledAt, duration, schedule.Buffer, bookingIntervals(bookings)) {
				return ErrSlotTaken
			}

			appt, err := tx.Insert(lockCtx, NewAppointment{
				Name:        in.Name,
				Email:       in.Email,
				Phone:       in.Phone,
				Notes:       in.Notes,
				ServiceID:   svc.ID,
				ScheduledAt: scheduledAt,
			})
			if err != nil {
				return fmt.Errorf("create pending appointment: %w", err)
			}
			created = appt
			return nil
		})
	}

	lockKey := redisclient.BookingDayKey(scheduledAt)
	err = s.locker.WithLock(ctx, lockKey, book)
	if errors.Is(err, redisclient.ErrLockUnavailable) {
		// The day's advisory lock inside the serializable transaction still orders bookings.
		s.logger.Warn("booking lock unavailable, booking without it", "lock_key", lockKey, "error", err)
		err = book(ctx)
	}
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) || db.IsSerializationFailure(err) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	s.localize(created)
	return created, nil
}

func (s *Service) checkBookingWindow(ctx context.Context, start time.Time, duration time.Duration) error {
	bh, err := s.hours.BusinessHours(ctx)
	if err != nil {
		return fmt.Errorf("load business hours: %w", err)
	}
	window := schedule.DayWindow(start, bh.StartHour, bh.EndHour)
	if !bh.IsBusinessDay(start) || start.Before(window.Start) || !start.Before(window.End) {
		return ErrOutsideBusinessHours.WithField("scheduledAt")
	}
	now := s.now().In(s.loc)
	if start.Before(now.Add(time.Duration(bh.MinNoticeHours) * time.Hour)) {
		return ErrInsufficientNotice.WithField("scheduledAt")
	}
	if schedule.StartOfDay(start).After(schedule.StartOfDay(now).AddDate(0, 0, bh.AdvanceDays)) {
		return ErrBeyondAdvanceWindow.WithField("scheduledAt")
	}
	return nil
}

// GetAll returns the most recent appointments, newest scheduled_at first.
func (s *Service) GetAll(ctx context.Context) ([]AppointmentDetail, error) {
	list, err := s.repo.ListRecent(ctx, RecentLimit)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return s.localizeAll(list), nil
}

// GetByDateRange lists appointments scheduled within [StartDate, EndDate], both ISO timestamps.
func (s *Service) GetByDateRange(ctx context.Context, q RangeQuery) ([]AppointmentDetail, error) {
	if err := validation.Struct(q); err != nil {
		return nil, err
	}
	start, err := time.Parse(time.RFC3339Nano, q.StartDate)
	if err != nil {
		return nil, apperr.Validation("startDate", "must be an ISO timestamp")
	}
	end, err := time.Parse(time.RFC3339Nano, q.EndDate)
	if err != nil {
		return nil, apperr.Validation("endDate", "must be an ISO timestamp")
	}
	if end.Before(start) {
		return nil, apperr.Validation("endDate", "must not be before startDate")
	}

	var status *Status
	if q.Status != "" {
		st := Status(q.Status)
		status = &st
	}

	list, err := s.repo.ListByRange(ctx, start, end, status)
	if err != nil {
		return nil, fmt.Errorf("list appointments by range: %w", err)
	}
	return s.localizeAll(list), nil
}

// GetByID returns the appointment with its full service details.
func (s *Service) GetByID(ctx context.Context, id int64) (*AppointmentDetail, error) {
	d, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	s.localize(&d.Appointment)
	return d, nil
}

func (s *Service) localize(a *Appointment) {
	if a == nil {
		return
	}
	a.ScheduledAt = a.ScheduledAt.In(s.loc)
}

func (s *Service) localizeAll(list []AppointmentDetail) []AppointmentDetail {
	if list == nil {
		return []AppointmentDetail{}
	}
	for i := range list {
		s.localize(&list[i].Appointment)
	}
	return list
}

func blockedIntervals(blocks []BlockedSlot) []schedule.Interval {
	out := make([]schedule.Interval, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, b.Interval())
	}
	return out
}

func bookingIntervals(bookings []Booking) []schedule.Interval {
	out := make([]schedule.Interval, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, b.Interval())
	}
	return out
}

func bookingOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeCreated
	case errors.Is(err, ErrSlotBlocked):
		return metrics.OutcomeBlocked
	case errors.Is(err, ErrSlotTaken):
		return metrics.OutcomeConflict
	case errors.Is(err, ErrSlotBeingBooked):
		return metrics.OutcomeContended
	case apperr.KindOf(err) != "":
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}
