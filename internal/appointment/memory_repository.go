package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hackgods/appointment-booking/internal/catalog"
)

// InMemoryRepository keeps appointments and blocked slots in maps. Service data for joins and
// booking durations is read from the catalog repository it was built with. Backs STORAGE=memory
// runs and tests.
type InMemoryRepository struct {
	services catalog.Repository

	// bookingMu serializes WithBookingTx callers the way the advisory lock does.
	bookingMu sync.Mutex

	mu           sync.RWMutex
	nextID       int64
	nextBlockID  int64
	appointments map[int64]*Appointment
	blocked      map[int64]*BlockedSlot
}

func NewInMemoryRepository(services catalog.Repository) *InMemoryRepository {
	return &InMemoryRepository{
		services:     services,
		appointments: make(map[int64]*Appointment),
		blocked:      make(map[int64]*BlockedSlot),
	}
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *InMemoryRepository) GetDetail(ctx context.Context, id int64) (*AppointmentDetail, error) {
	a, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d := r.detail(ctx, *a)
	return &d, nil
}

func (r *InMemoryRepository) ListRecent(ctx context.Context, limit int) ([]AppointmentDetail, error) {
	all := r.filter(func(*Appointment) bool { return true })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return r.details(ctx, all), nil
}

func (r *InMemoryRepository) ListByRange(ctx context.Context, start, end time.Time, status *Status) ([]AppointmentDetail, error) {
	matched := r.filter(func(a *Appointment) bool {
		if a.ScheduledAt.Before(start) || a.ScheduledAt.After(end) {
			return false
		}
		return status == nil || a.Status == *status
	})
	return r.details(ctx, matched), nil
}

func (r *InMemoryRepository) ActiveBookings(ctx context.Context, from, to time.Time) ([]Booking, error) {
	matched := r.filter(func(a *Appointment) bool {
		return a.Status.Active() && !a.ScheduledAt.Before(from) && !a.ScheduledAt.After(to)
	})
	out := make([]Booking, 0, len(matched))
	for i := len(matched) - 1; i >= 0; i-- {
		a := matched[i]
		duration := catalog.DefaultDurationMinutes
		if s, err := r.services.GetByID(ctx, a.ServiceID); err == nil {
			duration = s.Duration
		}
		out = append(out, Booking{ID: a.ID, ScheduledAt: a.ScheduledAt, Duration: duration})
	}
	return out, nil
}

func (r *InMemoryRepository) BlockedBetween(ctx context.Context, from, to time.Time) ([]BlockedSlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []BlockedSlot
	for _, b := range r.blocked {
		if !b.StartAt.After(to) && !b.EndAt.Before(from) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, nil
}

func (r *InMemoryRepository) Insert(ctx context.Context, in NewAppointment) (*Appointment, error) {
	if _, err := r.services.GetByID(ctx, in.ServiceID); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	now := time.Now().UTC()
	a := &Appointment{
		ID:          r.nextID,
		Name:        in.Name,
		Email:       in.Email,
		Phone:       in.Phone,
		Notes:       in.Notes,
		ServiceID:   in.ServiceID,
		ScheduledAt: in.ScheduledAt,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.appointments[a.ID] = a
	cp := *a
	return &cp, nil
}

func (r *InMemoryRepository) CompareAndSetStatus(ctx context.Context, id int64, from, to Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrStatusChanged
	}
	a.Status = to
	a.UpdatedAt = time.Now().UTC()
	cp := *a
	return &cp, nil
}

func (r *InMemoryRepository) CreateBlockedSlot(ctx context.Context, in NewBlockedSlot) (*BlockedSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextBlockID++
	b := &BlockedSlot{
		ID:          r.nextBlockID,
		StartAt:     in.StartAt,
		EndAt:       in.EndAt,
		Reason:      in.Reason,
		IsRecurring: in.IsRecurring,
		CreatedAt:   time.Now().UTC(),
	}
	r.blocked[b.ID] = b
	cp := *b
	return &cp, nil
}

func (r *InMemoryRepository) DeleteBlockedSlot(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.blocked[id]; !ok {
		return ErrBlockedSlotNotFound
	}
	delete(r.blocked, id)
	return nil
}

func (r *InMemoryRepository) WithBookingTx(ctx context.Context, day time.Time, fn func(tx Repository) error) error {
	r.bookingMu.Lock()
	defer r.bookingMu.Unlock()
	return fn(r)
}

// filter returns copies of matching appointments, newest scheduled_at first.
func (r *InMemoryRepository) filter(keep func(*Appointment) bool) []Appointment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Appointment
	for _, a := range r.appointments {
		if keep(a) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].ScheduledAt.After(out[j].ScheduledAt)
	})
	return out
}

func (r *InMemoryRepository) details(ctx context.Context, list []Appointment) []AppointmentDetail {
	out := make([]AppointmentDetail, 0, len(list))
	for _, a := range list {
		out = append(out, r.detail(ctx, a))
	}
	return out
}

func (r *InMemoryRepository) detail(ctx context.Context, a Appointment) AppointmentDetail {
	d := AppointmentDetail{Appointment: a}
	if s, err := r.services.GetByID(ctx, a.ServiceID); err == nil {
		d.Service = &ServiceSummary{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Duration:    s.Duration,
			Price:       s.Price,
		}
	}
	return d
}
