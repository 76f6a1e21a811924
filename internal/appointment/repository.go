package appointment

import (
	"context"
	"time"

	"github.com/hackgods/appointment-booking/internal/apperr"
)

var (
	ErrAppointmentNotFound = apperr.NotFound("appointment_not_found", "appointment not found")
	ErrBlockedSlotNotFound = apperr.NotFound("blocked_slot_not_found", "blocked slot not found")
	// ErrStatusChanged is returned by CompareAndSetStatus when the stored status moved.
	ErrStatusChanged = apperr.Conflict("status_changed", "appointment status changed, reload and retry")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Appointment, error)
	GetDetail(ctx context.Context, id int64) (*AppointmentDetail, error)

	// Listings, newest scheduled_at first
	ListRecent(ctx context.Context, limit int) ([]AppointmentDetail, error)
	ListByRange(ctx context.Context, start, end time.Time, status *Status) ([]AppointmentDetail, error)

	// For conflict checks
	// ActiveBookings returns pending/confirmed appointments whose start lies in [from, to].
	ActiveBookings(ctx context.Context, from, to time.Time) ([]Booking, error)
	// BlockedBetween returns blocked slots touching [from, to], ordered by start.
	BlockedBetween(ctx context.Context, from, to time.Time) ([]BlockedSlot, error)

	// Creation and updates
	Insert(ctx context.Context, in NewAppointment) (*Appointment, error)
	CompareAndSetStatus(ctx context.Context, id int64, from, to Status) (*Appointment, error)

	CreateBlockedSlot(ctx context.Context, in NewBlockedSlot) (*BlockedSlot, error)
	DeleteBlockedSlot(ctx context.Context, id int64) error

	// WithBookingTx runs fn against a Repository bound to a single serializable
	// transaction that holds the booking lock for day.
	WithBookingTx(ctx context.Context, day time.Time, fn func(tx Repository) error) error
}
