package appointment

import (
	"time"

	"github.com/hackgods/appointment-booking/internal/schedule"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// ActiveStatuses are the statuses that occupy the calendar.
var ActiveStatuses = []Status{StatusPending, StatusConfirmed}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Active reports whether an appointment in this status blocks availability.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

type Appointment struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Notes       *string   `json:"notes"`
	ServiceID   int64     `json:"serviceId"`
	ScheduledAt time.Time `json:"scheduledAt"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ServiceSummary is the service data joined onto appointment reads.
type ServiceSummary struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Duration    int     `json:"duration"`
	Price       *int    `json:"price,omitempty"`
}

type AppointmentDetail struct {
	Appointment
	Service *ServiceSummary `json:"service"`
}

// Booking is an active appointment reduced to what conflict checks need.
type Booking struct {
	ID          int64
	ScheduledAt time.Time
	Duration    int // minutes
}

func (b Booking) Interval() schedule.Interval {
	return schedule.Interval{
		Start: b.ScheduledAt,
		End:   b.ScheduledAt.Add(time.Duration(b.Duration) * time.Minute),
	}
}

// NewAppointment is a validated booking ready to be stored as pending.
type NewAppointment struct {
	Name        string
	Email       string
	Phone       string
	Notes       *string
	ServiceID   int64
	ScheduledAt time.Time
}

// BlockedSlot is an administrator-declared closed interval in which nothing can be booked.
type BlockedSlot struct {
	ID          int64     `json:"id"`
	StartAt     time.Time `json:"startAt"`
	EndAt       time.Time `json:"endAt"`
	Reason      string    `json:"reason"`
	IsRecurring bool      `json:"isRecurring"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (b BlockedSlot) Interval() schedule.Interval {
	return schedule.Interval{Start: b.StartAt, End: b.EndAt}
}

// NewBlockedSlot is a parsed block ready to be stored.
type NewBlockedSlot struct {
	StartAt     time.Time
	EndAt       time.Time
	Reason      string
	IsRecurring bool
}

type CreateInput struct {
	Name        string  `json:"name" validate:"required,min=2"`
	Email       string  `json:"email" validate:"required,email"`
	Phone       string  `json:"phone" validate:"required,min_digits=10"`
	ServiceID   int64   `json:"serviceId" validate:"gt=0"`
	ScheduledAt string  `json:"scheduledAt" validate:"required,datetime=2006-01-02T15:04"`
	Notes       *string `json:"notes"`
}

type SlotsQuery struct {
	Date      string `json:"date" validate:"required"`
	ServiceID int64  `json:"serviceId" validate:"gt=0"`
}

type RangeQuery struct {
	StartDate string `json:"startDate" validate:"required"`
	EndDate   string `json:"endDate" validate:"required"`
	Status    string `json:"status" validate:"omitempty,oneof=pending confirmed cancelled completed"`
}

type CancelInput struct {
	Email string `json:"email" validate:"required,email"`
}

type UpdateStatusInput struct {
	Status Status `json:"status" validate:"required,oneof=pending confirmed cancelled completed"`
}

type BlockedSlotInput struct {
	StartAt     string `json:"startAt" validate:"required,datetime=2006-01-02T15:04"`
	EndAt       string `json:"endAt" validate:"required,datetime=2006-01-02T15:04"`
	Reason      string `json:"reason" validate:"required,min=1"`
	IsRecurring bool   `json:"isRecurring"`
}

// Created is the booking acknowledgement returned to the customer.
type Created struct {
	ID int64 `json:"id"`
}
