package appointment

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/hackgods/appointment-booking/internal/validation"
)

// Cancel is the customer-facing cancellation. An unknown id is reported before the email is
// checked. The supplied email must equal the stored one; cancelled and completed appointments
// are rejected.
func (s *Service) Cancel(ctx context.Context, id int64, in CancelInput) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointment.Cancel")
	defer span.End()
	span.SetAttributes(attribute.Int64("agenda.appointment_id", id))

	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if appt.Email != in.Email {
		s.logger.Warn("cancel rejected: email mismatch", "appointment_id", id)
		return nil, ErrEmailMismatch
	}
	switch appt.Status {
	case StatusCancelled:
		return nil, ErrAlreadyCancelled
	case StatusCompleted:
		return nil, ErrCannotCancelCompleted
	}

	updated, err := s.repo.CompareAndSetStatus(ctx, id, appt.Status, StatusCancelled)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.metrics.ObserveTransition("customer", string(StatusCancelled))
	s.logger.Info("appointment cancelled", "appointment_id", id, "previous_status", appt.Status)
	s.localize(updated)
	return updated, nil
}

// UpdateStatus is the administrator status change, checked against the configured policy.
func (s *Service) UpdateStatus(ctx context.Context, id int64, in UpdateStatusInput) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointment.UpdateStatus")
	defer span.End()
	span.SetAttributes(attribute.Int64("agenda.appointment_id", id), attribute.String("agenda.status", string(in.Status)))

	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Allow(appt.Status, in.Status); err != nil {
		return nil, err
	}

	updated, err := s.repo.CompareAndSetStatus(ctx, id, appt.Status, in.Status)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	s.metrics.ObserveTransition("admin", string(in.Status))
	s.logger.Info("appointment status updated", "appointment_id", id, "from", appt.Status, "to", in.Status)
	s.localize(updated)
	return updated, nil
}
