package appointment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hackgods/appointment-booking/internal/apperr"
	"github.com/hackgods/appointment-booking/internal/schedule"
	"github.com/hackgods/appointment-booking/internal/validation"
)

// ListBlocked returns blocked slots touching [from, to].
func (s *Service) ListBlocked(ctx context.Context, from, to time.Time) ([]BlockedSlot, error) {
	if to.Before(from) {
		return nil, apperr.Validation("end", "must not be before start")
	}
	list, err := s.repo.BlockedBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list blocked slots: %w", err)
	}
	if list == nil {
		list = []BlockedSlot{}
	}
	for i := range list {
		list[i].StartAt = list[i].StartAt.In(s.loc)
		list[i].EndAt = list[i].EndAt.In(s.loc)
	}
	return list, nil
}

// CreateBlocked declares [StartAt, EndAt] unavailable. Existing appointments inside the
// period are left untouched and only logged.
func (s *Service) CreateBlocked(ctx context.Context, in BlockedSlotInput) (*BlockedSlot, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	start, err := schedule.ParseAPI(in.StartAt, s.loc)
	if err != nil {
		return nil, apperr.Validation("startAt", "must match YYYY-MM-DDTHH:mm")
	}
	end, err := schedule.ParseAPI(in.EndAt, s.loc)
	if err != nil {
		return nil, apperr.Validation("endAt", "must match YYYY-MM-DDTHH:mm")
	}
	if !start.Before(end) {
		return nil, apperr.Validation("endAt", "must be after startAt")
	}

	b, err := s.repo.CreateBlockedSlot(ctx, NewBlockedSlot{
		StartAt:     start,
		EndAt:       end,
		Reason:      in.Reason,
		IsRecurring: in.IsRecurring,
	})
	if err != nil {
		return nil, err
	}

	if affected, err := s.repo.ActiveBookings(ctx, start, end); err == nil && len(affected) > 0 {
		s.logger.Warn("blocked period covers active appointments", "blocked_slot_id", b.ID, "appointments", len(affected))
	}
	s.logger.Info("blocked slot created", "blocked_slot_id", b.ID, "start_at", in.StartAt, "end_at", in.EndAt)

	b.StartAt = b.StartAt.In(s.loc)
	b.EndAt = b.EndAt.In(s.loc)
	return b, nil
}

func (s *Service) DeleteBlocked(ctx context.Context, id int64) error {
	if err := s.repo.DeleteBlockedSlot(ctx, id); err != nil {
		return err
	}
	s.logger.Info("blocked slot deleted", "blocked_slot_id", id)
	return nil
}
