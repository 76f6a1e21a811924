package appointment

import (
	"fmt"

	"github.com/hackgods/appointment-booking/internal/apperr"
)

var ErrInvalidStatusTransition = apperr.BadRequest("invalid_status_transition", "invalid status transition")

// TransitionPolicy decides which administrator status changes are permitted.
type TransitionPolicy interface {
	Allow(from, to Status) error
}

// AllowAnyTransition accepts every change between known statuses.
type AllowAnyTransition struct{}

func (AllowAnyTransition) Allow(from, to Status) error {
	if !to.Valid() {
		return ErrInvalidStatusTransition
	}
	return nil
}

// StrictTransitions only accepts changes listed in the table. Setting the current status again
// is always allowed.
type StrictTransitions map[Status][]Status

func DefaultStrictTransitions() StrictTransitions {
	return StrictTransitions{
		StatusPending:   {StatusConfirmed, StatusCancelled},
		StatusConfirmed: {StatusCompleted, StatusCancelled},
		StatusCancelled: {StatusPending},
		StatusCompleted: nil,
	}
}

func (t StrictTransitions) Allow(from, to Status) error {
	if !to.Valid() {
		return ErrInvalidStatusTransition
	}
	if from == to {
		return nil
	}
	for _, next := range t[from] {
		if next == to {
			return nil
		}
	}
	return &apperr.Error{
		Kind:    ErrInvalidStatusTransition.Kind,
		Code:    ErrInvalidStatusTransition.Code,
		Message: fmt.Sprintf("cannot move appointment from %s to %s", from, to),
		Field:   "status",
		Err:     ErrInvalidStatusTransition,
	}
}

// PolicyFor picks the policy selected by configuration.
func PolicyFor(strict bool) TransitionPolicy {
	if strict {
		return DefaultStrictTransitions()
	}
	return AllowAnyTransition{}
}
