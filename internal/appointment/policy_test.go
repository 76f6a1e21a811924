package appointment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrictTransitions(t *testing.T) {
	p := DefaultStrictTransitions()

	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusConfirmed, StatusCompleted, true},
		{StatusCancelled, StatusPending, true},
		{StatusCompleted, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCompleted, StatusCompleted, true},
	}
	for _, tt := range tests {
		err := p.Allow(tt.from, tt.to)
		if tt.ok {
			assert.NoError(t, err, "%s -> %s", tt.from, tt.to)
		} else {
			assert.ErrorIs(t, err, ErrInvalidStatusTransition, "%s -> %s", tt.from, tt.to)
		}
	}
}

func TestAllowAnyTransition(t *testing.T) {
	p := AllowAnyTransition{}
	assert.NoError(t, p.Allow(StatusCompleted, StatusPending))
	assert.ErrorIs(t, p.Allow(StatusPending, Status("archived")), ErrInvalidStatusTransition)
}

func TestPolicyFor(t *testing.T) {
	assert.IsType(t, AllowAnyTransition{}, PolicyFor(false))
	assert.IsType(t, StrictTransitions{}, PolicyFor(true))
}
