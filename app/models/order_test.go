package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_CanTransition(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"pending to confirmed", StatusPending, StatusConfirmed, true},
		{"confirmed to preparing", StatusConfirmed, StatusPreparing, true},
		{"preparing to ready", StatusPreparing, StatusReady, true},
		{"ready to out for delivery", StatusReady, StatusOutForDelivery, true},
		{"out for delivery to delivered", StatusOutForDelivery, StatusDelivered, true},

		{"pending skips to preparing", StatusPending, StatusPreparing, false},
		{"pending skips to delivered", StatusPending, StatusDelivered, false},
		{"confirmed back to pending", StatusConfirmed, StatusPending, false},
		{"delivered back to ready", StatusDelivered, StatusReady, false},
		{"same status", StatusPreparing, StatusPreparing, false},

		{"cancel pending", StatusPending, StatusCancelled, true},
		{"cancel out for delivery", StatusOutForDelivery, StatusCancelled, true},
		{"cancel delivered", StatusDelivered, StatusCancelled, false},
		{"cancel cancelled", StatusCancelled, StatusCancelled, false},
		{"revive cancelled", StatusCancelled, StatusConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.True(t, StatusDelivered.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	for _, s := range []Status{StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusOutForDelivery} {
		assert.False(t, s.IsTerminal(), string(s))
	}
}

func TestStatus_IsValid(t *testing.T) {
	for _, s := range Statuses {
		assert.True(t, s.IsValid(), string(s))
	}
	assert.False(t, Status("shipped").IsValid())
	assert.False(t, Status("").IsValid())
}
