package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyStatusChange(t *testing.T) {
	tests := []struct {
		current, next ApprovalStatus
		want          bool
	}{
		{StatusWaiting, StatusApproved, true},
		{StatusWaiting, StatusDisapproved, true},
		{StatusApproved, StatusApproved, false},
		{StatusDisapproved, StatusDisapproved, false},
		{StatusApproved, StatusWaiting, false},
		{StatusWaiting, StatusWaiting, false},
		{StatusApproved, StatusDisapproved, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ApplyStatusChange(tt.current, tt.next), "%s -> %s", tt.current, tt.next)
	}
}

func TestApplyCarStatusNotifiesOnce(t *testing.T) {
	car := Car{ID: "c1", Status: StatusWaiting}

	car, note := ApplyCarStatus(car, StatusApproved)
	require.NotNil(t, note)
	assert.Equal(t, NotifyCarApproved, note.Kind)
	assert.Equal(t, StatusApproved, car.Status)

	car, note = ApplyCarStatus(car, StatusApproved)
	assert.Nil(t, note)
	assert.Equal(t, StatusApproved, car.Status)
}

func TestApplyTariffRequestStatus(t *testing.T) {
	r := TariffRequest{ID: "r1", Status: StatusWaiting}

	_, note, err := ApplyTariffRequestStatus(r, StatusDisapproved)
	require.NoError(t, err)
	require.NotNil(t, note)
	assert.Equal(t, NotifyTariffDisapproved, note.Kind)

	r.Status = StatusApproved
	_, note, err = ApplyTariffRequestStatus(r, StatusApproved)
	require.NoError(t, err)
	assert.Nil(t, note)

	for _, next := range []ApprovalStatus{StatusDisapproved, StatusWaiting} {
		got, note, err := ApplyTariffRequestStatus(r, next)
		assert.ErrorIs(t, err, ErrRequestDecided)
		assert.Nil(t, note)
		assert.Equal(t, StatusApproved, got.Status)
	}
}
