package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/ekklesia/internal/app/models"
	"github.com/yigit/ekklesia/internal/pkg/apperrors"
)

func TestRegistrationTransitions(t *testing.T) {
	to, err := Registrations.Next(models.RegistrationPending, ActionApprove)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationApproved, to)

	to, err = Registrations.Next(models.RegistrationPending, ActionReject)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationRejected, to)

	for _, from := range []models.RegistrationStatus{models.RegistrationApproved, models.RegistrationRejected} {
		_, err := Registrations.Next(from, ActionApprove)
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition, "approve from %s", from)
	}
}

func TestMembershipTransitions(t *testing.T) {
	tests := []struct {
		from   models.MembershipStatus
		action Action
		to     models.MembershipStatus
		ok     bool
	}{
		{models.MembershipPending, ActionApprove, models.MembershipApproved, true},
		{models.MembershipPending, ActionReject, models.MembershipRejected, true},
		{models.MembershipApproved, ActionRequestRemoval, models.MembershipRemovalRequested, true},
		{models.MembershipRejected, ActionRequest, models.MembershipPending, true},
		{models.MembershipPending, ActionRequestRemoval, "", false},
		{models.MembershipApproved, ActionApprove, "", false},
		{models.MembershipRemovalRequested, ActionReject, "", false},
		{models.MembershipApproved, ActionRequest, "", false},
	}

	for _, tt := range tests {
		to, err := Memberships.Next(tt.from, tt.action)
		if tt.ok {
			require.NoError(t, err)
			assert.Equal(t, tt.to, to)
		} else {
			assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
		}
		assert.Equal(t, tt.ok, Memberships.Can(tt.from, tt.action))
	}
}

func TestPromotedRole(t *testing.T) {
	assert.Equal(t, models.RoleStaff, PromotedRole(models.RoleMiembro))
	assert.Equal(t, models.RoleStaff, PromotedRole(models.RoleStaff))
	assert.Equal(t, models.RoleAdmin, PromotedRole(models.RoleAdmin))
	assert.True(t, PromotedRole(models.Role("")).AtLeast(models.RoleStaff))
}
