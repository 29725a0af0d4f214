package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/ekklesia/internal/app/models"
	"github.com/yigit/ekklesia/internal/pkg/apperrors"
)

type fakeLeaders struct {
	leads map[int64]bool
	err   error
}

func (f fakeLeaders) IsLeader(_ context.Context, _ int64, teamIDs ...int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, id := range teamIDs {
		if f.leads[id] {
			return true, nil
		}
	}
	return false, nil
}

func actor(role models.Role, super bool) *Actor {
	return NewActor(&models.Profile{ID: 9, Role: role, SuperAdmin: super})
}

func TestActor_Roles(t *testing.T) {
	assert.True(t, actor(models.RoleAdmin, false).IsAdmin())
	assert.False(t, actor(models.RoleStaff, false).IsAdmin())
	assert.True(t, actor(models.RoleMiembro, true).IsAdmin())
	assert.True(t, actor(models.RoleStaff, false).HasRole(models.RoleMiembro))

	var none *Actor
	assert.False(t, none.HasRole(models.RoleMiembro))
	assert.False(t, none.IsSuperAdmin())
}

func TestAuthorizationService_RequireRole(t *testing.T) {
	s := NewAuthorizationService(fakeLeaders{}, zerolog.Nop())

	assert.ErrorIs(t, s.RequireRole(nil, models.RoleMiembro), apperrors.ErrUnauthorized)
	assert.ErrorIs(t, s.RequireAdmin(actor(models.RoleStaff, false)), apperrors.ErrPermissionDenied)
	assert.NoError(t, s.RequireAdmin(actor(models.RoleMiembro, true)))
	assert.NoError(t, s.RequireRole(actor(models.RoleStaff, false), models.RoleStaff))
}

func TestAuthorizationService_TeamAndEventManagers(t *testing.T) {
	ctx := context.Background()
	s := NewAuthorizationService(fakeLeaders{leads: map[int64]bool{3: true}}, zerolog.Nop())
	member := actor(models.RoleStaff, false)

	assert.NoError(t, s.ValidateTeamManager(ctx, member, 3))
	assert.ErrorIs(t, s.ValidateTeamManager(ctx, member, 4), apperrors.ErrPermissionDenied)
	assert.NoError(t, s.ValidateTeamManager(ctx, actor(models.RoleAdmin, false), 4))

	assert.NoError(t, s.ValidateEventManager(ctx, member, &models.Event{TeamIDs: []int64{1, 3}}))
	assert.ErrorIs(t, s.ValidateEventManager(ctx, member, &models.Event{}), apperrors.ErrPermissionDenied)

	failing := NewAuthorizationService(fakeLeaders{err: errors.New("db down")}, zerolog.Nop())
	err := failing.ValidateTeamManager(ctx, member, 3)
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrPermissionDenied)
}
