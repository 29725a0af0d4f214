package auth

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/ekklesia/internal/app/models"
	"github.com/yigit/ekklesia/internal/pkg/apperrors"
)

// LeaderLookup answers whether a profile is an approved leader of any of the given teams
type LeaderLookup interface {
	IsLeader(ctx context.Context, profileID int64, teamIDs ...int64) (bool, error)
}

// AuthorizationService handles authorization operations
type AuthorizationService struct {
	leaders LeaderLookup
	logger  zerolog.Logger
}

// NewAuthorizationService creates a new AuthorizationService
func NewAuthorizationService(leaders LeaderLookup, logger zerolog.Logger) *AuthorizationService {
	return &AuthorizationService{leaders: leaders, logger: logger}
}

// RequireRole returns ErrUnauthorized without an actor and a forbidden error below min
func (s *AuthorizationService) RequireRole(actor *Actor, min models.Role) error {
	if actor == nil || actor.Profile == nil {
		return apperrors.ErrUnauthorized
	}
	if !actor.HasRole(min) {
		return apperrors.NewForbiddenError(fmt.Sprintf("this action requires the %s role", min))
	}
	return nil
}

// RequireAdmin is RequireRole(actor, Admin)
func (s *AuthorizationService) RequireAdmin(actor *Actor) error {
	return s.RequireRole(actor, models.RoleAdmin)
}

// CanManageTeams reports whether actor is an admin or an approved leader of any of teamIDs
func (s *AuthorizationService) CanManageTeams(ctx context.Context, actor *Actor, teamIDs ...int64) (bool, error) {
	if actor == nil || actor.Profile == nil {
		return false, apperrors.ErrUnauthorized
	}
	if actor.IsAdmin() {
		return true, nil
	}
	ok, err := s.leaders.IsLeader(ctx, actor.ID(), teamIDs...)
	if err != nil {
		s.logger.Error().Err(err).Int64("profileID", actor.ID()).Ints64("teamIDs", teamIDs).Msg("Error checking team leadership")
		return false, fmt.Errorf("failed to check team leadership: %w", err)
	}
	return ok, nil
}

// ValidateTeamManager allows admins and approved leaders of the team
func (s *AuthorizationService) ValidateTeamManager(ctx context.Context, actor *Actor, teamID int64) error {
	ok, err := s.CanManageTeams(ctx, actor, teamID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewForbiddenError("only admins or leaders of this team can do this")
	}
	return nil
}

// ValidateEventManager allows admins and approved leaders of a team associated with the event
func (s *AuthorizationService) ValidateEventManager(ctx context.Context, actor *Actor, event *models.Event) error {
	ok, err := s.CanManageTeams(ctx, actor, event.TeamIDs...)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewForbiddenError("only admins or leaders of an associated team can do this")
	}
	return nil
}
