package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/ekklesia/internal/app/auth"
	"github.com/yigit/ekklesia/internal/app/models"
	"github.com/yigit/ekklesia/internal/app/models/dto"
	"github.com/yigit/ekklesia/internal/app/repositories"
	"github.com/yigit/ekklesia/internal/pkg/apperrors"
	pkgAuth "github.com/yigit/ekklesia/internal/pkg/auth"
	"github.com/yigit/ekklesia/internal/pkg/email"
	"github.com/yigit/ekklesia/internal/pkg/helpers"
)

// ProfileStore is the profile persistence used by the services
type ProfileStore interface {
	Create(ctx context.Context, p *models.Profile) error
	GetByID(ctx context.Context, id int64) (*models.Profile, error)
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)
	Update(ctx context.Context, p *models.Profile) error
	UpdatePicture(ctx context.Context, id int64, url *string) error
	UpdateRole(ctx context.Context, id int64, role models.Role) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
	List(ctx context.Context, filter repositories.ProfileFilter) ([]*models.Profile, int64, error)
	ListByRole(ctx context.Context, role models.Role) ([]*models.Profile, error)
}

// ProfileService handles self-service and administration of profiles
type ProfileService struct {
	profiles  ProfileStore
	locations *LocationService
	images    ImageStore
	notifier  Notifier
	authz     *auth.AuthorizationService
	loginURL  string
	logger    zerolog.Logger
}

// NewProfileService creates a new ProfileService
func NewProfileService(
	profiles ProfileStore,
	locations *LocationService,
	images ImageStore,
	notifier Notifier,
	authz *auth.AuthorizationService,
	loginURL string,
	logger zerolog.Logger,
) *ProfileService {
	return &ProfileService{
		profiles:  profiles,
		locations: locations,
		images:    images,
		notifier:  notifier,
		authz:     authz,
		loginURL:  loginURL,
		logger:    logger,
	}
}

// GetMe reloads the profile of the actor
func (s *ProfileService) GetMe(ctx context.Context, actor *auth.Actor) (*models.Profile, error) {
	if actor == nil {
		return nil, apperrors.ErrUnauthorized
	}
	return s.profiles.GetByID(ctx, actor.ID())
}

// UpdateMe applies a partial self-edit
func (s *ProfileService) UpdateMe(ctx context.Context, actor *auth.Actor, req *dto.UpdateProfileRequest) (*models.Profile, error) {
	profile, err := s.GetMe(ctx, actor)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		profile.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		profile.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		profile.Phone = &phone
		if phone == "" {
			profile.Phone = nil
		}
	}

	sel := models.SelectionFromAddress(profile.Address)
	if req.ClearAddress {
		sel = sel.Clear()
	} else {
		sel, err = s.locations.Apply(ctx, sel, req.ProvinceID, req.CantonID, req.DistrictID)
		if err != nil {
			return nil, err
		}
	}
	profile.Address = models.Address{ProvinceID: sel.ProvinceID, CantonID: sel.CantonID, DistrictID: sel.DistrictID}

	if err := s.profiles.Update(ctx, profile); err != nil {
		s.logger.Error().Err(err).Int64("profileID", profile.ID).Msg("Failed to update profile")
		return nil, err
	}
	return s.profiles.GetByID(ctx, profile.ID)
}

// UploadPicture replaces the picture of the actor
func (s *ProfileService) UploadPicture(ctx context.Context, actor *auth.Actor, fileHeader *multipart.FileHeader) (*models.Profile, error) {
	profile, err := s.GetMe(ctx, actor)
	if err != nil {
		return nil, err
	}

	url, err := s.images.Save(ctx, fileHeader, "profiles")
	if err != nil {
		return nil, err
	}
	if err := s.profiles.UpdatePicture(ctx, profile.ID, &url); err != nil {
		_ = s.images.Delete(ctx, url)
		return nil, err
	}
	if profile.PictureURL != nil {
		if err := s.images.Delete(ctx, *profile.PictureURL); err != nil {
			s.logger.Warn().Err(err).Str("url", *profile.PictureURL).Msg("Failed to delete old profile picture")
		}
	}
	profile.PictureURL = &url
	return profile, nil
}

// DeletePicture removes the picture of the actor
func (s *ProfileService) DeletePicture(ctx context.Context, actor *auth.Actor) error {
	profile, err := s.GetMe(ctx, actor)
	if err != nil {
		return err
	}
	if profile.PictureURL == nil {
		return nil
	}
	if err := s.profiles.UpdatePicture(ctx, profile.ID, nil); err != nil {
		return err
	}
	if err := s.images.Delete(ctx, *profile.PictureURL); err != nil {
		s.logger.Warn().Err(err).Str("url", *profile.PictureURL).Msg("Failed to delete profile picture")
	}
	return nil
}

// List returns a page of profiles. Admin only.
func (s *ProfileService) List(ctx context.Context, actor *auth.Actor, req *dto.ProfileFilterRequest, page helpers.Page) (*dto.PaginatedResponse, error) {
	if err := s.authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	filter := repositories.ProfileFilter{Search: req.Search, Page: page}
	if req.Role != "" {
		role := models.Role(req.Role)
		filter.Role = &role
	}
	profiles, total, err := s.profiles.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &dto.PaginatedResponse{Items: profiles, Pagination: helpers.NewPaginationInfo(total, page)}, nil
}

// Get returns one profile. Admins see everyone, others only themselves.
func (s *ProfileService) Get(ctx context.Context, actor *auth.Actor, id int64) (*models.Profile, error) {
	if actor == nil || actor.ID() != id {
		if err := s.authz.RequireAdmin(actor); err != nil {
			return nil, err
		}
	}
	return s.profiles.GetByID(ctx, id)
}

// Invite creates a profile with a temporary password and emails it. Only a super admin may
// invite admins.
func (s *ProfileService) Invite(ctx context.Context, actor *auth.Actor, req *dto.InviteProfileRequest) (*models.Profile, error) {
	if err := s.authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	role := req.Role
	if role == "" {
		role = models.RoleMiembro
	}
	if role == models.RoleAdmin && !actor.IsSuperAdmin() {
		return nil, apperrors.NewForbiddenError("only the super admin can invite admins")
	}

	tempPassword, err := pkgAuth.TemporaryPassword()
	if err != nil {
		return nil, fmt.Errorf("failed to generate temporary password: %w", err)
	}
	hash, err := pkgAuth.HashPassword(tempPassword)
	if err != nil {
		return nil, err
	}

	profile := &models.Profile{
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         role,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, err
	}

	s.notifier.Notify(email.TemplateProfileInvited, profile, email.Data{
		URL:          s.loginURL,
		TempPassword: tempPassword,
	})
	s.logger.Info().Int64("profileID", profile.ID).Int64("invitedBy", actor.ID()).Str("role", string(role)).Msg("Profile invited")
	return profile, nil
}

// ChangeRole sets the global role of a profile. Granting or revoking Admin is reserved to the
// super admin, and nobody changes their own role.
func (s *ProfileService) ChangeRole(ctx context.Context, actor *auth.Actor, id int64, role models.Role) (*models.Profile, error) {
	if err := s.authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, apperrors.NewBadRequestError(fmt.Sprintf("unknown role %q", role))
	}
	if actor.ID() == id {
		return nil, apperrors.NewBadRequestError("you cannot change your own role")
	}

	target, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	touchesAdmin := role == models.RoleAdmin || target.Role == models.RoleAdmin || target.SuperAdmin
	if touchesAdmin && !actor.IsSuperAdmin() {
		return nil, apperrors.NewForbiddenError("only the super admin can grant or revoke the Admin role")
	}
	if target.Role == role {
		return target, nil
	}

	if err := s.profiles.UpdateRole(ctx, id, role); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("profileID", id).Str("from", string(target.Role)).Str("to", string(role)).
		Int64("changedBy", actor.ID()).Msg("Profile role changed")
	target.Role = role
	return target, nil
}
