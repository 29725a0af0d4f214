package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/ekklesia/internal/app/models"
	"github.com/yigit/ekklesia/internal/app/models/dto"
	"github.com/yigit/ekklesia/internal/pkg/apperrors"
	pkgAuth "github.com/yigit/ekklesia/internal/pkg/auth"
	"github.com/yigit/ekklesia/internal/pkg/cache"
)

// Login throttling
const (
	MaxLoginAttempts   = 5
	LoginAttemptWindow = 15 * time.Minute
)

// AuthService handles sign-up, login and password changes
type AuthService struct {
	profiles   ProfileStore
	locations  *LocationService
	jwtService *pkgAuth.JWTService
	attempts   cache.Cache
	logger     zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	profiles ProfileStore,
	locations *LocationService,
	jwtService *pkgAuth.JWTService,
	attempts cache.Cache,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		profiles:   profiles,
		locations:  locations,
		jwtService: jwtService,
		attempts:   attempts,
		logger:     logger,
	}
}

func (s *AuthService) authResponse(profile *models.Profile) (*dto.AuthResponse, error) {
	token, expiresIn, err := s.jwtService.GenerateToken(profile)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{
		Token: dto.TokenResponse{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresIn:   expiresIn,
		},
		Profile: profile,
	}, nil
}

// Register creates a Miembro profile and logs it in
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	sel, err := s.locations.Apply(ctx, models.Selection{}, req.ProvinceID, req.CantonID, req.DistrictID)
	if err != nil {
		return nil, err
	}

	hash, err := pkgAuth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		return nil, err
	}

	profile := &models.Profile{
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Phone:        req.Phone,
		Role:         models.RoleMiembro,
		Address: models.Address{
			ProvinceID: sel.ProvinceID,
			CantonID:   sel.CantonID,
			DistrictID: sel.DistrictID,
		},
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		if errors.Is(err, apperrors.ErrEmailAlreadyExists) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("email", req.Email).Msg("Failed to create profile")
		return nil, err
	}

	created, err := s.profiles.GetByID(ctx, profile.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("profileID", created.ID).Msg("Profile registered")
	return s.authResponse(created)
}

func loginKey(email string) string {
	return "login:" + strings.ToLower(strings.TrimSpace(email))
}

// Login checks credentials and returns an access token. After MaxLoginAttempts attempts
// within LoginAttemptWindow further attempts fail until the window passes.
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	key := loginKey(req.Email)
	attempts, err := s.attempts.Incr(ctx, key, LoginAttemptWindow)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Login attempt counter unavailable")
	} else if attempts > MaxLoginAttempts {
		return nil, apperrors.ErrTooManyAttempts
	}

	profile, err := s.profiles.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if !pkgAuth.CheckPassword(profile.PasswordHash, req.Password) {
		s.logger.Info().Int64("profileID", profile.ID).Int64("attempt", attempts).Msg("Failed login")
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := s.attempts.Delete(ctx, key); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to reset login attempts")
	}
	return s.authResponse(profile)
}

// ChangePassword replaces the password of the actor after checking the current one
func (s *AuthService) ChangePassword(ctx context.Context, profileID int64, req *dto.ChangePasswordRequest) error {
	profile, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		return err
	}
	if !pkgAuth.CheckPassword(profile.PasswordHash, req.CurrentPassword) {
		return apperrors.ErrInvalidCredentials
	}
	hash, err := pkgAuth.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	return s.profiles.UpdatePassword(ctx, profileID, hash)
}
