package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	appAuth "github.com/yigit/ekklesia/internal/app/auth"
	"github.com/yigit/ekklesia/internal/app/models"
	"github.com/yigit/ekklesia/internal/app/models/dto"
	"github.com/yigit/ekklesia/internal/pkg/apperrors"
	"github.com/yigit/ekklesia/internal/pkg/auth"
	"github.com/yigit/ekklesia/internal/pkg/websocket"
)

const (
	actorKey = "actor"

	// SuperAdminHeader asks for super admin treatment. Only honoured for flagged profiles.
	SuperAdminHeader = "X-Super-Admin"
)

// ProfileLoader loads the profile behind a token
type ProfileLoader interface {
	GetByID(ctx context.Context, id int64) (*models.Profile, error)
}

// AuthMiddleware for authentication and authorization
type AuthMiddleware struct {
	jwtService *auth.JWTService
	profiles   ProfileLoader
	logger     zerolog.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(jwtService *auth.JWTService, profiles ProfileLoader, logger zerolog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		profiles:   profiles,
		logger:     logger,
	}
}

func abortUnauthorized(c *gin.Context, code dto.ErrorCode, details string) {
	errorDetail := dto.NewErrorDetail(code, "Authentication required").WithDetails(details)
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
}

// tokenFrom reads the Authorization header, falling back to ?token= for websocket clients
func tokenFrom(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		header = c.Query("token")
	}
	token, err := auth.ExtractBearerToken(strings.Trim(header, "\"'"))
	if err != nil {
		return ""
	}
	return token
}

// authenticate resolves the actor of the request. A nil actor with a nil error means no credentials were sent.
func (m *AuthMiddleware) authenticate(c *gin.Context) (*appAuth.Actor, error) {
	token := tokenFrom(c)
	if token == "" {
		return nil, nil
	}

	claims, err := m.jwtService.ValidateToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrTokenInvalid
	}

	profile, err := m.profiles.GetByID(c.Request.Context(), claims.ProfileID)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, apperrors.ErrTokenInvalid
		}
		return nil, err
	}

	if c.GetHeader(SuperAdminHeader) != "" && !profile.SuperAdmin {
		m.logger.Warn().
			Int64("profileID", profile.ID).
			Str("path", c.FullPath()).
			Msg("Ignoring super admin header from a profile without the flag")
	}

	return appAuth.NewActor(profile), nil
}

func setActor(c *gin.Context, actor *appAuth.Actor) {
	c.Set(actorKey, actor)
	c.Set(websocket.ProfileIDKey, actor.ID())
}

// JWTAuth rejects requests without a valid token and stores the actor in the context
func (m *AuthMiddleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := m.authenticate(c)
		switch {
		case errors.Is(err, apperrors.ErrTokenExpired):
			abortUnauthorized(c, dto.ErrorCodeExpiredToken, "Token has expired")
			return
		case errors.Is(err, apperrors.ErrTokenInvalid):
			abortUnauthorized(c, dto.ErrorCodeInvalidToken, "Invalid token")
			return
		case err != nil:
			HandleAPIError(c, err)
			return
		case actor == nil:
			abortUnauthorized(c, dto.ErrorCodeUnauthorized, "Authorization header missing")
			return
		}

		setActor(c, actor)
		c.Next()
	}
}

// OptionalAuth stores the actor when a valid token is sent and lets anonymous requests through.
// An invalid token is treated as anonymous.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := m.authenticate(c)
		if err != nil {
			m.logger.Debug().Err(err).Msg("Ignoring invalid credentials on a public route")
		}
		if actor != nil {
			setActor(c, actor)
		}
		c.Next()
	}
}

// RequireRole rejects actors below min. JWTAuth must run first.
func (m *AuthMiddleware) RequireRole(min models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFrom(c)
		if actor == nil {
			abortUnauthorized(c, dto.ErrorCodeUnauthorized, "User information not found")
			return
		}
		if !actor.HasRole(min) {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeForbidden, "Access denied").
				WithDetails("This action requires the " + string(min) + " role").
				WithSeverity(dto.ErrorSeverityError)
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(errorDetail))
			return
		}
		c.Next()
	}
}

// ActorFrom returns the authenticated actor, or nil on anonymous requests
func ActorFrom(c *gin.Context) *appAuth.Actor {
	v, ok := c.Get(actorKey)
	if !ok {
		return nil
	}
	actor, _ := v.(*appAuth.Actor)
	return actor
}

// SetActor stores actor in the context. Used by tests that bypass token parsing.
func SetActor(c *gin.Context, actor *appAuth.Actor) {
	setActor(c, actor)
}
