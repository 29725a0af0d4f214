package middleware

import (
	"errors"
	"net/http"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/yigit/ekklesia/internal/app/models/dto"
	"github.com/yigit/ekklesia/internal/pkg/apperrors"
	"github.com/yigit/ekklesia/internal/pkg/logger"
)

type errorMapping struct {
	target  error
	status  int
	code    dto.ErrorCode
	message string
}

// Checked in order; the first match wins.
var errorMappings = []errorMapping{
	{apperrors.ErrResourceNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found"},
	{apperrors.ErrPermissionDenied, http.StatusForbidden, dto.ErrorCodeForbidden, "Permission denied"},
	{apperrors.ErrUnauthorized, http.StatusUnauthorized, dto.ErrorCodeUnauthorized, "Authentication required"},
	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials, "Invalid credentials"},
	{apperrors.ErrTokenExpired, http.StatusUnauthorized, dto.ErrorCodeExpiredToken, "Token expired"},
	{apperrors.ErrTokenInvalid, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token"},
	{apperrors.ErrTooManyAttempts, http.StatusTooManyRequests, dto.ErrorCodeTooManyAttempts, "Too many attempts, try again later"},
	{apperrors.ErrEmailAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Email already exists"},
	{apperrors.ErrResourceAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Resource already exists"},
	{apperrors.ErrDuplicateRegistration, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Already registered for this event"},
	{apperrors.ErrDuplicateMembership, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Membership already exists for this team"},
	{apperrors.ErrDuplicateAttendanceDate, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "An attendance record already exists for this date"},
	{apperrors.ErrEventFull, http.StatusConflict, dto.ErrorCodeCapacityReached, "Event is at capacity"},
	{apperrors.ErrTeamFull, http.StatusConflict, dto.ErrorCodeCapacityReached, "Team has reached its member limit"},
	{apperrors.ErrConflict, http.StatusConflict, dto.ErrorCodeConflict, "Conflict"},
	{apperrors.ErrInvalidTransition, http.StatusBadRequest, dto.ErrorCodeInvalidTransition, "Invalid status transition"},
	{apperrors.ErrEventNotOpen, http.StatusBadRequest, dto.ErrorCodeBadRequest, "Event is not open for registration"},
	{apperrors.ErrTeamInactive, http.StatusBadRequest, dto.ErrorCodeBadRequest, "Team is not accepting members"},
	{apperrors.ErrValidationFailed, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Validation failed"},
	{apperrors.ErrBadRequest, http.StatusBadRequest, dto.ErrorCodeBadRequest, "Bad request"},
}

// HandleAPIError writes the error response matching err. Unknown errors become a 500
// and are reported to Sentry when a hub is attached to the request.
func HandleAPIError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		detail := dto.NewErrorDetail(m.code, m.message)
		var custom *apperrors.CustomError
		if errors.As(err, &custom) && custom.Message != "" {
			detail = detail.WithDetails(custom.Message)
		}
		c.AbortWithStatusJSON(m.status, dto.NewErrorResponse(detail))
		return
	}

	logger.Ctx(c.Request.Context()).Error().Err(err).
		Str("method", c.Request.Method).
		Str("path", c.FullPath()).
		Msg("Unhandled error")
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	}

	detail := dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error").
		WithSeverity(dto.ErrorSeverityCritical)
	c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponse(detail))
}
