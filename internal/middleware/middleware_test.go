package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appAuth "github.com/yigit/ekklesia/internal/app/auth"
	"github.com/yigit/ekklesia/internal/app/models"
	"github.com/yigit/ekklesia/internal/app/models/dto"
	"github.com/yigit/ekklesia/internal/pkg/apperrors"
	"github.com/yigit/ekklesia/internal/pkg/auth"
	"github.com/yigit/ekklesia/internal/pkg/websocket"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type profileMap map[int64]*models.Profile

func (m profileMap) GetByID(_ context.Context, id int64) (*models.Profile, error) {
	p, ok := m[id]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError("profile not found")
	}
	return p, nil
}

func newJWT(exp time.Duration) *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{SecretKey: "test-secret", AccessTokenExp: exp, TokenIssuer: "ekklesia.test"})
}

func tokenFor(t *testing.T, s *auth.JWTService, p *models.Profile) string {
	t.Helper()
	token, _, err := s.GenerateToken(p)
	require.NoError(t, err)
	return token
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandleAPIError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   dto.ErrorCode
	}{
		{"not found", apperrors.NewResourceNotFoundError("event not found"), http.StatusNotFound, dto.ErrorCodeResourceNotFound},
		{"forbidden", apperrors.ErrPermissionDenied, http.StatusForbidden, dto.ErrorCodeForbidden},
		{"bad credentials", apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials},
		{"rate limited", apperrors.ErrTooManyAttempts, http.StatusTooManyRequests, dto.ErrorCodeTooManyAttempts},
		{"email taken", apperrors.ErrEmailAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists},
		{"duplicate registration", fmt.Errorf("register: %w", apperrors.ErrDuplicateRegistration), http.StatusConflict, dto.ErrorCodeResourceAlreadyExists},
		{"event full", apperrors.ErrEventFull, http.StatusConflict, dto.ErrorCodeCapacityReached},
		{"team full", apperrors.ErrTeamFull, http.StatusConflict, dto.ErrorCodeCapacityReached},
		{"transition", apperrors.ErrInvalidTransition, http.StatusBadRequest, dto.ErrorCodeInvalidTransition},
		{"event closed", apperrors.ErrEventNotOpen, http.StatusBadRequest, dto.ErrorCodeBadRequest},
		{"bad request", apperrors.NewBadRequestError("window must be positive"), http.StatusBadRequest, dto.ErrorCodeBadRequest},
		{"unknown", fmt.Errorf("connection reset"), http.StatusInternalServerError, dto.ErrorCodeInternalServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			HandleAPIError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			resp := decodeError(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestHandleAPIError_CustomMessageBecomesDetails(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	HandleAPIError(c, apperrors.NewResourceNotFoundError("team not found"))

	resp := decodeError(t, w)
	assert.Equal(t, "team not found", resp.Error.Details)
	assert.Equal(t, dto.ErrorSeverityError, resp.Error.Severity)
}

func newAuthRouter(t *testing.T, jwt *auth.JWTService, profiles profileMap, mw func(*AuthMiddleware) []gin.HandlerFunc) *gin.Engine {
	t.Helper()
	m := NewAuthMiddleware(jwt, profiles, zerolog.Nop())
	r := gin.New()
	handlers := append(mw(m), func(c *gin.Context) {
		actor := ActorFrom(c)
		if actor == nil {
			c.JSON(http.StatusOK, gin.H{"actor": 0})
			return
		}
		c.JSON(http.StatusOK, gin.H{"actor": actor.ID(), "ws": c.GetInt64(websocket.ProfileIDKey)})
	})
	r.GET("/protected", handlers...)
	return r
}

func TestJWTAuth(t *testing.T) {
	jwt := newJWT(time.Hour)
	ana := &models.Profile{ID: 1, Email: "ana@example.com", Role: models.RoleMiembro}
	profiles := profileMap{1: ana}
	r := newAuthRouter(t, jwt, profiles, func(m *AuthMiddleware) []gin.HandlerFunc {
		return []gin.HandlerFunc{m.JWTAuth()}
	})

	t.Run("missing header", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrorCodeUnauthorized, decodeError(t, w).Error.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrorCodeInvalidToken, decodeError(t, w).Error.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := tokenFor(t, newJWT(-time.Hour), ana)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+expired)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrorCodeExpiredToken, decodeError(t, w).Error.Code)
	})

	t.Run("deleted profile", func(t *testing.T) {
		ghost := tokenFor(t, jwt, &models.Profile{ID: 99, Email: "ghost@example.com", Role: models.RoleMiembro})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+ghost)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrorCodeInvalidToken, decodeError(t, w).Error.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, jwt, ana))
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"actor":1,"ws":1}`, w.Body.String())
	})

	t.Run("query token", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected?token="+tokenFor(t, jwt, ana), nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestJWTAuth_SuperAdminHeaderIgnoredWithoutFlag(t *testing.T) {
	jwt := newJWT(time.Hour)
	member := &models.Profile{ID: 2, Email: "beto@example.com", Role: models.RoleMiembro}
	m := NewAuthMiddleware(jwt, profileMap{2: member}, zerolog.Nop())

	r := gin.New()
	r.GET("/admin", m.JWTAuth(), m.RequireRole(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, jwt, member))
	req.Header.Set(SuperAdminHeader, "true")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestOptionalAuth(t *testing.T) {
	jwt := newJWT(time.Hour)
	ana := &models.Profile{ID: 1, Email: "ana@example.com", Role: models.RoleMiembro}
	r := newAuthRouter(t, jwt, profileMap{1: ana}, func(m *AuthMiddleware) []gin.HandlerFunc {
		return []gin.HandlerFunc{m.OptionalAuth()}
	})

	t.Run("anonymous", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"actor":0}`, w.Body.String())
	})

	t.Run("invalid token is anonymous", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer broken")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"actor":0}`, w.Body.String())
	})

	t.Run("valid token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", tokenFor(t, jwt, ana))
		r.ServeHTTP(w, req)
		assert.JSONEq(t, `{"actor":1,"ws":1}`, w.Body.String())
	})
}

func TestRequireRole(t *testing.T) {
	m := NewAuthMiddleware(newJWT(time.Hour), profileMap{}, zerolog.Nop())

	run := func(actor *appAuth.Actor) int {
		r := gin.New()
		r.GET("/staff", func(c *gin.Context) {
			if actor != nil {
				SetActor(c, actor)
			}
		}, m.RequireRole(models.RoleStaff), func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/staff", nil))
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, run(nil))
	assert.Equal(t, http.StatusForbidden, run(appAuth.NewActor(&models.Profile{ID: 1, Role: models.RoleMiembro})))
	assert.Equal(t, http.StatusNoContent, run(appAuth.NewActor(&models.Profile{ID: 2, Role: models.RoleStaff})))
	assert.Equal(t, http.StatusNoContent, run(appAuth.NewActor(&models.Profile{ID: 3, Role: models.RoleAdmin})))
	assert.Equal(t, http.StatusNoContent, run(appAuth.NewActor(&models.Profile{ID: 4, Role: models.RoleMiembro, SuperAdmin: true})))
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(RequestLogger(zerolog.New(&buf)))
	r.GET("/ping", func(c *gin.Context) {
		zerolog.Ctx(c.Request.Context()).Info().Msg("inside")
		c.Status(http.StatusNoContent)
	})

	t.Run("propagates incoming id", func(t *testing.T) {
		buf.Reset()
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(RequestIDHeader, "req-123")
		r.ServeHTTP(w, req)

		assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
		assert.Contains(t, buf.String(), `"requestID":"req-123"`)
		assert.Contains(t, buf.String(), `"message":"inside"`)
		assert.Contains(t, buf.String(), `"status":204`)
	})

	t.Run("generates id", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Len(t, w.Header().Get(RequestIDHeader), 36)
	})
}

func TestParamID(t *testing.T) {
	r := gin.New()
	r.GET("/items/:id", func(c *gin.Context) {
		id, ok := ParamID(c, "id")
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id})
	})

	for path, status := range map[string]int{
		"/items/12":  http.StatusOK,
		"/items/0":   http.StatusBadRequest,
		"/items/-3":  http.StatusBadRequest,
		"/items/abc": http.StatusBadRequest,
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, status, w.Code, path)
	}
}
