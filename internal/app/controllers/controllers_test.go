package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/ekklesia/internal/app/auth"
	"github.com/yigit/ekklesia/internal/app/models"
	"github.com/yigit/ekklesia/internal/app/models/dto"
	"github.com/yigit/ekklesia/internal/app/workflow"
	"github.com/yigit/ekklesia/internal/middleware"
	"github.com/yigit/ekklesia/internal/pkg/apperrors"
	"github.com/yigit/ekklesia/internal/pkg/export"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var member = auth.NewActor(&models.Profile{ID: 5, Email: "ana@example.com", Role: models.RoleMiembro})

// withActor skips token parsing
func withActor(actor *auth.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.SetActor(c, actor)
	}
}

// Unimplemented methods panic through the nil embedded interface.
type stubEventService struct {
	EventService
	registerErr error
	gotNotes    *string
	decided     workflow.Action
	roster      export.Roster
}

func (s *stubEventService) Register(_ context.Context, actor *auth.Actor, eventID int64, req *dto.EventRegistrationRequest) (*models.EventRegistration, error) {
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	s.gotNotes = req.Notes
	return &models.EventRegistration{ID: 10, EventID: eventID, ProfileID: actor.ID(), Status: models.RegistrationPending}, nil
}

func (s *stubEventService) DecideRegistration(_ context.Context, _ *auth.Actor, id int64, action workflow.Action) (*models.EventRegistration, error) {
	s.decided = action
	return &models.EventRegistration{ID: id, Status: models.RegistrationApproved}, nil
}

func (s *stubEventService) AttendeeRoster(context.Context, *auth.Actor, int64) (export.Roster, error) {
	return s.roster, nil
}

func newEventRouter(svc EventService) *gin.Engine {
	c := NewEventController(svc)
	r := gin.New()
	r.Use(withActor(member))
	r.POST("/events/:id/registrations", c.Register)
	r.POST("/events/registrations/:registrationId/approve", c.ApproveRegistration)
	r.GET("/events/:id/attendees/export", c.ExportAttendees)
	return r
}

func TestEventController_Register(t *testing.T) {
	t.Run("without body", func(t *testing.T) {
		svc := &stubEventService{}
		w := httptest.NewRecorder()
		newEventRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/events/3/registrations", nil))

		require.Equal(t, http.StatusCreated, w.Code)
		var resp struct {
			Success bool                     `json:"success"`
			Data    models.EventRegistration `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, int64(3), resp.Data.EventID)
		assert.Equal(t, int64(5), resp.Data.ProfileID)
		assert.Equal(t, models.RegistrationPending, resp.Data.Status)
	})

	t.Run("with notes", func(t *testing.T) {
		svc := &stubEventService{}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/events/3/registrations", strings.NewReader(`{"notes":"vegetarian"}`))
		req.Header.Set("Content-Type", "application/json")
		newEventRouter(svc).ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code)
		require.NotNil(t, svc.gotNotes)
		assert.Equal(t, "vegetarian", *svc.gotNotes)
	})

	t.Run("notes too long", func(t *testing.T) {
		svc := &stubEventService{}
		w := httptest.NewRecorder()
		body := `{"notes":"` + strings.Repeat("x", 501) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/events/3/registrations", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		newEventRouter(svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("duplicate", func(t *testing.T) {
		svc := &stubEventService{registerErr: apperrors.ErrDuplicateRegistration}
		w := httptest.NewRecorder()
		newEventRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/events/3/registrations", nil))
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("full", func(t *testing.T) {
		svc := &stubEventService{registerErr: apperrors.ErrEventFull}
		w := httptest.NewRecorder()
		newEventRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/events/3/registrations", nil))
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), string(dto.ErrorCodeCapacityReached))
	})

	t.Run("bad id", func(t *testing.T) {
		w := httptest.NewRecorder()
		newEventRouter(&stubEventService{}).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/events/abc/registrations", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestEventController_ApproveRegistration(t *testing.T) {
	svc := &stubEventService{}
	w := httptest.NewRecorder()
	newEventRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/events/registrations/44/approve", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, workflow.ActionApprove, svc.decided)
}

func TestEventController_ExportAttendees(t *testing.T) {
	svc := &stubEventService{roster: export.Roster{
		Title:       "Retiro Juvenil 2026",
		Columns:     []string{"Name", "Email"},
		Rows:        [][]string{{"Ana Mora", "ana@example.com"}},
		GeneratedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}}
	router := newEventRouter(svc)

	t.Run("xlsx by default", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events/3/attendees/export", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, export.FormatXLSX.ContentType(), w.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="retiro-juvenil-2026.xlsx"`, w.Header().Get("Content-Disposition"))
		assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")
	})

	t.Run("pdf", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events/3/attendees/export?format=pdf", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
	})

	t.Run("unknown format", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events/3/attendees/export?format=docx", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

type stubAttendanceService struct {
	AttendanceService
	body     string
	override bool
	window   int
}

func (s *stubAttendanceService) Import(_ context.Context, _ *auth.Actor, r io.Reader, override bool) (*dto.ImportResultResponse, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s.body = string(b)
	s.override = override
	return &dto.ImportResultResponse{Inserted: 2}, nil
}

func (s *stubAttendanceService) Stats(_ context.Context, _ *auth.Actor, window int) (*dto.AttendanceStatsResponse, error) {
	s.window = window
	return &dto.AttendanceStatsResponse{Window: window}, nil
}

func newAttendanceRouter(svc AttendanceService) *gin.Engine {
	c := NewAttendanceController(svc)
	r := gin.New()
	r.Use(withActor(auth.NewActor(&models.Profile{ID: 1, Role: models.RoleStaff})))
	r.POST("/attendance/import", c.Import)
	r.GET("/attendance/stats", c.Stats)
	return r
}

func multipartBody(t *testing.T, field, filename, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestAttendanceController_Import(t *testing.T) {
	csv := "date,men,women,youth,children,visitors\n2026-03-01,40,52,18,25,6\n"

	t.Run("passes file and override flag", func(t *testing.T) {
		svc := &stubAttendanceService{}
		body, contentType := multipartBody(t, "file", "attendance.csv", csv, map[string]string{"overrideExisting": "true"})
		req := httptest.NewRequest(http.MethodPost, "/attendance/import", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		newAttendanceRouter(svc).ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, csv, svc.body)
		assert.True(t, svc.override)
		assert.Contains(t, w.Body.String(), `"inserted":2`)
	})

	t.Run("override defaults to false", func(t *testing.T) {
		svc := &stubAttendanceService{}
		body, contentType := multipartBody(t, "file", "attendance.csv", csv, nil)
		req := httptest.NewRequest(http.MethodPost, "/attendance/import", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		newAttendanceRouter(svc).ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.False(t, svc.override)
	})

	t.Run("missing file", func(t *testing.T) {
		body, contentType := multipartBody(t, "", "", "", map[string]string{"overrideExisting": "true"})
		req := httptest.NewRequest(http.MethodPost, "/attendance/import", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		newAttendanceRouter(&stubAttendanceService{}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), `"field":"file"`)
	})
}

func TestAttendanceController_Stats(t *testing.T) {
	tests := []struct {
		query  string
		status int
		window int
	}{
		{"", http.StatusOK, 0},
		{"?window=8", http.StatusOK, 8},
		{"?window=0", http.StatusBadRequest, 0},
		{"?window=four", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			svc := &stubAttendanceService{}
			w := httptest.NewRecorder()
			newAttendanceRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/attendance/stats"+tt.query, nil))
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.window, svc.window)
		})
	}
}
