package services

import (
	"context"
	"io"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/ekklesia/internal/app/auth"
	"github.com/yigit/ekklesia/internal/app/models"
	"github.com/yigit/ekklesia/internal/app/models/dto"
	"github.com/yigit/ekklesia/internal/app/repositories"
	"github.com/yigit/ekklesia/internal/pkg/apperrors"
	"github.com/yigit/ekklesia/internal/pkg/csvimport"
	"github.com/yigit/ekklesia/internal/pkg/helpers"
)

// AttendanceStore is the attendance persistence
type AttendanceStore interface {
	Create(ctx context.Context, a *models.AttendanceRecord) error
	Update(ctx context.Context, a *models.AttendanceRecord) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*models.AttendanceRecord, error)
	List(ctx context.Context, filter repositories.AttendanceFilter) ([]*models.AttendanceRecord, int64, error)
	Recent(ctx context.Context, n int) ([]*models.AttendanceRecord, error)
	Highest(ctx context.Context) (*models.AttendanceRecord, error)
	Import(ctx context.Context, records []*models.AttendanceRecord, override bool) ([]models.UpsertOutcome, error)
}

// AttendanceService records service headcounts. Staff and above.
type AttendanceService struct {
	records       AttendanceStore
	authz         *auth.AuthorizationService
	rollingWindow int
	logger        zerolog.Logger
}

// NewAttendanceService creates a new AttendanceService
func NewAttendanceService(records AttendanceStore, authz *auth.AuthorizationService, rollingWindow int, logger zerolog.Logger) *AttendanceService {
	return &AttendanceService{
		records:       records,
		authz:         authz,
		rollingWindow: rollingWindow,
		logger:        logger,
	}
}

// parseServiceDate accepts YYYY-MM-DD as well as the DD/MM/YY[YY] form of the CSV files
func parseServiceDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := csvimport.ParseDate(s)
	if err != nil {
		return time.Time{}, apperrors.NewBadRequestError("invalid date " + s + ", expected YYYY-MM-DD or DD/MM/YYYY")
	}
	return t, nil
}

func applyAttendanceRequest(a *models.AttendanceRecord, req *dto.AttendanceRequest) error {
	date, err := parseServiceDate(req.Date)
	if err != nil {
		return err
	}
	a.Date = date
	a.Adults = req.Adults
	a.Teens = req.Teens
	a.Kids = req.Kids
	a.Babies = req.Babies
	a.NewPeople = req.NewPeople
	a.Notes = req.Notes
	a.Total = a.ComputeTotal()
	return nil
}

// Create stores the record of a new service date
func (s *AttendanceService) Create(ctx context.Context, actor *auth.Actor, req *dto.AttendanceRequest) (*models.AttendanceRecord, error) {
	if err := s.authz.RequireRole(actor, models.RoleStaff); err != nil {
		return nil, err
	}
	recordedBy := actor.ID()
	a := &models.AttendanceRecord{RecordedBy: &recordedBy}
	if err := applyAttendanceRequest(a, req); err != nil {
		return nil, err
	}
	if err := s.records.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Update replaces the counts of a record
func (s *AttendanceService) Update(ctx context.Context, actor *auth.Actor, id int64, req *dto.AttendanceRequest) (*models.AttendanceRecord, error) {
	if err := s.authz.RequireRole(actor, models.RoleStaff); err != nil {
		return nil, err
	}
	a, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyAttendanceRequest(a, req); err != nil {
		return nil, err
	}
	if err := s.records.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Delete removes a record
func (s *AttendanceService) Delete(ctx context.Context, actor *auth.Actor, id int64) error {
	if err := s.authz.RequireRole(actor, models.RoleStaff); err != nil {
		return err
	}
	return s.records.Delete(ctx, id)
}

// Get returns one record
func (s *AttendanceService) Get(ctx context.Context, actor *auth.Actor, id int64) (*models.AttendanceRecord, error) {
	if err := s.authz.RequireRole(actor, models.RoleStaff); err != nil {
		return nil, err
	}
	return s.records.GetByID(ctx, id)
}

// List returns a page of records, newest first, optionally inside a date range
func (s *AttendanceService) List(ctx context.Context, actor *auth.Actor, req *dto.AttendanceFilterRequest, page helpers.Page) (*dto.PaginatedResponse, error) {
	if err := s.authz.RequireRole(actor, models.RoleStaff); err != nil {
		return nil, err
	}
	filter := repositories.AttendanceFilter{Page: page}
	if req.From != "" {
		from, err := parseServiceDate(req.From)
		if err != nil {
			return nil, err
		}
		filter.From = &from
	}
	if req.To != "" {
		to, err := parseServiceDate(req.To)
		if err != nil {
			return nil, err
		}
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, apperrors.NewBadRequestError("'to' must not be before 'from'")
	}

	records, total, err := s.records.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &dto.PaginatedResponse{Items: records, Pagination: helpers.NewPaginationInfo(total, page)}, nil
}

// Import loads a CSV export of the attendance sheet. Lines that do not parse are reported
// and the valid ones are upserted in a single transaction.
func (s *AttendanceService) Import(ctx context.Context, actor *auth.Actor, r io.Reader, override bool) (*dto.ImportResultResponse, error) {
	if err := s.authz.RequireRole(actor, models.RoleStaff); err != nil {
		return nil, err
	}
	parsed, err := csvimport.Parse(r)
	if err != nil {
		return nil, apperrors.NewBadRequestError(err.Error())
	}

	result := &dto.ImportResultResponse{Errors: parsed.Errors}
	if result.Errors == nil {
		result.Errors = []csvimport.LineError{}
	}
	if len(parsed.Rows) == 0 {
		return result, nil
	}

	recordedBy := actor.ID()
	records := make([]*models.AttendanceRecord, 0, len(parsed.Rows))
	for _, row := range parsed.Rows {
		a := &models.AttendanceRecord{
			Date:       row.Date,
			Adults:     row.Adults,
			Teens:      row.Teens,
			Kids:       row.Kids,
			Babies:     row.Babies,
			NewPeople:  row.NewPeople,
			RecordedBy: &recordedBy,
		}
		a.Total = a.ComputeTotal()
		records = append(records, a)
	}

	outcomes, err := s.records.Import(ctx, records, override)
	if err != nil {
		s.logger.Error().Err(err).Int("rows", len(records)).Msg("Attendance import failed")
		return nil, err
	}
	for _, o := range outcomes {
		switch o {
		case models.OutcomeInserted:
			result.Inserted++
		case models.OutcomeUpdated:
			result.Updated++
		default:
			result.Skipped++
		}
	}

	s.logger.Info().
		Int("inserted", result.Inserted).
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Int("errors", len(result.Errors)).
		Bool("override", override).
		Msg("Attendance imported")
	return result, nil
}

// Stats computes the rolling average over the last window records, the growth of the
// latest record against the one before it, and the record high. window <= 0 uses the
// configured default.
func (s *AttendanceService) Stats(ctx context.Context, actor *auth.Actor, window int) (*dto.AttendanceStatsResponse, error) {
	if err := s.authz.RequireRole(actor, models.RoleStaff); err != nil {
		return nil, err
	}
	if window <= 0 {
		window = s.rollingWindow
	}
	fetch := window
	if fetch < 2 {
		fetch = 2
	}
	recent, err := s.records.Recent(ctx, fetch)
	if err != nil {
		return nil, err
	}
	high, err := s.records.Highest(ctx)
	if err != nil {
		return nil, err
	}

	stats := ComputeAttendanceStats(recent, window)
	stats.RecordHigh = high
	return stats, nil
}

// ComputeAttendanceStats derives the figures from records ordered newest first
func ComputeAttendanceStats(recent []*models.AttendanceRecord, window int) *dto.AttendanceStatsResponse {
	stats := &dto.AttendanceStatsResponse{Window: window}
	if len(recent) == 0 {
		return stats
	}
	stats.Latest = recent[0]

	n := window
	if n > len(recent) {
		n = len(recent)
	}
	sum := 0
	for _, r := range recent[:n] {
		sum += r.Total
	}
	stats.RollingAverage = round2(float64(sum) / float64(n))

	if len(recent) > 1 && recent[1].Total > 0 {
		growth := round2(float64(recent[0].Total-recent[1].Total) / float64(recent[1].Total) * 100)
		stats.WeekOverWeekGrowth = &growth
	}
	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
