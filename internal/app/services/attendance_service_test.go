package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/ekklesia/internal/app/models"
	"github.com/yigit/ekklesia/internal/app/models/dto"
	"github.com/yigit/ekklesia/internal/pkg/apperrors"
	"github.com/yigit/ekklesia/internal/pkg/helpers"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestAttendance(store *fakeAttendanceStore) *AttendanceService {
	return NewAttendanceService(store, newTestAuthz(nil), 4, zerolog.Nop())
}

func TestAttendanceService_CreateAndDuplicate(t *testing.T) {
	ctx := context.Background()
	s := newTestAttendance(newFakeAttendanceStore())
	staff := actorWith(5, models.RoleStaff)

	rec, err := s.Create(ctx, staff, &dto.AttendanceRequest{Date: "2024-01-07", Adults: 80, Teens: 10, Kids: 15, Babies: 3, NewPeople: 2})
	require.NoError(t, err)
	assert.Equal(t, 108, rec.Total)
	assert.Equal(t, day(2024, time.January, 7), rec.Date)
	assert.Equal(t, int64(5), *rec.RecordedBy)

	_, err = s.Create(ctx, staff, &dto.AttendanceRequest{Date: "07/01/24"})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateAttendanceDate)

	_, err = s.Create(ctx, staff, &dto.AttendanceRequest{Date: "yesterday"})
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = s.Create(ctx, actorWith(6, models.RoleMiembro), &dto.AttendanceRequest{Date: "2024-01-14"})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestAttendanceService_ImportOverride(t *testing.T) {
	ctx := context.Background()
	csv := "Asistencia\nFecha,Adultos,Niños,Nuevos,Bebés,Adolescentes\n" +
		"07/01/24,80,15,2,3,10\n" +
		"14/01/24,90,12,1,2,11\n" +
		"bad,1,1,1,1,1\n"

	t.Run("without override existing dates are skipped", func(t *testing.T) {
		store := newFakeAttendanceStore(&models.AttendanceRecord{Date: day(2024, time.January, 7), Adults: 1})
		s := newTestAttendance(store)

		res, err := s.Import(ctx, actorWith(5, models.RoleStaff), strings.NewReader(csv), false)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Inserted)
		assert.Equal(t, 0, res.Updated)
		assert.Equal(t, 1, res.Skipped)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, 5, res.Errors[0].Line)
		assert.Equal(t, 1, store.byDate(day(2024, time.January, 7)).Adults)
	})

	t.Run("with override existing dates are updated", func(t *testing.T) {
		store := newFakeAttendanceStore(&models.AttendanceRecord{Date: day(2024, time.January, 7), Adults: 1})
		s := newTestAttendance(store)

		res, err := s.Import(ctx, actorWith(5, models.RoleStaff), strings.NewReader(csv), true)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Inserted)
		assert.Equal(t, 1, res.Updated)
		assert.Equal(t, 0, res.Skipped)
		assert.Equal(t, 108, store.byDate(day(2024, time.January, 7)).Total)
	})
}

func TestAttendanceService_Stats(t *testing.T) {
	ctx := context.Background()
	store := newFakeAttendanceStore(
		&models.AttendanceRecord{Date: day(2024, time.January, 7), Adults: 100},
		&models.AttendanceRecord{Date: day(2024, time.January, 14), Adults: 300},
		&models.AttendanceRecord{Date: day(2024, time.January, 21), Adults: 160},
		&models.AttendanceRecord{Date: day(2024, time.January, 28), Adults: 200},
	)
	s := newTestAttendance(store)

	stats, err := s.Stats(ctx, actorWith(5, models.RoleStaff), 0)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Window)
	assert.Equal(t, 190.0, stats.RollingAverage)
	require.NotNil(t, stats.WeekOverWeekGrowth)
	assert.Equal(t, 25.0, *stats.WeekOverWeekGrowth)
	assert.Equal(t, 300, stats.RecordHigh.Total)
	assert.Equal(t, day(2024, time.January, 28), stats.Latest.Date)

	stats, err = s.Stats(ctx, actorWith(5, models.RoleStaff), 2)
	require.NoError(t, err)
	assert.Equal(t, 180.0, stats.RollingAverage)
}

func TestComputeAttendanceStats_Edges(t *testing.T) {
	empty := ComputeAttendanceStats(nil, 4)
	assert.Nil(t, empty.Latest)
	assert.Zero(t, empty.RollingAverage)

	single := ComputeAttendanceStats([]*models.AttendanceRecord{{Total: 50}}, 4)
	assert.Equal(t, 50.0, single.RollingAverage)
	assert.Nil(t, single.WeekOverWeekGrowth)

	fromZero := ComputeAttendanceStats([]*models.AttendanceRecord{{Total: 50}, {Total: 0}}, 4)
	assert.Nil(t, fromZero.WeekOverWeekGrowth)
}

func TestAttendanceService_ListRange(t *testing.T) {
	ctx := context.Background()
	store := newFakeAttendanceStore(
		&models.AttendanceRecord{Date: day(2024, time.January, 7)},
		&models.AttendanceRecord{Date: day(2024, time.February, 4)},
	)
	s := newTestAttendance(store)
	page := helpers.Page{Number: 1, Size: 20}

	res, err := s.List(ctx, actorWith(5, models.RoleStaff), &dto.AttendanceFilterRequest{From: "2024-02-01"}, page)
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)

	_, err = s.List(ctx, actorWith(5, models.RoleStaff), &dto.AttendanceFilterRequest{From: "2024-02-01", To: "2024-01-01"}, page)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}
