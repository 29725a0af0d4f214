package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleAtLeast(t *testing.T) {
	tests := []struct {
		role Role
		min  Role
		want bool
	}{
		{RoleMiembro, RoleMiembro, true},
		{RoleMiembro, RoleStaff, false},
		{RoleStaff, RoleStaff, true},
		{RoleAdmin, RoleStaff, true},
		{RoleStaff, RoleAdmin, false},
		{Role("Visitor"), RoleMiembro, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.role.AtLeast(tt.min), "%s >= %s", tt.role, tt.min)
	}
}

func TestParseRole(t *testing.T) {
	role, ok := ParseRole(" staff ")
	require.True(t, ok)
	assert.Equal(t, RoleStaff, role)

	_, ok = ParseRole("owner")
	assert.False(t, ok)
}

func TestSelectionCascade(t *testing.T) {
	s := Selection{}.WithProvince(1).WithCanton(10).WithDistrict(100)
	require.NotNil(t, s.DistrictID)

	same := s.WithProvince(1)
	assert.Equal(t, s, same, "re-selecting the same province keeps lower levels")

	otherProvince := s.WithProvince(2)
	assert.Equal(t, int64(2), *otherProvince.ProvinceID)
	assert.Nil(t, otherProvince.CantonID)
	assert.Nil(t, otherProvince.DistrictID)

	otherCanton := s.WithCanton(11)
	assert.Equal(t, int64(1), *otherCanton.ProvinceID)
	assert.Equal(t, int64(11), *otherCanton.CantonID)
	assert.Nil(t, otherCanton.DistrictID)

	assert.Equal(t, Selection{}, s.Clear())
}

func TestEventHasEnded(t *testing.T) {
	start := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)

	withEnd := &Event{StartDate: start, EndDate: &end}
	assert.False(t, withEnd.HasEnded(start.Add(time.Hour)))
	assert.True(t, withEnd.HasEnded(end.Add(time.Minute)))

	noEnd := &Event{StartDate: start}
	assert.False(t, noEnd.HasEnded(start.Add(-time.Minute)))
	assert.True(t, noEnd.HasEnded(start.Add(time.Minute)))
}

func TestRecurrenceOccurrences(t *testing.T) {
	start := time.Date(2024, 1, 7, 10, 0, 0, 0, time.UTC)
	until := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	weekly := &Recurrence{Frequency: RecurrenceWeekly, Interval: 1, Until: &until}
	got := weekly.Occurrences(start, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), 10)
	assert.Equal(t, []time.Time{
		time.Date(2024, 1, 14, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 21, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 28, 10, 0, 0, 0, time.UTC),
	}, got)

	monthly := &Recurrence{Frequency: RecurrenceMonthly, Interval: 2}
	got = monthly.Occurrences(start, start, 2)
	assert.Equal(t, []time.Time{start, time.Date(2024, 3, 7, 10, 0, 0, 0, time.UTC)}, got)
}

func TestAttendanceTotalExcludesNewPeople(t *testing.T) {
	r := &AttendanceRecord{Adults: 50, Teens: 10, Kids: 12, Babies: 3, NewPeople: 4}
	assert.Equal(t, 75, r.ComputeTotal())
}
