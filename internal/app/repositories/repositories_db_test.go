package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/ekklesia/internal/app/migrations"
	"github.com/yigit/ekklesia/internal/app/models"
	"github.com/yigit/ekklesia/internal/pkg/apperrors"
)

// newTestPool migrates a throwaway schema on the database named by DATABASE_URL.
// Tests using it are skipped when the variable is unset.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()

	admin, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	schema := "ekklesia_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	_, err = admin.Exec(ctx, "CREATE SCHEMA "+schema)
	require.NoError(t, err)

	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		pool.Close()
		_, _ = admin.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
		admin.Close()
	})

	require.NoError(t, migrations.NewMigrator(pool, zerolog.Nop()).Migrate(ctx, migrations.Files()))
	return pool
}

func createProfiles(t *testing.T, repo *ProfileRepository, n int) []*models.Profile {
	t.Helper()
	profiles := make([]*models.Profile, n)
	for i := range profiles {
		p := &models.Profile{
			Email:        fmt.Sprintf("miembro%d@example.com", i),
			PasswordHash: "x",
			FirstName:    "Miembro",
			LastName:     fmt.Sprint(i),
			Role:         models.RoleMiembro,
		}
		require.NoError(t, repo.Create(context.Background(), p))
		profiles[i] = p
	}
	return profiles
}

// capacityCheck mirrors the service rule: only pending registrations fill the event
func capacityCheck(e *models.Event) error {
	if e.MaxParticipants != nil && e.RegistrationCount >= *e.MaxParticipants {
		return apperrors.ErrEventFull
	}
	return nil
}

func TestRegistrationRepository_Create(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	repos := NewRepositories(pool)
	profiles := createProfiles(t, repos.Profiles, 6)

	limit := 2
	event := &models.Event{
		Title:           "Retiro",
		StartDate:       time.Now().Add(72 * time.Hour),
		MaxParticipants: &limit,
		Status:          models.EventPublished,
	}
	require.NoError(t, repos.Events.Create(ctx, event))

	t.Run("concurrent registrations stop at capacity", func(t *testing.T) {
		var wg sync.WaitGroup
		errs := make([]error, 5)
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				reg := &models.EventRegistration{EventID: event.ID, ProfileID: profiles[i].ID}
				errs[i] = repos.Registrations.Create(ctx, reg, capacityCheck)
			}(i)
		}
		wg.Wait()

		created, full := 0, 0
		for _, err := range errs {
			switch {
			case err == nil:
				created++
			case errors.Is(err, apperrors.ErrEventFull):
				full++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 2, created)
		assert.Equal(t, 3, full)

		stored, err := repos.Events.GetByID(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, stored.RegistrationCount)
	})

	t.Run("same profile twice conflicts", func(t *testing.T) {
		other := &models.Event{Title: "Vigilia", StartDate: time.Now().Add(time.Hour), Status: models.EventPublished}
		require.NoError(t, repos.Events.Create(ctx, other))

		first := &models.EventRegistration{EventID: other.ID, ProfileID: profiles[5].ID}
		require.NoError(t, repos.Registrations.Create(ctx, first, capacityCheck))
		second := &models.EventRegistration{EventID: other.ID, ProfileID: profiles[5].ID}
		err := repos.Registrations.Create(ctx, second, capacityCheck)
		assert.ErrorIs(t, err, apperrors.ErrDuplicateRegistration)
	})
}

func TestAttendanceRepository_Import(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	repo := NewAttendanceRepository(pool)

	jan5 := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	jan12 := time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, &models.AttendanceRecord{Date: jan5, Adults: 50}))

	batch := func() []*models.AttendanceRecord {
		return []*models.AttendanceRecord{
			{Date: jan5, Adults: 80, Kids: 20},
			{Date: jan12, Adults: 70},
		}
	}

	outcomes, err := repo.Import(ctx, batch(), false)
	require.NoError(t, err)
	assert.Equal(t, []models.UpsertOutcome{models.OutcomeSkipped, models.OutcomeInserted}, outcomes)

	records, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	totals := map[string]int{}
	for _, r := range records {
		totals[r.Date.Format("2006-01-02")] = r.Total
	}
	assert.Equal(t, 50, totals["2024-01-05"], "existing date untouched without override")

	outcomes, err = repo.Import(ctx, batch(), true)
	require.NoError(t, err)
	assert.Equal(t, []models.UpsertOutcome{models.OutcomeUpdated, models.OutcomeUpdated}, outcomes)

	records, err = repo.Recent(ctx, 10)
	require.NoError(t, err)
	for _, r := range records {
		if r.Date.Equal(jan5) {
			assert.Equal(t, 100, r.Total)
		}
	}

	err = repo.Create(ctx, &models.AttendanceRecord{Date: jan12, Adults: 1})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateAttendanceDate)
}
