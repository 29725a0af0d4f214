package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/ekklesia/internal/app/models"
	"github.com/yigit/ekklesia/internal/db"
	"github.com/yigit/ekklesia/internal/pkg/apperrors"
)

// RegistrationCheck validates a new registration against the locked event.
// Event.RegistrationCount holds the pending registrations at lock time.
type RegistrationCheck func(event *models.Event) error

// RegistrationRepository handles database operations for event registrations
type RegistrationRepository struct {
	db *pgxpool.Pool
}

// NewRegistrationRepository creates a new RegistrationRepository
func NewRegistrationRepository(db *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

var registrationColumns = []string{
	"r.id", "r.event_id", "r.profile_id", "r.status", "r.notes", "r.decided_by", "r.decided_at",
	"r.created_at", "r.updated_at",
	"p.email", "p.first_name", "p.last_name", "p.phone", "p.role",
	"e.title", "e.start_date", "e.end_date", "e.location", "e.status",
}

func selectRegistrations() squirrel.SelectBuilder {
	return psql.Select(registrationColumns...).
		From("event_registrations r").
		Join("profiles p ON p.id = r.profile_id").
		Join("events e ON e.id = r.event_id")
}

func scanRegistration(row pgx.Row) (*models.EventRegistration, error) {
	var (
		reg models.EventRegistration
		p   models.Profile
		e   models.Event
	)
	err := row.Scan(
		&reg.ID, &reg.EventID, &reg.ProfileID, &reg.Status, &reg.Notes, &reg.DecidedBy, &reg.DecidedAt,
		&reg.CreatedAt, &reg.UpdatedAt,
		&p.Email, &p.FirstName, &p.LastName, &p.Phone, &p.Role,
		&e.Title, &e.StartDate, &e.EndDate, &e.Location, &e.Status,
	)
	if err != nil {
		return nil, err
	}
	p.ID = reg.ProfileID
	e.ID = reg.EventID
	reg.Profile = &p
	reg.Event = &e
	return &reg, nil
}

func (r *RegistrationRepository) queryMany(ctx context.Context, q squirrel.SelectBuilder) ([]*models.EventRegistration, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	regs := []*models.EventRegistration{}
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

// Create inserts a pending registration. The event row stays locked while check runs and
// the row is inserted, so concurrent registrations cannot overshoot capacity.
// A second registration for the same (event, profile) returns ErrDuplicateRegistration.
func (r *RegistrationRepository) Create(ctx context.Context, reg *models.EventRegistration, check RegistrationCheck) error {
	return db.RunInTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		if err := lockEvent(ctx, tx, reg.EventID); err != nil {
			return err
		}
		event, err := getEvent(ctx, tx, reg.EventID)
		if err != nil {
			return err
		}
		if err := check(event); err != nil {
			return err
		}

		query := psql.Insert("event_registrations").
			Columns("event_id", "profile_id", "status", "notes").
			Values(reg.EventID, reg.ProfileID, models.RegistrationPending, reg.Notes).
			Suffix("ON CONFLICT ON CONSTRAINT event_registrations_event_profile_key DO NOTHING RETURNING id, status, created_at, updated_at")
		if err := queryRow(ctx, tx, query, apperrors.ErrDuplicateRegistration,
			&reg.ID, &reg.Status, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
			return err
		}
		reg.Event = event
		return nil
	})
}

// GetByID returns one registration with its profile and event
func (r *RegistrationRepository) GetByID(ctx context.Context, id int64) (*models.EventRegistration, error) {
	return r.getOne(ctx, squirrel.Eq{"r.id": id})
}

// Get returns the registration of a profile for an event
func (r *RegistrationRepository) Get(ctx context.Context, eventID, profileID int64) (*models.EventRegistration, error) {
	return r.getOne(ctx, squirrel.Eq{"r.event_id": eventID, "r.profile_id": profileID})
}

func (r *RegistrationRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.EventRegistration, error) {
	sql, args, err := selectRegistrations().Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	reg, err := scanRegistration(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, notFound("registration")
		}
		return nil, fmt.Errorf("error scanning registration: %w", err)
	}
	return reg, nil
}

// ListByEvent returns the registrations of an event, optionally of one status
func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID int64, status *models.RegistrationStatus) ([]*models.EventRegistration, error) {
	where := squirrel.Eq{"r.event_id": eventID}
	if status != nil {
		where["r.status"] = *status
	}
	return r.queryMany(ctx, selectRegistrations().Where(where).OrderBy("r.created_at", "r.id"))
}

// ListByProfile returns the registrations of a profile, newest events first
func (r *RegistrationRepository) ListByProfile(ctx context.Context, profileID int64) ([]*models.EventRegistration, error) {
	return r.queryMany(ctx, selectRegistrations().
		Where(squirrel.Eq{"r.profile_id": profileID}).
		OrderBy("e.start_date DESC", "r.id"))
}

// UpdateStatus moves a registration from `from` to `to`. It fails with ErrInvalidTransition
// when the registration is no longer in `from`.
func (r *RegistrationRepository) UpdateStatus(ctx context.Context, id int64, from, to models.RegistrationStatus, decidedBy int64, at time.Time) error {
	query := psql.Update("event_registrations").
		Set("status", to).
		Set("decided_by", decidedBy).
		Set("decided_at", at).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "status": from})
	return execOne(ctx, r.db, query, apperrors.NewCustomError(apperrors.ErrInvalidTransition,
		fmt.Sprintf("registration is no longer %s", from)))
}

// Delete removes a registration
func (r *RegistrationRepository) Delete(ctx context.Context, id int64) error {
	return execOne(ctx, r.db, psql.Delete("event_registrations").Where(squirrel.Eq{"id": id}), notFound("registration"))
}
