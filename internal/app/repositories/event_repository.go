package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/ekklesia/internal/app/models"
	"github.com/yigit/ekklesia/internal/db"
	"github.com/yigit/ekklesia/internal/pkg/apperrors"
	"github.com/yigit/ekklesia/internal/pkg/dberrors"
	"github.com/yigit/ekklesia/internal/pkg/helpers"
)

// EventFilter narrows event listings
type EventFilter struct {
	Status *models.EventStatus
	// EndsAfter keeps events that have not ended at this time
	EndsAfter *time.Time
	TeamID    *int64
	Search    string
	Page      helpers.Page
}

// EventRepository handles database operations for events
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository creates a new EventRepository
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// pendingRegistrationsSubquery counts the registrations that hold a seat against max_participants
const pendingRegistrationsSubquery = `(SELECT COUNT(*) FROM event_registrations er
	WHERE er.event_id = e.id AND er.status = 'pending')`

var eventColumns = []string{
	"e.id", "e.title", "e.description", "e.location", "e.start_date", "e.end_date",
	"e.max_participants", "e.status", "e.recurrence_frequency", "e.recurrence_interval",
	"e.recurrence_until", "e.image_url", "e.created_by", "e.created_at", "e.updated_at",
	"COALESCE((SELECT array_agg(et.team_id ORDER BY et.team_id) FROM event_teams et WHERE et.event_id = e.id), '{}')",
	pendingRegistrationsSubquery,
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var (
		e         models.Event
		frequency *string
		interval  *int
		until     *time.Time
	)
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Location, &e.StartDate, &e.EndDate,
		&e.MaxParticipants, &e.Status, &frequency, &interval,
		&until, &e.ImageURL, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt,
		&e.TeamIDs, &e.RegistrationCount,
	)
	if err != nil {
		return nil, err
	}
	if frequency != nil {
		e.Recurrence = &models.Recurrence{Frequency: models.RecurrenceFrequency(*frequency), Until: until}
		if interval != nil {
			e.Recurrence.Interval = *interval
		}
	}
	return &e, nil
}

func recurrenceValues(r *models.Recurrence) (frequency *string, interval *int, until *time.Time) {
	if r == nil {
		return nil, nil, nil
	}
	f := string(r.Frequency)
	i := r.Interval
	if i < 1 {
		i = 1
	}
	return &f, &i, r.Until
}

func replaceEventTeams(ctx context.Context, tx pgx.Tx, eventID int64, teamIDs []int64) error {
	if _, err := exec(ctx, tx, psql.Delete("event_teams").Where(squirrel.Eq{"event_id": eventID})); err != nil {
		return err
	}
	if len(teamIDs) == 0 {
		return nil
	}
	insert := psql.Insert("event_teams").Columns("event_id", "team_id")
	for _, teamID := range teamIDs {
		insert = insert.Values(eventID, teamID)
	}
	if _, err := exec(ctx, tx, insert.Suffix("ON CONFLICT DO NOTHING")); err != nil {
		if dberrors.IsForeignKeyError(err) {
			return apperrors.NewBadRequestError("unknown team in teamIds")
		}
		return err
	}
	return nil
}

// Create inserts an event with its team associations
func (r *EventRepository) Create(ctx context.Context, e *models.Event) error {
	frequency, interval, until := recurrenceValues(e.Recurrence)
	return db.RunInTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		query := psql.Insert("events").
			Columns("title", "description", "location", "start_date", "end_date", "max_participants",
				"status", "recurrence_frequency", "recurrence_interval", "recurrence_until", "image_url", "created_by").
			Values(e.Title, e.Description, e.Location, e.StartDate, e.EndDate, e.MaxParticipants,
				e.Status, frequency, interval, until, e.ImageURL, e.CreatedBy).
			Suffix("RETURNING id, created_at, updated_at")
		if err := queryRow(ctx, tx, query, nil, &e.ID, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return fmt.Errorf("error creating event: %w", err)
		}
		return replaceEventTeams(ctx, tx, e.ID, e.TeamIDs)
	})
}

// Update saves the editable fields of an event and replaces its team associations
func (r *EventRepository) Update(ctx context.Context, e *models.Event) error {
	frequency, interval, until := recurrenceValues(e.Recurrence)
	return db.RunInTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		query := psql.Update("events").
			Set("title", e.Title).
			Set("description", e.Description).
			Set("location", e.Location).
			Set("start_date", e.StartDate).
			Set("end_date", e.EndDate).
			Set("max_participants", e.MaxParticipants).
			Set("recurrence_frequency", frequency).
			Set("recurrence_interval", interval).
			Set("recurrence_until", until).
			Set("updated_at", squirrel.Expr("NOW()")).
			Where(squirrel.Eq{"id": e.ID}).
			Suffix("RETURNING updated_at")
		if err := queryRow(ctx, tx, query, notFound("event"), &e.UpdatedAt); err != nil {
			return err
		}
		return replaceEventTeams(ctx, tx, e.ID, e.TeamIDs)
	})
}

// Delete removes an event, its registrations and team links
func (r *EventRepository) Delete(ctx context.Context, id int64) error {
	return execOne(ctx, r.db, psql.Delete("events").Where(squirrel.Eq{"id": id}), notFound("event"))
}

// GetByID returns one event with its team ids and active registration count
func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	return getEvent(ctx, r.db, id)
}

// lockEvent takes a row lock on the event for the rest of tx
func lockEvent(ctx context.Context, tx pgx.Tx, id int64) error {
	var locked int64
	query := psql.Select("id").From("events").Where(squirrel.Eq{"id": id}).Suffix("FOR UPDATE")
	return queryRow(ctx, tx, query, notFound("event"), &locked)
}

func getEvent(ctx context.Context, q dbtx, id int64) (*models.Event, error) {
	sql, args, err := psql.Select(eventColumns...).From("events e").Where(squirrel.Eq{"e.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	e, err := scanEvent(q.QueryRow(ctx, sql, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, notFound("event")
		}
		return nil, fmt.Errorf("error scanning event: %w", err)
	}
	return e, nil
}

// TransitionStatus moves an event to status `to` when its current status is one of from.
// It reports false when the event was in none of them.
func (r *EventRepository) TransitionStatus(ctx context.Context, id int64, from []models.EventStatus, to models.EventStatus) (bool, error) {
	n, err := exec(ctx, r.db, psql.Update("events").
		Set("status", to).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "status": from}))
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SetImage sets or clears the image url
func (r *EventRepository) SetImage(ctx context.Context, id int64, url *string) error {
	return execOne(ctx, r.db, psql.Update("events").
		Set("image_url", url).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}), notFound("event"))
}

// List returns a page of events ordered by start date
func (r *EventRepository) List(ctx context.Context, filter EventFilter) ([]*models.Event, int64, error) {
	where := squirrel.And{}
	if filter.Status != nil {
		where = append(where, squirrel.Eq{"e.status": *filter.Status})
	}
	if filter.EndsAfter != nil {
		where = append(where, squirrel.Expr("COALESCE(e.end_date, e.start_date) >= ?", *filter.EndsAfter))
	}
	if filter.TeamID != nil {
		where = append(where, squirrel.Expr("EXISTS (SELECT 1 FROM event_teams et WHERE et.event_id = e.id AND et.team_id = ?)", *filter.TeamID))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		where = append(where, ilike(s, "e.title", "e.location"))
	}

	total, err := count(ctx, r.db, psql.Select("COUNT(*)").From("events e").Where(where))
	if err != nil {
		return nil, 0, err
	}

	sql, args, err := psql.Select(eventColumns...).From("events e").Where(where).
		OrderBy("e.start_date", "e.id").
		Offset(filter.Page.Offset()).
		Limit(filter.Page.Limit()).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building SQL: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	events := []*models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning row: %w", err)
		}
		events = append(events, e)
	}
	return events, total, rows.Err()
}
