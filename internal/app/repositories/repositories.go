package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/ekklesia/internal/pkg/apperrors"
)

// psql builds Postgres statements with $n placeholders
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories holds all the repository instances
type Repositories struct {
	Profiles      *ProfileRepository
	Locations     *LocationRepository
	Posts         *PostRepository
	Events        *EventRepository
	Registrations *RegistrationRepository
	Teams         *TeamRepository
	Memberships   *MembershipRepository
	Attendance    *AttendanceRepository
}

// NewRepositories initializes all repositories
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		Profiles:      NewProfileRepository(db),
		Locations:     NewLocationRepository(db),
		Posts:         NewPostRepository(db),
		Events:        NewEventRepository(db),
		Registrations: NewRegistrationRepository(db),
		Teams:         NewTeamRepository(db),
		Memberships:   NewMembershipRepository(db),
		Attendance:    NewAttendanceRepository(db),
	}
}

// queryRow builds q and scans the single resulting row into dest.
// pgx.ErrNoRows becomes notFound.
func queryRow(ctx context.Context, db dbtx, q squirrel.Sqlizer, notFound error, dest ...any) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if err := db.QueryRow(ctx, sql, args...).Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notFound
		}
		return err
	}
	return nil
}

// exec builds q, executes it and returns the number of affected rows
func exec(ctx context.Context, db dbtx, q squirrel.Sqlizer) (int64, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}
	tag, err := db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("error executing query: %w", err)
	}
	return tag.RowsAffected(), nil
}

// count runs a COUNT(*) query
func count(ctx context.Context, db dbtx, q squirrel.SelectBuilder) (int64, error) {
	var total int64
	if err := queryRow(ctx, db, q, nil, &total); err != nil {
		return 0, fmt.Errorf("error counting rows: %w", err)
	}
	return total, nil
}

// execOne executes q and returns notFound when no row was affected
func execOne(ctx context.Context, db dbtx, q squirrel.Sqlizer, notFound error) error {
	n, err := exec(ctx, db, q)
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func notFound(what string) error {
	return apperrors.NewResourceNotFoundError(what + " not found")
}

// ilike builds a case-insensitive contains filter over several columns
func ilike(term string, columns ...string) squirrel.Or {
	or := squirrel.Or{}
	for _, col := range columns {
		or = append(or, squirrel.ILike{col: "%" + term + "%"})
	}
	return or
}
