package repositories

import (
	"context"
	"errors"
	"fmt"
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

const attendanceDateConstraint = "attendance_records_service_date_key"

// AttendanceFilter narrows attendance listings to a date range
type AttendanceFilter struct {
	From *time.Time
	To   *time.Time
	Page helpers.Page
}

// AttendanceRepository handles database operations for attendance records
type AttendanceRepository struct {
	db *pgxpool.Pool
}

// NewAttendanceRepository creates a new AttendanceRepository
func NewAttendanceRepository(db *pgxpool.Pool) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

var attendanceColumns = []string{
	"id", "service_date", "adults", "teens", "kids", "babies", "new_people", "total",
	"recorded_by", "notes", "created_at", "updated_at",
}

func scanAttendance(row pgx.Row) (*models.AttendanceRecord, error) {
	var a models.AttendanceRecord
	err := row.Scan(
		&a.ID, &a.Date, &a.Adults, &a.Teens, &a.Kids, &a.Babies, &a.NewPeople, &a.Total,
		&a.RecordedBy, &a.Notes, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func duplicateAttendanceDate(err error, date time.Time) error {
	if dberrors.IsDuplicateConstraintError(err, attendanceDateConstraint) {
		return apperrors.NewCustomError(apperrors.ErrDuplicateAttendanceDate,
			fmt.Sprintf("an attendance record already exists for %s", date.Format("2006-01-02")))
	}
	return err
}

// Create inserts a record. A second record for the same date fails with ErrDuplicateAttendanceDate.
func (r *AttendanceRepository) Create(ctx context.Context, a *models.AttendanceRecord) error {
	query := psql.Insert("attendance_records").
		Columns("service_date", "adults", "teens", "kids", "babies", "new_people", "recorded_by", "notes").
		Values(a.Date, a.Adults, a.Teens, a.Kids, a.Babies, a.NewPeople, a.RecordedBy, a.Notes).
		Suffix("RETURNING id, total, created_at, updated_at")
	if err := queryRow(ctx, r.db, query, nil, &a.ID, &a.Total, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return duplicateAttendanceDate(err, a.Date)
	}
	return nil
}

// Update saves every field of a record, its date included
func (r *AttendanceRepository) Update(ctx context.Context, a *models.AttendanceRecord) error {
	query := psql.Update("attendance_records").
		Set("service_date", a.Date).
		Set("adults", a.Adults).
		Set("teens", a.Teens).
		Set("kids", a.Kids).
		Set("babies", a.Babies).
		Set("new_people", a.NewPeople).
		Set("notes", a.Notes).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": a.ID}).
		Suffix("RETURNING total, created_at, updated_at")
	if err := queryRow(ctx, r.db, query, notFound("attendance record"), &a.Total, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return duplicateAttendanceDate(err, a.Date)
	}
	return nil
}

// Delete removes a record
func (r *AttendanceRepository) Delete(ctx context.Context, id int64) error {
	return execOne(ctx, r.db, psql.Delete("attendance_records").Where(squirrel.Eq{"id": id}), notFound("attendance record"))
}

// GetByID returns one record
func (r *AttendanceRepository) GetByID(ctx context.Context, id int64) (*models.AttendanceRecord, error) {
	sql, args, err := psql.Select(attendanceColumns...).From("attendance_records").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	a, err := scanAttendance(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("attendance record")
		}
		return nil, fmt.Errorf("error scanning attendance record: %w", err)
	}
	return a, nil
}

func (r *AttendanceRepository) queryMany(ctx context.Context, q squirrel.SelectBuilder) ([]*models.AttendanceRecord, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	records := []*models.AttendanceRecord{}
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		records = append(records, a)
	}
	return records, rows.Err()
}

func (f AttendanceFilter) where() squirrel.And {
	where := squirrel.And{}
	if f.From != nil {
		where = append(where, squirrel.GtOrEq{"service_date": *f.From})
	}
	if f.To != nil {
		where = append(where, squirrel.LtOrEq{"service_date": *f.To})
	}
	return where
}

// List returns a page of records, newest date first
func (r *AttendanceRepository) List(ctx context.Context, filter AttendanceFilter) ([]*models.AttendanceRecord, int64, error) {
	where := filter.where()
	total, err := count(ctx, r.db, psql.Select("COUNT(*)").From("attendance_records").Where(where))
	if err != nil {
		return nil, 0, err
	}
	records, err := r.queryMany(ctx, psql.Select(attendanceColumns...).From("attendance_records").Where(where).
		OrderBy("service_date DESC").
		Offset(filter.Page.Offset()).
		Limit(filter.Page.Limit()))
	return records, total, err
}

// Range returns every record between from and to, oldest first
func (r *AttendanceRepository) Range(ctx context.Context, from, to *time.Time) ([]*models.AttendanceRecord, error) {
	return r.queryMany(ctx, psql.Select(attendanceColumns...).From("attendance_records").
		Where(AttendanceFilter{From: from, To: to}.where()).
		OrderBy("service_date"))
}

// Recent returns the n most recent records, newest first
func (r *AttendanceRepository) Recent(ctx context.Context, n int) ([]*models.AttendanceRecord, error) {
	return r.queryMany(ctx, psql.Select(attendanceColumns...).From("attendance_records").
		OrderBy("service_date DESC").
		Limit(uint64(n)))
}

// Highest returns the record with the largest total. Ties go to the earliest date.
func (r *AttendanceRepository) Highest(ctx context.Context) (*models.AttendanceRecord, error) {
	records, err := r.queryMany(ctx, psql.Select(attendanceColumns...).From("attendance_records").
		OrderBy("total DESC", "service_date").
		Limit(1))
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// Import upserts records by date in one transaction. With override an existing date is
// overwritten, otherwise it is left untouched and reported as skipped.
func (r *AttendanceRepository) Import(ctx context.Context, records []*models.AttendanceRecord, override bool) ([]models.UpsertOutcome, error) {
	conflict := "ON CONFLICT ON CONSTRAINT " + attendanceDateConstraint + " DO NOTHING RETURNING TRUE"
	if override {
		conflict = "ON CONFLICT ON CONSTRAINT " + attendanceDateConstraint + ` DO UPDATE SET
			adults = EXCLUDED.adults, teens = EXCLUDED.teens, kids = EXCLUDED.kids,
			babies = EXCLUDED.babies, new_people = EXCLUDED.new_people,
			recorded_by = EXCLUDED.recorded_by, updated_at = NOW()
			RETURNING (xmax = 0)`
	}

	outcomes := make([]models.UpsertOutcome, len(records))
	err := db.RunInTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		for i, a := range records {
			query := psql.Insert("attendance_records").
				Columns("service_date", "adults", "teens", "kids", "babies", "new_people", "recorded_by", "notes").
				Values(a.Date, a.Adults, a.Teens, a.Kids, a.Babies, a.NewPeople, a.RecordedBy, a.Notes).
				Suffix(conflict)

			var inserted bool
			err := queryRow(ctx, tx, query, errSkipped, &inserted)
			switch {
			case errors.Is(err, errSkipped):
				outcomes[i] = models.OutcomeSkipped
			case err != nil:
				return fmt.Errorf("error importing %s: %w", a.Date.Format("2006-01-02"), err)
			case inserted:
				outcomes[i] = models.OutcomeInserted
			default:
				outcomes[i] = models.OutcomeUpdated
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcomes, nil
}

var errSkipped = errors.New("row skipped")
