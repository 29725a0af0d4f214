package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/ekklesia/internal/app/models"
	"github.com/yigit/ekklesia/internal/pkg/apperrors"
	"github.com/yigit/ekklesia/internal/pkg/dberrors"
	"github.com/yigit/ekklesia/internal/pkg/helpers"
)

const profileEmailConstraint = "profiles_email_key"

// ProfileFilter narrows profile listings
type ProfileFilter struct {
	Search string
	Role   *models.Role
	Page   helpers.Page
}

// ProfileRepository handles database operations for profiles
type ProfileRepository struct {
	db *pgxpool.Pool
}

// NewProfileRepository creates a new ProfileRepository
func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

var profileColumns = []string{
	"p.id", "p.email", "p.password_hash", "p.first_name", "p.last_name", "p.phone",
	"p.role", "p.super_admin", "p.picture_url",
	"p.province_id", "p.canton_id", "p.district_id",
	"COALESCE(pr.name, '')", "COALESCE(c.name, '')", "COALESCE(d.name, '')",
	"p.created_at", "p.updated_at",
}

func selectProfiles() squirrel.SelectBuilder {
	return psql.Select(profileColumns...).
		From("profiles p").
		LeftJoin("provinces pr ON pr.id = p.province_id").
		LeftJoin("cantons c ON c.id = p.canton_id").
		LeftJoin("districts d ON d.id = p.district_id")
}

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(
		&p.ID, &p.Email, &p.PasswordHash, &p.FirstName, &p.LastName, &p.Phone,
		&p.Role, &p.SuperAdmin, &p.PictureURL,
		&p.Address.ProvinceID, &p.Address.CantonID, &p.Address.DistrictID,
		&p.Address.Province, &p.Address.Canton, &p.Address.District,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.Profile, error) {
	sql, args, err := selectProfiles().Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	p, err := scanProfile(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, notFound("profile")
		}
		return nil, fmt.Errorf("error scanning profile: %w", err)
	}
	return p, nil
}

// Create inserts a profile and fills its id and timestamps
func (r *ProfileRepository) Create(ctx context.Context, p *models.Profile) error {
	query := psql.Insert("profiles").
		Columns("email", "password_hash", "first_name", "last_name", "phone", "role", "super_admin",
			"province_id", "canton_id", "district_id").
		Values(strings.ToLower(strings.TrimSpace(p.Email)), p.PasswordHash, p.FirstName, p.LastName, p.Phone,
			p.Role, p.SuperAdmin, p.Address.ProvinceID, p.Address.CantonID, p.Address.DistrictID).
		Suffix("RETURNING id, email, created_at, updated_at")

	err := queryRow(ctx, r.db, query, nil, &p.ID, &p.Email, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, profileEmailConstraint) {
			return apperrors.ErrEmailAlreadyExists
		}
		return fmt.Errorf("error creating profile: %w", err)
	}
	return nil
}

// GetByID returns a profile with its address names resolved
func (r *ProfileRepository) GetByID(ctx context.Context, id int64) (*models.Profile, error) {
	return r.getOne(ctx, squirrel.Eq{"p.id": id})
}

// GetByEmail looks a profile up by email, case-insensitively
func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	return r.getOne(ctx, squirrel.Expr("LOWER(p.email) = LOWER(?)", strings.TrimSpace(email)))
}

// Update saves the self-editable fields of a profile
func (r *ProfileRepository) Update(ctx context.Context, p *models.Profile) error {
	query := psql.Update("profiles").
		Set("first_name", p.FirstName).
		Set("last_name", p.LastName).
		Set("phone", p.Phone).
		Set("province_id", p.Address.ProvinceID).
		Set("canton_id", p.Address.CantonID).
		Set("district_id", p.Address.DistrictID).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": p.ID})
	return execOne(ctx, r.db, query, notFound("profile"))
}

// UpdatePicture sets or clears the picture url
func (r *ProfileRepository) UpdatePicture(ctx context.Context, id int64, url *string) error {
	query := psql.Update("profiles").
		Set("picture_url", url).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id})
	return execOne(ctx, r.db, query, notFound("profile"))
}

// UpdateRole changes the global role of a profile
func (r *ProfileRepository) UpdateRole(ctx context.Context, id int64, role models.Role) error {
	query := psql.Update("profiles").
		Set("role", role).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id})
	return execOne(ctx, r.db, query, notFound("profile"))
}

// UpdatePassword replaces the password hash
func (r *ProfileRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	query := psql.Update("profiles").
		Set("password_hash", hash).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id})
	return execOne(ctx, r.db, query, notFound("profile"))
}

// List returns a page of profiles and the total number of matches
func (r *ProfileRepository) List(ctx context.Context, filter ProfileFilter) ([]*models.Profile, int64, error) {
	where := squirrel.And{}
	if s := strings.TrimSpace(filter.Search); s != "" {
		where = append(where, ilike(s, "p.first_name", "p.last_name", "p.email"))
	}
	if filter.Role != nil {
		where = append(where, squirrel.Eq{"p.role": *filter.Role})
	}

	total, err := count(ctx, r.db, psql.Select("COUNT(*)").From("profiles p").Where(where))
	if err != nil {
		return nil, 0, err
	}

	query := selectProfiles().Where(where).
		OrderBy("p.last_name", "p.first_name", "p.id").
		Offset(filter.Page.Offset()).
		Limit(filter.Page.Limit())

	profiles, err := r.query(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	return profiles, total, nil
}

// ListByRole returns every profile holding exactly role
func (r *ProfileRepository) ListByRole(ctx context.Context, role models.Role) ([]*models.Profile, error) {
	return r.query(ctx, selectProfiles().Where(squirrel.Eq{"p.role": role}).OrderBy("p.id"))
}

func (r *ProfileRepository) query(ctx context.Context, q squirrel.SelectBuilder) ([]*models.Profile, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	profiles := []*models.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
