package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/ekklesia/internal/app/models"
)

// LocationRepository reads the province/canton/district reference data
type LocationRepository struct {
	db *pgxpool.Pool
}

// NewLocationRepository creates a new LocationRepository
func NewLocationRepository(db *pgxpool.Pool) *LocationRepository {
	return &LocationRepository{db: db}
}

// ListProvinces returns all provinces ordered by code
func (r *LocationRepository) ListProvinces(ctx context.Context) ([]models.Province, error) {
	sql, args, err := psql.Select("id", "code", "name").From("provinces").OrderBy("code").ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	provinces := []models.Province{}
	for rows.Next() {
		var p models.Province
		if err := rows.Scan(&p.ID, &p.Code, &p.Name); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		provinces = append(provinces, p)
	}
	return provinces, rows.Err()
}

// ListCantons returns the cantons of a province ordered by code
func (r *LocationRepository) ListCantons(ctx context.Context, provinceID int64) ([]models.Canton, error) {
	sql, args, err := psql.Select("id", "province_id", "code", "name").
		From("cantons").
		Where(squirrel.Eq{"province_id": provinceID}).
		OrderBy("code").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	cantons := []models.Canton{}
	for rows.Next() {
		var c models.Canton
		if err := rows.Scan(&c.ID, &c.ProvinceID, &c.Code, &c.Name); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		cantons = append(cantons, c)
	}
	return cantons, rows.Err()
}

// ListDistricts returns the districts of a canton ordered by code
func (r *LocationRepository) ListDistricts(ctx context.Context, cantonID int64) ([]models.District, error) {
	sql, args, err := psql.Select("id", "canton_id", "code", "name").
		From("districts").
		Where(squirrel.Eq{"canton_id": cantonID}).
		OrderBy("code").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	districts := []models.District{}
	for rows.Next() {
		var d models.District
		if err := rows.Scan(&d.ID, &d.CantonID, &d.Code, &d.Name); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		districts = append(districts, d)
	}
	return districts, rows.Err()
}

// GetCanton returns one canton
func (r *LocationRepository) GetCanton(ctx context.Context, id int64) (*models.Canton, error) {
	var c models.Canton
	query := psql.Select("id", "province_id", "code", "name").From("cantons").Where(squirrel.Eq{"id": id})
	if err := queryRow(ctx, r.db, query, notFound("canton"), &c.ID, &c.ProvinceID, &c.Code, &c.Name); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetDistrict returns one district
func (r *LocationRepository) GetDistrict(ctx context.Context, id int64) (*models.District, error) {
	var d models.District
	query := psql.Select("id", "canton_id", "code", "name").From("districts").Where(squirrel.Eq{"id": id})
	if err := queryRow(ctx, r.db, query, notFound("district"), &d.ID, &d.CantonID, &d.Code, &d.Name); err != nil {
		return nil, err
	}
	return &d, nil
}

// ProvinceExists reports whether a province id is known
func (r *LocationRepository) ProvinceExists(ctx context.Context, id int64) (bool, error) {
	n, err := count(ctx, r.db, psql.Select("COUNT(*)").From("provinces").Where(squirrel.Eq{"id": id}))
	return n > 0, err
}

// UpsertProvince inserts or renames a province by code and returns its id
func (r *LocationRepository) UpsertProvince(ctx context.Context, code int, name string) (int64, error) {
	var id int64
	query := psql.Insert("provinces").Columns("code", "name").Values(code, strings.TrimSpace(name)).
		Suffix("ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name RETURNING id")
	if err := queryRow(ctx, r.db, query, nil, &id); err != nil {
		return 0, fmt.Errorf("error upserting province %s: %w", name, err)
	}
	return id, nil
}

// UpsertCanton inserts or recodes a canton by (province, name) and returns its id
func (r *LocationRepository) UpsertCanton(ctx context.Context, provinceID int64, code int, name string) (int64, error) {
	var id int64
	query := psql.Insert("cantons").Columns("province_id", "code", "name").Values(provinceID, code, strings.TrimSpace(name)).
		Suffix("ON CONFLICT (province_id, name) DO UPDATE SET code = EXCLUDED.code RETURNING id")
	if err := queryRow(ctx, r.db, query, nil, &id); err != nil {
		return 0, fmt.Errorf("error upserting canton %s: %w", name, err)
	}
	return id, nil
}

// UpsertDistrict inserts or recodes a district by (canton, name) and returns its id
func (r *LocationRepository) UpsertDistrict(ctx context.Context, cantonID int64, code int, name string) (int64, error) {
	var id int64
	query := psql.Insert("districts").Columns("canton_id", "code", "name").Values(cantonID, code, strings.TrimSpace(name)).
		Suffix("ON CONFLICT (canton_id, name) DO UPDATE SET code = EXCLUDED.code RETURNING id")
	if err := queryRow(ctx, r.db, query, nil, &id); err != nil {
		return 0, fmt.Errorf("error upserting district %s: %w", name, err)
	}
	return id, nil
}
