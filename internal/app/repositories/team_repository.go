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

const teamNameConstraint = "teams_name_key"

// TeamFilter narrows team listings
type TeamFilter struct {
	Status *models.TeamStatus
	Search string
	Page   helpers.Page
}

// TeamRepository handles database operations for teams
type TeamRepository struct {
	db *pgxpool.Pool
}

// NewTeamRepository creates a new TeamRepository
func NewTeamRepository(db *pgxpool.Pool) *TeamRepository {
	return &TeamRepository{db: db}
}

const approvedMembersSubquery = `(SELECT COUNT(*) FROM team_memberships tm
	WHERE tm.team_id = t.id AND tm.status = 'approved')`

var teamColumns = []string{
	"t.id", "t.name", "t.description", "t.mission", "t.vision", "t.requirements", "t.status",
	"t.max_members", "t.image_url", approvedMembersSubquery, "t.created_at", "t.updated_at",
}

func scanTeam(row pgx.Row) (*models.Team, error) {
	var t models.Team
	err := row.Scan(
		&t.ID, &t.Name, &t.Description, &t.Mission, &t.Vision, &t.Requirements, &t.Status,
		&t.MaxMembers, &t.ImageURL, &t.MemberCount, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func duplicateTeamName(err error, name string) error {
	if dberrors.IsDuplicateConstraintError(err, teamNameConstraint) {
		return apperrors.NewCustomError(apperrors.ErrResourceAlreadyExists, fmt.Sprintf("a team named %q already exists", name))
	}
	return err
}

// Create inserts a team
func (r *TeamRepository) Create(ctx context.Context, t *models.Team) error {
	query := psql.Insert("teams").
		Columns("name", "description", "mission", "vision", "requirements", "status", "max_members", "image_url").
		Values(t.Name, t.Description, t.Mission, t.Vision, t.Requirements, t.Status, t.MaxMembers, t.ImageURL).
		Suffix("RETURNING id, created_at, updated_at")
	if err := queryRow(ctx, r.db, query, nil, &t.ID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return duplicateTeamName(err, t.Name)
	}
	return nil
}

// Update saves the editable fields of a team
func (r *TeamRepository) Update(ctx context.Context, t *models.Team) error {
	query := psql.Update("teams").
		Set("name", t.Name).
		Set("description", t.Description).
		Set("mission", t.Mission).
		Set("vision", t.Vision).
		Set("requirements", t.Requirements).
		Set("status", t.Status).
		Set("max_members", t.MaxMembers).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": t.ID}).
		Suffix("RETURNING updated_at")
	if err := queryRow(ctx, r.db, query, notFound("team"), &t.UpdatedAt); err != nil {
		return duplicateTeamName(err, t.Name)
	}
	return nil
}

// SetImage sets or clears the image url
func (r *TeamRepository) SetImage(ctx context.Context, id int64, url *string) error {
	return execOne(ctx, r.db, psql.Update("teams").
		Set("image_url", url).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}), notFound("team"))
}

// Delete removes a team and its memberships
func (r *TeamRepository) Delete(ctx context.Context, id int64) error {
	return execOne(ctx, r.db, psql.Delete("teams").Where(squirrel.Eq{"id": id}), notFound("team"))
}

// GetByID returns one team with its approved member count
func (r *TeamRepository) GetByID(ctx context.Context, id int64) (*models.Team, error) {
	return getTeam(ctx, r.db, id)
}

func getTeam(ctx context.Context, q dbtx, id int64) (*models.Team, error) {
	sql, args, err := psql.Select(teamColumns...).From("teams t").Where(squirrel.Eq{"t.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	t, err := scanTeam(q.QueryRow(ctx, sql, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, notFound("team")
		}
		return nil, fmt.Errorf("error scanning team: %w", err)
	}
	return t, nil
}

// List returns a page of teams ordered by name
func (r *TeamRepository) List(ctx context.Context, filter TeamFilter) ([]*models.Team, int64, error) {
	where := squirrel.And{}
	if filter.Status != nil {
		where = append(where, squirrel.Eq{"t.status": *filter.Status})
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		where = append(where, ilike(s, "t.name", "t.description"))
	}

	total, err := count(ctx, r.db, psql.Select("COUNT(*)").From("teams t").Where(where))
	if err != nil {
		return nil, 0, err
	}

	sql, args, err := psql.Select(teamColumns...).From("teams t").Where(where).
		OrderBy("t.name").
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

	teams := []*models.Team{}
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning row: %w", err)
		}
		teams = append(teams, t)
	}
	return teams, total, rows.Err()
}
