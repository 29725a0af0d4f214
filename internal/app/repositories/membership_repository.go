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
	"github.com/yigit/ekklesia/internal/pkg/dberrors"
)

// ApprovalCheck validates an approval against the locked team. Team.MemberCount holds the
// approved members at lock time.
type ApprovalCheck func(team *models.Team, membership *models.TeamMembership) error

// MembershipRepository handles database operations for team memberships
type MembershipRepository struct {
	db *pgxpool.Pool
}

// NewMembershipRepository creates a new MembershipRepository
func NewMembershipRepository(db *pgxpool.Pool) *MembershipRepository {
	return &MembershipRepository{db: db}
}

var membershipColumns = []string{
	"m.id", "m.team_id", "m.profile_id", "m.status", "m.role", "m.team_leader",
	"m.joined_at", "m.approved_at", "m.approved_by",
	"p.email", "p.first_name", "p.last_name", "p.phone", "p.role",
	"t.name", "t.status",
}

func selectMemberships() squirrel.SelectBuilder {
	return psql.Select(membershipColumns...).
		From("team_memberships m").
		Join("profiles p ON p.id = m.profile_id").
		Join("teams t ON t.id = m.team_id")
}

func scanMembership(row pgx.Row) (*models.TeamMembership, error) {
	var (
		m models.TeamMembership
		p models.Profile
		t models.Team
	)
	err := row.Scan(
		&m.ID, &m.TeamID, &m.ProfileID, &m.Status, &m.Role, &m.TeamLeader,
		&m.JoinedAt, &m.ApprovedAt, &m.ApprovedBy,
		&p.Email, &p.FirstName, &p.LastName, &p.Phone, &p.Role,
		&t.Name, &t.Status,
	)
	if err != nil {
		return nil, err
	}
	p.ID = m.ProfileID
	t.ID = m.TeamID
	m.Profile = &p
	m.Team = &t
	return &m, nil
}

func getMembership(ctx context.Context, q dbtx, where squirrel.Sqlizer, suffix string) (*models.TeamMembership, error) {
	builder := selectMemberships().Where(where)
	if suffix != "" {
		builder = builder.Suffix(suffix)
	}
	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	m, err := scanMembership(q.QueryRow(ctx, sql, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, notFound("membership")
		}
		return nil, fmt.Errorf("error scanning membership: %w", err)
	}
	return m, nil
}

func (r *MembershipRepository) queryMany(ctx context.Context, q squirrel.SelectBuilder) ([]*models.TeamMembership, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	memberships := []*models.TeamMembership{}
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

// Join creates a pending membership. A rejected membership of the same pair is re-opened;
// any other existing membership returns ErrDuplicateMembership.
func (r *MembershipRepository) Join(ctx context.Context, teamID, profileID int64) (*models.TeamMembership, error) {
	query := psql.Insert("team_memberships").
		Columns("team_id", "profile_id", "status", "role", "team_leader").
		Values(teamID, profileID, models.MembershipPending, models.MemberRoleMiembro, false).
		Suffix(`ON CONFLICT ON CONSTRAINT team_memberships_team_profile_key DO UPDATE
			SET status = EXCLUDED.status, role = EXCLUDED.role, team_leader = FALSE,
				joined_at = NOW(), approved_at = NULL, approved_by = NULL
			WHERE team_memberships.status = ?
			RETURNING id`, models.MembershipRejected)

	var id int64
	if err := queryRow(ctx, r.db, query, apperrors.ErrDuplicateMembership, &id); err != nil {
		if dberrors.IsForeignKeyError(err) {
			return nil, notFound("team")
		}
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// GetByID returns one membership with its profile and team
func (r *MembershipRepository) GetByID(ctx context.Context, id int64) (*models.TeamMembership, error) {
	return getMembership(ctx, r.db, squirrel.Eq{"m.id": id}, "")
}

// Get returns the membership of a profile in a team
func (r *MembershipRepository) Get(ctx context.Context, teamID, profileID int64) (*models.TeamMembership, error) {
	return getMembership(ctx, r.db, squirrel.Eq{"m.team_id": teamID, "m.profile_id": profileID}, "")
}

// ListByTeam returns the memberships of a team, optionally of one status
func (r *MembershipRepository) ListByTeam(ctx context.Context, teamID int64, status *models.MembershipStatus) ([]*models.TeamMembership, error) {
	where := squirrel.Eq{"m.team_id": teamID}
	if status != nil {
		where["m.status"] = *status
	}
	return r.queryMany(ctx, selectMemberships().Where(where).
		OrderBy("m.team_leader DESC", "p.last_name", "p.first_name"))
}

// ListByProfile returns the memberships of a profile
func (r *MembershipRepository) ListByProfile(ctx context.Context, profileID int64) ([]*models.TeamMembership, error) {
	return r.queryMany(ctx, selectMemberships().Where(squirrel.Eq{"m.profile_id": profileID}).OrderBy("t.name"))
}

// UpdateStatus moves a membership from `from` to `to`. It fails with ErrInvalidTransition
// when the membership is no longer in `from`.
func (r *MembershipRepository) UpdateStatus(ctx context.Context, id int64, from, to models.MembershipStatus) error {
	query := psql.Update("team_memberships").
		Set("status", to).
		Where(squirrel.Eq{"id": id, "status": from})
	return execOne(ctx, r.db, query, apperrors.NewCustomError(apperrors.ErrInvalidTransition,
		fmt.Sprintf("membership is no longer %s", from)))
}

// Approve moves a pending membership to approved and raises the member's global role to
// at least minRole in the same transaction. The team row stays locked while check runs.
func (r *MembershipRepository) Approve(ctx context.Context, id, approverID int64, at time.Time, minRole models.Role, check ApprovalCheck) (*models.TeamMembership, error) {
	var approved *models.TeamMembership
	err := db.RunInTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		m, err := getMembership(ctx, tx, squirrel.Eq{"m.id": id}, "FOR UPDATE OF m")
		if err != nil {
			return err
		}

		var locked int64
		if err := queryRow(ctx, tx, psql.Select("id").From("teams").Where(squirrel.Eq{"id": m.TeamID}).Suffix("FOR UPDATE"),
			notFound("team"), &locked); err != nil {
			return err
		}
		team, err := getTeam(ctx, tx, m.TeamID)
		if err != nil {
			return err
		}
		if err := check(team, m); err != nil {
			return err
		}

		if err := execOne(ctx, tx, psql.Update("team_memberships").
			Set("status", models.MembershipApproved).
			Set("approved_at", at).
			Set("approved_by", approverID).
			Where(squirrel.Eq{"id": id, "status": models.MembershipPending}),
			apperrors.NewCustomError(apperrors.ErrInvalidTransition, "membership is no longer pending")); err != nil {
			return err
		}

		if _, err := exec(ctx, tx, psql.Update("profiles").
			Set("role", minRole).
			Set("updated_at", squirrel.Expr("NOW()")).
			Where(squirrel.Eq{"id": m.ProfileID}).
			Where(squirrel.NotEq{"role": rolesAtLeast(minRole)})); err != nil {
			return fmt.Errorf("error promoting profile: %w", err)
		}

		m.Status = models.MembershipApproved
		m.ApprovedAt = &at
		m.ApprovedBy = &approverID
		if !m.Profile.Role.AtLeast(minRole) {
			m.Profile.Role = minRole
		}
		m.Team = team
		approved = m
		return nil
	})
	return approved, err
}

func rolesAtLeast(min models.Role) []models.Role {
	var out []models.Role
	for _, role := range models.Roles() {
		if role.AtLeast(min) {
			out = append(out, role)
		}
	}
	return out
}

// SetLeader makes an approved member the team's leader, or back to a plain member
func (r *MembershipRepository) SetLeader(ctx context.Context, id int64, leader bool) error {
	role := models.MemberRoleMiembro
	if leader {
		role = models.MemberRoleLider
	}
	query := psql.Update("team_memberships").
		Set("team_leader", leader).
		Set("role", role).
		Where(squirrel.Eq{"id": id, "status": models.MembershipApproved})
	return execOne(ctx, r.db, query, apperrors.NewCustomError(apperrors.ErrInvalidTransition,
		"only approved members can lead a team"))
}

// Delete removes a membership
func (r *MembershipRepository) Delete(ctx context.Context, id int64) error {
	return execOne(ctx, r.db, psql.Delete("team_memberships").Where(squirrel.Eq{"id": id}), notFound("membership"))
}

// IsLeader reports whether profileID is an approved leader of any of teamIDs
func (r *MembershipRepository) IsLeader(ctx context.Context, profileID int64, teamIDs ...int64) (bool, error) {
	if len(teamIDs) == 0 {
		return false, nil
	}
	n, err := count(ctx, r.db, psql.Select("COUNT(*)").From("team_memberships").Where(squirrel.Eq{
		"profile_id":  profileID,
		"team_id":     teamIDs,
		"status":      models.MembershipApproved,
		"team_leader": true,
	}))
	return n > 0, err
}
