package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/ekklesia/internal/app/auth"
	"github.com/yigit/ekklesia/internal/app/models"
	"github.com/yigit/ekklesia/internal/app/models/dto"
	"github.com/yigit/ekklesia/internal/app/repositories"
	"github.com/yigit/ekklesia/internal/app/workflow"
	"github.com/yigit/ekklesia/internal/pkg/apperrors"
	"github.com/yigit/ekklesia/internal/pkg/email"
	"github.com/yigit/ekklesia/internal/pkg/export"
	"github.com/yigit/ekklesia/internal/pkg/helpers"
)

// TeamStore is the team persistence
type TeamStore interface {
	Create(ctx context.Context, t *models.Team) error
	Update(ctx context.Context, t *models.Team) error
	SetImage(ctx context.Context, id int64, url *string) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*models.Team, error)
	List(ctx context.Context, filter repositories.TeamFilter) ([]*models.Team, int64, error)
}

// MembershipStore is the team membership persistence
type MembershipStore interface {
	Join(ctx context.Context, teamID, profileID int64) (*models.TeamMembership, error)
	GetByID(ctx context.Context, id int64) (*models.TeamMembership, error)
	Get(ctx context.Context, teamID, profileID int64) (*models.TeamMembership, error)
	ListByTeam(ctx context.Context, teamID int64, status *models.MembershipStatus) ([]*models.TeamMembership, error)
	ListByProfile(ctx context.Context, profileID int64) ([]*models.TeamMembership, error)
	UpdateStatus(ctx context.Context, id int64, from, to models.MembershipStatus) error
	Approve(ctx context.Context, id, approverID int64, at time.Time, minRole models.Role, check repositories.ApprovalCheck) (*models.TeamMembership, error)
	SetLeader(ctx context.Context, id int64, leader bool) error
	Delete(ctx context.Context, id int64) error
}

// TeamService manages teams and the membership workflow
type TeamService struct {
	teams       TeamStore
	memberships MembershipStore
	images      ImageStore
	notifier    Notifier
	authz       *auth.AuthorizationService
	now         Clock
	baseURL     string
	logger      zerolog.Logger
}

// NewTeamService creates a new TeamService
func NewTeamService(
	teams TeamStore,
	memberships MembershipStore,
	images ImageStore,
	notifier Notifier,
	authz *auth.AuthorizationService,
	now Clock,
	baseURL string,
	logger zerolog.Logger,
) *TeamService {
	return &TeamService{
		teams:       teams,
		memberships: memberships,
		images:      images,
		notifier:    notifier,
		authz:       authz,
		now:         now,
		baseURL:     baseURL,
		logger:      logger,
	}
}

func (s *TeamService) teamData(team *models.Team, member *models.Profile) email.Data {
	data := email.Data{}
	if team != nil {
		data.TeamName = team.Name
		data.URL = fmt.Sprintf("%s/equipos/%d", s.baseURL, team.ID)
	}
	if member != nil {
		data.MemberName = member.FullName()
	}
	return data
}

// notifyLeaders emails every approved leader of the team
func (s *TeamService) notifyLeaders(ctx context.Context, tmpl email.Template, team *models.Team, member *models.Profile) {
	approved := models.MembershipApproved
	members, err := s.memberships.ListByTeam(ctx, team.ID, &approved)
	if err != nil {
		s.logger.Error().Err(err).Int64("teamID", team.ID).Msg("Failed to load team leaders for notification")
		return
	}
	for _, m := range members {
		if m.IsActiveLeader() {
			s.notifier.Notify(tmpl, m.Profile, s.teamData(team, member))
		}
	}
}

func applyTeamRequest(t *models.Team, req *dto.TeamRequest) {
	t.Name = strings.TrimSpace(req.Name)
	t.Description = req.Description
	t.Mission = req.Mission
	t.Vision = req.Vision
	t.Requirements = req.Requirements
	t.MaxMembers = req.MaxMembers
	t.Status = req.Status
	if t.Status == "" {
		t.Status = models.TeamActive
	}
}

// Create stores a new team. Admin only.
func (s *TeamService) Create(ctx context.Context, actor *auth.Actor, req *dto.TeamRequest) (*models.Team, error) {
	if err := s.authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	t := &models.Team{}
	applyTeamRequest(t, req)
	if err := s.teams.Create(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("teamID", t.ID).Str("name", t.Name).Msg("Team created")
	return t, nil
}

// Update replaces the details of a team. Admin only.
func (s *TeamService) Update(ctx context.Context, actor *auth.Actor, id int64, req *dto.TeamRequest) (*models.Team, error) {
	if err := s.authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	t, err := s.teams.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	applyTeamRequest(t, req)
	if err := s.teams.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes a team with its memberships. Admin only.
func (s *TeamService) Delete(ctx context.Context, actor *auth.Actor, id int64) error {
	if err := s.authz.RequireAdmin(actor); err != nil {
		return err
	}
	t, err := s.teams.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.teams.Delete(ctx, id); err != nil {
		return err
	}
	if t.ImageURL != nil {
		if err := s.images.Delete(ctx, *t.ImageURL); err != nil {
			s.logger.Warn().Err(err).Str("url", *t.ImageURL).Msg("Failed to delete team image")
		}
	}
	return nil
}

// UploadImage replaces the image of a team. Admin only.
func (s *TeamService) UploadImage(ctx context.Context, actor *auth.Actor, id int64, fileHeader *multipart.FileHeader) (*models.Team, error) {
	if err := s.authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	t, err := s.teams.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	url, err := s.images.Save(ctx, fileHeader, "teams")
	if err != nil {
		return nil, err
	}
	if err := s.teams.SetImage(ctx, id, &url); err != nil {
		_ = s.images.Delete(ctx, url)
		return nil, err
	}
	if t.ImageURL != nil {
		if err := s.images.Delete(ctx, *t.ImageURL); err != nil {
			s.logger.Warn().Err(err).Str("url", *t.ImageURL).Msg("Failed to delete old team image")
		}
	}
	t.ImageURL = &url
	return t, nil
}

// List returns a page of teams
func (s *TeamService) List(ctx context.Context, req *dto.TeamFilterRequest, page helpers.Page) (*dto.PaginatedResponse, error) {
	filter := repositories.TeamFilter{Search: req.Search, Page: page}
	if req.Status != "" {
		status := req.Status
		filter.Status = &status
	}
	teams, total, err := s.teams.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &dto.PaginatedResponse{Items: teams, Pagination: helpers.NewPaginationInfo(total, page)}, nil
}

// Get returns a team with its approved member count
func (s *TeamService) Get(ctx context.Context, id int64) (*models.Team, error) {
	return s.teams.GetByID(ctx, id)
}

// Join asks for membership of the actor in a team
func (s *TeamService) Join(ctx context.Context, actor *auth.Actor, teamID int64) (*models.TeamMembership, error) {
	if actor == nil {
		return nil, apperrors.ErrUnauthorized
	}
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !team.AcceptsMembers() {
		return nil, apperrors.NewCustomError(apperrors.ErrTeamInactive, fmt.Sprintf("team %q is not accepting members", team.Name))
	}

	m, err := s.memberships.Join(ctx, teamID, actor.ID())
	if err != nil {
		return nil, err
	}
	s.notifyLeaders(ctx, email.TemplateMembershipRequested, team, actor.Profile)
	s.logger.Info().Int64("teamID", teamID).Int64("profileID", actor.ID()).Msg("Membership requested")
	return m, nil
}

// RequestRemoval marks the actor's approved membership as pending removal
func (s *TeamService) RequestRemoval(ctx context.Context, actor *auth.Actor, teamID int64) (*models.TeamMembership, error) {
	if actor == nil {
		return nil, apperrors.ErrUnauthorized
	}
	m, err := s.memberships.Get(ctx, teamID, actor.ID())
	if err != nil {
		return nil, err
	}
	next, err := workflow.Memberships.Next(m.Status, workflow.ActionRequestRemoval)
	if err != nil {
		return nil, err
	}
	if err := s.memberships.UpdateStatus(ctx, m.ID, m.Status, next); err != nil {
		return nil, err
	}
	m.Status = next
	s.notifyLeaders(ctx, email.TemplateRemovalRequested, m.Team, actor.Profile)
	return m, nil
}

// membershipInTeam loads a membership and checks it belongs to teamID
func (s *TeamService) membershipInTeam(ctx context.Context, teamID, membershipID int64) (*models.TeamMembership, error) {
	m, err := s.memberships.GetByID(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if m.TeamID != teamID {
		return nil, apperrors.NewResourceNotFoundError("membership not found")
	}
	return m, nil
}

// memberLimitCheck rejects approvals that would exceed the team's member limit
func memberLimitCheck(team *models.Team, _ *models.TeamMembership) error {
	if team.MaxMembers != nil && team.MemberCount >= *team.MaxMembers {
		return apperrors.NewCustomError(apperrors.ErrTeamFull,
			fmt.Sprintf("team %q is full (%d/%d)", team.Name, team.MemberCount, *team.MaxMembers))
	}
	return nil
}

// Approve accepts a pending membership and promotes the member to at least Staff.
// Admins and approved leaders of the team.
func (s *TeamService) Approve(ctx context.Context, actor *auth.Actor, teamID, membershipID int64) (*models.TeamMembership, error) {
	if err := s.authz.ValidateTeamManager(ctx, actor, teamID); err != nil {
		return nil, err
	}
	m, err := s.membershipInTeam(ctx, teamID, membershipID)
	if err != nil {
		return nil, err
	}
	if !workflow.Memberships.Can(m.Status, workflow.ActionApprove) {
		_, err := workflow.Memberships.Next(m.Status, workflow.ActionApprove)
		return nil, err
	}

	approved, err := s.memberships.Approve(ctx, m.ID, actor.ID(), s.now().UTC(), workflow.PromotionOnApproval, memberLimitCheck)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(email.TemplateMembershipApproved, approved.Profile, s.teamData(approved.Team, approved.Profile))
	s.logger.Info().
		Int64("membershipID", m.ID).
		Int64("approvedBy", actor.ID()).
		Str("role", string(approved.Profile.Role)).
		Msg("Membership approved")
	return approved, nil
}

// Reject declines a pending membership. Admins and approved leaders of the team.
func (s *TeamService) Reject(ctx context.Context, actor *auth.Actor, teamID, membershipID int64) (*models.TeamMembership, error) {
	if err := s.authz.ValidateTeamManager(ctx, actor, teamID); err != nil {
		return nil, err
	}
	m, err := s.membershipInTeam(ctx, teamID, membershipID)
	if err != nil {
		return nil, err
	}
	next, err := workflow.Memberships.Next(m.Status, workflow.ActionReject)
	if err != nil {
		return nil, err
	}
	if err := s.memberships.UpdateStatus(ctx, m.ID, m.Status, next); err != nil {
		return nil, err
	}
	m.Status = next
	s.notifier.Notify(email.TemplateMembershipRejected, m.Profile, s.teamData(m.Team, m.Profile))
	return m, nil
}

// SetLeader makes an approved member the team's leader, or back. Admin only.
func (s *TeamService) SetLeader(ctx context.Context, actor *auth.Actor, teamID, membershipID int64, leader bool) (*models.TeamMembership, error) {
	if err := s.authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	m, err := s.membershipInTeam(ctx, teamID, membershipID)
	if err != nil {
		return nil, err
	}
	if err := s.memberships.SetLeader(ctx, m.ID, leader); err != nil {
		return nil, err
	}
	return s.memberships.GetByID(ctx, m.ID)
}

// RemoveMember deletes a membership, confirming a removal request. Admins and leaders.
func (s *TeamService) RemoveMember(ctx context.Context, actor *auth.Actor, teamID, membershipID int64) error {
	if err := s.authz.ValidateTeamManager(ctx, actor, teamID); err != nil {
		return err
	}
	m, err := s.membershipInTeam(ctx, teamID, membershipID)
	if err != nil {
		return err
	}
	if err := s.memberships.Delete(ctx, m.ID); err != nil {
		return err
	}
	s.logger.Info().Int64("teamID", teamID).Int64("profileID", m.ProfileID).Int64("removedBy", actor.ID()).Msg("Member removed")
	return nil
}

// ListMembers returns the memberships of a team. Anyone sees approved members; other
// statuses are visible to admins and leaders of the team.
func (s *TeamService) ListMembers(ctx context.Context, actor *auth.Actor, teamID int64, status models.MembershipStatus) ([]*models.TeamMembership, error) {
	if _, err := s.teams.GetByID(ctx, teamID); err != nil {
		return nil, err
	}
	if status != models.MembershipApproved {
		if err := s.authz.ValidateTeamManager(ctx, actor, teamID); err != nil {
			return nil, err
		}
	}
	var filter *models.MembershipStatus
	if status != "" {
		filter = &status
	}
	return s.memberships.ListByTeam(ctx, teamID, filter)
}

// MyTeams lists the memberships of the actor
func (s *TeamService) MyTeams(ctx context.Context, actor *auth.Actor) ([]*models.TeamMembership, error) {
	if actor == nil {
		return nil, apperrors.ErrUnauthorized
	}
	return s.memberships.ListByProfile(ctx, actor.ID())
}

var membershipStatusLabels = map[models.MembershipStatus]string{
	models.MembershipPending:          "Pendiente",
	models.MembershipApproved:         "Aprobado",
	models.MembershipRejected:         "Rechazado",
	models.MembershipRemovalRequested: "Baja solicitada",
}

// MemberRoster builds the member list of a team for export. Admins and leaders.
func (s *TeamService) MemberRoster(ctx context.Context, actor *auth.Actor, teamID int64) (export.Roster, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return export.Roster{}, err
	}
	if err := s.authz.ValidateTeamManager(ctx, actor, teamID); err != nil {
		return export.Roster{}, err
	}
	members, err := s.memberships.ListByTeam(ctx, teamID, nil)
	if err != nil {
		return export.Roster{}, err
	}

	roster := export.Roster{
		Title:       "Miembros - " + team.Name,
		Columns:     []string{"Nombre", "Email", "Teléfono", "Rol", "Estado", "Desde"},
		GeneratedAt: s.now(),
	}
	for _, m := range members {
		if m.Status == models.MembershipRejected {
			continue
		}
		phone := ""
		if m.Profile.Phone != nil {
			phone = *m.Profile.Phone
		}
		roster.Rows = append(roster.Rows, []string{
			m.Profile.FullName(), m.Profile.Email, phone, string(m.Role), membershipStatusLabels[m.Status], displayDate(m.JoinedAt),
		})
	}
	return roster, nil
}
