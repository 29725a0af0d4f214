package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/ekklesia/internal/app/auth"
	"github.com/yigit/ekklesia/internal/app/models"
	"github.com/yigit/ekklesia/internal/app/repositories"
	"github.com/yigit/ekklesia/internal/pkg/apperrors"
	"github.com/yigit/ekklesia/internal/pkg/email"
	"github.com/yigit/ekklesia/internal/pkg/websocket"
)

var fixedNow = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

func testClock() time.Time { return fixedNow }

func actorWith(id int64, role models.Role) *auth.Actor {
	return auth.NewActor(&models.Profile{ID: id, Email: fmt.Sprintf("p%d@example.com", id), FirstName: "Perfil", Role: role})
}

func superAdmin(id int64) *auth.Actor {
	a := actorWith(id, models.RoleMiembro)
	a.Profile.SuperAdmin = true
	return a
}

// leaderTeams maps a profile id to the teams it leads
type leaderTeams map[int64][]int64

func (l leaderTeams) IsLeader(_ context.Context, profileID int64, teamIDs ...int64) (bool, error) {
	for _, led := range l[profileID] {
		for _, id := range teamIDs {
			if led == id {
				return true, nil
			}
		}
	}
	return false, nil
}

func newTestAuthz(leaders leaderTeams) *auth.AuthorizationService {
	return auth.NewAuthorizationService(leaders, zerolog.Nop())
}

type sentNotification struct {
	tmpl email.Template
	to   *models.Profile
	data email.Data
}

type recordingNotifier struct {
	mu         sync.Mutex
	sent       []sentNotification
	broadcasts []email.Data
}

func (n *recordingNotifier) Notify(tmpl email.Template, to *models.Profile, data email.Data) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{tmpl: tmpl, to: to, data: data})
}

func (n *recordingNotifier) Broadcast(_ context.Context, _ email.Template, data email.Data) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.broadcasts = append(n.broadcasts, data)
	return len(models.Roles()), nil
}

func (n *recordingNotifier) templates() []email.Template {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]email.Template, 0, len(n.sent))
	for _, s := range n.sent {
		out = append(out, s.tmpl)
	}
	return out
}

type recordingFeed struct {
	events []websocket.Event
}

func (f *recordingFeed) Publish(ev websocket.Event) {
	f.events = append(f.events, ev)
}

type fakeImages struct {
	saved   []string
	deleted []string
}

func (f *fakeImages) Save(_ context.Context, fh *multipart.FileHeader, subPath string) (string, error) {
	url := "/uploads/" + subPath + "/" + fh.Filename
	f.saved = append(f.saved, url)
	return url, nil
}

func (f *fakeImages) Delete(_ context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	return nil
}

// fakeEventStore keeps events in memory
type fakeEventStore struct {
	events map[int64]*models.Event
	nextID int64
}

func newFakeEventStore(events ...*models.Event) *fakeEventStore {
	s := &fakeEventStore{events: make(map[int64]*models.Event)}
	for _, e := range events {
		s.events[e.ID] = e
		if e.ID > s.nextID {
			s.nextID = e.ID
		}
	}
	return s
}

func (s *fakeEventStore) Create(_ context.Context, e *models.Event) error {
	s.nextID++
	e.ID = s.nextID
	s.events[e.ID] = e
	return nil
}

func (s *fakeEventStore) Update(_ context.Context, e *models.Event) error {
	if _, ok := s.events[e.ID]; !ok {
		return apperrors.NewResourceNotFoundError("event not found")
	}
	s.events[e.ID] = e
	return nil
}

func (s *fakeEventStore) Delete(_ context.Context, id int64) error {
	delete(s.events, id)
	return nil
}

func (s *fakeEventStore) GetByID(_ context.Context, id int64) (*models.Event, error) {
	e, ok := s.events[id]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError("event not found")
	}
	copied := *e
	return &copied, nil
}

func (s *fakeEventStore) TransitionStatus(_ context.Context, id int64, from []models.EventStatus, to models.EventStatus) (bool, error) {
	e, ok := s.events[id]
	if !ok {
		return false, apperrors.NewResourceNotFoundError("event not found")
	}
	for _, f := range from {
		if e.Status == f {
			e.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeEventStore) SetImage(_ context.Context, id int64, url *string) error {
	s.events[id].ImageURL = url
	return nil
}

func (s *fakeEventStore) List(_ context.Context, filter repositories.EventFilter) ([]*models.Event, int64, error) {
	var out []*models.Event
	for _, e := range s.events {
		if filter.Status != nil && e.Status != *filter.Status {
			continue
		}
		if filter.EndsAfter != nil && e.HasEnded(*filter.EndsAfter) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, int64(len(out)), nil
}

// fakeRegistrationStore enforces uniqueness and runs the check against the live count
type fakeRegistrationStore struct {
	events   *fakeEventStore
	profiles map[int64]*models.Profile
	regs     map[int64]*models.EventRegistration
	nextID   int64
}

func newFakeRegistrationStore(events *fakeEventStore, profiles ...*models.Profile) *fakeRegistrationStore {
	s := &fakeRegistrationStore{events: events, profiles: make(map[int64]*models.Profile), regs: make(map[int64]*models.EventRegistration)}
	for _, p := range profiles {
		s.profiles[p.ID] = p
	}
	return s
}

func (s *fakeRegistrationStore) pending(eventID int64) int {
	n := 0
	for _, r := range s.regs {
		if r.EventID == eventID && r.Status == models.RegistrationPending {
			n++
		}
	}
	return n
}

func (s *fakeRegistrationStore) Create(ctx context.Context, reg *models.EventRegistration, check repositories.RegistrationCheck) error {
	event, err := s.events.GetByID(ctx, reg.EventID)
	if err != nil {
		return err
	}
	event.RegistrationCount = s.pending(reg.EventID)
	if err := check(event); err != nil {
		return err
	}
	for _, r := range s.regs {
		if r.EventID == reg.EventID && r.ProfileID == reg.ProfileID {
			return apperrors.ErrDuplicateRegistration
		}
	}
	s.nextID++
	reg.ID = s.nextID
	reg.Status = models.RegistrationPending
	reg.CreatedAt = fixedNow
	reg.Event = event
	stored := *reg
	s.regs[reg.ID] = &stored
	return nil
}

func (s *fakeRegistrationStore) hydrate(r *models.EventRegistration) *models.EventRegistration {
	copied := *r
	copied.Profile = s.profiles[r.ProfileID]
	if copied.Profile == nil {
		copied.Profile = &models.Profile{ID: r.ProfileID}
	}
	copied.Event = s.events.events[r.EventID]
	return &copied
}

func (s *fakeRegistrationStore) GetByID(_ context.Context, id int64) (*models.EventRegistration, error) {
	r, ok := s.regs[id]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError("registration not found")
	}
	return s.hydrate(r), nil
}

func (s *fakeRegistrationStore) Get(_ context.Context, eventID, profileID int64) (*models.EventRegistration, error) {
	for _, r := range s.regs {
		if r.EventID == eventID && r.ProfileID == profileID {
			return s.hydrate(r), nil
		}
	}
	return nil, apperrors.NewResourceNotFoundError("registration not found")
}

func (s *fakeRegistrationStore) ListByEvent(_ context.Context, eventID int64, status *models.RegistrationStatus) ([]*models.EventRegistration, error) {
	var out []*models.EventRegistration
	for id := int64(1); id <= s.nextID; id++ {
		r, ok := s.regs[id]
		if !ok || r.EventID != eventID || (status != nil && r.Status != *status) {
			continue
		}
		out = append(out, s.hydrate(r))
	}
	return out, nil
}

func (s *fakeRegistrationStore) ListByProfile(_ context.Context, profileID int64) ([]*models.EventRegistration, error) {
	var out []*models.EventRegistration
	for _, r := range s.regs {
		if r.ProfileID == profileID {
			out = append(out, s.hydrate(r))
		}
	}
	return out, nil
}

func (s *fakeRegistrationStore) UpdateStatus(_ context.Context, id int64, from, to models.RegistrationStatus, decidedBy int64, at time.Time) error {
	r, ok := s.regs[id]
	if !ok || r.Status != from {
		return apperrors.NewCustomError(apperrors.ErrInvalidTransition, "registration is no longer "+string(from))
	}
	r.Status = to
	r.DecidedBy = &decidedBy
	r.DecidedAt = &at
	return nil
}

func (s *fakeRegistrationStore) Delete(_ context.Context, id int64) error {
	if _, ok := s.regs[id]; !ok {
		return apperrors.NewResourceNotFoundError("registration not found")
	}
	delete(s.regs, id)
	return nil
}

// fakeTeamStore keeps teams in memory. MemberCount is derived from the membership store when set.
type fakeTeamStore struct {
	teams       map[int64]*models.Team
	memberships *fakeMembershipStore
	nextID      int64
}

func newFakeTeamStore(teams ...*models.Team) *fakeTeamStore {
	s := &fakeTeamStore{teams: make(map[int64]*models.Team)}
	for _, t := range teams {
		s.teams[t.ID] = t
		if t.ID > s.nextID {
			s.nextID = t.ID
		}
	}
	return s
}

func (s *fakeTeamStore) Create(_ context.Context, t *models.Team) error {
	for _, existing := range s.teams {
		if strings.EqualFold(existing.Name, t.Name) {
			return apperrors.NewCustomError(apperrors.ErrResourceAlreadyExists, "team name taken")
		}
	}
	s.nextID++
	t.ID = s.nextID
	s.teams[t.ID] = t
	return nil
}

func (s *fakeTeamStore) Update(_ context.Context, t *models.Team) error {
	s.teams[t.ID] = t
	return nil
}

func (s *fakeTeamStore) SetImage(_ context.Context, id int64, url *string) error {
	s.teams[id].ImageURL = url
	return nil
}

func (s *fakeTeamStore) Delete(_ context.Context, id int64) error {
	delete(s.teams, id)
	return nil
}

func (s *fakeTeamStore) GetByID(_ context.Context, id int64) (*models.Team, error) {
	t, ok := s.teams[id]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError("team not found")
	}
	copied := *t
	if s.memberships != nil {
		copied.MemberCount = s.memberships.approvedCount(id)
	}
	return &copied, nil
}

func (s *fakeTeamStore) List(_ context.Context, filter repositories.TeamFilter) ([]*models.Team, int64, error) {
	var out []*models.Team
	for _, t := range s.teams {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		out = append(out, t)
	}
	return out, int64(len(out)), nil
}

// fakeMembershipStore mirrors the repository semantics: unique pairs, rejected rows reopen,
// approval promotes the profile
type fakeMembershipStore struct {
	teams    *fakeTeamStore
	profiles map[int64]*models.Profile
	rows     map[int64]*models.TeamMembership
	nextID   int64
}

func newFakeMembershipStore(teams *fakeTeamStore, profiles ...*models.Profile) *fakeMembershipStore {
	s := &fakeMembershipStore{teams: teams, profiles: make(map[int64]*models.Profile), rows: make(map[int64]*models.TeamMembership)}
	for _, p := range profiles {
		s.profiles[p.ID] = p
	}
	teams.memberships = s
	return s
}

func (s *fakeMembershipStore) approvedCount(teamID int64) int {
	n := 0
	for _, m := range s.rows {
		if m.TeamID == teamID && m.Status == models.MembershipApproved {
			n++
		}
	}
	return n
}

func (s *fakeMembershipStore) add(m *models.TeamMembership) *models.TeamMembership {
	s.nextID++
	m.ID = s.nextID
	if m.Role == "" {
		m.Role = models.MemberRoleMiembro
	}
	s.rows[m.ID] = m
	return m
}

func (s *fakeMembershipStore) hydrate(m *models.TeamMembership) *models.TeamMembership {
	copied := *m
	copied.Profile = s.profiles[m.ProfileID]
	if copied.Profile == nil {
		copied.Profile = &models.Profile{ID: m.ProfileID, Role: models.RoleMiembro}
	}
	copied.Team = s.teams.teams[m.TeamID]
	return &copied
}

func (s *fakeMembershipStore) Join(ctx context.Context, teamID, profileID int64) (*models.TeamMembership, error) {
	for _, m := range s.rows {
		if m.TeamID == teamID && m.ProfileID == profileID {
			if m.Status != models.MembershipRejected {
				return nil, apperrors.ErrDuplicateMembership
			}
			m.Status = models.MembershipPending
			m.TeamLeader = false
			m.Role = models.MemberRoleMiembro
			return s.hydrate(m), nil
		}
	}
	m := s.add(&models.TeamMembership{TeamID: teamID, ProfileID: profileID, Status: models.MembershipPending, JoinedAt: fixedNow})
	return s.hydrate(m), nil
}

func (s *fakeMembershipStore) GetByID(_ context.Context, id int64) (*models.TeamMembership, error) {
	m, ok := s.rows[id]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError("membership not found")
	}
	return s.hydrate(m), nil
}

func (s *fakeMembershipStore) Get(_ context.Context, teamID, profileID int64) (*models.TeamMembership, error) {
	for _, m := range s.rows {
		if m.TeamID == teamID && m.ProfileID == profileID {
			return s.hydrate(m), nil
		}
	}
	return nil, apperrors.NewResourceNotFoundError("membership not found")
}

func (s *fakeMembershipStore) ListByTeam(_ context.Context, teamID int64, status *models.MembershipStatus) ([]*models.TeamMembership, error) {
	var out []*models.TeamMembership
	for id := int64(1); id <= s.nextID; id++ {
		m, ok := s.rows[id]
		if !ok || m.TeamID != teamID || (status != nil && m.Status != *status) {
			continue
		}
		out = append(out, s.hydrate(m))
	}
	return out, nil
}

func (s *fakeMembershipStore) ListByProfile(_ context.Context, profileID int64) ([]*models.TeamMembership, error) {
	var out []*models.TeamMembership
	for _, m := range s.rows {
		if m.ProfileID == profileID {
			out = append(out, s.hydrate(m))
		}
	}
	return out, nil
}

func (s *fakeMembershipStore) UpdateStatus(_ context.Context, id int64, from, to models.MembershipStatus) error {
	m, ok := s.rows[id]
	if !ok || m.Status != from {
		return apperrors.NewCustomError(apperrors.ErrInvalidTransition, "membership is no longer "+string(from))
	}
	m.Status = to
	return nil
}

func (s *fakeMembershipStore) Approve(ctx context.Context, id, approverID int64, at time.Time, minRole models.Role, check repositories.ApprovalCheck) (*models.TeamMembership, error) {
	m, ok := s.rows[id]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError("membership not found")
	}
	team, err := s.teams.GetByID(ctx, m.TeamID)
	if err != nil {
		return nil, err
	}
	if err := check(team, s.hydrate(m)); err != nil {
		return nil, err
	}
	if m.Status != models.MembershipPending {
		return nil, apperrors.NewCustomError(apperrors.ErrInvalidTransition, "membership is no longer pending")
	}
	m.Status = models.MembershipApproved
	m.ApprovedAt = &at
	m.ApprovedBy = &approverID
	if p := s.profiles[m.ProfileID]; p != nil && !p.Role.AtLeast(minRole) {
		p.Role = minRole
	}
	return s.hydrate(m), nil
}

func (s *fakeMembershipStore) SetLeader(_ context.Context, id int64, leader bool) error {
	m, ok := s.rows[id]
	if !ok || m.Status != models.MembershipApproved {
		return apperrors.NewCustomError(apperrors.ErrInvalidTransition, "only approved members can lead a team")
	}
	m.TeamLeader = leader
	m.Role = models.MemberRoleMiembro
	if leader {
		m.Role = models.MemberRoleLider
	}
	return nil
}

func (s *fakeMembershipStore) Delete(_ context.Context, id int64) error {
	if _, ok := s.rows[id]; !ok {
		return apperrors.NewResourceNotFoundError("membership not found")
	}
	delete(s.rows, id)
	return nil
}

// fakeAttendanceStore keeps records keyed by date
type fakeAttendanceStore struct {
	records map[int64]*models.AttendanceRecord
	nextID  int64
}

func newFakeAttendanceStore(records ...*models.AttendanceRecord) *fakeAttendanceStore {
	s := &fakeAttendanceStore{records: make(map[int64]*models.AttendanceRecord)}
	for _, r := range records {
		r.Total = r.ComputeTotal()
		s.nextID++
		r.ID = s.nextID
		s.records[r.ID] = r
	}
	return s
}

func (s *fakeAttendanceStore) byDate(date time.Time) *models.AttendanceRecord {
	for _, r := range s.records {
		if r.Date.Equal(date) {
			return r
		}
	}
	return nil
}

func (s *fakeAttendanceStore) Create(_ context.Context, a *models.AttendanceRecord) error {
	if s.byDate(a.Date) != nil {
		return apperrors.NewCustomError(apperrors.ErrDuplicateAttendanceDate, "duplicate date")
	}
	s.nextID++
	a.ID = s.nextID
	s.records[a.ID] = a
	return nil
}

func (s *fakeAttendanceStore) Update(_ context.Context, a *models.AttendanceRecord) error {
	if other := s.byDate(a.Date); other != nil && other.ID != a.ID {
		return apperrors.NewCustomError(apperrors.ErrDuplicateAttendanceDate, "duplicate date")
	}
	s.records[a.ID] = a
	return nil
}

func (s *fakeAttendanceStore) Delete(_ context.Context, id int64) error {
	delete(s.records, id)
	return nil
}

func (s *fakeAttendanceStore) GetByID(_ context.Context, id int64) (*models.AttendanceRecord, error) {
	r, ok := s.records[id]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError("attendance record not found")
	}
	copied := *r
	return &copied, nil
}

func (s *fakeAttendanceStore) sorted() []*models.AttendanceRecord {
	out := make([]*models.AttendanceRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

func (s *fakeAttendanceStore) List(_ context.Context, filter repositories.AttendanceFilter) ([]*models.AttendanceRecord, int64, error) {
	var out []*models.AttendanceRecord
	for _, r := range s.sorted() {
		if filter.From != nil && r.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && r.Date.After(*filter.To) {
			continue
		}
		out = append(out, r)
	}
	return out, int64(len(out)), nil
}

func (s *fakeAttendanceStore) Recent(_ context.Context, n int) ([]*models.AttendanceRecord, error) {
	all := s.sorted()
	if n < len(all) {
		all = all[:n]
	}
	return all, nil
}

func (s *fakeAttendanceStore) Highest(_ context.Context) (*models.AttendanceRecord, error) {
	var best *models.AttendanceRecord
	for _, r := range s.sorted() {
		if best == nil || r.Total >= best.Total {
			best = r
		}
	}
	return best, nil
}

func (s *fakeAttendanceStore) Import(_ context.Context, records []*models.AttendanceRecord, override bool) ([]models.UpsertOutcome, error) {
	outcomes := make([]models.UpsertOutcome, len(records))
	for i, a := range records {
		existing := s.byDate(a.Date)
		switch {
		case existing == nil:
			s.nextID++
			a.ID = s.nextID
			s.records[a.ID] = a
			outcomes[i] = models.OutcomeInserted
		case override:
			a.ID = existing.ID
			s.records[a.ID] = a
			outcomes[i] = models.OutcomeUpdated
		default:
			outcomes[i] = models.OutcomeSkipped
		}
	}
	return outcomes, nil
}
