package models

import "time"

// TeamStatus controls whether a team accepts join requests
type TeamStatus string

const (
	TeamActive     TeamStatus = "active"
	TeamInactive   TeamStatus = "inactive"
	TeamRecruiting TeamStatus = "recruiting"
)

// Valid reports whether s is a known team status
func (s TeamStatus) Valid() bool {
	switch s {
	case TeamActive, TeamInactive, TeamRecruiting:
		return true
	}
	return false
}

// Team is a ministry group
type Team struct {
	ID           int64      `json:"id" db:"id"`
	Name         string     `json:"name" db:"name" example:"Alabanza"`
	Description  *string    `json:"description,omitempty" db:"description"`
	Mission      *string    `json:"mission,omitempty" db:"mission"`
	Vision       *string    `json:"vision,omitempty" db:"vision"`
	Requirements *string    `json:"requirements,omitempty" db:"requirements"`
	Status       TeamStatus `json:"status" db:"status" example:"active"`
	MaxMembers   *int       `json:"maxMembers,omitempty" db:"max_members"`
	ImageURL     *string    `json:"imageUrl,omitempty" db:"image_url"`
	MemberCount  int        `json:"memberCount"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
}

// AcceptsMembers reports whether join requests are allowed
func (t *Team) AcceptsMembers() bool {
	return t.Status != TeamInactive
}

// MembershipStatus is the approval state of a team membership
type MembershipStatus string

const (
	MembershipPending          MembershipStatus = "pending"
	MembershipApproved         MembershipStatus = "approved"
	MembershipRejected         MembershipStatus = "rejected"
	MembershipRemovalRequested MembershipStatus = "removal_requested"
)

// MemberRole is the role inside a team
type MemberRole string

const (
	MemberRoleMiembro MemberRole = "miembro"
	MemberRoleLider   MemberRole = "lider"
)

// TeamMembership links a profile to a team. At most one row exists per (team, profile).
type TeamMembership struct {
	ID         int64            `json:"id" db:"id"`
	TeamID     int64            `json:"teamId" db:"team_id"`
	ProfileID  int64            `json:"profileId" db:"profile_id"`
	Status     MembershipStatus `json:"status" db:"status"`
	Role       MemberRole       `json:"role" db:"role"`
	TeamLeader bool             `json:"teamLeader" db:"team_leader"`
	JoinedAt   time.Time        `json:"joinedAt" db:"joined_at"`
	ApprovedAt *time.Time       `json:"approvedAt,omitempty" db:"approved_at"`
	ApprovedBy *int64           `json:"approvedBy,omitempty" db:"approved_by"`

	// Related entities
	Profile *Profile `json:"profile,omitempty"`
	Team    *Team    `json:"team,omitempty"`
}

// IsActiveLeader reports whether the membership grants leader permissions
func (m *TeamMembership) IsActiveLeader() bool {
	return m.Status == MembershipApproved && m.TeamLeader
}
