package auth

import "github.com/yigit/ekklesia/internal/app/models"

// Actor is the authenticated profile behind a request
type Actor struct {
	Profile *models.Profile
}

// NewActor wraps an authenticated profile
func NewActor(profile *models.Profile) *Actor {
	return &Actor{Profile: profile}
}

// ID returns the profile id of the actor
func (a *Actor) ID() int64 {
	return a.Profile.ID
}

// IsSuperAdmin reports whether the actor bypasses every role check
func (a *Actor) IsSuperAdmin() bool {
	return a != nil && a.Profile != nil && a.Profile.SuperAdmin
}

// HasRole reports whether the actor holds min or a higher role
func (a *Actor) HasRole(min models.Role) bool {
	if a == nil || a.Profile == nil {
		return false
	}
	return a.IsSuperAdmin() || a.Profile.Role.AtLeast(min)
}

// IsAdmin reports admin rights, super admins included
func (a *Actor) IsAdmin() bool {
	return a.HasRole(models.RoleAdmin)
}
