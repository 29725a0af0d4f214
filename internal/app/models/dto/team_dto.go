package dto

import "github.com/yigit/ekklesia/internal/app/models"

// TeamRequest creates or replaces a team
type TeamRequest struct {
	Name         string            `json:"name" binding:"required,notblank,max=120" example:"Alabanza"`
	Description  *string           `json:"description"`
	Mission      *string           `json:"mission"`
	Vision       *string           `json:"vision"`
	Requirements *string           `json:"requirements"`
	Status       models.TeamStatus `json:"status" binding:"omitempty,oneof=active inactive recruiting" example:"recruiting"`
	MaxMembers   *int              `json:"maxMembers" binding:"omitempty,min=1"`
}

// SetLeaderRequest promotes an approved member to team leader or back
type SetLeaderRequest struct {
	Leader bool `json:"leader"`
}

// TeamFilterRequest holds the query parameters of the team listing
type TeamFilterRequest struct {
	Search string            `form:"search"`
	Status models.TeamStatus `form:"status" binding:"omitempty,oneof=active inactive recruiting"`
}

// MembershipFilterRequest filters team members by status
type MembershipFilterRequest struct {
	Status models.MembershipStatus `form:"status" binding:"omitempty,oneof=pending approved rejected removal_requested"`
}
