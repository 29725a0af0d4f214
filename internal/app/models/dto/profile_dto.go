package dto

import "github.com/yigit/ekklesia/internal/app/models"

// UpdateProfileRequest is a partial self-edit. Nil fields are left unchanged.
// Address ids go through the province → canton → district cascade.
type UpdateProfileRequest struct {
	FirstName    *string `json:"firstName" binding:"omitempty,notblank"`
	LastName     *string `json:"lastName" binding:"omitempty,notblank"`
	Phone        *string `json:"phone" binding:"omitempty,max=30"`
	ProvinceID   *int64  `json:"provinceId" binding:"omitempty,gt=0"`
	CantonID     *int64  `json:"cantonId" binding:"omitempty,gt=0"`
	DistrictID   *int64  `json:"districtId" binding:"omitempty,gt=0"`
	ClearAddress bool    `json:"clearAddress"`
}

// InviteProfileRequest creates a profile on someone's behalf
type InviteProfileRequest struct {
	Email     string      `json:"email" binding:"required,email"`
	FirstName string      `json:"firstName" binding:"required,notblank"`
	LastName  string      `json:"lastName" binding:"required,notblank"`
	Role      models.Role `json:"role" binding:"omitempty,role" example:"Miembro"`
}

// ChangeRoleRequest sets the global role of a profile
type ChangeRoleRequest struct {
	Role models.Role `json:"role" binding:"required,role" example:"Staff"`
}

// ProfileFilterRequest holds the query parameters of the profile listing
type ProfileFilterRequest struct {
	Search string `form:"search"`
	Role   string `form:"role" binding:"omitempty,role"`
}
