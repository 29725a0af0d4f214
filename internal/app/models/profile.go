package models

import (
	"strings"
	"time"
)

// Address holds the location selection of a profile. Names are resolved from the ids.
type Address struct {
	ProvinceID *int64 `json:"provinceId,omitempty" db:"province_id"`
	CantonID   *int64 `json:"cantonId,omitempty" db:"canton_id"`
	DistrictID *int64 `json:"districtId,omitempty" db:"district_id"`
	Province   string `json:"province,omitempty"`
	Canton     string `json:"canton,omitempty"`
	District   string `json:"district,omitempty"`
}

// Profile is a member of the congregation based on the 'profiles' table
type Profile struct {
	ID           int64     `json:"id" db:"id" example:"1"`
	Email        string    `json:"email" db:"email" example:"ana@example.com"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FirstName    string    `json:"firstName" db:"first_name" example:"Ana"`
	LastName     string    `json:"lastName" db:"last_name" example:"Mora"`
	Phone        *string   `json:"phone,omitempty" db:"phone" example:"+506 8888 0000"`
	Role         Role      `json:"role" db:"role" example:"Miembro"`
	SuperAdmin   bool      `json:"superAdmin" db:"super_admin"`
	PictureURL   *string   `json:"pictureUrl,omitempty" db:"picture_url"`
	Address      Address   `json:"address"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// FullName joins first and last name
func (p *Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// IsAdmin reports admin rights, super admins included
func (p *Profile) IsAdmin() bool {
	return p.SuperAdmin || p.Role.AtLeast(RoleAdmin)
}
