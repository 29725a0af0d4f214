package dto

import "github.com/yigit/ekklesia/internal/app/models"

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest is the self sign-up form. New profiles always start as Miembro.
type RegisterRequest struct {
	Email      string  `json:"email" binding:"required,email" example:"ana@example.com"`
	Password   string  `json:"password" binding:"required,min=8"`
	FirstName  string  `json:"firstName" binding:"required,notblank" example:"Ana"`
	LastName   string  `json:"lastName" binding:"required,notblank" example:"Mora"`
	Phone      *string `json:"phone" binding:"omitempty,max=30"`
	ProvinceID *int64  `json:"provinceId" binding:"omitempty,gt=0"`
	CantonID   *int64  `json:"cantonId" binding:"omitempty,gt=0"`
	DistrictID *int64  `json:"districtId" binding:"omitempty,gt=0"`
}

// ChangePasswordRequest replaces the password of the current profile
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

// TokenResponse represents JWT token information
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType" example:"Bearer"`
	ExpiresIn   int    `json:"expiresIn" example:"604800"`
}

// AuthResponse represents successful authentication response
type AuthResponse struct {
	Token   TokenResponse   `json:"token"`
	Profile *models.Profile `json:"profile"`
}
