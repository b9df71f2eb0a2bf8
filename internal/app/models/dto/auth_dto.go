package dto

import "github.com/mvill/rosterbase/internal/app/models"

// LoginRequest represents login credentials
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest represents an administrator registration request
type RegisterRequest struct {
	Username string          `json:"username" binding:"required"`
	Password string          `json:"password" binding:"required,min=8"`
	Name     string          `json:"name" binding:"required"`
	Role     models.RoleType `json:"role" binding:"required"`
}

// TokenResponse represents JWT token information
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType" example:"Bearer"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// AuthResponse represents a successful authentication response
type AuthResponse struct {
	Token TokenResponse `json:"token"`
	User  *models.User  `json:"user"`
}

// UpdateUserRequest represents a partial administrator update
type UpdateUserRequest struct {
	Username     *string          `json:"username"`
	Password     *string          `json:"password"`
	Name         *string          `json:"name"`
	Role         *models.RoleType `json:"role"`
	ProfileImage *string          `json:"profileImage"`
}
