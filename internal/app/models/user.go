package models

import (
	"time"
)

// User defines an administrator account based on the 'users' table
type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Password     string    `json:"-" db:"password"` // hashed, excluded from JSON
	Name         string    `json:"name" db:"name"`
	Role         RoleType  `json:"role" db:"role"`
	ProfileImage string    `json:"profileImage,omitempty" db:"profile_image"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}
