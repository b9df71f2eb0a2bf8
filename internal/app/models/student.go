package models

import (
	"time"
)

// Student defines one roster record inside a course partition. Records are
// stored in per-course tables named "<course>_students"; the ID is assigned
// by the store at creation time and is unique across all partitions.
type Student struct {
	ID           string     `json:"id" db:"id"`
	ExternalID   string     `json:"externalId" db:"external_id"` // student-supplied identifier, stored normalized
	Name         string     `json:"name" db:"name"`
	Course       string     `json:"course" db:"course"`
	SchoolYear   string     `json:"schoolYear,omitempty" db:"school_year"`
	Semester     string     `json:"semester,omitempty" db:"semester"`
	YearLevel    string     `json:"yearLevel,omitempty" db:"year_level"`
	ProfileImage string     `json:"profileImage,omitempty" db:"profile_image"`
	Validated    bool       `json:"validated" db:"validated"`
	ValidatedAt  *time.Time `json:"validatedAt,omitempty" db:"validated_at"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
}
