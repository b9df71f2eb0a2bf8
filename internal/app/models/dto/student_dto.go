package dto

import "github.com/mvill/rosterbase/internal/app/models"

// AddStudentRequest represents a single-record insert into a course partition
type AddStudentRequest struct {
	ExternalID   string `json:"externalId" binding:"required"`
	Name         string `json:"name" binding:"required"`
	SchoolYear   string `json:"schoolYear"`
	Semester     string `json:"semester"`
	YearLevel    string `json:"yearLevel"`
	ProfileImage string `json:"profileImage"`
	Validated    *bool  `json:"validated"`
}

// UpdateStudentRequest represents a field-level merge; only provided fields
// change, omitted fields retain their stored values.
type UpdateStudentRequest struct {
	ExternalID   *string `json:"externalId"`
	Name         *string `json:"name"`
	SchoolYear   *string `json:"schoolYear"`
	Semester     *string `json:"semester"`
	YearLevel    *string `json:"yearLevel"`
	ProfileImage *string `json:"profileImage"`
	Validated    *bool   `json:"validated"`
}

// UploadResult summarizes a bulk import
type UploadResult struct {
	InsertedCount int `json:"insertedCount"`
	SkippedCount  int `json:"skippedCount"`
}

// BulkDeleteRequest names the record IDs to delete across all partitions
type BulkDeleteRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// BulkDeleteResult summarizes a bulk delete. Partial success is reported as
// data, not as an error: NotFoundIDs lists the requested IDs that were never
// matched in any partition.
type BulkDeleteResult struct {
	DeletedCount   int               `json:"deletedCount"`
	DeletedRecords []*models.Student `json:"deletedRecords"`
	NotFoundIDs    []string          `json:"notFoundIds"`
}

// DeleteAllResult summarizes a delete-all-in-partition operation
type DeleteAllResult struct {
	DeletedCount int `json:"deletedCount"`
}

// CourseValidationStats holds per-course validation counts
type CourseValidationStats struct {
	Course      string `json:"course"`
	Total       int64  `json:"total"`
	Validated   int64  `json:"validated"`
	Unvalidated int64  `json:"unvalidated"`
}

// ValidationStats aggregates validation counts across every course partition
type ValidationStats struct {
	Courses          []CourseValidationStats `json:"courses"`
	TotalStudents    int64                   `json:"totalStudents"`
	TotalValidated   int64                   `json:"totalValidated"`
	TotalUnvalidated int64                   `json:"totalUnvalidated"`
}
