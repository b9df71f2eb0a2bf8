package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mvill/rosterbase/internal/app/models"
	"github.com/mvill/rosterbase/internal/app/models/dto"
	"github.com/mvill/rosterbase/internal/app/repositories"
	"github.com/mvill/rosterbase/internal/pkg/apperrors"
	"github.com/mvill/rosterbase/internal/pkg/dberrors"
	"github.com/mvill/rosterbase/internal/pkg/normalize"
	"github.com/mvill/rosterbase/internal/pkg/tabular"
)

// StudentService owns CRUD, bulk import with dedup, cross-partition search
// and validation-state queries over student records.
//
// Multi-step operations (check-then-insert, find-then-update) are not atomic;
// a concurrent writer can race between the check and the act step. The
// partition-level unique index on external_id backstops the import dedup, but
// the service's own checks are best-effort guards, not guarantees.
type StudentService interface {
	GetAllStudents(ctx context.Context) ([]*models.Student, error)
	GetStudentsByCourse(ctx context.Context, course, search string) ([]*models.Student, error)
	AddStudent(ctx context.Context, course string, req dto.AddStudentRequest) (*models.Student, error)
	ImportStudents(ctx context.Context, course string, records []tabular.Record) (*dto.UploadResult, error)
	UpdateStudent(ctx context.Context, studentID string, req dto.UpdateStudentRequest) (*models.Student, error)
	GetExternalIDMatches(ctx context.Context, externalID string) ([]string, error)
	DeleteStudent(ctx context.Context, studentID string) (*models.Student, error)
	DeleteStudents(ctx context.Context, studentIDs []string) (*dto.BulkDeleteResult, error)
	DeleteAllByCourse(ctx context.Context, course string) (*dto.DeleteAllResult, error)
	GetValidationStats(ctx context.Context) (*dto.ValidationStats, error)
}

type studentService struct {
	partitions repositories.IPartitionRegistry
	students   repositories.IStudentRepository
	logger     zerolog.Logger
}

// NewStudentService creates a new student service instance
func NewStudentService(partitions repositories.IPartitionRegistry, students repositories.IStudentRepository, logger zerolog.Logger) StudentService {
	return &studentService{
		partitions: partitions,
		students:   students,
		logger:     logger,
	}
}

// GetAllStudents concatenates every record from every partition, in partition
// name order, each partition in insertion order.
func (s *studentService) GetAllStudents(ctx context.Context) ([]*models.Student, error) {
	partitions, err := s.partitions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error enumerating partitions: %w", err)
	}

	var all []*models.Student
	for _, partition := range partitions {
		students, err := s.students.ListAll(ctx, partition)
		if err != nil {
			// Partition dropped between enumeration and read.
			if dberrors.IsUndefinedTable(err) {
				continue
			}
			return nil, fmt.Errorf("error reading partition %s: %w", partition, err)
		}
		all = append(all, students...)
	}

	return all, nil
}

// GetStudentsByCourse returns records in the course partition, optionally
// filtered to those whose external ID or name contains the search query.
// "Partition missing" and "no matches" both produce the same course not found
// error; the two situations are not distinguished at this layer.
func (s *studentService) GetStudentsByCourse(ctx context.Context, course, search string) ([]*models.Student, error) {
	partition, err := repositories.PartitionNameFor(course)
	if err != nil {
		return nil, err
	}

	var students []*models.Student
	if search == "" {
		students, err = s.students.ListAll(ctx, partition)
	} else {
		students, err = s.students.Search(ctx, partition, search)
	}
	if err != nil {
		if dberrors.IsUndefinedTable(err) {
			return nil, apperrors.NewCourseNotFoundError(fmt.Sprintf("no students found for course %s", course))
		}
		return nil, fmt.Errorf("error fetching students for course %s: %w", course, err)
	}

	if len(students) == 0 {
		return nil, apperrors.NewCourseNotFoundError(fmt.Sprintf("no students found for course %s", course))
	}

	return students, nil
}

// AddStudent inserts one record into the course partition, rejecting
// duplicate external IDs within that partition.
func (s *studentService) AddStudent(ctx context.Context, course string, req dto.AddStudentRequest) (*models.Student, error) {
	partition, err := repositories.PartitionNameFor(course)
	if err != nil {
		return nil, err
	}

	externalID := normalize.ExternalID(req.ExternalID)
	if externalID == "" {
		return nil, apperrors.NewValidationError("externalId is required")
	}

	if err := s.partitions.Ensure(ctx, partition); err != nil {
		return nil, fmt.Errorf("error ensuring partition for course %s: %w", course, err)
	}

	exists, err := s.students.ExternalIDExists(ctx, partition, externalID, "")
	if err != nil {
		return nil, fmt.Errorf("error checking duplicate in course %s: %w", course, err)
	}
	if exists {
		return nil, apperrors.NewDuplicateError(
			fmt.Sprintf("student with ID %s already exists in course %s", externalID, course))
	}

	now := time.Now()
	student := &models.Student{
		ID:           uuid.New().String(),
		ExternalID:   externalID,
		Name:         req.Name,
		Course:       strings.ToLower(strings.TrimSpace(course)),
		SchoolYear:   req.SchoolYear,
		Semester:     req.Semester,
		YearLevel:    req.YearLevel,
		ProfileImage: req.ProfileImage,
		CreatedAt:    now,
	}
	if req.Validated != nil && *req.Validated {
		student.Validated = true
		student.ValidatedAt = &now
	}

	if err := s.students.Insert(ctx, partition, student); err != nil {
		// Lost the check-then-insert race; the partition index caught it.
		if dberrors.IsUniqueViolation(err) {
			return nil, apperrors.NewDuplicateError(
				fmt.Sprintf("student with ID %s already exists in course %s", externalID, course))
		}
		return nil, fmt.Errorf("error inserting student into course %s: %w", course, err)
	}

	return student, nil
}

// ImportStudents bulk-inserts decoded upload records into the course
// partition. Records whose normalized external ID already exists in the
// partition are skipped; within the batch itself only the first occurrence of
// an ID is treated as new. Records without an external ID are always
// inserted, since there is nothing to deduplicate on.
func (s *studentService) ImportStudents(ctx context.Context, course string, records []tabular.Record) (*dto.UploadResult, error) {
	partition, err := repositories.PartitionNameFor(course)
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, apperrors.NewValidationError("no student data")
	}

	if err := s.partitions.Ensure(ctx, partition); err != nil {
		return nil, fmt.Errorf("error ensuring partition for course %s: %w", course, err)
	}

	seen, err := s.students.ExternalIDs(ctx, partition)
	if err != nil {
		return nil, fmt.Errorf("error reading existing ids for course %s: %w", course, err)
	}

	folded := strings.ToLower(strings.TrimSpace(course))
	now := time.Now()

	var fresh []*models.Student
	skipped := 0
	for _, record := range records {
		student := recordToStudent(record, folded, now)
		if student.ExternalID != "" {
			if _, dup := seen[student.ExternalID]; dup {
				skipped++
				continue
			}
			seen[student.ExternalID] = struct{}{}
		}
		fresh = append(fresh, student)
	}

	if len(fresh) == 0 {
		return nil, apperrors.NewValidationError("all records already exist")
	}

	inserted, err := s.students.BulkInsert(ctx, partition, fresh)
	if err != nil {
		return nil, fmt.Errorf("error bulk inserting students into course %s: %w", course, err)
	}

	s.logger.Info().
		Str("course", folded).
		Int64("inserted", inserted).
		Int("skipped", skipped).
		Msg("Student import completed")

	return &dto.UploadResult{
		InsertedCount: int(inserted),
		SkippedCount:  skipped,
	}, nil
}

// recordToStudent maps one decoded upload row onto a student record. Header
// variants from both CSV templates and raw exports are accepted.
func recordToStudent(record tabular.Record, course string, createdAt time.Time) *models.Student {
	externalID := normalize.ExternalID(firstValue(record, "external_id", "externalId", "tup_id", "student_id"))

	return &models.Student{
		ID:           uuid.New().String(),
		ExternalID:   externalID,
		Name:         firstValue(record, "name", "full_name"),
		Course:       course,
		SchoolYear:   firstValue(record, "school_year", "schoolYear"),
		Semester:     firstValue(record, "semester"),
		YearLevel:    firstValue(record, "year_level", "yearLevel"),
		ProfileImage: firstValue(record, "profile_image", "profileImage"),
		CreatedAt:    createdAt,
	}
}

func firstValue(record tabular.Record, keys ...string) string {
	for _, key := range keys {
		if v := record.Get(key); v != "" {
			return v
		}
	}
	return ""
}

// UpdateStudent locates a record by ID across all partitions and applies a
// field-level merge. The search stops at the first match; IDs are assumed
// globally unique. This is O(partitions) per call, which is acceptable at
// one partition per course.
func (s *studentService) UpdateStudent(ctx context.Context, studentID string, req dto.UpdateStudentRequest) (*models.Student, error) {
	partitions, err := s.partitions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error enumerating partitions: %w", err)
	}

	for _, partition := range partitions {
		student, err := s.students.GetByID(ctx, partition, studentID)
		if err != nil {
			if dberrors.IsUndefinedTable(err) {
				continue
			}
			return nil, fmt.Errorf("error searching partition %s: %w", partition, err)
		}
		if student == nil {
			continue
		}
		return s.applyUpdate(ctx, partition, student, req)
	}

	return nil, apperrors.NewNotFoundError(fmt.Sprintf("student with ID %s not found", studentID))
}

func (s *studentService) applyUpdate(ctx context.Context, partition string, student *models.Student, req dto.UpdateStudentRequest) (*models.Student, error) {
	merged := *student
	changed := false

	if req.ExternalID != nil {
		externalID := normalize.ExternalID(*req.ExternalID)
		if externalID == "" {
			return nil, apperrors.NewValidationError("externalId cannot be empty")
		}
		if externalID != student.ExternalID {
			exists, err := s.students.ExternalIDExists(ctx, partition, externalID, student.ID)
			if err != nil {
				return nil, fmt.Errorf("error checking duplicate in partition %s: %w", partition, err)
			}
			if exists {
				return nil, apperrors.NewDuplicateError(fmt.Sprintf(
					"student with ID %s already exists in course %s",
					externalID, repositories.CourseFromPartition(partition)))
			}
			merged.ExternalID = externalID
			changed = true
		}
	}

	applyString := func(dst *string, src *string) {
		if src != nil && *src != *dst {
			*dst = *src
			changed = true
		}
	}
	applyString(&merged.Name, req.Name)
	applyString(&merged.SchoolYear, req.SchoolYear)
	applyString(&merged.Semester, req.Semester)
	applyString(&merged.YearLevel, req.YearLevel)
	applyString(&merged.ProfileImage, req.ProfileImage)

	if req.Validated != nil && *req.Validated != student.Validated {
		merged.Validated = *req.Validated
		if merged.Validated {
			now := time.Now()
			merged.ValidatedAt = &now
		} else {
			merged.ValidatedAt = nil
		}
		changed = true
	}

	if !changed {
		// Soft outcome; the HTTP layer reports this as a 2xx "nothing to do".
		return nil, apperrors.ErrNoChange
	}

	if err := s.students.Update(ctx, partition, &merged); err != nil {
		if dberrors.IsUniqueViolation(err) {
			return nil, apperrors.NewDuplicateError(fmt.Sprintf(
				"student with ID %s already exists in course %s",
				merged.ExternalID, repositories.CourseFromPartition(partition)))
		}
		return nil, fmt.Errorf("error updating student in partition %s: %w", partition, err)
	}

	return &merged, nil
}

// GetExternalIDMatches returns the normalized external IDs equal to the
// normalized input whose records are validated, across every partition. The
// result leaks neither course nor record content.
func (s *studentService) GetExternalIDMatches(ctx context.Context, externalID string) ([]string, error) {
	normalized := normalize.ExternalID(externalID)
	if normalized == "" {
		return nil, nil
	}

	partitions, err := s.partitions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error enumerating partitions: %w", err)
	}

	var matches []string
	for _, partition := range partitions {
		ids, err := s.students.ValidatedExternalIDs(ctx, partition, normalized)
		if err != nil {
			if dberrors.IsUndefinedTable(err) {
				continue
			}
			return nil, fmt.Errorf("error matching external id in partition %s: %w", partition, err)
		}
		for _, id := range ids {
			if id != "" {
				matches = append(matches, id)
			}
		}
	}

	return matches, nil
}

// DeleteStudent locates a record by ID across all partitions and deletes it,
// returning the deleted record's prior content.
func (s *studentService) DeleteStudent(ctx context.Context, studentID string) (*models.Student, error) {
	partitions, err := s.partitions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error enumerating partitions: %w", err)
	}

	for _, partition := range partitions {
		student, err := s.students.DeleteByID(ctx, partition, studentID)
		if err != nil {
			if dberrors.IsUndefinedTable(err) {
				continue
			}
			return nil, fmt.Errorf("error deleting from partition %s: %w", partition, err)
		}
		if student != nil {
			return student, nil
		}
	}

	return nil, apperrors.NewNotFoundError(fmt.Sprintf("student with ID %s not found", studentID))
}

// DeleteStudents deletes a set of records by ID across all partitions.
// Malformed IDs fail the whole request before anything is deleted. Partial
// success is success: IDs that matched nothing are reported in the result,
// and only a request where no ID matched at all is an error.
func (s *studentService) DeleteStudents(ctx context.Context, studentIDs []string) (*dto.BulkDeleteResult, error) {
	if len(studentIDs) == 0 {
		return nil, apperrors.NewValidationError("no student ids provided")
	}

	var malformed []string
	for _, id := range studentIDs {
		if _, err := uuid.Parse(id); err != nil {
			malformed = append(malformed, id)
		}
	}
	if len(malformed) > 0 {
		return nil, apperrors.NewValidationError(
			"malformed student ids: " + strings.Join(malformed, ", "))
	}

	partitions, err := s.partitions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error enumerating partitions: %w", err)
	}

	remaining := make(map[string]struct{}, len(studentIDs))
	for _, id := range studentIDs {
		remaining[id] = struct{}{}
	}

	var deleted []*models.Student
	for _, partition := range partitions {
		if len(remaining) == 0 {
			break
		}

		pending := make([]string, 0, len(remaining))
		for id := range remaining {
			pending = append(pending, id)
		}

		records, err := s.students.DeleteByIDs(ctx, partition, pending)
		if err != nil {
			if dberrors.IsUndefinedTable(err) {
				continue
			}
			return nil, fmt.Errorf("error bulk deleting from partition %s: %w", partition, err)
		}

		for _, record := range records {
			delete(remaining, record.ID)
		}
		deleted = append(deleted, records...)
	}

	if len(deleted) == 0 {
		return nil, apperrors.NewNotFoundError("none of the requested student ids were found")
	}

	// Preserve request order in the not-found remainder.
	notFound := make([]string, 0, len(remaining))
	for _, id := range studentIDs {
		if _, miss := remaining[id]; miss {
			notFound = append(notFound, id)
		}
	}

	return &dto.BulkDeleteResult{
		DeletedCount:   len(deleted),
		DeletedRecords: deleted,
		NotFoundIDs:    notFound,
	}, nil
}

// DeleteAllByCourse deletes every record in the course partition. Zero
// deletions produce the same course not found error whether the partition is
// empty or absent.
func (s *studentService) DeleteAllByCourse(ctx context.Context, course string) (*dto.DeleteAllResult, error) {
	partition, err := repositories.PartitionNameFor(course)
	if err != nil {
		return nil, err
	}

	count, err := s.students.DeleteAll(ctx, partition)
	if err != nil {
		if dberrors.IsUndefinedTable(err) {
			return nil, apperrors.NewCourseNotFoundError(fmt.Sprintf("no students found for course %s", course))
		}
		return nil, fmt.Errorf("error deleting all students for course %s: %w", course, err)
	}

	if count == 0 {
		return nil, apperrors.NewCourseNotFoundError(fmt.Sprintf("no students found for course %s", course))
	}

	s.logger.Info().Str("course", course).Int64("deleted", count).Msg("Deleted all students in course")

	return &dto.DeleteAllResult{DeletedCount: int(count)}, nil
}

// GetValidationStats aggregates validation counts per course across every
// partition.
func (s *studentService) GetValidationStats(ctx context.Context) (*dto.ValidationStats, error) {
	partitions, err := s.partitions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error enumerating partitions: %w", err)
	}

	stats := &dto.ValidationStats{
		Courses: make([]dto.CourseValidationStats, 0, len(partitions)),
	}
	for _, partition := range partitions {
		total, validated, err := s.students.CountValidation(ctx, partition)
		if err != nil {
			if dberrors.IsUndefinedTable(err) {
				continue
			}
			return nil, fmt.Errorf("error counting partition %s: %w", partition, err)
		}

		stats.Courses = append(stats.Courses, dto.CourseValidationStats{
			Course:      repositories.CourseFromPartition(partition),
			Total:       total,
			Validated:   validated,
			Unvalidated: total - validated,
		})
		stats.TotalStudents += total
		stats.TotalValidated += validated
		stats.TotalUnvalidated += total - validated
	}

	return stats, nil
}
