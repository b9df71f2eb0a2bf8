package services

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvill/rosterbase/internal/app/models"
	"github.com/mvill/rosterbase/internal/app/models/dto"
	"github.com/mvill/rosterbase/internal/pkg/apperrors"
	"github.com/mvill/rosterbase/internal/pkg/tabular"
)

// fakeStore is an in-memory stand-in for the partition registry and the
// student repository. It reproduces the backend behaviors the service depends
// on: undefined-table errors for absent partitions and unique violations for
// external ID collisions.
type fakeStore struct {
	partitions map[string][]*models.Student
}

func newFakeStore() *fakeStore {
	return &fakeStore{partitions: make(map[string][]*models.Student)}
}

func undefinedTable() error  { return &pgconn.PgError{Code: "42P01"} }
func uniqueViolation() error { return &pgconn.PgError{Code: "23505"} }

func (f *fakeStore) List(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(f.partitions))
	for name := range f.partitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeStore) Ensure(_ context.Context, partition string) error {
	if _, ok := f.partitions[partition]; !ok {
		f.partitions[partition] = nil
	}
	return nil
}

func (f *fakeStore) ListAll(_ context.Context, partition string) ([]*models.Student, error) {
	records, ok := f.partitions[partition]
	if !ok {
		return nil, undefinedTable()
	}
	return append([]*models.Student(nil), records...), nil
}

func (f *fakeStore) Search(_ context.Context, partition, query string) ([]*models.Student, error) {
	records, ok := f.partitions[partition]
	if !ok {
		return nil, undefinedTable()
	}
	q := strings.ToLower(query)
	var matches []*models.Student
	for _, s := range records {
		if strings.Contains(strings.ToLower(s.ExternalID), q) || strings.Contains(strings.ToLower(s.Name), q) {
			matches = append(matches, s)
		}
	}
	return matches, nil
}

func (f *fakeStore) GetByID(_ context.Context, partition, id string) (*models.Student, error) {
	records, ok := f.partitions[partition]
	if !ok {
		return nil, undefinedTable()
	}
	for _, s := range records {
		if s.ID == id {
			copied := *s
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) Insert(_ context.Context, partition string, student *models.Student) error {
	if _, ok := f.partitions[partition]; !ok {
		return undefinedTable()
	}
	if student.ExternalID != "" {
		for _, s := range f.partitions[partition] {
			if s.ExternalID == student.ExternalID {
				return uniqueViolation()
			}
		}
	}
	copied := *student
	f.partitions[partition] = append(f.partitions[partition], &copied)
	return nil
}

func (f *fakeStore) BulkInsert(ctx context.Context, partition string, students []*models.Student) (int64, error) {
	for _, s := range students {
		if err := f.Insert(ctx, partition, s); err != nil {
			return 0, err
		}
	}
	return int64(len(students)), nil
}

func (f *fakeStore) Update(_ context.Context, partition string, student *models.Student) error {
	records, ok := f.partitions[partition]
	if !ok {
		return undefinedTable()
	}
	for i, s := range records {
		if s.ID == student.ID {
			copied := *student
			records[i] = &copied
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeStore) DeleteByID(_ context.Context, partition, id string) (*models.Student, error) {
	records, ok := f.partitions[partition]
	if !ok {
		return nil, undefinedTable()
	}
	for i, s := range records {
		if s.ID == id {
			f.partitions[partition] = append(records[:i:i], records[i+1:]...)
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) DeleteByIDs(_ context.Context, partition string, ids []string) ([]*models.Student, error) {
	records, ok := f.partitions[partition]
	if !ok {
		return nil, undefinedTable()
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var deleted []*models.Student
	var kept []*models.Student
	for _, s := range records {
		if _, hit := want[s.ID]; hit {
			deleted = append(deleted, s)
		} else {
			kept = append(kept, s)
		}
	}
	f.partitions[partition] = kept
	return deleted, nil
}

func (f *fakeStore) DeleteAll(_ context.Context, partition string) (int64, error) {
	records, ok := f.partitions[partition]
	if !ok {
		return 0, undefinedTable()
	}
	f.partitions[partition] = nil
	return int64(len(records)), nil
}

func (f *fakeStore) ExternalIDs(_ context.Context, partition string) (map[string]struct{}, error) {
	records, ok := f.partitions[partition]
	if !ok {
		return nil, undefinedTable()
	}
	ids := make(map[string]struct{})
	for _, s := range records {
		if s.ExternalID != "" {
			ids[s.ExternalID] = struct{}{}
		}
	}
	return ids, nil
}

func (f *fakeStore) ExternalIDExists(_ context.Context, partition, externalID, excludeID string) (bool, error) {
	records, ok := f.partitions[partition]
	if !ok {
		return false, undefinedTable()
	}
	for _, s := range records {
		if s.ExternalID == externalID && s.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ValidatedExternalIDs(_ context.Context, partition, externalID string) ([]string, error) {
	records, ok := f.partitions[partition]
	if !ok {
		return nil, undefinedTable()
	}
	var ids []string
	for _, s := range records {
		if s.Validated && s.ExternalID == externalID {
			ids = append(ids, s.ExternalID)
		}
	}
	return ids, nil
}

func (f *fakeStore) CountValidation(_ context.Context, partition string) (int64, int64, error) {
	records, ok := f.partitions[partition]
	if !ok {
		return 0, 0, undefinedTable()
	}
	var validated int64
	for _, s := range records {
		if s.Validated {
			validated++
		}
	}
	return int64(len(records)), validated, nil
}

func newTestService(store *fakeStore) StudentService {
	return NewStudentService(store, store, zerolog.Nop())
}

func seedStudent(store *fakeStore, partition string, student models.Student) *models.Student {
	if student.ID == "" {
		student.ID = uuid.New().String()
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = time.Now()
	}
	store.partitions[partition] = append(store.partitions[partition], &student)
	return &student
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestGetAllStudentsAggregatesPartitions(t *testing.T) {
	store := newFakeStore()
	seedStudent(store, "a_students", models.Student{ExternalID: "A1", Name: "One"})
	seedStudent(store, "b_students", models.Student{ExternalID: "B1", Name: "Two"})
	seedStudent(store, "b_students", models.Student{ExternalID: "B2", Name: "Three"})

	students, err := newTestService(store).GetAllStudents(context.Background())
	require.NoError(t, err)
	assert.Len(t, students, 3)
}

func TestGetAllStudentsEmpty(t *testing.T) {
	students, err := newTestService(newFakeStore()).GetAllStudents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, students)
}

func TestGetStudentsByCourse(t *testing.T) {
	store := newFakeStore()
	seedStudent(store, "cafa_students", models.Student{ExternalID: "AB12", Name: "Juan Dela Cruz"})
	seedStudent(store, "cafa_students", models.Student{ExternalID: "CD34", Name: "Maria Clara"})

	svc := newTestService(store)

	students, err := svc.GetStudentsByCourse(context.Background(), "CAFA", "")
	require.NoError(t, err)
	assert.Len(t, students, 2)

	students, err = svc.GetStudentsByCourse(context.Background(), "cafa", "maria")
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "CD34", students[0].ExternalID)
}

func TestGetStudentsByCourseNotFound(t *testing.T) {
	store := newFakeStore()
	seedStudent(store, "cafa_students", models.Student{ExternalID: "AB12", Name: "Juan"})

	svc := newTestService(store)

	// Absent partition and empty match are the same error.
	_, err := svc.GetStudentsByCourse(context.Background(), "cit", "")
	assert.ErrorIs(t, err, apperrors.ErrCourseNotFound)

	_, err = svc.GetStudentsByCourse(context.Background(), "cafa", "nothing-matches")
	assert.ErrorIs(t, err, apperrors.ErrCourseNotFound)
}

func TestGetStudentsByCourseInvalidCourse(t *testing.T) {
	_, err := newTestService(newFakeStore()).GetStudentsByCourse(context.Background(), "ca fa", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCourse)
}

func TestAddStudent(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	student, err := svc.AddStudent(context.Background(), "CAFA", dto.AddStudentRequest{
		ExternalID: " ab 12 ",
		Name:       "Juan Dela Cruz",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, student.ID)
	assert.Equal(t, "AB12", student.ExternalID)
	assert.Equal(t, "cafa", student.Course)
	assert.False(t, student.Validated)
	assert.False(t, student.CreatedAt.IsZero())

	// First write created the partition.
	assert.Contains(t, store.partitions, "cafa_students")
}

func TestAddStudentDuplicateRejected(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	_, err := svc.AddStudent(context.Background(), "cafa", dto.AddStudentRequest{ExternalID: "X1", Name: "A"})
	require.NoError(t, err)

	// Differently formatted identifier collides after normalization.
	_, err = svc.AddStudent(context.Background(), "cafa", dto.AddStudentRequest{ExternalID: "x 1", Name: "B"})
	require.ErrorIs(t, err, apperrors.ErrDuplicateStudent)
	assert.Contains(t, err.Error(), "cafa")
	assert.Contains(t, err.Error(), "X1")
}

func TestAddStudentMissingExternalID(t *testing.T) {
	_, err := newTestService(newFakeStore()).AddStudent(context.Background(), "cafa",
		dto.AddStudentRequest{ExternalID: "   ", Name: "A"})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestImportStudentsDedup(t *testing.T) {
	store := newFakeStore()
	seedStudent(store, "cafa_students", models.Student{ExternalID: "AB12", Name: "Existing"})

	records := []tabular.Record{
		{"tup_id": "AB12", "name": "Duplicate Of Existing"},
		{"tup_id": "CD34", "name": "New Student"},
		{"tup_id": "cd 34", "name": "Same Batch Duplicate"},
	}

	result, err := newTestService(store).ImportStudents(context.Background(), "cafa", records)
	require.NoError(t, err)

	assert.Equal(t, 1, result.InsertedCount)
	assert.Equal(t, 2, result.SkippedCount)

	// Only the first occurrence in decode order was inserted.
	require.Len(t, store.partitions["cafa_students"], 2)
	inserted := store.partitions["cafa_students"][1]
	assert.Equal(t, "CD34", inserted.ExternalID)
	assert.Equal(t, "New Student", inserted.Name)
	assert.False(t, inserted.Validated)
}

func TestImportStudentsEmptyUploadRejected(t *testing.T) {
	store := newFakeStore()
	_, err := newTestService(store).ImportStudents(context.Background(), "cafa", nil)
	require.ErrorIs(t, err, apperrors.ErrValidationFailed)
	assert.Empty(t, store.partitions["cafa_students"])
}

func TestImportStudentsAllDuplicatesRejected(t *testing.T) {
	store := newFakeStore()
	seedStudent(store, "cafa_students", models.Student{ExternalID: "AB12", Name: "Existing"})

	records := []tabular.Record{
		{"tup_id": "AB12", "name": "Dup"},
		{"tup_id": "ab 12", "name": "Dup Again"},
	}

	_, err := newTestService(store).ImportStudents(context.Background(), "cafa", records)
	require.ErrorIs(t, err, apperrors.ErrValidationFailed)
	assert.Len(t, store.partitions["cafa_students"], 1)
}

func TestImportStudentsCreatesPartition(t *testing.T) {
	store := newFakeStore()

	result, err := newTestService(store).ImportStudents(context.Background(), "NewCourse", []tabular.Record{
		{"external_id": "N1", "name": "First"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.InsertedCount)
	assert.Contains(t, store.partitions, "newcourse_students")
}

func TestImportStudentsDedupIsPartitionScoped(t *testing.T) {
	store := newFakeStore()
	seedStudent(store, "cit_students", models.Student{ExternalID: "AB12", Name: "Other Course"})

	// Same external id in a different course is not a duplicate.
	result, err := newTestService(store).ImportStudents(context.Background(), "cafa", []tabular.Record{
		{"tup_id": "AB12", "name": "New Here"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.InsertedCount)
	assert.Equal(t, 0, result.SkippedCount)
}

func TestUpdateStudentAcrossPartitions(t *testing.T) {
	store := newFakeStore()
	seedStudent(store, "aaa_students", models.Student{ExternalID: "A1", Name: "Other"})
	target := seedStudent(store, "cafa_students", models.Student{ExternalID: "AB12", Name: "Old Name"})

	// No course given; the record is located by fan-out.
	updated, err := newTestService(store).UpdateStudent(context.Background(), target.ID,
		dto.UpdateStudentRequest{Name: strPtr("New")})
	require.NoError(t, err)

	assert.Equal(t, "New", updated.Name)
	assert.Equal(t, "AB12", updated.ExternalID)

	stored, _ := store.GetByID(context.Background(), "cafa_students", target.ID)
	assert.Equal(t, "New", stored.Name)
}

func TestUpdateStudentNotFound(t *testing.T) {
	store := newFakeStore()
	seedStudent(store, "cafa_students", models.Student{ExternalID: "AB12", Name: "A"})

	_, err := newTestService(store).UpdateStudent(context.Background(), uuid.New().String(),
		dto.UpdateStudentRequest{Name: strPtr("X")})
	assert.ErrorIs(t, err, apperrors.ErrStudentNotFound)
}

func TestUpdateStudentExternalIDCollision(t *testing.T) {
	store := newFakeStore()
	seedStudent(store, "cafa_students", models.Student{ExternalID: "AB12", Name: "A"})
	target := seedStudent(store, "cafa_students", models.Student{ExternalID: "CD34", Name: "B"})

	_, err := newTestService(store).UpdateStudent(context.Background(), target.ID,
		dto.UpdateStudentRequest{ExternalID: strPtr("ab 12")})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateStudent)
}

func TestUpdateStudentNoChange(t *testing.T) {
	store := newFakeStore()
	target := seedStudent(store, "cafa_students", models.Student{ExternalID: "AB12", Name: "Same"})

	_, err := newTestService(store).UpdateStudent(context.Background(), target.ID,
		dto.UpdateStudentRequest{Name: strPtr("Same"), ExternalID: strPtr("AB12")})
	assert.ErrorIs(t, err, apperrors.ErrNoChange)
}

func TestUpdateStudentValidationTransition(t *testing.T) {
	store := newFakeStore()
	target := seedStudent(store, "cafa_students", models.Student{ExternalID: "AB12", Name: "A"})

	updated, err := newTestService(store).UpdateStudent(context.Background(), target.ID,
		dto.UpdateStudentRequest{Validated: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, updated.Validated)
	require.NotNil(t, updated.ValidatedAt)

	updated, err = newTestService(store).UpdateStudent(context.Background(), target.ID,
		dto.UpdateStudentRequest{Validated: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, updated.Validated)
	assert.Nil(t, updated.ValidatedAt)
}

func TestGetExternalIDMatchesValidatedOnly(t *testing.T) {
	store := newFakeStore()
	seedStudent(store, "cafa_students", models.Student{ExternalID: "AB12", Name: "A", Validated: true})
	seedStudent(store, "cit_students", models.Student{ExternalID: "AB12", Name: "B"}) // not validated
	seedStudent(store, "coe_students", models.Student{ExternalID: "XY99", Name: "C", Validated: true})

	matches, err := newTestService(store).GetExternalIDMatches(context.Background(), " ab 12 ")
	require.NoError(t, err)
	assert.Equal(t, []string{"AB12"}, matches)
}

func TestGetExternalIDMatchesEmptyInput(t *testing.T) {
	matches, err := newTestService(newFakeStore()).GetExternalIDMatches(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestDeleteStudentAcrossPartitions(t *testing.T) {
	store := newFakeStore()
	seedStudent(store, "aaa_students", models.Student{ExternalID: "A1", Name: "Keep"})
	target := seedStudent(store, "cafa_students", models.Student{ExternalID: "AB12", Name: "Delete Me"})

	deleted, err := newTestService(store).DeleteStudent(context.Background(), target.ID)
	require.NoError(t, err)
	assert.Equal(t, "Delete Me", deleted.Name)
	assert.Empty(t, store.partitions["cafa_students"])
}

func TestDeleteStudentNotFound(t *testing.T) {
	store := newFakeStore()
	seedStudent(store, "cafa_students", models.Student{ExternalID: "AB12", Name: "A"})

	_, err := newTestService(store).DeleteStudent(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, apperrors.ErrStudentNotFound)
}

func TestDeleteStudentsPartialSuccess(t *testing.T) {
	store := newFakeStore()
	target := seedStudent(store, "cafa_students", models.Student{ExternalID: "AB12", Name: "A"})
	missing1 := uuid.New().String()
	missing2 := uuid.New().String()

	result, err := newTestService(store).DeleteStudents(context.Background(),
		[]string{target.ID, missing1, missing2})
	require.NoError(t, err)

	assert.Equal(t, 1, result.DeletedCount)
	require.Len(t, result.DeletedRecords, 1)
	assert.Equal(t, target.ID, result.DeletedRecords[0].ID)
	assert.Equal(t, []string{missing1, missing2}, result.NotFoundIDs)
}

func TestDeleteStudentsAllNotFound(t *testing.T) {
	store := newFakeStore()
	seedStudent(store, "cafa_students", models.Student{ExternalID: "AB12", Name: "A"})

	_, err := newTestService(store).DeleteStudents(context.Background(),
		[]string{uuid.New().String(), uuid.New().String()})
	assert.ErrorIs(t, err, apperrors.ErrStudentNotFound)
}

func TestDeleteStudentsMalformedIDsRejectedUpFront(t *testing.T) {
	store := newFakeStore()
	target := seedStudent(store, "cafa_students", models.Student{ExternalID: "AB12", Name: "A"})

	_, err := newTestService(store).DeleteStudents(context.Background(),
		[]string{target.ID, "not-a-uuid", "also bad"})
	require.ErrorIs(t, err, apperrors.ErrValidationFailed)
	assert.Contains(t, err.Error(), "not-a-uuid")
	assert.Contains(t, err.Error(), "also bad")

	// The all-or-nothing pre-check ran before any deletion.
	assert.Len(t, store.partitions["cafa_students"], 1)
}

func TestDeleteStudentsSpanningPartitions(t *testing.T) {
	store := newFakeStore()
	a := seedStudent(store, "a_students", models.Student{ExternalID: "A1", Name: "A"})
	b := seedStudent(store, "b_students", models.Student{ExternalID: "B1", Name: "B"})

	result, err := newTestService(store).DeleteStudents(context.Background(), []string{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, result.DeletedCount)
	assert.Empty(t, result.NotFoundIDs)
}

func TestDeleteAllByCourse(t *testing.T) {
	store := newFakeStore()
	seedStudent(store, "cafa_students", models.Student{ExternalID: "AB12", Name: "A"})
	seedStudent(store, "cafa_students", models.Student{ExternalID: "CD34", Name: "B"})

	result, err := newTestService(store).DeleteAllByCourse(context.Background(), "cafa")
	require.NoError(t, err)
	assert.Equal(t, 2, result.DeletedCount)
	assert.Empty(t, store.partitions["cafa_students"])
}

func TestDeleteAllByCourseNothingToDelete(t *testing.T) {
	store := newFakeStore()
	store.partitions["cafa_students"] = nil // empty partition

	svc := newTestService(store)

	_, err := svc.DeleteAllByCourse(context.Background(), "cafa")
	assert.ErrorIs(t, err, apperrors.ErrCourseNotFound)

	// Absent partition is the same error.
	_, err = svc.DeleteAllByCourse(context.Background(), "cit")
	assert.ErrorIs(t, err, apperrors.ErrCourseNotFound)
}

func TestGetValidationStats(t *testing.T) {
	store := newFakeStore()
	seedStudent(store, "cafa_students", models.Student{ExternalID: "A1", Name: "A", Validated: true})
	seedStudent(store, "cafa_students", models.Student{ExternalID: "A2", Name: "B"})
	seedStudent(store, "cit_students", models.Student{ExternalID: "C1", Name: "C", Validated: true})

	stats, err := newTestService(store).GetValidationStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.TotalStudents)
	assert.Equal(t, int64(2), stats.TotalValidated)
	assert.Equal(t, int64(1), stats.TotalUnvalidated)
	require.Len(t, stats.Courses, 2)
	assert.Equal(t, "cafa", stats.Courses[0].Course)
	assert.Equal(t, int64(2), stats.Courses[0].Total)
	assert.Equal(t, int64(1), stats.Courses[0].Validated)
}
