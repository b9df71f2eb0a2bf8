package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mvill/rosterbase/internal/app/models"
)

// studentColumns is the scan/select column order for every partition table.
const studentColumns = `id, external_id, name, course, school_year, semester, year_level, profile_image, validated, validated_at, created_at`

// IStudentRepository defines low-level record operations against one
// partition at a time. Callers pass the partition table name resolved by the
// partition registry; this repository never invents partition names itself.
type IStudentRepository interface {
	ListAll(ctx context.Context, partition string) ([]*models.Student, error)
	Search(ctx context.Context, partition, query string) ([]*models.Student, error)
	GetByID(ctx context.Context, partition, id string) (*models.Student, error)
	Insert(ctx context.Context, partition string, student *models.Student) error
	BulkInsert(ctx context.Context, partition string, students []*models.Student) (int64, error)
	Update(ctx context.Context, partition string, student *models.Student) error
	DeleteByID(ctx context.Context, partition, id string) (*models.Student, error)
	DeleteByIDs(ctx context.Context, partition string, ids []string) ([]*models.Student, error)
	DeleteAll(ctx context.Context, partition string) (int64, error)
	ExternalIDs(ctx context.Context, partition string) (map[string]struct{}, error)
	ExternalIDExists(ctx context.Context, partition, externalID, excludeID string) (bool, error)
	ValidatedExternalIDs(ctx context.Context, partition, externalID string) ([]string, error)
	CountValidation(ctx context.Context, partition string) (total, validated int64, err error)
}

// StudentRepository handles database operations on partition tables
type StudentRepository struct {
	db *pgxpool.Pool
}

// NewStudentRepository creates a new student repository
func NewStudentRepository(db *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{
		db: db,
	}
}

func table(partition string) string {
	return pgx.Identifier{partition}.Sanitize()
}

func scanStudent(row pgx.Row) (*models.Student, error) {
	var s models.Student
	err := row.Scan(
		&s.ID,
		&s.ExternalID,
		&s.Name,
		&s.Course,
		&s.SchoolYear,
		&s.Semester,
		&s.YearLevel,
		&s.ProfileImage,
		&s.Validated,
		&s.ValidatedAt,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func collectStudents(rows pgx.Rows) ([]*models.Student, error) {
	defer rows.Close()

	var students []*models.Student
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, student)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return students, nil
}

// ListAll retrieves every record in a partition in insertion order
// (created_at, then id as a tiebreaker).
func (r *StudentRepository) ListAll(ctx context.Context, partition string) ([]*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY created_at, id`, studentColumns, table(partition))

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing students in %s: %w", partition, err)
	}

	return collectStudents(rows)
}

// escapeLikePattern quotes LIKE metacharacters so a query string matches
// itself literally inside an ILIKE pattern.
func escapeLikePattern(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Search retrieves records whose external_id or name contains the query as a
// literal substring, case-insensitively.
func (r *StudentRepository) Search(ctx context.Context, partition, query string) ([]*models.Student, error) {
	sql := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE external_id ILIKE '%%' || $1 || '%%' ESCAPE '\'
		   OR name ILIKE '%%' || $1 || '%%' ESCAPE '\'
		ORDER BY created_at, id`, studentColumns, table(partition))

	rows, err := r.db.Query(ctx, sql, escapeLikePattern(query))
	if err != nil {
		return nil, fmt.Errorf("error searching students in %s: %w", partition, err)
	}

	return collectStudents(rows)
}

// GetByID retrieves one record by ID, or nil when the partition has no match.
func (r *StudentRepository) GetByID(ctx context.Context, partition, id string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, studentColumns, table(partition))

	student, err := scanStudent(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error retrieving student from %s: %w", partition, err)
	}

	return student, nil
}

// Insert stores a single record.
func (r *StudentRepository) Insert(ctx context.Context, partition string, student *models.Student) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`, table(partition), studentColumns)

	_, err := r.db.Exec(ctx, query,
		student.ID,
		student.ExternalID,
		student.Name,
		student.Course,
		student.SchoolYear,
		student.Semester,
		student.YearLevel,
		student.ProfileImage,
		student.Validated,
		student.ValidatedAt,
		student.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting student into %s: %w", partition, err)
	}

	return nil
}

// BulkInsert stores a batch of records with COPY.
func (r *StudentRepository) BulkInsert(ctx context.Context, partition string, students []*models.Student) (int64, error) {
	rows := make([][]interface{}, 0, len(students))
	for _, s := range students {
		rows = append(rows, []interface{}{
			s.ID, s.ExternalID, s.Name, s.Course, s.SchoolYear, s.Semester,
			s.YearLevel, s.ProfileImage, s.Validated, s.ValidatedAt, s.CreatedAt,
		})
	}

	columns := []string{
		"id", "external_id", "name", "course", "school_year", "semester",
		"year_level", "profile_image", "validated", "validated_at", "created_at",
	}

	inserted, err := r.db.CopyFrom(ctx, pgx.Identifier{partition}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("error bulk inserting students into %s: %w", partition, err)
	}

	return inserted, nil
}

// Update persists every column of a record by ID.
func (r *StudentRepository) Update(ctx context.Context, partition string, student *models.Student) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET external_id = $2, name = $3, course = $4, school_year = $5,
		    semester = $6, year_level = $7, profile_image = $8,
		    validated = $9, validated_at = $10
		WHERE id = $1`, table(partition))

	cmdTag, err := r.db.Exec(ctx, query,
		student.ID,
		student.ExternalID,
		student.Name,
		student.Course,
		student.SchoolYear,
		student.Semester,
		student.YearLevel,
		student.ProfileImage,
		student.Validated,
		student.ValidatedAt,
	)
	if err != nil {
		return fmt.Errorf("error updating student in %s: %w", partition, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	return nil
}

// DeleteByID removes one record and returns its prior content, or nil when
// the partition has no match.
func (r *StudentRepository) DeleteByID(ctx context.Context, partition, id string) (*models.Student, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 RETURNING %s`, table(partition), studentColumns)

	student, err := scanStudent(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error deleting student from %s: %w", partition, err)
	}

	return student, nil
}

// DeleteByIDs removes every matching record in one statement and returns the
// deleted records.
func (r *StudentRepository) DeleteByIDs(ctx context.Context, partition string, ids []string) ([]*models.Student, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1) RETURNING %s`, table(partition), studentColumns)

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("error bulk deleting students from %s: %w", partition, err)
	}

	return collectStudents(rows)
}

// DeleteAll removes every record in a partition and returns the count.
func (r *StudentRepository) DeleteAll(ctx context.Context, partition string) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s`, table(partition))

	cmdTag, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("error deleting all students from %s: %w", partition, err)
	}

	return cmdTag.RowsAffected(), nil
}

// ExternalIDs reads the partition's full set of stored external IDs in one
// query, for bulk dedup checks. Empty IDs are excluded.
func (r *StudentRepository) ExternalIDs(ctx context.Context, partition string) (map[string]struct{}, error) {
	query := fmt.Sprintf(`SELECT external_id FROM %s WHERE external_id <> ''`, table(partition))

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error reading external ids from %s: %w", partition, err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}

// ExternalIDExists checks for a stored record with the given external ID,
// optionally excluding one record ID (for update collision checks).
func (r *StudentRepository) ExternalIDExists(ctx context.Context, partition, externalID, excludeID string) (bool, error) {
	var exists bool
	var err error

	if excludeID == "" {
		query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE external_id = $1)`, table(partition))
		err = r.db.QueryRow(ctx, query, externalID).Scan(&exists)
	} else {
		query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE external_id = $1 AND id != $2)`, table(partition))
		err = r.db.QueryRow(ctx, query, externalID, excludeID).Scan(&exists)
	}

	if err != nil {
		return false, fmt.Errorf("error checking external id existence in %s: %w", partition, err)
	}

	return exists, nil
}

// ValidatedExternalIDs returns the stored external IDs equal to the given
// (already normalized) value whose records are validated.
func (r *StudentRepository) ValidatedExternalIDs(ctx context.Context, partition, externalID string) ([]string, error) {
	query := fmt.Sprintf(
		`SELECT external_id FROM %s WHERE external_id = $1 AND validated = TRUE`, table(partition))

	rows, err := r.db.Query(ctx, query, externalID)
	if err != nil {
		return nil, fmt.Errorf("error matching validated external ids in %s: %w", partition, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}

// CountValidation counts total and validated records in a partition.
func (r *StudentRepository) CountValidation(ctx context.Context, partition string) (total, validated int64, err error) {
	query := fmt.Sprintf(
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE validated) FROM %s`, table(partition))

	if err := r.db.QueryRow(ctx, query).Scan(&total, &validated); err != nil {
		return 0, 0, fmt.Errorf("error counting validation state in %s: %w", partition, err)
	}

	return total, validated, nil
}
