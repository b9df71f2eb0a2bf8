package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mvill/rosterbase/internal/pkg/apperrors"
	"github.com/mvill/rosterbase/internal/pkg/validation"
)

// PartitionSuffix is appended to the folded course name to form a partition
// table name.
const PartitionSuffix = "_students"

// PartitionNameFor resolves a course identifier to its partition table name:
// lowercase(course) + "_students". Pure and case-insensitive. Fails when the
// course is empty or not alphanumeric/underscore after folding; the folded
// name ends up in DDL, so nothing else is accepted.
func PartitionNameFor(course string) (string, error) {
	folded := strings.ToLower(strings.TrimSpace(course))
	if !validation.IsValidCourse(folded) {
		return "", apperrors.NewInvalidCourseError(fmt.Sprintf("invalid course identifier %q", course))
	}
	return folded + PartitionSuffix, nil
}

// CourseFromPartition recovers the folded course name from a partition name.
func CourseFromPartition(partition string) string {
	return strings.TrimSuffix(partition, PartitionSuffix)
}

// IPartitionRegistry defines the interface for partition management
type IPartitionRegistry interface {
	// List enumerates every existing partition matching the student-partition
	// naming convention, in name order. The listing reflects backend state at
	// call time; no snapshot isolation is guaranteed.
	List(ctx context.Context) ([]string, error)

	// Ensure creates the partition if absent. Idempotent; no error when the
	// partition already exists.
	Ensure(ctx context.Context, partition string) error
}

// PartitionRegistry manages per-course student partitions as dynamically
// created tables. Partitions are never pre-declared; the first write to an
// unseen course creates its table.
type PartitionRegistry struct {
	db *pgxpool.Pool
}

// NewPartitionRegistry creates a new partition registry
func NewPartitionRegistry(db *pgxpool.Pool) *PartitionRegistry {
	return &PartitionRegistry{
		db: db,
	}
}

// List enumerates existing student partitions from the catalog.
func (r *PartitionRegistry) List(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		  AND table_name LIKE '%\_students'
		ORDER BY table_name
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing student partitions: %w", err)
	}
	defer rows.Close()

	var partitions []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("error scanning partition name: %w", err)
		}
		partitions = append(partitions, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error listing student partitions: %w", err)
	}

	return partitions, nil
}

// Ensure lazily creates the partition table and its uniqueness index. The
// partial unique index on external_id is a defense-in-depth guard under
// concurrent imports; the store's own dedup check is best-effort only.
func (r *PartitionRegistry) Ensure(ctx context.Context, partition string) error {
	table := pgx.Identifier{partition}.Sanitize()
	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			external_id TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL DEFAULT '',
			course TEXT NOT NULL DEFAULT '',
			school_year TEXT NOT NULL DEFAULT '',
			semester TEXT NOT NULL DEFAULT '',
			year_level TEXT NOT NULL DEFAULT '',
			profile_image TEXT NOT NULL DEFAULT '',
			validated BOOLEAN NOT NULL DEFAULT FALSE,
			validated_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, table)

	if _, err := r.db.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("error ensuring partition %s: %w", partition, err)
	}

	index := pgx.Identifier{partition + "_external_id_key"}.Sanitize()
	createIndex := fmt.Sprintf(
		`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (external_id) WHERE external_id <> ''`,
		index, table)

	if _, err := r.db.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("error ensuring partition index for %s: %w", partition, err)
	}

	return nil
}
