package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvill/rosterbase/internal/pkg/apperrors"
)

func TestPartitionNameFor(t *testing.T) {
	name, err := PartitionNameFor("cafa")
	require.NoError(t, err)
	assert.Equal(t, "cafa_students", name)
}

func TestPartitionNameForCaseInsensitive(t *testing.T) {
	upper, err := PartitionNameFor("CAFA")
	require.NoError(t, err)
	lower, err2 := PartitionNameFor("cafa")
	require.NoError(t, err2)

	assert.Equal(t, lower, upper)
	assert.Equal(t, "cafa_students", upper)
}

func TestPartitionNameForDeterministic(t *testing.T) {
	first, err := PartitionNameFor("cos_2024")
	require.NoError(t, err)
	second, err := PartitionNameFor("cos_2024")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPartitionNameForInvalid(t *testing.T) {
	invalid := []string{"", "  ", "ca fa", "cafa;drop table users", "cafa-2024", "études"}
	for _, course := range invalid {
		_, err := PartitionNameFor(course)
		assert.ErrorIs(t, err, apperrors.ErrInvalidCourse, "course %q should be rejected", course)
	}
}

func TestCourseFromPartition(t *testing.T) {
	assert.Equal(t, "cafa", CourseFromPartition("cafa_students"))
	assert.Equal(t, "cit", CourseFromPartition("cit_students"))
}
