package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeLikePattern(t *testing.T) {
	assert.Equal(t, `AB12`, escapeLikePattern(`AB12`))
	assert.Equal(t, `\%`, escapeLikePattern(`%`))
	assert.Equal(t, `\_`, escapeLikePattern(`_`))
	assert.Equal(t, `\\`, escapeLikePattern(`\`))
	assert.Equal(t, `50\%\_off\\`, escapeLikePattern(`50%_off\`))
}

func TestEscapeLikePatternKeepsOrdinaryText(t *testing.T) {
	// Names and external IDs pass through untouched.
	for _, s := range []string{"Juan Dela Cruz", "AB-12.3", "études"} {
		assert.Equal(t, s, escapeLikePattern(s))
	}
}
