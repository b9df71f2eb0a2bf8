package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExternalID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string unchanged", "", ""},
		{"already normalized", "AB12", "AB12"},
		{"lowercase uppercased", "ab12", "AB12"},
		{"surrounding whitespace trimmed", " ab 12 ", "AB12"},
		{"interior whitespace removed", "Ab 1 2", "AB12"},
		{"tabs and newlines removed", "ab\t12\n", "AB12"},
		{"punctuation preserved", "tup-01-1234", "TUP-01-1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExternalID(tt.input))
		})
	}
}

func TestExternalIDIdempotent(t *testing.T) {
	inputs := []string{"", " ab 12 ", "AB12", "Ab 1 2", "x y z", "TUP-01-1234"}
	for _, in := range inputs {
		once := ExternalID(in)
		assert.Equal(t, once, ExternalID(once), "normalization must be idempotent for %q", in)
	}
}

func TestExternalIDEquivalence(t *testing.T) {
	// Differently formatted inputs referring to the same identifier collide.
	assert.Equal(t, "AB12", ExternalID(" ab 12 "))
	assert.Equal(t, "AB12", ExternalID("AB12"))
	assert.Equal(t, "AB12", ExternalID("Ab 1 2"))
}
