package validation

import (
	"regexp"
)

// Validation rule patterns
var (
	// Course identifier pattern - lowercase alphanumeric/underscore, matched
	// after case folding. Course names become part of partition table names,
	// so the shape is deliberately strict.
	CoursePattern = `^[a-z0-9_]+$`

	// Username pattern - alphanumeric, dot, underscore, hyphen
	UsernamePattern = `^[a-zA-Z0-9._\-]{3,50}$`

	// Password min length
	PasswordMinLength = 8
)

// CompiledPatterns caches compiled regex patterns
var CompiledPatterns = struct {
	Course   *regexp.Regexp
	Username *regexp.Regexp
}{
	Course:   regexp.MustCompile(CoursePattern),
	Username: regexp.MustCompile(UsernamePattern),
}

// IsValidCourse reports whether a case-folded course identifier has the
// permitted shape.
func IsValidCourse(course string) bool {
	return course != "" && CompiledPatterns.Course.MatchString(course)
}

// IsValidUsername reports whether a username has the permitted shape.
func IsValidUsername(username string) bool {
	return CompiledPatterns.Username.MatchString(username)
}
