package apperrors

import "errors"

// Common errors
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrPermissionDenied   = errors.New("permission denied")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidCourse    = errors.New("invalid course identifier")

	// User errors
	ErrUserNotFound          = errors.New("user not found")
	ErrUsernameAlreadyExists = errors.New("username already exists")
)

// Student roster errors
var (
	ErrStudentNotFound  = errors.New("student not found")
	ErrDuplicateStudent = errors.New("student with this ID already exists")
	ErrCourseNotFound   = errors.New("no students found for course")
	ErrNoChange         = errors.New("no changes detected")
)

// NewValidationError creates a validation error with a message
func NewValidationError(message string) error {
	return &CustomError{
		Err:     ErrValidationFailed,
		Message: message,
	}
}

// NewInvalidCourseError creates an invalid course error with a message
func NewInvalidCourseError(message string) error {
	return &CustomError{
		Err:     ErrInvalidCourse,
		Message: message,
	}
}

// NewCourseNotFoundError creates a course not found error with a message.
// Raised both when the course partition does not exist and when it matched
// nothing; the two cases are intentionally not distinguished.
func NewCourseNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrCourseNotFound,
		Message: message,
	}
}

// NewDuplicateError creates a duplicate student error with a message
func NewDuplicateError(message string) error {
	return &CustomError{
		Err:     ErrDuplicateStudent,
		Message: message,
	}
}

// NewNotFoundError creates a student not found error with a message
func NewNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrStudentNotFound,
		Message: message,
	}
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap
func (e *CustomError) Unwrap() error {
	return e.Err
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}
