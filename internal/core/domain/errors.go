package domain

import (
	"errors"
	"strings"
)

var (
	ErrMissingToken         = errors.New("missing token")
	ErrInvalidToken         = errors.New("invalid token")
	ErrSigningKeyMissing    = errors.New("token signing key is not configured")
	ErrUserNotFound         = errors.New("user not found")
	ErrUserExists           = errors.New("user already exists")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrAlreadyAuthenticated = errors.New("already logged in")
	ErrForbidden            = errors.New("access forbidden")
	ErrValidation           = errors.New("validation failed")
	ErrProductNotFound      = errors.New("product not found")
	ErrTagNotFound          = errors.New("tag not found")
	ErrTagExists            = errors.New("tag already exists")
)

// ValidationError reports a rejected request. MissingTags keeps the order in
// which the titles appeared in the request.
type ValidationError struct {
	Message     string
	MissingTags []string
}

// NewMissingTagsError builds the error returned when a product references unknown tags.
func NewMissingTagsError(missing []string) *ValidationError {
	return &ValidationError{
		Message:     "the following tags do not exist: " + strings.Join(missing, ", "),
		MissingTags: missing,
	}
}

// NewValidationError builds a field-level validation error.
func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
