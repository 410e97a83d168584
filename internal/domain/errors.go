package domain

import "errors"

// Domain errors
var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicateHash = errors.New("password hash already registered")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
