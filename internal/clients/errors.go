package clients

import "errors"

var (
	// ErrNotFound is returned when no client matches the lookup.
	ErrNotFound = errors.New("client not found")

	// ErrConflict is returned when an insert collides on a field other than email or phone.
	ErrConflict = errors.New("client already exists")

	ErrInvalidClient    = errors.New("client payload is required")
	ErrUsernameRequired = errors.New("username is required")
	ErrAddressRequired  = errors.New("email or phone is required")
)
