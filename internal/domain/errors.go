package domain

import "errors"

var (
	// ErrNotFound is returned when a user, training or statistics record cannot be located.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail indicates another user already owns the e-mail address.
	ErrDuplicateEmail = errors.New("email already exists")
	// ErrInvalidInput wraps validation failures on create/update payloads.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDataAccess wraps failures reading from or writing to a store.
	ErrDataAccess = errors.New("data access failure")
	// ErrDelivery wraps mail transport failures while dispatching a report.
	ErrDelivery = errors.New("report delivery failed")
)
