package models

import "errors"

var (
	// ErrDuplicateKey is returned by stores when a unique key is already taken.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrBookingNotFound is returned when a payment references an unknown booking.
	ErrBookingNotFound = errors.New("booking not found")
	// ErrInvalidID is returned for identifiers that are not valid object ids.
	ErrInvalidID = errors.New("invalid identifier")
)
