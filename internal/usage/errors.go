package usage

import "errors"

var (
	// ErrLimitReached indicates the free allowance is fully used or held by
	// active reservations.
	ErrLimitReached = errors.New("limit reached")
	// ErrNotFound indicates no account exists for the email.
	ErrNotFound = errors.New("account not found")
	// ErrReservationNotFound indicates the reservation was already committed,
	// released or expired.
	ErrReservationNotFound = errors.New("reservation not found")
	// ErrInvalidEmail indicates an empty email after normalization.
	ErrInvalidEmail = errors.New("invalid email")
)
