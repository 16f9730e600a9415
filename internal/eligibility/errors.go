package eligibility

import "errors"

var (
	// ErrNotFound indicates a missing whitelist entry.
	ErrNotFound = errors.New("whitelist entry not found")
	// ErrDuplicateEntry indicates an entry with the same match already exists.
	ErrDuplicateEntry = errors.New("whitelist entry already exists")
	// ErrInvalidEntry indicates a malformed whitelist entry.
	ErrInvalidEntry = errors.New("invalid whitelist entry")
	// ErrInvalidIdentity indicates a request without a usable email.
	ErrInvalidIdentity = errors.New("email is required")
)
