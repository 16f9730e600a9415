package payments

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidMetadata = errors.New("invalid checkout metadata")
)
