package ledger

import "github.com/pkg/errors"

// Error kinds the HTTP layer maps to status codes. Kept as sentinels so
// handlers can classify with errors.Is.
var (
	ErrInvalidPIN    = errors.New("invalid pin")
	ErrBadCodeFormat = errors.New("invalid code format")
	ErrEmptyText     = errors.New("text is required")
	ErrNotFound      = errors.New("code not found")
	ErrForbidden     = errors.New("invalid share token")
)
