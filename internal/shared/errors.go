package shared

import "errors"

// Sentinel errors shared across services. Handlers map these onto HTTP
// problem responses in platform/httpx; services wrap them with context via
// fmt.Errorf("...: %w", Err...).
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidParameter indicates missing or contradictory input.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrInvalidCredentials indicates a login failure. The message is
	// deliberately identical for unknown accounts and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrForbidden indicates a missing permission or an invalid exchange code.
	ErrForbidden = errors.New("forbidden")
	// ErrForbiddenDelete indicates a delete attempt on a protected record.
	ErrForbiddenDelete = errors.New("delete forbidden")
	// ErrConflict indicates a uniqueness violation, e.g. a duplicate email.
	ErrConflict = errors.New("already exists")
	// ErrBusy indicates an outstanding verification code for the address.
	ErrBusy = errors.New("code already sent")
)
