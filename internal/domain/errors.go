package domain

import "errors"

// Resolution and access-gate failures. These short-circuit a request before
// any business logic runs.
var (
	ErrHostNotFound        = errors.New("host not found")
	ErrTenantSuspended     = errors.New("account suspended")
	ErrSubscriptionExpired = errors.New("subscription expired")
	ErrPermissionDenied    = errors.New("permission denied")
)

// Authentication failures. Internally distinguishable, but the HTTP edge
// collapses all of them into one uniform "invalid credentials" response so
// usernames cannot be enumerated across tenants.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account inactive")
	ErrPartitionMismatch  = errors.New("partition mismatch")
	ErrUnknownSubject     = errors.New("unknown subject")
)

// Token failures, shared by bearer and quick-login tokens.
var (
	ErrTokenInvalid    = errors.New("token invalid")
	ErrTokenExpired    = errors.New("token expired")
	ErrStaleCredential = errors.New("stale credential")
)

// Provisioning failures. These surface field-level detail to the registration
// caller; provisioning is not a security-sensitive boundary.
var (
	ErrDuplicateTenant   = errors.New("partition key already in use")
	ErrReservedSlug      = errors.New("partition key is reserved")
	ErrInvalidSlug       = errors.New("partition key is malformed")
	ErrDuplicateHostname = errors.New("hostname already in use")
)

var ErrNotFound = errors.New("not found")
