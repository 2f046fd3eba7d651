package domain

import "errors"

// Error kinds shared by every layer above the repositories. Specific errors
// wrap exactly one kind via fmt.Errorf("%w: ..."), so callers classify with
// errors.Is and the API layer maps each kind to a status code.
var (
	// ErrValidation marks malformed or out-of-range input. Caller's fault,
	// never retried automatically.
	ErrValidation = errors.New("validation failed")

	// ErrAuthentication marks a missing, invalid or expired credential.
	// The caller must re-authenticate.
	ErrAuthentication = errors.New("authentication failed")

	// ErrAuthorization marks an authenticated caller that is not permitted.
	// Use cases convert it to ErrNotFound where existence must be hidden.
	ErrAuthorization = errors.New("not authorized")

	// ErrNotFound marks an absent entity.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a uniqueness or state conflict (duplicate email,
	// duplicate activity, no active connection). Recoverable by caller action.
	ErrConflict = errors.New("conflict")

	// ErrTransient marks a temporarily unavailable downstream dependency.
	// Safe to retry with backoff.
	ErrTransient = errors.New("temporarily unavailable")
)
