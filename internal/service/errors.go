package service

import (
	"fmt"

	"mkoval/runcoach-app/internal/domain"
)

// --- Error Definitions ---
// Every service error wraps exactly one taxonomy kind from the domain
// package, so the API layer can classify with errors.Is without knowing the
// individual sentinel.
var (
	ErrEmailTaken         = fmt.Errorf("%w: email already registered", domain.ErrConflict)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", domain.ErrAuthentication)

	ErrUserNotFound     = fmt.Errorf("%w: user not found", domain.ErrNotFound)
	ErrCoachNotFound    = fmt.Errorf("%w: coach not found", domain.ErrNotFound)
	ErrCustomerNotFound = fmt.Errorf("%w: customer not found", domain.ErrNotFound)
	// ErrCustomerNotAssigned is reported as not-found on purpose: a coach
	// probing a foreign customer id must not learn whether it exists.
	ErrCustomerNotAssigned = fmt.Errorf("%w: customer is not assigned to this coach", domain.ErrNotFound)

	ErrAccessDenied = fmt.Errorf("%w: access denied", domain.ErrAuthorization)

	ErrPlanNotFound = fmt.Errorf("%w: training plan not found", domain.ErrNotFound)
	ErrDayNotFound  = fmt.Errorf("%w: training day not found", domain.ErrNotFound)

	// ErrTaskNotFound also covers another user's task: tasks are private,
	// so a foreign id must look exactly like a missing one.
	ErrTaskNotFound = fmt.Errorf("%w: task not found", domain.ErrNotFound)

	// ErrNoConnection is a recoverable condition: the caller must connect
	// (or reconnect) Strava, it is not a system fault.
	ErrNoConnection   = fmt.Errorf("%w: no active Strava connection", domain.ErrConflict)
	ErrConnectionDead = fmt.Errorf("%w: Strava connection is no longer valid, reconnect required", domain.ErrAuthentication)
	ErrInvalidState   = fmt.Errorf("%w: invalid or expired authorization state", domain.ErrAuthentication)
	ErrWebhookDenied  = fmt.Errorf("%w: webhook verification failed", domain.ErrAuthentication)
)
