package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a uniqueness violation.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrValidation indicates a request failed validation.
	ErrValidation = errors.New("validation failed")

	// ErrRateLimitExceeded is returned when admission control rejects a request.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrBackendUnavailable marks a failed shared counter backend call. It never
	// reaches a client; the limiter degrades to local counters instead.
	ErrBackendUnavailable = errors.New("counter backend unavailable")

	// ErrUnauthorized is the parent of every credential failure.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTokenExpired indicates the token expiry lies in the past.
	ErrTokenExpired = fmt.Errorf("token expired: %w", ErrUnauthorized)
	// ErrTokenMalformed indicates the token could not be parsed.
	ErrTokenMalformed = fmt.Errorf("token malformed: %w", ErrUnauthorized)
	// ErrInvalidIssuer indicates the token issuer is not allow-listed.
	ErrInvalidIssuer = fmt.Errorf("invalid token issuer: %w", ErrUnauthorized)
	// ErrAuthorityUnavailable signals the identity authority is unhealthy.
	ErrAuthorityUnavailable = errors.New("identity authority unavailable")
	// ErrForbidden indicates the caller lacks every sufficient role.
	ErrForbidden = errors.New("forbidden")

	// ErrAlreadyInState indicates a transition to the current status.
	ErrAlreadyInState = errors.New("resource already in requested state")
	// ErrInvalidTransition indicates the transition table forbids the move.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrStatusConflict indicates the stored status changed concurrently.
	ErrStatusConflict = errors.New("status changed concurrently")
	// ErrVehicleUnavailable indicates a sale targeted a vehicle that is not
	// AVAILABLE.
	ErrVehicleUnavailable = errors.New("vehicle unavailable")
)
