package booking

import "errors"

// Guard failures are recovered locally into these typed results; callers map
// them to transport responses. None of them leaves the store mutated.
var (
	// ErrValidation rejects malformed input before touching the store.
	ErrValidation = errors.New("invalid reservation request")
	// ErrAuthFailed means the supplied code does not match the reservation.
	ErrAuthFailed = errors.New("auth code mismatch")
	// ErrNotInWindow means now is outside the reservation's window.
	ErrNotInWindow = errors.New("outside reservation window")
	// ErrNotBookable means the reservation is missing or already in a
	// terminal state the requested transition cannot act on.
	ErrNotBookable = errors.New("reservation not in an actionable state")
	// ErrCodeSpaceExhausted means no free 4-digit auth code could be found
	// for the room and window. Practically never hit.
	ErrCodeSpaceExhausted = errors.New("auth code space exhausted")
)
