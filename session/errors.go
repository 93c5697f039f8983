package session

import (
	"errors"
	"fmt"
)

var (
	// ErrChallenge indicates the upstream answered the handshake with a bot
	// check, a throttle or an empty token. It is treated as transient.
	ErrChallenge = errors.New("upstream returned a challenge instead of a token")

	// ErrSessionInvalid is returned once the manager has given up acquiring
	// a session. A new Manager is required to try again.
	ErrSessionInvalid = errors.New("session is invalid after repeated acquisition failures")
)

// AuthenticationError indicates no usable session could be obtained
type AuthenticationError struct {
	Attempts int
	Err      error
}

func (e *AuthenticationError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("authentication failed after %d attempt(s): %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}
