package lock

import "errors"

// Lock-related errors.
var (
	// ErrLockTimeout means a settlement could not acquire a player's lock
	// within the allowed wait; the caller aborts rather than queue up.
	ErrLockTimeout = errors.New("player lock acquisition timeout")
)
