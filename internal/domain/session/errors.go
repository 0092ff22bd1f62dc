package session

import "errors"

var (
	ErrTokenRequired = errors.New("backend token is required")
	ErrNoSession     = errors.New("no active session")
)
