package auth

import "errors"

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidUser  = errors.New("invalid user profile")
)
