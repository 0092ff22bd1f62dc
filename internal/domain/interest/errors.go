package interest

import "errors"

var (
	ErrInterestNotFound = errors.New("interest not found")
	ErrApproveFailed    = errors.New("failed to approve interest")
	ErrEmptyPayload     = errors.New("empty interest payload")
	ErrInvalidRecord    = errors.New("invalid interest record")

	// ErrBackendUnavailable marks a failure that never reached a decision:
	// the request did not get through or the backend answered 5xx.
	ErrBackendUnavailable = errors.New("interest backend unavailable")
)
