package settlement

import "errors"

var (
	// ErrAlreadySettled is returned when the project's result has been published.
	// Settlement is terminal; callers must not retry.
	ErrAlreadySettled = errors.New("project result already published")

	// ErrProjectUnavailable is returned when the creator has hidden or deleted the project.
	ErrProjectUnavailable = errors.New("project is not available")

	// ErrInvalidResult is returned for anything other than yes or no.
	ErrInvalidResult = errors.New("result must be yes or no")

	// ErrMissingAccount is returned when a participant's account was not loaded.
	ErrMissingAccount = errors.New("participant account missing from snapshot")
)
