package services

import "errors"

var (
	// ErrVoteRejected covers every reason a vote is refused after validation:
	// paused, published, over the ceiling, or hidden by the voter.
	ErrVoteRejected = errors.New("vote rejected")

	// ErrForbidden is returned when the actor does not own the project.
	ErrForbidden = errors.New("not allowed for this user")

	ErrAlreadyReviewed = errors.New("withdrawal already reviewed")

	// ErrProjectOpen is returned when a creator tries to hide a project whose
	// stakes and coverage are still frozen.
	ErrProjectOpen = errors.New("project must be settled before its creator can hide it")
)
