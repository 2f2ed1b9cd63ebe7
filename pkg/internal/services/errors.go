package services

import "errors"

// Request-local failures the HTTP layer maps onto status codes.
var (
	ErrMissingFields = errors.New("missing fields")
	ErrTooFewOptions = errors.New("at least 2 options are required")
	ErrUserNotFound  = errors.New("user not found")
	ErrPollNotFound  = errors.New("poll not found")
	ErrPollClosed    = errors.New("poll is closed")
	ErrInvalidOption = errors.New("poll does not have an option like that")
	ErrAlreadyVoted  = errors.New("user has already voted on this poll")
	ErrUsernameTaken = errors.New("username already exists")
	ErrNotCreator    = errors.New("you are not the creator of this poll")
)
