package service

import "errors"

var (
	// ErrNotStarted is returned when messages are submitted before Start.
	ErrNotStarted = errors.New("service not started")

	// ErrDuplicate is returned when a message with the same key was already
	// accepted.
	ErrDuplicate = errors.New("duplicate message")
)
