package repository

import "errors"

// Sentinel errors for catalogue lookups.
var (
	ErrNotFound = errors.New("no game is being played")
)
