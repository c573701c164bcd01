package repository

import "errors"

// Sentinel kinds for store errors. These allow errors.Is from callers.
var (
	ErrNotFound   = errors.New("not found")
	ErrEmailTaken = errors.New("email already registered")
)
