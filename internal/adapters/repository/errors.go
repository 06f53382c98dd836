package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrClosed        = errors.New("store closed")
	ErrUnknownDriver = errors.New("unknown store driver")
	ErrOpen          = errors.New("open store")
)
