package config

import "errors"

// ErrLoadConfig wraps file and env provider failures; ErrInvalidConfig wraps
// cross-field validation failures such as a driver without its DSN.
var (
	ErrLoadConfig    = errors.New("load config failed")
	ErrInvalidConfig = errors.New("invalid config")
)
