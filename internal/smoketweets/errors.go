package smoketweets

import "errors"

var (
	ErrUnhealthy        = errors.New("service is not healthy")
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrMismatch         = errors.New("response does not match request")
	ErrFailures         = errors.New("smoke run had failures")
)
