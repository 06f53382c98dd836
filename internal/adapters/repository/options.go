package repository

import (
	"time"

	"github.com/okian/tweets/pkg/logger"
)

// settings is shared by every backend constructor.
type settings struct {
	now    func() time.Time
	logger logger.Logger
}

// Option applies a configuration option to a store backend.
type Option func(*settings)

// WithClock overrides the time source used for createdAt/updatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the backend.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

func newSettings(name string, opts []Option) settings {
	s := settings{
		// Postgres keeps microseconds; truncate everywhere so backends agree.
		now: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named(name)
	}
	return s
}
