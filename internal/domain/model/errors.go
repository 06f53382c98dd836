package model

import (
	"errors"
	"fmt"
	"strconv"
)

// Sentinel kinds for tweet errors. Concrete errors below unwrap to these so
// callers can branch with errors.Is.
var (
	ErrNotFound   = errors.New("tweet not found")
	ErrValidation = errors.New("validation failed")
	ErrInternal   = errors.New("internal error")
)

// NotFoundTitle is the fixed title reported with a NotFoundError.
const NotFoundTitle = "tweet not found."

// NotFoundError reports that an id did not resolve to a tweet.
type NotFoundError struct {
	// ID is kept as the caller spelled it so ids outside int64 still render.
	ID string
}

// NewNotFound builds a NotFoundError for a store id.
func NewNotFound(id int64) *NotFoundError {
	return &NotFoundError{ID: strconv.FormatInt(id, 10)}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tweet of %s could not be found.", e.ID)
}

// Title returns the fixed not-found title.
func (e *NotFoundError) Title() string { return NotFoundTitle }

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ValidationError carries one message per failed field rule, in rule order.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	if len(e.Messages) == 0 {
		return ErrValidation.Error()
	}
	return fmt.Sprintf("%s: %v", ErrValidation.Error(), e.Messages)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InternalError wraps any failure that is not a tweet-level outcome.
type InternalError struct {
	Cause error
}

// NewInternal wraps err unless it already is a typed tweet error.
func NewInternal(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) || errors.Is(err, ErrInternal) {
		return err
	}
	return &InternalError{Cause: err}
}

func (e *InternalError) Error() string {
	if e.Cause == nil {
		return ErrInternal.Error()
	}
	return e.Cause.Error()
}

func (e *InternalError) Unwrap() []error { return []error{ErrInternal, e.Cause} }
