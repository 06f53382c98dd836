package api

import (
	"context"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/okian/tweets/internal/domain/model"
	"github.com/okian/tweets/pkg/metrics"
)

const (
	maxBodyBytes   = 1 << 20
	msgBodyNotJSON = "Request body must be a JSON object."
	msgBodyMissing = "Request body is required."
)

// InputValidator checks a decoded tweet body.
type InputValidator interface {
	Validate(in model.Input) error
}

type inputKey struct{}

// ValidationGate decodes the body of mutating requests and runs the field
// rules before the handler sees the request.
type ValidationGate struct {
	validator InputValidator
}

// NewValidationGate creates a gate backed by v.
func NewValidationGate(v InputValidator) *ValidationGate {
	return &ValidationGate{validator: v}
}

// Wrap rejects the request with 400 if the body is not a JSON object or any
// rule fails; next then never runs.
func (g *ValidationGate) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in model.Input
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
			metrics.RecordValidationFailure()
			reportError(w, r, WrapKind("api.validation_gate", ErrBadRequest,
				&model.ValidationError{Messages: []string{msgBodyNotJSON}}))
			return
		}
		if err := g.validator.Validate(in); err != nil {
			metrics.RecordValidationFailure()
			reportError(w, r, err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), inputKey{}, in)))
	}
}

// inputFrom returns the body decoded by the gate.
func inputFrom(ctx context.Context) (model.Input, bool) {
	in, ok := ctx.Value(inputKey{}).(model.Input)
	return in, ok
}
