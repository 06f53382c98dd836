// Package validation holds the field rules applied to tweet bodies before they
// reach the store.
package validation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/okian/tweets/internal/domain/model"
)

// DefaultMaxLength is the message cap used when none is configured.
const DefaultMaxLength = 280

const tagNonBlank = "nonblank"

// rule is a single validator tag checked against one field of model.Input.
type rule struct {
	field   func(model.Input) any
	tag     string
	message string
}

// Validator checks model.Input values. It is safe for concurrent use.
type Validator struct {
	validate  *validator.Validate
	maxLength int
	rules     []rule
}

// New builds a Validator capping messages at maxLength runes.
// A non-positive maxLength falls back to DefaultMaxLength.
func New(maxLength int) *Validator {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	v := validator.New()
	// Registration only fails for reserved tags or a nil func.
	_ = v.RegisterValidation(tagNonBlank, func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	message := func(in model.Input) any { return in.Message }

	return &Validator{
		validate:  v,
		maxLength: maxLength,
		rules: []rule{
			{field: message, tag: "required," + tagNonBlank, message: "Tweet message can't be empty."},
			{field: message, tag: fmt.Sprintf("max=%d", maxLength), message: fmt.Sprintf("Tweet message can't be longer than %d characters.", maxLength)},
		},
	}
}

// MaxLength returns the configured message cap.
func (v *Validator) MaxLength() int { return v.maxLength }

// Validate runs every rule and returns a *model.ValidationError listing the
// failures in rule order, or nil.
func (v *Validator) Validate(in model.Input) error {
	messages := lo.FilterMap(v.rules, func(r rule, _ int) (string, bool) {
		return r.message, v.validate.Var(r.field(in), r.tag) != nil
	})
	if len(messages) == 0 {
		return nil
	}
	return &model.ValidationError{Messages: messages}
}
