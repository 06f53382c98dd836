package validation_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/okian/tweets/internal/domain/model"
	"github.com/okian/tweets/internal/domain/validation"
	. "github.com/smartystreets/goconvey/convey"
)

func TestValidator(t *testing.T) {
	Convey("Given a validator with a 10 character cap", t, func() {
		v := validation.New(10)

		Convey("A short message passes", func() {
			So(v.Validate(model.Input{Message: "hello"}), ShouldBeNil)
		})

		Convey("A message of exactly the cap passes", func() {
			So(v.Validate(model.Input{Message: strings.Repeat("a", 10)}), ShouldBeNil)
		})

		Convey("Length is counted in characters, not bytes", func() {
			So(v.Validate(model.Input{Message: strings.Repeat("é", 10)}), ShouldBeNil)
		})

		Convey("An empty message fails with the empty message text", func() {
			err := v.Validate(model.Input{})
			var verr *model.ValidationError
			So(errors.As(err, &verr), ShouldBeTrue)
			So(verr.Messages, ShouldResemble, []string{"Tweet message can't be empty."})
		})

		Convey("A whitespace-only message is blank", func() {
			err := v.Validate(model.Input{Message: "   \t"})
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
		})

		Convey("A long message fails with the length message", func() {
			err := v.Validate(model.Input{Message: strings.Repeat("a", 11)})
			var verr *model.ValidationError
			So(errors.As(err, &verr), ShouldBeTrue)
			So(verr.Messages, ShouldResemble, []string{"Tweet message can't be longer than 10 characters."})
		})

		Convey("A long blank message reports both failures in rule order", func() {
			err := v.Validate(model.Input{Message: strings.Repeat(" ", 11)})
			var verr *model.ValidationError
			So(errors.As(err, &verr), ShouldBeTrue)
			So(verr.Messages, ShouldResemble, []string{
				"Tweet message can't be empty.",
				"Tweet message can't be longer than 10 characters.",
			})
		})
	})

	Convey("A non-positive cap falls back to the default", t, func() {
		So(validation.New(0).MaxLength(), ShouldEqual, validation.DefaultMaxLength)
	})
}
