package signup_test

import (
	"testing"

	"github.com/callsight/callsight/internal/domain/signup"
	. "github.com/smartystreets/goconvey/convey"
)

func TestValidate(t *testing.T) {
	Convey("Given signup requests", t, func() {
		Convey("A valid email and a complex password pass", func() {
			fe := signup.Validate(signup.Request{Email: "ops@example.com", Password: "Sup3r-secret"})
			So(fe, ShouldBeNil)
		})

		Convey("A malformed email is reported on the email field", func() {
			fe := signup.Validate(signup.Request{Email: "not-an-email", Password: "Sup3r-secret"})
			So(fe["email"], ShouldHaveLength, 1)
			So(fe, ShouldNotContainKey, "password")
		})

		Convey("A short password reports both length and complexity when applicable", func() {
			fe := signup.Validate(signup.Request{Email: "ops@example.com", Password: "abc"})
			So(fe["password"], ShouldHaveLength, 2)
		})

		Convey("A long password without an uppercase letter fails complexity", func() {
			fe := signup.Validate(signup.Request{Email: "ops@example.com", Password: "all-lower-case-1"})
			So(fe["password"], ShouldHaveLength, 1)
		})

		Convey("A long password without a special character fails complexity", func() {
			fe := signup.Validate(signup.Request{Email: "ops@example.com", Password: "NoSpecials123"})
			So(fe["password"], ShouldHaveLength, 1)
		})

		Convey("Digits do not count as the special class", func() {
			fe := signup.Validate(signup.Request{Email: "ops@example.com", Password: "Abcdefg1"})
			So(fe["password"], ShouldHaveLength, 1)
		})

		Convey("Both fields can fail at once", func() {
			fe := signup.Validate(signup.Request{Email: "", Password: ""})
			So(fe, ShouldContainKey, "email")
			So(fe, ShouldContainKey, "password")
		})
	})
}
