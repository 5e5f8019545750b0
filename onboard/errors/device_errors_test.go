package errors

import (
	. "github.com/smartystreets/goconvey/convey"
	"testing"
)

func TestErrors(t *testing.T) {
	Convey("motor name errors name the motor", t, func() {
		So(MotorNameError{"wheels"}.Error(), ShouldEqual, "no such motor wheels")
	})

	Convey("config version errors fill in a missing version", t, func() {
		err := ConfigVersionError{Want: "~1.0"}
		So(err.Error(), ShouldEqual, "incompatible config; version UNKNOWN does not satisfy ~1.0")

		err.Have = "2.1.0"
		So(err.Error(), ShouldContainSubstring, "2.1.0")
	})
}
