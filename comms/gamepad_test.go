package comms

import (
	"github.com/CodedInternet/gosupercar/onboard"
	. "github.com/smartystreets/goconvey/convey"
	"testing"
)

func TestParseGamepadReport(t *testing.T) {
	Convey("a full report is decoded", t, func() {
		data := []byte{
			0x01, 0x00, 0x02, 0x00, 0x03, 0x00, 0x04, 0x80, // lx ly rx ry
			0xff, 0x03, 0x00, 0x02, // lt rt
			byte(onboard.DPAD_LEFT),
			BTN_A | BTN_Y | BTN_MENU,
			0x00,
		}

		report, err := ParseGamepadReport(data)
		So(err, ShouldBeNil)
		So(report, ShouldResemble, onboard.GamepadReport{
			LX: 1, LY: 2, RX: 3, RY: 0x8004,
			LT: 1023, RT: 512,
			Dpad: onboard.DPAD_LEFT,
			A:    true, Y: true, Menu: true,
		})
	})

	Convey("triggers are clamped", t, func() {
		data := make([]byte, GAMEPAD_REPORT_LEN)
		data[8], data[9] = 0xff, 0xff
		report, err := ParseGamepadReport(data)
		So(err, ShouldBeNil)
		So(report.LT, ShouldEqual, onboard.TRIGGER_MAX)
	})

	Convey("unknown d-pad values read as centred", t, func() {
		data := make([]byte, GAMEPAD_REPORT_LEN)
		data[12] = 0x0f
		report, _ := ParseGamepadReport(data)
		So(report.Dpad, ShouldEqual, onboard.DPAD_NONE)
	})

	Convey("wrong lengths are rejected", t, func() {
		_, err := ParseGamepadReport(make([]byte, GAMEPAD_REPORT_LEN-1))
		So(err, ShouldNotBeNil)
		_, err = ParseGamepadReport(nil)
		So(err, ShouldNotBeNil)
	})
}
