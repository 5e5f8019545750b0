package comms

import (
	"encoding/binary"
	"fmt"
	"github.com/CodedInternet/gosupercar/onboard"
)

const GAMEPAD_REPORT_LEN = 15

// button bits in the report's button byte, least significant first
const (
	BTN_A = 1 << iota
	BTN_B
	BTN_X
	BTN_Y
	BTN_LB
	BTN_RB
	BTN_SELECT
	BTN_MENU
)

// ParseGamepadReport decodes a raw HID input report:
//
//	0-11  lx ly rx ry lt rt, little endian uint16
//	12    dpad
//	13    buttons
//	14    unused
func ParseGamepadReport(data []byte) (report onboard.GamepadReport, err error) {
	if len(data) != GAMEPAD_REPORT_LEN {
		return report, fmt.Errorf("gamepad report is %d bytes, want %d", len(data), GAMEPAD_REPORT_LEN)
	}

	axis := func(i int) uint16 {
		return binary.LittleEndian.Uint16(data[i*2:])
	}
	trigger := func(i int) uint16 {
		if v := axis(i); v < onboard.TRIGGER_MAX {
			return v
		}
		return onboard.TRIGGER_MAX
	}

	report.LX, report.LY = axis(0), axis(1)
	report.RX, report.RY = axis(2), axis(3)
	report.LT, report.RT = trigger(4), trigger(5)

	report.Dpad = onboard.Dpad(data[12])
	if report.Dpad > onboard.DPAD_UP_LEFT {
		report.Dpad = onboard.DPAD_NONE
	}

	buttons := data[13]
	report.A = buttons&BTN_A != 0
	report.B = buttons&BTN_B != 0
	report.X = buttons&BTN_X != 0
	report.Y = buttons&BTN_Y != 0
	report.LB = buttons&BTN_LB != 0
	report.RB = buttons&BTN_RB != 0
	report.Select = buttons&BTN_SELECT != 0
	report.Menu = buttons&BTN_MENU != 0
	return
}
