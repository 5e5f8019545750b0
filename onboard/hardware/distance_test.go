package hardware

import (
	. "github.com/smartystreets/goconvey/convey"
	"testing"
)

func encodeBurst(values ...uint8) (durations []uint16) {
	durations = []uint16{9000, 4500} // header
	for _, v := range values {
		for bit := 7; bit >= 0; bit-- {
			if v&(1<<uint(bit)) != 0 {
				durations = append(durations, 300)
			} else {
				durations = append(durations, 100)
			}
		}
	}
	return append(durations, 50) // stop pulse
}

func TestDecodeDistanceBurst(t *testing.T) {
	Convey("a full burst decodes every channel MSB first", t, func() {
		report := DecodeDistanceBurst(encodeBurst(0x80, 0x01, 0xA5, 0xFF))
		So(report, ShouldResemble, DistanceReport{
			FrontLeft:  0x80,
			FrontRight: 0x01,
			BackLeft:   0xA5,
			BackRight:  0xFF,
		})
	})

	Convey("the pulse threshold is exclusive", t, func() {
		durations := encodeBurst(0, 0, 0, 0)
		durations[BURST_HEADER_ITEMS] = BURST_ONE_US
		So(DecodeDistanceBurst(durations).FrontLeft, ShouldEqual, 0)

		durations[BURST_HEADER_ITEMS] = BURST_ONE_US + 1
		So(DecodeDistanceBurst(durations).FrontLeft, ShouldEqual, 0x80)
	})

	Convey("short bursts leave the missing channels at zero", t, func() {
		report := DecodeDistanceBurst(encodeBurst(0x42))
		So(report.FrontLeft, ShouldEqual, 0x42)
		So(report.FrontRight, ShouldEqual, 0)
		So(report.BackRight, ShouldEqual, 0)

		So(DecodeDistanceBurst(nil), ShouldResemble, DistanceReport{})
		So(DecodeDistanceBurst([]uint16{1, 2, 3}), ShouldResemble, DistanceReport{})
	})

	Convey("extra items past the last channel are ignored", t, func() {
		durations := encodeBurst(1, 2, 3, 4)
		durations = append(durations[:len(durations)-1], 300, 300, 300, 50)
		So(DecodeDistanceBurst(durations), ShouldResemble, DistanceReport{1, 2, 3, 4})
	})
}
