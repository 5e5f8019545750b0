package hardware

const (
	BURST_HEADER_ITEMS = 2   // leading items before the first data bit
	BURST_ONE_US       = 150 // pulses longer than this are a 1
	DISTANCE_CHANNELS  = 4
)

// DistanceReport holds one reading per infrared distance channel. Zero means no echo.
type DistanceReport struct {
	FrontLeft  uint8 `json:"front_left"`
	FrontRight uint8 `json:"front_right"`
	BackLeft   uint8 `json:"back_left"`
	BackRight  uint8 `json:"back_right"`
}

// DecodeDistanceBurst decodes the pulse durations (µs) of one infrared burst. After the header
// each channel is 8 bits, MSB first. The trailing item is a stop pulse and carries no data.
func DecodeDistanceBurst(durations []uint16) (report DistanceReport) {
	var channels [DISTANCE_CHANNELS]uint8

	for i := BURST_HEADER_ITEMS; i < len(durations)-1; i++ {
		r := i - BURST_HEADER_ITEMS
		channel := r / 8
		if channel >= DISTANCE_CHANNELS {
			break
		}
		if durations[i] > BURST_ONE_US {
			channels[channel] |= 1 << uint(7-r%8)
		}
	}

	report.FrontLeft = channels[0]
	report.FrontRight = channels[1]
	report.BackLeft = channels[2]
	report.BackRight = channels[3]
	return
}
