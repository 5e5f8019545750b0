package onboard

type Edge uint8

const (
	DOWN Edge = iota
	UP
)

func (e Edge) String() string {
	if e == UP {
		return "UP"
	}
	return "DOWN"
}

// ButtonEvent is a debounced level change on a local input pin. Buttons are active low, so a
// press is a falling edge.
type ButtonEvent struct {
	Pin  int
	Edge Edge
}

type Dpad uint8

const (
	DPAD_NONE Dpad = iota
	DPAD_UP
	DPAD_UP_RIGHT
	DPAD_RIGHT
	DPAD_DOWN_RIGHT
	DPAD_DOWN
	DPAD_DOWN_LEFT
	DPAD_LEFT
	DPAD_UP_LEFT
)

const TRIGGER_MAX = 1023

// GamepadReport is one parsed input report from the remote gamepad.
type GamepadReport struct {
	LX, LY uint16 `json:",omitempty"`
	RX, RY uint16 `json:",omitempty"`
	LT     uint16 `json:"lt"`
	RT     uint16 `json:"rt"`
	Dpad   Dpad   `json:"dpad"`

	A      bool `json:"a"`
	B      bool `json:"b"`
	X      bool `json:"x"`
	Y      bool `json:"y"`
	LB     bool `json:"lb"`
	RB     bool `json:"rb"`
	Select bool `json:"select"`
	Menu   bool `json:"menu"`
}

type EventType uint8

const (
	OPEN EventType = iota
	INPUT
	CLOSE
	BATTERY
	FEATURE
)

var eventTypeNames = [...]string{"OPEN", "INPUT", "CLOSE", "BATTERY", "FEATURE"}

func (t EventType) String() string {
	if int(t) < len(eventTypeNames) {
		return eventTypeNames[t]
	}
	return "UNKNOWN"
}

// RemoteEvent wraps a gamepad report with the connection event it arrived on. Report is only
// meaningful for INPUT events.
type RemoteEvent struct {
	Type   EventType
	Report GamepadReport
}
