package hardware

// PWMOutput drives a single PWM channel. SetDuty takes a magnitude in percent (0-100).
// SetLow forces the output fully low rather than running at 0% duty.
type PWMOutput interface {
	SetDuty(duty float64) error
	SetLow() error
}

// DigitalOutput is a single GPIO output line.
type DigitalOutput interface {
	Set(high bool) error
}

// Bridge hands out the outputs for numbered pins.
type Bridge interface {
	PWM(pin, freq int) PWMOutput
	Pin(pin int) DigitalOutput
}
