package hardware

import (
	"time"
)

// Direction is the polarity of a motor's direction output. RIGHT drives the line low and
// corresponds to a positive duty cycle.
type Direction uint8

const (
	RIGHT Direction = iota
	LEFT
)

func (d Direction) String() string {
	if d == LEFT {
		return "LEFT"
	}
	return "RIGHT"
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Level is the output line level for this direction.
func (d Direction) Level() bool {
	return d == LEFT
}

const (
	DUTY_MIN = -100.0
	DUTY_MAX = 100.0
)

type MotorConfig struct {
	Acceleration float64 `yaml:"acceleration" json:"acceleration"` // max duty change per control period
	CtrlPeriod   int     `yaml:"ctrl_period" json:"ctrl_period"`   // ms
	PwmFreq      int     `yaml:"pwm_freq" json:"pwm_freq"`         // Hz
	PwmPin       int     `yaml:"pwm_pin" json:"pwm_pin"`
	DirectionPin int     `yaml:"direction_pin" json:"direction_pin"`
}

func DefaultMotorConfig(pwmPin, directionPin int) MotorConfig {
	return MotorConfig{
		Acceleration: 2,
		CtrlPeriod:   10,
		PwmFreq:      1000,
		PwmPin:       pwmPin,
		DirectionPin: directionPin,
	}
}

func (c MotorConfig) Period() time.Duration {
	return time.Duration(c.CtrlPeriod) * time.Millisecond
}

// Merge copies the usable fields of update over c. Non-positive ramp settings are ignored.
func (c MotorConfig) Merge(update MotorConfig) MotorConfig {
	if update.Acceleration > 0 {
		c.Acceleration = update.Acceleration
	}
	if update.CtrlPeriod > 0 {
		c.CtrlPeriod = update.CtrlPeriod
	}
	if update.PwmFreq > 0 {
		c.PwmFreq = update.PwmFreq
	}
	c.PwmPin = update.PwmPin
	c.DirectionPin = update.DirectionPin
	return c
}

type MotorState struct {
	Name        string      `json:"name"`
	StartTime   int64       `json:"start_time"` // ms spent running since the last start
	Running     bool        `json:"start_flag"`
	DutyCycle   float64     `json:"duty_cycle"`
	Direction   Direction   `json:"direction"`
	Expectation float64     `json:"expt"`
	Config      MotorConfig `json:"cfg"`
}

type MotorInterface interface {
	SetSpeed(target float64)
	Start()
	Stop()
	SetDirection(dir Direction)
	Tick()
	GetState() (state MotorState)
}
