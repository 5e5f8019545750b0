package onboard

import (
	"github.com/CodedInternet/gosupercar/onboard/hardware"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
	"math"
	"strings"
	"sync"
)

type Mode uint8

const (
	MOTION Mode = iota
	SWAY
)

func (m Mode) String() string {
	if m == SWAY {
		return "SWAY"
	}
	return "MOTION"
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m Mode) invert(flip bool) Mode {
	if !flip {
		return m
	}
	if m == MOTION {
		return SWAY
	}
	return MOTION
}

type ControlSource uint8

const (
	LOCAL ControlSource = iota
	REMOTE
)

func (c ControlSource) String() string {
	if c == REMOTE {
		return "REMOTE"
	}
	return "LOCAL"
}

func (c ControlSource) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

type Steer uint8

const (
	NONE Steer = iota
	LEFT
	RIGHT
)

func (s Steer) String() string {
	switch s {
	case LEFT:
		return "LEFT"
	case RIGHT:
		return "RIGHT"
	}
	return "NONE"
}

func (s Steer) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type RunningDirection uint8

const (
	FORWARD RunningDirection = iota
	BACKWARD
	STOPPED
)

func (d RunningDirection) String() string {
	switch d {
	case FORWARD:
		return "FORWARD"
	case BACKWARD:
		return "BACKWARD"
	}
	return "NONE"
}

func (d RunningDirection) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d RunningDirection) invert(flip bool) RunningDirection {
	if !flip || d == STOPPED {
		return d
	}
	if d == FORWARD {
		return BACKWARD
	}
	return FORWARD
}

// sign is the expectation sign for d. Forward is positive.
func (d RunningDirection) sign() float64 {
	if d == BACKWARD {
		return -1
	}
	return 1
}

type SupercarState struct {
	Power            bool                    `json:"power"`
	Propulsion       hardware.MotorState     `json:"propulsion"`
	Steering         hardware.MotorState     `json:"steering"`
	Mode             Mode                    `json:"mode"`
	AppliedMode      Mode                    `json:"applied_mode"`
	ControlType      ControlSource           `json:"control_type"`
	Steer            Steer                   `json:"steering_direction"`
	ReverseDirection bool                    `json:"reverse_direction"`
	ReverseMode      bool                    `json:"reverse_mode"`
	Running          RunningDirection        `json:"running"`
	Distance         hardware.DistanceReport `json:"distance"`
	Config           Config                  `json:"cfg"`
}

// Supercar is the vehicle: two actuators plus the flags arbitrating between local and remote
// control. Exported methods take the vehicle lock; the input loops hold it across a whole event
// and use the unexported variants. Actuator locks are always taken after the vehicle lock.
type Supercar struct {
	Propulsion *hardware.Actuator
	Steering   *hardware.Actuator

	cfg              Config
	power            bool
	mode             Mode
	appliedMode      Mode
	controlSource    ControlSource
	steering         Steer
	direction        RunningDirection // raw, before reverseDirection
	reverseDirection bool
	reverseMode      bool
	distance         hardware.DistanceReport
	lastReport       GamepadReport // debounce baseline for the remote loop

	modeOut  hardware.DigitalOutput
	powerOut hardware.DigitalOutput
	lock     sync.Mutex
	log      *zap.SugaredLogger
}

func NewSupercar(cfg Config, propulsion, steering *hardware.Actuator, modeOut, powerOut hardware.DigitalOutput, log *zap.SugaredLogger) *Supercar {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Supercar{
		Propulsion: propulsion,
		Steering:   steering,
		cfg:        DefaultConfig().merge(cfg),
		mode:       MOTION,
		direction:  FORWARD,
		modeOut:    modeOut,
		powerOut:   powerOut,
		log:        log,
	}
}

// NewSupercarFromConfig builds the vehicle with both actuators wired to bridge.
func NewSupercarFromConfig(fc FileConfig, bridge hardware.Bridge, log *zap.SugaredLogger) *Supercar {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	motor := func(name string, cfg hardware.MotorConfig) *hardware.Actuator {
		return hardware.NewActuator(name, cfg,
			bridge.PWM(cfg.PwmPin, cfg.PwmFreq), bridge.Pin(cfg.DirectionPin),
			log.Named("motor."+strings.ToUpper(name)))
	}

	return NewSupercar(fc.Supercar,
		motor(PROPULSION, fc.Propulsion), motor(STEERING, fc.Steering),
		bridge.Pin(fc.Supercar.ModeOutputPin), bridge.Pin(fc.Supercar.PowerOutputPin),
		log.Named("car"))
}

// Setup brings the outputs to a known state: both motors idle, the mode output committed and
// power enabled.
func (s *Supercar) Setup() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.Propulsion.Setup()
	s.Steering.Setup()
	s.applyMode()
	s.setPower(true)
}

func (s *Supercar) SetDirection(dir RunningDirection) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.setDirection(dir)
}

// setDirection stores the raw direction. A running motor heading the other way has its
// expectation negated so the reversal goes through the ramp.
func (s *Supercar) setDirection(dir RunningDirection) {
	if dir == STOPPED {
		return
	}
	s.direction = dir

	if !s.Propulsion.IsRunning() {
		return
	}
	expt := s.Propulsion.Expectation()
	if expt != 0 && math.Signbit(expt) != math.Signbit(s.getDirection().sign()) {
		s.Propulsion.SetSpeed(-expt)
	}
}

func (s *Supercar) GetDirection() RunningDirection {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.getDirection()
}

func (s *Supercar) getDirection() RunningDirection {
	return s.direction.invert(s.reverseDirection)
}

func (s *Supercar) Throttle(speed float64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.throttle(speed)
}

// throttle drives propulsion at |speed| in the effective direction. The actuator clamps it to its
// duty range; the max speed only applies to start.
func (s *Supercar) throttle(speed float64) {
	s.Propulsion.SetSpeed(s.getDirection().sign() * math.Abs(speed))
	if !s.Propulsion.IsRunning() {
		s.Propulsion.Start()
	}
}

func (s *Supercar) Start(dir RunningDirection) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.start(dir)
}

func (s *Supercar) start(dir RunningDirection) {
	s.log.Debugw("start", "direction", dir)
	s.setDirection(dir)
	s.throttle(s.cfg.MaxSpeed)
}

func (s *Supercar) Stop() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.stop()
}

func (s *Supercar) stop() {
	if !s.Propulsion.IsRunning() {
		return
	}
	s.log.Infow("stop", "duty_cycle", s.Propulsion.DutyCycle())
	s.Propulsion.Stop()
}

func (s *Supercar) SetMaxSpeed(speed float64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.setMaxSpeed(speed)
}

// setMaxSpeed keeps the max speed within [DeltaSpeed, 100] so it can never disable propulsion.
func (s *Supercar) setMaxSpeed(speed float64) {
	if math.IsNaN(speed) {
		return
	}
	s.cfg.MaxSpeed = clampSpeed(speed, s.cfg.DeltaSpeed, 100)
	s.log.Debugw("max speed", "max_speed", s.cfg.MaxSpeed)

	if s.Propulsion.IsRunning() {
		s.throttle(s.cfg.MaxSpeed)
	}
}

func (s *Supercar) MaxSpeed() float64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.cfg.MaxSpeed
}

func (s *Supercar) Turn(steer Steer) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.turn(steer)
}

func (s *Supercar) turn(steer Steer) {
	s.steering = steer
	switch steer {
	case LEFT:
		s.Steering.SetSpeed(-s.cfg.SteeringSpeed)
		s.Steering.Start()
	case RIGHT:
		s.Steering.SetSpeed(s.cfg.SteeringSpeed)
		s.Steering.Start()
	default:
		s.Steering.Stop()
	}
}

func (s *Supercar) Reverse() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.reverse()
}

func (s *Supercar) reverse() {
	s.reverseDirection = !s.reverseDirection
	s.log.Debugw("reverse", "reverse_direction", s.reverseDirection)
	if s.Propulsion.IsRunning() {
		s.Propulsion.SetSpeed(-s.Propulsion.Expectation())
	}
}

func (s *Supercar) ReverseMode() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.toggleReverseMode()
}

func (s *Supercar) toggleReverseMode() {
	s.reverseMode = !s.reverseMode
	s.log.Debugw("reverse mode", "reverse_mode", s.reverseMode)
	s.checkMode()
}

// SetMode stores the raw mode. The output follows on the next CheckMode once propulsion is idle.
func (s *Supercar) SetMode(mode Mode) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.mode = mode
}

func (s *Supercar) GetMode() Mode {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.getMode()
}

func (s *Supercar) getMode() Mode {
	return s.mode.invert(s.reverseMode)
}

func (s *Supercar) CheckMode() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.checkMode()
}

// checkMode commits the effective mode, but never while propulsion has a nonzero duty cycle.
func (s *Supercar) checkMode() {
	if s.Propulsion.DutyCycle() != 0 {
		return
	}
	if s.getMode() != s.appliedMode {
		s.applyMode()
	}
}

func (s *Supercar) applyMode() {
	mode := s.getMode()
	s.log.Infow("apply mode", "mode", mode)
	if err := s.modeOut.Set(mode == SWAY); err != nil {
		s.log.Warnw("unable to write mode", "mode", mode, "error", err)
	}
	s.appliedMode = mode
}

func (s *Supercar) Power(on bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.setPower(on)
}

// setPower drives the active low power enable line.
func (s *Supercar) setPower(on bool) {
	if err := s.powerOut.Set(!on); err != nil {
		s.log.Warnw("unable to write power", "power", on, "error", err)
	}
	s.power = on
}

func (s *Supercar) ControlSource() ControlSource {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.controlSource
}

func (s *Supercar) SetControlSource(source ControlSource) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.setControlSource(source)
}

func (s *Supercar) setControlSource(source ControlSource) {
	if s.controlSource != source {
		s.log.Infow("control source", "source", source)
	}
	s.controlSource = source
}

// runningDirection is the effective direction while propulsion runs, STOPPED otherwise.
func (s *Supercar) runningDirection() RunningDirection {
	if !s.Propulsion.IsRunning() {
		return STOPPED
	}
	return s.getDirection()
}

func (s *Supercar) State() SupercarState {
	s.lock.Lock()
	defer s.lock.Unlock()

	return SupercarState{
		Power:            s.power,
		Propulsion:       s.Propulsion.GetState(),
		Steering:         s.Steering.GetState(),
		Mode:             s.getMode(),
		AppliedMode:      s.appliedMode,
		ControlType:      s.controlSource,
		Steer:            s.steering,
		ReverseDirection: s.reverseDirection,
		ReverseMode:      s.reverseMode,
		Running:          s.runningDirection(),
		Distance:         s.distance,
		Config:           s.cfg,
	}
}

func (s *Supercar) Config() Config {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.cfg
}

// SetConfig applies cfg, ignoring non-positive speeds. A running motor picks up a changed max
// speed immediately, as with SetMaxSpeed.
func (s *Supercar) SetConfig(cfg Config) Config {
	s.lock.Lock()
	defer s.lock.Unlock()

	maxSpeed := s.cfg.MaxSpeed
	s.cfg = s.cfg.merge(cfg)
	if s.Propulsion.IsRunning() && s.cfg.MaxSpeed != maxSpeed {
		s.throttle(s.cfg.MaxSpeed)
	}
	return s.cfg
}

// Motor returns the actuator called name.
func (s *Supercar) Motor(name string) (*hardware.Actuator, bool) {
	switch name {
	case s.Propulsion.Name:
		return s.Propulsion, true
	case s.Steering.Name:
		return s.Steering, true
	}
	return nil, false
}

func clampSpeed(v, min, max float64) float64 {
	if max < min {
		max = min
	}
	return mgl64.Clamp(v, min, max)
}
