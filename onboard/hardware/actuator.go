package hardware

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

// Actuator is a brushed DC motor driven by a PWM channel and a direction line. Callers set an
// expectation; the ramping task moves the applied duty cycle toward it by at most
// MotorConfig.Acceleration per control period.
type Actuator struct {
	Name string

	cfg         MotorConfig
	dutyCycle   float64
	expectation float64
	direction   Direction
	polarized   bool // false until the direction line has been driven once
	running     bool
	startTime   time.Duration

	pwm    PWMOutput
	dirOut DigitalOutput
	lock   sync.Mutex
	log    *zap.SugaredLogger
}

func NewActuator(name string, cfg MotorConfig, pwm PWMOutput, dir DigitalOutput, log *zap.SugaredLogger) *Actuator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Actuator{
		Name:      name,
		cfg:       DefaultMotorConfig(cfg.PwmPin, cfg.DirectionPin).Merge(cfg),
		direction: RIGHT,
		pwm:       pwm,
		dirOut:    dir,
		log:       log,
	}
}

// Setup forces the PWM output low. The direction line is left alone until the first nonzero
// duty cycle is applied.
func (a *Actuator) Setup() {
	a.lock.Lock()
	defer a.lock.Unlock()

	a.log.Debugw("setting up motor", "pwm_pin", a.cfg.PwmPin, "direction_pin", a.cfg.DirectionPin)
	if err := a.pwm.SetLow(); err != nil {
		a.log.Debugw("unable to force pwm low", "error", err)
	}
	a.dutyCycle = 0
}

// SetSpeed sets the expectation, clamped to [-100, 100]. Nothing is written to hardware until
// the next tick.
func (a *Actuator) SetSpeed(target float64) {
	if math.IsNaN(target) {
		target = 0
	}

	a.lock.Lock()
	defer a.lock.Unlock()
	a.expectation = mgl64.Clamp(target, DUTY_MIN, DUTY_MAX)
}

func (a *Actuator) Start() {
	a.lock.Lock()
	defer a.lock.Unlock()

	a.log.Debugw("motor start")
	a.running = true
	a.startTime = 0
}

// Stop zeroes the expectation. The duty cycle decays to zero through the normal ramp.
func (a *Actuator) Stop() {
	a.lock.Lock()
	defer a.lock.Unlock()

	a.log.Debugw("motor stop", "duty_cycle", a.dutyCycle)
	a.expectation = 0
	a.running = false
	a.startTime = 0
}

// SetDirection drives the direction line directly without touching the duty cycle.
func (a *Actuator) SetDirection(dir Direction) {
	a.lock.Lock()
	defer a.lock.Unlock()
	a.writeDirection(dir)
}

// Tick performs one control period of ramping.
func (a *Actuator) Tick() {
	a.lock.Lock()
	defer a.lock.Unlock()

	if a.expectation != a.dutyCycle {
		delta := a.expectation - a.dutyCycle
		acc := a.cfg.Acceleration
		if acc > 0 && math.Abs(delta) > acc {
			a.applyDuty(a.dutyCycle + math.Copysign(acc, delta))
		} else {
			a.applyDuty(a.expectation)
		}
	}

	if a.running {
		a.startTime += a.cfg.Period()
	}
}

// Run ticks the actuator once per control period until ctx is done. The period is re-read
// every cycle so config changes apply without a restart.
func (a *Actuator) Run(ctx context.Context) {
	timer := time.NewTimer(a.period())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-timer.C:
			a.Tick()
			timer.Reset(a.period())
		}
	}
}

func (a *Actuator) applyDuty(duty float64) {
	switch {
	case duty > 0:
		a.writeDirection(RIGHT)
	case duty < 0:
		a.writeDirection(LEFT)
	}

	var err error
	if duty == 0 {
		err = a.pwm.SetLow()
	} else {
		err = a.pwm.SetDuty(math.Abs(duty))
	}
	if err != nil {
		a.log.Debugw("unable to write duty cycle", "duty_cycle", duty, "error", err)
	}

	a.dutyCycle = duty
}

func (a *Actuator) writeDirection(dir Direction) {
	if a.polarized && dir == a.direction {
		return
	}

	a.log.Debugw("direction", "direction", dir)
	a.direction = dir
	a.polarized = true
	if err := a.dirOut.Set(dir.Level()); err != nil {
		a.log.Debugw("unable to write direction", "direction", dir, "error", err)
	}
}

func (a *Actuator) period() time.Duration {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.cfg.Period()
}

func (a *Actuator) DutyCycle() float64 {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.dutyCycle
}

func (a *Actuator) Expectation() float64 {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.expectation
}

func (a *Actuator) IsRunning() bool {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.running
}

func (a *Actuator) Config() MotorConfig {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.cfg
}

// SetConfig applies cfg, ignoring non-positive acceleration, period and frequency values.
func (a *Actuator) SetConfig(cfg MotorConfig) {
	a.lock.Lock()
	defer a.lock.Unlock()
	a.cfg = a.cfg.Merge(cfg)
}

func (a *Actuator) GetState() (state MotorState) {
	a.lock.Lock()
	defer a.lock.Unlock()

	return MotorState{
		Name:        a.Name,
		StartTime:   a.startTime.Milliseconds(),
		Running:     a.running,
		DutyCycle:   a.dutyCycle,
		Direction:   a.direction,
		Expectation: a.expectation,
		Config:      a.cfg,
	}
}
