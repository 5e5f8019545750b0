package onboard

import (
	"context"
	"github.com/CodedInternet/gosupercar/onboard/hardware"
	"time"
)

// LOOP_WAKEUP bounds how long an input loop waits for an event, so pending mode changes are
// committed even when nothing is happening.
const LOOP_WAKEUP = time.Second

// ButtonEventFromLevel converts an input pin level into an edge. Inputs are pulled up, so low
// means pressed.
func ButtonEventFromLevel(pin int, high bool) ButtonEvent {
	if high {
		return ButtonEvent{Pin: pin, Edge: UP}
	}
	return ButtonEvent{Pin: pin, Edge: DOWN}
}

// LocalLoop handles button events until ctx is done.
func (s *Supercar) LocalLoop(ctx context.Context, events *Queue[ButtonEvent]) {
	for ctx.Err() == nil {
		ev, ok := events.Receive(ctx, LOOP_WAKEUP)

		s.lock.Lock()
		s.checkMode()
		if ok {
			s.handleButton(ev)
		}
		s.lock.Unlock()
	}
}

func (s *Supercar) HandleButton(ev ButtonEvent) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.checkMode()
	s.handleButton(ev)
}

func (s *Supercar) handleButton(ev ButtonEvent) {
	s.log.Debugw("button", "pin", ev.Pin, "edge", ev.Edge)

	switch ev.Pin {
	case s.cfg.ModeInputPin:
		// a latching switch rather than a push button
		if ev.Edge == DOWN {
			s.mode = SWAY
		} else {
			s.mode = MOTION
		}

	case s.cfg.AcceleratorForwardPin, s.cfg.AcceleratorBackwardPin:
		if s.controlSource != LOCAL {
			return
		}

		switch {
		case ev.Edge == UP:
			s.stop()
		case ev.Pin == s.cfg.AcceleratorForwardPin:
			s.start(FORWARD)
		default:
			s.start(BACKWARD)
		}
	}
}

// RemoteLoop handles gamepad events until ctx is done.
func (s *Supercar) RemoteLoop(ctx context.Context, events *Queue[RemoteEvent]) {
	for ctx.Err() == nil {
		ev, ok := events.Receive(ctx, LOOP_WAKEUP)

		s.lock.Lock()
		if ok {
			s.handleRemote(ev)
		} else {
			s.checkMode()
		}
		s.lock.Unlock()
	}
}

func (s *Supercar) HandleRemote(ev RemoteEvent) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.handleRemote(ev)
}

func (s *Supercar) handleRemote(ev RemoteEvent) {
	switch ev.Type {
	case CLOSE:
		s.log.Infow("remote disconnected, stopping")
		s.turn(NONE)
		s.stop()
		s.setControlSource(LOCAL)
		s.lastReport = GamepadReport{}
		return
	case INPUT:
	default:
		s.log.Debugw("remote event", "type", ev.Type)
		return
	}

	s.checkMode()

	r, prev := ev.Report, s.lastReport
	defer func() { s.lastReport = r }()

	if rising(r.Y, prev.Y) {
		if s.controlSource == LOCAL {
			s.setControlSource(REMOTE)
		} else {
			s.setControlSource(LOCAL)
		}
	}
	if rising(r.B, prev.B) {
		s.reverse()
	}
	if rising(r.A, prev.A) {
		s.toggleReverseMode()
	}
	if rising(r.LB, prev.LB) {
		s.setMaxSpeed(s.cfg.MaxSpeed - s.cfg.DeltaSpeed)
	}
	if rising(r.RB, prev.RB) {
		s.setMaxSpeed(s.cfg.MaxSpeed + s.cfg.DeltaSpeed)
	}

	switch {
	case r.Dpad == DPAD_LEFT && prev.Dpad != DPAD_LEFT:
		s.turn(LEFT)
	case r.Dpad == DPAD_RIGHT && prev.Dpad != DPAD_RIGHT:
		s.turn(RIGHT)
	case r.Dpad == DPAD_NONE && s.steering != NONE:
		s.turn(NONE)
	}

	lt, rt := clampTrigger(r.LT), clampTrigger(r.RT)
	if lt > 0 || rt > 0 {
		s.setControlSource(REMOTE)

		dir, value := FORWARD, rt
		if lt > rt {
			dir, value = BACKWARD, lt
		}
		s.setDirection(dir)
		s.throttle(value / TRIGGER_MAX * hardware.DUTY_MAX)
	} else if s.controlSource == REMOTE {
		s.stop()
	}
}

func rising(now, before bool) bool {
	return now && !before
}

func clampTrigger(v uint16) float64 {
	return clampSpeed(float64(v), 0, TRIGGER_MAX)
}

// DistanceLoop records distance reports until ctx is done.
func (s *Supercar) DistanceLoop(ctx context.Context, reports *Queue[hardware.DistanceReport]) {
	for ctx.Err() == nil {
		report, ok := reports.Receive(ctx, LOOP_WAKEUP)
		if ok {
			s.HandleDistance(report)
		}
	}
}

// HandleDistance records report and stops propulsion when an obstacle is closer than the
// threshold for the way the vehicle is moving. A zero reading means no echo.
func (s *Supercar) HandleDistance(report hardware.DistanceReport) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.distance = report

	var threshold uint8
	var readings [2]uint8
	duty := s.Propulsion.DutyCycle()
	switch {
	case !s.Propulsion.IsRunning():
		return
	case duty > 0:
		threshold = s.cfg.DistanceThresholdForward
		readings = [2]uint8{report.FrontLeft, report.FrontRight}
	case duty < 0:
		threshold = s.cfg.DistanceThresholdBackward
		readings = [2]uint8{report.BackLeft, report.BackRight}
	default:
		return
	}

	for _, v := range readings {
		if threshold > 0 && v > 0 && v < threshold {
			s.log.Warnw("obstacle, stopping", "distance", v, "threshold", threshold)
			s.stop()
			return
		}
	}
}
