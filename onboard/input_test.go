package onboard

import (
	"context"
	"github.com/CodedInternet/gosupercar/onboard/hardware"
	. "github.com/smartystreets/goconvey/convey"
	"testing"
	"time"
)

func input(r GamepadReport) RemoteEvent {
	return RemoteEvent{Type: INPUT, Report: r}
}

func TestLocalInput(t *testing.T) {
	Convey("accelerator buttons drive propulsion under local control", t, func() {
		car, _ := createTestCar(t)
		cfg := car.Config()

		car.HandleButton(ButtonEvent{Pin: cfg.AcceleratorForwardPin, Edge: DOWN})
		So(car.Propulsion.Expectation(), ShouldEqual, 50)
		So(car.State().Running, ShouldEqual, FORWARD)

		car.HandleButton(ButtonEvent{Pin: cfg.AcceleratorForwardPin, Edge: UP})
		So(car.Propulsion.IsRunning(), ShouldBeFalse)
		So(car.Propulsion.Expectation(), ShouldEqual, 0)

		car.HandleButton(ButtonEvent{Pin: cfg.AcceleratorBackwardPin, Edge: DOWN})
		So(car.Propulsion.Expectation(), ShouldEqual, -50)

		car.HandleButton(ButtonEvent{Pin: cfg.AcceleratorBackwardPin, Edge: UP})
		So(car.Propulsion.IsRunning(), ShouldBeFalse)
	})

	Convey("accelerator buttons are ignored under remote control", t, func() {
		car, _ := createTestCar(t)
		car.SetControlSource(REMOTE)

		car.HandleButton(ButtonEvent{Pin: car.Config().AcceleratorForwardPin, Edge: DOWN})
		So(car.Propulsion.IsRunning(), ShouldBeFalse)
		So(car.Propulsion.Expectation(), ShouldEqual, 0)
	})

	Convey("the mode switch follows its level", t, func() {
		car, out := createTestCar(t)
		pin := car.Config().ModeInputPin

		car.HandleButton(ButtonEvent{Pin: pin, Edge: DOWN})
		So(car.GetMode(), ShouldEqual, SWAY)
		So(car.State().AppliedMode, ShouldEqual, MOTION)

		// applied before the next event
		car.HandleButton(ButtonEvent{Pin: 99, Edge: DOWN})
		So(car.State().AppliedMode, ShouldEqual, SWAY)
		So(out.mode.High(), ShouldBeTrue)

		car.HandleButton(ButtonEvent{Pin: pin, Edge: UP})
		So(car.GetMode(), ShouldEqual, MOTION)
	})

	Convey("pin levels map to edges", t, func() {
		So(ButtonEventFromLevel(12, false), ShouldResemble, ButtonEvent{12, DOWN})
		So(ButtonEventFromLevel(12, true), ShouldResemble, ButtonEvent{12, UP})
	})
}

func TestRemoteInput(t *testing.T) {
	Convey("held buttons act once per press", t, func() {
		car, _ := createTestCar(t)

		report := GamepadReport{B: true, RB: true, Y: true}
		car.HandleRemote(input(report))
		car.HandleRemote(input(report))

		state := car.State()
		So(state.ReverseDirection, ShouldBeTrue)
		So(state.ControlType, ShouldEqual, REMOTE)
		So(state.Config.MaxSpeed, ShouldEqual, 60)

		Convey("and again after release", func() {
			car.HandleRemote(input(GamepadReport{}))
			car.HandleRemote(input(report))

			state := car.State()
			So(state.ReverseDirection, ShouldBeFalse)
			So(state.ControlType, ShouldEqual, LOCAL)
			So(state.Config.MaxSpeed, ShouldEqual, 70)
		})
	})

	Convey("A toggles reverse mode", t, func() {
		car, _ := createTestCar(t)
		car.HandleRemote(input(GamepadReport{A: true}))
		So(car.State().ReverseMode, ShouldBeTrue)
		So(car.State().AppliedMode, ShouldEqual, SWAY)
	})

	Convey("LB lowers the max speed down to the delta speed", t, func() {
		car, _ := createTestCar(t)
		for i := 0; i < 10; i++ {
			car.HandleRemote(input(GamepadReport{LB: true}))
			car.HandleRemote(input(GamepadReport{}))
		}
		So(car.MaxSpeed(), ShouldEqual, 10)
	})

	Convey("triggers take control and throttle", t, func() {
		car, _ := createTestCar(t)

		car.HandleRemote(input(GamepadReport{RT: 1023}))
		So(car.ControlSource(), ShouldEqual, REMOTE)
		So(car.Propulsion.Expectation(), ShouldEqual, 100)

		car.HandleRemote(input(GamepadReport{RT: 2000}))
		So(car.Propulsion.Expectation(), ShouldEqual, 100)

		car.HandleRemote(input(GamepadReport{LT: 1023, RT: 100}))
		So(car.Propulsion.Expectation(), ShouldEqual, -100)

		Convey("trigger travel maps onto the full duty range", func() {
			So(car.MaxSpeed(), ShouldEqual, 50)
			car.HandleRemote(input(GamepadReport{RT: 1023 / 3}))
			So(car.Propulsion.Expectation(), ShouldAlmostEqual, 100.0/3, 0.1)

			car.HandleRemote(input(GamepadReport{LT: 512}))
			So(car.Propulsion.Expectation(), ShouldAlmostEqual, -50, 0.1)
		})

		Convey("releasing both triggers stops but keeps remote control", func() {
			car.HandleRemote(input(GamepadReport{}))
			So(car.Propulsion.IsRunning(), ShouldBeFalse)
			So(car.Propulsion.Expectation(), ShouldEqual, 0)
			So(car.ControlSource(), ShouldEqual, REMOTE)
		})
	})

	Convey("released triggers do not stop local driving", t, func() {
		car, _ := createTestCar(t)
		car.Start(FORWARD)
		car.HandleRemote(input(GamepadReport{}))
		So(car.Propulsion.IsRunning(), ShouldBeTrue)
	})

	Convey("the d-pad steers", t, func() {
		car, _ := createTestCar(t)

		car.HandleRemote(input(GamepadReport{Dpad: DPAD_LEFT}))
		So(car.State().Steer, ShouldEqual, LEFT)
		settle(car)
		So(car.Steering.DutyCycle(), ShouldEqual, -100)

		car.HandleRemote(input(GamepadReport{Dpad: DPAD_NONE}))
		So(car.State().Steer, ShouldEqual, NONE)
		So(car.Steering.IsRunning(), ShouldBeFalse)
		settle(car)
		So(car.Steering.DutyCycle(), ShouldEqual, 0)

		car.HandleRemote(input(GamepadReport{Dpad: DPAD_RIGHT}))
		So(car.Steering.Expectation(), ShouldEqual, 100)
	})

	Convey("a close while driving stops through the ramp and hands back control", t, func() {
		car, _ := createTestCar(t)
		car.HandleRemote(input(GamepadReport{RT: 1023, Dpad: DPAD_RIGHT, Y: true}))
		settle(car)
		So(car.Propulsion.DutyCycle(), ShouldEqual, 100)

		car.HandleRemote(RemoteEvent{Type: CLOSE})
		So(car.ControlSource(), ShouldEqual, LOCAL)
		So(car.State().Steer, ShouldEqual, NONE)
		So(car.Propulsion.IsRunning(), ShouldBeFalse)

		car.Propulsion.Tick()
		So(car.Propulsion.DutyCycle(), ShouldEqual, 98)

		Convey("and the next press is a fresh edge", func() {
			car.HandleRemote(input(GamepadReport{Y: true}))
			So(car.ControlSource(), ShouldEqual, REMOTE)
		})
	})

	Convey("connection events other than close are ignored", t, func() {
		car, _ := createTestCar(t)
		car.HandleRemote(RemoteEvent{Type: OPEN, Report: GamepadReport{RT: 1023}})
		car.HandleRemote(RemoteEvent{Type: BATTERY})
		So(car.Propulsion.IsRunning(), ShouldBeFalse)
		So(car.ControlSource(), ShouldEqual, LOCAL)
	})
}

func TestDistance(t *testing.T) {
	Convey("readings are recorded", t, func() {
		car, _ := createTestCar(t)
		report := hardware.DistanceReport{FrontLeft: 1, FrontRight: 2, BackLeft: 3, BackRight: 4}
		car.HandleDistance(report)
		So(car.State().Distance, ShouldResemble, report)
	})

	Convey("an obstacle ahead stops forward motion", t, func() {
		car, _ := createTestCar(t)
		cfg := car.Config()
		cfg.DistanceThresholdForward = 30
		car.SetConfig(cfg)

		car.Start(FORWARD)
		car.Propulsion.Tick()

		car.HandleDistance(hardware.DistanceReport{FrontLeft: 0, FrontRight: 40, BackLeft: 5})
		So(car.Propulsion.IsRunning(), ShouldBeTrue)

		car.HandleDistance(hardware.DistanceReport{FrontLeft: 29, FrontRight: 40})
		So(car.Propulsion.IsRunning(), ShouldBeFalse)
	})

	Convey("a zero threshold disables the check", t, func() {
		car, _ := createTestCar(t)
		car.Start(BACKWARD)
		car.Propulsion.Tick()
		car.HandleDistance(hardware.DistanceReport{BackLeft: 1, BackRight: 1})
		So(car.Propulsion.IsRunning(), ShouldBeTrue)
	})
}

func TestInputLoops(t *testing.T) {
	Convey("the loops drain their queues until cancelled", t, func() {
		car, _ := createTestCar(t)
		ctx, cancel := context.WithCancel(context.Background())

		buttons := NewQueue[ButtonEvent]()
		remote := NewQueue[RemoteEvent]()
		distance := NewQueue[hardware.DistanceReport]()

		done := make(chan struct{}, 3)
		go func() { car.LocalLoop(ctx, buttons); done <- struct{}{} }()
		go func() { car.RemoteLoop(ctx, remote); done <- struct{}{} }()
		go func() { car.DistanceLoop(ctx, distance); done <- struct{}{} }()

		buttons.Send(ButtonEvent{Pin: car.Config().AcceleratorForwardPin, Edge: DOWN})
		remote.Send(input(GamepadReport{B: true}))
		distance.Send(hardware.DistanceReport{FrontLeft: 9})

		deadline := time.Now().Add(time.Second)
		for time.Now().Before(deadline) {
			state := car.State()
			if state.Propulsion.Running && state.ReverseDirection && state.Distance.FrontLeft == 9 {
				break
			}
			time.Sleep(time.Millisecond)
		}

		state := car.State()
		So(state.Propulsion.Running, ShouldBeTrue)
		So(state.ReverseDirection, ShouldBeTrue)
		So(state.Distance.FrontLeft, ShouldEqual, 9)

		cancel()
		for i := 0; i < 3; i++ {
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("loop did not exit")
			}
		}
	})
}
