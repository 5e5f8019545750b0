package onboard

import (
	"github.com/CodedInternet/gosupercar/onboard/errors"
	. "github.com/smartystreets/goconvey/convey"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

const testYaml = `
version: 1.0.3
supercar:
  max_speed: 70
  delta_speed: 5
  distance_threshold_forward: 20
propulsion:
  acceleration: 4
  ctrl_period: 20
  pwm_pin: 25
  direction_pin: 26
`

func TestConfigParsing(t *testing.T) {
	Convey("parsing is successful", t, func() {
		config, err := ParseConfig([]byte(testYaml))
		So(err, ShouldBeNil)

		Convey("vehicle fields are set over the defaults", func() {
			So(config.Supercar.MaxSpeed, ShouldEqual, 70)
			So(config.Supercar.DeltaSpeed, ShouldEqual, 5)
			So(config.Supercar.DistanceThresholdForward, ShouldEqual, 20)
			So(config.Supercar.SteeringSpeed, ShouldEqual, 100)
			So(config.Supercar.ModeOutputPin, ShouldEqual, 4)
		})

		Convey("motor sections are set over the defaults", func() {
			So(config.Propulsion.Acceleration, ShouldEqual, 4)
			So(config.Propulsion.CtrlPeriod, ShouldEqual, 20)
			So(config.Propulsion.PwmFreq, ShouldEqual, 1000)
			So(config.Propulsion.PwmPin, ShouldEqual, 25)
			So(config.Steering.PwmPin, ShouldEqual, STEERING_PWM_PIN)
		})
	})

	Convey("incompatible versions are rejected", t, func() {
		for _, v := range []string{"2.0.0", "0.9.0", "1.1.0", "banana"} {
			_, err := ParseConfig([]byte("version: " + v + "\n"))
			So(err, ShouldHaveSameTypeAs, errors.ConfigVersionError{})
		}
	})

	Convey("bad yaml is an error", t, func() {
		_, err := ParseConfig([]byte("supercar: [1, 2"))
		So(err, ShouldNotBeNil)
	})

	Convey("a missing file yields the defaults", t, func() {
		config, err := LoadConfigFile(filepath.Join(os.TempDir(), "no-such-supercar.yaml"))
		So(err, ShouldBeNil)
		So(config, ShouldResemble, DefaultFileConfig())
	})

	Convey("a file on disk is loaded", t, func() {
		dir, err := ioutil.TempDir("", "supercar")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)

		filename := filepath.Join(dir, "supercar.yaml")
		So(ioutil.WriteFile(filename, []byte(testYaml), 0644), ShouldBeNil)

		config, err := LoadConfigFile(filename)
		So(err, ShouldBeNil)
		So(config.Supercar.MaxSpeed, ShouldEqual, 70)
	})
}

func TestConfigMerge(t *testing.T) {
	Convey("max speed is kept within delta speed and 100", t, func() {
		c := DefaultConfig()

		update := c
		update.MaxSpeed = 250
		So(c.merge(update).MaxSpeed, ShouldEqual, 100)

		update.MaxSpeed = 3
		So(c.merge(update).MaxSpeed, ShouldEqual, c.DeltaSpeed)

		update.MaxSpeed = 40
		update.DeltaSpeed = 45
		So(c.merge(update).MaxSpeed, ShouldEqual, 45)
	})

	Convey("non-positive speeds are ignored", t, func() {
		c := DefaultConfig()
		update := Config{MaxSpeed: -1, DeltaSpeed: 0, SteeringSpeed: -5, ModeOutputPin: 7}

		merged := c.merge(update)
		So(merged.MaxSpeed, ShouldEqual, c.MaxSpeed)
		So(merged.DeltaSpeed, ShouldEqual, c.DeltaSpeed)
		So(merged.SteeringSpeed, ShouldEqual, c.SteeringSpeed)
		So(merged.ModeOutputPin, ShouldEqual, 7)
	})
}
