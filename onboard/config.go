package onboard

import (
	"github.com/CodedInternet/gosupercar/onboard/errors"
	"github.com/CodedInternet/gosupercar/onboard/hardware"
	"github.com/Masterminds/semver"
	pkgerrors "github.com/pkg/errors"
	"gopkg.in/yaml.v2"
	"io/ioutil"
	"os"
)

const (
	CONFIG_VERSION = "~1.0"

	PROPULSION_PWM_PIN       = 21
	PROPULSION_DIRECTION_PIN = 17
	STEERING_PWM_PIN         = 19
	STEERING_DIRECTION_PIN   = 18
)

// Config holds the vehicle level settings. Motor settings live in hardware.MotorConfig.
type Config struct {
	MaxSpeed                  float64 `yaml:"max_speed" json:"max_speed"`
	DeltaSpeed                float64 `yaml:"delta_speed" json:"delta_speed"`
	SteeringSpeed             float64 `yaml:"steering_speed" json:"steering_speed"`
	ModeInputPin              int     `yaml:"mode_input_pin" json:"mode_input_pin"`
	ModeOutputPin             int     `yaml:"mode_output_pin" json:"mode_output_pin"`
	PowerOutputPin            int     `yaml:"power_output_pin" json:"power_output_pin"`
	AcceleratorForwardPin     int     `yaml:"accelerator_forward_pin" json:"accelerator_forward_pin"`
	AcceleratorBackwardPin    int     `yaml:"accelerator_backward_pin" json:"accelerator_backward_pin"`
	DistanceThresholdForward  uint8   `yaml:"distance_threshold_forward" json:"distance_threshold_forward"`
	DistanceThresholdBackward uint8   `yaml:"distance_threshold_backward" json:"distance_threshold_backward"`
}

func DefaultConfig() Config {
	return Config{
		MaxSpeed:               50,
		DeltaSpeed:             10,
		SteeringSpeed:          100,
		ModeInputPin:           13,
		ModeOutputPin:          4,
		PowerOutputPin:         0,
		AcceleratorForwardPin:  12,
		AcceleratorBackwardPin: 14,
	}
}

// merge copies update over c. Non-positive speeds are ignored and the max speed is kept within
// [DeltaSpeed, 100].
func (c Config) merge(update Config) Config {
	maxSpeed := c.MaxSpeed
	if update.DeltaSpeed > 0 {
		c.DeltaSpeed = clampSpeed(update.DeltaSpeed, 0, 100)
	}
	if update.SteeringSpeed > 0 {
		c.SteeringSpeed = clampSpeed(update.SteeringSpeed, 0, 100)
	}
	if update.MaxSpeed > 0 {
		maxSpeed = update.MaxSpeed
	}
	c.MaxSpeed = clampSpeed(maxSpeed, c.DeltaSpeed, 100)

	c.ModeInputPin = update.ModeInputPin
	c.ModeOutputPin = update.ModeOutputPin
	c.PowerOutputPin = update.PowerOutputPin
	c.AcceleratorForwardPin = update.AcceleratorForwardPin
	c.AcceleratorBackwardPin = update.AcceleratorBackwardPin
	c.DistanceThresholdForward = update.DistanceThresholdForward
	c.DistanceThresholdBackward = update.DistanceThresholdBackward
	return c
}

// FileConfig is the layout of the YAML defaults file.
type FileConfig struct {
	Version    string               `yaml:"version"`
	Supercar   Config               `yaml:"supercar"`
	Propulsion hardware.MotorConfig `yaml:"propulsion"`
	Steering   hardware.MotorConfig `yaml:"steering"`
}

func DefaultFileConfig() FileConfig {
	return FileConfig{
		Version:    "1.0.0",
		Supercar:   DefaultConfig(),
		Propulsion: hardware.DefaultMotorConfig(PROPULSION_PWM_PIN, PROPULSION_DIRECTION_PIN),
		Steering:   hardware.DefaultMotorConfig(STEERING_PWM_PIN, STEERING_DIRECTION_PIN),
	}
}

// ParseConfig reads a YAML defaults file over the compiled defaults, so fields absent from the
// file keep their default value.
func ParseConfig(data []byte) (config FileConfig, err error) {
	config = DefaultFileConfig()
	if err = yaml.Unmarshal(data, &config); err != nil {
		return config, pkgerrors.Wrap(err, "unable to unmarshal config")
	}

	version, err := semver.NewVersion(config.Version)
	if err != nil {
		return config, errors.ConfigVersionError{Have: config.Version, Want: CONFIG_VERSION}
	}

	constraint, err := semver.NewConstraint(CONFIG_VERSION)
	if err != nil {
		return
	}

	if !constraint.Check(version) {
		err = errors.ConfigVersionError{Have: config.Version, Want: CONFIG_VERSION}
	}

	return
}

// LoadConfigFile reads filename. A missing file is not an error and yields the defaults.
func LoadConfigFile(filename string) (config FileConfig, err error) {
	data, err := ioutil.ReadFile(filename)
	if os.IsNotExist(err) {
		return DefaultFileConfig(), nil
	} else if err != nil {
		return DefaultFileConfig(), pkgerrors.Wrapf(err, "unable to read config %s", filename)
	}

	return ParseConfig(data)
}
