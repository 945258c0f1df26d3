// Package config defines the top level configuration of a swerve robot process and how it is read.
package config

import (
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/swerve/components/base/swerve"
	"go.viam.com/swerve/input"
	"go.viam.com/swerve/input/mqtt"
)

// Defaults applied by Ensure when a field is left empty.
const (
	DefaultLoopPeriod        = 20 * time.Millisecond
	DefaultTelemetryInterval = 100 * time.Millisecond
	DefaultTelemetryTopic    = "swerve/telemetry"
)

// Config is the whole of a swerve robot process configuration.
type Config struct {
	Drivetrain swerve.Config   `json:"drivetrain"`
	Teleop     TeleopConfig    `json:"teleop"`
	Loop       LoopConfig      `json:"loop"`
	Telemetry  TelemetryConfig `json:"telemetry"`
	// Input, when set, drives the robot from snapshots published on MQTT instead of idling.
	Input *mqtt.Config `json:"mqtt_input,omitempty"`
	Sim   SimConfig    `json:"sim"`
	// LogLevel is one of debug, info, warn or error.
	LogLevel string `json:"log_level,omitempty"`

	ConfigFilePath string `json:"-"`
}

// TeleopConfig shapes a gamepad into chassis speeds.
type TeleopConfig struct {
	Forward  input.AxisConfig       `json:"forward"`
	Strafe   input.AxisConfig       `json:"strafe"`
	Rotation input.AxisConfig       `json:"rotation"`
	Bindings *swerve.TeleopBindings `json:"bindings,omitempty"`
}

// LoopConfig configures the fixed period control loop.
type LoopConfig struct {
	Period time.Duration `json:"period"`
}

// TelemetryConfig selects where drivetrain status is published.
type TelemetryConfig struct {
	Interval time.Duration `json:"interval"`
	// Log writes every record to the process log at debug level.
	Log bool `json:"log,omitempty"`
	// MQTTBroker and MQTTTopic publish records as JSON when the broker is set.
	MQTTBroker string `json:"mqtt_broker,omitempty"`
	MQTTTopic  string `json:"mqtt_topic,omitempty"`
	// WebsocketAddress serves records to dashboards at ws://<address>/telemetry when set.
	WebsocketAddress string `json:"websocket_address,omitempty"`
}

// SimConfig parameterizes the simulated hardware used when no real devices are attached.
type SimConfig struct {
	// DriveTicksPerSec and SteerTicksPerSec are the encoder rates at full power.
	DriveTicksPerSec float64       `json:"drive_ticks_per_sec"`
	SteerTicksPerSec float64       `json:"steer_ticks_per_sec"`
	TimeConstant     time.Duration `json:"time_constant"`
	// AbsoluteOffsetsDeg is what each module's absolute encoder reads with the wheel forward, by
	// module name. Missing names read zero.
	AbsoluteOffsetsDeg map[string]float64 `json:"absolute_offsets_deg,omitempty"`
}

// Ensure fills in defaults and validates the config.
func (c *Config) Ensure() error {
	if c.Loop.Period == 0 {
		c.Loop.Period = DefaultLoopPeriod
	}
	if c.Telemetry.Interval == 0 {
		c.Telemetry.Interval = DefaultTelemetryInterval
	}
	if c.Telemetry.MQTTBroker != "" && c.Telemetry.MQTTTopic == "" {
		c.Telemetry.MQTTTopic = DefaultTelemetryTopic
	}
	if c.Teleop.Bindings == nil {
		bindings := swerve.DefaultTeleopBindings
		c.Teleop.Bindings = &bindings
	}
	if c.Input != nil && c.Input.Timeout == 0 {
		c.Input.Timeout = mqtt.DefaultTimeout
	}
	_, err := c.Validate()
	return err
}

// Validate checks every section and returns the hardware names the drivetrain depends on.
func (c *Config) Validate() ([]string, error) {
	deps, err := c.Drivetrain.Validate("drivetrain")
	if err != nil {
		return nil, err
	}
	if c.Loop.Period < time.Millisecond {
		return nil, utils.NewConfigValidationError("loop",
			errors.Errorf("period must be at least 1ms, got %v", c.Loop.Period))
	}
	if c.Telemetry.Interval < 0 {
		return nil, utils.NewConfigValidationError("telemetry",
			errors.Errorf("interval must not be negative, got %v", c.Telemetry.Interval))
	}
	for name, axis := range map[string]input.AxisConfig{
		"forward":  c.Teleop.Forward,
		"strafe":   c.Teleop.Strafe,
		"rotation": c.Teleop.Rotation,
	} {
		if err := validateAxis(fmt.Sprintf("teleop.%s", name), axis); err != nil {
			return nil, err
		}
	}
	if c.Input != nil {
		if c.Input.Broker == "" {
			return nil, utils.NewConfigValidationFieldRequiredError("mqtt_input", "broker")
		}
		if c.Input.Topic == "" {
			return nil, utils.NewConfigValidationFieldRequiredError("mqtt_input", "topic")
		}
	}
	if c.Sim.DriveTicksPerSec < 0 || c.Sim.SteerTicksPerSec < 0 || c.Sim.TimeConstant < 0 {
		return nil, utils.NewConfigValidationError("sim", errors.New("rates and time constant must not be negative"))
	}
	return deps, nil
}

func validateAxis(path string, axis input.AxisConfig) error {
	if axis.Control == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "control")
	}
	if axis.Deadband < 0 || axis.Deadband >= 1 || math.IsNaN(axis.Deadband) {
		return utils.NewConfigValidationError(path, errors.Errorf("deadband must be in [0, 1), got %v", axis.Deadband))
	}
	if axis.SlewRate < 0 || math.IsNaN(axis.SlewRate) {
		return utils.NewConfigValidationError(path, errors.Errorf("slew_rate must not be negative, got %v", axis.SlewRate))
	}
	return nil
}

// Shaper builds the input shaper described by the teleop section.
func (c *Config) Shaper() *input.Shaper {
	return input.NewShaper(c.Teleop.Forward, c.Teleop.Strafe, c.Teleop.Rotation,
		c.Drivetrain.MaxSpeed, c.Drivetrain.MaxAngularSpeed)
}
