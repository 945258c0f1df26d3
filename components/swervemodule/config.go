package swervemodule

import (
	"fmt"
	"math"

	"go.viam.com/utils"

	"go.viam.com/swerve/control"
)

// DefaultNominalVoltage is the battery voltage closed loop drive commands are normalized against.
const DefaultNominalVoltage = 12.0

// Config is how you configure one swerve module.
type Config struct {
	Name string `json:"name"`
	// X and Y locate the module relative to the chassis center, X forward and Y left.
	X float64 `json:"x_m"`
	Y float64 `json:"y_m"`

	DriveMotor      string `json:"drive_motor"`
	SteerMotor      string `json:"steer_motor"`
	DriveEncoder    string `json:"drive_encoder"`
	SteerEncoder    string `json:"steer_encoder"`
	AbsoluteEncoder string `json:"absolute_encoder"`

	// AngleOffsetDeg is the absolute encoder reading when the wheel points forward.
	// Leaving it unset means the module has never been calibrated.
	AngleOffsetDeg *float64 `json:"angle_offset_deg,omitempty"`

	DriveMetersPerTick  float64 `json:"drive_meters_per_tick"`
	SteerDegreesPerTick float64 `json:"steer_degrees_per_tick"`

	SteerPID       control.PIDConfig              `json:"steer_pid"`
	DrivePID       control.PIDConfig              `json:"drive_pid"`
	DriveFF        control.SimpleMotorFeedforward `json:"drive_feedforward"`
	NominalVoltage float64                        `json:"nominal_voltage,omitempty"`
	// VelocityFilterSize averages the drive velocity over this many cycles. Zero or one disables it.
	VelocityFilterSize int  `json:"velocity_filter_size,omitempty"`
	DriveInverted      bool `json:"drive_inverted,omitempty"`
	SteerInverted      bool `json:"steer_inverted,omitempty"`
}

// Validate ensures all parts of the config are valid and returns the hardware it depends on.
func (cfg *Config) Validate(path string) ([]string, error) {
	if cfg.Name == "" {
		return nil, utils.NewConfigValidationFieldRequiredError(path, "name")
	}
	for _, required := range []struct{ field, name string }{
		{"drive_motor", cfg.DriveMotor},
		{"steer_motor", cfg.SteerMotor},
		{"drive_encoder", cfg.DriveEncoder},
		{"steer_encoder", cfg.SteerEncoder},
		{"absolute_encoder", cfg.AbsoluteEncoder},
	} {
		if required.name == "" {
			return nil, utils.NewConfigValidationFieldRequiredError(path, required.field)
		}
	}
	if math.IsNaN(cfg.X) || math.IsNaN(cfg.Y) || math.IsInf(cfg.X, 0) || math.IsInf(cfg.Y, 0) {
		return nil, utils.NewConfigValidationError(path, fmt.Errorf("module location (%v, %v) is not finite", cfg.X, cfg.Y))
	}
	if cfg.DriveMetersPerTick == 0 {
		return nil, utils.NewConfigValidationFieldRequiredError(path, "drive_meters_per_tick")
	}
	if cfg.SteerDegreesPerTick == 0 {
		return nil, utils.NewConfigValidationFieldRequiredError(path, "steer_degrees_per_tick")
	}
	if cfg.AngleOffsetDeg != nil && (math.IsNaN(*cfg.AngleOffsetDeg) || math.IsInf(*cfg.AngleOffsetDeg, 0)) {
		return nil, utils.NewConfigValidationError(path, fmt.Errorf("angle_offset_deg %v is not finite", *cfg.AngleOffsetDeg))
	}
	if err := cfg.SteerPID.Validate(); err != nil {
		return nil, utils.NewConfigValidationError(path+".steer_pid", err)
	}
	if err := cfg.DrivePID.Validate(); err != nil {
		return nil, utils.NewConfigValidationError(path+".drive_pid", err)
	}
	if cfg.VelocityFilterSize < 0 {
		return nil, utils.NewConfigValidationError(path, fmt.Errorf("velocity_filter_size must not be negative, got %d", cfg.VelocityFilterSize))
	}
	if cfg.NominalVoltage < 0 {
		return nil, utils.NewConfigValidationError(path, fmt.Errorf("nominal_voltage must be positive, got %v", cfg.NominalVoltage))
	}
	return []string{cfg.DriveMotor, cfg.SteerMotor, cfg.DriveEncoder, cfg.SteerEncoder, cfg.AbsoluteEncoder}, nil
}

func (cfg *Config) nominalVoltage() float64 {
	if cfg.NominalVoltage == 0 {
		return DefaultNominalVoltage
	}
	return cfg.NominalVoltage
}

// MaxAchievableSpeed is the steady state speed the drive feedforward predicts at the nominal
// voltage, in m/s. It is +Inf when no velocity gain is configured.
func (cfg *Config) MaxAchievableSpeed() float64 {
	if cfg.DriveFF.KV <= 0 {
		return math.Inf(1)
	}
	return cfg.DriveFF.MaxAchievableVelocity(cfg.nominalVoltage(), 0)
}
