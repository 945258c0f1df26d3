package swerve

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/swerve/components/swervemodule"
	"go.viam.com/swerve/spatialmath"
)

// Config is how you configure a swerve drivetrain.
type Config struct {
	// MaxSpeed is the fastest a module can physically drive, in m/s.
	MaxSpeed float64 `json:"max_speed_mps"`
	// MaxAngularSpeed is the fastest commanded chassis rotation, in rad/s.
	MaxAngularSpeed float64 `json:"max_angular_speed_radps"`
	// FieldRelative is the initial state of field relative driving.
	FieldRelative bool `json:"field_relative"`
	// OpenLoop drives wheels by power instead of closed loop velocity.
	OpenLoop bool `json:"open_loop,omitempty"`
	// RotationCenterX and RotationCenterY offset the center of rotation from the chassis center.
	RotationCenterX float64 `json:"rotation_center_x_m,omitempty"`
	RotationCenterY float64 `json:"rotation_center_y_m,omitempty"`

	MovementSensor string                `json:"movement_sensor"`
	Modules        []swervemodule.Config `json:"modules"`
}

// Validate ensures all parts of the config are valid and returns the hardware it depends on.
func (cfg *Config) Validate(path string) ([]string, error) {
	if cfg.MaxSpeed <= 0 || math.IsInf(cfg.MaxSpeed, 0) || math.IsNaN(cfg.MaxSpeed) {
		return nil, utils.NewConfigValidationFieldRequiredError(path, "max_speed_mps")
	}
	if cfg.MaxAngularSpeed <= 0 || math.IsInf(cfg.MaxAngularSpeed, 0) || math.IsNaN(cfg.MaxAngularSpeed) {
		return nil, utils.NewConfigValidationFieldRequiredError(path, "max_angular_speed_radps")
	}
	if cfg.MovementSensor == "" {
		return nil, utils.NewConfigValidationFieldRequiredError(path, "movement_sensor")
	}
	if len(cfg.Modules) < 2 {
		return nil, utils.NewConfigValidationError(path,
			fmt.Errorf("a swerve drivetrain needs at least 2 modules, got %d", len(cfg.Modules)))
	}

	deps := []string{cfg.MovementSensor}
	names := map[string]struct{}{}
	for i := range cfg.Modules {
		modPath := fmt.Sprintf("%s.modules.%d", path, i)
		modDeps, err := cfg.Modules[i].Validate(modPath)
		if err != nil {
			return nil, err
		}
		if _, ok := names[cfg.Modules[i].Name]; ok {
			return nil, utils.NewConfigValidationError(modPath,
				errors.Errorf("duplicate module name %q", cfg.Modules[i].Name))
		}
		names[cfg.Modules[i].Name] = struct{}{}
		if reachable := cfg.Modules[i].MaxAchievableSpeed(); !cfg.OpenLoop && cfg.MaxSpeed > reachable {
			return nil, utils.NewConfigValidationError(modPath, errors.Errorf(
				"max_speed_mps %.2f is faster than the %.2f m/s the drive feedforward can reach", cfg.MaxSpeed, reachable))
		}
		deps = append(deps, modDeps...)
	}
	return deps, nil
}

// RotationCenter returns the configured center of rotation.
func (cfg *Config) RotationCenter() spatialmath.Translation2D {
	return spatialmath.NewTranslation2D(cfg.RotationCenterX, cfg.RotationCenterY)
}
