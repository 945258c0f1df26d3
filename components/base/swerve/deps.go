package swerve

import (
	"github.com/pkg/errors"

	"go.viam.com/swerve/components/encoder"
	"go.viam.com/swerve/components/motor"
	"go.viam.com/swerve/components/movementsensor"
	"go.viam.com/swerve/components/swervemodule"
)

// Dependencies holds the hardware a drivetrain config refers to by name.
type Dependencies struct {
	Motors           map[string]motor.Motor
	Encoders         map[string]encoder.Encoder
	AbsoluteEncoders map[string]encoder.AbsoluteEncoder
	MovementSensors  map[string]movementsensor.MovementSensor
}

// NewDependencies returns empty dependency maps.
func NewDependencies() Dependencies {
	return Dependencies{
		Motors:           map[string]motor.Motor{},
		Encoders:         map[string]encoder.Encoder{},
		AbsoluteEncoders: map[string]encoder.AbsoluteEncoder{},
		MovementSensors:  map[string]movementsensor.MovementSensor{},
	}
}

// NewDependencyNotFoundError returns an error for a name the config uses but nothing provides.
func NewDependencyNotFoundError(kind, name string) error {
	return errors.Errorf("%s %q not found in dependencies", kind, name)
}

func lookup[T any](deps map[string]T, kind, name string) (T, error) {
	v, ok := deps[name]
	if !ok {
		var zero T
		return zero, NewDependencyNotFoundError(kind, name)
	}
	return v, nil
}

// ModuleHardware resolves the devices one module config names.
func (deps Dependencies) ModuleHardware(cfg swervemodule.Config) (swervemodule.Hardware, error) {
	var hw swervemodule.Hardware
	var err error
	if hw.DriveMotor, err = lookup(deps.Motors, "motor", cfg.DriveMotor); err != nil {
		return hw, err
	}
	if hw.SteerMotor, err = lookup(deps.Motors, "motor", cfg.SteerMotor); err != nil {
		return hw, err
	}
	if hw.DriveEncoder, err = lookup(deps.Encoders, "encoder", cfg.DriveEncoder); err != nil {
		return hw, err
	}
	if hw.SteerEncoder, err = lookup(deps.Encoders, "encoder", cfg.SteerEncoder); err != nil {
		return hw, err
	}
	if hw.AbsoluteEncoder, err = lookup(deps.AbsoluteEncoders, "absolute encoder", cfg.AbsoluteEncoder); err != nil {
		return hw, err
	}
	return hw, nil
}

// MovementSensor resolves the heading sensor.
func (deps Dependencies) MovementSensor(name string) (movementsensor.MovementSensor, error) {
	return lookup(deps.MovementSensors, "movement sensor", name)
}
