package motor

import "github.com/pkg/errors"

// NewInvalidPowerError returns an error for a power command that is not a finite number.
func NewInvalidPowerError(motorName string, powerPct float64) error {
	return errors.Errorf("motor named %s was commanded an invalid power %v", motorName, powerPct)
}

// NewMotorFaultError returns an error representing a motor controller that stopped responding.
func NewMotorFaultError(motorName string, cause error) error {
	return errors.Wrapf(cause, "motor named %s faulted", motorName)
}
