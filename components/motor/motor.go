// Package motor defines the actuators that turn a module's wheel and steering gear.
package motor

import (
	"context"
	"math"
)

// A Motor is driven by a normalized power command.
type Motor interface {
	// Name returns the configured name of the motor.
	Name() string

	// SetPower sets the percentage of power the motor should employ between -1 and 1.
	// Negative power corresponds to a backward direction of rotation.
	SetPower(ctx context.Context, powerPct float64, extra map[string]interface{}) error

	// Stop cuts power to the motor.
	Stop(ctx context.Context, extra map[string]interface{}) error

	// IsPowered returns whether or not the motor is currently on, and the percent power.
	IsPowered(ctx context.Context, extra map[string]interface{}) (bool, float64, error)
}

// CheckPower validates a power command, returning the value clamped to [-1, 1].
func CheckPower(name string, powerPct float64) (float64, error) {
	if math.IsNaN(powerPct) || math.IsInf(powerPct, 0) {
		return 0, NewInvalidPowerError(name, powerPct)
	}
	return math.Max(-1, math.Min(1, powerPct)), nil
}
