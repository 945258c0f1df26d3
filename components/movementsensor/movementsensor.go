// Package movementsensor defines the orientation sensor that supplies the robot heading.
package movementsensor

import (
	"context"

	"github.com/pkg/errors"
)

// A MovementSensor reports the robot's yaw.
type MovementSensor interface {
	// Name returns the configured name of the sensor.
	Name() string

	// Heading returns the yaw in degrees, counterclockwise positive, relative to the last reset.
	Heading(ctx context.Context, extra map[string]interface{}) (float64, error)

	// ResetHeading makes the current yaw read as zero.
	ResetHeading(ctx context.Context, extra map[string]interface{}) error
}

// NewHeadingUnavailableError returns an error for a sensor that could not produce a heading.
func NewHeadingUnavailableError(name string, cause error) error {
	if cause == nil {
		return errors.Errorf("movement sensor %s has no heading", name)
	}
	return errors.Wrapf(cause, "movement sensor %s has no heading", name)
}
