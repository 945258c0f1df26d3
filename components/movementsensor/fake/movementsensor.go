// Package fake implements a fake movement sensor whose heading is set directly or integrated from a
// simulated yaw rate.
package fake

import (
	"context"
	"math"
	"sync"
	"time"

	"go.viam.com/swerve/components/movementsensor"
	"go.viam.com/swerve/utils"
)

// MovementSensor is a fake gyro.
type MovementSensor struct {
	mu     sync.Mutex
	name   string
	yaw    float64
	offset float64
	// HeadingErr, when set, is returned by Heading.
	HeadingErr error
}

// NewMovementSensor returns a sensor at heading zero.
func NewMovementSensor(name string) *MovementSensor {
	return &MovementSensor{name: name}
}

// Name returns the name of the sensor.
func (ms *MovementSensor) Name() string {
	return ms.name
}

// Heading returns the yaw relative to the last reset, in (-180, 180].
func (ms *MovementSensor) Heading(ctx context.Context, extra map[string]interface{}) (float64, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.HeadingErr != nil {
		return 0, movementsensor.NewHeadingUnavailableError(ms.name, ms.HeadingErr)
	}
	return utils.WrapDeg180(ms.yaw - ms.offset), nil
}

// ResetHeading zeroes the reported heading at the current yaw.
func (ms *MovementSensor) ResetHeading(ctx context.Context, extra map[string]interface{}) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.offset = ms.yaw
	return nil
}

// SetYaw sets the true yaw in degrees.
func (ms *MovementSensor) SetYaw(deg float64) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.yaw = deg
}

// SetHeadingErr makes subsequent reads fail with err, or succeed when err is nil.
func (ms *MovementSensor) SetHeadingErr(err error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.HeadingErr = err
}

// Integrate turns the sensor by omega rad/s for dt.
func (ms *MovementSensor) Integrate(omega float64, dt time.Duration) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.yaw = math.Mod(ms.yaw+utils.RadToDeg(omega*dt.Seconds()), 360)
}
