// Package fake implements fake relative and absolute encoders.
package fake

import (
	"context"
	"sync"
	"time"

	"go.viam.com/swerve/components/encoder"
	"go.viam.com/swerve/utils"
)

// Encoder keeps track of a fake motor position.
type Encoder struct {
	mu        sync.Mutex
	name      string
	position  float64
	velocity  float64
	connected bool

	// AbsoluteOffsetDeg and DegreesPerTick let the encoder also act as an absolute sensor, as a
	// magnet sensor on the steering shaft would. The absolute reading is
	// position·DegreesPerTick + AbsoluteOffsetDeg, wrapped into (-180, 180].
	AbsoluteOffsetDeg float64
	DegreesPerTick    float64
	absTicks          float64
}

// NewEncoder returns a connected encoder at zero.
func NewEncoder(name string) *Encoder {
	return &Encoder{name: name, connected: true}
}

// Name returns the name of the encoder.
func (e *Encoder) Name() string {
	return e.name
}

// Position returns the current position in ticks.
func (e *Encoder) Position(ctx context.Context, extra map[string]interface{}) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.connected {
		return 0, encoder.NewDisconnectedError(e.name)
	}
	return e.position, nil
}

// Velocity returns the current rate in ticks per second.
func (e *Encoder) Velocity(ctx context.Context, extra map[string]interface{}) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.connected {
		return 0, encoder.NewDisconnectedError(e.name)
	}
	return e.velocity, nil
}

// ResetPosition makes the current position read as ticks.
func (e *Encoder) ResetPosition(ctx context.Context, ticks float64, extra map[string]interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.connected {
		return encoder.NewDisconnectedError(e.name)
	}
	e.position = ticks
	return nil
}

// AbsoluteDegrees returns the simulated absolute angle.
func (e *Encoder) AbsoluteDegrees(ctx context.Context, extra map[string]interface{}) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.connected {
		return 0, encoder.NewDisconnectedError(e.name)
	}
	return utils.WrapDeg180(e.absTicks*e.DegreesPerTick + e.AbsoluteOffsetDeg), nil
}

// SetPosition moves the encoder to ticks, as if the shaft had been turned by hand.
func (e *Encoder) SetPosition(ticks float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.absTicks += ticks - e.position
	e.position = ticks
}

// SetVelocity sets the reported rate.
func (e *Encoder) SetVelocity(ticksPerSec float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.velocity = ticksPerSec
}

// SetConnected simulates unplugging and replugging the sensor.
func (e *Encoder) SetConnected(connected bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connected = connected
}

// Advance integrates a rate over dt.
func (e *Encoder) Advance(ticksPerSec float64, dt time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.velocity = ticksPerSec
	delta := ticksPerSec * dt.Seconds()
	e.position += delta
	e.absTicks += delta
}
