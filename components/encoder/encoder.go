// Package encoder defines the sensors that measure wheel travel and steering angle.
package encoder

import (
	"context"

	"github.com/pkg/errors"
)

// ErrStale is wrapped by reads that could not produce a fresh value.
var ErrStale = errors.New("encoder reading is stale")

// An Encoder counts ticks of a motor shaft relative to an adjustable zero.
type Encoder interface {
	// Name returns the configured name of the encoder.
	Name() string

	// Position returns the current position in ticks.
	Position(ctx context.Context, extra map[string]interface{}) (float64, error)

	// Velocity returns the current rate in ticks per second.
	Velocity(ctx context.Context, extra map[string]interface{}) (float64, error)

	// ResetPosition makes the current position read as ticks.
	ResetPosition(ctx context.Context, ticks float64, extra map[string]interface{}) error
}

// An AbsoluteEncoder reports an angle that survives power loss.
type AbsoluteEncoder interface {
	// Name returns the configured name of the encoder.
	Name() string

	// AbsoluteDegrees returns the raw sensor angle in degrees, counterclockwise positive.
	AbsoluteDegrees(ctx context.Context, extra map[string]interface{}) (float64, error)
}

// NewDisconnectedError returns an error for an encoder that does not respond.
func NewDisconnectedError(name string) error {
	return errors.Wrapf(ErrStale, "encoder %s is disconnected", name)
}

// IsStale reports whether err came from a stale or missing reading.
func IsStale(err error) bool {
	return errors.Is(err, ErrStale)
}
