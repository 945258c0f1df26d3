package fake

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"go.viam.com/test"
)

func TestMovementSensor(t *testing.T) {
	ctx := context.Background()
	ms := NewMovementSensor("gyro")

	ms.SetYaw(200)
	heading, err := ms.Heading(ctx, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, heading, test.ShouldAlmostEqual, -160)

	test.That(t, ms.ResetHeading(ctx, nil), test.ShouldBeNil)
	heading, err = ms.Heading(ctx, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, heading, test.ShouldAlmostEqual, 0)

	ms.Integrate(math.Pi/2, time.Second)
	heading, err = ms.Heading(ctx, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, heading, test.ShouldAlmostEqual, 90)

	ms.SetHeadingErr(errors.New("i2c nack"))
	_, err = ms.Heading(ctx, nil)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "gyro")
}
