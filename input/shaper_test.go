package input

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestDeadband(t *testing.T) {
	for _, d := range []float64{0, 0.05, 0.1, 0.5} {
		for x := -d; x <= d; x += d / 10 {
			if d == 0 {
				break
			}
			test.That(t, Deadband(x, d), test.ShouldEqual, 0)
		}
		test.That(t, Deadband(d, d), test.ShouldEqual, 0)
		test.That(t, Deadband(-d, d), test.ShouldEqual, 0)
		test.That(t, Deadband(1, d), test.ShouldAlmostEqual, 1)
		test.That(t, Deadband(-1, d), test.ShouldAlmostEqual, -1)

		// Continuous just past the edge.
		test.That(t, math.Abs(Deadband(d+1e-9, d)), test.ShouldBeLessThan, 1e-6)
		test.That(t, math.Abs(Deadband(-d-1e-9, d)), test.ShouldBeLessThan, 1e-6)
	}

	test.That(t, Deadband(0.55, 0.1), test.ShouldAlmostEqual, 0.5)
	test.That(t, Deadband(-0.55, 0.1), test.ShouldAlmostEqual, -0.5)
	test.That(t, Deadband(1.5, 0.1), test.ShouldEqual, 1)
}

func TestDeadbandMonotonic(t *testing.T) {
	prev := Deadband(-1, 0.1)
	for x := -1.0; x <= 1.0; x += 0.01 {
		out := Deadband(x, 0.1)
		test.That(t, out, test.ShouldBeGreaterThanOrEqualTo, prev)
		prev = out
	}
}

func TestSlewRateLimiter(t *testing.T) {
	s := NewSlewRateLimiter(2, 0)
	test.That(t, s.Calculate(1, 0.1), test.ShouldAlmostEqual, 0.2)
	test.That(t, s.Calculate(1, 0.1), test.ShouldAlmostEqual, 0.4)
	test.That(t, s.Calculate(-1, 0.1), test.ShouldAlmostEqual, 0.2)
	test.That(t, s.Calculate(0.25, 0.1), test.ShouldAlmostEqual, 0.25)

	s.Reset(0)
	test.That(t, s.Calculate(1, 0.02), test.ShouldAlmostEqual, 0.04)

	// A non-positive dt never moves the output.
	test.That(t, s.Calculate(1, -1), test.ShouldAlmostEqual, 0.04)

	unlimited := &SlewRateLimiter{}
	test.That(t, unlimited.Calculate(0.9, 0.02), test.ShouldEqual, 0.9)
}

func TestEdgeDetector(t *testing.T) {
	var e EdgeDetector
	test.That(t, e.Rising(false), test.ShouldBeFalse)
	test.That(t, e.Rising(true), test.ShouldBeTrue)
	test.That(t, e.Rising(true), test.ShouldBeFalse)
	test.That(t, e.Rising(false), test.ShouldBeFalse)
	test.That(t, e.Rising(true), test.ShouldBeTrue)

	e.Reset(true)
	test.That(t, e.Rising(true), test.ShouldBeFalse)
}

func TestShaper(t *testing.T) {
	s := NewShaper(
		AxisConfig{Control: AbsoluteY, Deadband: 0.1, SlewRate: 3, Invert: true},
		AxisConfig{Control: AbsoluteX, Deadband: 0.1},
		AxisConfig{Control: AbsoluteRX, Deadband: 0.2, SlewRate: 10},
		4, 2*math.Pi,
	)

	snap := Snapshot{Axes: map[Control]float64{AbsoluteY: -1, AbsoluteX: 0.05, AbsoluteRX: 1}}
	out := s.Shape(snap, 0.02)
	// Stick pulled back on the Y axis means forward.
	test.That(t, out.Forward, test.ShouldAlmostEqual, 3*4*0.02)
	test.That(t, out.Strafe, test.ShouldEqual, 0)
	test.That(t, out.Rotation, test.ShouldAlmostEqual, 10*2*math.Pi*0.02)

	for i := 0; i < 200; i++ {
		out = s.Shape(snap, 0.02)
	}
	test.That(t, out.Forward, test.ShouldAlmostEqual, 4)
	test.That(t, out.Rotation, test.ShouldAlmostEqual, 2*math.Pi)

	s.Reset()
	out = s.Shape(Snapshot{}, 0.02)
	test.That(t, out.Forward, test.ShouldEqual, 0)
	test.That(t, out.Rotation, test.ShouldEqual, 0)
}
