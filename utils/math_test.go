package utils

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestAngleConversions(t *testing.T) {
	test.That(t, RadToDeg(math.Pi/2), test.ShouldAlmostEqual, 90)
	test.That(t, RadToDeg(-math.Pi), test.ShouldAlmostEqual, -180)
	test.That(t, ModAngDeg(-90), test.ShouldAlmostEqual, 270)
}

func TestWrapDeg180(t *testing.T) {
	for _, c := range []struct {
		in  float64
		out float64
	}{
		{0, 0},
		{180, 180},
		{-180, 180},
		{190, -170},
		{-190, 170},
		{540, 180},
		{359, -1},
		{-721, -1},
	} {
		test.That(t, WrapDeg180(c.in), test.ShouldAlmostEqual, c.out)
	}
}

func TestInputModulus(t *testing.T) {
	test.That(t, InputModulus(190, -180, 180), test.ShouldAlmostEqual, -170)
	test.That(t, InputModulus(-190, -180, 180), test.ShouldAlmostEqual, 170)
	test.That(t, InputModulus(45, -180, 180), test.ShouldAlmostEqual, 45)
	test.That(t, InputModulus(-340, -180, 180), test.ShouldAlmostEqual, 20)
}

func TestClampAndSign(t *testing.T) {
	test.That(t, Clamp(1.5, -1, 1), test.ShouldEqual, 1)
	test.That(t, Clamp(-1.5, -1, 1), test.ShouldEqual, -1)
	test.That(t, Clamp(0.25, -1, 1), test.ShouldEqual, 0.25)
	test.That(t, Sign(-3), test.ShouldEqual, -1)
	test.That(t, Sign(0), test.ShouldEqual, 0)
	test.That(t, Sign(2), test.ShouldEqual, 1)
}
