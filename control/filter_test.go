package control

import (
	"testing"

	"go.viam.com/test"
)

func TestMovingAverageFilter(t *testing.T) {
	_, err := NewMovingAverageFilter(0)
	test.That(t, err, test.ShouldNotBeNil)

	f, err := NewMovingAverageFilter(3)
	test.That(t, err, test.ShouldBeNil)

	for _, c := range []struct {
		in   float64
		out  float64
		full bool
	}{
		{3, 3, false},
		{6, 4.5, false},
		{9, 6, true},
		{0, 5, true},
		{0, 3, true},
		{0, 0, true},
	} {
		out, full := f.Next(c.in)
		test.That(t, out, test.ShouldAlmostEqual, c.out)
		test.That(t, full, test.ShouldEqual, c.full)
	}

	f.Reset()
	out, full := f.Next(7)
	test.That(t, out, test.ShouldEqual, 7)
	test.That(t, full, test.ShouldBeFalse)

	passthrough, err := NewMovingAverageFilter(1)
	test.That(t, err, test.ShouldBeNil)
	out, full = passthrough.Next(2.5)
	test.That(t, out, test.ShouldEqual, 2.5)
	test.That(t, full, test.ShouldBeTrue)
}
