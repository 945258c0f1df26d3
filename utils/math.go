// Package utils contains small numeric helpers shared by the drivetrain packages.
package utils

import (
	"math"
)

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// ModAngDeg returns the angle wrapped into [0, 360).
func ModAngDeg(ang float64) float64 {
	return math.Mod(math.Mod(ang, 360)+360, 360)
}

// WrapDeg180 returns the angle wrapped into (-180, 180].
func WrapDeg180(ang float64) float64 {
	wrapped := ModAngDeg(ang)
	if wrapped > 180 {
		wrapped -= 360
	}
	return wrapped
}

// InputModulus wraps value into [minInput, maxInput). Used for continuous controller inputs.
func InputModulus(value, minInput, maxInput float64) float64 {
	modulus := maxInput - minInput
	numMax := math.Trunc((value - minInput) / modulus)
	value -= numMax * modulus
	numMin := math.Trunc((value - maxInput) / modulus)
	value -= numMin * modulus
	return value
}

// Clamp limits value to [lo, hi].
func Clamp(value, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, value))
}

// Sign returns -1, 0 or 1.
func Sign(value float64) float64 {
	switch {
	case value > 0:
		return 1
	case value < 0:
		return -1
	default:
		return 0
	}
}
