package kinematics

import (
	"math"

	"go.viam.com/swerve/spatialmath"
)

// flipThresholdDeg is compared against with a small tolerance so a delta of ±90° computed through
// floating point stays on the unflipped side.
const flipThresholdDeg = 90 + 1e-9

// Optimize returns the state equivalent to target that needs the least steering travel from current.
// The delta from current to target is wrapped into (-180°, 180°]. When its magnitude exceeds 90° the
// wheel turns to the opposite heading and the speed is negated. A delta of exactly ±90° is kept
// unflipped. The returned angle is normalized.
func Optimize(target ModuleState, current spatialmath.Rotation2D) ModuleState {
	delta := current.ShortestTo(target.Angle)
	if math.Abs(delta.Degrees()) > flipThresholdDeg {
		return ModuleState{Angle: target.Angle.Flipped(), Speed: -target.Speed}
	}
	return ModuleState{Angle: target.Angle.Normalized(), Speed: target.Speed}
}
