// Package kinematics converts between chassis motion and the states of independently steered
// wheel modules.
package kinematics

import (
	"fmt"

	"go.viam.com/swerve/spatialmath"
)

// ChassisSpeeds is a chassis velocity in the robot frame.
type ChassisSpeeds struct {
	// Vx is forward velocity in m/s.
	Vx float64 `json:"vx"`
	// Vy is leftward velocity in m/s.
	Vy float64 `json:"vy"`
	// Omega is counterclockwise angular velocity in rad/s.
	Omega float64 `json:"omega"`
}

// IsZero reports whether the chassis is commanded to hold still.
func (s ChassisSpeeds) IsZero() bool {
	return s.Vx == 0 && s.Vy == 0 && s.Omega == 0
}

// Translation returns (Vx, Vy) as a vector.
func (s ChassisSpeeds) Translation() spatialmath.Translation2D {
	return spatialmath.NewTranslation2D(s.Vx, s.Vy)
}

func (s ChassisSpeeds) String() string {
	return fmt.Sprintf("vx=%.3f vy=%.3f omega=%.3f", s.Vx, s.Vy, s.Omega)
}

// FromFieldRelative converts a field frame command into the robot frame given the robot's heading.
// Translation is rotated by the negative heading. With the robot facing +90° (turned left), a field
// forward command of (1, 0) becomes (0, -1): the robot must drive to its right. Omega is unchanged.
func FromFieldRelative(speeds ChassisSpeeds, heading spatialmath.Rotation2D) ChassisSpeeds {
	robot := speeds.Translation().RotateBy(heading.UnaryMinus())
	return ChassisSpeeds{Vx: robot.X, Vy: robot.Y, Omega: speeds.Omega}
}

// ModuleGeometry fixes a module's place on the chassis.
type ModuleGeometry struct {
	Index int
	Name  string
	// Location is the module's offset from the chassis center in meters, X forward and Y left.
	Location spatialmath.Translation2D
}

// ModuleState is a target or measured steering angle and signed wheel speed.
type ModuleState struct {
	Angle spatialmath.Rotation2D
	// Speed is in m/s. Negative drives the wheel backward along Angle.
	Speed float64
}

// Velocity returns the ground velocity of the wheel implied by the state.
func (s ModuleState) Velocity() spatialmath.Translation2D {
	return spatialmath.NewTranslation2DPolar(s.Speed, s.Angle)
}

func (s ModuleState) String() string {
	return fmt.Sprintf("%v @ %.3f m/s", s.Angle, s.Speed)
}

// ModulePosition is the accumulated travel of a module, for odometry consumers.
type ModulePosition struct {
	// Distance is the signed drive distance in meters since the encoder was last zeroed.
	Distance float64
	Angle    spatialmath.Rotation2D
}
