// Package spatialmath defines the planar geometry primitives used by the drivetrain:
// rotations, translations and rigid transforms in the robot and field frames.
//
// Frames are right handed with X forward, Y left and positive rotation counterclockwise
// when viewed from above.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/s1"
)

// Rotation2D is a planar rotation.
type Rotation2D struct {
	angle s1.Angle
}

// NewRotation2DFromDegrees returns a rotation of the given degrees.
func NewRotation2DFromDegrees(deg float64) Rotation2D {
	return Rotation2D{angle: s1.Angle(deg) * s1.Degree}
}

// NewRotation2DFromRadians returns a rotation of the given radians.
func NewRotation2DFromRadians(rad float64) Rotation2D {
	return Rotation2D{angle: s1.Angle(rad) * s1.Radian}
}

// Radians returns the rotation in radians.
func (r Rotation2D) Radians() float64 {
	return r.angle.Radians()
}

// Degrees returns the rotation in degrees.
func (r Rotation2D) Degrees() float64 {
	return r.angle.Degrees()
}

// Cos returns the cosine of the rotation.
func (r Rotation2D) Cos() float64 {
	return math.Cos(r.angle.Radians())
}

// Sin returns the sine of the rotation.
func (r Rotation2D) Sin() float64 {
	return math.Sin(r.angle.Radians())
}

// Plus adds two rotations.
func (r Rotation2D) Plus(other Rotation2D) Rotation2D {
	return Rotation2D{angle: r.angle + other.angle}
}

// Minus subtracts other from r.
func (r Rotation2D) Minus(other Rotation2D) Rotation2D {
	return Rotation2D{angle: r.angle - other.angle}
}

// UnaryMinus returns the inverse rotation.
func (r Rotation2D) UnaryMinus() Rotation2D {
	return Rotation2D{angle: -r.angle}
}

// Flipped returns the rotation turned by half a revolution, normalized.
func (r Rotation2D) Flipped() Rotation2D {
	return Rotation2D{angle: r.angle + math.Pi*s1.Radian}.Normalized()
}

// Normalized returns the equivalent rotation in (-180°, 180°].
func (r Rotation2D) Normalized() Rotation2D {
	return Rotation2D{angle: r.angle.Normalized()}
}

// ShortestTo returns the rotation that turns r onto target along the shortest path,
// in (-180°, 180°].
func (r Rotation2D) ShortestTo(target Rotation2D) Rotation2D {
	return target.Minus(r).Normalized()
}

func (r Rotation2D) String() string {
	return fmt.Sprintf("%.2f°", r.Degrees())
}

// Translation2D is a planar displacement or velocity vector, in meters or meters per second.
type Translation2D r2.Point

// NewTranslation2D returns the vector (x, y).
func NewTranslation2D(x, y float64) Translation2D {
	return Translation2D{X: x, Y: y}
}

// NewTranslation2DPolar returns a vector of the given length pointing along angle.
func NewTranslation2DPolar(length float64, angle Rotation2D) Translation2D {
	return Translation2D{X: length * angle.Cos(), Y: length * angle.Sin()}
}

// Plus adds two vectors.
func (t Translation2D) Plus(other Translation2D) Translation2D {
	return Translation2D(r2.Point(t).Add(r2.Point(other)))
}

// Minus subtracts other from t.
func (t Translation2D) Minus(other Translation2D) Translation2D {
	return Translation2D(r2.Point(t).Sub(r2.Point(other)))
}

// Times scales the vector.
func (t Translation2D) Times(scalar float64) Translation2D {
	return Translation2D(r2.Point(t).Mul(scalar))
}

// Norm returns the length of the vector.
func (t Translation2D) Norm() float64 {
	return r2.Point(t).Norm()
}

// DistanceTo returns the euclidean distance between two points.
func (t Translation2D) DistanceTo(other Translation2D) float64 {
	return t.Minus(other).Norm()
}

// Angle returns the direction of the vector. The zero vector points along +X.
func (t Translation2D) Angle() Rotation2D {
	return NewRotation2DFromRadians(math.Atan2(t.Y, t.X))
}

// RotateBy rotates the vector about the origin.
func (t Translation2D) RotateBy(r Rotation2D) Translation2D {
	c, s := r.Cos(), r.Sin()
	return Translation2D{X: t.X*c - t.Y*s, Y: t.X*s + t.Y*c}
}

func (t Translation2D) String() string {
	return fmt.Sprintf("(%.3f, %.3f)", t.X, t.Y)
}

// Pose2D is a rigid transform in the plane: a translation followed by a rotation.
type Pose2D struct {
	Translation Translation2D
	Rotation    Rotation2D
}

// NewPose2D returns a pose at (x, y) with the given heading.
func NewPose2D(x, y float64, heading Rotation2D) Pose2D {
	return Pose2D{Translation: NewTranslation2D(x, y), Rotation: heading}
}

// Compose applies other in the frame of p and returns the resulting pose.
func (p Pose2D) Compose(other Pose2D) Pose2D {
	return Pose2D{
		Translation: p.Translation.Plus(other.Translation.RotateBy(p.Rotation)),
		Rotation:    p.Rotation.Plus(other.Rotation).Normalized(),
	}
}

// Twist2D is a change of pose along a constant curvature arc, expressed in the body frame.
type Twist2D struct {
	Dx, Dy, Dtheta float64
}

// Exp integrates the twist from p, following the constant curvature arc.
func (p Pose2D) Exp(twist Twist2D) Pose2D {
	sinTheta := math.Sin(twist.Dtheta)
	cosTheta := math.Cos(twist.Dtheta)

	var s, c float64
	if math.Abs(twist.Dtheta) < 1e-9 {
		s = 1.0 - 1.0/6.0*twist.Dtheta*twist.Dtheta
		c = 0.5 * twist.Dtheta
	} else {
		s = sinTheta / twist.Dtheta
		c = (1 - cosTheta) / twist.Dtheta
	}
	delta := Pose2D{
		Translation: NewTranslation2D(twist.Dx*s-twist.Dy*c, twist.Dx*c+twist.Dy*s),
		Rotation:    NewRotation2DFromRadians(twist.Dtheta),
	}
	return p.Compose(delta)
}
