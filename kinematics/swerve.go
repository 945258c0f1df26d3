package kinematics

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/swerve/spatialmath"
)

// SwerveKinematics maps chassis speeds to module states for a fixed set of module locations.
// It remembers the last commanded angles so modules do not snap to zero when the chassis stops.
// Not safe for concurrent use.
type SwerveKinematics struct {
	modules  []ModuleGeometry
	maxSpeed float64

	center  spatialmath.Translation2D
	inverse *mat.Dense
	forward *mat.Dense

	lastAngles []spatialmath.Rotation2D
}

// NewSwerveKinematics builds the kinematics for the given modules. Every call to ToModuleStates
// desaturates its output against maxSpeed.
func NewSwerveKinematics(modules []ModuleGeometry, maxSpeed float64) (*SwerveKinematics, error) {
	if len(modules) < 2 {
		return nil, errors.Errorf("swerve kinematics needs at least 2 modules, got %d", len(modules))
	}
	if maxSpeed <= 0 || math.IsNaN(maxSpeed) || math.IsInf(maxSpeed, 0) {
		return nil, errors.Errorf("max speed must be positive and finite, got %v", maxSpeed)
	}
	for i, m := range modules {
		if math.IsNaN(m.Location.X) || math.IsNaN(m.Location.Y) {
			return nil, errors.Errorf("module %q has an invalid location", m.Name)
		}
		for _, other := range modules[:i] {
			if m.Location.DistanceTo(other.Location) < 1e-6 {
				return nil, errors.Errorf("modules %q and %q share a location", other.Name, m.Name)
			}
		}
	}

	k := &SwerveKinematics{
		modules:    append([]ModuleGeometry(nil), modules...),
		maxSpeed:   maxSpeed,
		lastAngles: make([]spatialmath.Rotation2D, len(modules)),
	}
	k.setCenter(spatialmath.Translation2D{})

	k.forward = mat.NewDense(3, 2*len(modules), nil)
	var svd mat.SVD
	if ok := svd.Factorize(k.inverse, mat.SVDThin); !ok {
		return nil, errors.New("failed to factorize swerve kinematics matrix")
	}
	rank := svd.Rank(1e-9)
	if rank < 3 {
		return nil, errors.New("module geometry is degenerate")
	}
	if err := k.forward.Solve(k.inverse, identity(2*len(modules))); err != nil {
		return nil, errors.Wrap(err, "building forward kinematics")
	}
	return k, nil
}

func identity(n int) *mat.Dense {
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.Set(i, i, 1)
	}
	return d
}

// setCenter rebuilds the inverse kinematics matrix for a rotation center.
// Each module contributes the rows [1 0 -ry] and [0 1 rx] with r the module location relative to center.
func (k *SwerveKinematics) setCenter(center spatialmath.Translation2D) {
	if k.inverse != nil && center == k.center {
		return
	}
	k.inverse = mat.NewDense(2*len(k.modules), 3, nil)
	for i, m := range k.modules {
		r := m.Location.Minus(center)
		k.inverse.SetRow(2*i, []float64{1, 0, -r.Y})
		k.inverse.SetRow(2*i+1, []float64{0, 1, r.X})
	}
	k.center = center
}

// Modules returns the module geometry in index order.
func (k *SwerveKinematics) Modules() []ModuleGeometry {
	return append([]ModuleGeometry(nil), k.modules...)
}

// MaxSpeed returns the physical maximum module speed used for desaturation.
func (k *SwerveKinematics) MaxSpeed() float64 {
	return k.maxSpeed
}

// ToModuleStates returns one target state per module for the chassis speeds, rotating about center
// (the zero vector is the chassis center). The result is always desaturated; saturated reports
// whether any module had to be scaled down.
func (k *SwerveKinematics) ToModuleStates(
	speeds ChassisSpeeds,
	center spatialmath.Translation2D,
) (states []ModuleState, saturated bool) {
	states = make([]ModuleState, len(k.modules))
	if speeds.IsZero() {
		for i := range states {
			states[i] = ModuleState{Angle: k.lastAngles[i]}
		}
		return states, false
	}

	k.setCenter(center)
	chassis := mat.NewVecDense(3, []float64{speeds.Vx, speeds.Vy, speeds.Omega})
	var wheels mat.VecDense
	wheels.MulVec(k.inverse, chassis)

	for i := range k.modules {
		v := spatialmath.NewTranslation2D(wheels.AtVec(2*i), wheels.AtVec(2*i+1))
		states[i] = ModuleState{Angle: v.Angle(), Speed: v.Norm()}
		k.lastAngles[i] = states[i].Angle
	}
	saturated = DesaturateWheelSpeeds(states, k.maxSpeed)
	return states, saturated
}

// ToChassisSpeeds returns the least squares chassis speeds that best explain the module states,
// about the chassis center.
func (k *SwerveKinematics) ToChassisSpeeds(states []ModuleState) (ChassisSpeeds, error) {
	if len(states) != len(k.modules) {
		return ChassisSpeeds{}, errors.Errorf("expected %d module states, got %d", len(k.modules), len(states))
	}
	wheels := mat.NewVecDense(2*len(states), nil)
	for i, s := range states {
		v := s.Velocity()
		wheels.SetVec(2*i, v.X)
		wheels.SetVec(2*i+1, v.Y)
	}
	var chassis mat.VecDense
	chassis.MulVec(k.forward, wheels)
	return ChassisSpeeds{Vx: chassis.AtVec(0), Vy: chassis.AtVec(1), Omega: chassis.AtVec(2)}, nil
}

// DesaturateWheelSpeeds scales every state's speed by the same factor so none exceeds maxSpeed,
// preserving the ratio between modules. It reports whether scaling was needed.
func DesaturateWheelSpeeds(states []ModuleState, maxSpeed float64) bool {
	var highest float64
	for _, s := range states {
		highest = math.Max(highest, math.Abs(s.Speed))
	}
	if highest <= maxSpeed || highest == 0 {
		return false
	}
	scale := maxSpeed / highest
	for i := range states {
		states[i].Speed *= scale
	}
	return true
}
