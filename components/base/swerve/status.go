package swerve

import (
	"time"

	"github.com/samber/lo"

	"go.viam.com/swerve/components/swervemodule"
	"go.viam.com/swerve/kinematics"
)

// ModuleStatus is the per module part of a Status.
type ModuleStatus struct {
	Index          int     `json:"index"`
	Name           string  `json:"name"`
	AngleDeg       float64 `json:"angle_deg"`
	SpeedMps       float64 `json:"speed_mps"`
	DistanceM      float64 `json:"distance_m"`
	TargetAngleDeg float64 `json:"target_angle_deg"`
	TargetSpeedMps float64 `json:"target_speed_mps"`
	DrivePower     float64 `json:"drive_power"`
	SteerPower     float64 `json:"steer_power"`
	AngleStale     bool    `json:"angle_stale,omitempty"`
	DriveStale     bool    `json:"drive_stale,omitempty"`
	Calibrated     bool    `json:"calibrated"`
}

// Status is an immutable snapshot of the drivetrain published once per cycle.
type Status struct {
	Time          time.Time                `json:"time"`
	Cycle         uint64                   `json:"cycle"`
	State         DriveState               `json:"state"`
	FieldRelative bool                     `json:"field_relative"`
	Stopped       bool                     `json:"stopped"`
	HeadingDeg    float64                  `json:"heading_deg"`
	HeadingStale  bool                     `json:"heading_stale,omitempty"`
	Commanded     kinematics.ChassisSpeeds `json:"commanded"`
	Measured      kinematics.ChassisSpeeds `json:"measured"`
	Saturated     bool                     `json:"saturated"`
	Modules       []ModuleStatus           `json:"modules"`
}

// Stale reports whether any sensor behind the snapshot failed to update.
func (s Status) Stale() bool {
	return s.HeadingStale || lo.SomeBy(s.Modules, func(m ModuleStatus) bool {
		return m.AngleStale || m.DriveStale
	})
}

// Calibrated reports whether every module has an absolute steering reference.
func (s Status) Calibrated() bool {
	return lo.EveryBy(s.Modules, func(m ModuleStatus) bool { return m.Calibrated })
}

func newModuleStatus(s swervemodule.Status, _ int) ModuleStatus {
	return ModuleStatus{
		Index:          s.Index,
		Name:           s.Name,
		AngleDeg:       s.Measured.Angle.Degrees(),
		SpeedMps:       s.Measured.Velocity,
		DistanceM:      s.Measured.Distance,
		TargetAngleDeg: s.Desired.Angle.Degrees(),
		TargetSpeedMps: s.Desired.Speed,
		DrivePower:     s.DrivePower,
		SteerPower:     s.SteerPower,
		AngleStale:     s.Measured.AngleStale,
		DriveStale:     s.Measured.DriveStale,
		Calibrated:     s.Calibrated,
	}
}
