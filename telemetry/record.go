// Package telemetry publishes drivetrain status snapshots to operators and dashboards without
// touching the control loop: a collector reads the latest published status on its own schedule.
package telemetry

import (
	"time"

	"go.viam.com/swerve/components/base/swerve"
	"go.viam.com/swerve/control"
)

// Record is one published telemetry message.
type Record struct {
	// Session identifies the process that produced the record.
	Session string    `json:"session"`
	Seq     uint64    `json:"seq"`
	Time    time.Time `json:"time"`
	// Status is the drivetrain snapshot the record was built from.
	Status swerve.Status      `json:"status"`
	Loop   *control.LoopStats `json:"loop,omitempty"`
}

// StatusSource is anything that exposes a drivetrain status snapshot, such as *swerve.Drivetrain.
type StatusSource interface {
	Status() swerve.Status
}

// LoopStatsSource exposes control loop timing, such as *control.Loop.
type LoopStatsSource interface {
	Stats() control.LoopStats
}
