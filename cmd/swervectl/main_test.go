package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/swerve/components/base/swerve"
	"go.viam.com/swerve/control"
	"go.viam.com/swerve/input"
	"go.viam.com/swerve/kinematics"
	"go.viam.com/swerve/telemetry"
)

func TestStickSnapshot(t *testing.T) {
	snap, err := stickSnapshot(0.5, -0.25, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, snap.Axis(input.AbsoluteY), test.ShouldEqual, -0.5)
	test.That(t, snap.Axis(input.AbsoluteX), test.ShouldEqual, -0.25)
	test.That(t, snap.Axis(input.AbsoluteRX), test.ShouldEqual, 1)

	_, err = stickSnapshot(1.5, 0, 0)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "forward must be in [-1, 1]")
}

func TestRenderRecord(t *testing.T) {
	out := renderRecord(telemetry.Record{
		Seq: 12,
		Status: swerve.Status{
			State:         swerve.StateDefensiveLock,
			FieldRelative: true,
			HeadingDeg:    -30,
			Commanded:     kinematics.ChassisSpeeds{},
			Modules: []swerve.ModuleStatus{
				{Index: 0, Name: "front_left", AngleDeg: 45, TargetAngleDeg: 45, Calibrated: true},
				{Index: 1, Name: "front_right", AngleDeg: -44.5, TargetAngleDeg: -45},
			},
		},
		Loop: &control.LoopStats{Mean: 2 * time.Millisecond, Overruns: 1},
	})
	test.That(t, out, test.ShouldContainSubstring, "#12 defensive_lock")
	test.That(t, out, test.ShouldContainSubstring, "field-relative")
	test.That(t, out, test.ShouldContainSubstring, "front_left")
	test.That(t, out, test.ShouldContainSubstring, "-44.5°")
	test.That(t, out, test.ShouldContainSubstring, "uncalibrated")
}

func TestCheckConfig(t *testing.T) {
	var out, errOut bytes.Buffer
	app := newApp(&out, &errOut)

	err := app.Run([]string{"swervectl", "check-config", filepath.Join("..", "..", "etc", "configs", "sim.json")})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldContainSubstring, "back_right")
	test.That(t, out.String(), test.ShouldContainSubstring, "170.00°")
	test.That(t, out.String(), test.ShouldContainSubstring, "config ok: 4 modules, 21 devices, loop period 20ms")

	err = app.Run([]string{"swervectl", "check-config"})
	test.That(t, err, test.ShouldNotBeNil)

	err = app.Run([]string{"swervectl", "check-config", "does-not-exist.json"})
	test.That(t, err, test.ShouldNotBeNil)
}
