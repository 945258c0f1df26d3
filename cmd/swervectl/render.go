package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"go.viam.com/swerve/config"
	"go.viam.com/swerve/telemetry"
)

func renderRecord(rec telemetry.Record) string {
	s := rec.Status
	var flags []string
	if s.FieldRelative {
		flags = append(flags, "field-relative")
	}
	if s.Stopped {
		flags = append(flags, "stopped")
	}
	if s.Saturated {
		flags = append(flags, "saturated")
	}
	if s.HeadingStale {
		flags = append(flags, "heading-stale")
	}
	if !s.Calibrated() {
		flags = append(flags, "uncalibrated")
	}

	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("#%d %s heading %.1f° cmd (%.2f, %.2f, %.2f) %s",
		rec.Seq, s.State, s.HeadingDeg, s.Commanded.Vx, s.Commanded.Vy, s.Commanded.Omega, strings.Join(flags, " ")))
	t.AppendHeader(table.Row{"#", "Module", "Angle", "Target", "Speed", "Target", "Drive", "Steer", ""})
	for _, m := range s.Modules {
		var note string
		switch {
		case !m.Calibrated:
			note = "uncalibrated"
		case m.AngleStale || m.DriveStale:
			note = "stale"
		}
		t.AppendRow(table.Row{
			m.Index, m.Name,
			fmt.Sprintf("%.1f°", m.AngleDeg), fmt.Sprintf("%.1f°", m.TargetAngleDeg),
			fmt.Sprintf("%.2f", m.SpeedMps), fmt.Sprintf("%.2f", m.TargetSpeedMps),
			fmt.Sprintf("%.2f", m.DrivePower), fmt.Sprintf("%.2f", m.SteerPower),
			note,
		})
	}
	if rec.Loop != nil {
		t.AppendFooter(table.Row{"", "loop", "mean", rec.Loop.Mean, "p99", rec.Loop.P99, "overruns", rec.Loop.Overruns, ""})
	}
	return t.Render()
}

func renderModules(cfg *config.Config) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Module", "Location", "Offset", "Drive", "Steer", "Absolute"})
	for i, m := range cfg.Drivetrain.Modules {
		offset := "missing"
		if m.AngleOffsetDeg != nil {
			offset = fmt.Sprintf("%.2f°", *m.AngleOffsetDeg)
		}
		t.AppendRow(table.Row{
			i, m.Name, fmt.Sprintf("(%.3f, %.3f)", m.X, m.Y), offset,
			m.DriveMotor, m.SteerMotor, m.AbsoluteEncoder,
		})
	}
	return t.Render()
}
