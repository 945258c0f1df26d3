// Package main is swervectl, an operator tool that watches drivetrain telemetry and sends drive
// input over MQTT.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
)

const (
	flagBroker   = "broker"
	flagTopic    = "topic"
	flagJSON     = "json"
	flagForward  = "forward"
	flagStrafe   = "strafe"
	flagRotate   = "rotate"
	flagDuration = "duration"
	flagRate     = "rate"
	flagButton   = "button"
	flagCount    = "count"
)

func newApp(out, errOut io.Writer) *cli.App {
	brokerFlag := &cli.StringFlag{
		Name:    flagBroker,
		Aliases: []string{"b"},
		Value:   "tcp://localhost:1883",
		EnvVars: []string{"SWERVE_MQTT_BROKER"},
		Usage:   "MQTT broker `URL`",
	}
	return &cli.App{
		Name:            "swervectl",
		Usage:           "watch and drive a swerve robot",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags:           []cli.Flag{brokerFlag},
		Commands: []*cli.Command{
			{
				Name:  "telemetry",
				Usage: "print drivetrain telemetry as it arrives",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagTopic, Value: "swerve/telemetry", Usage: "telemetry topic"},
					&cli.BoolFlag{Name: flagJSON, Usage: "print raw JSON records"},
					&cli.IntFlag{Name: flagCount, Usage: "exit after this many records, 0 runs until interrupted"},
				},
				Action: TelemetryAction,
			},
			{
				Name:  "drive",
				Usage: "drive with fixed stick positions for a while, then center the sticks",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagTopic, Value: "swerve/input", Usage: "input topic"},
					&cli.Float64Flag{Name: flagForward, Usage: "forward stick, -1 to 1"},
					&cli.Float64Flag{Name: flagStrafe, Usage: "strafe stick, -1 (left) to 1 (right)"},
					&cli.Float64Flag{Name: flagRotate, Usage: "rotation stick, -1 (counterclockwise) to 1"},
					&cli.DurationFlag{Name: flagDuration, Value: defaultDriveDuration, Usage: "how long to drive"},
					&cli.Float64Flag{Name: flagRate, Value: defaultPublishHz, Usage: "publish rate in Hz"},
				},
				Action: DriveAction,
			},
			{
				Name:      "press",
				Usage:     "tap a controller button, such as ButtonWest for defensive lock",
				ArgsUsage: "<button>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagTopic, Value: "swerve/input", Usage: "input topic"},
				},
				Action: PressAction,
			},
			{
				Name:      "check-config",
				Usage:     "validate a robot config and list its modules",
				ArgsUsage: "<config.json>",
				Action:    CheckConfigAction,
			},
		},
	}
}

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
