package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/signal"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/swerve/config"
	"go.viam.com/swerve/input"
	"go.viam.com/swerve/input/mqtt"
	"go.viam.com/swerve/logging"
	"go.viam.com/swerve/telemetry"
)

const (
	defaultDriveDuration = 2 * time.Second
	defaultPublishHz     = 20
	pressHold            = 100 * time.Millisecond
)

func connect(c *cli.Context) (paho.Client, error) {
	opts := paho.NewClientOptions().
		AddBroker(c.String(flagBroker)).
		SetClientID("swervectl-" + uuid.NewString()).
		SetConnectTimeout(mqtt.ConnectTimeout)
	client := paho.NewClient(opts)
	if err := mqtt.Connect(client, c.String(flagBroker), mqtt.ConnectTimeout); err != nil {
		return nil, err
	}
	return client, nil
}

func interruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt)
}

// TelemetryAction subscribes to the telemetry topic and prints each record.
func TelemetryAction(c *cli.Context) error {
	client, err := connect(c)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	ctx, cancel := interruptContext(c.Context)
	defer cancel()

	records := make(chan telemetry.Record, 8)
	token := client.Subscribe(c.String(flagTopic), 0, func(_ paho.Client, msg paho.Message) {
		var rec telemetry.Record
		if err := json.Unmarshal(msg.Payload(), &rec); err != nil {
			fmt.Fprintf(c.App.ErrWriter, "skipping malformed record: %v\n", err)
			return
		}
		select {
		case records <- rec:
		default:
		}
	})
	if token.Wait() && token.Error() != nil {
		return errors.Wrapf(token.Error(), "subscribing to %s", c.String(flagTopic))
	}

	count := c.Int(flagCount)
	for seen := 0; count == 0 || seen < count; seen++ {
		select {
		case <-ctx.Done():
			return nil
		case rec := <-records:
			if c.Bool(flagJSON) {
				out, err := json.Marshal(rec)
				if err != nil {
					return err
				}
				fmt.Fprintln(c.App.Writer, string(out))
				continue
			}
			fmt.Fprintln(c.App.Writer, renderRecord(rec))
		}
	}
	return nil
}

// DriveAction publishes stick positions at a fixed rate, then a centered snapshot.
func DriveAction(c *cli.Context) error {
	snap, err := stickSnapshot(c.Float64(flagForward), c.Float64(flagStrafe), c.Float64(flagRotate))
	if err != nil {
		return err
	}
	rate := c.Float64(flagRate)
	if rate <= 0 {
		return errors.Errorf("rate must be positive, got %v", rate)
	}

	client, err := connect(c)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	ctx, cancel := interruptContext(c.Context)
	defer cancel()
	ctx, cancelDrive := context.WithTimeout(ctx, c.Duration(flagDuration))
	defer cancelDrive()

	topic := c.String(flagTopic)
	ticker := time.NewTicker(time.Duration(float64(time.Second) / rate))
	defer ticker.Stop()
	for {
		if err := publishSnapshot(client, topic, snap); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return publishSnapshot(client, topic, input.Snapshot{Time: time.Now()})
		case <-ticker.C:
		}
	}
}

// PressAction publishes a button press followed by its release.
func PressAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("press needs exactly one button name")
	}
	button := input.Control(c.Args().First())
	client, err := connect(c)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	topic := c.String(flagTopic)
	pressed := input.Snapshot{Time: time.Now(), Buttons: map[input.Control]bool{button: true}}
	if err := publishSnapshot(client, topic, pressed); err != nil {
		return err
	}
	time.Sleep(pressHold)
	return publishSnapshot(client, topic, input.Snapshot{Time: time.Now()})
}

// CheckConfigAction reads and validates a config file and prints its module layout.
func CheckConfigAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("check-config needs exactly one config file")
	}
	cfg, err := config.Read(c.Args().First(), logging.NewBlankLogger("swervectl"))
	if err != nil {
		return err
	}
	deps, err := cfg.Validate()
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, renderModules(cfg))
	fmt.Fprintf(c.App.Writer, "config ok: %d modules, %d devices, loop period %v\n",
		len(cfg.Drivetrain.Modules), len(deps), cfg.Loop.Period)
	return nil
}

// stickSnapshot maps drive intent onto a gamepad with the default axis layout: forward is stick up,
// which reads negative on AbsoluteY, and right on AbsoluteX and AbsoluteRX is positive.
func stickSnapshot(forward, strafe, rotate float64) (input.Snapshot, error) {
	for name, v := range map[string]float64{flagForward: forward, flagStrafe: strafe, flagRotate: rotate} {
		if math.IsNaN(v) || math.Abs(v) > 1 {
			return input.Snapshot{}, errors.Errorf("%s must be in [-1, 1], got %v", name, v)
		}
	}
	return input.Snapshot{
		Time: time.Now(),
		Axes: map[input.Control]float64{
			input.AbsoluteY:  -forward,
			input.AbsoluteX:  strafe,
			input.AbsoluteRX: rotate,
		},
	}, nil
}

func publishSnapshot(client paho.Client, topic string, snap input.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	token := client.Publish(topic, 0, false, payload)
	token.Wait()
	return token.Error()
}
