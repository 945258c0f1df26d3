package swerve

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
	"go.viam.com/test"

	fakeencoder "go.viam.com/swerve/components/encoder/fake"
	fakemotor "go.viam.com/swerve/components/motor/fake"
	fakemovementsensor "go.viam.com/swerve/components/movementsensor/fake"
	"go.viam.com/swerve/components/swervemodule"
	"go.viam.com/swerve/control"
	"go.viam.com/swerve/input"
	fakeinput "go.viam.com/swerve/input/fake"
	"go.viam.com/swerve/kinematics"
	"go.viam.com/swerve/logging"
)

const (
	maxSpeed = 4.5
	dt       = 20 * time.Millisecond
)

var moduleNames = []string{"front_left", "front_right", "back_left", "back_right"}

type harness struct {
	gyro     *fakemovementsensor.MovementSensor
	drive    []*fakemotor.Motor
	steer    []*fakemotor.Motor
	steerEnc []*fakeencoder.Encoder
	driveEnc []*fakeencoder.Encoder
	absolute []*fakeencoder.Encoder
}

func testConfig() Config {
	cfg := Config{
		MaxSpeed:        maxSpeed,
		MaxAngularSpeed: 2 * math.Pi,
		MovementSensor:  "gyro",
		OpenLoop:        true,
	}
	locations := [][2]float64{{0.3, 0.3}, {0.3, -0.3}, {-0.3, 0.3}, {-0.3, -0.3}}
	zero := 0.0
	for i, name := range moduleNames {
		cfg.Modules = append(cfg.Modules, swervemodule.Config{
			Name:                name,
			X:                   locations[i][0],
			Y:                   locations[i][1],
			DriveMotor:          name + "_drive",
			SteerMotor:          name + "_steer",
			DriveEncoder:        name + "_drive",
			SteerEncoder:        name + "_steer",
			AbsoluteEncoder:     name + "_abs",
			AngleOffsetDeg:      &zero,
			DriveMetersPerTick:  0.001,
			SteerDegreesPerTick: 0.1,
			SteerPID:            control.PIDConfig{Kp: 0.01},
			DrivePID:            control.PIDConfig{Kp: 0.1},
			DriveFF:             control.SimpleMotorFeedforward{KS: 0.1, KV: 2.4},
		})
	}
	return cfg
}

func newHarness() (*harness, Dependencies) {
	h := &harness{gyro: fakemovementsensor.NewMovementSensor("gyro")}
	deps := NewDependencies()
	deps.MovementSensors["gyro"] = h.gyro
	for _, name := range moduleNames {
		drive := fakemotor.NewMotor(name + "_drive")
		steer := fakemotor.NewMotor(name + "_steer")
		driveEnc := fakeencoder.NewEncoder(name + "_drive")
		steerEnc := fakeencoder.NewEncoder(name + "_steer")
		abs := fakeencoder.NewEncoder(name + "_abs")
		abs.DegreesPerTick = 1
		h.drive = append(h.drive, drive)
		h.steer = append(h.steer, steer)
		h.driveEnc = append(h.driveEnc, driveEnc)
		h.steerEnc = append(h.steerEnc, steerEnc)
		h.absolute = append(h.absolute, abs)
		deps.Motors[drive.Name()] = drive
		deps.Motors[steer.Name()] = steer
		deps.Encoders[driveEnc.Name()] = driveEnc
		deps.Encoders[steerEnc.Name()] = steerEnc
		deps.AbsoluteEncoders[abs.Name()] = abs
	}
	return h, deps
}

func newTestDrivetrain(t *testing.T, cfg Config, source CommandSource) (*Drivetrain, *harness) {
	t.Helper()
	h, deps := newHarness()
	d, err := NewFromConfig(context.Background(), cfg, deps, source, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return d, h
}

func tick(t *testing.T, d *Drivetrain) Status {
	t.Helper()
	test.That(t, d.Tick(context.Background(), dt), test.ShouldBeNil)
	return d.Status()
}

func pressAndRelease(t *testing.T, d *Drivetrain, src *ManualSource, cmd Command, press func(*Command)) Status {
	t.Helper()
	pressed := cmd
	press(&pressed)
	src.Set(pressed)
	status := tick(t, d)
	src.Set(cmd)
	return status
}

func lockToggle(c *Command) { c.DefensiveLockToggle = true }

func TestConfigValidate(t *testing.T) {
	cfg := testConfig()
	deps, err := cfg.Validate("drivetrain")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(deps), test.ShouldEqual, 1+4*5)
	test.That(t, deps[0], test.ShouldEqual, "gyro")

	for _, c := range []struct {
		mutate func(*Config)
		err    string
	}{
		{func(c *Config) { c.MaxSpeed = 0 }, "max_speed_mps"},
		{func(c *Config) { c.MaxAngularSpeed = -1 }, "max_angular_speed_radps"},
		{func(c *Config) { c.MovementSensor = "" }, "movement_sensor"},
		{func(c *Config) { c.Modules = c.Modules[:1] }, "at least 2 modules"},
		{func(c *Config) { c.Modules[2].Name = "front_left" }, "duplicate module name"},
		{func(c *Config) { c.Modules[1].DriveMotor = "" }, "drivetrain.modules.1"},
		{func(c *Config) { c.OpenLoop, c.MaxSpeed = false, 6 }, "drive feedforward can reach"},
	} {
		bad := testConfig()
		c.mutate(&bad)
		_, err := bad.Validate("drivetrain")
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, c.err)
	}

	// (12 - ks) / kv = 4.96 m/s is enough for closed loop at 4.5.
	closed := testConfig()
	closed.OpenLoop = false
	_, err = closed.Validate("drivetrain")
	test.That(t, err, test.ShouldBeNil)
}

func TestNewFromConfigMissingDependency(t *testing.T) {
	_, deps := newHarness()
	delete(deps.AbsoluteEncoders, "back_left_abs")
	_, err := NewFromConfig(context.Background(), testConfig(), deps, NewManualSource(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `absolute encoder "back_left_abs" not found`)

	_, deps = newHarness()
	delete(deps.MovementSensors, "gyro")
	_, err = NewFromConfig(context.Background(), testConfig(), deps, NewManualSource(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNormalDrive(t *testing.T) {
	src := NewManualSource()
	d, h := newTestDrivetrain(t, testConfig(), src)
	test.That(t, d.State(), test.ShouldEqual, StateNormalDrive)
	test.That(t, d.FieldRelative(), test.ShouldBeFalse)
	test.That(t, d.Status().Calibrated(), test.ShouldBeTrue)

	src.SetSpeeds(kinematics.ChassisSpeeds{Vx: 1})
	status := tick(t, d)
	test.That(t, status.Cycle, test.ShouldEqual, uint64(1))
	test.That(t, status.Saturated, test.ShouldBeFalse)
	test.That(t, len(status.Modules), test.ShouldEqual, 4)
	for i, m := range status.Modules {
		test.That(t, m.Index, test.ShouldEqual, i)
		test.That(t, m.Name, test.ShouldEqual, moduleNames[i])
		test.That(t, m.TargetAngleDeg, test.ShouldAlmostEqual, 0)
		test.That(t, m.TargetSpeedMps, test.ShouldAlmostEqual, 1)
		test.That(t, h.drive[i].Power(), test.ShouldAlmostEqual, 1/maxSpeed)
	}

	// Desaturation always runs.
	src.SetSpeeds(kinematics.ChassisSpeeds{Vx: maxSpeed, Omega: 2 * math.Pi})
	status = tick(t, d)
	test.That(t, status.Saturated, test.ShouldBeTrue)
	for _, m := range status.Modules {
		test.That(t, math.Abs(m.TargetSpeedMps), test.ShouldBeLessThanOrEqualTo, maxSpeed+1e-9)
	}
}

func TestOptimizerAppliedPerModule(t *testing.T) {
	src := NewManualSource()
	d, h := newTestDrivetrain(t, testConfig(), src)

	// Wheels currently point forward; driving straight back flips the speed instead of the wheels.
	src.SetSpeeds(kinematics.ChassisSpeeds{Vx: -1})
	status := tick(t, d)
	for i, m := range status.Modules {
		test.That(t, m.TargetAngleDeg, test.ShouldAlmostEqual, 0)
		test.That(t, m.TargetSpeedMps, test.ShouldAlmostEqual, -1)
		test.That(t, h.steer[i].Power(), test.ShouldAlmostEqual, 0)
	}
}

func TestDefensiveLockToggle(t *testing.T) {
	src := NewManualSource()
	d, h := newTestDrivetrain(t, testConfig(), src)
	drive := Command{Speeds: kinematics.ChassisSpeeds{Vx: 1, Vy: 0.5}}
	src.Set(drive)
	tick(t, d)

	status := pressAndRelease(t, d, src, drive, lockToggle)
	test.That(t, status.State, test.ShouldEqual, StateDefensiveLock)

	// Held in lock regardless of the commanded velocity, across several cycles.
	for i := 0; i < 3; i++ {
		status = tick(t, d)
		test.That(t, status.State, test.ShouldEqual, StateDefensiveLock)
		test.That(t, status.Commanded, test.ShouldResemble, kinematics.ChassisSpeeds{})
		for j, m := range status.Modules {
			test.That(t, m.TargetSpeedMps, test.ShouldAlmostEqual, 0)
			test.That(t, h.drive[j].Power(), test.ShouldAlmostEqual, 0)
		}
	}

	// Radial angles, optimized from the wheels' current heading of 0°.
	expected := []float64{45, -45, -45, 45}
	for i, m := range status.Modules {
		test.That(t, m.TargetAngleDeg, test.ShouldAlmostEqual, expected[i])
	}

	// A held button is one edge, not many.
	held := drive
	held.DefensiveLockToggle = true
	src.Set(held)
	tick(t, d)
	status = tick(t, d)
	test.That(t, status.State, test.ShouldEqual, StateNormalDrive)
	status = tick(t, d)
	test.That(t, status.State, test.ShouldEqual, StateNormalDrive)

	src.Set(drive)
	status = tick(t, d)
	test.That(t, status.State, test.ShouldEqual, StateNormalDrive)
	test.That(t, status.Commanded, test.ShouldResemble, drive.Speeds)
	for _, m := range status.Modules {
		test.That(t, math.Abs(m.TargetSpeedMps), test.ShouldAlmostEqual, math.Hypot(1, 0.5))
	}
}

func TestDefensiveLockBypassesAntiJitter(t *testing.T) {
	src := NewManualSource()
	d, h := newTestDrivetrain(t, testConfig(), src)
	tick(t, d)
	status := pressAndRelease(t, d, src, Command{}, lockToggle)
	test.That(t, status.State, test.ShouldEqual, StateDefensiveLock)
	test.That(t, status.Modules[0].TargetAngleDeg, test.ShouldAlmostEqual, 45)
	test.That(t, h.steer[0].Power(), test.ShouldAlmostEqual, 0.45)
}

func TestFieldRelative(t *testing.T) {
	cfg := testConfig()
	cfg.FieldRelative = true
	src := NewManualSource()
	d, h := newTestDrivetrain(t, cfg, src)
	h.gyro.SetYaw(90)

	forward := Command{Speeds: kinematics.ChassisSpeeds{Vx: 1}}
	src.Set(forward)
	status := tick(t, d)
	test.That(t, status.FieldRelative, test.ShouldBeTrue)
	test.That(t, status.HeadingDeg, test.ShouldAlmostEqual, 90)
	test.That(t, status.Commanded.Vx, test.ShouldAlmostEqual, 0)
	test.That(t, status.Commanded.Vy, test.ShouldAlmostEqual, -1)
	for _, m := range status.Modules {
		test.That(t, m.TargetAngleDeg, test.ShouldAlmostEqual, -90)
		test.That(t, m.TargetSpeedMps, test.ShouldAlmostEqual, 1)
	}

	status = pressAndRelease(t, d, src, forward, func(c *Command) { c.FieldRelativeToggle = true })
	test.That(t, status.FieldRelative, test.ShouldBeFalse)
	test.That(t, status.Commanded.Vx, test.ShouldAlmostEqual, 1)
	test.That(t, status.Commanded.Vy, test.ShouldAlmostEqual, 0)

	// Heading zero leaves the command unchanged.
	status = pressAndRelease(t, d, src, forward, func(c *Command) { c.FieldRelativeToggle = true })
	test.That(t, status.FieldRelative, test.ShouldBeTrue)
	h.gyro.SetYaw(0)
	status = tick(t, d)
	test.That(t, status.Commanded.Vx, test.ShouldAlmostEqual, 1)
	test.That(t, status.Commanded.Vy, test.ShouldAlmostEqual, 0)
}

func TestHeadingFaultsAndZeroing(t *testing.T) {
	cfg := testConfig()
	cfg.FieldRelative = true
	src := NewManualSource()
	d, h := newTestDrivetrain(t, cfg, src)
	h.gyro.SetYaw(90)
	src.Set(Command{Speeds: kinematics.ChassisSpeeds{Vx: 1}})
	tick(t, d)

	h.gyro.SetHeadingErr(errors.New("spi timeout"))
	h.gyro.SetYaw(0)
	status := tick(t, d)
	test.That(t, status.HeadingStale, test.ShouldBeTrue)
	test.That(t, status.Stale(), test.ShouldBeTrue)
	test.That(t, status.HeadingDeg, test.ShouldAlmostEqual, 90)
	test.That(t, status.Commanded.Vy, test.ShouldAlmostEqual, -1)

	h.gyro.SetHeadingErr(nil)
	h.gyro.SetYaw(30)
	status = pressAndRelease(t, d, src, Command{Speeds: kinematics.ChassisSpeeds{Vx: 1}},
		func(c *Command) { c.ZeroHeading = true })
	test.That(t, status.HeadingStale, test.ShouldBeFalse)
	test.That(t, status.HeadingDeg, test.ShouldAlmostEqual, 0)
	test.That(t, status.Commanded.Vx, test.ShouldAlmostEqual, 1)

	status = tick(t, d)
	test.That(t, status.HeadingDeg, test.ShouldAlmostEqual, 0)
}

type failingSource struct{}

func (failingSource) Next(ctx context.Context, dt time.Duration) (Command, error) {
	return Command{}, errors.New("controller unplugged")
}

func TestSourceErrorStops(t *testing.T) {
	d, h := newTestDrivetrain(t, testConfig(), failingSource{})
	err := d.Tick(context.Background(), dt)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "controller unplugged")
	for _, m := range h.drive {
		test.That(t, m.Power(), test.ShouldEqual, 0.0)
	}
}

type step struct {
	cmd Command
	err error
}

// scriptedSource replays steps, then repeats the last one.
type scriptedSource struct {
	steps []step
	next  int
}

func (s *scriptedSource) Next(ctx context.Context, dt time.Duration) (Command, error) {
	st := s.steps[s.next]
	if s.next < len(s.steps)-1 {
		s.next++
	}
	return st.cmd, st.err
}

func TestSourceErrorKeepsToggleLevels(t *testing.T) {
	held := Command{DefensiveLockToggle: true, FieldRelativeToggle: true}
	src := &scriptedSource{steps: []step{
		{cmd: Command{}},
		{cmd: held},
		{err: errors.New("controller timed out")},
		{cmd: held},
	}}
	d, _ := newTestDrivetrain(t, testConfig(), src)
	fieldRelative := d.FieldRelative()

	tick(t, d)
	status := tick(t, d)
	test.That(t, status.State, test.ShouldEqual, StateDefensiveLock)
	test.That(t, status.FieldRelative, test.ShouldEqual, !fieldRelative)

	err := d.Tick(context.Background(), dt)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, d.State(), test.ShouldEqual, StateDefensiveLock)

	// Still held after the glitch: no new edge.
	for i := 0; i < 3; i++ {
		status = tick(t, d)
		test.That(t, status.State, test.ShouldEqual, StateDefensiveLock)
		test.That(t, status.FieldRelative, test.ShouldEqual, !fieldRelative)
	}
}

func TestStopAndResume(t *testing.T) {
	src := NewManualSource()
	d, h := newTestDrivetrain(t, testConfig(), src)
	src.SetSpeeds(kinematics.ChassisSpeeds{Vy: 1})
	tick(t, d)

	d.Stop()
	status := tick(t, d)
	test.That(t, status.Stopped, test.ShouldBeTrue)
	for i, m := range status.Modules {
		test.That(t, m.TargetSpeedMps, test.ShouldAlmostEqual, 0)
		test.That(t, m.TargetAngleDeg, test.ShouldAlmostEqual, 90)
		test.That(t, h.drive[i].Power(), test.ShouldAlmostEqual, 0)
	}

	d.Resume()
	status = tick(t, d)
	test.That(t, status.Stopped, test.ShouldBeFalse)
	test.That(t, status.Modules[0].TargetSpeedMps, test.ShouldAlmostEqual, 1)

	test.That(t, d.Close(context.Background()), test.ShouldBeNil)
	for _, m := range h.drive {
		test.That(t, m.Power(), test.ShouldEqual, 0.0)
	}
}

func TestCalibrationMissingSurfaced(t *testing.T) {
	cfg := testConfig()
	cfg.Modules[3].AngleOffsetDeg = nil
	src := NewManualSource()
	d, _ := newTestDrivetrain(t, cfg, src)
	test.That(t, d.Status().Calibrated(), test.ShouldBeFalse)
	test.That(t, d.Status().Modules[3].Calibrated, test.ShouldBeFalse)

	err := d.Tick(context.Background(), dt)
	test.That(t, errors.Is(err, swervemodule.ErrCalibrationMissing), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "back_right")
}

func TestResetModulesCommand(t *testing.T) {
	src := NewManualSource()
	d, h := newTestDrivetrain(t, testConfig(), src)
	tick(t, d)

	// Steering encoders lose their count in a brownout while the wheels stay put.
	for i := range h.absolute {
		h.absolute[i].AbsoluteOffsetDeg = 30
		test.That(t, h.steerEnc[i].ResetPosition(context.Background(), 0, nil), test.ShouldBeNil)
	}
	status := pressAndRelease(t, d, src, Command{}, func(c *Command) { c.ResetModules = true })
	for _, m := range status.Modules {
		test.That(t, m.AngleDeg, test.ShouldAlmostEqual, 30)
	}
	test.That(t, d.ResetModulesToAbsolute(context.Background()), test.ShouldBeNil)
}

func TestTeleopShaperResetOnStateChange(t *testing.T) {
	controller := fakeinput.NewController()
	shaper := input.NewShaper(
		input.AxisConfig{Control: input.AbsoluteY, Deadband: 0.05, SlewRate: 1, Invert: true},
		input.AxisConfig{Control: input.AbsoluteX, Deadband: 0.05, Invert: true},
		input.AxisConfig{Control: input.AbsoluteRX, Deadband: 0.05, Invert: true},
		maxSpeed, 2*math.Pi,
	)
	src := NewTeleopSource(controller, shaper, DefaultTeleopBindings)
	d, _ := newTestDrivetrain(t, testConfig(), src)

	controller.SetAxis(input.AbsoluteY, -1)
	var status Status
	for i := 0; i < 10; i++ {
		status = tick(t, d)
	}
	step := maxSpeed * dt.Seconds()
	test.That(t, status.Commanded.Vx, test.ShouldAlmostEqual, 10*step)

	controller.SetButton(DefaultTeleopBindings.DefensiveLock, true)
	status = tick(t, d)
	test.That(t, status.State, test.ShouldEqual, StateDefensiveLock)
	controller.SetButton(DefaultTeleopBindings.DefensiveLock, false)
	tick(t, d)
	controller.SetButton(DefaultTeleopBindings.DefensiveLock, true)
	status = tick(t, d)
	test.That(t, status.State, test.ShouldEqual, StateNormalDrive)
	test.That(t, status.Commanded, test.ShouldResemble, kinematics.ChassisSpeeds{})

	// The ramp starts over from zero.
	status = tick(t, d)
	test.That(t, status.Commanded.Vx, test.ShouldAlmostEqual, step)

	// Strafe stick right drives right.
	controller.SetAxis(input.AbsoluteY, 0)
	controller.SetAxis(input.AbsoluteX, 1)
	status = tick(t, d)
	test.That(t, status.Commanded.Vy, test.ShouldAlmostEqual, -maxSpeed)
}

func TestStatusReadableDuringTicks(t *testing.T) {
	src := NewManualSource()
	_, deps := newHarness()
	clk := clock.NewMock()
	d, err := NewFromConfig(context.Background(), testConfig(), deps, src, logging.NewTestLogger(t), WithClock(clk))
	test.That(t, err, test.ShouldBeNil)
	src.SetSpeeds(kinematics.ChassisSpeeds{Vx: 0.5, Omega: 1})

	var wg sync.WaitGroup
	var torn atomic.Int64
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if s := d.Status(); len(s.Modules) != 4 {
				torn.Inc()
			}
		}
	}()
	for i := 0; i < 50; i++ {
		test.That(t, d.Tick(context.Background(), dt), test.ShouldBeNil)
	}
	wg.Wait()
	test.That(t, torn.Load(), test.ShouldEqual, int64(0))
	test.That(t, d.Status().Cycle, test.ShouldEqual, uint64(50))
	test.That(t, d.Status().Time, test.ShouldEqual, clk.Now())
}

func TestDriveStateText(t *testing.T) {
	for _, s := range []DriveState{StateNormalDrive, StateDefensiveLock} {
		text, err := s.MarshalText()
		test.That(t, err, test.ShouldBeNil)
		var back DriveState
		test.That(t, back.UnmarshalText(text), test.ShouldBeNil)
		test.That(t, back, test.ShouldEqual, s)
	}
	var bad DriveState
	test.That(t, bad.UnmarshalText([]byte("parked")), test.ShouldNotBeNil)
}
