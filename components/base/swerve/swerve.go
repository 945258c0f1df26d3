// Package swerve implements a four wheel swerve drivetrain: every control cycle it turns one
// driver command and one heading sample into optimized targets for each module.
package swerve

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"go.viam.com/swerve/components/movementsensor"
	"go.viam.com/swerve/components/swervemodule"
	"go.viam.com/swerve/input"
	"go.viam.com/swerve/kinematics"
	"go.viam.com/swerve/logging"
	"go.viam.com/swerve/spatialmath"
)

// DriveState is the drivetrain's mode.
type DriveState int

const (
	// StateNormalDrive follows the commanded chassis speeds.
	StateNormalDrive DriveState = iota
	// StateDefensiveLock points every wheel along its radius with zero speed, forming an X that
	// resists being pushed.
	StateDefensiveLock
)

func (s DriveState) String() string {
	switch s {
	case StateNormalDrive:
		return "normal_drive"
	case StateDefensiveLock:
		return "defensive_lock"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s DriveState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *DriveState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "normal_drive":
		*s = StateNormalDrive
	case "defensive_lock":
		*s = StateDefensiveLock
	default:
		return errors.Errorf("unknown drive state %q", text)
	}
	return nil
}

// Drivetrain owns the modules, the heading sensor and the drive state machine.
// Tick must only be called from one goroutine; Status, Stop and Resume are safe from any goroutine.
type Drivetrain struct {
	cfg     Config
	kin     *kinematics.SwerveKinematics
	modules []*swervemodule.Module
	gyro    movementsensor.MovementSensor
	source  CommandSource
	clk     clock.Clock
	logger  logging.Logger

	state         DriveState
	fieldRelative bool
	fieldEdge     input.EdgeDetector
	lockEdge      input.EdgeDetector
	zeroEdge      input.EdgeDetector
	resetEdge     input.EdgeDetector

	heading      spatialmath.Rotation2D
	headingStale bool
	cycle        uint64

	stopped atomic.Bool
	status  atomic.Pointer[Status]
}

// Option configures a Drivetrain.
type Option func(*Drivetrain)

// WithClock replaces the wall clock used for status timestamps.
func WithClock(clk clock.Clock) Option {
	return func(d *Drivetrain) {
		d.clk = clk
	}
}

// New builds a drivetrain from already constructed modules. modules[i] must have index i.
func New(
	cfg Config,
	modules []*swervemodule.Module,
	gyro movementsensor.MovementSensor,
	source CommandSource,
	logger logging.Logger,
	opts ...Option,
) (*Drivetrain, error) {
	if gyro == nil {
		return nil, errors.New("swerve drivetrain needs a movement sensor")
	}
	if source == nil {
		return nil, errors.New("swerve drivetrain needs a command source")
	}
	for i, m := range modules {
		if m.Index() != i {
			return nil, errors.Errorf("module %s has index %d but is in slot %d", m.Name(), m.Index(), i)
		}
	}
	geometry := lo.Map(modules, func(m *swervemodule.Module, _ int) kinematics.ModuleGeometry {
		return m.Geometry()
	})
	kin, err := kinematics.NewSwerveKinematics(geometry, cfg.MaxSpeed)
	if err != nil {
		return nil, err
	}

	d := &Drivetrain{
		cfg:           cfg,
		kin:           kin,
		modules:       modules,
		gyro:          gyro,
		source:        source,
		clk:           clock.New(),
		logger:        logger,
		state:         StateNormalDrive,
		fieldRelative: cfg.FieldRelative,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.publish(kinematics.ChassisSpeeds{}, false)
	return d, nil
}

// NewFromConfig builds the modules a config describes from deps, then the drivetrain.
func NewFromConfig(
	ctx context.Context,
	cfg Config,
	deps Dependencies,
	source CommandSource,
	logger logging.Logger,
	opts ...Option,
) (*Drivetrain, error) {
	if _, err := cfg.Validate("drivetrain"); err != nil {
		return nil, err
	}
	gyro, err := deps.MovementSensor(cfg.MovementSensor)
	if err != nil {
		return nil, err
	}
	modules := make([]*swervemodule.Module, 0, len(cfg.Modules))
	for i, modCfg := range cfg.Modules {
		hw, err := deps.ModuleHardware(modCfg)
		if err != nil {
			return nil, errors.Wrapf(err, "module %s", modCfg.Name)
		}
		m, err := swervemodule.NewModule(ctx, i, modCfg, cfg.MaxSpeed, hw, logger.Sublogger(modCfg.Name))
		if err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	return New(cfg, modules, gyro, source, logger, opts...)
}

// Modules returns the module arena in index order.
func (d *Drivetrain) Modules() []*swervemodule.Module {
	return d.modules
}

// Status returns the snapshot published by the last cycle.
func (d *Drivetrain) Status() Status {
	return *d.status.Load()
}

// State returns the current drive state.
func (d *Drivetrain) State() DriveState {
	return d.Status().State
}

// FieldRelative reports whether commands are currently interpreted in the field frame.
func (d *Drivetrain) FieldRelative() bool {
	return d.Status().FieldRelative
}

// Stop makes every following cycle command zero speed until Resume. Modules keep their angles.
func (d *Drivetrain) Stop() {
	if !d.stopped.Swap(true) {
		d.logger.Info("drivetrain stopped")
	}
}

// Resume undoes Stop.
func (d *Drivetrain) Resume() {
	if d.stopped.Swap(false) {
		d.logger.Info("drivetrain resumed")
	}
}

// Tick runs one control cycle: sample the command and heading once, act on toggle edges, compute
// targets for the current state, optimize each against its module's measured angle, and command the
// modules. Sensor faults are flagged in the status rather than returned. Errors from the command
// source, the actuators, or uncalibrated modules are returned after every module has been commanded.
func (d *Drivetrain) Tick(ctx context.Context, dt time.Duration) error {
	d.cycle++
	cmd, sourceErr := d.source.Next(ctx, dt)
	if sourceErr != nil {
		cmd = Command{}
		sourceErr = errors.Wrap(sourceErr, "reading command source")
	}
	d.readHeading(ctx)

	var (
		errs         error
		transitioned bool
	)
	// A failed read says nothing about the buttons, so the edge detectors keep their last level.
	if sourceErr == nil {
		if d.zeroEdge.Rising(cmd.ZeroHeading) {
			errs = multierr.Append(errs, d.zeroHeading(ctx))
		}
		if d.resetEdge.Rising(cmd.ResetModules) {
			errs = multierr.Append(errs, d.ResetModulesToAbsolute(ctx))
		}
		if d.fieldEdge.Rising(cmd.FieldRelativeToggle) {
			d.fieldRelative = !d.fieldRelative
			d.logger.Infow("field relative toggled", "field_relative", d.fieldRelative)
		}
		transitioned = d.lockEdge.Rising(cmd.DefensiveLockToggle)
		if transitioned {
			if d.state == StateNormalDrive {
				d.transition(StateDefensiveLock)
			} else {
				d.transition(StateNormalDrive)
			}
		}
	}

	for _, m := range d.modules {
		m.Refresh(ctx)
	}

	var (
		targets   []kinematics.ModuleState
		commanded kinematics.ChassisSpeeds
		saturated bool
		opts      = swervemodule.DesiredStateOptions{OpenLoop: d.cfg.OpenLoop}
	)
	switch d.state {
	case StateDefensiveLock:
		targets = d.lockTargets()
		opts.ForceAngle = true
	default:
		// The command was shaped before the exit hook reset the source, so the cycle that changes
		// state holds still.
		if !d.stopped.Load() && !transitioned {
			commanded = cmd.Speeds
			if d.fieldRelative {
				commanded = kinematics.FromFieldRelative(commanded, d.heading)
			}
		}
		targets, saturated = d.kin.ToModuleStates(commanded, d.cfg.RotationCenter())
	}

	for i, m := range d.modules {
		target := kinematics.Optimize(targets[i], m.State().Angle)
		errs = multierr.Append(errs, m.SetDesiredState(ctx, target, dt, opts))
	}

	d.publish(commanded, saturated)
	return multierr.Combine(sourceErr, errs)
}

// lockTargets points each wheel along the line through its module and the chassis center.
func (d *Drivetrain) lockTargets() []kinematics.ModuleState {
	return lo.Map(d.kin.Modules(), func(g kinematics.ModuleGeometry, _ int) kinematics.ModuleState {
		return kinematics.ModuleState{Angle: g.Location.Angle()}
	})
}

func (d *Drivetrain) transition(next DriveState) {
	prev := d.state
	d.exit(prev)
	d.state = next
	d.enter(next)
	d.logger.Infow("drive state changed", "from", prev, "to", next)
}

func (d *Drivetrain) enter(state DriveState) {
	if state == StateDefensiveLock {
		d.logger.Debug("locking wheels")
	}
}

func (d *Drivetrain) exit(state DriveState) {
	if r, ok := d.source.(Resetter); ok {
		r.Reset()
	}
	if state == StateDefensiveLock {
		d.logger.Debug("releasing wheel lock")
	}
}

// readHeading samples the gyro once per cycle. A failed read keeps the last heading.
func (d *Drivetrain) readHeading(ctx context.Context) {
	deg, err := d.gyro.Heading(ctx, nil)
	if err != nil {
		if !d.headingStale {
			d.logger.Warnw("heading read failed, using last known heading", "error", err)
		}
		d.headingStale = true
		return
	}
	if d.headingStale {
		d.logger.Info("heading recovered")
	}
	d.headingStale = false
	d.heading = spatialmath.NewRotation2DFromDegrees(deg).Normalized()
}

func (d *Drivetrain) zeroHeading(ctx context.Context) error {
	if err := d.gyro.ResetHeading(ctx, nil); err != nil {
		return errors.Wrap(err, "zeroing heading")
	}
	d.heading = spatialmath.NewRotation2DFromDegrees(0)
	d.logger.Info("heading zeroed")
	return nil
}

// ResetModulesToAbsolute re-establishes every module's steering zero. Call it from the goroutine
// that runs Tick, or while the loop is stopped.
func (d *Drivetrain) ResetModulesToAbsolute(ctx context.Context) error {
	var errs error
	for _, m := range d.modules {
		errs = multierr.Append(errs, m.ResetToAbsolute(ctx))
	}
	return errs
}

func (d *Drivetrain) publish(commanded kinematics.ChassisSpeeds, saturated bool) {
	moduleStatus := lo.Map(d.modules, func(m *swervemodule.Module, _ int) swervemodule.Status {
		return m.Status()
	})
	measured, err := d.kin.ToChassisSpeeds(lo.Map(moduleStatus, func(s swervemodule.Status, _ int) kinematics.ModuleState {
		return kinematics.ModuleState{Angle: s.Measured.Angle, Speed: s.Measured.Velocity}
	}))
	if err != nil {
		d.logger.Debugw("could not compute measured chassis speeds", "error", err)
	}
	d.status.Store(&Status{
		Time:          d.clk.Now(),
		Cycle:         d.cycle,
		State:         d.state,
		FieldRelative: d.fieldRelative,
		Stopped:       d.stopped.Load(),
		HeadingDeg:    d.heading.Degrees(),
		HeadingStale:  d.headingStale,
		Commanded:     commanded,
		Measured:      measured,
		Saturated:     saturated,
		Modules:       lo.Map(moduleStatus, newModuleStatus),
	})
}

// Close stops every module.
func (d *Drivetrain) Close(ctx context.Context) error {
	var errs error
	for _, m := range d.modules {
		errs = multierr.Append(errs, m.Stop(ctx))
	}
	return errs
}
