// Package swervemodule closes the loop on one independently steered wheel: a software PID turns the
// steering motor toward the target angle and the drive motor follows the target speed, open loop or
// with velocity feedback plus feedforward.
package swervemodule

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/swerve/components/encoder"
	"go.viam.com/swerve/components/motor"
	"go.viam.com/swerve/control"
	"go.viam.com/swerve/kinematics"
	"go.viam.com/swerve/logging"
	"go.viam.com/swerve/spatialmath"
	"go.viam.com/swerve/utils"
)

// holdSpeedFraction is the fraction of max speed below which the steering target is held.
const holdSpeedFraction = 0.01

// Hardware is the set of devices one module drives and reads.
type Hardware struct {
	DriveMotor      motor.Motor
	SteerMotor      motor.Motor
	DriveEncoder    encoder.Encoder
	SteerEncoder    encoder.Encoder
	AbsoluteEncoder encoder.AbsoluteEncoder
}

func (hw Hardware) validate() error {
	switch {
	case hw.DriveMotor == nil:
		return errors.New("drive motor is required")
	case hw.SteerMotor == nil:
		return errors.New("steer motor is required")
	case hw.DriveEncoder == nil:
		return errors.New("drive encoder is required")
	case hw.SteerEncoder == nil:
		return errors.New("steer encoder is required")
	case hw.AbsoluteEncoder == nil:
		return errors.New("absolute encoder is required")
	}
	return nil
}

// MeasuredState is what the sensors last reported.
type MeasuredState struct {
	Angle spatialmath.Rotation2D
	// Velocity is the wheel speed in m/s.
	Velocity float64
	// Distance is the drive travel in meters.
	Distance float64
	// AngleStale is set when the steering encoder could not be read and Angle is the last good value.
	AngleStale bool
	// DriveStale is set when the drive encoder could not be read and Velocity and Distance are old.
	DriveStale bool
}

// Stale reports whether any reading is old.
func (s MeasuredState) Stale() bool {
	return s.AngleStale || s.DriveStale
}

// DesiredStateOptions changes how a desired state is applied.
type DesiredStateOptions struct {
	// OpenLoop drives the wheel at a power proportional to speed with no velocity feedback.
	OpenLoop bool
	// ForceAngle steers to the target even when the speed is too low to normally bother.
	ForceAngle bool
}

// Status is a copy of a module's latest inputs and outputs.
type Status struct {
	Index      int
	Name       string
	Measured   MeasuredState
	Desired    kinematics.ModuleState
	DrivePower float64
	SteerPower float64
	Calibrated bool
}

// Module controls one swerve module. Modules are owned by a single control loop; the mutex only
// guards readers of Status.
type Module struct {
	geometry kinematics.ModuleGeometry
	cfg      Config
	maxSpeed float64
	hw       Hardware
	logger   logging.Logger

	steerPID       *control.PID
	drivePID       *control.PID
	velocityFilter *control.MovingAverageFilter

	mu            sync.Mutex
	calibrated    bool
	measured      MeasuredState
	desired       kinematics.ModuleState
	lastSetpoint  float64
	drivePower    float64
	steerPower    float64
	warnedStale   bool
	warnedUncalib bool
}

// NewModule builds a module and, when an angle offset is configured, resets its steering encoder to
// the absolute sensor. A failed reset leaves the module uncalibrated rather than failing
// construction; Calibrated reports the outcome.
func NewModule(
	ctx context.Context,
	index int,
	cfg Config,
	maxSpeed float64,
	hw Hardware,
	logger logging.Logger,
) (*Module, error) {
	if _, err := cfg.Validate("module"); err != nil {
		return nil, err
	}
	if err := hw.validate(); err != nil {
		return nil, errors.Wrapf(err, "module %s", cfg.Name)
	}
	if maxSpeed <= 0 {
		return nil, errors.Errorf("module %s: max speed must be positive, got %v", cfg.Name, maxSpeed)
	}

	steerPID := control.NewPID(cfg.SteerPID)
	steerPID.EnableContinuousInput(-180, 180)

	m := &Module{
		geometry: kinematics.ModuleGeometry{
			Index:    index,
			Name:     cfg.Name,
			Location: spatialmath.NewTranslation2D(cfg.X, cfg.Y),
		},
		cfg:      cfg,
		maxSpeed: maxSpeed,
		hw:       hw,
		logger:   logger,
		steerPID: steerPID,
		drivePID: control.NewPID(cfg.DrivePID),
	}
	if cfg.VelocityFilterSize > 1 {
		filter, err := control.NewMovingAverageFilter(cfg.VelocityFilterSize)
		if err != nil {
			return nil, err
		}
		m.velocityFilter = filter
	}

	if cfg.AngleOffsetDeg == nil {
		logger.Warnw("no steering offset configured, module is uncalibrated", "module", cfg.Name)
		return m, nil
	}
	if err := m.ResetToAbsolute(ctx); err != nil {
		logger.Errorw("initial absolute reset failed, module is uncalibrated", "module", cfg.Name, "error", err)
	}
	return m, nil
}

// Index returns the module's slot in the drivetrain.
func (m *Module) Index() int {
	return m.geometry.Index
}

// Name returns the module's configured name.
func (m *Module) Name() string {
	return m.geometry.Name
}

// Geometry returns where the module sits on the chassis.
func (m *Module) Geometry() kinematics.ModuleGeometry {
	return m.geometry
}

// Calibrated reports whether the steering zero has been established from the absolute sensor.
func (m *Module) Calibrated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calibrated
}

// ResetToAbsolute sets the steering encoder so it reads the absolute angle minus the configured
// offset. Calling it again with the wheel unmoved gives the same result. It may be called at any
// time, for example after a brownout reset the encoder.
func (m *Module) ResetToAbsolute(ctx context.Context) error {
	if m.cfg.AngleOffsetDeg == nil {
		return NewCalibrationMissingError(m.Name())
	}
	absDeg, err := m.hw.AbsoluteEncoder.AbsoluteDegrees(ctx, nil)
	if err != nil {
		return NewAbsoluteResetError(m.Name(), err)
	}
	angleDeg := utils.WrapDeg180(absDeg - *m.cfg.AngleOffsetDeg)
	if err := m.hw.SteerEncoder.ResetPosition(ctx, angleDeg/m.cfg.SteerDegreesPerTick, nil); err != nil {
		return NewAbsoluteResetError(m.Name(), err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calibrated = true
	m.warnedUncalib = false
	m.measured.Angle = spatialmath.NewRotation2DFromDegrees(angleDeg)
	m.measured.AngleStale = false
	m.desired.Angle = m.measured.Angle
	m.steerPID.Reset()
	m.logger.Infow("steering reset to absolute", "module", m.Name(), "absolute_deg", absDeg, "angle_deg", angleDeg)
	return nil
}

// Refresh reads the sensors once. Failed reads keep the previous value and mark it stale.
func (m *Module) Refresh(ctx context.Context) MeasuredState {
	steerTicks, steerErr := m.hw.SteerEncoder.Position(ctx, nil)
	driveTicks, driveErr := m.hw.DriveEncoder.Position(ctx, nil)
	var driveRate float64
	if driveErr == nil {
		driveRate, driveErr = m.hw.DriveEncoder.Velocity(ctx, nil)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if steerErr == nil {
		m.measured.Angle = spatialmath.NewRotation2DFromDegrees(utils.WrapDeg180(steerTicks * m.cfg.SteerDegreesPerTick))
	}
	m.measured.AngleStale = steerErr != nil
	if driveErr == nil {
		sign := 1.0
		if m.cfg.DriveInverted {
			sign = -1
		}
		m.measured.Distance = sign * driveTicks * m.cfg.DriveMetersPerTick
		m.measured.Velocity = sign * driveRate * m.cfg.DriveMetersPerTick
		if m.velocityFilter != nil {
			m.measured.Velocity, _ = m.velocityFilter.Next(m.measured.Velocity)
		}
	}
	m.measured.DriveStale = driveErr != nil

	if err := multierr.Combine(steerErr, driveErr); err != nil {
		if !m.warnedStale {
			m.logger.Warnw("module sensor read failed, using last known values", "module", m.Name(), "error", err)
			m.warnedStale = true
		}
	} else if m.warnedStale {
		m.logger.Infow("module sensors recovered", "module", m.Name())
		m.warnedStale = false
	}
	return m.measured
}

// State returns the last measured state.
func (m *Module) State() MeasuredState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.measured
}

// Position returns the accumulated drive distance and current angle.
func (m *Module) Position() kinematics.ModulePosition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return kinematics.ModulePosition{Distance: m.measured.Distance, Angle: m.measured.Angle}
}

// SetDesiredState commands the module toward desired. The angle is normalized before it reaches the
// steering controller. Unless opts.ForceAngle is set, a speed below 1% of max keeps the previous
// steering target. The commands are issued even when the module is uncalibrated, in which case an
// error wrapping ErrCalibrationMissing is returned alongside any actuator failure.
func (m *Module) SetDesiredState(
	ctx context.Context,
	desired kinematics.ModuleState,
	dt time.Duration,
	opts DesiredStateOptions,
) error {
	m.mu.Lock()
	target := kinematics.ModuleState{Angle: desired.Angle.Normalized(), Speed: desired.Speed}
	if !opts.ForceAngle && math.Abs(target.Speed) < holdSpeedFraction*m.maxSpeed {
		target.Angle = m.desired.Angle
	}
	measured := m.measured
	calibrated := m.calibrated

	steerPower := m.steerPID.Calculate(measured.Angle.Degrees(), target.Angle.Degrees(), dt)
	var drivePower float64
	if opts.OpenLoop {
		drivePower = target.Speed / m.maxSpeed
		m.drivePID.Reset()
	} else {
		var accel float64
		if dt > 0 {
			// The previous setpoint is measured along the new wheel direction, so an optimizer flip
			// with the same ground velocity reads as no acceleration.
			previous := m.lastSetpoint * target.Angle.Minus(m.desired.Angle).Cos()
			accel = (target.Speed - previous) / dt.Seconds()
		}
		volts := m.drivePID.Calculate(measured.Velocity, target.Speed, dt) + m.cfg.DriveFF.Calculate(target.Speed, accel)
		drivePower = volts / m.cfg.nominalVoltage()
	}
	drivePower = utils.Clamp(drivePower, -1, 1)
	steerPower = utils.Clamp(steerPower, -1, 1)
	if m.cfg.DriveInverted {
		drivePower = -drivePower
	}
	if m.cfg.SteerInverted {
		steerPower = -steerPower
	}

	m.desired = target
	m.lastSetpoint = target.Speed
	m.drivePower = drivePower
	m.steerPower = steerPower
	m.mu.Unlock()

	err := multierr.Combine(
		m.hw.SteerMotor.SetPower(ctx, steerPower, nil),
		m.hw.DriveMotor.SetPower(ctx, drivePower, nil),
	)
	if !calibrated {
		m.mu.Lock()
		if !m.warnedUncalib {
			m.logger.Warnw("commanding uncalibrated module, steering angle is unreliable", "module", m.Name())
			m.warnedUncalib = true
		}
		m.mu.Unlock()
		err = multierr.Combine(NewCalibrationMissingError(m.Name()), err)
	}
	return err
}

// Stop cuts power to both motors and clears controller history. The steering target is kept.
func (m *Module) Stop(ctx context.Context) error {
	m.mu.Lock()
	m.steerPID.Reset()
	m.drivePID.Reset()
	m.lastSetpoint = 0
	m.desired.Speed = 0
	m.drivePower = 0
	m.steerPower = 0
	m.mu.Unlock()
	return multierr.Combine(
		m.hw.DriveMotor.Stop(ctx, nil),
		m.hw.SteerMotor.Stop(ctx, nil),
	)
}

// Status returns a copy of the module's latest state.
func (m *Module) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		Index:      m.geometry.Index,
		Name:       m.geometry.Name,
		Measured:   m.measured,
		Desired:    m.desired,
		DrivePower: m.drivePower,
		SteerPower: m.steerPower,
		Calibrated: m.calibrated,
	}
}
