package main

import (
	"time"

	"go.viam.com/swerve/components/base/swerve"
	fakeencoder "go.viam.com/swerve/components/encoder/fake"
	fakemotor "go.viam.com/swerve/components/motor/fake"
	fakemovementsensor "go.viam.com/swerve/components/movementsensor/fake"
	"go.viam.com/swerve/config"
	"go.viam.com/swerve/kinematics"
	"go.viam.com/swerve/spatialmath"
)

// simHardware stands in for the robot: motors with first order dynamics spin the encoders they
// are attached to, and the gyro turns with the chassis.
type simHardware struct {
	deps   swerve.Dependencies
	motors []*fakemotor.Motor
	gyro   *fakemovementsensor.MovementSensor
	pose   spatialmath.Pose2D
}

// newSimHardware creates every device cfg names. The steering encoder doubles as the absolute
// encoder, reading the configured offset when the wheel points forward.
func newSimHardware(cfg *config.Config) *simHardware {
	sim := &simHardware{
		deps: swerve.NewDependencies(),
		gyro: fakemovementsensor.NewMovementSensor(cfg.Drivetrain.MovementSensor),
	}
	sim.deps.MovementSensors[cfg.Drivetrain.MovementSensor] = sim.gyro

	for _, mod := range cfg.Drivetrain.Modules {
		driveEnc := fakeencoder.NewEncoder(mod.DriveEncoder)
		steerEnc := fakeencoder.NewEncoder(mod.SteerEncoder)
		steerEnc.DegreesPerTick = mod.SteerDegreesPerTick
		steerEnc.AbsoluteOffsetDeg = cfg.Sim.AbsoluteOffsetsDeg[mod.Name]

		drive := fakemotor.NewMotor(mod.DriveMotor)
		drive.Encoder = driveEnc
		drive.MaxTicksPerSec = cfg.Sim.DriveTicksPerSec
		drive.TimeConstant = cfg.Sim.TimeConstant
		steer := fakemotor.NewMotor(mod.SteerMotor)
		steer.Encoder = steerEnc
		steer.MaxTicksPerSec = cfg.Sim.SteerTicksPerSec
		steer.TimeConstant = cfg.Sim.TimeConstant

		sim.motors = append(sim.motors, drive, steer)
		sim.deps.Motors[drive.Name()] = drive
		sim.deps.Motors[steer.Name()] = steer
		sim.deps.Encoders[driveEnc.Name()] = driveEnc
		sim.deps.Encoders[steerEnc.Name()] = steerEnc
		sim.deps.AbsoluteEncoders[mod.AbsoluteEncoder] = steerEnc
	}
	return sim
}

// Step advances the simulation by dt. measured is the chassis motion the drivetrain last observed.
func (sim *simHardware) Step(dt time.Duration, measured kinematics.ChassisSpeeds) {
	for _, m := range sim.motors {
		m.Simulate(dt)
	}
	sim.gyro.Integrate(measured.Omega, dt)
	sim.pose = sim.pose.Exp(spatialmath.Twist2D{
		Dx:     measured.Vx * dt.Seconds(),
		Dy:     measured.Vy * dt.Seconds(),
		Dtheta: measured.Omega * dt.Seconds(),
	})
}

// Pose returns where the simulated robot has driven to since start.
func (sim *simHardware) Pose() spatialmath.Pose2D {
	return sim.pose
}
