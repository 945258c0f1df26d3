package swerve

import (
	"context"
	"sync"
	"time"

	"go.viam.com/swerve/input"
	"go.viam.com/swerve/kinematics"
)

// Command is one cycle's worth of driver intent. Toggle fields are levels, like a held button; the
// drivetrain acts on their rising edges.
type Command struct {
	// Speeds are robot relative, or field relative when field relative driving is on.
	Speeds              kinematics.ChassisSpeeds `json:"speeds"`
	FieldRelativeToggle bool                     `json:"field_relative_toggle,omitempty"`
	DefensiveLockToggle bool                     `json:"defensive_lock_toggle,omitempty"`
	ZeroHeading         bool                     `json:"zero_heading,omitempty"`
	ResetModules        bool                     `json:"reset_modules,omitempty"`
}

// A CommandSource is sampled once per control cycle.
type CommandSource interface {
	Next(ctx context.Context, dt time.Duration) (Command, error)
}

// A Resetter clears internal history, such as slew rate limiter state, when the drive mode changes.
type Resetter interface {
	Reset()
}

// TeleopBindings maps controller buttons to toggles.
type TeleopBindings struct {
	FieldRelative input.Control `json:"field_relative"`
	DefensiveLock input.Control `json:"defensive_lock"`
	ZeroHeading   input.Control `json:"zero_heading"`
	ResetModules  input.Control `json:"reset_modules"`
}

// DefaultTeleopBindings are the bindings for a standard gamepad.
var DefaultTeleopBindings = TeleopBindings{
	FieldRelative: input.ButtonSouth,
	DefensiveLock: input.ButtonWest,
	ZeroHeading:   input.ButtonStart,
	ResetModules:  input.ButtonSelect,
}

// TeleopSource shapes a controller's axes into chassis speeds.
type TeleopSource struct {
	controller input.Controller
	shaper     *input.Shaper
	bindings   TeleopBindings
}

// NewTeleopSource returns a source reading controller through shaper.
func NewTeleopSource(controller input.Controller, shaper *input.Shaper, bindings TeleopBindings) *TeleopSource {
	return &TeleopSource{controller: controller, shaper: shaper, bindings: bindings}
}

// Next samples the controller once.
func (ts *TeleopSource) Next(ctx context.Context, dt time.Duration) (Command, error) {
	snap, err := ts.controller.Snapshot(ctx)
	if err != nil {
		return Command{}, err
	}
	shaped := ts.shaper.Shape(snap, dt.Seconds())
	return Command{
		Speeds: kinematics.ChassisSpeeds{
			Vx:    shaped.Forward,
			Vy:    shaped.Strafe,
			Omega: shaped.Rotation,
		},
		FieldRelativeToggle: snap.Button(ts.bindings.FieldRelative),
		DefensiveLockToggle: snap.Button(ts.bindings.DefensiveLock),
		ZeroHeading:         snap.Button(ts.bindings.ZeroHeading),
		ResetModules:        snap.Button(ts.bindings.ResetModules),
	}, nil
}

// Reset clears the shaper's rate limiters.
func (ts *TeleopSource) Reset() {
	ts.shaper.Reset()
}

// ManualSource replays whatever command was last set, for autonomous callers and tests.
type ManualSource struct {
	mu  sync.Mutex
	cmd Command
}

// NewManualSource returns a source commanding zero speed.
func NewManualSource() *ManualSource {
	return &ManualSource{}
}

// Set replaces the command.
func (ms *ManualSource) Set(cmd Command) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.cmd = cmd
}

// SetSpeeds replaces only the chassis speeds.
func (ms *ManualSource) SetSpeeds(speeds kinematics.ChassisSpeeds) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.cmd.Speeds = speeds
}

// Next returns the current command.
func (ms *ManualSource) Next(ctx context.Context, dt time.Duration) (Command, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.cmd, nil
}
