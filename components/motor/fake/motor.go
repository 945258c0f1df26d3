// Package fake implements a fake motor with first order dynamics, optionally wired to a fake encoder.
package fake

import (
	"context"
	"math"
	"sync"
	"time"

	fakeencoder "go.viam.com/swerve/components/encoder/fake"
	"go.viam.com/swerve/components/motor"
)

// Motor records the power it is given. When Encoder is set, Simulate advances the encoder as if the
// motor spun it.
type Motor struct {
	mu       sync.Mutex
	name     string
	powerPct float64
	velocity float64

	// Encoder, if set, is moved by Simulate.
	Encoder *fakeencoder.Encoder
	// MaxTicksPerSec is the encoder rate at full power.
	MaxTicksPerSec float64
	// TimeConstant is how quickly the motor approaches the commanded rate. Zero is instantaneous.
	TimeConstant time.Duration
	// PowerErr, when set, is returned by SetPower.
	PowerErr error
	// RecordHistory makes SetPower append every accepted command to History.
	RecordHistory bool
	History       []float64
}

// NewMotor returns a motor with the given name.
func NewMotor(name string) *Motor {
	return &Motor{name: name}
}

// Name returns the name of the motor.
func (m *Motor) Name() string {
	return m.name
}

// SetPower sets the power.
func (m *Motor) SetPower(ctx context.Context, powerPct float64, extra map[string]interface{}) error {
	powerPct, err := motor.CheckPower(m.name, powerPct)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PowerErr != nil {
		return motor.NewMotorFaultError(m.name, m.PowerErr)
	}
	m.powerPct = powerPct
	if m.RecordHistory {
		m.History = append(m.History, powerPct)
	}
	return nil
}

// Stop sets the power to zero.
func (m *Motor) Stop(ctx context.Context, extra map[string]interface{}) error {
	return m.SetPower(ctx, 0, extra)
}

// IsPowered returns whether power is nonzero and the current power.
func (m *Motor) IsPowered(ctx context.Context, extra map[string]interface{}) (bool, float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.powerPct != 0, m.powerPct, nil
}

// Power returns the last commanded power.
func (m *Motor) Power() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.powerPct
}

// Simulate advances the motor and its encoder by dt.
func (m *Motor) Simulate(dt time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	target := m.powerPct * m.MaxTicksPerSec
	if m.TimeConstant <= 0 {
		m.velocity = target
	} else {
		alpha := 1 - math.Exp(-dt.Seconds()/m.TimeConstant.Seconds())
		m.velocity += alpha * (target - m.velocity)
	}
	if m.Encoder != nil {
		m.Encoder.Advance(m.velocity, dt)
	}
}
