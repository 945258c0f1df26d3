// Package fake implements a scriptable input controller for tests and simulation.
package fake

import (
	"context"
	"sync"
	"time"

	"go.viam.com/swerve/input"
)

// Controller returns whatever state was last set on it.
type Controller struct {
	mu      sync.Mutex
	axes    map[input.Control]float64
	buttons map[input.Control]bool
	// SnapshotErr, when set, is returned by Snapshot.
	SnapshotErr error
}

// NewController returns a controller with every axis centered and every button released.
func NewController() *Controller {
	return &Controller{
		axes:    map[input.Control]float64{},
		buttons: map[input.Control]bool{},
	}
}

// SetAxis sets an axis value.
func (c *Controller) SetAxis(control input.Control, value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.axes[control] = value
}

// SetButton presses or releases a button.
func (c *Controller) SetButton(control input.Control, pressed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buttons[control] = pressed
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot(ctx context.Context) (input.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SnapshotErr != nil {
		return input.Snapshot{}, c.SnapshotErr
	}
	snap := input.Snapshot{
		Time:    time.Now(),
		Axes:    make(map[input.Control]float64, len(c.axes)),
		Buttons: make(map[input.Control]bool, len(c.buttons)),
	}
	for k, v := range c.axes {
		snap.Axes[k] = v
	}
	for k, v := range c.buttons {
		snap.Buttons[k] = v
	}
	return snap, nil
}
