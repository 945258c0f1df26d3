// Package input defines operator input devices and the shaping applied to their axes before they
// become chassis motion commands.
package input

import (
	"context"
	"time"
)

// Controller is a logical input device, such as a gamepad or a remote joystick stream.
type Controller interface {
	// Snapshot returns the most recent state of every control on the device.
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Control identifies an axis or button on a controller.
type Control string

// Axes.
const (
	AbsoluteX  Control = "AbsoluteX"
	AbsoluteY  Control = "AbsoluteY"
	AbsoluteRX Control = "AbsoluteRX"
	AbsoluteRY Control = "AbsoluteRY"
)

// Buttons.
const (
	ButtonSouth  Control = "ButtonSouth"
	ButtonEast   Control = "ButtonEast"
	ButtonWest   Control = "ButtonWest"
	ButtonNorth  Control = "ButtonNorth"
	ButtonLT     Control = "ButtonLT"
	ButtonRT     Control = "ButtonRT"
	ButtonSelect Control = "ButtonSelect"
	ButtonStart  Control = "ButtonStart"
)

// Snapshot is the state of a controller at one instant.
// Axis values are in [-1, 1]. Buttons are pressed when true.
type Snapshot struct {
	Time    time.Time           `json:"time"`
	Axes    map[Control]float64 `json:"axes"`
	Buttons map[Control]bool    `json:"buttons"`
}

// Axis returns the value of an axis, zero if the device has not reported it.
func (s Snapshot) Axis(c Control) float64 {
	return s.Axes[c]
}

// Button reports whether a button is held.
func (s Snapshot) Button(c Control) bool {
	return s.Buttons[c]
}
