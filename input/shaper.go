package input

import (
	"math"

	"go.viam.com/swerve/utils"
)

// Deadband zeroes values whose magnitude is at most deadband and rescales the rest so the output
// spans [-1, 1] continuously from the deadband edge.
func Deadband(value, deadband float64) float64 {
	if math.Abs(value) <= deadband {
		return 0
	}
	if deadband >= 1 {
		return 0
	}
	scaled := utils.Sign(value) * (math.Abs(value) - deadband) / (1 - deadband)
	return utils.Clamp(scaled, -1, 1)
}

// SlewRateLimiter limits how fast a signal may change. The zero value has an unlimited rate.
type SlewRateLimiter struct {
	// RatePerSec is the largest allowed change per second. Zero or negative disables limiting.
	RatePerSec float64
	prev       float64
}

// NewSlewRateLimiter returns a limiter starting at initial.
func NewSlewRateLimiter(ratePerSec, initial float64) *SlewRateLimiter {
	return &SlewRateLimiter{RatePerSec: ratePerSec, prev: initial}
}

// Calculate returns value moved toward from the previous output by at most RatePerSec*dt.
func (s *SlewRateLimiter) Calculate(value, dt float64) float64 {
	if s.RatePerSec <= 0 {
		s.prev = value
		return value
	}
	maxStep := s.RatePerSec * math.Max(dt, 0)
	s.prev += utils.Clamp(value-s.prev, -maxStep, maxStep)
	return s.prev
}

// Reset sets the previous output to value.
func (s *SlewRateLimiter) Reset(value float64) {
	s.prev = value
}

// EdgeDetector turns a level signal into rising edge events.
type EdgeDetector struct {
	prev bool
}

// Rising reports true only when level goes from false to true since the last call.
func (e *EdgeDetector) Rising(level bool) bool {
	rising := level && !e.prev
	e.prev = level
	return rising
}

// Reset forgets the previous level. A held button does not fire again after a reset.
func (e *EdgeDetector) Reset(level bool) {
	e.prev = level
}

// AxisConfig describes how one raw axis is shaped.
type AxisConfig struct {
	Control  Control `json:"control"`
	Deadband float64 `json:"deadband"`
	// SlewRate is in output units per second. Zero disables the rate limit.
	SlewRate float64 `json:"slew_rate"`
	Invert   bool    `json:"invert"`
}

// AxisShaper applies inversion, deadband, scaling and rate limiting to one axis, in that order.
type AxisShaper struct {
	cfg     AxisConfig
	scale   float64
	limiter *SlewRateLimiter
}

// NewAxisShaper returns a shaper whose output is the shaped axis times scale.
// The slew rate is applied in scaled units, so a rate of 3 with a scale of 4.5 m/s allows
// 13.5 m/s² of commanded acceleration.
func NewAxisShaper(cfg AxisConfig, scale float64) *AxisShaper {
	return &AxisShaper{
		cfg:     cfg,
		scale:   scale,
		limiter: NewSlewRateLimiter(cfg.SlewRate*scale, 0),
	}
}

// Shape runs one sample of raw through the stages.
func (a *AxisShaper) Shape(raw, dt float64) float64 {
	if a.cfg.Invert {
		raw = -raw
	}
	value := Deadband(utils.Clamp(raw, -1, 1), a.cfg.Deadband) * a.scale
	return a.limiter.Calculate(value, dt)
}

// Reset clears the rate limiter state to zero output.
func (a *AxisShaper) Reset() {
	a.limiter.Reset(0)
}

// Shaped is the output of a Shaper in chassis units.
type Shaped struct {
	Forward  float64
	Strafe   float64
	Rotation float64
}

// Shaper holds the three independently parameterized chassis axes.
type Shaper struct {
	Forward  *AxisShaper
	Strafe   *AxisShaper
	Rotation *AxisShaper
}

// NewShaper builds a shaper that scales forward and strafe to maxSpeed and rotation to maxAngular.
func NewShaper(forward, strafe, rotation AxisConfig, maxSpeed, maxAngular float64) *Shaper {
	return &Shaper{
		Forward:  NewAxisShaper(forward, maxSpeed),
		Strafe:   NewAxisShaper(strafe, maxSpeed),
		Rotation: NewAxisShaper(rotation, maxAngular),
	}
}

// Shape reads the configured controls from a snapshot and shapes them.
func (s *Shaper) Shape(snap Snapshot, dt float64) Shaped {
	return Shaped{
		Forward:  s.Forward.Shape(snap.Axis(s.Forward.cfg.Control), dt),
		Strafe:   s.Strafe.Shape(snap.Axis(s.Strafe.cfg.Control), dt),
		Rotation: s.Rotation.Shape(snap.Axis(s.Rotation.cfg.Control), dt),
	}
}

// Reset clears every axis limiter. Called when the drive mode changes.
func (s *Shaper) Reset() {
	s.Forward.Reset()
	s.Strafe.Reset()
	s.Rotation.Reset()
}
