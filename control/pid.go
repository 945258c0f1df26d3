package control

import (
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/swerve/utils"
)

// PIDConfig holds the gains of a PID controller.
type PIDConfig struct {
	Kp float64 `json:"kp"`
	Ki float64 `json:"ki"`
	Kd float64 `json:"kd"`
	// IntegralLimit bounds the magnitude of the integral term. Zero leaves it unbounded.
	IntegralLimit float64 `json:"integral_limit,omitempty"`
	// OutputLimit bounds the magnitude of the output. Zero leaves it unbounded.
	OutputLimit float64 `json:"output_limit,omitempty"`
}

// Validate ensures the gains are usable.
func (cfg PIDConfig) Validate() error {
	for name, v := range map[string]float64{
		"kp": cfg.Kp, "ki": cfg.Ki, "kd": cfg.Kd,
		"integral_limit": cfg.IntegralLimit, "output_limit": cfg.OutputLimit,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Errorf("pid %s must be finite", name)
		}
		if v < 0 {
			return errors.Errorf("pid %s must not be negative, got %v", name, v)
		}
	}
	if cfg.Kp == 0 && cfg.Ki == 0 && cfg.Kd == 0 {
		return errors.New("pid should have at least one of kp, ki or kd")
	}
	return nil
}

// PID is a discrete PID controller. With continuous input enabled, the error between setpoint and
// measurement is wrapped so the controller always takes the short way around.
type PID struct {
	mu  sync.Mutex
	cfg PIDConfig

	continuous bool
	minInput   float64
	maxInput   float64

	prevError float64
	havePrev  bool
	int       float64
	y         float64
}

// NewPID returns a controller with the given gains.
func NewPID(cfg PIDConfig) *PID {
	return &PID{cfg: cfg}
}

// EnableContinuousInput treats minInput and maxInput as the same point, as for an angle.
func (p *PID) EnableContinuousInput(minInput, maxInput float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.continuous = true
	p.minInput = minInput
	p.maxInput = maxInput
}

// Calculate returns the next output. dt is the time elapsed since the previous call.
func (p *PID) Calculate(measurement, setpoint float64, dt time.Duration) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := setpoint - measurement
	if p.continuous {
		halfRange := (p.maxInput - p.minInput) / 2
		err = utils.InputModulus(err, -halfRange, halfRange)
	}

	dtS := dt.Seconds()
	var deriv float64
	if dtS > 0 {
		p.int += p.cfg.Ki * err * dtS
		if p.cfg.IntegralLimit > 0 {
			p.int = utils.Clamp(p.int, -p.cfg.IntegralLimit, p.cfg.IntegralLimit)
		}
		if p.havePrev {
			deriv = (err - p.prevError) / dtS
		}
	}
	p.prevError = err
	p.havePrev = true

	output := p.cfg.Kp*err + p.int + p.cfg.Kd*deriv
	if p.cfg.OutputLimit > 0 {
		output = utils.Clamp(output, -p.cfg.OutputLimit, p.cfg.OutputLimit)
	}
	p.y = output
	return output
}

// Error returns the error seen by the last Calculate.
func (p *PID) Error() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prevError
}

// Output returns the last output.
func (p *PID) Output() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.y
}

// Reset clears the integral and derivative history.
func (p *PID) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.int = 0
	p.prevError = 0
	p.havePrev = false
	p.y = 0
}
