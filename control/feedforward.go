package control

import (
	"go.viam.com/swerve/utils"
)

// SimpleMotorFeedforward predicts the voltage a permanent magnet DC motor needs to hold a velocity
// and acceleration. Gains are in volts per unit of velocity and acceleration.
type SimpleMotorFeedforward struct {
	KS float64 `json:"ks"`
	KV float64 `json:"kv"`
	KA float64 `json:"ka"`
}

// Calculate returns kS·sign(v) + kV·v + kA·a.
func (f SimpleMotorFeedforward) Calculate(velocity, acceleration float64) float64 {
	return f.KS*utils.Sign(velocity) + f.KV*velocity + f.KA*acceleration
}

// MaxAchievableVelocity returns the fastest steady state velocity reachable with maxVoltage
// while accelerating at acceleration.
func (f SimpleMotorFeedforward) MaxAchievableVelocity(maxVoltage, acceleration float64) float64 {
	if f.KV == 0 {
		return 0
	}
	return (maxVoltage - f.KS - acceleration*f.KA) / f.KV
}
