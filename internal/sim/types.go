package sim

import (
	"context"
	"math"

	"bipedevo/internal/controller"
	"bipedevo/internal/model"
)

// EpisodeConfig describes one simulation episode. The zero value is
// normalized to a 10 s flat-ground episode of the default biped. The type
// lives in model so it can be persisted alongside the run state.
type EpisodeConfig = model.EpisodeConfig

// normalized fills zero fields with the default walker parameters.
func normalized(c EpisodeConfig) EpisodeConfig {
	if c.Duration <= 0 {
		c.Duration = 10.0
	}
	if c.StepSize <= 0 {
		c.StepSize = 0.005
	}
	if c.LegLength <= 0 {
		c.LegLength = 1.0
	}
	if c.Mass <= 0 {
		c.Mass = 8.0
	}
	if c.Gravity <= 0 {
		c.Gravity = 9.81
	}
	if c.MaxTorque <= 0 {
		c.MaxTorque = 30.0
	}
	return c
}

// OutputRecord is the structured result of one episode. The optimizer core
// consumes it read-only.
type OutputRecord struct {
	Time        []float64   `json:"time"`
	States      [][]float64 `json:"states"`
	Torques     [][]float64 `json:"torques"`
	GroundForce [][]float64 `json:"ground_force"`
	SupportX    []float64   `json:"support_x"`
	EndTime     float64     `json:"end_time"`
	Fell        bool        `json:"fell"`

	LegLength  float64 `json:"leg_length"`
	Mass       float64 `json:"mass"`
	Gravity    float64 `json:"gravity"`
	SlopeGrade float64 `json:"slope_grade"`

	Work          float64 `json:"work"`
	PotentialGain float64 `json:"potential_gain"`

	Period               float64   `json:"period,omitempty"`
	HasPeriod            bool      `json:"has_period"`
	EigenvalueMagnitudes []float64 `json:"eigenvalue_magnitudes,omitempty"`

	MaxSlope  float64 `json:"max_slope,omitempty"`
	MinSlope  float64 `json:"min_slope,omitempty"`
	HasSlopes bool    `json:"has_slopes"`
}

// Distance returns the forward progress of the hip over the episode.
func (r OutputRecord) Distance() float64 {
	if len(r.SupportX) == 0 {
		return 0
	}
	return r.SupportX[len(r.SupportX)-1] - r.SupportX[0]
}

// HipHeights returns the hip height above the walking surface per sample.
func (r OutputRecord) HipHeights() []float64 {
	out := make([]float64, len(r.States))
	for i, s := range r.States {
		if len(s) > 1 {
			out[i] = s[1]
		}
	}
	return out
}

// MaxEigenvalueMagnitude returns the spectral radius of the return map.
func (r OutputRecord) MaxEigenvalueMagnitude() float64 {
	max := 0.0
	for _, m := range r.EigenvalueMagnitudes {
		max = math.Max(max, m)
	}
	return max
}

// Simulator executes one episode with a freshly built controller. It must
// not retain state across calls beyond what EpisodeConfig specifies.
type Simulator interface {
	Run(ctx context.Context, c controller.Controller, cfg EpisodeConfig) (OutputRecord, error)
}
