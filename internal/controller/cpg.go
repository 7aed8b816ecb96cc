package controller

import (
	"fmt"
	"math"

	"bipedevo/internal/model"
)

type cpgUnit struct {
	amplitude float64
	frequency float64
	phase     float64
	offset    float64
	gain      float64
}

// CPGController drives each joint with an evolved sinusoidal pattern
// generator plus a proportional state-feedback term.
type CPGController struct {
	units  []cpgUnit
	inputs int
}

func NewCPGController(cfg model.ControllerConfig, fields map[string]float64) (*CPGController, error) {
	cfg = normalizeControllerConfig(cfg)
	spec, err := cpgGeneSpec(cfg)
	if err != nil {
		return nil, err
	}
	params, err := orderedValues(spec, fields)
	if err != nil {
		return nil, err
	}

	units := make([]cpgUnit, cfg.Outputs)
	for j := 0; j < cfg.Outputs; j++ {
		base := j * 5
		units[j] = cpgUnit{
			amplitude: params[base],
			frequency: params[base+1],
			phase:     params[base+2],
			offset:    params[base+3],
			gain:      params[base+4],
		}
	}
	return &CPGController{units: units, inputs: cfg.Inputs}, nil
}

func (c *CPGController) Output(t float64, state []float64) []float64 {
	out := make([]float64, len(c.units))
	for j, unit := range c.units {
		feedback := 0.0
		if len(state) > 0 {
			feedback = unit.gain * state[j%len(state)]
		}
		out[j] = unit.offset + unit.amplitude*math.Sin(2*math.Pi*unit.frequency*t+unit.phase) + feedback
	}
	return out
}

func cpgGeneSpec(cfg model.ControllerConfig) (model.GeneSpec, error) {
	cfg = normalizeControllerConfig(cfg)
	if cfg.Outputs <= 0 {
		return model.GeneSpec{}, fmt.Errorf("cpg controller needs outputs > 0, got %d", cfg.Outputs)
	}

	fields := make([]model.GeneField, 0, cfg.Outputs*5)
	for j := 0; j < cfg.Outputs; j++ {
		fields = append(fields,
			model.GeneField{Name: fmt.Sprintf("cpg%d.amp", j), Min: 0, Max: 1.5},
			model.GeneField{Name: fmt.Sprintf("cpg%d.freq", j), Min: 0.2, Max: 3.0},
			model.GeneField{Name: fmt.Sprintf("cpg%d.phase", j), Min: -math.Pi, Max: math.Pi},
			model.GeneField{Name: fmt.Sprintf("cpg%d.offset", j), Min: -0.5, Max: 0.5},
			model.GeneField{Name: fmt.Sprintf("cpg%d.gain", j), Min: -1.0, Max: 1.0},
		)
	}
	return model.GeneSpec{Fields: fields}, nil
}
