package controller

import (
	"errors"
	"fmt"

	"bipedevo/internal/model"
)

const (
	KindNetwork = "network"
	KindCPG     = "cpg"
)

var ErrMissingGene = errors.New("missing gene field")

// Controller maps simulation time and state to joint torques. A controller
// is a pure function: it carries no mutable episode state, so one instance
// may be re-invoked at arbitrary non-decreasing times within an episode and
// reused across slope branch runs.
type Controller interface {
	Output(t float64, state []float64) []float64
}

// Build constructs a controller of the configured kind from decoded genome
// fields. Layer sizes and activations come from run-level configuration,
// never from genes.
func Build(cfg model.ControllerConfig, fields map[string]float64) (Controller, error) {
	switch cfg.Kind {
	case KindNetwork:
		return NewNetworkController(cfg, fields)
	case KindCPG:
		return NewCPGController(cfg, fields)
	default:
		return nil, fmt.Errorf("unsupported controller kind: %s", cfg.Kind)
	}
}

// GeneSpecFor generates the gene layout a controller kind evolves. The field
// order doubles as the flat parameter order used by the builders, so the
// codec and the controllers share a single layout definition.
func GeneSpecFor(cfg model.ControllerConfig) (model.GeneSpec, error) {
	switch cfg.Kind {
	case KindNetwork:
		return networkGeneSpec(cfg)
	case KindCPG:
		return cpgGeneSpec(cfg)
	default:
		return model.GeneSpec{}, fmt.Errorf("unsupported controller kind: %s", cfg.Kind)
	}
}

// orderedValues pulls field values in spec order out of a decoded gene map.
func orderedValues(spec model.GeneSpec, fields map[string]float64) ([]float64, error) {
	out := make([]float64, 0, len(spec.Fields))
	for _, field := range spec.Fields {
		v, ok := fields[field.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingGene, field.Name)
		}
		out = append(out, v)
	}
	return out, nil
}

func normalizeControllerConfig(cfg model.ControllerConfig) model.ControllerConfig {
	if cfg.Inputs <= 0 {
		cfg.Inputs = 6
	}
	if cfg.Outputs <= 0 {
		cfg.Outputs = 2
	}
	if cfg.Activation == "" {
		cfg.Activation = "tanh"
	}
	if cfg.OutputActivation == "" {
		cfg.OutputActivation = "tanh"
	}
	return cfg
}
