package controller

import (
	"fmt"

	"bipedevo/internal/model"
	"bipedevo/internal/nn"
)

const (
	networkWeightMin = -3.0
	networkWeightMax = 3.0
)

// NetworkController drives the joints with a fixed-layout feedforward
// network fed with the simulation state.
type NetworkController struct {
	net     *nn.Feedforward
	inputs  int
	outputs int
}

func NewNetworkController(cfg model.ControllerConfig, fields map[string]float64) (*NetworkController, error) {
	cfg = normalizeControllerConfig(cfg)
	spec, err := networkGeneSpec(cfg)
	if err != nil {
		return nil, err
	}
	params, err := orderedValues(spec, fields)
	if err != nil {
		return nil, err
	}
	net, err := nn.NewFeedforward(cfg.Inputs, cfg.HiddenLayers, cfg.Outputs, cfg.Activation, cfg.OutputActivation, params)
	if err != nil {
		return nil, err
	}
	return &NetworkController{net: net, inputs: cfg.Inputs, outputs: cfg.Outputs}, nil
}

func (c *NetworkController) Output(_ float64, state []float64) []float64 {
	inputs := make([]float64, c.inputs)
	copy(inputs, state)
	out, err := c.net.Forward(inputs)
	if err != nil {
		return make([]float64, c.outputs)
	}
	return out
}

func networkGeneSpec(cfg model.ControllerConfig) (model.GeneSpec, error) {
	cfg = normalizeControllerConfig(cfg)
	for i, h := range cfg.HiddenLayers {
		if h <= 0 {
			return model.GeneSpec{}, fmt.Errorf("hidden layer %d must be > 0, got %d", i, h)
		}
	}

	sizes := append(append([]int{cfg.Inputs}, cfg.HiddenLayers...), cfg.Outputs)
	fields := make([]model.GeneField, 0, nn.WeightCount(cfg.Inputs, cfg.HiddenLayers, cfg.Outputs))
	for l := 0; l < len(sizes)-1; l++ {
		in, out := sizes[l], sizes[l+1]
		for o := 0; o < out; o++ {
			for i := 0; i < in; i++ {
				fields = append(fields, model.GeneField{
					Name: fmt.Sprintf("l%d.w%d.%d", l, o, i),
					Min:  networkWeightMin,
					Max:  networkWeightMax,
				})
			}
		}
		for o := 0; o < out; o++ {
			fields = append(fields, model.GeneField{
				Name: fmt.Sprintf("l%d.b%d", l, o),
				Min:  networkWeightMin,
				Max:  networkWeightMax,
			})
		}
	}
	return model.GeneSpec{Fields: fields}, nil
}
