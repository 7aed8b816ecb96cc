package nn

import (
	"errors"
	"fmt"
)

var ErrWeightCountMismatch = errors.New("weight count mismatch")

type layer struct {
	inputs   int
	outputs  int
	weights  []float64 // row-major [outputs][inputs]
	biases   []float64
	activate ActivationFunc
}

// Feedforward is a fixed-layout fully connected network whose weights and
// biases come from a flat parameter slice, layer by layer, weights before
// biases within a layer.
type Feedforward struct {
	layers []layer
}

// WeightCount returns the flat parameter count a layout requires.
func WeightCount(inputs int, hidden []int, outputs int) int {
	total := 0
	prev := inputs
	for _, h := range hidden {
		total += prev*h + h
		prev = h
	}
	total += prev*outputs + outputs
	return total
}

func NewFeedforward(inputs int, hidden []int, outputs int, activation, outputActivation string, params []float64) (*Feedforward, error) {
	if inputs <= 0 || outputs <= 0 {
		return nil, fmt.Errorf("network needs inputs > 0 and outputs > 0, got %d/%d", inputs, outputs)
	}
	for i, h := range hidden {
		if h <= 0 {
			return nil, fmt.Errorf("hidden layer %d must be > 0, got %d", i, h)
		}
	}
	want := WeightCount(inputs, hidden, outputs)
	if len(params) != want {
		return nil, fmt.Errorf("%w: got=%d want=%d", ErrWeightCountMismatch, len(params), want)
	}

	hiddenFn, err := GetActivation(activation)
	if err != nil {
		return nil, err
	}
	outputFn, err := GetActivation(outputActivation)
	if err != nil {
		return nil, err
	}

	sizes := append(append([]int{inputs}, hidden...), outputs)
	layers := make([]layer, 0, len(sizes)-1)
	offset := 0
	for l := 0; l < len(sizes)-1; l++ {
		in, out := sizes[l], sizes[l+1]
		fn := hiddenFn
		if l == len(sizes)-2 {
			fn = outputFn
		}
		layers = append(layers, layer{
			inputs:   in,
			outputs:  out,
			weights:  params[offset : offset+in*out],
			biases:   params[offset+in*out : offset+in*out+out],
			activate: fn,
		})
		offset += in*out + out
	}
	return &Feedforward{layers: layers}, nil
}

func (f *Feedforward) Forward(inputs []float64) ([]float64, error) {
	if len(inputs) != f.layers[0].inputs {
		return nil, fmt.Errorf("network expects %d inputs, got %d", f.layers[0].inputs, len(inputs))
	}
	values := inputs
	for _, l := range f.layers {
		next := make([]float64, l.outputs)
		for o := 0; o < l.outputs; o++ {
			total := l.biases[o]
			row := l.weights[o*l.inputs : (o+1)*l.inputs]
			for i, w := range row {
				total += values[i] * w
			}
			next[o] = l.activate(total)
		}
		values = next
	}
	return values, nil
}
