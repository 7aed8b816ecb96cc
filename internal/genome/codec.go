package genome

import (
	"errors"
	"fmt"
	"math/rand"

	"bipedevo/internal/model"
)

var (
	ErrInvalidGenomeLength = errors.New("invalid genome length")
	ErrInvalidGeneSpec     = errors.New("invalid gene spec")
)

// Codec maps between raw value slices and genomes under a fixed GeneSpec.
// All operators preserve genome length and keep every coordinate inside its
// declared field range.
type Codec struct {
	spec model.GeneSpec
}

func NewCodec(spec model.GeneSpec) (*Codec, error) {
	if len(spec.Fields) == 0 {
		return nil, fmt.Errorf("%w: no fields", ErrInvalidGeneSpec)
	}
	seen := make(map[string]struct{}, len(spec.Fields))
	for i, field := range spec.Fields {
		if field.Name == "" {
			return nil, fmt.Errorf("%w: unnamed field at index %d", ErrInvalidGeneSpec, i)
		}
		if field.Max < field.Min {
			return nil, fmt.Errorf("%w: field %s range [%g, %g]", ErrInvalidGeneSpec, field.Name, field.Min, field.Max)
		}
		if _, exists := seen[field.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate field %s", ErrInvalidGeneSpec, field.Name)
		}
		seen[field.Name] = struct{}{}
	}
	if spec.Base != nil {
		if spec.Base.Offset < 0 || spec.Base.Offset+len(spec.Base.Values) > len(spec.Fields) {
			return nil, fmt.Errorf("%w: base block [%d, %d) exceeds %d fields",
				ErrInvalidGeneSpec, spec.Base.Offset, spec.Base.Offset+len(spec.Base.Values), len(spec.Fields))
		}
	}
	return &Codec{spec: spec}, nil
}

func (c *Codec) Spec() model.GeneSpec {
	return c.spec
}

func (c *Codec) Length() int {
	return len(c.spec.Fields)
}

// Encode validates the value count against the spec and produces a genome
// with the base block overlaid and every coordinate clamped to range.
func (c *Codec) Encode(id string, values []float64) (model.Genome, error) {
	if len(values) != len(c.spec.Fields) {
		return model.Genome{}, fmt.Errorf("%w: got=%d want=%d", ErrInvalidGenomeLength, len(values), len(c.spec.Fields))
	}
	genes := make([]float64, len(values))
	for i, v := range values {
		genes[i] = clamp(v, c.spec.Fields[i].Min, c.spec.Fields[i].Max)
	}
	g := model.Genome{ID: id, Genes: genes}
	c.overlayBase(&g)
	return g, nil
}

// Decode returns the named field map for a genome.
func (c *Codec) Decode(g model.Genome) (map[string]float64, error) {
	if len(g.Genes) != len(c.spec.Fields) {
		return nil, fmt.Errorf("%w: got=%d want=%d", ErrInvalidGenomeLength, len(g.Genes), len(c.spec.Fields))
	}
	out := make(map[string]float64, len(g.Genes))
	for i, field := range c.spec.Fields {
		out[field.Name] = g.Genes[i]
	}
	return out, nil
}

// Random draws a uniform genome within every field range.
func (c *Codec) Random(rng *rand.Rand, id string) model.Genome {
	genes := make([]float64, len(c.spec.Fields))
	for i, field := range c.spec.Fields {
		genes[i] = field.Min + rng.Float64()*(field.Max-field.Min)
	}
	g := model.Genome{ID: id, Genes: genes}
	c.overlayBase(&g)
	return g
}

func (c *Codec) overlayBase(g *model.Genome) {
	if c.spec.Base == nil {
		return
	}
	copy(g.Genes[c.spec.Base.Offset:], c.spec.Base.Values)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
