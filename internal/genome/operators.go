package genome

import (
	"fmt"
	"math/rand"

	"bipedevo/internal/model"
)

// Crossover performs two-point crossover: two cut indices 0 <= i < j <= L
// are drawn uniformly and the [i, j) segment is swapped between parents.
// Base-block coordinates are restored afterwards, so they stay identical to
// the spec's base values in both children.
func (c *Codec) Crossover(rng *rand.Rand, a, b model.Genome, childAID, childBID string) (model.Genome, model.Genome, error) {
	length := len(c.spec.Fields)
	if len(a.Genes) != length || len(b.Genes) != length {
		return model.Genome{}, model.Genome{}, fmt.Errorf("%w: parents %d/%d want %d",
			ErrInvalidGenomeLength, len(a.Genes), len(b.Genes), length)
	}

	i := rng.Intn(length + 1)
	j := rng.Intn(length + 1)
	if i > j {
		i, j = j, i
	}

	childA := model.Genome{ID: childAID, Genes: append([]float64(nil), a.Genes...)}
	childB := model.Genome{ID: childBID, Genes: append([]float64(nil), b.Genes...)}
	for k := i; k < j; k++ {
		childA.Genes[k], childB.Genes[k] = childB.Genes[k], childA.Genes[k]
	}
	c.overlayBase(&childA)
	c.overlayBase(&childB)
	return childA, childB, nil
}

// Mutate perturbs each non-base gene with probability rate by a Gaussian
// draw scaled by sigma times the field's range width, clamping the result
// to the declared range. rate=0 returns an identical copy.
func (c *Codec) Mutate(rng *rand.Rand, g model.Genome, rate, sigma float64, childID string) (model.Genome, error) {
	if len(g.Genes) != len(c.spec.Fields) {
		return model.Genome{}, fmt.Errorf("%w: got=%d want=%d", ErrInvalidGenomeLength, len(g.Genes), len(c.spec.Fields))
	}

	out := model.Genome{ID: childID, Genes: append([]float64(nil), g.Genes...)}
	for i, field := range c.spec.Fields {
		if c.spec.InBase(i) {
			continue
		}
		if rate <= 0 || rng.Float64() >= rate {
			continue
		}
		width := field.Max - field.Min
		out.Genes[i] = clamp(out.Genes[i]+rng.NormFloat64()*sigma*width, field.Min, field.Max)
	}
	c.overlayBase(&out)
	return out, nil
}
