package genome

import (
	"math/rand"
	"testing"
)

func TestCrossoverPreservesLengthAndGenes(t *testing.T) {
	codec, err := NewCodec(testSpec())
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	rng := rand.New(rand.NewSource(11))

	a, _ := codec.Encode("a", []float64{-1, 0, -3, 0.5})
	b, _ := codec.Encode("b", []float64{1, 2, 3, 0.5})

	for trial := 0; trial < 100; trial++ {
		childA, childB, err := codec.Crossover(rng, a, b, "ca", "cb")
		if err != nil {
			t.Fatalf("crossover: %v", err)
		}
		if len(childA.Genes) != codec.Length() || len(childB.Genes) != codec.Length() {
			t.Fatalf("length changed: %d/%d", len(childA.Genes), len(childB.Genes))
		}
		// Every coordinate still comes from one of the two parents.
		for i := range childA.Genes {
			fromA := childA.Genes[i] == a.Genes[i] && childB.Genes[i] == b.Genes[i]
			fromB := childA.Genes[i] == b.Genes[i] && childB.Genes[i] == a.Genes[i]
			if !fromA && !fromB {
				t.Fatalf("trial %d gene %d not inherited: %g/%g", trial, i, childA.Genes[i], childB.Genes[i])
			}
		}
	}
}

func TestCrossoverKeepsBaseBlockIdentical(t *testing.T) {
	codec, err := NewCodec(testSpecWithBase())
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	rng := rand.New(rand.NewSource(13))

	a, _ := codec.Encode("a", []float64{-1, 0, 0, 0.5})
	b, _ := codec.Encode("b", []float64{1, 0, 0, 0.5})

	for trial := 0; trial < 100; trial++ {
		childA, childB, err := codec.Crossover(rng, a, b, "ca", "cb")
		if err != nil {
			t.Fatalf("crossover: %v", err)
		}
		for _, child := range []struct{ genes []float64 }{{childA.Genes}, {childB.Genes}} {
			if child.genes[1] != 1.5 || child.genes[2] != -2.0 {
				t.Fatalf("trial %d base block perturbed: %v", trial, child.genes)
			}
		}
	}
}

func TestMutateZeroRateIsIdentity(t *testing.T) {
	codec, err := NewCodec(testSpec())
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	rng := rand.New(rand.NewSource(17))

	g, _ := codec.Encode("g", []float64{0.3, 1.1, -0.7, 0.5})
	out, err := codec.Mutate(rng, g, 0, 0.5, "m")
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	for i := range g.Genes {
		if out.Genes[i] != g.Genes[i] {
			t.Fatalf("gene %d changed with rate=0: %g -> %g", i, g.Genes[i], out.Genes[i])
		}
	}
	if out.ID != "m" {
		t.Fatalf("unexpected child id: %s", out.ID)
	}
}

func TestMutateStaysInRangeAndSkipsBase(t *testing.T) {
	codec, err := NewCodec(testSpecWithBase())
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	rng := rand.New(rand.NewSource(19))

	g, _ := codec.Encode("g", []float64{0, 0, 0, 0.5})
	for trial := 0; trial < 200; trial++ {
		out, err := codec.Mutate(rng, g, 1.0, 2.0, "m")
		if err != nil {
			t.Fatalf("mutate: %v", err)
		}
		for i, field := range codec.Spec().Fields {
			if out.Genes[i] < field.Min || out.Genes[i] > field.Max {
				t.Fatalf("trial %d gene %d out of range: %g", trial, i, out.Genes[i])
			}
		}
		if out.Genes[1] != 1.5 || out.Genes[2] != -2.0 {
			t.Fatalf("trial %d base block mutated: %v", trial, out.Genes)
		}
	}
}

func TestMutateDoesNotTouchInput(t *testing.T) {
	codec, err := NewCodec(testSpec())
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	rng := rand.New(rand.NewSource(23))

	g, _ := codec.Encode("g", []float64{0.3, 1.1, -0.7, 0.5})
	before := append([]float64(nil), g.Genes...)
	if _, err := codec.Mutate(rng, g, 1.0, 1.0, "m"); err != nil {
		t.Fatalf("mutate: %v", err)
	}
	for i := range before {
		if g.Genes[i] != before[i] {
			t.Fatalf("input genome mutated in place at %d", i)
		}
	}
}
