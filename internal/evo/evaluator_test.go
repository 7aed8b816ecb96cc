package evo

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"bipedevo/internal/controller"
	"bipedevo/internal/fitness"
	"bipedevo/internal/genome"
	"bipedevo/internal/model"
	"bipedevo/internal/sim"
)

// scriptedSim turns the controller's torque at t=0 into forward progress,
// giving each genome a deterministic, distinct episode without integrating
// anything.
type scriptedSim struct {
	err error
}

func (s scriptedSim) Run(_ context.Context, c controller.Controller, _ sim.EpisodeConfig) (sim.OutputRecord, error) {
	if s.err != nil {
		return sim.OutputRecord{}, s.err
	}
	out := c.Output(0, []float64{0.1, 0.95, 0.5, 0, 0.1, 0})
	distance := 0.0
	if len(out) > 0 {
		distance = 5 * (1 + math.Tanh(out[0]))
	}
	return sim.OutputRecord{
		SupportX:  []float64{0, distance},
		EndTime:   5,
		LegLength: 1,
		Mass:      8,
		Gravity:   9.81,
	}, nil
}

// tradeoffRegistry scores distance against its complement, so mid-range
// walkers are non-dominated rather than totally ordered.
func tradeoffRegistry() *fitness.Registry {
	r := fitness.NewRegistry()
	r.MustRegister("Forward", func(rec sim.OutputRecord) (float64, map[string]any) {
		return rec.Distance() / 10, nil
	})
	r.MustRegister("Thrift", func(rec sim.OutputRecord) (float64, map[string]any) {
		return 1 - rec.Distance()/10, nil
	})
	return r
}

func randSource(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func evalControllerConfig() model.ControllerConfig {
	return model.ControllerConfig{Kind: controller.KindCPG, Inputs: 6, Outputs: 2}
}

func newTestEvaluator(t *testing.T, simulator sim.Simulator) *Evaluator {
	t.Helper()
	ctrl := evalControllerConfig()
	spec, err := controller.GeneSpecFor(ctrl)
	if err != nil {
		t.Fatalf("gene spec: %v", err)
	}
	codec, err := genome.NewCodec(spec)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	evaluator, err := NewEvaluator(codec, ctrl, simulator, sim.EpisodeConfig{}, tradeoffRegistry(), time.Second)
	if err != nil {
		t.Fatalf("new evaluator: %v", err)
	}
	return evaluator
}

func TestEvaluateScoresInRegistryOrder(t *testing.T) {
	evaluator := newTestEvaluator(t, scriptedSim{})
	g := evaluator.Codec.Random(randSource(21), "g")

	vector, err := evaluator.Evaluate(context.Background(), g)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(vector) != 2 {
		t.Fatalf("got %d objectives, want 2", len(vector))
	}
	if math.Abs(vector[0]+vector[1]-1) > 1e-9 {
		t.Fatalf("trade-off objectives must sum to 1, got %v", vector)
	}
}

func TestEvaluateDegenerateGenomeScoresMinimum(t *testing.T) {
	evaluator := newTestEvaluator(t, scriptedSim{})

	vector, err := evaluator.Evaluate(context.Background(), model.Genome{ID: "bad", Genes: []float64{1, 2}})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	for i, v := range vector {
		if v != 0 {
			t.Fatalf("component %d = %g, want registry minimum 0", i, v)
		}
	}
}

func TestEvaluateSimulatorFailureScoresMinimum(t *testing.T) {
	evaluator := newTestEvaluator(t, scriptedSim{err: errors.New("diverged")})
	g := evaluator.Codec.Random(randSource(22), "g")

	vector, err := evaluator.Evaluate(context.Background(), g)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	for i, v := range vector {
		if v != 0 {
			t.Fatalf("component %d = %g, want registry minimum 0", i, v)
		}
	}
}

func TestEvaluateSurfacesCancellation(t *testing.T) {
	evaluator := newTestEvaluator(t, scriptedSim{})
	g := evaluator.Codec.Random(randSource(23), "g")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := evaluator.Evaluate(ctx, g); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewEvaluatorValidation(t *testing.T) {
	if _, err := NewEvaluator(nil, evalControllerConfig(), scriptedSim{}, sim.EpisodeConfig{}, tradeoffRegistry(), 0); err == nil {
		t.Fatal("expected error for nil codec")
	}
	ctrl := evalControllerConfig()
	spec, _ := controller.GeneSpecFor(ctrl)
	codec, _ := genome.NewCodec(spec)
	if _, err := NewEvaluator(codec, ctrl, nil, sim.EpisodeConfig{}, tradeoffRegistry(), 0); err == nil {
		t.Fatal("expected error for nil simulator")
	}
	if _, err := NewEvaluator(codec, ctrl, scriptedSim{}, sim.EpisodeConfig{}, fitness.NewRegistry(), 0); err == nil {
		t.Fatal("expected error for empty registry")
	}
}
