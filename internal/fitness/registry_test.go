package fitness

import (
	"errors"
	"testing"

	"bipedevo/internal/sim"
)

func TestDefaultRegistryOrder(t *testing.T) {
	want := []string{"HeightFit", "VelFit", "NrgEffFit", "EigenFit", "UphillFitRun", "DownhillFitRun", "ZMPFit"}
	got := Default().Names()
	if len(got) != len(want) {
		t.Fatalf("got %d objectives, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("objective %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("A", func(sim.OutputRecord) (float64, map[string]any) { return 0, nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	err := r.Register("A", func(sim.OutputRecord) (float64, map[string]any) { return 1, nil })
	if !errors.Is(err, ErrObjectiveExists) {
		t.Fatalf("expected ErrObjectiveExists, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("", func(sim.OutputRecord) (float64, map[string]any) { return 0, nil }); err == nil {
		t.Fatal("expected error for empty name")
	}
	if err := r.Register("nil", nil); err == nil {
		t.Fatal("expected error for nil function")
	}
}

func TestGetUnknownObjective(t *testing.T) {
	if _, err := Default().Get("does-not-exist"); !errors.Is(err, ErrObjectiveNotFound) {
		t.Fatalf("expected ErrObjectiveNotFound, got %v", err)
	}
}

func TestApplyFollowsRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.MustRegister("first", func(sim.OutputRecord) (float64, map[string]any) { return 0.1, nil })
	r.MustRegister("second", func(sim.OutputRecord) (float64, map[string]any) { return 0.2, nil })

	got := r.Apply(sim.OutputRecord{})
	if len(got) != 2 || got[0] != 0.1 || got[1] != 0.2 {
		t.Fatalf("apply = %v, want [0.1 0.2]", got)
	}
}

func TestMinVector(t *testing.T) {
	v := Default().MinVector()
	if len(v) != Default().Len() {
		t.Fatalf("min vector length %d, want %d", len(v), Default().Len())
	}
	for i, x := range v {
		if x != 0 {
			t.Fatalf("min vector component %d = %g, want 0", i, x)
		}
	}
}
