package fitness

import (
	"errors"
	"fmt"

	"bipedevo/internal/sim"
)

var (
	ErrObjectiveExists   = errors.New("objective already registered")
	ErrObjectiveNotFound = errors.New("objective not found")
)

// Func scores one completed episode. Implementations are pure, never fail,
// and return their documented minimum on degenerate episodes. The auxiliary
// map is optional diagnostic output and may be nil.
type Func func(rec sim.OutputRecord) (float64, map[string]any)

type Entry struct {
	Name string
	Fn   Func
}

// Registry is an ordered set of objectives. The evaluator concatenates
// scores in registry order, so ranking and reproduction stay untouched when
// objectives are added.
type Registry struct {
	entries []Entry
	byName  map[string]int
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Default returns the standard locomotion objective set, in stable order.
func Default() *Registry {
	r := NewRegistry()
	r.MustRegister("HeightFit", HeightFit)
	r.MustRegister("VelFit", VelFit)
	r.MustRegister("NrgEffFit", NrgEffFit)
	r.MustRegister("EigenFit", EigenFit)
	r.MustRegister("UphillFitRun", UphillFitRun)
	r.MustRegister("DownhillFitRun", DownhillFitRun)
	r.MustRegister("ZMPFit", ZMPFit)
	return r
}

func (r *Registry) Register(name string, fn Func) error {
	if name == "" {
		return errors.New("objective name is required")
	}
	if fn == nil {
		return errors.New("objective function is required")
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("%w: %s", ErrObjectiveExists, name)
	}
	r.byName[name] = len(r.entries)
	r.entries = append(r.entries, Entry{Name: name, Fn: fn})
	return nil
}

func (r *Registry) MustRegister(name string, fn Func) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

func (r *Registry) Len() int {
	return len(r.entries)
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		names = append(names, e.Name)
	}
	return names
}

func (r *Registry) Get(name string) (Func, error) {
	idx, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrObjectiveNotFound, name)
	}
	return r.entries[idx].Fn, nil
}

// Apply evaluates every objective in registry order.
func (r *Registry) Apply(rec sim.OutputRecord) []float64 {
	out := make([]float64, len(r.entries))
	for i, e := range r.entries {
		out[i], _ = e.Fn(rec)
	}
	return out
}

// MinVector is the fitness vector assigned to failed or degenerate
// evaluations: the conservative minimum of every objective.
func (r *Registry) MinVector() []float64 {
	return make([]float64, len(r.entries))
}
