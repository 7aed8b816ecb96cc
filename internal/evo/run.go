package evo

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"bipedevo/internal/fitness"
	"bipedevo/internal/genome"
	"bipedevo/internal/model"
	"bipedevo/internal/sim"
	"bipedevo/internal/stats"
	"bipedevo/internal/storage"
)

// RunCommand steers an in-flight run through its control channel. Commands
// take effect at generation boundaries; a paused run blocks until it
// receives CommandContinue or CommandStop.
type RunCommand int

const (
	CommandPause RunCommand = iota + 1
	CommandContinue
	CommandStop
)

// Phase is the externally observable position in the run state machine.
type Phase string

const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseInitialized   Phase = "initialized"
	PhaseEvaluating    Phase = "evaluating"
	PhaseRanked        Phase = "ranked"
	PhaseBred          Phase = "bred"
	PhaseDone          Phase = "done"
)

var (
	ErrIncompatibleState = errors.New("persisted state incompatible with run configuration")
	ErrRunNotFound       = errors.New("run not found")
)

// GenerationResult is handed to the optional per-generation callback. All
// slices are copies; the callback cannot perturb the run.
type GenerationResult struct {
	Generation int
	Fitness    [][]float64
	Fronts     [][]int
	Summary    stats.GenerationSummary
}

type GenerationCallback func(GenerationResult)

type RunnerConfig struct {
	RunID     string
	Spec      model.GeneSpec
	Run       model.RunConfig
	Simulator sim.Simulator
	Episode   sim.EpisodeConfig
	Registry  *fitness.Registry
	Store     storage.Store
	Logger    *logrus.Logger
	Callback  GenerationCallback
	Control   chan RunCommand
}

// RunReport is the in-memory result of a completed (or stopped) run. The
// same data is persisted through the store generation by generation.
type RunReport struct {
	RunID            string
	Progress         int
	Stopped          bool
	Objectives       []string
	BestByGeneration []float64
	Summaries        []stats.GenerationSummary
	FinalGenomes     []model.Genome
}

// RunController drives the generational loop: evaluate, rank, breed,
// persist. Breeding for generation g draws from a fresh rand.Rand seeded
// with Seed+g, so a resumed run replays the exact draws a single-pass run
// would have made.
type RunController struct {
	cfg     RunnerConfig
	codec   *genome.Codec
	control chan RunCommand
	log     *logrus.Entry

	created string
	bestSum float64

	mu         sync.RWMutex
	phase      Phase
	generation int
}

func NewRunController(cfg RunnerConfig) (*RunController, error) {
	if cfg.RunID == "" {
		return nil, fmt.Errorf("run id is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Run.PopulationSize <= 0 {
		return nil, fmt.Errorf("population size must be > 0")
	}
	if cfg.Run.Generations <= 0 {
		return nil, fmt.Errorf("generations must be > 0")
	}
	if err := ValidateFittest(cfg.Run.Fittest, cfg.Run.PopulationSize); err != nil {
		return nil, err
	}
	if cfg.Run.WeightedPairing && cfg.Run.FrontDecay == 0 {
		cfg.Run.FrontDecay = DefaultFrontDecay
	}
	if cfg.Registry == nil {
		cfg.Registry = fitness.Default()
	}
	if cfg.Simulator == nil {
		cfg.Simulator = sim.NewBipedSimulator()
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Control == nil {
		cfg.Control = make(chan RunCommand, 16)
	}

	codec, err := genome.NewCodec(cfg.Spec)
	if err != nil {
		return nil, err
	}

	return &RunController{
		cfg:     cfg,
		codec:   codec,
		control: cfg.Control,
		log:     cfg.Logger.WithField("run_id", cfg.RunID),
		created: time.Now().UTC().Format(time.RFC3339),
		phase:   PhaseUninitialized,
	}, nil
}

func (r *RunController) Phase() Phase {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.phase
}

// Generation is the 1-based generation the controller is working on, 0
// before the first one starts.
func (r *RunController) Generation() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

func (r *RunController) Pause() error    { return r.send(CommandPause) }
func (r *RunController) Continue() error { return r.send(CommandContinue) }
func (r *RunController) Stop() error     { return r.send(CommandStop) }

func (r *RunController) send(cmd RunCommand) error {
	select {
	case r.control <- cmd:
		return nil
	default:
		return fmt.Errorf("run control channel is full: %s", r.cfg.RunID)
	}
}

// Run seeds a fresh random population and executes every generation.
func (r *RunController) Run(ctx context.Context) (RunReport, error) {
	if err := r.cfg.Store.Init(ctx); err != nil {
		return RunReport{}, err
	}

	seedRNG := r.rngFor(0)
	initial := make([]model.Genome, 0, r.cfg.Run.PopulationSize)
	for i := 0; i < r.cfg.Run.PopulationSize; i++ {
		initial = append(initial, r.codec.Random(seedRNG, fmt.Sprintf("%s-g0-i%d", r.cfg.RunID, i)))
	}

	manager, err := r.newManager(initial)
	if err != nil {
		return RunReport{}, err
	}
	r.setPhase(PhaseInitialized, 0)
	return r.loop(ctx, manager, 1)
}

// Resume re-enters the loop at Evaluating(Progress+1) from persisted
// state. The persisted gene layout and population size must match the
// controller's configuration.
func (r *RunController) Resume(ctx context.Context) (RunReport, error) {
	if err := r.cfg.Store.Init(ctx); err != nil {
		return RunReport{}, err
	}

	state, ok, err := r.cfg.Store.GetRunState(ctx, r.cfg.RunID)
	if err != nil {
		return RunReport{}, err
	}
	if !ok {
		return RunReport{}, fmt.Errorf("%w: %s", ErrRunNotFound, r.cfg.RunID)
	}
	if err := r.checkCompatible(state); err != nil {
		return RunReport{}, err
	}
	r.adoptSummary(ctx)

	manager, err := r.newManager(state.Genomes)
	if err != nil {
		return RunReport{}, err
	}
	manager.Restore(state.Fitness, state.Progress)
	r.setPhase(PhaseInitialized, state.Progress)
	return r.loop(ctx, manager, state.Progress+1)
}

// Redo restarts a persisted run at generation 1, discarding its fitness
// history. When base is non-nil it replaces the gene spec's base block and
// is merged into every genome before the rerun.
func (r *RunController) Redo(ctx context.Context, base *model.BaseBlock) (RunReport, error) {
	if err := r.cfg.Store.Init(ctx); err != nil {
		return RunReport{}, err
	}

	state, ok, err := r.cfg.Store.GetRunState(ctx, r.cfg.RunID)
	if err != nil {
		return RunReport{}, err
	}
	if !ok {
		return RunReport{}, fmt.Errorf("%w: %s", ErrRunNotFound, r.cfg.RunID)
	}
	if err := r.checkCompatible(state); err != nil {
		return RunReport{}, err
	}
	r.adoptSummary(ctx)
	r.bestSum = 0

	if base != nil {
		spec := r.codec.Spec()
		spec.Base = base
		codec, err := genome.NewCodec(spec)
		if err != nil {
			return RunReport{}, err
		}
		r.codec = codec
	}

	genomes := make([]model.Genome, 0, len(state.Genomes))
	for _, g := range state.Genomes {
		merged, err := r.codec.Encode(g.ID, g.Genes)
		if err != nil {
			return RunReport{}, err
		}
		genomes = append(genomes, merged)
	}

	manager, err := r.newManager(genomes)
	if err != nil {
		return RunReport{}, err
	}
	r.setPhase(PhaseInitialized, 0)
	return r.loop(ctx, manager, 1)
}

func (r *RunController) loop(ctx context.Context, manager *PopulationManager, startGen int) (RunReport, error) {
	report := RunReport{
		RunID:      r.cfg.RunID,
		Objectives: r.cfg.Registry.Names(),
	}
	for g := 1; g < startGen; g++ {
		tensor := manager.Tensor()
		matrix, ok := tensor.Generation(g)
		if !ok {
			return RunReport{}, fmt.Errorf("persisted tensor missing generation %d", g)
		}
		summary := stats.SummarizeGeneration(g, matrix, Rank(matrix))
		report.Summaries = append(report.Summaries, summary)
		report.BestByGeneration = append(report.BestByGeneration, summary.BestSum)
	}

	for gen := startGen; gen <= r.cfg.Run.Generations; gen++ {
		stopped, err := r.waitControl(ctx)
		if err != nil {
			return RunReport{}, err
		}
		if stopped {
			r.log.WithField("generation", gen).Info("run stopped by control command")
			report.Stopped = true
			break
		}

		r.setPhase(PhaseEvaluating, gen)
		matrix, err := manager.EvaluateGeneration(ctx)
		if err != nil {
			return RunReport{}, err
		}

		fronts := Rank(matrix)
		r.setPhase(PhaseRanked, gen)

		summary := stats.SummarizeGeneration(gen, matrix, fronts)
		report.Summaries = append(report.Summaries, summary)
		report.BestByGeneration = append(report.BestByGeneration, summary.BestSum)
		if summary.BestSum > r.bestSum {
			r.bestSum = summary.BestSum
		}
		r.log.WithFields(logrus.Fields{
			"generation": gen,
			"best_sum":   summary.BestSum,
			"mean_sum":   summary.MeanSum,
			"fronts":     len(fronts),
		}).Info("generation evaluated")

		if r.cfg.Callback != nil {
			r.cfg.Callback(GenerationResult{
				Generation: gen,
				Fitness:    copyMatrix(matrix),
				Fronts:     copyFronts(fronts),
				Summary:    summary,
			})
		}

		if gen < r.cfg.Run.Generations {
			next, err := NextGeneration(r.rngFor(gen), r.codec, manager.Genomes(), matrix, fronts, r.cfg.Run, gen)
			if err != nil {
				return RunReport{}, err
			}
			if err := manager.Replace(next); err != nil {
				return RunReport{}, err
			}
			r.setPhase(PhaseBred, gen)
		}

		if err := r.persist(ctx, manager); err != nil {
			return RunReport{}, err
		}
	}

	if !report.Stopped {
		r.setPhase(PhaseDone, r.cfg.Run.Generations)
	}
	report.Progress = manager.Progress()
	report.FinalGenomes = append([]model.Genome(nil), manager.Genomes()...)
	return report, nil
}

func (r *RunController) newManager(initial []model.Genome) (*PopulationManager, error) {
	evaluator, err := NewEvaluator(
		r.codec,
		r.cfg.Run.Controller,
		r.cfg.Simulator,
		r.cfg.Episode,
		r.cfg.Registry,
		time.Duration(r.cfg.Run.EvalTimeoutMS)*time.Millisecond,
	)
	if err != nil {
		return nil, err
	}
	return NewPopulationManager(evaluator, initial, r.cfg.Run.Workers)
}

func (r *RunController) rngFor(generation int) *rand.Rand {
	return rand.New(rand.NewSource(r.cfg.Run.Seed + int64(generation)))
}

func (r *RunController) setPhase(phase Phase, generation int) {
	r.mu.Lock()
	r.phase = phase
	r.generation = generation
	r.mu.Unlock()
}

// waitControl drains the control channel at a generation boundary. It
// returns true when the run should stop, blocking while paused.
func (r *RunController) waitControl(ctx context.Context) (bool, error) {
	paused := false
	for {
		if paused {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case cmd := <-r.control:
				switch cmd {
				case CommandStop:
					return true, nil
				case CommandContinue:
					paused = false
				}
			}
			continue
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case cmd := <-r.control:
			switch cmd {
			case CommandStop:
				return true, nil
			case CommandPause:
				paused = true
			}
		default:
			return false, nil
		}
	}
}

func (r *RunController) persist(ctx context.Context, manager *PopulationManager) error {
	versioned := model.VersionedRecord{
		SchemaVersion: storage.CurrentSchemaVersion,
		CodecVersion:  storage.CurrentCodecVersion,
	}
	state := model.RunState{
		VersionedRecord: versioned,
		RunID:           r.cfg.RunID,
		Spec:            r.codec.Spec(),
		Config:          r.cfg.Run,
		Episode:         r.cfg.Episode.Clone(),
		Genomes:         append([]model.Genome(nil), manager.Genomes()...),
		Fitness:         manager.Tensor(),
		Progress:        manager.Progress(),
	}
	if err := r.cfg.Store.SaveRunState(ctx, state); err != nil {
		return err
	}
	return r.cfg.Store.SaveRunSummary(ctx, model.RunSummary{
		VersionedRecord: versioned,
		RunID:           r.cfg.RunID,
		CreatedAtUTC:    r.created,
		ControllerKind:  r.cfg.Run.Controller.Kind,
		PopulationSize:  r.cfg.Run.PopulationSize,
		Generations:     r.cfg.Run.Generations,
		Progress:        manager.Progress(),
		Objectives:      r.cfg.Registry.Names(),
		BestScoreSum:    r.bestSum,
	})
}

// adoptSummary keeps the original creation timestamp and best score when a
// run is re-entered.
func (r *RunController) adoptSummary(ctx context.Context) {
	summary, ok, err := r.cfg.Store.GetRunSummary(ctx, r.cfg.RunID)
	if err != nil || !ok {
		return
	}
	if summary.CreatedAtUTC != "" {
		r.created = summary.CreatedAtUTC
	}
	r.bestSum = summary.BestScoreSum
}

func (r *RunController) checkCompatible(state model.RunState) error {
	if len(state.Genomes) != r.cfg.Run.PopulationSize {
		return fmt.Errorf("%w: population size got=%d want=%d",
			ErrIncompatibleState, len(state.Genomes), r.cfg.Run.PopulationSize)
	}
	if !specsEqual(state.Spec, r.codec.Spec()) {
		return fmt.Errorf("%w: gene spec layout differs", ErrIncompatibleState)
	}
	return nil
}

func specsEqual(a, b model.GeneSpec) bool {
	if len(a.Fields) != len(b.Fields) {
		return false
	}
	for i := range a.Fields {
		if a.Fields[i] != b.Fields[i] {
			return false
		}
	}
	if (a.Base == nil) != (b.Base == nil) {
		return false
	}
	if a.Base != nil {
		if a.Base.Offset != b.Base.Offset || len(a.Base.Values) != len(b.Base.Values) {
			return false
		}
		for i := range a.Base.Values {
			if a.Base.Values[i] != b.Base.Values[i] {
				return false
			}
		}
	}
	return true
}

func copyMatrix(matrix [][]float64) [][]float64 {
	out := make([][]float64, len(matrix))
	for i, row := range matrix {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

func copyFronts(fronts [][]int) [][]int {
	out := make([][]int, len(fronts))
	for i, front := range fronts {
		out[i] = append([]int(nil), front...)
	}
	return out
}
