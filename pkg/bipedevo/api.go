package bipedevo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bipedevo/internal/controller"
	"bipedevo/internal/evo"
	"bipedevo/internal/fitness"
	"bipedevo/internal/model"
	"bipedevo/internal/sim"
	"bipedevo/internal/stats"
	"bipedevo/internal/storage"
)

const (
	defaultArtifactsDir = "artifacts"
	defaultExportsDir   = "exports"
	defaultDBPath       = "bipedevo.db"
	topGenomeCount      = 5
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	ExportsDir   string
	Logger       *logrus.Logger
}

type Client struct {
	store storage.Store
	log   *logrus.Logger

	artifactsDir string
	exportsDir   string
}

// RunRequest configures a fresh evolution run. Zero values are filled with
// defaults before the run starts.
type RunRequest struct {
	RunID           string
	Controller      model.ControllerConfig
	Population      int
	Generations     int
	Fittest         model.Fittest
	WeightedPairing bool
	FrontDecay      float64
	MutationRate    float64
	// NoMutation pins the mutation rate to zero. A zero MutationRate on
	// its own means "use the default".
	NoMutation    bool
	MutationSigma float64
	Workers       int
	Seed          int64
	EvalTimeoutMS int64
	Episode       sim.EpisodeConfig
	Base          *model.BaseBlock
	Callback      evo.GenerationCallback
	Control       chan evo.RunCommand
}

type ResumeRequest struct {
	RunID   string
	Workers int
}

type RedoRequest struct {
	RunID   string
	Workers int
	Base    *model.BaseBlock
}

type RunSummary struct {
	RunID            string
	ArtifactsDir     string
	Progress         int
	Stopped          bool
	Objectives       []string
	BestByGeneration []float64
	FinalBestSum     float64
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID          string
	CreatedAtUTC   string
	ControllerKind string
	Population     int
	Generations    int
	Progress       int
	Objectives     []string
	BestScoreSum   float64
}

type QueryRequest struct {
	RunID      string
	Generation int
	Thresholds []float64
	MaxResults int
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:        store,
		log:          log,
		artifactsDir: artifactsDir,
		exportsDir:   exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Run seeds and executes a fresh run, then writes its artifacts.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	req = fillRunDefaults(req)

	spec, err := controller.GeneSpecFor(req.Controller)
	if err != nil {
		return RunSummary{}, err
	}
	if req.Base != nil {
		spec.Base = req.Base
	}

	rc, err := evo.NewRunController(evo.RunnerConfig{
		RunID: req.RunID,
		Spec:  spec,
		Run: model.RunConfig{
			PopulationSize:  req.Population,
			Generations:     req.Generations,
			Fittest:         req.Fittest,
			WeightedPairing: req.WeightedPairing,
			FrontDecay:      req.FrontDecay,
			MutationRate:    req.MutationRate,
			MutationSigma:   req.MutationSigma,
			Workers:         req.Workers,
			EvalTimeoutMS:   req.EvalTimeoutMS,
			Seed:            req.Seed,
			Controller:      req.Controller,
		},
		Episode:  req.Episode,
		Store:    c.store,
		Logger:   c.log,
		Callback: req.Callback,
		Control:  req.Control,
	})
	if err != nil {
		return RunSummary{}, err
	}

	report, err := rc.Run(ctx)
	if err != nil {
		return RunSummary{}, err
	}
	return c.finishRun(ctx, report)
}

// Resume re-enters a persisted run at its last completed generation. The
// run configuration, gene layout and episode come from the persisted
// state.
func (c *Client) Resume(ctx context.Context, req ResumeRequest) (RunSummary, error) {
	state, err := c.loadState(ctx, req.RunID)
	if err != nil {
		return RunSummary{}, err
	}
	cfg := state.Config
	if req.Workers > 0 {
		cfg.Workers = req.Workers
	}

	rc, err := evo.NewRunController(evo.RunnerConfig{
		RunID:   state.RunID,
		Spec:    state.Spec,
		Run:     cfg,
		Episode: state.Episode,
		Store:   c.store,
		Logger:  c.log,
	})
	if err != nil {
		return RunSummary{}, err
	}

	report, err := rc.Resume(ctx)
	if err != nil {
		return RunSummary{}, err
	}
	return c.finishRun(ctx, report)
}

// Redo reruns a persisted run from generation 1, optionally merging a new
// base gene block into every genome first.
func (c *Client) Redo(ctx context.Context, req RedoRequest) (RunSummary, error) {
	state, err := c.loadState(ctx, req.RunID)
	if err != nil {
		return RunSummary{}, err
	}
	cfg := state.Config
	if req.Workers > 0 {
		cfg.Workers = req.Workers
	}

	rc, err := evo.NewRunController(evo.RunnerConfig{
		RunID:   state.RunID,
		Spec:    state.Spec,
		Run:     cfg,
		Episode: state.Episode,
		Store:   c.store,
		Logger:  c.log,
	})
	if err != nil {
		return RunSummary{}, err
	}

	report, err := rc.Redo(ctx, req.Base)
	if err != nil {
		return RunSummary{}, err
	}
	return c.finishRun(ctx, report)
}

func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	if err := c.store.Init(ctx); err != nil {
		return nil, err
	}

	summaries, err := c.store.ListRunSummaries(ctx)
	if err != nil {
		return nil, err
	}
	if len(summaries) > req.Limit {
		summaries = summaries[:req.Limit]
	}

	out := make([]RunItem, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, RunItem{
			RunID:          s.RunID,
			CreatedAtUTC:   s.CreatedAtUTC,
			ControllerKind: s.ControllerKind,
			Population:     s.PopulationSize,
			Generations:    s.Generations,
			Progress:       s.Progress,
			Objectives:     append([]string(nil), s.Objectives...),
			BestScoreSum:   s.BestScoreSum,
		})
	}
	return out, nil
}

// Query filters one evaluated generation of a persisted run by
// per-objective minimum thresholds.
func (c *Client) Query(ctx context.Context, req QueryRequest) (evo.QueryResult, error) {
	state, err := c.loadState(ctx, req.RunID)
	if err != nil {
		return evo.QueryResult{}, err
	}
	return evo.QueryGeneration(state.Fitness, req.Generation, req.Thresholds, req.MaxResults)
}

func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest")
	}
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	runID := req.RunID
	if req.Latest {
		entries, err := stats.ListRunIndex(c.artifactsDir)
		if err != nil {
			return ExportSummary{}, err
		}
		if len(entries) == 0 {
			return ExportSummary{}, errors.New("no runs available to export")
		}
		runID = entries[0].RunID
	}

	exportedDir, err := stats.ExportRunArtifacts(c.artifactsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

// GeneFields lists the gene layout a controller configuration implies.
func (c *Client) GeneFields(cfg model.ControllerConfig) ([]model.GeneField, error) {
	spec, err := controller.GeneSpecFor(cfg)
	if err != nil {
		return nil, err
	}
	return spec.Fields, nil
}

// Objectives lists the default objective set in registry order.
func (c *Client) Objectives() []string {
	return fitness.Default().Names()
}

func (c *Client) loadState(ctx context.Context, runID string) (model.RunState, error) {
	if runID == "" {
		return model.RunState{}, errors.New("run id is required")
	}
	if err := c.store.Init(ctx); err != nil {
		return model.RunState{}, err
	}
	state, ok, err := c.store.GetRunState(ctx, runID)
	if err != nil {
		return model.RunState{}, err
	}
	if !ok {
		return model.RunState{}, fmt.Errorf("%w: %s", evo.ErrRunNotFound, runID)
	}
	return state, nil
}

func (c *Client) finishRun(ctx context.Context, report evo.RunReport) (RunSummary, error) {
	state, err := c.loadState(ctx, report.RunID)
	if err != nil {
		return RunSummary{}, err
	}

	finalBest := 0.0
	for _, best := range report.BestByGeneration {
		if best > finalBest {
			finalBest = best
		}
	}

	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{
		RunID:               report.RunID,
		Spec:                state.Spec,
		Config:              state.Config,
		Objectives:          report.Objectives,
		BestByGeneration:    report.BestByGeneration,
		GenerationSummaries: report.Summaries,
		FinalBestSum:        finalBest,
		TopGenomes:          topGenomes(report, state),
	})
	if err != nil {
		return RunSummary{}, err
	}

	summary, ok, err := c.store.GetRunSummary(ctx, report.RunID)
	if err != nil {
		return RunSummary{}, err
	}
	createdAt := ""
	if ok {
		createdAt = summary.CreatedAtUTC
	}
	if err := stats.AppendRunIndex(c.artifactsDir, stats.RunIndexEntry{
		RunID:          report.RunID,
		ControllerKind: state.Config.Controller.Kind,
		PopulationSize: state.Config.PopulationSize,
		Generations:    state.Config.Generations,
		Progress:       report.Progress,
		Seed:           state.Config.Seed,
		Workers:        state.Config.Workers,
		Objectives:     report.Objectives,
		FinalBestSum:   finalBest,
		CreatedAtUTC:   createdAt,
	}); err != nil {
		return RunSummary{}, err
	}

	return RunSummary{
		RunID:            report.RunID,
		ArtifactsDir:     filepath.Clean(runDir),
		Progress:         report.Progress,
		Stopped:          report.Stopped,
		Objectives:       report.Objectives,
		BestByGeneration: append([]float64(nil), report.BestByGeneration...),
		FinalBestSum:     finalBest,
	}, nil
}

// topGenomes ranks the final population by fitness-vector sum over the
// last evaluated generation.
func topGenomes(report evo.RunReport, state model.RunState) []stats.TopGenome {
	// A stopped run holds an already bred, not yet evaluated population;
	// its genomes do not line up with the last tensor generation.
	if report.Stopped {
		return nil
	}
	matrix, ok := state.Fitness.Generation(report.Progress)
	if !ok || len(matrix) != len(report.FinalGenomes) {
		return nil
	}

	order := make([]int, len(matrix))
	sums := make([]float64, len(matrix))
	for i, vector := range matrix {
		order[i] = i
		for _, v := range vector {
			sums[i] += v
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return sums[order[a]] > sums[order[b]]
	})

	count := topGenomeCount
	if len(order) < count {
		count = len(order)
	}
	top := make([]stats.TopGenome, 0, count)
	for rank, idx := range order[:count] {
		top = append(top, stats.TopGenome{
			Rank:   rank + 1,
			Sum:    sums[idx],
			Vector: append([]float64(nil), matrix[idx]...),
			Genome: report.FinalGenomes[idx],
		})
	}
	return top
}

func fillRunDefaults(req RunRequest) RunRequest {
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	if req.Controller.Kind == "" {
		req.Controller.Kind = controller.KindNetwork
	}
	if req.Population <= 0 {
		req.Population = 24
	}
	if req.Generations <= 0 {
		req.Generations = 20
	}
	if req.Workers <= 0 {
		req.Workers = 4
	}
	if req.NoMutation {
		req.MutationRate = 0
	} else if req.MutationRate <= 0 {
		req.MutationRate = 0.1
	}
	if req.MutationSigma <= 0 {
		req.MutationSigma = 0.15
	}
	zero := model.Fittest{}
	if req.Fittest == zero {
		elite := req.Population / 10
		if elite < 1 {
			elite = 1
		}
		req.Fittest = model.Fittest{
			EliteCopy:    elite,
			EliteMutated: elite,
			Children:     req.Population - 2*elite,
		}
	}
	return req
}
