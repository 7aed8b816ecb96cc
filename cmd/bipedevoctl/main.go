package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"bipedevo/internal/model"
	"bipedevo/internal/storage"
	"bipedevo/pkg/bipedevo"
)

const (
	artifactsDir = "artifacts"
	exportsDir   = "exports"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "reset":
		return runReset(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "resume":
		return runResume(ctx, args[1:])
	case "redo":
		return runRedo(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "query":
		return runQuery(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "genes":
		return runGenes(ctx, args[1:])
	case "objectives":
		return runObjectives(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: bipedevoctl <init|reset|run|resume|redo|runs|query|export|genes|objectives> [flags]", msg)
}

func newLogger(level string) (*logrus.Logger, error) {
	log := logrus.New()
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	log.SetLevel(parsed)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return log, nil
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "bipedevo.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := storage.NewStore(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	if err := store.Init(ctx); err != nil {
		return err
	}
	fmt.Printf("initialized store=%s\n", *storeKind)
	return nil
}

func runReset(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "bipedevo.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := storage.NewStore(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	if err := store.Init(ctx); err != nil {
		return err
	}
	resetter, ok := store.(storage.Resetter)
	if !ok {
		return fmt.Errorf("store backend %s does not support reset", *storeKind)
	}
	if err := resetter.Reset(ctx); err != nil {
		return err
	}
	fmt.Printf("reset store=%s\n", *storeKind)
	return nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional run config YAML path")
	runID := fs.String("run-id", "", "explicit run id (optional)")
	kind := fs.String("controller", "network", "controller kind: network|cpg")
	hidden := fs.String("hidden", "", "comma-separated hidden layer sizes for controller=network")
	activation := fs.String("activation", "", "hidden activation name (see nn registry)")
	population := fs.Int("pop", 24, "population size")
	generations := fs.Int("gens", 20, "generation count")
	eliteCopy := fs.Int("elite-copy", 0, "verbatim elite count (0 derives from population)")
	eliteMutated := fs.Int("elite-mutated", 0, "mutated elite count (0 derives from population)")
	weightedPairing := fs.Bool("weighted-pairing", false, "bias parent draws toward better Pareto fronts")
	frontDecay := fs.Float64("front-decay", 0, "per-front weight decay for weighted pairing (0 uses default)")
	mutationRate := fs.Float64("mutation-rate", 0.1, "per-gene mutation probability")
	noMutation := fs.Bool("no-mutation", false, "disable mutation entirely (overrides -mutation-rate)")
	mutationSigma := fs.Float64("mutation-sigma", 0.15, "mutation magnitude as a fraction of gene range")
	workers := fs.Int("workers", 4, "worker count")
	seed := fs.Int64("seed", 1, "rng seed")
	evalTimeoutMS := fs.Int64("eval-timeout-ms", 0, "per-evaluation timeout in milliseconds (0 disables)")
	slopes := fs.Bool("slopes", false, "enable inclined-surface branch runs for the slope objectives")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "bipedevo.db", "sqlite database path")
	logLevel := fs.String("log-level", "info", "log level: debug|info|warn|error")
	if err := fs.Parse(args); err != nil {
		return err
	}

	log, err := newLogger(*logLevel)
	if err != nil {
		return err
	}

	var req bipedevo.RunRequest
	if *configPath != "" {
		req, err = loadRunRequest(*configPath)
		if err != nil {
			return err
		}
	} else {
		hiddenLayers, err := parseHidden(*hidden)
		if err != nil {
			return err
		}
		req = bipedevo.RunRequest{
			RunID: *runID,
			Controller: model.ControllerConfig{
				Kind:         *kind,
				HiddenLayers: hiddenLayers,
				Activation:   *activation,
			},
			Population:      *population,
			Generations:     *generations,
			WeightedPairing: *weightedPairing,
			FrontDecay:      *frontDecay,
			MutationRate:    *mutationRate,
			NoMutation:      *noMutation,
			MutationSigma:   *mutationSigma,
			Workers:         *workers,
			Seed:            *seed,
			EvalTimeoutMS:   *evalTimeoutMS,
		}
		req.Episode.AnalyzeSlopes = *slopes
		if *eliteCopy > 0 || *eliteMutated > 0 {
			req.Fittest = model.Fittest{
				EliteCopy:    *eliteCopy,
				EliteMutated: *eliteMutated,
				Children:     *population - *eliteCopy - *eliteMutated,
			}
		}
	}

	client, err := bipedevo.New(bipedevo.Options{
		StoreKind:    *storeKind,
		DBPath:       *dbPath,
		ArtifactsDir: artifactsDir,
		ExportsDir:   exportsDir,
		Logger:       log,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}
	printRunSummary(summary)
	return nil
}

func runResume(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("resume", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id to resume")
	workers := fs.Int("workers", 0, "worker count override (0 keeps persisted value)")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "bipedevo.db", "sqlite database path")
	logLevel := fs.String("log-level", "info", "log level: debug|info|warn|error")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return usageError("resume requires -run-id")
	}

	log, err := newLogger(*logLevel)
	if err != nil {
		return err
	}
	client, err := bipedevo.New(bipedevo.Options{
		StoreKind:    *storeKind,
		DBPath:       *dbPath,
		ArtifactsDir: artifactsDir,
		ExportsDir:   exportsDir,
		Logger:       log,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Resume(ctx, bipedevo.ResumeRequest{RunID: *runID, Workers: *workers})
	if err != nil {
		return err
	}
	printRunSummary(summary)
	return nil
}

func runRedo(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("redo", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id to rerun from generation 1")
	workers := fs.Int("workers", 0, "worker count override (0 keeps persisted value)")
	baseOffset := fs.Int("base-offset", 0, "offset of the base gene block to merge")
	baseValues := fs.String("base-values", "", "comma-separated base gene values to merge (empty keeps persisted base)")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "bipedevo.db", "sqlite database path")
	logLevel := fs.String("log-level", "info", "log level: debug|info|warn|error")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return usageError("redo requires -run-id")
	}

	log, err := newLogger(*logLevel)
	if err != nil {
		return err
	}

	var base *model.BaseBlock
	if *baseValues != "" {
		values, err := parseFloats(*baseValues)
		if err != nil {
			return err
		}
		base = &model.BaseBlock{Offset: *baseOffset, Values: values}
	}

	client, err := bipedevo.New(bipedevo.Options{
		StoreKind:    *storeKind,
		DBPath:       *dbPath,
		ArtifactsDir: artifactsDir,
		ExportsDir:   exportsDir,
		Logger:       log,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Redo(ctx, bipedevo.RedoRequest{RunID: *runID, Workers: *workers, Base: base})
	if err != nil {
		return err
	}
	printRunSummary(summary)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "maximum rows to list")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "bipedevo.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := bipedevo.New(bipedevo.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items, err := client.Runs(ctx, bipedevo.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}

	for _, item := range items {
		created := item.CreatedAtUTC
		if t, err := time.Parse(time.RFC3339, item.CreatedAtUTC); err == nil {
			created = humanize.Time(t)
		}
		fmt.Printf("%s  controller=%s pop=%s gens=%d/%d best=%.4f objectives=%d created=%s\n",
			item.RunID,
			item.ControllerKind,
			humanize.Comma(int64(item.Population)),
			item.Progress,
			item.Generations,
			item.BestScoreSum,
			len(item.Objectives),
			created,
		)
	}
	return nil
}

func runQuery(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id to query")
	generation := fs.Int("gen", 0, "1-based generation to query")
	thresholds := fs.String("min", "", "comma-separated per-objective minimums (prefix match)")
	maxResults := fs.Int("max-results", 50, "maximum individuals to list before truncating to a count")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "bipedevo.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return usageError("query requires -run-id")
	}
	if *generation <= 0 {
		return usageError("query requires -gen >= 1")
	}

	var mins []float64
	if *thresholds != "" {
		var err error
		mins, err = parseFloats(*thresholds)
		if err != nil {
			return err
		}
	}

	client, err := bipedevo.New(bipedevo.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	result, err := client.Query(ctx, bipedevo.QueryRequest{
		RunID:      *runID,
		Generation: *generation,
		Thresholds: mins,
		MaxResults: *maxResults,
	})
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id to export")
	latest := fs.Bool("latest", false, "export the most recent run")
	outDir := fs.String("out", "", "output directory (defaults to exports/)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := bipedevo.New(bipedevo.Options{StoreKind: "memory"})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Export(ctx, bipedevo.ExportRequest{RunID: *runID, Latest: *latest, OutDir: *outDir})
	if err != nil {
		return err
	}
	fmt.Printf("exported run=%s dir=%s\n", summary.RunID, summary.Directory)
	return nil
}

func runGenes(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("genes", flag.ContinueOnError)
	kind := fs.String("controller", "network", "controller kind: network|cpg")
	hidden := fs.String("hidden", "", "comma-separated hidden layer sizes for controller=network")
	if err := fs.Parse(args); err != nil {
		return err
	}
	hiddenLayers, err := parseHidden(*hidden)
	if err != nil {
		return err
	}

	client, err := bipedevo.New(bipedevo.Options{StoreKind: "memory"})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	fields, err := client.GeneFields(model.ControllerConfig{Kind: *kind, HiddenLayers: hiddenLayers})
	if err != nil {
		return err
	}
	fmt.Printf("%d gene fields:\n", len(fields))
	for _, field := range fields {
		fmt.Printf("  %-14s [%g, %g]\n", field.Name, field.Min, field.Max)
	}
	return nil
}

func runObjectives(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("objectives", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := bipedevo.New(bipedevo.Options{StoreKind: "memory"})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	for i, name := range client.Objectives() {
		fmt.Printf("%d. %s\n", i+1, name)
	}
	return nil
}

func printRunSummary(summary bipedevo.RunSummary) {
	state := "done"
	if summary.Stopped {
		state = "stopped"
	}
	fmt.Printf("run=%s %s progress=%d best=%.4f artifacts=%s\n",
		summary.RunID, state, summary.Progress, summary.FinalBestSum, summary.ArtifactsDir)
	for i, best := range summary.BestByGeneration {
		fmt.Printf("  gen %d: best_sum=%.4f\n", i+1, best)
	}
}

func parseHidden(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("parse hidden layer size %q: %w", part, err)
		}
		if v <= 0 {
			return nil, fmt.Errorf("hidden layer size must be > 0, got %d", v)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("parse value %q: %w", part, err)
		}
		out = append(out, v)
	}
	return out, nil
}
