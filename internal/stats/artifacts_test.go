package stats

import (
	"os"
	"path/filepath"
	"testing"

	"bipedevo/internal/model"
)

func sampleArtifacts(runID string) RunArtifacts {
	return RunArtifacts{
		RunID: runID,
		Spec: model.GeneSpec{
			Fields: []model.GeneField{{Name: "a", Min: -1, Max: 1}},
		},
		Config:           model.RunConfig{PopulationSize: 4, Generations: 2, Seed: 7},
		Objectives:       []string{"Forward", "Thrift"},
		BestByGeneration: []float64{0.8, 1.1},
		GenerationSummaries: []GenerationSummary{
			{Generation: 1, BestIndex: 0, BestSum: 0.8},
			{Generation: 2, BestIndex: 2, BestSum: 1.1},
		},
		FinalBestSum: 1.1,
		TopGenomes: []TopGenome{
			{Rank: 1, Sum: 1.1, Vector: []float64{0.6, 0.5}, Genome: model.Genome{ID: "g", Genes: []float64{0.2}}},
		},
	}
}

func sampleIndexEntry(runID, createdAt string) RunIndexEntry {
	return RunIndexEntry{
		RunID:          runID,
		ControllerKind: "network",
		PopulationSize: 4,
		Generations:    2,
		Progress:       2,
		Seed:           7,
		Workers:        2,
		Objectives:     []string{"Forward", "Thrift"},
		FinalBestSum:   1.1,
		CreatedAtUTC:   createdAt,
	}
}

func TestWriteRunArtifacts(t *testing.T) {
	base := t.TempDir()
	runDir, err := WriteRunArtifacts(base, sampleArtifacts("run-a"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if runDir != filepath.Join(base, "run-a") {
		t.Fatalf("run dir = %s", runDir)
	}

	for _, file := range []string{"config.json", "fitness_history.json", "generation_summaries.json", "top_genomes.json"} {
		if _, err := os.Stat(filepath.Join(runDir, file)); err != nil {
			t.Fatalf("missing artifact %s: %v", file, err)
		}
	}

	top, ok, err := ReadTopGenomes(base, "run-a")
	if err != nil {
		t.Fatalf("read top genomes: %v", err)
	}
	if !ok || len(top) != 1 || top[0].Genome.ID != "g" {
		t.Fatalf("top genomes did not round-trip: ok=%v %+v", ok, top)
	}

	if _, err := WriteRunArtifacts(base, RunArtifacts{}); err == nil {
		t.Fatal("expected error for empty run id")
	}
}

func TestAppendRunIndexUpdatesInPlace(t *testing.T) {
	base := t.TempDir()

	if err := AppendRunIndex(base, sampleIndexEntry("run-a", "2026-08-29T10:00:00Z")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := AppendRunIndex(base, sampleIndexEntry("run-b", "2026-08-30T10:00:00Z")); err != nil {
		t.Fatalf("append: %v", err)
	}

	updated := sampleIndexEntry("run-a", "2026-08-29T10:00:00Z")
	updated.FinalBestSum = 2.0
	if err := AppendRunIndex(base, updated); err != nil {
		t.Fatalf("append update: %v", err)
	}

	index, err := ListRunIndex(base)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(index) != 2 {
		t.Fatalf("got %d entries, want 2", len(index))
	}
	if index[0].RunID != "run-b" || index[1].RunID != "run-a" {
		t.Fatalf("order = %s, %s; want run-b, run-a", index[0].RunID, index[1].RunID)
	}
	if index[1].FinalBestSum != 2.0 {
		t.Fatalf("update lost: %+v", index[1])
	}
}

func TestListRunIndexEmptyDir(t *testing.T) {
	index, err := ListRunIndex(t.TempDir())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(index) != 0 {
		t.Fatalf("got %d entries, want 0", len(index))
	}
}

func TestExportRunArtifacts(t *testing.T) {
	base := t.TempDir()
	out := t.TempDir()
	if _, err := WriteRunArtifacts(base, sampleArtifacts("run-a")); err != nil {
		t.Fatalf("write: %v", err)
	}

	dst, err := ExportRunArtifacts(base, "run-a", out)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	for _, file := range []string{"config.json", "fitness_history.json", "generation_summaries.json", "top_genomes.json"} {
		if _, err := os.Stat(filepath.Join(dst, file)); err != nil {
			t.Fatalf("missing exported %s: %v", file, err)
		}
	}

	if _, err := ExportRunArtifacts(base, "absent", out); err == nil {
		t.Fatal("expected error for unknown run")
	}
	if _, err := ExportRunArtifacts(base, "  ", out); err == nil {
		t.Fatal("expected error for blank run id")
	}
}
