package evo

import (
	"context"
	"fmt"
	"sync"

	"bipedevo/internal/model"
)

// PopulationManager owns the genome matrix of the current generation and
// the append-only fitness tensor for the run's lifetime. Rankers and the
// reproduction engine receive read-only views and return new structures.
type PopulationManager struct {
	evaluator *Evaluator
	workers   int

	genomes  []model.Genome
	tensor   model.FitnessTensor
	progress int
}

func NewPopulationManager(evaluator *Evaluator, initial []model.Genome, workers int) (*PopulationManager, error) {
	if evaluator == nil {
		return nil, fmt.Errorf("evaluator is required")
	}
	if len(initial) == 0 {
		return nil, fmt.Errorf("initial population is required")
	}
	if workers <= 0 {
		workers = 1
	}
	return &PopulationManager{
		evaluator: evaluator,
		workers:   workers,
		genomes:   append([]model.Genome(nil), initial...),
	}, nil
}

// Restore rebuilds a manager from persisted state.
func (m *PopulationManager) Restore(tensor model.FitnessTensor, progress int) {
	m.tensor = tensor
	m.progress = progress
}

func (m *PopulationManager) Genomes() []model.Genome {
	return m.genomes
}

func (m *PopulationManager) Tensor() model.FitnessTensor {
	return m.tensor
}

// Progress is the 1-based index of the last fully evaluated generation.
func (m *PopulationManager) Progress() int {
	return m.progress
}

// Replace installs the next generation's genome matrix.
func (m *PopulationManager) Replace(next []model.Genome) error {
	if len(next) != len(m.genomes) {
		return fmt.Errorf("population size changed: got=%d want=%d", len(next), len(m.genomes))
	}
	m.genomes = next
	return nil
}

// EvaluateGeneration scores every genome of the current generation.
// Evaluations are independent and run on a worker pool; each result lands
// in its own slot, so the merge is deterministic regardless of worker
// interleaving. The tensor is appended and progress advanced only once the
// whole generation has completed.
func (m *PopulationManager) EvaluateGeneration(ctx context.Context) ([][]float64, error) {
	type job struct {
		idx int
	}
	type result struct {
		idx    int
		vector []float64
		err    error
	}

	jobs := make(chan job)
	results := make(chan result, len(m.genomes))

	workerCount := m.workers
	if workerCount > len(m.genomes) {
		workerCount = len(m.genomes)
	}

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				vector, err := m.evaluator.Evaluate(ctx, m.genomes[j.idx])
				results <- result{idx: j.idx, vector: vector, err: err}
			}
		}()
	}

	for i := range m.genomes {
		jobs <- job{idx: i}
	}
	close(jobs)

	wg.Wait()
	close(results)

	matrix := make([][]float64, len(m.genomes))
	for res := range results {
		if res.err != nil {
			return nil, res.err
		}
		matrix[res.idx] = res.vector
	}

	m.tensor.Append(matrix)
	m.progress++
	return matrix, nil
}

// QueryResult lists the individuals of one generation meeting all
// per-objective thresholds. When the match count exceeds the caller's
// limit only the count is reported.
type QueryResult struct {
	Generation int         `json:"generation"`
	Count      int         `json:"count"`
	Truncated  bool        `json:"truncated"`
	Indices    []int       `json:"indices,omitempty"`
	Vectors    [][]float64 `json:"vectors,omitempty"`
}

// QueryGeneration filters a generation of the tensor by per-dimension
// minimum thresholds.
func QueryGeneration(tensor model.FitnessTensor, generation int, thresholds []float64, maxResults int) (QueryResult, error) {
	matrix, ok := tensor.Generation(generation)
	if !ok {
		return QueryResult{}, fmt.Errorf("generation %d not evaluated (have %d)", generation, tensor.Len())
	}

	var indices []int
	for i, vector := range matrix {
		if len(thresholds) > len(vector) {
			return QueryResult{}, fmt.Errorf("threshold count %d exceeds objective count %d", len(thresholds), len(vector))
		}
		meets := true
		for d, min := range thresholds {
			if vector[d] < min {
				meets = false
				break
			}
		}
		if meets {
			indices = append(indices, i)
		}
	}

	out := QueryResult{Generation: generation, Count: len(indices)}
	if maxResults > 0 && len(indices) > maxResults {
		out.Truncated = true
		return out, nil
	}
	out.Indices = indices
	out.Vectors = make([][]float64, 0, len(indices))
	for _, i := range indices {
		out.Vectors = append(out.Vectors, append([]float64(nil), matrix[i]...))
	}
	return out, nil
}
