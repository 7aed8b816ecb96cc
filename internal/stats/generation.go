package stats

import (
	"gonum.org/v1/gonum/stat"
)

// GenerationSummary condenses one generation's fitness matrix for logging
// and run artifacts. Sums are fitness-vector sums across objectives.
type GenerationSummary struct {
	Generation int       `json:"generation"`
	BestIndex  int       `json:"best_index"`
	BestSum    float64   `json:"best_sum"`
	MeanSum    float64   `json:"mean_sum"`
	StdDevSum  float64   `json:"stddev_sum"`
	BestVector []float64 `json:"best_vector,omitempty"`
	FrontSizes []int     `json:"front_sizes,omitempty"`
}

func SummarizeGeneration(generation int, matrix [][]float64, fronts [][]int) GenerationSummary {
	out := GenerationSummary{Generation: generation, BestIndex: -1}
	if len(matrix) == 0 {
		return out
	}

	sums := make([]float64, len(matrix))
	for i, vector := range matrix {
		for _, v := range vector {
			sums[i] += v
		}
		if out.BestIndex < 0 || sums[i] > out.BestSum {
			out.BestIndex = i
			out.BestSum = sums[i]
		}
	}
	out.BestVector = append([]float64(nil), matrix[out.BestIndex]...)
	out.MeanSum = stat.Mean(sums, nil)
	if len(sums) > 1 {
		out.StdDevSum = stat.StdDev(sums, nil)
	}
	for _, front := range fronts {
		out.FrontSizes = append(out.FrontSizes, len(front))
	}
	return out
}
