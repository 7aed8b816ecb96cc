package sim

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

const (
	poincareDim    = 4
	poincareWindow = 8
	periodTol      = 0.15
)

// analyzeReturnMap derives the limit-cycle period and the eigenvalue
// magnitudes of the linearized step-to-step return map from heel-strike
// snapshots. With too few steps, or without step-to-step convergence, the
// record reports no periodic orbit.
func analyzeReturnMap(record *OutputRecord, events []stepEvent) {
	if len(events) < poincareDim+2 {
		return
	}

	window := poincareWindow
	if len(events) < window {
		window = len(events)
	}
	tail := events[len(events)-window:]

	meanPeriod := (tail[len(tail)-1].time - tail[0].time) / float64(len(tail)-1)
	if meanPeriod <= 0 {
		return
	}
	for i := 1; i < len(tail); i++ {
		period := tail[i].time - tail[i-1].time
		if math.Abs(period-meanPeriod) > periodTol*meanPeriod {
			return
		}
	}

	fixed := make([]float64, poincareDim)
	for _, e := range tail {
		for d := 0; d < poincareDim; d++ {
			fixed[d] += e.state[d]
		}
	}
	for d := range fixed {
		fixed[d] /= float64(len(tail))
	}

	pairs := len(tail) - 1
	// Least-squares fit of A mapping deviation k to deviation k+1:
	// X^T A^T = Y^T with deviations as rows.
	xt := mat.NewDense(pairs, poincareDim, nil)
	yt := mat.NewDense(pairs, poincareDim, nil)
	for k := 0; k < pairs; k++ {
		for d := 0; d < poincareDim; d++ {
			xt.Set(k, d, tail[k].state[d]-fixed[d])
			yt.Set(k, d, tail[k+1].state[d]-fixed[d])
		}
	}

	var at mat.Dense
	if err := at.Solve(xt, yt); err != nil {
		return
	}
	var a mat.Dense
	a.CloneFrom(at.T())

	var eigen mat.Eigen
	if ok := eigen.Factorize(&a, mat.EigenNone); !ok {
		return
	}
	values := eigen.Values(nil)
	magnitudes := make([]float64, 0, len(values))
	for _, v := range values {
		magnitude := cmplx.Abs(v)
		if math.IsNaN(magnitude) || math.IsInf(magnitude, 0) {
			return
		}
		magnitudes = append(magnitudes, magnitude)
	}

	record.Period = meanPeriod
	record.HasPeriod = true
	record.EigenvalueMagnitudes = magnitudes
}
