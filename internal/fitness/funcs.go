package fitness

import (
	"math"

	"bipedevo/internal/sim"
)

const (
	// minDistanceLegs gates the height, efficiency, slope and ZMP
	// objectives: below three leg-lengths of travel the episode scores
	// zero.
	minDistanceLegs = 3.0

	velocityCap   = 1.5  // leg-lengths per second
	heightScoreLo = 0.50 // hip height ratio where the score leaves zero
	heightScoreHi = 0.85 // hip height ratio where the score saturates
	slopeScale    = 0.40 // grade mapped to a slope score of 1
	footHalf      = 0.30 // estimated foot half-length in leg-lengths
	minVertical   = 1e-6
)

// HeightFit is the time-integral of a clipped piecewise-linear score of hip
// height relative to leg length, normalized by episode duration. Standing
// tall in place earns nothing: episodes shorter than three leg-lengths
// score zero.
func HeightFit(rec sim.OutputRecord) (float64, map[string]any) {
	heights := rec.HipHeights()
	if len(heights) == 0 || rec.LegLength <= 0 {
		return 0, nil
	}
	if rec.Distance() < minDistanceLegs*rec.LegLength {
		return 0, nil
	}
	total := 0.0
	for _, h := range heights {
		ratio := h / rec.LegLength
		total += clamp01((ratio - heightScoreLo) / (heightScoreHi - heightScoreLo))
	}
	return clamp01(total / float64(len(heights))), nil
}

// VelFit is forward progress normalized by the velocity cap and episode
// duration. Backward drift scores negative; the result is capped to [-1, 1].
func VelFit(rec sim.OutputRecord) (float64, map[string]any) {
	if rec.EndTime <= 0 || rec.LegLength <= 0 {
		return 0, nil
	}
	velocity := rec.Distance() / rec.EndTime
	score := velocity / (velocityCap * rec.LegLength)
	if score > 1 {
		score = 1
	}
	if score < -1 {
		score = -1
	}
	return score, map[string]any{"velocity": velocity}
}

// NrgEffFit scores cost of transport as 1/(1+5*COT), where COT is net
// mechanical work per unit weight and distance. Episodes shorter than three
// leg-lengths score zero.
func NrgEffFit(rec sim.OutputRecord) (float64, map[string]any) {
	distance := rec.Distance()
	if distance < minDistanceLegs*rec.LegLength {
		return 0, nil
	}
	denominator := rec.Mass * rec.Gravity * distance
	if denominator < minVertical {
		return 0, nil
	}
	cot := (rec.Work - rec.PotentialGain) / denominator
	if cot < 0 || math.IsNaN(cot) || math.IsInf(cot, 0) {
		cot = 0
	}
	return 1.0 / (1.0 + 5.0*cot), map[string]any{"cost_of_transport": cot}
}

// EigenFit is 1 minus the spectral radius of the Poincaré return map,
// clamped at zero. Without a periodic orbit it scores zero.
func EigenFit(rec sim.OutputRecord) (float64, map[string]any) {
	if !rec.HasPeriod {
		return 0, nil
	}
	max := rec.MaxEigenvalueMagnitude()
	score := 1.0 - max
	if score < 0 {
		score = 0
	}
	return score, map[string]any{"period": rec.Period, "max_eigenvalue": max}
}

// UphillFitRun reports the steepest sustainable uphill grade found by the
// simulator's inclined branch runs, normalized to [0, 1].
func UphillFitRun(rec sim.OutputRecord) (float64, map[string]any) {
	if !rec.HasSlopes || rec.Distance() < minDistanceLegs*rec.LegLength {
		return 0, nil
	}
	return clamp01(rec.MaxSlope / slopeScale), map[string]any{"max_slope": rec.MaxSlope}
}

// DownhillFitRun reports the steepest sustainable downhill grade,
// normalized to [0, 1].
func DownhillFitRun(rec sim.OutputRecord) (float64, map[string]any) {
	if !rec.HasSlopes || rec.Distance() < minDistanceLegs*rec.LegLength {
		return 0, nil
	}
	return clamp01(-rec.MinSlope / slopeScale), map[string]any{"min_slope": rec.MinSlope}
}

// ZMPFit scores the zero-moment-point margin relative to the estimated foot
// geometry, reshaped by cosine-squared to de-emphasize near-zero offsets.
func ZMPFit(rec sim.OutputRecord) (float64, map[string]any) {
	if rec.Distance() < minDistanceLegs*rec.LegLength || rec.LegLength <= 0 {
		return 0, nil
	}
	if len(rec.Torques) == 0 || len(rec.Torques) != len(rec.GroundForce) {
		return 0, nil
	}

	half := footHalf * rec.LegLength
	total := 0.0
	for i, grf := range rec.GroundForce {
		fz := 0.0
		if len(grf) > 1 {
			fz = grf[1]
		}
		if fz < minVertical {
			continue
		}
		ankle := 0.0
		if len(rec.Torques[i]) > 1 {
			ankle = rec.Torques[i][1]
		}
		offset := math.Min(math.Abs(ankle/fz)/half, 1.0)
		c := math.Cos(offset * math.Pi / 2)
		total += c * c
	}
	return clamp01(total / float64(len(rec.GroundForce))), nil
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
