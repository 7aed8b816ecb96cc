package sim

import (
	"context"
	"math"

	"bipedevo/internal/controller"
)

const (
	slopeMinDistanceLegs = 3.0
	slopeBisections      = 6
	slopeGradeFloor      = 0.05
	slopeGradeCeil       = 0.40
)

// analyzeSlopes re-runs the episode on inclined surfaces to find the
// steepest sustainable uphill and downhill grades. The search range is
// derived from the flat-ground forward velocity; each branch run owns an
// independent clone of the episode config.
func (s *BipedSimulator) analyzeSlopes(ctx context.Context, c controller.Controller, cfg EpisodeConfig, record *OutputRecord) error {
	if record.Fell || record.Distance() < slopeMinDistanceLegs*cfg.LegLength {
		return nil
	}

	velocity := 0.0
	if record.EndTime > 0 {
		velocity = record.Distance() / record.EndTime
	}
	gradeCap := math.Min(slopeGradeFloor+0.3*velocity, slopeGradeCeil)

	up, err := s.bisectGrade(ctx, c, cfg, gradeCap, 1)
	if err != nil {
		return err
	}
	down, err := s.bisectGrade(ctx, c, cfg, gradeCap, -1)
	if err != nil {
		return err
	}

	record.MaxSlope = up
	record.MinSlope = -down
	record.HasSlopes = true
	return nil
}

// bisectGrade finds the steepest walkable grade in [0, maxGrade] for the given
// direction (+1 uphill, -1 downhill).
func (s *BipedSimulator) bisectGrade(ctx context.Context, c controller.Controller, cfg EpisodeConfig, maxGrade float64, direction float64) (float64, error) {
	ok, err := s.walkable(ctx, c, cfg, direction*maxGrade)
	if err != nil {
		return 0, err
	}
	if ok {
		return maxGrade, nil
	}

	lo, hi := 0.0, maxGrade
	for i := 0; i < slopeBisections; i++ {
		mid := (lo + hi) / 2
		ok, err := s.walkable(ctx, c, cfg, direction*mid)
		if err != nil {
			return 0, err
		}
		if ok {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo, nil
}

func (s *BipedSimulator) walkable(ctx context.Context, c controller.Controller, cfg EpisodeConfig, grade float64) (bool, error) {
	branch := cfg.Clone()
	branch.SlopeGrade = grade
	branch.AnalyzeSlopes = false

	record, _, err := s.runEpisode(ctx, c, branch)
	if err != nil {
		return false, err
	}
	return !record.Fell && record.Distance() >= slopeMinDistanceLegs*cfg.LegLength, nil
}
