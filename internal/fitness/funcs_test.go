package fitness

import (
	"math"
	"testing"

	"bipedevo/internal/sim"
)

// walkedRecord is a healthy 5 s episode covering five leg-lengths.
func walkedRecord() sim.OutputRecord {
	n := 100
	rec := sim.OutputRecord{
		SupportX:  []float64{0, 5.0},
		EndTime:   5.0,
		LegLength: 1.0,
		Mass:      8.0,
		Gravity:   9.81,
	}
	for i := 0; i < n; i++ {
		rec.Time = append(rec.Time, float64(i)*0.05)
		rec.States = append(rec.States, []float64{0, 0.95, 1.0, 0, 0, 0})
		rec.Torques = append(rec.Torques, []float64{5, 2})
		rec.GroundForce = append(rec.GroundForce, []float64{0, 80})
	}
	return rec
}

// shortRecord walked only a fraction of a leg length.
func shortRecord() sim.OutputRecord {
	rec := walkedRecord()
	rec.SupportX = []float64{0, 0.01}
	return rec
}

func TestHeightFit(t *testing.T) {
	rec := walkedRecord()
	// Ratio 0.95 sits above the saturation band.
	if score, _ := HeightFit(rec); score != 1.0 {
		t.Fatalf("tall hip score = %g, want 1", score)
	}

	for i := range rec.States {
		rec.States[i][1] = 0.40 // below the zero threshold
	}
	if score, _ := HeightFit(rec); score != 0 {
		t.Fatalf("crouched hip score = %g, want 0", score)
	}

	for i := range rec.States {
		rec.States[i][1] = 0.675 // midpoint of the scoring band
	}
	score, _ := HeightFit(rec)
	if math.Abs(score-0.5) > 1e-9 {
		t.Fatalf("midpoint score = %g, want 0.5", score)
	}

	if score, _ := HeightFit(sim.OutputRecord{}); score != 0 {
		t.Fatalf("empty record score = %g, want 0", score)
	}

	// Standing in place with a tall hip must not score; the distance
	// gate applies to height like the other gated objectives.
	if score, _ := HeightFit(shortRecord()); score != 0 {
		t.Fatalf("standing-still score = %g, want 0", score)
	}
}

func TestGatedObjectivesZeroForNearZeroDistance(t *testing.T) {
	rec := shortRecord()
	rec.Work = 40.0
	for _, fn := range []struct {
		name  string
		score func(sim.OutputRecord) (float64, map[string]any)
	}{
		{"HeightFit", HeightFit},
		{"NrgEffFit", NrgEffFit},
		{"ZMPFit", ZMPFit},
	} {
		if score, _ := fn.score(rec); score != 0 {
			t.Fatalf("%s = %g for near-zero distance, want 0", fn.name, score)
		}
	}
}

func TestVelFit(t *testing.T) {
	rec := walkedRecord() // 1 leg-length/s against a 1.5 cap
	score, aux := VelFit(rec)
	if math.Abs(score-1.0/1.5) > 1e-9 {
		t.Fatalf("score = %g, want %g", score, 1.0/1.5)
	}
	if aux["velocity"].(float64) != 1.0 {
		t.Fatalf("velocity aux = %v, want 1", aux["velocity"])
	}

	rec.SupportX = []float64{0, 20}
	if score, _ := VelFit(rec); score != 1.0 {
		t.Fatalf("capped score = %g, want 1", score)
	}

	rec.SupportX = []float64{0, -20}
	if score, _ := VelFit(rec); score != -1.0 {
		t.Fatalf("backward score = %g, want -1", score)
	}

	if score, _ := VelFit(sim.OutputRecord{LegLength: 1}); score != 0 {
		t.Fatalf("zero-duration score = %g, want 0", score)
	}
}

func TestNrgEffFit(t *testing.T) {
	rec := walkedRecord()
	rec.Work = 100.0
	distance := 5.0
	cot := 100.0 / (8.0 * 9.81 * distance)
	want := 1.0 / (1.0 + 5.0*cot)
	score, aux := NrgEffFit(rec)
	if math.Abs(score-want) > 1e-9 {
		t.Fatalf("score = %g, want %g", score, want)
	}
	if math.Abs(aux["cost_of_transport"].(float64)-cot) > 1e-12 {
		t.Fatalf("cot aux = %v, want %g", aux["cost_of_transport"], cot)
	}

	if score, _ := NrgEffFit(shortRecord()); score != 0 {
		t.Fatalf("short walk score = %g, want 0", score)
	}

	// Downhill harvesting can push net work negative; that clamps to the
	// best possible efficiency, never above 1.
	rec.Work = 0
	rec.PotentialGain = -50
	if score, _ := NrgEffFit(rec); score != 1.0 {
		t.Fatalf("negative-COT score = %g, want 1", score)
	}
}

func TestEigenFit(t *testing.T) {
	rec := walkedRecord()
	if score, _ := EigenFit(rec); score != 0 {
		t.Fatalf("no-period score = %g, want 0", score)
	}

	rec.HasPeriod = true
	rec.Period = 0.4
	rec.EigenvalueMagnitudes = []float64{0.3, 0.7}
	score, aux := EigenFit(rec)
	if math.Abs(score-0.3) > 1e-9 {
		t.Fatalf("score = %g, want 0.3", score)
	}
	if aux["max_eigenvalue"].(float64) != 0.7 {
		t.Fatalf("max eigenvalue aux = %v, want 0.7", aux["max_eigenvalue"])
	}

	// An unstable orbit never scores below zero.
	rec.EigenvalueMagnitudes = []float64{2.5}
	if score, _ := EigenFit(rec); score != 0 {
		t.Fatalf("unstable orbit score = %g, want 0", score)
	}
}

func TestSlopeFits(t *testing.T) {
	rec := walkedRecord()
	if score, _ := UphillFitRun(rec); score != 0 {
		t.Fatalf("no-slope uphill score = %g, want 0", score)
	}
	if score, _ := DownhillFitRun(rec); score != 0 {
		t.Fatalf("no-slope downhill score = %g, want 0", score)
	}

	rec.HasSlopes = true
	rec.MaxSlope = 0.2
	rec.MinSlope = -0.1
	if score, _ := UphillFitRun(rec); math.Abs(score-0.5) > 1e-9 {
		t.Fatalf("uphill score = %g, want 0.5", score)
	}
	if score, _ := DownhillFitRun(rec); math.Abs(score-0.25) > 1e-9 {
		t.Fatalf("downhill score = %g, want 0.25", score)
	}

	short := shortRecord()
	short.HasSlopes = true
	short.MaxSlope = 0.2
	if score, _ := UphillFitRun(short); score != 0 {
		t.Fatalf("short walk uphill score = %g, want 0", score)
	}
}

func TestZMPFit(t *testing.T) {
	rec := walkedRecord()
	// Ankle torque 2 against fz 80 gives a 0.025 m offset on a 0.3 m
	// half-foot.
	offset := (2.0 / 80.0) / 0.3
	c := math.Cos(offset * math.Pi / 2)
	want := c * c
	score, _ := ZMPFit(rec)
	if math.Abs(score-want) > 1e-9 {
		t.Fatalf("score = %g, want %g", score, want)
	}

	if score, _ := ZMPFit(shortRecord()); score != 0 {
		t.Fatalf("short walk score = %g, want 0", score)
	}

	// Saturated offsets score zero margin.
	for i := range rec.Torques {
		rec.Torques[i][1] = 30
	}
	if score, _ := ZMPFit(rec); math.Abs(score) > 1e-12 {
		t.Fatalf("saturated offset score = %g, want 0", score)
	}
}
