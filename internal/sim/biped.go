package sim

import (
	"context"
	"math"

	"bipedevo/internal/controller"
)

const (
	legSpring    = 3500.0
	legDamping   = 120.0
	swingInertia = 0.2
	swingDamping = 1.2
	minSwingStep = 0.05
	fallLow      = 0.45
	fallHigh     = 1.40
	ctxCheckEach = 256
)

// BipedSimulator integrates a simplified planar biped: a hip point mass on
// a compliant stance leg plus a pendulum swing leg, torque-driven at the
// hip and the stance ankle. State exposed to the controller:
// [hipX-supportX, hipHeight, hipXVel, hipZVel, swingAngle, swingRate].
type BipedSimulator struct{}

func NewBipedSimulator() *BipedSimulator {
	return &BipedSimulator{}
}

func (s *BipedSimulator) Run(ctx context.Context, c controller.Controller, cfg EpisodeConfig) (OutputRecord, error) {
	cfg = normalized(cfg)

	record, steps, err := s.runEpisode(ctx, c, cfg)
	if err != nil {
		return OutputRecord{}, err
	}
	analyzeReturnMap(&record, steps)

	if cfg.AnalyzeSlopes && cfg.SlopeGrade == 0 {
		if err := s.analyzeSlopes(ctx, c, cfg, &record); err != nil {
			return OutputRecord{}, err
		}
	}
	return record, nil
}

type stepEvent struct {
	time  float64
	state []float64 // [vx, vz, swing, swingRate]
}

func (s *BipedSimulator) runEpisode(ctx context.Context, c controller.Controller, cfg EpisodeConfig) (OutputRecord, []stepEvent, error) {
	L := cfg.LegLength
	m := cfg.Mass
	g := cfg.Gravity
	dt := cfg.StepSize
	grade := cfg.SlopeGrade

	// Hip starts above the support foot at standing height, drifting
	// slightly forward so a symmetric controller still breaks the
	// equilibrium deterministically.
	x, z := 0.02*L, 0.98*L
	vx, vz := 0.05, 0.0
	swing, swingRate := 0.15, 0.0
	if len(cfg.InitialState) >= 6 {
		x = cfg.InitialState[0]
		z = cfg.InitialState[1]
		vx = cfg.InitialState[2]
		vz = cfg.InitialState[3]
		swing = cfg.InitialState[4]
		swingRate = cfg.InitialState[5]
	}
	supportX := 0.0

	stepCount := int(cfg.Duration/dt) + 1
	record := OutputRecord{
		Time:        make([]float64, 0, stepCount),
		States:      make([][]float64, 0, stepCount),
		Torques:     make([][]float64, 0, stepCount),
		GroundForce: make([][]float64, 0, stepCount),
		SupportX:    []float64{supportX},
		LegLength:   L,
		Mass:        m,
		Gravity:     g,
		SlopeGrade:  grade,
	}
	startZ := z
	events := make([]stepEvent, 0, 64)

	t := 0.0
	for step := 0; t < cfg.Duration; step++ {
		if step%ctxCheckEach == 0 {
			if err := ctx.Err(); err != nil {
				return OutputRecord{}, nil, err
			}
		}

		groundZ := grade * supportX
		ex := x - supportX
		ez := z - groundZ
		r := math.Hypot(ex, ez)
		if r < 1e-9 {
			r = 1e-9
		}

		state := []float64{ex, ez, vx, vz, swing, swingRate}
		torques := c.Output(t, state)
		tauHip, tauAnkle := 0.0, 0.0
		if len(torques) > 0 {
			tauHip = clampTorque(torques[0], cfg.MaxTorque)
		}
		if len(torques) > 1 {
			tauAnkle = clampTorque(torques[1], cfg.MaxTorque)
		}

		// Stance leg: radial spring-damper plus ankle torque acting
		// tangentially at the hip.
		radialVel := (ex*vx + ez*vz) / r
		legForce := 0.0
		if r < L {
			legForce = legSpring*(L-r) - legDamping*radialVel
			if legForce < 0 {
				legForce = 0
			}
		}
		fx := legForce*ex/r - tauAnkle*ez/(r*r)
		fz := legForce*ez/r + tauAnkle*ex/(r*r)

		ax := fx / m
		az := fz/m - g
		swingAcc := tauHip/(swingInertia*m*L*L) - (g/L)*math.Sin(swing) - swingDamping*swingRate

		stanceRate := (vx*ez - vz*ex) / (r * r)
		record.Work += (math.Abs(tauHip*swingRate) + math.Abs(tauAnkle*stanceRate)) * dt

		record.Time = append(record.Time, t)
		record.States = append(record.States, state)
		record.Torques = append(record.Torques, []float64{tauHip, tauAnkle})
		record.GroundForce = append(record.GroundForce, []float64{fx, fz})

		vx += ax * dt
		vz += az * dt
		x += vx * dt
		z += vz * dt
		swingRate += swingAcc * dt
		swing += swingRate * dt
		t += dt

		// Heel strike: the stance angle has caught up with the swing leg
		// and the swing foot lands ahead of the hip.
		stanceAngle := math.Atan2(ex, ez)
		if swing > minSwingStep && stanceAngle >= swing && vx > 0 {
			supportX = x + L*math.Sin(swing) - L*math.Sin(stanceAngle)
			if supportX <= record.SupportX[len(record.SupportX)-1] {
				supportX = record.SupportX[len(record.SupportX)-1] + 1e-6
			}
			record.SupportX = append(record.SupportX, supportX)
			cos := math.Cos(swing - stanceAngle)
			vx *= cos * cos
			if vz > 0 {
				vz = 0
			}
			swing, swingRate = -stanceAngle, -0.5*swingRate
			events = append(events, stepEvent{time: t, state: []float64{vx, vz, swing, swingRate}})
		}

		height := z - grade*supportX
		if height < fallLow*L || height > fallHigh*L {
			record.Fell = true
			break
		}
	}

	record.EndTime = t
	record.PotentialGain = m * g * (z - startZ)
	return record, events, nil
}

func clampTorque(v, max float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v > max {
		return max
	}
	if v < -max {
		return -max
	}
	return v
}
