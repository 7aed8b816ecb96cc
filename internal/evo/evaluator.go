package evo

import (
	"context"
	"fmt"
	"time"

	"bipedevo/internal/controller"
	"bipedevo/internal/fitness"
	"bipedevo/internal/genome"
	"bipedevo/internal/model"
	"bipedevo/internal/sim"
)

// Evaluator scores one genome: decode, build controller, run one episode,
// apply every registered objective in registry order. Simulator failures,
// controller build failures and timeouts all map to the registry's minimum
// vector; the optimizer never stalls on a degenerate individual.
type Evaluator struct {
	Codec      *genome.Codec
	Controller model.ControllerConfig
	Simulator  sim.Simulator
	Episode    sim.EpisodeConfig
	Registry   *fitness.Registry
	Timeout    time.Duration
}

func NewEvaluator(codec *genome.Codec, ctrl model.ControllerConfig, simulator sim.Simulator, episode sim.EpisodeConfig, registry *fitness.Registry, timeout time.Duration) (*Evaluator, error) {
	if codec == nil {
		return nil, fmt.Errorf("codec is required")
	}
	if simulator == nil {
		return nil, fmt.Errorf("simulator is required")
	}
	if registry == nil || registry.Len() == 0 {
		return nil, fmt.Errorf("at least one objective is required")
	}
	return &Evaluator{
		Codec:      codec,
		Controller: ctrl,
		Simulator:  simulator,
		Episode:    episode,
		Registry:   registry,
		Timeout:    timeout,
	}, nil
}

// Evaluate returns the fitness vector for one genome. The only error it
// surfaces is cancellation of the parent context.
func (e *Evaluator) Evaluate(ctx context.Context, g model.Genome) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fields, err := e.Codec.Decode(g)
	if err != nil {
		return e.Registry.MinVector(), nil
	}
	ctrl, err := controller.Build(e.Controller, fields)
	if err != nil {
		return e.Registry.MinVector(), nil
	}

	runCtx := ctx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	record, err := e.Simulator.Run(runCtx, ctrl, e.Episode.Clone())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return e.Registry.MinVector(), nil
	}
	return e.Registry.Apply(record), nil
}
