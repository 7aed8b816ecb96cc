package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"bipedevo/internal/model"
	"bipedevo/internal/sim"
	"bipedevo/pkg/bipedevo"
)

// runFileConfig is the YAML shape of a run configuration file. Anything
// left out keeps its CLI or library default.
type runFileConfig struct {
	RunID      string `yaml:"run_id"`
	Controller struct {
		Kind             string `yaml:"kind"`
		Inputs           int    `yaml:"inputs"`
		Outputs          int    `yaml:"outputs"`
		HiddenLayers     []int  `yaml:"hidden_layers"`
		Activation       string `yaml:"activation"`
		OutputActivation string `yaml:"output_activation"`
	} `yaml:"controller"`
	Population  int `yaml:"population"`
	Generations int `yaml:"generations"`
	Fittest     struct {
		EliteCopy    int `yaml:"elite_copy"`
		EliteMutated int `yaml:"elite_mutated"`
		Children     int `yaml:"children"`
	} `yaml:"fittest"`
	WeightedPairing bool    `yaml:"weighted_pairing"`
	FrontDecay      float64 `yaml:"front_decay"`
	MutationRate    float64 `yaml:"mutation_rate"`
	NoMutation      bool    `yaml:"no_mutation"`
	MutationSigma   float64 `yaml:"mutation_sigma"`
	Workers         int     `yaml:"workers"`
	Seed            int64   `yaml:"seed"`
	EvalTimeoutMS   int64   `yaml:"eval_timeout_ms"`
	Episode         struct {
		Duration      float64 `yaml:"duration"`
		StepSize      float64 `yaml:"step_size"`
		SlopeGrade    float64 `yaml:"slope_grade"`
		LegLength     float64 `yaml:"leg_length"`
		Mass          float64 `yaml:"mass"`
		Gravity       float64 `yaml:"gravity"`
		MaxTorque     float64 `yaml:"max_torque"`
		AnalyzeSlopes bool    `yaml:"analyze_slopes"`
	} `yaml:"episode"`
	Base *struct {
		Offset int       `yaml:"offset"`
		Values []float64 `yaml:"values"`
	} `yaml:"base"`
}

func loadRunRequest(path string) (bipedevo.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return bipedevo.RunRequest{}, fmt.Errorf("read run config: %w", err)
	}

	var cfg runFileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return bipedevo.RunRequest{}, fmt.Errorf("parse run config: %w", err)
	}

	req := bipedevo.RunRequest{
		RunID: cfg.RunID,
		Controller: model.ControllerConfig{
			Kind:             cfg.Controller.Kind,
			Inputs:           cfg.Controller.Inputs,
			Outputs:          cfg.Controller.Outputs,
			HiddenLayers:     cfg.Controller.HiddenLayers,
			Activation:       cfg.Controller.Activation,
			OutputActivation: cfg.Controller.OutputActivation,
		},
		Population:  cfg.Population,
		Generations: cfg.Generations,
		Fittest: model.Fittest{
			EliteCopy:    cfg.Fittest.EliteCopy,
			EliteMutated: cfg.Fittest.EliteMutated,
			Children:     cfg.Fittest.Children,
		},
		WeightedPairing: cfg.WeightedPairing,
		FrontDecay:      cfg.FrontDecay,
		MutationRate:    cfg.MutationRate,
		NoMutation:      cfg.NoMutation,
		MutationSigma:   cfg.MutationSigma,
		Workers:         cfg.Workers,
		Seed:            cfg.Seed,
		EvalTimeoutMS:   cfg.EvalTimeoutMS,
		Episode: sim.EpisodeConfig{
			Duration:      cfg.Episode.Duration,
			StepSize:      cfg.Episode.StepSize,
			SlopeGrade:    cfg.Episode.SlopeGrade,
			LegLength:     cfg.Episode.LegLength,
			Mass:          cfg.Episode.Mass,
			Gravity:       cfg.Episode.Gravity,
			MaxTorque:     cfg.Episode.MaxTorque,
			AnalyzeSlopes: cfg.Episode.AnalyzeSlopes,
		},
	}
	if cfg.Base != nil {
		req.Base = &model.BaseBlock{
			Offset: cfg.Base.Offset,
			Values: append([]float64(nil), cfg.Base.Values...),
		}
	}
	return req, nil
}
