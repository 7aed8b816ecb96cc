package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// GeneField declares one named coordinate of the genome and its valid range.
type GeneField struct {
	Name string  `json:"name"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// BaseBlock is a contiguous run of gene values copied verbatim into every
// genome of a run. The block is excluded from mutation and crossover.
type BaseBlock struct {
	Offset int       `json:"offset"`
	Values []float64 `json:"values"`
}

// GeneSpec is the fixed gene layout shared by every individual in a run.
type GeneSpec struct {
	Fields []GeneField `json:"fields"`
	Base   *BaseBlock  `json:"base,omitempty"`
}

func (s GeneSpec) Length() int {
	return len(s.Fields)
}

// InBase reports whether gene index i lies inside the base block.
func (s GeneSpec) InBase(i int) bool {
	if s.Base == nil {
		return false
	}
	return i >= s.Base.Offset && i < s.Base.Offset+len(s.Base.Values)
}

type Genome struct {
	VersionedRecord
	ID    string    `json:"id"`
	Genes []float64 `json:"genes"`
}

// Fittest describes the composition of each next generation.
type Fittest struct {
	EliteCopy    int `json:"elite_copy"`
	EliteMutated int `json:"elite_mutated"`
	Children     int `json:"children"`
}

type ControllerConfig struct {
	Kind             string `json:"kind"`
	Inputs           int    `json:"inputs"`
	Outputs          int    `json:"outputs"`
	HiddenLayers     []int  `json:"hidden_layers,omitempty"`
	Activation       string `json:"activation,omitempty"`
	OutputActivation string `json:"output_activation,omitempty"`
}

// EpisodeConfig describes one simulation episode. Zero fields are filled
// with the default walker parameters by the simulator, so the zero value
// is a 10 s flat-ground episode.
type EpisodeConfig struct {
	Duration     float64   `json:"duration"`
	StepSize     float64   `json:"step_size"`
	SlopeGrade   float64   `json:"slope_grade"`
	InitialState []float64 `json:"initial_state,omitempty"`
	LegLength    float64   `json:"leg_length"`
	Mass         float64   `json:"mass"`
	Gravity      float64   `json:"gravity"`
	MaxTorque    float64   `json:"max_torque"`

	// AnalyzeSlopes enables the inclined-surface branch runs that derive
	// MaxSlope/MinSlope from the flat-ground episode.
	AnalyzeSlopes bool `json:"analyze_slopes"`
}

// Clone deep-copies the initial-state slice so branch runs cannot share it.
func (c EpisodeConfig) Clone() EpisodeConfig {
	c.InitialState = append([]float64(nil), c.InitialState...)
	return c
}

type RunConfig struct {
	PopulationSize  int              `json:"population_size"`
	Generations     int              `json:"generations"`
	Fittest         Fittest          `json:"fittest"`
	WeightedPairing bool             `json:"weighted_pairing"`
	FrontDecay      float64          `json:"front_decay"`
	MutationRate    float64          `json:"mutation_rate"`
	MutationSigma   float64          `json:"mutation_sigma"`
	Workers         int              `json:"workers"`
	EvalTimeoutMS   int64            `json:"eval_timeout_ms"`
	Seed            int64            `json:"seed"`
	Controller      ControllerConfig `json:"controller"`
}

// FitnessTensor holds every recorded fitness vector, indexed
// [generation][individual][objective]. Generations are append-only.
type FitnessTensor struct {
	Generations [][][]float64 `json:"generations"`
}

func (t *FitnessTensor) Append(matrix [][]float64) {
	t.Generations = append(t.Generations, matrix)
}

// Generation returns the fitness matrix of a 1-based generation index.
func (t *FitnessTensor) Generation(g int) ([][]float64, bool) {
	if g < 1 || g > len(t.Generations) {
		return nil, false
	}
	return t.Generations[g-1], true
}

func (t *FitnessTensor) Len() int {
	return len(t.Generations)
}

// RunState is the full persisted state of a run: the current genome matrix,
// the append-only fitness tensor and the progress counter (index of the
// last fully evaluated generation, 0 when none). The episode rides along so
// a resumed run replays the same dynamics it was started with.
type RunState struct {
	VersionedRecord
	RunID    string        `json:"run_id"`
	Spec     GeneSpec      `json:"spec"`
	Config   RunConfig     `json:"config"`
	Episode  EpisodeConfig `json:"episode"`
	Genomes  []Genome      `json:"genomes"`
	Fitness  FitnessTensor `json:"fitness"`
	Progress int           `json:"progress"`
}

type RunSummary struct {
	VersionedRecord
	RunID          string   `json:"run_id"`
	CreatedAtUTC   string   `json:"created_at_utc"`
	ControllerKind string   `json:"controller_kind"`
	PopulationSize int      `json:"population_size"`
	Generations    int      `json:"generations"`
	Progress       int      `json:"progress"`
	Objectives     []string `json:"objectives"`
	BestScoreSum   float64  `json:"best_score_sum"`
}
