package opt

import (
	"fmt"
	"math/rand"

	"cacheplan/internal/model"
)

const (
	DefaultIterationBudget      = 10
	DefaultPerturbationStrength = 3
	DefaultRandomSeed           = 1
)

// Config selects the construction heuristics and tunes the local search.
type Config struct {
	Heuristics           []Heuristic `json:"heuristics" yaml:"heuristics"`
	IterationBudget      int         `json:"iterationBudget" yaml:"iterationBudget"`
	PerturbationStrength int         `json:"perturbationStrength" yaml:"perturbationStrength"`
	RandomSeed           int64       `json:"randomSeed" yaml:"randomSeed"`
	OperatorWeights      []float64   `json:"operatorWeights,omitempty" yaml:"operatorWeights,omitempty"` // [perturb, swap]
}

func DefaultConfig() Config {
	return Config{
		Heuristics:           []Heuristic{SmallestFirst, ImpactDensity, MultiFactor},
		IterationBudget:      DefaultIterationBudget,
		PerturbationStrength: DefaultPerturbationStrength,
		RandomSeed:           DefaultRandomSeed,
		OperatorWeights:      []float64{1, 1},
	}
}

// Validate rejects configurations the optimizer cannot run.
func (c Config) Validate() error {
	if len(c.Heuristics) == 0 {
		return fmt.Errorf("at least one heuristic is required")
	}
	for _, h := range c.Heuristics {
		if _, ok := builders[h]; !ok {
			return fmt.Errorf("unknown heuristic: %s", h)
		}
	}
	if c.IterationBudget <= 0 {
		return fmt.Errorf("iterationBudget must be > 0")
	}
	if c.PerturbationStrength <= 0 {
		return fmt.Errorf("perturbationStrength must be > 0")
	}
	if len(c.OperatorWeights) > 0 {
		if len(c.OperatorWeights) != 2 {
			return fmt.Errorf("operatorWeights must have length 2")
		}
		if c.OperatorWeights[0] < 0 || c.OperatorWeights[1] < 0 || c.OperatorWeights[0]+c.OperatorWeights[1] == 0 {
			return fmt.Errorf("operatorWeights must be >= 0 with a positive sum")
		}
	}
	return nil
}

// HeuristicResult is the diagnostic comparison row for one heuristic.
type HeuristicResult struct {
	Heuristic Heuristic
	Score     int64
	Report    Report
	Placed    int
}

type Result struct {
	Assignment    model.Assignment
	Score         int64
	Report        Report
	SeedHeuristic Heuristic
	Heuristics    []HeuristicResult
	Search        Metrics
}

// Optimize builds every configured heuristic, seeds the local search with the
// best feasible construction and returns the final incumbent. Data anomalies
// never fail the call; they surface in Result.Report.
func Optimize(in *model.Instance, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	var res Result
	seed, seedFeasible := -1, false
	for i, h := range cfg.Heuristics {
		a := h.Build(in)
		hr := HeuristicResult{Heuristic: h, Score: Score(in, a), Report: Validate(in, a), Placed: a.Placed()}
		res.Heuristics = append(res.Heuristics, hr)
		better := seed < 0 ||
			(hr.Report.Valid && !seedFeasible) ||
			(hr.Report.Valid == seedFeasible && hr.Score > res.Heuristics[seed].Score)
		if better {
			seed, seedFeasible = i, hr.Report.Valid
			res.Assignment = a
		}
	}
	res.SeedHeuristic = cfg.Heuristics[seed]

	opts := EngineOptions{Strength: cfg.PerturbationStrength}
	if len(cfg.OperatorWeights) == 2 {
		opts.OperatorWeights = [2]float64{cfg.OperatorWeights[0], cfg.OperatorWeights[1]}
	}
	eng := NewEngine(in, rand.New(rand.NewSource(cfg.RandomSeed)), opts)
	eng.Seed(res.Assignment)
	res.Assignment, res.Score = eng.Run(cfg.IterationBudget)
	res.Search = eng.Metrics()
	res.Report = Validate(in, res.Assignment)
	return res, nil
}

// Comparison flattens the heuristic rows for persistence and reporting.
func (r Result) Comparison() []model.HeuristicScore {
	out := make([]model.HeuristicScore, 0, len(r.Heuristics))
	for _, h := range r.Heuristics {
		out = append(out, model.HeuristicScore{Heuristic: string(h.Heuristic), Score: h.Score, Valid: h.Report.Valid, Placed: h.Placed})
	}
	return out
}

// HeuristicScore returns the construction score of h, if it ran.
func (r Result) HeuristicScore(h Heuristic) (int64, bool) {
	for _, hr := range r.Heuristics {
		if hr.Heuristic == h {
			return hr.Score, true
		}
	}
	return 0, false
}

// Run converts the result into its persisted form.
func (r Result) Run(name string, seed int64) model.Run {
	return model.Run{
		Name:            name,
		Score:           r.Score,
		SeedHeuristic:   string(r.SeedHeuristic),
		Seed:            seed,
		Valid:           r.Report.Valid,
		Diagnostics:     r.Report.Diagnostics,
		HeuristicScores: r.Comparison(),
		Iterations:      r.Search.Iterations,
		Improvements:    r.Search.Improvements,
		Assignment:      r.Assignment,
	}
}
