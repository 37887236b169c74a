package api

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"cacheplan/internal/opt"
)

// optimizeOverrides are the per-request knobs layered over the effective
// optimizer configuration.
type optimizeOverrides struct {
	Heuristics []string  `json:"heuristics,omitempty"`
	Iterations *int      `json:"iterations,omitempty"`
	Strength   *int      `json:"strength,omitempty"`
	Seed       *int64    `json:"seed,omitempty"`
	Weights    []float64 `json:"operatorWeights,omitempty"`
}

// overridesFromQuery reads heuristics=a,b&iterations=&strength=&seed=.
func overridesFromQuery(q url.Values) (optimizeOverrides, error) {
	var o optimizeOverrides
	if v := q.Get("heuristics"); v != "" {
		for _, h := range strings.Split(v, ",") {
			if h = strings.TrimSpace(h); h != "" {
				o.Heuristics = append(o.Heuristics, h)
			}
		}
	}
	for name, dst := range map[string]**int{"iterations": &o.Iterations, "strength": &o.Strength} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return o, fmt.Errorf("%s must be an integer", name)
			}
			*dst = &n
		}
	}
	if v := q.Get("seed"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return o, fmt.Errorf("seed must be an integer")
		}
		o.Seed = &n
	}
	return o, nil
}

// merge lets fields set in other win over o.
func (o optimizeOverrides) merge(other optimizeOverrides) optimizeOverrides {
	if len(other.Heuristics) > 0 {
		o.Heuristics = other.Heuristics
	}
	if other.Iterations != nil {
		o.Iterations = other.Iterations
	}
	if other.Strength != nil {
		o.Strength = other.Strength
	}
	if other.Seed != nil {
		o.Seed = other.Seed
	}
	if len(other.Weights) > 0 {
		o.Weights = other.Weights
	}
	return o
}

// apply returns cfg with the overrides set and validated.
func (o optimizeOverrides) apply(cfg opt.Config) (opt.Config, error) {
	if len(o.Heuristics) > 0 {
		hs := make([]opt.Heuristic, 0, len(o.Heuristics))
		for _, name := range o.Heuristics {
			h, err := opt.ParseHeuristic(name)
			if err != nil {
				return cfg, err
			}
			hs = append(hs, h)
		}
		cfg.Heuristics = hs
	}
	if o.Iterations != nil {
		cfg.IterationBudget = *o.Iterations
	}
	if o.Strength != nil {
		cfg.PerturbationStrength = *o.Strength
	}
	if o.Seed != nil {
		cfg.RandomSeed = *o.Seed
	}
	if len(o.Weights) > 0 {
		cfg.OperatorWeights = o.Weights
	}
	if cfg.IterationBudget > maxIterations {
		return cfg, fmt.Errorf("iterations must be <= %d", maxIterations)
	}
	return cfg, cfg.Validate()
}

const maxIterations = 1_000_000

// overlayConfig decodes a stored overlay map on top of base.
func overlayConfig(base opt.Config, overlay map[string]any) (opt.Config, error) {
	if len(overlay) == 0 {
		return base, nil
	}
	raw, err := json.Marshal(overlay)
	if err != nil {
		return base, err
	}
	cfg := base
	cfg.Heuristics = append([]opt.Heuristic(nil), base.Heuristics...)
	cfg.OperatorWeights = append([]float64(nil), base.OperatorWeights...)
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return base, fmt.Errorf("invalid optimizer config: %w", err)
	}
	for i, h := range cfg.Heuristics {
		p, err := opt.ParseHeuristic(string(h))
		if err != nil {
			return base, err
		}
		cfg.Heuristics[i] = p
	}
	return cfg, cfg.Validate()
}
