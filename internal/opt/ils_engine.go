package opt

import (
	"math/rand"

	"cacheplan/internal/model"
)

// State of the local search engine.
type State int

const (
	Seeded State = iota
	Iterating
	Terminated
)

func (s State) String() string {
	switch s {
	case Seeded:
		return "seeded"
	case Iterating:
		return "iterating"
	case Terminated:
		return "terminated"
	}
	return "unknown"
}

// Operator indices, also used for Metrics.OperatorSelects.
const (
	OpPerturb = iota
	OpSwap
)

// OperatorName labels an operator index for logs and metrics.
func OperatorName(op int) string {
	switch op {
	case OpPerturb:
		return "perturb"
	case OpSwap:
		return "swap"
	}
	return "unknown"
}

type EngineOptions struct {
	Strength        int        // perturbation repetitions k
	OperatorWeights [2]float64 // [perturb, swap]
}

type Metrics struct {
	OperatorSelects [2]int          `json:"operatorSelects"` // perturb, swap
	Iterations      int             `json:"iterations"`
	Improvements    int             `json:"improvements"`
	SeedScore       int64           `json:"seedScore"`
	BestScore       int64           `json:"bestScore"`
	Snapshots       []ScoreSnapshot `json:"snapshots,omitempty"`
}

// ScoreSnapshot records the incumbent score after an accepted candidate.
type ScoreSnapshot struct {
	Iteration int   `json:"iteration"`
	Operator  int   `json:"operator"`
	Score     int64 `json:"score"`
}

// Engine is an iterated local search over one incumbent assignment. It
// accepts only strictly improving candidates.
type Engine struct {
	in    *model.Instance
	rng   *rand.Rand
	opts  EngineOptions
	state State

	incumbent model.Assignment
	score     int64
	m         Metrics
}

// NewEngine returns an engine drawing all randomness from rng.
func NewEngine(in *model.Instance, rng *rand.Rand, opts EngineOptions) *Engine {
	if opts.Strength <= 0 {
		opts.Strength = DefaultPerturbationStrength
	}
	if opts.OperatorWeights[0] <= 0 && opts.OperatorWeights[1] <= 0 {
		opts.OperatorWeights = [2]float64{1, 1}
	}
	return &Engine{in: in, rng: rng, opts: opts}
}

// Seed installs the initial incumbent. The engine keeps its own copy.
func (e *Engine) Seed(a model.Assignment) {
	e.incumbent = a.Clone()
	e.score = Score(e.in, e.incumbent)
	e.state = Seeded
	e.m = Metrics{SeedScore: e.score, BestScore: e.score}
}

func (e *Engine) State() State { return e.state }

// Incumbent returns a copy of the best assignment found and its score.
func (e *Engine) Incumbent() (model.Assignment, int64) { return e.incumbent.Clone(), e.score }

func (e *Engine) Metrics() Metrics { return e.m }

// Step runs one iteration and reports whether the incumbent improved. A
// terminated engine does nothing.
func (e *Engine) Step() bool {
	if e.state == Terminated {
		return false
	}
	e.state = Iterating
	e.m.Iterations++
	op := selectOp(e.opts.OperatorWeights[:], e.rng)
	e.m.OperatorSelects[op]++
	cand := e.incumbent.Clone()
	switch op {
	case OpPerturb:
		e.perturb(cand)
	case OpSwap:
		e.swapNeighbor(cand)
	}
	s := Score(e.in, cand)
	if s <= e.score {
		return false
	}
	e.incumbent, e.score = cand, s
	e.m.Improvements++
	e.m.BestScore = s
	e.m.Snapshots = append(e.m.Snapshots, ScoreSnapshot{Iteration: e.m.Iterations, Operator: op, Score: s})
	return true
}

// Run performs budget iterations and terminates the engine.
func (e *Engine) Run(budget int) (model.Assignment, int64) {
	for i := 0; i < budget && e.state != Terminated; i++ {
		e.Step()
	}
	e.state = Terminated
	return e.Incumbent()
}

// perturb relocates up to k random placements to another cache chosen by a
// random permutation, first-fit; a video nobody accepts is dropped.
func (e *Engine) perturb(a model.Assignment) {
	n := len(a.Caches)
	if n == 0 {
		return
	}
	for i := 0; i < e.opts.Strength; i++ {
		from := e.rng.Intn(n)
		vs := a.Caches[from].Videos
		if len(vs) == 0 {
			continue
		}
		idx := e.rng.Intn(len(vs))
		size := e.in.VideoSizes[vs[idx]]
		v := a.Evict(from, idx, size)
		for _, to := range e.rng.Perm(n) {
			if to != from && a.Fits(to, size) {
				a.Place(to, v, size)
				break
			}
		}
	}
}

// swapNeighbor exchanges one random video between two distinct random caches
// when both stay within capacity; otherwise a is left untouched.
func (e *Engine) swapNeighbor(a model.Assignment) {
	n := len(a.Caches)
	if n < 2 {
		return
	}
	ca := e.rng.Intn(n)
	cb := e.rng.Intn(n - 1)
	if cb >= ca {
		cb++
	}
	va, vb := a.Caches[ca].Videos, a.Caches[cb].Videos
	if len(va) == 0 || len(vb) == 0 {
		return
	}
	ia, ib := e.rng.Intn(len(va)), e.rng.Intn(len(vb))
	sa, sb := e.in.VideoSizes[va[ia]], e.in.VideoSizes[vb[ib]]
	if a.Caches[ca].Remaining+sa-sb < 0 || a.Caches[cb].Remaining+sb-sa < 0 {
		return
	}
	x := a.Evict(ca, ia, sa)
	y := a.Evict(cb, ib, sb)
	a.Place(ca, y, sb)
	a.Place(cb, x, sa)
}

func selectOp(weights []float64, rng *rand.Rand) int {
	sum := 0.0
	for _, w := range weights {
		if w > 0 {
			sum += w
		}
	}
	if sum <= 0 {
		return 0
	}
	r := rng.Float64() * sum
	acc := 0.0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		acc += w
		if r < acc {
			return i
		}
	}
	return len(weights) - 1
}
