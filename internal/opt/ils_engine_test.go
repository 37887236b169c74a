package opt

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cacheplan/internal/model"
)

func TestEngineStates(t *testing.T) {
	in := scenario()
	e := NewEngine(in, rand.New(rand.NewSource(3)), EngineOptions{})
	e.Seed(SmallestFirst.Build(in))
	assert.Equal(t, Seeded, e.State())
	assert.Equal(t, int64(512500), e.Metrics().SeedScore)

	e.Step()
	assert.Equal(t, Iterating, e.State())

	_, _ = e.Run(4)
	assert.Equal(t, Terminated, e.State())
	assert.Equal(t, 5, e.Metrics().Iterations)

	assert.False(t, e.Step())
	assert.Equal(t, 5, e.Metrics().Iterations, "terminated engine does not resume")
}

func TestEngineMonotonic(t *testing.T) {
	for seed := int64(1); seed <= 15; seed++ {
		in := randomInstance(seed)
		e := NewEngine(in, rand.New(rand.NewSource(seed)), EngineOptions{Strength: 3})
		e.Seed(LargestFirst.Build(in))
		_, prev := e.Incumbent()
		for i := 0; i < 60; i++ {
			e.Step()
			a, s := e.Incumbent()
			require.GreaterOrEqual(t, s, prev, "seed %d iteration %d", seed, i)
			require.Equal(t, s, Score(in, a))
			require.True(t, Validate(in, a).Valid, "seed %d iteration %d", seed, i)
			prev = s
		}
		m := e.Metrics()
		assert.Equal(t, 60, m.OperatorSelects[OpPerturb]+m.OperatorSelects[OpSwap])
		assert.Len(t, m.Snapshots, m.Improvements)
		assert.Equal(t, prev, m.BestScore)
	}
}

func TestEngineSeedIsCopied(t *testing.T) {
	in := randomInstance(7)
	seed := SmallestFirst.Build(in)
	before := seed.Clone()
	e := NewEngine(in, rand.New(rand.NewSource(1)), EngineOptions{})
	e.Seed(seed)
	e.Run(50)
	assert.Equal(t, before, seed)
}

func TestEngineDeterministic(t *testing.T) {
	in := randomInstance(11)
	run := func() (model.Assignment, int64, Metrics) {
		e := NewEngine(in, rand.New(rand.NewSource(42)), EngineOptions{Strength: 2})
		e.Seed(ImpactDensity.Build(in))
		a, s := e.Run(40)
		return a, s, e.Metrics()
	}
	a1, s1, m1 := run()
	a2, s2, m2 := run()
	assert.Equal(t, a1, a2)
	assert.Equal(t, s1, s2)
	assert.Equal(t, m1, m2)
}

func TestSwapNeighborInfeasibleIsNoop(t *testing.T) {
	in := &model.Instance{VideoSizes: []int64{30, 100, 70}, CacheCount: 2, CacheCapacity: 100}
	a := assignmentOf(in, map[int][]int{0: {0, 2}, 1: {1}})
	before := a.Clone()
	e := NewEngine(in, rand.New(rand.NewSource(5)), EngineOptions{})
	for i := 0; i < 10; i++ {
		e.swapNeighbor(a)
	}
	assert.Equal(t, before, a)
}

func TestSwapNeighborExchanges(t *testing.T) {
	in := &model.Instance{VideoSizes: []int64{40, 90}, CacheCount: 2, CacheCapacity: 100}
	a := assignmentOf(in, map[int][]int{0: {0}, 1: {1}})
	e := NewEngine(in, rand.New(rand.NewSource(5)), EngineOptions{})
	e.swapNeighbor(a)
	assert.Equal(t, []int{1}, a.Caches[0].Videos)
	assert.Equal(t, int64(10), a.Caches[0].Remaining)
	assert.Equal(t, []int{0}, a.Caches[1].Videos)
	assert.Equal(t, int64(60), a.Caches[1].Remaining)
}

func TestSwapNeighborEmptyCacheIsNoop(t *testing.T) {
	in := &model.Instance{VideoSizes: []int64{40}, CacheCount: 2, CacheCapacity: 100}
	a := assignmentOf(in, map[int][]int{0: {0}})
	before := a.Clone()
	e := NewEngine(in, rand.New(rand.NewSource(9)), EngineOptions{})
	e.swapNeighbor(a)
	assert.Equal(t, before, a)
}

func TestPerturbDropsWhenNothingFits(t *testing.T) {
	in := &model.Instance{VideoSizes: []int64{10, 10}, CacheCount: 2, CacheCapacity: 10}
	a := assignmentOf(in, map[int][]int{0: {0}, 1: {1}})
	e := NewEngine(in, rand.New(rand.NewSource(1)), EngineOptions{Strength: 1})
	e.perturb(a)
	assert.Equal(t, 1, a.Placed())
	assert.True(t, Validate(in, a).Valid)
	assert.Equal(t, []int64{10, 0}, sortedRemaining(a))
}

func TestPerturbRelocates(t *testing.T) {
	in := &model.Instance{VideoSizes: []int64{10}, CacheCount: 2, CacheCapacity: 100}
	a := assignmentOf(in, map[int][]int{0: {0}})
	e := NewEngine(in, rand.New(rand.NewSource(2)), EngineOptions{Strength: 25})
	e.perturb(a)
	assert.Equal(t, 1, a.Placed(), "a single video always finds the other cache")
	assert.True(t, Validate(in, a).Valid)
}

func TestSelectOp(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		assert.Equal(t, OpSwap, selectOp([]float64{0, 1}, rng))
		assert.Equal(t, OpPerturb, selectOp([]float64{1, 0}, rng))
	}
	assert.Equal(t, 0, selectOp([]float64{0, 0}, rng))
}

func sortedRemaining(a model.Assignment) []int64 {
	out := []int64{}
	for _, c := range a.Caches {
		out = append(out, c.Remaining)
	}
	if len(out) == 2 && out[0] < out[1] {
		out[0], out[1] = out[1], out[0]
	}
	return out
}
