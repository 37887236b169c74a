package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cacheplan/internal/model"
)

func videosOf(a model.Assignment) [][]int {
	out := make([][]int, len(a.Caches))
	for i, c := range a.Caches {
		out[i] = append([]int{}, c.Videos...)
	}
	return out
}

func TestHeuristicsOnScenario(t *testing.T) {
	cases := []struct {
		h     Heuristic
		want  [][]int
		score int64
	}{
		{SmallestFirst, [][]int{{0, 3}, {1}, {2}}, 512500},
		{LargestFirst, [][]int{{2}, {0, 1}, {3}}, 475000},
		{ImpactDensity, [][]int{{0, 3}, {1}, {2}}, 512500},
		{MultiFactor, [][]int{{1, 3}, {}, {}}, 562500},
		{DemandWeighted, [][]int{{1, 3}, {}, {}}, 562500},
	}
	in := scenario()
	for _, tc := range cases {
		t.Run(string(tc.h), func(t *testing.T) {
			a := tc.h.Build(in)
			assert.Equal(t, tc.want, videosOf(a))
			assert.Equal(t, tc.score, Score(in, a))
			assert.True(t, Validate(in, a).Valid)
			for _, c := range a.Caches {
				assert.NotContains(t, c.Videos, 4, "video 4 is larger than any cache")
			}
		})
	}
}

func TestHeuristicsKeepRemainingConsistent(t *testing.T) {
	in := scenario()
	a := SmallestFirst.Build(in)
	assert.Equal(t, []int64{20, 50, 20}, []int64{a.Caches[0].Remaining, a.Caches[1].Remaining, a.Caches[2].Remaining})
}

func TestHeuristicsFeasibleOnRandomInstances(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		in := randomInstance(seed)
		for _, h := range Heuristics() {
			a := h.Build(in)
			r := Validate(in, a)
			require.True(t, r.Valid, "seed %d %s: %+v", seed, h, r.Diagnostics)
			for ci, c := range a.Caches {
				var load int64
				for _, v := range c.Videos {
					load += in.VideoSizes[v]
				}
				assert.Equal(t, in.CacheCapacity-load, c.Remaining, "seed %d %s cache %d", seed, h, ci)
			}
		}
	}
}

func TestMultiFactorNoFallback(t *testing.T) {
	// Video 1 is only requested through an endpoint whose single cache is
	// full; an unrelated cache has room but must not be used.
	in := &model.Instance{
		VideoSizes:    []int64{10, 10},
		CacheCount:    2,
		CacheCapacity: 10,
		Endpoints:     []model.Endpoint{{DatacenterLatency: 100, Links: []model.CacheLink{{Cache: 0, Latency: 10}}}},
		Requests:      []model.Request{{Video: 0, Endpoint: 0, Count: 5}, {Video: 1, Endpoint: 0, Count: 3}},
	}
	in.Index()
	a := MultiFactor.Build(in)
	assert.Equal(t, [][]int{{0}, {}}, videosOf(a))

	b := SmallestFirst.Build(in)
	assert.Equal(t, [][]int{{0}, {1}}, videosOf(b))
}

func TestMultiFactorTieBreaksOnRemaining(t *testing.T) {
	in := &model.Instance{
		VideoSizes:    []int64{10, 5},
		CacheCount:    2,
		CacheCapacity: 40,
		Endpoints: []model.Endpoint{{DatacenterLatency: 100, Links: []model.CacheLink{
			{Cache: 0, Latency: 50}, {Cache: 1, Latency: 50},
		}}},
		Requests: []model.Request{{Video: 0, Endpoint: 0, Count: 9}, {Video: 1, Endpoint: 0, Count: 2}},
	}
	in.Index()
	a := MultiFactor.Build(in)
	// video 0 goes to cache 0 (first seen), video 1 to cache 1 (more room)
	assert.Equal(t, [][]int{{0}, {1}}, videosOf(a))
}

func TestDemandWeightedSkipsUngainfulCaches(t *testing.T) {
	in := &model.Instance{
		VideoSizes:    []int64{10},
		CacheCount:    2,
		CacheCapacity: 10,
		Endpoints: []model.Endpoint{{DatacenterLatency: 100, Links: []model.CacheLink{
			{Cache: 0, Latency: 100}, {Cache: 1, Latency: 150},
		}}},
		Requests: []model.Request{{Video: 0, Endpoint: 0, Count: 9}},
	}
	in.Index()
	assert.Equal(t, [][]int{{}, {}}, videosOf(DemandWeighted.Build(in)))
}

func TestImpactDensityZeroSize(t *testing.T) {
	in := &model.Instance{
		VideoSizes:    []int64{0, 10},
		CacheCount:    1,
		CacheCapacity: 10,
		Endpoints:     []model.Endpoint{{DatacenterLatency: 10}},
		Requests:      []model.Request{{Video: 0, Endpoint: 0, Count: 100}, {Video: 1, Endpoint: 0, Count: 1}},
	}
	in.Index()
	order := impactOrder(in)
	assert.Equal(t, []int{1, 0}, order)
}

func TestHeuristicsToleratesMalformedReferences(t *testing.T) {
	in := scenario()
	in.Endpoints[1].Links = []model.CacheLink{{Cache: 42, Latency: 1}}
	in.Requests = append(in.Requests, model.Request{Video: 99, Endpoint: 1, Count: 5}, model.Request{Video: 0, Endpoint: 7, Count: 5})
	in.Index()
	for _, h := range Heuristics() {
		assert.NotPanics(t, func() { h.Build(in) }, h)
	}
}

func TestParseHeuristic(t *testing.T) {
	h, err := ParseHeuristic(" Multi-Factor ")
	require.NoError(t, err)
	assert.Equal(t, MultiFactor, h)
	h, err = ParseHeuristic("basic")
	require.NoError(t, err)
	assert.Equal(t, SmallestFirst, h)
	_, err = ParseHeuristic("simulated-annealing")
	assert.Error(t, err)
	assert.Equal(t, 0, Heuristic("nope").Build(scenario()).Placed())
}
