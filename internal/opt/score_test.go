package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cacheplan/internal/model"
)

func TestScoreSingleRequest(t *testing.T) {
	in := scenario()
	in.Requests = in.Requests[:1]
	a := assignmentOf(in, map[int][]int{0: {3, 0}, 1: {2}, 2: {1}})
	// (1000-100)*1500*1000/1500
	assert.Equal(t, int64(900000), Score(in, a))
}

func TestScoreAllRequests(t *testing.T) {
	in := scenario()
	a := assignmentOf(in, map[int][]int{0: {0, 3}, 1: {1}, 2: {2}})
	// saved = 900*1500 + 700*1000 = 2,050,000 over 4000 requests
	assert.Equal(t, int64(512500), Score(in, a))
}

func TestScoreEmptyAssignment(t *testing.T) {
	in := scenario()
	assert.Equal(t, int64(0), Score(in, model.NewAssignment(in)))
}

func TestScoreZeroRequests(t *testing.T) {
	in := scenario()
	in.Requests = nil
	a := assignmentOf(in, map[int][]int{0: {3}})
	assert.Equal(t, int64(0), Score(in, a))
}

func TestScoreClampsSlowCaches(t *testing.T) {
	in := &model.Instance{
		VideoSizes:    []int64{10},
		CacheCount:    1,
		CacheCapacity: 10,
		Endpoints:     []model.Endpoint{{DatacenterLatency: 100, Links: []model.CacheLink{{Cache: 0, Latency: 400}}}},
		Requests:      []model.Request{{Video: 0, Endpoint: 0, Count: 7}},
	}
	in.Index()
	a := assignmentOf(in, map[int][]int{0: {0}})
	assert.Equal(t, int64(0), Score(in, a))
}

func TestScoreFloors(t *testing.T) {
	in := &model.Instance{
		VideoSizes:    []int64{1},
		CacheCount:    1,
		CacheCapacity: 1,
		Endpoints:     []model.Endpoint{{DatacenterLatency: 2, Links: []model.CacheLink{{Cache: 0, Latency: 1}}}, {DatacenterLatency: 2}},
		Requests:      []model.Request{{Video: 0, Endpoint: 0, Count: 1}, {Video: 0, Endpoint: 1, Count: 2}},
	}
	in.Index()
	a := assignmentOf(in, map[int][]int{0: {0}})
	// 1*1000/3 = 333.33
	assert.Equal(t, int64(333), Score(in, a))
}

func TestScoreIgnoresUnknownEndpoint(t *testing.T) {
	in := scenario()
	in.Requests = append(in.Requests, model.Request{Video: 3, Endpoint: 9, Count: 1000})
	a := assignmentOf(in, map[int][]int{0: {0, 3}, 1: {1}, 2: {2}})
	// same savings, 5000 requests
	assert.Equal(t, int64(410000), Score(in, a))
}

func TestScoreNeverNegative(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		in := randomInstance(seed)
		for _, h := range Heuristics() {
			assert.GreaterOrEqual(t, Score(in, h.Build(in)), int64(0), "seed %d %s", seed, h)
		}
	}
}
