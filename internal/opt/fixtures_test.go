package opt

import (
	"math/rand"

	"cacheplan/internal/model"
)

// scenario: five videos, two endpoints, three caches of 100 MB.
func scenario() *model.Instance {
	in := &model.Instance{
		Name:          "scenario",
		VideoSizes:    []int64{50, 50, 80, 30, 110},
		CacheCount:    3,
		CacheCapacity: 100,
		Endpoints: []model.Endpoint{
			{DatacenterLatency: 1000, Links: []model.CacheLink{{Cache: 0, Latency: 100}, {Cache: 2, Latency: 200}, {Cache: 1, Latency: 300}}},
			{DatacenterLatency: 500},
		},
		Requests: []model.Request{
			{Video: 3, Endpoint: 0, Count: 1500},
			{Video: 0, Endpoint: 1, Count: 1000},
			{Video: 4, Endpoint: 0, Count: 500},
			{Video: 1, Endpoint: 0, Count: 1000},
		},
	}
	in.Index()
	return in
}

// randomInstance builds a dense instance for property checks.
func randomInstance(seed int64) *model.Instance {
	rng := rand.New(rand.NewSource(seed))
	in := &model.Instance{CacheCount: 4 + rng.Intn(4), CacheCapacity: 100}
	nv := 30 + rng.Intn(30)
	for v := 0; v < nv; v++ {
		in.VideoSizes = append(in.VideoSizes, int64(1+rng.Intn(60)))
	}
	for e := 0; e < 6; e++ {
		ep := model.Endpoint{DatacenterLatency: int64(500 + rng.Intn(1000))}
		for _, c := range rng.Perm(in.CacheCount)[:1+rng.Intn(in.CacheCount)] {
			ep.Links = append(ep.Links, model.CacheLink{Cache: c, Latency: int64(1 + rng.Intn(600))})
		}
		in.Endpoints = append(in.Endpoints, ep)
	}
	for r := 0; r < 80; r++ {
		in.Requests = append(in.Requests, model.Request{Video: rng.Intn(nv), Endpoint: rng.Intn(len(in.Endpoints)), Count: int64(1 + rng.Intn(2000))})
	}
	in.Index()
	return in
}

func assignmentOf(in *model.Instance, caches map[int][]int) model.Assignment {
	a := model.NewAssignment(in)
	for c, vs := range caches {
		for _, v := range vs {
			a.Place(c, v, in.VideoSizes[v])
		}
	}
	return a
}
