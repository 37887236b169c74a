package opt

import (
	"fmt"
	"sort"
	"strings"

	"cacheplan/internal/model"
)

// Heuristic names a construction rule that builds an initial feasible
// assignment from scratch.
type Heuristic string

const (
	SmallestFirst  Heuristic = "smallest-first"
	LargestFirst   Heuristic = "largest-first"
	ImpactDensity  Heuristic = "impact-density"
	MultiFactor    Heuristic = "multi-factor"
	DemandWeighted Heuristic = "demand-weighted"
)

// BuildFunc constructs an assignment for an instance.
type BuildFunc func(in *model.Instance) model.Assignment

var builders = map[Heuristic]BuildFunc{
	SmallestFirst:  buildSmallestFirst,
	LargestFirst:   buildLargestFirst,
	ImpactDensity:  buildImpactDensity,
	MultiFactor:    buildMultiFactor,
	DemandWeighted: buildDemandWeighted,
}

// Heuristics lists the known heuristics in a stable order.
func Heuristics() []Heuristic {
	return []Heuristic{SmallestFirst, LargestFirst, ImpactDensity, MultiFactor, DemandWeighted}
}

// ParseHeuristic accepts a heuristic name, case-insensitively; "basic" and
// "enhanced" are accepted as aliases for smallest-first and multi-factor.
func ParseHeuristic(s string) (Heuristic, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "basic":
		return SmallestFirst, nil
	case "enhanced":
		return MultiFactor, nil
	}
	h := Heuristic(name)
	if _, ok := builders[h]; !ok {
		return "", fmt.Errorf("unknown heuristic: %s", s)
	}
	return h, nil
}

// Build runs the heuristic. An unknown heuristic yields an empty assignment.
func (h Heuristic) Build(in *model.Instance) model.Assignment {
	if b, ok := builders[h]; ok {
		return b(in)
	}
	return model.NewAssignment(in)
}

func (h Heuristic) String() string { return string(h) }

// firstFit places videos in the given order, each into the first cache with
// enough room. Videos that fit nowhere stay unassigned.
func firstFit(in *model.Instance, order []int) model.Assignment {
	a := model.NewAssignment(in)
	for _, v := range order {
		size := in.VideoSizes[v]
		for c := range a.Caches {
			if a.Fits(c, size) {
				a.Place(c, v, size)
				break
			}
		}
	}
	return a
}

func videoIDs(in *model.Instance) []int {
	ids := make([]int, in.VideoCount())
	for i := range ids {
		ids[i] = i
	}
	return ids
}

func buildSmallestFirst(in *model.Instance) model.Assignment {
	order := videoIDs(in)
	sort.SliceStable(order, func(i, j int) bool { return in.VideoSizes[order[i]] < in.VideoSizes[order[j]] })
	return firstFit(in, order)
}

func buildLargestFirst(in *model.Instance) model.Assignment {
	order := videoIDs(in)
	sort.SliceStable(order, func(i, j int) bool { return in.VideoSizes[order[i]] > in.VideoSizes[order[j]] })
	return firstFit(in, order)
}

// impactOrder sorts videos by descending requests per MB; zero-size videos
// have impact 0.
func impactOrder(in *model.Instance) []int {
	demand := in.DemandByVideo()
	impact := make([]float64, in.VideoCount())
	for v, size := range in.VideoSizes {
		if size > 0 {
			impact[v] = float64(demand[v]) / float64(size)
		}
	}
	order := videoIDs(in)
	sort.SliceStable(order, func(i, j int) bool { return impact[order[i]] > impact[order[j]] })
	return order
}

func buildImpactDensity(in *model.Instance) model.Assignment {
	return firstFit(in, impactOrder(in))
}

type videoStats struct {
	demand    int64
	endpoints []int // ascending
	potential int64
}

// collectStats aggregates demand, requesting endpoints and the latency
// headroom per video.
func collectStats(in *model.Instance) []videoStats {
	stats := make([]videoStats, in.VideoCount())
	seen := make([]map[int]struct{}, in.VideoCount())
	for _, r := range in.Requests {
		if !in.ValidVideo(r.Video) || !in.ValidEndpoint(r.Endpoint) {
			continue
		}
		st := &stats[r.Video]
		st.demand += r.Count
		if seen[r.Video] == nil {
			seen[r.Video] = map[int]struct{}{}
		}
		if _, ok := seen[r.Video][r.Endpoint]; !ok {
			seen[r.Video][r.Endpoint] = struct{}{}
			st.endpoints = append(st.endpoints, r.Endpoint)
		}
		ep := &in.Endpoints[r.Endpoint]
		st.potential += (ep.DatacenterLatency - ep.MinLatency()) * r.Count
	}
	for v := range stats {
		sort.Ints(stats[v].endpoints)
	}
	return stats
}

// buildMultiFactor orders videos by demand, then latency headroom, then size,
// and puts each into the reachable cache with the best latency gain weighted
// by demand per requesting endpoint. It does not fall back to other caches.
func buildMultiFactor(in *model.Instance) model.Assignment {
	stats := collectStats(in)
	order := videoIDs(in)
	sort.SliceStable(order, func(i, j int) bool {
		a, b := stats[order[i]], stats[order[j]]
		if a.demand != b.demand {
			return a.demand > b.demand
		}
		if a.potential != b.potential {
			return a.potential > b.potential
		}
		return in.VideoSizes[order[i]] < in.VideoSizes[order[j]]
	})

	a := model.NewAssignment(in)
	for _, v := range order {
		st := stats[v]
		if len(st.endpoints) == 0 {
			continue
		}
		size := in.VideoSizes[v]
		factor := float64(st.demand) / float64(len(st.endpoints))
		best, bestScore := -1, 0.0
		for _, e := range st.endpoints {
			ep := &in.Endpoints[e]
			for _, ln := range ep.CacheLinks() {
				if !in.ValidCache(ln.Cache) || !a.Fits(ln.Cache, size) {
					continue
				}
				score := float64(ep.DatacenterLatency-ln.Latency) * factor
				if best < 0 || score > bestScore ||
					(score == bestScore && a.Caches[ln.Cache].Remaining > a.Caches[best].Remaining) {
					best, bestScore = ln.Cache, score
				}
			}
		}
		if best >= 0 {
			a.Place(best, v, size)
		}
	}
	return a
}

// buildDemandWeighted follows the impact-density order and tries, for each
// video, the caches with the highest accumulated count*gain first.
func buildDemandWeighted(in *model.Instance) model.Assignment {
	byVideo := in.RequestsByVideo()
	a := model.NewAssignment(in)
	for _, v := range impactOrder(in) {
		var caches []int
		weight := map[int]int64{}
		for _, ri := range byVideo[v] {
			r := in.Requests[ri]
			if !in.ValidEndpoint(r.Endpoint) {
				continue
			}
			ep := &in.Endpoints[r.Endpoint]
			for _, ln := range ep.CacheLinks() {
				gain := ep.DatacenterLatency - ln.Latency
				if gain <= 0 || !in.ValidCache(ln.Cache) {
					continue
				}
				if _, ok := weight[ln.Cache]; !ok {
					caches = append(caches, ln.Cache)
				}
				weight[ln.Cache] += r.Count * gain
			}
		}
		sort.SliceStable(caches, func(i, j int) bool { return weight[caches[i]] > weight[caches[j]] })
		size := in.VideoSizes[v]
		for _, c := range caches {
			if a.Fits(c, size) {
				a.Place(c, v, size)
				break
			}
		}
	}
	return a
}
