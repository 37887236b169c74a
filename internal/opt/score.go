package opt

import "cacheplan/internal/model"

// Score returns the request-weighted average time saved versus the
// datacenter, in microseconds (floor of saved*1000/requests). An instance with
// no requests scores 0.
func Score(in *model.Instance, a model.Assignment) int64 {
	holders := a.CacheOf()
	var saved, total int64
	for _, r := range in.Requests {
		total += r.Count
		if !in.ValidEndpoint(r.Endpoint) {
			continue
		}
		ep := &in.Endpoints[r.Endpoint]
		best := ep.DatacenterLatency
		for _, c := range holders[r.Video] {
			if l, ok := ep.Latency(c); ok && l < best {
				best = l
			}
		}
		saved += (ep.DatacenterLatency - best) * r.Count
	}
	if total == 0 {
		return 0
	}
	return floorDiv(saved*1000, total)
}

// floorDiv divides rounding toward negative infinity. Go's / truncates, which
// only differs when a malformed instance carries negative counts.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
