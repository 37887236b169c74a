package model

import "fmt"

// Core problem types. An Instance is read once and never mutated afterwards.

type CacheLink struct {
	Cache   int   `json:"cache"`
	Latency int64 `json:"latency"`
}

type Endpoint struct {
	DatacenterLatency int64       `json:"datacenterLatency"`
	Links             []CacheLink `json:"caches"` // input order is significant for tie-breaks

	lat  map[int]int64
	uniq []CacheLink
}

// Latency returns the latency from the endpoint to cache c and whether the
// cache is reachable at all.
func (e *Endpoint) Latency(c int) (int64, bool) {
	if e.lat != nil {
		l, ok := e.lat[c]
		return l, ok
	}
	l, ok := int64(0), false
	for _, ln := range e.Links {
		if ln.Cache == c {
			l, ok = ln.Latency, true
		}
	}
	return l, ok
}

// CacheLinks lists each linked cache once, in first-seen order, with the last
// latency given for it.
func (e *Endpoint) CacheLinks() []CacheLink {
	if e.lat != nil {
		return e.uniq
	}
	return dedupLinks(e.Links)
}

// MinLatency is the best latency any linked cache offers, or the datacenter
// latency when the endpoint has no caches.
func (e *Endpoint) MinLatency() int64 {
	links := e.CacheLinks()
	if len(links) == 0 {
		return e.DatacenterLatency
	}
	min := links[0].Latency
	for _, ln := range links[1:] {
		if ln.Latency < min {
			min = ln.Latency
		}
	}
	return min
}

func dedupLinks(links []CacheLink) []CacheLink {
	pos := make(map[int]int, len(links))
	out := make([]CacheLink, 0, len(links))
	for _, ln := range links {
		if i, ok := pos[ln.Cache]; ok {
			out[i].Latency = ln.Latency
			continue
		}
		pos[ln.Cache] = len(out)
		out = append(out, ln)
	}
	return out
}

type Request struct {
	Video    int   `json:"video"`
	Endpoint int   `json:"endpoint"`
	Count    int64 `json:"count"`
}

type Instance struct {
	Name          string     `json:"name,omitempty"`
	VideoSizes    []int64    `json:"videoSizes"`
	Endpoints     []Endpoint `json:"endpoints"`
	Requests      []Request  `json:"requests"`
	CacheCount    int        `json:"cacheCount"`
	CacheCapacity int64      `json:"cacheCapacity"`
}

// Index builds the per-endpoint latency lookups. Codecs call it once after
// decoding; a duplicated link keeps the last latency seen.
func (in *Instance) Index() {
	for i := range in.Endpoints {
		ep := &in.Endpoints[i]
		ep.uniq = dedupLinks(ep.Links)
		ep.lat = make(map[int]int64, len(ep.uniq))
		for _, ln := range ep.uniq {
			ep.lat[ln.Cache] = ln.Latency
		}
	}
}

// Upper bounds accepted by CheckBounds. They sit well above the largest
// published instances and keep allocations proportional to the input.
const (
	MaxVideos    = 1 << 20
	MaxEndpoints = 1 << 20
	MaxRequests  = 1 << 24
	MaxCaches    = 1 << 16
	MaxLinks     = MaxCaches
)

// CheckBounds reports counts that are negative or too large to optimize.
// Codecs call it before Index so that an absurd instance fails to decode
// instead of exhausting memory later.
func (in *Instance) CheckBounds() error {
	switch {
	case in.CacheCount < 0 || in.CacheCount > MaxCaches:
		return fmt.Errorf("cache count %d outside [0, %d]", in.CacheCount, MaxCaches)
	case len(in.VideoSizes) > MaxVideos:
		return fmt.Errorf("video count %d exceeds %d", len(in.VideoSizes), MaxVideos)
	case len(in.Endpoints) > MaxEndpoints:
		return fmt.Errorf("endpoint count %d exceeds %d", len(in.Endpoints), MaxEndpoints)
	case len(in.Requests) > MaxRequests:
		return fmt.Errorf("request count %d exceeds %d", len(in.Requests), MaxRequests)
	}
	for i, ep := range in.Endpoints {
		if len(ep.Links) > MaxLinks {
			return fmt.Errorf("endpoint %d has %d cache links, more than %d", i, len(ep.Links), MaxLinks)
		}
	}
	return nil
}

func (in *Instance) VideoCount() int { return len(in.VideoSizes) }

// ValidVideo reports whether v names a video of this instance.
func (in *Instance) ValidVideo(v int) bool { return v >= 0 && v < len(in.VideoSizes) }

// ValidEndpoint reports whether e names an endpoint of this instance.
func (in *Instance) ValidEndpoint(e int) bool { return e >= 0 && e < len(in.Endpoints) }

// ValidCache reports whether c names a cache of this instance.
func (in *Instance) ValidCache(c int) bool { return c >= 0 && c < in.CacheCount }

// TotalRequests sums the count of every request description.
func (in *Instance) TotalRequests() int64 {
	var n int64
	for _, r := range in.Requests {
		n += r.Count
	}
	return n
}

// DemandByVideo returns the total request count per video. Requests naming
// unknown videos are ignored.
func (in *Instance) DemandByVideo() []int64 {
	out := make([]int64, len(in.VideoSizes))
	for _, r := range in.Requests {
		if in.ValidVideo(r.Video) {
			out[r.Video] += r.Count
		}
	}
	return out
}

// RequestsByVideo groups request indices by video, preserving input order.
func (in *Instance) RequestsByVideo() [][]int {
	out := make([][]int, len(in.VideoSizes))
	for i, r := range in.Requests {
		if in.ValidVideo(r.Video) {
			out[r.Video] = append(out[r.Video], i)
		}
	}
	return out
}
