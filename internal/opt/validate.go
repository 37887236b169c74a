package opt

import (
	"fmt"

	"cacheplan/internal/model"
)

// Diagnostic kinds reported by Validate.
const (
	DiagNegativeSize      = "negative_size"
	DiagNegativeRemaining = "negative_remaining"
	DiagOverCapacity      = "over_capacity"
	DiagDuplicateVideo    = "duplicate_video"
	DiagVideoOutOfRange   = "video_out_of_range"
	DiagCacheOutOfRange   = "cache_out_of_range"
	DiagBadRequest        = "request_out_of_range"
	DiagBadLink           = "link_out_of_range"
)

// Report is the validator verdict.
type Report struct {
	Valid       bool               `json:"valid"`
	Diagnostics []model.Diagnostic `json:"diagnostics,omitempty"`
}

// Validate certifies an assignment against the hard constraints. Every check
// runs so that all violations are reported.
func Validate(in *model.Instance, a model.Assignment) Report {
	var diags []model.Diagnostic
	add := func(kind string, cache, video int, format string, args ...any) {
		diags = append(diags, model.Diagnostic{Kind: kind, Cache: cache, Video: video, Message: fmt.Sprintf(format, args...)})
	}

	for v, size := range in.VideoSizes {
		if size < 0 {
			add(DiagNegativeSize, -1, v, "video %d has negative size %d", v, size)
		}
	}
	for i, r := range in.Requests {
		if !in.ValidVideo(r.Video) || !in.ValidEndpoint(r.Endpoint) {
			add(DiagBadRequest, -1, r.Video, "request %d references video %d via endpoint %d", i, r.Video, r.Endpoint)
		}
	}
	for e := range in.Endpoints {
		for _, ln := range in.Endpoints[e].Links {
			if !in.ValidCache(ln.Cache) {
				add(DiagBadLink, ln.Cache, -1, "endpoint %d links unknown cache %d", e, ln.Cache)
			}
		}
	}

	for c, cs := range a.Caches {
		if cs.Remaining < 0 {
			add(DiagNegativeRemaining, c, -1, "cache %d remaining capacity is negative (%d)", c, cs.Remaining)
		}
	}

	for c, cs := range a.Caches {
		var load int64
		for _, v := range cs.Videos {
			if in.ValidVideo(v) {
				load += in.VideoSizes[v]
			}
		}
		if load > in.CacheCapacity {
			add(DiagOverCapacity, c, -1, "cache %d exceeds capacity: %d/%d MB", c, load, in.CacheCapacity)
		}
	}

	seen := map[int]int{}
	for c, cs := range a.Caches {
		for _, v := range cs.Videos {
			if first, dup := seen[v]; dup {
				add(DiagDuplicateVideo, c, v, "video %d appears in cache %d and cache %d", v, first, c)
				continue
			}
			seen[v] = c
		}
	}

	for c, cs := range a.Caches {
		for _, v := range cs.Videos {
			if !in.ValidVideo(v) {
				add(DiagVideoOutOfRange, c, v, "invalid video id %d in cache %d", v, c)
			}
		}
	}

	for c := in.CacheCount; c < len(a.Caches); c++ {
		if len(a.Caches[c].Videos) > 0 {
			add(DiagCacheOutOfRange, c, -1, "cache id %d outside [0,%d)", c, in.CacheCount)
		}
	}

	return Report{Valid: len(diags) == 0, Diagnostics: diags}
}
