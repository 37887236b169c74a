package model

import "sort"

// CacheState is the content of one cache. Videos is kept in ascending order so
// that random picks are reproducible for a fixed seed.
type CacheState struct {
	Videos    []int `json:"videos"`
	Remaining int64 `json:"remaining"`
}

// Assignment maps cache id (slice index) to the videos stored there.
type Assignment struct {
	Caches []CacheState `json:"caches"`
}

// NewAssignment returns an empty assignment with every cache at full capacity.
func NewAssignment(in *Instance) Assignment {
	a := Assignment{Caches: make([]CacheState, in.CacheCount)}
	for i := range a.Caches {
		a.Caches[i].Remaining = in.CacheCapacity
	}
	return a
}

// Clone returns a deep copy; mutating the copy never touches a.
func (a Assignment) Clone() Assignment {
	out := Assignment{Caches: make([]CacheState, len(a.Caches))}
	for i, c := range a.Caches {
		out.Caches[i] = CacheState{Videos: append([]int(nil), c.Videos...), Remaining: c.Remaining}
	}
	return out
}

// Fits reports whether a video of the given size fits in cache c.
func (a Assignment) Fits(c int, size int64) bool {
	return c >= 0 && c < len(a.Caches) && size <= a.Caches[c].Remaining
}

// Place stores video v in cache c and charges its size. Callers check Fits.
func (a Assignment) Place(c, v int, size int64) {
	cs := &a.Caches[c]
	i := sort.SearchInts(cs.Videos, v)
	cs.Videos = append(cs.Videos, 0)
	copy(cs.Videos[i+1:], cs.Videos[i:])
	cs.Videos[i] = v
	cs.Remaining -= size
}

// Evict removes the idx-th video of cache c, returns its capacity and the
// video id.
func (a Assignment) Evict(c, idx int, size int64) int {
	cs := &a.Caches[c]
	v := cs.Videos[idx]
	cs.Videos = append(cs.Videos[:idx], cs.Videos[idx+1:]...)
	cs.Remaining += size
	return v
}

// Holds reports whether cache c stores video v.
func (a Assignment) Holds(c, v int) bool {
	if c < 0 || c >= len(a.Caches) {
		return false
	}
	vs := a.Caches[c].Videos
	i := sort.SearchInts(vs, v)
	return i < len(vs) && vs[i] == v
}

// Placed counts stored videos over all caches.
func (a Assignment) Placed() int {
	n := 0
	for _, c := range a.Caches {
		n += len(c.Videos)
	}
	return n
}

// UsedCaches lists, ascending, the ids of caches holding at least one video.
func (a Assignment) UsedCaches() []int {
	out := []int{}
	for i, c := range a.Caches {
		if len(c.Videos) > 0 {
			out = append(out, i)
		}
	}
	return out
}

// CacheOf indexes video id -> caches storing it.
func (a Assignment) CacheOf() map[int][]int {
	out := map[int][]int{}
	for ci, c := range a.Caches {
		for _, v := range c.Videos {
			out[v] = append(out[v], ci)
		}
	}
	return out
}
