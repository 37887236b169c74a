package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cacheplan/internal/model"
)

func kinds(r Report) []string {
	out := []string{}
	for _, d := range r.Diagnostics {
		out = append(out, d.Kind)
	}
	return out
}

func TestValidateFeasible(t *testing.T) {
	in := scenario()
	r := Validate(in, assignmentOf(in, map[int][]int{0: {0, 3}, 1: {1}, 2: {2}}))
	assert.True(t, r.Valid)
	assert.Empty(t, r.Diagnostics)
}

func TestValidateOverCapacity(t *testing.T) {
	in := scenario()
	a := model.NewAssignment(in)
	a.Caches[1] = model.CacheState{Videos: []int{0, 2}, Remaining: 0}
	r := Validate(in, a)
	require.False(t, r.Valid)
	assert.Equal(t, []string{DiagOverCapacity}, kinds(r))
	assert.Equal(t, 1, r.Diagnostics[0].Cache)
	assert.Contains(t, r.Diagnostics[0].Message, "130/100")
}

func TestValidateNegativeRemaining(t *testing.T) {
	in := scenario()
	a := model.NewAssignment(in)
	a.Caches[2].Remaining = -5
	r := Validate(in, a)
	require.False(t, r.Valid)
	assert.Equal(t, []string{DiagNegativeRemaining}, kinds(r))
	assert.Equal(t, 2, r.Diagnostics[0].Cache)
}

func TestValidateDuplicateVideo(t *testing.T) {
	in := scenario()
	a := assignmentOf(in, map[int][]int{0: {3}, 2: {3}})
	r := Validate(in, a)
	require.False(t, r.Valid)
	assert.Equal(t, []string{DiagDuplicateVideo}, kinds(r))
	assert.Equal(t, 3, r.Diagnostics[0].Video)
	assert.Equal(t, 2, r.Diagnostics[0].Cache)
}

func TestValidateIDsOutOfRange(t *testing.T) {
	in := scenario()
	a := model.NewAssignment(in)
	a.Caches[0].Videos = []int{7}
	a.Caches = append(a.Caches, model.CacheState{Videos: []int{1}, Remaining: 50})
	r := Validate(in, a)
	require.False(t, r.Valid)
	assert.ElementsMatch(t, []string{DiagVideoOutOfRange, DiagCacheOutOfRange}, kinds(r))
	for _, d := range r.Diagnostics {
		switch d.Kind {
		case DiagVideoOutOfRange:
			assert.Equal(t, 7, d.Video)
		case DiagCacheOutOfRange:
			assert.Equal(t, 3, d.Cache)
		}
	}
}

func TestValidateReportsEveryViolation(t *testing.T) {
	in := scenario()
	in.VideoSizes = []int64{50, 50, 80, -30, 110}
	a := model.NewAssignment(in)
	a.Caches[0] = model.CacheState{Videos: []int{2, 4}, Remaining: -90}
	a.Caches[1] = model.CacheState{Videos: []int{2}, Remaining: 20}
	r := Validate(in, a)
	require.False(t, r.Valid)
	assert.ElementsMatch(t, []string{DiagNegativeSize, DiagNegativeRemaining, DiagOverCapacity, DiagDuplicateVideo}, kinds(r))
}

func TestValidateNegativeSizeInstance(t *testing.T) {
	in := scenario()
	in.VideoSizes[1] = -50
	for _, h := range Heuristics() {
		a := h.Build(in)
		r := Validate(in, a)
		require.False(t, r.Valid, h)
		found := false
		for _, d := range r.Diagnostics {
			if d.Kind == DiagNegativeSize {
				found = true
				assert.Contains(t, d.Message, "negative size")
				assert.Equal(t, 1, d.Video)
			}
		}
		assert.True(t, found, h)
	}
}

func TestValidateMalformedReferences(t *testing.T) {
	in := scenario()
	in.Endpoints[1].Links = []model.CacheLink{{Cache: 8, Latency: 10}}
	in.Requests = append(in.Requests, model.Request{Video: 12, Endpoint: 0, Count: 1})
	in.Index()
	r := Validate(in, model.NewAssignment(in))
	require.False(t, r.Valid)
	assert.ElementsMatch(t, []string{DiagBadLink, DiagBadRequest}, kinds(r))
}
