// Package hashcode reads problem instances and writes submissions in the
// whitespace separated text format:
//
//	V E R C X
//	size_0 ... size_{V-1}
//	E blocks of: datacenter_latency K, then K lines of: cache_id latency
//	R lines of: video_id endpoint_id count
//
// A submission is the number of caches used followed by one line per used
// cache: the cache id and its videos in ascending order.
package hashcode

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"cacheplan/internal/integrations"
	"cacheplan/internal/model"
)

const Name = "hashcode"

const maxLine = 16 << 20

// capHint bounds slice capacity taken from counts in the file; the slices
// still grow to the real size as lines are read.
func capHint(n int64) int {
	return int(min(n, 1<<12))
}

func init() { integrations.Register(Codec{}) }

// Codec implements integrations.Codec for the text format.
type Codec struct{}

func (Codec) Name() string { return Name }

type lineReader struct {
	sc   *bufio.Scanner
	line int
}

// next returns the integers of the next non-blank line; want < 0 accepts any
// count.
func (lr *lineReader) next(what string, want int) ([]int64, error) {
	for lr.sc.Scan() {
		lr.line++
		fields := strings.Fields(lr.sc.Text())
		if len(fields) == 0 {
			continue
		}
		if want >= 0 && len(fields) != want {
			return nil, fmt.Errorf("line %d: %s: want %d values, got %d", lr.line, what, want, len(fields))
		}
		out := make([]int64, len(fields))
		for i, f := range fields {
			n, err := strconv.ParseInt(f, 10, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d: %s", lr.line, what)
			}
			out[i] = n
		}
		return out, nil
	}
	if err := lr.sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read instance")
	}
	return nil, fmt.Errorf("line %d: %s: unexpected end of input", lr.line+1, what)
}

// DecodeInstance parses an instance. Structural problems (missing lines,
// non-integers, negative or oversized counts) are errors; negative sizes and dangling ids
// are kept for the validator to report.
func (Codec) DecodeInstance(r io.Reader) (*model.Instance, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	lr := &lineReader{sc: sc}

	head, err := lr.next("header", 5)
	if err != nil {
		return nil, err
	}
	limits := [5]int64{model.MaxVideos, model.MaxEndpoints, model.MaxRequests, model.MaxCaches, math.MaxInt64}
	for i, n := range head {
		if n < 0 {
			return nil, fmt.Errorf("line %d: header value %d is negative", lr.line, i+1)
		}
		if n > limits[i] {
			return nil, fmt.Errorf("line %d: header value %d is %d, limit %d", lr.line, i+1, n, limits[i])
		}
	}
	nv, ne, nr, nc := int(head[0]), int(head[1]), int(head[2]), int(head[3])
	in := &model.Instance{CacheCount: nc, CacheCapacity: head[4]}

	if nv > 0 {
		if in.VideoSizes, err = lr.next("video sizes", nv); err != nil {
			return nil, err
		}
	} else {
		in.VideoSizes = []int64{}
	}

	in.Endpoints = make([]model.Endpoint, 0, capHint(int64(ne)))
	for e := 0; e < ne; e++ {
		hdr, err := lr.next(fmt.Sprintf("endpoint %d", e), 2)
		if err != nil {
			return nil, err
		}
		if hdr[1] < 0 {
			return nil, fmt.Errorf("line %d: endpoint %d has negative cache count", lr.line, e)
		}
		if hdr[1] > model.MaxLinks {
			return nil, fmt.Errorf("line %d: endpoint %d has %d cache links, limit %d", lr.line, e, hdr[1], model.MaxLinks)
		}
		ep := model.Endpoint{DatacenterLatency: hdr[0], Links: make([]model.CacheLink, 0, capHint(hdr[1]))}
		for k := int64(0); k < hdr[1]; k++ {
			ln, err := lr.next(fmt.Sprintf("endpoint %d cache link", e), 2)
			if err != nil {
				return nil, err
			}
			ep.Links = append(ep.Links, model.CacheLink{Cache: int(ln[0]), Latency: ln[1]})
		}
		in.Endpoints = append(in.Endpoints, ep)
	}

	in.Requests = make([]model.Request, 0, capHint(int64(nr)))
	for i := 0; i < nr; i++ {
		rq, err := lr.next(fmt.Sprintf("request %d", i), 3)
		if err != nil {
			return nil, err
		}
		in.Requests = append(in.Requests, model.Request{Video: int(rq[0]), Endpoint: int(rq[1]), Count: rq[2]})
	}
	if err := in.CheckBounds(); err != nil {
		return nil, err
	}
	in.Index()
	return in, nil
}

// EncodeAssignment writes the submission for a. Empty caches are omitted
// without renumbering the others.
func (Codec) EncodeAssignment(w io.Writer, a model.Assignment) error {
	bw := bufio.NewWriter(w)
	used := a.UsedCaches()
	fmt.Fprintf(bw, "%d\n", len(used))
	for _, c := range used {
		bw.WriteString(strconv.Itoa(c))
		vs := append([]int(nil), a.Caches[c].Videos...)
		sort.Ints(vs)
		for _, v := range vs {
			bw.WriteByte(' ')
			bw.WriteString(strconv.Itoa(v))
		}
		bw.WriteByte('\n')
	}
	return errors.Wrap(bw.Flush(), "write submission")
}
