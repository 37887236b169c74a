// Package jsoncodec is the JSON rendition of instances and assignments used
// by the HTTP API.
package jsoncodec

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"cacheplan/internal/integrations"
	"cacheplan/internal/model"
)

const Name = "json"

func init() { integrations.Register(Codec{}) }

type Codec struct{}

func (Codec) Name() string { return Name }

func (Codec) DecodeInstance(r io.Reader) (*model.Instance, error) {
	var in model.Instance
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, errors.Wrap(err, "decode instance")
	}
	if err := in.CheckBounds(); err != nil {
		return nil, errors.Wrap(err, "invalid instance")
	}
	in.Index()
	return &in, nil
}

// CachePlacement is one used cache in the JSON submission.
type CachePlacement struct {
	Cache  int   `json:"cache"`
	Videos []int `json:"videos"`
}

type Submission struct {
	Caches []CachePlacement `json:"caches"`
}

// ToSubmission lists the used caches of a in ascending cache order.
func ToSubmission(a model.Assignment) Submission {
	s := Submission{Caches: []CachePlacement{}}
	for _, c := range a.UsedCaches() {
		s.Caches = append(s.Caches, CachePlacement{Cache: c, Videos: append([]int(nil), a.Caches[c].Videos...)})
	}
	return s
}

func (Codec) EncodeAssignment(w io.Writer, a model.Assignment) error {
	return errors.Wrap(json.NewEncoder(w).Encode(ToSubmission(a)), "encode submission")
}
