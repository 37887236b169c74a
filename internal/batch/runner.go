// Package batch optimizes a directory of instance files and writes one
// submission per instance.
package batch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"cacheplan/internal/integrations"
	"cacheplan/internal/integrations/hashcode"
	"cacheplan/internal/metrics"
	"cacheplan/internal/opt"
	"cacheplan/internal/store"
)

// Discover lists the *.in files of dir in name order.
func Discover(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.in"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// InstanceName is the file name without directory and extension.
func InstanceName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// OutputPath is where the submission for an instance is written.
func OutputPath(outputDir, name string) string {
	return filepath.Join(outputDir, "output_"+name+".txt")
}

type Runner struct {
	Config    opt.Config
	OutputDir string
	Workers   int
	Store     store.Store        // optional
	Codec     integrations.Codec // defaults to hashcode
	Log       *logrus.Entry
}

// InstanceResult compares the final score with the basic smallest-first
// construction.
type InstanceResult struct {
	Name           string
	Path           string
	OutputPath     string
	BaselineScore  int64
	Score          int64
	Improvement    int64
	ImprovementPct float64
	SeedHeuristic  opt.Heuristic
	Valid          bool
	RunID          string
}

type Summary struct {
	Results []InstanceResult // input order; failed instances are absent
	Failed  int
}

// Run optimizes every path. A failing instance does not stop the others; all
// failures are returned together.
func (r *Runner) Run(ctx context.Context, paths []string) (Summary, error) {
	if err := r.Config.Validate(); err != nil {
		return Summary{}, errors.Wrap(err, "optimizer config")
	}
	if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
		return Summary{}, errors.Wrap(err, "create output dir")
	}
	log := r.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}

	var (
		mu      sync.Mutex
		errs    error
		results = make([]*InstanceResult, len(paths))
		g       errgroup.Group
	)
	g.SetLimit(workers)
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, errors.Wrap(err, p))
				mu.Unlock()
				return nil
			}
			res, err := r.runOne(ctx, log.WithField("instance", InstanceName(p)), p)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = multierr.Append(errs, errors.Wrap(err, p))
				return nil
			}
			results[i] = &res
			return nil
		})
	}
	_ = g.Wait()

	var sum Summary
	for _, res := range results {
		if res != nil {
			sum.Results = append(sum.Results, *res)
		}
	}
	sum.Failed = len(multierr.Errors(errs))
	return sum, errs
}

func (r *Runner) codec() integrations.Codec {
	if r.Codec != nil {
		return r.Codec
	}
	return hashcode.Codec{}
}

// runOne solves a single file. A panic is turned into that file's error so
// the rest of the batch still runs.
func (r *Runner) runOne(ctx context.Context, log *logrus.Entry, path string) (_ InstanceResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			log.WithField("panic", p).Error("instance aborted")
			err = errors.Errorf("panic: %v", p)
		}
	}()
	name := InstanceName(path)
	f, err := os.Open(path)
	if err != nil {
		return InstanceResult{}, err
	}
	in, err := r.codec().DecodeInstance(f)
	f.Close()
	if err != nil {
		return InstanceResult{}, err
	}
	in.Name = name

	start := time.Now()
	res, err := opt.Optimize(in, r.Config)
	if err != nil {
		return InstanceResult{}, err
	}
	metrics.ObserveRun("batch", res, time.Since(start))
	opt.RecordMetrics(name, res.SeedHeuristic, res.Search)

	baseline, ok := res.HeuristicScore(opt.SmallestFirst)
	if !ok {
		baseline = opt.Score(in, opt.SmallestFirst.Build(in))
	}
	out := InstanceResult{
		Name:          name,
		Path:          path,
		OutputPath:    OutputPath(r.OutputDir, name),
		BaselineScore: baseline,
		Score:         res.Score,
		Improvement:   res.Score - baseline,
		SeedHeuristic: res.SeedHeuristic,
		Valid:         res.Report.Valid,
	}
	if baseline > 0 {
		out.ImprovementPct = float64(out.Improvement) / float64(baseline) * 100
	}

	if err := r.writeSubmission(out.OutputPath, res); err != nil {
		return InstanceResult{}, err
	}

	for _, d := range res.Report.Diagnostics {
		log.WithFields(logrus.Fields{"kind": d.Kind, "cache": d.Cache, "video": d.Video}).Warn(d.Message)
	}
	for _, h := range res.Heuristics {
		log.WithFields(logrus.Fields{"heuristic": h.Heuristic, "score": h.Score, "valid": h.Report.Valid}).Debug("construction")
	}
	log.WithFields(logrus.Fields{
		"baseline":       baseline,
		"score":          res.Score,
		"improvement":    out.Improvement,
		"improvementPct": out.ImprovementPct,
		"seedHeuristic":  res.SeedHeuristic,
		"valid":          res.Report.Valid,
		"output":         out.OutputPath,
	}).Info("optimized")

	if r.Store != nil {
		id, err := r.Store.SaveRun(ctx, res.Run(name, r.Config.RandomSeed))
		if err != nil {
			return InstanceResult{}, errors.Wrap(err, "save run")
		}
		out.RunID = id
	}
	return out, nil
}

func (r *Runner) writeSubmission(path string, res opt.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create submission")
	}
	if err := r.codec().EncodeAssignment(f, res.Assignment); err != nil {
		f.Close()
		return errors.Wrap(err, "write submission")
	}
	return f.Close()
}
