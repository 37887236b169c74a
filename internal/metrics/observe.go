package metrics

import (
	"strconv"
	"time"

	"cacheplan/internal/opt"
)

// ObserveRun records one optimization outcome. source is "api" or "batch".
func ObserveRun(source string, res opt.Result, dur time.Duration) {
	OptimizeRuns.WithLabelValues(string(res.SeedHeuristic), strconv.FormatBool(res.Report.Valid)).Inc()
	OptimizeScore.WithLabelValues(source).Set(float64(res.Score))
	OptimizeDuration.Observe(dur.Seconds())
	for _, s := range res.Search.Snapshots {
		SearchImprovements.WithLabelValues(opt.OperatorName(s.Operator)).Inc()
	}
}
