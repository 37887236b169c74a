package opt

import "sync"

type key struct {
	Instance  string
	Heuristic Heuristic
}

var (
	mu    sync.Mutex
	store = map[key]Metrics{}
)

// RecordMetrics keeps the latest search metrics for an instance, keyed by the
// heuristic that seeded the search.
func RecordMetrics(instance string, seed Heuristic, m Metrics) {
	mu.Lock()
	store[key{Instance: instance, Heuristic: seed}] = m
	mu.Unlock()
}

// GetMetrics returns the recorded metrics of one instance by seed heuristic.
func GetMetrics(instance string) map[Heuristic]Metrics {
	mu.Lock()
	defer mu.Unlock()
	out := map[Heuristic]Metrics{}
	for k, v := range store {
		if k.Instance == instance {
			out[k.Heuristic] = v
		}
	}
	return out
}
