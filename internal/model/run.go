package model

import "time"

// Diagnostic is one violation found by the feasibility validator. Cache and
// Video are -1 when the violation does not concern one.
type Diagnostic struct {
	Kind    string `json:"kind"`
	Cache   int    `json:"cache"`
	Video   int    `json:"video"`
	Message string `json:"message"`
}

// HeuristicScore is one row of the construction comparison.
type HeuristicScore struct {
	Heuristic string `json:"heuristic"`
	Score     int64  `json:"score"`
	Valid     bool   `json:"valid"`
	Placed    int    `json:"placed"`
}

// Run is the persisted outcome of one optimization.
type Run struct {
	ID              string           `json:"id"`
	Name            string           `json:"name,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	Score           int64            `json:"score"`
	SeedHeuristic   string           `json:"seedHeuristic"`
	Seed            int64            `json:"seed"`
	Valid           bool             `json:"valid"`
	Diagnostics     []Diagnostic     `json:"diagnostics,omitempty"`
	HeuristicScores []HeuristicScore `json:"heuristicScores"`
	Iterations      int              `json:"iterations"`
	Improvements    int              `json:"improvements"`
	Assignment      Assignment       `json:"assignment"`
}
