package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"cacheplan/internal/integrations"
	"cacheplan/internal/integrations/hashcode"
	"cacheplan/internal/integrations/jsoncodec"
	"cacheplan/internal/metrics"
	"cacheplan/internal/model"
	"cacheplan/internal/opt"
	"cacheplan/internal/store"
)

const maxInstanceBytes = 64 << 20

// optimizeRequest is the JSON form of POST /v1/optimize.
type optimizeRequest struct {
	Name     string          `json:"name"`
	Instance json.RawMessage `json:"instance"`
	optimizeOverrides
}

type optimizeResponse struct {
	ID            string                 `json:"id"`
	Name          string                 `json:"name,omitempty"`
	Score         int64                  `json:"score"`
	SeedHeuristic opt.Heuristic          `json:"seedHeuristic"`
	Report        opt.Report             `json:"report"`
	Heuristics    []model.HeuristicScore `json:"heuristics"`
	Search        opt.Metrics            `json:"search"`
	Submission    jsoncodec.Submission   `json:"submission"`
}

// OptimizeHandler handles POST /v1/optimize. The body is either a text
// instance (any non-JSON content type) or an optimizeRequest.
func (s *Server) OptimizeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	overrides, err := overridesFromQuery(r.URL.Query())
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid optimize request", err.Error(), r.URL.Path)
		return
	}
	name := r.URL.Query().Get("name")
	body := http.MaxBytesReader(w, r.Body, maxInstanceBytes)

	var in *model.Instance
	if isJSON(r.Header.Get("Content-Type")) {
		var req optimizeRequest
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if len(req.Instance) == 0 {
			writeProblem(w, http.StatusBadRequest, "Missing instance", "", r.URL.Path)
			return
		}
		if req.Name != "" {
			name = req.Name
		}
		overrides = overrides.merge(req.optimizeOverrides)
		in, err = jsoncodec.Codec{}.DecodeInstance(bytes.NewReader(req.Instance))
	} else {
		in, err = hashcode.Codec{}.DecodeInstance(body)
	}
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid instance", err.Error(), r.URL.Path)
		return
	}
	in.Name = name

	base, err := s.optimizerConfig(r.Context())
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Optimizer config failed", err.Error(), r.URL.Path)
		return
	}
	cfg, err := overrides.apply(base)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid optimize request", err.Error(), r.URL.Path)
		return
	}

	runID := uuid.New().String()
	s.Broker.Publish(RunsTopic, Event{Type: "run.started", RunID: runID, Data: map[string]any{"name": name, "heuristics": cfg.Heuristics}})
	start := time.Now()
	res, err := opt.Optimize(in, cfg)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Optimize failed", err.Error(), r.URL.Path)
		return
	}
	dur := time.Since(start)
	metrics.ObserveRun("api", res, dur)
	if name != "" {
		opt.RecordMetrics(name, res.SeedHeuristic, res.Search)
	}

	run := res.Run(name, cfg.RandomSeed)
	run.ID = runID
	if _, err := s.Store.SaveRun(r.Context(), run); err != nil {
		writeProblem(w, http.StatusInternalServerError, "Save run failed", err.Error(), r.URL.Path)
		return
	}
	s.Broker.Publish(RunsTopic, Event{Type: "run.completed", RunID: runID, Data: map[string]any{
		"score":         res.Score,
		"seedHeuristic": res.SeedHeuristic,
		"valid":         res.Report.Valid,
		"improvements":  res.Search.Improvements,
		"durationMs":    dur.Milliseconds(),
	}})
	s.Log.WithFields(logrus.Fields{"runId": runID, "name": name, "score": res.Score, "seedHeuristic": res.SeedHeuristic, "valid": res.Report.Valid}).Info("optimized")

	writeJSON(w, http.StatusOK, optimizeResponse{
		ID:            runID,
		Name:          name,
		Score:         res.Score,
		SeedHeuristic: res.SeedHeuristic,
		Report:        res.Report,
		Heuristics:    res.Comparison(),
		Search:        res.Search,
		Submission:    jsoncodec.ToSubmission(res.Assignment),
	})
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && (mt == "application/json" || strings.HasSuffix(mt, "+json"))
}

// RunsHandler handles GET /v1/runs
func (s *Server) RunsHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/runs" {
		writeProblem(w, 404, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	limit := 100
	if v := q.Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	items, next, err := s.Store.ListRuns(r.Context(), q.Get("name"), q.Get("cursor"), limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List runs failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// RunByIDHandler handles GET /v1/runs/{id} and GET /v1/runs/{id}/submission
func (s *Server) RunByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	parts := strings.Split(rest, "/")
	if rest == "" || len(parts) > 2 || (len(parts) == 2 && parts[1] != "submission") {
		writeProblem(w, 404, "Not Found", "", r.URL.Path)
		return
	}
	run, err := s.Store.GetRun(r.Context(), parts[0])
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, 404, "Run not found", parts[0], r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, 500, "Get run failed", err.Error(), r.URL.Path)
		return
	}
	if len(parts) == 1 {
		writeJSON(w, 200, run)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = hashcode.Name
	}
	codec, err := integrations.Lookup(format)
	if err != nil {
		writeProblem(w, 400, "Unknown format", fmt.Sprintf("%v (available: %s)", err, strings.Join(integrations.Names(), ",")), r.URL.Path)
		return
	}
	var buf bytes.Buffer
	if err := codec.EncodeAssignment(&buf, run.Assignment); err != nil {
		writeProblem(w, 500, "Encode failed", err.Error(), r.URL.Path)
		return
	}
	if format == hashcode.Name {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	_, _ = io.Copy(w, &buf)
}

// optimizerConfig is the configured optimizer defaults overlaid with the
// stored admin config.
func (s *Server) optimizerConfig(ctx context.Context) (opt.Config, error) {
	stored, err := s.Store.GetOptimizerConfig(ctx)
	if err != nil {
		return opt.Config{}, err
	}
	return overlayConfig(s.Config.Optimizer, stored)
}

// OptimizerConfigHandler returns the effective optimizer configuration
func (s *Server) OptimizerConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/optimizer/config" || r.Method != http.MethodGet {
		writeProblem(w, 404, "Not Found", "", r.URL.Path)
		return
	}
	cfg, err := s.optimizerConfig(r.Context())
	if err != nil {
		writeProblem(w, 500, "Optimizer config failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, 200, map[string]any{"defaults": cfg, "heuristics": opt.Heuristics()})
}

// Admin get/set of the stored optimizer overlay
func (s *Server) AdminOptimizerConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/admin/optimizer/config" {
		writeProblem(w, 404, "Not Found", "", r.URL.Path)
		return
	}
	if !s.isAdmin(r) {
		writeProblem(w, 403, "Forbidden", "admin token required", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodGet:
		cfg, _ := s.Store.GetOptimizerConfig(r.Context())
		if cfg == nil {
			cfg = map[string]any{}
		}
		writeJSON(w, 200, map[string]any{"config": cfg})
	case http.MethodPut:
		var body struct {
			Config map[string]any `json:"config"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeProblem(w, 400, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if body.Config == nil {
			writeProblem(w, 400, "Missing config", "", r.URL.Path)
			return
		}
		if _, err := overlayConfig(s.Config.Optimizer, body.Config); err != nil {
			writeProblem(w, 400, "Invalid config", err.Error(), r.URL.Path)
			return
		}
		if err := s.Store.SaveOptimizerConfig(r.Context(), body.Config); err != nil {
			writeProblem(w, 500, "Save failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, 200, map[string]bool{"ok": true})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// Admin search metrics recorded in process, by seed heuristic
func (s *Server) SearchMetricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/admin/search-metrics" || r.Method != http.MethodGet {
		writeProblem(w, 404, "Not Found", "", r.URL.Path)
		return
	}
	if !s.isAdmin(r) {
		writeProblem(w, 403, "Forbidden", "admin token required", r.URL.Path)
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		writeProblem(w, 400, "Missing name", "", r.URL.Path)
		return
	}
	items := []map[string]any{}
	for h, m := range opt.GetMetrics(name) {
		items = append(items, map[string]any{
			"seedHeuristic":   h,
			"iterations":      m.Iterations,
			"improvements":    m.Improvements,
			"seedScore":       m.SeedScore,
			"bestScore":       m.BestScore,
			"operatorSelects": []int{m.OperatorSelects[opt.OpPerturb], m.OperatorSelects[opt.OpSwap]},
			"snapshots":       m.Snapshots,
		})
	}
	writeJSON(w, 200, map[string]any{"items": items})
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, 200, map[string]string{"status": "ready"})
}
