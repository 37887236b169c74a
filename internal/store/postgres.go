package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	pkgerrors "github.com/pkg/errors"

	"cacheplan/internal/model"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, pkgerrors.Wrap(err, "ping postgres")
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

var schema = []string{
	`CREATE TABLE IF NOT EXISTS optimization_runs (
		id uuid PRIMARY KEY,
		name text NOT NULL DEFAULT '',
		created_at timestamptz NOT NULL DEFAULT now(),
		score bigint NOT NULL,
		seed_heuristic text NOT NULL,
		seed bigint NOT NULL,
		valid boolean NOT NULL,
		iterations integer NOT NULL,
		improvements integer NOT NULL,
		heuristic_scores jsonb NOT NULL,
		diagnostics jsonb,
		assignment jsonb NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS optimization_runs_name_idx ON optimization_runs (name, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS optimizer_config (
		id integer PRIMARY KEY DEFAULT 1 CHECK (id = 1),
		config jsonb NOT NULL,
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the tables the store needs.
func (p *Postgres) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return pkgerrors.Wrapf(err, "migration %d", i)
		}
	}
	return nil
}

func (p *Postgres) SaveRun(ctx context.Context, run model.Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	_, err := p.db.ExecContext(ctx, `INSERT INTO optimization_runs (id, name, created_at, score, seed_heuristic, seed, valid, iterations, improvements, heuristic_scores, diagnostics, assignment)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (id) DO UPDATE SET score=$4, seed_heuristic=$5, seed=$6, valid=$7, iterations=$8, improvements=$9, heuristic_scores=$10, diagnostics=$11, assignment=$12`,
		run.ID, run.Name, run.CreatedAt, run.Score, run.SeedHeuristic, run.Seed, run.Valid, run.Iterations, run.Improvements,
		toJSON(run.HeuristicScores), nullJSON(run.Diagnostics), toJSON(run.Assignment))
	if err != nil {
		return "", pkgerrors.Wrap(err, "insert run")
	}
	return run.ID, nil
}

const runColumns = `id, name, created_at, score, seed_heuristic, seed, valid, iterations, improvements, heuristic_scores, diagnostics, assignment`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (model.Run, error) {
	var r model.Run
	var hs, asg []byte
	var diags sql.NullString
	if err := row.Scan(&r.ID, &r.Name, &r.CreatedAt, &r.Score, &r.SeedHeuristic, &r.Seed, &r.Valid, &r.Iterations, &r.Improvements, &hs, &diags, &asg); err != nil {
		return model.Run{}, err
	}
	if err := json.Unmarshal(hs, &r.HeuristicScores); err != nil {
		return model.Run{}, pkgerrors.Wrap(err, "heuristic_scores")
	}
	if diags.Valid {
		if err := json.Unmarshal([]byte(diags.String), &r.Diagnostics); err != nil {
			return model.Run{}, pkgerrors.Wrap(err, "diagnostics")
		}
	}
	if err := json.Unmarshal(asg, &r.Assignment); err != nil {
		return model.Run{}, pkgerrors.Wrap(err, "assignment")
	}
	return r, nil
}

func (p *Postgres) GetRun(ctx context.Context, id string) (model.Run, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Run{}, ErrNotFound
	}
	r, err := scanRun(p.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM optimization_runs WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Run{}, ErrNotFound
	}
	return r, err
}

// ListRuns pages newest first; cursor is the id of the last run returned.
func (p *Postgres) ListRuns(ctx context.Context, name, cursor string, limit int) ([]model.Run, string, error) {
	limit = clampLimit(limit)
	q := `SELECT ` + runColumns + ` FROM optimization_runs WHERE ($1 = '' OR name = $1)`
	args := []any{name}
	if cursor != "" {
		if _, err := uuid.Parse(cursor); err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %s", cursor)
		}
		q += ` AND (created_at, id) < (SELECT created_at, id FROM optimization_runs WHERE id = $2)`
		args = append(args, cursor)
	}
	q += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT %d`, limit+1)
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", pkgerrors.Wrap(err, "list runs")
	}
	defer rows.Close()
	out := []model.Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	next := ""
	if len(out) > limit {
		out = out[:limit]
		next = out[limit-1].ID
	}
	return out, next, nil
}

func (p *Postgres) GetOptimizerConfig(ctx context.Context) (map[string]any, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx, `SELECT config FROM optimizer_config WHERE id=1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cfg := map[string]any{}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, pkgerrors.Wrap(err, "optimizer config")
	}
	return cfg, nil
}

func (p *Postgres) SaveOptimizerConfig(ctx context.Context, cfg map[string]any) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO optimizer_config (id, config) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET config=$1, updated_at=now()`, toJSON(cfg))
	return err
}

func toJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func nullJSON[T any](v []T) any {
	if len(v) == 0 {
		return nil
	}
	return toJSON(v)
}
