// Package config assembles the service and batch configuration from YAML
// files and the environment.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"cacheplan/internal/opt"
)

type Server struct {
	Port      string  `yaml:"port"`
	RateRPS   float64 `yaml:"rateRPS"`
	RateBurst int     `yaml:"rateBurst"`
	// AdminToken, when set, is required as a bearer token on /v1/admin routes.
	AdminToken string `yaml:"adminToken"`
}

type Storage struct {
	DatabaseURL string `yaml:"databaseURL"`
	RedisURL    string `yaml:"redisURL"`
	Migrate     bool   `yaml:"migrate"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

type Batch struct {
	InputDir  string `yaml:"inputDir"`
	OutputDir string `yaml:"outputDir"`
	Workers   int    `yaml:"workers"`
}

// Webhook receives run.completed notifications when URL is set.
type Webhook struct {
	URL         string `yaml:"url"`
	Secret      string `yaml:"secret"`
	MaxAttempts int    `yaml:"maxAttempts"`
}

type Config struct {
	Optimizer opt.Config `yaml:"optimizer"`
	Server    Server     `yaml:"server"`
	Storage   Storage    `yaml:"storage"`
	Logging   Logging    `yaml:"logging"`
	Batch     Batch      `yaml:"batch"`
	Webhook   Webhook    `yaml:"webhook"`
}

func Default() Config {
	return Config{
		Optimizer: opt.DefaultConfig(),
		Server:    Server{Port: "8080", RateRPS: 20, RateBurst: 40},
		Storage:   Storage{Migrate: true},
		Logging:   Logging{Level: "info", Format: "text"},
		Batch:     Batch{InputDir: "input", OutputDir: "output", Workers: 1},
		Webhook:   Webhook{MaxAttempts: 10},
	}
}

// Load starts from Default, merges the given files in order, applies the
// environment and validates the result.
func Load(files ...string) (Config, error) {
	cfg := Default()
	if err := Parse(&cfg, files...); err != nil {
		return Config{}, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse unmarshals each file over cfg; later files override earlier ones.
// Heuristic names accept the same aliases as the CLI and API.
func Parse(cfg *Config, files ...string) error {
	for _, fname := range files {
		data, err := os.ReadFile(fname)
		if err != nil {
			return errors.Wrap(err, "read config")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return errors.Wrapf(err, "parse %s", fname)
		}
	}
	return normalizeHeuristics(&cfg.Optimizer)
}

func normalizeHeuristics(c *opt.Config) error {
	var errs error
	out := make([]opt.Heuristic, 0, len(c.Heuristics))
	for _, h := range c.Heuristics {
		parsed, err := opt.ParseHeuristic(string(h))
		if err != nil {
			errs = multierr.Append(errs, errors.Wrap(err, "optimizer.heuristics"))
			continue
		}
		out = append(out, parsed)
	}
	if errs != nil {
		return errs
	}
	c.Heuristics = out
	return nil
}

// ApplyEnv overrides fields from PORT, DATABASE_URL, DB_MIGRATE, REDIS_URL,
// RATE_RPS, RATE_BURST, ADMIN_TOKEN, WEBHOOK_URL, WEBHOOK_SECRET,
// WEBHOOK_MAX_ATTEMPTS and LOG_LEVEL.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PORT"); ok && v != "" {
		c.Server.Port = v
	}
	if v, ok := lookup("DATABASE_URL"); ok {
		c.Storage.DatabaseURL = v
	}
	if v, ok := lookup("DB_MIGRATE"); ok && v != "" {
		c.Storage.Migrate = v != "false"
	}
	if v, ok := lookup("ADMIN_TOKEN"); ok {
		c.Server.AdminToken = v
	}
	if v, ok := lookup("WEBHOOK_URL"); ok {
		c.Webhook.URL = v
	}
	if v, ok := lookup("WEBHOOK_SECRET"); ok {
		c.Webhook.Secret = v
	}
	if v, ok := lookup("REDIS_URL"); ok {
		c.Storage.RedisURL = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Logging.Level = v
	}
	var errs error
	if v, ok := lookup("RATE_RPS"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = multierr.Append(errs, errors.Wrap(err, "RATE_RPS"))
		} else {
			c.Server.RateRPS = f
		}
	}
	if v, ok := lookup("RATE_BURST"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = multierr.Append(errs, errors.Wrap(err, "RATE_BURST"))
		} else {
			c.Server.RateBurst = n
		}
	}
	if v, ok := lookup("WEBHOOK_MAX_ATTEMPTS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = multierr.Append(errs, errors.Wrap(err, "WEBHOOK_MAX_ATTEMPTS"))
		} else {
			c.Webhook.MaxAttempts = n
		}
	}
	return errs
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs error
	if err := c.Optimizer.Validate(); err != nil {
		errs = multierr.Append(errs, errors.Wrap(err, "optimizer"))
	}
	if c.Server.RateRPS < 0 || c.Server.RateBurst < 0 {
		errs = multierr.Append(errs, errors.New("server: rate limits must be >= 0"))
	}
	if c.Batch.Workers < 1 {
		errs = multierr.Append(errs, errors.New("batch: workers must be >= 1"))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		errs = multierr.Append(errs, errors.Errorf("logging: unknown format %q", c.Logging.Format))
	}
	return errs
}

// Addr is the listen address derived from the port.
func (c Config) Addr() string {
	if strings.Contains(c.Server.Port, ":") {
		return c.Server.Port
	}
	return ":" + c.Server.Port
}
