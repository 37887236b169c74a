// Package api implements the HTTP surface of the cache placement service.
package api

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"cacheplan/internal/config"
	"cacheplan/internal/store"
)

type Server struct {
	Store  store.Store
	Broker EventBroker
	Config config.Config
	Log    *logrus.Entry

	limiter *rate.Limiter
}

// NewServer creates a Server. If DATABASE_URL is unset, uses in-memory store;
// if REDIS_URL is unset or unreachable, uses the in-memory broker.
func NewServer(ctx context.Context, cfg config.Config, log *logrus.Entry) (*Server, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	var s store.Store
	if strings.TrimSpace(cfg.Storage.DatabaseURL) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if cfg.Storage.Migrate {
			if err := sp.Migrate(ctx); err != nil {
				return nil, err
			}
		}
		s = sp
	}
	var broker EventBroker = NewBroker()
	if cfg.Storage.RedisURL != "" {
		if rb, err := NewRedisBroker(ctx, cfg.Storage.RedisURL); err == nil {
			broker = rb
		} else {
			log.WithError(err).Warn("redis unavailable, using in-memory broker")
		}
	}
	return &Server{Store: s, Broker: broker, Config: cfg, Log: log, limiter: newLimiter(cfg.Server.RateRPS, cfg.Server.RateBurst)}, nil
}

func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
