package api

import (
	"net/http"
	"time"

	"cacheplan/internal/buildinfo"
	"cacheplan/internal/integrations"
)

func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{
		"build":  buildinfo.Info(),
		"time":   time.Now().UTC().Format(time.RFC3339),
		"codecs": integrations.Names(),
		"config": map[string]any{
			"PORT":             s.Config.Server.Port,
			"RATE_RPS":         s.Config.Server.RateRPS,
			"RATE_BURST":       s.Config.Server.RateBurst,
			"LOG_LEVEL":        s.Config.Logging.Level,
			"HAS_ADMIN_TOKEN":  s.Config.Server.AdminToken != "",
			"HAS_DATABASE_URL": s.Config.Storage.DatabaseURL != "",
			"HAS_REDIS_URL":    s.Config.Storage.RedisURL != "",
		},
	}
	writeJSON(w, http.StatusOK, info)
}
