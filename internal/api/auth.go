package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// isAdmin reports whether the request may use /v1/admin routes. Without a
// configured token every caller is admin, matching local development.
func (s *Server) isAdmin(r *http.Request) bool {
	want := s.Config.Server.AdminToken
	if want == "" {
		return true
	}
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return false
	}
	tok := strings.TrimSpace(authz[len("Bearer "):])
	return subtle.ConstantTimeCompare([]byte(tok), []byte(want)) == 1
}
