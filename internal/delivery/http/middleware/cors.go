package middleware

import (
	"net/http"
	"strings"
)

const (
	corsAllowHeaders = "Authorization, Content-Type, Accept"
	corsMaxAge       = "86400"
)

// CORSPolicy grants browser access to individual routes. Only the phone
// registration routes are called from a browser; /handle_push and /healthz
// are server-to-server and are never wrapped. Tokens travel in the
// Authorization header, so credentials (cookies) are not allowed.
type CORSPolicy struct {
	origins map[string]struct{}
}

// NewCORSPolicy builds a policy for the given origins. Trailing slashes and
// blank entries are ignored.
func NewCORSPolicy(allowedOrigins []string) *CORSPolicy {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		o = strings.TrimSuffix(strings.TrimSpace(o), "/")
		if o != "" {
			origins[o] = struct{}{}
		}
	}
	return &CORSPolicy{origins: origins}
}

func (p *CORSPolicy) allowed(origin string) bool {
	_, ok := p.origins[origin]
	return ok
}

// Preflight answers OPTIONS for a route serving methods.
func (p *CORSPolicy) Preflight(methods ...string) http.HandlerFunc {
	allow := strings.Join(append(methods, http.MethodOptions), ", ")
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Origin")
		if origin := r.Header.Get("Origin"); p.allowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", allow)
			w.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)
			w.Header().Set("Access-Control-Max-Age", corsMaxAge)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Allow adds the allow-origin header to responses of next for allowed origins.
func (p *CORSPolicy) Allow(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Origin")
		if origin := r.Header.Get("Origin"); p.allowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		next(w, r)
	}
}
