package middleware

import (
	"net/http"
	"os"
	"strings"
)

var (
	corsMethods = strings.Join([]string{
		http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
	}, ", ")
	corsHeaders = strings.Join([]string{
		"Content-Type", "Authorization", HeaderUserID, HeaderUserRole,
	}, ", ")
)

// corsPolicy answers browser preflights for the marketplace API. An empty
// origin set allows any origin.
type corsPolicy struct {
	origins map[string]struct{}
}

func newCORSPolicy(origins []string) corsPolicy {
	p := corsPolicy{origins: make(map[string]struct{})}
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "*" {
			return corsPolicy{}
		}
		if o != "" {
			p.origins[o] = struct{}{}
		}
	}
	return p
}

func (p corsPolicy) allowOrigin(h http.Header, origin string) {
	if len(p.origins) == 0 {
		h.Set("Access-Control-Allow-Origin", "*")
		return
	}
	h.Add("Vary", "Origin")
	if _, ok := p.origins[origin]; ok {
		h.Set("Access-Control-Allow-Origin", origin)
	}
}

// CORS returns middleware allowing the given origins
func CORS(origins []string) func(http.Handler) http.Handler {
	policy := newCORSPolicy(origins)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); origin != "" {
				policy.allowOrigin(w.Header(), origin)
			}
			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Access-Control-Allow-Methods", corsMethods)
			w.Header().Set("Access-Control-Allow-Headers", corsHeaders)
			w.Header().Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

// CORSMiddleware applies CORS with origins from ALLOWED_ORIGINS (comma
// separated), allowing any origin when unset
func CORSMiddleware(next http.Handler) http.Handler {
	var origins []string
	if env := os.Getenv("ALLOWED_ORIGINS"); env != "" {
		origins = strings.Split(env, ",")
	}
	return CORS(origins)(next)
}
