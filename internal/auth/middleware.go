package auth

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Middleware attaches claims to the request context.
//
// Requests without a token continue anonymously, so reads return empty data
// and writes fail further down with 401. A token that is present but invalid
// is rejected here with 401.
type Middleware struct {
	Config Config
}

// NewMiddleware constructs the middleware.
func NewMiddleware(cfg Config) Middleware {
	return Middleware{Config: cfg}
}

// Wrap wraps an http.Handler with token parsing.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, present := tokenFromRequest(r)
		if !present {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := Parse(token, m.Config)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": ErrInvalidToken.Error()})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// tokenFromRequest reads the Authorization header. GET requests may pass the
// token as ?access_token= instead, since EventSource cannot set headers.
func tokenFromRequest(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			return "", true
		}
		return strings.TrimSpace(header[len("Bearer "):]), true
	}
	if r.Method == http.MethodGet {
		if token := r.URL.Query().Get("access_token"); token != "" {
			return token, true
		}
	}
	return "", false
}
