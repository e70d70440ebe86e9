package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the Claims attached by Middleware, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*Claims)
	return claims, ok
}

// Middleware extracts a bearer token, verifies it against cfg, and
// attaches its Claims to the request context before calling next. A
// missing or invalid token yields 401 without calling next.
func Middleware(cfg Config, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		token := strings.TrimPrefix(header, prefix)
		claims, err := cfg.VerifyToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type whoAmIResponse struct {
	Sub        string `json:"sub"`
	MemberType string `json:"memberType"`
	TenantID   string `json:"tenantId,omitempty"`
}

// WhoAmI is the optional GET /v1/whoami introspection route.
func WhoAmI(cfg Config) http.Handler {
	return Middleware(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(whoAmIResponse{
			Sub:        claims.Subject,
			MemberType: claims.MemberType,
			TenantID:   claims.TenantID,
		})
	}))
}
