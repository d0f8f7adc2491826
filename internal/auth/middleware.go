// internal/auth/middleware.go
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"hospitality-ops/internal/model"
)

type contextKey string

const (
	TenantIDKey contextKey = "tenant_id"
	UserIDKey   contextKey = "user_id"
)

// UserDirectory resolves the staff member a token was issued to.
type UserDirectory interface {
	StaffMember(tenantID, id string) (model.StaffMember, error)
}

// Middleware rejects requests without a valid bearer token whose user still
// exists in the directory, and injects the tenant and user ids into the context.
func Middleware(issuer *Issuer, users UserDirectory) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				unauthorized(w, "missing or invalid Authorization header")
				return
			}

			claims, err := issuer.ValidateToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				unauthorized(w, "unauthorized")
				return
			}
			if _, err := users.StaffMember(claims.TenantID, claims.UserID); err != nil {
				unauthorized(w, "user no longer exists")
				return
			}

			ctx := WithTenant(r.Context(), claims.TenantID, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// WithTenant stores the caller identity on ctx.
func WithTenant(ctx context.Context, tenantID, userID string) context.Context {
	ctx = context.WithValue(ctx, TenantIDKey, tenantID)
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetTenantID extracts tenant_id from context
func GetTenantID(r *http.Request) string {
	if val, ok := r.Context().Value(TenantIDKey).(string); ok {
		return val
	}
	return ""
}

// GetUserID extracts user_id from context
func GetUserID(r *http.Request) string {
	if val, ok := r.Context().Value(UserIDKey).(string); ok {
		return val
	}
	return ""
}
