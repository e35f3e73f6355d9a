package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/meridianhq/meridian/pkg/observability"
)

const (
	// HeaderUserID carries the authenticated user ID, set by the edge proxy.
	HeaderUserID = "X-Meridian-User-ID"
	// HeaderTenantID carries the caller's tenant ID, set by the edge proxy.
	HeaderTenantID = "X-Meridian-Tenant-ID"
)

// CallerIdentity describes the authenticated caller of a request.
type CallerIdentity struct {
	UserID   int64
	TenantID int64
}

type identityKey struct{}

// GetIdentity returns the caller identity from the request context, or nil
// when the request was not identified.
func GetIdentity(r *http.Request) *CallerIdentity {
	if id, ok := r.Context().Value(identityKey{}).(*CallerIdentity); ok {
		return id
	}
	return nil
}

// WithIdentity returns a context carrying the given identity. Exposed for
// handler tests.
func WithIdentity(ctx context.Context, id *CallerIdentity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// Identity extracts caller identity headers into the request context. When
// required is true, requests without both headers are rejected with 401.
func Identity(required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, userErr := strconv.ParseInt(r.Header.Get(HeaderUserID), 10, 64)
			tenantID, tenantErr := strconv.ParseInt(r.Header.Get(HeaderTenantID), 10, 64)

			if userErr != nil || tenantErr != nil {
				if required {
					unauthorized(w, "missing or invalid identity headers")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithIdentity(r.Context(), &CallerIdentity{UserID: userID, TenantID: tenantID})
			ctx = observability.WithUserID(ctx, strconv.FormatInt(userID, 10))
			ctx = observability.WithTenantID(ctx, strconv.FormatInt(tenantID, 10))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
