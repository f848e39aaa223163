package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"finansix/internal/shared/auth"
)

type ContextKey string

const (
	UserIDKey      ContextKey = "user_id"
	HouseholdIDKey ContextKey = "household_id"
)

// Auth validates the bearer token and stores the actor and household identity
// in the request context. A token without a household is accepted.
func Auth(jwt *auth.JWT) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authentication required", http.StatusUnauthorized)
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			claims, err := jwt.Validate(parts[1])
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			trace.SpanFromContext(r.Context()).SetAttributes(
				attribute.String("finansix.user_id", claims.UserID()),
				attribute.String("finansix.household_id", claims.HouseholdID),
			)

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID())
			ctx = context.WithValue(ctx, HouseholdIDKey, claims.HouseholdID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the authenticated actor from the context.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserIDKey).(string)
	return id, ok && id != ""
}

// HouseholdID returns the household of the authenticated actor, or "" when
// the actor has none yet.
func HouseholdID(ctx context.Context) string {
	id, _ := ctx.Value(HouseholdIDKey).(string)
	return id
}
