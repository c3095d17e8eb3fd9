package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/maegy2011/FMS-sub000/internal/app"
	"github.com/maegy2011/FMS-sub000/internal/metrics"
	"github.com/maegy2011/FMS-sub000/pkg/apierror"
	"github.com/maegy2011/FMS-sub000/pkg/domain/secevent"
	"github.com/maegy2011/FMS-sub000/pkg/logger"
	"github.com/maegy2011/FMS-sub000/pkg/token"
)

// Auth-related context keys - use logger.ContextKey for consistency.
const (
	UserIDKey                  = logger.ContextKeyUserID
	RoleKey  logger.ContextKey = "role"
)

// GetUserID extracts the authenticated user ID from context.
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

// GetRole extracts the authenticated user's role from context.
func GetRole(ctx context.Context) string {
	if role, ok := ctx.Value(RoleKey).(string); ok {
		return role
	}
	return ""
}

// Authenticate verifies the bearer token and stores the claims on the
// request context. Missing and invalid tokens are distinguished in the
// response code but both leave an audit trail.
func Authenticate(tokens *token.Service, events *app.SecurityEventService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				metrics.AuthFailuresTotal.WithLabelValues("missing_token").Inc()
				apierror.MissingToken().
					WriteJSONWithRequestID(w, GetRequestID(r.Context()))
				return
			}

			claims, err := tokens.Verify(raw)
			if err != nil {
				reason := "invalid_token"
				if errors.Is(err, token.ErrExpiredToken) {
					reason = "expired_token"
				}
				metrics.AuthFailuresTotal.WithLabelValues(reason).Inc()

				events.Record(secevent.New(
					time.Now(),
					ClientIP(r),
					r.UserAgent(),
					secevent.KindInvalidToken,
					"reason="+reason+" path="+r.URL.Path,
				))

				apierror.InvalidToken(err).
					WriteJSONWithRequestID(w, GetRequestID(r.Context()))
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, RoleKey, claims.Role)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole restricts a route to users holding one of the given
// roles. Must run after Authenticate.
func RequireRole(events *app.SecurityEventService, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := GetRole(r.Context())
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}

			event := secevent.New(
				time.Now(),
				ClientIP(r),
				r.UserAgent(),
				secevent.KindAccessDenied,
				"role="+role+" path="+r.URL.Path,
			)
			if userID := GetUserID(r.Context()); userID != "" {
				event = event.WithUser(userID)
			}
			events.Record(event)

			apierror.Forbidden("Insufficient permissions").
				WriteJSONWithRequestID(w, GetRequestID(r.Context()))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
