// src/handlers/middleware.go
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/username/ledgercore/src/logger"
	"github.com/username/ledgercore/src/security"
	"github.com/username/ledgercore/src/utils"
)

type contextKey string

const (
	actorIDContextKey   contextKey = "actorID"
	requestIDContextKey contextKey = "requestID"
)

// ContextualLoggerMiddleware gives every request a requestID and a logger carrying it.
func ContextualLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctxLogger := logger.L.With(slog.String("requestID", requestID))
		ctx := logger.ToContext(r.Context(), ctxLogger)
		ctx = context.WithValue(ctx, requestIDContextKey, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AuthMiddleware requires a bearer token and puts its subject in the context
// as the actor id.
func AuthMiddleware(authService *security.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctxLogger := logger.FromContext(r.Context())

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				ctxLogger.Debug("AuthMiddleware: Authorization header missing", "path", r.URL.Path)
				utils.SendJSONError(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			if tokenString == "" {
				utils.SendJSONError(w, "Malformed token", http.StatusUnauthorized)
				return
			}

			subject, err := authService.ValidateToken(tokenString)
			if err != nil {
				ctxLogger.Warn("AuthMiddleware: Token validation failed", "path", r.URL.Path, "error", err)
				utils.SendJSONError(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			actorID, err := strconv.ParseInt(subject, 10, 64)
			if err != nil || actorID <= 0 {
				ctxLogger.Warn("AuthMiddleware: Invalid actor id in token", "subject", subject)
				utils.SendJSONError(w, "Invalid actor in token", http.StatusUnauthorized)
				return
			}

			enrichedLogger := ctxLogger.With(slog.Int64("actorID", actorID))
			ctx := logger.ToContext(r.Context(), enrichedLogger)
			ctx = context.WithValue(ctx, actorIDContextKey, actorID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetActorIDFromContext(ctx context.Context) (int64, bool) {
	actorID, ok := ctx.Value(actorIDContextKey).(int64)
	return actorID, ok
}
