package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "civitas/pkg/domain"
	"civitas/pkg/requestcontext"
)

// JWTClaims represents the claims we expect from the JWT validator.
type JWTClaims struct {
	CitizenID         string
	VerificationLevel string
}

// JWTValidator defines the interface for validating access tokens.
type JWTValidator interface {
	ValidateAccessToken(tokenString string) (*JWTClaims, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// authenticated citizen id in the context.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "

			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateAccessToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "invalid or expired token")
				return
			}

			citizenID, err := id.ParseCitizenID(claims.CitizenID)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - malformed subject",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithCitizenID(ctx, citizenID)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","message":"` + description + `"}`))
}
