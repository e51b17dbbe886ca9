package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"ipsgateway/internal/common/api"
	"ipsgateway/internal/consent"
)

// Supported Open Banking API version. The x-v header must match.
const apiVersion = "1"

type contextKey string

const tokenContextKey contextKey = "token_context"

// TokenFromContext returns the validated token context placed by Auth.
func TokenFromContext(ctx context.Context) consent.TokenContext {
	tc, _ := ctx.Value(tokenContextKey).(consent.TokenContext)
	return tc
}

// Auth enforces the Open Banking header contract: bearer token,
// ParticipantId, and x-v version negotiation. Checks run in contract
// order so a request missing several headers always gets the same
// error. The x-v value is echoed on every response that gets past
// version negotiation.
func Auth(validator consent.Validator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				api.WriteError(w, http.StatusUnauthorized, api.CodeInvalidToken,
					"Unauthorized", "missing or malformed Authorization header")
				return
			}
			token := strings.TrimPrefix(authz, "Bearer ")

			participantID := r.Header.Get("ParticipantId")
			if participantID == "" {
				api.BadRequest(w, api.CodeMissingParticipantID, "ParticipantId header is required")
				return
			}

			version := r.Header.Get("x-v")
			if version == "" {
				api.BadRequest(w, api.CodeMissingVersion, "x-v header is required")
				return
			}
			if version != apiVersion {
				api.WriteError(w, http.StatusNotAcceptable, api.CodeUnsupportedVersion,
					"Not acceptable", "unsupported version: "+version)
				return
			}
			w.Header().Set("x-v", version)

			tc, err := validator.Validate(r.Context(), token)
			if err != nil {
				if errors.Is(err, consent.ErrInvalidToken) {
					api.WriteError(w, http.StatusUnauthorized, api.CodeInvalidToken,
						"Unauthorized", "invalid or expired access token")
					return
				}
				logger.Error("token validation failed", "error", err)
				api.InternalError(w, "token validation unavailable")
				return
			}

			if !strings.EqualFold(tc.ParticipantID, participantID) {
				api.WriteError(w, http.StatusForbidden, api.CodeParticipantMismatch,
					"Forbidden", "token was not issued to this participant")
				return
			}

			ctx := context.WithValue(r.Context(), tokenContextKey, tc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireScope rejects requests whose token lacks the given scope.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !TokenFromContext(r.Context()).HasScope(scope) {
				api.WriteError(w, http.StatusForbidden, api.CodeInsufficientScope,
					"Forbidden", "token does not grant scope "+scope)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
