package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/kafkaops/internal/api/response"
	"github.com/kiranshivaraju/kafkaops/internal/apikey"
	"github.com/kiranshivaraju/kafkaops/internal/store"
	"github.com/kiranshivaraju/kafkaops/pkg/models"
)

// Auth checks bearer API keys against the store.
type Auth struct {
	store store.Store
}

func NewAuth(s store.Store) *Auth {
	return &Auth{store: s}
}

// Authenticate resolves the bearer token to an API key and stores the
// Caller in the request context. Any failure is a 401 INVALID_TOKEN, except
// a store error which is a 500.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			unauthorized(w, "Missing or invalid Authorization header")
			return
		}
		prefix, err := apikey.LookupPrefix(raw)
		if err != nil {
			unauthorized(w, "Invalid API key format")
			return
		}

		candidates, err := a.store.GetAPIKeyByPrefix(r.Context(), prefix)
		if err != nil {
			slog.ErrorContext(r.Context(), "api key lookup failed", "key_prefix", prefix, "error", err)
			response.Error(w, http.StatusInternalServerError, response.CodeInternal, "Failed to validate API key", nil)
			return
		}
		key := apikey.Match(candidates, raw)
		if key == nil {
			unauthorized(w, "Invalid API key")
			return
		}

		go a.touch(key)

		ctx := WithCaller(r.Context(), &Caller{KeyID: key.ID, KeyPrefix: prefix, Scopes: key.Scopes})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Auth) touch(key *models.APIKey) {
	if err := a.store.UpdateAPIKeyLastUsed(context.Background(), key.ID); err != nil {
		slog.Warn("updating api key last_used_at", "key_id", key.ID, "error", err)
	}
}

// RequireScope rejects callers whose key lacks scope with 403. Admin keys
// pass every check.
func (a *Auth) RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := CallerFrom(r.Context())
			if !ok || !(&models.APIKey{Scopes: caller.Scopes}).HasScope(scope) {
				response.Error(w, http.StatusForbidden, response.CodeForbidden, "Insufficient permissions", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	response.Error(w, http.StatusUnauthorized, response.CodeInvalidToken, msg, nil)
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
