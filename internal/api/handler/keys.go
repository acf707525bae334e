package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kiranshivaraju/kafkaops/internal/api/response"
	"github.com/kiranshivaraju/kafkaops/internal/apikey"
	"github.com/kiranshivaraju/kafkaops/internal/store"
	"github.com/kiranshivaraju/kafkaops/pkg/models"
)

// createdKey is returned once, at creation; it is the only response carrying
// the raw key.
type createdKey struct {
	*models.APIKey
	Key string `json:"key"`
}

// NewCreateKeyHandler returns an http.HandlerFunc for POST /api/v1/admin/keys.
func NewCreateKeyHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name   string   `json:"name"`
			Scopes []string `json:"scopes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "Invalid JSON body", nil)
			return
		}

		raw, key, err := apikey.Generate(req.Name, req.Scopes, bcrypt.DefaultCost)
		if err != nil {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, err.Error(), nil)
			return
		}

		if err := s.CreateAPIKey(r.Context(), key); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				response.Error(w, http.StatusConflict, response.CodeDuplicateKey, "API key already exists", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, response.CodeInternal, "Failed to create key", nil)
			return
		}

		response.Created(w, createdKey{APIKey: key, Key: raw})
	}
}

// NewListKeysHandler returns an http.HandlerFunc for GET /api/v1/admin/keys.
func NewListKeysHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keys, err := s.ListAPIKeys(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError, response.CodeInternal, "Failed to list keys", nil)
			return
		}
		if keys == nil {
			keys = []*models.APIKey{}
		}
		response.OK(w, keys)
	}
}

// NewRevokeKeyHandler returns an http.HandlerFunc for DELETE /api/v1/admin/keys/{keyID}.
func NewRevokeKeyHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "keyID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "keyID must be a valid UUID", nil)
			return
		}

		if err := s.RevokeAPIKey(r.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, response.CodeKeyNotFound, "API key not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, response.CodeInternal, "Failed to revoke key", nil)
			return
		}
		response.NoContent(w)
	}
}
