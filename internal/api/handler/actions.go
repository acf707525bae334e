package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/kafkaops/internal/action"
	"github.com/kiranshivaraju/kafkaops/internal/api/response"
	"github.com/kiranshivaraju/kafkaops/pkg/models"
)

const maxRequestBytes = 1 << 20

// ActionCatalog lists and invokes registered actions.
type ActionCatalog interface {
	List() []action.Info
	Invoke(ctx context.Context, name string, input json.RawMessage) (any, error)
}

// RunStarter starts asynchronous runs.
type RunStarter interface {
	Start(ctx context.Context, name string, input json.RawMessage) (*models.Run, error)
}

// NewListActionsHandler returns an http.HandlerFunc for GET /api/v1/actions.
func NewListActionsHandler(catalog ActionCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response.OK(w, catalog.List())
	}
}

// NewInvokeActionHandler returns an http.HandlerFunc for POST /api/v1/actions/{name}.
// The action runs synchronously; failures inside the action are part of the
// 200 response body, not HTTP errors.
func NewInvokeActionHandler(catalog ActionCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		input, ok := readInput(w, r)
		if !ok {
			return
		}

		resp, err := catalog.Invoke(r.Context(), name, input)
		if err != nil {
			writeActionError(w, name, err)
			return
		}
		response.OK(w, resp)
	}
}

// NewStartRunHandler returns an http.HandlerFunc for POST /api/v1/actions/{name}/runs.
func NewStartRunHandler(runs RunStarter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		input, ok := readInput(w, r)
		if !ok {
			return
		}

		run, err := runs.Start(r.Context(), name, input)
		if err != nil {
			writeActionError(w, name, err)
			return
		}
		response.Accepted(w, run)
	}
}

// readInput reads the request body and rejects anything that is not JSON.
// An empty body is passed through as no input.
func readInput(w http.ResponseWriter, r *http.Request) (json.RawMessage, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "Request body too large or unreadable", nil)
		return nil, false
	}
	if len(body) > 0 && !json.Valid(body) {
		response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "Invalid JSON body", nil)
		return nil, false
	}
	return body, true
}

func writeActionError(w http.ResponseWriter, name string, err error) {
	switch {
	case errors.Is(err, action.ErrUnknownAction):
		response.Error(w, http.StatusNotFound, response.CodeActionNotFound, "No action named "+name, nil)
	case action.IsValidation(err):
		response.Error(w, http.StatusUnprocessableEntity, response.CodeValidationFailed, err.Error(), nil)
	default:
		slog.Error("action request failed", "action", name, "error", err)
		response.Error(w, http.StatusInternalServerError, response.CodeInternal, "An unexpected error occurred", nil)
	}
}
