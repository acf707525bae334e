package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/kafkaops/internal/api/response"
	"github.com/kiranshivaraju/kafkaops/internal/store"
	"github.com/kiranshivaraju/kafkaops/pkg/models"
)

// RunReader reads run state.
type RunReader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Run, error)
	Status(ctx context.Context, id uuid.UUID) (string, error)
	List(ctx context.Context, filter store.RunFilter) ([]*models.Run, int, error)
}

var validRunStatuses = map[string]bool{
	models.RunStatusPending:   true,
	models.RunStatusRunning:   true,
	models.RunStatusCompleted: true,
	models.RunStatusFailed:    true,
}

// NewGetRunHandler returns an http.HandlerFunc for GET /api/v1/runs/{runID}.
func NewGetRunHandler(runs RunReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseRunID(w, r)
		if !ok {
			return
		}

		run, err := runs.Get(r.Context(), id)
		if err != nil {
			writeRunError(w, err)
			return
		}
		response.OK(w, run)
	}
}

// NewRunStatusHandler returns an http.HandlerFunc for GET /api/v1/runs/{runID}/status.
func NewRunStatusHandler(runs RunReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseRunID(w, r)
		if !ok {
			return
		}

		status, err := runs.Status(r.Context(), id)
		if err != nil {
			writeRunError(w, err)
			return
		}
		response.OK(w, map[string]any{"id": id, "status": status})
	}
}

// NewListRunsHandler returns an http.HandlerFunc for GET /api/v1/runs.
// Supports action, status, since (RFC3339), page and limit query parameters.
func NewListRunsHandler(runs RunReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := store.RunFilter{
			Action: q.Get("action"),
			Status: q.Get("status"),
			Page:   1,
			Limit:  20,
		}

		if filter.Status != "" && !validRunStatuses[filter.Status] {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest,
				"status must be one of pending, running, completed, failed", nil)
			return
		}
		if s := q.Get("since"); s != "" {
			since, err := time.Parse(time.RFC3339, s)
			if err != nil {
				response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "since must be a valid RFC3339 timestamp", nil)
				return
			}
			filter.Since = since
		}
		if p := q.Get("page"); p != "" {
			n, err := strconv.Atoi(p)
			if err != nil || n < 1 {
				response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "page must be a positive integer", nil)
				return
			}
			filter.Page = n
		}
		if l := q.Get("limit"); l != "" {
			n, err := strconv.Atoi(l)
			if err != nil || n < 1 || n > 100 {
				response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "limit must be between 1 and 100", nil)
				return
			}
			filter.Limit = n
		}

		list, total, err := runs.List(r.Context(), filter)
		if err != nil {
			writeRunError(w, err)
			return
		}

		response.Page(w, list, response.NewMeta(filter.Page, filter.Limit, total))
	}
}

func parseRunID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "runID must be a valid UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}

func writeRunError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		response.Error(w, http.StatusNotFound, response.CodeRunNotFound, "Run not found", nil)
		return
	}
	response.Error(w, http.StatusInternalServerError, response.CodeInternal, "An unexpected error occurred", nil)
}
