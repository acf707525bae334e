// Package response writes the API's JSON envelopes: {"data": ...} on
// success and {"error": {code, message, details}} on failure.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Error codes carried in the envelope's "code" field.
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeInvalidToken     = "INVALID_TOKEN"
	CodeForbidden        = "FORBIDDEN"
	CodeActionNotFound   = "ACTION_NOT_FOUND"
	CodeRunNotFound      = "RUN_NOT_FOUND"
	CodeKeyNotFound      = "KEY_NOT_FOUND"
	CodeDuplicateKey     = "DUPLICATE_KEY"
	CodeRateLimited      = "RATE_LIMIT_EXCEEDED"
	CodeNotImplemented   = "NOT_IMPLEMENTED"
	CodeDegraded         = "DEGRADED"
	CodeInternal         = "INTERNAL_ERROR"
)

// Meta describes one page of a collection.
type Meta struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasNext bool `json:"has_next"`
}

// NewMeta builds the Meta for a 1-based page of limit items out of total.
func NewMeta(page, limit, total int) Meta {
	return Meta{Page: page, Limit: limit, Total: total, HasNext: page*limit < total}
}

type payload struct {
	Data  any      `json:"data,omitempty"`
	Meta  *Meta    `json:"meta,omitempty"`
	Error *problem `json:"error,omitempty"`
}

type problem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// OK writes data with 200.
func OK(w http.ResponseWriter, data any) { write(w, http.StatusOK, payload{Data: data}) }

// Created writes data with 201.
func Created(w http.ResponseWriter, data any) { write(w, http.StatusCreated, payload{Data: data}) }

// Accepted writes data with 202.
func Accepted(w http.ResponseWriter, data any) { write(w, http.StatusAccepted, payload{Data: data}) }

func NoContent(w http.ResponseWriter) { w.WriteHeader(http.StatusNoContent) }

// Page writes one page of a collection with its Meta.
func Page(w http.ResponseWriter, items any, meta Meta) {
	write(w, http.StatusOK, payload{Data: items, Meta: &meta})
}

// Error writes an error envelope. details is omitted when nil.
func Error(w http.ResponseWriter, status int, code, message string, details any) {
	write(w, status, payload{Error: &problem{Code: code, Message: message, Details: details}})
}

func write(w http.ResponseWriter, status int, p payload) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		slog.Error("writing response", "status", status, "error", err)
	}
}
