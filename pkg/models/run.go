package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run tracks one asynchronous action invocation. The API returns a run_id on
// POST /api/v1/actions/{name}/runs; the client polls GET /api/v1/runs/{run_id}
// until status is completed or failed.
//
// A run is completed when the action returned a response, even one reporting
// success=false; failed means the action could not produce a response at all.
type Run struct {
	ID           uuid.UUID       `db:"id"            json:"id"`
	Action       string          `db:"action"        json:"action"`
	Status       string          `db:"status"        json:"status"`
	Request      json.RawMessage `db:"request"       json:"request"`
	Response     json.RawMessage `db:"response"      json:"response,omitempty"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	StartedAt    *time.Time      `db:"started_at"    json:"started_at,omitempty"`
	CompletedAt  *time.Time      `db:"completed_at"  json:"completed_at,omitempty"`
	CreatedAt    time.Time       `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"    json:"updated_at"`
}

// Finished reports whether the run reached a terminal status.
func (r *Run) Finished() bool {
	return r.Status == RunStatusCompleted || r.Status == RunStatusFailed
}
