package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/kafkaops/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")
var ErrInvalidTransition = errors.New("invalid run status transition")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error

	CreateRun(ctx context.Context, run *models.Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*models.Run, int, error)
	UpdateRunStatus(ctx context.Context, id uuid.UUID, status string, opts ...RunUpdateOption) error
}

type RunFilter struct {
	Action string
	Status string
	Since  time.Time
	Page   int
	Limit  int
}

type runUpdateParams struct {
	Response     json.RawMessage
	ErrorMessage *string
}

type RunUpdateOption func(*runUpdateParams)

func WithResponse(resp json.RawMessage) RunUpdateOption {
	return func(p *runUpdateParams) {
		p.Response = resp
	}
}

func WithErrorMessage(msg string) RunUpdateOption {
	return func(p *runUpdateParams) {
		p.ErrorMessage = &msg
	}
}

// ApplyRunUpdate resolves opts into the response and error message they set.
func ApplyRunUpdate(opts ...RunUpdateOption) (json.RawMessage, *string) {
	params := &runUpdateParams{}
	for _, opt := range opts {
		opt(params)
	}
	return params.Response, params.ErrorMessage
}
