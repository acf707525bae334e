package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

const (
	// ScopeInvoke allows listing, invoking and running actions.
	ScopeInvoke = "invoke"
	// ScopeAdmin allows everything, including key management.
	ScopeAdmin = "admin"
)

// APIKey is a bearer credential. The raw key is shown once when minted; the
// store keeps its bcrypt hash and an 8 character prefix for lookup.
// Revoked keys keep their row with DeletedAt set.
type APIKey struct {
	ID         uuid.UUID  `db:"id"           json:"id"`
	Name       string     `db:"name"         json:"name"`
	KeyPrefix  string     `db:"key_prefix"   json:"key_prefix"`
	KeyHash    string     `db:"key_hash"     json:"-"`
	Scopes     []string   `db:"scopes"       json:"scopes"`
	LastUsedAt *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at"   json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"   json:"updated_at"`
	DeletedAt  *time.Time `db:"deleted_at"   json:"-"`
}

func (k *APIKey) HasScope(scope string) bool {
	return slices.Contains(k.Scopes, ScopeAdmin) || slices.Contains(k.Scopes, scope)
}
