// Package apikey mints bearer keys for the API.
package apikey

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kiranshivaraju/kafkaops/pkg/models"
)

const (
	// Prefix starts every raw key.
	Prefix = "ko_"
	// PrefixLen is how many leading characters are stored in clear for lookup.
	PrefixLen = 8

	secretBytes = 24
)

var ErrInvalidScope = errors.New("invalid scope")

var knownScopes = map[string]bool{
	models.ScopeInvoke: true,
	models.ScopeAdmin:  true,
}

// Generate creates a key named name. The raw key is returned once and only
// its bcrypt hash is kept on the model. Empty scopes default to invoke.
func Generate(name string, scopes []string, cost int) (string, *models.APIKey, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil, errors.New("name is required")
	}
	if len(scopes) == 0 {
		scopes = []string{models.ScopeInvoke}
	}
	for _, s := range scopes {
		if !knownScopes[s] {
			return "", nil, fmt.Errorf("%w: %q", ErrInvalidScope, s)
		}
	}

	secret := make([]byte, secretBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", nil, fmt.Errorf("reading random bytes: %w", err)
	}
	raw := Prefix + hex.EncodeToString(secret)

	hash, err := bcrypt.GenerateFromPassword([]byte(raw), cost)
	if err != nil {
		return "", nil, fmt.Errorf("hashing key: %w", err)
	}

	now := time.Now().UTC()
	return raw, &models.APIKey{
		ID:        uuid.New(),
		Name:      name,
		KeyHash:   string(hash),
		KeyPrefix: raw[:PrefixLen],
		Scopes:    scopes,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ErrMalformed reports a bearer token that cannot be one of our keys.
var ErrMalformed = errors.New("malformed api key")

// LookupPrefix returns the stored prefix for raw, used to find candidate keys
// before the bcrypt comparison.
func LookupPrefix(raw string) (string, error) {
	if len(raw) < PrefixLen || !strings.HasPrefix(raw, Prefix) {
		return "", ErrMalformed
	}
	return raw[:PrefixLen], nil
}

// Match returns the first candidate whose hash matches raw, or nil.
func Match(candidates []*models.APIKey, raw string) *models.APIKey {
	for _, k := range candidates {
		if bcrypt.CompareHashAndPassword([]byte(k.KeyHash), []byte(raw)) == nil {
			return k
		}
	}
	return nil
}
