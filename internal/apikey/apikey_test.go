package apikey

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/kiranshivaraju/kafkaops/pkg/models"
)

func TestGenerate(t *testing.T) {
	raw, key, err := Generate("  ci-bot ", nil, bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(raw, Prefix))
	assert.Len(t, raw, len(Prefix)+2*secretBytes)
	assert.Equal(t, raw[:PrefixLen], key.KeyPrefix)
	assert.Equal(t, "ci-bot", key.Name)
	assert.Equal(t, []string{models.ScopeInvoke}, key.Scopes)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(key.KeyHash), []byte(raw)))
	assert.NotContains(t, key.KeyHash, raw)
}

func TestGenerate_Unique(t *testing.T) {
	a, _, err := Generate("a", nil, bcrypt.MinCost)
	require.NoError(t, err)
	b, _, err := Generate("a", nil, bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestGenerate_Errors(t *testing.T) {
	_, _, err := Generate(" ", nil, bcrypt.MinCost)
	assert.ErrorContains(t, err, "name is required")

	_, _, err = Generate("k", []string{"invoke", "root"}, bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrInvalidScope)
}

func TestLookupPrefix(t *testing.T) {
	prefix, err := LookupPrefix("ko_abcdef0123")
	require.NoError(t, err)
	assert.Equal(t, "ko_abcde", prefix)

	for _, raw := range []string{"", "ko_abc", "lhk_1234567890", "KO_abcdef0123"} {
		_, err := LookupPrefix(raw)
		assert.ErrorIs(t, err, ErrMalformed, raw)
	}
}

func TestMatch(t *testing.T) {
	raw, key, err := Generate("ops", nil, bcrypt.MinCost)
	require.NoError(t, err)
	_, other, err := Generate("other", nil, bcrypt.MinCost)
	require.NoError(t, err)

	assert.Same(t, key, Match([]*models.APIKey{other, key}, raw))
	assert.Nil(t, Match([]*models.APIKey{other}, raw))
	assert.Nil(t, Match(nil, raw))
}
