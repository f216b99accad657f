package token_test

import (
	"strings"
	"testing"

	"github.com/kiranshivaraju/jobtracker/internal/api/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestGenerate(t *testing.T) {
	tok, err := token.Generate(token.AccessPrefix, bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(tok.Raw, token.AccessPrefix))
	assert.Len(t, tok.Prefix, token.PrefixLen)
	assert.Equal(t, tok.Raw[:token.PrefixLen], tok.Prefix)
	assert.LessOrEqual(t, len(tok.Raw), 72, "bcrypt only hashes the first 72 bytes")
	assert.True(t, token.Matches(tok.Hash, tok.Raw))
	assert.False(t, token.Matches(tok.Hash, tok.Raw+"x"))
}

func TestGenerate_Unique(t *testing.T) {
	a, err := token.Generate(token.RefreshPrefix, bcrypt.MinCost)
	require.NoError(t, err)
	b, err := token.Generate(token.RefreshPrefix, bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, a.Raw, b.Raw)
}

func TestPrefix(t *testing.T) {
	tok, err := token.Generate(token.RefreshPrefix, bcrypt.MinCost)
	require.NoError(t, err)

	p, err := token.Prefix(token.RefreshPrefix, tok.Raw)
	require.NoError(t, err)
	assert.Equal(t, tok.Prefix, p)

	_, err = token.Prefix(token.AccessPrefix, tok.Raw)
	assert.ErrorIs(t, err, token.ErrMalformed)

	_, err = token.Prefix(token.AccessPrefix, "jt_short")
	assert.ErrorIs(t, err, token.ErrMalformed)
}
