package pii

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caredata-io/school-health-module-encryption/types"
)

func TestTokenizeDetokenizeRoundTrip(t *testing.T) {
	ctx := context.Background()
	vault := NewVault(nil)

	token, err := vault.Tokenize(ctx, "111-22-3333")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "tok_"))

	value, err := vault.Detokenize(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "111-22-3333", value)
}

func TestTokenizeReusesTokenForSameValue(t *testing.T) {
	ctx := context.Background()
	vault := NewVault(nil)

	first, err := vault.Tokenize(ctx, "same value")
	require.NoError(t, err)
	second, err := vault.Tokenize(ctx, "same value")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, vault.Len())

	other, err := vault.Tokenize(ctx, "different value")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestDetokenizeUnknownToken(t *testing.T) {
	ctx := context.Background()
	vault := NewVault(nil)

	_, err := vault.Detokenize(ctx, "tok_does-not-exist")
	require.Error(t, err)

	var detokErr *types.DetokenizeError
	require.True(t, errors.As(err, &detokErr))
	assert.Equal(t, "tok_does-not-exist", detokErr.Token)
}
