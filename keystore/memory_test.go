package keystore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caredata-io/school-health-module-encryption/types"
)

func TestGenerateDefaults(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)

	key, err := store.Generate(ctx, "", "column")
	require.NoError(t, err)

	assert.NotEmpty(t, key.ID)
	assert.Equal(t, types.AlgorithmAES256GCM, key.Algorithm)
	assert.Len(t, key.Material, 32)
	assert.Equal(t, types.KeyStatusActive, key.Status)
	assert.Equal(t, "column", key.Usage)
	assert.WithinDuration(t, key.CreatedAt.Add(types.DefaultKeyLifetime), key.ExpiresAt, time.Minute)
}

func TestGenerateUnsupportedAlgorithm(t *testing.T) {
	store := NewMemoryStore(nil)

	_, err := store.Generate(context.Background(), "ROT13", "column")
	require.Error(t, err)

	var validationErr *types.ValidationError
	assert.True(t, errors.As(err, &validationErr))
}

func TestGetUnknownKey(t *testing.T) {
	store := NewMemoryStore(nil)

	_, err := store.Get(context.Background(), "missing")
	var notFound *types.KeyNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "missing", notFound.KeyID)
}

func TestPutValidatesMaterialLength(t *testing.T) {
	store := NewMemoryStore(nil)

	err := store.Put(context.Background(), &types.EncryptionKey{
		ID:        "k1",
		Algorithm: types.AlgorithmAES256GCM,
		Material:  []byte("too short"),
	})
	require.Error(t, err)

	var validationErr *types.ValidationError
	assert.True(t, errors.As(err, &validationErr))
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)

	k1, err := store.Generate(ctx, types.AlgorithmAES256GCM, "column")
	require.NoError(t, err)
	k2, err := store.Generate(ctx, types.AlgorithmAES128GCM, "field")
	require.NoError(t, err)
	require.NoError(t, store.Revoke(ctx, k2.ID))

	active, err := store.List(ctx, types.KeyFilter{Status: types.KeyStatusActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, k1.ID, active[0].ID)

	byUsage, err := store.List(ctx, types.KeyFilter{Usage: "field"})
	require.NoError(t, err)
	require.Len(t, byUsage, 1)
	assert.Equal(t, k2.ID, byUsage[0].ID)

	all, err := store.List(ctx, types.KeyFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStatusTransitions(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		from    types.KeyStatus
		to      types.KeyStatus
		allowed bool
	}{
		{"active to rotated", types.KeyStatusActive, types.KeyStatusRotated, true},
		{"active to revoked", types.KeyStatusActive, types.KeyStatusRevoked, true},
		{"rotated to revoked", types.KeyStatusRotated, types.KeyStatusRevoked, true},
		{"rotated to active", types.KeyStatusRotated, types.KeyStatusActive, false},
		{"revoked to active", types.KeyStatusRevoked, types.KeyStatusActive, false},
		{"revoked to rotated", types.KeyStatusRevoked, types.KeyStatusRotated, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore(nil)
			key, err := store.Generate(ctx, "", "column")
			require.NoError(t, err)

			if tt.from != types.KeyStatusActive {
				key.Status = tt.from
			}

			err = store.UpdateStatus(ctx, key.ID, tt.to)
			if tt.allowed {
				require.NoError(t, err)
				got, err := store.Get(ctx, key.ID)
				require.NoError(t, err)
				assert.Equal(t, tt.to, got.Status)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestRevokeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)

	key, err := store.Generate(ctx, "", "column")
	require.NoError(t, err)

	require.NoError(t, store.Revoke(ctx, key.ID))
	require.NoError(t, store.Revoke(ctx, key.ID))

	got, err := store.Get(ctx, key.ID)
	require.NoError(t, err)
	assert.Equal(t, types.KeyStatusRevoked, got.Status)
}

func TestExportOmitsMaterial(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)

	key, err := store.Generate(ctx, "", "column")
	require.NoError(t, err)

	export, err := store.Export(ctx, key.ID)
	require.NoError(t, err)
	assert.Equal(t, key.ID, export.ID)
	assert.Equal(t, key.Algorithm, export.Algorithm)
	assert.Equal(t, key.Status, export.Status)
}
