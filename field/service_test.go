package field_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caredata-io/school-health-module-encryption/audit"
	"github.com/caredata-io/school-health-module-encryption/field"
	"github.com/caredata-io/school-health-module-encryption/keystore"
	"github.com/caredata-io/school-health-module-encryption/types"
)

func newTestService(t *testing.T) (*field.Service, *keystore.MemoryStore, *audit.Ledger) {
	t.Helper()
	ledger := audit.NewLedger()
	keys := keystore.NewMemoryStore(ledger)
	svc, err := field.NewService(keys, ledger)
	require.NoError(t, err)
	return svc, keys, ledger
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, keys, _ := newTestService(t)

	key, err := keys.Generate(ctx, types.AlgorithmAES256GCM, "column")
	require.NoError(t, err)

	blob, err := svc.Encrypt(ctx, key.ID, "111-22-3333")
	require.NoError(t, err)
	require.NotEqual(t, "111-22-3333", blob)

	plaintext, err := svc.Decrypt(ctx, key.ID, blob)
	require.NoError(t, err)
	assert.Equal(t, "111-22-3333", plaintext)
}

func TestEncryptUnknownKey(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.Encrypt(ctx, "no-such-key", "value")
	require.Error(t, err)

	var notFound *types.KeyNotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestRevokedKeyDecryptsButNeverEncrypts(t *testing.T) {
	ctx := context.Background()
	svc, keys, _ := newTestService(t)

	key, err := keys.Generate(ctx, "", "column")
	require.NoError(t, err)

	blob, err := svc.Encrypt(ctx, key.ID, "sensitive value")
	require.NoError(t, err)

	require.NoError(t, keys.Revoke(ctx, key.ID))

	_, err = svc.Encrypt(ctx, key.ID, "another value")
	require.Error(t, err)
	var inactive *types.KeyInactiveError
	require.True(t, errors.As(err, &inactive))
	assert.Equal(t, types.KeyStatusRevoked, inactive.Status)

	// Data written before revocation must stay readable.
	plaintext, err := svc.Decrypt(ctx, key.ID, blob)
	require.NoError(t, err)
	assert.Equal(t, "sensitive value", plaintext)
}

func TestDecryptFailureIsAudited(t *testing.T) {
	ctx := audit.WithActor(context.Background(), "tester")
	svc, keys, ledger := newTestService(t)

	key, err := keys.Generate(ctx, "", "column")
	require.NoError(t, err)

	_, err = svc.Decrypt(ctx, key.ID, "not-a-blob")
	require.Error(t, err)

	failed := false
	events, err := ledger.Query(ctx, types.AuditFilter{
		ActorID: "tester",
		Action:  audit.ActionFieldDecrypt,
		Success: &failed,
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, types.SeverityHigh, events[0].Severity)
}
