package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caredata-io/school-health-module-encryption/audit"
	"github.com/caredata-io/school-health-module-encryption/field"
	"github.com/caredata-io/school-health-module-encryption/keystore"
	"github.com/caredata-io/school-health-module-encryption/registry"
	"github.com/caredata-io/school-health-module-encryption/rowstore"
	"github.com/caredata-io/school-health-module-encryption/types"
)

type fixture struct {
	rows    *rowstore.MemoryStore
	keys    *keystore.MemoryStore
	cipher  *field.Service
	records *registry.MemoryRecordStore
	svc     *registry.Service
	ledger  *audit.Ledger
}

func strPtr(s string) *string { return &s }

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ledger := audit.NewLedger()
	rows := rowstore.NewMemoryStore()
	rows.AddTable("patients", []types.ColumnInfo{
		{Name: "id", Type: "TEXT"},
		{Name: "student_ssn", Type: "TEXT"},
		{Name: "notes", Type: "TEXT"},
	})
	rows.InsertRow("patients", "r1", map[string]*string{"student_ssn": strPtr("111-22-3333"), "notes": strPtr("flu shot")})
	rows.InsertRow("patients", "r2", map[string]*string{"student_ssn": strPtr("222-33-4444"), "notes": strPtr("allergy")})
	rows.InsertRow("patients", "r3", map[string]*string{"student_ssn": nil, "notes": strPtr("checkup")})

	keys := keystore.NewMemoryStore(ledger)
	cipher, err := field.NewService(keys, ledger)
	require.NoError(t, err)

	records := registry.NewMemoryRecordStore()
	svc, err := registry.NewService(rows, cipher, keys, records, ledger)
	require.NoError(t, err)

	return &fixture{rows: rows, keys: keys, cipher: cipher, records: records, svc: svc, ledger: ledger}
}

func TestEncryptColumnSkipsNullsAndRegisters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	key, err := f.keys.Generate(ctx, "", "column")
	require.NoError(t, err)

	n, err := f.svc.EncryptColumn(ctx, "patients", "student_ssn", key.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Null row untouched.
	assert.Nil(t, f.rows.GetValue("patients", "r3", "student_ssn"))

	// Values are blobs that decrypt back to the originals.
	blob := f.rows.GetValue("patients", "r1", "student_ssn")
	require.NotNil(t, blob)
	plaintext, err := f.cipher.Decrypt(ctx, key.ID, *blob)
	require.NoError(t, err)
	assert.Equal(t, "111-22-3333", plaintext)

	// Originals preserved in the shadow column.
	shadow := f.rows.GetValue("patients", "r1", "student_ssn"+registry.ShadowSuffix)
	require.NotNil(t, shadow)
	assert.Equal(t, "111-22-3333", *shadow)

	record, err := f.records.Get(ctx, "patients", "student_ssn")
	require.NoError(t, err)
	assert.Equal(t, key.ID, record.KeyID)
	assert.Equal(t, key.Algorithm, record.Algorithm)
	assert.NotEmpty(t, record.Checksum)

	valid, err := f.svc.ValidateEncryption(ctx, "patients", "student_ssn")
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestValidateEncryptionFailsOnPlaintext(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	valid, err := f.svc.ValidateEncryption(ctx, "patients", "student_ssn")
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestDecryptColumnRestoresAndCleansUp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	key, err := f.keys.Generate(ctx, "", "column")
	require.NoError(t, err)
	_, err = f.svc.EncryptColumn(ctx, "patients", "student_ssn", key.ID)
	require.NoError(t, err)

	cleanup, err := f.svc.DecryptColumn(ctx, "patients", "student_ssn", key.ID)
	require.NoError(t, err)
	require.NotNil(t, cleanup)
	assert.Equal(t, 2, cleanup.Attempted)
	assert.Equal(t, 2, cleanup.Discarded)
	assert.NoError(t, cleanup.Err)

	got := f.rows.GetValue("patients", "r2", "student_ssn")
	require.NotNil(t, got)
	assert.Equal(t, "222-33-4444", *got)

	// Shadow discarded, registry entry removed.
	assert.Nil(t, f.rows.GetValue("patients", "r2", "student_ssn"+registry.ShadowSuffix))
	_, err = f.records.Get(ctx, "patients", "student_ssn")
	assert.ErrorIs(t, err, types.ErrRecordNotFound)
}

func TestRotateColumnEncryption(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	k1, err := f.keys.Generate(ctx, "", "column")
	require.NoError(t, err)
	_, err = f.svc.EncryptColumn(ctx, "patients", "student_ssn", k1.ID)
	require.NoError(t, err)

	k2, err := f.keys.Generate(ctx, "", "column")
	require.NoError(t, err)

	require.NoError(t, f.svc.RotateColumnEncryption(ctx, "patients", "student_ssn", k1.ID, k2.ID))

	valid, err := f.svc.ValidateEncryption(ctx, "patients", "student_ssn")
	require.NoError(t, err)
	assert.True(t, valid)

	record, err := f.records.Get(ctx, "patients", "student_ssn")
	require.NoError(t, err)
	assert.Equal(t, k2.ID, record.KeyID)

	rotated, err := f.keys.Get(ctx, k1.ID)
	require.NoError(t, err)
	assert.Equal(t, types.KeyStatusRotated, rotated.Status)

	// Rows decrypt under the new key.
	blob := f.rows.GetValue("patients", "r1", "student_ssn")
	require.NotNil(t, blob)
	plaintext, err := f.cipher.Decrypt(ctx, k2.ID, *blob)
	require.NoError(t, err)
	assert.Equal(t, "111-22-3333", plaintext)
}

func TestRotateSharedKeyStaysActiveUntilLastColumn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	k1, err := f.keys.Generate(ctx, "", "column")
	require.NoError(t, err)
	outcomes := f.svc.EncryptMultipleColumns(ctx, "patients", []string{"student_ssn", "notes"}, k1.ID)
	require.Len(t, outcomes, 2)
	for _, outcome := range outcomes {
		require.NoError(t, outcome.Err)
	}

	k2, err := f.keys.Generate(ctx, "", "column")
	require.NoError(t, err)

	// Rotating one of the two columns must not retire the key while
	// patients.notes is still encrypted under it.
	require.NoError(t, f.svc.RotateColumnEncryption(ctx, "patients", "student_ssn", k1.ID, k2.ID))

	shared, err := f.keys.Get(ctx, k1.ID)
	require.NoError(t, err)
	assert.Equal(t, types.KeyStatusActive, shared.Status)

	record, err := f.records.Get(ctx, "patients", "notes")
	require.NoError(t, err)
	assert.Equal(t, k1.ID, record.KeyID)

	// The still-active key keeps encrypting.
	_, err = f.cipher.Encrypt(ctx, k1.ID, "new note")
	require.NoError(t, err)

	// Rotating the last column retires it.
	require.NoError(t, f.svc.RotateColumnEncryption(ctx, "patients", "notes", k1.ID, k2.ID))
	rotated, err := f.keys.Get(ctx, k1.ID)
	require.NoError(t, err)
	assert.Equal(t, types.KeyStatusRotated, rotated.Status)
}

func TestRotateRejectsWrongOldKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	k1, err := f.keys.Generate(ctx, "", "column")
	require.NoError(t, err)
	_, err = f.svc.EncryptColumn(ctx, "patients", "student_ssn", k1.ID)
	require.NoError(t, err)

	k2, err := f.keys.Generate(ctx, "", "column")
	require.NoError(t, err)

	err = f.svc.RotateColumnEncryption(ctx, "patients", "student_ssn", "wrong-key", k2.ID)
	require.Error(t, err)

	// Nothing changed.
	record, err := f.records.Get(ctx, "patients", "student_ssn")
	require.NoError(t, err)
	assert.Equal(t, k1.ID, record.KeyID)
}

func TestEncryptMultipleColumnsFailSoft(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	key, err := f.keys.Generate(ctx, "", "column")
	require.NoError(t, err)
	require.NoError(t, f.keys.Revoke(ctx, key.ID))

	outcomes := f.svc.EncryptMultipleColumns(ctx, "patients", []string{"student_ssn", "notes"}, key.ID)
	require.Len(t, outcomes, 2, "a failing column must not stop the batch")
	for _, outcome := range outcomes {
		assert.Error(t, outcome.Err)
	}
}

func TestEncryptMultipleColumnsSuccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	key, err := f.keys.Generate(ctx, "", "column")
	require.NoError(t, err)

	outcomes := f.svc.EncryptMultipleColumns(ctx, "patients", []string{"student_ssn", "notes"}, key.ID)
	require.Len(t, outcomes, 2)
	assert.NoError(t, outcomes[0].Err)
	assert.Equal(t, 2, outcomes[0].Rows)
	assert.NoError(t, outcomes[1].Err)
	assert.Equal(t, 3, outcomes[1].Rows)

	records, err := f.records.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestTrackerRecordsBulkOperations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	key, err := f.keys.Generate(ctx, "", "column")
	require.NoError(t, err)
	_, err = f.svc.EncryptColumn(ctx, "patients", "student_ssn", key.ID)
	require.NoError(t, err)

	processes := f.svc.Tracker().ListProcesses()
	require.Len(t, processes, 1)
	assert.Equal(t, registry.StatusCompleted, processes[0].Status)
	assert.Equal(t, "encrypt", processes[0].Operation)
	assert.Equal(t, 1.0, processes[0].Progress)
}

func TestBenchmarkEncryption(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	result, err := f.svc.BenchmarkEncryption(ctx, types.AlgorithmAES256GCM)
	require.NoError(t, err)
	assert.Equal(t, 250, result.Ops)
	assert.Greater(t, result.OpsPerSecond, 0.0)

	// No persistent side effects.
	records, err := f.records.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}
