package rowstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caredata-io/school-health-module-encryption/types"
)

func strPtr(s string) *string { return &s }

func TestSelectWhereColumnNotNull(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.AddTable("visits", []types.ColumnInfo{{Name: "id", Type: "TEXT"}, {Name: "diagnosis", Type: "TEXT"}})
	store.InsertRow("visits", "b", map[string]*string{"diagnosis": strPtr("second")})
	store.InsertRow("visits", "a", map[string]*string{"diagnosis": strPtr("first")})
	store.InsertRow("visits", "c", map[string]*string{"diagnosis": nil})

	rows, err := store.SelectWhereColumnNotNull(ctx, "visits", "diagnosis")
	require.NoError(t, err)

	// Deterministic order by primary key, nulls excluded.
	require.Len(t, rows, 2)
	assert.Equal(t, types.Row{Key: "a", Value: "first"}, rows[0])
	assert.Equal(t, types.Row{Key: "b", Value: "second"}, rows[1])
}

func TestUpdateColumnByKey(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.AddTable("visits", nil)
	store.InsertRow("visits", "a", map[string]*string{"diagnosis": strPtr("first")})

	require.NoError(t, store.UpdateColumnByKey(ctx, "visits", "diagnosis", "a", strPtr("updated")))
	got := store.GetValue("visits", "a", "diagnosis")
	require.NotNil(t, got)
	assert.Equal(t, "updated", *got)

	// Nil stores NULL.
	require.NoError(t, store.UpdateColumnByKey(ctx, "visits", "diagnosis", "a", nil))
	assert.Nil(t, store.GetValue("visits", "a", "diagnosis"))

	err := store.UpdateColumnByKey(ctx, "visits", "diagnosis", "missing", strPtr("x"))
	assert.ErrorIs(t, err, types.ErrRecordNotFound)
}

func TestSchemaProvider(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.AddTable("visits", []types.ColumnInfo{{Name: "id", Type: "TEXT"}})
	store.AddTable("patients", []types.ColumnInfo{{Name: "id", Type: "TEXT"}, {Name: "student_ssn", Type: "TEXT"}})

	tables, err := store.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"patients", "visits"}, tables)

	columns, err := store.Columns(ctx, "patients")
	require.NoError(t, err)
	assert.Len(t, columns, 2)

	_, err = store.Columns(ctx, "unknown")
	assert.ErrorIs(t, err, types.ErrColumnNotFound)
}
