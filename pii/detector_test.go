package pii

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caredata-io/school-health-module-encryption/rowstore"
	"github.com/caredata-io/school-health-module-encryption/types"
)

func TestClassifyColumn(t *testing.T) {
	tests := []struct {
		column string
		want   types.PIICategory
	}{
		{"student_ssn", types.PIISSN},
		{"social_security_number", types.PIISSN},
		{"email", types.PIIEmail},
		{"parent_email_address", types.PIIEmail},
		{"phone_number", types.PIIPhone},
		{"mobile", types.PIIPhone},
		{"credit_card", types.PIICreditCard},
		{"card_number", types.PIICreditCard},
		{"first_name", types.PIIName},
		{"last_name", types.PIIName},
		{"home_address", types.PIIAddress},
		{"zip_code", types.PIIAddress},
		{"date_of_birth", types.PIIDateOfBirth},
		{"dob", types.PIIDateOfBirth},
		{"notes", ""},
		{"id", ""},
		{"vaccination_status", ""},
	}

	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyColumn(tt.column))
		})
	}
}

func TestClassifyColumnFirstMatchWins(t *testing.T) {
	// Matches both the email and name patterns; email has priority.
	assert.Equal(t, types.PIIEmail, ClassifyColumn("email_name"))
}

func TestDetectTable(t *testing.T) {
	ctx := context.Background()
	rows := rowstore.NewMemoryStore()
	rows.AddTable("patients", []types.ColumnInfo{
		{Name: "id", Type: "TEXT"},
		{Name: "student_ssn", Type: "TEXT"},
		{Name: "parent_email", Type: "TEXT"},
		{Name: "notes", Type: "TEXT"},
	})

	detector := NewDetector(rows)
	matches, err := detector.DetectTable(ctx, "patients")
	require.NoError(t, err)

	require.Len(t, matches, 2)
	assert.Equal(t, types.PIISSN, matches[0].Category)
	assert.Equal(t, "student_ssn", matches[0].Column)
	assert.Equal(t, types.PIIEmail, matches[1].Category)
}

func TestDetectAll(t *testing.T) {
	ctx := context.Background()
	rows := rowstore.NewMemoryStore()
	rows.AddTable("patients", []types.ColumnInfo{{Name: "student_ssn", Type: "TEXT"}})
	rows.AddTable("visits", []types.ColumnInfo{{Name: "visit_date", Type: "TEXT"}, {Name: "phone", Type: "TEXT"}})

	detector := NewDetector(rows)
	matches, err := detector.DetectAll(ctx)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}
