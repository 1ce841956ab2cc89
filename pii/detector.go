// Package pii detects personal data by column naming convention,
// masks values by shape, tokenizes reversibly and anonymizes
// irreversibly.
package pii

import (
	"context"
	"regexp"

	"github.com/caredata-io/school-health-module-encryption/interfaces"
	"github.com/caredata-io/school-health-module-encryption/types"
)

// categoryPattern pairs a category with its column-name pattern.
// Order matters: the first match wins.
type categoryPattern struct {
	category types.PIICategory
	pattern  *regexp.Regexp
}

// columnPatterns is the fixed detection set, in priority order. This
// is a heuristic over naming conventions, not content inspection.
var columnPatterns = []categoryPattern{
	{types.PIIEmail, regexp.MustCompile(`(?i)e?mail`)},
	{types.PIIPhone, regexp.MustCompile(`(?i)phone|mobile|fax`)},
	{types.PIISSN, regexp.MustCompile(`(?i)ssn|social_?security`)},
	{types.PIICreditCard, regexp.MustCompile(`(?i)credit_?card|card_?number|ccn`)},
	{types.PIIName, regexp.MustCompile(`(?i)(^|_)(first|last|middle|full|sur|maiden)?_?name($|_)`)},
	{types.PIIAddress, regexp.MustCompile(`(?i)address|street|city|zip|postal`)},
	{types.PIIDateOfBirth, regexp.MustCompile(`(?i)birth|dob`)},
}

// ClassifyColumn returns the first matching category for a column
// name, or "" when none match.
func ClassifyColumn(column string) types.PIICategory {
	for _, cp := range columnPatterns {
		if cp.pattern.MatchString(column) {
			return cp.category
		}
	}
	return ""
}

// Detector scans schemas for columns whose names suggest personal
// data.
type Detector struct {
	schema interfaces.SchemaProvider
}

// NewDetector creates a detector over the schema provider
func NewDetector(schema interfaces.SchemaProvider) *Detector {
	return &Detector{schema: schema}
}

// DetectTable reports the PII columns of one table
func (d *Detector) DetectTable(ctx context.Context, table string) ([]types.PIIMatch, error) {
	columns, err := d.schema.Columns(ctx, table)
	if err != nil {
		return nil, err
	}

	var matches []types.PIIMatch
	for _, column := range columns {
		category := ClassifyColumn(column.Name)
		if category == "" {
			continue
		}
		matches = append(matches, types.PIIMatch{
			Table:    table,
			Column:   column.Name,
			Category: category,
		})
	}
	return matches, nil
}

// DetectAll reports the PII columns of every table in the schema
func (d *Detector) DetectAll(ctx context.Context) ([]types.PIIMatch, error) {
	tables, err := d.schema.Tables(ctx)
	if err != nil {
		return nil, err
	}

	var matches []types.PIIMatch
	for _, table := range tables {
		tableMatches, err := d.DetectTable(ctx, table)
		if err != nil {
			return nil, err
		}
		matches = append(matches, tableMatches...)
	}
	return matches, nil
}
