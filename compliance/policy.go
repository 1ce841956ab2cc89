package compliance

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/caredata-io/school-health-module-encryption/types"
)

// policyDocument is the YAML shape. Durations are written as Go
// duration strings ("2160h").
type policyDocument struct {
	Name               string              `yaml:"name"`
	RequireEncryption  []types.PIICategory `yaml:"requireEncryption"`
	MaxKeyAge          string              `yaml:"maxKeyAge"`
	RequireAuditTrail  bool                `yaml:"requireAuditTrail"`
	ExcludedTables     []string            `yaml:"excludedTables"`
	NotifyOnViolations bool                `yaml:"notifyOnViolations"`
}

// LoadPolicy reads and parses a YAML policy file
func LoadPolicy(path string) (*types.CompliancePolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy parses a YAML policy document
func ParsePolicy(data []byte) (*types.CompliancePolicy, error) {
	var doc policyDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse policy: %w", err)
	}
	if doc.Name == "" {
		return nil, &types.ValidationError{Reason: "policy name is required"}
	}

	policy := &types.CompliancePolicy{
		Name:               doc.Name,
		RequireEncryption:  doc.RequireEncryption,
		RequireAuditTrail:  doc.RequireAuditTrail,
		ExcludedTables:     doc.ExcludedTables,
		NotifyOnViolations: doc.NotifyOnViolations,
	}
	if doc.MaxKeyAge != "" {
		maxAge, err := time.ParseDuration(doc.MaxKeyAge)
		if err != nil {
			return nil, &types.ValidationError{Reason: fmt.Sprintf("invalid maxKeyAge: %v", err)}
		}
		policy.MaxKeyAge = maxAge
	}
	return policy, nil
}
