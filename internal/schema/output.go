package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// KeyPlan is the dry-run rendering of the keys that would be written to a
// dataset.
type KeyPlan struct {
	Dataset     string                 `yaml:"dataset"`
	PrimaryKeys []string               `yaml:"primary_keys,omitempty"`
	ForeignKeys []ForeignKeyConstraint `yaml:"foreign_keys,omitempty"`
}

// Plan returns the dry-run view of the aspect.
func (m *SchemaMetadata) Plan(datasetURN string) KeyPlan {
	return KeyPlan{
		Dataset:     datasetURN,
		PrimaryKeys: m.PrimaryKeys,
		ForeignKeys: m.ForeignKeys,
	}
}

// WritePlans writes key plans to a YAML file at the given path.
func WritePlans(path string, plans []KeyPlan) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	data, err := yaml.Marshal(plans)
	if err != nil {
		return fmt.Errorf("marshaling key plans: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// LoadPlans reads key plans written by WritePlans.
func LoadPlans(path string) ([]KeyPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan file: %w", err)
	}
	var plans []KeyPlan
	if err := yaml.Unmarshal(data, &plans); err != nil {
		return nil, fmt.Errorf("parsing plan file: %w", err)
	}
	return plans, nil
}

// ToJSON returns the aspect as indented JSON.
func (m *SchemaMetadata) ToJSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// Summary returns a human-readable summary of the aspect.
func (m *SchemaMetadata) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d fields, %d primary keys, %d foreign keys",
		len(m.Fields), len(m.PrimaryKeys), len(m.ForeignKeys))
	if len(m.PrimaryKeys) > 0 {
		fmt.Fprintf(&b, "\n  PK: %s", strings.Join(m.PrimaryKeys, ", "))
	}
	for _, fk := range m.ForeignKeys {
		fmt.Fprintf(&b, "\n  FK %s -> %s", fk.Name, fk.ForeignDataset)
	}
	return b.String()
}
