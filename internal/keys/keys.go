// Package keys infers primary and foreign keys of catalog datasets from the
// relational key fact table.
package keys

import (
	"regexp"

	"github.com/catalogsync/catalogsync/internal/keyfacts"
	"github.com/catalogsync/catalogsync/internal/schema"
	"github.com/catalogsync/catalogsync/internal/urn"
)

// pkColumn matches columns named by the PK naming convention. Only the
// start is anchored.
var pkColumn = regexp.MustCompile(`^PK\w+`)

// Index answers key questions over a fixed fact table.
type Index struct {
	facts []keyfacts.Fact
}

// NewIndex builds an index over facts. The slice is not modified.
func NewIndex(facts []keyfacts.Fact) *Index {
	return &Index{facts: facts}
}

// Len returns the number of facts.
func (ix *Index) Len() int { return len(ix.facts) }

// Target says where foreign datasets live in the catalog.
type Target struct {
	Platform string
	Server   string
	Database string
	Schema   string
	Env      string
}

// DatasetURN returns the URN of table under the target.
func (t Target) DatasetURN(table string) string {
	return urn.DatasetURN(t.Platform, t.Server, t.Database, t.Schema, table, t.Env)
}

// PrimaryKeys returns the distinct parent keys of table in first-seen order,
// followed by every field path following the PK naming convention. The two
// lists are concatenated without removing duplicates between them.
func (ix *Index) PrimaryKeys(table string, fieldPaths []string) []string {
	var pks []string
	seen := make(map[string]bool)
	for _, f := range ix.facts {
		if f.ParentTable != table || seen[f.ParentKey] {
			continue
		}
		seen[f.ParentKey] = true
		pks = append(pks, f.ParentKey)
	}

	for _, p := range fieldPaths {
		if pkColumn.MatchString(p) {
			pks = append(pks, p)
		}
	}
	return pks
}

// ForeignKeys returns one constraint per fact whose child table is table.
// Fields are bare column names.
func (ix *Index) ForeignKeys(table string, target Target) []schema.ForeignKeyConstraint {
	var fks []schema.ForeignKeyConstraint
	for _, f := range ix.facts {
		if f.ChildTable != table {
			continue
		}
		fks = append(fks, schema.ForeignKeyConstraint{
			Name:           f.ChildKey,
			SourceFields:   []string{f.ChildKey},
			ForeignFields:  []string{f.ParentKey},
			ForeignDataset: target.DatasetURN(f.ParentTable),
		})
	}
	return fks
}

// Result is the inferred key set of one dataset.
type Result struct {
	Table       string
	PrimaryKeys []string
	ForeignKeys []schema.ForeignKeyConstraint
}

// Infer resolves the table behind datasetURN and infers its keys. A URN
// without a table yields *urn.ParseError.
func (ix *Index) Infer(datasetURN string, fieldPaths []string, target Target) (*Result, error) {
	table, err := urn.TableName(datasetURN)
	if err != nil {
		return nil, err
	}
	return ix.InferTable(table, fieldPaths, target), nil
}

// InferTable infers the keys of an already resolved table.
func (ix *Index) InferTable(table string, fieldPaths []string, target Target) *Result {
	return &Result{
		Table:       table,
		PrimaryKeys: ix.PrimaryKeys(table, fieldPaths),
		ForeignKeys: ix.ForeignKeys(table, target),
	}
}
