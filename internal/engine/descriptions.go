package engine

import (
	"context"
	"fmt"

	"github.com/catalogsync/catalogsync/internal/descriptions"
	"github.com/catalogsync/catalogsync/internal/report"
)

// DescriptionKind selects which descriptions SyncDescriptions writes.
type DescriptionKind string

const (
	DescribeTables  DescriptionKind = "tables"
	DescribeColumns DescriptionKind = "columns"
)

// ParseDescriptionKind validates a kind given on the command line.
func ParseDescriptionKind(s string) (DescriptionKind, error) {
	switch k := DescriptionKind(s); k {
	case DescribeTables, DescribeColumns:
		return k, nil
	}
	return "", fmt.Errorf("unknown description kind %q (expected tables or columns)", s)
}

// SyncDescriptions writes table or column descriptions from store to the
// datasets located by the descriptions config. Write failures are logged
// and the loop goes on.
func (e *Engine) SyncDescriptions(ctx context.Context, kind DescriptionKind, store *descriptions.Store) (*report.Run, error) {
	loc := descriptions.NewLocator(e.Config)
	run := report.NewRun("describe "+string(kind), "")

	var tables []string
	switch kind {
	case DescribeTables:
		tables = store.TableNames()
	case DescribeColumns:
		tables = store.ColumnTables()
	default:
		return nil, fmt.Errorf("unknown description kind %q", kind)
	}

	for _, table := range tables {
		u := loc.URNFor(table)

		var err error
		res := report.DatasetResult{URN: u, Table: table}
		if kind == DescribeTables {
			err = e.Catalog.WriteTableDescription(ctx, u, store.Tables[table])
		} else {
			res.Fields = len(store.Columns[table])
			err = e.Catalog.WriteColumnDescriptions(ctx, u, store.Columns[table])
		}

		if err != nil {
			if decide(PhaseEmit, err) != Continue {
				return nil, &RunError{Phase: PhaseEmit, URN: u, Err: err}
			}
			e.Logger.Error("writing descriptions failed", "urn", u, "table", table, "op", PhaseEmit, "error", err)
			res.Status = report.StatusFailed
			res.Error = err.Error()
		} else {
			res.Status = report.StatusEmitted
		}
		run.Add(res)
	}

	run.Finish()
	e.Logger.Info("description sync finished", "kind", kind, "summary", run.Summary())
	return run, nil
}
