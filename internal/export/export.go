package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/catalogsync/catalogsync/internal/catalog"
	"github.com/catalogsync/catalogsync/internal/urn"
)

// Row is one line of the description export.
type Row struct {
	TableName         string
	TableDescription  string
	ColumnName        string
	ColumnDescription string
}

var header = []string{"table_name", "table_description", "column_name", "column_description"}

// Exporter flattens the descriptions of a domain into rows. When Platform
// is set, datasets of other platforms are left out.
type Exporter struct {
	Platform string

	catalog catalog.Catalog
	logger  *slog.Logger
}

// New creates an Exporter reading from cat.
func New(cat catalog.Catalog, logger *slog.Logger) *Exporter {
	return &Exporter{catalog: cat, logger: logger}
}

// Rows reads the descriptions of every dataset in domain. A table without
// column descriptions still yields a single row with an empty column.
// Datasets whose URN cannot be parsed are skipped.
func (e *Exporter) Rows(ctx context.Context, domain string) ([]Row, error) {
	urns, err := e.catalog.ListDatasetURNs(ctx, domain)
	if err != nil {
		return nil, err
	}

	var rows []Row
	for _, u := range urns {
		ds, err := urn.ParseDataset(u)
		if err != nil {
			var pe *urn.ParseError
			if errors.As(err, &pe) {
				e.logger.Warn("skipping dataset", "urn", u, "error", err)
				continue
			}
			return nil, err
		}
		if e.Platform != "" && ds.Platform != e.Platform {
			continue
		}
		table := ds.Table()

		desc, err := e.catalog.FetchDescriptions(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("reading descriptions of %s: %w", table, err)
		}

		if len(desc.Columns) == 0 {
			rows = append(rows, Row{TableName: table, TableDescription: desc.Table})
			continue
		}
		for _, c := range desc.Columns {
			rows = append(rows, Row{
				TableName:         table,
				TableDescription:  desc.Table,
				ColumnName:        c.FieldPath,
				ColumnDescription: c.Description,
			})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].TableName < rows[j].TableName
	})
	e.logger.Info("collected descriptions", "domain", domain, "datasets", len(urns), "rows", len(rows))
	return rows, nil
}

// WriteCSV writes rows with a header line.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.TableName, r.TableDescription, r.ColumnName, r.ColumnDescription}); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
