package stats

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/catalogsync/catalogsync/internal/source"
)

// SampleValues returns every distinct non-NULL value of a column as a
// string. When the column has more than max distinct values it returns an
// empty list without reading them.
func SampleValues(ctx context.Context, r source.Reader, schemaName, table, column string, max int, logger *slog.Logger) ([]string, error) {
	count, err := r.CountDistinct(ctx, schemaName, table, column)
	if err != nil {
		return nil, err
	}
	logger.Debug("distinct values", "table", table, "column", column, "count", count)

	if count > int64(max) {
		logger.Warn("too many distinct values, skipping samples",
			"table", table, "column", column, "count", count, "max", max)
		return []string{}, nil
	}

	vals, err := r.DistinctValues(ctx, schemaName, table, column)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v == nil {
			continue
		}
		out = append(out, fmt.Sprint(v))
	}
	return out, nil
}
