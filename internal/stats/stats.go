// Package stats computes column statistics of relational tables for the
// catalog's datasetProfile aspect.
package stats

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/catalogsync/catalogsync/internal/source"
)

// numericTypes get MIN/MAX statistics. Other types get NULL.
var numericTypes = map[string]bool{
	"int":      true,
	"smallint": true,
	"bigint":   true,
	"decimal":  true,
	"numeric":  true,
	"float":    true,
	"real":     true,
}

// integerTypes have their min and max rounded to whole numbers.
var integerTypes = map[string]bool{
	"int":      true,
	"smallint": true,
	"bigint":   true,
}

// Column is a column name and its lower-cased SQL data type.
type Column struct {
	Name     string
	DataType string
}

// MinMax is the range of one column. Min and Max are nil when the column is
// not numeric or holds only NULLs.
type MinMax struct {
	Column   string
	DataType string
	Min      *string
	Max      *string
}

// ColumnInfo lists the columns of a table or view in ordinal order.
func ColumnInfo(ctx context.Context, r source.Reader, schemaName, table string) ([]Column, error) {
	d := r.Dialect()
	var q string
	switch d {
	case source.DialectOracle:
		q = fmt.Sprintf(`SELECT COLUMN_NAME, DATA_TYPE FROM ALL_TAB_COLUMNS
WHERE OWNER = %s AND TABLE_NAME = %s ORDER BY COLUMN_ID`, d.Placeholder(1), d.Placeholder(2))
	default:
		q = fmt.Sprintf(`SELECT COLUMN_NAME, DATA_TYPE FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = %s AND TABLE_NAME = %s ORDER BY ORDINAL_POSITION`, d.Placeholder(1), d.Placeholder(2))
	}

	rows, err := r.QueryRows(ctx, q, schemaName, table)
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s.%s: %w", schemaName, table, err)
	}

	cols := make([]Column, 0, len(rows))
	for _, row := range rows {
		name := lookup(row, "column_name")
		if name == nil {
			return nil, fmt.Errorf("reading columns of %s.%s: missing column_name", schemaName, table)
		}
		dt := ""
		if v := lookup(row, "data_type"); v != nil {
			dt = strings.ToLower(fmt.Sprint(v))
		}
		cols = append(cols, Column{Name: fmt.Sprint(name), DataType: dt})
	}
	return cols, nil
}

// MinMaxQuery builds one statement returning column_name, data_type,
// min_val and max_val for every column, joined with UNION ALL.
func MinMaxQuery(d source.Dialect, schemaName, table string, columns []Column) string {
	from := d.QualifiedTable(schemaName, table)
	suffix := ""
	if d == source.DialectOracle {
		suffix = " FROM DUAL"
	}

	parts := make([]string, 0, len(columns))
	for _, c := range columns {
		minExpr, maxExpr := "NULL", "NULL"
		if numericTypes[c.DataType] {
			col := d.QuoteIdent(c.Name)
			minExpr = fmt.Sprintf("(SELECT MIN(%s) FROM %s)", col, from)
			maxExpr = fmt.Sprintf("(SELECT MAX(%s) FROM %s)", col, from)
		}
		parts = append(parts, fmt.Sprintf("SELECT %s AS column_name, %s AS data_type, %s AS min_val, %s AS max_val%s",
			quoteLiteral(c.Name), quoteLiteral(c.DataType), minExpr, maxExpr, suffix))
	}
	return strings.Join(parts, "\nUNION ALL\n")
}

// ColumnMinMax runs the min/max query for the given columns.
func ColumnMinMax(ctx context.Context, r source.Reader, schemaName, table string, columns []Column) ([]MinMax, error) {
	if len(columns) == 0 {
		return nil, nil
	}

	rows, err := r.QueryRows(ctx, MinMaxQuery(r.Dialect(), schemaName, table, columns))
	if err != nil {
		return nil, fmt.Errorf("computing min/max of %s.%s: %w", schemaName, table, err)
	}

	out := make([]MinMax, 0, len(rows))
	for _, row := range rows {
		mm := MinMax{
			Column:   fmt.Sprint(lookup(row, "column_name")),
			DataType: strings.ToLower(fmt.Sprint(lookup(row, "data_type"))),
		}
		integer := integerTypes[mm.DataType]
		mm.Min = formatValue(lookup(row, "min_val"), integer)
		mm.Max = formatValue(lookup(row, "max_val"), integer)
		out = append(out, mm)
	}
	return out, nil
}

// formatValue renders a statistic as a string. Integer columns are rounded.
func formatValue(v interface{}, integer bool) *string {
	if v == nil {
		return nil
	}

	var s string
	switch t := v.(type) {
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(t), 'f', -1, 32)
	case time.Time:
		s = t.Format(time.RFC3339)
	default:
		s = fmt.Sprint(t)
	}

	if integer {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			s = strconv.FormatInt(int64(math.Round(f)), 10)
		}
	}
	return &s
}

// lookup reads a row value by column name without regard to case.
func lookup(row map[string]interface{}, name string) interface{} {
	if v, ok := row[name]; ok {
		return v
	}
	for k, v := range row {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return nil
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
