package source

import (
	"context"
	"database/sql"
	"fmt"

	// SQL Server driver
	_ "github.com/microsoft/go-mssqldb"
	// Oracle driver
	_ "github.com/sijms/go-ora/v2"
)

// SQLReader implements Reader over database/sql. It serves SQL Server
// (go-mssqldb) and Oracle (go-ora).
type SQLReader struct {
	driver  string
	connStr string
	dialect Dialect
	db      *sql.DB
}

// NewSQLReader creates a reader that opens connStr with the named driver on
// Connect.
func NewSQLReader(driver, connStr string, dialect Dialect) *SQLReader {
	return &SQLReader{driver: driver, connStr: connStr, dialect: dialect}
}

// NewSQLReaderFromDB wraps an already open handle. Connect only pings it.
func NewSQLReaderFromDB(db *sql.DB, dialect Dialect) *SQLReader {
	return &SQLReader{db: db, dialect: dialect}
}

func (r *SQLReader) Connect(ctx context.Context) error {
	if r.db == nil {
		db, err := sql.Open(r.driver, r.connStr)
		if err != nil {
			return fmt.Errorf("opening %s connection: %w", r.dialect, err)
		}
		db.SetMaxOpenConns(1)
		r.db = db
	}
	if err := r.db.PingContext(ctx); err != nil {
		r.db.Close()
		r.db = nil
		return fmt.Errorf("pinging %s: %w", r.dialect, err)
	}
	return nil
}

func (r *SQLReader) Dialect() Dialect { return r.dialect }

func (r *SQLReader) CountDistinct(ctx context.Context, schema, table, column string) (int64, error) {
	var count int64
	q := fmt.Sprintf("SELECT COUNT(DISTINCT %s) FROM %s",
		r.dialect.QuoteIdent(column), r.dialect.QualifiedTable(schema, table))
	if err := r.db.QueryRowContext(ctx, q).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting distinct %s.%s: %w", table, column, err)
	}
	return count, nil
}

func (r *SQLReader) DistinctValues(ctx context.Context, schema, table, column string) ([]interface{}, error) {
	q := fmt.Sprintf("SELECT DISTINCT %s FROM %s",
		r.dialect.QuoteIdent(column), r.dialect.QualifiedTable(schema, table))
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("selecting distinct %s.%s: %w", table, column, err)
	}
	defer rows.Close()

	var values []interface{}
	for rows.Next() {
		var v interface{}
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		values = append(values, normalize(v))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return values, nil
}

func (r *SQLReader) QueryRows(ctx context.Context, sqlStr string, args ...interface{}) ([]map[string]interface{}, error) {
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("getting columns: %w", err)
	}

	var results []map[string]interface{}
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row := make(map[string]interface{}, len(cols))
		for i, c := range cols {
			row[c] = normalize(vals[i])
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return results, nil
}

func (r *SQLReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// normalize turns driver byte slices (decimal and character columns) into
// strings.
func normalize(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
