package source

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresReader implements Reader for PostgreSQL using pgx.
type PostgresReader struct {
	connStr string
	pool    *pgxpool.Pool
}

// NewPostgresReader creates a new PostgreSQL reader.
func NewPostgresReader(connStr string) *PostgresReader {
	return &PostgresReader{connStr: connStr}
}

func (r *PostgresReader) Connect(ctx context.Context) error {
	cfg, err := pgxpool.ParseConfig(r.connStr)
	if err != nil {
		return fmt.Errorf("parsing connection string: %w", err)
	}
	cfg.MaxConns = 1
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("pinging PostgreSQL: %w", err)
	}
	r.pool = pool
	return nil
}

func (r *PostgresReader) Dialect() Dialect { return DialectPostgres }

func (r *PostgresReader) CountDistinct(ctx context.Context, schema, table, column string) (int64, error) {
	var count int64
	sql := fmt.Sprintf("SELECT COUNT(DISTINCT %s) FROM %s",
		DialectPostgres.QuoteIdent(column), DialectPostgres.QualifiedTable(schema, table))
	if err := r.pool.QueryRow(ctx, sql).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting distinct %s.%s: %w", table, column, err)
	}
	return count, nil
}

func (r *PostgresReader) DistinctValues(ctx context.Context, schema, table, column string) ([]interface{}, error) {
	sql := fmt.Sprintf("SELECT DISTINCT %s FROM %s",
		DialectPostgres.QuoteIdent(column), DialectPostgres.QualifiedTable(schema, table))
	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("selecting distinct %s.%s: %w", table, column, err)
	}
	defer rows.Close()

	var values []interface{}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		values = append(values, vals[0])
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return values, nil
}

func (r *PostgresReader) QueryRows(ctx context.Context, sql string, args ...interface{}) ([]map[string]interface{}, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	descs := rows.FieldDescriptions()
	var results []map[string]interface{}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row := make(map[string]interface{}, len(descs))
		for i, d := range descs {
			row[d.Name] = vals[i]
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return results, nil
}

func (r *PostgresReader) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}
