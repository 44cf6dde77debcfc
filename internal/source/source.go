package source

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/catalogsync/catalogsync/internal/config"
)

// Reader provides read-only access to a source database for key facts and
// column statistics.
type Reader interface {
	Connect(ctx context.Context) error
	Dialect() Dialect
	CountDistinct(ctx context.Context, schema, table, column string) (int64, error)
	DistinctValues(ctx context.Context, schema, table, column string) ([]interface{}, error)
	QueryRows(ctx context.Context, sql string, args ...interface{}) ([]map[string]interface{}, error)
	Close() error
}

// Opener creates an unconnected Reader for a source configuration.
type Opener func(cfg *config.SourceConfig) (Reader, error)

// Open creates a Reader for the configured source type.
func Open(cfg *config.SourceConfig) (Reader, error) {
	switch cfg.Type {
	case "mssql", "":
		return NewSQLReader("sqlserver", MSSQLConnString(cfg), DialectMSSQL), nil
	case "postgresql":
		return NewPostgresReader(PostgresConnString(cfg)), nil
	case "oracle":
		return NewSQLReader("oracle", OracleConnString(cfg), DialectOracle), nil
	default:
		return nil, &UnsupportedDBError{DBType: cfg.Type}
	}
}

// WithReader opens and connects a Reader, runs fn, and closes the
// connection whether or not fn succeeds.
func WithReader(ctx context.Context, open Opener, cfg *config.SourceConfig, fn func(Reader) error) error {
	r, err := open(cfg)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := r.Connect(ctx); err != nil {
		return err
	}
	return fn(r)
}

// UnsupportedDBError is returned when the source DB type is not supported.
type UnsupportedDBError struct {
	DBType string
}

func (e *UnsupportedDBError) Error() string {
	return "unsupported database type: " + e.DBType
}

// Dialect identifies the SQL flavour a Reader speaks.
type Dialect string

const (
	DialectMSSQL    Dialect = "mssql"
	DialectPostgres Dialect = "postgresql"
	DialectOracle   Dialect = "oracle"
)

// QuoteIdent quotes an identifier for the dialect.
func (d Dialect) QuoteIdent(s string) string {
	switch d {
	case DialectMSSQL:
		return "[" + strings.ReplaceAll(s, "]", "]]") + "]"
	default:
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
}

// QualifiedTable returns schema.table with both parts quoted.
func (d Dialect) QualifiedTable(schema, table string) string {
	if schema == "" {
		return d.QuoteIdent(table)
	}
	return d.QuoteIdent(schema) + "." + d.QuoteIdent(table)
}

// Placeholder returns the n-th (1-based) bind parameter marker.
func (d Dialect) Placeholder(n int) string {
	switch d {
	case DialectMSSQL:
		return "@p" + strconv.Itoa(n)
	case DialectOracle:
		return ":" + strconv.Itoa(n)
	default:
		return "$" + strconv.Itoa(n)
	}
}

// MSSQLConnString builds a go-mssqldb URL connection string.
func MSSQLConnString(cfg *config.SourceConfig) string {
	q := url.Values{}
	q.Set("database", cfg.Database)
	if cfg.SSL {
		q.Set("encrypt", "true")
	} else {
		q.Set("encrypt", "disable")
	}
	if cfg.TrustServerCertificate {
		q.Set("TrustServerCertificate", "true")
	}
	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		RawQuery: q.Encode(),
	}
	return u.String()
}

// PostgresConnString builds a pgx connection URL.
func PostgresConnString(cfg *config.SourceConfig) string {
	ssl := "disable"
	if cfg.SSL {
		ssl = "require"
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:     "/" + cfg.Database,
		RawQuery: "sslmode=" + ssl,
	}
	return u.String()
}

// OracleConnString builds a go-ora connection URL with the database as the
// service name.
func OracleConnString(cfg *config.SourceConfig) string {
	u := &url.URL{
		Scheme: "oracle",
		User:   url.UserPassword(cfg.Username, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.Database,
	}
	return u.String()
}
