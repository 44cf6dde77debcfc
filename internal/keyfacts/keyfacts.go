// Package keyfacts reads the foreign key relationships of a source database
// into an in-memory fact table.
package keyfacts

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/catalogsync/catalogsync/internal/config"
	"github.com/catalogsync/catalogsync/internal/source"
)

//go:embed scripts/*.sql
var scripts embed.FS

// Fact is one foreign key column: ChildTable.ChildKey references
// ParentTable.ParentKey.
type Fact struct {
	ParentTable string `json:"parent_table" yaml:"parent_table"`
	ParentKey   string `json:"parent_key" yaml:"parent_key"`
	ChildTable  string `json:"child_table" yaml:"child_table"`
	ChildKey    string `json:"child_key" yaml:"child_key"`
}

// Script is the query producing the fact table. Built-in scripts take the
// schema name as their only bind parameter; external scripts take none.
type Script struct {
	Name       string
	Text       string
	BindSchema bool
}

// DatabaseConnectionError is returned when the fact table cannot be read.
// It is always fatal to a run.
type DatabaseConnectionError struct {
	Op  string
	Err error
}

func (e *DatabaseConnectionError) Error() string {
	return fmt.Sprintf("key facts %s: %v", e.Op, e.Err)
}

func (e *DatabaseConnectionError) Unwrap() error { return e.Err }

// LoadScript reads the external script at path. An empty path selects the
// built-in script for the source type.
func LoadScript(path, sourceType string) (*Script, error) {
	if path != "" {
		data, err := os.ReadFile(config.ExpandHome(path))
		if err != nil {
			return nil, fmt.Errorf("reading key script: %w", err)
		}
		return &Script{Name: path, Text: string(data)}, nil
	}

	if sourceType == "" {
		sourceType = "mssql"
	}
	name := "scripts/" + sourceType + ".sql"
	data, err := scripts.ReadFile(name)
	if err != nil {
		return nil, &source.UnsupportedDBError{DBType: sourceType}
	}
	return &Script{Name: name, Text: string(data), BindSchema: true}, nil
}

// Fetch runs the script over a single connection and returns every row.
// The connection is closed before returning, on success or failure.
func Fetch(ctx context.Context, open source.Opener, cfg *config.SourceConfig, script *Script, logger *slog.Logger) ([]Fact, error) {
	var args []interface{}
	if script.BindSchema {
		args = append(args, cfg.Schema)
	}

	var facts []Fact
	err := source.WithReader(ctx, open, cfg, func(r source.Reader) error {
		rows, err := r.QueryRows(ctx, script.Text, args...)
		if err != nil {
			return &DatabaseConnectionError{Op: "query", Err: err}
		}
		facts, err = toFacts(rows)
		if err != nil {
			return &DatabaseConnectionError{Op: "read", Err: err}
		}
		return nil
	})
	if err != nil {
		if _, ok := err.(*DatabaseConnectionError); ok {
			return nil, err
		}
		return nil, &DatabaseConnectionError{Op: "connect", Err: err}
	}

	logger.Info("fetched key facts", "rows", len(facts), "script", script.Name, "host", cfg.Host, "database", cfg.Database)
	return facts, nil
}

var factColumns = []string{"parent_table", "parent_key", "child_table", "child_key"}

// toFacts maps result rows to facts, matching column names without regard
// to case.
func toFacts(rows []map[string]interface{}) ([]Fact, error) {
	facts := make([]Fact, 0, len(rows))
	for i, row := range rows {
		lower := make(map[string]interface{}, len(row))
		for k, v := range row {
			lower[strings.ToLower(k)] = v
		}

		vals := make([]string, len(factColumns))
		for j, col := range factColumns {
			v, ok := lower[col]
			if !ok {
				return nil, fmt.Errorf("row %d: missing column %s", i, col)
			}
			if v == nil {
				return nil, fmt.Errorf("row %d: column %s is NULL", i, col)
			}
			vals[j] = fmt.Sprint(v)
		}
		facts = append(facts, Fact{
			ParentTable: vals[0],
			ParentKey:   vals[1],
			ChildTable:  vals[2],
			ChildKey:    vals[3],
		})
	}
	return facts, nil
}
