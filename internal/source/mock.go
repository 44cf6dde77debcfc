package source

import (
	"context"
	"fmt"

	"github.com/catalogsync/catalogsync/internal/config"
)

// MockReader is a test double for the Reader interface.
type MockReader struct {
	ConnectErr error
	DialectVal Dialect

	CountDistincts   map[string]int64 // key: "table.column"
	CountDistinctErr error
	Distincts        map[string][]interface{} // key: "table.column"
	DistinctErr      error
	QueryResult      []map[string]interface{}
	QueryFunc        func(sql string, args ...interface{}) ([]map[string]interface{}, error)
	QueryErr         error

	Queries       []string
	DistinctCalls []string

	Connected bool
	Closed    bool
}

// Opener returns an Opener that always hands out m.
func (m *MockReader) Opener() Opener {
	return func(_ *config.SourceConfig) (Reader, error) {
		return m, nil
	}
}

func (m *MockReader) Connect(_ context.Context) error {
	if m.ConnectErr != nil {
		return m.ConnectErr
	}
	m.Connected = true
	return nil
}

func (m *MockReader) Dialect() Dialect {
	if m.DialectVal == "" {
		return DialectMSSQL
	}
	return m.DialectVal
}

func (m *MockReader) CountDistinct(_ context.Context, _, table, column string) (int64, error) {
	if m.CountDistinctErr != nil {
		return 0, m.CountDistinctErr
	}
	key := table + "." + column
	if c, ok := m.CountDistincts[key]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("no distinct count configured for %s", key)
}

func (m *MockReader) DistinctValues(_ context.Context, _, table, column string) ([]interface{}, error) {
	key := table + "." + column
	m.DistinctCalls = append(m.DistinctCalls, key)
	if m.DistinctErr != nil {
		return nil, m.DistinctErr
	}
	return m.Distincts[key], nil
}

func (m *MockReader) QueryRows(_ context.Context, sql string, args ...interface{}) ([]map[string]interface{}, error) {
	m.Queries = append(m.Queries, sql)
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	if m.QueryFunc != nil {
		return m.QueryFunc(sql, args...)
	}
	return m.QueryResult, nil
}

func (m *MockReader) Close() error {
	m.Closed = true
	return nil
}
