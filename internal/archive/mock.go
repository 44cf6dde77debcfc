package archive

import (
	"context"
	"encoding/json"
)

// Entry is one archived aspect recorded by MockArchiver.
type Entry struct {
	URN    string
	Aspect string
	Value  json.RawMessage
}

// MockArchiver is a test double for Archiver.
type MockArchiver struct {
	Err     error
	Entries []Entry
	Closed  bool
}

func (m *MockArchiver) Archive(_ context.Context, urn, aspect string, value json.RawMessage) error {
	if m.Err != nil {
		return m.Err
	}
	m.Entries = append(m.Entries, Entry{URN: urn, Aspect: aspect, Value: value})
	return nil
}

func (m *MockArchiver) Close(_ context.Context) error {
	m.Closed = true
	return nil
}
