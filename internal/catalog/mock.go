package catalog

import (
	"context"
	"fmt"

	"github.com/catalogsync/catalogsync/internal/schema"
)

// MockCatalog is a test double for the Catalog interface. Writes are
// recorded keyed by dataset URN.
type MockCatalog struct {
	URNs    []string
	ListErr error

	Snapshots map[string]*Snapshot
	FetchErr  map[string]error // key: urn

	Stored        map[string]*Descriptions
	FieldProfiles map[string][]schema.FieldProfile

	EmitErr map[string]error // key: urn

	SchemaWrites     map[string][]*schema.SchemaMetadata
	TableDescWrites  map[string]string
	ColumnDescWrites map[string]map[string]string
	ProfileWrites    map[string]*schema.DatasetProfile
	SnapshotFetches  []string
}

// NewMockCatalog creates a MockCatalog with empty lookup maps.
func NewMockCatalog() *MockCatalog {
	return &MockCatalog{
		Snapshots:     make(map[string]*Snapshot),
		FetchErr:      make(map[string]error),
		Stored:        make(map[string]*Descriptions),
		FieldProfiles: make(map[string][]schema.FieldProfile),
		EmitErr:       make(map[string]error),
	}
}

func (m *MockCatalog) ListDatasetURNs(_ context.Context, _ string) ([]string, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.URNs, nil
}

func (m *MockCatalog) FetchSnapshot(_ context.Context, urn string) (*Snapshot, error) {
	m.SnapshotFetches = append(m.SnapshotFetches, urn)
	if err := m.FetchErr[urn]; err != nil {
		return nil, err
	}
	if s, ok := m.Snapshots[urn]; ok {
		return s, nil
	}
	return nil, &QueryError{Phase: PhaseFetch, Op: "entities", URN: urn, Err: fmt.Errorf("entity not found")}
}

func (m *MockCatalog) FetchDescriptions(_ context.Context, urn string) (*Descriptions, error) {
	if err := m.FetchErr[urn]; err != nil {
		return nil, err
	}
	if d, ok := m.Stored[urn]; ok {
		return d, nil
	}
	return &Descriptions{}, nil
}

func (m *MockCatalog) FetchFieldProfiles(_ context.Context, urn string) ([]schema.FieldProfile, error) {
	if err := m.FetchErr[urn]; err != nil {
		return nil, err
	}
	return m.FieldProfiles[urn], nil
}

func (m *MockCatalog) WriteSchemaMetadata(_ context.Context, urn string, sm *schema.SchemaMetadata) error {
	if err := m.EmitErr[urn]; err != nil {
		return err
	}
	if m.SchemaWrites == nil {
		m.SchemaWrites = make(map[string][]*schema.SchemaMetadata)
	}
	m.SchemaWrites[urn] = append(m.SchemaWrites[urn], sm)
	return nil
}

func (m *MockCatalog) WriteTableDescription(_ context.Context, urn, description string) error {
	if err := m.EmitErr[urn]; err != nil {
		return err
	}
	if m.TableDescWrites == nil {
		m.TableDescWrites = make(map[string]string)
	}
	m.TableDescWrites[urn] = description
	return nil
}

func (m *MockCatalog) WriteColumnDescriptions(_ context.Context, urn string, columns map[string]string) error {
	if err := m.EmitErr[urn]; err != nil {
		return err
	}
	if m.ColumnDescWrites == nil {
		m.ColumnDescWrites = make(map[string]map[string]string)
	}
	m.ColumnDescWrites[urn] = columns
	return nil
}

func (m *MockCatalog) WriteDatasetProfile(_ context.Context, urn string, p *schema.DatasetProfile) error {
	if err := m.EmitErr[urn]; err != nil {
		return err
	}
	if m.ProfileWrites == nil {
		m.ProfileWrites = make(map[string]*schema.DatasetProfile)
	}
	m.ProfileWrites[urn] = p
	return nil
}
