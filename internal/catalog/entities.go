package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/catalogsync/catalogsync/internal/schema"
)

const (
	aspectSchemaMetadata            = "schemaMetadata"
	aspectEditableDatasetProperties = "editableDatasetProperties"
	aspectEditableSchemaMetadata    = "editableSchemaMetadata"
	aspectDatasetProfile            = "datasetProfile"
)

// Snapshot is the latest stored state of one entity, keyed by aspect name.
type Snapshot struct {
	URN     string
	Aspects map[string]json.RawMessage
}

// RawField is a schema field exactly as returned by the catalog.
type RawField map[string]json.RawMessage

// FieldPath returns the field's path, or "" when absent.
func (f RawField) FieldPath() string {
	var p string
	if raw, ok := f["fieldPath"]; ok {
		_ = json.Unmarshal(raw, &p)
	}
	return p
}

// RawSchemaMetadata is the schemaMetadata aspect before field types are
// resolved.
type RawSchemaMetadata struct {
	SchemaName     string          `json:"schemaName"`
	Platform       string          `json:"platform"`
	Version        int64           `json:"version"`
	Hash           string          `json:"hash"`
	PlatformSchema json.RawMessage `json:"platformSchema"`
	Fields         []RawField      `json:"fields"`
}

// FieldPaths returns the path of every field, in schema order.
func (m *RawSchemaMetadata) FieldPaths() []string {
	paths := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		paths[i] = f.FieldPath()
	}
	return paths
}

// Decode resolves every field type. An unknown type tag yields
// *schema.UnknownTypeError.
func (m *RawSchemaMetadata) Decode() (*schema.SchemaMetadata, error) {
	fields, err := DecodeFields(m.Fields)
	if err != nil {
		return nil, err
	}
	return &schema.SchemaMetadata{
		SchemaName:     m.SchemaName,
		Platform:       m.Platform,
		Version:        m.Version,
		Hash:           m.Hash,
		PlatformSchema: m.PlatformSchema,
		Fields:         fields,
	}, nil
}

// DecodeFields converts raw catalog fields into typed schema fields.
func DecodeFields(raw []RawField) ([]schema.SchemaField, error) {
	fields := make([]schema.SchemaField, 0, len(raw))
	for _, r := range raw {
		f, err := schema.DecodeField(r)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// SchemaMetadata returns the raw schemaMetadata aspect.
func (s *Snapshot) SchemaMetadata() (*RawSchemaMetadata, error) {
	raw, ok := s.Aspects[aspectSchemaMetadata]
	if !ok {
		return nil, fmt.Errorf("entity %s has no %s aspect", s.URN, aspectSchemaMetadata)
	}
	m := &RawSchemaMetadata{}
	if err := json.Unmarshal(raw, m); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", aspectSchemaMetadata, err)
	}
	return m, nil
}

// RawAspect returns the undecoded value of an aspect.
func (s *Snapshot) RawAspect(name string) (json.RawMessage, bool) {
	raw, ok := s.Aspects[name]
	return raw, ok
}

type entitiesResponse struct {
	Responses map[string]struct {
		URN     string `json:"urn"`
		Aspects map[string]struct {
			Value json.RawMessage `json:"value"`
		} `json:"aspects"`
	} `json:"responses"`
}

// fetchEntity reads the latest aspects of one entity. With no aspect names
// every aspect is returned.
func (c *Client) fetchEntity(ctx context.Context, entityURN string, aspects ...string) (*Snapshot, error) {
	q := url.Values{}
	q.Set("urns", entityURN)
	for _, a := range aspects {
		q.Add("aspectNames", a)
	}

	body, err := c.do(ctx, "GET", "/openapi/entities/v1/latest?"+q.Encode(), nil, nil)
	if err != nil {
		return nil, err
	}

	var resp entitiesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding entity response: %w", err)
	}

	entity, ok := resp.Responses[entityURN]
	if !ok {
		return nil, fmt.Errorf("entity not found")
	}

	snap := &Snapshot{URN: entityURN, Aspects: make(map[string]json.RawMessage, len(entity.Aspects))}
	for name, a := range entity.Aspects {
		snap.Aspects[name] = a.Value
	}
	return snap, nil
}

// FetchSnapshot reads the current schemaMetadata aspect of a dataset. A
// dataset without the aspect is an error.
func (c *Client) FetchSnapshot(ctx context.Context, datasetURN string) (*Snapshot, error) {
	snap, err := c.fetchEntity(ctx, datasetURN, aspectSchemaMetadata)
	if err != nil {
		return nil, queryError(PhaseFetch, "entities", datasetURN, err)
	}
	if _, ok := snap.Aspects[aspectSchemaMetadata]; !ok {
		return nil, queryError(PhaseFetch, "entities", datasetURN, fmt.Errorf("missing %s aspect", aspectSchemaMetadata))
	}
	c.logger.Debug("fetched schema snapshot", "urn", datasetURN)
	return snap, nil
}

// Descriptions holds the human-written descriptions of a dataset.
type Descriptions struct {
	Table   string
	Columns []schema.EditableSchemaFieldInfo
}

// FetchDescriptions reads the editable table and column descriptions of a
// dataset. Missing aspects yield empty descriptions.
func (c *Client) FetchDescriptions(ctx context.Context, datasetURN string) (*Descriptions, error) {
	snap, err := c.fetchEntity(ctx, datasetURN, aspectEditableDatasetProperties, aspectEditableSchemaMetadata)
	if err != nil {
		return nil, queryError(PhaseFetch, "entities", datasetURN, err)
	}

	d := &Descriptions{}
	if raw, ok := snap.Aspects[aspectEditableDatasetProperties]; ok {
		var props schema.EditableDatasetProperties
		if err := json.Unmarshal(raw, &props); err != nil {
			return nil, queryError(PhaseFetch, "entities", datasetURN, fmt.Errorf("decoding %s: %w", aspectEditableDatasetProperties, err))
		}
		d.Table = props.Description
	}
	if raw, ok := snap.Aspects[aspectEditableSchemaMetadata]; ok {
		var esm schema.EditableSchemaMetadata
		if err := json.Unmarshal(raw, &esm); err != nil {
			return nil, queryError(PhaseFetch, "entities", datasetURN, fmt.Errorf("decoding %s: %w", aspectEditableSchemaMetadata, err))
		}
		d.Columns = esm.EditableSchemaFieldInfo
	}
	return d, nil
}
