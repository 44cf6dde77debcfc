package schema

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/catalogsync/catalogsync/internal/urn"
)

// SchemaMetadata is the schemaMetadata aspect of a dataset. It is the unit
// written back to the catalog by the key sync.
type SchemaMetadata struct {
	SchemaName     string                 `json:"schemaName"`
	Platform       string                 `json:"platform"`
	Version        int64                  `json:"version"`
	Hash           string                 `json:"hash"`
	PlatformSchema json.RawMessage        `json:"platformSchema"`
	Fields         []SchemaField          `json:"fields"`
	PrimaryKeys    []string               `json:"primaryKeys,omitempty"`
	ForeignKeys    []ForeignKeyConstraint `json:"foreignKeys,omitempty"`
}

// SchemaField is one column of a dataset. Attributes other than the field
// path and type are carried through untouched.
type SchemaField struct {
	FieldPath  string
	Type       FieldType
	Attributes map[string]json.RawMessage
}

// ForeignKeyConstraint links source fields of a dataset to fields of another
// dataset.
type ForeignKeyConstraint struct {
	Name           string   `json:"name" yaml:"name"`
	SourceFields   []string `json:"sourceFields" yaml:"source_fields"`
	ForeignFields  []string `json:"foreignFields" yaml:"foreign_fields"`
	ForeignDataset string   `json:"foreignDataset" yaml:"foreign_dataset"`
}

// EditableDatasetProperties carries the human-written table description.
type EditableDatasetProperties struct {
	Description string `json:"description"`
}

// EditableSchemaMetadata carries human-written column descriptions.
type EditableSchemaMetadata struct {
	EditableSchemaFieldInfo []EditableSchemaFieldInfo `json:"editableSchemaFieldInfo"`
}

// EditableSchemaFieldInfo is the description of a single column.
type EditableSchemaFieldInfo struct {
	FieldPath   string `json:"fieldPath"`
	Description string `json:"description,omitempty"`
}

// DatasetProfile is the datasetProfile aspect holding column statistics.
type DatasetProfile struct {
	TimestampMillis int64          `json:"timestampMillis"`
	FieldProfiles   []FieldProfile `json:"fieldProfiles"`
}

// FieldProfile holds the statistics of one column.
type FieldProfile struct {
	FieldPath    string   `json:"fieldPath"`
	Min          *string  `json:"min,omitempty"`
	Max          *string  `json:"max,omitempty"`
	SampleValues []string `json:"sampleValues,omitempty"`
}

// NewEditableSchemaMetadata builds the full column description list from a
// column -> description map, ordered by field path.
func NewEditableSchemaMetadata(columns map[string]string) *EditableSchemaMetadata {
	paths := make([]string, 0, len(columns))
	for p := range columns {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	infos := make([]EditableSchemaFieldInfo, 0, len(paths))
	for _, p := range paths {
		infos = append(infos, EditableSchemaFieldInfo{FieldPath: p, Description: columns[p]})
	}
	return &EditableSchemaMetadata{EditableSchemaFieldInfo: infos}
}

// FieldPaths returns the path of every field, in schema order.
func (m *SchemaMetadata) FieldPaths() []string {
	paths := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		paths[i] = f.FieldPath
	}
	return paths
}

// Reconcile builds the schemaMetadata aspect to write back for datasetURN.
// Everything but the keys is copied from the fetched snapshot. Keys are only
// set when non-empty so that an empty inference never clears them; foreign
// key columns are expanded to schemaField URNs.
func Reconcile(datasetURN string, snapshot *SchemaMetadata, primaryKeys []string, foreignKeys []ForeignKeyConstraint) *SchemaMetadata {
	out := &SchemaMetadata{
		SchemaName:     snapshot.SchemaName,
		Platform:       snapshot.Platform,
		Version:        snapshot.Version,
		Hash:           snapshot.Hash,
		PlatformSchema: snapshot.PlatformSchema,
		Fields:         snapshot.Fields,
	}

	if len(primaryKeys) > 0 {
		out.PrimaryKeys = append([]string(nil), primaryKeys...)
	}

	if len(foreignKeys) > 0 {
		out.ForeignKeys = make([]ForeignKeyConstraint, 0, len(foreignKeys))
		for _, fk := range foreignKeys {
			out.ForeignKeys = append(out.ForeignKeys, ForeignKeyConstraint{
				Name:           fk.Name,
				SourceFields:   fieldURNs(datasetURN, fk.SourceFields),
				ForeignFields:  fieldURNs(fk.ForeignDataset, fk.ForeignFields),
				ForeignDataset: fk.ForeignDataset,
			})
		}
	}

	return out
}

func fieldURNs(datasetURN string, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = urn.FieldURN(datasetURN, p)
	}
	return out
}

// DecodeField converts one raw catalog field into a SchemaField, resolving
// its type tag. An unknown tag yields *UnknownTypeError.
func DecodeField(raw map[string]json.RawMessage) (SchemaField, error) {
	var f SchemaField

	if p, ok := raw["fieldPath"]; ok {
		if err := json.Unmarshal(p, &f.FieldPath); err != nil {
			return f, fmt.Errorf("decoding fieldPath: %w", err)
		}
	}

	var typ struct {
		Type struct {
			Tag string `json:"__type"`
		} `json:"type"`
	}
	if t, ok := raw["type"]; ok {
		if err := json.Unmarshal(t, &typ); err != nil {
			return f, fmt.Errorf("decoding type of field %s: %w", f.FieldPath, err)
		}
	}

	ft, err := ParseFieldType(typ.Type.Tag)
	if err != nil {
		if ute, ok := err.(*UnknownTypeError); ok {
			ute.FieldPath = f.FieldPath
		}
		return f, err
	}
	f.Type = ft

	f.Attributes = make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		if k == "fieldPath" || k == "type" {
			continue
		}
		f.Attributes[k] = v
	}
	return f, nil
}

// MarshalJSON renders the field in the tagged form the catalog reads back.
func (f SchemaField) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(f.Attributes)+2)
	for k, v := range f.Attributes {
		out[k] = v
	}
	out["fieldPath"] = f.FieldPath
	out["type"] = map[string]interface{}{
		"type": map[string]string{"__type": f.Type.Tag()},
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the tagged form produced by MarshalJSON.
func (f *SchemaField) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded, err := DecodeField(raw)
	if err != nil {
		return err
	}
	*f = decoded
	return nil
}

// NativeDataType returns the nativeDataType attribute, if present.
func (f SchemaField) NativeDataType() string {
	var s string
	if raw, ok := f.Attributes["nativeDataType"]; ok {
		_ = json.Unmarshal(raw, &s)
	}
	return s
}
