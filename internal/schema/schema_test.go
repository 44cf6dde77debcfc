package schema

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

const companyURN = "urn:li:dataset:(urn:li:dataPlatform:mssql,srv.db.dbo.Company,PROD)"

func testSnapshot() *SchemaMetadata {
	return &SchemaMetadata{
		SchemaName:     "db.dbo.Company",
		Platform:       "urn:li:dataPlatform:mssql",
		Version:        0,
		Hash:           "",
		PlatformSchema: json.RawMessage(`{"com.linkedin.schema.MySqlDDL":{"tableSchema":""}}`),
		Fields: []SchemaField{
			{
				FieldPath: "CompanyId",
				Type:      FieldTypeNumber,
				Attributes: map[string]json.RawMessage{
					"nativeDataType": json.RawMessage(`"INTEGER"`),
					"nullable":       json.RawMessage(`false`),
				},
			},
		},
	}
}

func TestReconcileOmitsEmptyKeys(t *testing.T) {
	out := Reconcile(companyURN, testSnapshot(), nil, nil)

	data, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s := string(data)
	if strings.Contains(s, "primaryKeys") {
		t.Errorf("expected primaryKeys to be omitted, got %s", s)
	}
	if strings.Contains(s, "foreignKeys") {
		t.Errorf("expected foreignKeys to be omitted, got %s", s)
	}
	if !strings.Contains(s, `"schemaName":"db.dbo.Company"`) {
		t.Errorf("expected schemaName copied, got %s", s)
	}
}

func TestReconcileExpandsForeignKeys(t *testing.T) {
	parent := "urn:li:dataset:(urn:li:dataPlatform:mssql,srv.db.dbo.Parent,DEV)"
	fks := []ForeignKeyConstraint{{
		Name:           "ParentId",
		SourceFields:   []string{"ParentId"},
		ForeignFields:  []string{"Id"},
		ForeignDataset: parent,
	}}

	out := Reconcile(companyURN, testSnapshot(), []string{"CompanyId"}, fks)

	if len(out.PrimaryKeys) != 1 || out.PrimaryKeys[0] != "CompanyId" {
		t.Errorf("PrimaryKeys = %v", out.PrimaryKeys)
	}
	if len(out.ForeignKeys) != 1 {
		t.Fatalf("expected 1 FK, got %d", len(out.ForeignKeys))
	}
	fk := out.ForeignKeys[0]
	wantSrc := "urn:li:schemaField:(" + companyURN + ",ParentId)"
	if fk.SourceFields[0] != wantSrc {
		t.Errorf("SourceFields[0] = %q, want %q", fk.SourceFields[0], wantSrc)
	}
	wantForeign := "urn:li:schemaField:(" + parent + ",Id)"
	if fk.ForeignFields[0] != wantForeign {
		t.Errorf("ForeignFields[0] = %q, want %q", fk.ForeignFields[0], wantForeign)
	}
	if fk.ForeignDataset != parent {
		t.Errorf("ForeignDataset = %q", fk.ForeignDataset)
	}

	// input constraints are left untouched
	if fks[0].SourceFields[0] != "ParentId" {
		t.Errorf("input mutated: %v", fks[0].SourceFields)
	}
}

func TestDecodeFieldUnknownType(t *testing.T) {
	raw := map[string]json.RawMessage{
		"fieldPath": json.RawMessage(`"Geo"`),
		"type":      json.RawMessage(`{"type":{"__type":"GeographyType"}}`),
	}
	_, err := DecodeField(raw)

	var ute *UnknownTypeError
	if !errors.As(err, &ute) {
		t.Fatalf("expected UnknownTypeError, got %v", err)
	}
	if ute.Tag != "GeographyType" || ute.FieldPath != "Geo" {
		t.Errorf("unexpected error fields: %+v", ute)
	}
}

func TestFieldRoundTripKeepsAttributes(t *testing.T) {
	in := `{"fieldPath":"Name","type":{"type":{"__type":"StringType"}},"nativeDataType":"NVARCHAR(50)","nullable":true,"recursive":false}`

	var f SchemaField
	if err := json.Unmarshal([]byte(in), &f); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if f.Type != FieldTypeString {
		t.Errorf("Type = %v, want StringType", f.Type)
	}
	if f.NativeDataType() != "NVARCHAR(50)" {
		t.Errorf("NativeDataType = %q", f.NativeDataType())
	}

	out, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got, want map[string]interface{}
	_ = json.Unmarshal(out, &got)
	_ = json.Unmarshal([]byte(in), &want)
	for k, v := range want {
		if k == "type" {
			continue
		}
		if got[k] != v {
			t.Errorf("attribute %s = %v, want %v", k, got[k], v)
		}
	}
}

func TestParseFieldType(t *testing.T) {
	tests := []struct {
		tag     string
		want    FieldType
		wantErr bool
	}{
		{"NumberType", FieldTypeNumber, false},
		{"RecordType", FieldTypeRecord, false},
		{"NullType", FieldTypeNull, false},
		{"", FieldTypeUnknown, true},
		{"numbertype", FieldTypeUnknown, true},
	}
	for _, tt := range tests {
		got, err := ParseFieldType(tt.tag)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFieldType(%q) err = %v", tt.tag, err)
		}
		if got != tt.want {
			t.Errorf("ParseFieldType(%q) = %v, want %v", tt.tag, got, tt.want)
		}
	}
}

func TestNewEditableSchemaMetadataSorted(t *testing.T) {
	m := NewEditableSchemaMetadata(map[string]string{"b": "second", "a": "first"})
	if len(m.EditableSchemaFieldInfo) != 2 {
		t.Fatalf("expected 2 infos, got %d", len(m.EditableSchemaFieldInfo))
	}
	if m.EditableSchemaFieldInfo[0].FieldPath != "a" {
		t.Errorf("expected sorted field paths, got %+v", m.EditableSchemaFieldInfo)
	}
}

func TestWriteAndLoadPlans(t *testing.T) {
	out := Reconcile(companyURN, testSnapshot(), []string{"CompanyId"}, nil)
	path := filepath.Join(t.TempDir(), "plans", "keys.yaml")

	if err := WritePlans(path, []KeyPlan{out.Plan(companyURN)}); err != nil {
		t.Fatalf("WritePlans: %v", err)
	}
	plans, err := LoadPlans(path)
	if err != nil {
		t.Fatalf("LoadPlans: %v", err)
	}
	if len(plans) != 1 || plans[0].Dataset != companyURN {
		t.Fatalf("unexpected plans: %+v", plans)
	}
	if len(plans[0].PrimaryKeys) != 1 {
		t.Errorf("PrimaryKeys = %v", plans[0].PrimaryKeys)
	}
}

func TestSummary(t *testing.T) {
	out := Reconcile(companyURN, testSnapshot(), []string{"CompanyId"}, nil)
	s := out.Summary()
	if !strings.Contains(s, "1 fields, 1 primary keys, 0 foreign keys") {
		t.Errorf("unexpected summary: %s", s)
	}
}
