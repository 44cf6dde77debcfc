package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/catalogsync/catalogsync/internal/config"
	"github.com/catalogsync/catalogsync/internal/logging"
	"github.com/catalogsync/catalogsync/internal/schema"
)

const companyURN = "urn:li:dataset:(urn:li:dataPlatform:mssql,ekofisk.CubeDevTest.UCube.Company,DEV)"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(config.CatalogConfig{Server: server.URL, Token: "tok", PageSize: 2}, logging.Discard())
}

func domainPage(domainURN string, total int, urns ...string) map[string]interface{} {
	results := make([]interface{}, len(urns))
	for i, u := range urns {
		results[i] = map[string]interface{}{"entity": map[string]interface{}{"type": "DATASET", "urn": u}}
	}
	return map[string]interface{}{
		"data": map[string]interface{}{
			"listDomains": map[string]interface{}{
				"domains": []interface{}{
					map[string]interface{}{
						"urn":  "urn:li:domain:other",
						"type": "DOMAIN",
						"entities": map[string]interface{}{
							"total":         1,
							"searchResults": []interface{}{map[string]interface{}{"entity": map[string]interface{}{"urn": "urn:li:dataset:(x,other,DEV)"}}},
						},
					},
					map[string]interface{}{
						"urn":      domainURN,
						"type":     "DOMAIN",
						"entities": map[string]interface{}{"total": total, "searchResults": results},
					},
				},
			},
		},
	}
}

func TestListDatasetURNsPagesAndMatchesDomain(t *testing.T) {
	var starts []float64
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/graphql" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req graphQLRequest
		json.NewDecoder(r.Body).Decode(&req)
		start := req.Variables["start"].(float64)
		starts = append(starts, start)

		if start == 0 {
			json.NewEncoder(w).Encode(domainPage("urn:li:domain:ucube", 3, "urn:a", "urn:b"))
			return
		}
		json.NewEncoder(w).Encode(domainPage("urn:li:domain:ucube", 3, "urn:c"))
	})

	urns, err := client.ListDatasetURNs(context.Background(), "ucube")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(urns, ",") != "urn:a,urn:b,urn:c" {
		t.Errorf("unexpected urns: %v", urns)
	}
	if len(starts) != 2 || starts[1] != 2 {
		t.Errorf("expected two pages starting at 0 and 2, got %v", starts)
	}
}

func TestListDatasetURNsDomainNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(domainPage("urn:li:domain:ucube_v2", 0))
	})

	_, err := client.ListDatasetURNs(context.Background(), "ucube")
	var qe *QueryError
	if !errors.As(err, &qe) {
		t.Fatalf("expected QueryError, got %v", err)
	}
	if qe.Phase != PhaseList {
		t.Errorf("expected list phase, got %s", qe.Phase)
	}
}

func TestListDatasetURNsGraphQLErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[{"message":"Unauthorized to perform this action"}],"data":null}`))
	})

	_, err := client.ListDatasetURNs(context.Background(), "ucube")
	var qe *QueryError
	if !errors.As(err, &qe) {
		t.Fatalf("expected QueryError, got %v", err)
	}
	if !strings.Contains(err.Error(), "Unauthorized") {
		t.Errorf("expected graphql message in error, got %v", err)
	}
}

const entityBody = `{"responses":{"` + companyURN + `":{"entityName":"dataset","urn":"` + companyURN + `","aspects":{"schemaMetadata":{"name":"schemaMetadata","version":0,"value":{
  "schemaName":"CubeDevTest.UCube.Company","platform":"urn:li:dataPlatform:mssql","version":0,"hash":"",
  "platformSchema":{"__type":"MySqlDDL","tableSchema":""},
  "fields":[
    {"fieldPath":"CompanyId","nullable":false,"type":{"type":{"__type":"NumberType"}},"nativeDataType":"INTEGER","recursive":false,"isPartOfKey":false},
    {"fieldPath":"Name","nullable":true,"type":{"type":{"__type":"StringType"}},"nativeDataType":"NVARCHAR(100)","recursive":false,"isPartOfKey":false}
  ]}}}}}}`

func TestFetchSnapshot(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openapi/entities/v1/latest" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("urns") != companyURN {
			http.Error(w, "bad urn", http.StatusBadRequest)
			return
		}
		w.Write([]byte(entityBody))
	})

	snap, err := client.FetchSnapshot(context.Background(), companyURN)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, err := snap.SchemaMetadata()
	if err != nil {
		t.Fatalf("SchemaMetadata: %v", err)
	}
	if strings.Join(raw.FieldPaths(), ",") != "CompanyId,Name" {
		t.Errorf("unexpected field paths: %v", raw.FieldPaths())
	}

	sm, err := raw.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if sm.Fields[0].Type != schema.FieldTypeNumber || sm.Fields[1].Type != schema.FieldTypeString {
		t.Errorf("unexpected field types: %v, %v", sm.Fields[0].Type, sm.Fields[1].Type)
	}
	if sm.SchemaName != "CubeDevTest.UCube.Company" {
		t.Errorf("unexpected schema name %q", sm.SchemaName)
	}
}

func TestFetchSnapshotErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `oops`},
		{"missing entity", http.StatusOK, `{"responses":{}}`},
		{"missing aspect", http.StatusOK, `{"responses":{"` + companyURN + `":{"aspects":{}}}}`},
		{"bad json", http.StatusOK, `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := client.FetchSnapshot(context.Background(), companyURN)
			var qe *QueryError
			if !errors.As(err, &qe) {
				t.Fatalf("expected QueryError, got %v", err)
			}
			if qe.Phase != PhaseFetch {
				t.Errorf("expected fetch phase, got %s", qe.Phase)
			}
		})
	}
}

func TestDecodeFieldsUnknownType(t *testing.T) {
	raw := []RawField{{
		"fieldPath": json.RawMessage(`"Shape"`),
		"type":      json.RawMessage(`{"type":{"__type":"GeometryType"}}`),
	}}
	_, err := DecodeFields(raw)
	var ute *schema.UnknownTypeError
	if !errors.As(err, &ute) {
		t.Fatalf("expected UnknownTypeError, got %v", err)
	}
}

func TestWriteSchemaMetadataRestliPayload(t *testing.T) {
	var bodies []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/entities" || r.URL.Query().Get("action") != "ingest" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get(restliProtocolHeader) != restliProtocolVersion {
			http.Error(w, "missing protocol header", http.StatusBadRequest)
			return
		}
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
	})

	snap := &Snapshot{URN: companyURN, Aspects: map[string]json.RawMessage{}}
	var resp entitiesResponse
	if err := json.Unmarshal([]byte(entityBody), &resp); err != nil {
		t.Fatal(err)
	}
	snap.Aspects["schemaMetadata"] = resp.Responses[companyURN].Aspects["schemaMetadata"].Value
	raw, _ := snap.SchemaMetadata()
	sm, err := raw.Decode()
	if err != nil {
		t.Fatal(err)
	}
	out := schema.Reconcile(companyURN, sm, []string{"CompanyId"}, nil)

	// the same aspect written twice yields the same request
	for i := 0; i < 2; i++ {
		if err := client.WriteSchemaMetadata(context.Background(), companyURN, out); err != nil {
			t.Fatalf("WriteSchemaMetadata: %v", err)
		}
	}
	if len(bodies) != 2 || bodies[0] != bodies[1] {
		t.Fatalf("expected two identical payloads, got %d", len(bodies))
	}

	var payload map[string]map[string]map[string]map[string]interface{}
	if err := json.Unmarshal([]byte(bodies[0]), &payload); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	snapshot := payload["entity"]["value"][datasetSnapshotFQ]
	if snapshot["urn"] != companyURN {
		t.Errorf("unexpected urn %v", snapshot["urn"])
	}
	aspect := snapshot["aspects"].([]interface{})[0].(map[string]interface{})
	sma := aspect["com.linkedin.schema.SchemaMetadata"].(map[string]interface{})

	if _, ok := sma["platformSchema"].(map[string]interface{})["com.linkedin.schema.MySqlDDL"]; !ok {
		t.Errorf("platformSchema not in union form: %v", sma["platformSchema"])
	}
	field := sma["fields"].([]interface{})[0].(map[string]interface{})
	ftype := field["type"].(map[string]interface{})["type"].(map[string]interface{})
	if _, ok := ftype["com.linkedin.schema.NumberType"]; !ok {
		t.Errorf("field type not in union form: %v", ftype)
	}
	if _, ok := sma["foreignKeys"]; ok {
		t.Error("empty foreignKeys should be omitted")
	}
	if pks := sma["primaryKeys"].([]interface{}); len(pks) != 1 || pks[0] != "CompanyId" {
		t.Errorf("unexpected primaryKeys %v", pks)
	}
}

func TestWriteSchemaMetadataEmitError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	err := client.WriteSchemaMetadata(context.Background(), companyURN, &schema.SchemaMetadata{})
	var qe *QueryError
	if !errors.As(err, &qe) {
		t.Fatalf("expected QueryError, got %v", err)
	}
	if qe.Phase != PhaseEmit || qe.StatusCode != http.StatusInternalServerError {
		t.Errorf("unexpected error %+v", qe)
	}
}

func TestWriteDatasetProfileProposal(t *testing.T) {
	var proposal map[string]map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/aspects" || r.URL.Query().Get("action") != "ingestProposal" {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&proposal)
	})

	lo, hi := "1", "83774"
	p := &schema.DatasetProfile{
		TimestampMillis: 1700000000000,
		FieldProfiles:   []schema.FieldProfile{{FieldPath: "Fk_Geography", Min: &lo, Max: &hi}},
	}
	if err := client.WriteDatasetProfile(context.Background(), companyURN, p); err != nil {
		t.Fatalf("WriteDatasetProfile: %v", err)
	}

	prop := proposal["proposal"]
	if prop["aspectName"] != "datasetProfile" || prop["entityUrn"] != companyURN || prop["changeType"] != "UPSERT" {
		t.Errorf("unexpected proposal: %v", prop)
	}
	value := prop["aspect"].(map[string]interface{})["value"].(string)
	var got schema.DatasetProfile
	if err := json.Unmarshal([]byte(value), &got); err != nil {
		t.Fatalf("aspect value is not JSON: %v", err)
	}
	if *got.FieldProfiles[0].Max != "83774" {
		t.Errorf("unexpected profile %+v", got)
	}
}

func TestFetchDescriptions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"responses":{"` + companyURN + `":{"aspects":{
			"editableDatasetProperties":{"value":{"description":"Companies"}},
			"editableSchemaMetadata":{"value":{"editableSchemaFieldInfo":[{"fieldPath":"CompanyId","description":"Key"}]}}}}}}`))
	})

	d, err := client.FetchDescriptions(context.Background(), companyURN)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Table != "Companies" || len(d.Columns) != 1 || d.Columns[0].Description != "Key" {
		t.Errorf("unexpected descriptions %+v", d)
	}
}

func TestFetchFieldProfiles(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"dataset":{"datasetProfiles":[{"fieldProfiles":[{"fieldPath":"Year","min":"2001","max":"2024"}]}]}}}`))
	})

	fps, err := client.FetchFieldProfiles(context.Background(), companyURN)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fps) != 1 || *fps[0].Min != "2001" {
		t.Errorf("unexpected profiles %+v", fps)
	}
}

func TestToRestli(t *testing.T) {
	in := map[string]interface{}{
		"type": map[string]interface{}{"type": map[string]interface{}{"__type": "ArrayType", "nestedType": []interface{}{"string"}}},
	}
	out := toRestli(in).(map[string]interface{})
	inner := out["type"].(map[string]interface{})["type"].(map[string]interface{})
	arr, ok := inner["com.linkedin.schema.ArrayType"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected union form, got %v", inner)
	}
	if _, ok := arr["__type"]; ok {
		t.Error("__type tag should be dropped")
	}
	if len(arr["nestedType"].([]interface{})) != 1 {
		t.Errorf("nested attributes lost: %v", arr)
	}
}
