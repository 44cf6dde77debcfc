package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/catalogsync/catalogsync/internal/schema"
)

const (
	restliProtocolHeader  = "X-RestLi-Protocol-Version"
	restliProtocolVersion = "2.0.0"

	schemaNamespace   = "com.linkedin.schema."
	datasetSnapshotFQ = "com.linkedin.metadata.snapshot.DatasetSnapshot"
)

// WriteSchemaMetadata replaces the schemaMetadata aspect of a dataset with a
// single MetadataChangeEvent.
func (c *Client) WriteSchemaMetadata(ctx context.Context, datasetURN string, m *schema.SchemaMetadata) error {
	payload, err := schemaMetadataEvent(datasetURN, m)
	if err != nil {
		return queryError(PhaseEmit, "ingest", datasetURN, err)
	}

	if _, err := c.do(ctx, "POST", "/entities?action=ingest", payload, restliHeaders()); err != nil {
		return queryError(PhaseEmit, "ingest", datasetURN, err)
	}
	c.logger.Info("emitted schema metadata", "urn", datasetURN,
		"primary_keys", len(m.PrimaryKeys), "foreign_keys", len(m.ForeignKeys))
	return nil
}

// WriteTableDescription replaces the editable description of a dataset.
func (c *Client) WriteTableDescription(ctx context.Context, datasetURN, description string) error {
	return c.writeAspect(ctx, datasetURN, aspectEditableDatasetProperties,
		schema.EditableDatasetProperties{Description: description})
}

// WriteColumnDescriptions replaces the full list of editable column
// descriptions of a dataset.
func (c *Client) WriteColumnDescriptions(ctx context.Context, datasetURN string, columns map[string]string) error {
	return c.writeAspect(ctx, datasetURN, aspectEditableSchemaMetadata,
		schema.NewEditableSchemaMetadata(columns))
}

// WriteDatasetProfile upserts the datasetProfile aspect of a dataset.
func (c *Client) WriteDatasetProfile(ctx context.Context, datasetURN string, p *schema.DatasetProfile) error {
	return c.writeAspect(ctx, datasetURN, aspectDatasetProfile, p)
}

// writeAspect sends one MetadataChangeProposal upserting a single aspect.
func (c *Client) writeAspect(ctx context.Context, datasetURN, aspectName string, aspect interface{}) error {
	value, err := json.Marshal(aspect)
	if err != nil {
		return queryError(PhaseEmit, "ingestProposal", datasetURN, fmt.Errorf("marshaling %s: %w", aspectName, err))
	}

	payload := map[string]interface{}{
		"proposal": map[string]interface{}{
			"entityType": "dataset",
			"entityUrn":  datasetURN,
			"changeType": "UPSERT",
			"aspectName": aspectName,
			"aspect": map[string]interface{}{
				"value":       string(value),
				"contentType": "application/json",
			},
		},
	}

	if _, err := c.do(ctx, "POST", "/aspects?action=ingestProposal", payload, restliHeaders()); err != nil {
		return queryError(PhaseEmit, "ingestProposal", datasetURN, err)
	}
	c.logger.Info("emitted aspect", "urn", datasetURN, "aspect", aspectName)
	return nil
}

func restliHeaders() map[string]string {
	return map[string]string{restliProtocolHeader: restliProtocolVersion}
}

// schemaMetadataEvent builds the rest.li MetadataChangeEvent body for a
// schemaMetadata aspect.
func schemaMetadataEvent(datasetURN string, m *schema.SchemaMetadata) (map[string]interface{}, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshaling schema metadata: %w", err)
	}
	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("re-reading schema metadata: %w", err)
	}

	return map[string]interface{}{
		"entity": map[string]interface{}{
			"value": map[string]interface{}{
				datasetSnapshotFQ: map[string]interface{}{
					"urn": datasetURN,
					"aspects": []interface{}{
						map[string]interface{}{
							schemaNamespace + "SchemaMetadata": toRestli(generic),
						},
					},
				},
			},
		},
	}, nil
}

// toRestli rewrites every object carrying a "__type" tag into rest.li union
// form: {"__type":"StringType"} becomes {"com.linkedin.schema.StringType":{}}.
func toRestli(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			if k == "__type" {
				continue
			}
			out[k] = toRestli(e)
		}
		if tag, ok := t["__type"].(string); ok {
			return map[string]interface{}{schemaNamespace + tag: out}
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = toRestli(e)
		}
		return out
	default:
		return v
	}
}
