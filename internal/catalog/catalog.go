// Package catalog talks to the metadata catalog's GraphQL, OpenAPI and
// rest.li ingest endpoints.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/catalogsync/catalogsync/internal/config"
	"github.com/catalogsync/catalogsync/internal/schema"
)

// Catalog is the set of catalog operations the sync engine depends on.
type Catalog interface {
	ListDatasetURNs(ctx context.Context, domain string) ([]string, error)
	FetchSnapshot(ctx context.Context, urn string) (*Snapshot, error)
	FetchDescriptions(ctx context.Context, urn string) (*Descriptions, error)
	FetchFieldProfiles(ctx context.Context, urn string) ([]schema.FieldProfile, error)
	WriteSchemaMetadata(ctx context.Context, urn string, m *schema.SchemaMetadata) error
	WriteTableDescription(ctx context.Context, urn, description string) error
	WriteColumnDescriptions(ctx context.Context, urn string, columns map[string]string) error
	WriteDatasetProfile(ctx context.Context, urn string, p *schema.DatasetProfile) error
}

// Phase says which side of a catalog exchange failed.
type Phase string

const (
	PhaseList  Phase = "list"
	PhaseFetch Phase = "fetch"
	PhaseEmit  Phase = "emit"
)

// QueryError is returned for any failed catalog exchange: transport errors,
// non-2xx statuses, GraphQL errors and missing data.
type QueryError struct {
	Phase      Phase
	Op         string
	URN        string
	StatusCode int
	Err        error
}

func (e *QueryError) Error() string {
	msg := fmt.Sprintf("catalog %s %s", e.Phase, e.Op)
	if e.URN != "" {
		msg += " " + e.URN
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *QueryError) Unwrap() error { return e.Err }

// Client is the HTTP implementation of Catalog.
type Client struct {
	server     string
	token      string
	pageSize   int
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a client for the configured catalog server.
func New(cfg config.CatalogConfig, logger *slog.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Client{
		server:   cfg.Server,
		token:    cfg.Token,
		pageSize: pageSize,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// statusError carries a non-2xx response body.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.code, e.body)
}

// do sends one request and returns the response body. The body is fully read
// and closed before returning.
func (c *Client) do(ctx context.Context, method, path string, payload interface{}, headers map[string]string) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.server+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &statusError{code: resp.StatusCode, body: string(data)}
	}
	return data, nil
}

func queryError(phase Phase, op, urn string, err error) *QueryError {
	qe := &QueryError{Phase: phase, Op: op, URN: urn, Err: err}
	if se, ok := err.(*statusError); ok {
		qe.StatusCode = se.code
	}
	return qe
}
