// Package urn parses and builds the composite identifiers used to address
// datasets, fields and domains in the metadata catalog.
//
// A dataset URN looks like
//
//	urn:li:dataset:(urn:li:dataPlatform:mssql,ekofisk.CubeDevTest.UCube.BridgeCompanySubsidiary,DEV)
//
// where the second-to-last comma segment carries the dot-delimited table path
// and its last dot segment is the table name.
package urn

import (
	"fmt"
	"strings"
)

const (
	datasetPrefix  = "urn:li:dataset:("
	platformPrefix = "urn:li:dataPlatform:"
	domainPrefix   = "urn:li:domain:"
	fieldPrefix    = "urn:li:schemaField:("
)

// ParseError is returned when an identifier does not carry enough structure
// to extract the requested component.
type ParseError struct {
	URN    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable urn %q: %s", e.URN, e.Reason)
}

// Dataset is the decomposed form of a dataset URN.
type Dataset struct {
	Platform string // e.g. "mssql"
	Path     string // e.g. "ekofisk.CubeDevTest.UCube.BridgeCompanySubsidiary"
	Env      string // e.g. "DEV"
}

// TableName returns the canonical table name embedded in a dataset URN.
func TableName(urn string) (string, error) {
	parts := strings.Split(urn, ",")
	if len(parts) < 2 {
		return "", &ParseError{URN: urn, Reason: "fewer than two comma-separated segments"}
	}
	path := strings.Split(parts[len(parts)-2], ".")
	table := path[len(path)-1]
	if table == "" {
		return "", &ParseError{URN: urn, Reason: "empty table name"}
	}
	return table, nil
}

// ParseDataset splits a dataset URN into platform, path and environment.
func ParseDataset(urn string) (Dataset, error) {
	if !strings.HasPrefix(urn, datasetPrefix) || !strings.HasSuffix(urn, ")") {
		return Dataset{}, &ParseError{URN: urn, Reason: "not a dataset urn"}
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(urn, datasetPrefix), ")")

	parts := strings.Split(inner, ",")
	if len(parts) < 3 {
		return Dataset{}, &ParseError{URN: urn, Reason: "expected platform, path and environment"}
	}

	// The path itself never contains commas in practice, but anything between
	// the platform and the environment is treated as path.
	return Dataset{
		Platform: strings.TrimPrefix(parts[0], platformPrefix),
		Path:     strings.Join(parts[1:len(parts)-1], ","),
		Env:      parts[len(parts)-1],
	}, nil
}

// Table returns the last dot segment of the dataset path.
func (d Dataset) Table() string {
	segs := strings.Split(d.Path, ".")
	return segs[len(segs)-1]
}

// Schema returns the second-to-last dot segment of the dataset path, or ""
// when the path has a single segment.
func (d Dataset) Schema() string {
	segs := strings.Split(d.Path, ".")
	if len(segs) < 2 {
		return ""
	}
	return segs[len(segs)-2]
}

// String renders the dataset back into URN form.
func (d Dataset) String() string {
	return fmt.Sprintf("%s%s%s,%s,%s)", datasetPrefix, platformPrefix, d.Platform, d.Path, d.Env)
}

// DatasetURN builds the canonical URN of a relational table.
func DatasetURN(platform, server, database, schema, table, env string) string {
	path := strings.Join([]string{server, database, schema, table}, ".")
	return Dataset{Platform: platform, Path: path, Env: env}.String()
}

// FieldURN builds the URN of a single schema field of a dataset.
func FieldURN(datasetURN, fieldPath string) string {
	return fieldPrefix + datasetURN + "," + fieldPath + ")"
}

// DomainURN builds the URN of a catalog domain.
func DomainURN(domain string) string {
	return domainPrefix + domain
}
