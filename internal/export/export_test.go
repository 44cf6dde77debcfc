package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/catalogsync/catalogsync/internal/catalog"
	"github.com/catalogsync/catalogsync/internal/logging"
	"github.com/catalogsync/catalogsync/internal/schema"
)

const (
	companyURN = "urn:li:dataset:(urn:li:dataPlatform:mssql,ekofisk.CubeDevTest.UCube.Company,DEV)"
	ownerURN   = "urn:li:dataset:(urn:li:dataPlatform:mssql,ekofisk.CubeDevTest.UCube.Ownership,DEV)"
)

func TestRows(t *testing.T) {
	cat := catalog.NewMockCatalog()
	cat.URNs = []string{ownerURN, "not-a-urn", companyURN}
	cat.Stored[companyURN] = &catalog.Descriptions{
		Table: "Companies",
		Columns: []schema.EditableSchemaFieldInfo{
			{FieldPath: "PKCompanyId", Description: "Id"},
			{FieldPath: "Name", Description: "Legal name"},
		},
	}
	cat.Stored[ownerURN] = &catalog.Descriptions{Table: "Ownership shares"}

	rows, err := New(cat, logging.Discard()).Rows(context.Background(), "ucube")
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d: %+v", len(rows), rows)
	}
	if rows[0].TableName != "Company" || rows[0].ColumnName != "PKCompanyId" {
		t.Errorf("unexpected first row %+v", rows[0])
	}
	if rows[2].TableName != "Ownership" || rows[2].ColumnName != "" {
		t.Errorf("expected table-only row for Ownership, got %+v", rows[2])
	}
}

func TestRows_PlatformFilter(t *testing.T) {
	pgURN := "urn:li:dataset:(urn:li:dataPlatform:postgres,pg.cube.public.company,DEV)"
	cat := catalog.NewMockCatalog()
	cat.URNs = []string{companyURN, pgURN}

	e := New(cat, logging.Discard())
	e.Platform = "postgres"
	rows, err := e.Rows(context.Background(), "ucube")
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(rows) != 1 || rows[0].TableName != "company" {
		t.Errorf("expected only the postgres dataset, got %+v", rows)
	}
}

func TestRows_ListError(t *testing.T) {
	cat := catalog.NewMockCatalog()
	cat.ListErr = errors.New("boom")
	if _, err := New(cat, logging.Discard()).Rows(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	rows := []Row{
		{TableName: "Company", TableDescription: "Companies, all of them", ColumnName: "Name", ColumnDescription: "Legal name"},
	}
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "table_name,table_description,column_name,column_description\n" +
		"Company,\"Companies, all of them\",Name,Legal name\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

type fakeS3 struct {
	objects map[string][]byte
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, _ := io.ReadAll(in.Body)
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func TestUpload(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	uri, err := NewUploader(fake, "bucket", "catalog-exports").Upload(context.Background(), "ucube.csv", []byte("a,b\n"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if uri != "s3://bucket/catalog-exports/ucube.csv" {
		t.Errorf("unexpected uri %s", uri)
	}
	if string(fake.objects["bucket/catalog-exports/ucube.csv"]) != "a,b\n" {
		t.Error("object not stored")
	}
}

func TestUpload_Error(t *testing.T) {
	fake := &fakeS3{err: errors.New("denied")}
	_, err := NewUploader(fake, "bucket", "").Upload(context.Background(), "x.csv", nil)
	if err == nil || !strings.Contains(err.Error(), "s3://bucket/x.csv") {
		t.Errorf("expected wrapped upload error, got %v", err)
	}
}
