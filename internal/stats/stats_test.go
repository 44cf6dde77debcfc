package stats

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/catalogsync/catalogsync/internal/config"
	"github.com/catalogsync/catalogsync/internal/logging"
	"github.com/catalogsync/catalogsync/internal/source"
	"github.com/catalogsync/catalogsync/internal/urn"
)

func newMockReader(t *testing.T) (*source.SQLReader, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return source.NewSQLReaderFromDB(db, source.DialectMSSQL), mock
}

func TestSampleValuesOverThreshold(t *testing.T) {
	r, mock := newMockReader(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(DISTINCT [Asset]) FROM [dbo].[vDataFeed]")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(15000))

	vals, err := SampleValues(context.Background(), r, "dbo", "vDataFeed", "Asset", 10000, logging.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vals == nil || len(vals) != 0 {
		t.Errorf("expected empty non-nil list, got %#v", vals)
	}
	// no SELECT DISTINCT expected
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSampleValuesWithinThreshold(t *testing.T) {
	r, mock := newMockReader(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(DISTINCT [Country]) FROM [dbo].[vDataFeed]")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT [Country] FROM [dbo].[vDataFeed]")).
		WillReturnRows(sqlmock.NewRows([]string{"Country"}).AddRow("NO").AddRow(nil).AddRow(42))

	vals, err := SampleValues(context.Background(), r, "dbo", "vDataFeed", "Country", 10000, logging.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(vals, ",") != "NO,42" {
		t.Errorf("unexpected values %v", vals)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSampleValuesAtThreshold(t *testing.T) {
	m := &source.MockReader{
		CountDistincts: map[string]int64{"T.C": 10000},
		Distincts:      map[string][]interface{}{"T.C": {"a"}},
	}
	vals, err := SampleValues(context.Background(), m, "dbo", "T", "C", 10000, logging.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vals) != 1 {
		t.Errorf("count equal to max should still sample, got %v", vals)
	}
}

func TestMinMaxQuery(t *testing.T) {
	q := MinMaxQuery(source.DialectMSSQL, "UCube", "vDataFeed", []Column{
		{Name: "Fk_Geography", DataType: "int"},
		{Name: "Asset", DataType: "nvarchar"},
	})

	parts := strings.Split(q, "\nUNION ALL\n")
	if len(parts) != 2 {
		t.Fatalf("expected 2 union parts, got %d: %s", len(parts), q)
	}
	want := "SELECT 'Fk_Geography' AS column_name, 'int' AS data_type, (SELECT MIN([Fk_Geography]) FROM [UCube].[vDataFeed]) AS min_val, (SELECT MAX([Fk_Geography]) FROM [UCube].[vDataFeed]) AS max_val"
	if parts[0] != want {
		t.Errorf("numeric part:\n got %s\nwant %s", parts[0], want)
	}
	if parts[1] != "SELECT 'Asset' AS column_name, 'nvarchar' AS data_type, NULL AS min_val, NULL AS max_val" {
		t.Errorf("non-numeric part: %s", parts[1])
	}

	ora := MinMaxQuery(source.DialectOracle, "UCUBE", "V", []Column{{Name: "O'Brien", DataType: "varchar2"}})
	if !strings.HasSuffix(ora, " FROM DUAL") || !strings.Contains(ora, "'O''Brien'") {
		t.Errorf("unexpected oracle query %s", ora)
	}
}

func TestColumnMinMaxRoundsIntegers(t *testing.T) {
	r, mock := newMockReader(t)
	mock.ExpectQuery("UNION ALL").WillReturnRows(
		sqlmock.NewRows([]string{"column_name", "data_type", "min_val", "max_val"}).
			AddRow("Fk_Geography", "int", []byte("1.0"), []byte("83774.4")).
			AddRow("Capacity", "decimal", []byte("0.25"), []byte("1200.50")).
			AddRow("Asset", "nvarchar", nil, nil),
	)

	got, err := ColumnMinMax(context.Background(), r, "UCube", "vDataFeed", []Column{
		{"Fk_Geography", "int"}, {"Capacity", "decimal"}, {"Asset", "nvarchar"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *got[0].Min != "1" || *got[0].Max != "83774" {
		t.Errorf("integer column not rounded: %s %s", *got[0].Min, *got[0].Max)
	}
	if *got[1].Max != "1200.50" {
		t.Errorf("decimal column should keep its text, got %s", *got[1].Max)
	}
	if got[2].Min != nil || got[2].Max != nil {
		t.Error("non-numeric column should have nil min/max")
	}
}

func TestColumnInfo(t *testing.T) {
	r, mock := newMockReader(t)
	mock.ExpectQuery("INFORMATION_SCHEMA.COLUMNS").
		WithArgs("UCube", "vDataFeed").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME", "DATA_TYPE"}).
			AddRow("Fk_Geography", "INT").
			AddRow("Asset", "nvarchar"))

	cols, err := ColumnInfo(context.Background(), r, "UCube", "vDataFeed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cols) != 2 || cols[0].DataType != "int" || cols[1].Name != "Asset" {
		t.Errorf("unexpected columns %+v", cols)
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in      interface{}
		integer bool
		want    string
	}{
		{int64(7), true, "7"},
		{float64(2.5), false, "2.5"},
		{float64(2.5), true, "3"},
		{"-3.6", true, "-4"},
		{"abc", true, "abc"},
	}
	for _, tt := range tests {
		got := formatValue(tt.in, tt.integer)
		if got == nil || *got != tt.want {
			t.Errorf("formatValue(%v, %v) = %v, want %s", tt.in, tt.integer, got, tt.want)
		}
	}
	if formatValue(nil, true) != nil {
		t.Error("nil should stay nil")
	}
}

func TestProfiler(t *testing.T) {
	m := &source.MockReader{
		QueryFunc: func(sql string, _ ...interface{}) ([]map[string]interface{}, error) {
			if strings.Contains(sql, "INFORMATION_SCHEMA") {
				return []map[string]interface{}{
					{"COLUMN_NAME": "Year", "DATA_TYPE": "smallint"},
					{"COLUMN_NAME": "Asset", "DATA_TYPE": "nvarchar"},
				}, nil
			}
			return []map[string]interface{}{
				{"column_name": "Year", "data_type": "smallint", "min_val": int64(2001), "max_val": int64(2024)},
				{"column_name": "Asset", "data_type": "nvarchar", "min_val": nil, "max_val": nil},
			}, nil
		},
		CountDistincts: map[string]int64{"vDataFeed.Asset": 2},
		Distincts:      map[string][]interface{}{"vDataFeed.Asset": {"Deszk", "Ekofisk"}},
	}
	p := &Profiler{
		Open:         m.Opener(),
		Source:       &config.SourceConfig{},
		MaxDistinct:  10000,
		SampleValues: true,
		Logger:       logging.Discard(),
		Now:          func() time.Time { return time.UnixMilli(1700000000000) },
	}
	ds, _ := urn.ParseDataset("urn:li:dataset:(urn:li:dataPlatform:mssql,ekofisk.RECube.UCube.vDataFeed,DEV)")

	profile, err := p.Profile(context.Background(), ds, []string{"Asset", "NotInTable"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.TimestampMillis != 1700000000000 {
		t.Errorf("unexpected timestamp %d", profile.TimestampMillis)
	}
	if len(profile.FieldProfiles) != 2 {
		t.Fatalf("expected 2 field profiles, got %d", len(profile.FieldProfiles))
	}
	year := profile.FieldProfiles[0]
	if *year.Min != "2001" || *year.Max != "2024" || year.SampleValues != nil {
		t.Errorf("unexpected year profile %+v", year)
	}
	asset := profile.FieldProfiles[1]
	if len(asset.SampleValues) != 2 || asset.Min != nil {
		t.Errorf("unexpected asset profile %+v", asset)
	}
	if len(m.DistinctCalls) != 1 {
		t.Errorf("only fields present in the table should be sampled, got %v", m.DistinctCalls)
	}
	if !m.Closed {
		t.Error("connection should be closed")
	}
}

func TestProfilerFailsOnQueryError(t *testing.T) {
	m := &source.MockReader{QueryErr: errors.New("invalid object name")}
	p := &Profiler{Open: m.Opener(), Source: &config.SourceConfig{}, Logger: logging.Discard()}
	ds, _ := urn.ParseDataset("urn:li:dataset:(urn:li:dataPlatform:mssql,s.d.dbo.Missing,DEV)")
	if _, err := p.Profile(context.Background(), ds, nil); err == nil {
		t.Fatal("expected error")
	}
}
