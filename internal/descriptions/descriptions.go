// Package descriptions loads human-written table and column descriptions
// from YAML files and spreadsheet exports.
package descriptions

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/catalogsync/catalogsync/internal/config"
	"github.com/catalogsync/catalogsync/internal/urn"
)

// Store maps table names to their descriptions and to their column
// descriptions.
type Store struct {
	Tables  map[string]string            `yaml:"tables,omitempty"`
	Columns map[string]map[string]string `yaml:"columns,omitempty"`
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		Tables:  make(map[string]string),
		Columns: make(map[string]map[string]string),
	}
}

// LoadYAML reads a description store from a YAML file.
func LoadYAML(path string) (*Store, error) {
	data, err := os.ReadFile(config.ExpandHome(path))
	if err != nil {
		return nil, fmt.Errorf("reading descriptions file: %w", err)
	}
	s := NewStore()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing descriptions file: %w", err)
	}
	if s.Tables == nil {
		s.Tables = make(map[string]string)
	}
	if s.Columns == nil {
		s.Columns = make(map[string]map[string]string)
	}
	return s, nil
}

// LoadWorkbook scrapes column descriptions from a sheet laid out as
// consecutive blocks: a row with only its first cell set names a table, and
// the following rows with a name and a description list its columns.
// Nothing is captured before the row whose first cell equals startMarker.
func LoadWorkbook(path, sheet, startMarker string) (*Store, error) {
	f, err := excelize.OpenFile(config.ExpandHome(path))
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	return scrapeRows(rows, startMarker), nil
}

func scrapeRows(rows [][]string, startMarker string) *Store {
	s := NewStore()
	capturing := false
	current := ""

	for _, row := range rows {
		first := cell(row, 0)
		if first == startMarker {
			capturing = true
		}
		if !capturing {
			continue
		}

		switch {
		case first != "" && onlyFirst(row):
			current = first
		case current != "" && first != "" && cell(row, 1) != "":
			if s.Columns[current] == nil {
				s.Columns[current] = make(map[string]string)
			}
			s.Columns[current][first] = cell(row, 1)
		}
	}
	return s
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func onlyFirst(row []string) bool {
	for i := 1; i < len(row); i++ {
		if cell(row, i) != "" {
			return false
		}
	}
	return true
}

// Merge copies every description of o into s, overwriting existing entries.
func (s *Store) Merge(o *Store) {
	for t, d := range o.Tables {
		s.Tables[t] = d
	}
	for t, cols := range o.Columns {
		if s.Columns[t] == nil {
			s.Columns[t] = make(map[string]string, len(cols))
		}
		for c, d := range cols {
			s.Columns[t][c] = d
		}
	}
}

// TableNames returns the tables with a table description, sorted.
func (s *Store) TableNames() []string {
	return sortedKeys(s.Tables)
}

// ColumnTables returns the tables with column descriptions, sorted.
func (s *Store) ColumnTables() []string {
	names := make([]string, 0, len(s.Columns))
	for t := range s.Columns {
		names = append(names, t)
	}
	sort.Strings(names)
	return names
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Locator maps description table names to catalog dataset URNs.
type Locator struct {
	Platform    string
	Server      string
	Database    string
	Schema      string
	TablePrefix string
	Env         string
}

// NewLocator builds a locator from configuration.
func NewLocator(cfg *config.Config) Locator {
	return Locator{
		Platform:    cfg.Catalog.Platform,
		Server:      cfg.Descriptions.Server,
		Database:    cfg.Descriptions.Database,
		Schema:      cfg.Descriptions.Schema,
		TablePrefix: cfg.Descriptions.TablePrefix,
		Env:         cfg.Catalog.Env,
	}
}

// URNFor returns the dataset URN that holds the descriptions of table.
func (l Locator) URNFor(table string) string {
	return urn.DatasetURN(l.Platform, l.Server, l.Database, l.Schema, l.TablePrefix+table, l.Env)
}
